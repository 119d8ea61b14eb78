package topics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"datachat-backend/internal/llm"
)

func buildInitialPrompt(topicDisplayName, dataNatureDescription string, dataSummary json.RawMessage) string {
	var sb strings.Builder
	sb.WriteString("You are an AI Data Analysis Agent.\n")
	fmt.Fprintf(&sb, "Your mission is to help me perform a cross-analysis and uncover valuable insights related to the topic: %q.\n", topicDisplayName)
	fmt.Fprintf(&sb, "The data you are analyzing primarily concerns: %q.\n", dataNatureDescription)
	fmt.Fprintf(&sb, "Please focus your analysis of %q through this lens, considering the overall nature of the dataset.\n\n", topicDisplayName)
	sb.WriteString("About Your Data (summary):\n")
	sb.Write(indentJSON(dataSummary))
	sb.WriteString("\n\nYour First Response - Initial Analysis & Guidance:\n")
	sb.WriteString("Provide your analysis formatted as a JSON object with the following exact keys:\n")
	fmt.Fprintf(&sb, "- \"initialFindings\": (String) Provide your key initial observations and insights related to %q based on the provided data summary. Be concise: aim for 2-3 short paragraphs, each about 2-4 sentences long.\n", topicDisplayName)
	sb.WriteString("- \"thoughtProcess\": (String) Briefly explain the key steps (3-4 points) in your reasoning as a bulleted list (e.g., \"- Analyzed X.\\n- Compared Y and Z.\\n- Concluded A.\").\n")
	sb.WriteString("- \"questionSuggestions\": (Array of strings) Provide 2-3 concise and insightful follow-up questions the user could ask to delve deeper. Each question should be brief.\n\n")
	sb.WriteString("Interaction Style: Be analytical, insightful, and proactive in suggesting next steps.\n\n")
	fmt.Fprintf(&sb, "Now, please provide your initial analysis for %q based on the dataset summary.\n", topicDisplayName)
	return sb.String()
}

// buildChatPrompt assembles the full multi-turn conversation: a context turn
// with the dataset summary, the stored history verbatim, and a final user
// turn carrying the question plus the response contract.
func buildChatPrompt(analysisName, topicDisplayName, dataNatureDescription string, dataSummary json.RawMessage, history []ChatMessage, userMessage string) llm.ChatPrompt {
	turns := make([]llm.Turn, 0, len(history)+2)
	turns = append(turns, llm.Turn{
		Role:  llm.RoleUser,
		Parts: []string{chatContext(analysisName, topicDisplayName, dataNatureDescription, dataSummary)},
	})
	for _, msg := range history {
		if len(msg.Parts) == 0 {
			continue
		}
		parts := make([]string, 0, len(msg.Parts))
		for _, p := range msg.Parts {
			parts = append(parts, p.Text)
		}
		turns = append(turns, llm.Turn{Role: msg.Role, Parts: parts})
	}
	turns = append(turns, llm.Turn{Role: llm.RoleUser, Parts: []string{chatQuestion(userMessage)}})
	return llm.ChatPrompt{Turns: turns}
}

func chatContext(analysisName, topicDisplayName, dataNatureDescription string, dataSummary json.RawMessage) string {
	var sb strings.Builder
	sb.WriteString("You are an AI Data Analysis Agent. Continue the conversation based on the history provided.\n")
	fmt.Fprintf(&sb, "The overall analysis is named %q and the current topic of discussion is %q.\n", analysisName, topicDisplayName)
	fmt.Fprintf(&sb, "The data you are analyzing primarily concerns: %q.\n\n", dataNatureDescription)
	sb.WriteString("Data Summary (for context, do not repeat this summary in your answer unless specifically asked):\n")
	sb.Write(indentJSON(dataSummary))
	return sb.String()
}

func chatQuestion(userMessage string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\nYour Response:\n", userMessage)
	fmt.Fprintf(&sb, "Based on the user's latest message (%q) and the conversation history, provide your response.\n", userMessage)
	sb.WriteString("Format your response as a JSON object with the following exact keys:\n")
	sb.WriteString("- \"conciseChatMessage\": (String) A brief, direct answer to the user's question, suitable for display in a chat UI.\n")
	sb.WriteString("- \"detailedAnalysisBlock\": (Object) A structured block for the main display area, with these keys:\n")
	fmt.Fprintf(&sb, "    - \"questionAsked\": (String) The user's question you are responding to (i.e., %q).\n", userMessage)
	sb.WriteString("    - \"detailedFindings\": (String) Your detailed findings, explanations, or analysis related to the question.\n")
	sb.WriteString("    - \"specificThoughtProcess\": (String) Briefly explain how you arrived at these detailedFindings, referencing the data summary or previous parts of the conversation if relevant.\n")
	sb.WriteString("    - \"followUpSuggestions\": (Array of strings) Provide 2-3 insightful follow-up questions the user could ask next.\n\n")
	sb.WriteString("Interaction Style: Be analytical, insightful, and directly answer the user's question.\n")
	return sb.String()
}

func indentJSON(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return raw
	}
	return buf.Bytes()
}
