package topics

import (
	"encoding/json"

	"datachat-backend/internal/llm"
)

// InitialAnalysisResult is the structured first response for a topic.
type InitialAnalysisResult struct {
	InitialFindings     string   `json:"initialFindings"`
	ThoughtProcess      string   `json:"thoughtProcess"`
	QuestionSuggestions []string `json:"questionSuggestions"`
}

// ParseInitialAnalysis validates the raw AI response for the three keys the
// dashboard depends on.
func ParseInitialAnalysis(raw json.RawMessage) (InitialAnalysisResult, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return InitialAnalysisResult{}, llm.NewResponseMalformed(string(raw), err)
	}
	for _, required := range []string{"initialFindings", "thoughtProcess", "questionSuggestions"} {
		if _, ok := keys[required]; !ok {
			return InitialAnalysisResult{}, llm.NewResponseIncomplete(required)
		}
	}
	var result InitialAnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return InitialAnalysisResult{}, llm.NewResponseMalformed(string(raw), err)
	}
	if result.InitialFindings == "" {
		return InitialAnalysisResult{}, llm.NewResponseIncomplete("initialFindings")
	}
	return result, nil
}

// DetailedAnalysisBlock is the structured part of one chat response.
type DetailedAnalysisBlock struct {
	QuestionAsked          string   `json:"questionAsked"`
	DetailedFindings       string   `json:"detailedFindings"`
	SpecificThoughtProcess string   `json:"specificThoughtProcess"`
	FollowUpSuggestions    []string `json:"followUpSuggestions"`
}

// ChatTurnResult is the full AI payload for one chat turn.
type ChatTurnResult struct {
	ConciseChatMessage    string                `json:"conciseChatMessage"`
	DetailedAnalysisBlock DetailedAnalysisBlock `json:"detailedAnalysisBlock"`
}

// ParseChatTurn validates the raw AI chat response. The concise message, the
// detailed block and its detailedFindings are mandatory.
func ParseChatTurn(raw json.RawMessage) (ChatTurnResult, json.RawMessage, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return ChatTurnResult{}, nil, llm.NewResponseMalformed(string(raw), err)
	}
	blockRaw, ok := keys["detailedAnalysisBlock"]
	if !ok {
		return ChatTurnResult{}, nil, llm.NewResponseIncomplete("detailedAnalysisBlock")
	}
	var result ChatTurnResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return ChatTurnResult{}, nil, llm.NewResponseMalformed(string(raw), err)
	}
	if result.ConciseChatMessage == "" {
		return ChatTurnResult{}, nil, llm.NewResponseIncomplete("conciseChatMessage")
	}
	if result.DetailedAnalysisBlock.DetailedFindings == "" {
		return ChatTurnResult{}, nil, llm.NewResponseIncomplete("detailedAnalysisBlock.detailedFindings")
	}
	return result, blockRaw, nil
}
