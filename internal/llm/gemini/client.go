package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"datachat-backend/internal/llm"
	"datachat-backend/internal/shared/metrics"
	"datachat-backend/internal/shared/telemetry"
)

// Client implements llm.Client on top of the official genai SDK. It is a
// thin wrapper: no retries, no rate limiting; callers own those policies.
type Client struct {
	cli *genai.Client
}

// New constructs a Gemini-backed client. An empty API key is a typed
// configuration error so handlers can surface "service not configured"
// instead of failing deep inside a request.
func New(ctx context.Context, apiKey string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, llm.NewNotConfigured("GEMINI_API_KEY is not set")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, llm.NewCallFailed("initialize gemini client", err)
	}
	return &Client{cli: cli}, nil
}

// Generate performs one generation call and maps provider failure modes to
// the llm error taxonomy.
func (c *Client) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	contents, err := contentsFor(req.Prompt)
	if err != nil {
		return llm.Response{}, err
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		TopK:            genai.Ptr[float32](1),
		TopP:            genai.Ptr[float32](1),
		MaxOutputTokens: 2048,
		SafetySettings:  defaultSafetySettings(),
	}
	if req.ExpectJSON {
		cfg.ResponseMIMEType = "application/json"
	}

	start := time.Now()
	resp, err := c.cli.Models.GenerateContent(ctx, req.Model, contents, cfg)
	metrics.ObserveAICallDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)
	if err != nil {
		return llm.Response{}, llm.NewCallFailed("gemini generate content", err)
	}

	text, err := extractText(resp)
	if err != nil {
		return llm.Response{}, err
	}

	if req.ExpectJSON {
		trimmed := strings.TrimSpace(text)
		if !json.Valid([]byte(trimmed)) {
			return llm.Response{}, llm.NewResponseMalformed(trimmed, nil)
		}
		return llm.Response{Text: text, JSON: json.RawMessage(trimmed)}, nil
	}
	return llm.Response{Text: text}, nil
}

func contentsFor(prompt llm.Prompt) ([]*genai.Content, error) {
	switch p := prompt.(type) {
	case llm.TextPrompt:
		return []*genai.Content{{
			Role:  llm.RoleUser,
			Parts: []*genai.Part{{Text: p.Text}},
		}}, nil
	case llm.ChatPrompt:
		contents := make([]*genai.Content, 0, len(p.Turns))
		for _, turn := range p.Turns {
			parts := make([]*genai.Part, 0, len(turn.Parts))
			for _, text := range turn.Parts {
				parts = append(parts, &genai.Part{Text: text})
			}
			contents = append(contents, &genai.Content{Role: turn.Role, Parts: parts})
		}
		return contents, nil
	default:
		return nil, llm.NewCallFailed(fmt.Sprintf("unsupported prompt variant %T", prompt), nil)
	}
}

// extractText maps the response envelope to plain text or a typed error:
// no candidates (possibly with a prompt-level block reason), a safety stop,
// or a candidate with no content parts. MAX_TOKENS is logged but the
// partial text is still returned.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", llm.NewContentBlocked(string(resp.PromptFeedback.BlockReason), resp.PromptFeedback.BlockReasonMessage)
		}
		return "", llm.NewCallFailed("gemini returned no candidates", nil)
	}

	candidate := resp.Candidates[0]
	switch candidate.FinishReason {
	case "", genai.FinishReasonStop:
	case genai.FinishReasonSafety:
		return "", llm.NewContentBlocked(string(genai.FinishReasonSafety), "candidate stopped by safety filter")
	case genai.FinishReasonMaxTokens:
		telemetry.Warn("gemini.truncated", map[string]any{"finish_reason": string(candidate.FinishReason)})
	default:
		telemetry.Warn("gemini.finish_reason", map[string]any{"finish_reason": string(candidate.FinishReason)})
	}

	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", llm.NewCallFailed(fmt.Sprintf("gemini candidate has no content parts, finish reason: %s", candidate.FinishReason), nil)
	}
	return candidate.Content.Parts[0].Text, nil
}

func defaultSafetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, cat := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  cat,
			Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
		})
	}
	return settings
}
