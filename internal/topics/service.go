package topics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"datachat-backend/internal/analyses"
	"datachat-backend/internal/llm"
	"datachat-backend/internal/shared/metrics"
	"datachat-backend/internal/shared/telemetry"
)

// Service implements topic initiation and the chat loop.
type Service struct {
	Analyses analyses.Repo
	Repo     Repo
	LLM      llm.Client
	Model    string

	locks topicLocks
}

// InitiateTopic runs the first AI analysis for a topic. If a result already
// exists it is returned as-is and the AI is not called again.
func (s *Service) InitiateTopic(ctx context.Context, analysisID, topicID, topicDisplayName string) (json.RawMessage, bool, error) {
	if analysisID == "" || topicID == "" || strings.TrimSpace(topicDisplayName) == "" {
		return nil, false, fmt.Errorf("%w: missing required fields: analysisId, topicId, or topicDisplayName", ErrInvalidInput)
	}

	rec, err := s.Analyses.GetByID(ctx, analysisID)
	if err != nil {
		return nil, false, err
	}
	if len(rec.DataSummary) == 0 || rec.DataNatureDescription == "" {
		return nil, false, ErrMissingContext
	}

	unlock := s.locks.lock(analysisID, topicID)
	defer unlock()

	if topic, err := s.Repo.GetTopic(ctx, analysisID, topicID); err == nil && len(topic.InitialAnalysisResult) > 0 {
		return topic.InitialAnalysisResult, true, nil
	}

	if err := s.Repo.StartAnalyzing(ctx, analysisID, topicID, strings.TrimSpace(topicDisplayName)); err != nil {
		return nil, false, fmt.Errorf("create topic record: %w", err)
	}

	prompt := buildInitialPrompt(topicDisplayName, rec.DataNatureDescription, rec.DataSummary)
	if err := s.Repo.SetInitialPrompt(ctx, analysisID, topicID, prompt); err != nil {
		return nil, false, fmt.Errorf("record initial prompt: %w", err)
	}

	resp, err := s.LLM.Generate(ctx, llm.Request{
		Model:      s.Model,
		Prompt:     llm.TextPrompt{Text: prompt},
		ExpectJSON: true,
	})
	if err != nil {
		s.recordFailure(ctx, analysisID, topicID, StatusErrorInitialAnalysis, err)
		metrics.IncTopicAnalysisFailed()
		return nil, false, err
	}
	result, err := ParseInitialAnalysis(resp.JSON)
	if err != nil {
		s.recordFailure(ctx, analysisID, topicID, StatusErrorInitialAnalysis, err)
		metrics.IncTopicAnalysisFailed()
		return nil, false, err
	}

	if err := s.Repo.CompleteInitialAnalysis(ctx, analysisID, topicID, resp.JSON); err != nil {
		s.recordFailure(ctx, analysisID, topicID, StatusErrorServer, err)
		metrics.IncTopicAnalysisFailed()
		return nil, false, fmt.Errorf("persist initial analysis: %w", err)
	}

	// Seed the conversation with the findings as the first model turn.
	seed := ChatMessage{
		MessageID:             "initialMsg_" + uuid.NewString(),
		Role:                  llm.RoleModel,
		Parts:                 []Part{{Text: result.InitialFindings}},
		DetailedAnalysisBlock: resp.JSON,
	}
	if _, err := s.Repo.AppendMessage(ctx, analysisID, topicID, seed); err != nil {
		s.recordFailure(ctx, analysisID, topicID, StatusErrorServer, err)
		metrics.IncTopicAnalysisFailed()
		return nil, false, fmt.Errorf("seed chat history: %w", err)
	}
	if err := s.Analyses.Touch(ctx, analysisID); err != nil {
		telemetry.Warn("could not touch analysis after topic initiation", map[string]any{
			"analysis_id": analysisID, "topic_id": topicID, "error": err.Error(),
		})
	}

	metrics.IncTopicAnalysis()
	telemetry.Info("initial topic analysis completed", map[string]any{
		"analysis_id": analysisID,
		"topic_id":    topicID,
	})
	return resp.JSON, false, nil
}

// ChatTurn appends the user's message, asks the AI to continue the
// conversation and appends the model's reply. Turns for the same topic are
// serialized so the history alternates cleanly.
func (s *Service) ChatTurn(ctx context.Context, analysisID, topicID, userMessage string) (ChatMessage, json.RawMessage, error) {
	if analysisID == "" || topicID == "" || userMessage == "" {
		return ChatMessage{}, nil, fmt.Errorf("%w: missing required fields: analysisId, topicId, or userMessageText", ErrInvalidInput)
	}
	if strings.TrimSpace(userMessage) == "" {
		return ChatMessage{}, nil, fmt.Errorf("%w: user message text cannot be empty", ErrInvalidInput)
	}

	rec, err := s.Analyses.GetByID(ctx, analysisID)
	if err != nil {
		return ChatMessage{}, nil, err
	}
	if len(rec.DataSummary) == 0 || rec.DataNatureDescription == "" {
		return ChatMessage{}, nil, ErrMissingContext
	}

	unlock := s.locks.lock(analysisID, topicID)
	defer unlock()

	topic, err := s.Repo.GetTopic(ctx, analysisID, topicID)
	if err != nil {
		return ChatMessage{}, nil, err
	}

	history, err := s.Repo.ListMessages(ctx, analysisID, topicID)
	if err != nil {
		return ChatMessage{}, nil, fmt.Errorf("load chat history: %w", err)
	}

	// The user's turn is committed before the AI call so it survives an AI
	// failure in the history.
	userMsg := ChatMessage{
		MessageID: "userMsg_" + uuid.NewString(),
		Role:      llm.RoleUser,
		Parts:     []Part{{Text: userMessage}},
	}
	if _, err := s.Repo.AppendMessage(ctx, analysisID, topicID, userMsg); err != nil {
		return ChatMessage{}, nil, fmt.Errorf("store user message: %w", err)
	}

	resp, err := s.LLM.Generate(ctx, llm.Request{
		Model:      s.Model,
		Prompt:     buildChatPrompt(rec.AnalysisName, topic.TopicDisplayName, rec.DataNatureDescription, rec.DataSummary, history, userMessage),
		ExpectJSON: true,
	})
	if err != nil {
		metrics.IncChatTurnFailed()
		return ChatMessage{}, nil, err
	}
	result, blockRaw, err := ParseChatTurn(resp.JSON)
	if err != nil {
		metrics.IncChatTurnFailed()
		return ChatMessage{}, nil, err
	}

	modelMsg := ChatMessage{
		MessageID:             "modelMsg_" + uuid.NewString(),
		Role:                  llm.RoleModel,
		Parts:                 []Part{{Text: result.ConciseChatMessage}},
		DetailedAnalysisBlock: blockRaw,
	}
	modelMsg, err = s.Repo.AppendMessage(ctx, analysisID, topicID, modelMsg)
	if err != nil {
		metrics.IncChatTurnFailed()
		return ChatMessage{}, nil, fmt.Errorf("store model message: %w", err)
	}

	if err := s.Repo.Touch(ctx, analysisID, topicID); err != nil {
		telemetry.Warn("could not touch topic after chat turn", map[string]any{
			"analysis_id": analysisID, "topic_id": topicID, "error": err.Error(),
		})
	}
	if err := s.Analyses.Touch(ctx, analysisID); err != nil {
		telemetry.Warn("could not touch analysis after chat turn", map[string]any{
			"analysis_id": analysisID, "topic_id": topicID, "error": err.Error(),
		})
	}

	metrics.IncChatTurn()
	return modelMsg, blockRaw, nil
}

// History returns the ordered chat history for a topic.
func (s *Service) History(ctx context.Context, analysisID, topicID string) ([]ChatMessage, error) {
	if _, err := s.Repo.GetTopic(ctx, analysisID, topicID); err != nil {
		return nil, err
	}
	return s.Repo.ListMessages(ctx, analysisID, topicID)
}

func (s *Service) recordFailure(ctx context.Context, analysisID, topicID string, status TopicStatus, cause error) {
	recErr := analyses.RecordError{Kind: string(llm.KindOf(cause)), Message: cause.Error()}
	if !llm.IsAIError(cause) {
		recErr.Kind = "server_error"
	}
	if err := s.Repo.SetFailed(ctx, analysisID, topicID, status, recErr); err != nil {
		telemetry.Warn("could not record topic failure", map[string]any{
			"analysis_id": analysisID, "topic_id": topicID, "status": string(status), "error": err.Error(),
		})
	}
}

// topicLocks serializes work per topic so concurrent chat turns cannot
// interleave their read-append-append sequences.
type topicLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *topicLocks) lock(analysisID, topicID string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = map[string]*sync.Mutex{}
	}
	key := analysisID + "/" + topicID
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
