package topics

import (
	"context"
	"encoding/json"

	"datachat-backend/internal/analyses"
)

// Repo persists topics and their chat history.
type Repo interface {
	GetTopic(ctx context.Context, analysisID, topicID string) (TopicRecord, error)

	// StartAnalyzing creates the topic or resets an existing one to
	// analyzing, preserving createdAt.
	StartAnalyzing(ctx context.Context, analysisID, topicID, topicDisplayName string) error

	// SetInitialPrompt records the exact prompt sent to the AI.
	SetInitialPrompt(ctx context.Context, analysisID, topicID, prompt string) error

	// CompleteInitialAnalysis stores the validated AI result and marks the
	// topic completed.
	CompleteInitialAnalysis(ctx context.Context, analysisID, topicID string, result json.RawMessage) error

	// SetFailed moves the topic to an error status and records the cause.
	SetFailed(ctx context.Context, analysisID, topicID string, status TopicStatus, recErr analyses.RecordError) error

	// Touch bumps lastUpdatedAt.
	Touch(ctx context.Context, analysisID, topicID string) error

	// AppendMessage assigns ordering and stores one chat turn.
	AppendMessage(ctx context.Context, analysisID, topicID string, msg ChatMessage) (ChatMessage, error)

	// ListMessages returns the full history in insertion order.
	ListMessages(ctx context.Context, analysisID, topicID string) ([]ChatMessage, error)
}
