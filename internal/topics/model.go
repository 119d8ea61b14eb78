package topics

import (
	"encoding/json"
	"errors"
	"time"

	"datachat-backend/internal/analyses"
)

// ErrTopicNotFound is returned when no topic exists for the given IDs.
var ErrTopicNotFound = errors.New("topic not found")

// ErrInvalidInput marks caller mistakes (missing IDs, empty message).
var ErrInvalidInput = errors.New("invalid input")

// ErrMissingContext means the parent analysis has not reached
// ready_for_topic_analysis: summary or nature description is absent.
var ErrMissingContext = errors.New("analysis is missing dataSummaryForPrompts or dataNatureDescription")

// TopicStatus is the lifecycle state of one topic analysis.
type TopicStatus string

const (
	StatusAnalyzing            TopicStatus = "analyzing"
	StatusCompleted            TopicStatus = "completed"
	StatusErrorInitialAnalysis TopicStatus = "error_initial_analysis"
	StatusErrorServer          TopicStatus = "error_server"
)

// TopicRecord is one analysis topic with its AI result and audit trail.
type TopicRecord struct {
	AnalysisID            string                `json:"analysisId"`
	TopicID               string                `json:"topicId"`
	TopicDisplayName      string                `json:"topicDisplayName"`
	Status                TopicStatus           `json:"status"`
	InitialAnalysisResult json.RawMessage       `json:"initialAnalysisResult,omitempty"`
	InitialPromptSent     string                `json:"initialPromptSent,omitempty"`
	LastError             *analyses.RecordError `json:"lastError,omitempty"`
	CreatedAt             time.Time             `json:"createdAt"`
	LastUpdatedAt         time.Time             `json:"lastUpdatedAt"`
}

// Part is one piece of chat message content.
type Part struct {
	Text string `json:"text"`
}

// ChatMessage is one turn in a topic conversation. Seq is assigned by the
// repository and orders the history.
type ChatMessage struct {
	Seq                   int64           `json:"-"`
	MessageID             string          `json:"messageId"`
	Role                  string          `json:"role"`
	Parts                 []Part          `json:"parts"`
	DetailedAnalysisBlock json.RawMessage `json:"detailedAnalysisBlock,omitempty"`
	Timestamp             time.Time       `json:"timestamp"`
}
