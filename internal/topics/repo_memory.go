package topics

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"datachat-backend/internal/analyses"
)

// MemoryRepo is an in-memory Repo used in dev mode and tests.
type MemoryRepo struct {
	mu       sync.RWMutex
	topics   map[string]TopicRecord
	messages map[string][]ChatMessage
	seq      int64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		topics:   map[string]TopicRecord{},
		messages: map[string][]ChatMessage{},
	}
}

func topicKey(analysisID, topicID string) string {
	return analysisID + "/" + topicID
}

func (r *MemoryRepo) GetTopic(ctx context.Context, analysisID, topicID string) (TopicRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.topics[topicKey(analysisID, topicID)]
	if !ok {
		return TopicRecord{}, ErrTopicNotFound
	}
	return rec, nil
}

func (r *MemoryRepo) StartAnalyzing(ctx context.Context, analysisID, topicID, topicDisplayName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := topicKey(analysisID, topicID)
	now := time.Now().UTC()
	rec, ok := r.topics[key]
	if !ok {
		rec = TopicRecord{AnalysisID: analysisID, TopicID: topicID, CreatedAt: now}
	}
	rec.TopicDisplayName = topicDisplayName
	rec.Status = StatusAnalyzing
	rec.LastError = nil
	rec.LastUpdatedAt = now
	r.topics[key] = rec
	return nil
}

func (r *MemoryRepo) SetInitialPrompt(ctx context.Context, analysisID, topicID, prompt string) error {
	return r.mutate(analysisID, topicID, func(rec *TopicRecord) {
		rec.InitialPromptSent = prompt
	})
}

func (r *MemoryRepo) CompleteInitialAnalysis(ctx context.Context, analysisID, topicID string, result json.RawMessage) error {
	return r.mutate(analysisID, topicID, func(rec *TopicRecord) {
		rec.InitialAnalysisResult = result
		rec.Status = StatusCompleted
		rec.LastError = nil
	})
}

func (r *MemoryRepo) SetFailed(ctx context.Context, analysisID, topicID string, status TopicStatus, recErr analyses.RecordError) error {
	return r.mutate(analysisID, topicID, func(rec *TopicRecord) {
		rec.Status = status
		rec.LastError = &recErr
	})
}

func (r *MemoryRepo) Touch(ctx context.Context, analysisID, topicID string) error {
	return r.mutate(analysisID, topicID, func(rec *TopicRecord) {})
}

func (r *MemoryRepo) AppendMessage(ctx context.Context, analysisID, topicID string, msg ChatMessage) (ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := topicKey(analysisID, topicID)
	if _, ok := r.topics[key]; !ok {
		return ChatMessage{}, ErrTopicNotFound
	}
	r.seq++
	msg.Seq = r.seq
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	r.messages[key] = append(r.messages[key], msg)
	return msg, nil
}

func (r *MemoryRepo) ListMessages(ctx context.Context, analysisID, topicID string) ([]ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src := r.messages[topicKey(analysisID, topicID)]
	out := make([]ChatMessage, len(src))
	copy(out, src)
	return out, nil
}

func (r *MemoryRepo) mutate(analysisID, topicID string, apply func(*TopicRecord)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := topicKey(analysisID, topicID)
	rec, ok := r.topics[key]
	if !ok {
		return ErrTopicNotFound
	}
	apply(&rec)
	rec.LastUpdatedAt = time.Now().UTC()
	r.topics[key] = rec
	return nil
}
