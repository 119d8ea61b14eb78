package analyses

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo used in dev mode and tests.
type MemoryRepo struct {
	mu      sync.RWMutex
	records map[string]AnalysisRecord
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: map[string]AnalysisRecord{}}
}

func (r *MemoryRepo) Create(ctx context.Context, rec AnalysisRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.LastUpdatedAt = now
	r.records[rec.AnalysisID] = rec
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, analysisID string) (AnalysisRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[analysisID]
	if !ok {
		return AnalysisRecord{}, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryRepo) UpdateSummary(ctx context.Context, analysisID string, upd SummaryUpdate) error {
	return r.mutate(analysisID, StatusSummaryGenerated, func(rec *AnalysisRecord) {
		rec.CleanedCSVStoragePath = upd.CleanedCSVStoragePath
		rec.DataSummary = upd.DataSummary
		rec.RowCount = upd.RowCount
		rec.ColumnCount = upd.ColumnCount
		rec.SmallDatasetRawData = upd.SmallDatasetRawData
		rec.LastError = nil
	})
}

func (r *MemoryRepo) UpdateFinalized(ctx context.Context, analysisID string, dataNatureDescription string) error {
	return r.mutate(analysisID, StatusReadyForTopicAnalysis, func(rec *AnalysisRecord) {
		rec.DataNatureDescription = dataNatureDescription
		rec.LastError = nil
	})
}

func (r *MemoryRepo) SetFailed(ctx context.Context, analysisID string, status Status, recErr RecordError) error {
	return r.mutate(analysisID, status, func(rec *AnalysisRecord) {
		rec.LastError = &recErr
	})
}

func (r *MemoryRepo) Touch(ctx context.Context, analysisID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[analysisID]
	if !ok {
		return ErrNotFound
	}
	rec.LastUpdatedAt = time.Now().UTC()
	r.records[analysisID] = rec
	return nil
}

func (r *MemoryRepo) mutate(analysisID string, next Status, apply func(*AnalysisRecord)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[analysisID]
	if !ok {
		return ErrNotFound
	}
	if !CanTransition(rec.Status, next) {
		return &TransitionError{From: rec.Status, To: next}
	}
	apply(&rec)
	rec.Status = next
	rec.LastUpdatedAt = time.Now().UTC()
	r.records[analysisID] = rec
	return nil
}
