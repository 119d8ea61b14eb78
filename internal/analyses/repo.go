package analyses

import "context"

// Repo persists analysis records. Implementations enforce the status
// state machine on every write.
type Repo interface {
	Create(ctx context.Context, rec AnalysisRecord) error
	GetByID(ctx context.Context, analysisID string) (AnalysisRecord, error)

	// UpdateSummary stores the Phase 2 outputs and moves the record to
	// summary_generated.
	UpdateSummary(ctx context.Context, analysisID string, upd SummaryUpdate) error

	// UpdateFinalized stores the nature description and moves the record
	// to ready_for_topic_analysis.
	UpdateFinalized(ctx context.Context, analysisID string, dataNatureDescription string) error

	// SetFailed moves the record to an error status and records the cause.
	SetFailed(ctx context.Context, analysisID string, status Status, recErr RecordError) error

	// Touch bumps lastUpdatedAt without changing anything else.
	Touch(ctx context.Context, analysisID string) error
}
