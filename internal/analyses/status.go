package analyses

import "fmt"

// Status is the lifecycle state of an analysis. The machine only moves
// forward; error states absorb.
type Status string

const (
	StatusUploadCompleted       Status = "upload_completed"
	StatusSummaryGenerated      Status = "summary_generated"
	StatusReadyForTopicAnalysis Status = "ready_for_topic_analysis"

	StatusErrorMissingRawPath          Status = "error_missing_raw_path"
	StatusErrorProcessingNoData        Status = "error_processing_no_data"
	StatusErrorGeneratingSummaryAI     Status = "error_generating_summary_ai"
	StatusErrorGeneratingSummaryServer Status = "error_generating_summary_server"
	StatusErrorGeneratingDescAI        Status = "error_generating_description_ai"
	StatusErrorFinalizingServer        Status = "error_finalizing_server"
)

// IsError reports whether s is one of the terminal error states.
func (s Status) IsError() bool {
	switch s {
	case StatusErrorMissingRawPath, StatusErrorProcessingNoData,
		StatusErrorGeneratingSummaryAI, StatusErrorGeneratingSummaryServer,
		StatusErrorGeneratingDescAI, StatusErrorFinalizingServer:
		return true
	}
	return false
}

var transitions = map[Status][]Status{
	StatusUploadCompleted: {
		StatusSummaryGenerated,
		StatusErrorMissingRawPath,
		StatusErrorProcessingNoData,
		StatusErrorGeneratingSummaryAI,
		StatusErrorGeneratingSummaryServer,
	},
	StatusSummaryGenerated: {
		StatusReadyForTopicAnalysis,
		StatusErrorGeneratingDescAI,
		StatusErrorFinalizingServer,
	},
	StatusReadyForTopicAnalysis: {},
}

// CanTransition reports whether from -> to is a legal move. Re-entering
// the same state is always allowed so repeated phase calls stay idempotent.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionError is returned by repositories when an update would move a
// record along an edge the state machine does not have.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}
