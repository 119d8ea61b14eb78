package analyses

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"datachat-backend/internal/csvdata"
	"datachat-backend/internal/llm"
	"datachat-backend/internal/shared/metrics"
	"datachat-backend/internal/shared/storage/object"
	"datachat-backend/internal/shared/telemetry"
	"datachat-backend/internal/shared/util"
)

const (
	// smallDatasetRawData is stored inline only when the cleaned dataset
	// stays under both limits.
	maxSmallDatasetCells = 250
	maxSmallDatasetBytes = 250 << 10
)

// Service implements the three CSV processing phases.
type Service struct {
	Repo  Repo
	Store object.Store
	LLM   llm.Client
	Model string
}

// InitiateUpload is Phase 1: validate the upload, persist the raw CSV and
// create the analysis record. The CSV content is returned so the client can
// round-trip it to Phase 2 without a storage read.
func (s *Service) InitiateUpload(ctx context.Context, analysisName, originalFileName string, file io.Reader) (AnalysisRecord, string, error) {
	analysisName = strings.TrimSpace(analysisName)
	if analysisName == "" {
		return AnalysisRecord{}, "", fmt.Errorf("%w: analysis name is required and cannot be empty", ErrInvalidInput)
	}
	if file == nil {
		return AnalysisRecord{}, "", fmt.Errorf("%w: no CSV file uploaded", ErrInvalidInput)
	}
	raw, err := io.ReadAll(file)
	if err != nil {
		return AnalysisRecord{}, "", fmt.Errorf("read uploaded file: %w", err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return AnalysisRecord{}, "", fmt.Errorf("%w: uploaded CSV file is empty", ErrInvalidInput)
	}
	if originalFileName == "" {
		originalFileName = "uploaded_file.csv"
	}
	safeName, err := util.SanitizeFileName(originalFileName)
	if err != nil {
		return AnalysisRecord{}, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	analysisID := uuid.NewString()
	rawPath := fmt.Sprintf("raw_csvs/%s/%s", analysisID, safeName)
	if _, err := s.Store.Save(ctx, rawPath, "text/csv", strings.NewReader(string(raw))); err != nil {
		return AnalysisRecord{}, "", fmt.Errorf("store raw CSV: %w", err)
	}

	rec := AnalysisRecord{
		AnalysisID:        analysisID,
		AnalysisName:      analysisName,
		OriginalFileName:  originalFileName,
		RawCSVStoragePath: rawPath,
		Status:            StatusUploadCompleted,
	}
	if err := s.Repo.Create(ctx, rec); err != nil {
		return AnalysisRecord{}, "", fmt.Errorf("create analysis record: %w", err)
	}

	metrics.IncUpload()
	telemetry.Info("analysis upload initiated", map[string]any{
		"analysis_id":   analysisID,
		"analysis_name": analysisName,
		"file_name":     originalFileName,
		"bytes":         len(raw),
	})
	return rec, string(raw), nil
}

// GenerateSummary is Phase 2: normalize the CSV, ask the AI for a structured
// summary, persist the cleaned CSV and advance the record. csvContent may be
// empty, in which case the raw CSV is re-read from storage.
func (s *Service) GenerateSummary(ctx context.Context, analysisID, csvContent string) (AnalysisRecord, error) {
	rec, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		return AnalysisRecord{}, err
	}

	if csvContent == "" {
		if rec.RawCSVStoragePath == "" {
			s.recordFailure(ctx, analysisID, StatusErrorMissingRawPath,
				RecordError{Kind: "missing_raw_path", Message: "Raw CSV storage path missing."})
			return AnalysisRecord{}, ErrMissingRawPath
		}
		csvContent, err = s.readRawCSV(ctx, rec.RawCSVStoragePath)
		if err != nil {
			s.recordFailure(ctx, analysisID, StatusErrorGeneratingSummaryServer,
				RecordError{Kind: "storage_read_failed", Message: err.Error()})
			metrics.IncSummaryFailed()
			return AnalysisRecord{}, fmt.Errorf("read raw CSV: %w", err)
		}
	}

	table := csvdata.Normalize(csvContent)
	if table.Empty() {
		s.recordFailure(ctx, analysisID, StatusErrorProcessingNoData,
			RecordError{Kind: "no_usable_data", Message: "CSV processing resulted in no usable data."})
		metrics.IncSummaryFailed()
		return AnalysisRecord{}, ErrNoUsableData
	}

	cleanedPath := fmt.Sprintf("cleaned_csvs/%s/cleaned_data.csv", analysisID)
	if _, err := s.Store.Save(ctx, cleanedPath, "text/csv", strings.NewReader(csvdata.Unparse(table))); err != nil {
		s.recordFailure(ctx, analysisID, StatusErrorGeneratingSummaryServer,
			RecordError{Kind: "storage_write_failed", Message: err.Error()})
		metrics.IncSummaryFailed()
		return AnalysisRecord{}, fmt.Errorf("store cleaned CSV: %w", err)
	}

	resp, err := s.LLM.Generate(ctx, llm.Request{
		Model:      s.Model,
		Prompt:     llm.TextPrompt{Text: buildSummaryPrompt(table)},
		ExpectJSON: true,
	})
	if err != nil {
		s.recordFailure(ctx, analysisID, StatusErrorGeneratingSummaryAI,
			RecordError{Kind: string(llm.KindOf(err)), Message: err.Error()})
		metrics.IncSummaryFailed()
		return AnalysisRecord{}, err
	}
	if _, err := ParseDataSummary(resp.JSON); err != nil {
		s.recordFailure(ctx, analysisID, StatusErrorGeneratingSummaryAI,
			RecordError{Kind: string(llm.KindOf(err)), Message: err.Error()})
		metrics.IncSummaryFailed()
		return AnalysisRecord{}, err
	}

	upd := SummaryUpdate{
		CleanedCSVStoragePath: cleanedPath,
		DataSummary:           resp.JSON,
		RowCount:              table.RowCount,
		ColumnCount:           table.ColumnCount,
		SmallDatasetRawData:   smallDatasetRawData(table),
	}
	if err := s.Repo.UpdateSummary(ctx, analysisID, upd); err != nil {
		s.recordFailure(ctx, analysisID, StatusErrorGeneratingSummaryServer,
			RecordError{Kind: "persist_failed", Message: err.Error()})
		metrics.IncSummaryFailed()
		return AnalysisRecord{}, fmt.Errorf("persist summary: %w", err)
	}

	metrics.IncSummaryGenerated()
	telemetry.Info("data summary generated", map[string]any{
		"analysis_id":      analysisID,
		"statusTransition": fmt.Sprintf("%s->%s", rec.Status, StatusSummaryGenerated),
		"row_count":        table.RowCount,
		"column_count":     table.ColumnCount,
		"small_dataset":    upd.SmallDatasetRawData != nil,
	})
	return s.Repo.GetByID(ctx, analysisID)
}

// DescribeAndFinalize is Phase 3: generate the plain-text nature description
// and mark the record ready for topic analysis. dataSummary may be empty, in
// which case the stored summary is used.
func (s *Service) DescribeAndFinalize(ctx context.Context, analysisID string, dataSummary json.RawMessage) (AnalysisRecord, error) {
	rec, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		return AnalysisRecord{}, err
	}
	if len(dataSummary) == 0 {
		dataSummary = rec.DataSummary
	}
	if len(dataSummary) == 0 {
		return AnalysisRecord{}, fmt.Errorf("%w: dataSummaryForPrompts is required", ErrInvalidInput)
	}

	resp, err := s.LLM.Generate(ctx, llm.Request{
		Model:  s.Model,
		Prompt: llm.TextPrompt{Text: buildNatureDescriptionPrompt(dataSummary)},
	})
	if err != nil {
		s.recordFailure(ctx, analysisID, StatusErrorGeneratingDescAI,
			RecordError{Kind: string(llm.KindOf(err)), Message: err.Error()})
		return AnalysisRecord{}, err
	}
	description := strings.TrimSpace(resp.Text)
	if description == "" {
		err := llm.NewCallFailed("AI returned an empty data nature description", nil)
		s.recordFailure(ctx, analysisID, StatusErrorGeneratingDescAI,
			RecordError{Kind: string(llm.KindOf(err)), Message: err.Error()})
		return AnalysisRecord{}, err
	}

	if err := s.Repo.UpdateFinalized(ctx, analysisID, description); err != nil {
		s.recordFailure(ctx, analysisID, StatusErrorFinalizingServer,
			RecordError{Kind: "persist_failed", Message: err.Error()})
		return AnalysisRecord{}, fmt.Errorf("finalize analysis: %w", err)
	}

	metrics.IncAnalysisFinalized()
	telemetry.Info("analysis finalized", map[string]any{
		"analysis_id":      analysisID,
		"statusTransition": fmt.Sprintf("%s->%s", rec.Status, StatusReadyForTopicAnalysis),
	})
	return s.Repo.GetByID(ctx, analysisID)
}

// Get returns a single analysis record.
func (s *Service) Get(ctx context.Context, analysisID string) (AnalysisRecord, error) {
	return s.Repo.GetByID(ctx, analysisID)
}

func (s *Service) readRawCSV(ctx context.Context, storagePath string) (string, error) {
	rc, err := s.Store.Open(ctx, storagePath)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// recordFailure moves the record into an error status. A transition the
// state machine refuses is logged and otherwise ignored so a failed re-run
// never drags a completed record backwards.
func (s *Service) recordFailure(ctx context.Context, analysisID string, status Status, recErr RecordError) {
	if err := s.Repo.SetFailed(ctx, analysisID, status, recErr); err != nil {
		telemetry.Warn("could not record analysis failure", map[string]any{
			"analysis_id": analysisID,
			"status":      string(status),
			"error":       err.Error(),
		})
	}
}

func smallDatasetRawData(t csvdata.Table) []map[string]any {
	if t.RowCount*t.ColumnCount > maxSmallDatasetCells {
		return nil
	}
	serialized, err := json.Marshal(t.Rows)
	if err != nil || len(serialized) > maxSmallDatasetBytes {
		return nil
	}
	return t.Rows
}
