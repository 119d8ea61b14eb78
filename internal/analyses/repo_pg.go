package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PGRepo implements Repo using Postgres. Status transitions are checked
// inside a transaction holding a row lock, so concurrent phase calls for
// the same analysis cannot race past the state machine.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new analysis record.
func (r *PGRepo) Create(ctx context.Context, rec AnalysisRecord) error {
	const query = `
INSERT INTO analyses (
	analysis_id, analysis_name, original_file_name, raw_csv_storage_path,
	cleaned_csv_storage_path, status, row_count, column_count,
	data_summary, data_nature_description, small_dataset_raw_data, last_error
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	smallData, err := marshalJSONB(rec.SmallDatasetRawData)
	if err != nil {
		return err
	}
	lastErr, err := marshalJSONB(rec.LastError)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		rec.AnalysisID,
		rec.AnalysisName,
		rec.OriginalFileName,
		rec.RawCSVStoragePath,
		nullString(rec.CleanedCSVStoragePath),
		string(rec.Status),
		rec.RowCount,
		rec.ColumnCount,
		rawJSONB(rec.DataSummary),
		nullString(rec.DataNatureDescription),
		smallData,
		lastErr,
	)
	return err
}

// GetByID returns an analysis record by ID.
func (r *PGRepo) GetByID(ctx context.Context, analysisID string) (AnalysisRecord, error) {
	const query = `
SELECT analysis_id, analysis_name, original_file_name, raw_csv_storage_path,
       cleaned_csv_storage_path, status, row_count, column_count,
       data_summary, data_nature_description, small_dataset_raw_data, last_error,
       created_at, last_updated_at
FROM analyses
WHERE analysis_id = $1
LIMIT 1`
	return scanRecord(r.DB.QueryRowContext(ctx, query, analysisID))
}

// UpdateSummary stores the Phase 2 outputs and moves the record to
// summary_generated.
func (r *PGRepo) UpdateSummary(ctx context.Context, analysisID string, upd SummaryUpdate) error {
	smallData, err := marshalJSONB(upd.SmallDatasetRawData)
	if err != nil {
		return err
	}
	const query = `
UPDATE analyses
SET status = $2,
    cleaned_csv_storage_path = $3,
    data_summary = $4::jsonb,
    row_count = $5,
    column_count = $6,
    small_dataset_raw_data = $7::jsonb,
    last_error = NULL,
    last_updated_at = now()
WHERE analysis_id = $1`
	return r.guarded(ctx, analysisID, StatusSummaryGenerated, query,
		analysisID, string(StatusSummaryGenerated), nullString(upd.CleanedCSVStoragePath),
		rawJSONB(upd.DataSummary), upd.RowCount, upd.ColumnCount, smallData)
}

// UpdateFinalized stores the nature description and moves the record to
// ready_for_topic_analysis.
func (r *PGRepo) UpdateFinalized(ctx context.Context, analysisID string, dataNatureDescription string) error {
	const query = `
UPDATE analyses
SET status = $2,
    data_nature_description = $3,
    last_error = NULL,
    last_updated_at = now()
WHERE analysis_id = $1`
	return r.guarded(ctx, analysisID, StatusReadyForTopicAnalysis, query,
		analysisID, string(StatusReadyForTopicAnalysis), dataNatureDescription)
}

// SetFailed moves the record to an error status and records the cause.
func (r *PGRepo) SetFailed(ctx context.Context, analysisID string, status Status, recErr RecordError) error {
	lastErr, err := marshalJSONB(&recErr)
	if err != nil {
		return err
	}
	const query = `
UPDATE analyses
SET status = $2,
    last_error = $3::jsonb,
    last_updated_at = now()
WHERE analysis_id = $1`
	return r.guarded(ctx, analysisID, status, query, analysisID, string(status), lastErr)
}

// Touch bumps lastUpdatedAt.
func (r *PGRepo) Touch(ctx context.Context, analysisID string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE analyses SET last_updated_at = now() WHERE analysis_id = $1`, analysisID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// guarded runs an UPDATE inside a transaction after checking the current
// status allows moving to next.
func (r *PGRepo) guarded(ctx context.Context, analysisID string, next Status, query string, args ...any) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM analyses WHERE analysis_id = $1 FOR UPDATE`, analysisID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if !CanTransition(Status(current), next) {
		return &TransitionError{From: Status(current), To: next}
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	return tx.Commit()
}

func scanRecord(row *sql.Row) (AnalysisRecord, error) {
	var rec AnalysisRecord
	var status string
	var cleanedPath sql.NullString
	var dataSummary sql.NullString
	var natureDesc sql.NullString
	var smallData sql.NullString
	var lastErr sql.NullString
	err := row.Scan(
		&rec.AnalysisID,
		&rec.AnalysisName,
		&rec.OriginalFileName,
		&rec.RawCSVStoragePath,
		&cleanedPath,
		&status,
		&rec.RowCount,
		&rec.ColumnCount,
		&dataSummary,
		&natureDesc,
		&smallData,
		&lastErr,
		&rec.CreatedAt,
		&rec.LastUpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AnalysisRecord{}, ErrNotFound
		}
		return AnalysisRecord{}, err
	}
	rec.Status = Status(status)
	if cleanedPath.Valid {
		rec.CleanedCSVStoragePath = cleanedPath.String
	}
	if dataSummary.Valid {
		rec.DataSummary = json.RawMessage(dataSummary.String)
	}
	if natureDesc.Valid {
		rec.DataNatureDescription = natureDesc.String
	}
	if smallData.Valid {
		if err := json.Unmarshal([]byte(smallData.String), &rec.SmallDatasetRawData); err != nil {
			rec.SmallDatasetRawData = nil
		}
	}
	if lastErr.Valid {
		var re RecordError
		if err := json.Unmarshal([]byte(lastErr.String), &re); err == nil {
			rec.LastError = &re
		}
	}
	return rec, nil
}

// marshalJSONB returns nil for nil-ish values so the column stays NULL.
func marshalJSONB(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *RecordError:
		if t == nil {
			return nil, nil
		}
	case []map[string]any:
		if t == nil {
			return nil, nil
		}
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(payload), nil
}

func rawJSONB(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
