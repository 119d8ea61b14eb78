package analyses

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	rec := AnalysisRecord{
		AnalysisID:        "analysis-1",
		AnalysisName:      "Sales",
		OriginalFileName:  "sales.csv",
		RawCSVStoragePath: "raw_csvs/analysis-1/sales.csv",
		Status:            StatusUploadCompleted,
	}

	mock.ExpectExec("INSERT INTO analyses").
		WithArgs(
			rec.AnalysisID,
			rec.AnalysisName,
			rec.OriginalFileName,
			rec.RawCSVStoragePath,
			nil, // cleaned_csv_storage_path
			string(StatusUploadCompleted),
			0,
			0,
			nil, // data_summary
			nil, // data_nature_description
			nil, // small_dataset_raw_data
			nil, // last_error
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDParsesJSONB(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"analysis_id", "analysis_name", "original_file_name", "raw_csv_storage_path",
		"cleaned_csv_storage_path", "status", "row_count", "column_count",
		"data_summary", "data_nature_description", "small_dataset_raw_data", "last_error",
		"created_at", "last_updated_at",
	}).AddRow(
		"analysis-1", "Sales", "sales.csv", "raw_csvs/analysis-1/sales.csv",
		"cleaned_csvs/analysis-1/cleaned_data.csv", "summary_generated", 2, 2,
		`{"columns": []}`, nil, `[{"A": 1}]`, `{"kind": "ai_call_failed", "message": "boom"}`,
		now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM analyses").WithArgs("analysis-1").WillReturnRows(rows)

	rec, err := repo.GetByID(context.Background(), "analysis-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if rec.Status != StatusSummaryGenerated {
		t.Fatalf("status = %s", rec.Status)
	}
	if string(rec.DataSummary) != `{"columns": []}` {
		t.Fatalf("data summary = %s", rec.DataSummary)
	}
	if len(rec.SmallDatasetRawData) != 1 || rec.SmallDatasetRawData[0]["A"] != float64(1) {
		t.Fatalf("small dataset = %#v", rec.SmallDatasetRawData)
	}
	if rec.LastError == nil || rec.LastError.Kind != "ai_call_failed" {
		t.Fatalf("last error = %#v", rec.LastError)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("SELECT (.+) FROM analyses").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"analysis_id"}))

	repo := &PGRepo{DB: db}
	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoUpdateSummaryGuardsTransition(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	upd := SummaryUpdate{
		CleanedCSVStoragePath: "cleaned_csvs/analysis-1/cleaned_data.csv",
		DataSummary:           []byte(`{"columns": []}`),
		RowCount:              2,
		ColumnCount:           2,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM analyses").
		WithArgs("analysis-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("upload_completed"))
	mock.ExpectExec("UPDATE analyses").
		WithArgs("analysis-1", string(StatusSummaryGenerated), upd.CleanedCSVStoragePath,
			`{"columns": []}`, 2, 2, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.UpdateSummary(context.Background(), "analysis-1", upd); err != nil {
		t.Fatalf("UpdateSummary: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateSummaryRejectsBackwardMove(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM analyses").
		WithArgs("analysis-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("error_processing_no_data"))
	mock.ExpectRollback()

	err = repo.UpdateSummary(context.Background(), "analysis-1", SummaryUpdate{})
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if te.From != StatusErrorProcessingNoData || te.To != StatusSummaryGenerated {
		t.Fatalf("unexpected transition error %v", te)
	}
}

func TestPGRepoSetFailed(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM analyses").
		WithArgs("analysis-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("upload_completed"))
	mock.ExpectExec("UPDATE analyses").
		WithArgs("analysis-1", string(StatusErrorProcessingNoData),
			`{"kind":"no_usable_data","message":"CSV processing resulted in no usable data."}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = repo.SetFailed(context.Background(), "analysis-1", StatusErrorProcessingNoData,
		RecordError{Kind: "no_usable_data", Message: "CSV processing resulted in no usable data."})
	if err != nil {
		t.Fatalf("SetFailed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
