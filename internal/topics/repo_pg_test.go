package topics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"datachat-backend/internal/analyses"
)

func TestPGRepoStartAnalyzingUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("INSERT INTO topics").
		WithArgs("analysis-1", "topic-1", "Revenue by quarter", "analyzing").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.StartAnalyzing(context.Background(), "analysis-1", "topic-1", "Revenue by quarter"); err != nil {
		t.Fatalf("StartAnalyzing: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetTopicParsesJSONB(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"analysis_id", "topic_id", "topic_display_name", "status",
		"initial_analysis_result", "initial_prompt_sent", "last_error",
		"created_at", "last_updated_at",
	}).AddRow(
		"analysis-1", "topic-1", "Revenue by quarter", "completed",
		`{"initialFindings": "x"}`, "the prompt", nil,
		now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM topics").WithArgs("analysis-1", "topic-1").WillReturnRows(rows)

	repo := &PGRepo{DB: db}
	topic, err := repo.GetTopic(context.Background(), "analysis-1", "topic-1")
	if err != nil {
		t.Fatalf("GetTopic: %v", err)
	}
	if topic.Status != StatusCompleted {
		t.Fatalf("status = %s", topic.Status)
	}
	if string(topic.InitialAnalysisResult) != `{"initialFindings": "x"}` {
		t.Fatalf("initial result = %s", topic.InitialAnalysisResult)
	}
	if topic.InitialPromptSent != "the prompt" {
		t.Fatalf("prompt = %q", topic.InitialPromptSent)
	}
}

func TestPGRepoGetTopicNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("SELECT (.+) FROM topics").
		WithArgs("analysis-1", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"analysis_id"}))

	repo := &PGRepo{DB: db}
	if _, err := repo.GetTopic(context.Background(), "analysis-1", "missing"); !errors.Is(err, ErrTopicNotFound) {
		t.Fatalf("expected ErrTopicNotFound, got %v", err)
	}
}

func TestPGRepoAppendMessageAssignsSeq(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO chat_messages").
		WithArgs("analysis-1", "topic-1", "userMsg_1", "user", `[{"text":"hello"}]`, nil).
		WillReturnRows(sqlmock.NewRows([]string{"seq", "ts"}).AddRow(int64(7), now))

	repo := &PGRepo{DB: db}
	msg, err := repo.AppendMessage(context.Background(), "analysis-1", "topic-1", ChatMessage{
		MessageID: "userMsg_1",
		Role:      "user",
		Parts:     []Part{{Text: "hello"}},
	})
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if msg.Seq != 7 {
		t.Fatalf("seq = %d", msg.Seq)
	}
	if !msg.Timestamp.Equal(now) {
		t.Fatalf("ts = %v", msg.Timestamp)
	}
}

func TestPGRepoListMessagesOrdersBySeq(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"seq", "message_id", "role", "parts", "detailed_analysis_block", "ts"}).
		AddRow(int64(1), "initialMsg_1", "model", `[{"text":"findings"}]`, `{"initialFindings":"findings"}`, now).
		AddRow(int64(2), "userMsg_1", "user", `[{"text":"question"}]`, nil, now)
	mock.ExpectQuery("SELECT (.+) FROM chat_messages").WithArgs("analysis-1", "topic-1").WillReturnRows(rows)

	repo := &PGRepo{DB: db}
	msgs, err := repo.ListMessages(context.Background(), "analysis-1", "topic-1")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Parts[0].Text != "findings" || msgs[1].Role != "user" {
		t.Fatalf("unexpected messages %#v", msgs)
	}
	if len(msgs[0].DetailedAnalysisBlock) == 0 {
		t.Fatalf("expected detailed block on the model message")
	}
	if len(msgs[1].DetailedAnalysisBlock) != 0 {
		t.Fatalf("user messages carry no detailed block")
	}
}

func TestPGRepoSetFailedMissingTopic(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("UPDATE topics").
		WithArgs("analysis-1", "missing", "error_initial_analysis", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := &PGRepo{DB: db}
	err = repo.SetFailed(context.Background(), "analysis-1", "missing", StatusErrorInitialAnalysis,
		analyses.RecordError{Kind: "ai_call_failed", Message: "boom"})
	if !errors.Is(err, ErrTopicNotFound) {
		t.Fatalf("expected ErrTopicNotFound, got %v", err)
	}
}
