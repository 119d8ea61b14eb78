package topics

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"datachat-backend/internal/analyses"
)

// PGRepo implements Repo using Postgres. Chat ordering comes from the
// chat_messages sequence, so readers never depend on clock resolution.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) GetTopic(ctx context.Context, analysisID, topicID string) (TopicRecord, error) {
	const query = `
SELECT analysis_id, topic_id, topic_display_name, status,
       initial_analysis_result, initial_prompt_sent, last_error,
       created_at, last_updated_at
FROM topics
WHERE analysis_id = $1 AND topic_id = $2
LIMIT 1`
	var rec TopicRecord
	var status string
	var result sql.NullString
	var prompt sql.NullString
	var lastErr sql.NullString
	err := r.DB.QueryRowContext(ctx, query, analysisID, topicID).Scan(
		&rec.AnalysisID,
		&rec.TopicID,
		&rec.TopicDisplayName,
		&status,
		&result,
		&prompt,
		&lastErr,
		&rec.CreatedAt,
		&rec.LastUpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TopicRecord{}, ErrTopicNotFound
		}
		return TopicRecord{}, err
	}
	rec.Status = TopicStatus(status)
	if result.Valid {
		rec.InitialAnalysisResult = json.RawMessage(result.String)
	}
	if prompt.Valid {
		rec.InitialPromptSent = prompt.String
	}
	if lastErr.Valid {
		var re analyses.RecordError
		if err := json.Unmarshal([]byte(lastErr.String), &re); err == nil {
			rec.LastError = &re
		}
	}
	return rec, nil
}

func (r *PGRepo) StartAnalyzing(ctx context.Context, analysisID, topicID, topicDisplayName string) error {
	const query = `
INSERT INTO topics (analysis_id, topic_id, topic_display_name, status)
VALUES ($1, $2, $3, $4)
ON CONFLICT (analysis_id, topic_id) DO UPDATE
SET topic_display_name = EXCLUDED.topic_display_name,
    status = EXCLUDED.status,
    last_error = NULL,
    last_updated_at = now()`
	_, err := r.DB.ExecContext(ctx, query, analysisID, topicID, topicDisplayName, string(StatusAnalyzing))
	return err
}

func (r *PGRepo) SetInitialPrompt(ctx context.Context, analysisID, topicID, prompt string) error {
	const query = `
UPDATE topics SET initial_prompt_sent = $3, last_updated_at = now()
WHERE analysis_id = $1 AND topic_id = $2`
	return r.exec(ctx, query, analysisID, topicID, prompt)
}

func (r *PGRepo) CompleteInitialAnalysis(ctx context.Context, analysisID, topicID string, result json.RawMessage) error {
	const query = `
UPDATE topics
SET initial_analysis_result = $3::jsonb,
    status = $4,
    last_error = NULL,
    last_updated_at = now()
WHERE analysis_id = $1 AND topic_id = $2`
	return r.exec(ctx, query, analysisID, topicID, string(result), string(StatusCompleted))
}

func (r *PGRepo) SetFailed(ctx context.Context, analysisID, topicID string, status TopicStatus, recErr analyses.RecordError) error {
	payload, err := json.Marshal(recErr)
	if err != nil {
		return err
	}
	const query = `
UPDATE topics
SET status = $3, last_error = $4::jsonb, last_updated_at = now()
WHERE analysis_id = $1 AND topic_id = $2`
	return r.exec(ctx, query, analysisID, topicID, string(status), string(payload))
}

func (r *PGRepo) Touch(ctx context.Context, analysisID, topicID string) error {
	return r.exec(ctx, `UPDATE topics SET last_updated_at = now() WHERE analysis_id = $1 AND topic_id = $2`, analysisID, topicID)
}

func (r *PGRepo) AppendMessage(ctx context.Context, analysisID, topicID string, msg ChatMessage) (ChatMessage, error) {
	parts, err := json.Marshal(msg.Parts)
	if err != nil {
		return ChatMessage{}, err
	}
	var block any
	if len(msg.DetailedAnalysisBlock) > 0 {
		block = string(msg.DetailedAnalysisBlock)
	}
	const query = `
INSERT INTO chat_messages (analysis_id, topic_id, message_id, role, parts, detailed_analysis_block)
VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb)
RETURNING seq, ts`
	err = r.DB.QueryRowContext(ctx, query,
		analysisID, topicID, msg.MessageID, msg.Role, string(parts), block,
	).Scan(&msg.Seq, &msg.Timestamp)
	if err != nil {
		return ChatMessage{}, err
	}
	return msg, nil
}

func (r *PGRepo) ListMessages(ctx context.Context, analysisID, topicID string) ([]ChatMessage, error) {
	const query = `
SELECT seq, message_id, role, parts, detailed_analysis_block, ts
FROM chat_messages
WHERE analysis_id = $1 AND topic_id = $2
ORDER BY seq ASC`
	rows, err := r.DB.QueryContext(ctx, query, analysisID, topicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChatMessage
	for rows.Next() {
		var msg ChatMessage
		var parts string
		var block sql.NullString
		if err := rows.Scan(&msg.Seq, &msg.MessageID, &msg.Role, &parts, &block, &msg.Timestamp); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(parts), &msg.Parts); err != nil {
			return nil, err
		}
		if block.Valid {
			msg.DetailedAnalysisBlock = json.RawMessage(block.String)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (r *PGRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrTopicNotFound
	}
	return nil
}
