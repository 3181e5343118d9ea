// Package events is the transactional outbox consumed by the accounting
// sync. Rows are written in the same transaction as the document they
// describe, so a consumer never sees an event for a document that was rolled
// back.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const TopicDocumentCreated = "document.created"

type Record struct {
	ID           int64           `json:"id"`
	DocumentID   string          `json:"documentId"`
	Topic        string          `json:"topic"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	OccurredAt   time.Time       `json:"occurredAt"`
	DispatchedAt *time.Time      `json:"dispatchedAt,omitempty"`
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func InsertInTx(ctx context.Context, tx pgx.Tx, documentID, topic string, occurredAt time.Time, payload any) error {
	var s *string
	if payload != nil {
		b, _ := json.Marshal(payload)
		str := string(b)
		s = &str
	}
	const q = `
INSERT INTO document_events (document_id, topic, occurred_at, payload)
VALUES ($1, $2, $3, CAST($4 AS jsonb))
`
	_, err := tx.Exec(ctx, q, documentID, topic, occurredAt, s)
	return err
}

func (r *Repository) ListPending(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT id, document_id, topic, payload, occurred_at, dispatched_at
FROM document_events
WHERE dispatched_at IS NULL
ORDER BY id ASC
LIMIT $1
`
	rows, err := r.db.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.DocumentID, &rec.Topic, &rec.Payload, &rec.OccurredAt, &rec.DispatchedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repository) MarkDispatched(ctx context.Context, id int64, at time.Time) error {
	const q = `
UPDATE document_events
SET dispatched_at = $2
WHERE id = $1 AND dispatched_at IS NULL
`
	_, err := r.db.Exec(ctx, q, id, at)
	return err
}
