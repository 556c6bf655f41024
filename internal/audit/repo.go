package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Record struct {
	EventID    string
	EventType  string
	OrderID    string
	Producer   string
	OccurredAt time.Time
	Payload    json.RawMessage
}

type Repo struct{ DB DBTX }

// Insert appends one event to the trail. Replays are absorbed by the primary
// key, so recording is idempotent even when the redis dedup misses.
func (r *Repo) Insert(ctx context.Context, rec Record) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO order_events (event_id, event_type, order_id, producer, occurred_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING`,
		rec.EventID, rec.EventType, rec.OrderID, rec.Producer, rec.OccurredAt, rec.Payload)
	return err
}
