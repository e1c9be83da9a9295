package dispatch

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ocx/fhecoord/internal/domain"
)

const jobSchemaDDL = `
CREATE TABLE IF NOT EXISTS session_jobs (
	id UUID PRIMARY KEY,
	kind TEXT NOT NULL,
	session_id UUID NOT NULL,
	carrier JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL DEFAULT now()
)`

// PostgresDispatcher is the durable queue: a plain table polled with
// SELECT ... FOR UPDATE SKIP LOCKED, the idiomatic way to run a job queue
// directly on Postgres without a separate broker. A row's disappearance
// from the table is its completion; there is no separate "done" state.
type PostgresDispatcher struct {
	db           *sql.DB
	pollInterval time.Duration
}

func NewPostgresDispatcher(db *sql.DB) (*PostgresDispatcher, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, jobSchemaDDL); err != nil {
		return nil, fmt.Errorf("dispatch: ensure schema: %w", err)
	}
	return &PostgresDispatcher{db: db, pollInterval: 200 * time.Millisecond}, nil
}

func (d *PostgresDispatcher) Enqueue(ctx context.Context, kind JobKind, sessionID domain.SessionID, carrier TraceCarrier) error {
	carrierJSON, err := json.Marshal(carrier)
	if err != nil {
		return fmt.Errorf("dispatch: marshal carrier: %w", err)
	}
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO session_jobs (id, kind, session_id, carrier, created_at)
		VALUES ($1, $2, $3, $4, now())`,
		uuid.New(), string(kind), sessionID.String(), carrierJSON,
	)
	if err != nil {
		return fmt.Errorf("dispatch: enqueue: %w", err)
	}
	return nil
}

// Dequeue polls at pollInterval, claiming and deleting the oldest
// unclaimed row inside one transaction so a crash between claim and ack
// never loses at-least-once delivery: the row stays in the table (visible
// to SKIP LOCKED again) until the worker's transaction commits the delete.
func (d *PostgresDispatcher) Dequeue(ctx context.Context) (*Job, error) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()
	for {
		job, err := d.claimOne(ctx)
		if err != nil {
			return nil, err
		}
		if job != nil {
			return job, nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (d *PostgresDispatcher) claimOne(ctx context.Context) (*Job, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("dispatch: begin claim: %w", err)
	}
	defer tx.Rollback()

	var (
		id            uuid.UUID
		kind          string
		sessionIDStr  string
		carrierJSON   []byte
	)
	row := tx.QueryRowContext(ctx, `
		SELECT id, kind, session_id, carrier FROM session_jobs
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
		LIMIT 1`)
	if err := row.Scan(&id, &kind, &sessionIDStr, &carrierJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("dispatch: claim: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_jobs WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("dispatch: delete claimed job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("dispatch: commit claim: %w", err)
	}

	sessionID, err := domain.ParseSessionID(sessionIDStr)
	if err != nil {
		return nil, err
	}
	var carrier TraceCarrier
	if err := json.Unmarshal(carrierJSON, &carrier); err != nil {
		carrier = TraceCarrier{}
	}

	return &Job{ID: id, Kind: JobKind(kind), SessionID: sessionID, Carrier: carrier}, nil
}

// Ack is a no-op: the claiming transaction already deleted the row.
func (d *PostgresDispatcher) Ack(context.Context, *Job) error { return nil }
