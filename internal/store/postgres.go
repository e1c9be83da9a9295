package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // Postgres driver

	"github.com/ocx/fhecoord/internal/apperr"
	"github.com/ocx/fhecoord/internal/domain"
	"github.com/ocx/fhecoord/internal/fhe"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS sessions (
	id UUID PRIMARY KEY,
	status TEXT NOT NULL,
	pk BYTEA NOT NULL DEFAULT '',
	phantom_server BYTEA NOT NULL DEFAULT '',
	encrypted_result BYTEA NOT NULL DEFAULT '',
	client_info BYTEA NOT NULL DEFAULT '',
	participant_number INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT now(),
	updated_at TIMESTAMP NOT NULL DEFAULT now()
)`

// PostgresStore is the durable SessionStore backed by the sessions table
// described in the specification's persisted schema. It holds a shared
// *sql.DB connection pool, sized by pg.max_size, used by both HTTP
// handlers and worker goroutines — the same pattern as the teacher's
// DatabaseStateManager and SpannerWallet constructors.
type PostgresStore struct {
	db     *sql.DB
	ring   fhe.RingKind
	logger *slog.Logger
}

// NewPostgresStore opens a connection pool against url and ensures the
// sessions table exists.
func NewPostgresStore(url string, maxConns int, ring fhe.RingKind) (*PostgresStore, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}
	db.SetMaxOpenConns(maxConns)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return nil, fmt.Errorf("store: ensure schema: %w", err)
	}

	return &PostgresStore{db: db, ring: ring, logger: slog.Default()}, nil
}

func (p *PostgresStore) Close() error { return p.db.Close() }

// DB exposes the underlying connection pool so the job dispatcher can share
// it instead of opening a second pool against the same database.
func (p *PostgresStore) DB() *sql.DB { return p.db }

func (p *PostgresStore) Create(ctx context.Context, s *domain.Session) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO sessions (id, status, pk, phantom_server, encrypted_result, client_info, participant_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())`,
		s.ID.String(), s.Status.String(), s.PK, []byte{}, encodeResult(s.Result), encodeClientInfo(s.Clients), s.ParticipantNumber(),
	)
	if err != nil {
		return apperr.Internal("create session", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT status, pk, encrypted_result, client_info, participant_number, created_at, updated_at
		FROM sessions WHERE id = $1`, id.String())

	var (
		statusStr        string
		pk, result, info []byte
		participantNum   int
		createdAt        time.Time
		updatedAt        time.Time
	)
	if err := row.Scan(&statusStr, &pk, &result, &info, &participantNum, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("session " + id.String() + " not found")
		}
		return nil, apperr.Internal("get session", err)
	}

	status, err := domain.ParseStatus(statusStr)
	if err != nil {
		return nil, err
	}
	clients, err := decodeClientInfo(info)
	if err != nil {
		return nil, apperr.Internal("decode client_info", err)
	}
	ctResult, err := decodeResult(result)
	if err != nil {
		return nil, apperr.Internal("decode encrypted_result", err)
	}

	s := domain.New(id, participantNum, p.ring)
	s.Status = status
	s.Clients = clients
	s.PK = pk
	s.Result = ctResult
	s.CreatedAt = createdAt
	s.UpdatedAt = updatedAt

	// The FHE server handle is never trusted from storage: rebuild it from
	// the persisted shares every time a session crosses a process
	// boundary, per §3.
	rehydrate(s)

	return s, nil
}

func (p *PostgresStore) Update(ctx context.Context, s *domain.Session) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE sessions
		SET status = $2, pk = $3, encrypted_result = $4, client_info = $5, updated_at = now()
		WHERE id = $1`,
		s.ID.String(), s.Status.String(), s.PK, encodeResult(s.Result), encodeClientInfo(s.Clients),
	)
	if err != nil {
		return apperr.Internal("update session", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal("update session: rows affected", err)
	}
	if n == 0 {
		return apperr.NotFound("session " + s.ID.String() + " not found")
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, id domain.SessionID) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id.String()); err != nil {
		return apperr.Internal("delete session", err)
	}
	return nil
}
