package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/convocatorias-pro/search-service/internal/db"
	"github.com/convocatorias-pro/search-service/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot session operations.
var preparedStatements = map[string]string{
	"insert_session": `INSERT INTO search_sessions (id, query, status, results_count, created_at) VALUES ($1, $2, $3, $4, $5)`,
	"update_session": `UPDATE search_sessions SET status = $1, results_count = $2, completed_at = $3, processing_time_ms = $4 WHERE id = $5`,
	"get_session":    `SELECT id, query, status, results_count, created_at, completed_at, processing_time_ms FROM search_sessions WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Tests inject pgxmock here.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (e.g., the metrics collector).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS search_sessions (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	query              JSONB NOT NULL,
	status             TEXT NOT NULL DEFAULT 'processing',
	results_count      INTEGER NOT NULL DEFAULT 0,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at       TIMESTAMPTZ,
	processing_time_ms BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS search_results (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	session_id        TEXT NOT NULL REFERENCES search_sessions(id),
	rank              INTEGER NOT NULL,
	extraction_method TEXT NOT NULL,
	reliability_score INTEGER NOT NULL,
	record            JSONB NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_search_sessions_status ON search_sessions(status);
CREATE INDEX IF NOT EXISTS idx_search_sessions_created ON search_sessions(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_search_results_session ON search_results(session_id);
CREATE INDEX IF NOT EXISTS idx_search_results_method ON search_results(extraction_method);

CREATE TABLE IF NOT EXISTS search_metrics_daily (
	day                DATE PRIMARY KEY,
	searches           INTEGER NOT NULL DEFAULT 0,
	completed          INTEGER NOT NULL DEFAULT 0,
	failed             INTEGER NOT NULL DEFAULT 0,
	results            INTEGER NOT NULL DEFAULT 0,
	avg_processing_ms  DOUBLE PRECISION NOT NULL DEFAULT 0
);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, q model.Query) (*model.SearchSession, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	queryJSON, err := json.Marshal(q)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal query")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO search_sessions (id, query, status, results_count, created_at) VALUES ($1, $2, $3, $4, $5)`,
		id, queryJSON, string(model.SessionProcessing), 0, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert session")
	}

	return &model.SearchSession{
		ID:        id,
		Query:     q,
		Status:    model.SessionProcessing,
		CreatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateSession(ctx context.Context, sessionID string, patch model.SessionPatch) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE search_sessions SET status = $1, results_count = $2, completed_at = $3, processing_time_ms = $4 WHERE id = $5`,
		string(patch.Status), patch.ResultsCount, patch.CompletedAt, patch.ProcessingTimeMs, sessionID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update session %s", sessionID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: update session %s", sessionID)
	}
	return nil
}

func (s *PostgresStore) GetSession(ctx context.Context, sessionID string) (*model.SearchSession, error) {
	var sess model.SearchSession
	var queryJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, query, status, results_count, created_at, completed_at, processing_time_ms FROM search_sessions WHERE id = $1`,
		sessionID,
	).Scan(&sess.ID, &queryJSON, &sess.Status, &sess.ResultsCount, &sess.CreatedAt, &sess.CompletedAt, &sess.ProcessingTimeMs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: get session %s", sessionID)
		}
		return nil, eris.Wrapf(err, "postgres: get session %s", sessionID)
	}

	if err := json.Unmarshal(queryJSON, &sess.Query); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal query")
	}
	return &sess, nil
}

func (s *PostgresStore) ListSessions(ctx context.Context, filter SessionFilter) ([]model.SearchSession, error) {
	query := `SELECT id, query, status, results_count, created_at, completed_at, processing_time_ms FROM search_sessions WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sessions")
	}
	defer rows.Close()

	var sessions []model.SearchSession
	for rows.Next() {
		var sess model.SearchSession
		var queryJSON []byte
		if err := rows.Scan(&sess.ID, &queryJSON, &sess.Status, &sess.ResultsCount, &sess.CreatedAt, &sess.CompletedAt, &sess.ProcessingTimeMs); err != nil {
			return nil, eris.Wrap(err, "postgres: scan session")
		}
		if err := json.Unmarshal(queryJSON, &sess.Query); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal query")
		}
		sessions = append(sessions, sess)
	}
	return sessions, eris.Wrap(rows.Err(), "postgres: list sessions iterate")
}

// resultColumns is the COPY column order for InsertResults.
var resultColumns = []string{"id", "session_id", "rank", "extraction_method", "reliability_score", "record", "created_at"}

func (s *PostgresStore) InsertResults(ctx context.Context, sessionID string, records []model.Convocatoria) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		recordJSON, err := json.Marshal(rec)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal record")
		}
		rows = append(rows, []any{
			uuid.New().String(), sessionID, rec.Rank, string(rec.Method), rec.ReliabilityScore, recordJSON, now,
		})
	}

	if _, err := db.CopyFrom(ctx, s.pool, "search_results", resultColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: insert results for session %s", sessionID)
	}
	return nil
}
