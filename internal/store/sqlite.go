package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/convocatorias-pro/search-service/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs local
// single-binary deployments and tests.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS search_sessions (
	id                 TEXT PRIMARY KEY,
	query              TEXT NOT NULL,
	status             TEXT NOT NULL DEFAULT 'processing',
	results_count      INTEGER NOT NULL DEFAULT 0,
	created_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at       DATETIME,
	processing_time_ms INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS search_results (
	id                TEXT PRIMARY KEY,
	session_id        TEXT NOT NULL REFERENCES search_sessions(id),
	rank              INTEGER NOT NULL,
	extraction_method TEXT NOT NULL,
	reliability_score INTEGER NOT NULL,
	record            TEXT NOT NULL,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_search_sessions_status ON search_sessions(status);
CREATE INDEX IF NOT EXISTS idx_search_results_session ON search_results(session_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSession(ctx context.Context, q model.Query) (*model.SearchSession, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	queryJSON, err := json.Marshal(q)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal query")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO search_sessions (id, query, status, results_count, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(queryJSON), string(model.SessionProcessing), 0, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert session")
	}

	return &model.SearchSession{
		ID:        id,
		Query:     q,
		Status:    model.SessionProcessing,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateSession(ctx context.Context, sessionID string, patch model.SessionPatch) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE search_sessions SET status = ?, results_count = ?, completed_at = ?, processing_time_ms = ? WHERE id = ?`,
		string(patch.Status), patch.ResultsCount, patch.CompletedAt, patch.ProcessingTimeMs, sessionID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update session %s", sessionID)
	}
	return checkRowsAffected(res, sessionID)
}

func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*model.SearchSession, error) {
	var sess model.SearchSession
	var queryJSON string
	var completedAt sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT id, query, status, results_count, created_at, completed_at, processing_time_ms FROM search_sessions WHERE id = ?`,
		sessionID,
	).Scan(&sess.ID, &queryJSON, &sess.Status, &sess.ResultsCount, &sess.CreatedAt, &completedAt, &sess.ProcessingTimeMs)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: get session %s", sessionID)
		}
		return nil, eris.Wrapf(err, "sqlite: get session %s", sessionID)
	}

	if completedAt.Valid {
		t := completedAt.Time
		sess.CompletedAt = &t
	}
	if err := json.Unmarshal([]byte(queryJSON), &sess.Query); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal query")
	}
	return &sess, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, filter SessionFilter) ([]model.SearchSession, error) {
	query := `SELECT id, query, status, results_count, created_at, completed_at, processing_time_ms FROM search_sessions WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sessions")
	}
	defer rows.Close()

	var sessions []model.SearchSession
	for rows.Next() {
		var sess model.SearchSession
		var queryJSON string
		var completedAt sql.NullTime
		if err := rows.Scan(&sess.ID, &queryJSON, &sess.Status, &sess.ResultsCount, &sess.CreatedAt, &completedAt, &sess.ProcessingTimeMs); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan session")
		}
		if completedAt.Valid {
			t := completedAt.Time
			sess.CompletedAt = &t
		}
		if err := json.Unmarshal([]byte(queryJSON), &sess.Query); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal query")
		}
		sessions = append(sessions, sess)
	}
	return sessions, eris.Wrap(rows.Err(), "sqlite: list sessions iterate")
}

func (s *SQLiteStore) InsertResults(ctx context.Context, sessionID string, records []model.Convocatoria) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin insert results")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO search_results (id, session_id, rank, extraction_method, reliability_score, record, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert result")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, rec := range records {
		recordJSON, err := json.Marshal(rec)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal record")
		}
		if _, err := stmt.ExecContext(ctx,
			uuid.New().String(), sessionID, rec.Rank, string(rec.Method), rec.ReliabilityScore, string(recordJSON), now,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert result for session %s", sessionID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit insert results")
}

func checkRowsAffected(res sql.Result, sessionID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: session %s", sessionID)
	}
	return nil
}
