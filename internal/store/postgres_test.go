package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convocatorias-pro/search-service/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_CreateSession(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO search_sessions`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "processing", 0, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	sess, err := s.CreateSession(context.Background(), model.Query{Text: "fondos pyme"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, model.SessionProcessing, sess.Status)
	assert.Equal(t, "fondos pyme", sess.Query.Text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSession_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, query, status, results_count, created_at, completed_at, processing_time_ms FROM search_sessions WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetSession(context.Background(), "nonexistent")
	require.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSession(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	created := time.Now().UTC()
	completed := created.Add(2 * time.Second)
	rows := pgxmock.NewRows([]string{"id", "query", "status", "results_count", "created_at", "completed_at", "processing_time_ms"}).
		AddRow("sess-1", []byte(`{"text":"becas"}`), "completed", 3, created, &completed, int64(2000))
	mock.ExpectQuery(`SELECT id, query, status, results_count, created_at, completed_at, processing_time_ms FROM search_sessions WHERE id = \$1`).
		WithArgs("sess-1").
		WillReturnRows(rows)

	sess, err := s.GetSession(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "becas", sess.Query.Text)
	assert.Equal(t, model.SessionCompleted, sess.Status)
	assert.Equal(t, 3, sess.ResultsCount)
	require.NotNil(t, sess.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateSession_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE search_sessions SET`).
		WithArgs("completed", 5, pgxmock.AnyArg(), int64(1200), "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateSession(context.Background(), "ghost", model.SessionPatch{
		Status:           model.SessionCompleted,
		ResultsCount:     5,
		CompletedAt:      time.Now().UTC(),
		ProcessingTimeMs: 1200,
	})
	require.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListSessions_StatusFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"id", "query", "status", "results_count", "created_at", "completed_at", "processing_time_ms"}).
		AddRow("sess-1", []byte(`{"text":"a"}`), "failed", 0, time.Now().UTC(), nil, int64(0))
	mock.ExpectQuery(`SELECT .+ FROM search_sessions WHERE true AND status = \$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs("failed", 100).
		WillReturnRows(rows)

	sessions, err := s.ListSessions(context.Background(), SessionFilter{Status: model.SessionFailed})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, model.SessionFailed, sessions[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertResults_Copy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"search_results"}, resultColumns).WillReturnResult(2)

	records := []model.Convocatoria{
		{Title: "A", Organization: "X", SourceURL: "https://x.cl/a", Rank: 1, Method: model.MethodTwoStep, ReliabilityScore: 80},
		{Title: "B", Organization: "Y", SourceURL: "https://y.cl/b", Rank: 2, Method: model.MethodTwoStep, ReliabilityScore: 72},
	}
	err := s.InsertResults(context.Background(), "sess-1", records)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertResults_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	require.NoError(t, s.InsertResults(context.Background(), "sess-1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
