// Package store persists search sessions and their result records.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/convocatorias-pro/search-service/internal/model"
)

// ErrNotFound is returned when a session id does not exist.
var ErrNotFound = eris.New("store: session not found")

// SessionFilter specifies criteria for listing sessions.
type SessionFilter struct {
	Status model.SessionStatus `json:"status,omitempty"`
	Limit  int                 `json:"limit,omitempty"`
	Offset int                 `json:"offset,omitempty"`
}

// Store defines the persistence interface for the search pipeline. Result
// writes are best-effort from the pipeline's point of view: the caller logs
// and swallows errors rather than failing the search.
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, q model.Query) (*model.SearchSession, error)
	UpdateSession(ctx context.Context, sessionID string, patch model.SessionPatch) error
	GetSession(ctx context.Context, sessionID string) (*model.SearchSession, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]model.SearchSession, error)

	// Results (append-only)
	InsertResults(ctx context.Context, sessionID string, records []model.Convocatoria) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
