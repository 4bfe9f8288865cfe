package model

import "time"

// SessionStatus is the lifecycle state of a search session.
type SessionStatus string

const (
	SessionProcessing SessionStatus = "processing"
	SessionCompleted  SessionStatus = "completed"
	SessionFailed     SessionStatus = "failed"
)

// SearchSession records one search request end to end. It is created when
// the search starts and transitions to completed or failed exactly once; the
// result sink owns the lifecycle.
type SearchSession struct {
	ID               string        `json:"id"`
	Query            Query         `json:"query"`
	Status           SessionStatus `json:"status"`
	ResultsCount     int           `json:"results_count"`
	CreatedAt        time.Time     `json:"created_at"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
	ProcessingTimeMs int64         `json:"processing_time_ms"`
}

// SessionPatch holds the fields mutable on session completion.
type SessionPatch struct {
	Status           SessionStatus `json:"status"`
	ResultsCount     int           `json:"results_count"`
	CompletedAt      time.Time     `json:"completed_at"`
	ProcessingTimeMs int64         `json:"processing_time_ms"`
}
