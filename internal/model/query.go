package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// MaxQueryLength is the hard ceiling on free-text query length. Queries
// longer than this are rejected before any model call is made.
const MaxQueryLength = 500

// SearchParameters holds the optional filters a caller may attach to a query.
type SearchParameters struct {
	Sector       string  `json:"sector,omitempty"`
	Location     string  `json:"location,omitempty"`
	MinAmount    float64 `json:"min_amount,omitempty"`
	MaxAmount    float64 `json:"max_amount,omitempty"`
	DeadlineFrom string  `json:"deadline_from,omitempty"`
	DeadlineTo   string  `json:"deadline_to,omitempty"`
}

// Query is a single user search request. It is immutable once created and
// lives only for the duration of the search.
type Query struct {
	Text       string           `json:"text"`
	Parameters SearchParameters `json:"parameters"`
}

// ErrEmptyQuery and ErrQueryTooLong are input errors; they never reach the
// model pipeline.
var (
	ErrEmptyQuery   = eris.New("model: query text is empty")
	ErrQueryTooLong = eris.Errorf("model: query text exceeds %d characters", MaxQueryLength)
)

// Validate checks the query against the input contract.
func (q Query) Validate() error {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return ErrEmptyQuery
	}
	if len([]rune(q.Text)) > MaxQueryLength {
		return ErrQueryTooLong
	}
	return nil
}
