// Package sink finalizes a search: ranks records, persists them, closes the
// session and shapes the response body. Persistence here is best-effort;
// storage failures are logged and swallowed so they never fail the search.
package sink

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/convocatorias-pro/search-service/internal/fallback"
	"github.com/convocatorias-pro/search-service/internal/model"
	"github.com/convocatorias-pro/search-service/internal/store"
)

// Relevance decay defaults: rank 1 scores relevanceBase, each further rank
// multiplies by decayFactor, never below decayFloor.
const (
	relevanceBase = 1.0
	decayFactor   = 0.85
	decayFloor    = 0.2
)

// ProcessingInfo describes how the results were produced.
type ProcessingInfo struct {
	ExtractionMethod model.ExtractionMethod `json:"extraction_method"`
	ModelsUsed       []string               `json:"models_used,omitempty"`
	RejectedCount    int                    `json:"rejected_count"`
	ProcessingTimeMs int64                  `json:"processing_time_ms"`
}

// Response is the body returned to the caller for a finished search.
type Response struct {
	SearchID       string               `json:"search_id"`
	ResultsCount   int                  `json:"results_count"`
	Results        []model.Convocatoria `json:"results"`
	ProcessingInfo ProcessingInfo       `json:"processing_info"`
}

// Sink persists and shapes search outcomes.
type Sink struct {
	store   store.Store
	nowFunc func() time.Time
}

// Option configures the sink.
type Option func(*Sink)

// WithNowFunc injects the clock, for tests.
func WithNowFunc(f func() time.Time) Option {
	return func(s *Sink) { s.nowFunc = f }
}

// New creates a sink over a store. A nil store disables persistence but the
// sink still ranks, closes nothing and shapes the response.
func New(st store.Store, opts ...Option) *Sink {
	s := &Sink{store: st, nowFunc: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// RelevanceForRank returns the rank-decayed relevance score. Rank is
// 1-based.
func RelevanceForRank(rank int) float64 {
	if rank < 1 {
		rank = 1
	}
	score := relevanceBase * math.Pow(decayFactor, float64(rank-1))
	if score < decayFloor {
		score = decayFloor
	}
	// Two decimals is plenty for ordering and keeps payloads stable.
	return math.Round(score*100) / 100
}

// Finalize ranks the outcome's records, writes them, completes the session
// and returns the response body.
func (s *Sink) Finalize(ctx context.Context, out fallback.Outcome, session *model.SearchSession) Response {
	records := out.Records
	for i := range records {
		records[i].Rank = i + 1
		records[i].RelevanceScore = RelevanceForRank(i + 1)
	}

	now := s.nowFunc().UTC()
	elapsed := now.Sub(session.CreatedAt).Milliseconds()

	if s.store != nil {
		if err := s.store.InsertResults(ctx, session.ID, records); err != nil {
			zap.L().Warn("result persistence failed",
				zap.String("session_id", session.ID),
				zap.Error(err),
			)
		}
		if err := s.store.UpdateSession(ctx, session.ID, model.SessionPatch{
			Status:           model.SessionCompleted,
			ResultsCount:     len(records),
			CompletedAt:      now,
			ProcessingTimeMs: elapsed,
		}); err != nil {
			zap.L().Warn("session completion failed",
				zap.String("session_id", session.ID),
				zap.Error(err),
			)
		}
	}

	return Response{
		SearchID:     session.ID,
		ResultsCount: len(records),
		Results:      records,
		ProcessingInfo: ProcessingInfo{
			ExtractionMethod: out.Method,
			ModelsUsed:       out.ModelsUsed,
			RejectedCount:    out.Rejected,
			ProcessingTimeMs: elapsed,
		},
	}
}

// Fail marks the session failed. Like Finalize's writes, this is
// best-effort.
func (s *Sink) Fail(ctx context.Context, session *model.SearchSession) {
	if s.store == nil || session == nil {
		return
	}
	now := s.nowFunc().UTC()
	if err := s.store.UpdateSession(ctx, session.ID, model.SessionPatch{
		Status:           model.SessionFailed,
		CompletedAt:      now,
		ProcessingTimeMs: now.Sub(session.CreatedAt).Milliseconds(),
	}); err != nil {
		zap.L().Warn("session failure update failed",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}
}
