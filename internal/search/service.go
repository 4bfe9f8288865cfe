// Package search is the request-facing facade over the pipeline: input
// validation, session bookkeeping, scope detection, the fallback chain and
// the result sink, with one outer boundary that converts anything unexpected
// into a structured error.
package search

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/convocatorias-pro/search-service/internal/fallback"
	"github.com/convocatorias-pro/search-service/internal/model"
	"github.com/convocatorias-pro/search-service/internal/scope"
	"github.com/convocatorias-pro/search-service/internal/sink"
	"github.com/convocatorias-pro/search-service/internal/store"
)

// SearchRequest is the parsed body of one search call.
type SearchRequest struct {
	Query      string                 `json:"query"`
	Parameters model.SearchParameters `json:"parameters"`
}

// ErrInternal is the opaque error surfaced when the pipeline panics. The
// diagnostic detail stays in the logs.
var ErrInternal = eris.New("search: internal error")

// IsInputError reports whether the error is caller-correctable (maps to
// HTTP 400).
func IsInputError(err error) bool {
	return errors.Is(err, model.ErrEmptyQuery) || errors.Is(err, model.ErrQueryTooLong)
}

// Runner abstracts the fallback orchestrator.
type Runner interface {
	Run(ctx context.Context, q model.Query, sc model.GeographicScope, plan fallback.Plan) fallback.Outcome
}

// Service executes searches end to end.
type Service struct {
	runner Runner
	store  store.Store // nil disables persistence
	sink   *sink.Sink
	plan   fallback.Plan
}

// New builds the service. st may be nil for storage-less operation.
func New(runner Runner, st store.Store, snk *sink.Sink, plan fallback.Plan) *Service {
	return &Service{runner: runner, store: st, sink: snk, plan: plan}
}

// Search runs one search. Input errors come back typed; everything past
// validation is total: the pipeline degrades instead of failing, and a panic
// anywhere inside is caught here, the session marked failed, and ErrInternal
// returned.
func (s *Service) Search(ctx context.Context, req SearchRequest) (resp *sink.Response, err error) {
	q := model.Query{Text: req.Query, Parameters: req.Parameters}
	if verr := q.Validate(); verr != nil {
		return nil, verr
	}

	session := s.createSession(ctx, q)

	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("search pipeline panic",
				zap.String("session_id", session.ID),
				zap.Any("panic", r),
			)
			s.sink.Fail(ctx, session)
			resp = nil
			err = ErrInternal
		}
	}()

	sc := scope.Detect(q)
	zap.L().Info("search started",
		zap.String("session_id", session.ID),
		zap.String("scope", string(sc.Kind)),
		zap.Bool("two_step", s.plan.TwoStep),
	)

	out := s.runner.Run(ctx, q, sc, s.plan)
	r := s.sink.Finalize(ctx, out, session)

	zap.L().Info("search finished",
		zap.String("session_id", session.ID),
		zap.String("method", string(out.Method)),
		zap.Int("results", r.ResultsCount),
		zap.Int("rejected", out.Rejected),
	)
	return &r, nil
}

// GetSession exposes session lookup for the API layer.
func (s *Service) GetSession(ctx context.Context, id string) (*model.SearchSession, error) {
	if s.store == nil {
		return nil, store.ErrNotFound
	}
	return s.store.GetSession(ctx, id)
}

// ListSessions exposes session listing for the API and CLI layers.
func (s *Service) ListSessions(ctx context.Context, filter store.SessionFilter) ([]model.SearchSession, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListSessions(ctx, filter)
}

// createSession opens the session record. A storage failure falls back to an
// in-memory session so the search itself still runs.
func (s *Service) createSession(ctx context.Context, q model.Query) *model.SearchSession {
	if s.store != nil {
		sess, err := s.store.CreateSession(ctx, q)
		if err == nil {
			return sess
		}
		zap.L().Warn("session creation failed, continuing without persistence", zap.Error(err))
	}
	return &model.SearchSession{
		ID:        uuid.New().String(),
		Query:     q,
		Status:    model.SessionProcessing,
		CreatedAt: time.Now().UTC(),
	}
}
