package search

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convocatorias-pro/search-service/internal/fallback"
	"github.com/convocatorias-pro/search-service/internal/invoker"
	"github.com/convocatorias-pro/search-service/internal/model"
	"github.com/convocatorias-pro/search-service/internal/prompt"
	"github.com/convocatorias-pro/search-service/internal/sink"
	"github.com/convocatorias-pro/search-service/internal/store"
	"github.com/convocatorias-pro/search-service/internal/validate"
)

type stubRunner struct {
	out      fallback.Outcome
	panics   bool
	gotQuery model.Query
	gotScope model.GeographicScope
}

func (r *stubRunner) Run(_ context.Context, q model.Query, sc model.GeographicScope, _ fallback.Plan) fallback.Outcome {
	r.gotQuery = q
	r.gotScope = sc
	if r.panics {
		panic("boom")
	}
	return r.out
}

type stubStore struct {
	created  int
	patches  map[string]model.SessionPatch
	sessions map[string]*model.SearchSession
}

func newStubStore() *stubStore {
	return &stubStore{
		patches:  make(map[string]model.SessionPatch),
		sessions: make(map[string]*model.SearchSession),
	}
}

func (s *stubStore) CreateSession(_ context.Context, q model.Query) (*model.SearchSession, error) {
	s.created++
	sess := &model.SearchSession{ID: "sess-1", Query: q, Status: model.SessionProcessing, CreatedAt: time.Now().UTC()}
	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *stubStore) UpdateSession(_ context.Context, id string, patch model.SessionPatch) error {
	s.patches[id] = patch
	return nil
}

func (s *stubStore) GetSession(_ context.Context, id string) (*model.SearchSession, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return sess, nil
}

func (s *stubStore) ListSessions(context.Context, store.SessionFilter) ([]model.SearchSession, error) {
	return nil, nil
}

func (s *stubStore) InsertResults(context.Context, string, []model.Convocatoria) error { return nil }
func (s *stubStore) Migrate(context.Context) error                                     { return nil }
func (s *stubStore) Close() error                                                      { return nil }

func goodOutcome() fallback.Outcome {
	return fallback.Outcome{
		Records: []model.Convocatoria{
			{Title: "Fondo A", Organization: "CORFO", SourceURL: "https://corfo.cl/a"},
		},
		Method: model.MethodSingleStep,
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	svc := New(&stubRunner{}, nil, sink.New(nil), fallback.Plan{})

	_, err := svc.Search(context.Background(), SearchRequest{Query: "   "})
	require.Error(t, err)
	assert.True(t, IsInputError(err))
}

func TestSearchRejectsOversizeQuery(t *testing.T) {
	svc := New(&stubRunner{}, nil, sink.New(nil), fallback.Plan{})

	_, err := svc.Search(context.Background(), SearchRequest{Query: strings.Repeat("a", model.MaxQueryLength+1)})
	require.Error(t, err)
	assert.True(t, IsInputError(err))
}

func TestSearchHappyPath(t *testing.T) {
	st := newStubStore()
	runner := &stubRunner{out: goodOutcome()}
	svc := New(runner, st, sink.New(st), fallback.Plan{TwoStep: true})

	resp, err := svc.Search(context.Background(), SearchRequest{Query: "fondos para pymes en Chile"})
	require.NoError(t, err)

	assert.Equal(t, "sess-1", resp.SearchID)
	assert.Equal(t, 1, resp.ResultsCount)
	assert.Equal(t, 1, resp.Results[0].Rank)
	assert.Equal(t, 1, st.created)
	assert.Equal(t, model.SessionCompleted, st.patches["sess-1"].Status)

	assert.Equal(t, "fondos para pymes en Chile", runner.gotQuery.Text)
	assert.Equal(t, model.ScopeCountry, runner.gotScope.Kind)
}

func TestSearchWithoutProvidersDegradesToRuleBased(t *testing.T) {
	// No provider has a credential: every model call fails and the chain
	// must still end with at least one record, without any network call.
	rules, err := validate.DefaultRules()
	require.NoError(t, err)

	orch := fallback.New(prompt.NewBuilder(5), invoker.New(nil), validate.NewValidator(rules))
	svc := New(orch, nil, sink.New(nil), fallback.Plan{
		TwoStep:        true,
		ListModel:      invoker.ModelRef{Provider: "openrouter", ID: "list-model", Tier: invoker.TierFast},
		DetailModel:    invoker.ModelRef{Provider: "openrouter", ID: "detail-model", Tier: invoker.TierStrong},
		SecondaryModel: invoker.ModelRef{Provider: "gemini", ID: "secondary-model", Tier: invoker.TierFast},
	})

	resp, err := svc.Search(context.Background(), SearchRequest{Query: "fondos concursables para pymes en Chile"})
	require.NoError(t, err)
	require.NotNil(t, resp)

	require.GreaterOrEqual(t, resp.ResultsCount, 1)
	method := resp.ProcessingInfo.ExtractionMethod
	assert.Contains(t, []model.ExtractionMethod{model.MethodRuleBased, model.MethodSynthetic}, method)
	assert.False(t, method.IsAI())
}

func TestSearchPanicBecomesInternalError(t *testing.T) {
	st := newStubStore()
	svc := New(&stubRunner{panics: true}, st, sink.New(st), fallback.Plan{})

	resp, err := svc.Search(context.Background(), SearchRequest{Query: "fondos"})
	require.ErrorIs(t, err, ErrInternal)
	assert.Nil(t, resp)
	assert.False(t, IsInputError(err))
	assert.Equal(t, model.SessionFailed, st.patches["sess-1"].Status)
}

func TestGetSessionWithoutStore(t *testing.T) {
	svc := New(&stubRunner{}, nil, sink.New(nil), fallback.Plan{})

	_, err := svc.GetSession(context.Background(), "any")
	require.ErrorIs(t, err, store.ErrNotFound)
}
