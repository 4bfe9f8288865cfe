package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convocatorias-pro/search-service/internal/model"
	"github.com/convocatorias-pro/search-service/internal/search"
	"github.com/convocatorias-pro/search-service/internal/sink"
	"github.com/convocatorias-pro/search-service/internal/store"
)

type stubAPI struct {
	resp     *sink.Response
	searchEr error
	session  *model.SearchSession
	sessions []model.SearchSession

	lastFilter store.SessionFilter
}

func (s *stubAPI) Search(ctx context.Context, req search.SearchRequest) (*sink.Response, error) {
	if s.searchEr != nil {
		return nil, s.searchEr
	}
	return s.resp, nil
}

func (s *stubAPI) GetSession(ctx context.Context, id string) (*model.SearchSession, error) {
	if s.session == nil {
		return nil, store.ErrNotFound
	}
	return s.session, nil
}

func (s *stubAPI) ListSessions(ctx context.Context, filter store.SessionFilter) ([]model.SearchSession, error) {
	s.lastFilter = filter
	return s.sessions, nil
}

func TestRouter_Health(t *testing.T) {
	r := newRouter(&stubAPI{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_Search_OK(t *testing.T) {
	api := &stubAPI{resp: &sink.Response{
		SearchID:     "s-1",
		ResultsCount: 2,
		Results: []model.Convocatoria{
			{Title: "Fondo Semilla", Rank: 1},
			{Title: "Capital Abeja", Rank: 2},
		},
		ProcessingInfo: sink.ProcessingInfo{ExtractionMethod: model.MethodSingleStep},
	}}
	r := newRouter(api)

	payload, _ := json.Marshal(map[string]any{"query": "fondos para pymes"})
	req := httptest.NewRequest(http.MethodPost, "/api/search", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp sink.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "s-1", resp.SearchID)
	assert.Equal(t, 2, resp.ResultsCount)
	assert.Len(t, resp.Results, 2)
}

func TestRouter_Search_InvalidBody(t *testing.T) {
	r := newRouter(&stubAPI{})

	req := httptest.NewRequest(http.MethodPost, "/api/search", bytes.NewReader([]byte("not json")))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "INVALID_REQUEST")
}

func TestRouter_Search_InputError(t *testing.T) {
	r := newRouter(&stubAPI{searchEr: model.ErrEmptyQuery})

	payload, _ := json.Marshal(map[string]any{"query": "   "})
	req := httptest.NewRequest(http.MethodPost, "/api/search", bytes.NewReader(payload))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "INVALID_QUERY")
}

func TestRouter_Search_InternalError(t *testing.T) {
	r := newRouter(&stubAPI{searchEr: search.ErrInternal})

	payload, _ := json.Marshal(map[string]any{"query": "fondos"})
	req := httptest.NewRequest(http.MethodPost, "/api/search", bytes.NewReader(payload))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "INTERNAL_ERROR")

	var body struct {
		Error struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			Timestamp string `json:"timestamp"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.NotEmpty(t, body.Error.Timestamp)
}

func TestRouter_GetSession(t *testing.T) {
	api := &stubAPI{session: &model.SearchSession{ID: "abc", Status: model.SessionCompleted}}
	r := newRouter(api)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/abc", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var sess model.SearchSession
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sess))
	assert.Equal(t, "abc", sess.ID)
	assert.Equal(t, model.SessionCompleted, sess.Status)
}

func TestRouter_GetSession_NotFound(t *testing.T) {
	r := newRouter(&stubAPI{})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/missing", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "NOT_FOUND")
}

func TestRouter_ListSessions_Filter(t *testing.T) {
	api := &stubAPI{sessions: []model.SearchSession{{ID: "a"}, {ID: "b"}}}
	r := newRouter(api)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions?status=completed&limit=5", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.SessionCompleted, api.lastFilter.Status)
	assert.Equal(t, 5, api.lastFilter.Limit)

	var body struct {
		Sessions []model.SearchSession `json:"sessions"`
		Count    int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
}

func TestRouter_ListSessions_BadLimit(t *testing.T) {
	r := newRouter(&stubAPI{})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions?limit=nope", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
