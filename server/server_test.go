package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/poiesic/sift/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnswerer struct {
	response *core.FinalResponse
	query    string
	calls    int
}

func (f *fakeAnswerer) Answer(ctx context.Context, query string) *core.FinalResponse {
	f.calls++
	f.query = query
	return f.response
}

type fakeIntentRouter struct {
	decision core.RoutingDecision
	calls    int
}

func (f *fakeIntentRouter) Route(ctx context.Context, query string) core.RoutingDecision {
	f.calls++
	return f.decision
}

func newTestServer(t *testing.T) (*Server, *fakeAnswerer, *fakeIntentRouter) {
	t.Helper()

	answerer := &fakeAnswerer{
		response: &core.FinalResponse{
			Answer:     "The station is powered by the aether core [L1].",
			Sources:    []core.Evidence{},
			Routing:    core.RoutingDecision{Policy: core.PolicyLocal, Rationale: "matched local keyword"},
			Confidence: 0.9,
		},
	}
	router := &fakeIntentRouter{
		decision: core.RoutingDecision{Policy: core.PolicyWeb, Rationale: "matched realtime keyword"},
	}

	s, err := NewServer(answerer, router)
	require.NoError(t, err)
	return s, answerer, router
}

func TestNewServer_Validation(t *testing.T) {
	router := &fakeIntentRouter{}

	_, err := NewServer(nil, router)
	assert.ErrorIs(t, err, ErrAnswererRequired)

	_, err = NewServer(&fakeAnswerer{}, nil)
	assert.ErrorIs(t, err, ErrRouterRequired)
}

func TestHandleAnswer(t *testing.T) {
	s, answerer, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/agent/answer", strings.NewReader(`{"q": "What is the aether core?"}`))
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, 1, answerer.calls)
	assert.Equal(t, "What is the aether core?", answerer.query)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "The station is powered by the aether core [L1].", payload["answer"])
	assert.InDelta(t, 0.9, payload["confidence"], 0.0001)
}

func TestHandleAnswer_BadJSON(t *testing.T) {
	s, answerer, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/agent/answer", strings.NewReader("not json"))
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, answerer.calls)
}

func TestHandleAnswer_EmptyQuery(t *testing.T) {
	s, answerer, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/agent/answer", strings.NewReader(`{"q": "   "}`))
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, answerer.calls)
}

func TestHandleAnswer_MethodNotAllowed(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/agent/answer", nil)
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleIntent(t *testing.T) {
	s, answerer, router := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/router/intent", strings.NewReader(`{"q": "latest fusion news"}`))
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, router.calls)
	assert.Equal(t, 0, answerer.calls)

	var decision core.RoutingDecision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.Equal(t, core.PolicyWeb, decision.Policy)
	assert.Equal(t, "matched realtime keyword", decision.Rationale)
}

func TestHandleHealth(t *testing.T) {
	s, _, _ := newTestServer(t)

	t.Run("not ready before index load", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "loading")
	})

	t.Run("ready after index load", func(t *testing.T) {
		s.SetReady(true)
		assert.True(t, s.Ready())

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "ok")
	})
}

func TestRequestIDAssigned(t *testing.T) {
	s, _, _ := newTestServer(t)
	s.SetReady(true)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.Handler().ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRequestIDPreserved(t *testing.T) {
	s, _, _ := newTestServer(t)
	s.SetReady(true)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "client-supplied-id")
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "client-supplied-id", rec.Header().Get(requestIDHeader))
}
