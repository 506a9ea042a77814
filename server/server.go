// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes the answer pipeline over HTTP.
//
// Three routes are served: POST /api/agent/answer runs the full
// pipeline, POST /api/router/intent returns the routing decision alone,
// and GET /healthz reports readiness. The health probe reports a
// distinct not-ready status until SetReady is called, which the process
// entry point does after the local index has finished loading.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/sift/core"
)

const (
	defaultAddr            = ":8000"
	defaultShutdownTimeout = 10 * time.Second
	requestIDHeader        = "X-Request-Id"
)

// Answerer runs the full answer pipeline for a query.
type Answerer interface {
	Answer(ctx context.Context, query string) *core.FinalResponse
}

// IntentRouter returns the routing decision for a query without
// executing retrieval.
type IntentRouter interface {
	Route(ctx context.Context, query string) core.RoutingDecision
}

// Server is the HTTP front end for the answer pipeline.
type Server struct {
	answerer        Answerer
	router          IntentRouter
	addr            string
	shutdownTimeout time.Duration
	ready           atomic.Bool
	logger          *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithAddr sets the listen address.
// Default is ":8000".
func WithAddr(addr string) Option {
	return func(s *Server) error {
		if addr != "" {
			s.addr = addr
		}
		return nil
	}
}

// WithShutdownTimeout caps how long graceful shutdown may take.
// Default is 10 seconds.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(s *Server) error {
		if timeout > 0 {
			s.shutdownTimeout = timeout
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewServer creates a new HTTP server around the answer pipeline.
func NewServer(answerer Answerer, router IntentRouter, opts ...Option) (*Server, error) {
	if answerer == nil {
		return nil, ErrAnswererRequired
	}
	if router == nil {
		return nil, ErrRouterRequired
	}

	s := &Server{
		answerer:        answerer,
		router:          router,
		addr:            defaultAddr,
		shutdownTimeout: defaultShutdownTimeout,
		logger:          slog.Default().With("component", "server"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// SetReady flips the readiness reported by the health probe. The entry
// point calls SetReady(true) once the local index has finished loading.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Ready reports the current readiness state.
func (s *Server) Ready() bool {
	return s.ready.Load()
}

// Handler returns the routed handler with request logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/agent/answer", s.handleAnswer)
	mux.HandleFunc("POST /api/router/intent", s.handleIntent)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.withRequestLog(mux)
}

// ListenAndServe serves until the context is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down")
	return httpServer.Shutdown(shutdownCtx)
}

type answerRequest struct {
	Q string `json:"q"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAnswerRequest(w, r)
	if !ok {
		return
	}

	response := s.answerer.Answer(r.Context(), req.Q)
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAnswerRequest(w, r)
	if !ok {
		return
	}

	decision := s.router.Route(r.Context(), req.Q)
	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) decodeAnswerRequest(w http.ResponseWriter, r *http.Request) (answerRequest, bool) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "request body must be a JSON object with a \"q\" field"})
		return answerRequest{}, false
	}
	if strings.TrimSpace(req.Q) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "q must not be empty"})
		return answerRequest{}, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestLog assigns each request an id and logs its outcome.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r)

		s.logger.Info("request",
			"id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"durationMS", time.Since(start).Milliseconds())
	})
}
