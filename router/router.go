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


package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/poiesic/sift/ai"
	"github.com/poiesic/sift/cache"
	"github.com/poiesic/sift/core"
)

const (
	defaultClassifyTimeout = 10 * time.Second
	defaultCacheTTL        = 15 * time.Minute
)

// jsonPattern extracts the outermost JSON object from a completion that
// may carry surrounding prose or code fences.
var jsonPattern = regexp.MustCompile(`(?s)\{.*\}`)

// Router decides which retrieval policy a query should use. Keyword
// rules fire first; only ambiguous queries reach the LLM classifier.
// Route never fails: every classifier problem degrades to hybrid.
type Router struct {
	completer        ai.Completer
	cache            *cache.Cache[string, core.RoutingDecision]
	localKeywords    []string
	realtimeKeywords []string
	timeout          time.Duration
	cacheTTL         time.Duration
	logger           *slog.Logger
}

// Option configures a Router.
type Option func(*Router) error

// WithKeywords replaces the default keyword lists.
func WithKeywords(local, realtime []string) Option {
	return func(r *Router) error {
		if local != nil {
			r.localKeywords = local
		}
		if realtime != nil {
			r.realtimeKeywords = realtime
		}
		return nil
	}
}

// WithClassifyTimeout caps how long a single classifier call may take.
// Default is 10 seconds.
func WithClassifyTimeout(timeout time.Duration) Option {
	return func(r *Router) error {
		if timeout > 0 {
			r.timeout = timeout
		}
		return nil
	}
}

// WithCacheTTL sets how long classifier decisions stay cached.
// Default is 15 minutes.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Router) error {
		if ttl > 0 {
			r.cacheTTL = ttl
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRouter creates a new router. A nil completer is allowed; ambiguous
// queries then fall back to hybrid without classification.
func NewRouter(completer ai.Completer, opts ...Option) (*Router, error) {
	r := &Router{
		completer:        completer,
		cache:            cache.New[string, core.RoutingDecision](),
		localKeywords:    DefaultLocalKeywords,
		realtimeKeywords: DefaultRealtimeKeywords,
		timeout:          defaultClassifyTimeout,
		cacheTTL:         defaultCacheTTL,
		logger:           slog.Default().With("component", "router"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Cache exposes the router's decision cache for sweeping.
func (r *Router) Cache() *cache.Cache[string, core.RoutingDecision] {
	return r.cache
}

// Route picks a retrieval policy for the query. Queries hitting exactly
// one keyword tier are decided by rule; queries hitting both tiers or
// neither go to the LLM classifier.
func (r *Router) Route(ctx context.Context, query string) core.RoutingDecision {
	normalized := strings.ToLower(query)
	localHit := matchKeyword(normalized, r.localKeywords)
	realtimeHit := matchKeyword(normalized, r.realtimeKeywords)

	switch {
	case localHit != "" && realtimeHit != "":
		// Both tiers hit; let the classifier decide whether this is hybrid
	case localHit != "":
		return core.RoutingDecision{
			Policy:    core.PolicyLocal,
			Rationale: fmt.Sprintf("matched local keyword %q, no LLM call needed", localHit),
		}
	case realtimeHit != "":
		return core.RoutingDecision{
			Policy:    core.PolicyWeb,
			Rationale: fmt.Sprintf("matched realtime keyword %q, routing to web search", realtimeHit),
		}
	}

	return r.classify(ctx, query, normalized)
}

// classify asks the LLM for a routing decision, caching results per
// normalized query. Every failure degrades to hybrid.
func (r *Router) classify(ctx context.Context, query, normalized string) core.RoutingDecision {
	key := cache.Key("router.classify", normalized)
	if cached, ok := r.cache.Get(key); ok {
		return cached
	}

	if r.completer == nil {
		return fallback("no classifier configured, defaulting to hybrid")
	}

	classifyCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	content, err := r.completer.Complete(classifyCtx, classifierSystemPrompt,
		fmt.Sprintf("Question: %q", query))
	if err != nil {
		r.logger.Warn("classifier request failed", "err", err)
		return fallback("classifier request failed, defaulting to hybrid")
	}

	decision := parseDecision(content, r.logger)
	r.cache.Put(key, decision, r.cacheTTL)
	r.logger.Info("classifier decision", "policy", decision.Policy)
	return decision
}

// matchKeyword returns the first keyword contained in text, or "".
func matchKeyword(text string, keywords []string) string {
	for _, word := range keywords {
		if strings.Contains(text, word) {
			return word
		}
	}
	return ""
}

// parseDecision extracts and validates a routing decision from raw
// classifier output.
func parseDecision(content string, logger *slog.Logger) core.RoutingDecision {
	rawJSON := content
	if match := jsonPattern.FindString(content); match != "" {
		rawJSON = match
	}

	var parsed struct {
		Policy    string `json:"policy"`
		Rationale string `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(rawJSON), &parsed); err != nil {
		logger.Warn("classifier output is not valid JSON", "err", err)
		return fallback("classifier output could not be parsed, defaulting to hybrid")
	}

	policy, err := core.ParsePolicy(parsed.Policy)
	if err != nil {
		logger.Warn("classifier returned invalid policy", "policy", parsed.Policy)
		return fallback("classifier returned an invalid policy, defaulting to hybrid")
	}

	rationale := parsed.Rationale
	if rationale == "" {
		rationale = "classifier gave no rationale"
	}
	return core.RoutingDecision{Policy: policy, Rationale: rationale}
}

// fallback is the degraded decision used whenever classification cannot
// complete. Hybrid tries both sources, so it is the safest default.
func fallback(reason string) core.RoutingDecision {
	return core.RoutingDecision{Policy: core.PolicyHybrid, Rationale: reason}
}
