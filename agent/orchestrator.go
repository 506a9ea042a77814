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


// Package agent coordinates the full answer pipeline: routing, policy
// execution, evidence aggregation, and synthesis.
//
// The Orchestrator is the only fork/join point in the system: hybrid
// policy runs local and web retrieval concurrently and joins both
// before aggregating. Failures on one side of a hybrid run degrade that
// side to empty evidence; failures of the only retrieval source for a
// single-source policy surface as an explicit low-confidence error
// answer. Answer never propagates a failure to its caller.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/sift/aggregate"
	"github.com/poiesic/sift/core"
	"github.com/poiesic/sift/retrieval"
	"golang.org/x/sync/errgroup"
)

// PolicyRouter decides the retrieval policy for a query.
type PolicyRouter interface {
	Route(ctx context.Context, query string) core.RoutingDecision
}

// LocalSearcher retrieves evidence from the local chunk index.
type LocalSearcher interface {
	Retrieve(ctx context.Context, query string) (*retrieval.LocalResult, error)
}

// WebSearcher retrieves evidence from a live web search.
type WebSearcher interface {
	Retrieve(ctx context.Context, query string) (*retrieval.WebResult, error)
}

// AnswerGenerator synthesizes an answer from rendered evidence blocks.
type AnswerGenerator interface {
	Generate(ctx context.Context, query, localBlock, webBlock string) (*core.SynthResult, error)
}

// Orchestrator runs the answer pipeline end to end.
type Orchestrator struct {
	router      PolicyRouter
	local       LocalSearcher
	web         WebSearcher
	synthesizer AnswerGenerator
	logger      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates a new orchestrator.
func NewOrchestrator(router PolicyRouter, local LocalSearcher, web WebSearcher, synthesizer AnswerGenerator, opts ...Option) (*Orchestrator, error) {
	if router == nil {
		return nil, ErrRouterRequired
	}
	if local == nil {
		return nil, ErrLocalRetrieverRequired
	}
	if web == nil {
		return nil, ErrWebRetrieverRequired
	}
	if synthesizer == nil {
		return nil, ErrSynthesizerRequired
	}

	o := &Orchestrator{
		router:      router,
		local:       local,
		web:         web,
		synthesizer: synthesizer,
		logger:      slog.Default().With("component", "orchestrator"),
	}

	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// evidenceSet is the joined output of policy execution.
type evidenceSet struct {
	localItems []core.LocalEvidence
	webItems   []core.WebEvidence
	retrieveMS int64
	rerankMS   int64
}

// Answer runs the full pipeline for a query. It always returns a
// well-formed response; every failure path degrades into an error
// answer with zero confidence.
func (o *Orchestrator) Answer(ctx context.Context, query string) *core.FinalResponse {
	totalStart := time.Now()

	if strings.TrimSpace(query) == "" {
		return errorResponse(
			"The query must not be empty.",
			core.RoutingDecision{Policy: core.PolicyHybrid, Rationale: "no routing performed for an empty query"},
			core.LatencyBreakdown{Total: time.Since(totalStart).Milliseconds()},
		)
	}

	decision := o.router.Route(ctx, query)

	evidence, retrieveErr := o.executePolicy(ctx, query, decision.Policy)
	if retrieveErr != nil {
		o.logger.Error("retrieval failed with no alternative source",
			"policy", decision.Policy, "err", retrieveErr)
		return errorResponse(
			retrievalErrorMessage(retrieveErr),
			decision,
			core.LatencyBreakdown{
				Retrieve: evidence.retrieveMS,
				Rerank:   evidence.rerankMS,
				Total:    time.Since(totalStart).Milliseconds(),
			},
		)
	}

	normalized := aggregate.Aggregate(evidence.localItems, evidence.webItems)

	generateStart := time.Now()
	synthResult, err := o.synthesizer.Generate(ctx, query, normalized.LocalBlock, normalized.WebBlock)
	generateMS := time.Since(generateStart).Milliseconds()
	if err != nil {
		o.logger.Error("synthesis failed", "err", err)
		return errorResponse(
			fmt.Sprintf("The system could not process your request (reason: %v). Please try again later.", err),
			decision,
			core.LatencyBreakdown{
				Retrieve: evidence.retrieveMS,
				Rerank:   evidence.rerankMS,
				Generate: generateMS,
				Total:    time.Since(totalStart).Milliseconds(),
			},
		)
	}

	response := &core.FinalResponse{
		Answer:     synthResult.Answer,
		Sources:    selectSources(normalized, synthResult.Sources),
		Routing:    decision,
		Confidence: synthResult.Confidence,
		LatencyMS: core.LatencyBreakdown{
			Retrieve: evidence.retrieveMS,
			Rerank:   evidence.rerankMS,
			Generate: generateMS,
			Total:    time.Since(totalStart).Milliseconds(),
		},
	}

	o.logger.Info("request complete",
		"policy", decision.Policy, "totalMS", response.LatencyMS.Total, "confidence", response.Confidence)
	return response
}

// executePolicy runs the retrieval side(s) the policy calls for.
// For hybrid, both sides run concurrently and a failure on either side
// degrades to empty evidence. For single-source policies the error is
// returned so the caller can surface it.
func (o *Orchestrator) executePolicy(ctx context.Context, query string, policy core.Policy) (evidenceSet, error) {
	switch policy {
	case core.PolicyLocal:
		result, err := o.local.Retrieve(ctx, query)
		if err != nil {
			return evidenceSet{}, err
		}
		return evidenceSet{
			localItems: result.Items,
			retrieveMS: result.RetrieveMS,
			rerankMS:   result.RerankMS,
		}, nil

	case core.PolicyWeb:
		result, err := o.web.Retrieve(ctx, query)
		if err != nil {
			return evidenceSet{}, err
		}
		return evidenceSet{
			webItems:   result.Items,
			retrieveMS: result.RetrieveMS,
			rerankMS:   result.RerankMS,
		}, nil

	case core.PolicyHybrid:
		return o.executeHybrid(ctx, query), nil

	default:
		o.logger.Warn("unknown policy, falling back to hybrid", "policy", policy)
		return o.executeHybrid(ctx, query), nil
	}
}

// executeHybrid forks local and web retrieval and joins both. Each
// side's failure is contained: the failed side contributes no evidence
// and the other side still counts.
func (o *Orchestrator) executeHybrid(ctx context.Context, query string) evidenceSet {
	var (
		localResult *retrieval.LocalResult
		webResult   *retrieval.WebResult
		localErr    error
		webErr      error
	)

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		localResult, localErr = o.local.Retrieve(groupCtx, query)
		return nil
	})
	g.Go(func() error {
		webResult, webErr = o.web.Retrieve(groupCtx, query)
		return nil
	})
	// Both goroutines always return nil; errors are captured per side
	_ = g.Wait()

	var evidence evidenceSet
	if localErr != nil {
		o.logger.Error("local retrieval failed in hybrid mode", "err", localErr)
	} else if localResult != nil {
		evidence.localItems = localResult.Items
		evidence.retrieveMS += localResult.RetrieveMS
		evidence.rerankMS += localResult.RerankMS
	}
	if webErr != nil {
		o.logger.Error("web retrieval failed in hybrid mode", "err", webErr)
	} else if webResult != nil {
		evidence.webItems = webResult.Items
		evidence.retrieveMS += webResult.RetrieveMS
		evidence.rerankMS += webResult.RerankMS
	}
	return evidence
}

// selectSources picks the evidence returned to the caller. When the
// model cited specific refs, only that evidence is returned; a citation
// set matching nothing falls back to all evidence.
func selectSources(normalized core.NormalizedContext, citations []string) []core.Evidence {
	all := make([]core.Evidence, 0, len(normalized.LocalSources)+len(normalized.WebSources))
	for _, src := range normalized.LocalSources {
		all = append(all, src)
	}
	for _, src := range normalized.WebSources {
		all = append(all, src)
	}

	if len(citations) == 0 {
		return all
	}

	cited := make(map[string]bool, len(citations))
	for _, ref := range citations {
		cited[ref] = true
	}

	var selected []core.Evidence
	for _, src := range normalized.LocalSources {
		if cited[src.Ref] || cited[src.ChunkId] {
			selected = append(selected, src)
		}
	}
	for _, src := range normalized.WebSources {
		if cited[src.Ref] || cited[src.URL] {
			selected = append(selected, src)
		}
	}

	if len(selected) == 0 {
		return all
	}
	return selected
}

// retrievalErrorMessage phrases a single-source retrieval failure for
// the caller. Structural configuration problems get specific wording.
func retrievalErrorMessage(err error) string {
	switch {
	case errors.Is(err, retrieval.ErrCredentialsMissing):
		return "Web search is not configured; a search API credential is required to answer real-time questions."
	case errors.Is(err, retrieval.ErrIndexUnavailable):
		return "The local knowledge index is not available; it must be built before local questions can be answered."
	default:
		return fmt.Sprintf("The system could not process your request (reason: %v). Please try again later.", err)
	}
}

// errorResponse builds the degraded response used on every failure path.
func errorResponse(message string, routing core.RoutingDecision, latency core.LatencyBreakdown) *core.FinalResponse {
	return &core.FinalResponse{
		Answer:     message,
		Sources:    []core.Evidence{},
		Routing:    routing,
		LatencyMS:  latency,
		Confidence: 0,
	}
}
