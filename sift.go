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

// Package sift assembles the adaptive retrieval question answering
// pipeline: a badger-backed chunk index, a tiered query router, local
// and web retrieval, evidence aggregation, and answer synthesis.
package sift

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/poiesic/sift/agent"
	"github.com/poiesic/sift/ai"
	"github.com/poiesic/sift/ai/openai"
	"github.com/poiesic/sift/cache"
	"github.com/poiesic/sift/core"
	"github.com/poiesic/sift/index"
	"github.com/poiesic/sift/retrieval"
	"github.com/poiesic/sift/retrieval/tavily"
	"github.com/poiesic/sift/router"
	"github.com/poiesic/sift/storage"
	"github.com/poiesic/sift/storage/badger"
	"github.com/poiesic/sift/synth"
)

const defaultSweepInterval = 5 * time.Minute

// Service wires every pipeline stage together and owns their lifecycle.
type Service struct {
	backend      *badger.Backend
	chunkRepo    storage.ChunkRepository
	provider     ai.AIProvider
	builder      *index.Builder
	router       *router.Router
	orchestrator *agent.Orchestrator
	sweeper      *cache.Sweeper
	docsDir      string
	ready        atomic.Bool
	logger       *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	aiConfig         *ai.Config
	provider         ai.AIProvider
	searchClient     retrieval.SearchClient
	searchAPIKey     string
	docsDir          string
	inMemory         bool
	rerank           bool
	localKeywords    []string
	realtimeKeywords []string
	topK             int
	cacheTTL         time.Duration
	callTimeout      time.Duration
	sweepInterval    time.Duration
}

// WithAIConfig sets the model host and model configuration used when no
// provider is injected.
func WithAIConfig(config *ai.Config) ServiceOption {
	return func(o *serviceOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithProvider injects an AI provider, bypassing the default
// OpenAI-compatible client construction.
func WithProvider(provider ai.AIProvider) ServiceOption {
	return func(o *serviceOptions) {
		o.provider = provider
	}
}

// WithSearchClient injects a web search client, bypassing the default
// Tavily client construction.
func WithSearchClient(client retrieval.SearchClient) ServiceOption {
	return func(o *serviceOptions) {
		o.searchClient = client
	}
}

// WithSearchAPIKey sets the Tavily API key. When empty and no client is
// injected, web retrieval reports itself unconfigured instead of
// failing service construction.
func WithSearchAPIKey(key string) ServiceOption {
	return func(o *serviceOptions) {
		o.searchAPIKey = key
	}
}

// WithDocsDir sets the directory of markdown documents to index.
// Default is "docs".
func WithDocsDir(dir string) ServiceOption {
	return func(o *serviceOptions) {
		if dir != "" {
			o.docsDir = dir
		}
	}
}

// WithInMemoryStorage keeps the chunk index in memory instead of on
// disk. Intended for tests and ephemeral runs.
func WithInMemoryStorage() ServiceOption {
	return func(o *serviceOptions) {
		o.inMemory = true
	}
}

// WithKeywords replaces the router's default keyword tiers.
// A nil slice keeps the corresponding default list.
func WithKeywords(local, realtime []string) ServiceOption {
	return func(o *serviceOptions) {
		o.localKeywords = local
		o.realtimeKeywords = realtime
	}
}

// WithTopK sets how many results both retrievers fetch per query.
func WithTopK(topK int) ServiceOption {
	return func(o *serviceOptions) {
		if topK > 0 {
			o.topK = topK
		}
	}
}

// WithCacheTTL sets how long classifier decisions and web search results
// stay cached.
func WithCacheTTL(ttl time.Duration) ServiceOption {
	return func(o *serviceOptions) {
		if ttl > 0 {
			o.cacheTTL = ttl
		}
	}
}

// WithCallTimeout caps each outbound model or search call: the routing
// classifier, a web search (retries included), and one synthesis attempt.
func WithCallTimeout(timeout time.Duration) ServiceOption {
	return func(o *serviceOptions) {
		if timeout > 0 {
			o.callTimeout = timeout
		}
	}
}

// WithRerank enables or disables the rerank stage on both retrievers.
// Default is enabled.
func WithRerank(enabled bool) ServiceOption {
	return func(o *serviceOptions) {
		o.rerank = enabled
	}
}

// WithSweepInterval sets how often expired cache entries are evicted.
// Default is 5 minutes.
func WithSweepInterval(interval time.Duration) ServiceOption {
	return func(o *serviceOptions) {
		if interval > 0 {
			o.sweepInterval = interval
		}
	}
}

// NewService builds the full pipeline on top of the index at filePath.
func NewService(filePath string, opts ...ServiceOption) (*Service, error) {
	options := &serviceOptions{
		aiConfig:      ai.DefaultConfig(),
		docsDir:       "docs",
		rerank:        true,
		sweepInterval: defaultSweepInterval,
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	chunkRepo, err := badger.NewChunkRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	searchClient := options.searchClient
	if searchClient == nil && options.searchAPIKey != "" {
		searchClient, err = tavily.NewClient(options.searchAPIKey)
		if err != nil {
			provider.Close()
			backend.Close()
			return nil, err
		}
	}

	builder, err := index.NewBuilder(chunkRepo, provider.Embedder())
	if err != nil {
		provider.Close()
		backend.Close()
		return nil, err
	}

	localOpts := []retrieval.LocalOption{retrieval.WithLocalRerank(options.rerank)}
	if options.topK > 0 {
		localOpts = append(localOpts, retrieval.WithLocalTopK(options.topK))
	}
	localRetriever, err := retrieval.NewLocalRetriever(chunkRepo, provider.Embedder(), localOpts...)
	if err != nil {
		builder.Release()
		provider.Close()
		backend.Close()
		return nil, err
	}

	webOpts := []retrieval.WebOption{retrieval.WithWebRerank(options.rerank)}
	if options.topK > 0 {
		webOpts = append(webOpts, retrieval.WithWebTopK(options.topK))
	}
	if options.cacheTTL > 0 {
		webOpts = append(webOpts, retrieval.WithWebCacheTTL(options.cacheTTL))
	}
	if options.callTimeout > 0 {
		webOpts = append(webOpts, retrieval.WithWebTimeout(options.callTimeout))
	}
	// A nil search client is valid: web retrieval then reports missing
	// credentials per request instead of failing startup.
	webRetriever, err := retrieval.NewWebRetriever(searchClient, webOpts...)
	if err != nil {
		builder.Release()
		provider.Close()
		backend.Close()
		return nil, err
	}

	var routerOpts []router.Option
	if options.localKeywords != nil || options.realtimeKeywords != nil {
		routerOpts = append(routerOpts, router.WithKeywords(options.localKeywords, options.realtimeKeywords))
	}
	if options.cacheTTL > 0 {
		routerOpts = append(routerOpts, router.WithCacheTTL(options.cacheTTL))
	}
	if options.callTimeout > 0 {
		routerOpts = append(routerOpts, router.WithClassifyTimeout(options.callTimeout))
	}
	policyRouter, err := router.NewRouter(provider.Completer(), routerOpts...)
	if err != nil {
		builder.Release()
		provider.Close()
		backend.Close()
		return nil, err
	}

	var synthOpts []synth.Option
	if options.callTimeout > 0 {
		synthOpts = append(synthOpts, synth.WithTimeout(options.callTimeout))
	}
	synthesizer, err := synth.NewSynthesizer(provider.Completer(), synthOpts...)
	if err != nil {
		builder.Release()
		provider.Close()
		backend.Close()
		return nil, err
	}

	orchestrator, err := agent.NewOrchestrator(policyRouter, localRetriever, webRetriever, synthesizer)
	if err != nil {
		builder.Release()
		provider.Close()
		backend.Close()
		return nil, err
	}

	sweeper := cache.NewSweeper(options.sweepInterval, policyRouter.Cache(), webRetriever.Cache())
	sweeper.Start()

	return &Service{
		backend:      backend,
		chunkRepo:    chunkRepo,
		provider:     provider,
		builder:      builder,
		router:       policyRouter,
		orchestrator: orchestrator,
		sweeper:      sweeper,
		docsDir:      options.docsDir,
		logger:       slog.Default().With("component", "service"),
	}, nil
}

// Answer runs the full pipeline for a query.
func (s *Service) Answer(ctx context.Context, query string) *core.FinalResponse {
	return s.orchestrator.Answer(ctx, query)
}

// Route returns the routing decision for a query without retrieval.
func (s *Service) Route(ctx context.Context, query string) core.RoutingDecision {
	return s.router.Route(ctx, query)
}

// EnsureIndex builds the chunk index from the configured docs directory
// unless it is already populated. Marks the service ready on success.
func (s *Service) EnsureIndex(ctx context.Context) error {
	if err := s.builder.Ensure(ctx, s.docsDir); err != nil {
		return err
	}
	s.ready.Store(true)
	return nil
}

// RebuildIndex drops the chunk index and rebuilds it from the
// configured docs directory. Returns the number of chunks indexed.
func (s *Service) RebuildIndex(ctx context.Context) (int, error) {
	count, err := s.builder.Rebuild(ctx, s.docsDir)
	if err != nil {
		return 0, err
	}
	s.ready.Store(true)
	return count, nil
}

// Ready reports whether the local index has finished loading.
func (s *Service) Ready() bool {
	return s.ready.Load()
}

// ChunkRepository exposes the underlying chunk store.
func (s *Service) ChunkRepository() storage.ChunkRepository {
	return s.chunkRepo
}

// Close releases every resource the service owns.
func (s *Service) Close() error {
	s.sweeper.Stop()
	s.builder.Release()

	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}

	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
