package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/poiesic/sift/cache"
	"github.com/poiesic/sift/core"
)

const (
	defaultWebTopK        = 5
	defaultWebTimeout     = 8 * time.Second
	defaultWebMaxAttempts = 2
	defaultWebBaseDelay   = 250 * time.Millisecond
	defaultWebCacheTTL    = 15 * time.Minute
)

// WebRetriever performs real-time web search through a SearchClient,
// reranks results by recency, authority, and relevance, and caches
// responses per query.
type WebRetriever struct {
	client      SearchClient
	cache       *cache.Cache[string, *WebResult]
	topK        int
	timeout     time.Duration
	maxAttempts int
	baseDelay   time.Duration
	cacheTTL    time.Duration
	rerank      bool
	now         func() time.Time
	logger      *slog.Logger
}

// WebOption configures a WebRetriever.
type WebOption func(*WebRetriever) error

// WithWebTopK sets how many results are requested from the provider.
// Default is 5.
func WithWebTopK(topK int) WebOption {
	return func(r *WebRetriever) error {
		if topK > 0 {
			r.topK = topK
		}
		return nil
	}
}

// WithWebTimeout caps how long a single search may take, retries included.
// Default is 8 seconds.
func WithWebTimeout(timeout time.Duration) WebOption {
	return func(r *WebRetriever) error {
		if timeout > 0 {
			r.timeout = timeout
		}
		return nil
	}
}

// WithWebRetry sets the retry policy for provider calls.
func WithWebRetry(maxAttempts int, baseDelay time.Duration) WebOption {
	return func(r *WebRetriever) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		r.maxAttempts = maxAttempts
		if baseDelay > 0 {
			r.baseDelay = baseDelay
		}
		return nil
	}
}

// WithWebCacheTTL sets how long search results stay cached.
// Default is 15 minutes.
func WithWebCacheTTL(ttl time.Duration) WebOption {
	return func(r *WebRetriever) error {
		if ttl > 0 {
			r.cacheTTL = ttl
		}
		return nil
	}
}

// WithWebRerank enables or disables the recency/authority rerank stage.
// Default is enabled; disabled keeps the provider's relevance order.
func WithWebRerank(enabled bool) WebOption {
	return func(r *WebRetriever) error {
		r.rerank = enabled
		return nil
	}
}

// WithWebClock replaces the retriever's time source.
// Used by tests to control recency scoring deterministically.
func WithWebClock(now func() time.Time) WebOption {
	return func(r *WebRetriever) error {
		if now != nil {
			r.now = now
		}
		return nil
	}
}

// WithWebLogger sets a custom logger.
// Default is slog.Default().
func WithWebLogger(logger *slog.Logger) WebOption {
	return func(r *WebRetriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewWebRetriever creates a new web retriever.
// A nil client is allowed; Retrieve then fails with ErrCredentialsMissing,
// which lets the service start without web search configured.
func NewWebRetriever(client SearchClient, opts ...WebOption) (*WebRetriever, error) {
	r := &WebRetriever{
		client:      client,
		cache:       cache.New[string, *WebResult](),
		topK:        defaultWebTopK,
		timeout:     defaultWebTimeout,
		maxAttempts: defaultWebMaxAttempts,
		baseDelay:   defaultWebBaseDelay,
		cacheTTL:    defaultWebCacheTTL,
		rerank:      true,
		now:         time.Now,
		logger:      slog.Default().With("component", "web-retriever"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Cache exposes the retriever's result cache for sweeping.
func (r *WebRetriever) Cache() *cache.Cache[string, *WebResult] {
	return r.cache
}

// Retrieve runs a web search for the query, normalizes and reranks the
// results, and caches the outcome. Identical queries within the cache
// TTL are served from memory.
func (r *WebRetriever) Retrieve(ctx context.Context, query string) (*WebResult, error) {
	if r.client == nil {
		return nil, ErrCredentialsMissing
	}

	key := cache.Key("web_search", query, strconv.Itoa(r.topK))
	if cached, ok := r.cache.Get(key); ok {
		r.logger.Debug("web search cache hit", "query", query)
		return cached, nil
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	retrieveStart := time.Now()

	var raw []SearchResult
	err := RetryWithBackoff(searchCtx, func() error {
		var searchErr error
		raw, searchErr = r.client.Search(searchCtx, query, r.topK)
		return searchErr
	}, r.maxAttempts, r.baseDelay)
	if err != nil {
		r.logger.Warn("web search failed", "query", query, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	items := r.normalizeResults(raw)
	retrieveMS := time.Since(retrieveStart).Milliseconds()

	var rerankMS int64
	if r.rerank {
		rerankStart := time.Now()
		items = rerankWeb(items, r.now())
		rerankMS = time.Since(rerankStart).Milliseconds()
	}

	result := &WebResult{
		Items:      items,
		RetrieveMS: retrieveMS,
		RerankMS:   rerankMS,
	}
	r.cache.Put(key, result, r.cacheTTL)

	r.logger.Info("web retrieval complete",
		"evidences", len(items), "retrieveMS", retrieveMS, "rerankMS", rerankMS)

	return result, nil
}

// normalizeResults converts raw provider results into web evidence.
// Missing titles fall back to the URL, missing timestamps to now.
func (r *WebRetriever) normalizeResults(raw []SearchResult) []core.WebEvidence {
	if len(raw) > r.topK {
		raw = raw[:r.topK]
	}

	items := make([]core.WebEvidence, 0, len(raw))
	for _, result := range raw {
		title := result.Title
		if title == "" {
			title = result.URL
		}
		if title == "" {
			title = "untitled page"
		}

		published := result.PublishedDate
		if published == "" {
			published = r.now().UTC().Format(time.RFC3339)
		}

		items = append(items, core.WebEvidence{
			Type:    "web",
			Title:   title,
			URL:     result.URL,
			Snippet: truncate(result.Content, excerptMaxChars),
			Time:    published,
			Score:   result.Score,
		})
	}
	return items
}
