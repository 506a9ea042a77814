package retrieval

import (
	"context"

	"github.com/poiesic/sift/core"
)

// SearchClient executes a web search and returns raw provider results.
// Implementations must be safe for concurrent use.
type SearchClient interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// SearchResult is a single raw result from a web search provider.
type SearchResult struct {
	Title         string
	URL           string
	Content       string
	PublishedDate string
	Score         float64
}

// LocalResult holds reranked local evidence plus per-stage timings.
type LocalResult struct {
	Items      []core.LocalEvidence
	RetrieveMS int64
	RerankMS   int64
}

// WebResult holds reranked web evidence plus per-stage timings.
type WebResult struct {
	Items      []core.WebEvidence
	RetrieveMS int64
	RerankMS   int64
}
