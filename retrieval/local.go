package retrieval

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/sift/ai"
	"github.com/poiesic/sift/core"
	"github.com/poiesic/sift/storage"
)

const (
	defaultLocalTopK = 6
	excerptMaxChars  = 400
)

// LocalRetriever performs vector search over the indexed document corpus
// and reranks matches with a lexical blend.
type LocalRetriever struct {
	repository storage.ChunkRepository
	embedder   ai.Embedder
	topK       int
	rerank     bool
	logger     *slog.Logger
}

// LocalOption configures a LocalRetriever.
type LocalOption func(*LocalRetriever) error

// WithLocalTopK sets how many chunks are retrieved before reranking.
// Default is 6.
func WithLocalTopK(topK int) LocalOption {
	return func(r *LocalRetriever) error {
		if topK > 0 {
			r.topK = topK
		}
		return nil
	}
}

// WithLocalRerank enables or disables the lexical rerank stage.
// Default is enabled; disabled keeps the raw vector similarity order.
func WithLocalRerank(enabled bool) LocalOption {
	return func(r *LocalRetriever) error {
		r.rerank = enabled
		return nil
	}
}

// WithLocalLogger sets a custom logger.
// Default is slog.Default().
func WithLocalLogger(logger *slog.Logger) LocalOption {
	return func(r *LocalRetriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewLocalRetriever creates a new local retriever.
func NewLocalRetriever(repository storage.ChunkRepository, embedder ai.Embedder, opts ...LocalOption) (*LocalRetriever, error) {
	if repository == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &LocalRetriever{
		repository: repository,
		embedder:   embedder,
		topK:       defaultLocalTopK,
		rerank:     true,
		logger:     slog.Default().With("component", "local-retriever"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Retrieve embeds the query, finds the closest indexed chunks, and
// reranks them. Returns ErrIndexUnavailable when the index is empty.
func (r *LocalRetriever) Retrieve(ctx context.Context, query string) (*LocalResult, error) {
	count, err := r.repository.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrIndexUnavailable
	}

	retrieveStart := time.Now()

	vector, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		r.logger.Error("error embedding query", "err", err)
		return nil, err
	}

	matches, err := r.repository.FindSimilar(ctx, vector, r.topK)
	if err != nil {
		r.logger.Error("error querying similar chunks", "err", err)
		return nil, err
	}

	items := make([]core.LocalEvidence, 0, len(matches))
	for _, match := range matches {
		items = append(items, core.LocalEvidence{
			Type:    "local",
			ChunkId: match.Chunk.Tag,
			Section: match.Chunk.Section,
			Excerpt: buildExcerpt(match.Chunk.Text),
			Text:    match.Chunk.Text,
			Score:   float64(match.Score),
		})
	}
	retrieveMS := time.Since(retrieveStart).Milliseconds()

	var rerankMS int64
	if r.rerank {
		rerankStart := time.Now()
		items = rerankLocal(query, items)
		rerankMS = time.Since(rerankStart).Milliseconds()
	}

	r.logger.Info("local retrieval complete",
		"evidences", len(items), "retrieveMS", retrieveMS, "rerankMS", rerankMS)

	return &LocalResult{
		Items:      items,
		RetrieveMS: retrieveMS,
		RerankMS:   rerankMS,
	}, nil
}

// buildExcerpt flattens chunk text to a single line capped at 400 characters.
func buildExcerpt(text string) string {
	snippet := strings.ReplaceAll(strings.TrimSpace(text), "\n", " ")
	if len(snippet) <= excerptMaxChars {
		return snippet
	}
	return truncate(snippet, excerptMaxChars-3) + "..."
}
