package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/sift/ai"
	"github.com/poiesic/sift/core"
	"github.com/poiesic/sift/storage"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	defaultChunkSize    = 800
	defaultChunkOverlap = 100
	embedBatchSize      = 16
)

// Builder turns a directory of markdown documents into an embedded chunk
// index. Documents are split on headings, then recursively into
// fixed-size chunks, embedded concurrently, and persisted.
type Builder struct {
	repository   storage.ChunkRepository
	embedder     ai.Embedder
	pool         *ants.Pool
	chunkSize    int
	chunkOverlap int
	logger       *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(b *Builder) error {
		if size < 1 {
			size = 1
		}

		if b.pool != nil {
			b.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		b.pool = pool
		return nil
	}
}

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) Option {
	return func(b *Builder) error {
		if size > 0 {
			b.chunkSize = size
		}
		return nil
	}
}

// WithChunkOverlap sets the overlap between adjacent chunks in characters.
func WithChunkOverlap(overlap int) Option {
	return func(b *Builder) error {
		if overlap >= 0 {
			b.chunkOverlap = overlap
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBuilder creates a new index builder.
func NewBuilder(repository storage.ChunkRepository, embedder ai.Embedder, opts ...Option) (*Builder, error) {
	if repository == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	b := &Builder{
		repository:   repository,
		embedder:     embedder,
		pool:         pool,
		chunkSize:    defaultChunkSize,
		chunkOverlap: defaultChunkOverlap,
		logger:       slog.Default().With("component", "index-builder"),
	}

	for _, opt := range opts {
		if optErr := opt(b); optErr != nil {
			b.Release()
			return nil, optErr
		}
	}

	return b, nil
}

// Ensure builds the index from docsDir only if it is empty.
// An already-populated index is left untouched.
func (b *Builder) Ensure(ctx context.Context, docsDir string) error {
	count, err := b.repository.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		b.logger.Info("index already populated, skipping build", "chunks", count)
		return nil
	}
	_, err = b.Build(ctx, docsDir)
	return err
}

// Rebuild drops any existing chunks and builds the index from scratch.
func (b *Builder) Rebuild(ctx context.Context, docsDir string) (int, error) {
	if err := b.repository.DropAll(ctx); err != nil {
		return 0, err
	}
	return b.Build(ctx, docsDir)
}

// Build reads all markdown documents under docsDir, chunks them, embeds
// the chunks concurrently, and persists the result. Returns the number
// of chunks indexed.
func (b *Builder) Build(ctx context.Context, docsDir string) (int, error) {
	chunks, err := b.chunkDocuments(docsDir)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, ErrNoDocuments
	}

	b.logger.Info("embedding chunks", "count", len(chunks))

	if err := b.embedChunks(ctx, chunks); err != nil {
		return 0, err
	}

	if _, err := b.repository.AddChunks(ctx, chunks...); err != nil {
		return 0, err
	}

	b.logger.Info("index built", "chunks", len(chunks))
	return len(chunks), nil
}

// chunkDocuments reads markdown files in lexical order and splits them
// into tagged chunks. Chunk tags are stable across rebuilds of the same
// corpus so answers can cite them.
func (b *Builder) chunkDocuments(docsDir string) ([]*core.Chunk, error) {
	entries, err := os.ReadDir(docsDir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(b.chunkSize),
		textsplitter.WithChunkOverlap(b.chunkOverlap),
	)

	var chunks []*core.Chunk
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(docsDir, name))
		if err != nil {
			return nil, err
		}

		for _, sec := range splitSections(string(data)) {
			if sec.Body == "" {
				continue
			}
			parts, err := splitter.SplitText(sec.Body)
			if err != nil {
				return nil, err
			}
			for _, part := range parts {
				chunks = append(chunks, &core.Chunk{
					Tag:     fmt.Sprintf("chunk-%04d", len(chunks)),
					Section: sec.Title,
					Text:    part,
				})
			}
		}
	}

	return chunks, nil
}

// embedChunks embeds all chunks in fixed-size batches on the worker pool.
// The first error wins; remaining batches still run to completion.
func (b *Builder) embedChunks(ctx context.Context, chunks []*core.Chunk) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		wg.Add(1)
		submitErr := b.pool.Submit(func() {
			defer wg.Done()

			texts := make([]string, len(batch))
			for i, chunk := range batch {
				texts[i] = chunk.Text
			}

			vectors, err := b.embedder.EmbedTexts(ctx, texts)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}

			for i := range batch {
				if i < len(vectors) {
					batch[i].Vector = vectors[i]
				}
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = submitErr
			}
			mu.Unlock()
		}
	}

	wg.Wait()
	return firstErr
}

// Release releases the worker pool.
// The builder should not be used after calling Release.
func (b *Builder) Release() {
	if b.pool != nil {
		b.pool.Release()
	}
}
