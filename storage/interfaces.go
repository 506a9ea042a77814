package storage

import (
	"context"

	"github.com/poiesic/sift/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// ChunkRepository provides operations for managing indexed document chunks.
type ChunkRepository interface {
	Repository
	// AddChunks adds one or more chunks to storage.
	// Uses content-based IDs (IDFromContent of the chunk text) for chunks
	// with ID=0, making re-ingestion of identical content idempotent.
	// Returns the chunks with IDs populated.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// Count returns the number of chunks currently stored.
	Count(ctx context.Context) (int, error)

	// FindSimilar finds chunks similar to the given vector.
	// Returns up to limit results ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, limit int) ([]*core.ChunkMatch, error)

	// DropAll removes every stored chunk. Used when rebuilding the index.
	DropAll(ctx context.Context) error
}
