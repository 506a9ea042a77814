package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/sift/ai/mock"
	"github.com/poiesic/sift/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCorpus(t *testing.T, docs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestSplitSections(t *testing.T) {
	text := "preamble text\n# First\nbody one\nmore\n## Second\nbody two\n"
	sections := splitSections(text)
	require.Len(t, sections, 3)

	assert.Equal(t, "", sections[0].Title)
	assert.Equal(t, "preamble text", sections[0].Body)
	assert.Equal(t, "First", sections[1].Title)
	assert.Equal(t, "body one\nmore", sections[1].Body)
	assert.Equal(t, "Second", sections[2].Title)
	assert.Equal(t, "body two", sections[2].Body)
}

func TestSplitSections_Empty(t *testing.T) {
	assert.Empty(t, splitSections(""))
}

func TestBuild(t *testing.T) {
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer backend.Close()

	builder, err := NewBuilder(repo, mock.NewMockEmbedder())
	require.NoError(t, err)
	defer builder.Release()

	dir := writeCorpus(t, map[string]string{
		"station.md": "# Sereleia\nThe Sereleia station orbits Xylos.\n# Aether Core\nThe Aether Core powers the station.\n",
		"harbor.md":  "# Lys Harbor\nLys Harbor is the southern dock.\n",
	})

	ctx := context.Background()
	count, err := builder.Build(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	stored, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stored)
}

func TestBuild_ChunksCarrySectionAndVector(t *testing.T) {
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer backend.Close()

	builder, err := NewBuilder(repo, mock.NewMockEmbedder())
	require.NoError(t, err)
	defer builder.Release()

	dir := writeCorpus(t, map[string]string{
		"doc.md": "# Vance Protocol\nDr. Elara Vance authored the Vance Protocol.\n",
	})

	ctx := context.Background()
	_, err = builder.Build(ctx, dir)
	require.NoError(t, err)

	matches, err := repo.FindSimilar(ctx, make([]float32, 384), 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Vance Protocol", matches[0].Chunk.Section)
	assert.Equal(t, "chunk-0000", matches[0].Chunk.Tag)
	assert.NotEmpty(t, matches[0].Chunk.Vector)
}

func TestBuild_EmptyCorpus(t *testing.T) {
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer backend.Close()

	builder, err := NewBuilder(repo, mock.NewMockEmbedder())
	require.NoError(t, err)
	defer builder.Release()

	_, err = builder.Build(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestEnsure_SkipsPopulatedIndex(t *testing.T) {
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer backend.Close()

	embedder := mock.NewMockEmbedder()
	builder, err := NewBuilder(repo, embedder)
	require.NoError(t, err)
	defer builder.Release()

	dir := writeCorpus(t, map[string]string{
		"doc.md": "# One\nfirst build content\n",
	})

	ctx := context.Background()
	require.NoError(t, builder.Ensure(ctx, dir))
	callsAfterFirst := embedder.CallCount()
	assert.Positive(t, callsAfterFirst)

	// Second Ensure must not re-embed
	require.NoError(t, builder.Ensure(ctx, dir))
	assert.Equal(t, callsAfterFirst, embedder.CallCount())
}

func TestRebuild_ReplacesIndex(t *testing.T) {
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer backend.Close()

	builder, err := NewBuilder(repo, mock.NewMockEmbedder())
	require.NoError(t, err)
	defer builder.Release()

	ctx := context.Background()

	dir := writeCorpus(t, map[string]string{
		"a.md": "# A\ncontent a\n",
		"b.md": "# B\ncontent b\n",
	})
	_, err = builder.Build(ctx, dir)
	require.NoError(t, err)

	smaller := writeCorpus(t, map[string]string{
		"only.md": "# Only\nsingle section\n",
	})
	count, err := builder.Rebuild(ctx, smaller)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stored)
}

func TestNewBuilder_Validation(t *testing.T) {
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer backend.Close()

	t.Run("nil repository", func(t *testing.T) {
		_, err := NewBuilder(nil, mock.NewMockEmbedder())
		assert.ErrorIs(t, err, ErrChunkRepositoryRequired)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewBuilder(repo, nil)
		assert.ErrorIs(t, err, ErrEmbedderRequired)
	})
}
