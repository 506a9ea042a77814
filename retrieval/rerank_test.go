package retrieval

import (
	"testing"
	"time"

	"github.com/poiesic/sift/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRerankLocal_LexicalMatchWins(t *testing.T) {
	items := []core.LocalEvidence{
		{ChunkId: "chunk-0000", Text: "completely unrelated text about weather patterns", Score: 0.81},
		{ChunkId: "chunk-0001", Text: "the aether core powers the sereleia station", Score: 0.80},
	}

	reranked := rerankLocal("aether core sereleia", items)
	require.Len(t, reranked, 2)
	assert.Equal(t, "chunk-0001", reranked[0].ChunkId)
}

func TestRerankLocal_Empty(t *testing.T) {
	assert.Empty(t, rerankLocal("query", nil))
}

func TestRerankLocal_VerbatimBoost(t *testing.T) {
	items := []core.LocalEvidence{
		{ChunkId: "a", Text: "vance protocol described in full", Score: 0.5},
		{ChunkId: "b", Text: "vance alone without the rest", Score: 0.5},
	}

	reranked := rerankLocal("vance protocol", items)
	assert.Equal(t, "a", reranked[0].ChunkId)
	assert.Greater(t, reranked[0].Score, reranked[1].Score)
}

func TestRerankWeb_RecentAuthoritativeWins(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	items := []core.WebEvidence{
		{
			URL:   "https://randomblog.xyz/post",
			Time:  now.AddDate(-3, 0, 0).Format(time.RFC3339),
			Score: 0.5,
		},
		{
			URL:   "https://en.wikipedia.org/wiki/Topic",
			Time:  now.AddDate(0, 0, -5).Format(time.RFC3339),
			Score: 0.5,
		},
	}

	reranked := rerankWeb(items, now)
	assert.Contains(t, reranked[0].URL, "wikipedia.org")
}

func TestRecencyScore(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		published string
		expected  float64
	}{
		{"fresh", now.AddDate(0, 0, -10).Format(time.RFC3339), 1.0},
		{"one year old", now.AddDate(-2, 0, 0).Format(time.RFC3339), 0.1},
		{"missing", "", 0.5},
		{"unparsable", "not a date", 0.5},
		{"date only", now.AddDate(0, 0, -3).Format("2006-01-02"), 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, recencyScore(tt.published, now), 0.0001)
		})
	}
}

func TestRecencyScore_LinearDecay(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	halfYear := now.AddDate(0, 0, -200).Format(time.RFC3339)

	score := recencyScore(halfYear, now)
	assert.Less(t, score, 1.0)
	assert.Greater(t, score, 0.1)
}

func TestAuthorityScore(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected float64
	}{
		{"wikipedia", "https://en.wikipedia.org/wiki/Go", 1.0},
		{"arxiv", "https://arxiv.org/abs/1234.5678", 1.0},
		{"edu", "https://cs.stanford.edu/page", 0.9},
		{"gov", "https://www.nasa.gov/news", 0.9},
		{"org", "https://example.org/about", 0.7},
		{"com", "https://example.com/page", 0.6},
		{"net", "http://example.net", 0.6},
		{"other tld", "https://example.xyz", 0.5},
		{"empty", "", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, authorityScore(tt.url), 0.0001)
		})
	}
}

func TestComputeBM25Scores(t *testing.T) {
	docs := []string{
		"the aether core powers the station",
		"weather patterns over the ocean",
	}

	scores := computeBM25Scores("aether core", docs)
	require.Len(t, scores, 2)
	assert.Equal(t, 1.0, scores[0])
	assert.Equal(t, 0.0, scores[1])
}

func TestComputeBM25Scores_EmptyQuery(t *testing.T) {
	scores := computeBM25Scores("", []string{"some document"})
	require.Len(t, scores, 1)
	assert.Equal(t, 0.0, scores[0])
}

func TestNormalizeScores(t *testing.T) {
	t.Run("spread", func(t *testing.T) {
		normalized := normalizeScores([]float64{0.2, 0.6, 1.0})
		require.Len(t, normalized, 3)
		assert.InDelta(t, 0.0, normalized[0], 0.0001)
		assert.InDelta(t, 0.5, normalized[1], 0.0001)
		assert.InDelta(t, 1.0, normalized[2], 0.0001)
	})

	t.Run("flat distribution", func(t *testing.T) {
		normalized := normalizeScores([]float64{0.4, 0.4})
		assert.Equal(t, []float64{1, 1}, normalized)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, normalizeScores(nil))
	})
}

func TestBM25Tokenize(t *testing.T) {
	terms := bm25Tokenize("The Aether-Core, v2!")
	assert.Equal(t, []string{"the", "aether", "core", "v2"}, terms)
}

func TestContainsAllQueryWords(t *testing.T) {
	tests := []struct {
		name     string
		document string
		query    string
		expected bool
	}{
		{"all present", "the vance protocol governs the aether core", "vance protocol", true},
		{"partial", "only vance appears here", "vance protocol", false},
		{"stop words ignored", "protocol text", "the protocol", true},
		{"empty query", "document", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, containsAllQueryWords(tt.document, tt.query))
		})
	}
}
