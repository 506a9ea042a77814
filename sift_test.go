package sift

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/sift/ai/mock"
	"github.com/poiesic/sift/core"
	"github.com/poiesic/sift/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestDocs(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	doc := `# Aether Core

The aether core is the primary power source of Lys Harbor station.

# Vance Protocol

The Vance Protocol governs emergency containment procedures.
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lore.md"), []byte(doc), 0o644))
	return dir
}

func newTestService(t *testing.T, completer *mock.MockCompleter, opts ...ServiceOption) *Service {
	t.Helper()

	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), completer)
	opts = append([]ServiceOption{
		WithInMemoryStorage(),
		WithProvider(provider),
		WithDocsDir(writeTestDocs(t)),
	}, opts...)

	service, err := NewService("", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { service.Close() })
	return service
}

func TestService_EnsureIndex(t *testing.T) {
	service := newTestService(t, mock.NewMockCompleter())

	assert.False(t, service.Ready())
	require.NoError(t, service.EnsureIndex(context.Background()))
	assert.True(t, service.Ready())

	count, err := service.ChunkRepository().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestService_RebuildIndex(t *testing.T) {
	service := newTestService(t, mock.NewMockCompleter())

	require.NoError(t, service.EnsureIndex(context.Background()))

	count, err := service.RebuildIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestService_Route(t *testing.T) {
	service := newTestService(t, mock.NewMockCompleter())

	decision := service.Route(context.Background(), "What is the aether core?")
	assert.Equal(t, core.PolicyLocal, decision.Policy)

	decision = service.Route(context.Background(), "latest fusion results")
	assert.Equal(t, core.PolicyWeb, decision.Policy)
}

func TestService_Answer_Local(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.Responses = []string{
		`{"answer": "The aether core powers Lys Harbor [L1].", "sources": ["L1"], "confidence": 0.9}`,
	}
	service := newTestService(t, completer)
	require.NoError(t, service.EnsureIndex(context.Background()))

	resp := service.Answer(context.Background(), "What is the aether core?")
	require.NotNil(t, resp)

	assert.Equal(t, "The aether core powers Lys Harbor [L1].", resp.Answer)
	assert.Equal(t, core.PolicyLocal, resp.Routing.Policy)
	assert.InDelta(t, 0.9, resp.Confidence, 0.0001)
	assert.NotEmpty(t, resp.Sources)
}

func TestService_Answer_WebUnconfigured(t *testing.T) {
	// No search client and no API key: a web-routed query degrades to
	// an explicit unconfigured answer.
	service := newTestService(t, mock.NewMockCompleter())
	require.NoError(t, service.EnsureIndex(context.Background()))

	resp := service.Answer(context.Background(), "latest fusion results")
	require.NotNil(t, resp)

	assert.Equal(t, core.PolicyWeb, resp.Routing.Policy)
	assert.Contains(t, resp.Answer, "not configured")
	assert.Equal(t, 0.0, resp.Confidence)
}

func TestNewService_Options(t *testing.T) {
	t.Run("custom keywords replace defaults", func(t *testing.T) {
		service := newTestService(t, mock.NewMockCompleter(),
			WithKeywords([]string{"gloamwood"}, []string{"scorecast"}))

		decision := service.Route(context.Background(), "tell me about gloamwood")
		assert.Equal(t, core.PolicyLocal, decision.Policy)

		decision = service.Route(context.Background(), "scorecast for tonight")
		assert.Equal(t, core.PolicyWeb, decision.Policy)

		// The default local keyword no longer short-circuits; the
		// classifier's empty mock reply degrades to hybrid.
		decision = service.Route(context.Background(), "What is the aether core?")
		assert.Equal(t, core.PolicyHybrid, decision.Policy)
	})

	t.Run("top-k bounds returned sources", func(t *testing.T) {
		completer := mock.NewMockCompleter()
		completer.Responses = []string{
			`{"answer": "a", "sources": [], "confidence": 0.5}`,
		}
		service := newTestService(t, completer, WithTopK(1))
		require.NoError(t, service.EnsureIndex(context.Background()))

		resp := service.Answer(context.Background(), "What is the aether core?")
		require.NotNil(t, resp)
		assert.Len(t, resp.Sources, 1)
	})

	t.Run("cache ttl and call timeout accepted", func(t *testing.T) {
		completer := mock.NewMockCompleter()
		completer.Responses = []string{
			`{"answer": "a", "sources": [], "confidence": 0.5}`,
		}
		service := newTestService(t, completer,
			WithCacheTTL(time.Minute),
			WithCallTimeout(2*time.Second),
		)
		require.NoError(t, service.EnsureIndex(context.Background()))

		resp := service.Answer(context.Background(), "What is the aether core?")
		require.NotNil(t, resp)
		assert.Equal(t, "a", resp.Answer)
	})
}

func TestService_MalformedGenerationDegradesOverHTTP(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.CompleteFunc = func(ctx context.Context, system, user string) (string, error) {
		return "the model rambled instead of answering in JSON", nil
	}
	service := newTestService(t, completer)
	require.NoError(t, service.EnsureIndex(context.Background()))

	srv, err := server.NewServer(service, service)
	require.NoError(t, err)
	srv.SetReady(true)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/agent/answer",
		strings.NewReader(`{"q": "What is the aether core?"}`))
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Answer     string  `json:"answer"`
		Confidence float64 `json:"confidence"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "the model rambled instead of answering in JSON", payload.Answer)
	assert.Equal(t, 0.0, payload.Confidence)
}

func TestService_Answer_BeforeIndexLoad(t *testing.T) {
	service := newTestService(t, mock.NewMockCompleter())

	resp := service.Answer(context.Background(), "What is the aether core?")
	require.NotNil(t, resp)

	assert.Contains(t, resp.Answer, "index")
	assert.Equal(t, 0.0, resp.Confidence)
}
