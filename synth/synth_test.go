package synth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/sift/ai/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSynthesizer_RequiresCompleter(t *testing.T) {
	_, err := NewSynthesizer(nil)
	assert.ErrorIs(t, err, ErrCompleterRequired)
}

func TestGenerate(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.Responses = []string{`{"answer": "The aether core powers the station [L1].", "sources": ["L1"], "confidence": 0.9}`}

	s, err := NewSynthesizer(completer)
	require.NoError(t, err)

	result, err := s.Generate(context.Background(), "What powers the station?",
		"[L1] Aether Core: The aether core powers the station.", "")
	require.NoError(t, err)

	assert.Equal(t, "The aether core powers the station [L1].", result.Answer)
	assert.Equal(t, []string{"L1"}, result.Sources)
	assert.InDelta(t, 0.9, result.Confidence, 0.0001)
	assert.Equal(t, 1, completer.CallCount())
}

func TestGenerate_PromptCarriesEvidence(t *testing.T) {
	completer := mock.NewMockCompleter()
	var captured string
	completer.CompleteFunc = func(ctx context.Context, system, user string) (string, error) {
		captured = user
		return `{"answer": "a", "sources": [], "confidence": 0.5}`, nil
	}

	s, err := NewSynthesizer(completer)
	require.NoError(t, err)

	_, err = s.Generate(context.Background(), "the question", "[L1] S: local text", "[W1] [t] T (u): web text")
	require.NoError(t, err)

	assert.Contains(t, captured, "the question")
	assert.Contains(t, captured, "[L1] S: local text")
	assert.Contains(t, captured, "[W1] [t] T (u): web text")
	assert.Contains(t, captured, "--Local Evidence--")
	assert.Contains(t, captured, "--Web Evidence--")
}

func TestGenerate_EmptyBlocksLabeledAbsent(t *testing.T) {
	completer := mock.NewMockCompleter()
	var captured string
	completer.CompleteFunc = func(ctx context.Context, system, user string) (string, error) {
		captured = user
		return `{"answer": "a", "sources": [], "confidence": 0.5}`, nil
	}

	s, err := NewSynthesizer(completer)
	require.NoError(t, err)

	_, err = s.Generate(context.Background(), "q", "", "")
	require.NoError(t, err)

	assert.Contains(t, captured, "No local evidence.")
	assert.Contains(t, captured, "No web evidence.")
}

func TestGenerate_CodeFencedOutput(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.Responses = []string{"```json\n{\"answer\": \"fenced\", \"sources\": [], \"confidence\": 0.6}\n```"}

	s, err := NewSynthesizer(completer)
	require.NoError(t, err)

	result, err := s.Generate(context.Background(), "q", "", "")
	require.NoError(t, err)
	assert.Equal(t, "fenced", result.Answer)
}

func TestGenerate_RetriesOnParseFailure(t *testing.T) {
	completer := mock.NewMockCompleter()
	var prompts []string
	completer.CompleteFunc = func(ctx context.Context, system, user string) (string, error) {
		prompts = append(prompts, user)
		if len(prompts) == 1 {
			return "I believe the answer is 42.", nil
		}
		return `{"answer": "42", "sources": [], "confidence": 0.7}`, nil
	}

	s, err := NewSynthesizer(completer)
	require.NoError(t, err)

	result, err := s.Generate(context.Background(), "q", "", "")
	require.NoError(t, err)

	require.Len(t, prompts, 2)
	assert.True(t, strings.Contains(prompts[1], "not valid JSON"))
	assert.Equal(t, "42", result.Answer)
}

func TestGenerate_RetryGetsFreshTimeout(t *testing.T) {
	completer := mock.NewMockCompleter()
	var deadlines []time.Time
	completer.CompleteFunc = func(ctx context.Context, system, user string) (string, error) {
		deadline, ok := ctx.Deadline()
		if !ok {
			t.Error("completion context has no deadline")
		}
		deadlines = append(deadlines, deadline)
		if len(deadlines) == 1 {
			time.Sleep(20 * time.Millisecond)
			return "not json", nil
		}
		return `{"answer": "ok", "sources": [], "confidence": 0.5}`, nil
	}

	s, err := NewSynthesizer(completer, WithTimeout(5*time.Second))
	require.NoError(t, err)

	_, err = s.Generate(context.Background(), "q", "", "")
	require.NoError(t, err)

	// The retry's deadline starts from its own call, not the first one's
	require.Len(t, deadlines, 2)
	assert.True(t, deadlines[1].After(deadlines[0]))
}

func TestGenerate_DegradesAfterSecondParseFailure(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.CompleteFunc = func(ctx context.Context, system, user string) (string, error) {
		return "still not json", nil
	}

	s, err := NewSynthesizer(completer)
	require.NoError(t, err)

	result, err := s.Generate(context.Background(), "q", "", "")
	require.NoError(t, err)

	assert.Equal(t, "still not json", result.Answer)
	assert.Empty(t, result.Sources)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestGenerate_TransportErrorPropagates(t *testing.T) {
	completer := mock.NewMockCompleter()
	failure := errors.New("model unreachable")
	completer.CompleteFunc = func(ctx context.Context, system, user string) (string, error) {
		return "", failure
	}

	s, err := NewSynthesizer(completer)
	require.NoError(t, err)

	_, err = s.Generate(context.Background(), "q", "", "")
	assert.ErrorIs(t, err, failure)
}

func TestParseSynthResult(t *testing.T) {
	t.Run("clamps confidence", func(t *testing.T) {
		result, err := parseSynthResult(`{"answer": "a", "sources": [], "confidence": 1.7}`)
		require.NoError(t, err)
		assert.Equal(t, 1.0, result.Confidence)
	})

	t.Run("empty answer replaced", func(t *testing.T) {
		result, err := parseSynthResult(`{"answer": "", "sources": [], "confidence": 0.5}`)
		require.NoError(t, err)
		assert.NotEmpty(t, result.Answer)
	})

	t.Run("repairs missing key quote", func(t *testing.T) {
		result, err := parseSynthResult(`{"answer": "a", sources": [], "confidence": 0.5}`)
		require.NoError(t, err)
		assert.Equal(t, "a", result.Answer)
	})

	t.Run("rejects prose", func(t *testing.T) {
		_, err := parseSynthResult("just some text")
		assert.Error(t, err)
	})
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"json fence", "```json\n{}\n```", "{}"},
		{"bare fence", "```\n{}\n```", "{}"},
		{"no fence", "{}", "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripFences(tt.input))
		})
	}
}
