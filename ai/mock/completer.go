package mock

import "context"

// MockCompleter is a test double for ai.Completer.
// It allows custom behavior injection via function fields, or a scripted
// sequence of responses replayed in order.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	// If nil, scripted Responses are replayed; once exhausted, an empty
	// JSON object is returned.
	CompleteFunc func(ctx context.Context, system, user string) (string, error)

	// Responses is an optional queue of completions replayed in order.
	Responses []string

	callCount int
}

// NewMockCompleter creates a mock completer with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockCompleter().
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// Complete returns the injected or scripted completion.
func (m *MockCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	index := m.callCount
	m.callCount++

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, system, user)
	}

	if index < len(m.Responses) {
		return m.Responses[index], nil
	}

	return "{}", nil
}

// CallCount returns the number of times Complete was called.
func (m *MockCompleter) CallCount() int {
	return m.callCount
}

// Reset clears the call count and any injected behavior.
func (m *MockCompleter) Reset() {
	m.callCount = 0
	m.CompleteFunc = nil
	m.Responses = nil
}
