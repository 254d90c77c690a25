package llm

import (
	"context"
	"sync"
)

// MockClient is a test double for the LLM Client interface.
// It also backs the "mock" provider for offline runs.
type MockClient struct {
	Response *Response
	Err      error

	// Responses, when set, are returned in order; the last one repeats.
	Responses []*Response

	mu    sync.Mutex
	Calls []string // records prompts sent
}

// Complete records the call and returns the mock response.
func (m *MockClient) Complete(ctx context.Context, prompt string) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, prompt)
	if m.Err != nil {
		return nil, m.Err
	}
	if n := len(m.Responses); n > 0 {
		i := len(m.Calls) - 1
		if i >= n {
			i = n - 1
		}
		return m.Responses[i], nil
	}
	return m.Response, nil
}

// CallCount reports how many prompts were sent.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
