package llm

import (
	"context"
	"sync"
)

// MockClient is a test double for the Client interface.
type MockClient struct {
	Response *Response
	Err      error

	// Fn, when set, overrides Response/Err per call. It receives the call
	// index (0-based) so tests can fail or delay specific calls.
	Fn func(ctx context.Context, call int, req Request) (*Response, error)

	mu    sync.Mutex
	Calls []Request // records requests sent
}

// Complete records the call and returns the mock response.
func (m *MockClient) Complete(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	call := len(m.Calls)
	m.Calls = append(m.Calls, req)
	m.mu.Unlock()

	if m.Fn != nil {
		return m.Fn(ctx, call, req)
	}
	return m.Response, m.Err
}

// CallCount returns the number of completions issued so far.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
