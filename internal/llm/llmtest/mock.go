// Package llmtest provides a scripted llm.Completer for tests.
package llmtest

import (
	"context"
	"sync"

	"nutribyte/fitness-app/internal/llm"
)

// MockCompleter returns scripted responses in order. Once the script runs out
// the last entry is repeated.
type MockCompleter struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	requests  []llm.Request

	// Hook runs before each call returns, when set.
	Hook func(ctx context.Context, req llm.Request)
}

// NewMockCompleter returns a completer answering with the given contents.
func NewMockCompleter(responses ...string) *MockCompleter {
	return &MockCompleter{responses: responses}
}

// NewFailingCompleter returns a completer that always fails with err.
func NewFailingCompleter(err error) *MockCompleter {
	return &MockCompleter{errs: []error{err}}
}

// Complete implements llm.Completer.
func (m *MockCompleter) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	idx := m.calls
	m.calls++
	m.requests = append(m.requests, req)
	hook := m.Hook
	m.mu.Unlock()

	if hook != nil {
		hook(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, llm.NewTransientError(err)
	}

	if len(m.errs) > 0 {
		if err := m.errs[min(idx, len(m.errs)-1)]; err != nil {
			return nil, err
		}
	}
	if len(m.responses) == 0 {
		return nil, llm.NewTransientError(llm.ErrEmptyCompletion)
	}
	return &llm.Response{
		Content:      m.responses[min(idx, len(m.responses)-1)],
		Model:        "mock",
		FinishReason: "stop",
	}, nil
}

// Calls returns the number of Complete invocations.
func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastRequest returns the most recent request, or the zero value.
func (m *MockCompleter) LastRequest() llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return llm.Request{}
	}
	return m.requests[len(m.requests)-1]
}
