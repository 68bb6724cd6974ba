package executor

import (
	"context"
	"fmt"
	"sync"

	datasource "github.com/michael-watson/federation/internal/datasource"
)

// MockDataSource scripts subgraph responses for tests. Responses are served
// in order unless ProcessFunc is set; every call is recorded.
type MockDataSource struct {
	mu          sync.Mutex
	next        int
	Responses   []*datasource.Response
	ProcessFunc func(ctx context.Context, opts *datasource.ProcessOptions) (*datasource.Response, error)
	Calls       []*datasource.ProcessOptions
}

var _ datasource.SubgraphDataSource = (*MockDataSource)(nil)

func NewMockDataSource(responses ...*datasource.Response) *MockDataSource {
	return &MockDataSource{Responses: responses}
}

func (m *MockDataSource) Process(ctx context.Context, opts *datasource.ProcessOptions) (*datasource.Response, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, opts)
	index := m.next
	m.next++
	m.mu.Unlock()

	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, opts)
	}
	if index >= len(m.Responses) {
		return nil, fmt.Errorf("mock: unexpected call %d", index)
	}
	return m.Responses[index], nil
}

// CallCount reports how many operations were dispatched.
func (m *MockDataSource) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// SentVariables returns the variables of the i-th dispatched operation.
func (m *MockDataSource) SentVariables(i int) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i >= len(m.Calls) {
		return nil
	}
	return m.Calls[i].Request.Variables
}
