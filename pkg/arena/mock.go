package arena

import (
	"context"
	"sync"
)

// MockClient is a Client for tests. It records every result it is given
// and can be told to fail.
type MockClient struct {
	mu      sync.Mutex
	Results []RaceResult
	Err     error
}

// NewMockClient creates a new MockClient.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// RecordRace stores the result, or returns the configured error.
func (m *MockClient) RecordRace(_ context.Context, result RaceResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Results = append(m.Results, result)
	return nil
}

// Recorded returns a copy of the results seen so far.
func (m *MockClient) Recorded() []RaceResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RaceResult(nil), m.Results...)
}

var _ Client = (*MockClient)(nil)
