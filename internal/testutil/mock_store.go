package testutil

import (
	"context"
	"sync"

	"github.com/thesathwik/brainstorm-buddy/internal/chat"
)

// MockStore is a thread-safe in-memory implementation of store.DataStore for testing.
type MockStore struct {
	mu sync.Mutex

	Messages      []chat.ProcessedMessage
	Interventions []chat.InterventionRecord

	InsertMessagesErr     error
	InsertInterventionErr error
	QueryErr              error

	InsertMessagesCalls     int
	InsertInterventionCalls int
	QueryCalls              int
}

func NewMockStore() *MockStore {
	return &MockStore{
		Messages:      make([]chat.ProcessedMessage, 0),
		Interventions: make([]chat.InterventionRecord, 0),
	}
}

func (m *MockStore) InsertMessages(_ context.Context, msgs []chat.ProcessedMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertMessagesCalls++
	if m.InsertMessagesErr != nil {
		return m.InsertMessagesErr
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockStore) InsertIntervention(_ context.Context, rec chat.InterventionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertInterventionCalls++
	if m.InsertInterventionErr != nil {
		return m.InsertInterventionErr
	}
	m.Interventions = append(m.Interventions, rec)
	return nil
}

func (m *MockStore) QueryInterventions(_ context.Context, sessionID string, limit int) ([]chat.InterventionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryCalls++
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	if limit <= 0 {
		limit = 50
	}
	var results []chat.InterventionRecord
	for i := len(m.Interventions) - 1; i >= 0 && len(results) < limit; i-- {
		if m.Interventions[i].SessionID == sessionID {
			results = append(results, m.Interventions[i])
		}
	}
	return results, nil
}

func (m *MockStore) Close() {}

// MessageCount returns total processed messages stored.
func (m *MockStore) MessageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Messages)
}

// InterventionCount returns total intervention records stored.
func (m *MockStore) InterventionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Interventions)
}
