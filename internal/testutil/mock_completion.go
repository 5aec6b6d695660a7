package testutil

import (
	"context"
	"sync"

	"github.com/thesathwik/brainstorm-buddy/internal/llm"
)

// MockCompletion is a scripted implementation of llm.CompletionService.
// Errs are consumed in order, one per call; once exhausted, calls succeed
// with the configured content.
type MockCompletion struct {
	mu sync.Mutex

	AnalyzeContent  string
	GenerateContent string
	Errs            []error
	HealthErr       error

	AnalyzeCalls  int
	GenerateCalls int
	HealthCalls   int
}

func NewMockCompletion() *MockCompletion {
	return &MockCompletion{
		AnalyzeContent:  `{"result": "ok"}`,
		GenerateContent: "Here is a suggestion to keep things moving.",
	}
}

func (m *MockCompletion) nextErr() error {
	if len(m.Errs) == 0 {
		return nil
	}
	err := m.Errs[0]
	m.Errs = m.Errs[1:]
	return err
}

func (m *MockCompletion) AnalyzeText(_ context.Context, text, prompt string) (llm.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AnalyzeCalls++
	if err := m.nextErr(); err != nil {
		return llm.Result{}, err
	}
	return llm.Result{
		Content:    m.AnalyzeContent,
		Confidence: llm.ScoreConfidence(m.AnalyzeContent),
		Usage:      llm.Usage{InputTokens: len(text) / 4, OutputTokens: len(m.AnalyzeContent) / 4},
	}, nil
}

func (m *MockCompletion) GenerateResponse(_ context.Context, prompt, conversationContext string) (llm.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateCalls++
	if err := m.nextErr(); err != nil {
		return llm.Result{}, err
	}
	return llm.Result{
		Content:    m.GenerateContent,
		Confidence: llm.ScoreConfidence(m.GenerateContent),
		Usage:      llm.Usage{InputTokens: len(prompt) / 4, OutputTokens: len(m.GenerateContent) / 4},
	}, nil
}

func (m *MockCompletion) IsHealthy(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HealthCalls++
	return m.HealthErr
}

// TotalCalls returns analyze plus generate invocations.
func (m *MockCompletion) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AnalyzeCalls + m.GenerateCalls
}

// FailWith schedules errs to be returned by the next calls, in order.
func (m *MockCompletion) FailWith(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errs = append(m.Errs, errs...)
}
