package llm

import "context"

// Usage reports token consumption for one completion call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Result is the uniform shape returned by every completion operation.
// Confidence is computed locally from response structure, not by the service.
type Result struct {
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
	Usage      Usage   `json:"usage"`
}

// CompletionService is the boundary to the language-model API.
// The concrete implementation is *OpenAIService; tests use a scripted mock.
type CompletionService interface {
	AnalyzeText(ctx context.Context, text, prompt string) (Result, error)
	GenerateResponse(ctx context.Context, prompt, conversationContext string) (Result, error)
	IsHealthy(ctx context.Context) error
}

// ScoreConfidence computes the local confidence heuristic for a response:
// base 0.7, +0.1 for length over 100 chars, +0.1 over 500 chars, +0.1 when
// the text contains newlines or list markers, capped at 1.0. Empty text
// scores zero.
func ScoreConfidence(text string) float64 {
	if len(text) == 0 {
		return 0
	}
	score := 0.7
	if len(text) > 100 {
		score += 0.1
	}
	if len(text) > 500 {
		score += 0.1
	}
	if hasStructure(text) {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func hasStructure(text string) bool {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			return true
		case '-', '*':
			// List markers count at the start of the text or after a newline;
			// a lone dash mid-sentence does not.
			if i == 0 {
				return true
			}
		}
	}
	return false
}
