package summon

import (
	"context"
	"log/slog"
	"strings"

	"github.com/thesathwik/brainstorm-buddy/internal/chat"
	"github.com/thesathwik/brainstorm-buddy/internal/llm"
)

// clarityThreshold is the floor below which a request needs clarification.
const clarityThreshold = 0.5

const intentPrompt = `Summarize in at most five words what the user wants from a VC meeting assistant. Reply with the summary only.`

var questionWords = []string{"what", "when", "where", "who", "why", "how", "which"}

var greetingWords = []string{"hello", "hi ", "hey ", "good morning", "good afternoon", "greetings"}

var hedgingMarkers = []string{"maybe", "not sure", "whatever", "i guess", "kind of", "sort of", "possibly"}

var valuationTerms = []string{"valuation", "worth", "price", "multiple", "cap", "dilution"}

var companyTerms = []string{"company", "startup", "founder", "team", "product", "traction"}

// Completions is the slice of the completion client the analyzer needs.
type Completions interface {
	AnalyzeText(ctx context.Context, text, prompt string) (llm.Result, error)
}

// Analyzer classifies direct requests to the assistant.
type Analyzer struct {
	client Completions
}

func NewAnalyzer(client Completions) *Analyzer {
	return &Analyzer{client: client}
}

// Analyze classifies the summon's question type, scores its clarity, and
// decides how the assistant should respond.
func (a *Analyzer) Analyze(ctx context.Context, res chat.SummonResult, msg chat.ChatMessage, cc chat.ConversationContext) chat.SummonAnalysis {
	request := res.ExtractedRequest
	qt := classifyQuestion(request)
	clarity := scoreClarity(request, cc.CurrentTopic)

	// Greetings never need clarification.
	requires := qt != chat.QuestionGreeting &&
		(strings.TrimSpace(request) == "" || clarity < clarityThreshold)

	return chat.SummonAnalysis{
		QuestionType:          qt,
		QuestionClarity:       clarity,
		Intent:                a.extractIntent(ctx, request),
		RequiresClarification: requires,
		ResponseType:          DetermineResponseType(qt, clarity),
	}
}

func classifyQuestion(request string) chat.QuestionType {
	lower := strings.ToLower(strings.TrimSpace(request)) + " "

	for _, g := range greetingWords {
		if strings.HasPrefix(lower, g) {
			return chat.QuestionGreeting
		}
	}
	if strings.Contains(lower, "what do you think") || strings.Contains(lower, "your opinion") || strings.Contains(lower, "thoughts on") {
		return chat.QuestionOpinion
	}
	if strings.Contains(lower, "help") {
		return chat.QuestionHelp
	}
	if strings.Contains(lower, "tell me about") || strings.Contains(lower, "information on") || strings.Contains(lower, "details on") {
		return chat.QuestionInfoRequest
	}
	if strings.Contains(request, "?") {
		return chat.QuestionDirect
	}
	for _, w := range questionWords {
		if strings.HasPrefix(lower, w+" ") {
			return chat.QuestionDirect
		}
	}
	if strings.TrimSpace(request) == "" {
		return chat.QuestionUnclear
	}
	return chat.QuestionUnclear
}

// scoreClarity combines explicit question markers, specificity, and topic
// overlap, penalized by hedging language. Result is in [0, 1].
func scoreClarity(request, currentTopic string) float64 {
	trimmed := strings.TrimSpace(request)
	if trimmed == "" {
		return 0
	}
	lower := strings.ToLower(trimmed)

	score := 0.2
	if strings.Contains(trimmed, "?") {
		score += 0.3
	} else {
		for _, w := range questionWords {
			if strings.HasPrefix(lower, w+" ") {
				score += 0.3
				break
			}
		}
	}
	if len(strings.Fields(trimmed)) >= 5 {
		score += 0.2
	}
	if currentTopic != "" && strings.Contains(lower, strings.ToLower(currentTopic)) {
		score += 0.2
	}
	for _, h := range hedgingMarkers {
		if strings.Contains(lower, h) {
			score -= 0.15
		}
	}
	return clamp(score, 0, 1)
}

// DetermineResponseType is a pure mapping from question type and clarity to
// the shape of response the generator should produce.
func DetermineResponseType(qt chat.QuestionType, clarity float64) chat.ResponseType {
	switch qt {
	case chat.QuestionGreeting:
		return chat.ResponseAcknowledgment
	case chat.QuestionInfoRequest:
		return chat.ResponseInfoRequest
	case chat.QuestionUnclear:
		return chat.ResponseClarificationNeeded
	}
	if clarity < clarityThreshold {
		return chat.ResponseClarificationNeeded
	}
	return chat.ResponseDirectAnswer
}

// extractIntent prefers a model call; short input and model failures fall
// back to keyword buckets.
func (a *Analyzer) extractIntent(ctx context.Context, request string) string {
	trimmed := strings.TrimSpace(request)
	if len(trimmed) >= 10 {
		res, err := a.client.AnalyzeText(ctx, trimmed, intentPrompt)
		if err == nil && strings.TrimSpace(res.Content) != "" {
			return strings.TrimSpace(res.Content)
		}
		if err != nil {
			slog.Debug("intent extraction failed, using keyword buckets", "error", err)
		}
	}

	lower := strings.ToLower(trimmed)
	for _, t := range valuationTerms {
		if strings.Contains(lower, t) {
			return "valuation help"
		}
	}
	for _, t := range companyTerms {
		if strings.Contains(lower, t) {
			return "company analysis"
		}
	}
	return "unclear intent"
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
