package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/thesathwik/brainstorm-buddy/internal/resilience"
)

const (
	defaultModel          = "gpt-4o-mini"
	defaultRequestTimeout = 60 * time.Second
)

// OpenAIConfig configures the OpenAI-backed completion service.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	RequestTimeout time.Duration
}

// OpenAIService implements CompletionService against the OpenAI chat
// completions API. Retries are handled by the resilience coordinator, not by
// the SDK, so the client is created with SDK retries disabled.
type OpenAIService struct {
	client openaigo.Client
	model  string
}

func NewOpenAIService(cfg OpenAIConfig) (*OpenAIService, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.RequestTimeout),
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")))
	}

	return &OpenAIService{
		client: openaigo.NewClient(opts...),
		model:  cfg.Model,
	}, nil
}

// AnalyzeText runs an analysis prompt over the given text.
func (s *OpenAIService) AnalyzeText(ctx context.Context, text, prompt string) (Result, error) {
	return s.complete(ctx,
		prompt,
		text,
	)
}

// GenerateResponse drafts a response for the given prompt, optionally
// grounded in conversation context.
func (s *OpenAIService) GenerateResponse(ctx context.Context, prompt, conversationContext string) (Result, error) {
	user := prompt
	if strings.TrimSpace(conversationContext) != "" {
		user = fmt.Sprintf("Conversation context:\n%s\n\n%s", conversationContext, prompt)
	}
	return s.complete(ctx,
		"You are a professional moderation assistant for venture-capital brainstorming sessions. Keep responses concise and professionally toned.",
		user,
	)
}

// IsHealthy performs a lightweight round-trip probe.
func (s *OpenAIService) IsHealthy(ctx context.Context) error {
	res, err := s.complete(ctx, "Reply with the single word: ok", "ping")
	if err != nil {
		return err
	}
	if strings.TrimSpace(res.Content) == "" {
		return errors.New("health probe returned empty response")
	}
	return nil
}

func (s *OpenAIService) complete(ctx context.Context, system, user string) (Result, error) {
	resp, err := s.client.Chat.Completions.New(ctx, openaigo.ChatCompletionNewParams{
		Model: openaigo.ChatModel(s.model),
		Messages: []openaigo.ChatCompletionMessageParamUnion{
			openaigo.SystemMessage(system),
			openaigo.UserMessage(user),
		},
	})
	if err != nil {
		return Result{}, classifyAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, resilience.WithKind(resilience.KindParse, errors.New("completion returned no choices"))
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	return Result{
		Content:    content,
		Confidence: ScoreConfidence(content),
		Usage: Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

// classifyAPIError tags SDK errors with a resilience kind based on the HTTP
// status, so the coordinator never has to sniff OpenAI error strings.
func classifyAPIError(err error) error {
	var apiErr *openaigo.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
		return resilience.WithKind(resilience.KindAuth, err)
	case apiErr.StatusCode == http.StatusTooManyRequests:
		return resilience.WithKind(resilience.KindRateLimit, err)
	case apiErr.StatusCode >= 500:
		return resilience.WithKind(resilience.KindNetwork, err)
	default:
		return err
	}
}
