package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/thesathwik/brainstorm-buddy/internal/resilience"
)

// Operation names used for cache keys and fallback registration.
const (
	OpAnalyzeText      = "analyze_text"
	OpGenerateResponse = "generate_response"
	OpHealthCheck      = "health_check"
)

var errOfflineMode = resilience.WithKind(resilience.KindCapability,
	errors.New("completion service forced offline"))

// responseTemplates is the fixed set of neutral replies used by the
// template fallback for generation requests.
var responseTemplates = []string{
	"Let me make sure we capture that point — could someone expand on it?",
	"That's worth noting. Shall we keep the current thread going?",
	"Noted. I'll follow up with more detail once I can verify the specifics.",
	"Good discussion so far. Let's make sure we stay aligned on the agenda.",
}

// ClientConfig tunes the resilient completion client.
type ClientConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	// Local request budget against the completion API.
	RequestsPerSecond float64
	Burst             int
}

func (c ClientConfig) withDefaults() ClientConfig {
	out := c
	if out.CacheTTL <= 0 {
		out.CacheTTL = 5 * time.Minute
	}
	if out.RequestsPerSecond <= 0 {
		out.RequestsPerSecond = 5
	}
	if out.Burst <= 0 {
		out.Burst = 10
	}
	return out
}

// ResilientClient presents the CompletionService contract while adding
// caching, retry/backoff via the resilience coordinator, a local rate
// budget, and fallback strategies for when the service is down.
type ResilientClient struct {
	service CompletionService
	coord   *resilience.Coordinator
	cache   *responseCache
	limiter *rate.Limiter

	cacheEnabled bool

	mu      sync.Mutex
	offline bool
	online  bool
}

func NewResilientClient(service CompletionService, coord *resilience.Coordinator, cfg ClientConfig) *ResilientClient {
	cfg = cfg.withDefaults()
	c := &ResilientClient{
		service:      service,
		coord:        coord,
		cache:        newResponseCache(cfg.CacheTTL),
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		cacheEnabled: cfg.CacheEnabled,
		online:       true,
	}
	c.registerFallbacks()
	return c
}

// registerFallbacks wires the recovery chain, tried in registration order:
// same-operation cache scan, then canned degraded output, then (for
// generation) a neutral template.
func (c *ResilientClient) registerFallbacks() {
	for _, op := range []string{OpAnalyzeText, OpGenerateResponse} {
		op := op
		c.coord.RegisterFallback(op, resilience.Fallback{
			Description: "reuse a recent cached response for the same operation",
			Kind:        resilience.FallbackCache,
			Run: func(context.Context) (any, error) {
				if r, ok := c.cache.anyForOp(op); ok {
					return r, nil
				}
				return nil, errors.New("no cached response available")
			},
		})
	}

	c.coord.RegisterFallback(OpAnalyzeText, resilience.Fallback{
		Description: "canned low-confidence analysis",
		Kind:        resilience.FallbackDegraded,
		Run: func(context.Context) (any, error) {
			return Result{
				Content:    `{"entities":[],"sentiment":"neutral","topics":[],"note":"analysis degraded"}`,
				Confidence: 0.2,
			}, nil
		},
	})

	c.coord.RegisterFallback(OpGenerateResponse, resilience.Fallback{
		Description: "neutral response template",
		Kind:        resilience.FallbackTemplate,
		Run: func(context.Context) (any, error) {
			text := responseTemplates[rand.Intn(len(responseTemplates))]
			return Result{Content: text, Confidence: 0.3}, nil
		},
	})
}

// AnalyzeText serves from cache when possible; otherwise the call runs under
// the coordinator's retry/fallback policy and successful results are cached.
func (c *ResilientClient) AnalyzeText(ctx context.Context, text, prompt string) (Result, error) {
	return c.call(ctx, OpAnalyzeText, cacheKey(OpAnalyzeText, text, prompt), func(ctx context.Context) (Result, error) {
		return c.service.AnalyzeText(ctx, text, prompt)
	})
}

// GenerateResponse serves from cache when possible; otherwise the call runs
// under the coordinator's retry/fallback policy.
func (c *ResilientClient) GenerateResponse(ctx context.Context, prompt, conversationContext string) (Result, error) {
	return c.call(ctx, OpGenerateResponse, cacheKey(OpGenerateResponse, prompt, conversationContext), func(ctx context.Context) (Result, error) {
		return c.service.GenerateResponse(ctx, prompt, conversationContext)
	})
}

func (c *ResilientClient) call(ctx context.Context, op, key string, fn func(ctx context.Context) (Result, error)) (Result, error) {
	// Fast path: a fresh cache hit short-circuits before any retry logic.
	if c.cacheEnabled {
		if r, ok := c.cache.get(key); ok {
			return r, nil
		}
	}

	out, fromFallback, err := c.coord.ExecuteTracked(ctx, op, func(ctx context.Context) (any, error) {
		if c.OfflineMode() {
			return nil, errOfflineMode
		}
		if !c.limiter.Allow() {
			return nil, resilience.WithKind(resilience.KindLocalBudget,
				errors.New("local completion request budget exceeded"))
		}
		return fn(ctx)
	})
	if err != nil {
		return Result{}, err
	}

	r, ok := out.(Result)
	if !ok {
		return Result{}, fmt.Errorf("%s: unexpected result type %T", op, out)
	}

	// Only primary results are cached. Caching fallback output would keep
	// serving canned responses for the full TTL after the service recovers.
	if c.cacheEnabled && !fromFallback {
		c.cache.put(op, key, r)
	}
	return r, nil
}

// IsHealthy probes the underlying service through the coordinator. It never
// returns an error; a failed probe flips the client offline-visible flag.
func (c *ResilientClient) IsHealthy(ctx context.Context) bool {
	if c.OfflineMode() {
		return false
	}

	_, err := c.coord.Execute(ctx, OpHealthCheck, func(ctx context.Context) (any, error) {
		return nil, c.service.IsHealthy(ctx)
	})

	c.mu.Lock()
	c.online = err == nil
	c.mu.Unlock()

	if err != nil {
		slog.Warn("completion service health probe failed", "error", err)
	}
	return err == nil
}

// SetOfflineMode forces fallback-only behavior regardless of service health.
func (c *ResilientClient) SetOfflineMode(offline bool) {
	c.mu.Lock()
	c.offline = offline
	c.mu.Unlock()
	slog.Info("completion client offline mode changed", "offline", offline)
}

// OfflineMode reports whether fallback-only behavior is forced.
func (c *ResilientClient) OfflineMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offline
}

// Online reports the result of the most recent health probe.
func (c *ResilientClient) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// ClearCache drops all cached responses.
func (c *ResilientClient) ClearCache() {
	c.cache.clear()
}

// CacheStats reports entry counts, approximate size, and hit rate.
func (c *ResilientClient) CacheStats() CacheStats {
	return c.cache.stats()
}
