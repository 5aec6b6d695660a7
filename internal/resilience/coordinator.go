package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Operation is a unit of work executed under the retry/fallback policy.
type Operation func(ctx context.Context) (any, error)

// FallbackKind tags the recovery style of a fallback strategy.
type FallbackKind string

const (
	FallbackCache    FallbackKind = "cache"
	FallbackDegraded FallbackKind = "degraded"
	FallbackTemplate FallbackKind = "template"
	FallbackOther    FallbackKind = "other"
)

// Fallback is a registered recovery action for one operation name.
// Run must return a value of the same shape as the primary result.
type Fallback struct {
	Description string
	Kind        FallbackKind
	Run         func(ctx context.Context) (any, error)
}

// Config tunes the retry policy.
type Config struct {
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	HistoryMax        int
}

func (c Config) withDefaults() Config {
	out := c
	if out.MaxRetries <= 0 {
		out.MaxRetries = 3
	}
	if out.BaseDelay <= 0 {
		out.BaseDelay = 250 * time.Millisecond
	}
	if out.MaxDelay <= 0 {
		out.MaxDelay = 10 * time.Second
	}
	if out.BackoffMultiplier <= 1 {
		out.BackoffMultiplier = 2
	}
	if out.HistoryMax <= 0 {
		out.HistoryMax = 500
	}
	return out
}

// attempt is one recorded execution outcome.
type attempt struct {
	Op       string
	Kind     Kind
	Success  bool
	Fallback bool
	At       time.Time
}

// Coordinator executes operations with a uniform retry/backoff/fallback
// policy and keeps aggregate error statistics for health reporting.
type Coordinator struct {
	cfg Config

	mu        sync.Mutex
	fallbacks map[string][]Fallback
	history   []attempt
}

func NewCoordinator(cfg Config) *Coordinator {
	return &Coordinator{
		cfg:       cfg.withDefaults(),
		fallbacks: make(map[string][]Fallback),
	}
}

// RegisterFallback appends a strategy to the operation's fallback chain.
// Strategies run in registration order when retries exhaust.
func (c *Coordinator) RegisterFallback(opName string, f Fallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fallbacks[opName] = append(c.fallbacks[opName], f)
}

// Execute runs op under the retry policy. Auth failures surface immediately.
// Parse failures skip retries and go straight to fallbacks. Other failures
// retry with exponential backoff, then fall back. The original error
// propagates when no fallback succeeds.
func (c *Coordinator) Execute(ctx context.Context, opName string, op Operation) (any, error) {
	result, _, err := c.ExecuteTracked(ctx, opName, op)
	return result, err
}

// ExecuteTracked is Execute plus a flag reporting whether the result came
// from a fallback strategy rather than the primary operation. Callers that
// cache results use it to avoid caching degraded output.
func (c *Coordinator) ExecuteTracked(ctx context.Context, opName string, op Operation) (any, bool, error) {
	var lastErr error

	for att := 0; att <= c.cfg.MaxRetries; att++ {
		result, err := op(ctx)
		if err == nil {
			c.record(opName, "", true, false)
			return result, false, nil
		}

		kind := Classify(err)
		c.record(opName, kind, false, false)
		lastErr = err

		if kind == KindAuth {
			return nil, false, fmt.Errorf("%s: %w", opName, err)
		}
		if !kind.Retryable() {
			break
		}
		if att == c.cfg.MaxRetries {
			break
		}

		delay := WithJitter(ExpBackoff(att, c.cfg.BaseDelay, c.cfg.MaxDelay, c.cfg.BackoffMultiplier))
		slog.Debug("retrying operation",
			"op", opName,
			"attempt", att+1,
			"kind", string(kind),
			"delay", delay,
		)
		if !SleepWithContext(ctx, delay) {
			return nil, false, ctx.Err()
		}
	}

	result, err := c.runFallbacks(ctx, opName, lastErr)
	return result, err == nil, err
}

func (c *Coordinator) runFallbacks(ctx context.Context, opName string, primaryErr error) (any, error) {
	c.mu.Lock()
	chain := make([]Fallback, len(c.fallbacks[opName]))
	copy(chain, c.fallbacks[opName])
	c.mu.Unlock()

	for _, f := range chain {
		result, err := f.Run(ctx)
		if err == nil {
			c.record(opName, "", true, true)
			slog.Info("fallback strategy succeeded",
				"op", opName,
				"strategy", f.Description,
				"kind", string(f.Kind),
			)
			return result, nil
		}
		c.record(opName, Classify(err), false, true)
	}

	return nil, fmt.Errorf("%s: %w", opName, primaryErr)
}

func (c *Coordinator) record(opName string, kind Kind, success, fallback bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history, attempt{
		Op:       opName,
		Kind:     kind,
		Success:  success,
		Fallback: fallback,
		At:       time.Now(),
	})
	if len(c.history) > c.cfg.HistoryMax {
		c.history = c.history[len(c.history)-c.cfg.HistoryMax:]
	}
}

// Statistics summarizes recorded attempts.
type Statistics struct {
	Total     int            `json:"total"`
	Failures  int            `json:"failures"`
	Fallbacks int            `json:"fallbacks"`
	ByKind    map[Kind]int   `json:"by_kind"`
	ByOp      map[string]int `json:"failures_by_op"`
}

func (c *Coordinator) Statistics() Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Statistics{
		ByKind: make(map[Kind]int),
		ByOp:   make(map[string]int),
	}
	for _, a := range c.history {
		stats.Total++
		if a.Fallback {
			stats.Fallbacks++
		}
		if !a.Success {
			stats.Failures++
			stats.ByKind[a.Kind]++
			stats.ByOp[a.Op]++
		}
	}
	return stats
}

// HealthStatus is the coordinator's view of recent system health.
type HealthStatus struct {
	Status string   `json:"status"` // healthy, degraded, unhealthy
	Issues []string `json:"issues"`
}

// SystemHealth derives a status from failure density over the recent window.
func (c *Coordinator) SystemHealth() HealthStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-5 * time.Minute)
	var total, failures int
	byKind := make(map[Kind]int)
	for _, a := range c.history {
		if a.At.Before(cutoff) {
			continue
		}
		total++
		if !a.Success {
			failures++
			byKind[a.Kind]++
		}
	}

	health := HealthStatus{Status: "healthy", Issues: []string{}}
	if total == 0 {
		return health
	}

	rate := float64(failures) / float64(total)
	switch {
	case rate > 0.5:
		health.Status = "unhealthy"
	case rate > 0.2:
		health.Status = "degraded"
	}

	if byKind[KindRateLimit] > 0 {
		health.Issues = append(health.Issues, "completion service rate limiting requests")
	}
	if byKind[KindLocalBudget] > 0 {
		health.Issues = append(health.Issues, "local request budget throttling completion calls")
	}
	if byKind[KindAuth] > 0 {
		health.Issues = append(health.Issues, "authentication failures against completion service")
	}
	if byKind[KindNetwork]+byKind[KindTimeout] > 2 {
		health.Issues = append(health.Issues, "repeated network or timeout failures")
	}
	if byKind[KindParse] > 2 {
		health.Issues = append(health.Issues, "completion service returning malformed responses")
	}

	return health
}
