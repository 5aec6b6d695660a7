package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/thesathwik/brainstorm-buddy/internal/resilience"
)

// scriptedService fails with the queued errors first, then succeeds.
type scriptedService struct {
	mu      sync.Mutex
	errs    []error
	content string
	calls   int
}

func (s *scriptedService) next() (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return Result{}, err
	}
	content := s.content
	if content == "" {
		content = "scripted response"
	}
	return Result{Content: content, Confidence: ScoreConfidence(content)}, nil
}

func (s *scriptedService) AnalyzeText(_ context.Context, _, _ string) (Result, error) {
	return s.next()
}

func (s *scriptedService) GenerateResponse(_ context.Context, _, _ string) (Result, error) {
	return s.next()
}

func (s *scriptedService) IsHealthy(_ context.Context) error {
	_, err := s.next()
	return err
}

func (s *scriptedService) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestClient(svc *scriptedService, cfg ClientConfig) *ResilientClient {
	coord := resilience.NewCoordinator(resilience.Config{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
	})
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 1000 // tests should never hit the local budget
		cfg.Burst = 1000
	}
	return NewResilientClient(svc, coord, cfg)
}

func TestAnalyzeText_CacheHitSkipsService(t *testing.T) {
	svc := &scriptedService{content: "analysis result"}
	c := newTestClient(svc, ClientConfig{CacheEnabled: true, CacheTTL: time.Minute})

	first, err := c.AnalyzeText(context.Background(), "the market is growing", "classify")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := c.AnalyzeText(context.Background(), "the market is growing", "classify")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if svc.callCount() != 1 {
		t.Errorf("expected 1 service call for identical requests, got %d", svc.callCount())
	}
	if first.Content != second.Content {
		t.Errorf("expected identical cached result, got %q vs %q", first.Content, second.Content)
	}
}

func TestAnalyzeText_DistinctRequestsMissCache(t *testing.T) {
	svc := &scriptedService{}
	c := newTestClient(svc, ClientConfig{CacheEnabled: true, CacheTTL: time.Minute})

	_, _ = c.AnalyzeText(context.Background(), "message one", "classify")
	_, _ = c.AnalyzeText(context.Background(), "message two", "classify")

	if svc.callCount() != 2 {
		t.Errorf("expected 2 service calls for distinct requests, got %d", svc.callCount())
	}
}

func TestAnalyzeText_ExpiredEntryNotServed(t *testing.T) {
	svc := &scriptedService{}
	c := newTestClient(svc, ClientConfig{CacheEnabled: true, CacheTTL: 10 * time.Millisecond})

	_, _ = c.AnalyzeText(context.Background(), "short lived", "classify")
	time.Sleep(20 * time.Millisecond)
	_, _ = c.AnalyzeText(context.Background(), "short lived", "classify")

	if svc.callCount() != 2 {
		t.Errorf("expected expired entry to force a fresh call, got %d calls", svc.callCount())
	}
}

func TestAnalyzeText_RetryBound(t *testing.T) {
	svc := &scriptedService{errs: []error{
		resilience.WithKind(resilience.KindNetwork, errors.New("down")),
		resilience.WithKind(resilience.KindNetwork, errors.New("down")),
		resilience.WithKind(resilience.KindNetwork, errors.New("down")),
		resilience.WithKind(resilience.KindNetwork, errors.New("down")),
	}}
	c := newTestClient(svc, ClientConfig{})

	// All attempts fail; the degraded-analysis fallback still recovers.
	res, err := c.AnalyzeText(context.Background(), "text", "prompt")
	if err != nil {
		t.Fatalf("expected fallback to recover, got %v", err)
	}
	// Initial attempt plus MaxRetries(2) retries.
	if svc.callCount() != 3 {
		t.Errorf("expected 3 invocations, got %d", svc.callCount())
	}
	if res.Confidence != 0.2 {
		t.Errorf("expected degraded analysis confidence 0.2, got %v", res.Confidence)
	}
}

func TestAnalyzeText_AuthNeverRetried(t *testing.T) {
	svc := &scriptedService{errs: []error{
		resilience.WithKind(resilience.KindAuth, errors.New("invalid api key")),
	}}
	c := newTestClient(svc, ClientConfig{})

	_, err := c.AnalyzeText(context.Background(), "text", "prompt")
	if err == nil {
		t.Fatal("expected auth error to surface without fallback")
	}
	if svc.callCount() != 1 {
		t.Errorf("expected exactly 1 invocation, got %d", svc.callCount())
	}
}

func TestAnalyzeText_CacheFallbackBeforeTemplate(t *testing.T) {
	svc := &scriptedService{content: "earlier analysis"}
	c := newTestClient(svc, ClientConfig{CacheEnabled: true, CacheTTL: time.Minute})

	// Seed the cache with a successful call.
	if _, err := c.AnalyzeText(context.Background(), "seed text", "prompt"); err != nil {
		t.Fatalf("seed call failed: %v", err)
	}

	// A parse failure on a different request skips retries and falls back to
	// the cache scan, which serves the seeded entry.
	svc.mu.Lock()
	svc.errs = []error{resilience.WithKind(resilience.KindParse, errors.New("malformed response"))}
	svc.mu.Unlock()

	res, err := c.AnalyzeText(context.Background(), "different text", "prompt")
	if err != nil {
		t.Fatalf("expected cache fallback to recover, got %v", err)
	}
	if res.Content != "earlier analysis" {
		t.Errorf("expected cached content from fallback, got %q", res.Content)
	}
}

func TestAnalyzeText_FallbackResultNotCached(t *testing.T) {
	svc := &scriptedService{
		content: "recovered analysis",
		errs: []error{
			resilience.WithKind(resilience.KindParse, errors.New("malformed response")),
		},
	}
	c := newTestClient(svc, ClientConfig{CacheEnabled: true, CacheTTL: time.Minute})

	// First call fails, skips retries, and the canned degraded analysis
	// recovers it. That result must not land in the cache.
	first, err := c.AnalyzeText(context.Background(), "text", "prompt")
	if err != nil {
		t.Fatalf("expected fallback to recover, got %v", err)
	}
	if first.Confidence != 0.2 {
		t.Fatalf("expected degraded analysis, got confidence %v", first.Confidence)
	}

	// The service has recovered; an identical request must reach it instead
	// of being served the canned response for the rest of the TTL.
	second, err := c.AnalyzeText(context.Background(), "text", "prompt")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if svc.callCount() != 2 {
		t.Errorf("expected the second request to hit the service, got %d calls", svc.callCount())
	}
	if second.Content != "recovered analysis" {
		t.Errorf("expected recovered service result, got %q", second.Content)
	}
}

func TestGenerateResponse_OfflineServesTemplate(t *testing.T) {
	svc := &scriptedService{}
	c := newTestClient(svc, ClientConfig{})
	c.SetOfflineMode(true)

	res, err := c.GenerateResponse(context.Background(), "prompt", "")
	if err != nil {
		t.Fatalf("expected template fallback in offline mode, got %v", err)
	}
	if svc.callCount() != 0 {
		t.Errorf("expected no service calls in offline mode, got %d", svc.callCount())
	}
	if res.Confidence != 0.3 {
		t.Errorf("expected template confidence 0.3, got %v", res.Confidence)
	}
	found := false
	for _, tmpl := range responseTemplates {
		if res.Content == tmpl {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("expected one of the neutral templates, got %q", res.Content)
	}
}

func TestAnalyzeText_LimiterDenialTaggedAsLocalBudget(t *testing.T) {
	coord := resilience.NewCoordinator(resilience.Config{
		MaxRetries: 1,
		BaseDelay:  time.Millisecond,
	})
	svc := &scriptedService{}
	c := NewResilientClient(svc, coord, ClientConfig{RequestsPerSecond: 0.0001, Burst: 1})

	// First call consumes the whole burst.
	if _, err := c.AnalyzeText(context.Background(), "first", "prompt"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Second call is denied locally and recovered by the degraded fallback
	// without the service ever being contacted.
	res, err := c.AnalyzeText(context.Background(), "second", "prompt")
	if err != nil {
		t.Fatalf("expected fallback to recover, got %v", err)
	}
	if res.Confidence != 0.2 {
		t.Errorf("expected degraded analysis, got confidence %v", res.Confidence)
	}
	if svc.callCount() != 1 {
		t.Errorf("expected the denied request never to reach the service, got %d calls", svc.callCount())
	}

	stats := coord.Statistics()
	if stats.ByKind[resilience.KindLocalBudget] == 0 {
		t.Error("expected local budget denials recorded under their own kind")
	}
	if stats.ByKind[resilience.KindRateLimit] != 0 {
		t.Errorf("local denials must not be recorded as upstream rate limiting, got %d", stats.ByKind[resilience.KindRateLimit])
	}
}

func TestIsHealthy_FlipsOnlineFlag(t *testing.T) {
	svc := &scriptedService{errs: []error{
		resilience.WithKind(resilience.KindAuth, errors.New("denied")),
	}}
	c := newTestClient(svc, ClientConfig{})

	if c.IsHealthy(context.Background()) {
		t.Error("expected unhealthy probe to report false")
	}
	if c.Online() {
		t.Error("expected online flag to flip after failed probe")
	}

	if !c.IsHealthy(context.Background()) {
		t.Error("expected healthy probe to report true")
	}
	if !c.Online() {
		t.Error("expected online flag restored after successful probe")
	}
}

func TestIsHealthy_OfflineModeShortCircuits(t *testing.T) {
	svc := &scriptedService{}
	c := newTestClient(svc, ClientConfig{})
	c.SetOfflineMode(true)

	if c.IsHealthy(context.Background()) {
		t.Error("expected offline client to report unhealthy")
	}
	if svc.callCount() != 0 {
		t.Errorf("expected no probe calls while offline, got %d", svc.callCount())
	}
}

func TestClearCache_ForcesFreshCalls(t *testing.T) {
	svc := &scriptedService{}
	c := newTestClient(svc, ClientConfig{CacheEnabled: true, CacheTTL: time.Minute})

	_, _ = c.AnalyzeText(context.Background(), "text", "prompt")
	c.ClearCache()
	_, _ = c.AnalyzeText(context.Background(), "text", "prompt")

	if svc.callCount() != 2 {
		t.Errorf("expected 2 calls after cache clear, got %d", svc.callCount())
	}
}

func TestCacheStats_TracksHitsAndMisses(t *testing.T) {
	svc := &scriptedService{content: strings.Repeat("x", 50)}
	c := newTestClient(svc, ClientConfig{CacheEnabled: true, CacheTTL: time.Minute})

	_, _ = c.AnalyzeText(context.Background(), "text", "prompt") // miss
	_, _ = c.AnalyzeText(context.Background(), "text", "prompt") // hit

	stats := c.CacheStats()
	if stats.Entries != 1 {
		t.Errorf("expected 1 entry, got %d", stats.Entries)
	}
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %d/%d", stats.Hits, stats.Misses)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %v", stats.HitRate)
	}
	if stats.ApproxBytes == 0 {
		t.Error("expected nonzero approximate size")
	}
}
