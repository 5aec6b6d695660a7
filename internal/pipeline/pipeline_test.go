package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/thesathwik/brainstorm-buddy/internal/chat"
	"github.com/thesathwik/brainstorm-buddy/internal/degradation"
	"github.com/thesathwik/brainstorm-buddy/internal/intervention"
	"github.com/thesathwik/brainstorm-buddy/internal/processor"
	"github.com/thesathwik/brainstorm-buddy/internal/response"
	"github.com/thesathwik/brainstorm-buddy/internal/summon"
	"github.com/thesathwik/brainstorm-buddy/internal/testutil"
	"github.com/thesathwik/brainstorm-buddy/internal/transport"
)

type mockPublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
}

func (m *mockPublisher) Publish(subject string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append(m.subjects, subject)
	m.payloads = append(m.payloads, append([]byte(nil), data...))
	return nil
}

func (m *mockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subjects)
}

type fixture struct {
	pipe    *Pipeline
	store   *testutil.MockStore
	pub     *mockPublisher
	degrade *degradation.Service
}

func newFixture() *fixture {
	completion := testutil.NewMockCompletion()
	st := testutil.NewMockStore()
	pub := &mockPublisher{}
	degrade := degradation.NewService()

	pipe := New(Config{
		Processor:  processor.New(completion, time.Minute),
		Detector:   summon.NewDetector(summon.DetectorConfig{}),
		Analyzer:   summon.NewAnalyzer(completion),
		Engine:     intervention.NewEngine(intervention.Config{Cooldown: time.Minute}),
		Generator:  response.NewGenerator(completion),
		Degrade:    degrade,
		Store:      st,
		Publisher:  pub,
		MaxHistory: 50,
	})
	return &fixture{pipe: pipe, store: st, pub: pub, degrade: degrade}
}

func msg(id, session, content string) chat.ChatMessage {
	return chat.ChatMessage{
		ID:        id,
		SessionID: session,
		UserID:    "alice",
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

func TestPipeline_OffTopicDriftTriggersRedirect(t *testing.T) {
	f := newFixture()

	f.pipe.HandleMessage(context.Background(), msg("m1", "s1", "anyone up for lunch later"))
	f.pipe.HandleMessage(context.Background(), msg("m2", "s1", "the new pizza place downtown opened"))
	f.pipe.Wait()

	if f.store.MessageCount() != 2 {
		t.Errorf("expected 2 persisted messages, got %d", f.store.MessageCount())
	}
	if f.store.InterventionCount() != 1 {
		t.Fatalf("expected 1 intervention, got %d", f.store.InterventionCount())
	}
	if f.store.Interventions[0].Type != chat.InterventionTopicRedirect {
		t.Errorf("expected topic redirect, got %s", f.store.Interventions[0].Type)
	}

	if f.pub.count() != 1 {
		t.Fatalf("expected 1 published response, got %d", f.pub.count())
	}
	if want := transport.ResponseSubject + ".s1"; f.pub.subjects[0] != want {
		t.Errorf("expected subject %s, got %s", want, f.pub.subjects[0])
	}

	var payload map[string]any
	if err := json.Unmarshal(f.pub.payloads[0], &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload["type"] != string(chat.InterventionTopicRedirect) {
		t.Errorf("expected redirect payload, got %v", payload["type"])
	}
	if payload["text"] == "" {
		t.Error("expected non-empty response text")
	}
	if payload["source"] != "model" {
		t.Errorf("expected model-sourced response, got %v", payload["source"])
	}

	tracker, ok := f.pipe.Tracker("s1")
	if !ok {
		t.Fatal("expected tracker for session s1")
	}
	if got := tracker.Stats().MessageCount; got != 2 {
		t.Errorf("expected tracker to hold 2 messages, got %d", got)
	}
}

func TestPipeline_SummonYieldsSummary(t *testing.T) {
	f := newFixture()

	f.pipe.HandleMessage(context.Background(), msg("m1", "s1", "Buddy, can you summarize the discussion"))
	f.pipe.Wait()

	if f.store.InterventionCount() != 1 {
		t.Fatalf("expected 1 intervention, got %d", f.store.InterventionCount())
	}
	if f.store.Interventions[0].Type != chat.InterventionSummary {
		t.Errorf("expected summary intervention, got %s", f.store.Interventions[0].Type)
	}
	if f.pub.count() != 1 {
		t.Errorf("expected 1 published response, got %d", f.pub.count())
	}
}

func TestPipeline_ModerateDegradationBlocksProactive(t *testing.T) {
	f := newFixture()
	f.degrade.SetLevel(degradation.LevelModerate, "completion service flapping")

	f.pipe.HandleMessage(context.Background(), msg("m1", "s1", "anyone up for lunch later"))
	f.pipe.HandleMessage(context.Background(), msg("m2", "s1", "the new pizza place downtown opened"))
	f.pipe.Wait()

	if f.store.MessageCount() != 2 {
		t.Errorf("messages must still be persisted while degraded, got %d", f.store.MessageCount())
	}
	if f.store.InterventionCount() != 0 {
		t.Errorf("expected proactive interventions suppressed, got %d", f.store.InterventionCount())
	}
	if f.pub.count() != 0 {
		t.Errorf("expected nothing published, got %d", f.pub.count())
	}
}

func TestPipeline_ActivityControlSilencesProactive(t *testing.T) {
	f := newFixture()

	f.pipe.HandleMessage(context.Background(), msg("m1", "s1", "Buddy, be silent for now"))
	f.pipe.HandleMessage(context.Background(), msg("m2", "s1", "anyone up for lunch later"))
	f.pipe.HandleMessage(context.Background(), msg("m3", "s1", "the new pizza place downtown opened"))
	f.pipe.Wait()

	// The control command itself gets an acknowledgment; the drift that
	// follows must not.
	if f.store.InterventionCount() != 1 {
		t.Fatalf("expected only the acknowledgment, got %d interventions", f.store.InterventionCount())
	}
	if f.store.Interventions[0].Type != chat.InterventionClarification {
		t.Errorf("expected acknowledgment record, got %s", f.store.Interventions[0].Type)
	}
}

func TestPipeline_SessionsAreIsolated(t *testing.T) {
	f := newFixture()

	f.pipe.HandleMessage(context.Background(), msg("m1", "s1", "anyone up for lunch later"))
	f.pipe.HandleMessage(context.Background(), msg("m2", "s2", "the new pizza place downtown opened"))
	f.pipe.Wait()

	if got := len(f.pipe.Sessions()); got != 2 {
		t.Fatalf("expected 2 sessions, got %d", got)
	}
	// One off-topic message per session is under the drift limit.
	if f.store.InterventionCount() != 0 {
		t.Errorf("expected no interventions across isolated sessions, got %d", f.store.InterventionCount())
	}
	for _, id := range []string{"s1", "s2"} {
		tracker, ok := f.pipe.Tracker(id)
		if !ok {
			t.Fatalf("expected tracker for %s", id)
		}
		if got := tracker.Stats().MessageCount; got != 1 {
			t.Errorf("expected 1 message in %s, got %d", id, got)
		}
	}
}

func TestPipeline_ConcurrentHandleMessageDuringWait(t *testing.T) {
	f := newFixture()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			session := []string{"s1", "s2", "s3", "s4"}[worker]
			for n := 0; ; n++ {
				select {
				case <-stop:
					return
				default:
				}
				f.pipe.HandleMessage(context.Background(), msg("m", session, "the valuation discussion continues"))
			}
		}(i)
	}

	// Drain while senders are still firing; late sends must be dropped, not
	// panic on a closed inbox.
	time.Sleep(5 * time.Millisecond)
	f.pipe.Wait()
	close(stop)
	wg.Wait()
}

func TestPipeline_DropsMessagesWhileDraining(t *testing.T) {
	f := newFixture()

	f.pipe.HandleMessage(context.Background(), msg("m1", "s1", "kicking things off"))
	f.pipe.Wait()

	f.pipe.HandleMessage(context.Background(), msg("m2", "s1", "too late"))

	if f.store.MessageCount() != 1 {
		t.Errorf("expected message after Wait dropped, got %d persisted", f.store.MessageCount())
	}
}
