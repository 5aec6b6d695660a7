// Package pipeline wires the processing stages together: inbound message →
// annotate → track → summon detection → intervention decision → response →
// outbound publish. Messages for one session are processed strictly in
// arrival order by a dedicated worker; sessions are independent.
package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thesathwik/brainstorm-buddy/internal/chat"
	"github.com/thesathwik/brainstorm-buddy/internal/conversation"
	"github.com/thesathwik/brainstorm-buddy/internal/degradation"
	"github.com/thesathwik/brainstorm-buddy/internal/intervention"
	"github.com/thesathwik/brainstorm-buddy/internal/processor"
	"github.com/thesathwik/brainstorm-buddy/internal/response"
	"github.com/thesathwik/brainstorm-buddy/internal/store"
	"github.com/thesathwik/brainstorm-buddy/internal/summon"
	"github.com/thesathwik/brainstorm-buddy/internal/transport"
)

// inboxMax bounds each session worker's queue. Overflow drops the newest
// message with a warning rather than blocking the transport callback.
const inboxMax = 256

const transcriptWindow = 20

// Config wires the pipeline's collaborators. Store and Publish are optional.
type Config struct {
	Processor  *processor.Processor
	Detector   *summon.Detector
	Analyzer   *summon.Analyzer
	Engine     *intervention.Engine
	Generator  *response.Generator
	Degrade    *degradation.Service
	Store      store.DataStore
	Publisher  transport.Publisher
	MaxHistory int
}

type sessionWorker struct {
	inbox chan chat.ChatMessage
	done  chan struct{}
}

type Pipeline struct {
	cfg Config

	mu       sync.Mutex
	trackers map[string]*conversation.Tracker
	workers  map[string]*sessionWorker
	draining bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		cfg:      cfg,
		trackers: make(map[string]*conversation.Tracker),
		workers:  make(map[string]*sessionWorker),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// HandleMessage is the transport callback. It routes the message to its
// session worker, creating one on first sight of the session.
func (p *Pipeline) HandleMessage(_ context.Context, msg chat.ChatMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.draining {
		slog.Warn("pipeline draining, dropping message", "session_id", msg.SessionID)
		return
	}
	w, ok := p.workers[msg.SessionID]
	if !ok {
		w = &sessionWorker{
			inbox: make(chan chat.ChatMessage, inboxMax),
			done:  make(chan struct{}),
		}
		p.workers[msg.SessionID] = w
		p.trackers[msg.SessionID] = conversation.NewTracker(msg.SessionID, p.cfg.MaxHistory)
		p.wg.Add(1)
		go p.runWorker(msg.SessionID, w)
	}

	// The send stays under the lock: it cannot block (non-blocking select on
	// a buffered channel), and Wait closes inboxes under the same lock, so a
	// late transport callback can never send on a closed channel.
	select {
	case w.inbox <- msg:
	default:
		slog.Warn("session inbox full, dropping message",
			"session_id", msg.SessionID,
			"message_id", msg.ID,
		)
	}
}

func (p *Pipeline) runWorker(sessionID string, w *sessionWorker) {
	defer p.wg.Done()
	defer close(w.done)

	for msg := range w.inbox {
		p.processOne(sessionID, msg)
	}
}

// Wait stops accepting new messages, drains every session inbox, and
// returns when all in-flight work has finished.
func (p *Pipeline) Wait() {
	p.mu.Lock()
	p.draining = true
	for _, w := range p.workers {
		close(w.inbox)
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
}

// Tracker returns the session's conversation tracker, if the session exists.
func (p *Pipeline) Tracker(sessionID string) (*conversation.Tracker, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.trackers[sessionID]
	return t, ok
}

// Sessions lists the ids of all sessions seen so far.
func (p *Pipeline) Sessions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.trackers))
	for id := range p.trackers {
		out = append(out, id)
	}
	return out
}

func (p *Pipeline) processOne(sessionID string, msg chat.ChatMessage) {
	ctx := p.ctx

	pm := p.cfg.Processor.ProcessMessage(ctx, msg)

	p.mu.Lock()
	tracker := p.trackers[sessionID]
	p.mu.Unlock()

	topicChange := tracker.AddMessage(pm)
	if topicChange != nil {
		slog.Info("topic change detected",
			"session_id", sessionID,
			"previous", topicChange.PreviousTopic,
			"new", topicChange.NewTopic,
			"confidence", topicChange.Confidence,
		)
	}

	p.persistMessage(ctx, pm)

	summoned := p.cfg.Detector.Detect(msg)
	if summoned.Kind == chat.SummonActivityControl {
		p.cfg.Engine.SetActivityLevel(sessionID, summoned.Activity)
		slog.Info("activity level changed",
			"session_id", sessionID,
			"level", string(summoned.Activity),
		)
	}

	var analysis *chat.SummonAnalysis
	if summoned.Summoned && summoned.Kind != chat.SummonActivityControl {
		a := p.cfg.Analyzer.Analyze(ctx, summoned, msg, tracker.Snapshot())
		analysis = &a
	}

	decision := p.cfg.Engine.Decide(sessionID, pm, summoned, analysis)
	decision = p.gateByCapability(decision, summoned)
	if !decision.ShouldIntervene {
		return
	}

	resp := p.draft(ctx, decision, tracker, pm, summoned)
	resp.Text = response.Personalize(resp.Text, p.preferencesFor(tracker, msg.UserID), p.toneFor(tracker, pm))

	p.execute(ctx, sessionID, decision, resp, tracker)
}

// gateByCapability downgrades decisions the current degradation level
// cannot serve. Capability gaps are normal results, not errors.
func (p *Pipeline) gateByCapability(d chat.InterventionDecision, summoned chat.SummonResult) chat.InterventionDecision {
	if !d.ShouldIntervene {
		return d
	}

	if summoned.Summoned {
		if !p.cfg.Degrade.IsCapabilityAvailable(degradation.CapSummonResponses) {
			return chat.InterventionDecision{Type: chat.InterventionNone, Reason: "summon responses unavailable at current degradation level"}
		}
		return d
	}

	if !p.cfg.Degrade.IsCapabilityAvailable(degradation.CapProactiveInterventions) {
		return chat.InterventionDecision{Type: chat.InterventionNone, Reason: "proactive interventions unavailable at current degradation level"}
	}
	if d.Type == chat.InterventionFactCheck && !p.cfg.Degrade.IsCapabilityAvailable(degradation.CapFactChecking) {
		return chat.InterventionDecision{Type: chat.InterventionNone, Reason: "fact checking unavailable at current degradation level"}
	}
	return d
}

func (p *Pipeline) draft(ctx context.Context, d chat.InterventionDecision, tracker *conversation.Tracker, pm chat.ProcessedMessage, summoned chat.SummonResult) chat.GeneratedResponse {
	if !p.cfg.Degrade.IsCapabilityAvailable(degradation.CapResponseGeneration) {
		return p.cfg.Degrade.GenerateGracefulResponse(nil, d.Type)
	}

	extra := map[string]string{
		"transcript": tracker.Transcript(transcriptWindow),
		"request":    summoned.ExtractedRequest,
		"claim":      pm.Original.Content,
	}
	if dominant := pm.DominantTopic(); dominant.Category != "" {
		extra["drift_topic"] = dominant.Category
	}

	return p.cfg.Generator.Generate(ctx, d.Type, tracker.Snapshot(), extra)
}

func (p *Pipeline) preferencesFor(tracker *conversation.Tracker, userID string) chat.UserPreferences {
	for _, part := range tracker.Snapshot().Participants {
		if part.ID == userID {
			return part.Preferences
		}
	}
	return chat.UserPreferences{}
}

func (p *Pipeline) toneFor(tracker *conversation.Tracker, pm chat.ProcessedMessage) chat.ConversationTone {
	tone := chat.ConversationTone{}
	if pm.Urgency == chat.UrgencyHigh {
		tone.Urgency = 0.8
	}
	if tracker.Flow().ConversationMomentum > 0.7 {
		tone.Enthusiasm = 0.8
	}
	return tone
}

func (p *Pipeline) execute(ctx context.Context, sessionID string, d chat.InterventionDecision, resp chat.GeneratedResponse, tracker *conversation.Tracker) {
	rec := chat.InterventionRecord{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Type:      d.Type,
		Reason:    d.Reason,
		Response:  resp.Text,
		Timestamp: time.Now().UTC(),
	}

	tracker.RecordIntervention(rec)
	p.cfg.Engine.MarkExecuted(sessionID, d.Type)

	if p.cfg.Store != nil {
		if err := p.cfg.Store.InsertIntervention(ctx, rec); err != nil {
			slog.Error("failed to persist intervention", "session_id", sessionID, "error", err)
		}
	}

	p.publishResponse(sessionID, resp, rec)

	slog.Info("intervention executed",
		"session_id", sessionID,
		"type", string(d.Type),
		"reason", d.Reason,
		"source", resp.Source,
	)
}

func (p *Pipeline) publishResponse(sessionID string, resp chat.GeneratedResponse, rec chat.InterventionRecord) {
	if p.cfg.Publisher == nil {
		return
	}

	payload, _ := json.Marshal(map[string]any{
		"intervention_id": rec.ID,
		"session_id":      sessionID,
		"type":            string(resp.Type),
		"text":            resp.Text,
		"confidence":      resp.Confidence,
		"source":          resp.Source,
		"follow_ups":      resp.FollowUps,
		"timestamp":       rec.Timestamp.Format(time.RFC3339),
	})
	subject := transport.ResponseSubject + "." + sessionID
	if err := p.cfg.Publisher.Publish(subject, payload); err != nil {
		slog.Warn("failed to publish response", "subject", subject, "error", err)
	}
}

func (p *Pipeline) persistMessage(ctx context.Context, pm chat.ProcessedMessage) {
	if p.cfg.Store == nil {
		return
	}
	if err := p.cfg.Store.InsertMessages(ctx, []chat.ProcessedMessage{pm}); err != nil {
		slog.Error("failed to persist message", "message_id", pm.Original.ID, "error", err)
	}
}

// CheckPauses runs one pause sweep: sessions that went quiet after a long
// discussion get a summary intervention. Called by the monitor.
func (p *Pipeline) CheckPauses(ctx context.Context) {
	if !p.cfg.Processor.DetectConversationPause() {
		return
	}

	p.mu.Lock()
	ids := make([]string, 0, len(p.trackers))
	for id := range p.trackers {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		tracker, ok := p.Tracker(id)
		if !ok {
			continue
		}
		stats := tracker.Stats()
		d := p.cfg.Engine.DecideOnPause(id, stats.MessageCount)
		d = p.gateByCapability(d, chat.SummonResult{})
		if !d.ShouldIntervene {
			continue
		}
		resp := p.draft(ctx, d, tracker, chat.ProcessedMessage{}, chat.SummonResult{})
		p.execute(ctx, id, d, resp, tracker)
	}
}
