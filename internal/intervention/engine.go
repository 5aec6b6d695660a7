// Package intervention decides whether, what, and when the assistant should
// proactively inject a message into a session.
package intervention

import (
	"strings"
	"sync"
	"time"

	"github.com/thesathwik/brainstorm-buddy/internal/chat"
)

// Config carries the per-intervention-type thresholds and the cooldown.
type Config struct {
	Cooldown time.Duration
	// TopicDriftThreshold is the minimum off-topic classification confidence
	// that counts a message as off-topic.
	TopicDriftThreshold float64
	InfoGapThreshold    float64
	FactCheckThreshold  float64
	// OffTopicLimit is how many consecutive off-topic messages trigger a
	// redirect.
	OffTopicLimit int
}

func (c Config) withDefaults() Config {
	out := c
	if out.Cooldown <= 0 {
		out.Cooldown = 2 * time.Minute
	}
	if out.TopicDriftThreshold <= 0 {
		out.TopicDriftThreshold = 0.6
	}
	if out.InfoGapThreshold <= 0 {
		out.InfoGapThreshold = 0.6
	}
	if out.FactCheckThreshold <= 0 {
		out.FactCheckThreshold = 0.7
	}
	if out.OffTopicLimit <= 0 {
		out.OffTopicLimit = 2
	}
	return out
}

// DriftState is the engine's per-session off-topic drift view.
type DriftState struct {
	MessagesOffTopic        int  `json:"messages_off_topic"`
	InterventionRecommended bool `json:"intervention_recommended"`
}

// sessionState is per-session mutable engine state. Access is serialized by
// the pipeline's per-session worker; the mutex guards cross-session reads
// from the admin API.
type sessionState struct {
	offTopic         int
	lastIntervention time.Time
	activity         chat.ActivityLevel
}

type Engine struct {
	cfg Config

	mu       sync.Mutex
	sessions map[string]*sessionState
}

func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:      cfg.withDefaults(),
		sessions: make(map[string]*sessionState),
	}
}

func (e *Engine) session(id string) *sessionState {
	s, ok := e.sessions[id]
	if !ok {
		s = &sessionState{activity: chat.ActivityNormal}
		e.sessions[id] = s
	}
	return s
}

// SetActivityLevel applies an activity-control command for a session.
func (e *Engine) SetActivityLevel(sessionID string, level chat.ActivityLevel) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session(sessionID).activity = level
}

// ActivityLevel returns the session's current activity level.
func (e *Engine) ActivityLevel(sessionID string) chat.ActivityLevel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session(sessionID).activity
}

// Drift returns the session's current off-topic drift state.
func (e *Engine) Drift(sessionID string) DriftState {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session(sessionID)
	return DriftState{
		MessagesOffTopic:        s.offTopic,
		InterventionRecommended: s.offTopic >= e.cfg.OffTopicLimit,
	}
}

// Decide produces the intervention decision for one message. Summoned
// messages always get a response (unless the session is silenced); proactive
// interventions respect the activity level, the cooldown, and the
// per-type thresholds.
func (e *Engine) Decide(sessionID string, pm chat.ProcessedMessage, summoned chat.SummonResult, analysis *chat.SummonAnalysis) chat.InterventionDecision {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session(sessionID)
	e.trackDrift(s, pm)

	if summoned.Summoned {
		return e.decideSummoned(s, summoned, analysis)
	}

	if s.activity == chat.ActivitySilent || s.activity == chat.ActivityQuiet {
		return none("assistant activity reduced by participant request")
	}
	if !s.lastIntervention.IsZero() && time.Since(s.lastIntervention) < e.cooldown(s) {
		return none("intervention cooldown active")
	}

	if s.offTopic >= e.cfg.OffTopicLimit {
		return chat.InterventionDecision{
			ShouldIntervene: true,
			Type:            chat.InterventionTopicRedirect,
			Reason:          "sustained off-topic drift",
			Confidence:      0.9,
			Priority:        chat.UrgencyMedium,
		}
	}

	if score := factCheckScore(pm); score >= e.cfg.FactCheckThreshold {
		return chat.InterventionDecision{
			ShouldIntervene: true,
			Type:            chat.InterventionFactCheck,
			Reason:          "unverified financial claim",
			Confidence:      score,
			Priority:        chat.UrgencyMedium,
		}
	}

	if score := infoGapScore(pm); score >= e.cfg.InfoGapThreshold {
		return chat.InterventionDecision{
			ShouldIntervene: true,
			Type:            chat.InterventionInfoGap,
			Reason:          "open question with no answer in the room",
			Confidence:      score,
			Priority:        chat.UrgencyLow,
		}
	}

	return none("no intervention condition met")
}

// trackDrift maintains the consecutive off-topic counter: an off-topic
// dominant classification above the drift threshold increments it; any
// on-topic message resets it.
func (e *Engine) trackDrift(s *sessionState, pm chat.ProcessedMessage) {
	dominant := pm.DominantTopic()
	if dominant.Category == "off_topic" && dominant.Confidence >= e.cfg.TopicDriftThreshold {
		s.offTopic++
		return
	}
	s.offTopic = 0
}

func (e *Engine) decideSummoned(s *sessionState, summoned chat.SummonResult, analysis *chat.SummonAnalysis) chat.InterventionDecision {
	if s.activity == chat.ActivitySilent && summoned.Kind != chat.SummonActivityControl {
		return none("session silenced")
	}

	if summoned.Kind == chat.SummonActivityControl {
		return chat.InterventionDecision{
			ShouldIntervene: true,
			Type:            chat.InterventionClarification,
			Reason:          "activity control acknowledged",
			Confidence:      1,
			Priority:        chat.UrgencyLow,
		}
	}

	if strings.Contains(strings.ToLower(summoned.ExtractedRequest), "summar") {
		return chat.InterventionDecision{
			ShouldIntervene: true,
			Type:            chat.InterventionSummary,
			Reason:          "summary requested",
			Confidence:      0.9,
			Priority:        chat.UrgencyMedium,
		}
	}

	if analysis != nil && analysis.RequiresClarification {
		return chat.InterventionDecision{
			ShouldIntervene: true,
			Type:            chat.InterventionClarification,
			Reason:          "request unclear",
			Confidence:      analysis.QuestionClarity,
			Priority:        chat.UrgencyLow,
		}
	}

	return chat.InterventionDecision{
		ShouldIntervene: true,
		Type:            chat.InterventionInfoGap,
		Reason:          "direct request to assistant",
		Confidence:      0.8,
		Priority:        chat.UrgencyMedium,
	}
}

// DecideOnPause recommends a summary when a long conversation goes quiet.
func (e *Engine) DecideOnPause(sessionID string, messageCount int) chat.InterventionDecision {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session(sessionID)
	if s.activity == chat.ActivitySilent || s.activity == chat.ActivityQuiet {
		return none("assistant activity reduced by participant request")
	}
	if messageCount < 10 {
		return none("not enough discussion to summarize")
	}
	if !s.lastIntervention.IsZero() && time.Since(s.lastIntervention) < e.cooldown(s) {
		return none("intervention cooldown active")
	}

	return chat.InterventionDecision{
		ShouldIntervene: true,
		Type:            chat.InterventionSummary,
		Reason:          "conversation pause after substantial discussion",
		Confidence:      0.7,
		Priority:        chat.UrgencyLow,
	}
}

// MarkExecuted records that an intervention ran, resetting drift and
// starting the cooldown window.
func (e *Engine) MarkExecuted(sessionID string, t chat.InterventionType) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session(sessionID)
	s.lastIntervention = time.Now()
	if t == chat.InterventionTopicRedirect {
		s.offTopic = 0
	}
}

// cooldown shortens when the room asked for a more active assistant.
func (e *Engine) cooldown(s *sessionState) time.Duration {
	if s.activity == chat.ActivityActive {
		return e.cfg.Cooldown / 2
	}
	return e.cfg.Cooldown
}

func none(reason string) chat.InterventionDecision {
	return chat.InterventionDecision{Type: chat.InterventionNone, Reason: reason}
}

func factCheckScore(pm chat.ProcessedMessage) float64 {
	var financial int
	for _, ent := range pm.Entities {
		if ent.Kind == chat.EntityFinancial {
			financial++
		}
	}
	if financial == 0 {
		return 0
	}
	score := 0.5 + 0.2*float64(financial)
	if score > 1 {
		score = 1
	}
	return score
}

func infoGapScore(pm chat.ProcessedMessage) float64 {
	content := strings.ToLower(pm.Original.Content)
	if !strings.Contains(content, "?") {
		return 0
	}
	score := 0.4
	for _, marker := range []string{"anyone know", "does anybody", "not sure", "no idea", "can someone"} {
		if strings.Contains(content, marker) {
			score += 0.3
			break
		}
	}
	return score
}
