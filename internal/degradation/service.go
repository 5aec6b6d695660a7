// Package degradation keeps the assistant answering sensibly when its
// information is conflicting or its capabilities are reduced.
package degradation

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/thesathwik/brainstorm-buddy/internal/chat"
)

// ConflictType classifies why a set of facts cannot be used as-is.
type ConflictType string

const (
	ConflictContradictory ConflictType = "contradictory_information"
	ConflictAmbiguous     ConflictType = "ambiguous_context"
	ConflictInsufficient  ConflictType = "insufficient_data"
	ConflictMultiple      ConflictType = "multiple_interpretations"
)

// RecommendedAction is the degraded-response strategy for a conflict.
type RecommendedAction string

const (
	ActionRequestClarification RecommendedAction = "request_clarification"
	ActionPresentAlternatives  RecommendedAction = "present_alternatives"
	ActionDeferToHuman         RecommendedAction = "defer_to_human"
	ActionConservative         RecommendedAction = "use_conservative_approach"
	ActionAcknowledge          RecommendedAction = "acknowledge_uncertainty"
)

// InformationItem is one fact under conflict analysis: numeric fields plus
// free text from one source.
type InformationItem struct {
	Source string             `json:"source"`
	Values map[string]float64 `json:"values,omitempty"`
	Text   string             `json:"text,omitempty"`
}

// Conflict is a detected problem with a set of information items.
type Conflict struct {
	Type              ConflictType      `json:"type"`
	Description       string            `json:"description"`
	RecommendedAction RecommendedAction `json:"recommended_action"`
	DetectedAt        time.Time         `json:"detected_at"`
}

const conflictHistoryMax = 50

// TransitionFunc observes degradation level changes.
type TransitionFunc func(from, to Level, reason string)

// Service tracks the process-wide degradation level and analyzes
// information conflicts. Initializes at LevelNone.
type Service struct {
	mu           sync.Mutex
	level        Level
	history      []Conflict
	onTransition []TransitionFunc
}

func NewService() *Service {
	return &Service{level: LevelNone}
}

// OnTransition registers an observer for level changes.
func (s *Service) OnTransition(fn TransitionFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTransition = append(s.onTransition, fn)
}

// SetLevel explicitly transitions the degradation level. Observers run
// outside the lock; a no-op transition emits nothing.
func (s *Service) SetLevel(to Level, reason string) {
	s.mu.Lock()
	from := s.level
	if from == to {
		s.mu.Unlock()
		return
	}
	s.level = to
	observers := append([]TransitionFunc(nil), s.onTransition...)
	s.mu.Unlock()

	slog.Info("degradation level changed",
		"from", from.String(),
		"to", to.String(),
		"reason", reason,
	)
	for _, fn := range observers {
		fn(from, to, reason)
	}
}

// Level returns the current degradation level.
func (s *Service) Level() Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// IsCapabilityAvailable is a pure lookup in the per-level capability table.
func (s *Service) IsCapabilityAvailable(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return capabilities[s.level][name]
}

// AnalyzeInformationConflicts classifies a set of facts. Policy, in priority
// order: empty or null-heavy input, then meaningfully different numeric
// values, then hedging-language density. Nil means no conflict.
func (s *Service) AnalyzeInformationConflicts(items []InformationItem) *Conflict {
	conflict := classifyConflict(items)
	if conflict == nil {
		return nil
	}

	s.mu.Lock()
	s.history = append(s.history, *conflict)
	if len(s.history) > conflictHistoryMax {
		s.history = s.history[len(s.history)-conflictHistoryMax:]
	}
	s.mu.Unlock()

	return conflict
}

func classifyConflict(items []InformationItem) *Conflict {
	now := time.Now()

	empty := 0
	for _, it := range items {
		if len(it.Values) == 0 && it.Text == "" {
			empty++
		}
	}
	if len(items) == 0 || empty*2 > len(items) {
		return &Conflict{
			Type:              ConflictInsufficient,
			Description:       "too little usable information to answer",
			RecommendedAction: ActionAcknowledge,
			DetectedAt:        now,
		}
	}

	if field := contradictoryField(items); field != "" {
		return &Conflict{
			Type:              ConflictContradictory,
			Description:       "sources disagree on " + field,
			RecommendedAction: ActionPresentAlternatives,
			DetectedAt:        now,
		}
	}

	hedged, distinct := hedgingProfile(items)
	if hedged {
		if distinct {
			return &Conflict{
				Type:              ConflictMultiple,
				Description:       "multiple plausible readings of the available information",
				RecommendedAction: ActionConservative,
				DetectedAt:        now,
			}
		}
		return &Conflict{
			Type:              ConflictAmbiguous,
			Description:       "available information is heavily hedged",
			RecommendedAction: ActionRequestClarification,
			DetectedAt:        now,
		}
	}

	return nil
}

// contradictoryField returns the first numeric field whose values differ by
// more than 10% relative to the larger magnitude.
func contradictoryField(items []InformationItem) string {
	seen := make(map[string]float64)
	for _, it := range items {
		for field, v := range it.Values {
			prev, ok := seen[field]
			if !ok {
				seen[field] = v
				continue
			}
			if meaningfullyDifferent(prev, v) {
				return field
			}
		}
	}
	return ""
}

func meaningfullyDifferent(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	larger := a
	if b > a {
		larger = b
	}
	if larger < 0 {
		larger = -larger
	}
	if larger == 0 {
		return false
	}
	return diff/larger > 0.1
}

var hedges = []string{"maybe", "possibly", "roughly", "around", "approximately", "not sure", "could be", "i think", "unclear"}

// hedgingProfile reports whether the free-text fields are hedge-dense and
// whether they present distinct readings.
func hedgingProfile(items []InformationItem) (hedged, distinct bool) {
	var texts []string
	hedgeHits := 0
	for _, it := range items {
		if it.Text == "" {
			continue
		}
		texts = append(texts, it.Text)
		if containsAny(it.Text, hedges) {
			hedgeHits++
		}
	}
	if len(texts) == 0 || hedgeHits*2 < len(texts) {
		return false, false
	}

	unique := make(map[string]bool)
	for _, t := range texts {
		unique[t] = true
	}
	return true, len(unique) > 1
}

func containsAny(text string, needles []string) bool {
	lower := strings.ToLower(text)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

// AggregateRecommendations surfaces patterns in the recent conflict history.
func (s *Service) AggregateRecommendations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[ConflictType]int)
	for _, c := range s.history {
		counts[c.Type]++
	}

	var out []string
	if counts[ConflictContradictory] >= 3 {
		out = append(out, "repeated contradictory information: defer numeric claims to a human reviewer")
	}
	if counts[ConflictInsufficient] >= 3 {
		out = append(out, "recurring data gaps: consider supplying meeting pre-reads")
	}
	if counts[ConflictAmbiguous]+counts[ConflictMultiple] >= 3 {
		out = append(out, "discussion is frequently ambiguous: tighten agenda framing")
	}
	return out
}

// GenerateGracefulResponse maps the conflict's recommended action to a
// template response. Unknown actions produce a generic low-confidence
// difficulty response rather than failing.
func (s *Service) GenerateGracefulResponse(conflict *Conflict, t chat.InterventionType) chat.GeneratedResponse {
	action := ActionAcknowledge
	if conflict != nil {
		action = conflict.RecommendedAction
	}

	switch action {
	case ActionRequestClarification:
		return graceful(t, 0.5,
			"I'm seeing some ambiguity here — could someone clarify which framing we should work with?",
			"Restate the question", "Pick one interpretation to run with")
	case ActionPresentAlternatives:
		return graceful(t, 0.5,
			"I'm seeing conflicting figures on this. Rather than pick one, here are both readings — worth reconciling before we decide.",
			"Reconcile the sources", "Flag for diligence")
	case ActionDeferToHuman:
		return graceful(t, 0.4,
			"This one needs a judgment call I shouldn't make — deferring to the partners in the room.",
			"Assign an owner")
	case ActionConservative:
		return graceful(t, 0.5,
			"Given the uncertainty, I'd suggest working from the most conservative reading for now.",
			"Revisit when better data lands")
	case ActionAcknowledge:
		return graceful(t, 0.4,
			"I don't have enough reliable information to answer that confidently right now.",
			"Note as an open question")
	default:
		return graceful(t, 0.2,
			"I'm having difficulty working with the available information on this one.")
	}
}

func graceful(t chat.InterventionType, confidence float64, text string, followUps ...string) chat.GeneratedResponse {
	return chat.GeneratedResponse{
		Text:       text,
		Type:       t,
		Confidence: confidence,
		Source:     "fallback",
		FollowUps:  followUps,
	}
}
