package degradation

import (
	"testing"

	"github.com/thesathwik/brainstorm-buddy/internal/chat"
)

func TestLevelOrdering(t *testing.T) {
	if !(LevelNone < LevelMinimal && LevelMinimal < LevelModerate &&
		LevelModerate < LevelSevere && LevelSevere < LevelOffline) {
		t.Error("expected strictly increasing level ordering")
	}
}

func TestParseLevel_RoundTrip(t *testing.T) {
	for _, l := range []Level{LevelNone, LevelMinimal, LevelModerate, LevelSevere, LevelOffline} {
		got, ok := ParseLevel(l.String())
		if !ok || got != l {
			t.Errorf("round trip failed for %s: got %v ok=%v", l, got, ok)
		}
	}
	if _, ok := ParseLevel("catastrophic"); ok {
		t.Error("expected unknown level name to report ok=false")
	}
}

func TestCapabilities_FullServiceAtNone(t *testing.T) {
	s := NewService()

	for _, cap := range []string{
		CapFullAnalysis, CapProactiveInterventions, CapFactChecking,
		CapResponseGeneration, CapBasicAnalysis, CapSummonResponses,
	} {
		if !s.IsCapabilityAvailable(cap) {
			t.Errorf("expected %s available at level none", cap)
		}
	}
}

func TestCapabilities_ModerateDropsProactiveKeepsBasic(t *testing.T) {
	s := NewService()
	s.SetLevel(LevelModerate, "test")

	if s.IsCapabilityAvailable(CapProactiveInterventions) {
		t.Error("expected proactive interventions unavailable at moderate")
	}
	if !s.IsCapabilityAvailable(CapBasicAnalysis) {
		t.Error("expected basic analysis still available at moderate")
	}
	if !s.IsCapabilityAvailable(CapSummonResponses) {
		t.Error("expected summon responses still available at moderate")
	}
}

func TestCapabilities_OfflineKeepsOnlyBasicAnalysis(t *testing.T) {
	s := NewService()
	s.SetLevel(LevelOffline, "test")

	if !s.IsCapabilityAvailable(CapBasicAnalysis) {
		t.Error("expected basic analysis available offline")
	}
	if s.IsCapabilityAvailable(CapSummonResponses) {
		t.Error("expected summon responses unavailable offline")
	}
	if s.IsCapabilityAvailable(CapResponseGeneration) {
		t.Error("expected response generation unavailable offline")
	}
}

func TestSetLevel_NotifiesObserversOnce(t *testing.T) {
	s := NewService()

	var transitions []string
	s.OnTransition(func(from, to Level, reason string) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	s.SetLevel(LevelSevere, "probe failed")
	s.SetLevel(LevelSevere, "probe failed again") // no-op, same level
	s.SetLevel(LevelNone, "recovered")

	if len(transitions) != 2 {
		t.Fatalf("expected 2 transitions, got %d: %v", len(transitions), transitions)
	}
	if transitions[0] != "none->severe" || transitions[1] != "severe->none" {
		t.Errorf("unexpected transitions: %v", transitions)
	}
}

func TestAnalyzeConflicts_InsufficientData(t *testing.T) {
	s := NewService()

	c := s.AnalyzeInformationConflicts(nil)
	if c == nil || c.Type != ConflictInsufficient {
		t.Fatalf("expected insufficient data for empty input, got %+v", c)
	}
	if c.RecommendedAction != ActionAcknowledge {
		t.Errorf("expected acknowledge action, got %s", c.RecommendedAction)
	}

	// Mostly empty items also count as insufficient.
	items := []InformationItem{
		{Source: "a"},
		{Source: "b"},
		{Source: "c", Text: "ARR is $10M"},
	}
	c = s.AnalyzeInformationConflicts(items)
	if c == nil || c.Type != ConflictInsufficient {
		t.Errorf("expected insufficient for null-heavy input, got %+v", c)
	}
}

func TestAnalyzeConflicts_ContradictoryNumbers(t *testing.T) {
	s := NewService()

	items := []InformationItem{
		{Source: "deck", Values: map[string]float64{"arr": 10_000_000}},
		{Source: "founder", Values: map[string]float64{"arr": 14_000_000}},
	}
	c := s.AnalyzeInformationConflicts(items)
	if c == nil || c.Type != ConflictContradictory {
		t.Fatalf("expected contradictory conflict, got %+v", c)
	}
	if c.RecommendedAction != ActionPresentAlternatives {
		t.Errorf("expected present alternatives, got %s", c.RecommendedAction)
	}
}

func TestAnalyzeConflicts_SmallNumericDifferenceTolerated(t *testing.T) {
	s := NewService()

	items := []InformationItem{
		{Source: "deck", Values: map[string]float64{"arr": 10_000_000}},
		{Source: "founder", Values: map[string]float64{"arr": 10_500_000}},
	}
	if c := s.AnalyzeInformationConflicts(items); c != nil {
		t.Errorf("expected 5%% difference tolerated, got %+v", c)
	}
}

func TestAnalyzeConflicts_HedgedText(t *testing.T) {
	s := NewService()

	// Distinct hedged readings: multiple interpretations.
	items := []InformationItem{
		{Source: "a", Text: "maybe around 10M, not sure"},
		{Source: "b", Text: "could be closer to 20M possibly"},
	}
	c := s.AnalyzeInformationConflicts(items)
	if c == nil || c.Type != ConflictMultiple {
		t.Fatalf("expected multiple interpretations, got %+v", c)
	}
	if c.RecommendedAction != ActionConservative {
		t.Errorf("expected conservative action, got %s", c.RecommendedAction)
	}

	// The same hedged reading repeated: ambiguous, ask for clarification.
	items = []InformationItem{
		{Source: "a", Text: "maybe around 10M"},
		{Source: "b", Text: "maybe around 10M"},
	}
	c = s.AnalyzeInformationConflicts(items)
	if c == nil || c.Type != ConflictAmbiguous {
		t.Fatalf("expected ambiguous context, got %+v", c)
	}
	if c.RecommendedAction != ActionRequestClarification {
		t.Errorf("expected clarification action, got %s", c.RecommendedAction)
	}
}

func TestAnalyzeConflicts_CleanDataNoConflict(t *testing.T) {
	s := NewService()

	items := []InformationItem{
		{Source: "deck", Values: map[string]float64{"arr": 10_000_000}, Text: "ARR confirmed at $10M"},
		{Source: "audit", Values: map[string]float64{"arr": 10_000_000}, Text: "Audited revenue matches"},
	}
	if c := s.AnalyzeInformationConflicts(items); c != nil {
		t.Errorf("expected no conflict for clean data, got %+v", c)
	}
}

func TestAggregateRecommendations_SurfacesRepeatedConflicts(t *testing.T) {
	s := NewService()

	if got := s.AggregateRecommendations(); len(got) != 0 {
		t.Errorf("expected no recommendations without history, got %v", got)
	}

	items := []InformationItem{
		{Source: "a", Values: map[string]float64{"arr": 1}},
		{Source: "b", Values: map[string]float64{"arr": 2}},
	}
	for i := 0; i < 3; i++ {
		s.AnalyzeInformationConflicts(items)
	}

	got := s.AggregateRecommendations()
	if len(got) != 1 {
		t.Fatalf("expected 1 recommendation after repeated contradictions, got %v", got)
	}
}

func TestGenerateGracefulResponse_MapsActions(t *testing.T) {
	s := NewService()

	conflict := &Conflict{Type: ConflictContradictory, RecommendedAction: ActionPresentAlternatives}
	resp := s.GenerateGracefulResponse(conflict, chat.InterventionFactCheck)
	if resp.Source != "fallback" {
		t.Errorf("expected fallback source, got %s", resp.Source)
	}
	if resp.Type != chat.InterventionFactCheck {
		t.Errorf("expected type preserved, got %s", resp.Type)
	}
	if resp.Text == "" {
		t.Error("expected non-empty text")
	}

	// Nil conflict acknowledges uncertainty rather than failing.
	resp = s.GenerateGracefulResponse(nil, chat.InterventionInfoGap)
	if resp.Text == "" || resp.Confidence == 0 {
		t.Errorf("expected usable response for nil conflict, got %+v", resp)
	}

	// Unknown action degrades to the generic difficulty response.
	weird := &Conflict{RecommendedAction: RecommendedAction("made_up")}
	resp = s.GenerateGracefulResponse(weird, chat.InterventionSummary)
	if resp.Confidence != 0.2 {
		t.Errorf("expected generic low-confidence response, got %+v", resp)
	}
}
