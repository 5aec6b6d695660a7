package degradation

// Level is the process-wide tier of available AI-backed capability.
// Ordered: None < Minimal < Moderate < Severe < Offline. Transitions are
// explicit — set by health checks or operators, never automatic decay.
type Level int

const (
	LevelNone Level = iota
	LevelMinimal
	LevelModerate
	LevelSevere
	LevelOffline
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelMinimal:
		return "minimal"
	case LevelModerate:
		return "moderate"
	case LevelSevere:
		return "severe"
	case LevelOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// ParseLevel maps a level name back to its Level. Unknown names report ok=false.
func ParseLevel(s string) (Level, bool) {
	switch s {
	case "none":
		return LevelNone, true
	case "minimal":
		return LevelMinimal, true
	case "moderate":
		return LevelModerate, true
	case "severe":
		return LevelSevere, true
	case "offline":
		return LevelOffline, true
	default:
		return LevelNone, false
	}
}

// Capability names gated by the degradation level.
const (
	CapFullAnalysis           = "full_analysis"
	CapProactiveInterventions = "proactive_interventions"
	CapFactChecking           = "fact_checking"
	CapResponseGeneration     = "response_generation"
	CapBasicAnalysis          = "basic_analysis"
	CapSummonResponses        = "summon_responses"
)

// capabilities is the per-level capability table. Lookup is pure.
var capabilities = map[Level]map[string]bool{
	LevelNone: {
		CapFullAnalysis:           true,
		CapProactiveInterventions: true,
		CapFactChecking:           true,
		CapResponseGeneration:     true,
		CapBasicAnalysis:          true,
		CapSummonResponses:        true,
	},
	LevelMinimal: {
		CapFullAnalysis:           false,
		CapProactiveInterventions: true,
		CapFactChecking:           true,
		CapResponseGeneration:     true,
		CapBasicAnalysis:          true,
		CapSummonResponses:        true,
	},
	LevelModerate: {
		CapFullAnalysis:           false,
		CapProactiveInterventions: false,
		CapFactChecking:           false,
		CapResponseGeneration:     true,
		CapBasicAnalysis:          true,
		CapSummonResponses:        true,
	},
	LevelSevere: {
		CapFullAnalysis:           false,
		CapProactiveInterventions: false,
		CapFactChecking:           false,
		CapResponseGeneration:     false,
		CapBasicAnalysis:          true,
		CapSummonResponses:        true,
	},
	LevelOffline: {
		CapFullAnalysis:           false,
		CapProactiveInterventions: false,
		CapFactChecking:           false,
		CapResponseGeneration:     false,
		CapBasicAnalysis:          true,
		CapSummonResponses:        false,
	},
}
