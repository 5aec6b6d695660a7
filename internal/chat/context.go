package chat

import "time"

// ConversationContext is the per-session state owned by the tracker.
// One instance per session; the tracker is its sole mutator.
type ConversationContext struct {
	SessionID           string               `json:"session_id"`
	Participants        []Participant        `json:"participants"`
	CurrentTopic        string               `json:"current_topic"`
	Agenda              []string             `json:"agenda,omitempty"`
	MessageHistory      []ProcessedMessage   `json:"message_history"`
	InterventionHistory []InterventionRecord `json:"intervention_history"`
	StartTime           time.Time            `json:"start_time"`
	MeetingType         MeetingType          `json:"meeting_type"`
}

// ConversationFlow aggregates drift and engagement signals for a session.
// ConversationMomentum is in [0, 1].
type ConversationFlow struct {
	CurrentTopic          string                        `json:"current_topic"`
	TopicHistory          []TopicChange                 `json:"topic_history"`
	ParticipantEngagement map[string]*EngagementMetrics `json:"participant_engagement"`
	ConversationMomentum  float64                       `json:"conversation_momentum"`
	LastTopicChange       time.Time                     `json:"last_topic_change"`
}

// InterventionDecision is the decision engine's output for one message.
type InterventionDecision struct {
	ShouldIntervene bool             `json:"should_intervene"`
	Type            InterventionType `json:"type"`
	Reason          string           `json:"reason"`
	Confidence      float64          `json:"confidence"`
	Priority        UrgencyLevel     `json:"priority"`
}

// InterventionRecord is the audit record of an executed intervention.
// Append-only; never mutated.
type InterventionRecord struct {
	ID        string           `json:"id"`
	SessionID string           `json:"session_id"`
	Type      InterventionType `json:"type"`
	Reason    string           `json:"reason"`
	Response  string           `json:"response"`
	Timestamp time.Time        `json:"timestamp"`
}

// GeneratedResponse is the generator's output: the drafted text plus metadata.
// Confidence is in [0, 1]; Source is "model" or "fallback".
type GeneratedResponse struct {
	Text        string           `json:"text"`
	Type        InterventionType `json:"type"`
	Confidence  float64          `json:"confidence"`
	Source      string           `json:"source"`
	FollowUps   []string         `json:"follow_ups,omitempty"`
	Attribution []string         `json:"attribution,omitempty"`
}

// SummonResult describes whether and how a message addresses the assistant.
type SummonResult struct {
	Summoned         bool          `json:"summoned"`
	Kind             SummonKind    `json:"kind"`
	ExtractedRequest string        `json:"extracted_request"`
	Activity         ActivityLevel `json:"activity,omitempty"`
}

// SummonKind ranks the pattern class that matched, highest priority first.
type SummonKind string

const (
	SummonNone            SummonKind = "none"
	SummonActivityControl SummonKind = "activity_control"
	SummonBotMention      SummonKind = "bot_mention"
	SummonTriggerPhrase   SummonKind = "trigger_phrase"
)

// SummonAnalysis is the analyzer's classification of a summon.
// QuestionClarity is in [0, 1].
type SummonAnalysis struct {
	QuestionType          QuestionType `json:"question_type"`
	QuestionClarity       float64      `json:"question_clarity"`
	Intent                string       `json:"intent"`
	RequiresClarification bool         `json:"requires_clarification"`
	ResponseType          ResponseType `json:"response_type"`
}
