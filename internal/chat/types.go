package chat

import "time"

// UrgencyLevel ranks how quickly a message needs attention.
type UrgencyLevel string

const (
	UrgencyLow    UrgencyLevel = "low"
	UrgencyMedium UrgencyLevel = "medium"
	UrgencyHigh   UrgencyLevel = "high"
)

// InterventionType identifies what kind of proactive message the assistant
// injects into a conversation.
type InterventionType string

const (
	InterventionNone          InterventionType = "none"
	InterventionTopicRedirect InterventionType = "topic_redirect"
	InterventionInfoGap       InterventionType = "information_gap"
	InterventionFactCheck     InterventionType = "fact_check"
	InterventionClarification InterventionType = "clarification"
	InterventionSummary       InterventionType = "summary"
)

// ActivityLevel controls how proactive the assistant is allowed to be.
// Set by activity-control commands ("be quiet", "be more active").
type ActivityLevel string

const (
	ActivitySilent ActivityLevel = "silent"
	ActivityQuiet  ActivityLevel = "quiet"
	ActivityNormal ActivityLevel = "normal"
	ActivityActive ActivityLevel = "active"
)

// MeetingType describes the kind of session being moderated.
type MeetingType string

const (
	MeetingBrainstorm MeetingType = "brainstorm"
	MeetingPitch      MeetingType = "pitch_review"
	MeetingGeneral    MeetingType = "general"
)

// QuestionType classifies a direct request to the assistant.
type QuestionType string

const (
	QuestionDirect      QuestionType = "direct_question"
	QuestionInfoRequest QuestionType = "information_request"
	QuestionOpinion     QuestionType = "opinion_request"
	QuestionHelp        QuestionType = "help_request"
	QuestionGreeting    QuestionType = "greeting"
	QuestionUnclear     QuestionType = "unclear"
)

// ResponseType is the chosen shape of the assistant's reply to a summon.
type ResponseType string

const (
	ResponseDirectAnswer        ResponseType = "direct_answer"
	ResponseClarificationNeeded ResponseType = "clarification_needed"
	ResponseInfoRequest         ResponseType = "information_request"
	ResponseAcknowledgment      ResponseType = "acknowledgment"
)

// EntityKind tags an extracted entity.
type EntityKind string

const (
	EntityCompany   EntityKind = "company"
	EntityFinancial EntityKind = "financial"
	EntityPerson    EntityKind = "person"
	EntityOther     EntityKind = "other"
)

// Entity is a span of interest extracted from message content.
type Entity struct {
	Text string     `json:"text"`
	Kind EntityKind `json:"kind"`
}

// Sentiment holds normalized polarity scores. Positive, Negative and Neutral
// sum to roughly 1; Overall is in [-1, 1].
type Sentiment struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
	Overall  float64 `json:"overall"`
}

// TopicClassification scores a message against one topic category.
// Confidence is in [0, 1].
type TopicClassification struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// TopicChange records a detected topic transition.
type TopicChange struct {
	PreviousTopic string    `json:"previous_topic"`
	NewTopic      string    `json:"new_topic"`
	Confidence    float64   `json:"confidence"`
	Timestamp     time.Time `json:"timestamp"`
}

// EngagementMetrics tracks one participant's activity within a session.
// SentimentTrend is in [-1, 1]; EngagementLevel is in [0, 1].
type EngagementMetrics struct {
	MessageCount        int           `json:"message_count"`
	LastActivity        time.Time     `json:"last_activity"`
	AverageResponseTime time.Duration `json:"average_response_time"`
	SentimentTrend      float64       `json:"sentiment_trend"`
	EngagementLevel     float64       `json:"engagement_level"`
}

// CommunicationStyle adjusts how responses are phrased for a participant.
type CommunicationStyle string

const (
	StyleFormal   CommunicationStyle = "formal"
	StyleCasual   CommunicationStyle = "casual"
	StyleBrief    CommunicationStyle = "brief"
	StyleDetailed CommunicationStyle = "detailed"
)

// UserPreferences carries per-participant response preferences.
type UserPreferences struct {
	Style             CommunicationStyle `json:"style"`
	PreferredAddress  string             `json:"preferred_address,omitempty"`
	ExpandContraction bool               `json:"expand_contractions,omitempty"`
}

// Participant is a member of a brainstorming session.
type Participant struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Role        string          `json:"role"`
	Preferences UserPreferences `json:"preferences"`
}

// ConversationTone summarizes the current mood used when personalizing output.
// Urgency and Enthusiasm are in [0, 1].
type ConversationTone struct {
	Urgency    float64 `json:"urgency"`
	Enthusiasm float64 `json:"enthusiasm"`
}
