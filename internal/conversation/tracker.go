// Package conversation maintains per-session rolling state: bounded message
// history, participant engagement, topic drift, and momentum. One Tracker per
// session; single-writer access — the pipeline serializes per-session calls.
package conversation

import (
	"sync"
	"time"

	"github.com/thesathwik/brainstorm-buddy/internal/chat"
)

const (
	// DriftThreshold is the minimum dominant-topic confidence required to
	// change the current topic.
	DriftThreshold = 0.7

	// engagement blend weights: recency, message rate, sentiment.
	weightRecency   = 0.4
	weightRate      = 0.3
	weightSentiment = 0.3

	recencyWindow   = 30 * time.Minute
	rateCeiling     = 2.0 // messages per minute
	momentumWindow  = 5 * time.Minute
	momentumCeiling = 3.0 // messages per minute
)

type Tracker struct {
	mu         sync.Mutex
	maxHistory int

	ctx  chat.ConversationContext
	flow chat.ConversationFlow
}

func NewTracker(sessionID string, maxHistory int) *Tracker {
	if maxHistory <= 0 {
		maxHistory = 100
	}
	return &Tracker{
		maxHistory: maxHistory,
		ctx: chat.ConversationContext{
			SessionID:    sessionID,
			CurrentTopic: "general",
			StartTime:    time.Now().UTC(),
			MeetingType:  chat.MeetingBrainstorm,
		},
		flow: chat.ConversationFlow{
			CurrentTopic:          "general",
			ParticipantEngagement: make(map[string]*chat.EngagementMetrics),
		},
	}
}

// AddMessage folds a processed message into the session state and returns
// the topic change it caused, if any. Low-confidence classifications never
// change topic.
func (t *Tracker) AddMessage(pm chat.ProcessedMessage) *chat.TopicChange {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Bounded history, oldest evicted first.
	t.ctx.MessageHistory = append(t.ctx.MessageHistory, pm)
	if len(t.ctx.MessageHistory) > t.maxHistory {
		t.ctx.MessageHistory = t.ctx.MessageHistory[len(t.ctx.MessageHistory)-t.maxHistory:]
	}

	t.ensureParticipant(pm.Original.UserID)
	t.updateEngagement(pm)
	change := t.detectTopicChange(pm)
	t.recomputeMomentum(pm.Original.Timestamp)

	return change
}

func (t *Tracker) ensureParticipant(userID string) {
	if userID == "" {
		return
	}
	for _, p := range t.ctx.Participants {
		if p.ID == userID {
			return
		}
	}
	t.ctx.Participants = append(t.ctx.Participants, chat.Participant{ID: userID, Name: userID})
}

func (t *Tracker) updateEngagement(pm chat.ProcessedMessage) {
	userID := pm.Original.UserID
	if userID == "" {
		return
	}

	m, ok := t.flow.ParticipantEngagement[userID]
	if !ok {
		m = &chat.EngagementMetrics{}
		t.flow.ParticipantEngagement[userID] = m
	}

	now := pm.Original.Timestamp

	// Cumulative moving average of this participant's inter-message gap.
	if m.MessageCount > 0 && !m.LastActivity.IsZero() {
		gap := now.Sub(m.LastActivity)
		if gap > 0 {
			n := float64(m.MessageCount)
			m.AverageResponseTime = time.Duration((float64(m.AverageResponseTime)*(n-1) + float64(gap)) / n)
		}
	}

	m.MessageCount++
	m.LastActivity = now

	// Blend sentiment trend toward the new message with weight 0.3.
	m.SentimentTrend = clamp(m.SentimentTrend*0.7+pm.Sentiment.Overall*0.3, -1, 1)

	m.EngagementLevel = t.engagementScore(m, now)
}

// engagementScore blends recency decay, message rate, and sentiment.
func (t *Tracker) engagementScore(m *chat.EngagementMetrics, now time.Time) float64 {
	recency := 1 - float64(now.Sub(m.LastActivity))/float64(recencyWindow)
	recency = clamp(recency, 0, 1)

	elapsed := now.Sub(t.ctx.StartTime).Minutes()
	if elapsed < 1 {
		elapsed = 1
	}
	rate := clamp((float64(m.MessageCount)/elapsed)/rateCeiling, 0, 1)

	sentiment := (m.SentimentTrend + 1) / 2

	return clamp(weightRecency*recency+weightRate*rate+weightSentiment*sentiment, 0, 1)
}

func (t *Tracker) detectTopicChange(pm chat.ProcessedMessage) *chat.TopicChange {
	dominant := pm.DominantTopic()
	if dominant.Confidence <= DriftThreshold || dominant.Category == "" {
		return nil
	}
	if dominant.Category == t.ctx.CurrentTopic {
		return nil
	}

	change := chat.TopicChange{
		PreviousTopic: t.ctx.CurrentTopic,
		NewTopic:      dominant.Category,
		Confidence:    dominant.Confidence,
		Timestamp:     pm.Original.Timestamp,
	}

	// Topic history only appends; past entries are never rewritten.
	t.flow.TopicHistory = append(t.flow.TopicHistory, change)
	t.flow.LastTopicChange = change.Timestamp
	t.ctx.CurrentTopic = dominant.Category
	t.flow.CurrentTopic = dominant.Category

	return &change
}

// recomputeMomentum averages message rate, sentiment, and participant
// diversity over the trailing window.
func (t *Tracker) recomputeMomentum(now time.Time) {
	cutoff := now.Add(-momentumWindow)

	var count int
	var sentimentSum float64
	senders := make(map[string]bool)
	for _, pm := range t.ctx.MessageHistory {
		if pm.Original.Timestamp.Before(cutoff) {
			continue
		}
		count++
		sentimentSum += pm.Sentiment.Overall
		senders[pm.Original.UserID] = true
	}

	if count == 0 {
		t.flow.ConversationMomentum = 0
		return
	}

	rate := clamp((float64(count)/momentumWindow.Minutes())/momentumCeiling, 0, 1)
	sentiment := clamp((sentimentSum/float64(count)+1)/2, 0, 1)

	diversity := 0.0
	if len(t.ctx.Participants) > 0 {
		diversity = clamp(float64(len(senders))/float64(len(t.ctx.Participants)), 0, 1)
	}

	t.flow.ConversationMomentum = (rate + sentiment + diversity) / 3
}

// RecordIntervention appends an executed intervention to the audit history.
func (t *Tracker) RecordIntervention(rec chat.InterventionRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ctx.InterventionHistory = append(t.ctx.InterventionHistory, rec)
}

// RecentMessages returns up to n of the newest messages, oldest first.
func (t *Tracker) RecentMessages(n int) []chat.ProcessedMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n <= 0 || n > len(t.ctx.MessageHistory) {
		n = len(t.ctx.MessageHistory)
	}
	out := make([]chat.ProcessedMessage, n)
	copy(out, t.ctx.MessageHistory[len(t.ctx.MessageHistory)-n:])
	return out
}

// MessagesInTimeWindow returns messages newer than the given window.
func (t *Tracker) MessagesInTimeWindow(window time.Duration) []chat.ProcessedMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-window)
	var out []chat.ProcessedMessage
	for _, pm := range t.ctx.MessageHistory {
		if !pm.Original.Timestamp.Before(cutoff) {
			out = append(out, pm)
		}
	}
	return out
}

// IsIdle reports whether no message has arrived within the window.
// A session with zero messages is idle.
func (t *Tracker) IsIdle(window time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.ctx.MessageHistory) == 0 {
		return true
	}
	last := t.ctx.MessageHistory[len(t.ctx.MessageHistory)-1].Original.Timestamp
	return time.Since(last) > window
}

// Stats summarizes the session for the admin API.
type Stats struct {
	SessionID        string    `json:"session_id"`
	MessageCount     int       `json:"message_count"`
	ParticipantCount int       `json:"participant_count"`
	CurrentTopic     string    `json:"current_topic"`
	Momentum         float64   `json:"momentum"`
	TopicChanges     int       `json:"topic_changes"`
	Interventions    int       `json:"interventions"`
	StartTime        time.Time `json:"start_time"`
}

func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Stats{
		SessionID:        t.ctx.SessionID,
		MessageCount:     len(t.ctx.MessageHistory),
		ParticipantCount: len(t.ctx.Participants),
		CurrentTopic:     t.ctx.CurrentTopic,
		Momentum:         t.flow.ConversationMomentum,
		TopicChanges:     len(t.flow.TopicHistory),
		Interventions:    len(t.ctx.InterventionHistory),
		StartTime:        t.ctx.StartTime,
	}
}

// Snapshot returns a copy of the session context for read-only consumers.
func (t *Tracker) Snapshot() chat.ConversationContext {
	t.mu.Lock()
	defer t.mu.Unlock()

	cp := t.ctx
	cp.MessageHistory = append([]chat.ProcessedMessage(nil), t.ctx.MessageHistory...)
	cp.InterventionHistory = append([]chat.InterventionRecord(nil), t.ctx.InterventionHistory...)
	cp.Participants = append([]chat.Participant(nil), t.ctx.Participants...)
	return cp
}

// Flow returns a copy of the drift/engagement aggregate.
func (t *Tracker) Flow() chat.ConversationFlow {
	t.mu.Lock()
	defer t.mu.Unlock()

	cp := t.flow
	cp.TopicHistory = append([]chat.TopicChange(nil), t.flow.TopicHistory...)
	cp.ParticipantEngagement = make(map[string]*chat.EngagementMetrics, len(t.flow.ParticipantEngagement))
	for k, v := range t.flow.ParticipantEngagement {
		m := *v
		cp.ParticipantEngagement[k] = &m
	}
	return cp
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
