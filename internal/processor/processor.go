// Package processor turns raw chat messages into annotated ProcessedMessages.
// Analysis prefers the completion service; every analysis has a local
// heuristic fallback so a failing model API never fails a message.
package processor

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/thesathwik/brainstorm-buddy/internal/chat"
	"github.com/thesathwik/brainstorm-buddy/internal/llm"
)

// DefaultPauseThreshold is how long without a message counts as a pause.
const DefaultPauseThreshold = 10 * time.Second

const (
	entityPrompt = `Extract named entities from the message. Reply with a JSON array of {"text": string, "kind": "company"|"financial"|"person"|"other"} and nothing else.`

	sentimentPrompt = `Score the sentiment of the message. Reply with JSON {"positive": number, "negative": number, "neutral": number, "overall": number} where positive+negative+neutral≈1 and overall is -1..1, and nothing else.`

	topicPrompt = `Classify the message against venture-capital discussion topics. Reply with a JSON array of {"category": string, "confidence": number 0..1} and nothing else.`
)

// Completions is the slice of the completion client the processor needs.
type Completions interface {
	AnalyzeText(ctx context.Context, text, prompt string) (llm.Result, error)
}

type Processor struct {
	client         Completions
	pauseThreshold time.Duration

	mu          sync.Mutex
	lastMessage time.Time
}

func New(client Completions, pauseThreshold time.Duration) *Processor {
	if pauseThreshold <= 0 {
		pauseThreshold = DefaultPauseThreshold
	}
	return &Processor{client: client, pauseThreshold: pauseThreshold}
}

// ProcessMessage annotates a message with entities, sentiment, topics, and
// urgency. It never fails: any model error or unparseable response falls
// back to the local heuristic for that analysis only.
func (p *Processor) ProcessMessage(ctx context.Context, msg chat.ChatMessage) chat.ProcessedMessage {
	p.mu.Lock()
	p.lastMessage = msg.Timestamp
	p.mu.Unlock()

	entities := p.extractEntities(ctx, msg.Content)
	sentiment := p.analyzeSentiment(ctx, msg.Content)
	topics := p.classifyTopics(ctx, msg.Content)

	return chat.ProcessedMessage{
		Original:  msg,
		Entities:  entities,
		Sentiment: sentiment,
		Topics:    topics,
		Urgency:   determineUrgency(msg.Content, sentiment),
	}
}

func (p *Processor) extractEntities(ctx context.Context, content string) []chat.Entity {
	res, err := p.client.AnalyzeText(ctx, content, entityPrompt)
	if err == nil {
		var entities []chat.Entity
		if jsonErr := json.Unmarshal([]byte(stripFences(res.Content)), &entities); jsonErr == nil {
			return entities
		}
		slog.Debug("entity response unparseable, using heuristic")
	}
	return extractEntitiesHeuristic(content)
}

func (p *Processor) analyzeSentiment(ctx context.Context, content string) chat.Sentiment {
	res, err := p.client.AnalyzeText(ctx, content, sentimentPrompt)
	if err == nil {
		var s chat.Sentiment
		if jsonErr := json.Unmarshal([]byte(stripFences(res.Content)), &s); jsonErr == nil && valid(s) {
			return s
		}
		slog.Debug("sentiment response unparseable, using heuristic")
	}
	return analyzeSentimentHeuristic(content)
}

func (p *Processor) classifyTopics(ctx context.Context, content string) []chat.TopicClassification {
	res, err := p.client.AnalyzeText(ctx, content, topicPrompt)
	if err == nil {
		var topics []chat.TopicClassification
		if jsonErr := json.Unmarshal([]byte(stripFences(res.Content)), &topics); jsonErr == nil && len(topics) > 0 {
			for i := range topics {
				topics[i].Confidence = clamp(topics[i].Confidence, 0, 1)
			}
			return topics
		}
		slog.Debug("topic response unparseable, using heuristic")
	}
	return classifyTopicsHeuristic(content)
}

func valid(s chat.Sentiment) bool {
	return s.Overall >= -1 && s.Overall <= 1 &&
		s.Positive >= 0 && s.Negative >= 0 && s.Neutral >= 0
}

// stripFences removes a markdown code fence wrapper if the model added one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// DetectConversationPause reports whether the gap since the most recently
// processed message exceeds the pause threshold. Always false before the
// first message.
func (p *Processor) DetectConversationPause() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lastMessage.IsZero() {
		return false
	}
	return time.Since(p.lastMessage) > p.pauseThreshold
}

// BootstrapContext builds a fresh conversation context from a message list.
// This is a bootstrap helper; live state lives in the conversation tracker.
func (p *Processor) BootstrapContext(sessionID string, msgs []chat.ChatMessage) chat.ConversationContext {
	cc := chat.ConversationContext{
		SessionID:    sessionID,
		CurrentTopic: "general",
		StartTime:    time.Now().UTC(),
		MeetingType:  chat.MeetingGeneral,
	}
	if len(msgs) > 0 {
		cc.StartTime = msgs[0].Timestamp
	}

	seen := make(map[string]bool)
	for _, m := range msgs {
		if m.UserID == "" || seen[m.UserID] {
			continue
		}
		seen[m.UserID] = true
		cc.Participants = append(cc.Participants, chat.Participant{ID: m.UserID, Name: m.UserID})
	}

	// Infer an initial topic from the tail of the conversation.
	tail := msgs
	if len(tail) > 5 {
		tail = tail[len(tail)-5:]
	}
	var joined strings.Builder
	for _, m := range tail {
		joined.WriteString(strings.ToLower(m.Content))
		joined.WriteByte(' ')
	}
	switch {
	case keywordScore(joined.String(), investmentKeywords) > 0:
		cc.CurrentTopic = "investment"
	case keywordScore(joined.String(), marketKeywords) > 0:
		cc.CurrentTopic = "market"
	}

	return cc
}
