package chat

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ChatMessage is a single inbound message as delivered by the transport.
// Immutable once created.
type ChatMessage struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	UserID    string          `json:"user_id"`
	Content   string          `json:"content"`
	Timestamp time.Time       `json:"timestamp"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// Normalize fills in missing fields with sensible defaults.
// It never drops a message — a parseable payload always yields a usable ChatMessage.
func Normalize(raw []byte) (ChatMessage, error) {
	var m ChatMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return ChatMessage{}, err
	}

	if m.ID == "" {
		m.ID = uuid.New().String()
	}

	if m.Timestamp.IsZero() {
		slog.Warn("message missing timestamp, using arrival time", "message_id", m.ID)
		m.Timestamp = time.Now().UTC()
	}

	if m.SessionID == "" {
		m.SessionID = "default"
	}

	if m.Metadata == nil {
		m.Metadata = json.RawMessage(`{}`)
	}

	return m, nil
}

// MetadataField extracts a string field from the metadata JSON.
func (m *ChatMessage) MetadataField(key string) string {
	var meta map[string]any
	if err := json.Unmarshal(m.Metadata, &meta); err != nil {
		return ""
	}
	if v, ok := meta[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ProcessedMessage is a ChatMessage annotated with analysis results.
// Created once per incoming message and never mutated afterwards.
type ProcessedMessage struct {
	Original  ChatMessage           `json:"original"`
	Entities  []Entity              `json:"entities"`
	Sentiment Sentiment             `json:"sentiment"`
	Topics    []TopicClassification `json:"topics"`
	Urgency   UrgencyLevel          `json:"urgency"`
}

// DominantTopic returns the highest-confidence topic classification,
// or a zero value when the message has none.
func (p *ProcessedMessage) DominantTopic() TopicClassification {
	var best TopicClassification
	for _, t := range p.Topics {
		if t.Confidence > best.Confidence {
			best = t
		}
	}
	return best
}
