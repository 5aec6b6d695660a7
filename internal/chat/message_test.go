package chat

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNormalize_FillsDefaults(t *testing.T) {
	m, err := Normalize([]byte(`{"user_id": "alice", "content": "hello"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.ID == "" {
		t.Error("expected generated ID")
	}
	if m.Timestamp.IsZero() {
		t.Error("expected arrival timestamp")
	}
	if m.SessionID != "default" {
		t.Errorf("expected default session, got %q", m.SessionID)
	}
	if string(m.Metadata) != "{}" {
		t.Errorf("expected empty metadata object, got %q", m.Metadata)
	}
}

func TestNormalize_KeepsProvidedFields(t *testing.T) {
	raw := []byte(`{"id": "m-1", "session_id": "s-9", "user_id": "bob", "content": "hi", "timestamp": "2026-01-05T10:00:00Z", "metadata": {"channel": "board"}}`)
	m, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.ID != "m-1" || m.SessionID != "s-9" {
		t.Errorf("identifiers overwritten: %+v", m)
	}
	want := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	if !m.Timestamp.Equal(want) {
		t.Errorf("expected timestamp preserved, got %v", m.Timestamp)
	}
	if m.MetadataField("channel") != "board" {
		t.Errorf("expected metadata preserved, got %q", m.Metadata)
	}
}

func TestNormalize_RejectsBadJSON(t *testing.T) {
	if _, err := Normalize([]byte(`{"content": `)); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestMetadataField(t *testing.T) {
	m := ChatMessage{Metadata: json.RawMessage(`{"channel": "board", "attempt": 3}`)}

	if got := m.MetadataField("channel"); got != "board" {
		t.Errorf("expected board, got %q", got)
	}
	if got := m.MetadataField("missing"); got != "" {
		t.Errorf("expected empty for missing key, got %q", got)
	}
	if got := m.MetadataField("attempt"); got != "" {
		t.Errorf("expected empty for non-string value, got %q", got)
	}

	bad := ChatMessage{Metadata: json.RawMessage(`not json`)}
	if got := bad.MetadataField("channel"); got != "" {
		t.Errorf("expected empty for invalid metadata, got %q", got)
	}
}

func TestDominantTopic(t *testing.T) {
	p := ProcessedMessage{Topics: []TopicClassification{
		{Category: "market", Confidence: 0.4},
		{Category: "investment", Confidence: 0.9},
		{Category: "off_topic", Confidence: 0.2},
	}}
	if got := p.DominantTopic(); got.Category != "investment" {
		t.Errorf("expected investment, got %+v", got)
	}

	empty := ProcessedMessage{}
	if got := empty.DominantTopic(); got.Category != "" || got.Confidence != 0 {
		t.Errorf("expected zero value for no topics, got %+v", got)
	}
}
