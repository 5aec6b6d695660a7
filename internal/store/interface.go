package store

import (
	"context"

	"github.com/thesathwik/brainstorm-buddy/internal/chat"
)

// DataStore is the audit-persistence interface consumed by the pipeline and
// the API. The concrete implementation is *Store (pgx-backed); the audit
// trail is optional and a nil DataStore disables it.
type DataStore interface {
	InsertMessages(ctx context.Context, msgs []chat.ProcessedMessage) error
	InsertIntervention(ctx context.Context, rec chat.InterventionRecord) error
	QueryInterventions(ctx context.Context, sessionID string, limit int) ([]chat.InterventionRecord, error)
	Close()
}
