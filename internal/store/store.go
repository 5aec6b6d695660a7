package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thesathwik/brainstorm-buddy/internal/chat"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// ensureSchema creates the audit tables on first connect so a fresh database
// works without a separate migration step.
func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS buddy_messages (
			message_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			user_id    TEXT NOT NULL,
			content    TEXT NOT NULL,
			timestamp  TIMESTAMPTZ NOT NULL,
			analysis   JSONB
		);
		CREATE INDEX IF NOT EXISTS buddy_messages_session_idx
			ON buddy_messages (session_id, timestamp);

		CREATE TABLE IF NOT EXISTS buddy_interventions (
			id         TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			type       TEXT NOT NULL,
			reason     TEXT,
			response   TEXT,
			timestamp  TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS buddy_interventions_session_idx
			ON buddy_interventions (session_id, timestamp);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// InsertMessages batch-inserts processed messages into buddy_messages.
// Analysis annotations are stored as JSON alongside the raw content.
func (s *Store) InsertMessages(ctx context.Context, msgs []chat.ProcessedMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	rows := make([][]any, len(msgs))
	for i, pm := range msgs {
		analysis, _ := json.Marshal(map[string]any{
			"entities":  pm.Entities,
			"sentiment": pm.Sentiment,
			"topics":    pm.Topics,
			"urgency":   pm.Urgency,
		})
		rows[i] = []any{
			pm.Original.ID,
			pm.Original.SessionID,
			pm.Original.UserID,
			pm.Original.Content,
			pm.Original.Timestamp,
			analysis,
		}
	}

	_, err := s.pool.CopyFrom(
		ctx,
		pgx.Identifier{"buddy_messages"},
		[]string{"message_id", "session_id", "user_id", "content", "timestamp", "analysis"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy messages: %w", err)
	}

	slog.Debug("inserted messages", "count", len(msgs))
	return nil
}

// InsertIntervention appends one executed intervention to the audit trail.
func (s *Store) InsertIntervention(ctx context.Context, rec chat.InterventionRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO buddy_interventions (id, session_id, type, reason, response, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.SessionID, string(rec.Type), rec.Reason, rec.Response, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("insert intervention: %w", err)
	}
	return nil
}

// QueryInterventions returns the newest interventions for a session.
func (s *Store) QueryInterventions(ctx context.Context, sessionID string, limit int) ([]chat.InterventionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, type, reason, response, timestamp
		FROM buddy_interventions
		WHERE session_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query interventions: %w", err)
	}
	defer rows.Close()

	var out []chat.InterventionRecord
	for rows.Next() {
		var rec chat.InterventionRecord
		var typ string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &typ, &rec.Reason, &rec.Response, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan intervention: %w", err)
		}
		rec.Type = chat.InterventionType(typ)
		out = append(out, rec)
	}
	return out, rows.Err()
}
