// Package audit provides PostgreSQL-backed storage for relay audit events.
// Each row captures who relayed to whom and when, keyed by the pair ID.
// Message content is never stored. A Redis sliding-window
// suppressor keeps bursts from one sender from flooding the table.
package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// Store writes relay audit events to PostgreSQL.
type Store struct {
	db         *sql.DB
	suppressor *Suppressor // optional
}

// NewStore creates an audit store backed by the given database handle.
// suppressor may be nil to record every event.
func NewStore(db *sql.DB, suppressor *Suppressor) *Store {
	return &Store{db: db, suppressor: suppressor}
}

// MessageRelayed records one delivered relay. When the sender has exceeded
// the suppression window the event is silently dropped; audit sampling is a
// logging policy, not a relay outcome.
func (s *Store) MessageRelayed(ctx context.Context, pairID string, sender, partner int64) error {
	if s.suppressor != nil {
		allowed, err := s.suppressor.Allow(ctx, sender)
		if err == nil && !allowed {
			return nil
		}
		// On suppressor errors fall through and record the event.
	}

	const query = `
		INSERT INTO relay_audit (pair_id, sender_id, partner_id)
		VALUES ($1, $2, $3)`

	if _, err := s.db.ExecContext(ctx, query, pairID, sender, partner); err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

// CountForPair returns the number of audited relays for a pair, for
// moderation tooling and tests.
func (s *Store) CountForPair(ctx context.Context, pairID string) (int, error) {
	const query = `SELECT COUNT(*) FROM relay_audit WHERE pair_id = $1`

	var count int
	if err := s.db.QueryRowContext(ctx, query, pairID).Scan(&count); err != nil {
		return 0, fmt.Errorf("audit: count for pair: %w", err)
	}
	return count, nil
}
