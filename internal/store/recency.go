package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Recency tracks how often and how recently an entity was referenced.
type Recency struct {
	EntityNameLower string
	LastMentionedAt time.Time
	MentionCount    int
}

// RecordEntityMention upserts the recency row for name: first mention
// inserts with count 1; later mentions increment the count and keep the
// maximum timestamp seen.
func (db *DB) RecordEntityMention(name string, when time.Time) error {
	if when.IsZero() {
		when = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO recency (entity_name_lower, last_mentioned_at, mention_count)
		VALUES (?, ?, 1)
		ON CONFLICT(entity_name_lower) DO UPDATE SET
			mention_count     = mention_count + 1,
			last_mentioned_at = MAX(last_mentioned_at, excluded.last_mentioned_at)
	`, strings.ToLower(name), when.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: record mention: %w", err)
	}
	return nil
}

// SetRecency writes a recency row outright, replacing any existing row.
// Used by migration, which carries exact legacy counts.
func (db *DB) SetRecency(name string, lastMentionedAt time.Time, count int) error {
	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO recency (entity_name_lower, last_mentioned_at, mention_count)
		VALUES (?, ?, ?)
	`, strings.ToLower(name), lastMentionedAt.UnixMilli(), count)
	if err != nil {
		return fmt.Errorf("store: set recency: %w", err)
	}
	return nil
}

// GetRecency returns the recency row for name, or (nil, nil) when the entity
// has never been mentioned.
func (db *DB) GetRecency(name string) (*Recency, error) {
	var r Recency
	var at int64
	err := db.conn.QueryRow(`
		SELECT entity_name_lower, last_mentioned_at, mention_count
		FROM recency WHERE entity_name_lower = ?
	`, strings.ToLower(name)).Scan(&r.EntityNameLower, &at, &r.MentionCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get recency: %w", err)
	}
	r.LastMentionedAt = time.UnixMilli(at)
	return &r, nil
}
