package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Metadata is the singleton row describing the state database.
type Metadata struct {
	SchemaVersion   int
	EntityCount     int
	NoteCount       int
	EntitiesBuiltAt *time.Time
	NotesBuiltAt    *time.Time
}

// GetStateDbMetadata returns the metadata row.
func (db *DB) GetStateDbMetadata() (*Metadata, error) {
	var m Metadata
	var entitiesAt, notesAt sql.NullInt64
	err := db.conn.QueryRow(`
		SELECT schema_version, entity_count, note_count, entities_built_at, notes_built_at
		FROM metadata WHERE id = 1
	`).Scan(&m.SchemaVersion, &m.EntityCount, &m.NoteCount, &entitiesAt, &notesAt)
	if err != nil {
		return nil, fmt.Errorf("store: metadata: %w", err)
	}
	if entitiesAt.Valid {
		t := time.UnixMilli(entitiesAt.Int64)
		m.EntitiesBuiltAt = &t
	}
	if notesAt.Valid {
		t := time.UnixMilli(notesAt.Int64)
		m.NotesBuiltAt = &t
	}
	return &m, nil
}

// IsEntityDataStale reports whether the entity tables were never built or
// were built longer than threshold ago. Staleness is monotonic in elapsed
// time.
func (db *DB) IsEntityDataStale(threshold time.Duration) (bool, error) {
	m, err := db.GetStateDbMetadata()
	if err != nil {
		return true, err
	}
	if m.EntitiesBuiltAt == nil {
		return true, nil
	}
	return time.Since(*m.EntitiesBuiltAt) > threshold, nil
}

// MarkEntityDataStale clears the entities-built timestamp so the next
// staleness check forces a rebuild.
func (db *DB) MarkEntityDataStale() error {
	_, err := db.conn.Exec(`UPDATE metadata SET entities_built_at = NULL WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("store: mark stale: %w", err)
	}
	return nil
}
