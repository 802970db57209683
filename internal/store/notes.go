package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/laguz/internal/models"
)

// UpsertNote inserts or replaces the metadata row for a note.
func (db *DB) UpsertNote(n models.Note) error {
	aliases, err := marshalAliases(n.Aliases)
	if err != nil {
		return fmt.Errorf("store: marshal note aliases: %w", err)
	}
	var tags sql.NullString
	if len(n.Tags) > 0 {
		b, err := json.Marshal(n.Tags)
		if err != nil {
			return fmt.Errorf("store: marshal note tags: %w", err)
		}
		tags = sql.NullString{String: string(b), Valid: true}
	}
	_, err = db.conn.Exec(`
		INSERT INTO notes (path, title, content_hash, modified_at, aliases_json, tags_json)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title        = excluded.title,
			content_hash = excluded.content_hash,
			modified_at  = excluded.modified_at,
			aliases_json = excluded.aliases_json,
			tags_json    = excluded.tags_json
	`, n.Path, n.Title, n.Checksum, n.ModifiedAt.UnixMilli(), aliases, tags)
	if err != nil {
		return fmt.Errorf("store: upsert note: %w", err)
	}
	return nil
}

// ReplaceAllNotes swaps the notes table for the given set in one transaction
// and stamps the metadata row.
func (db *DB) ReplaceAllNotes(notes []models.Note) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM notes`); err != nil {
		return 0, fmt.Errorf("store: clear notes: %w", err)
	}
	for _, n := range notes {
		aliases, err := marshalAliases(n.Aliases)
		if err != nil {
			return 0, fmt.Errorf("store: marshal note aliases: %w", err)
		}
		var tags sql.NullString
		if len(n.Tags) > 0 {
			b, err := json.Marshal(n.Tags)
			if err != nil {
				return 0, fmt.Errorf("store: marshal note tags: %w", err)
			}
			tags = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := tx.Exec(`
			INSERT INTO notes (path, title, content_hash, modified_at, aliases_json, tags_json)
			VALUES (?, ?, ?, ?, ?, ?)
		`, n.Path, n.Title, n.Checksum, n.ModifiedAt.UnixMilli(), aliases, tags); err != nil {
			return 0, fmt.Errorf("store: insert note: %w", err)
		}
	}

	now := time.Now().UnixMilli()
	if _, err := tx.Exec(`
		UPDATE metadata SET note_count = ?, notes_built_at = ? WHERE id = 1
	`, len(notes), now); err != nil {
		return 0, fmt.Errorf("store: update metadata: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return len(notes), nil
}

// GetNote returns the stored metadata for path, or (nil, nil) when absent.
func (db *DB) GetNote(path string) (*models.Note, error) {
	var n models.Note
	var modifiedAt sql.NullInt64
	var aliases, tags sql.NullString
	err := db.conn.QueryRow(`
		SELECT path, title, content_hash, modified_at, aliases_json, tags_json
		FROM notes WHERE path = ?
	`, path).Scan(&n.Path, &n.Title, &n.Checksum, &modifiedAt, &aliases, &tags)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get note: %w", err)
	}
	if modifiedAt.Valid {
		n.ModifiedAt = time.UnixMilli(modifiedAt.Int64)
	}
	n.Aliases = unmarshalAliases(aliases)
	if tags.Valid {
		_ = json.Unmarshal([]byte(tags.String), &n.Tags)
	}
	return &n, nil
}

// NoteCount returns the number of note rows.
func (db *DB) NoteCount() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM notes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: note count: %w", err)
	}
	return n, nil
}
