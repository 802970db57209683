//go:build sqlite_fts5

package store

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS entities_fts USING fts5(
			name,
			aliases,
			category,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsertEntity(tx *sql.Tx, name string, aliases []string, category string) error {
	if _, err := tx.Exec(`DELETE FROM entities_fts WHERE name = ?`, name); err != nil {
		return fmt.Errorf("store: delete fts row: %w", err)
	}
	_, err := tx.Exec(`INSERT INTO entities_fts (name, aliases, category) VALUES (?, ?, ?)`,
		name, strings.Join(aliases, " "), category)
	if err != nil {
		return fmt.Errorf("store: upsert fts: %w", err)
	}
	return nil
}

func ftsClear(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM entities_fts`); err != nil {
		return fmt.Errorf("store: clear fts: %w", err)
	}
	return nil
}

// SearchEntities performs a ranked full-text search over entity names,
// aliases, and categories.
func (db *DB) SearchEntities(query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	escaped := escapeQuery(query)
	if escaped == "" {
		return nil, nil
	}
	rows, err := db.conn.Query(`
		SELECT f.name, e.path, e.category
		FROM entities_fts f
		JOIN entities e ON e.name = f.name
		WHERE entities_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, escaped, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()
	return scanHits(rows)
}

// SearchEntitiesPrefix matches name/alias prefixes for autocomplete.
func (db *DB) SearchEntitiesPrefix(prefix string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	escaped := escapePrefix(prefix)
	if escaped == "" {
		return nil, nil
	}
	rows, err := db.conn.Query(`
		SELECT f.name, e.path, e.category
		FROM entities_fts f
		JOIN entities e ON e.name = f.name
		WHERE entities_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, escaped, limit)
	if err != nil {
		return nil, fmt.Errorf("store: prefix search: %w", err)
	}
	defer rows.Close()
	return scanHits(rows)
}

func scanHits(rows *sql.Rows) ([]SearchHit, error) {
	var out []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.Name, &h.Path, &h.Category); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
