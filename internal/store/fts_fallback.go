//go:build !sqlite_fts5

package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// Fallback search without the FTS5 extension: LIKE scans over the entity
// table. Slower and unranked, but keeps the same interface.

func initFTS(_ *sql.DB) error { return nil }

func ftsUpsertEntity(_ *sql.Tx, _ string, _ []string, _ string) error { return nil }

func ftsClear(_ *sql.Tx) error { return nil }

// SearchEntities matches query tokens as substrings of name, aliases, or
// category.
func (db *DB) SearchEntities(query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	tokens := strings.Fields(escapeLike(query))
	if len(tokens) == 0 {
		return nil, nil
	}
	var clauses []string
	var args []any
	for _, t := range tokens {
		clauses = append(clauses, `(name LIKE ? ESCAPE '\' OR IFNULL(aliases_json,'') LIKE ? ESCAPE '\' OR category LIKE ? ESCAPE '\')`)
		p := "%" + t + "%"
		args = append(args, p, p, p)
	}
	args = append(args, limit)
	rows, err := db.conn.Query(`
		SELECT name, path, category FROM entities
		WHERE `+strings.Join(clauses, " AND ")+`
		ORDER BY name_lower LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()
	return scanHits(rows)
}

// SearchEntitiesPrefix matches a name prefix.
func (db *DB) SearchEntitiesPrefix(prefix string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	p := strings.TrimSpace(escapeLike(prefix))
	if p == "" {
		return nil, nil
	}
	rows, err := db.conn.Query(`
		SELECT name, path, category FROM entities
		WHERE name_lower LIKE ? ESCAPE '\'
		ORDER BY name_lower LIMIT ?
	`, strings.ToLower(p)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("store: prefix search: %w", err)
	}
	defer rows.Close()
	return scanHits(rows)
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
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
