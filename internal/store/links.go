package store

import (
	"database/sql"
	"fmt"

	"github.com/starford/laguz/internal/models"
)

func insertLink(tx *sql.Tx, l models.Link) error {
	var targetPath sql.NullString
	if l.TargetPath != "" {
		targetPath = sql.NullString{String: l.TargetPath, Valid: true}
	}
	var line sql.NullInt64
	if l.LineNumber > 0 {
		line = sql.NullInt64{Int64: int64(l.LineNumber), Valid: true}
	}
	_, err := tx.Exec(`
		INSERT INTO links (source_path, target, target_path, line_number)
		VALUES (?, ?, ?, ?)
	`, l.SourcePath, l.Target, targetPath, line)
	if err != nil {
		return fmt.Errorf("store: insert link: %w", err)
	}
	return nil
}

// BulkInsertLinks inserts links transactionally and returns the number
// inserted. Zero-length input is a no-op success.
func (db *DB) BulkInsertLinks(links []models.Link) (int, error) {
	if len(links) == 0 {
		return 0, nil
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, l := range links {
		if err := insertLink(tx, l); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return len(links), nil
}

// ReplaceLinksFromSource atomically deletes all prior outlinks from a source
// and inserts the new set, so a rewritten note never leaves stale links.
func (db *DB) ReplaceLinksFromSource(sourcePath string, links []models.Link) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM links WHERE source_path = ?`, sourcePath); err != nil {
		return fmt.Errorf("store: clear outlinks: %w", err)
	}
	for _, l := range links {
		l.SourcePath = sourcePath
		if err := insertLink(tx, l); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (db *DB) queryLinks(query string, arg string) ([]models.Link, error) {
	rows, err := db.conn.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("store: query links: %w", err)
	}
	defer rows.Close()

	var out []models.Link
	for rows.Next() {
		var l models.Link
		var targetPath sql.NullString
		var line sql.NullInt64
		if err := rows.Scan(&l.SourcePath, &l.Target, &targetPath, &line); err != nil {
			return nil, err
		}
		l.TargetPath = targetPath.String
		l.LineNumber = int(line.Int64)
		out = append(out, l)
	}
	return out, rows.Err()
}

// GetBacklinks returns every link pointing at targetPath.
func (db *DB) GetBacklinks(targetPath string) ([]models.Link, error) {
	return db.queryLinks(`
		SELECT source_path, target, target_path, line_number
		FROM links WHERE target_path = ?
	`, targetPath)
}

// GetOutlinks returns every link originating from sourcePath.
func (db *DB) GetOutlinks(sourcePath string) ([]models.Link, error) {
	return db.queryLinks(`
		SELECT source_path, target, target_path, line_number
		FROM links WHERE source_path = ?
	`, sourcePath)
}

// BacklinkCounts returns target_path -> inbound link count, used to fold hub
// scores into entities.
func (db *DB) BacklinkCounts() (map[string]int, error) {
	rows, err := db.conn.Query(`
		SELECT target_path, COUNT(*) FROM links
		WHERE target_path IS NOT NULL GROUP BY target_path
	`)
	if err != nil {
		return nil, fmt.Errorf("store: backlink counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var p string
		var n int
		if err := rows.Scan(&p, &n); err != nil {
			return nil, err
		}
		out[p] = n
	}
	return out, rows.Err()
}
