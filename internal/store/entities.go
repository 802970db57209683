package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/starford/laguz/internal/entity"
)

// Row is one entity as stored.
type Row struct {
	Name     string
	Path     string
	Category string
	Aliases  []string
	HubScore int
}

func marshalAliases(aliases []string) (sql.NullString, error) {
	if len(aliases) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(aliases)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unmarshalAliases(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil
	}
	return out
}

func insertEntity(tx *sql.Tx, category string, e entity.Entity) error {
	aliases, err := marshalAliases(e.Aliases)
	if err != nil {
		return fmt.Errorf("store: marshal aliases: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO entities (name, name_lower, path, category, aliases_json, hub_score)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name_lower) DO NOTHING
	`, e.Name, strings.ToLower(e.Name), e.Path, category, aliases, e.HubScore)
	if err != nil {
		return fmt.Errorf("store: insert entity: %w", err)
	}
	return ftsUpsertEntity(tx, e.Name, e.Aliases, category)
}

// ReplaceAllEntities clears and repopulates the entity table in a single
// transaction and returns the inserted count. On any failure the table keeps
// its pre-call state. This and ReplaceAllEntityRows are the sole mutators of
// the entity tables.
func (db *DB) ReplaceAllEntities(ix *entity.Index) (int, error) {
	var rows []Row
	for _, category := range entity.Categories {
		for _, e := range ix.ByCategory[category] {
			rows = append(rows, Row{
				Name:     e.Name,
				Path:     e.Path,
				Category: category,
				Aliases:  e.Aliases,
				HubScore: e.HubScore,
			})
		}
	}
	return db.ReplaceAllEntityRows(rows)
}

// ReplaceAllEntityRows is the replace primitive over raw rows; it preserves
// each row's category string verbatim.
func (db *DB) ReplaceAllEntityRows(rows []Row) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM entities`); err != nil {
		return 0, fmt.Errorf("store: clear entities: %w", err)
	}
	if err := ftsClear(tx); err != nil {
		return 0, err
	}

	count := 0
	for _, r := range rows {
		e := entity.Entity{Name: r.Name, Path: r.Path, Aliases: r.Aliases, HubScore: r.HubScore}
		if err := insertEntity(tx, r.Category, e); err != nil {
			return 0, err
		}
		count++
	}

	now := time.Now().UnixMilli()
	if _, err := tx.Exec(`
		UPDATE metadata SET entity_count = ?, entities_built_at = ?, schema_version = ? WHERE id = 1
	`, count, now, SchemaVersion); err != nil {
		return 0, fmt.Errorf("store: update metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return count, nil
}

// BulkInsertEntities inserts rows transactionally and returns the number
// inserted. Zero-length input is a no-op success.
func (db *DB) BulkInsertEntities(rows []Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, r := range rows {
		e := entity.Entity{Name: r.Name, Path: r.Path, Aliases: r.Aliases, HubScore: r.HubScore}
		if err := insertEntity(tx, r.Category, e); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return len(rows), nil
}

func scanRow(s interface{ Scan(...any) error }) (*Row, error) {
	var r Row
	var aliases sql.NullString
	if err := s.Scan(&r.Name, &r.Path, &r.Category, &aliases, &r.HubScore); err != nil {
		return nil, err
	}
	r.Aliases = unmarshalAliases(aliases)
	return &r, nil
}

// GetEntityByName looks an entity up by exact, case-insensitive name.
// Missing entities return (nil, nil).
func (db *DB) GetEntityByName(name string) (*Row, error) {
	row := db.conn.QueryRow(`
		SELECT name, path, category, aliases_json, hub_score
		FROM entities WHERE name_lower = ?
	`, strings.ToLower(name))
	r, err := scanRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get entity: %w", err)
	}
	return r, nil
}

// GetEntitiesByAlias returns every entity carrying the alias,
// case-insensitively. Entities with null aliases are simply skipped.
func (db *DB) GetEntitiesByAlias(alias string) ([]Row, error) {
	rows, err := db.conn.Query(`
		SELECT name, path, category, aliases_json, hub_score
		FROM entities WHERE aliases_json IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("store: entities by alias: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		for _, a := range r.Aliases {
			if strings.EqualFold(a, alias) {
				out = append(out, *r)
				break
			}
		}
	}
	return out, rows.Err()
}

// GetEntityIndex reconstructs the categorized index from the entity table.
func (db *DB) GetEntityIndex() (*entity.Index, error) {
	rows, err := db.conn.Query(`
		SELECT name, path, category, aliases_json, hub_score
		FROM entities ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("store: entity index: %w", err)
	}
	defer rows.Close()

	ix := entity.NewIndex("", "state-db")
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		ix.Add(r.Category, entity.Entity{Name: r.Name, Path: r.Path, Aliases: r.Aliases, HubScore: r.HubScore})
	}
	return ix, rows.Err()
}
