// Package store provides the SQLite-backed state database: entities with
// full-text search, links, recency counters, config key/values, note
// metadata, and the compressed whole-vault index cache.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"
)

// Fixed on-disk layout under the vault root.
const (
	StateDirName = ".laguz"
	StateDbName  = "state.db"
)

// SchemaVersion is recorded in the metadata row.
const SchemaVersion = 3

// StateDbPath returns the state database path for a vault.
func StateDbPath(vaultPath string) string {
	return filepath.Join(vaultPath, StateDirName, StateDbName)
}

// Exists reports whether a state database has been created at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// DB wraps a sql.DB with state-specific operations. A single in-process
// mutex serializes multi-statement transactions so readers never observe a
// partially replaced entity or link set.
type DB struct {
	conn *sql.DB
	mu   sync.Mutex
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

// Open opens (or creates) the state database and applies the schema.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create state dir: %w", err)
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: zstd decoder: %w", err)
	}
	return &DB{conn: conn, enc: enc, dec: dec}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	db.enc.Close()
	db.dec.Close()
	return db.conn.Close()
}
