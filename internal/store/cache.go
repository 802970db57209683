package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/laguz/internal/entity"
)

// SaveVaultCache stores the serialized whole-vault index, zstd-compressed,
// along with the note count it was built from.
func (db *DB) SaveVaultCache(ix *entity.Index, noteCount int) error {
	raw, err := json.Marshal(ix)
	if err != nil {
		return fmt.Errorf("store: marshal vault cache: %w", err)
	}
	blob := db.enc.EncodeAll(raw, nil)
	_, err = db.conn.Exec(`
		INSERT INTO vault_cache (id, data, note_count, saved_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data       = excluded.data,
			note_count = excluded.note_count,
			saved_at   = excluded.saved_at
	`, blob, noteCount, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("store: save vault cache: %w", err)
	}
	return nil
}

// LoadVaultCache returns the cached index, or (nil, nil) when no cache
// exists or the blob cannot be decoded. An unreadable cache is an absent
// cache, never a fatal error.
func (db *DB) LoadVaultCache() (*entity.Index, error) {
	var blob []byte
	err := db.conn.QueryRow(`SELECT data FROM vault_cache WHERE id = 1`).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load vault cache: %w", err)
	}
	raw, err := db.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, nil
	}
	var ix entity.Index
	if err := json.Unmarshal(raw, &ix); err != nil {
		return nil, nil
	}
	if ix.Meta.Version != entity.CacheVersion {
		return nil, nil
	}
	return &ix, nil
}

// ClearVaultCache drops the cached index.
func (db *DB) ClearVaultCache() error {
	if _, err := db.conn.Exec(`DELETE FROM vault_cache`); err != nil {
		return fmt.Errorf("store: clear vault cache: %w", err)
	}
	return nil
}

// IsVaultCacheValid requires both freshness (age at most maxAge) and an
// exact note-count match against the caller's current count. A count
// mismatch invalidates even a fresh cache: the vault changed underneath it.
func (db *DB) IsVaultCacheValid(actualNoteCount int, maxAge time.Duration) (bool, error) {
	var count int
	var savedAt int64
	err := db.conn.QueryRow(`SELECT note_count, saved_at FROM vault_cache WHERE id = 1`).Scan(&count, &savedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: vault cache validity: %w", err)
	}
	if time.Since(time.UnixMilli(savedAt)) > maxAge {
		return false, nil
	}
	return count == actualNoteCount, nil
}
