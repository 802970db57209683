package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// Config namespaces. Vault holds vault-level settings; Crank is the
// consumer-private state imported from legacy files.
const (
	NamespaceVault = "vault"
	NamespaceCrank = "crank"
)

// SetConfig stores value under (namespace, key) as JSON.
func (db *DB) SetConfig(namespace, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: marshal config %s/%s: %w", namespace, key, err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO config (namespace, key, value) VALUES (?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value
	`, namespace, key, string(b))
	if err != nil {
		return fmt.Errorf("store: set config %s/%s: %w", namespace, key, err)
	}
	return nil
}

// GetConfig deserializes the stored JSON value into out. Missing keys return
// (false, nil), never an error.
func (db *DB) GetConfig(namespace, key string, out any) (bool, error) {
	var raw string
	err := db.conn.QueryRow(`
		SELECT value FROM config WHERE namespace = ? AND key = ?
	`, namespace, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: get config %s/%s: %w", namespace, key, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("store: decode config %s/%s: %w", namespace, key, err)
	}
	return true, nil
}

// DeleteConfig removes a key; deleting a missing key is a no-op.
func (db *DB) DeleteConfig(namespace, key string) error {
	_, err := db.conn.Exec(`DELETE FROM config WHERE namespace = ? AND key = ?`, namespace, key)
	if err != nil {
		return fmt.Errorf("store: delete config %s/%s: %w", namespace, key, err)
	}
	return nil
}
