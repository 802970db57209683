package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// SaveCache serializes the index to path atomically (tmp + rename via the
// atomic package), creating parent directories as needed.
func SaveCache(path string, ix *Index) error {
	ix.Meta.Version = CacheVersion
	ix.Meta.TotalEntities = ix.Total()

	data, err := json.MarshalIndent(ix, "", "  ")
	if err != nil {
		return fmt.Errorf("entity: marshal cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("entity: cache dir: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("entity: write cache: %w", err)
	}
	return nil
}

// LoadCache deserializes an index from path. Missing file, unparseable JSON,
// and version mismatch all return (nil, nil): the cache is treated as absent
// and the caller rescans.
func LoadCache(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil
	}
	var ix Index
	if err := json.Unmarshal(data, &ix); err != nil {
		return nil, nil
	}
	if ix.Meta.Version != CacheVersion {
		return nil, nil
	}
	return &ix, nil
}
