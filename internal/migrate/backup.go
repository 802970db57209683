package migrate

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/natefinch/atomic"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/store"
)

// BackupLegacyFiles copies each discovered legacy file to a timestamped
// sibling (name.bak-20060102T150405). Nothing to back up is a no-op success.
// Backups are written atomically so a crash mid-copy never leaves a partial
// backup that could later be mistaken for a complete one.
func BackupLegacyFiles(vaultPath string) ([]string, error) {
	files := LegacyFiles(vaultPath)
	if len(files) == 0 {
		return nil, nil
	}
	stamp := time.Now().Format("20060102T150405")
	var backups []string
	for _, p := range files {
		data, err := os.ReadFile(p)
		if err != nil {
			return backups, fmt.Errorf("migrate: read %s: %w", p, err)
		}
		dst := p + ".bak-" + stamp
		if err := atomic.WriteFile(dst, bytes.NewReader(data)); err != nil {
			return backups, fmt.Errorf("migrate: backup %s: %w", p, err)
		}
		backups = append(backups, dst)
	}
	return backups, nil
}

// DeleteOptions guards legacy deletion.
type DeleteOptions struct {
	// RequireStateDb refuses to delete anything unless a state database
	// exists: removing the legacy files without a working replacement would
	// be data loss.
	RequireStateDb bool
}

// DeleteLegacyFiles removes the discovered legacy files. With RequireStateDb
// set and no state database present it fails before touching the
// filesystem.
func DeleteLegacyFiles(vaultPath string, opts DeleteOptions) ([]string, error) {
	if opts.RequireStateDb && !store.Exists(store.StateDbPath(vaultPath)) {
		return nil, fmt.Errorf("migrate: refusing to delete legacy files: %w", apperr.ErrStateDbMissing)
	}
	var deleted []string
	for _, p := range LegacyFiles(vaultPath) {
		if err := os.Remove(p); err != nil {
			return deleted, fmt.Errorf("migrate: delete %s: %w", p, err)
		}
		deleted = append(deleted, p)
	}
	return deleted, nil
}
