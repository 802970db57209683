// Package migrate imports the legacy flat-file caches into the state
// database. Migration is a replace write, so running it twice against the
// same legacy input yields the same store contents.
package migrate

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/laguz/internal/entity"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/store"
)

// Legacy file names, fixed relative to the vault's hidden state directory.
const (
	LegacyEntityCache = "entity-cache.json"
	LegacyBacklinks   = "backlinks.json"
	LegacyRecency     = "recency.json"
	LegacyLastCommit  = "last-commit.json"
	LegacyHints       = "hints.json"
)

var legacyNames = []string{
	LegacyEntityCache, LegacyBacklinks, LegacyRecency, LegacyLastCommit, LegacyHints,
}

// Report is the outcome of a migration run.
type Report struct {
	Success            bool     `json:"success"`
	EntitiesMigrated   int      `json:"entities_migrated"`
	RecencyMigrated    int      `json:"recency_migrated"`
	CrankStateMigrated int      `json:"crank_state_migrated"`
	LinksMigrated      int      `json:"links_migrated"`
	ConfigMigrated     int      `json:"config_migrated"`
	Skipped            bool     `json:"skipped"`
	Errors             []string `json:"errors,omitempty"`
}

// LegacyFiles returns the legacy files that exist for a vault.
func LegacyFiles(vaultPath string) []string {
	dir := filepath.Join(vaultPath, store.StateDirName)
	var out []string
	for _, name := range legacyNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			out = append(out, p)
		}
	}
	return out
}

// Migrate imports every legacy file found under the vault into db. No legacy
// files at all is a successful skip. A malformed entity cache aborts without
// writing; individual entities lacking a path are skipped with an error
// collected while the rest proceed.
func Migrate(db *store.DB, vaultPath string) Report {
	dir := filepath.Join(vaultPath, store.StateDirName)
	rep := Report{Success: true}

	if len(LegacyFiles(vaultPath)) == 0 {
		rep.Skipped = true
		return rep
	}

	if data, err := os.ReadFile(filepath.Join(dir, LegacyEntityCache)); err == nil {
		n, errs, fatal := migrateEntities(db, data)
		rep.EntitiesMigrated = n
		rep.Errors = append(rep.Errors, errs...)
		if fatal {
			rep.Success = false
			return rep
		}
	}

	if data, err := os.ReadFile(filepath.Join(dir, LegacyRecency)); err == nil {
		n, errs := migrateRecency(db, data)
		rep.RecencyMigrated = n
		rep.Errors = append(rep.Errors, errs...)
	}

	if data, err := os.ReadFile(filepath.Join(dir, LegacyBacklinks)); err == nil {
		n, errs := migrateBacklinks(db, data)
		rep.LinksMigrated = n
		rep.Errors = append(rep.Errors, errs...)
	}

	if data, err := os.ReadFile(filepath.Join(dir, LegacyLastCommit)); err == nil {
		if err := storeRawConfig(db, store.NamespaceCrank, "last-commit", data); err != nil {
			rep.Errors = append(rep.Errors, err.Error())
		} else {
			rep.CrankStateMigrated++
		}
	}

	if data, err := os.ReadFile(filepath.Join(dir, LegacyHints)); err == nil {
		if err := storeRawConfig(db, store.NamespaceVault, "hints", data); err != nil {
			rep.Errors = append(rep.Errors, err.Error())
		} else {
			rep.ConfigMigrated++
		}
	}

	return rep
}

// migrateEntities parses the legacy entity cache and replaces the entity
// table. The legacy category key is preserved verbatim. fatal is true when
// the file as a whole cannot be parsed or the store write fails.
func migrateEntities(db *store.DB, data []byte) (n int, errs []string, fatal bool) {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return 0, []string{fmt.Sprintf("entity cache: %v", err)}, true
	}

	var rows []store.Row
	seen := make(map[string]bool)
	for category, raw := range flat {
		if category == "_metadata" {
			continue
		}
		var refs []entity.Ref
		if err := json.Unmarshal(raw, &refs); err != nil {
			return 0, []string{fmt.Sprintf("entity cache: category %q: %v", category, err)}, true
		}
		for _, r := range refs {
			e := r.Entity
			if strings.TrimSpace(e.Name) == "" {
				errs = append(errs, fmt.Sprintf("entity cache: category %q: entity with empty name skipped", category))
				continue
			}
			if e.Path == "" {
				errs = append(errs, fmt.Sprintf("entity cache: entity %q has no path, skipped", e.Name))
				continue
			}
			lower := strings.ToLower(e.Name)
			if seen[lower] {
				continue
			}
			seen[lower] = true
			rows = append(rows, store.Row{
				Name:     e.Name,
				Path:     e.Path,
				Category: category,
				Aliases:  e.Aliases,
				HubScore: e.HubScore,
			})
		}
	}

	count, err := db.ReplaceAllEntityRows(rows)
	if err != nil {
		return 0, append(errs, fmt.Sprintf("entity cache: store write: %v", err)), true
	}
	return count, errs, false
}

type legacyRecency struct {
	LastMentionedAt int64 `json:"last_mentioned_at"`
	MentionCount    int   `json:"mention_count"`
}

func migrateRecency(db *store.DB, data []byte) (int, []string) {
	var byName map[string]legacyRecency
	if err := json.Unmarshal(data, &byName); err != nil {
		return 0, []string{fmt.Sprintf("recency: %v", err)}
	}
	n := 0
	var errs []string
	for name, r := range byName {
		if err := db.SetRecency(name, time.UnixMilli(r.LastMentionedAt), r.MentionCount); err != nil {
			errs = append(errs, fmt.Sprintf("recency %q: %v", name, err))
			continue
		}
		n++
	}
	return n, errs
}

func migrateBacklinks(db *store.DB, data []byte) (int, []string) {
	var bySource map[string][]string
	if err := json.Unmarshal(data, &bySource); err != nil {
		return 0, []string{fmt.Sprintf("backlinks: %v", err)}
	}
	n := 0
	var errs []string
	for source, targets := range bySource {
		links := make([]models.Link, 0, len(targets))
		for _, t := range targets {
			links = append(links, models.Link{
				SourcePath: source,
				Target:     strings.TrimSuffix(path.Base(t), ".md"),
				TargetPath: t,
			})
		}
		if err := db.ReplaceLinksFromSource(source, links); err != nil {
			errs = append(errs, fmt.Sprintf("backlinks %q: %v", source, err))
			continue
		}
		n += len(links)
	}
	return n, errs
}

// storeRawConfig keeps the legacy JSON payload verbatim under a config key.
func storeRawConfig(db *store.DB, namespace, key string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("migrate: %s: invalid JSON", key)
	}
	return db.SetConfig(namespace, key, json.RawMessage(data))
}
