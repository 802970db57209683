// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/laguz/internal/entity"
	"github.com/starford/laguz/internal/linker"
	"github.com/starford/laguz/internal/migrate"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/oplog"
	"github.com/starford/laguz/internal/storage"
	"github.com/starford/laguz/internal/store"
)

// EntityCacheName is the flat-file entity cache inside the state dir.
const EntityCacheName = "entity-cache.json"

// StaleThreshold is how old persisted entity data may be before a run
// rescans the vault unconditionally.
const StaleThreshold = time.Hour

// VaultCacheMaxAge bounds how old the compressed whole-vault cache blob may
// be before it is bypassed in favor of the entity tables.
const VaultCacheMaxAge = 24 * time.Hour

// Run starts the application with the given options: migrate legacy files
// when no state database exists yet, scan the vault, persist the index,
// apply wikilinks, and optionally keep watching for changes.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("state_db", cfg.Vault.StateDb()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	provider, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	db, err := OpenStore(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	vaultCfg := LoadVaultFileConfig(cfg.Vault.Path)
	var opLogger *oplog.Logger
	if vaultCfg.LoggingEnabled {
		opLogger, err = oplog.New(oplog.Options{
			Path:          vaultCfg.LogPath,
			MaxSizeBytes:  vaultCfg.LogMaxSize,
			MaxRotated:    vaultCfg.LogMaxRotated,
			LogNoteTitles: vaultCfg.LogNoteTitles,
		}, NewSessionID())
		if err != nil {
			logger.Warn("operation log disabled", slog.String("error", err.Error()))
		} else {
			defer opLogger.Close()
		}
	}

	ix, err := ScanAndPersist(db, provider, cfg, logger)
	if err != nil {
		return err
	}

	if _, err := LinkVault(db, provider, ix, cfg, logger, opLogger, app.dryRun); err != nil {
		return err
	}

	if !app.watch {
		return nil
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the vault and rescan after bursts of markdown changes.
	g.Go(func() error {
		return Watch(gCtx, cfg.Vault.Path, logger, func() {
			if err := db.MarkEntityDataStale(); err != nil {
				logger.Warn("mark stale failed", slog.String("error", err.Error()))
				return
			}
			if _, err := ScanAndPersist(db, provider, cfg, logger); err != nil {
				logger.Warn("rescan failed", slog.String("error", err.Error()))
			}
		})
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
		}
		return context.Canceled
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Stopped")
	return nil
}

// OpenStore opens the state database, running the legacy migration first
// when no database exists yet but legacy flat files do.
func OpenStore(cfg *Config, logger *slog.Logger) (*store.DB, error) {
	dbPath := cfg.Vault.StateDb()
	firstOpen := !store.Exists(dbPath)

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	if firstOpen {
		if rep := migrate.Migrate(db, cfg.Vault.Path); !rep.Skipped {
			logger.Info("legacy migration",
				slog.Bool("success", rep.Success),
				slog.Int("entities", rep.EntitiesMigrated),
				slog.Int("links", rep.LinksMigrated),
				slog.Int("recency", rep.RecencyMigrated),
				slog.Int("errors", len(rep.Errors)))
			for _, e := range rep.Errors {
				logger.Warn("migration issue", slog.String("error", e))
			}
		}
	}
	return db, nil
}

// ScanAndPersist rebuilds the entity index from the vault when the stored
// data is stale, persists it atomically, syncs note metadata and outlinks,
// and refreshes both caches. A fresh store round-trips the persisted index
// instead of walking the vault again.
func ScanAndPersist(db *store.DB, provider storage.Provider, cfg *Config, logger *slog.Logger) (*entity.Index, error) {
	stale, err := db.IsEntityDataStale(StaleThreshold)
	if err != nil {
		return nil, fmt.Errorf("staleness check: %w", err)
	}
	if !stale {
		// Prefer the compressed whole-vault blob; a stale or drifted cache
		// falls through to the entity tables.
		if n, err := db.NoteCount(); err == nil {
			if ok, _ := db.IsVaultCacheValid(n, VaultCacheMaxAge); ok {
				if ix, err := db.LoadVaultCache(); err == nil && ix != nil {
					ix.Meta.Source = "vault-cache"
					logger.Debug("vault cache hit", slog.Int("entities", ix.Meta.TotalEntities))
					return ix, nil
				}
			}
		}
		ix, err := db.GetEntityIndex()
		if err != nil {
			return nil, fmt.Errorf("load persisted index: %w", err)
		}
		logger.Debug("entity data fresh", slog.Int("entities", ix.Meta.TotalEntities))
		return ix, nil
	}

	ix, notes, err := entity.ScanVault(provider, entity.ScanOptions{
		ExcludeFolders: cfg.Scan.ExcludeFolders,
		TechKeywords:   cfg.Scan.TechKeywords,
	}, logger)
	if err != nil {
		return nil, err
	}

	// Sync notes and their outlinks before folding backlink counts into
	// hub scores.
	if _, err := db.ReplaceAllNotes(notes); err != nil {
		return nil, err
	}
	titleToPath := make(map[string]string, len(notes))
	for _, n := range notes {
		titleToPath[strings.ToLower(n.Title)] = n.Path
	}
	for _, n := range notes {
		links := make([]models.Link, 0, len(n.Links))
		for _, target := range n.Links {
			links = append(links, models.Link{
				SourcePath: n.Path,
				Target:     target,
				TargetPath: titleToPath[strings.ToLower(target)],
			})
		}
		if err := db.ReplaceLinksFromSource(n.Path, links); err != nil {
			return nil, err
		}
	}

	counts, err := db.BacklinkCounts()
	if err != nil {
		return nil, err
	}
	for cat, es := range ix.ByCategory {
		for i := range es {
			es[i].HubScore = counts[es[i].Path]
		}
		ix.ByCategory[cat] = es
	}

	inserted, err := db.ReplaceAllEntities(ix)
	if err != nil {
		return nil, err
	}
	logger.Info("entity index rebuilt",
		slog.Int("entities", inserted),
		slog.Int("notes", len(notes)))

	if err := db.SaveVaultCache(ix, len(notes)); err != nil {
		logger.Warn("vault cache save failed", slog.String("error", err.Error()))
	}
	cachePath := filepath.Join(cfg.Vault.Path, store.StateDirName, EntityCacheName)
	if err := entity.SaveCache(cachePath, ix); err != nil {
		logger.Warn("entity cache save failed", slog.String("error", err.Error()))
	}

	return ix, nil
}

// LinkStats summarizes a vault-wide link pass.
type LinkStats struct {
	FilesChanged     int
	LinksAdded       int
	ImplicitEntities int
}

// LinkVault applies wikilinks across every note. Dry runs log suggestions
// without writing anything.
func LinkVault(db *store.DB, provider storage.Provider, ix *entity.Index, cfg *Config, logger *slog.Logger, opLogger *oplog.Logger, dryRun bool) (LinkStats, error) {
	engine, err := linker.New(ix.All(), linker.Options{
		FirstOccurrenceOnly: cfg.Linker.FirstOccurrenceOnly,
		CaseSensitive:       cfg.Linker.CaseSensitive,
		MaxBracketImbalance: cfg.Linker.MaxBracketImbalance,
	})
	if err != nil {
		return LinkStats{}, err
	}

	metas, err := provider.List("")
	if err != nil {
		return LinkStats{}, err
	}

	var stats LinkStats
	for _, m := range metas {
		data, err := provider.Read(m.Path)
		if err != nil {
			logger.Warn("link: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		content := string(data)
		title := strings.TrimSuffix(path.Base(m.Path), ".md")

		if dryRun {
			suggestions := engine.Suggest(content)
			for _, s := range suggestions {
				logger.Info("suggestion",
					slog.String("path", m.Path),
					slog.String("entity", s.Entity),
					slog.String("context", s.Context))
			}
			stats.LinksAdded += len(suggestions)
			continue
		}

		res := engine.Process(content, linker.ImplicitConfig{
			Patterns:        cfg.Linker.ImplicitPatterns,
			MinEntityLength: cfg.Linker.MinEntityLength,
			NoteTitle:       title,
		})
		if res.Content == content {
			continue
		}
		if err := provider.Write(m.Path, []byte(res.Content)); err != nil {
			logger.Warn("link: write failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		stats.FilesChanged++
		stats.LinksAdded += res.LinksAdded
		stats.ImplicitEntities += len(res.ImplicitEntities)

		now := time.Now()
		for _, name := range res.LinkedEntities {
			if err := db.RecordEntityMention(name, now); err != nil {
				logger.Warn("recency update failed", slog.String("entity", name), slog.String("error", err.Error()))
			}
		}
		if opLogger != nil {
			opLogger.Log(oplog.Entry{
				Op:         "link",
				Path:       m.Path,
				NoteTitle:  title,
				LinksAdded: res.LinksAdded,
			})
		}
		logger.Debug("linked",
			slog.String("path", m.Path),
			slog.Int("links_added", res.LinksAdded))
	}

	logger.Info("link pass complete",
		slog.Int("files_changed", stats.FilesChanged),
		slog.Int("links_added", stats.LinksAdded),
		slog.Bool("dry_run", dryRun))
	return stats, nil
}

// NewSessionID returns a short random identifier correlating one run's
// operation log entries.
func NewSessionID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
