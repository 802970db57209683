package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/laguz/internal"
	"github.com/starford/laguz/internal/linker"
	"github.com/starford/laguz/internal/migrate"
	"github.com/starford/laguz/internal/storage"
	"github.com/starford/laguz/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := config.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if v := cmd.String("vault"); v != "" {
		cfg.Vault.Path = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *internal.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runScan(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	provider, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return err
	}
	db, err := internal.OpenStore(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if cmd.Bool("force") {
		if err := db.MarkEntityDataStale(); err != nil {
			return err
		}
	}
	ix, err := internal.ScanAndPersist(db, provider, cfg, logger)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"total_entities": ix.Meta.TotalEntities,
		"generated_at":   ix.Meta.GeneratedAt,
		"source":         ix.Meta.Source,
	})
}

func runLink(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithWatch(cmd.Bool("watch")),
		internal.WithDryRun(cmd.Bool("dry-run")),
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runSuggest(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	provider, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return err
	}
	db, err := internal.OpenStore(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ix, err := internal.ScanAndPersist(db, provider, cfg, logger)
	if err != nil {
		return err
	}
	engine, err := linker.New(ix.All(), linker.Options{
		FirstOccurrenceOnly: cfg.Linker.FirstOccurrenceOnly,
		CaseSensitive:       cfg.Linker.CaseSensitive,
		MaxBracketImbalance: cfg.Linker.MaxBracketImbalance,
	})
	if err != nil {
		return err
	}

	data, err := provider.Read(cmd.StringArg("file"))
	if err != nil {
		return err
	}
	return printJSON(engine.Suggest(string(data)))
}

func runSearch(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := internal.OpenStore(cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer db.Close()

	hits, err := db.SearchEntities(cmd.StringArg("query"), int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	return printJSON(hits)
}

func runComplete(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := internal.OpenStore(cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer db.Close()

	hits, err := db.SearchEntitiesPrefix(cmd.StringArg("prefix"), int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	// Completion wants bare names.
	for _, h := range hits {
		fmt.Println(h.Name)
	}
	return nil
}

func runMigrate(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if cmd.Bool("backup") {
		backups, err := migrate.BackupLegacyFiles(cfg.Vault.Path)
		if err != nil {
			return err
		}
		for _, b := range backups {
			logger.Info("backed up", slog.String("path", b))
		}
	}

	db, err := internal.OpenStore(cfg, logger)
	if err != nil {
		return err
	}

	rep := migrate.Migrate(db, cfg.Vault.Path)
	if err := db.Close(); err != nil {
		return err
	}

	if cmd.Bool("delete-legacy") && rep.Success && !rep.Skipped {
		deleted, err := migrate.DeleteLegacyFiles(cfg.Vault.Path, migrate.DeleteOptions{RequireStateDb: true})
		if err != nil {
			return err
		}
		for _, d := range deleted {
			logger.Info("deleted legacy file", slog.String("path", d))
		}
	}
	return printJSON(rep)
}

func runStatus(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := internal.OpenStore(cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer db.Close()

	meta, err := db.GetStateDbMetadata()
	if err != nil {
		return err
	}
	return printJSON(meta)
}

func main() {
	globalFlags := []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("APP_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:    "vault",
			Usage:   "Vault directory (overrides config)",
			Sources: cli.EnvVars("LAGUZ_VAULT"),
		},
	}

	limitFlag := &cli.IntFlag{
		Name:  "limit",
		Usage: "Maximum results",
		Value: 20,
	}

	cmd := &cli.Command{
		Name:  "laguz",
		Usage: "Entity indexing and wikilink rewriting for Markdown vaults",
		Flags: globalFlags,
		Commands: []*cli.Command{
			{
				Name:   "scan",
				Usage:  "Rebuild the entity index from the vault",
				Action: runScan,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "Rescan even when stored data is fresh"},
				},
			},
			{
				Name:   "link",
				Usage:  "Scan the vault and rewrite entity mentions as wikilinks",
				Action: runLink,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Usage: "Report suggestions without writing"},
					&cli.BoolFlag{Name: "watch", Usage: "Keep watching the vault for changes"},
				},
			},
			{
				Name:      "suggest",
				Usage:     "Print link suggestions for one note",
				Action:    runSuggest,
				Arguments: []cli.Argument{&cli.StringArg{Name: "file"}},
			},
			{
				Name:      "search",
				Usage:     "Full-text search over indexed entities",
				Action:    runSearch,
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Flags:     []cli.Flag{limitFlag},
			},
			{
				Name:      "complete",
				Usage:     "Prefix completion over entity names",
				Action:    runComplete,
				Arguments: []cli.Argument{&cli.StringArg{Name: "prefix"}},
				Flags:     []cli.Flag{limitFlag},
			},
			{
				Name:   "migrate",
				Usage:  "Import legacy flat-file caches into the state database",
				Action: runMigrate,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "backup", Usage: "Back up legacy files before migrating"},
					&cli.BoolFlag{Name: "delete-legacy", Usage: "Delete legacy files after a successful migration"},
				},
			},
			{
				Name:   "status",
				Usage:  "Show state database metadata",
				Action: runStatus,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
