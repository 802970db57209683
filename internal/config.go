package internal

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/laguz/internal/store"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	Scan   ScanConfig        `yaml:"scan"`
	Linker LinkerConfig      `yaml:"linker"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	return c.Linker.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// VaultConfig holds the path to the Markdown vault directory. StateDbPath
// defaults to the hidden state directory under the vault when empty.
type VaultConfig struct {
	Path        string `yaml:"path"`
	StateDbPath string `yaml:"state_db_path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// StateDb returns the effective state database path.
func (c *VaultConfig) StateDb() string {
	if c.StateDbPath != "" {
		return c.StateDbPath
	}
	return store.StateDbPath(c.Path)
}

// ScanConfig controls the vault walk and entity classification.
type ScanConfig struct {
	ExcludeFolders []string `yaml:"exclude_folders"`
	TechKeywords   []string `yaml:"tech_keywords"`
}

// LinkerConfig controls wikilink matching.
type LinkerConfig struct {
	FirstOccurrenceOnly bool     `yaml:"first_occurrence_only"`
	CaseSensitive       bool     `yaml:"case_sensitive"`
	MaxBracketImbalance float64  `yaml:"max_bracket_imbalance"`
	MinEntityLength     int      `yaml:"min_entity_length"`
	ImplicitPatterns    []string `yaml:"implicit_patterns"`
}

// Validate validates the linker configuration.
func (c *LinkerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxBracketImbalance, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.MinEntityLength, validation.Min(0)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		Scan: ScanConfig{
			TechKeywords: []string{"api", "sdk", "cli", "framework", "database", "server", "kubernetes", "docker"},
		},
		Linker: LinkerConfig{
			FirstOccurrenceOnly: true,
			MaxBracketImbalance: 0.10,
			MinEntityLength:     3,
			ImplicitPatterns:    []string{"proper-nouns", "quoted-terms"},
		},
	}
}

// VaultFileConfig is the per-vault JSON config file (.laguz/config.json)
// controlling the operation log. The core consumes it; it never writes it.
// Missing keys take defaults.
type VaultFileConfig struct {
	LoggingEnabled bool   `json:"logging_enabled"`
	LogPath        string `json:"log_path"`
	LogMaxSize     int64  `json:"log_max_size"`
	LogMaxRotated  int    `json:"log_max_rotated"`
	LogNoteTitles  bool   `json:"log_note_titles"`
}

// VaultConfigName is the per-vault config file name inside the state dir.
const VaultConfigName = "config.json"

// LoadVaultFileConfig reads the per-vault config, applying defaults for a
// missing file, unparseable JSON, or absent keys.
func LoadVaultFileConfig(vaultPath string) VaultFileConfig {
	cfg := VaultFileConfig{
		LogPath:       filepath.Join(vaultPath, store.StateDirName, "operations.log"),
		LogMaxSize:    1 << 20,
		LogMaxRotated: 3,
	}
	data, err := os.ReadFile(filepath.Join(vaultPath, store.StateDirName, VaultConfigName))
	if err != nil {
		return cfg
	}
	var raw VaultFileConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return cfg
	}
	cfg.LoggingEnabled = raw.LoggingEnabled
	cfg.LogNoteTitles = raw.LogNoteTitles
	if raw.LogPath != "" {
		cfg.LogPath = raw.LogPath
	}
	if raw.LogMaxSize > 0 {
		cfg.LogMaxSize = raw.LogMaxSize
	}
	if raw.LogMaxRotated > 0 {
		cfg.LogMaxRotated = raw.LogMaxRotated
	}
	return cfg
}
