package internal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/laguz/internal/store"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if !cfg.Linker.FirstOccurrenceOnly {
		t.Error("first_occurrence_only should default on")
	}
	if cfg.Linker.MaxBracketImbalance != 0.10 {
		t.Errorf("max_bracket_imbalance = %v", cfg.Linker.MaxBracketImbalance)
	}
}

func TestVaultConfigRequiresPath(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Vault.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty vault path should fail validation")
	}
}

func TestLinkerConfigBounds(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Linker.MaxBracketImbalance = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("imbalance ratio above 1 should fail")
	}
	cfg.Linker.MaxBracketImbalance = 0.5
	cfg.Linker.MinEntityLength = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative min entity length should fail")
	}
}

func TestStateDbDefaultsUnderVault(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Vault.Path = "/data/vault"
	want := store.StateDbPath("/data/vault")
	if got := cfg.Vault.StateDb(); got != want {
		t.Errorf("StateDb() = %q, want %q", got, want)
	}
	cfg.Vault.StateDbPath = "/elsewhere/state.db"
	if got := cfg.Vault.StateDb(); got != "/elsewhere/state.db" {
		t.Errorf("explicit path ignored: %q", got)
	}
}

func TestLoadVaultFileConfigDefaults(t *testing.T) {
	vault := t.TempDir()
	cfg := LoadVaultFileConfig(vault)
	if cfg.LoggingEnabled {
		t.Error("logging should default off")
	}
	if cfg.LogMaxSize != 1<<20 || cfg.LogMaxRotated != 3 {
		t.Errorf("defaults = %+v", cfg)
	}
	want := filepath.Join(vault, store.StateDirName, "operations.log")
	if cfg.LogPath != want {
		t.Errorf("LogPath = %q, want %q", cfg.LogPath, want)
	}
}

func TestLoadVaultFileConfig(t *testing.T) {
	vault := t.TempDir()
	dir := filepath.Join(vault, store.StateDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	raw, _ := json.Marshal(VaultFileConfig{
		LoggingEnabled: true,
		LogNoteTitles:  true,
		LogMaxSize:     2048,
	})
	if err := os.WriteFile(filepath.Join(dir, VaultConfigName), raw, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := LoadVaultFileConfig(vault)
	if !cfg.LoggingEnabled || !cfg.LogNoteTitles {
		t.Errorf("flags not read: %+v", cfg)
	}
	if cfg.LogMaxSize != 2048 {
		t.Errorf("LogMaxSize = %d", cfg.LogMaxSize)
	}
	// Unset keys keep their defaults.
	if cfg.LogMaxRotated != 3 {
		t.Errorf("LogMaxRotated = %d", cfg.LogMaxRotated)
	}
}

func TestLoadVaultFileConfigCorrupt(t *testing.T) {
	vault := t.TempDir()
	dir := filepath.Join(vault, store.StateDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, VaultConfigName), []byte("{bad"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := LoadVaultFileConfig(vault)
	if cfg.LoggingEnabled || cfg.LogMaxRotated != 3 {
		t.Errorf("corrupt config should fall back to defaults: %+v", cfg)
	}
}
