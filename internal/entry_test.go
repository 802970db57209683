package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/laguz/internal/migrate"
	"github.com/starford/laguz/internal/store"
	"github.com/starford/laguz/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func pipelineConfig(vault string) *Config {
	cfg := NewDefaultConfig()
	cfg.Vault.Path = vault
	return cfg
}

func TestScanAndPersistPipeline(t *testing.T) {
	vault, provider := testutil.TestVault(t)
	testutil.WriteNote(t, vault, "Redis.md", "---\ntype: tech\n---\nFast store.\n")
	testutil.WriteNote(t, vault, "Jane Smith.md", "---\ntype: person\n---\nUses [[Redis]] daily.\n")

	cfg := pipelineConfig(vault)
	db, err := OpenStore(cfg, discardLogger())
	require.NoError(t, err)
	defer db.Close()

	ix, err := ScanAndPersist(db, provider, cfg, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, ix.Meta.TotalEntities)

	// Outlinks synced and folded into hub scores.
	links, err := db.GetOutlinks("Jane Smith.md")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "Redis", links[0].Target)
	assert.Equal(t, "Redis.md", links[0].TargetPath)

	redis, err := db.GetEntityByName("Redis")
	require.NoError(t, err)
	require.NotNil(t, redis)
	assert.Equal(t, 1, redis.HubScore)

	// Both caches refreshed.
	cachePath := filepath.Join(vault, store.StateDirName, EntityCacheName)
	_, statErr := os.Stat(cachePath)
	assert.NoError(t, statErr)
	cached, err := db.LoadVaultCache()
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, 2, cached.Meta.TotalEntities)

	// A second call inside the staleness window serves the compressed
	// vault cache instead of rescanning.
	again, err := ScanAndPersist(db, provider, cfg, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "vault-cache", again.Meta.Source)
	assert.Equal(t, 2, again.Meta.TotalEntities)

	// With the blob gone the entity tables still serve the index.
	require.NoError(t, db.ClearVaultCache())
	again, err = ScanAndPersist(db, provider, cfg, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "state-db", again.Meta.Source)
	assert.Equal(t, 2, again.Meta.TotalEntities)
}

func TestLinkVaultRewritesNotes(t *testing.T) {
	vault, provider := testutil.TestVault(t)
	testutil.WriteNote(t, vault, "Redis.md", "The canonical note.\n")
	testutil.WriteNote(t, vault, "Journal Entry.md", "Tried Redis for caching.\n")

	cfg := pipelineConfig(vault)
	db, err := OpenStore(cfg, discardLogger())
	require.NoError(t, err)
	defer db.Close()

	ix, err := ScanAndPersist(db, provider, cfg, discardLogger())
	require.NoError(t, err)

	stats, err := LinkVault(db, provider, ix, cfg, discardLogger(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesChanged)
	assert.GreaterOrEqual(t, stats.LinksAdded, 1)

	data, err := provider.Read("Journal Entry.md")
	require.NoError(t, err)
	assert.Contains(t, string(data), "[[Redis]]")

	// The mention landed in recency.
	r, err := db.GetRecency("Redis")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 1, r.MentionCount)

	// A second pass finds nothing new to do.
	stats, err = LinkVault(db, provider, ix, cfg, discardLogger(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesChanged)
}

func TestLinkVaultDryRun(t *testing.T) {
	vault, provider := testutil.TestVault(t)
	testutil.WriteNote(t, vault, "Redis.md", "The canonical note.\n")
	original := "Tried Redis for caching.\n"
	testutil.WriteNote(t, vault, "Journal Entry.md", original)

	cfg := pipelineConfig(vault)
	db, err := OpenStore(cfg, discardLogger())
	require.NoError(t, err)
	defer db.Close()

	ix, err := ScanAndPersist(db, provider, cfg, discardLogger())
	require.NoError(t, err)

	stats, err := LinkVault(db, provider, ix, cfg, discardLogger(), nil, true)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesChanged)
	assert.GreaterOrEqual(t, stats.LinksAdded, 1)

	data, err := provider.Read("Journal Entry.md")
	require.NoError(t, err)
	assert.Equal(t, original, string(data))
}

func TestOpenStoreMigratesOnFirstOpen(t *testing.T) {
	vault := t.TempDir()
	legacy := `{"technologies": [{"name": "Redis", "path": "Redis.md"}], "_metadata": {"version": "v2"}}`
	testutil.WriteStateFile(t, vault, migrate.LegacyEntityCache, []byte(legacy))

	cfg := pipelineConfig(vault)
	db, err := OpenStore(cfg, discardLogger())
	require.NoError(t, err)

	r, err := db.GetEntityByName("Redis")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "technologies", r.Category)
	require.NoError(t, db.Close())

	// Reopen: the database exists now, so the legacy file is not re-imported
	// over live data.
	db, err = OpenStore(cfg, discardLogger())
	require.NoError(t, err)
	defer db.Close()
	ix, err := db.GetEntityIndex()
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Meta.TotalEntities)
}
