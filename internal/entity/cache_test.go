package entity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestCacheRoundTrip(t *testing.T) {
	ix := NewIndex("/vault", "vault-scan")
	ix.Add("people", Entity{Name: "Jane Smith", Path: "Jane Smith.md", Aliases: []string{"Jane"}})
	ix.Add("technologies", Entity{Name: "Redis", Path: "Redis.md", HubScore: 4})
	ix.Add("bogus-category", Entity{Name: "Stray", Path: "Stray.md"})

	path := filepath.Join(t.TempDir(), "sub", "entity-cache.json")
	if err := SaveCache(path, ix); err != nil {
		t.Fatal(err)
	}

	got, err := LoadCache(path)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("LoadCache returned nil for a valid cache")
	}
	if got.Meta.TotalEntities != 3 {
		t.Errorf("TotalEntities = %d, want 3", got.Meta.TotalEntities)
	}
	if got.Meta.Version != CacheVersion {
		t.Errorf("Version = %q", got.Meta.Version)
	}
	if len(got.ByCategory["people"]) != 1 || got.ByCategory["people"][0].Name != "Jane Smith" {
		t.Errorf("people = %+v", got.ByCategory["people"])
	}
	// Unknown category folded into "other" on Add.
	if len(got.ByCategory["other"]) != 1 || got.ByCategory["other"][0].Name != "Stray" {
		t.Errorf("other = %+v", got.ByCategory["other"])
	}
}

func TestLoadCacheMissing(t *testing.T) {
	got, err := LoadCache(filepath.Join(t.TempDir(), "nope.json"))
	if got != nil || err != nil {
		t.Fatalf("missing cache: got %v, err %v", got, err)
	}
}

func TestLoadCacheCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entity-cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadCache(path)
	if got != nil || err != nil {
		t.Fatalf("corrupt cache: got %v, err %v", got, err)
	}
}

func TestLoadCacheVersionMismatch(t *testing.T) {
	ix := NewIndex("/vault", "test")
	ix.Meta.Version = "v1"
	data, err := json.Marshal(ix)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "entity-cache.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadCache(path)
	if got != nil || err != nil {
		t.Fatalf("stale version: got %v, err %v", got, err)
	}
}

func TestUnmarshalLegacyBareStrings(t *testing.T) {
	raw := `{
		"people": ["Jane Smith", {"name": "Bob Jones", "path": "Bob Jones.md"}],
		"_metadata": {"total_entities": 2, "version": "v3"}
	}`
	var ix Index
	if err := json.Unmarshal([]byte(raw), &ix); err != nil {
		t.Fatal(err)
	}
	people := ix.ByCategory["people"]
	if len(people) != 2 {
		t.Fatalf("people = %+v", people)
	}
	if people[0].Name != "Jane Smith" || people[0].Path != "" {
		t.Errorf("bare string ref = %+v", people[0])
	}
	if people[1].Name != "Bob Jones" || people[1].Path != "Bob Jones.md" {
		t.Errorf("record ref = %+v", people[1])
	}
}

func TestSplitFrontmatter(t *testing.T) {
	fm, body := SplitFrontmatter([]byte("---\ntitle: X\naliases:\n  - a1\n---\nbody here\n"))
	if fm == nil || fm["title"] != "X" {
		t.Fatalf("fm = %v", fm)
	}
	if body != "body here\n" {
		t.Errorf("body = %q", body)
	}
	if got := FrontmatterStrings(fm, "aliases"); len(got) != 1 || got[0] != "a1" {
		t.Errorf("aliases = %v", got)
	}
}

func TestSplitFrontmatterUnterminated(t *testing.T) {
	content := []byte("---\ntitle: X\nno end\n")
	fm, body := SplitFrontmatter(content)
	if fm != nil {
		t.Errorf("fm = %v, want nil", fm)
	}
	if body != string(content) {
		t.Errorf("body = %q, want full content", body)
	}
}

func TestFrontmatterStringsScalar(t *testing.T) {
	fm := map[string]interface{}{"aliases": "solo"}
	if got := FrontmatterStrings(fm, "aliases"); len(got) != 1 || got[0] != "solo" {
		t.Fatalf("scalar aliases = %v", got)
	}
	if got := FrontmatterStrings(nil, "aliases"); got != nil {
		t.Fatalf("nil fm = %v", got)
	}
}
