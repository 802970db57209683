package entity

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/laguz/internal/storage"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	provider, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, provider
}

func writeNote(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanVault(t *testing.T) {
	dir, provider := testVault(t)
	writeNote(t, dir, "Jane Smith.md", "---\ntype: person\naliases: [Jane]\n---\nWorks on [[Phoenix]]. #team\n")
	writeNote(t, dir, "projects/Phoenix.md", "---\ntype: project\n---\nLed by [[Jane Smith|Jane]].\n")
	writeNote(t, dir, "API.md", "An acronym note.\n")
	writeNote(t, dir, "Random Thing.md", "No type hint.\n")

	ix, notes, err := ScanVault(provider, ScanOptions{}, discard())
	if err != nil {
		t.Fatal(err)
	}
	if got := ix.Meta.TotalEntities; got != 4 {
		t.Fatalf("TotalEntities = %d, want 4", got)
	}
	if len(notes) != 4 {
		t.Fatalf("notes = %d, want 4", len(notes))
	}

	byName := make(map[string]string) // name -> category
	for cat, es := range ix.ByCategory {
		for _, e := range es {
			byName[e.Name] = cat
		}
	}
	want := map[string]string{
		"Jane Smith":   "people",
		"Phoenix":      "projects",
		"API":          "acronyms",
		"Random Thing": "other",
	}
	for name, cat := range want {
		if byName[name] != cat {
			t.Errorf("%s categorized as %q, want %q", name, byName[name], cat)
		}
	}

	var jane *Entity
	for i, e := range ix.ByCategory["people"] {
		if e.Name == "Jane Smith" {
			jane = &ix.ByCategory["people"][i]
		}
	}
	if jane == nil || len(jane.Aliases) != 1 || jane.Aliases[0] != "Jane" {
		t.Errorf("Jane Smith aliases wrong: %+v", jane)
	}

	for _, n := range notes {
		if n.Path != "Jane Smith.md" {
			continue
		}
		if len(n.Links) != 1 || n.Links[0] != "Phoenix" {
			t.Errorf("links = %v", n.Links)
		}
		if len(n.Tags) != 1 || n.Tags[0] != "team" {
			t.Errorf("tags = %v", n.Tags)
		}
	}
}

func TestScanVaultDuplicateNames(t *testing.T) {
	dir, provider := testVault(t)
	writeNote(t, dir, "Redis.md", "first\n")
	writeNote(t, dir, "archive/redis.md", "second, case-variant duplicate\n")

	ix, notes, err := ScanVault(provider, ScanOptions{}, discard())
	if err != nil {
		t.Fatal(err)
	}
	if ix.Meta.TotalEntities != 1 {
		t.Errorf("duplicate name indexed twice: %d entities", ix.Meta.TotalEntities)
	}
	// Both notes still tracked even when only one becomes an entity.
	if len(notes) != 2 {
		t.Errorf("notes = %d, want 2", len(notes))
	}
}

func TestScanVaultSkipsFolders(t *testing.T) {
	dir, provider := testVault(t)
	writeNote(t, dir, "Keep.md", "kept\n")
	writeNote(t, dir, "daily/2024-01-05.md", "periodic\n")
	writeNote(t, dir, "2024-01/Note.md", "date folder\n")
	writeNote(t, dir, "Templates/Tmpl.md", "excluded\n")

	ix, _, err := ScanVault(provider, ScanOptions{ExcludeFolders: []string{"Templates"}}, discard())
	if err != nil {
		t.Fatal(err)
	}
	if ix.Meta.TotalEntities != 1 {
		t.Fatalf("TotalEntities = %d, want 1 (only Keep)", ix.Meta.TotalEntities)
	}
	if len(ix.ByCategory["other"]) != 1 || ix.ByCategory["other"][0].Name != "Keep" {
		t.Errorf("unexpected entities: %+v", ix.ByCategory["other"])
	}
}

func TestCategorize(t *testing.T) {
	cases := []struct {
		name     string
		typeHint string
		want     string
	}{
		{"Jane Smith", "person", "people"},
		{"Acme Corp", "company", "organizations"},
		{"Phoenix", "project", "projects"},
		{"anything", "locations", "locations"}, // already-canonical hint
		{"Kubernetes Cluster", "", "technologies"},
		{"API", "", "acronyms"},
		{"K8S", "", "acronyms"},
		{"Some Note", "", "other"},
		{"Some Note", "nonsense", "other"},
	}
	tech := []string{"kubernetes", "docker"}
	for _, tc := range cases {
		if got := Categorize(tc.name, tc.typeHint, tech); got != tc.want {
			t.Errorf("Categorize(%q, %q) = %q, want %q", tc.name, tc.typeHint, got, tc.want)
		}
	}
}

func TestFilterAliases(t *testing.T) {
	raw := []string{
		"ok alias",
		"x",          // too short
		"Jane Smith", // equals the name
		"one two three four five six seven", // too many words
	}
	got := filterAliases(raw, "Jane Smith")
	if len(got) != 1 || got[0] != "ok alias" {
		t.Fatalf("filterAliases = %v", got)
	}
}
