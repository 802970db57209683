package store_test

import (
	"testing"

	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/testutil"
)

func TestReplaceLinksFromSource(t *testing.T) {
	db := testutil.TestDB(t)

	first := []models.Link{
		{SourcePath: "a.md", Target: "B", TargetPath: "b.md", LineNumber: 3},
		{SourcePath: "a.md", Target: "C", TargetPath: "c.md"},
	}
	if err := db.ReplaceLinksFromSource("a.md", first); err != nil {
		t.Fatal(err)
	}

	out, err := db.GetOutlinks("a.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("outlinks = %d, want 2", len(out))
	}
	if out[0].Target != "B" || out[0].LineNumber != 3 {
		t.Errorf("first link = %+v", out[0])
	}

	// Replace drops the old set entirely.
	second := []models.Link{{SourcePath: "a.md", Target: "D", TargetPath: "d.md"}}
	if err := db.ReplaceLinksFromSource("a.md", second); err != nil {
		t.Fatal(err)
	}
	out, err = db.GetOutlinks("a.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Target != "D" {
		t.Fatalf("outlinks after replace = %+v", out)
	}
}

func TestGetBacklinks(t *testing.T) {
	db := testutil.TestDB(t)

	if err := db.ReplaceLinksFromSource("a.md", []models.Link{{Target: "Hub", TargetPath: "hub.md"}}); err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceLinksFromSource("b.md", []models.Link{{Target: "Hub", TargetPath: "hub.md"}}); err != nil {
		t.Fatal(err)
	}

	back, err := db.GetBacklinks("hub.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != 2 {
		t.Fatalf("backlinks = %d, want 2", len(back))
	}
}

func TestBacklinkCounts(t *testing.T) {
	db := testutil.TestDB(t)

	links := []models.Link{
		{SourcePath: "a.md", Target: "Hub", TargetPath: "hub.md"},
		{SourcePath: "a.md", Target: "Unresolved"}, // no target path, not counted
	}
	if _, err := db.BulkInsertLinks(links); err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceLinksFromSource("b.md", []models.Link{{Target: "Hub", TargetPath: "hub.md"}}); err != nil {
		t.Fatal(err)
	}

	counts, err := db.BacklinkCounts()
	if err != nil {
		t.Fatal(err)
	}
	if counts["hub.md"] != 2 {
		t.Errorf("hub.md count = %d, want 2", counts["hub.md"])
	}
	if len(counts) != 1 {
		t.Errorf("counts = %v, unresolved targets must not appear", counts)
	}
}

func TestBulkInsertLinksEmpty(t *testing.T) {
	db := testutil.TestDB(t)
	n, err := db.BulkInsertLinks(nil)
	if err != nil || n != 0 {
		t.Fatalf("empty bulk insert: n=%d err=%v", n, err)
	}
}
