package store_test

import (
	"testing"

	"github.com/starford/laguz/internal/store"
	"github.com/starford/laguz/internal/testutil"
)

func seedSearch(t *testing.T) *store.DB {
	t.Helper()
	db := testutil.TestDB(t)
	rows := []store.Row{
		{Name: "Redis", Path: "Redis.md", Category: "technologies", Aliases: []string{"redis-server"}},
		{Name: "Redshift", Path: "Redshift.md", Category: "technologies"},
		{Name: "Jane Smith", Path: "Jane Smith.md", Category: "people", Aliases: []string{"Jane"}},
	}
	if _, err := db.BulkInsertEntities(rows); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestSearchEntities(t *testing.T) {
	db := seedSearch(t)

	hits, err := db.SearchEntities("redis", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 {
		t.Fatal("no hits for redis")
	}
	found := false
	for _, h := range hits {
		if h.Name == "Redis" {
			found = true
			if h.Path != "Redis.md" || h.Category != "technologies" {
				t.Errorf("hit = %+v", h)
			}
		}
	}
	if !found {
		t.Fatalf("Redis missing from hits: %+v", hits)
	}
}

func TestSearchEntitiesEmptyQuery(t *testing.T) {
	db := seedSearch(t)
	hits, err := db.SearchEntities("   ", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Fatalf("blank query returned hits: %+v", hits)
	}
}

func TestSearchEntitiesLimit(t *testing.T) {
	db := seedSearch(t)
	hits, err := db.SearchEntities("red", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) > 1 {
		t.Fatalf("limit ignored: %d hits", len(hits))
	}
}

func TestSearchEntitiesHostileInput(t *testing.T) {
	db := seedSearch(t)

	// Arbitrary user input must never surface as a query syntax error,
	// whichever search backend is compiled in.
	queries := []string{
		`"unbalanced`,
		`foo:bar`,
		`(paren`,
		`a NOT b OR`,
		`*star`,
		`^caret`,
		`-`,
		`""`,
	}
	for _, q := range queries {
		if _, err := db.SearchEntities(q, 10); err != nil {
			t.Errorf("SearchEntities(%q): %v", q, err)
		}
		if _, err := db.SearchEntitiesPrefix(q, 10); err != nil {
			t.Errorf("SearchEntitiesPrefix(%q): %v", q, err)
		}
	}

	// Operator and punctuation garbage matches nothing.
	for _, q := range []string{`(paren`, `^caret`, `foo:bar`} {
		hits, err := db.SearchEntities(q, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(hits) != 0 {
			t.Errorf("SearchEntities(%q) = %+v, want none", q, hits)
		}
	}

	// Padding never breaks a real query.
	hits, err := db.SearchEntities("  redis  ", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 {
		t.Error("whitespace-padded query returned nothing")
	}
}

func TestSearchEntitiesPrefix(t *testing.T) {
	db := seedSearch(t)

	hits, err := db.SearchEntitiesPrefix("red", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("prefix hits = %+v, want Redis and Redshift", hits)
	}

	hits, err = db.SearchEntitiesPrefix("jane", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Name != "Jane Smith" {
		t.Fatalf("prefix hits = %+v", hits)
	}

	hits, err = db.SearchEntitiesPrefix("zzz", 10)
	if err != nil || len(hits) != 0 {
		t.Fatalf("unexpected hits: %+v, err %v", hits, err)
	}
}
