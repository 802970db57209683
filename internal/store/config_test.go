package store_test

import (
	"testing"

	"github.com/starford/laguz/internal/store"
	"github.com/starford/laguz/internal/testutil"
)

func TestConfigRoundTrip(t *testing.T) {
	db := testutil.TestDB(t)

	type hints struct {
		Boost []string `json:"boost"`
	}
	in := hints{Boost: []string{"Redis", "Phoenix"}}
	if err := db.SetConfig(store.NamespaceVault, "hints", in); err != nil {
		t.Fatal(err)
	}

	var out hints
	found, err := db.GetConfig(store.NamespaceVault, "hints", &out)
	if err != nil {
		t.Fatal(err)
	}
	if !found || len(out.Boost) != 2 || out.Boost[0] != "Redis" {
		t.Fatalf("found=%v out=%+v", found, out)
	}
}

func TestConfigMissingKey(t *testing.T) {
	db := testutil.TestDB(t)
	var out string
	found, err := db.GetConfig(store.NamespaceCrank, "absent", &out)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("missing key reported as found")
	}
}

func TestConfigOverwriteAndNamespaceIsolation(t *testing.T) {
	db := testutil.TestDB(t)

	if err := db.SetConfig(store.NamespaceVault, "k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetConfig(store.NamespaceVault, "k", "v2"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetConfig(store.NamespaceCrank, "k", "other"); err != nil {
		t.Fatal(err)
	}

	var got string
	if _, err := db.GetConfig(store.NamespaceVault, "k", &got); err != nil {
		t.Fatal(err)
	}
	if got != "v2" {
		t.Errorf("vault/k = %q, want v2", got)
	}
	if _, err := db.GetConfig(store.NamespaceCrank, "k", &got); err != nil {
		t.Fatal(err)
	}
	if got != "other" {
		t.Errorf("crank/k = %q, want other", got)
	}
}

func TestDeleteConfig(t *testing.T) {
	db := testutil.TestDB(t)
	if err := db.SetConfig(store.NamespaceVault, "k", 1); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteConfig(store.NamespaceVault, "k"); err != nil {
		t.Fatal(err)
	}
	var out int
	found, err := db.GetConfig(store.NamespaceVault, "k", &out)
	if err != nil || found {
		t.Fatalf("key survived delete: found=%v err=%v", found, err)
	}
	// Deleting again is a no-op.
	if err := db.DeleteConfig(store.NamespaceVault, "k"); err != nil {
		t.Fatal(err)
	}
}
