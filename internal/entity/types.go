// Package entity defines the entity model, the categorized vault index, the
// vault scanner that produces it, and the flat-file cache round-trip.
package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// CacheVersion stamps serialized indexes. A loaded index with any other
// version is treated as absent and forces a rescan.
const CacheVersion = "v3"

// Categories is the fixed category partition, in canonical order.
var Categories = []string{
	"technologies", "acronyms", "people", "projects", "organizations",
	"locations", "concepts", "animals", "media", "events", "documents",
	"vehicles", "health", "finance", "food", "hobbies", "other",
}

var categorySet = func() map[string]bool {
	m := make(map[string]bool, len(Categories))
	for _, c := range Categories {
		m[c] = true
	}
	return m
}()

// KnownCategory reports whether name is one of the fixed categories.
func KnownCategory(name string) bool {
	return categorySet[name]
}

// Entity is one linkable thing in the vault. Name is the canonical link
// target, unique per vault case-insensitively. Path is vault-relative.
type Entity struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Aliases  []string `json:"aliases,omitempty"`
	HubScore int      `json:"hub_score,omitempty"`
}

// Ref is the boundary representation of an entity reference: legacy files
// store either a bare name string or a full record. It normalizes to a full
// Entity immediately on decode so nothing downstream type-sniffs.
type Ref struct {
	Entity
}

// UnmarshalJSON accepts both the legacy bare-string form and the record form.
func (r *Ref) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		r.Entity = Entity{Name: name}
		return nil
	}
	return json.Unmarshal(data, &r.Entity)
}

// Meta describes how and when an index was generated.
type Meta struct {
	TotalEntities int    `json:"total_entities"`
	GeneratedAt   string `json:"generated_at"`
	VaultPath     string `json:"vault_path"`
	Source        string `json:"source"`
	Version       string `json:"version"`
}

// Index is the full categorized entity index for one vault. Every entity name
// appears in exactly one category and Meta.TotalEntities equals the sum of
// category sizes.
type Index struct {
	ByCategory map[string][]Entity
	Meta       Meta
}

// NewIndex returns an empty index with every category present.
func NewIndex(vaultPath, source string) *Index {
	by := make(map[string][]Entity, len(Categories))
	for _, c := range Categories {
		by[c] = []Entity{}
	}
	return &Index{
		ByCategory: by,
		Meta: Meta{
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
			VaultPath:   vaultPath,
			Source:      source,
			Version:     CacheVersion,
		},
	}
}

// Add appends e to category, folding unknown categories into "other", and
// keeps TotalEntities current.
func (ix *Index) Add(category string, e Entity) {
	if !KnownCategory(category) {
		category = "other"
	}
	ix.ByCategory[category] = append(ix.ByCategory[category], e)
	ix.Meta.TotalEntities++
}

// Total recounts entities across categories.
func (ix *Index) Total() int {
	n := 0
	for _, es := range ix.ByCategory {
		n += len(es)
	}
	return n
}

// All returns every entity across categories, category order preserved.
func (ix *Index) All() []Entity {
	out := make([]Entity, 0, ix.Meta.TotalEntities)
	for _, c := range Categories {
		out = append(out, ix.ByCategory[c]...)
	}
	return out
}

// MarshalJSON writes the flat cache shape: one key per category plus
// "_metadata".
func (ix *Index) MarshalJSON() ([]byte, error) {
	flat := make(map[string]json.RawMessage, len(ix.ByCategory)+1)
	for c, es := range ix.ByCategory {
		b, err := json.Marshal(es)
		if err != nil {
			return nil, err
		}
		flat[c] = b
	}
	meta, err := json.Marshal(ix.Meta)
	if err != nil {
		return nil, err
	}
	flat["_metadata"] = meta
	return json.Marshal(flat)
}

// UnmarshalJSON reads the flat cache shape. Category entries may use the
// legacy bare-string form; they come back normalized.
func (ix *Index) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	ix.ByCategory = make(map[string][]Entity, len(Categories))
	for _, c := range Categories {
		ix.ByCategory[c] = []Entity{}
	}
	for key, raw := range flat {
		if key == "_metadata" {
			if err := json.Unmarshal(raw, &ix.Meta); err != nil {
				return fmt.Errorf("entity: metadata: %w", err)
			}
			continue
		}
		var refs []Ref
		if err := json.Unmarshal(raw, &refs); err != nil {
			return fmt.Errorf("entity: category %q: %w", key, err)
		}
		cat := key
		if !KnownCategory(cat) {
			cat = "other"
		}
		for _, r := range refs {
			ix.ByCategory[cat] = append(ix.ByCategory[cat], r.Entity)
		}
	}
	return nil
}
