package linker

import (
	"sort"
	"strings"
)

// ProcessResult combines known-entity linking with implicit detection.
type ProcessResult struct {
	Content          string
	LinksAdded       int
	LinkedEntities   []string
	ImplicitEntities []string
}

// Process applies wikilinks for known entities first, then detects implicit
// entities over the rewritten text and wraps them as plain [[Text]] links.
// Known-entity links become wikilink zones after the first pass, so implicit
// matches can never overlap them. Implicit names are reported separately so
// callers can tell "linked to a real note" from "linked to a note that does
// not exist yet."
func (e *Engine) Process(content string, cfg ImplicitConfig) ProcessResult {
	applied := e.Apply(content)

	matches := DetectImplicit(applied.Content, cfg)
	if len(matches) == 0 {
		return ProcessResult{
			Content:        applied.Content,
			LinksAdded:     applied.LinksAdded,
			LinkedEntities: applied.LinkedEntities,
		}
	}

	// Wrap non-overlapping implicit matches, earliest first.
	sort.Slice(matches, func(i, j int) bool { return matches[i].Start < matches[j].Start })

	var b strings.Builder
	b.Grow(len(applied.Content) + len(matches)*4)
	prev := 0
	var implicit []string
	wrapped := 0

	for _, m := range matches {
		if m.Start < prev {
			continue
		}
		b.WriteString(applied.Content[prev:m.Start])
		b.WriteString("[[")
		b.WriteString(m.Text)
		b.WriteString("]]")
		prev = m.End
		implicit = append(implicit, m.Text)
		wrapped++
	}
	b.WriteString(applied.Content[prev:])

	return ProcessResult{
		Content:          b.String(),
		LinksAdded:       applied.LinksAdded + wrapped,
		LinkedEntities:   applied.LinkedEntities,
		ImplicitEntities: implicit,
	}
}
