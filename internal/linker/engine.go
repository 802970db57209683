// Package linker rewrites document text to insert or normalize wikilinks to
// known entities while never touching protected zones. Matching runs over a
// single Aho-Corasick automaton built from every entity name and alias.
package linker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/coregx/ahocorasick"

	"github.com/starford/laguz/internal/entity"
	"github.com/starford/laguz/internal/zone"
)

// Options controls matching behavior.
type Options struct {
	// FirstOccurrenceOnly links only the earliest valid match per entity.
	FirstOccurrenceOnly bool
	// CaseSensitive requires exact-case surface matches.
	CaseSensitive bool
	// MaxBracketImbalance is the tolerated ratio of mismatch between [[ and
	// ]] counts before a document is considered corrupted and left alone.
	// Zero disables the guard.
	MaxBracketImbalance float64
}

// DefaultOptions mirrors the documented defaults.
func DefaultOptions() Options {
	return Options{
		FirstOccurrenceOnly: true,
		CaseSensitive:       false,
		MaxBracketImbalance: 0.10,
	}
}

// Result is the outcome of an Apply pass.
type Result struct {
	Content        string
	LinksAdded     int
	LinkedEntities []string
}

// Suggestion is one candidate link found by Suggest.
type Suggestion struct {
	Entity  string `json:"entity"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Context string `json:"context"`
}

// candidate is one surface form tagged with its owning entity.
type candidate struct {
	surface   string
	canonical string
	isAlias   bool
}

// Engine matches entity surfaces in documents. It is immutable after New and
// safe for concurrent use.
type Engine struct {
	opts       Options
	candidates []candidate // sorted by surface length descending
	byPattern  [][]int     // pattern id -> candidate index (first wins)
	ac         *ahocorasick.Automaton
	aliases    map[string]string // folded alias -> canonical name
	canonical  map[string]string // folded name -> canonical name
}

// New builds an engine over the given entities. Denylisted surfaces are
// dropped at build time.
func New(entities []entity.Entity, opts Options) (*Engine, error) {
	e := &Engine{
		opts:      opts,
		aliases:   make(map[string]string),
		canonical: make(map[string]string),
	}

	patternIdx := make(map[string]int)
	var patterns []string

	add := func(surface, canonicalName string, isAlias bool) {
		surface = strings.TrimSpace(surface)
		if surface == "" || denied(surface) {
			return
		}
		key := surface
		if !opts.CaseSensitive {
			key = foldSameLen(surface)
		}
		ci := len(e.candidates)
		e.candidates = append(e.candidates, candidate{surface: surface, canonical: canonicalName, isAlias: isAlias})
		idx, ok := patternIdx[key]
		if !ok {
			idx = len(patterns)
			patternIdx[key] = idx
			patterns = append(patterns, key)
			e.byPattern = append(e.byPattern, nil)
		}
		e.byPattern[idx] = append(e.byPattern[idx], ci)
	}

	for _, ent := range entities {
		if strings.TrimSpace(ent.Name) == "" {
			continue
		}
		add(ent.Name, ent.Name, false)
		e.canonical[foldSameLen(ent.Name)] = ent.Name
		for _, a := range ent.Aliases {
			add(a, ent.Name, true)
			e.aliases[foldSameLen(a)] = ent.Name
		}
	}

	if len(patterns) > 0 {
		ac, err := ahocorasick.NewBuilder().
			AddStrings(patterns).
			SetMatchKind(ahocorasick.LeftmostLongest).
			SetPrefilter(true).
			Build()
		if err != nil {
			return nil, fmt.Errorf("linker: build automaton: %w", err)
		}
		e.ac = ac
	}
	return e, nil
}

// match is one accepted occurrence.
type match struct {
	start, end int
	text       string // original document slice
	canonical  string
	isAlias    bool
}

// findMatches runs the automaton and applies word-boundary, denylist, zone,
// and overlap rules. Candidates are tried longest surface first so the
// longest match always wins at a given position; with FirstOccurrenceOnly
// the accepted set is then reduced to the earliest match per entity, so a
// long alias late in the document never shadows the name's earlier hit.
func (e *Engine) findMatches(content string, zones []zone.Zone) []match {
	if e.ac == nil || content == "" {
		return nil
	}

	haystack := content
	if !e.opts.CaseSensitive {
		haystack = foldSameLen(content)
	}

	raw := e.ac.FindAllOverlapping([]byte(haystack))
	if len(raw) == 0 {
		return nil
	}

	// Group automaton hits by pattern so each candidate can walk its own
	// occurrences in document order.
	byPattern := make(map[int][][2]int)
	for _, m := range raw {
		byPattern[m.PatternID] = append(byPattern[m.PatternID], [2]int{m.Start, m.End})
	}

	// Candidate order: longest surface first, canonical names before aliases
	// of the same length.
	order := make([]int, len(e.candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := e.candidates[order[a]], e.candidates[order[b]]
		if len(ca.surface) != len(cb.surface) {
			return len(ca.surface) > len(cb.surface)
		}
		return !ca.isAlias && cb.isAlias
	})

	patternOf := make(map[int]int) // candidate index -> pattern id
	for pid, cands := range e.byPattern {
		for _, ci := range cands {
			if _, ok := patternOf[ci]; !ok {
				patternOf[ci] = pid
			}
		}
	}

	var accepted []match

	overlapsAccepted := func(s, en int) bool {
		for _, m := range accepted {
			if s < m.end && en > m.start {
				return true
			}
		}
		return false
	}

	for _, ci := range order {
		cand := e.candidates[ci]
		pid, ok := patternOf[ci]
		if !ok {
			continue
		}
		// Only the first candidate registered for a pattern owns its hits;
		// later ones would double-link the same spans.
		if len(e.byPattern[pid]) > 0 && e.byPattern[pid][0] != ci {
			continue
		}
		for _, span := range byPattern[pid] {
			s, en := span[0], span[1]
			if !boundaryBefore(content, s) || !boundaryAfter(content, en) {
				continue
			}
			text := content[s:en]
			if denied(text) {
				continue
			}
			if zone.Overlaps(s, en, zones) || overlapsAccepted(s, en) {
				continue
			}
			accepted = append(accepted, match{
				start:     s,
				end:       en,
				text:      text,
				canonical: cand.canonical,
				isAlias:   cand.isAlias,
			})
		}
	}

	if e.opts.FirstOccurrenceOnly {
		earliest := make(map[string]match, len(accepted))
		for _, m := range accepted {
			if cur, ok := earliest[m.canonical]; !ok || m.start < cur.start {
				earliest[m.canonical] = m
			}
		}
		accepted = accepted[:0]
		for _, m := range earliest {
			accepted = append(accepted, m)
		}
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].start < accepted[j].start })
	return accepted
}

// bracketsImbalanced applies the corruption heuristic: when [[ and ]] counts
// diverge beyond the tolerated ratio the document is left untouched.
func (e *Engine) bracketsImbalanced(content string) bool {
	if e.opts.MaxBracketImbalance <= 0 {
		return false
	}
	open := strings.Count(content, "[[")
	close := strings.Count(content, "]]")
	if open == 0 && close == 0 {
		return false
	}
	max := open
	if close > max {
		max = close
	}
	diff := open - close
	if diff < 0 {
		diff = -diff
	}
	return float64(diff)/float64(max) > e.opts.MaxBracketImbalance
}

// Apply rewrites content, inserting wikilinks for every accepted match.
// Matches equal to the canonical name become [[Name]]; aliases and
// case-variant matches become [[Name|matchedText]], preserving the original
// casing. Content with no valid matches comes back unchanged.
func (e *Engine) Apply(content string) Result {
	if e.bracketsImbalanced(content) {
		return Result{Content: content}
	}
	zones := zone.Scan(content)
	matches := e.findMatches(content, zones)
	if len(matches) == 0 {
		return Result{Content: content}
	}

	var b strings.Builder
	b.Grow(len(content) + len(matches)*8)
	prev := 0
	var linked []string
	seen := make(map[string]bool)

	for _, m := range matches {
		b.WriteString(content[prev:m.start])
		if m.text == m.canonical {
			b.WriteString("[[")
			b.WriteString(m.canonical)
			b.WriteString("]]")
		} else {
			b.WriteString("[[")
			b.WriteString(m.canonical)
			b.WriteString("|")
			b.WriteString(m.text)
			b.WriteString("]]")
		}
		prev = m.end
		if !seen[m.canonical] {
			seen[m.canonical] = true
			linked = append(linked, m.canonical)
		}
	}
	b.WriteString(content[prev:])

	return Result{
		Content:        b.String(),
		LinksAdded:     len(matches),
		LinkedEntities: linked,
	}
}

// Suggest returns the matches Apply would link, without mutating anything.
func (e *Engine) Suggest(content string) []Suggestion {
	if e.bracketsImbalanced(content) {
		return nil
	}
	zones := zone.Scan(content)
	matches := e.findMatches(content, zones)
	out := make([]Suggestion, 0, len(matches))
	for _, m := range matches {
		out = append(out, Suggestion{
			Entity:  m.canonical,
			Start:   m.start,
			End:     m.end,
			Context: contextAround(content, m.start, m.end),
		})
	}
	return out
}

// contextAround returns up to 30 bytes either side of a match, clipped to
// the containing line.
func contextAround(content string, start, end int) string {
	lo := start - 30
	if lo < 0 {
		lo = 0
	}
	hi := end + 30
	if hi > len(content) {
		hi = len(content)
	}
	if i := strings.LastIndexByte(content[lo:start], '\n'); i >= 0 {
		lo += i + 1
	}
	if i := strings.IndexByte(content[end:hi], '\n'); i >= 0 {
		hi = end + i
	}
	return content[lo:hi]
}
