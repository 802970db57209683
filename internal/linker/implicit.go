package linker

import (
	"regexp"
	"strings"

	"github.com/starford/laguz/internal/zone"
)

// Implicit pattern names.
const (
	PatternProperNouns = "proper-nouns"
	PatternQuotedTerms = "quoted-terms"
	PatternSingleCaps  = "single-caps"
)

// ImplicitConfig controls implicit-entity detection.
type ImplicitConfig struct {
	// Patterns to run; defaults to proper-nouns and quoted-terms.
	// single-caps is opt-in.
	Patterns []string
	// ExcludePatterns are regular expressions whose matches are dropped.
	ExcludePatterns []string
	// MinEntityLength is the minimum text length of a detected entity.
	MinEntityLength int
	// NoteTitle is the current note's title; never suggested (no self-links).
	NoteTitle string
	// MaxQuotedLength bounds quoted-term spans.
	MaxQuotedLength int
}

// DefaultImplicitConfig mirrors the documented defaults.
func DefaultImplicitConfig() ImplicitConfig {
	return ImplicitConfig{
		Patterns:        []string{PatternProperNouns, PatternQuotedTerms},
		MinEntityLength: 3,
		MaxQuotedLength: 30,
	}
}

// ImplicitMatch is a plausible entity detected by surface pattern that has no
// canonical note yet.
type ImplicitMatch struct {
	Text    string `json:"text"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Pattern string `json:"pattern"`
}

var (
	// Two or more consecutive capitalized words.
	properNounRe = regexp.MustCompile(`[A-Z][A-Za-z0-9']*(?: [A-Z][A-Za-z0-9']*)+`)
	// Double-quoted span on one line; length bounds applied after.
	quotedRe = regexp.MustCompile(`"([^"\n]+)"`)
	// A capitalized word right after a lowercase word, so sentence-initial
	// capitals never match.
	singleCapsRe = regexp.MustCompile(`[a-z][a-z0-9']* ([A-Z][A-Za-z0-9']+)`)
)

// DetectImplicit finds implicit-entity candidates in content. Matches inside
// protected zones, denylisted or stopword text, the note's own title, and
// duplicate texts are all filtered out.
func DetectImplicit(content string, cfg ImplicitConfig) []ImplicitMatch {
	if cfg.MinEntityLength <= 0 {
		cfg.MinEntityLength = 3
	}
	if cfg.MaxQuotedLength <= 0 {
		cfg.MaxQuotedLength = 30
	}
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = []string{PatternProperNouns, PatternQuotedTerms}
	}

	var excludes []*regexp.Regexp
	for _, p := range cfg.ExcludePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			// A bad exclude pattern degrades to no exclusion.
			continue
		}
		excludes = append(excludes, re)
	}

	zones := zone.Scan(content)
	var out []ImplicitMatch
	seen := make(map[string]bool)

	keep := func(text string, start, end int, pattern string) {
		text = strings.TrimSpace(text)
		if len(text) < cfg.MinEntityLength {
			return
		}
		lower := strings.ToLower(text)
		if seen[lower] {
			return
		}
		if denied(text) || english.Contains(lower) {
			return
		}
		if cfg.NoteTitle != "" && strings.EqualFold(text, cfg.NoteTitle) {
			return
		}
		if zone.Overlaps(start, end, zones) {
			return
		}
		for _, re := range excludes {
			if re.MatchString(text) {
				return
			}
		}
		seen[lower] = true
		out = append(out, ImplicitMatch{Text: text, Start: start, End: end, Pattern: pattern})
	}

	for _, p := range patterns {
		switch p {
		case PatternProperNouns:
			for _, loc := range properNounRe.FindAllStringIndex(content, -1) {
				s, e := loc[0], loc[1]
				if !boundaryBefore(content, s) || !boundaryAfter(content, e) {
					continue
				}
				text := content[s:e]
				first := strings.ToLower(strings.Fields(text)[0])
				if determiners[first] {
					continue
				}
				keep(text, s, e, PatternProperNouns)
			}
		case PatternQuotedTerms:
			for _, loc := range quotedRe.FindAllStringSubmatchIndex(content, -1) {
				s, e := loc[2], loc[3]
				if e-s < cfg.MinEntityLength || e-s > cfg.MaxQuotedLength {
					continue
				}
				keep(content[s:e], s, e, PatternQuotedTerms)
			}
		case PatternSingleCaps:
			for _, loc := range singleCapsRe.FindAllStringSubmatchIndex(content, -1) {
				s, e := loc[2], loc[3]
				if !boundaryAfter(content, e) {
					continue
				}
				keep(content[s:e], s, e, PatternSingleCaps)
			}
		}
	}

	return out
}
