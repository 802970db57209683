package linker

import (
	"strings"

	"github.com/starford/laguz/internal/zone"
)

// ResolveAliases rewrites existing [[aliasText]] links whose bracket content
// is a known alias into [[CanonicalName|aliasText]], preserving the original
// display text. Links already using pipe syntax, links already targeting the
// canonical name, and links inside other protected zones are left alone.
func (e *Engine) ResolveAliases(content string) Result {
	zones := zone.Scan(content)

	var b strings.Builder
	b.Grow(len(content))
	prev := 0
	resolved := 0
	var linked []string
	seen := make(map[string]bool)

	i := 0
	for i < len(content) {
		open := strings.Index(content[i:], "[[")
		if open < 0 {
			break
		}
		open += i
		close := strings.Index(content[open+2:], "]]")
		if close < 0 {
			break
		}
		close += open + 2
		inner := content[open+2 : close]
		i = close + 2

		if strings.Contains(inner, "|") {
			continue
		}
		// Respect non-link zones (code, frontmatter, comments...) that
		// contain this bracket pair.
		if insideNonLinkZone(open, close+2, zones) {
			continue
		}
		folded := foldSameLen(strings.TrimSpace(inner))
		if _, isCanonical := e.canonical[folded]; isCanonical {
			continue
		}
		target, ok := e.aliases[folded]
		if !ok {
			continue
		}

		b.WriteString(content[prev:open])
		b.WriteString("[[")
		b.WriteString(target)
		b.WriteString("|")
		b.WriteString(inner)
		b.WriteString("]]")
		prev = close + 2
		resolved++
		if !seen[target] {
			seen[target] = true
			linked = append(linked, target)
		}
	}
	b.WriteString(content[prev:])

	return Result{Content: b.String(), LinksAdded: resolved, LinkedEntities: linked}
}

// insideNonLinkZone reports whether the range intersects a protected zone
// other than the wikilink/markdown-link zone it is itself part of.
func insideNonLinkZone(start, end int, zones []zone.Zone) bool {
	for _, z := range zones {
		if z.Type == zone.Wikilink || z.Type == zone.MarkdownLink {
			continue
		}
		if start < z.End && end > z.Start {
			return true
		}
	}
	return false
}
