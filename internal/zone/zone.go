// Package zone finds regions of a Markdown document that must not be mutated
// by link rewriting: frontmatter, code, existing links, URLs, math, and the
// other constructs below. Scanning is a linear walk over the input, never a
// set of repeated whole-document regex passes.
package zone

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Type identifies the construct a protected zone was produced from.
type Type string

const (
	Frontmatter     Type = "frontmatter"
	CodeBlock       Type = "code_block"
	InlineCode      Type = "inline_code"
	Wikilink        Type = "wikilink"
	MarkdownLink    Type = "markdown_link"
	URL             Type = "url"
	Hashtag         Type = "hashtag"
	HTMLTag         Type = "html_tag"
	ObsidianComment Type = "obsidian_comment"
	Math            Type = "math"
	Header          Type = "header"
	Callout         Type = "callout"
)

// Zone is a half-open byte range [Start, End) into the scanned document.
type Zone struct {
	Start int  `json:"start"`
	End   int  `json:"end"`
	Type  Type `json:"type"`
}

// Scan returns every protected zone in content, sorted by start offset.
// Zones may overlap (a URL inside a markdown link yields both). Malformed
// constructs (unterminated fences, frontmatter without a closing delimiter)
// yield no zone for that construct rather than an error.
func Scan(content string) []Zone {
	if content == "" {
		return nil
	}
	var zones []Zone
	zones = appendFrontmatter(zones, content)
	zones = appendLineZones(zones, content)
	zones = appendInlineZones(zones, content)

	sort.SliceStable(zones, func(i, j int) bool {
		if zones[i].Start != zones[j].Start {
			return zones[i].Start < zones[j].Start
		}
		return zones[i].End > zones[j].End
	})
	return zones
}

// Contains reports whether pos falls inside any zone. Half-open: a position
// exactly at a zone's End is not protected.
func Contains(pos int, zones []Zone) bool {
	for _, z := range zones {
		if pos >= z.Start && pos < z.End {
			return true
		}
	}
	return false
}

// Overlaps reports whether the half-open candidate range [start, end)
// intersects any zone, including partial overlap and containment in either
// direction.
func Overlaps(start, end int, zones []Zone) bool {
	for _, z := range zones {
		if start < z.End && end > z.Start {
			return true
		}
	}
	return false
}

// appendFrontmatter emits a zone only when the document begins with a ---
// line and a later line is exactly ---. No closing delimiter, no zone.
func appendFrontmatter(zones []Zone, content string) []Zone {
	first, rest := splitLine(content, 0)
	if strings.TrimRight(content[first.start:first.end], "\r") != "---" || first.start != 0 {
		return zones
	}
	pos := rest
	for pos < len(content) {
		line, next := splitLine(content, pos)
		if strings.TrimRight(content[line.start:line.end], "\r") == "---" {
			return append(zones, Zone{Start: 0, End: next, Type: Frontmatter})
		}
		pos = next
	}
	return zones
}

type lineSpan struct {
	start, end int // end excludes the trailing newline
}

// splitLine returns the line starting at pos and the offset of the next line.
func splitLine(content string, pos int) (lineSpan, int) {
	i := strings.IndexByte(content[pos:], '\n')
	if i < 0 {
		return lineSpan{start: pos, end: len(content)}, len(content)
	}
	return lineSpan{start: pos, end: pos + i}, pos + i + 1
}

// appendLineZones walks the document line by line, emitting code_block,
// header, and callout zones.
func appendLineZones(zones []Zone, content string) []Zone {
	fenceStart := -1
	pos := 0
	for pos < len(content) {
		line, next := splitLine(content, pos)
		text := content[line.start:line.end]

		switch {
		case strings.HasPrefix(text, "```"):
			if fenceStart < 0 {
				fenceStart = line.start
			} else {
				zones = append(zones, Zone{Start: fenceStart, End: line.end, Type: CodeBlock})
				fenceStart = -1
			}
		case fenceStart < 0 && isHeaderLine(text):
			zones = append(zones, Zone{Start: line.start, End: line.end, Type: Header})
		case fenceStart < 0 && strings.HasPrefix(text, "> [!"):
			zones = append(zones, Zone{Start: line.start, End: line.end, Type: Callout})
		}
		pos = next
	}
	// An unterminated fence protects nothing.
	return zones
}

func isHeaderLine(text string) bool {
	n := 0
	for n < len(text) && text[n] == '#' {
		n++
	}
	return n >= 1 && n <= 6 && n < len(text) && text[n] == ' '
}

// appendInlineZones is the single forward walk that finds inline constructs:
// inline code, wikilinks, markdown links (plus any URL they contain), bare
// URLs, hashtags, HTML tags, %% comments, and math spans.
func appendInlineZones(zones []Zone, content string) []Zone {
	i := 0
	for i < len(content) {
		switch content[i] {
		case '`':
			if strings.HasPrefix(content[i:], "```") {
				// Fence line, handled by the line pass.
				i = skipLine(content, i)
				continue
			}
			if end, ok := findBefore(content, i+1, "`", '\n'); ok {
				zones = append(zones, Zone{Start: i, End: end + 1, Type: InlineCode})
				i = end + 1
				continue
			}
			i++
		case '[':
			if strings.HasPrefix(content[i:], "[[") {
				if j := strings.Index(content[i+2:], "]]"); j >= 0 {
					end := i + 2 + j + 2
					zones = append(zones, Zone{Start: i, End: end, Type: Wikilink})
					i = end
					continue
				}
				i += 2
				continue
			}
			if end, urlStart, urlEnd, ok := matchMarkdownLink(content, i); ok {
				zones = append(zones, Zone{Start: i, End: end, Type: MarkdownLink})
				if urlStart >= 0 {
					zones = append(zones, Zone{Start: urlStart, End: urlEnd, Type: URL})
				}
				i = end
				continue
			}
			i++
		case 'h':
			if end, ok := matchURL(content, i); ok {
				zones = append(zones, Zone{Start: i, End: end, Type: URL})
				i = end
				continue
			}
			i++
		case '#':
			if end, ok := matchHashtag(content, i); ok {
				zones = append(zones, Zone{Start: i, End: end, Type: Hashtag})
				i = end
				continue
			}
			i++
		case '<':
			if end, ok := matchHTMLTag(content, i); ok {
				zones = append(zones, Zone{Start: i, End: end, Type: HTMLTag})
				i = end
				continue
			}
			i++
		case '%':
			if strings.HasPrefix(content[i:], "%%") {
				if j := strings.Index(content[i+2:], "%%"); j >= 0 {
					end := i + 2 + j + 2
					zones = append(zones, Zone{Start: i, End: end, Type: ObsidianComment})
					i = end
					continue
				}
				i += 2
				continue
			}
			i++
		case '$':
			if strings.HasPrefix(content[i:], "$$") {
				if j := strings.Index(content[i+2:], "$$"); j >= 0 {
					end := i + 2 + j + 2
					zones = append(zones, Zone{Start: i, End: end, Type: Math})
					i = end
					continue
				}
				i += 2
				continue
			}
			if end, ok := findBefore(content, i+1, "$", '\n'); ok && end > i+1 {
				zones = append(zones, Zone{Start: i, End: end + 1, Type: Math})
				i = end + 1
				continue
			}
			i++
		default:
			i++
		}
	}
	return zones
}

func skipLine(content string, pos int) int {
	if i := strings.IndexByte(content[pos:], '\n'); i >= 0 {
		return pos + i + 1
	}
	return len(content)
}

// findBefore returns the index of needle after from, but only if it occurs
// before the next stop byte.
func findBefore(content string, from int, needle string, stop byte) (int, bool) {
	rest := content[from:]
	j := strings.Index(rest, needle)
	if j < 0 {
		return 0, false
	}
	if k := strings.IndexByte(rest, stop); k >= 0 && k < j {
		return 0, false
	}
	return from + j, true
}

// matchMarkdownLink matches [text](dest) starting at pos. It also reports the
// span of dest when it is an http(s) URL, so the caller can emit the
// overlapping url zone.
func matchMarkdownLink(content string, pos int) (end, urlStart, urlEnd int, ok bool) {
	close, found := findBefore(content, pos+1, "]", '\n')
	if !found || close+1 >= len(content) || content[close+1] != '(' {
		return 0, 0, 0, false
	}
	paren, found := findBefore(content, close+2, ")", '\n')
	if !found {
		return 0, 0, 0, false
	}
	urlStart, urlEnd = -1, -1
	dest := content[close+2 : paren]
	if strings.HasPrefix(dest, "http://") || strings.HasPrefix(dest, "https://") {
		urlStart, urlEnd = close+2, paren
	}
	return paren + 1, urlStart, urlEnd, true
}

// matchURL matches a bare http(s) token. The scheme must start at a word
// boundary; the token runs to whitespace or a delimiter, with trailing
// sentence punctuation excluded.
func matchURL(content string, pos int) (int, bool) {
	if !strings.HasPrefix(content[pos:], "http://") && !strings.HasPrefix(content[pos:], "https://") {
		return 0, false
	}
	if pos > 0 && isWordByte(content[pos-1]) {
		return 0, false
	}
	end := pos
	for end < len(content) {
		c := content[end]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '<' || c == '>' || c == '"' || c == ')' {
			break
		}
		end++
	}
	for end > pos && strings.ContainsRune(".,;:!?'", rune(content[end-1])) {
		end--
	}
	if end <= pos+len("https://") {
		return 0, false
	}
	return end, true
}

// matchHashtag matches #word. A # that opens a header line has a # or space
// after it and never matches here.
func matchHashtag(content string, pos int) (int, bool) {
	if pos > 0 && isWordByte(content[pos-1]) {
		return 0, false
	}
	end := pos + 1
	if end >= len(content) || !isTagByte(content[end]) {
		return 0, false
	}
	for end < len(content) && isTagByte(content[end]) {
		end++
	}
	return end, true
}

func matchHTMLTag(content string, pos int) (int, bool) {
	if pos+1 >= len(content) {
		return 0, false
	}
	c := content[pos+1]
	if c != '/' && c != '!' && !isAlphaByte(c) {
		return 0, false
	}
	end, ok := findBefore(content, pos+1, ">", '\n')
	if !ok {
		return 0, false
	}
	return end + 1, true
}

func isAlphaByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordByte(c byte) bool {
	if c >= utf8.RuneSelf {
		// Part of a multibyte rune; treat as word content.
		return true
	}
	return c == '_' || (c >= '0' && c <= '9') || isAlphaByte(c)
}

func isTagByte(c byte) bool {
	return isWordByte(c) || c == '/' || c == '-'
}
