package entity

import (
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/starford/laguz/internal/checksum"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/storage"
)

// ScanOptions controls the vault walk and category assignment.
type ScanOptions struct {
	ExcludeFolders []string // folder names skipped outright
	TechKeywords   []string // stem keywords classified as technologies
}

// Alias noise bounds: very short or very long surface forms produce junk
// matches downstream.
const (
	minAliasLen   = 2
	maxAliasLen   = 60
	maxAliasWords = 6
)

// periodicFolderRe matches date-stamped daily/weekly/monthly folder names.
var periodicFolderRe = regexp.MustCompile(`^(\d{4}(-\d{2}){0,2}|\d{4}-W\d{2})$`)

var periodicFolderNames = map[string]bool{
	"daily": true, "weekly": true, "monthly": true, "journal": true,
}

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
)

// ScanVault walks the vault and builds the categorized entity index along
// with per-note metadata for the store's notes table. Unreadable files are
// logged and skipped, never fatal.
func ScanVault(store storage.Provider, opts ScanOptions, logger *slog.Logger) (*Index, []models.Note, error) {
	metas, err := store.List("")
	if err != nil {
		return nil, nil, fmt.Errorf("entity: scan vault: %w", err)
	}

	ix := NewIndex(store.Root(), "vault-scan")
	var notes []models.Note
	seen := make(map[string]bool) // lower-cased names already indexed

	for _, m := range metas {
		if skipFolder(m.Path, opts.ExcludeFolders) {
			continue
		}
		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("scan: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}

		fm, body := SplitFrontmatter(data)
		stem := strings.TrimSuffix(path.Base(m.Path), ".md")
		name := strings.TrimSpace(stem)
		if name == "" {
			continue
		}

		aliases := filterAliases(FrontmatterStrings(fm, "aliases"), name)

		note := models.Note{
			Path:        m.Path,
			Frontmatter: fm,
			Title:       name,
			Aliases:     aliases,
			Links:       extractLinks(body),
			Tags:        extractTags(body, fm),
			Checksum:    checksum.Sum(data),
			ModifiedAt:  m.ModifiedAt,
		}
		notes = append(notes, note)

		lower := strings.ToLower(name)
		if seen[lower] {
			logger.Debug("scan: duplicate entity name", slog.String("name", name), slog.String("path", m.Path))
			continue
		}
		seen[lower] = true

		category := Categorize(name, FrontmatterString(fm, "type"), opts.TechKeywords)
		ix.Add(category, Entity{Name: name, Path: m.Path, Aliases: aliases})
	}

	return ix, notes, nil
}

// skipFolder reports whether any directory segment of p is hidden, excluded,
// or a periodic-note folder.
func skipFolder(p string, exclude []string) bool {
	dir := path.Dir(p)
	if dir == "." {
		return false
	}
	for _, seg := range strings.Split(dir, "/") {
		if seg == "" {
			continue
		}
		if strings.HasPrefix(seg, ".") {
			return true
		}
		lower := strings.ToLower(seg)
		if periodicFolderNames[lower] || periodicFolderRe.MatchString(seg) {
			return true
		}
		for _, ex := range exclude {
			if strings.EqualFold(seg, ex) {
				return true
			}
		}
	}
	return false
}

// typeCategories maps frontmatter type hints onto the fixed categories.
var typeCategories = map[string]string{
	"person": "people", "people": "people", "contact": "people",
	"project": "projects",
	"org": "organizations", "organization": "organizations", "company": "organizations",
	"location": "locations", "place": "locations",
	"concept": "concepts", "idea": "concepts",
	"tech": "technologies", "technology": "technologies", "tool": "technologies", "software": "technologies",
	"acronym": "acronyms",
	"animal":  "animals", "pet": "animals",
	"media": "media", "book": "media", "movie": "media", "show": "media",
	"event": "events", "meeting": "events",
	"document": "documents", "doc": "documents",
	"vehicle": "vehicles", "car": "vehicles",
	"health": "health", "finance": "finance", "food": "food", "recipe": "food",
	"hobby": "hobbies",
}

// acronymRe matches 2-6 letter all-caps stems (allowing digits after the
// first letter), e.g. "API", "K8S".
var acronymRe = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,5}$`)

// Categorize assigns a category from the frontmatter type hint when present,
// else keyword heuristics over the name, else "other".
func Categorize(name, typeHint string, techKeywords []string) string {
	if typeHint != "" {
		hint := strings.ToLower(typeHint)
		if cat, ok := typeCategories[hint]; ok {
			return cat
		}
		if KnownCategory(hint) {
			return hint
		}
	}
	lower := strings.ToLower(name)
	for _, kw := range techKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return "technologies"
		}
	}
	if acronymRe.MatchString(name) {
		return "acronyms"
	}
	return "other"
}

// filterAliases drops noisy surface forms: too short, too long, too many
// words, or identical to the canonical name.
func filterAliases(raw []string, name string) []string {
	var out []string
	for _, a := range raw {
		if len(a) < minAliasLen || len(a) > maxAliasLen {
			continue
		}
		if len(strings.Fields(a)) > maxAliasWords {
			continue
		}
		if strings.EqualFold(a, name) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// extractLinks returns deduplicated wikilink targets, normalising aliases.
func extractLinks(body string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target := m[1]
		// [[Target|Alias]] → Target.
		if i := strings.Index(target, "|"); i >= 0 {
			target = target[:i]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

// extractTags collects #tags from body and the frontmatter "tags" field.
func extractTags(body string, fm map[string]interface{}) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range FrontmatterStrings(fm, "tags") {
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		t := m[1]
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
