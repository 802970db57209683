package store

import "strings"

// SearchHit is one ranked search result.
type SearchHit struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Category string `json:"category"`
}

// escapeQuery strips characters with special meaning to the FTS query
// syntax (parentheses, colons), doubles embedded quotes, and quotes each
// remaining token, so arbitrary user input can never produce a syntax error.
func escapeQuery(q string) string {
	q = strings.NewReplacer("(", " ", ")", " ", ":", " ", "*", " ", "^", " ", "-", " ").Replace(q)
	q = strings.ReplaceAll(q, `"`, `""`)
	tokens := strings.Fields(q)
	for i, t := range tokens {
		tokens[i] = `"` + t + `"`
	}
	return strings.Join(tokens, " ")
}

// escapePrefix escapes a single prefix token and appends the wildcard.
func escapePrefix(p string) string {
	p = strings.NewReplacer("(", "", ")", "", ":", "", "*", "", "^", "").Replace(p)
	p = strings.ReplaceAll(p, `"`, `""`)
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return `"` + p + `"*`
}
