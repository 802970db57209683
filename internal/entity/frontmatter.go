package entity

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

// SplitFrontmatter separates YAML frontmatter (between leading ---
// delimiters) from the Markdown body. If no frontmatter is found, or the
// block is unterminated or invalid YAML, the entire content is body and the
// map is nil. Malformed input never produces an error.
func SplitFrontmatter(data []byte) (map[string]interface{}, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter.
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

// FrontmatterStrings reads a frontmatter field that may be a scalar or a
// sequence and returns it as a string slice.
func FrontmatterStrings(fm map[string]interface{}, key string) []string {
	if fm == nil {
		return nil
	}
	raw, ok := fm[key]
	if !ok {
		return nil
	}
	var out []string
	switch v := raw.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

// FrontmatterString reads a scalar string field from frontmatter.
func FrontmatterString(fm map[string]interface{}, key string) string {
	if fm == nil {
		return ""
	}
	if s, ok := fm[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
