package document

import (
	"strings"

	"gopkg.in/yaml.v3"
)

const frontMatterDelim = "---"

// parseFrontMatter extracts YAML front matter from a markdown document,
// returning the metadata and the body with the front-matter block removed.
// Malformed YAML falls back to naive "key: value" line parsing; documents
// without front matter pass through untouched.
func parseFrontMatter(content string) (map[string]any, string) {
	meta := map[string]any{}

	if !strings.HasPrefix(content, frontMatterDelim+"\n") &&
		content != frontMatterDelim {
		return meta, content
	}

	rest := strings.TrimPrefix(content, frontMatterDelim+"\n")
	end := strings.Index(rest, "\n"+frontMatterDelim)
	if end < 0 {
		// Unterminated block: treat the whole document as body.
		return meta, content
	}

	block := rest[:end]
	body := rest[end+len("\n"+frontMatterDelim):]
	body = strings.TrimPrefix(body, "\n")

	var parsed map[string]any
	if err := yaml.Unmarshal([]byte(block), &parsed); err == nil && parsed != nil {
		return parsed, body
	}

	// Fallback: one "key: value" pair per line, everything as strings.
	for _, line := range strings.Split(block, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		meta[key] = strings.TrimSpace(value)
	}
	return meta, body
}
