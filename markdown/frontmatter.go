package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
)

// Document is a markdown source split into its front matter block and body.
type Document struct {
	FrontMatter string         // Raw block including delimiters, empty when absent
	Meta        map[string]any // Decoded front matter
	Body        string
}

// Split separates the front matter (YAML "---" or TOML "+++") from the body.
// Invalid front matter is an error; a document without one is returned as
// body only.
func Split(source string) (Document, error) {
	meta := map[string]any{}
	body, err := frontmatter.Parse(bytes.NewReader([]byte(source)), &meta)
	if err != nil {
		return Document{}, fmt.Errorf("parse frontmatter: %w", err)
	}

	rest := string(body)
	doc := Document{Meta: meta, Body: rest}
	if rest == source {
		return doc, nil
	}
	if strings.HasSuffix(source, rest) {
		doc.FrontMatter = source[:len(source)-len(rest)]
		return doc, nil
	}

	// The parser normalised the body; locate the block ourselves.
	front, tail := splitDelimited(source)
	doc.FrontMatter = front
	doc.Body = tail
	return doc, nil
}

// Join reattaches the front matter to a (translated) body.
func (d Document) Join(body string) string {
	if d.FrontMatter == "" {
		return body
	}
	front := d.FrontMatter
	if !strings.HasSuffix(front, "\n") {
		front += "\n"
	}
	return front + body
}

// HasFrontMatter reports whether the document starts with a front matter
// block.
func (d Document) HasFrontMatter() bool {
	return d.FrontMatter != ""
}

func splitDelimited(source string) (string, string) {
	lines := strings.SplitAfter(source, "\n")
	if len(lines) == 0 {
		return "", source
	}
	delim := strings.TrimSpace(lines[0])
	if delim != "---" && delim != "+++" {
		return "", source
	}
	offset := len(lines[0])
	for _, line := range lines[1:] {
		offset += len(line)
		if strings.TrimSpace(line) == delim {
			return source[:offset], source[offset:]
		}
	}
	return "", source
}
