package markdown

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	headingLine = regexp.MustCompile(`(?m)^#+\s`)
	inlineLink  = regexp.MustCompile(`\[.+?\]\(.+?\)`)
)

// Structure counts the markdown elements a translation must preserve.
type Structure struct {
	Headings   int
	CodeBlocks int
	Links      int
}

// Measure counts headings, fenced code blocks and inline links in text.
func Measure(text string) Structure {
	return Structure{
		Headings:   len(headingLine.FindAllStringIndex(text, -1)),
		CodeBlocks: strings.Count(text, "```") / 2,
		Links:      len(inlineLink.FindAllStringIndex(text, -1)),
	}
}

// Diff lists the element counts that differ between source and translation.
func (s Structure) Diff(other Structure) []string {
	var out []string
	if s.Headings != other.Headings {
		out = append(out, fmt.Sprintf("headings %d -> %d", s.Headings, other.Headings))
	}
	if s.CodeBlocks != other.CodeBlocks {
		out = append(out, fmt.Sprintf("code blocks %d -> %d", s.CodeBlocks, other.CodeBlocks))
	}
	if s.Links != other.Links {
		out = append(out, fmt.Sprintf("links %d -> %d", s.Links, other.Links))
	}
	return out
}
