package markdown

import (
	"fmt"
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("```[a-zA-Z0-9_+-]*\\n[\\s\\S]*?\\n```")

// PlaceholderFormat is the token substituted for the n-th fenced code block.
const PlaceholderFormat = "CODEBLOCK_%d_PLACEHOLDER"

// ProtectCodeBlocks replaces every fenced code block with a numbered
// placeholder so a language model cannot rewrite code. The returned slice
// holds the original blocks in order.
func ProtectCodeBlocks(text string) (string, []string) {
	var blocks []string
	protected := fencedBlock.ReplaceAllStringFunc(text, func(block string) string {
		placeholder := fmt.Sprintf(PlaceholderFormat, len(blocks))
		blocks = append(blocks, block)
		return placeholder
	})
	return protected, blocks
}

// RestoreCodeBlocks puts the original blocks back. It returns the number of
// placeholders that were not found in text.
func RestoreCodeBlocks(text string, blocks []string) (string, int) {
	missing := 0
	for i, block := range blocks {
		placeholder := fmt.Sprintf(PlaceholderFormat, i)
		if !strings.Contains(text, placeholder) {
			missing++
			continue
		}
		text = strings.ReplaceAll(text, placeholder, block)
	}
	return text, missing
}
