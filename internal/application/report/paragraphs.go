package report

import (
	"regexp"
	"strings"
)

// paragraphBreak matches a blank line, including lines holding only spaces
var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// SplitParagraphs splits free text on blank-line boundaries. Paragraphs are
// trimmed and runs of blank lines never produce an empty paragraph.
// Single newlines inside a paragraph are kept.
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	parts := paragraphBreak.Split(text, -1)
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}
