// Package render turns stored rich content into output that is safe to
// display. Stored question and answer bodies are kept verbatim; every
// display path goes through a Sanitizer.
package render

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var (
	blockBreaks = regexp.MustCompile(`(?i)<\s*(br|/p|/li|/pre|/h[1-6]|/div)\s*/?>`)
	listItems   = regexp.MustCompile(`(?i)<\s*li[^>]*>`)
	blankLines  = regexp.MustCompile(`\n{3,}`)
)

// Sanitizer cleans user supplied HTML. It is safe for concurrent use.
type Sanitizer struct {
	rich  *bluemonday.Policy
	plain *bluemonday.Policy
}

// NewSanitizer builds a sanitizer allowing the formatting the editor produces.
func NewSanitizer() *Sanitizer {
	rich := bluemonday.UGCPolicy()
	rich.AllowAttrs("style").Matching(regexp.MustCompile(`^text-align:\s*(left|center|right);?$`)).OnElements("p", "div")
	rich.RequireNoFollowOnLinks(true)
	rich.AddTargetBlankToFullyQualifiedLinks(true)

	return &Sanitizer{
		rich:  rich,
		plain: bluemonday.StrictPolicy(),
	}
}

// HTML returns content with scripts, event handlers and unknown markup removed.
func (s *Sanitizer) HTML(content string) string {
	return s.rich.Sanitize(content)
}

// Text strips all markup for terminal output, keeping paragraph and list
// structure as line breaks.
func (s *Sanitizer) Text(content string) string {
	withBreaks := blockBreaks.ReplaceAllString(content, "\n")
	withBreaks = listItems.ReplaceAllString(withBreaks, "• ")
	text := stripControls(html.UnescapeString(s.plain.Sanitize(withBreaks)))
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// stripControls drops control characters other than newline and tab, so
// stored content cannot emit terminal escape sequences.
func stripControls(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, text)
}
