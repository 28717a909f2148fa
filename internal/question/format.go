// Package question prepares generated interview prompts for display.
package question

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

var labelPattern = regexp.MustCompile(`^Q\d+:\s*`)

// Format returns the plain display text of a prompt: emphasis markers and a
// leading "Q<n>:" label are removed.
func Format(q string) string {
	q = strings.TrimSpace(strings.ReplaceAll(q, "**", ""))
	q = labelPattern.ReplaceAllString(q, "")
	return strings.TrimSpace(q)
}

// HTML renders a prompt as sanitized HTML. The "Q<n>:" label is dropped but
// markdown emphasis is kept and rendered. Raw HTML in the prompt is skipped.
func HTML(q string) string {
	q = strings.TrimSpace(labelPattern.ReplaceAllString(strings.TrimSpace(q), ""))
	if q == "" {
		return ""
	}

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.NoEmptyLineBeforeBlock)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.SkipHTML | html.HrefTargetBlank,
	})

	return strings.TrimSpace(string(markdown.ToHTML([]byte(q), p, renderer)))
}

// Label is the display heading used for the question at index i.
func Label(i int) string {
	return "Q" + strconv.Itoa(i+1)
}
