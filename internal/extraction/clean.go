package extraction

import (
	"regexp"
	"strings"
)

var (
	htmlTag      = regexp.MustCompile(`<[^>]+>`)
	spaceRun     = regexp.MustCompile(`[ \t\f\v]+`)
	paddedBreak  = regexp.MustCompile(` *\n *`)
	blankLineRun = regexp.MustCompile(`\n\s*\n`)
)

// Clean strips HTML tags, collapses runs of spaces and tabs, normalizes any
// run of blank lines to a single paragraph break and trims the result.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = htmlTag.ReplaceAllString(text, "")
	text = spaceRun.ReplaceAllString(text, " ")
	text = paddedBreak.ReplaceAllString(text, "\n")
	text = blankLineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
