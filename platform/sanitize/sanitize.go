// Package sanitize cleans user-provided text before it is stored and
// echoed into notifications and emails.
package sanitize

import (
	"html"
	"regexp"
	"strings"
)

var (
	htmlTagRegex   = regexp.MustCompile(`<[^>]*>`)
	horizontalWS   = regexp.MustCompile(`[ \t\f\v]+`)
	blankLineRuns  = regexp.MustCompile(`\n{3,}`)
	carriageReturn = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// StripHTML removes tags, decodes entities and strips again so that
// encoded markup does not survive.
func StripHTML(s string) string {
	s = htmlTagRegex.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = htmlTagRegex.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Text sanitizes free text such as messages, descriptions and reasons.
// Line breaks are kept; runs of spaces and of blank lines are collapsed.
func Text(s string) string {
	s = StripHTML(carriageReturn.Replace(s))

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(horizontalWS.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	return strings.TrimSpace(blankLineRuns.ReplaceAllString(s, "\n\n"))
}

// Line sanitizes single-line input such as titles.
func Line(s string) string {
	return strings.Join(strings.Fields(StripHTML(s)), " ")
}

// TextPtr is Text for optional fields.
func TextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	result := Text(*s)
	return &result
}
