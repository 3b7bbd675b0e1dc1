// backend/src/security/validation/sanitizers.go
package validation

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// Strict sanitization policy, initialized once at startup.
	strictHTMLPolicy *bluemonday.Policy
)

func init() {
	strictHTMLPolicy = bluemonday.StrictPolicy() // Removes all HTML tags
}

// SanitizeText removes all HTML tags and attributes from an input string,
// preventing XSS before saving to the database.
func SanitizeText(s string) string {
	return strictHTMLPolicy.Sanitize(s)
}

// SanitizeDescription trims and strips HTML from user-supplied transaction
// descriptions and category/card names.
func SanitizeDescription(s string) string {
	return strings.TrimSpace(SanitizeText(s))
}

// SanitizeNotes strips HTML from free-text notes but preserves line breaks,
// which the planner relies on when appending its sequence marker line.
func SanitizeNotes(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = SanitizeText(line)
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n ")
}
