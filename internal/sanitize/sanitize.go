// Package sanitize strips markup from user-supplied calendar labels (calendar,
// weekday and season names) before they are stored or rendered.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text removes every HTML element from input and trims surrounding
// whitespace. Entities escaped by the policy are decoded again so labels
// round-trip as plain text; templ escapes them on output.
func Text(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(getPolicy().Sanitize(input)))
}

// Label sanitizes input and truncates it to maxRunes. An empty result falls
// back to def.
func Label(input, def string, maxRunes int) string {
	out := Text(input)
	if r := []rune(out); maxRunes > 0 && len(r) > maxRunes {
		out = strings.TrimSpace(string(r[:maxRunes]))
	}
	if out == "" {
		return def
	}
	return out
}
