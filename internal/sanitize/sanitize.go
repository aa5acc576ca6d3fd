// Package sanitize detects markup in user-supplied free text. Descriptions,
// categories, sources and names are plain text; input that bluemonday's
// strict policy would alter is rejected rather than silently rewritten, and
// clients escape stored text when rendering it.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the shared strict policy. bluemonday policies are safe for
// concurrent use once built.
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

// Plain reports whether input contains no HTML elements, i.e. stripping
// markup would leave it unchanged. Entities are compared decoded, so
// "Fish & chips" and "x > y" are plain while "a<b" is not.
func Plain(input string) bool {
	if input == "" {
		return true
	}
	// The tokenizer folds CRLF to LF; that alone is not markup.
	input = strings.ReplaceAll(input, "\r\n", "\n")
	return html.UnescapeString(getPolicy().Sanitize(input)) == html.UnescapeString(input)
}
