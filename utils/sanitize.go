package utils

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.StrictPolicy()

// Sanitize strips every HTML tag from input to prevent XSS attacks.
// Entities escaped by the policy are decoded again, so plain punctuation
// such as & or ' is stored as typed.
func Sanitize(input string) string {
	return html.UnescapeString(sanitizer.Sanitize(input))
}
