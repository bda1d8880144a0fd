package filter

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	ugcPolicy    = bluemonday.UGCPolicy()
)

// maxSanitizePasses bounds the strip/unescape loop for deeply encoded input.
const maxSanitizePasses = 8

// Sanitize strips every HTML tag from user supplied message text and trims
// surrounding whitespace. Entities are unescaped so plain text round trips
// unchanged; the policy runs again until unescaping reveals no more markup.
func Sanitize(text string) string {
	cur := text
	for range maxSanitizePasses {
		next := html.UnescapeString(strictPolicy.Sanitize(cur))
		if next == cur {
			return strings.TrimSpace(cur)
		}
		cur = next
	}
	// Still unwrapping encoded markup, keep nothing.
	return ""
}

// Render converts markdown message text to HTML that is safe to embed.
func Render(text string) string {
	unsafe := blackfriday.Run([]byte(text), blackfriday.WithExtensions(
		blackfriday.CommonExtensions|blackfriday.HardLineBreak,
	))
	return strings.TrimSpace(string(ugcPolicy.SanitizeBytes(unsafe)))
}
