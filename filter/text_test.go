package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain text",
			input:    "hello there",
			expected: "hello there",
		},
		{
			name:     "surrounding whitespace",
			input:    "  hi  \n",
			expected: "hi",
		},
		{
			name:     "inline tags",
			input:    "<b>hello</b> world",
			expected: "hello world",
		},
		{
			name:     "script element",
			input:    "<script>alert(1)</script>hi",
			expected: "hi",
		},
		{
			name:     "comparison characters survive",
			input:    "a < b & c",
			expected: "a < b & c",
		},
		{
			name:     "only markup",
			input:    "<img src=x>",
			expected: "",
		},
		{
			name:     "entity encoded script",
			input:    "&lt;script&gt;alert(1)&lt;/script&gt;hi",
			expected: "hi",
		},
		{
			name:     "entity encoded markup only",
			input:    "&lt;br&gt;",
			expected: "",
		},
		{
			name:     "double encoded tags",
			input:    "&amp;lt;b&amp;gt;bold&amp;lt;/b&amp;gt; text",
			expected: "bold text",
		},
		{
			name:     "encoded ampersand",
			input:    "fish &amp; chips",
			expected: "fish & chips",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Sanitize(tt.input))
		})
	}
}

func TestSanitizeOutputHasNoMarkup(t *testing.T) {
	inputs := []string{
		"&lt;script&gt;alert(1)&lt;/script&gt;",
		"&amp;amp;lt;img src=x onerror=alert(1)&amp;amp;gt;",
		"&lt;a href=&quot;javascript:alert(1)&quot;&gt;x&lt;/a&gt;",
	}
	for _, in := range inputs {
		out := Sanitize(in)
		assert.NotContains(t, out, "<", in)
		assert.Equal(t, out, Sanitize(out), in)
	}
}

func TestRender(t *testing.T) {
	assert.Equal(t, "<p><strong>bold</strong> move</p>", Render("**bold** move"))

	out := Render("<script>alert(1)</script>")
	assert.NotContains(t, out, "<script")

	out = Render("[click](javascript:alert(1))")
	assert.NotContains(t, out, "javascript:")
}
