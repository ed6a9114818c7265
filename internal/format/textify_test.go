package format_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amoyroud/audiodraft/internal/format"
)

func TestHTML2Text(t *testing.T) {
	cases := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "plain paragraph",
			html:     "<html><body><p>Hello there.</p></body></html>",
			expected: "Hello there.",
		},
		{
			name:     "drops style and script",
			html:     "<html><head><style>p{color:red}</style></head><body><p>Visible</p><script>alert(1)</script></body></html>",
			expected: "Visible",
		},
		{
			name:     "block elements become line breaks",
			html:     "<div>First</div><div>Second</div>",
			expected: "First\nSecond",
		},
		{
			name:     "inline markup flattened with spacing",
			html:     "<p>Meet <b>tomorrow</b> at <i>noon</i></p>",
			expected: "Meet tomorrow at noon",
		},
		{
			name:     "nested layout tables",
			html:     "<table><tr><td><table><tr><td>Deep content</td></tr></table></td></tr></table>",
			expected: "Deep content",
		},
		{
			name:     "collapses blank line runs",
			html:     "<p>One</p><br><br><br><p>Two</p>",
			expected: "One\n\nTwo",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, format.HTML2Text([]byte(tc.html)))
		})
	}
}
