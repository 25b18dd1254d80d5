package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripToText_BlocksBecomeLines(t *testing.T) {
	text, err := stripToText([]byte(`<html><body>
<h2>Heading</h2>
<p>First   paragraph
with a break.</p>
<ul><li>one</li><li>two</li></ul>
</body></html>`))
	require.NoError(t, err)

	assert.Equal(t, "Heading\n\nFirst paragraph\nwith a break.\n\none\n\ntwo", text)
}

func TestStripToText_DropsImagesTablesAndScripts(t *testing.T) {
	text, err := stripToText([]byte(`<html><body>
<p>Keep <a href="https://example.com">this link text</a>.</p>
<table><tr><td>drop me</td></tr></table>
<img src="pic.png" alt="drop alt">
<script>dropScript()</script>
</body></html>`))
	require.NoError(t, err)

	assert.Equal(t, "Keep this link text.", text)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"  a  \t b  ", "a b"},
		{"a\n\n\n\nb", "a\n\nb"},
		{"\n\n a \n", "a"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, normalize(tt.input), "normalize(%q)", tt.input)
	}
}
