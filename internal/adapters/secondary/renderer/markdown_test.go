package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownRenderer_RenderContent(t *testing.T) {
	renderer := NewMarkdownRenderer()

	tests := []struct {
		name        string
		content     string
		contains    []string
		notContains []string
	}{
		{
			name:     "emphasis",
			content:  "This is **bold** and this is *italic*",
			contains: []string{"<strong>bold</strong>", "<em>italic</em>"},
		},
		{
			name:     "heading keeps generated id",
			content:  "# Test Slide",
			contains: []string{`<h1 id="test-slide">Test Slide</h1>`},
		},
		{
			name:     "line breaks are kept",
			content:  "• Vollautomatisiert\n• Elektrisch",
			contains: []string{"• Vollautomatisiert<br>", "• Elektrisch"},
		},
		{
			name:     "lists",
			content:  "- one\n- two",
			contains: []string{"<ul>", "<li>one</li>", "<li>two</li>"},
		},
		{
			name:        "script is removed",
			content:     "hello <script>alert(1)</script>",
			contains:    []string{"hello"},
			notContains: []string{"<script", "alert(1)"},
		},
		{
			name:        "event handlers are removed",
			content:     `<p onclick="steal()">click</p>`,
			contains:    []string{"click"},
			notContains: []string{"onclick", "steal"},
		},
		{
			name:        "javascript links are removed",
			content:     "[x](javascript:alert(1))",
			notContains: []string{"javascript:"},
		},
		{
			name:     "tables",
			content:  "| a | b |\n|---|---|\n| 1 | 2 |",
			contains: []string{"<table>", "<td>1</td>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html, err := renderer.RenderContent(tt.content)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, html, want)
			}
			for _, unwanted := range tt.notContains {
				assert.NotContains(t, html, unwanted)
			}
		})
	}

	t.Run("empty content", func(t *testing.T) {
		html, err := renderer.RenderContent("  \n ")
		require.NoError(t, err)
		assert.Empty(t, html)
	})
}

func TestMarkdownRenderer_SanitizeText(t *testing.T) {
	renderer := NewMarkdownRenderer()

	assert.Equal(t, "Plain title", renderer.SanitizeText("Plain title"))
	assert.Equal(t, "Title", renderer.SanitizeText("<b>Title</b>"))
	assert.NotContains(t, renderer.SanitizeText(`<img src=x onerror="alert(1)">Hi`), "onerror")
}
