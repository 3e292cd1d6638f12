package ports

import (
	"context"
	"io"
)

// ContentRenderer turns slide text into markup safe for the browser client
type ContentRenderer interface {
	// RenderContent converts a slide body to sanitized HTML
	RenderContent(content string) (string, error)

	// SanitizeText strips markup from plain text such as titles
	SanitizeText(text string) string
}

// ClientPageData is what the browser client page is rendered from
type ClientPageData struct {
	Title        string
	TotalSlides  int
	CurrentSlide int
	Layouts      []string
}

// PageRenderer produces the browser remote client assets
type PageRenderer interface {
	RenderIndex(ctx context.Context, w io.Writer, data ClientPageData) error
	Stylesheet() []byte
	Script() []byte
}
