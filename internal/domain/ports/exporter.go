package ports

import (
	"context"
	"io"

	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
)

// Exporter writes a presentation snapshot in some interchange format
type Exporter interface {
	// Format names the output format, such as "json" or "yaml"
	Format() string

	// Extension is the file extension including the dot
	Extension() string

	// Export writes the presentation to w
	Export(ctx context.Context, doc entities.PresentationExport, w io.Writer) error
}
