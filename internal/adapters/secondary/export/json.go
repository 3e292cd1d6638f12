package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
)

// JSONExporter writes the index in the slides.json shape, so an export can be
// loaded back as a data directory index
type JSONExporter struct{}

// NewJSONExporter creates a JSON exporter
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// Format returns "json"
func (e *JSONExporter) Format() string { return FormatJSON }

// Extension returns ".json"
func (e *JSONExporter) Extension() string { return ".json" }

// Export writes doc.Index to w
func (e *JSONExporter) Export(ctx context.Context, doc entities.PresentationExport, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc.Index); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}
