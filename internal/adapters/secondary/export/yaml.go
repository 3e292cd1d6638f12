package export

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
)

// YAMLExporter writes a readable document with metadata, statistics and slides
type YAMLExporter struct{}

// NewYAMLExporter creates a YAML exporter
func NewYAMLExporter() *YAMLExporter {
	return &YAMLExporter{}
}

type yamlDocument struct {
	Presentation yamlPresentation                `yaml:"presentation"`
	Slides       map[string]entities.SlideRecord `yaml:"slides"`
}

type yamlPresentation struct {
	Metadata   entities.ExportMetadata         `yaml:"metadata"`
	Statistics entities.PresentationStatistics `yaml:"statistics"`
}

// Format returns "yaml"
func (e *YAMLExporter) Format() string { return FormatYAML }

// Extension returns ".yaml"
func (e *YAMLExporter) Extension() string { return ".yaml" }

// Export writes the document to w
func (e *YAMLExporter) Export(ctx context.Context, doc entities.PresentationExport, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	slides := doc.Index.Slides
	if slides == nil {
		slides = make(map[string]entities.SlideRecord)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlDocument{
		Presentation: yamlPresentation{
			Metadata:   doc.Metadata,
			Statistics: doc.Statistics,
		},
		Slides: slides,
	}); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}
