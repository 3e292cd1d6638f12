package entities

import "time"

// Default metadata written into presentation exports
const (
	DefaultPresentationTitle       = "BumbleB Präsentation"
	DefaultPresentationDescription = "Automatisierte Shuttle-Präsentation"
)

// ExportMetadata describes an exported presentation
type ExportMetadata struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	ExportedAt  string `json:"exported_at" yaml:"exported_at"`
	Version     string `json:"version" yaml:"version"`
	TotalSlides int    `json:"total_slides" yaml:"total_slides"`
}

// PresentationExport is everything an exporter may write
type PresentationExport struct {
	Metadata   ExportMetadata
	Statistics PresentationStatistics
	Index      SlideIndex
}

// NewPresentationExport bundles an index with its statistics. Empty title
// and description fall back to the defaults.
func NewPresentationExport(index SlideIndex, stats PresentationStatistics, title, description string, at time.Time) PresentationExport {
	if title == "" {
		title = DefaultPresentationTitle
	}
	if description == "" {
		description = DefaultPresentationDescription
	}
	return PresentationExport{
		Metadata: ExportMetadata{
			Title:       title,
			Description: description,
			ExportedAt:  FormatTimestamp(at),
			Version:     SchemaVersion,
			TotalSlides: len(index.Slides),
		},
		Statistics: stats,
		Index:      index,
	}
}
