package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
	"github.com/fredcamaral/slidekiosk/internal/domain/ports"
)

// Export formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ExportOptions contains configuration for export operations
type ExportOptions struct {
	Format     string `json:"format"`
	OutputPath string `json:"output_path"`
}

// ExportResult contains the results of an export operation
type ExportResult struct {
	Format      string    `json:"format"`
	OutputPath  string    `json:"output_path"`
	FileSize    int64     `json:"file_size"`
	SlideCount  int       `json:"slide_count"`
	Duration    string    `json:"duration"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ExportErrorType categorizes different types of export errors
type ExportErrorType string

const (
	ErrorTypeValidation    ExportErrorType = "validation"
	ErrorTypeRenderer      ExportErrorType = "renderer"
	ErrorTypeFilesystem    ExportErrorType = "filesystem"
	ErrorTypeConfiguration ExportErrorType = "configuration"
)

// ExportError provides detailed error information with categorization
type ExportError struct {
	Type    ExportErrorType `json:"type"`
	Message string          `json:"message"`
	Details string          `json:"details,omitempty"`
	Cause   error           `json:"-"`
}

func (e *ExportError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s error: %s - %s", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *ExportError) Unwrap() error {
	return e.Cause
}

// Service writes presentation exports to files
type Service struct {
	exporters map[string]ports.Exporter
	outputDir string
	clock     ports.Clock
}

// NewService creates an export service with the JSON and YAML exporters
// registered. Generated file names go to outputDir.
func NewService(outputDir string, clock ports.Clock) *Service {
	if outputDir == "" {
		outputDir = "exports"
	}
	if clock == nil {
		clock = ports.NewSystemClock()
	}

	s := &Service{
		exporters: make(map[string]ports.Exporter),
		outputDir: outputDir,
		clock:     clock,
	}
	s.RegisterExporter(NewJSONExporter())
	s.RegisterExporter(NewYAMLExporter())
	return s
}

// RegisterExporter registers an exporter under its format name
func (s *Service) RegisterExporter(e ports.Exporter) {
	s.exporters[e.Format()] = e
}

// GetSupportedFormats returns the registered formats, sorted
func (s *Service) GetSupportedFormats() []string {
	formats := make([]string, 0, len(s.exporters))
	for format := range s.exporters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

// DefaultOutputPath returns exports/presentation_<YYYYMMDD_HHMMSS>.<ext>
func (s *Service) DefaultOutputPath(format string) (string, error) {
	exporter, ok := s.exporters[format]
	if !ok {
		return "", unsupported(format)
	}
	name := "presentation_" + s.clock.Now().Format("20060102_150405") + exporter.Extension()
	return filepath.Join(s.outputDir, name), nil
}

// Export writes doc in the requested format. An empty output path gets a
// generated name.
func (s *Service) Export(ctx context.Context, doc entities.PresentationExport, options ExportOptions) (*ExportResult, error) {
	start := time.Now()

	if options.Format == "" {
		return nil, &ExportError{Type: ErrorTypeValidation, Message: "export format is required"}
	}
	exporter, ok := s.exporters[options.Format]
	if !ok {
		return nil, unsupported(options.Format)
	}

	path := options.OutputPath
	if path == "" {
		var err error
		if path, err = s.DefaultOutputPath(options.Format); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, &ExportError{Type: ErrorTypeFilesystem, Message: "failed to create output directory", Details: filepath.Dir(path), Cause: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return nil, &ExportError{Type: ErrorTypeFilesystem, Message: "failed to create temp file", Details: path, Cause: err}
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := exporter.Export(ctx, doc, tmp); err != nil {
		_ = tmp.Close()
		return nil, &ExportError{Type: ErrorTypeRenderer, Message: "export failed", Details: options.Format, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return nil, &ExportError{Type: ErrorTypeFilesystem, Message: "failed to close temp file", Details: path, Cause: err}
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return nil, &ExportError{Type: ErrorTypeFilesystem, Message: "failed to set permissions", Details: path, Cause: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return nil, &ExportError{Type: ErrorTypeFilesystem, Message: "failed to move export into place", Details: path, Cause: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &ExportError{Type: ErrorTypeFilesystem, Message: "failed to stat export", Details: path, Cause: err}
	}

	return &ExportResult{
		Format:      options.Format,
		OutputPath:  path,
		FileSize:    info.Size(),
		SlideCount:  len(doc.Index.Slides),
		Duration:    time.Since(start).String(),
		GeneratedAt: s.clock.Now(),
	}, nil
}

func unsupported(format string) error {
	return &ExportError{Type: ErrorTypeConfiguration, Message: "unsupported export format", Details: format}
}
