package builders

import (
	"strconv"
	"time"

	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
)

// SlideBuilder helps build Slide entities for testing
type SlideBuilder struct {
	paths    entities.Paths
	id       int
	title    string
	content  string
	layout   entities.Layout
	config   map[string]interface{}
	extra    map[string]interface{}
	created  time.Time
	modified time.Time
}

// NewSlideBuilder creates a new slide builder with sensible defaults. The
// built slide has no data directory unless WithPaths is used.
func NewSlideBuilder() *SlideBuilder {
	return &SlideBuilder{
		id:      1,
		title:   "Test Slide",
		content: "Test content",
		layout:  entities.LayoutText,
		config:  make(map[string]interface{}),
		extra:   make(map[string]interface{}),
	}
}

// WithPaths roots the slide in a data directory
func (b *SlideBuilder) WithPaths(paths entities.Paths) *SlideBuilder {
	b.paths = paths
	return b
}

// WithID sets the slide ID
func (b *SlideBuilder) WithID(id int) *SlideBuilder {
	b.id = id
	return b
}

// WithTitle sets the slide title
func (b *SlideBuilder) WithTitle(title string) *SlideBuilder {
	b.title = title
	return b
}

// WithContent sets the slide body
func (b *SlideBuilder) WithContent(content string) *SlideBuilder {
	b.content = content
	return b
}

// WithLayout sets the slide layout
func (b *SlideBuilder) WithLayout(layout entities.Layout) *SlideBuilder {
	b.layout = layout
	return b
}

// WithConfig sets a config_data key
func (b *SlideBuilder) WithConfig(key string, value interface{}) *SlideBuilder {
	b.config[key] = value
	return b
}

// WithExtra sets an extra_data key
func (b *SlideBuilder) WithExtra(key string, value interface{}) *SlideBuilder {
	b.extra[key] = value
	return b
}

// WithTextElement appends a text canvas element
func (b *SlideBuilder) WithTextElement(text string, x, y float64) *SlideBuilder {
	return b.withElement(map[string]interface{}{
		"type": string(entities.ElementText),
		"text": text,
		"x":    x,
		"y":    y,
	})
}

// WithImageElement appends an image canvas element pointing at filePath.
// The file is not created.
func (b *SlideBuilder) WithImageElement(filePath, relativePath string) *SlideBuilder {
	return b.withElement(map[string]interface{}{
		"type":          string(entities.ElementImage),
		"file_path":     filePath,
		"relative_path": relativePath,
		"x":             0.0,
		"y":             0.0,
		"width":         entities.DefaultImageWidth,
		"height":        entities.DefaultImageHeight,
	})
}

func (b *SlideBuilder) withElement(elem map[string]interface{}) *SlideBuilder {
	list, _ := b.extra[entities.CanvasElementsKey].([]interface{})
	b.extra[entities.CanvasElementsKey] = append(list, elem)
	return b
}

// WithTimestamps fixes created_at and modified_at
func (b *SlideBuilder) WithTimestamps(created, modified time.Time) *SlideBuilder {
	b.created = created
	b.modified = modified
	return b
}

// Build creates the final Slide entity
func (b *SlideBuilder) Build() *entities.Slide {
	slide := entities.NewSlide(b.paths, b.id, b.title, b.content, b.layout,
		entities.CloneData(b.config), entities.CloneData(b.extra))
	if !b.created.IsZero() {
		slide.CreatedAt = b.created
	}
	if !b.modified.IsZero() {
		slide.ModifiedAt = b.modified
	}
	return slide
}

// BuildRecord creates the serialized form of the slide
func (b *SlideBuilder) BuildRecord() entities.SlideRecord {
	return b.Build().Record()
}

// IndexBuilder helps build consolidated slide indexes for testing
type IndexBuilder struct {
	slides     []*entities.Slide
	exportedAt time.Time
	backup     bool
}

// NewIndexBuilder creates an empty index builder
func NewIndexBuilder() *IndexBuilder {
	return &IndexBuilder{exportedAt: time.Date(2024, 6, 30, 10, 0, 0, 0, time.UTC)}
}

// WithSlide adds a slide
func (b *IndexBuilder) WithSlide(slide *entities.Slide) *IndexBuilder {
	b.slides = append(b.slides, slide)
	return b
}

// WithSlideCount adds count numbered slides starting at ID 1
func (b *IndexBuilder) WithSlideCount(count int) *IndexBuilder {
	for i := 1; i <= count; i++ {
		b.slides = append(b.slides, NewSlideBuilder().
			WithID(i).
			WithTitle("Slide "+strconv.Itoa(i)).
			Build())
	}
	return b
}

// WithBackupEnabled sets the backup flag recorded in the index
func (b *IndexBuilder) WithBackupEnabled(enabled bool) *IndexBuilder {
	b.backup = enabled
	return b
}

// Build creates the index
func (b *IndexBuilder) Build() entities.SlideIndex {
	return entities.NewSlideIndex(b.slides, b.exportedAt, b.backup)
}
