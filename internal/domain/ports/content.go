package ports

import (
	"context"

	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
)

// Subscription is the handle returned when registering an observer
type Subscription interface {
	ID() string
	Unsubscribe()
}

// SlideObserver receives store change notifications. It runs on the
// mutating goroutine and must not call store mutations synchronously.
type SlideObserver func(entities.SlideEvent)

// SlideCatalog exposes the set of slide IDs currently in the store
type SlideCatalog interface {
	SlideIDs() []int
}

// ContentReader is the read side of the content store
type ContentReader interface {
	SlideCatalog

	// GetSlide returns a deep copy of the slide with image references cleaned
	GetSlide(id int) (*entities.Slide, error)

	// GetAllSlides returns deep copies of every slide keyed by ID
	GetAllSlides() map[int]*entities.Slide

	// SlideCount returns the number of slides
	SlideCount() int

	// Statistics summarizes the presentation
	Statistics() entities.PresentationStatistics

	// Paths returns the data directory layout
	Paths() entities.Paths
}

// ContentStore is the single writable source of truth for slides
type ContentStore interface {
	ContentReader

	CreateSlide(id int, title, content string, layout entities.Layout) error

	// UpdateSlideContent merges extra into the slide's extra data by
	// top-level key; nil or empty extra leaves it untouched
	UpdateSlideContent(id int, title, content string, extra map[string]interface{}) error

	// ReplaceSlideContent replaces the slide's extra data wholesale
	ReplaceSlideContent(id int, title, content string, extra map[string]interface{}) error

	DeleteSlide(id int) error
	DuplicateSlide(sourceID, targetID int) (int, error)
	MoveSlide(oldID, newID int) error

	AddImage(id int, src string, placement *entities.Placement) (string, error)
	RemoveImage(id int, path string) error

	SaveToFile(ctx context.Context) error
	LoadFromFile(ctx context.Context) error
	ExportTo(ctx context.Context, path string) error
	CleanupOrphanedFiles(ctx context.Context) ([]string, error)

	AddObserver(fn SlideObserver) Subscription
}
