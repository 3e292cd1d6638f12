package ports

import (
	"context"

	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
)

// SlideRepository persists slides to durable storage
type SlideRepository interface {
	// Paths returns the layout the repository writes into
	Paths() entities.Paths

	// EnsureLayout creates the base directories
	EnsureLayout(ctx context.Context) error

	// SaveSlide writes the per-slide record
	SaveSlide(ctx context.Context, slide *entities.Slide) error

	// SaveIndex atomically writes the consolidated index, first copying the
	// previous index into the backup history when backup is set
	SaveIndex(ctx context.Context, index entities.SlideIndex, backup bool) error

	// LoadIndex reads the consolidated index; entities.ErrIndexNotFound when absent
	LoadIndex(ctx context.Context) (entities.SlideIndex, error)

	// RemoveSlideDir deletes a slide directory recursively
	RemoveSlideDir(ctx context.Context, id int) error

	// MoveSlideDir renames a slide directory
	MoveSlideDir(ctx context.Context, oldID, newID int) error

	// ListBackups returns backup file paths oldest first
	ListBackups(ctx context.Context) ([]string, error)

	// RemoveOrphanedImages deletes image files not in referenced
	RemoveOrphanedImages(ctx context.Context, referenced map[string]struct{}) ([]string, error)

	// WriteIndexTo writes the index to an arbitrary path
	WriteIndexTo(ctx context.Context, index entities.SlideIndex, path string) error

	// IsOwnWrite reports whether the checksum matches the last index written
	// by this repository
	IsOwnWrite(checksum string) bool
}
