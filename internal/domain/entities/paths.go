package entities

import (
	"fmt"
	"path/filepath"
)

// Paths resolves the on-disk layout of a slide data directory.
//
//	<root>/slides.json
//	<root>/slides/slide_<id>/slide.json
//	<root>/slides/slide_<id>/images/
//	<root>/backups/slides_backup_<YYYYMMDD_HHMMSS>.json
//	<root>/images/                      (shared legacy images)
//
// The zero value has no root; slides built with it never touch the filesystem.
type Paths struct {
	Root string
}

// NewPaths creates a layout rooted at dir
func NewPaths(dir string) Paths {
	return Paths{Root: dir}
}

// IsZero reports whether the layout has no root directory
func (p Paths) IsZero() bool {
	return p.Root == ""
}

// IndexFile returns the consolidated index path
func (p Paths) IndexFile() string {
	return filepath.Join(p.Root, "slides.json")
}

// SlidesDir returns the directory holding every slide directory
func (p Paths) SlidesDir() string {
	return filepath.Join(p.Root, "slides")
}

// SlideDir returns the directory owned by a slide
func (p Paths) SlideDir(id int) string {
	return filepath.Join(p.SlidesDir(), fmt.Sprintf("slide_%d", id))
}

// SlideFile returns the per-slide record path
func (p Paths) SlideFile(id int) string {
	return filepath.Join(p.SlideDir(id), "slide.json")
}

// ImagesDir returns the images directory of a slide
func (p Paths) ImagesDir(id int) string {
	return filepath.Join(p.SlideDir(id), "images")
}

// BackupsDir returns the backup directory
func (p Paths) BackupsDir() string {
	return filepath.Join(p.Root, "backups")
}

// SharedImagesDir returns the legacy shared images directory
func (p Paths) SharedImagesDir() string {
	return filepath.Join(p.Root, "images")
}

// BaseDirectories lists the directories that must exist before the store starts
func (p Paths) BaseDirectories() []string {
	return []string{
		p.Root,
		p.SlidesDir(),
		p.SharedImagesDir(),
		p.BackupsDir(),
	}
}
