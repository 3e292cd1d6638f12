package entities

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Layout identifies how a slide arranges its content
type Layout string

const (
	LayoutText   Layout = "text"
	LayoutImage  Layout = "image"
	LayoutMixed  Layout = "mixed"
	LayoutCustom Layout = "custom"
)

// IsValid reports whether the layout is one of the known tags
func (l Layout) IsValid() bool {
	switch l {
	case LayoutText, LayoutImage, LayoutMixed, LayoutCustom:
		return true
	default:
		return false
	}
}

// Slide represents one unit of presentable content
type Slide struct {
	// ID is unique across the store and chosen by the caller
	ID int

	// Title is the slide heading
	Title string

	// Content is the text body of the slide
	Content string

	// Layout tags the arrangement of the slide
	Layout Layout

	// ConfigData holds layout-specific settings
	ConfigData map[string]interface{}

	// ExtraData is an open bag; canvas_elements lives here
	ExtraData map[string]interface{}

	CreatedAt  time.Time
	ModifiedAt time.Time

	paths Paths
}

// NewSlide creates a slide and makes sure its directory and images
// subdirectory exist. Directory creation is best effort here; callers that
// need to know about failures call EnsureDirectory themselves.
func NewSlide(paths Paths, id int, title, content string, layout Layout, config, extra map[string]interface{}) *Slide {
	if layout == "" {
		layout = LayoutText
	}
	if config == nil {
		config = make(map[string]interface{})
	}
	if extra == nil {
		extra = make(map[string]interface{})
	}

	now := time.Now()
	s := &Slide{
		ID:         id,
		Title:      title,
		Content:    content,
		Layout:     layout,
		ConfigData: config,
		ExtraData:  extra,
		CreatedAt:  now,
		ModifiedAt: now,
		paths:      paths,
	}
	_ = s.EnsureDirectory()

	return s
}

// Paths returns the data layout the slide belongs to
func (s *Slide) Paths() Paths {
	return s.paths
}

// Directory returns the slide's own directory
func (s *Slide) Directory() string {
	return s.paths.SlideDir(s.ID)
}

// ImagesDirectory returns the directory holding the slide's images
func (s *Slide) ImagesDirectory() string {
	return s.paths.ImagesDir(s.ID)
}

// EnsureDirectory creates the slide directory and its images subdirectory
func (s *Slide) EnsureDirectory() error {
	if s.paths.IsZero() {
		return nil
	}
	dir := s.ImagesDirectory()
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating slide directory %s: %w", dir, err)
	}
	return nil
}

// Touch marks the slide as modified at t
func (s *Slide) Touch(t time.Time) {
	s.ModifiedAt = t
}

// CanvasElements returns the positioned elements of the slide in order.
// The elements share storage with the slide.
func (s *Slide) CanvasElements() []CanvasElement {
	return canvasElementsOf(s.ExtraData)
}

// Images returns copies of the image elements, recomputed on each call
func (s *Slide) Images() []CanvasElement {
	var images []CanvasElement
	for _, e := range s.CanvasElements() {
		if e.IsImage() {
			images = append(images, e.Clone())
		}
	}
	return images
}

// AddImage copies src into the slide's images directory under a generated
// unique name and appends an image element. On failure the slide is left
// unchanged.
func (s *Slide) AddImage(src string, placement *Placement) (string, error) {
	info, err := os.Stat(src)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrImageNotFound, src)
	}

	if err := s.EnsureDirectory(); err != nil {
		return "", err
	}

	now := time.Now()
	name := imageFileName(now, filepath.Ext(src))
	target := filepath.Join(s.ImagesDirectory(), name)

	if err := copyFile(src, target); err != nil {
		return "", fmt.Errorf("copying image %s: %w", src, err)
	}

	element := CanvasElement{
		"type":          string(ElementImage),
		"file_path":     target,
		"relative_path": name,
		"original_name": filepath.Base(src),
		"added_at":      FormatTimestamp(now),
	}
	placement.orDefault().apply(element)

	if s.ExtraData == nil {
		s.ExtraData = make(map[string]interface{})
	}
	appendCanvasElement(s.ExtraData, element)
	s.ModifiedAt = now

	return target, nil
}

// RemoveImage deletes the backing file of an image element and strips the
// element. A file that is already gone is not an error; the returned bool
// reports whether a file was deleted.
func (s *Slide) RemoveImage(path string) (bool, error) {
	removed := false
	if err := os.Remove(path); err == nil {
		removed = true
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("removing image %s: %w", path, err)
	}
	s.ModifiedAt = time.Now()

	if _, ok := s.ExtraData[CanvasElementsKey]; !ok {
		return removed, nil
	}

	rewriteCanvas(s.ExtraData, func(e CanvasElement) (CanvasElement, bool) {
		return e, !(e.IsImage() && s.referencesFile(e, path))
	})

	return removed, nil
}

// CleanupMissingImages drops image elements whose backing file no longer
// exists and returns the references that were dropped. Elements whose
// file_path went stale but whose file is still in the images directory are
// repointed instead of dropped.
func (s *Slide) CleanupMissingImages() []string {
	if _, ok := s.ExtraData[CanvasElementsKey]; !ok {
		return nil
	}

	var dropped []string
	rewriteCanvas(s.ExtraData, func(e CanvasElement) (CanvasElement, bool) {
		if !e.IsImage() {
			return e, true
		}

		resolved, ok := s.ResolveImage(e)
		if !ok {
			ref := e.FilePath()
			if ref == "" {
				ref = e.RelativePath()
			}
			dropped = append(dropped, ref)
			return nil, false
		}
		if resolved != e.FilePath() && e.FilePath() != "" && !fileExists(e.FilePath()) {
			e["file_path"] = resolved
		}
		return e, true
	})

	if len(dropped) > 0 {
		s.ModifiedAt = time.Now()
	}

	return dropped
}

// ResolveImage finds the backing file of an image element. The stored
// file_path wins when it exists; otherwise the path is tried relative to the
// images directory, then relative_path inside the images directory.
func (s *Slide) ResolveImage(e CanvasElement) (string, bool) {
	var candidates []string
	if fp := e.FilePath(); fp != "" {
		candidates = append(candidates, fp)
		if !filepath.IsAbs(fp) && !s.paths.IsZero() {
			candidates = append(candidates, filepath.Join(s.ImagesDirectory(), fp))
		}
	}
	if rel := e.RelativePath(); rel != "" && !s.paths.IsZero() {
		candidates = append(candidates, filepath.Join(s.ImagesDirectory(), filepath.Base(rel)))
	}

	for _, c := range candidates {
		if fileExists(c) {
			return c, true
		}
	}
	return "", false
}

// Relocate rewrites image file paths after the slide directory moved from
// oldDir to the slide's current directory.
func (s *Slide) Relocate(oldDir string) {
	newDir := s.Directory()
	rewriteCanvas(s.ExtraData, func(e CanvasElement) (CanvasElement, bool) {
		fp := e.FilePath()
		if !e.IsImage() || fp == "" {
			return e, true
		}
		if rel, err := filepath.Rel(oldDir, fp); err == nil && !strings.HasPrefix(rel, "..") {
			e["file_path"] = filepath.Join(newDir, rel)
		}
		return e, true
	})
}

// DuplicateAs builds a copy of the slide under a new ID and title. Image
// files are copied into the new slide's images directory under fresh names,
// keeping position and size; images whose file is gone are skipped. Element
// order and the other extra data keys are preserved.
func (s *Slide) DuplicateAs(id int, title string) (*Slide, error) {
	c := s.Clone()
	dup := NewSlide(s.paths, id, title, c.Content, c.Layout, c.ConfigData, c.ExtraData)
	if err := dup.EnsureDirectory(); err != nil {
		return nil, err
	}

	now := time.Now()
	var copyErr error
	rewriteCanvas(dup.ExtraData, func(e CanvasElement) (CanvasElement, bool) {
		if !e.IsImage() || copyErr != nil {
			return e, true
		}
		src, ok := s.ResolveImage(e)
		if !ok {
			return nil, false
		}
		name := imageFileName(now, filepath.Ext(src))
		target := filepath.Join(dup.ImagesDirectory(), name)
		if !dup.paths.IsZero() {
			if err := copyFile(src, target); err != nil {
				copyErr = fmt.Errorf("copying image %s: %w", src, err)
				return e, true
			}
		}
		e["file_path"] = target
		e["relative_path"] = name
		e["added_at"] = FormatTimestamp(now)
		return e, true
	})
	if copyErr != nil {
		return nil, copyErr
	}

	return dup, nil
}

// WithID returns a deep copy of the slide carrying a different ID
func (s *Slide) WithID(id int) *Slide {
	c := s.Clone()
	c.ID = id
	return c
}

// Clone returns a deep copy of the slide
func (s *Slide) Clone() *Slide {
	if s == nil {
		return nil
	}
	return &Slide{
		ID:         s.ID,
		Title:      s.Title,
		Content:    s.Content,
		Layout:     s.Layout,
		ConfigData: deepCopyMap(s.ConfigData),
		ExtraData:  deepCopyMap(s.ExtraData),
		CreatedAt:  s.CreatedAt,
		ModifiedAt: s.ModifiedAt,
		paths:      s.paths,
	}
}

// Statistics summarizes the slide
func (s *Slide) Statistics() SlideStatistics {
	stats := SlideStatistics{
		SlideID:       s.ID,
		TitleLength:   len([]rune(s.Title)),
		ContentLength: len([]rune(s.Content)),
		ImagesCount:   len(s.Images()),
		Layout:        string(s.Layout),
		CreatedAt:     FormatTimestamp(s.CreatedAt),
		ModifiedAt:    FormatTimestamp(s.ModifiedAt),
	}

	if _, ok := s.ExtraData[CanvasElementsKey]; ok {
		canvas := &CanvasStatistics{}
		for _, e := range s.CanvasElements() {
			canvas.Total++
			switch e.Type() {
			case ElementImage:
				canvas.Images++
			case ElementText:
				canvas.Text++
			}
		}
		stats.CanvasElements = canvas
	}

	return stats
}

func (s *Slide) referencesFile(e CanvasElement, path string) bool {
	if e.FilePath() == path {
		return true
	}
	if resolved, ok := s.ResolveImage(e); ok && resolved == path {
		return true
	}
	rel := e.RelativePath()
	return rel != "" && !s.paths.IsZero() && filepath.Join(s.ImagesDirectory(), rel) == path
}

// imageFileName builds image_<YYYYMMDD_HHMMSS_nanos>_<rand><ext>
func imageFileName(t time.Time, ext string) string {
	stamp := strings.Replace(t.Format("20060102_150405.000000000"), ".", "_", 1)
	return fmt.Sprintf("image_%s_%s%s", stamp, uuid.NewString()[:8], strings.ToLower(ext))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// copyFile copies src to dst, keeping the modification time like a plain copy
// preserving metadata would
func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 - source chosen by the local operator
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0640) // #nosec G304 - generated name inside the slide directory
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
