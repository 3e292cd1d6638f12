package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
	"github.com/fredcamaral/slidekiosk/internal/domain/ports"
)

const (
	backupPrefix     = "slides_backup_"
	backupTimeLayout = "20060102_150405"

	// DefaultMaxBackups is the number of index backups kept when none is configured
	DefaultMaxBackups = 10
)

// FileRepository stores slides as JSON files under a data directory
type FileRepository struct {
	paths      entities.Paths
	clock      ports.Clock
	maxBackups int
	logger     *slog.Logger

	mu           sync.Mutex
	lastChecksum string
}

// NewFileRepository creates a repository rooted at paths
func NewFileRepository(paths entities.Paths, clock ports.Clock, maxBackups int, logger *slog.Logger) *FileRepository {
	if clock == nil {
		clock = ports.NewSystemClock()
	}
	if maxBackups <= 0 {
		maxBackups = DefaultMaxBackups
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileRepository{
		paths:      paths,
		clock:      clock,
		maxBackups: maxBackups,
		logger:     logger.With("component", "storage"),
	}
}

// Paths returns the directory layout
func (r *FileRepository) Paths() entities.Paths {
	return r.paths
}

// EnsureLayout creates the base directories
func (r *FileRepository) EnsureLayout(ctx context.Context) error {
	for _, dir := range r.paths.BaseDirectories() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// SaveSlide writes <slide dir>/slide.json
func (r *FileRepository) SaveSlide(ctx context.Context, slide *entities.Slide) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(r.paths.ImagesDir(slide.ID), 0755); err != nil {
		return fmt.Errorf("creating slide directory: %w", err)
	}

	data, err := json.MarshalIndent(slide.Record(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling slide %d: %w", slide.ID, err)
	}
	if err := writeFileAtomic(r.paths.SlideFile(slide.ID), data); err != nil {
		return fmt.Errorf("writing slide %d: %w", slide.ID, err)
	}
	return nil
}

// SaveIndex writes slides.json, rotating the previous file into the backup
// directory first when backup is set
func (r *FileRepository) SaveIndex(ctx context.Context, index entities.SlideIndex, backup bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling index: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if backup {
		if err := r.backupLocked(); err != nil {
			// a failed backup never blocks the save
			r.logger.Warn("Index backup failed", slog.String("error", err.Error()))
		}
	}

	if err := os.MkdirAll(r.paths.Root, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := writeFileAtomic(r.paths.IndexFile(), data); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	r.lastChecksum = checksum(data)
	return nil
}

// backupLocked copies the current index into backups/ and prunes the history
func (r *FileRepository) backupLocked() error {
	data, err := os.ReadFile(r.paths.IndexFile())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading index: %w", err)
	}

	if err := os.MkdirAll(r.paths.BackupsDir(), 0755); err != nil {
		return fmt.Errorf("creating backup directory: %w", err)
	}

	name := backupPrefix + r.clock.Now().Format(backupTimeLayout) + ".json"
	if err := writeFileAtomic(filepath.Join(r.paths.BackupsDir(), name), data); err != nil {
		return fmt.Errorf("writing backup: %w", err)
	}
	r.logger.Debug("Index backed up", slog.String("file", name))

	return r.pruneBackups()
}

// pruneBackups keeps the newest maxBackups files. Names sort chronologically.
func (r *FileRepository) pruneBackups() error {
	backups, err := r.listBackups()
	if err != nil {
		return err
	}
	if len(backups) <= r.maxBackups {
		return nil
	}

	var errs []error
	for _, old := range backups[:len(backups)-r.maxBackups] {
		if err := os.Remove(old); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		r.logger.Debug("Old backup removed", slog.String("file", filepath.Base(old)))
	}
	return errors.Join(errs...)
}

// LoadIndex reads slides.json
func (r *FileRepository) LoadIndex(ctx context.Context) (entities.SlideIndex, error) {
	if err := ctx.Err(); err != nil {
		return entities.SlideIndex{}, err
	}

	data, err := os.ReadFile(r.paths.IndexFile())
	if errors.Is(err, os.ErrNotExist) {
		return entities.SlideIndex{}, entities.ErrIndexNotFound
	}
	if err != nil {
		return entities.SlideIndex{}, fmt.Errorf("reading index: %w", err)
	}

	var index entities.SlideIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return entities.SlideIndex{}, fmt.Errorf("parsing index: %w", err)
	}
	if index.Slides == nil {
		index.Slides = make(map[string]entities.SlideRecord)
	}
	return index, nil
}

// RemoveSlideDir deletes the slide directory and everything in it
func (r *FileRepository) RemoveSlideDir(ctx context.Context, id int) error {
	if err := os.RemoveAll(r.paths.SlideDir(id)); err != nil {
		return fmt.Errorf("removing slide %d directory: %w", id, err)
	}
	return nil
}

// MoveSlideDir renames slide_<oldID> to slide_<newID>. A leftover directory
// at the target belongs to no slide and is replaced.
func (r *FileRepository) MoveSlideDir(ctx context.Context, oldID, newID int) error {
	src := r.paths.SlideDir(oldID)
	dst := r.paths.SlideDir(newID)

	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		return os.MkdirAll(r.paths.ImagesDir(newID), 0755)
	}

	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("clearing %s: %w", dst, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving slide %d to %d: %w", oldID, newID, err)
	}
	return nil
}

// ListBackups returns backup files oldest first
func (r *FileRepository) ListBackups(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listBackups()
}

func (r *FileRepository) listBackups() ([]string, error) {
	entries, err := os.ReadDir(r.paths.BackupsDir())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}

	var backups []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, backupPrefix) || filepath.Ext(name) != ".json" {
			continue
		}
		backups = append(backups, filepath.Join(r.paths.BackupsDir(), name))
	}
	sort.Strings(backups)
	return backups, nil
}

// RemoveOrphanedImages deletes files in slide image directories whose path
// is not in referenced
func (r *FileRepository) RemoveOrphanedImages(ctx context.Context, referenced map[string]struct{}) ([]string, error) {
	keep := make(map[string]struct{}, len(referenced))
	for path := range referenced {
		keep[normalize(path)] = struct{}{}
	}

	slideDirs, err := os.ReadDir(r.paths.SlidesDir())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing slides: %w", err)
	}

	var removed []string
	var errs []error
	for _, dir := range slideDirs {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !dir.IsDir() {
			continue
		}

		imagesDir := filepath.Join(r.paths.SlidesDir(), dir.Name(), "images")
		files, err := os.ReadDir(imagesDir)
		if err != nil {
			continue
		}
		for _, file := range files {
			if file.IsDir() {
				continue
			}
			path := filepath.Join(imagesDir, file.Name())
			if _, ok := keep[normalize(path)]; ok {
				continue
			}
			if err := os.Remove(path); err != nil {
				errs = append(errs, err)
				continue
			}
			r.logger.Info("Removed orphaned file", slog.String("path", path))
			removed = append(removed, path)
		}
	}
	return removed, errors.Join(errs...)
}

// WriteIndexTo writes the index to path in the slides.json format
func (r *FileRepository) WriteIndexTo(ctx context.Context, index entities.SlideIndex, path string) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling index: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return writeFileAtomic(path, data)
}

// IsOwnWrite reports whether sum is the checksum of the last index this
// repository wrote
func (r *FileRepository) IsOwnWrite(sum string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sum != "" && sum == r.lastChecksum
}

// writeFileAtomic writes data to a temp file next to path, syncs it and
// renames it over path
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func normalize(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

var _ ports.SlideRepository = (*FileRepository)(nil)
