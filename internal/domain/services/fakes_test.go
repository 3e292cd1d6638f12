package services

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
)

// memRepo keeps records in memory but still moves and removes slide
// directories so image handling can be exercised
type memRepo struct {
	mu       sync.Mutex
	paths    entities.Paths
	index    *entities.SlideIndex
	loadErr  error
	saveErr  error
	records  map[int]entities.SlideRecord
	indexes  int
	backups  int
	loads    int
	ownWrite string
}

func newMemRepo(paths entities.Paths) *memRepo {
	return &memRepo{paths: paths, records: make(map[int]entities.SlideRecord)}
}

func (r *memRepo) Paths() entities.Paths { return r.paths }

func (r *memRepo) EnsureLayout(context.Context) error {
	if r.paths.IsZero() {
		return nil
	}
	for _, dir := range r.paths.BaseDirectories() {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return err
		}
	}
	return nil
}

func (r *memRepo) SaveSlide(_ context.Context, slide *entities.Slide) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.records[slide.ID] = slide.Record()
	return nil
}

func (r *memRepo) SaveIndex(_ context.Context, index entities.SlideIndex, backup bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.index = &index
	r.indexes++
	if backup {
		r.backups++
	}
	return nil
}

func (r *memRepo) LoadIndex(context.Context) (entities.SlideIndex, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	if r.loadErr != nil {
		return entities.SlideIndex{}, r.loadErr
	}
	if r.index == nil {
		return entities.SlideIndex{}, entities.ErrIndexNotFound
	}
	return *r.index, nil
}

func (r *memRepo) RemoveSlideDir(_ context.Context, id int) error {
	r.mu.Lock()
	delete(r.records, id)
	r.mu.Unlock()
	if r.paths.IsZero() {
		return nil
	}
	return os.RemoveAll(r.paths.SlideDir(id))
}

func (r *memRepo) MoveSlideDir(_ context.Context, oldID, newID int) error {
	r.mu.Lock()
	delete(r.records, oldID)
	r.mu.Unlock()
	if r.paths.IsZero() {
		return nil
	}
	err := os.Rename(r.paths.SlideDir(oldID), r.paths.SlideDir(newID))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (r *memRepo) ListBackups(context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, r.backups)
	return out, nil
}

func (r *memRepo) RemoveOrphanedImages(_ context.Context, referenced map[string]struct{}) ([]string, error) {
	return nil, nil
}

func (r *memRepo) WriteIndexTo(_ context.Context, index entities.SlideIndex, path string) error {
	return nil
}

func (r *memRepo) IsOwnWrite(checksum string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return checksum == r.ownWrite
}

func (r *memRepo) loadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loads
}

func (r *memRepo) savedIndex() *entities.SlideIndex {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index
}

// eventLog records store events
type eventLog struct {
	mu     sync.Mutex
	events []entities.SlideEvent
}

func (l *eventLog) record(e entities.SlideEvent) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) all() []entities.SlideEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]entities.SlideEvent, len(l.events))
	copy(out, l.events)
	return out
}

func (l *eventLog) reset() {
	l.mu.Lock()
	l.events = nil
	l.mu.Unlock()
}

// staticCatalog is a fixed set of slide IDs
type staticCatalog struct {
	mu  sync.Mutex
	ids []int
}

func (c *staticCatalog) SlideIDs() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, len(c.ids))
	copy(out, c.ids)
	return out
}

func (c *staticCatalog) set(ids ...int) {
	c.mu.Lock()
	c.ids = ids
	c.mu.Unlock()
}
