package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
	"github.com/fredcamaral/slidekiosk/internal/domain/ports"
)

// DuplicateTitleSuffix is appended to the title of a duplicated slide
const DuplicateTitleSuffix = " (Copy)"

// ContentOptions tunes the content store
type ContentOptions struct {
	// AutoCleanup prunes dangling image references whenever a slide is read
	AutoCleanup bool

	// BackupEnabled keeps a copy of the previous index on every SaveToFile
	BackupEnabled bool

	// SeedDefaults installs the built-in deck when no index exists
	SeedDefaults bool
}

// ContentOptionsFromConfig derives store options from the storage section
func ContentOptionsFromConfig(cfg entities.StorageConfig) ContentOptions {
	return ContentOptions{
		AutoCleanup:   cfg.AutoCleanup,
		BackupEnabled: cfg.BackupEnabled,
		SeedDefaults:  cfg.SeedDefaults,
	}
}

// ContentService is the single writable source of truth for slides.
//
// The map is guarded by mu. writeMu serializes a mutation and its
// persistence. Events are queued in commit order while writeMu is held and
// delivered after it is released, so observers may read and write the store.
// A write made from inside an observer is delivered once the current event
// has reached every observer.
type ContentService struct {
	repo    ports.SlideRepository
	clock   ports.Clock
	opts    ContentOptions
	logger  *slog.Logger
	events  *Dispatcher[entities.SlideEvent]
	writeMu sync.Mutex
	mu      sync.RWMutex
	slides  map[int]*entities.Slide

	queueMu  sync.Mutex
	queue    []entities.SlideEvent
	draining bool
}

// NewContentService creates an empty store; call LoadFromFile to populate it
func NewContentService(repo ports.SlideRepository, clock ports.Clock, opts ContentOptions, logger *slog.Logger) *ContentService {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = ports.NewSystemClock()
	}
	logger = logger.With("service", "content")

	return &ContentService{
		repo:   repo,
		clock:  clock,
		opts:   opts,
		logger: logger,
		events: NewDispatcher[entities.SlideEvent]("slides", logger),
		slides: make(map[int]*entities.Slide),
	}
}

// Paths returns the data directory layout
func (s *ContentService) Paths() entities.Paths {
	return s.repo.Paths()
}

// AddObserver registers fn for every subsequent store change
func (s *ContentService) AddObserver(fn ports.SlideObserver) ports.Subscription {
	return s.events.Subscribe(fn)
}

// GetSlide returns a deep copy of a slide
func (s *ContentService) GetSlide(id int) (*entities.Slide, error) {
	if s.opts.AutoCleanup {
		s.mu.Lock()
		defer s.mu.Unlock()
	} else {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}

	slide, ok := s.slides[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", entities.ErrSlideNotFound, id)
	}
	s.cleanupLocked(slide)

	return slide.Clone(), nil
}

// GetAllSlides returns deep copies of every slide keyed by ID
func (s *ContentService) GetAllSlides() map[int]*entities.Slide {
	if s.opts.AutoCleanup {
		s.mu.Lock()
		defer s.mu.Unlock()
	} else {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}

	out := make(map[int]*entities.Slide, len(s.slides))
	for id, slide := range s.slides {
		s.cleanupLocked(slide)
		out[id] = slide.Clone()
	}
	return out
}

// SlideIDs returns the slide IDs in ascending order
func (s *ContentService) SlideIDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedIDs(s.slides)
}

// SlideCount returns the number of slides
func (s *ContentService) SlideCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slides)
}

// CreateSlide inserts a slide, replacing any slide with the same ID
func (s *ContentService) CreateSlide(id int, title, content string, layout entities.Layout) error {
	return s.commit(context.Background(), func(slides map[int]*entities.Slide) ([]entities.SlideEvent, error) {
		if _, exists := slides[id]; exists {
			s.logger.Warn("Overwriting existing slide", slog.Int("slide_id", id))
		}
		slides[id] = entities.NewSlide(s.repo.Paths(), id, title, content, layout, nil, nil)
		return []entities.SlideEvent{{Action: entities.SlideCreated, SlideID: id}}, nil
	})
}

// UpdateSlideContent sets title and content and merges extra into the
// slide's extra data by top-level key. The slide is created when absent.
func (s *ContentService) UpdateSlideContent(id int, title, content string, extra map[string]interface{}) error {
	return s.update(id, title, content, extra, false)
}

// ReplaceSlideContent is UpdateSlideContent with extra replacing the
// slide's extra data wholesale
func (s *ContentService) ReplaceSlideContent(id int, title, content string, extra map[string]interface{}) error {
	return s.update(id, title, content, extra, true)
}

func (s *ContentService) update(id int, title, content string, extra map[string]interface{}, replace bool) error {
	return s.commit(context.Background(), func(slides map[int]*entities.Slide) ([]entities.SlideEvent, error) {
		slide, ok := slides[id]
		if !ok {
			slide = entities.NewSlide(s.repo.Paths(), id, title, content, entities.LayoutText, nil, nil)
			slides[id] = slide
		}

		slide.Title = title
		slide.Content = content

		switch {
		case replace:
			slide.ExtraData = entities.CloneData(extra)
		case len(extra) > 0:
			for k, v := range entities.CloneData(extra) {
				slide.ExtraData[k] = v
			}
		}
		slide.Touch(s.clock.Now())

		return []entities.SlideEvent{{Action: entities.SlideUpdated, SlideID: id}}, nil
	})
}

// DeleteSlide removes a slide and its directory. A directory that cannot be
// removed is logged; the slide is gone from the store either way.
func (s *ContentService) DeleteSlide(id int) error {
	ctx := context.Background()
	return s.commit(ctx, func(slides map[int]*entities.Slide) ([]entities.SlideEvent, error) {
		if _, ok := slides[id]; !ok {
			return nil, fmt.Errorf("%w: %d", entities.ErrSlideNotFound, id)
		}
		delete(slides, id)

		if err := s.repo.RemoveSlideDir(ctx, id); err != nil {
			s.logger.Warn("Failed to remove slide directory",
				slog.Int("slide_id", id),
				slog.String("error", err.Error()),
			)
		}
		return []entities.SlideEvent{{Action: entities.SlideDeleted, SlideID: id}}, nil
	})
}

// DuplicateSlide copies a slide to targetID, or to the next free ID after
// the highest one when targetID is 0. It returns the new ID.
func (s *ContentService) DuplicateSlide(sourceID, targetID int) (int, error) {
	var newID int
	err := s.commit(context.Background(), func(slides map[int]*entities.Slide) ([]entities.SlideEvent, error) {
		source, ok := slides[sourceID]
		if !ok {
			return nil, fmt.Errorf("%w: %d", entities.ErrSlideNotFound, sourceID)
		}

		newID = targetID
		if newID <= 0 {
			newID = nextID(slides)
		} else if _, exists := slides[newID]; exists {
			return nil, fmt.Errorf("%w: %d", entities.ErrSlideExists, newID)
		}

		dup, err := source.DuplicateAs(newID, source.Title+DuplicateTitleSuffix)
		if err != nil {
			return nil, fmt.Errorf("duplicating slide %d: %w", sourceID, err)
		}
		slides[newID] = dup

		return []entities.SlideEvent{{Action: entities.SlideCreated, SlideID: newID}}, nil
	})
	if err != nil {
		return 0, err
	}
	return newID, nil
}

// MoveSlide renames a slide ID and relocates its directory
func (s *ContentService) MoveSlide(oldID, newID int) error {
	if oldID == newID {
		s.mu.RLock()
		_, ok := s.slides[oldID]
		s.mu.RUnlock()
		if !ok {
			return fmt.Errorf("%w: %d", entities.ErrSlideNotFound, oldID)
		}
		return nil
	}

	ctx := context.Background()
	return s.commit(ctx, func(slides map[int]*entities.Slide) ([]entities.SlideEvent, error) {
		slide, ok := slides[oldID]
		if !ok {
			return nil, fmt.Errorf("%w: %d", entities.ErrSlideNotFound, oldID)
		}
		if _, exists := slides[newID]; exists {
			return nil, fmt.Errorf("%w: %d", entities.ErrSlideExists, newID)
		}

		if err := s.repo.MoveSlideDir(ctx, oldID, newID); err != nil {
			return nil, fmt.Errorf("moving slide %d to %d: %w", oldID, newID, err)
		}

		oldDir := slide.Directory()
		delete(slides, oldID)
		slide.ID = newID
		slide.Relocate(oldDir)
		slide.Touch(s.clock.Now())
		slides[newID] = slide

		return []entities.SlideEvent{
			{Action: entities.SlideDeleted, SlideID: oldID},
			{Action: entities.SlideCreated, SlideID: newID},
		}, nil
	})
}

// AddImage copies src into a slide and places it on the canvas. It returns
// the stored file path.
func (s *ContentService) AddImage(id int, src string, placement *entities.Placement) (string, error) {
	var stored string
	err := s.commit(context.Background(), func(slides map[int]*entities.Slide) ([]entities.SlideEvent, error) {
		slide, ok := slides[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", entities.ErrSlideNotFound, id)
		}

		// work on a copy so a failed copy leaves the stored slide untouched
		c := slide.Clone()
		path, err := c.AddImage(src, placement)
		if err != nil {
			s.logger.Warn("Failed to add image",
				slog.Int("slide_id", id),
				slog.String("source", src),
				slog.String("error", err.Error()),
			)
			return nil, err
		}
		stored = path
		slides[id] = c

		return []entities.SlideEvent{{Action: entities.SlideUpdated, SlideID: id}}, nil
	})
	return stored, err
}

// RemoveImage deletes an image file of a slide and its canvas element
func (s *ContentService) RemoveImage(id int, path string) error {
	return s.commit(context.Background(), func(slides map[int]*entities.Slide) ([]entities.SlideEvent, error) {
		slide, ok := slides[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", entities.ErrSlideNotFound, id)
		}

		c := slide.Clone()
		removed, err := c.RemoveImage(path)
		if err != nil {
			return nil, err
		}
		if !removed {
			s.logger.Info("Image file already absent", slog.Int("slide_id", id), slog.String("path", path))
		}
		slides[id] = c

		return []entities.SlideEvent{{Action: entities.SlideUpdated, SlideID: id}}, nil
	})
}

// SaveToFile writes every slide file and the index, backing up the previous index
func (s *ContentService) SaveToFile(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	slides := s.snapshotLocked()
	s.mu.RUnlock()

	return s.saveAll(ctx, slides, s.opts.BackupEnabled)
}

func (s *ContentService) saveAll(ctx context.Context, slides []*entities.Slide, backup bool) error {
	for _, slide := range slides {
		if err := s.repo.SaveSlide(ctx, slide); err != nil {
			s.logger.Error("Failed to save slide", slog.Int("slide_id", slide.ID), slog.String("error", err.Error()))
			return fmt.Errorf("saving slide %d: %w", slide.ID, err)
		}
	}

	index := entities.NewSlideIndex(slides, s.clock.Now(), s.opts.BackupEnabled)
	if err := s.repo.SaveIndex(ctx, index, backup); err != nil {
		s.logger.Error("Failed to save slide index", slog.String("error", err.Error()))
		return fmt.Errorf("saving slide index: %w", err)
	}

	s.logger.Debug("Slides saved", slog.Int("total_slides", len(slides)), slog.Bool("backup", backup))
	return nil
}

// LoadFromFile replaces the store content with the persisted index and
// announces every slide with a load event. Without an index the built-in
// deck is installed and persisted. An index that exists but cannot be read
// leaves loaded slides untouched and is returned as an error; only an empty
// store falls back to the built-in deck.
func (s *ContentService) LoadFromFile(ctx context.Context) error {
	err := s.load(ctx)
	s.deliver()
	return err
}

func (s *ContentService) load(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.repo.EnsureLayout(ctx); err != nil {
		return fmt.Errorf("preparing data directory: %w", err)
	}

	paths := s.repo.Paths()
	loaded := make(map[int]*entities.Slide)
	seeded := false

	index, err := s.repo.LoadIndex(ctx)
	switch {
	case err == nil:
		for key, rec := range index.Slides {
			if id, convErr := strconv.Atoi(key); convErr == nil {
				rec.SlideID = id
			}
			slide := entities.SlideFromRecord(paths, rec)
			if s.opts.AutoCleanup {
				if dropped := slide.CleanupMissingImages(); len(dropped) > 0 {
					s.logger.Info("Removed missing images", slog.Int("slide_id", slide.ID), slog.Any("images", dropped))
				}
			}
			loaded[slide.ID] = slide
		}
	case errors.Is(err, entities.ErrIndexNotFound):
		s.logger.Info("No slide index found, installing default slides")
		seeded = s.opts.SeedDefaults
	default:
		s.mu.RLock()
		current := len(s.slides)
		s.mu.RUnlock()
		if current > 0 {
			s.logger.Error("Slide index unreadable, keeping current slides",
				slog.Int("total_slides", current),
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("loading slide index: %w", err)
		}
		s.logger.Warn("Slide index unreadable, installing default slides", slog.String("error", err.Error()))
		seeded = s.opts.SeedDefaults
	}

	if seeded {
		loaded = defaultSlides(paths)
	}

	s.mu.Lock()
	s.slides = loaded
	ids := sortedIDs(loaded)
	var snapshot []*entities.Slide
	if seeded {
		snapshot = s.snapshotLocked()
	}
	s.mu.Unlock()

	var saveErr error
	if seeded {
		saveErr = s.saveAll(ctx, snapshot, s.opts.BackupEnabled)
	}

	loadedEvents := make([]entities.SlideEvent, 0, len(ids))
	for _, id := range ids {
		loadedEvents = append(loadedEvents, entities.SlideEvent{Action: entities.SlideLoaded, SlideID: id})
	}
	s.enqueue(loadedEvents)

	s.logger.Info("Slides loaded", slog.Int("total_slides", len(ids)), slog.Bool("defaults", seeded))
	return saveErr
}

// ExportTo writes the index shape to an arbitrary file
func (s *ContentService) ExportTo(ctx context.Context, path string) error {
	s.mu.RLock()
	slides := s.snapshotLocked()
	s.mu.RUnlock()

	index := entities.NewSlideIndex(slides, s.clock.Now(), s.opts.BackupEnabled)
	if err := s.repo.WriteIndexTo(ctx, index, path); err != nil {
		return fmt.Errorf("exporting slides: %w", err)
	}
	s.logger.Info("Slides exported", slog.String("path", path))
	return nil
}

// Snapshot returns the index of the current slides
func (s *ContentService) Snapshot() entities.SlideIndex {
	s.mu.RLock()
	slides := s.snapshotLocked()
	s.mu.RUnlock()

	return entities.NewSlideIndex(slides, s.clock.Now(), s.opts.BackupEnabled)
}

// CleanupOrphanedFiles deletes image files inside slide directories that no
// slide references
func (s *ContentService) CleanupOrphanedFiles(ctx context.Context) ([]string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	referenced := make(map[string]struct{})
	s.mu.RLock()
	for _, slide := range s.slides {
		for _, img := range slide.Images() {
			if resolved, ok := slide.ResolveImage(img); ok {
				referenced[resolved] = struct{}{}
			}
			if fp := img.FilePath(); fp != "" {
				referenced[fp] = struct{}{}
			}
		}
	}
	s.mu.RUnlock()

	removed, err := s.repo.RemoveOrphanedImages(ctx, referenced)
	if err != nil {
		return removed, fmt.Errorf("removing orphaned images: %w", err)
	}
	if len(removed) > 0 {
		s.logger.Info("Removed orphaned images", slog.Int("count", len(removed)))
	}
	return removed, nil
}

// Statistics summarizes the presentation
func (s *ContentService) Statistics() entities.PresentationStatistics {
	s.mu.RLock()
	slides := s.snapshotLocked()
	s.mu.RUnlock()

	stats := entities.NewPresentationStatistics(slides)
	if backups, err := s.repo.ListBackups(context.Background()); err == nil {
		stats.BackupCount = len(backups)
	}
	return stats
}

// commit runs mutate against the slide map, persists the slides named by the
// returned events and then publishes the events in order. A persistence
// failure is returned after observers were notified, because the change
// already took effect in memory.
func (s *ContentService) commit(ctx context.Context, mutate func(map[int]*entities.Slide) ([]entities.SlideEvent, error)) error {
	err := s.apply(ctx, mutate)
	s.deliver()
	return err
}

func (s *ContentService) apply(ctx context.Context, mutate func(map[int]*entities.Slide) ([]entities.SlideEvent, error)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	events, err := mutate(s.slides)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	var dirty []*entities.Slide
	for _, ev := range events {
		if ev.Action == entities.SlideDeleted {
			continue
		}
		if slide, ok := s.slides[ev.SlideID]; ok {
			dirty = append(dirty, slide.Clone())
		}
	}
	all := s.snapshotLocked()
	s.mu.Unlock()

	persistErr := s.persist(ctx, dirty, all)
	s.enqueue(events)

	return persistErr
}

// enqueue appends events in commit order; the caller holds writeMu
func (s *ContentService) enqueue(events []entities.SlideEvent) {
	s.queueMu.Lock()
	s.queue = append(s.queue, events...)
	s.queueMu.Unlock()
}

// deliver publishes queued events. Only one caller drains at a time, so a
// commit made by an observer, or concurrently by another goroutine, returns
// while the active drainer delivers its events in order.
func (s *ContentService) deliver() {
	s.queueMu.Lock()
	if s.draining {
		s.queueMu.Unlock()
		return
	}
	s.draining = true

	for len(s.queue) > 0 {
		ev := s.queue[0]
		s.queue = s.queue[1:]
		s.queueMu.Unlock()

		s.events.Publish(ev)

		s.queueMu.Lock()
	}

	s.draining = false
	s.queue = nil
	s.queueMu.Unlock()
}

func (s *ContentService) persist(ctx context.Context, dirty, all []*entities.Slide) error {
	for _, slide := range dirty {
		if err := s.repo.SaveSlide(ctx, slide); err != nil {
			s.logger.Error("Failed to save slide", slog.Int("slide_id", slide.ID), slog.String("error", err.Error()))
			return fmt.Errorf("saving slide %d: %w", slide.ID, err)
		}
	}

	index := entities.NewSlideIndex(all, s.clock.Now(), s.opts.BackupEnabled)
	if err := s.repo.SaveIndex(ctx, index, false); err != nil {
		s.logger.Error("Failed to save slide index", slog.String("error", err.Error()))
		return fmt.Errorf("saving slide index: %w", err)
	}
	return nil
}

func (s *ContentService) cleanupLocked(slide *entities.Slide) {
	if !s.opts.AutoCleanup {
		return
	}
	if dropped := slide.CleanupMissingImages(); len(dropped) > 0 {
		s.logger.Info("Removed missing images", slog.Int("slide_id", slide.ID), slog.Any("images", dropped))
	}
}

// snapshotLocked returns deep copies of every slide in ID order
func (s *ContentService) snapshotLocked() []*entities.Slide {
	out := make([]*entities.Slide, 0, len(s.slides))
	for _, id := range sortedIDs(s.slides) {
		out = append(out, s.slides[id].Clone())
	}
	return out
}

func sortedIDs(slides map[int]*entities.Slide) []int {
	ids := make([]int, 0, len(slides))
	for id := range slides {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func nextID(slides map[int]*entities.Slide) int {
	highest := 0
	for id := range slides {
		if id > highest {
			highest = id
		}
	}
	return highest + 1
}

var _ ports.ContentStore = (*ContentService)(nil)
