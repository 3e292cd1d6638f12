package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fredcamaral/slidekiosk/internal/domain/ports"
)

// ReloadService reloads the content store when slides.json is changed by
// another process. Writes made by the store itself are recognised by
// checksum and skipped.
type ReloadService struct {
	watcher     ports.FileWatcher
	store       ports.ContentStore
	repo        ports.SlideRepository
	logger      *slog.Logger
	mu          sync.Mutex
	watching    bool
	watchCancel context.CancelFunc
	done        chan struct{}
}

// NewReloadService creates a new reload service
func NewReloadService(watcher ports.FileWatcher, store ports.ContentStore, repo ports.SlideRepository, logger *slog.Logger) *ReloadService {
	if logger == nil {
		logger = slog.Default()
	}

	return &ReloadService{
		watcher: watcher,
		store:   store,
		repo:    repo,
		logger:  logger.With("service", "reload"),
	}
}

// Start begins watching the index file
func (s *ReloadService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watching {
		return errors.New("already watching")
	}

	watchCtx, cancel := context.WithCancel(ctx)
	path := s.repo.Paths().IndexFile()

	events, err := s.watcher.Watch(watchCtx, path)
	if err != nil {
		cancel()
		return fmt.Errorf("starting watcher: %w", err)
	}

	s.watching = true
	s.watchCancel = cancel
	s.done = make(chan struct{})
	go s.handleEvents(watchCtx, events, s.done)

	s.logger.Info("Watching slide index", slog.String("path", path))
	return nil
}

// Stop stops watching and waits for the event loop to exit
func (s *ReloadService) Stop() error {
	s.mu.Lock()
	if !s.watching {
		s.mu.Unlock()
		return nil
	}
	s.watchCancel()
	s.watchCancel = nil
	s.watching = false
	done := s.done
	s.mu.Unlock()

	<-done
	return s.watcher.Stop()
}

// IsWatching returns whether the service is currently watching
func (s *ReloadService) IsWatching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watching
}

func (s *ReloadService) handleEvents(ctx context.Context, events <-chan ports.FileChangeEvent, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				return
			}

			if event.Type == ports.Deleted {
				s.logger.Warn("Slide index deleted externally", slog.String("path", event.Path))
				continue
			}

			if event.Checksum != "" && s.repo.IsOwnWrite(event.Checksum) {
				s.logger.Debug("Ignoring own index write", slog.String("checksum", event.Checksum))
				continue
			}

			s.logger.Info("Slide index changed externally",
				slog.String("path", event.Path),
				slog.String("type", event.Type.String()),
				slog.Time("timestamp", event.Timestamp),
			)

			if err := s.store.LoadFromFile(ctx); err != nil {
				s.logger.Error("Failed to reload slides",
					slog.String("error", err.Error()),
					slog.String("path", event.Path),
				)
			}
		}
	}
}
