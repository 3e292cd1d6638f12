package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fredcamaral/slidekiosk/internal/domain/ports"
)

// PollingWatcher polls files for content changes. A change is reported once
// the file has been quiet for the debounce period, so a burst of writes
// yields a single event carrying the final checksum.
type PollingWatcher struct {
	interval time.Duration
	debounce time.Duration
	logger   *slog.Logger

	mu   sync.RWMutex
	seen map[string]snapshot

	events chan ports.FileChangeEvent
	quit   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

type snapshot struct {
	size    int64
	modTime time.Time
	sum     string
}

func (s snapshot) matches(fi os.FileInfo) bool {
	return s.size == fi.Size() && s.modTime.Equal(fi.ModTime())
}

// NewPollingWatcher creates a watcher checking every interval
func NewPollingWatcher(interval, debounce time.Duration, logger *slog.Logger) *PollingWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &PollingWatcher{
		interval: interval,
		debounce: debounce,
		logger:   logger.With("component", "watcher"),
		seen:     make(map[string]snapshot),
		events:   make(chan ports.FileChangeEvent, 10),
		quit:     make(chan struct{}),
	}
}

// Watch polls path until ctx ends or Stop is called. A missing file is
// fine; its appearance is reported as Created. All watched paths share one
// event channel.
func (w *PollingWatcher) Watch(ctx context.Context, path string) (<-chan ports.FileChangeEvent, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	if _, err := w.poll(abs); err != nil {
		return nil, fmt.Errorf("initial scan: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx, abs)
	}()

	return w.events, nil
}

// Stop ends every poller and closes the event channel. It is idempotent.
func (w *PollingWatcher) Stop() error {
	w.once.Do(func() {
		close(w.quit)
		w.wg.Wait()
		close(w.events)
	})
	return nil
}

// Checksum returns the last checksum seen for path
func (w *PollingWatcher) Checksum(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	snap, ok := w.seen[abs]
	return snap.sum, ok
}

// pending holds the latest undelivered change of one path
type pending struct {
	event ports.FileChangeEvent
	at    time.Time
	set   bool
}

func (p *pending) add(ev ports.FileChangeEvent) {
	// an appearance stays an appearance until delivered
	if p.set && p.event.Type == ports.Created && ev.Type == ports.Modified {
		ev.Type = ports.Created
	}
	p.event, p.at, p.set = ev, ev.Timestamp, true
}

func (p *pending) due(quiet time.Duration) bool {
	return p.set && time.Since(p.at) >= quiet
}

func (w *PollingWatcher) run(ctx context.Context, path string) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var change pending
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.quit:
			return
		case <-ticker.C:
		}

		ev, err := w.poll(path)
		if err != nil {
			w.logger.Warn("Watch error", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		if ev != nil {
			change.add(*ev)
		}
		if !change.due(w.debounce) {
			continue
		}

		select {
		case w.events <- change.event:
			change = pending{}
		case <-ctx.Done():
			return
		case <-w.quit:
			return
		}
	}
}

// poll compares path against its last snapshot and records the new one.
// It returns nil when nothing changed.
func (w *PollingWatcher) poll(path string) (*ports.FileChangeEvent, error) {
	w.mu.RLock()
	prev, known := w.seen[path]
	w.mu.RUnlock()

	fi, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		if !known {
			return nil, nil
		}
		w.mu.Lock()
		delete(w.seen, path)
		w.mu.Unlock()
		return &ports.FileChangeEvent{Path: path, Type: ports.Deleted, Timestamp: time.Now()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	if known && prev.matches(fi) {
		return nil, nil
	}

	sum, err := Checksum(path)
	if err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	w.mu.Lock()
	w.seen[path] = snapshot{size: fi.Size(), modTime: fi.ModTime(), sum: sum}
	w.mu.Unlock()

	ev := &ports.FileChangeEvent{Path: path, Checksum: sum, Timestamp: time.Now()}
	switch {
	case !known:
		ev.Type = ports.Created
	case prev.sum != sum:
		ev.Type = ports.Modified
	default:
		return nil, nil
	}
	return ev, nil
}

// Checksum returns the hex SHA-256 of a file's content
func Checksum(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 - path is validated by caller
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ChecksumBytes is Checksum for in-memory content
func ChecksumBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

var _ ports.FileWatcher = (*PollingWatcher)(nil)
