package display

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
	"github.com/fredcamaral/slidekiosk/internal/domain/ports"
)

// DefaultAutoAdvance is the auto-play interval when none is configured
const DefaultAutoAdvance = 5 * time.Second

// Options configures a headless display
type Options struct {
	AutoAdvance time.Duration
	Loop        bool
}

// OptionsFromConfig reads display options from the [display] section
func OptionsFromConfig(cfg entities.DisplayConfig) Options {
	return Options{
		AutoAdvance: cfg.GetAutoAdvance(),
		Loop:        cfg.Loop,
	}
}

// State is what the display currently shows
type State struct {
	SlideID int
	Title   string
	Layout  entities.Layout
	Images  int
	Playing bool
	Renders int
}

// Headless is a display surface without a window. It follows remote
// navigation, re-renders when the shown slide changes in the store and
// auto-advances while playing.
type Headless struct {
	nav    ports.Navigator
	store  ports.ContentStore
	clock  ports.Clock
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	state State
	subs  []ports.Subscription

	playMu  sync.Mutex
	playing *autoPlay
	running bool
}

type autoPlay struct {
	stop chan struct{}
	done chan struct{}
}

// NewHeadless creates a headless display
func NewHeadless(nav ports.Navigator, store ports.ContentStore, clock ports.Clock, opts Options, logger *slog.Logger) *Headless {
	if clock == nil {
		clock = ports.NewSystemClock()
	}
	if opts.AutoAdvance <= 0 {
		opts.AutoAdvance = DefaultAutoAdvance
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Headless{
		nav:    nav,
		store:  store,
		clock:  clock,
		opts:   opts,
		logger: logger.With("component", "display"),
	}
}

// Start registers with the navigator and the store and shows the current slide
func (h *Headless) Start(ctx context.Context) error {
	h.playMu.Lock()
	if h.running {
		h.playMu.Unlock()
		return errors.New("display already started")
	}
	h.running = true
	h.playMu.Unlock()

	h.mu.Lock()
	h.subs = append(h.subs,
		h.nav.AddNavigationHandler(h.onNavigate),
		h.store.AddObserver(h.onContent),
	)
	h.mu.Unlock()

	h.show(h.nav.CurrentSlide())
	h.logger.Info("Display started", slog.Duration("auto_advance", h.opts.AutoAdvance))
	return nil
}

// Stop unregisters and stops auto-play
func (h *Headless) Stop() {
	h.stopAutoPlay()

	h.mu.Lock()
	subs := h.subs
	h.subs = nil
	h.mu.Unlock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}

	h.playMu.Lock()
	h.running = false
	h.playMu.Unlock()
}

// State returns what is on screen
func (h *Headless) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Headless) onNavigate(ev entities.NavEvent) {
	switch ev.Action {
	case entities.NavNext, entities.NavPrev, entities.NavGoto:
		h.show(ev.SlideID)
	case entities.NavPlay:
		h.show(ev.SlideID)
		h.startAutoPlay()
	case entities.NavStop:
		h.stopAutoPlay()
	}
}

// onContent runs on the store's mutating goroutine, so it only reads
func (h *Headless) onContent(ev entities.SlideEvent) {
	h.mu.Lock()
	shown := h.state.SlideID
	h.mu.Unlock()

	switch {
	case ev.SlideID == shown:
		h.show(h.nav.CurrentSlide())
	case ev.Action == entities.SlideLoaded && shown == 0:
		h.show(h.nav.CurrentSlide())
	}
}

// show renders a slide. A slide that no longer exists leaves a blank screen.
func (h *Headless) show(id int) {
	slide, err := h.store.GetSlide(id)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.state.Renders++
	if err != nil {
		h.state.SlideID = id
		h.state.Title = ""
		h.state.Layout = ""
		h.state.Images = 0
		h.logger.Debug("Nothing to display", slog.Int("slide_id", id))
		return
	}
	h.state.SlideID = slide.ID
	h.state.Title = slide.Title
	h.state.Layout = slide.Layout
	h.state.Images = len(slide.Images())
	h.logger.Debug("Displaying slide", slog.Int("slide_id", slide.ID), slog.String("title", slide.Title))
}

func (h *Headless) startAutoPlay() {
	h.playMu.Lock()
	defer h.playMu.Unlock()
	if h.playing != nil {
		return
	}

	run := &autoPlay{stop: make(chan struct{}), done: make(chan struct{})}
	h.playing = run
	h.setPlaying(true)

	ticker := h.clock.NewTicker(h.opts.AutoAdvance)
	go func() {
		defer close(run.done)
		defer ticker.Stop()
		for {
			select {
			case <-run.stop:
				return
			case <-ticker.C():
				if !h.advance() {
					go h.stopRun(run)
					return
				}
			}
		}
	}()
	h.logger.Info("Auto-play started")
}

func (h *Headless) stopAutoPlay() {
	h.playMu.Lock()
	run := h.playing
	h.playMu.Unlock()

	if run != nil {
		h.stopRun(run)
	}
}

// stopRun ends one auto-play run. A run that was already replaced or
// stopped is left alone.
func (h *Headless) stopRun(run *autoPlay) {
	h.playMu.Lock()
	if h.playing != run {
		h.playMu.Unlock()
		return
	}
	h.playing = nil
	h.setPlaying(false)
	h.playMu.Unlock()

	close(run.stop)
	<-run.done
	h.logger.Info("Auto-play stopped")
}

func (h *Headless) setPlaying(playing bool) {
	h.mu.Lock()
	h.state.Playing = playing
	h.mu.Unlock()
}

// advance moves to the next slide on its own and tells the navigator without
// firing navigation handlers. It reports false at the end of a non-looping deck.
func (h *Headless) advance() bool {
	ids := h.store.SlideIDs()
	if len(ids) == 0 {
		return h.opts.Loop
	}
	sort.Ints(ids)

	cur := h.nav.CurrentSlide()
	next := 0
	for _, id := range ids {
		if id > cur {
			next = id
			break
		}
	}
	if next == 0 {
		if !h.opts.Loop {
			return false
		}
		next = ids[0]
	}

	h.nav.SetCurrentSlide(next)
	h.show(next)
	return true
}
