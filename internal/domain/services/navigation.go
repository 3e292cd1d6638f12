package services

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
	"github.com/fredcamaral/slidekiosk/internal/domain/ports"
)

// NavigationService owns the presentation cursor and turns remote commands
// into navigation events.
//
// cmdMu serializes evaluation of a command together with handler dispatch, so
// two concurrent "next" commands produce two events in cursor order. The
// cursor itself sits behind curMu, which lets handlers call CurrentSlide and
// SetCurrentSlide. Handlers must not call Command.
type NavigationService struct {
	catalog  ports.SlideCatalog
	handlers *Dispatcher[entities.NavEvent]
	logger   *slog.Logger

	cmdMu   sync.Mutex
	curMu   sync.RWMutex
	current int

	ignored atomic.Int64
}

// NewNavigationService creates a navigator with the cursor on the lowest
// slide ID, or 1 when there are no slides
func NewNavigationService(catalog ports.SlideCatalog, logger *slog.Logger) *NavigationService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("service", "navigation")

	n := &NavigationService{
		catalog:  catalog,
		handlers: NewDispatcher[entities.NavEvent]("navigation", logger),
		logger:   logger,
		current:  1,
	}
	if ids := catalog.SlideIDs(); len(ids) > 0 {
		n.current = ids[0]
	}
	return n
}

// AddNavigationHandler registers fn for every effective navigation change
func (n *NavigationService) AddNavigationHandler(fn ports.NavigationHandler) ports.Subscription {
	return n.handlers.Subscribe(fn)
}

// CurrentSlide returns the cursor
func (n *NavigationService) CurrentSlide() int {
	n.curMu.RLock()
	defer n.curMu.RUnlock()
	return n.current
}

// SetCurrentSlide moves the cursor without firing handlers. Displays call it
// when they move on their own.
func (n *NavigationService) SetCurrentSlide(id int) {
	n.curMu.Lock()
	n.current = id
	n.curMu.Unlock()
}

// IgnoredCommands returns how many commands were accepted but had no effect
// because they were unknown or pointed at a missing slide
func (n *NavigationService) IgnoredCommands() int64 {
	return n.ignored.Load()
}

// Command evaluates a navigation command. next and prev move by one within
// [1, highest ID]; goto only moves to an existing slide; play and stop
// report the current slide. Commands without effect fire nothing.
func (n *NavigationService) Command(action string, slideID int) {
	a, ok := entities.ParseNavAction(action)
	if !ok {
		n.ignored.Add(1)
		n.logger.Warn("Ignoring unknown navigation action", slog.String("action", action))
		return
	}

	n.cmdMu.Lock()
	defer n.cmdMu.Unlock()

	ids := n.catalog.SlideIDs()
	cur := n.CurrentSlide()
	next := cur
	fire := false

	switch a {
	case entities.NavNext:
		if len(ids) > 0 && cur < ids[len(ids)-1] {
			next, fire = cur+1, true
		}
	case entities.NavPrev:
		if cur > 1 {
			next, fire = cur-1, true
		}
	case entities.NavGoto:
		if containsID(ids, slideID) {
			next, fire = slideID, true
		} else {
			n.ignored.Add(1)
			n.logger.Warn("Ignoring goto to missing slide",
				slog.Int("slide_id", slideID),
				slog.Int("current_slide", cur),
			)
		}
	case entities.NavPlay, entities.NavStop:
		fire = true
	}

	if !fire {
		n.logger.Debug("Navigation command had no effect", slog.String("action", action), slog.Int("current_slide", cur))
		return
	}

	n.SetCurrentSlide(next)
	n.logger.Debug("Navigation", slog.String("action", action), slog.Int("slide_id", next))
	n.handlers.Publish(entities.NavEvent{Action: a, SlideID: next})
}

// ObserveStore keeps the cursor on an existing slide when slides are
// deleted or reloaded
func (n *NavigationService) ObserveStore(store ports.ContentStore) ports.Subscription {
	return store.AddObserver(func(ev entities.SlideEvent) {
		if ev.Action == entities.SlideDeleted || ev.Action == entities.SlideLoaded {
			n.clamp()
		}
	})
}

func (n *NavigationService) clamp() {
	ids := n.catalog.SlideIDs()

	n.curMu.Lock()
	defer n.curMu.Unlock()

	if len(ids) == 0 {
		n.current = 1
		return
	}
	if containsID(ids, n.current) {
		return
	}

	// nearest lower slide, else the first one
	target := ids[0]
	for _, id := range ids {
		if id > n.current {
			break
		}
		target = id
	}
	n.current = target
}

func containsID(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

var _ ports.Navigator = (*NavigationService)(nil)
