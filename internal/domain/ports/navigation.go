package ports

import "github.com/fredcamaral/slidekiosk/internal/domain/entities"

// NavigationHandler receives effective navigation changes
type NavigationHandler func(entities.NavEvent)

// Navigator owns the presentation cursor and evaluates remote commands
type Navigator interface {
	// Command evaluates a navigation command. Unknown actions and goto
	// targets that do not exist are ignored.
	Command(action string, slideID int)

	// CurrentSlide returns the cursor
	CurrentSlide() int

	// SetCurrentSlide moves the cursor without firing handlers
	SetCurrentSlide(id int)

	// AddNavigationHandler registers a handler for effective changes
	AddNavigationHandler(fn NavigationHandler) Subscription
}
