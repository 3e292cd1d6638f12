package entities

import "fmt"

// SlideAction tags a change to the content store
type SlideAction string

const (
	SlideCreated SlideAction = "create"
	SlideUpdated SlideAction = "update"
	SlideDeleted SlideAction = "delete"
	SlideLoaded  SlideAction = "load"
)

// SlideEvent is published after a store mutation took effect
type SlideEvent struct {
	Action  SlideAction `json:"action"`
	SlideID int         `json:"slide_id"`
}

func (e SlideEvent) String() string {
	return fmt.Sprintf("%s:%d", e.Action, e.SlideID)
}

// NavAction is a remote navigation command
type NavAction string

const (
	NavNext NavAction = "next"
	NavPrev NavAction = "prev"
	NavGoto NavAction = "goto"
	NavPlay NavAction = "play"
	NavStop NavAction = "stop"
)

// ParseNavAction maps a wire action name to a command. Unknown names report false.
func ParseNavAction(s string) (NavAction, bool) {
	switch a := NavAction(s); a {
	case NavNext, NavPrev, NavGoto, NavPlay, NavStop:
		return a, true
	default:
		return "", false
	}
}

// NavEvent is published after a navigation command took effect. SlideID is
// the cursor after the command.
type NavEvent struct {
	Action  NavAction `json:"action"`
	SlideID int       `json:"slide_id"`
}

func (e NavEvent) String() string {
	return fmt.Sprintf("%s:%d", e.Action, e.SlideID)
}
