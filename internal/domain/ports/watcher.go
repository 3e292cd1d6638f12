package ports

import (
	"context"
	"time"
)

// FileWatcher reports changes to a single file until ctx ends or Stop is
// called. Events carry the content checksum so a writer can recognise its
// own saves.
type FileWatcher interface {
	Watch(ctx context.Context, path string) (<-chan FileChangeEvent, error)
	Stop() error
}

type FileChangeEvent struct {
	Path      string
	Type      ChangeType
	Checksum  string // empty for Deleted
	Timestamp time.Time
}

type ChangeType int

const (
	Modified ChangeType = iota
	Created
	Deleted
)

var changeTypeNames = [...]string{
	Modified: "modified",
	Created:  "created",
	Deleted:  "deleted",
}

func (c ChangeType) String() string {
	if c < 0 || int(c) >= len(changeTypeNames) {
		return "unknown"
	}
	return changeTypeNames[c]
}
