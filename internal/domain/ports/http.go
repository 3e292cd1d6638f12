package ports

import (
	"context"
	"time"
)

// RemoteService is the network-facing presentation service
type RemoteService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsRunning() bool
	Addr() string
	Info() ServerInfo
}

// ServerInfo describes the state of the remote service
type ServerInfo struct {
	Running      bool   `json:"running"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	URL          string `json:"url"`
	CurrentSlide int    `json:"current_slide"`
}

// RemoteEvent represents an event pushed to websocket clients
type RemoteEvent struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// RemoteEvent types
const (
	EventTypeHello          = "hello"
	EventTypeNavigation     = "navigation"
	EventTypeContentUpdated = "content_updated"
)

// BrowserLauncher opens a URL in a browser on the kiosk machine
type BrowserLauncher interface {
	Launch(ctx context.Context, url string) error
	Detect() (string, error)
}
