package http

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/fredcamaral/slidekiosk/internal/domain/ports"
)

// Connection represents a WebSocket connection
type Connection struct {
	ID   string
	Send chan ports.RemoteEvent
}

// ConnectionManager fans events out to websocket clients. The Run loop owns
// the connection set and is the only place a Send channel is closed.
type ConnectionManager struct {
	connections map[string]*Connection
	broadcast   chan ports.RemoteEvent
	register    chan *Connection
	unregister  chan string
	closeAll    chan chan struct{}
	count       atomic.Int32
	done        chan struct{}
	doneOnce    sync.Once
	logger      *HTTPLogger
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(logger *HTTPLogger) *ConnectionManager {
	if logger == nil {
		logger = NewHTTPLogger("connections", nil)
	}
	return &ConnectionManager{
		connections: make(map[string]*Connection),
		broadcast:   make(chan ports.RemoteEvent, 256),
		register:    make(chan *Connection),
		unregister:  make(chan string),
		closeAll:    make(chan chan struct{}),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Run starts the connection manager main loop. Every remaining connection is
// closed when ctx ends.
func (cm *ConnectionManager) Run(ctx context.Context) {
	defer cm.doneOnce.Do(func() { close(cm.done) })
	defer cm.closeConnections()

	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-cm.register:
			cm.connections[conn.ID] = conn
			cm.count.Store(int32(len(cm.connections)))

		case id := <-cm.unregister:
			cm.remove(id)

		case event := <-cm.broadcast:
			for id, conn := range cm.connections {
				select {
				case conn.Send <- event:
				default:
					cm.logger.Warn("Dropping slow websocket client %s", id)
					cm.remove(id)
				}
			}

		case ack := <-cm.closeAll:
			cm.closeConnections()
			close(ack)
		}
	}
}

// Register adds a connection. It returns false when the manager has stopped.
func (cm *ConnectionManager) Register(conn *Connection) bool {
	select {
	case cm.register <- conn:
		return true
	case <-cm.done:
		return false
	}
}

// Unregister removes a connection and closes its Send channel
func (cm *ConnectionManager) Unregister(connID string) {
	select {
	case cm.unregister <- connID:
	case <-cm.done:
	}
}

// Broadcast queues an event for every connection. Events are dropped when
// the queue is full or the manager has stopped.
func (cm *ConnectionManager) Broadcast(event ports.RemoteEvent) {
	select {
	case cm.broadcast <- event:
	case <-cm.done:
	default:
		cm.logger.Warn("Broadcast queue full, dropping %s event", event.Type)
	}
}

// CloseAll closes every connection and waits until the loop has done so
func (cm *ConnectionManager) CloseAll() {
	ack := make(chan struct{})
	select {
	case cm.closeAll <- ack:
	case <-cm.done:
		return
	}
	select {
	case <-ack:
	case <-cm.done:
	}
}

// Count returns the number of registered connections
func (cm *ConnectionManager) Count() int {
	return int(cm.count.Load())
}

// Done is closed once Run has returned
func (cm *ConnectionManager) Done() <-chan struct{} {
	return cm.done
}

func (cm *ConnectionManager) remove(id string) {
	if conn, ok := cm.connections[id]; ok {
		delete(cm.connections, id)
		close(conn.Send)
	}
	cm.count.Store(int32(len(cm.connections)))
}

func (cm *ConnectionManager) closeConnections() {
	for id := range cm.connections {
		cm.remove(id)
	}
}
