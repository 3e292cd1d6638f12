package http

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredcamaral/slidekiosk/internal/domain/ports"
)

func runManager(t *testing.T) (*ConnectionManager, context.CancelFunc) {
	t.Helper()
	cm := NewConnectionManager(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go cm.Run(ctx)
	t.Cleanup(cancel)
	return cm, cancel
}

func receive(t *testing.T, ch <-chan ports.RemoteEvent) (ports.RemoteEvent, bool) {
	t.Helper()
	select {
	case ev, ok := <-ch:
		return ev, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return ports.RemoteEvent{}, false
	}
}

func TestConnectionManager(t *testing.T) {
	t.Run("register and unregister connection", func(t *testing.T) {
		cm, _ := runManager(t)

		conn := &Connection{ID: "test-conn", Send: make(chan ports.RemoteEvent, 1)}
		require.True(t, cm.Register(conn))
		assert.Eventually(t, func() bool { return cm.Count() == 1 }, time.Second, 5*time.Millisecond)

		cm.Unregister("test-conn")
		_, ok := receive(t, conn.Send)
		assert.False(t, ok, "send channel is closed on unregister")
		assert.Eventually(t, func() bool { return cm.Count() == 0 }, time.Second, 5*time.Millisecond)

		// unknown IDs are ignored
		cm.Unregister("test-conn")
	})

	t.Run("broadcast to connections", func(t *testing.T) {
		cm, _ := runManager(t)

		receivers := make([]chan ports.RemoteEvent, 3)
		for i := range receivers {
			receivers[i] = make(chan ports.RemoteEvent, 1)
			require.True(t, cm.Register(&Connection{ID: fmt.Sprintf("c%d", i), Send: receivers[i]}))
		}

		cm.Broadcast(ports.RemoteEvent{Type: ports.EventTypeNavigation, Data: map[string]interface{}{"slide_id": 2}})

		for _, ch := range receivers {
			ev, ok := receive(t, ch)
			require.True(t, ok)
			assert.Equal(t, ports.EventTypeNavigation, ev.Type)
		}
	})

	t.Run("slow client is dropped", func(t *testing.T) {
		cm, _ := runManager(t)

		slow := &Connection{ID: "slow", Send: make(chan ports.RemoteEvent)}
		fast := &Connection{ID: "fast", Send: make(chan ports.RemoteEvent, 4)}
		require.True(t, cm.Register(slow))
		require.True(t, cm.Register(fast))

		cm.Broadcast(ports.RemoteEvent{Type: ports.EventTypeContentUpdated})

		_, ok := receive(t, fast.Send)
		assert.True(t, ok)
		_, ok = receive(t, slow.Send)
		assert.False(t, ok)
		assert.Eventually(t, func() bool { return cm.Count() == 1 }, time.Second, 5*time.Millisecond)
	})

	t.Run("close all", func(t *testing.T) {
		cm, _ := runManager(t)

		conns := make([]*Connection, 3)
		for i := range conns {
			conns[i] = &Connection{ID: fmt.Sprintf("c%d", i), Send: make(chan ports.RemoteEvent, 1)}
			require.True(t, cm.Register(conns[i]))
		}

		cm.CloseAll()
		assert.Equal(t, 0, cm.Count())
		for _, c := range conns {
			_, ok := <-c.Send
			assert.False(t, ok)
		}

		// the manager keeps running
		again := &Connection{ID: "again", Send: make(chan ports.RemoteEvent, 1)}
		assert.True(t, cm.Register(again))
	})

	t.Run("stopped manager", func(t *testing.T) {
		cm, cancel := runManager(t)
		conn := &Connection{ID: "c", Send: make(chan ports.RemoteEvent, 1)}
		require.True(t, cm.Register(conn))

		cancel()
		<-cm.Done()

		_, ok := <-conn.Send
		assert.False(t, ok, "remaining connections are closed on exit")

		assert.False(t, cm.Register(&Connection{ID: "late", Send: make(chan ports.RemoteEvent, 1)}))
		cm.Broadcast(ports.RemoteEvent{Type: ports.EventTypeNavigation})
		cm.Unregister("c")
		cm.CloseAll()
	})
}
