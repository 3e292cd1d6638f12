package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/fredcamaral/slidekiosk/internal/domain/ports"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// WebSocketClient is one browser connected to /ws
type WebSocketClient struct {
	id      string
	conn    *websocket.Conn
	send    chan ports.RemoteEvent
	manager *ConnectionManager
	nav     ports.Navigator
	monitor ports.ActivityMonitor
	logger  *HTTPLogger
}

// ClientMessage is a message sent by the browser. Only "control" messages
// are acted upon; their data carries action and an optional slide.
type ClientMessage struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

func (s *Server) createUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.isValidOrigin,
	}
}

// handleWebSocket upgrades the request and attaches the client to cm
func (s *Server) handleWebSocket(cm *ConnectionManager) http.HandlerFunc {
	upgrader := s.createUpgrader()

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn("WebSocket upgrade failed: %v", err)
			return
		}

		client := &WebSocketClient{
			id:      uuid.New().String(),
			conn:    conn,
			send:    make(chan ports.RemoteEvent, 256),
			manager: cm,
			nav:     s.nav,
			monitor: s.monitor,
			logger:  s.logger,
		}

		client.send <- ports.RemoteEvent{
			Type:      ports.EventTypeHello,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"current_slide": s.nav.CurrentSlide(),
				"total_slides":  s.store.SlideCount(),
			},
		}

		if !cm.Register(&Connection{ID: client.id, Send: client.send}) {
			_ = conn.Close()
			return
		}
		if client.monitor != nil {
			client.monitor.RecordClient(true)
		}
		s.logger.Debug("WebSocket client %s connected", client.id)

		go client.writePump()
		go client.readPump()
	}
}

// readPump pumps messages from the WebSocket connection
func (c *WebSocketClient) readPump() {
	defer func() {
		c.manager.Unregister(c.id)
		_ = c.conn.Close()
		if c.monitor != nil {
			c.monitor.RecordClient(false)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket connection error: %v", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.logger.Warn("Failed to parse client message: %v", err)
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *WebSocketClient) handleMessage(msg ClientMessage) {
	if msg.Type != "control" {
		c.logger.Debug("Ignoring %q message from client %s", msg.Type, c.id)
		return
	}

	action, _ := msg.Data["action"].(string)
	slide := 0
	if v, ok := msg.Data["slide"].(float64); ok {
		slide = int(v)
	}
	c.nav.Command(action, slide)
}

// writePump pumps messages to the WebSocket connection
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"))
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// isValidOrigin accepts same-origin requests and origins in the CORS list.
// "*" allows everything and "*.example.com" allows subdomains.
func (s *Server) isValidOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		s.logger.Warn("WebSocket connection rejected: invalid origin %q", origin)
		return false
	}

	for _, allowed := range s.cfg.GetCORSOrigins() {
		if allowed == "*" || allowed == origin {
			return true
		}
		if strings.HasPrefix(allowed, "*.") {
			domain := strings.TrimPrefix(allowed, "*")
			if strings.HasSuffix(originURL.Hostname(), domain) {
				return true
			}
		}
	}

	s.logger.Warn("WebSocket connection rejected: origin %s not allowed", origin)
	return false
}
