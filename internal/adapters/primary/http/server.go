package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/cors"

	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
	"github.com/fredcamaral/slidekiosk/internal/domain/ports"
)

// State is the lifecycle state of the remote service
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

var (
	// ErrAlreadyRunning is returned by Start when the service is not stopped
	ErrAlreadyRunning = errors.New("remote service already running")

	// ErrJoinTimeout is returned by Stop when the serve loop did not exit
	// within the shutdown timeout. The listener is closed either way.
	ErrJoinTimeout = errors.New("remote service did not stop within the shutdown timeout")
)

// Server is the remote presentation service: a read and control surface for
// browsers on top of the content store and the navigator
type Server struct {
	cfg     entities.ServerConfig
	store   ports.ContentStore
	nav     ports.Navigator
	content ports.ContentRenderer
	pages   ports.PageRenderer
	monitor ports.ActivityMonitor
	logger  *HTTPLogger
	limiter *rateLimiter

	// mu serializes Start and Stop
	mu      sync.Mutex
	state   atomic.Int32
	server  *http.Server
	connMgr *ConnectionManager
	subs    []ports.Subscription
	cancel  context.CancelFunc
	done    chan struct{}

	addrMu sync.RWMutex
	addr   *net.TCPAddr
}

// NewServer creates a stopped remote service
func NewServer(cfg entities.ServerConfig, store ports.ContentStore, nav ports.Navigator, content ports.ContentRenderer, pages ports.PageRenderer, logger *slog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		store:   store,
		nav:     nav,
		content: content,
		pages:   pages,
		logger:  NewHTTPLogger("remote", logger),
		limiter: newRateLimiter(cfg.RateLimit, time.Second),
	}
}

// SetMonitor attaches an activity monitor and enables GET /api/health. It
// must be called before Start.
func (s *Server) SetMonitor(m ports.ActivityMonitor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monitor = m
}

// State returns the lifecycle state
func (s *Server) State() State {
	return State(s.state.Load())
}

// IsRunning returns whether the service is accepting connections
func (s *Server) IsRunning() bool {
	return s.State() == StateRunning
}

// Start binds the listening socket and serves in the background. A port that
// is already taken fails the call and leaves the service stopped.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StateStopped {
		return ErrAlreadyRunning
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	address := s.cfg.Address()
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", address, err)
	}
	s.state.Store(int32(StateStarting))

	runCtx, cancel := context.WithCancel(context.Background())
	cm := NewConnectionManager(s.logger)
	go cm.Run(runCtx)

	s.subs = []ports.Subscription{
		s.nav.AddNavigationHandler(func(ev entities.NavEvent) {
			s.onNavigation(cm, ev)
		}),
		s.store.AddObserver(func(ev entities.SlideEvent) {
			s.onContentChange(cm, ev)
		}),
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.GetCORSOrigins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           300,
	})

	srv := &http.Server{
		Handler:      c.Handler(s.routes(cm)),
		ReadTimeout:  s.cfg.GetReadTimeout(),
		WriteTimeout: s.cfg.GetWriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error: %v", err)
		}
	}()

	s.server = srv
	s.connMgr = cm
	s.cancel = cancel
	s.done = done

	tcp, _ := ln.Addr().(*net.TCPAddr)
	s.addrMu.Lock()
	s.addr = tcp
	s.addrMu.Unlock()

	s.state.Store(int32(StateRunning))
	s.logger.Info("Remote service listening on %s", ln.Addr())

	return nil
}

// Stop closes websocket clients, shuts the HTTP server down and waits for
// the serve loop to exit. Stopping a stopped service is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StateRunning {
		return nil
	}
	s.state.Store(int32(StateStopping))

	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	s.connMgr.CloseAll()

	timeout := s.cfg.GetShutdownTimeout()
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		_ = s.server.Close()
	}
	s.cancel()

	join := time.NewTimer(timeout)
	defer join.Stop()
	select {
	case <-s.done:
	case <-join.C:
		s.logger.Warn("Serve loop did not exit within %v", timeout)
		errs = append(errs, ErrJoinTimeout)
	}

	s.subs = nil
	s.server = nil
	s.connMgr = nil
	s.cancel = nil
	s.done = nil

	s.addrMu.Lock()
	s.addr = nil
	s.addrMu.Unlock()

	s.state.Store(int32(StateStopped))
	s.logger.Info("Remote service stopped")

	return errors.Join(errs...)
}

// Addr returns the bound address, or "" when stopped
func (s *Server) Addr() string {
	s.addrMu.RLock()
	defer s.addrMu.RUnlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

// Info describes the service for status displays
func (s *Server) Info() ports.ServerInfo {
	info := ports.ServerInfo{
		Host:         s.cfg.Host,
		Port:         s.cfg.Port,
		CurrentSlide: s.nav.CurrentSlide(),
	}

	s.addrMu.RLock()
	addr := s.addr
	s.addrMu.RUnlock()

	if addr == nil || !s.IsRunning() {
		return info
	}

	info.Running = true
	info.Port = addr.Port
	host := s.cfg.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	info.URL = "http://" + net.JoinHostPort(host, strconv.Itoa(addr.Port))
	return info
}

// ClientCount returns the number of connected websocket clients
func (s *Server) ClientCount() int {
	s.mu.Lock()
	cm := s.connMgr
	s.mu.Unlock()
	if cm == nil {
		return 0
	}
	return cm.Count()
}

func (s *Server) onNavigation(cm *ConnectionManager, ev entities.NavEvent) {
	if s.monitor != nil {
		s.monitor.RecordNavigation()
	}
	cm.Broadcast(ports.RemoteEvent{
		Type:      ports.EventTypeNavigation,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"action":   string(ev.Action),
			"slide_id": ev.SlideID,
		},
	})
}

func (s *Server) onContentChange(cm *ConnectionManager, ev entities.SlideEvent) {
	if s.monitor != nil {
		s.monitor.RecordContentChange()
	}
	data := map[string]interface{}{
		"action":       string(ev.Action),
		"slide_id":     ev.SlideID,
		"total_slides": s.store.SlideCount(),
	}
	if ev.Action == entities.SlideCreated || ev.Action == entities.SlideUpdated {
		if slide, err := s.store.GetSlide(ev.SlideID); err == nil {
			data["title"] = s.content.SanitizeText(slide.Title)
		}
	}

	cm.Broadcast(ports.RemoteEvent{
		Type:      ports.EventTypeContentUpdated,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// Ensure Server implements ports.RemoteService
var _ ports.RemoteService = (*Server)(nil)
