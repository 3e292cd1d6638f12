package http

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredcamaral/slidekiosk/internal/adapters/secondary/renderer"
	"github.com/fredcamaral/slidekiosk/internal/adapters/secondary/storage"
	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
	"github.com/fredcamaral/slidekiosk/internal/domain/services"
	"github.com/fredcamaral/slidekiosk/internal/test/builders"
)

type testEnv struct {
	server *Server
	store  *services.ContentService
	nav    *services.NavigationService

	mu     sync.Mutex
	events []entities.NavEvent
}

func (e *testEnv) navEvents() []entities.NavEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]entities.NavEvent(nil), e.events...)
}

func testConfig() entities.ServerConfig {
	return entities.ServerConfig{
		Enabled:           true,
		Host:              "127.0.0.1",
		Port:              0,
		ShutdownTimeout:   2,
		CORSOrigins:       []string{"*"},
		ImageCacheSeconds: 3600,
		PreviewLength:     100,
	}
}

// newTestEnv builds a server over a store holding slides 1..count
func newTestEnv(t *testing.T, cfg entities.ServerConfig, count int) *testEnv {
	t.Helper()

	clock := builders.NewManualClock(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
	repo := storage.NewFileRepository(entities.NewPaths(t.TempDir()), clock, 0, nil)
	store := services.NewContentService(repo, clock, services.ContentOptions{AutoCleanup: true}, nil)
	for i := 1; i <= count; i++ {
		require.NoError(t, store.CreateSlide(i, fmt.Sprintf("Slide %d", i), fmt.Sprintf("Content of slide %d", i), entities.LayoutText))
	}

	nav := services.NewNavigationService(store, nil)
	pages, err := renderer.NewClientRenderer()
	require.NoError(t, err)

	env := &testEnv{store: store, nav: nav}
	nav.AddNavigationHandler(func(ev entities.NavEvent) {
		env.mu.Lock()
		env.events = append(env.events, ev)
		env.mu.Unlock()
	})
	env.server = NewServer(cfg, store, nav, renderer.NewMarkdownRenderer(), pages, nil)
	return env
}

func startServer(t *testing.T, s *Server) {
	t.Helper()
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
}

func TestServer_Lifecycle(t *testing.T) {
	env := newTestEnv(t, testConfig(), 3)
	s := env.server

	assert.Equal(t, StateStopped, s.State())
	assert.False(t, s.IsRunning())
	assert.Empty(t, s.Addr())

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, StateRunning, s.State())
	assert.True(t, s.IsRunning())
	assert.NotEmpty(t, s.Addr())

	info := s.Info()
	assert.True(t, info.Running)
	assert.NotZero(t, info.Port)
	assert.Equal(t, fmt.Sprintf("http://127.0.0.1:%d", info.Port), info.URL)
	assert.Equal(t, 1, info.CurrentSlide)

	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, StateStopped, s.State())
	assert.Empty(t, s.Addr())

	info = s.Info()
	assert.False(t, info.Running)
	assert.Empty(t, info.URL)

	// stopping again is a no-op
	assert.NoError(t, s.Stop(context.Background()))
}

func TestServer_RestartOnSamePort(t *testing.T) {
	env := newTestEnv(t, testConfig(), 2)
	require.NoError(t, env.server.Start(context.Background()))
	port := env.server.Info().Port
	require.NoError(t, env.server.Stop(context.Background()))

	cfg := testConfig()
	cfg.Port = port
	again := newTestEnv(t, cfg, 2)
	startServer(t, again.server)
	assert.Equal(t, port, again.server.Info().Port)

	for i := 0; i < 3; i++ {
		require.NoError(t, again.server.Stop(context.Background()))
		require.NoError(t, again.server.Start(context.Background()), "restart %d", i)
	}
}

func TestServer_StartFailsWhenPortTaken(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	cfg := testConfig()
	cfg.Port = ln.Addr().(*net.TCPAddr).Port
	env := newTestEnv(t, cfg, 1)

	err = env.server.Start(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "listening on"))
	assert.Equal(t, StateStopped, env.server.State())
	assert.False(t, env.server.Info().Running)

	// Stop on a service that never started is harmless
	assert.NoError(t, env.server.Stop(context.Background()))
}

func TestServer_StartHonorsCancelledContext(t *testing.T) {
	env := newTestEnv(t, testConfig(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, env.server.Start(ctx), context.Canceled)
	assert.Equal(t, StateStopped, env.server.State())
}

func TestServer_StopUnsubscribes(t *testing.T) {
	env := newTestEnv(t, testConfig(), 2)
	require.NoError(t, env.server.Start(context.Background()))
	require.NoError(t, env.server.Stop(context.Background()))

	// only the recording handler is left
	env.nav.Command("next", 0)
	assert.Len(t, env.navEvents(), 1)
	assert.Equal(t, 0, env.server.ClientCount())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "starting", StateStarting.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "stopping", StateStopping.String())
	assert.Equal(t, "unknown", State(42).String())
}
