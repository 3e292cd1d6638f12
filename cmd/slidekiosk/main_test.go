package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
	"github.com/fredcamaral/slidekiosk/internal/domain/ports"
)

// syncBuffer lets the test read output while a command is still writing
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type cliEnv struct {
	configPath string
	dataDir    string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	dir := t.TempDir()
	return cliEnv{
		configPath: filepath.Join(dir, "config", "config.toml"),
		dataDir:    filepath.Join(dir, "data"),
	}
}

func (e cliEnv) run(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	out := &syncBuffer{}
	cmd := newRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(&syncBuffer{})
	cmd.SetArgs(append([]string{"--config", e.configPath, "--data-dir", e.dataDir, "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "slidekiosk version dev")

	names := make([]string, 0)
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "slides")
	assert.Contains(t, names, "config")
}

func TestSlidesList_SeedsDefaultDeck(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, context.Background(), "slides", "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[0], "TITLE")
	assert.Contains(t, lines[1], "BumbleB - Das automatisierte Shuttle")
	assert.Contains(t, lines[1], "Text")

	assert.FileExists(t, filepath.Join(env.dataDir, "slides.json"))
	assert.FileExists(t, env.configPath, "global config is created on first run")
}

func TestSlidesStats(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, context.Background(), "slides", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Slides:")
	assert.Contains(t, out, "Text slides:")

	out, err = env.run(t, context.Background(), "slides", "stats", "--json")
	require.NoError(t, err)

	var stats entities.PresentationStatistics
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 5, stats.TotalSlides)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, stats.SlideIDs)
}

func TestSlidesExport(t *testing.T) {
	env := newCLIEnv(t)
	target := filepath.Join(t.TempDir(), "deck.yaml")

	out, err := env.run(t, context.Background(), "slides", "export", "--format", "yaml", "--output", target, "--title", "Demo")
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 5 slides to "+target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)

	var doc struct {
		Presentation struct {
			Metadata struct {
				Title       string `yaml:"title"`
				TotalSlides int    `yaml:"total_slides"`
			} `yaml:"metadata"`
		} `yaml:"presentation"`
		Slides map[string]interface{} `yaml:"slides"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "Demo", doc.Presentation.Metadata.Title)
	assert.Equal(t, 5, doc.Presentation.Metadata.TotalSlides)
	assert.Len(t, doc.Slides, 5)
}

func TestSlidesExport_UnknownFormat(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, context.Background(), "slides", "export", "--format", "pdf", "--output", filepath.Join(t.TempDir(), "x.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported export format")
}

func TestSlidesCleanup(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, context.Background(), "slides", "list")
	require.NoError(t, err)

	orphan := filepath.Join(env.dataDir, "slides", "slide_2", "images", "stale.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(orphan), 0755))
	require.NoError(t, os.WriteFile(orphan, []byte("x"), 0644))

	out, err := env.run(t, context.Background(), "slides", "cleanup")
	require.NoError(t, err)
	assert.Contains(t, out, "1 orphaned files removed")
	assert.NoFileExists(t, orphan)
}

func TestConfigErrorsAreReported(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, context.Background(), "slides", "list", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading configuration")
}

func TestConfigShow(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, context.Background(), "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# global: "+env.configPath)
	assert.Contains(t, out, "# local: (none)")
	assert.Contains(t, out, "# flags: data-dir, log-level")
	assert.Contains(t, out, "[server]")
	assert.Contains(t, out, fmt.Sprintf("data_dir = %q", env.dataDir))
	assert.Contains(t, out, `level = "error"`)
}

func TestConfigInit(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, context.Background(), "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote default configuration to "+env.configPath)
	assert.FileExists(t, env.configPath)

	_, err = env.run(t, context.Background(), "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, os.WriteFile(env.configPath, []byte("[server]\nport = 9999\n"), 0o600))
	_, err = env.run(t, context.Background(), "config", "init", "--force")
	require.NoError(t, err)

	data, err := os.ReadFile(env.configPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "9999")
}

func waitFor(t *testing.T, out *syncBuffer, text string) {
	t.Helper()
	require.Eventually(t, func() bool { return strings.Contains(out.String(), text) }, 5*time.Second, 10*time.Millisecond, "output: %s", out.String())
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestServe(t *testing.T) {
	env := newCLIEnv(t)
	port := freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	cmd := newRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(&syncBuffer{})
	cmd.SetArgs([]string{
		"--config", env.configPath, "--data-dir", env.dataDir, "--log-level", "error",
		"serve", "--host", "127.0.0.1", "--port", fmt.Sprint(port), "--no-watch",
	})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	waitFor(t, out, "Showing 5 slides")
	assert.Contains(t, out.String(), fmt.Sprintf("Remote control: http://127.0.0.1:%d", port))

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/api/control?action=next", port))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/api/current_slide", port))
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	assert.Equal(t, float64(2), body["slide_id"])

	resp, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/api/health", port))
	require.NoError(t, err)
	var health ports.HealthReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	_ = resp.Body.Close()
	assert.True(t, health.Healthy)
	assert.GreaterOrEqual(t, health.Activity.NavigationEvents, int64(1))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}
	assert.Contains(t, out.String(), "Slides saved")

	// the port is free again
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err)
	_ = ln.Close()
}

func TestServe_KeepsRunningWhenRemoteFails(t *testing.T) {
	env := newCLIEnv(t)

	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = busy.Close() }()
	port := busy.Addr().(*net.TCPAddr).Port

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	cmd := newRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(&syncBuffer{})
	cmd.SetArgs([]string{
		"--config", env.configPath, "--data-dir", env.dataDir, "--log-level", "error",
		"serve", "--host", "127.0.0.1", "--port", fmt.Sprint(port),
	})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	waitFor(t, out, "Showing 5 slides")
	assert.NotContains(t, out.String(), "Remote control")

	cancel()
	require.NoError(t, <-done)
}

func TestNewLogger(t *testing.T) {
	buf := new(bytes.Buffer)
	logger, closeFn, err := newLogger(entities.LoggingConfig{Level: "warn", JSONFormat: true}, buf)
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	logger.Info("hidden")
	logger.Warn("shown", "slide_id", 3)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, float64(3), entry["slide_id"])

	file := filepath.Join(t.TempDir(), "kiosk.log")
	logger, closeFn, err = newLogger(entities.LoggingConfig{File: file}, buf)
	require.NoError(t, err)
	logger.Info("to file")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

type fakeLauncher struct {
	name      string
	detectErr error
	launchErr error
	launched  []string
}

func (f *fakeLauncher) Detect() (string, error) { return f.name, f.detectErr }

func (f *fakeLauncher) Launch(ctx context.Context, url string) error {
	if f.launchErr != nil {
		return f.launchErr
	}
	f.launched = append(f.launched, url)
	return nil
}

func TestOpenBrowser(t *testing.T) {
	logs := new(bytes.Buffer)
	logger := slog.New(slog.NewTextHandler(logs, nil))

	ok := &fakeLauncher{name: "Chromium"}
	openBrowser(context.Background(), logger, ok, "http://localhost:8080")
	assert.Equal(t, []string{"http://localhost:8080"}, ok.launched)
	assert.Contains(t, logs.String(), "Opened remote page")

	logs.Reset()
	missing := &fakeLauncher{detectErr: errors.New("none")}
	openBrowser(context.Background(), logger, missing, "http://localhost:8080")
	assert.Empty(t, missing.launched)
	assert.Contains(t, logs.String(), "No browser")

	logs.Reset()
	broken := &fakeLauncher{name: "Firefox", launchErr: errors.New("exec failed")}
	openBrowser(context.Background(), logger, broken, "http://localhost:8080")
	assert.Contains(t, logs.String(), "Opening browser failed")
}
