package browser

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/fredcamaral/slidekiosk/internal/domain/ports"
)

// ErrNoBrowser is returned when no candidate executable is on PATH
var ErrNoBrowser = errors.New("no supported browsers found on this system")

// Browser is one way of opening a URL
type Browser struct {
	Name    string
	Command string
	Args    func(url string) []string
	// Kiosk browsers open full screen without chrome
	Kiosk bool
}

// Launcher implements ports.BrowserLauncher
type Launcher struct {
	browsers []Browser
	kiosk    bool
	lookPath func(file string) (string, error)
	start    func(ctx context.Context, name string, args ...string) error
}

// NewLauncher creates a launcher for the current platform. With kiosk set,
// browsers that support a full screen kiosk mode are tried first.
func NewLauncher(kiosk bool) *Launcher {
	return &Launcher{
		browsers: detectBrowsers(runtime.GOOS),
		kiosk:    kiosk,
		lookPath: exec.LookPath,
		start:    startDetached,
	}
}

// Launch opens url and returns without waiting for the browser to exit
func (l *Launcher) Launch(ctx context.Context, url string) error {
	browser, err := l.selectBrowser()
	if err != nil {
		return fmt.Errorf("browser selection: %w", err)
	}

	if err := l.start(ctx, browser.Command, browser.Args(url)...); err != nil {
		return fmt.Errorf("launching %s: %w", browser.Name, err)
	}
	return nil
}

// Detect returns the name of the browser Launch would use
func (l *Launcher) Detect() (string, error) {
	browser, err := l.selectBrowser()
	if err != nil {
		return "", err
	}
	return browser.Name, nil
}

// selectBrowser returns the first available browser, kiosk-capable ones
// first when kiosk mode is on
func (l *Launcher) selectBrowser() (*Browser, error) {
	if len(l.browsers) == 0 {
		return nil, errors.New("no browsers available")
	}

	candidates := l.browsers
	if l.kiosk {
		candidates = make([]Browser, 0, len(l.browsers))
		for _, b := range l.browsers {
			if b.Kiosk {
				candidates = append(candidates, b)
			}
		}
		for _, b := range l.browsers {
			if !b.Kiosk {
				candidates = append(candidates, b)
			}
		}
	}

	for _, candidate := range candidates {
		if _, err := l.lookPath(candidate.Command); err == nil {
			return &candidate, nil
		}
	}
	return nil, ErrNoBrowser
}

func startDetached(ctx context.Context, name string, args ...string) error {
	cmd := exec.Command(name, args...) // #nosec G204 - command comes from the fixed browser table
	if err := cmd.Start(); err != nil {
		return err
	}

	// Don't wait for browser to close
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

func urlOnly(url string) []string {
	return []string{url}
}

func kioskArgs(url string) []string {
	return []string{"--kiosk", "--noerrdialogs", "--disable-infobars", url}
}

// detectBrowsers lists the browsers known for goos in preference order
func detectBrowsers(goos string) []Browser {
	switch goos {
	case "darwin":
		return []Browser{
			{Name: "Chrome", Command: "open", Kiosk: true, Args: func(url string) []string {
				return append([]string{"-a", "Google Chrome", "--args"}, kioskArgs(url)...)
			}},
			{Name: "Default", Command: "open", Args: urlOnly},
		}
	case "linux":
		return []Browser{
			{Name: "Chromium", Command: "chromium", Kiosk: true, Args: kioskArgs},
			{Name: "Chromium", Command: "chromium-browser", Kiosk: true, Args: kioskArgs},
			{Name: "Chrome", Command: "google-chrome", Kiosk: true, Args: kioskArgs},
			{Name: "xdg-open", Command: "xdg-open", Args: urlOnly},
			{Name: "Firefox", Command: "firefox", Args: urlOnly},
		}
	case "windows":
		return []Browser{
			{Name: "Edge", Command: "cmd", Kiosk: true, Args: func(url string) []string {
				return []string{"/c", "start", "msedge", "--kiosk", url, "--edge-kiosk-type=fullscreen"}
			}},
			{Name: "Default", Command: "cmd", Args: func(url string) []string {
				return []string{"/c", "start", url}
			}},
		}
	default:
		return []Browser{}
	}
}

// Ensure Launcher implements ports.BrowserLauncher
var _ ports.BrowserLauncher = (*Launcher)(nil)
