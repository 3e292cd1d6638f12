package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	httpadapter "github.com/fredcamaral/slidekiosk/internal/adapters/primary/http"
	"github.com/fredcamaral/slidekiosk/internal/adapters/secondary/browser"
	"github.com/fredcamaral/slidekiosk/internal/adapters/secondary/display"
	"github.com/fredcamaral/slidekiosk/internal/adapters/secondary/monitoring"
	"github.com/fredcamaral/slidekiosk/internal/adapters/secondary/renderer"
	"github.com/fredcamaral/slidekiosk/internal/adapters/secondary/watcher"
	"github.com/fredcamaral/slidekiosk/internal/domain/ports"
	"github.com/fredcamaral/slidekiosk/internal/domain/services"
)

// newServeCmd represents the serve command
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the kiosk display and the browser remote",
		Long: `Load the slide deck, run the display and serve the browser remote
until interrupted. Edits to slides.json made by other programs are
picked up while running.

Example:
  slidekiosk serve
  slidekiosk serve --port 9090 --data-dir /srv/kiosk`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().IntP("port", "p", 0, "Port to serve on (overrides config)")
	cmd.Flags().String("host", "", "Host to bind to (overrides config)")
	cmd.Flags().Bool("no-remote", false, "Do not start the browser remote")
	cmd.Flags().Bool("no-watch", false, "Do not watch slides.json for external edits")
	cmd.Flags().Bool("open", false, "Open the remote page in a local browser")
	cmd.Flags().Bool("kiosk-browser", false, "With --open, prefer a full screen kiosk browser")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	return withKiosk(cmd, func(ctx context.Context, k *kiosk) error {
		out := cmd.OutOrStdout()
		nav := services.NewNavigationService(k.store, k.logger)
		navSub := nav.ObserveStore(k.store)
		defer navSub.Unsubscribe()

		screen := display.NewHeadless(nav, k.store, k.clock, display.OptionsFromConfig(k.cfg.Display), k.logger)
		if err := screen.Start(ctx); err != nil {
			return fmt.Errorf("starting display: %w", err)
		}
		defer screen.Stop()

		if k.cfg.Watcher.Enabled {
			w := watcher.NewPollingWatcher(k.cfg.Watcher.GetInterval(), k.cfg.Watcher.GetDebounce(), k.logger)
			reload := services.NewReloadService(w, k.store, k.repo, k.logger)
			if err := reload.Start(ctx); err != nil {
				k.logger.Warn("External edit watcher disabled", slog.String("error", err.Error()))
			} else {
				defer func() { _ = reload.Stop() }()
			}
		}

		monitor := monitoring.NewMonitor(k.clock, monitoring.DefaultSampleInterval, monitoring.DefaultLimits())
		monitor.Start(ctx)
		defer monitor.Stop()

		var remote *httpadapter.Server
		if k.cfg.Server.Enabled {
			remote, _ = startRemote(ctx, k, nav, monitor)
		}
		if remote != nil {
			url := remote.Info().URL
			fmt.Fprintf(out, "Remote control: %s\n", url)

			if open, _ := cmd.Flags().GetBool("open"); open {
				kioskMode, _ := cmd.Flags().GetBool("kiosk-browser")
				openBrowser(ctx, k.logger, browser.NewLauncher(kioskMode), url)
			}
		}
		fmt.Fprintf(out, "Showing %d slides from %s\n", k.store.SlideCount(), k.cfg.Storage.DataDir)

		<-ctx.Done()

		if remote != nil {
			if err := remote.Stop(context.Background()); err != nil {
				k.logger.Warn("Remote service stop", slog.String("error", err.Error()))
			}
		}
		if err := k.store.SaveToFile(context.Background()); err != nil {
			return fmt.Errorf("saving slides: %w", err)
		}
		fmt.Fprintln(out, "Slides saved")
		return nil
	})
}

// startRemote starts the browser remote. A failure is logged and the kiosk
// keeps running without it.
func startRemote(ctx context.Context, k *kiosk, nav *services.NavigationService, monitor ports.ActivityMonitor) (*httpadapter.Server, error) {
	pages, err := renderer.NewClientRenderer()
	if err != nil {
		k.logger.Error("Remote client page unavailable", slog.String("error", err.Error()))
		return nil, err
	}

	remote := httpadapter.NewServer(k.cfg.Server, k.store, nav, renderer.NewMarkdownRenderer(), pages, k.logger)
	remote.SetMonitor(monitor)
	if err := remote.Start(ctx); err != nil {
		k.logger.Error("Remote service failed to start", slog.String("error", err.Error()))
		return nil, err
	}
	return remote, nil
}

// openBrowser shows url on the kiosk screen. Failures only warn.
func openBrowser(ctx context.Context, logger *slog.Logger, launcher ports.BrowserLauncher, url string) {
	name, err := launcher.Detect()
	if err != nil {
		logger.Warn("No browser to open the remote page", slog.String("error", err.Error()))
		return
	}
	if err := launcher.Launch(ctx, url); err != nil {
		logger.Warn("Opening browser failed", slog.String("browser", name), slog.String("error", err.Error()))
		return
	}
	logger.Info("Opened remote page", slog.String("browser", name), slog.String("url", url))
}
