package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fredcamaral/slidekiosk/internal/adapters/secondary/config"
	"github.com/fredcamaral/slidekiosk/internal/adapters/secondary/storage"
	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
	"github.com/fredcamaral/slidekiosk/internal/domain/ports"
	"github.com/fredcamaral/slidekiosk/internal/domain/services"
)

// kiosk holds the wired domain services shared by the commands
type kiosk struct {
	cfg    *entities.Config
	logger *slog.Logger
	clock  ports.Clock
	repo   *storage.FileRepository
	store  *services.ContentService
}

// newConfigLoader honours --config
func newConfigLoader(cmd *cobra.Command) *config.TOMLLoader {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.NewTOMLLoaderWithPath(path)
	}
	return config.NewTOMLLoader()
}

func newConfigService(cmd *cobra.Command) *services.ConfigService {
	return services.NewConfigService(newConfigLoader(cmd), config.NewConfigMerger())
}

// resolveConfig resolves configuration with the precedence
// defaults < global < local < env < flags
func resolveConfig(cmd *cobra.Command) (*ports.ResolvedConfig, error) {
	workingDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	resolved, err := newConfigService(cmd).Resolve(cmd.Context(), workingDir, collectFlags(cmd))
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return resolved, nil
}

// collectFlags returns the flags the user set explicitly, keyed the way
// ConfigMerger.ApplyFlags expects
func collectFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	fs := cmd.Flags()

	if fs.Changed("port") {
		v, _ := fs.GetInt("port")
		flags["port"] = v
	}
	if fs.Changed("host") {
		v, _ := fs.GetString("host")
		flags["host"] = v
	}
	if fs.Changed("no-remote") {
		v, _ := fs.GetBool("no-remote")
		flags["no-remote"] = v
	}
	if fs.Changed("no-watch") {
		v, _ := fs.GetBool("no-watch")
		flags["no-watch"] = v
	}
	if fs.Changed("data-dir") {
		v, _ := fs.GetString("data-dir")
		flags["data-dir"] = v
	}
	if fs.Changed("log-level") {
		v, _ := fs.GetString("log-level")
		flags["log-level"] = v
	}
	if fs.Changed("verbose") {
		v, _ := fs.GetBool("verbose")
		flags["verbose"] = v
	}

	return flags
}

// newLogger builds the process logger from the logging section. The
// returned close function releases the log file, if any.
func newLogger(cfg entities.LoggingConfig, stderr io.Writer) (*slog.Logger, func() error, error) {
	out := stderr
	closeFn := func() error { return nil }

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600) // #nosec G304 - path comes from config
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		out = f
		closeFn = f.Close
	}

	opts := &slog.HandlerOptions{Level: slogLevel(cfg.GetLevel())}
	var handler slog.Handler
	if cfg.JSONFormat {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler), closeFn, nil
}

func slogLevel(level entities.LogLevel) slog.Level {
	switch level {
	case entities.LogLevelDebug:
		return slog.LevelDebug
	case entities.LogLevelWarn:
		return slog.LevelWarn
	case entities.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openKiosk loads the slide store from the configured data directory
func openKiosk(ctx context.Context, cfg *entities.Config, logger *slog.Logger) (*kiosk, error) {
	clock := ports.NewSystemClock()
	repo := storage.NewFileRepository(entities.NewPaths(cfg.Storage.DataDir), clock, cfg.Storage.MaxBackups, logger)
	store := services.NewContentService(repo, clock, services.ContentOptionsFromConfig(cfg.Storage), logger)

	if err := store.LoadFromFile(ctx); err != nil {
		return nil, fmt.Errorf("loading slides: %w", err)
	}

	return &kiosk{
		cfg:    cfg,
		logger: logger,
		clock:  clock,
		repo:   repo,
		store:  store,
	}, nil
}

// withKiosk loads config, logger and store, then runs fn
func withKiosk(cmd *cobra.Command, fn func(ctx context.Context, k *kiosk) error) error {
	resolved, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	cfg := resolved.Config

	logger, closeLog, err := newLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	k, err := openKiosk(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	return fn(cmd.Context(), k)
}
