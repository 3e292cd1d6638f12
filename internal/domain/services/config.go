package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
	"github.com/fredcamaral/slidekiosk/internal/domain/ports"
)

// ErrNilConfig is returned when validating a missing configuration
var ErrNilConfig = errors.New("config cannot be nil")

// ConfigService resolves the kiosk configuration with the precedence
// defaults < global file < local file < environment < flags
type ConfigService struct {
	loader ports.ConfigLoader
	merger ports.ConfigMerger
}

// NewConfigService creates a config service
func NewConfigService(loader ports.ConfigLoader, merger ports.ConfigMerger) *ConfigService {
	return &ConfigService{
		loader: loader,
		merger: merger,
	}
}

// Resolve builds the effective configuration for a kiosk started in
// workingDir. A relative data directory is taken relative to workingDir.
func (s *ConfigService) Resolve(ctx context.Context, workingDir string, flags map[string]interface{}) (*ports.ResolvedConfig, error) {
	layers := []*entities.Config{s.merger.Merge()}
	sources := ports.ConfigSources{GlobalPath: s.loader.GetGlobalPath()}

	global, err := s.loader.LoadGlobal(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading global config: %w", err)
	}
	if global != nil {
		layers = append(layers, global)
	}

	local, err := s.loader.LoadLocal(ctx, workingDir)
	if err != nil {
		return nil, fmt.Errorf("loading local config: %w", err)
	}
	if local != nil {
		layers = append(layers, local)
		sources.LocalPath = s.loader.GetLocalPath(workingDir)
	}

	cfg := s.merger.Merge(layers...)
	cfg = s.merger.ApplyEnvVars(cfg)
	cfg = s.merger.ApplyFlags(cfg, flags)
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if dir := cfg.Storage.DataDir; dir != "" && !filepath.IsAbs(dir) && workingDir != "" {
		cfg.Storage.DataDir = filepath.Join(workingDir, dir)
	}

	if err := s.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	for name := range flags {
		sources.Flags = append(sources.Flags, name)
	}
	sort.Strings(sources.Flags)

	return &ports.ResolvedConfig{Config: cfg, Sources: sources}, nil
}

// LoadConfig returns just the effective configuration
func (s *ConfigService) LoadConfig(ctx context.Context, workingDir string, flags map[string]interface{}) (*entities.Config, error) {
	resolved, err := s.Resolve(ctx, workingDir, flags)
	if err != nil {
		return nil, err
	}
	return resolved.Config, nil
}

// ValidateConfig validates a configuration
func (s *ConfigService) ValidateConfig(config *entities.Config) error {
	if config == nil {
		return ErrNilConfig
	}
	return config.Validate()
}

// WriteDefaults writes the default configuration to the global path,
// replacing an existing file, and returns that path
func (s *ConfigService) WriteDefaults(ctx context.Context) (string, error) {
	path := s.loader.GetGlobalPath()
	if err := s.loader.CreateDefaults(ctx, path); err != nil {
		return "", fmt.Errorf("writing default config to %s: %w", path, err)
	}
	return path, nil
}

var _ ports.ConfigResolver = (*ConfigService)(nil)
