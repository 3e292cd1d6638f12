package ports

import (
	"context"

	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
)

// ConfigLoader reads the TOML configuration files. The global file lives
// in the user's config directory; the local one sits next to the kiosk data.
type ConfigLoader interface {
	// LoadGlobal reads the global file, writing defaults first if it is missing
	LoadGlobal(ctx context.Context) (*entities.Config, error)

	// LoadLocal reads dir's local file. A missing file yields nil, nil.
	LoadLocal(ctx context.Context, dir string) (*entities.Config, error)

	CreateDefaults(ctx context.Context, path string) error
	GetGlobalPath() string
	GetLocalPath(dir string) string
}

// ConfigMerger layers configurations. Merge with no arguments returns the
// built-in defaults.
type ConfigMerger interface {
	Merge(configs ...*entities.Config) *entities.Config
	ApplyFlags(config *entities.Config, flags map[string]interface{}) *entities.Config
	ApplyEnvVars(config *entities.Config) *entities.Config
}

// ConfigSources records where an effective configuration came from
type ConfigSources struct {
	GlobalPath string   `json:"global_path"`
	LocalPath  string   `json:"local_path,omitempty"`
	Flags      []string `json:"flags,omitempty"`
}

// ResolvedConfig is the effective configuration with its sources
type ResolvedConfig struct {
	Config  *entities.Config
	Sources ConfigSources
}

// ConfigResolver produces the effective kiosk configuration
type ConfigResolver interface {
	Resolve(ctx context.Context, workingDir string, flags map[string]interface{}) (*ResolvedConfig, error)
	LoadConfig(ctx context.Context, workingDir string, flags map[string]interface{}) (*entities.Config, error)
	WriteDefaults(ctx context.Context) (string, error)
}
