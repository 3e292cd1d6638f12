package entities

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Watcher WatcherConfig `toml:"watcher"`
	Display DisplayConfig `toml:"display"`
	Logging LoggingConfig `toml:"logging"`

	// declared holds the dotted keys a config file actually set; nil means
	// every key counts as set
	declared map[string]struct{}
}

// MarkDeclared records keys explicitly set by a config file
func (c *Config) MarkDeclared(keys ...string) {
	if c.declared == nil {
		c.declared = make(map[string]struct{}, len(keys))
	}
	for _, k := range keys {
		c.declared[k] = struct{}{}
	}
}

// Declares reports whether key was set. Configs built in code declare every key.
func (c *Config) Declares(key string) bool {
	if c.declared == nil {
		return true
	}
	_, ok := c.declared[key]
	return ok
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.Watcher.Validate(); err != nil {
		return fmt.Errorf("watcher config: %w", err)
	}

	if err := c.Display.Validate(); err != nil {
		return fmt.Errorf("display config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// ServerConfig contains remote presentation service configuration
type ServerConfig struct {
	Enabled           bool     `toml:"enabled"`
	Host              string   `toml:"host"`
	Port              int      `toml:"port"`
	ReadTimeout       int      `toml:"read_timeout"`
	WriteTimeout      int      `toml:"write_timeout"`
	ShutdownTimeout   int      `toml:"shutdown_timeout"`
	CORSOrigins       []string `toml:"cors_origins"`
	RateLimit         int      `toml:"rate_limit"` // requests per second per client, 0 disables
	ImageCacheSeconds int      `toml:"image_cache_seconds"`
	PreviewLength     int      `toml:"preview_length"`
}

// Validate validates server configuration
func (s ServerConfig) Validate() error {
	if s.Port < 0 || s.Port > 65535 {
		return errors.New("port must be between 0 and 65535")
	}

	if s.Host != "" && net.ParseIP(s.Host) == nil && s.Host != "localhost" {
		if _, err := net.LookupHost(s.Host); err != nil {
			return fmt.Errorf("invalid host: %w", err)
		}
	}

	if s.ReadTimeout < 0 {
		return errors.New("read timeout must be non-negative")
	}

	if s.WriteTimeout < 0 {
		return errors.New("write timeout must be non-negative")
	}

	if s.ShutdownTimeout < 0 {
		return errors.New("shutdown timeout must be non-negative")
	}

	if s.RateLimit < 0 {
		return errors.New("rate limit must be non-negative")
	}

	if s.ImageCacheSeconds < 0 {
		return errors.New("image cache seconds must be non-negative")
	}

	for _, origin := range s.CORSOrigins {
		if origin == "" {
			return errors.New("CORS origin cannot be empty")
		}
		if origin == "*" {
			continue
		}
		if len(origin) < 7 || (!strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://")) {
			return fmt.Errorf("invalid CORS origin format: %s (must start with http:// or https://)", origin)
		}
	}

	return nil
}

// Address returns host:port
func (s ServerConfig) Address() string {
	host := s.Host
	if host == "" {
		host = "0.0.0.0"
	}
	return net.JoinHostPort(host, fmt.Sprintf("%d", s.Port))
}

// GetReadTimeout returns the read timeout as a duration
func (s ServerConfig) GetReadTimeout() time.Duration {
	if s.ReadTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.ReadTimeout) * time.Second
}

// GetWriteTimeout returns the write timeout as a duration
func (s ServerConfig) GetWriteTimeout() time.Duration {
	if s.WriteTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.WriteTimeout) * time.Second
}

// GetShutdownTimeout returns the shutdown timeout as a duration
func (s ServerConfig) GetShutdownTimeout() time.Duration {
	if s.ShutdownTimeout <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.ShutdownTimeout) * time.Second
}

// GetCORSOrigins returns CORS origins, allowing any origin when none are set
func (s ServerConfig) GetCORSOrigins() []string {
	if len(s.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return s.CORSOrigins
}

// GetPreviewLength returns how many characters of content the slide list shows
func (s ServerConfig) GetPreviewLength() int {
	if s.PreviewLength <= 0 {
		return 100
	}
	return s.PreviewLength
}

// StorageConfig contains content store persistence configuration
type StorageConfig struct {
	DataDir       string `toml:"data_dir"`
	BackupEnabled bool   `toml:"backup_enabled"`
	MaxBackups    int    `toml:"max_backups"`
	AutoCleanup   bool   `toml:"auto_cleanup"`
	SeedDefaults  bool   `toml:"seed_defaults"`
}

// Validate validates storage configuration
func (s StorageConfig) Validate() error {
	if strings.TrimSpace(s.DataDir) == "" {
		return errors.New("data directory cannot be empty")
	}

	if s.MaxBackups < 0 {
		return errors.New("max backups must be non-negative")
	}

	return nil
}

// GetMaxBackups returns the backup retention with default (10)
func (s StorageConfig) GetMaxBackups() int {
	if s.MaxBackups <= 0 {
		return 10
	}
	return s.MaxBackups
}

// Paths returns the on-disk layout rooted at the data directory
func (s StorageConfig) Paths() Paths {
	return NewPaths(filepath.Clean(s.DataDir))
}

// WatcherConfig contains configuration of the external-edit watcher
type WatcherConfig struct {
	Enabled    bool `toml:"enabled"`
	IntervalMs int  `toml:"interval_ms"`
	DebounceMs int  `toml:"debounce_ms"`
}

// Validate validates watcher configuration
func (w WatcherConfig) Validate() error {
	if w.Enabled && w.IntervalMs < 50 {
		return errors.New("watcher interval must be at least 50ms")
	}

	if w.DebounceMs < 0 {
		return errors.New("debounce time must be non-negative")
	}

	return nil
}

// GetInterval returns the watcher interval as a duration
func (w WatcherConfig) GetInterval() time.Duration {
	if w.IntervalMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(w.IntervalMs) * time.Millisecond
}

// GetDebounce returns the debounce time as a duration
func (w WatcherConfig) GetDebounce() time.Duration {
	if w.DebounceMs <= 0 {
		return 300 * time.Millisecond
	}
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// DisplayConfig contains headless display configuration
type DisplayConfig struct {
	AutoAdvanceMs int  `toml:"auto_advance_ms"`
	Loop          bool `toml:"loop"`
}

// Validate validates display configuration
func (d DisplayConfig) Validate() error {
	if d.AutoAdvanceMs < 0 {
		return errors.New("auto advance interval must be non-negative")
	}
	return nil
}

// GetAutoAdvance returns the auto-advance interval as a duration
func (d DisplayConfig) GetAutoAdvance() time.Duration {
	if d.AutoAdvanceMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(d.AutoAdvanceMs) * time.Millisecond
}

// LogLevel represents logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `toml:"level"`       // debug, info, warn, error
	Verbose    bool   `toml:"verbose"`     // Enable verbose logging
	JSONFormat bool   `toml:"json_format"` // Output logs in JSON format
	File       string `toml:"file"`        // Log to file (optional)
}

// Validate validates logging configuration
func (l LoggingConfig) Validate() error {
	switch LogLevel(l.Level) {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	case "":
		// Empty is okay, will use default
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", l.Level)
	}

	if l.File != "" && !filepath.IsAbs(l.File) {
		return errors.New("log file path must be absolute")
	}

	return nil
}

// GetLevel returns the log level with default
func (l LoggingConfig) GetLevel() LogLevel {
	if l.Verbose {
		return LogLevelDebug
	}
	if l.Level == "" {
		return LogLevelInfo
	}
	return LogLevel(l.Level)
}
