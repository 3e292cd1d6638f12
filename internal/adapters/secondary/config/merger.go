package config

import (
	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
	"github.com/fredcamaral/slidekiosk/internal/domain/ports"
)

// ConfigMerger implements the ConfigMerger interface
type ConfigMerger struct{}

// NewConfigMerger creates a new configuration merger
func NewConfigMerger() *ConfigMerger {
	return &ConfigMerger{}
}

// Merge merges multiple configurations with later configs taking precedence
func (m *ConfigMerger) Merge(configs ...*entities.Config) *entities.Config {
	if len(configs) == 0 {
		return GetDefaultConfig()
	}

	result := deepCopy(configs[0])

	for i := 1; i < len(configs); i++ {
		if configs[i] != nil {
			m.mergeInto(result, configs[i])
		}
	}

	return result
}

// ApplyFlags applies CLI flag overrides to a configuration
func (m *ConfigMerger) ApplyFlags(config *entities.Config, flags map[string]interface{}) *entities.Config {
	result := deepCopy(config)

	if port, ok := flags["port"].(int); ok && port > 0 {
		result.Server.Port = port
	}

	if host, ok := flags["host"].(string); ok && host != "" {
		result.Server.Host = host
	}

	if noRemote, ok := flags["no-remote"].(bool); ok && noRemote {
		result.Server.Enabled = false
	}

	if dataDir, ok := flags["data-dir"].(string); ok && dataDir != "" {
		result.Storage.DataDir = dataDir
	}

	if noWatch, ok := flags["no-watch"].(bool); ok && noWatch {
		result.Watcher.Enabled = false
	}

	if level, ok := flags["log-level"].(string); ok && level != "" {
		result.Logging.Level = level
	}

	if verbose, ok := flags["verbose"].(bool); ok && verbose {
		result.Logging.Verbose = true
	}

	return result
}

// ApplyEnvVars applies SLIDEKIOSK_* environment overrides to a configuration
func (m *ConfigMerger) ApplyEnvVars(config *entities.Config) *entities.Config {
	result := deepCopy(config)

	// Server
	if host := env("HOST"); host != "" {
		result.Server.Host = host
	}
	if port, ok := envInt("PORT"); ok && port > 0 {
		result.Server.Port = port
	}
	if enabled, ok := envBool("REMOTE_ENABLED"); ok {
		result.Server.Enabled = enabled
	}
	if origins := envSlice("CORS_ORIGINS"); len(origins) > 0 {
		result.Server.CORSOrigins = origins
	}
	if limit, ok := envInt("RATE_LIMIT"); ok && limit >= 0 {
		result.Server.RateLimit = limit
	}

	// Storage
	if dir := env("DATA_DIR"); dir != "" {
		result.Storage.DataDir = dir
	}
	if backup, ok := envBool("BACKUP_ENABLED"); ok {
		result.Storage.BackupEnabled = backup
	}
	if cleanup, ok := envBool("AUTO_CLEANUP"); ok {
		result.Storage.AutoCleanup = cleanup
	}

	// Watcher
	if enabled, ok := envBool("WATCH"); ok {
		result.Watcher.Enabled = enabled
	}
	if interval, ok := envInt("WATCH_INTERVAL"); ok && interval > 0 {
		result.Watcher.IntervalMs = interval
	}
	if debounce, ok := envInt("WATCH_DEBOUNCE"); ok && debounce >= 0 {
		result.Watcher.DebounceMs = debounce
	}

	// Display
	if advance, ok := envInt("AUTO_ADVANCE_MS"); ok && advance > 0 {
		result.Display.AutoAdvanceMs = advance
	}

	// Logging
	if level := env("LOG_LEVEL"); level != "" {
		result.Logging.Level = level
	}
	if verbose, ok := envBool("LOG_VERBOSE"); ok {
		result.Logging.Verbose = verbose
	}
	if jsonFormat, ok := envBool("LOG_JSON"); ok {
		result.Logging.JSONFormat = jsonFormat
	}
	if file := env("LOG_FILE"); file != "" {
		result.Logging.File = file
	}

	return result
}

// mergeInto merges source configuration into target configuration. Zero
// numbers and empty strings mean "not set"; booleans and the rate limit,
// where zero is meaningful, are taken when the source declares them.
func (m *ConfigMerger) mergeInto(target, source *entities.Config) {
	// Server config
	if source.Declares("server.enabled") {
		target.Server.Enabled = source.Server.Enabled
	}
	if source.Server.Port != 0 {
		target.Server.Port = source.Server.Port
	}
	if source.Server.Host != "" {
		target.Server.Host = source.Server.Host
	}
	if source.Server.ReadTimeout != 0 {
		target.Server.ReadTimeout = source.Server.ReadTimeout
	}
	if source.Server.WriteTimeout != 0 {
		target.Server.WriteTimeout = source.Server.WriteTimeout
	}
	if source.Server.ShutdownTimeout != 0 {
		target.Server.ShutdownTimeout = source.Server.ShutdownTimeout
	}
	if len(source.Server.CORSOrigins) > 0 {
		target.Server.CORSOrigins = append([]string(nil), source.Server.CORSOrigins...)
	}
	if source.Declares("server.rate_limit") {
		target.Server.RateLimit = source.Server.RateLimit
	}
	if source.Server.ImageCacheSeconds != 0 {
		target.Server.ImageCacheSeconds = source.Server.ImageCacheSeconds
	}
	if source.Server.PreviewLength != 0 {
		target.Server.PreviewLength = source.Server.PreviewLength
	}

	// Storage config
	if source.Storage.DataDir != "" {
		target.Storage.DataDir = source.Storage.DataDir
	}
	if source.Declares("storage.backup_enabled") {
		target.Storage.BackupEnabled = source.Storage.BackupEnabled
	}
	if source.Storage.MaxBackups != 0 {
		target.Storage.MaxBackups = source.Storage.MaxBackups
	}
	if source.Declares("storage.auto_cleanup") {
		target.Storage.AutoCleanup = source.Storage.AutoCleanup
	}
	if source.Declares("storage.seed_defaults") {
		target.Storage.SeedDefaults = source.Storage.SeedDefaults
	}

	// Watcher config
	if source.Declares("watcher.enabled") {
		target.Watcher.Enabled = source.Watcher.Enabled
	}
	if source.Watcher.IntervalMs != 0 {
		target.Watcher.IntervalMs = source.Watcher.IntervalMs
	}
	if source.Watcher.DebounceMs != 0 {
		target.Watcher.DebounceMs = source.Watcher.DebounceMs
	}

	// Display config
	if source.Display.AutoAdvanceMs != 0 {
		target.Display.AutoAdvanceMs = source.Display.AutoAdvanceMs
	}
	if source.Declares("display.loop") {
		target.Display.Loop = source.Display.Loop
	}

	// Logging config
	if source.Logging.Level != "" {
		target.Logging.Level = source.Logging.Level
	}
	if source.Declares("logging.verbose") {
		target.Logging.Verbose = source.Logging.Verbose
	}
	if source.Declares("logging.json_format") {
		target.Logging.JSONFormat = source.Logging.JSONFormat
	}
	if source.Logging.File != "" {
		target.Logging.File = source.Logging.File
	}
}

// deepCopy creates a deep copy of a configuration. The copy declares every key.
func deepCopy(src *entities.Config) *entities.Config {
	if src == nil {
		return nil
	}

	dst := &entities.Config{
		Server:  src.Server,
		Storage: src.Storage,
		Watcher: src.Watcher,
		Display: src.Display,
		Logging: src.Logging,
	}

	if src.Server.CORSOrigins != nil {
		dst.Server.CORSOrigins = make([]string, len(src.Server.CORSOrigins))
		copy(dst.Server.CORSOrigins, src.Server.CORSOrigins)
	}

	return dst
}

// Ensure ConfigMerger implements ports.ConfigMerger
var _ ports.ConfigMerger = (*ConfigMerger)(nil)
