package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/jamesainslie/jardiff/pkg/jardiff/hasher"
	"github.com/jamesainslie/jardiff/pkg/jardiff/logging"
	"github.com/jamesainslie/jardiff/pkg/jardiff/types"
)

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level" yaml:"level"`
	Path       string            `mapstructure:"path" yaml:"path"`
	MaxSize    string            `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int               `mapstructure:"max_backups" yaml:"max_backups"`
	Components map[string]string `mapstructure:"components" yaml:"components"`
}

// Config represents the application configuration.
type Config struct {
	CacheDir     string   `mapstructure:"cache_dir" yaml:"cache_dir"`
	KeepCache    bool     `mapstructure:"keep_cache" yaml:"keep_cache"`
	CompareMtime bool     `mapstructure:"compare_mtime" yaml:"compare_mtime"`
	Output       string   `mapstructure:"output" yaml:"output"`
	Exclude      []string `mapstructure:"exclude" yaml:"exclude"`
	Hash         struct {
		Algorithm string `mapstructure:"algorithm" yaml:"algorithm"`
	} `mapstructure:"hash" yaml:"hash"`
	Archive struct {
		Patterns []string `mapstructure:"patterns" yaml:"patterns"`
		MaxDepth int      `mapstructure:"max_depth" yaml:"max_depth"`
	} `mapstructure:"archive" yaml:"archive"`
	Workers struct {
		Walk int `mapstructure:"walk" yaml:"walk"`
		Hash int `mapstructure:"hash" yaml:"hash"`
	} `mapstructure:"workers" yaml:"workers"`
	TextDiff struct {
		ProbeSize int    `mapstructure:"probe_size" yaml:"probe_size"`
		MaxSize   string `mapstructure:"max_size" yaml:"max_size"`
		Context   int    `mapstructure:"context" yaml:"context"`
	} `mapstructure:"text_diff" yaml:"text_diff"`
	Scratch struct {
		RemoveRetries int           `mapstructure:"remove_retries" yaml:"remove_retries"`
		RetryDelay    time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	} `mapstructure:"scratch" yaml:"scratch"`
	Tool struct {
		Path string   `mapstructure:"path" yaml:"path"`
		Args []string `mapstructure:"args" yaml:"args"`
	} `mapstructure:"tool" yaml:"tool"`
	History struct {
		Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
		Path          string `mapstructure:"path" yaml:"path"`
		RetentionDays int    `mapstructure:"retention_days" yaml:"retention_days"`
	} `mapstructure:"history" yaml:"history"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// New returns a viper instance with defaults, config search paths and
// JARDIFF_ environment binding. A non-empty configFile replaces the search
// paths. Callers may bind flags to it before calling LoadFrom.
func New(configFile string) *viper.Viper {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
	}

	v.SetEnvPrefix("JARDIFF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
	return v
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("cache_dir", CacheDir())
	v.SetDefault("keep_cache", false)
	v.SetDefault("compare_mtime", false)
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("exclude", []string{})
	v.SetDefault("hash.algorithm", DefaultHashAlgorithm)
	v.SetDefault("archive.patterns", DefaultArchivePatterns)
	v.SetDefault("archive.max_depth", DefaultArchiveDepth)
	v.SetDefault("workers.walk", 0) // 0 means auto-tune
	v.SetDefault("workers.hash", 0)
	v.SetDefault("text_diff.probe_size", DefaultProbeSize)
	v.SetDefault("text_diff.max_size", DefaultTextMaxSize)
	v.SetDefault("text_diff.context", DefaultTextContext)
	v.SetDefault("scratch.remove_retries", DefaultRemoveRetries)
	v.SetDefault("scratch.retry_delay", DefaultRetryDelay)
	v.SetDefault("tool.path", "")
	v.SetDefault("tool.args", []string{})
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", HistoryDir())
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.max_size", "10MB")
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.components", map[string]string{})
}

// Load loads configuration from the default file location and environment.
func Load() (*Config, error) {
	return LoadFrom(New(""))
}

// LoadFrom reads the config file known to v, if any, and decodes the
// merged settings.
func LoadFrom(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var err error
	if cfg.CacheDir, err = ExpandPath(cfg.CacheDir); err != nil {
		return nil, err
	}
	if cfg.History.Path, err = ExpandPath(cfg.History.Path); err != nil {
		return nil, err
	}
	if cfg.Logging.Path, err = ExpandPath(cfg.Logging.Path); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be decoded structurally.
func (c *Config) Validate() error {
	if _, err := hasher.ParseAlgorithm(c.Hash.Algorithm); err != nil {
		return fmt.Errorf("hash.algorithm: %w", err)
	}
	if _, err := types.ParseSize(c.TextDiff.MaxSize); err != nil {
		return fmt.Errorf("text_diff.max_size: %w", err)
	}
	if c.Logging.MaxSize != "" {
		if _, err := types.ParseSize(c.Logging.MaxSize); err != nil {
			return fmt.Errorf("logging.max_size: %w", err)
		}
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Archive.MaxDepth < 0 {
		return fmt.Errorf("archive.max_depth must not be negative: %d", c.Archive.MaxDepth)
	}
	if c.Workers.Walk < 0 || c.Workers.Hash < 0 {
		return errors.New("workers must not be negative")
	}
	return nil
}

// LoggingSettings converts the logging section for logging.Init.
func (c *Config) LoggingSettings() logging.Config {
	out := logging.DefaultConfig()
	if c.Logging.Level != "" {
		out.Level = c.Logging.Level
	}
	if c.Logging.Path != "" {
		out.Path = c.Logging.Path
	}
	if c.Logging.MaxSize != "" {
		if size, err := types.ParseSize(c.Logging.MaxSize); err == nil {
			out.MaxSize = size
		}
	}
	if c.Logging.MaxBackups > 0 {
		out.MaxBackups = c.Logging.MaxBackups
	}
	out.Components = c.Logging.Components
	return out
}

// ConfigDir returns the configuration directory, honoring XDG_CONFIG_HOME.
func ConfigDir() string {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "jardiff")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "jardiff")
	}
	return filepath.Join(xdg.ConfigHome, "jardiff")
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// CacheDir returns $XDG_CACHE_HOME/jardiff/, the default scratch base.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, "jardiff")
}

// StateDir returns $XDG_STATE_HOME/jardiff/ for logs and history.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "jardiff")
}

// HistoryDir returns the default history directory.
func HistoryDir() string {
	return filepath.Join(StateDir(), "history")
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// WriteDefault writes a commented default config file to path, creating its
// directory. An existing file is left alone and reported through the bool.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	content := fmt.Sprintf(`# jardiff configuration

# Base directory for archive scratch space
cache_dir: %s

# Leave extracted archives on disk after the run
keep_cache: false

# Report files whose content matches but whose modification time differs
compare_mtime: false

# Default output: pretty, plain, json, jsonl, yaml, template
output: %s

# Glob patterns over logical paths to skip while building trees
exclude: []

hash:
  # sha256 or md5
  algorithm: %s

archive:
  # File names expanded and compared member by member
  patterns:
    - "*.jar"
    - "*.zip"
  max_depth: %d

# Worker counts (0 means derived from the machine)
workers:
  walk: 0
  hash: 0

# Text diffs shown by "jardiff file" and the interactive browser
text_diff:
  probe_size: %d
  max_size: %s
  context: %d

scratch:
  remove_retries: %d
  retry_delay: %s

# External visual diff tool (empty means look for a known one)
tool:
  path: ""
  args: []

history:
  enabled: true
  path: %s
  retention_days: %d

logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/jardiff/jardiff.log)
  path: ""
  max_size: 10MB
  max_backups: 3
  # Per-component log levels, e.g. tree: debug
  components: {}
`, CacheDir(), DefaultOutput, DefaultHashAlgorithm, DefaultArchiveDepth,
		DefaultProbeSize, DefaultTextMaxSize, DefaultTextContext,
		DefaultRemoveRetries, DefaultRetryDelay, HistoryDir(), DefaultRetentionDays)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("failed to write default config: %w", err)
	}
	return true, nil
}
