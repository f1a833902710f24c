package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/loykin/recipebook/internal/history/retention"
	"github.com/loykin/recipebook/internal/logger"
)

// EnvPrefix is prepended to every environment override, e.g.
// RECIPEBOOK_SERVER_LISTEN or RECIPEBOOK_HISTORY_DSN.
const EnvPrefix = "RECIPEBOOK"

// Config represents the top-level configuration file (TOML or YAML).
type Config struct {
	EnvFiles []string      `toml:"env_files" mapstructure:"env_files"`
	Server   ServerConfig  `toml:"server" mapstructure:"server"`
	Data     DataConfig    `toml:"data" mapstructure:"data"`
	Log      LogConfig     `toml:"log" mapstructure:"log"`
	Metrics  MetricsConfig `toml:"metrics" mapstructure:"metrics"`
	History  HistoryConfig `toml:"history" mapstructure:"history"`

	// File is the config file the values were read from, empty for defaults.
	File string `toml:"-" mapstructure:"-"`
}

type ServerConfig struct {
	Listen   string    `toml:"listen" mapstructure:"listen"`
	BasePath string    `toml:"base_path" mapstructure:"base_path"`
	TLS      TLSConfig `toml:"tls" mapstructure:"tls"`
}

type TLSConfig struct {
	Enabled    bool   `toml:"enabled" mapstructure:"enabled"`
	CertFile   string `toml:"cert_file" mapstructure:"cert_file"`
	KeyFile    string `toml:"key_file" mapstructure:"key_file"`
	MinVersion string `toml:"min_version" mapstructure:"min_version"`
}

// DataConfig locates the recipe file and the timing file.
type DataConfig struct {
	Recipes string `toml:"recipes" mapstructure:"recipes"`
	Timings string `toml:"timings" mapstructure:"timings"`
}

type LogConfig struct {
	Level      string `toml:"level" mapstructure:"level"`
	Format     string `toml:"format" mapstructure:"format"`
	File       string `toml:"file" mapstructure:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Path    string `toml:"path" mapstructure:"path"`
	// ProcessInterval samples the server's CPU and memory; 0 disables it.
	ProcessInterval time.Duration `toml:"process_interval" mapstructure:"process_interval"`
}

type HistoryConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	DSN     string `toml:"dsn" mapstructure:"dsn"`
	// Retention deletes older events on sqlite and postgres sinks; 0 keeps everything.
	Retention     time.Duration `toml:"retention" mapstructure:"retention"`
	PruneSchedule string        `toml:"prune_schedule" mapstructure:"prune_schedule"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Listen: ":8080",
			TLS:    TLSConfig{MinVersion: "1.2"},
		},
		Data: DataConfig{
			Recipes: "recipes.yaml",
			Timings: "timings.yaml",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     logger.FormatText,
			MaxSizeMB:  logger.DefaultMaxSizeMB,
			MaxBackups: logger.DefaultMaxBackups,
			MaxAgeDays: logger.DefaultMaxAgeDays,
		},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics", ProcessInterval: 15 * time.Second},
		History: HistoryConfig{PruneSchedule: retention.DefaultSchedule},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("env_files", d.EnvFiles)
	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.base_path", d.Server.BasePath)
	v.SetDefault("server.tls.enabled", d.Server.TLS.Enabled)
	v.SetDefault("server.tls.cert_file", d.Server.TLS.CertFile)
	v.SetDefault("server.tls.key_file", d.Server.TLS.KeyFile)
	v.SetDefault("server.tls.min_version", d.Server.TLS.MinVersion)
	v.SetDefault("data.recipes", d.Data.Recipes)
	v.SetDefault("data.timings", d.Data.Timings)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.compress", d.Log.Compress)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("metrics.process_interval", d.Metrics.ProcessInterval)
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.dsn", d.History.DSN)
	v.SetDefault("history.retention", d.History.Retention)
	v.SetDefault("history.prune_schedule", d.History.PruneSchedule)
}

// configType picks the viper decoder from the file extension; TOML is the default.
func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "toml"
	}
}

// LoadConfig reads the config file at path, loads its env_files, applies
// RECIPEBOOK_* environment overrides and resolves relative paths against
// the file's directory. An empty path yields Default() plus overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	baseDir := ""
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType(configType(path))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		baseDir = filepath.Dir(path)
	}

	// env files never override variables already set in the process
	files := resolveAll(baseDir, v.GetStringSlice("env_files"))
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return nil, fmt.Errorf("load env_files: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	c.EnvFiles = files
	c.File = path
	c.resolvePaths(baseDir)
	return &c, nil
}

func (c *Config) resolvePaths(baseDir string) {
	c.Data.Recipes = resolve(baseDir, c.Data.Recipes)
	c.Data.Timings = resolve(baseDir, c.Data.Timings)
	c.Log.File = resolve(baseDir, c.Log.File)
	c.Server.TLS.CertFile = resolve(baseDir, c.Server.TLS.CertFile)
	c.Server.TLS.KeyFile = resolve(baseDir, c.Server.TLS.KeyFile)
}

func resolve(baseDir, p string) string {
	if p == "" || baseDir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

func resolveAll(baseDir string, ps []string) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, resolve(baseDir, p))
		}
	}
	return out
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Listen) == "" {
		errs = append(errs, errors.New("server.listen is required"))
	}
	if c.Data.Recipes == "" {
		errs = append(errs, errors.New("data.recipes is required"))
	}
	if c.Data.Timings == "" {
		errs = append(errs, errors.New("data.timings is required"))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", logger.FormatText, logger.FormatJSON, logger.FormatColor:
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path must start with '/': %q", c.Metrics.Path))
	}
	if c.Metrics.ProcessInterval < 0 {
		errs = append(errs, fmt.Errorf("metrics.process_interval must not be negative: %s", c.Metrics.ProcessInterval))
	}
	if c.History.Enabled && strings.TrimSpace(c.History.DSN) == "" {
		errs = append(errs, errors.New("history.dsn is required when history is enabled"))
	}
	if c.History.Retention < 0 {
		errs = append(errs, fmt.Errorf("history.retention must not be negative: %s", c.History.Retention))
	}
	if c.History.Enabled && c.History.Retention > 0 {
		if err := retention.ValidateSchedule(c.History.PruneSchedule); err != nil {
			errs = append(errs, fmt.Errorf("history.prune_schedule: %w", err))
		}
	}
	if t := c.Server.TLS; t.Enabled {
		if t.CertFile == "" || t.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires cert_file and key_file when enabled"))
		}
		switch t.MinVersion {
		case "", "1.2", "1.3":
		default:
			errs = append(errs, fmt.Errorf("server.tls.min_version: unsupported %q", t.MinVersion))
		}
	}
	return errors.Join(errs...)
}

// Logger converts the [log] section into a logger.Config.
func (l LogConfig) Logger() logger.Config {
	return logger.Config{
		Level:  l.Level,
		Format: l.Format,
		File: logger.FileConfig{
			Path:       l.File,
			MaxSizeMB:  l.MaxSizeMB,
			MaxBackups: l.MaxBackups,
			MaxAgeDays: l.MaxAgeDays,
			Compress:   l.Compress,
		},
	}
}
