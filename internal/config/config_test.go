package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadConfig_EmptyPathUsesDefaults(t *testing.T) {
	c, err := LoadConfig("")
	require.NoError(t, err)
	d := Default()
	assert.Equal(t, d.Server.Listen, c.Server.Listen)
	assert.Equal(t, "recipes.yaml", c.Data.Recipes)
	assert.Equal(t, "timings.yaml", c.Data.Timings)
	assert.True(t, c.Metrics.Enabled)
	assert.Equal(t, "/metrics", c.Metrics.Path)
	assert.False(t, c.History.Enabled)
	assert.Equal(t, 15*time.Second, c.Metrics.ProcessInterval)
	assert.Zero(t, c.History.Retention)
	assert.Equal(t, "@daily", c.History.PruneSchedule)
	assert.Empty(t, c.File)
	require.NoError(t, c.Validate())
}

func TestLoadConfig_TOML(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "recipebook.toml", `
[server]
listen = "127.0.0.1:9090"
base_path = "/kitchen"
  [server.tls]
  enabled = true
  cert_file = "certs/tls.crt"
  key_file = "/etc/recipebook/tls.key"
  min_version = "1.3"
[data]
recipes = "data/recipes.yaml"
timings = "data/timings.yaml"
[log]
level = "debug"
format = "json"
file = "logs/recipebook.log"
max_size_mb = 5
compress = true
[metrics]
enabled = false
process_interval = "30s"
[history]
enabled = true
dsn = "sqlite://:memory:"
retention = "720h"
prune_schedule = "0 3 * * *"
`)
	c, err := LoadConfig(p)
	require.NoError(t, err)

	assert.Equal(t, p, c.File)
	assert.Equal(t, "127.0.0.1:9090", c.Server.Listen)
	assert.Equal(t, "/kitchen", c.Server.BasePath)
	assert.True(t, c.Server.TLS.Enabled)
	assert.Equal(t, filepath.Join(dir, "certs/tls.crt"), c.Server.TLS.CertFile)
	assert.Equal(t, "/etc/recipebook/tls.key", c.Server.TLS.KeyFile)
	assert.Equal(t, "1.3", c.Server.TLS.MinVersion)
	assert.Equal(t, filepath.Join(dir, "data/recipes.yaml"), c.Data.Recipes)
	assert.Equal(t, filepath.Join(dir, "data/timings.yaml"), c.Data.Timings)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "json", c.Log.Format)
	assert.Equal(t, filepath.Join(dir, "logs/recipebook.log"), c.Log.File)
	assert.Equal(t, 5, c.Log.MaxSizeMB)
	assert.Equal(t, 3, c.Log.MaxBackups, "unset keys keep defaults")
	assert.True(t, c.Log.Compress)
	assert.False(t, c.Metrics.Enabled)
	assert.True(t, c.History.Enabled)
	assert.Equal(t, "sqlite://:memory:", c.History.DSN)
	assert.Equal(t, 30*time.Second, c.Metrics.ProcessInterval)
	assert.Equal(t, 720*time.Hour, c.History.Retention)
	assert.Equal(t, "0 3 * * *", c.History.PruneSchedule)
	require.NoError(t, c.Validate())

	lc := c.Log.Logger()
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, c.Log.File, lc.File.Path)
	assert.Equal(t, 5, lc.File.MaxSizeMB)
	assert.True(t, lc.File.Compress)
}

func TestLoadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "recipebook.yaml", `
server:
  listen: ":7070"
data:
  recipes: r.yaml
  timings: t.yaml
history:
  enabled: true
  dsn: postgres://cook@localhost/recipebook
`)
	c, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, ":7070", c.Server.Listen)
	assert.Equal(t, filepath.Join(dir, "r.yaml"), c.Data.Recipes)
	assert.Equal(t, "postgres://cook@localhost/recipebook", c.History.DSN)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "recipebook.toml", `
[server]
listen = ":8080"
[history]
enabled = false
`)
	t.Setenv("RECIPEBOOK_SERVER_LISTEN", ":9999")
	t.Setenv("RECIPEBOOK_HISTORY_ENABLED", "true")
	t.Setenv("RECIPEBOOK_HISTORY_DSN", "sqlite://history.db")
	t.Setenv("RECIPEBOOK_SERVER_BASE_PATH", "/roast")

	c, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, ":9999", c.Server.Listen)
	assert.True(t, c.History.Enabled)
	assert.Equal(t, "sqlite://history.db", c.History.DSN)
	assert.Equal(t, "/roast", c.Server.BasePath)
}

func TestLoadConfig_EnvDurations(t *testing.T) {
	t.Setenv("RECIPEBOOK_METRICS_PROCESS_INTERVAL", "1m")
	t.Setenv("RECIPEBOOK_HISTORY_RETENTION", "48h")
	c, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, c.Metrics.ProcessInterval)
	assert.Equal(t, 48*time.Hour, c.History.Retention)
}

func TestLoadConfig_EnvFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "# kitchen settings\nRECIPEBOOK_LOG_LEVEL=warn\nRECIPEBOOK_SERVER_LISTEN=:6060\n")
	p := writeFile(t, dir, "recipebook.toml", `env_files = [".env"]`)
	t.Cleanup(func() { _ = os.Unsetenv("RECIPEBOOK_LOG_LEVEL") })
	// already set in the process: the env file must not win
	t.Setenv("RECIPEBOOK_SERVER_LISTEN", ":5050")

	c, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, ".env")}, c.EnvFiles)
	assert.Equal(t, "warn", c.Log.Level)
	assert.Equal(t, ":5050", c.Server.Listen)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")

	bad := writeFile(t, dir, "bad.toml", "[server\nlisten = ")
	_, err = LoadConfig(bad)
	require.Error(t, err)

	missingEnv := writeFile(t, dir, "envs.toml", `env_files = ["nope.env"]`)
	_, err = LoadConfig(missingEnv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "env_files")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"default ok", func(c *Config) {}, ""},
		{"empty listen", func(c *Config) { c.Server.Listen = " " }, "server.listen"},
		{"empty recipes", func(c *Config) { c.Data.Recipes = "" }, "data.recipes"},
		{"empty timings", func(c *Config) { c.Data.Timings = "" }, "data.timings"},
		{"bad level", func(c *Config) { c.Log.Level = "chatty" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, "metrics.path"},
		{"metrics path ignored when disabled", func(c *Config) { c.Metrics.Enabled = false; c.Metrics.Path = "" }, ""},
		{"history without dsn", func(c *Config) { c.History.Enabled = true }, "history.dsn"},
		{"negative process interval", func(c *Config) { c.Metrics.ProcessInterval = -time.Second }, "metrics.process_interval"},
		{"negative retention", func(c *Config) { c.History.Retention = -time.Hour }, "history.retention"},
		{"bad prune schedule", func(c *Config) {
			c.History = HistoryConfig{Enabled: true, DSN: "sqlite://h.db", Retention: time.Hour, PruneSchedule: "sometimes"}
		}, "history.prune_schedule"},
		{"schedule ignored without retention", func(c *Config) {
			c.History = HistoryConfig{Enabled: true, DSN: "sqlite://h.db", PruneSchedule: "sometimes"}
		}, ""},
		{"tls without files", func(c *Config) { c.Server.TLS.Enabled = true }, "cert_file"},
		{"tls bad version", func(c *Config) {
			c.Server.TLS = TLSConfig{Enabled: true, CertFile: "a", KeyFile: "b", MinVersion: "1.0"}
		}, "min_version"},
		{"tls ok", func(c *Config) {
			c.Server.TLS = TLSConfig{Enabled: true, CertFile: "a", KeyFile: "b", MinVersion: "1.3"}
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	c := Default()
	c.Server.Listen = ""
	c.Log.Level = "loud"
	err := c.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.True(t, strings.Contains(msg, "server.listen") && strings.Contains(msg, "log.level"), msg)
}
