package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.True(t, strings.HasPrefix(cfg.Database.DSN, "cronnext.db"))
	assert.Equal(t, 8, cfg.Database.MaxOpenConns)
	assert.False(t, cfg.Database.SkipMigrations)

	assert.Equal(t, 1*time.Second, cfg.Runner.LoopInterval)
	assert.Equal(t, 16, cfg.Runner.MaxConcurrentFires)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
[database]
dsn = "/var/lib/cronnext/state.db"
max_open_conns = 4

[runner]
loop_interval = "500ms"
lookahead_window = "30m"
max_concurrent_fires = 4

[logging]
level = "debug"
format = "text"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/cronnext/state.db", cfg.Database.DSN)
	assert.Equal(t, 4, cfg.Database.MaxOpenConns)
	assert.Equal(t, 500*time.Millisecond, cfg.Runner.LoopInterval)
	assert.Equal(t, 30*time.Minute, cfg.Runner.LookaheadWindow)
	assert.Equal(t, 4, cfg.Runner.MaxConcurrentFires)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)

	// Defaults survive for keys the file leaves out
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 2, cfg.Database.MaxIdleConns)
	assert.Equal(t, time.Minute, cfg.Runner.IndexRebuildInterval)
}

func TestLoadFromFile_NotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/config.toml")
	assert.ErrorContains(t, err, "does not exist")
}

func TestLoadFromFile_Malformed(t *testing.T) {
	_, err := LoadFromFile(writeConfig(t, "[database\n"))
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestLoadFromFile_UnknownKey(t *testing.T) {
	_, err := LoadFromFile(writeConfig(t, "[runner]\npre_schedule_interval = \"10s\"\n"))
	assert.ErrorContains(t, err, "runner.pre_schedule_interval")
}

func TestLoadConfig_NoFile(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty driver", func(c *Config) { c.Database.Driver = "" }, "driver must be specified"},
		{"unsupported driver", func(c *Config) { c.Database.Driver = "postgres" }, "unsupported database driver"},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }, "DSN must be specified"},
		{"runner", func(c *Config) { c.Runner.LoopInterval = 0 }, "runner: LoopInterval must be positive"},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "invalid log level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestLoggingConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := LoggingConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "schedule_id", "abc")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"schedule_id":"abc"`)

	buf.Reset()
	logger, err = LoggingConfig{Level: "debug", Format: "text"}.NewLogger(&buf)
	require.NoError(t, err)
	logger.Debug("tick")
	assert.Contains(t, buf.String(), "msg=tick")

	_, err = LoggingConfig{Level: "info", Format: "xml"}.NewLogger(&buf)
	assert.Error(t, err)
}
