package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points config lookups at an empty temp dir so the developer's
// own files and environment never leak into a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	for _, key := range []string{
		"PARTCHAT_CONFIG", "PARTCHAT_SERVER_URL", "PARTCHAT_CLIENT_TIMEOUT",
		"PARTCHAT_ENABLE_VALIDATION", "PARTCHAT_VALIDATION_THRESHOLD",
		"PARTCHAT_RETAILER_DOMAINS", "PARTCHAT_LOG_FILE", "PARTCHAT_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PARTCHAT_SERVER_URL", "http://api.test:9000")
	t.Setenv("PARTCHAT_CLIENT_TIMEOUT", "30s")
	t.Setenv("PARTCHAT_ENABLE_VALIDATION", "false")
	t.Setenv("PARTCHAT_VALIDATION_THRESHOLD", "55")
	t.Setenv("PARTCHAT_RETAILER_DOMAINS", "partselect.com, example.test ,")
	t.Setenv("PARTCHAT_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://api.test:9000", cfg.ServerURL)
	assert.Equal(t, 30*time.Second, cfg.ClientTimeout)
	assert.False(t, cfg.EnableValidation)
	assert.Equal(t, 55, cfg.ValidationThreshold)
	assert.Equal(t, []string{"partselect.com", "example.test"}, cfg.RetailerDomains)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_url: http://from-file:8000
client_timeout: 45s
retailer_domains: [shop.test]
validation:
  enabled: false
  threshold: 90
logging:
  file: /tmp/from-file.log
  level: warn
`), 0o644))
	t.Setenv("PARTCHAT_CONFIG", path)
	t.Setenv("PARTCHAT_VALIDATION_THRESHOLD", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://from-file:8000", cfg.ServerURL)
	assert.Equal(t, 45*time.Second, cfg.ClientTimeout)
	assert.Equal(t, []string{"shop.test"}, cfg.RetailerDomains)
	assert.False(t, cfg.EnableValidation)
	assert.Equal(t, 10, cfg.ValidationThreshold, "env wins over file")
	assert.Equal(t, "/tmp/from-file.log", cfg.LogFile)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
}

func TestLoad_WorkingDirectoryFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "partchat.yaml"), []byte("server_url: http://cwd:1\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://cwd:1", cfg.ServerURL)
}

func TestLoad_TOMLFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "partchat.toml"), []byte(`
server_url = "http://toml:8000"
retailer_domains = ["partselect.com", "parts.test"]

[validation]
enabled = false
threshold = 40
`), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://toml:8000", cfg.ServerURL)
	assert.Equal(t, []string{"partselect.com", "parts.test"}, cfg.RetailerDomains)
	assert.False(t, cfg.EnableValidation)
	assert.Equal(t, 40, cfg.ValidationThreshold)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
		want string
	}{
		{
			name: "threshold out of range",
			env:  map[string]string{"PARTCHAT_VALIDATION_THRESHOLD": "101"},
			want: "validation threshold",
		},
		{
			name: "bad timeout",
			env:  map[string]string{"PARTCHAT_CLIENT_TIMEOUT": "soon"},
			want: "PARTCHAT_CLIENT_TIMEOUT",
		},
		{
			name: "bad bool",
			env:  map[string]string{"PARTCHAT_ENABLE_VALIDATION": "maybe"},
			want: "PARTCHAT_ENABLE_VALIDATION",
		},
		{
			name: "malformed yaml",
			file: "server_url: [unterminated",
			want: "parse config file",
		},
		{
			name: "bad file duration",
			file: "client_timeout: forever",
			want: "client_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.file != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "partchat.yaml"), []byte(tt.file), 0o644))
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFromPath_Missing(t *testing.T) {
	isolate(t)
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var console, file bytes.Buffer
	logger := SetupLoggerWithWriters(&console, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("session created", "session_id", "abc")

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "session_id=abc")
	assert.True(t, strings.HasPrefix(file.String(), "{"), "file output should be JSON")
	assert.Contains(t, file.String(), `"session_id":"abc"`)
}

func TestSetupLogger_FileOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partchat.log")
	logger, cleanup := SetupLogger(path, slog.LevelInfo, nil)
	logger.Info("hello")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}
