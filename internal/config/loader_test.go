package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mattjoyce/waypoint/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseEmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("service:\n  tick_interval: 5s\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tick_interval")
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
service:
  log_level: debug
  shutdown_timeout: 3s
state:
  path: state/wp.db
workspace: work
skills_dir: my-skills
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.SourcePath)
	assert.Equal(t, "debug", cfg.Service.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.Service.ShutdownTimeout)
	assert.Equal(t, filepath.Join(dir, "state", "wp.db"), cfg.State.Path)
	assert.Equal(t, filepath.Join(dir, "data", "waypoint.lock"), cfg.State.LockPath)
	assert.Equal(t, filepath.Join(dir, "work"), cfg.Workspace)
	assert.Equal(t, filepath.Join(dir, "work", "my-skills"), cfg.SkillsDir)
	assert.Equal(t, "unix:"+filepath.Join(dir, "data", "waypoint.sock"), cfg.API.Listen)
	assert.True(t, cfg.Service.Watching())
}

func TestLoadDirectoryFindsDefaultFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "service:\n  log_format: text\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Service.LogFormat)
}

func TestLoadInterpolatesEnv(t *testing.T) {
	t.Setenv("WP_TEST_TOKEN", "s3cret")
	dir := t.TempDir()
	path := writeConfig(t, dir, `
api:
  listen: 127.0.0.1:7788
  tokens:
    - name: ci
      token: ${WP_TEST_TOKEN}
      scopes: ["rpc:ro"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.API.Tokens, 1)
	assert.Equal(t, "s3cret", cfg.API.Tokens[0].Token)
}

func TestLoadReportsUnsetTokenVariable(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
api:
  tokens:
    - name: ci
      token: ${WP_TEST_DEFINITELY_UNSET}
      scopes: ["*"]
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "${WP_TEST_DEFINITELY_UNSET} is not set")
}

func TestEnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WAYPOINT_DB", "override.db")
	t.Setenv("WAYPOINT_LOG_LEVEL", "warn")
	t.Setenv("WAYPOINT_LISTEN", "unix:/tmp/wp-test.sock")
	t.Setenv("WAYPOINT_WORKSPACE", filepath.Join(dir, "ws"))

	path := writeConfig(t, dir, "state:\n  path: file.db\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "override.db"), cfg.State.Path)
	assert.Equal(t, "warn", cfg.Service.LogLevel)
	assert.Equal(t, "unix:/tmp/wp-test.sock", cfg.API.Listen)
	assert.Equal(t, filepath.Join(dir, "ws"), cfg.Workspace)
	assert.Equal(t, filepath.Join(dir, "ws", "skills"), cfg.SkillsDir)
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadDefaults(dir)
	require.NoError(t, err)
	assert.Empty(t, cfg.SourcePath)
	assert.Equal(t, filepath.Join(dir, "data", "waypoint.db"), cfg.State.Path)
	assert.Equal(t, dir, cfg.ManifestDir())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestFind(t *testing.T) {
	path, ok, err := Find("explicit.yaml")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "explicit.yaml", path)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := Defaults()
		cfg.Workspace = "/ws"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Service.LogLevel = "verbose" },
			wantErr: "service.log_level",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Service.LogFormat = "xml" },
			wantErr: "service.log_format",
		},
		{
			name:    "missing state path",
			mutate:  func(c *Config) { c.State.Path = "" },
			wantErr: "state.path is required",
		},
		{
			name:    "tcp without tokens",
			mutate:  func(c *Config) { c.API.Listen = "127.0.0.1:9000" },
			wantErr: "at least one token",
		},
		{
			name:    "malformed tcp address",
			mutate:  func(c *Config) { c.API.Listen = "localhost" },
			wantErr: "api.listen",
		},
		{
			name:    "empty unix path",
			mutate:  func(c *Config) { c.API.Listen = "unix:" },
			wantErr: "unix socket path is empty",
		},
		{
			name: "unknown scope",
			mutate: func(c *Config) {
				c.API.Tokens = []auth.TokenConfig{{Name: "a", Token: "t", Scopes: []string{"root"}}}
			},
			wantErr: `unknown scope "root"`,
		},
		{
			name: "duplicate token names",
			mutate: func(c *Config) {
				c.API.Tokens = []auth.TokenConfig{
					{Name: "a", Token: "t1", Scopes: []string{"*"}},
					{Name: "a", Token: "t2", Scopes: []string{"*"}},
				}
			},
			wantErr: `duplicate name "a"`,
		},
		{
			name: "tcp with tokens",
			mutate: func(c *Config) {
				c.API.Listen = ":9000"
				c.API.Tokens = []auth.TokenConfig{{Name: "a", Token: "t", Scopes: []string{"rpc:rw"}}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "error %q should contain %q", err, tt.wantErr)
		})
	}
}
