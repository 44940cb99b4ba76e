// Package config loads the waypoint daemon configuration.
package config

import (
	"time"

	"github.com/mattjoyce/waypoint/internal/auth"
)

// Config is the complete waypoint configuration.
type Config struct {
	Service   ServiceConfig `yaml:"service"`
	State     StateConfig   `yaml:"state"`
	API       APIConfig     `yaml:"api"`
	Workspace string        `yaml:"workspace" env:"WAYPOINT_WORKSPACE"`
	SkillsDir string        `yaml:"skills_dir" env:"WAYPOINT_SKILLS_DIR"`

	// SourcePath is the absolute path of the loaded file, empty for defaults.
	SourcePath string `yaml:"-"`
}

type ServiceConfig struct {
	LogLevel        string        `yaml:"log_level" env:"WAYPOINT_LOG_LEVEL"`
	LogFormat       string        `yaml:"log_format" env:"WAYPOINT_LOG_FORMAT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	WatchSkills     *bool         `yaml:"watch_skills,omitempty"`
}

// StateConfig locates the database and the daemon PID lock.
type StateConfig struct {
	Path     string `yaml:"path" env:"WAYPOINT_DB"`
	LockPath string `yaml:"lock_path"`
}

// APIConfig defines the RPC listener.
type APIConfig struct {
	// Listen is host:port or unix:/path.
	Listen string             `yaml:"listen" env:"WAYPOINT_LISTEN"`
	Tokens []auth.TokenConfig `yaml:"tokens,omitempty"`
}

// Watching reports whether skill manifests are re-synced on change.
func (s ServiceConfig) Watching() bool {
	return s.WatchSkills == nil || *s.WatchSkills
}

// Defaults returns the configuration used when no file is given. Relative
// paths are resolved against the config directory by Load.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			LogLevel:        "info",
			LogFormat:       "json",
			ShutdownTimeout: 10 * time.Second,
		},
		State: StateConfig{
			Path:     "data/waypoint.db",
			LockPath: "data/waypoint.lock",
		},
		API: APIConfig{
			Listen: "unix:data/waypoint.sock",
		},
		Workspace: ".",
		SkillsDir: "skills",
	}
}
