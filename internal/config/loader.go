package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file name looked up in a directory.
const DefaultFile = "waypoint.yaml"

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads a config file, or waypoint.yaml inside a directory, then
// applies WAYPOINT_* environment overrides, resolves relative paths against
// the file's directory and validates the result. If a .checksums manifest
// sits next to the file, the file must match it.
func Load(path string) (*Config, error) {
	return load(path, true)
}

// LoadUnverified is Load without the checksum comparison, for relocking a
// file that was edited on purpose.
func LoadUnverified(path string) (*Config, error) {
	return load(path, false)
}

func load(path string, verify bool) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path %q: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}
	if info.IsDir() {
		abs = filepath.Join(abs, DefaultFile)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if verify {
		if err := verifyConfigHash(abs); err != nil {
			return nil, err
		}
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", abs, err)
	}
	cfg.SourcePath = abs
	return finish(cfg, filepath.Dir(abs))
}

// LoadDefaults builds a config without a file, rooted at dir.
func LoadDefaults(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", dir, err)
	}
	return finish(Defaults(), abs)
}

// Parse decodes YAML over Defaults after ${VAR} interpolation. It neither
// applies environment overrides nor validates.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(strings.NewReader(interpolateEnv(string(data))))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func finish(cfg *Config, baseDir string) (*Config, error) {
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.resolvePaths(baseDir)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) resolvePaths(baseDir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}
	c.Workspace = abs(c.Workspace)
	c.State.Path = abs(c.State.Path)
	c.State.LockPath = abs(c.State.LockPath)
	if c.SkillsDir != "" && !filepath.IsAbs(c.SkillsDir) {
		c.SkillsDir = filepath.Join(c.Workspace, c.SkillsDir)
	}
	if sock, ok := strings.CutPrefix(c.API.Listen, "unix:"); ok {
		c.API.Listen = "unix:" + abs(sock)
	}
}

// interpolateEnv replaces ${VAR} with its value. Unset variables are left in
// place so validation can name them.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
}

// Find returns the config file to use: path itself when given, otherwise
// waypoint.yaml in the working directory. ok is false when nothing exists
// and the caller should fall back to defaults.
func Find(path string) (string, bool, error) {
	if path != "" {
		return path, true, nil
	}
	if _, err := os.Stat(DefaultFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return DefaultFile, true, nil
}
