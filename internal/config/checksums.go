package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// ChecksumFile is the manifest name written next to the config file.
const ChecksumFile = ".checksums"

// ErrNoManifest is returned when a directory has no checksum manifest.
var ErrNoManifest = errors.New("no checksum manifest")

// ChecksumManifest maps files, relative to the manifest directory, to their
// BLAKE3 digests.
type ChecksumManifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

// FileStatus is the integrity state of one file.
type FileStatus struct {
	Path     string
	Expected string
	Actual   string
	Problem  string
}

// IntegrityReport lists every file checked and what was wrong with it.
type IntegrityReport struct {
	ManifestPath string
	Files        []FileStatus
}

// OK reports whether every file matched.
func (r *IntegrityReport) OK() bool {
	for _, f := range r.Files {
		if f.Problem != "" {
			return false
		}
	}
	return true
}

// HashFile computes the hex BLAKE3 digest of a file.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return HashBytes(data), nil
}

// HashBytes computes the hex BLAKE3 digest of data.
func HashBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// IntegrityFiles returns the files covered by the manifest: the config file
// and every skill manifest.
func (c *Config) IntegrityFiles() ([]string, error) {
	var files []string
	if c.SourcePath != "" {
		files = append(files, c.SourcePath)
	}
	if c.SkillsDir != "" {
		matches, err := filepath.Glob(filepath.Join(c.SkillsDir, "*", "skill.yaml"))
		if err != nil {
			return nil, fmt.Errorf("glob skill manifests: %w", err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// ManifestDir is where .checksums lives.
func (c *Config) ManifestDir() string {
	if c.SourcePath != "" {
		return filepath.Dir(c.SourcePath)
	}
	return c.Workspace
}

// Lock hashes files and writes the manifest into dir.
func Lock(dir string, files []string) (*ChecksumManifest, error) {
	m := &ChecksumManifest{
		Version:     1,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Hashes:      make(map[string]string, len(files)),
	}
	for _, f := range files {
		sum, err := HashFile(f)
		if err != nil {
			return nil, err
		}
		m.Hashes[manifestKey(dir, f)] = sum
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal checksums: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ChecksumFile), data, 0o600); err != nil {
		return nil, fmt.Errorf("write checksums: %w", err)
	}
	return m, nil
}

// LoadChecksums reads the manifest in dir.
func LoadChecksums(dir string) (*ChecksumManifest, error) {
	path := filepath.Join(dir, ChecksumFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s (run 'waypoint config lock')", ErrNoManifest, path)
		}
		return nil, fmt.Errorf("read checksums: %w", err)
	}

	var m ChecksumManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse checksums: %w", err)
	}
	if m.Version != 1 {
		return nil, fmt.Errorf("unsupported checksums version: %d", m.Version)
	}
	return &m, nil
}

// Check compares files against the manifest in dir. Files listed in the
// manifest but no longer present are reported as missing.
func Check(dir string, files []string) (*IntegrityReport, error) {
	m, err := LoadChecksums(dir)
	if err != nil {
		return nil, err
	}

	report := &IntegrityReport{ManifestPath: filepath.Join(dir, ChecksumFile)}
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		key := manifestKey(dir, f)
		seen[key] = true
		st := FileStatus{Path: f, Expected: m.Hashes[key]}

		actual, err := HashFile(f)
		switch {
		case err != nil:
			st.Problem = err.Error()
		case st.Expected == "":
			st.Actual = actual
			st.Problem = "not in manifest"
		default:
			st.Actual = actual
			if actual != st.Expected {
				st.Problem = "hash mismatch"
			}
		}
		report.Files = append(report.Files, st)
	}

	keys := make([]string, 0, len(m.Hashes))
	for k := range m.Hashes {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		report.Files = append(report.Files, FileStatus{
			Path:     filepath.Join(dir, k),
			Expected: m.Hashes[k],
			Problem:  "missing from disk",
		})
	}
	return report, nil
}

// verifyConfigHash fails when a manifest exists next to path and path does
// not match it.
func verifyConfigHash(path string) error {
	dir := filepath.Dir(path)
	m, err := LoadChecksums(dir)
	if errors.Is(err, ErrNoManifest) {
		return nil
	}
	if err != nil {
		return err
	}

	want, ok := m.Hashes[manifestKey(dir, path)]
	if !ok {
		return fmt.Errorf("config file %s has no hash in %s (run 'waypoint config lock')", path, ChecksumFile)
	}
	got, err := HashFile(path)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("config verification failed for %s: expected %s, got %s; if the edit was intentional run 'waypoint config lock'", path, want, got)
	}
	return nil
}

func manifestKey(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
