package skill

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Catalog holds discovered skills by name.
type Catalog struct {
	skills map[string]*Skill
}

func (c *Catalog) Get(name string) (*Skill, bool) {
	s, ok := c.skills[name]
	return s, ok
}

// All returns the skills sorted by name.
func (c *Catalog) All() []*Skill {
	out := make([]*Skill, 0, len(c.skills))
	for _, s := range c.skills {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *Catalog) Len() int { return len(c.skills) }

// Discover reads root/<name>/skill.yaml for every directory under root. A
// missing root yields an empty catalog. Invalid manifests are logged and
// skipped.
func Discover(root string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cat := &Catalog{skills: make(map[string]*Skill)}
	if root == "" {
		return cat, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cat, nil
		}
		return nil, fmt.Errorf("scan skills dir %s: %w", root, err)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(root, e.Name(), ManifestFile)
		s, err := Load(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			logger.Warn("skipping skill manifest", "path", path, "error", err)
			continue
		}
		cat.skills[s.Name] = s
		logger.Debug("loaded skill manifest", "skill", s.Name, "phases", len(s.Phases))
	}
	return cat, nil
}

// Load reads and parses one manifest file.
func Load(path string) (*Skill, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data, filepath.Base(filepath.Dir(abs)))
	if err != nil {
		return nil, err
	}
	s.Path = abs
	return s, nil
}
