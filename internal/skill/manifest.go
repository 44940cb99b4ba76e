// Package skill loads skill manifests from disk and keeps the cached skill
// records in the database in step with them.
package skill

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/waypoint/internal/phase"
)

// ManifestFile is the file name looked up in each skill directory.
const ManifestFile = "skill.yaml"

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Phases is a manifest phase list.
//
// Accepted forms:
//   - strings: phases: ["1: Design", "2: Build"]
//   - objects: phases: [{label: "1", name: Design}]
type Phases phase.List

func (p *Phases) UnmarshalYAML(n *yaml.Node) error {
	if n == nil || n.Kind == 0 {
		*p = nil
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		return fmt.Errorf("phases must be a sequence")
	}

	out := make(Phases, 0, len(n.Content))
	for i, item := range n.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			out = append(out, phase.ParsePhase(item.Value))
		case yaml.MappingNode:
			var e phase.Entry
			if err := item.Decode(&e); err != nil {
				return fmt.Errorf("phases[%d]: %w", i, err)
			}
			e.Label = strings.TrimSpace(e.Label)
			e.Name = strings.TrimSpace(e.Name)
			out = append(out, e)
		default:
			return fmt.Errorf("phases[%d]: must be a string or an object", i)
		}
	}
	*p = out
	return nil
}

// Manifest is the content of skills/<name>/skill.yaml.
type Manifest struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Phases      Phases `yaml:"phases"`
}

// Skill is a parsed, validated manifest.
type Skill struct {
	Name        string
	Description string
	Phases      phase.List
	Path        string // absolute path of skill.yaml
	Digest      string // BLAKE3 of the manifest bytes
}

// Parse decodes and validates manifest bytes. dirName fills in a missing name
// and must match a present one.
func Parse(data []byte, dirName string) (*Skill, error) {
	var m Manifest
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest YAML: %w", err)
	}

	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		m.Name = dirName
	}
	if err := validateManifest(&m, dirName); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	list := phase.List(m.Phases)
	if list == nil {
		list = phase.List{}
	}
	return &Skill{
		Name:        m.Name,
		Description: strings.TrimSpace(m.Description),
		Phases:      list,
		Digest:      digest(data),
	}, nil
}

func validateManifest(m *Manifest, dirName string) error {
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("name %q must be lowercase letters, digits, '-' or '_'", m.Name)
	}
	if dirName != "" && m.Name != dirName {
		return fmt.Errorf("name %q does not match directory %q", m.Name, dirName)
	}
	if err := phase.List(m.Phases).Validate(); err != nil {
		return err
	}
	return nil
}

func digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
