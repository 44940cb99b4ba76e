// Package phase holds the workflow phase rules for efforts: label parsing,
// declared phase lists and the transition decision.
package phase

import (
	"fmt"
	"strconv"
	"strings"
)

// Label is a parsed phase label. Minor 0 means no sub-phase.
type Label struct {
	Major int
	Minor int
}

// IsSub reports whether l is a sub-phase.
func (l Label) IsSub() bool { return l.Minor > 0 }

// ParseLabel parses "3", "3.A" or "3.2". A single uppercase letter suffix
// maps to 1 for A, 2 for B and so on.
func ParseLabel(s string) (Label, error) {
	s = strings.TrimSpace(s)
	majorPart, minorPart, hasMinor := strings.Cut(s, ".")
	major, err := strconv.Atoi(majorPart)
	if err != nil || major < 0 {
		return Label{}, fmt.Errorf("invalid phase label %q", s)
	}
	if !hasMinor {
		return Label{Major: major}, nil
	}

	if len(minorPart) == 1 && minorPart[0] >= 'A' && minorPart[0] <= 'Z' {
		return Label{Major: major, Minor: int(minorPart[0]-'A') + 1}, nil
	}
	minor, err := strconv.Atoi(minorPart)
	if err != nil || minor < 0 {
		return Label{}, fmt.Errorf("invalid phase label %q", s)
	}
	return Label{Major: major, Minor: minor}, nil
}

// Entry is one declared phase.
type Entry struct {
	Label string `json:"label" yaml:"label"`
	Name  string `json:"name" yaml:"name"`
}

// String returns the canonical "{label}: {name}" form.
func (e Entry) String() string {
	if e.Name == "" {
		return e.Label
	}
	return e.Label + ": " + e.Name
}

// ParsePhase splits a phase string such as "3.B: Review" into an entry.
func ParsePhase(s string) Entry {
	label, name, _ := strings.Cut(s, ":")
	return Entry{Label: strings.TrimSpace(label), Name: strings.TrimSpace(name)}
}

// labelOf parses the label part of a phase string.
func labelOf(s string) (Label, error) {
	return ParseLabel(ParsePhase(s).Label)
}
