package effort

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/mattjoyce/waypoint/internal/phase"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrFinished is returned when mutating an effort that already finished.
	ErrFinished = errors.New("effort already finished")
)

type Lifecycle string

const (
	LifecycleActive   Lifecycle = "active"
	LifecycleFinished Lifecycle = "finished"
)

type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type Effort struct {
	ID           string          `json:"id"`
	TaskID       string          `json:"task_id"`
	Skill        string          `json:"skill"`
	Ordinal      int             `json:"ordinal"`
	Lifecycle    Lifecycle       `json:"lifecycle"`
	CurrentPhase *string         `json:"current_phase"`
	Metadata     json.RawMessage `json:"metadata"`
	CreatedAt    time.Time       `json:"created_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
}

// Phase returns the current phase, or "" when none is set.
func (e *Effort) Phase() string {
	if e.CurrentPhase == nil {
		return ""
	}
	return *e.CurrentPhase
}

// Finished reports whether the effort is closed.
func (e *Effort) Finished() bool { return e.Lifecycle == LifecycleFinished }

// Skill is the cached per-skill record.
type Skill struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Phases      phase.List `json:"phases"`
	Source      string     `json:"source"`
	Digest      string     `json:"digest,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Skill record sources.
const (
	SourceAPI      = "api"
	SourceManifest = "manifest"
)

type HistoryEntry struct {
	ID         string    `json:"id"`
	EffortID   string    `json:"effort_id"`
	PhaseLabel string    `json:"phase_label"`
	Proof      *string   `json:"proof,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Session struct {
	ID             string     `json:"id"`
	EffortID       string     `json:"effort_id"`
	HeartbeatCount int        `json:"heartbeat_count"`
	OpenedAt       time.Time  `json:"opened_at"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
}

// Open reports whether the session is still open.
func (s *Session) Open() bool { return s.ClosedAt == nil }

type Note struct {
	ID        string    `json:"id"`
	EffortID  string    `json:"effort_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// PhaseSource names where an effort's declared phase list came from.
type PhaseSource string

const (
	PhaseSourceNone     PhaseSource = ""
	PhaseSourceSkill    PhaseSource = "skill"
	PhaseSourceMetadata PhaseSource = "metadata"
)

// ResolvedPhases is the declared list for one effort.
type ResolvedPhases struct {
	List   phase.List  `json:"list"`
	Source PhaseSource `json:"source,omitempty"`
}

// Enforced reports whether a declared list exists.
func (r ResolvedPhases) Enforced() bool { return r.Source != PhaseSourceNone }
