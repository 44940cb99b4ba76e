package phase

import (
	"fmt"
	"strings"
)

// Rejection codes.
const (
	CodeUnknownPhase  = "UNKNOWN_PHASE"
	CodeNotSequential = "PHASE_NOT_SEQUENTIAL"
)

// Rejection explains why a transition was refused.
type Rejection struct {
	Code     string
	Message  string
	Expected string
}

func (r *Rejection) Error() string { return r.Code + ": " + r.Message }

// Details returns the client-facing detail object, or nil.
func (r *Rejection) Details() any {
	if r.Code != CodeNotSequential {
		return nil
	}
	return map[string]any{"expected": r.Expected}
}

// Input is one transition request against an effort's current state.
// Current is "" when the effort has no phase yet. HasList is false when no
// declared list could be resolved, which disables enforcement.
type Input struct {
	Current string
	Target  string
	List    List
	HasList bool
	Reason  string
}

// Decision is an accepted transition.
type Decision struct {
	// Noop is set when Target equals Current; nothing must be written.
	Noop bool
	// List is the declared list after the transition; it differs from the
	// input only when ListModified is set.
	List         List
	ListModified bool
}

// Decide applies the sequencing rules. It never mutates in.List.
func Decide(in Input) (Decision, error) {
	if in.Current != "" && in.Target == in.Current {
		return Decision{Noop: true, List: in.List}, nil
	}
	if !in.HasList {
		return Decision{List: in.List}, nil
	}

	targetIdx := in.List.Index(in.Target)
	if targetIdx < 0 {
		return autoAppend(in)
	}

	currentIdx := -1
	if in.Current != "" {
		currentIdx = in.List.Index(in.Current)
	}
	expected := currentIdx + 1
	if targetIdx == expected {
		return Decision{List: in.List}, nil
	}
	if strings.TrimSpace(in.Reason) != "" {
		return Decision{List: in.List}, nil
	}
	if isSubPhaseExit(in.Current, in.Target) {
		return Decision{List: in.List}, nil
	}

	var want string
	if expected < len(in.List) {
		want = in.List[expected].String()
	}
	return Decision{}, &Rejection{
		Code:     CodeNotSequential,
		Message:  notSequentialMessage(in.Target, want),
		Expected: want,
	}
}

func notSequentialMessage(target, expected string) string {
	if expected == "" {
		return fmt.Sprintf("phase %q is out of sequence; no further phase is declared (supply a reason to override)", target)
	}
	return fmt.Sprintf("phase %q is out of sequence; expected %q (supply a reason to override)", target, expected)
}

// isSubPhaseExit reports a move from a sub-phase to the next major checkpoint.
func isSubPhaseExit(current, target string) bool {
	if current == "" {
		return false
	}
	cur, err := labelOf(current)
	if err != nil || !cur.IsSub() {
		return false
	}
	tgt, err := labelOf(target)
	if err != nil {
		return false
	}
	return tgt.Minor == 0 && tgt.Major == cur.Major+1
}

func autoAppend(in Input) (Decision, error) {
	unknown := &Rejection{
		Code:    CodeUnknownPhase,
		Message: fmt.Sprintf("phase %q is not declared and cannot be added as a sub-phase", in.Target),
	}

	entry := ParsePhase(in.Target)
	tgt, err := ParseLabel(entry.Label)
	if err != nil || !tgt.IsSub() {
		return Decision{}, unknown
	}
	for _, e := range in.List {
		if lbl, err := ParseLabel(e.Label); err == nil && lbl == tgt {
			unknown.Message = fmt.Sprintf("phase %q is not declared; label %s is already declared as %q", in.Target, entry.Label, e.String())
			return Decision{}, unknown
		}
	}
	if in.Current != "" {
		cur, err := labelOf(in.Current)
		if err != nil || cur.Major != tgt.Major || tgt.Minor <= cur.Minor {
			return Decision{}, unknown
		}
	}
	return Decision{List: in.List.InsertSubPhase(entry), ListModified: true}, nil
}
