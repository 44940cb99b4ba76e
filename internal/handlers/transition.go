package handlers

import (
	"context"
	"errors"

	"github.com/mattjoyce/waypoint/internal/effort"
	"github.com/mattjoyce/waypoint/internal/fsops"
	"github.com/mattjoyce/waypoint/internal/phase"
	"github.com/mattjoyce/waypoint/internal/rpc"
)

// effortTransition advances an effort's phase.
//
// Rejections (NOT_FOUND, EFFORT_FINISHED, UNKNOWN_PHASE,
// PHASE_NOT_SEQUENTIAL) are all decided before the first write. Once the
// first write lands, any failure is Fatal: phase, audit row, heartbeat reset
// and list write-back commit together or not at all.
func effortTransition(ctx context.Context, call *rpc.Call, a transitionArgs) rpc.Result {
	st := store(call)
	e, err := st.GetEffort(ctx, a.EffortID)
	if err != nil {
		return loadFailed(err)
	}
	if e.Finished() {
		return finished(e)
	}

	if e.Phase() == a.Phase {
		sess, err := st.OpenSessionFor(ctx, e.ID)
		if err != nil {
			return rpc.Fatal(err)
		}
		return rpc.OK(effortView{Effort: e, Session: sess})
	}

	resolved, err := st.ResolvePhases(ctx, e)
	if err != nil {
		return rpc.Fatal(err)
	}
	decision, err := phase.Decide(phase.Input{
		Current: e.Phase(),
		Target:  a.Phase,
		List:    resolved.List,
		HasList: resolved.Enforced(),
		Reason:  a.Reason,
	})
	if err != nil {
		var rej *phase.Rejection
		if errors.As(err, &rej) {
			return rpc.Reject(rej.Code, rej.Message, rej.Details())
		}
		return rpc.Fatal(err)
	}

	from := e.Phase()
	if err := st.SetCurrentPhase(ctx, e.ID, a.Phase); err != nil {
		return rpc.Fatal(err)
	}
	if _, err := st.AppendHistory(ctx, e.ID, a.Phase, optional(a.Proof)); err != nil {
		return rpc.Fatal(err)
	}
	sess, err := sessionOf(call.NS("session").Call(ctx, call, "reset", effortRef{EffortID: e.ID}))
	if err != nil {
		return rpc.Fatalf("reset heartbeat for effort %s: %w", e.ID, err)
	}
	if decision.ListModified {
		if err := st.WritePhases(ctx, e, resolved.Source, decision.List); err != nil {
			return rpc.Fatalf("write back phase list for effort %s: %w", e.ID, err)
		}
	}

	refreshed, err := st.GetEffort(ctx, e.ID)
	if err != nil {
		return rpc.Fatal(err)
	}
	if err := journal(call, fsops.Append(effort.JournalPath(e.ID), journalLine(nil, "phase "+a.Phase))); err != nil {
		return rpc.Fatal(err)
	}

	call.Log().Info("phase transition",
		"effort_id", e.ID,
		"from", from,
		"to", a.Phase,
		"override", optional(a.Reason) != nil,
		"list_modified", decision.ListModified,
	)
	return rpc.OK(effortView{Effort: refreshed, Session: sess})
}
