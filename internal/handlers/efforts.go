package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mattjoyce/waypoint/internal/effort"
	"github.com/mattjoyce/waypoint/internal/fsops"
	"github.com/mattjoyce/waypoint/internal/rpc"
)

type effortView struct {
	Effort  *effort.Effort         `json:"effort"`
	Phases  *effort.ResolvedPhases `json:"phases,omitempty"`
	Session *effort.Session        `json:"session"`
}

func effortStart(ctx context.Context, call *rpc.Call, a effortStartArgs) rpc.Result {
	st := store(call)
	if _, err := st.GetTask(ctx, a.TaskID); err != nil {
		return loadFailed(err)
	}

	var meta json.RawMessage
	if len(a.Phases) > 0 {
		raw, err := json.Marshal(map[string]any{"phases": a.Phases})
		if err != nil {
			return rpc.Fatal(err)
		}
		meta = raw
	}

	e, err := st.CreateEffort(ctx, a.TaskID, a.Skill, meta)
	if err != nil {
		return rpc.Fatal(err)
	}
	sess, err := sessionOf(call.NS("session").Call(ctx, call, "open", effortRef{EffortID: e.ID}))
	if err != nil {
		return rpc.Fatalf("open session for effort %s: %w", e.ID, err)
	}
	if err := journal(call, fsops.Mkdir(effort.JournalDir(e.ID))); err != nil {
		return rpc.Fatal(err)
	}

	call.Log().Info("effort started", "effort_id", e.ID, "task_id", e.TaskID, "skill", e.Skill, "ordinal", e.Ordinal)
	return rpc.OK(effortView{Effort: e, Session: sess})
}

func effortGet(ctx context.Context, call *rpc.Call, a effortRef) rpc.Result {
	st := store(call)
	e, err := st.GetEffort(ctx, a.EffortID)
	if err != nil {
		return loadFailed(err)
	}
	phases, err := st.ResolvePhases(ctx, e)
	if err != nil {
		return rpc.Fatal(err)
	}
	sess, err := st.OpenSessionFor(ctx, e.ID)
	if err != nil {
		return rpc.Fatal(err)
	}
	return rpc.OK(effortView{Effort: e, Phases: &phases, Session: sess})
}

func effortList(ctx context.Context, call *rpc.Call, a taskRef) rpc.Result {
	st := store(call)
	if _, err := st.GetTask(ctx, a.TaskID); err != nil {
		return loadFailed(err)
	}
	efforts, err := st.ListEfforts(ctx, a.TaskID)
	if err != nil {
		return rpc.Fatal(err)
	}
	return rpc.OK(map[string]any{"efforts": efforts})
}

func effortHistory(ctx context.Context, call *rpc.Call, a effortRef) rpc.Result {
	st := store(call)
	if _, err := st.GetEffort(ctx, a.EffortID); err != nil {
		return loadFailed(err)
	}
	history, err := st.History(ctx, a.EffortID)
	if err != nil {
		return rpc.Fatal(err)
	}
	return rpc.OK(map[string]any{"history": history})
}

func effortFinish(ctx context.Context, call *rpc.Call, a effortRef) rpc.Result {
	st := store(call)
	e, err := st.GetEffort(ctx, a.EffortID)
	if err != nil {
		return loadFailed(err)
	}
	if e.Finished() {
		return finished(e)
	}

	e, err = st.Finish(ctx, e.ID)
	if err != nil {
		return rpc.Fatal(err)
	}
	sess, err := sessionOf(call.NS("session").Call(ctx, call, "close", effortRef{EffortID: e.ID}))
	if err != nil {
		return rpc.Fatalf("close session for effort %s: %w", e.ID, err)
	}
	if err := journal(call, fsops.Append(effort.JournalPath(e.ID), journalLine(e.FinishedAt, "finished"))); err != nil {
		return rpc.Fatal(err)
	}

	call.Log().Info("effort finished", "effort_id", e.ID)
	return rpc.OK(effortView{Effort: e, Session: sess})
}

func effortNote(ctx context.Context, call *rpc.Call, a noteArgs) rpc.Result {
	st := store(call)
	e, err := st.GetEffort(ctx, a.EffortID)
	if err != nil {
		return loadFailed(err)
	}
	if e.Finished() {
		return finished(e)
	}

	note, err := st.AddNote(ctx, e.ID, a.Body)
	if err != nil {
		return rpc.Fatal(err)
	}
	entry := fmt.Sprintf("\n## %s\n\n%s\n", note.CreatedAt.Format(time.RFC3339), note.Body)
	if err := journal(call, fsops.Append(effort.JournalPath(e.ID), []byte(entry))); err != nil {
		return rpc.Fatal(err)
	}
	return rpc.OK(map[string]any{"note": note})
}

func journalLine(at *time.Time, event string) []byte {
	ts := time.Now().UTC()
	if at != nil {
		ts = *at
	}
	return []byte(fmt.Sprintf("- %s %s\n", ts.Format(time.RFC3339), event))
}
