package handlers

import (
	"context"
	"errors"

	"github.com/mattjoyce/waypoint/internal/effort"
	"github.com/mattjoyce/waypoint/internal/rpc"
)

type sessionView struct {
	Session *effort.Session `json:"session"`
	Created bool            `json:"created,omitempty"`
}

func sessionOpen(ctx context.Context, call *rpc.Call, a effortRef) rpc.Result {
	st := store(call)
	e, err := st.GetEffort(ctx, a.EffortID)
	if err != nil {
		return loadFailed(err)
	}
	if e.Finished() {
		return finished(e)
	}
	sess, created, err := st.OpenSession(ctx, e.ID)
	if err != nil {
		return rpc.Fatal(err)
	}
	return rpc.OK(sessionView{Session: sess, Created: created})
}

func sessionHeartbeat(ctx context.Context, call *rpc.Call, a sessionRef) rpc.Result {
	st := store(call)
	sess, err := st.GetSession(ctx, a.SessionID)
	if err != nil {
		return loadFailed(err)
	}
	if !sess.Open() {
		return rpc.Reject(CodeSessionClosed, "session "+sess.ID+" is closed", nil)
	}
	sess, err = st.Heartbeat(ctx, sess.ID)
	if err != nil {
		return rpc.Fatal(err)
	}
	return rpc.OK(sessionView{Session: sess})
}

func sessionReset(ctx context.Context, call *rpc.Call, a effortRef) rpc.Result {
	st := store(call)
	if _, err := st.GetEffort(ctx, a.EffortID); err != nil {
		return loadFailed(err)
	}
	sess, err := st.ResetHeartbeat(ctx, a.EffortID)
	if err != nil {
		return rpc.Fatal(err)
	}
	return rpc.OK(sessionView{Session: sess})
}

func sessionClose(ctx context.Context, call *rpc.Call, a effortRef) rpc.Result {
	st := store(call)
	if _, err := st.GetEffort(ctx, a.EffortID); err != nil {
		return loadFailed(err)
	}
	sess, err := st.CloseSession(ctx, a.EffortID)
	if err != nil {
		return rpc.Fatal(err)
	}
	return rpc.OK(sessionView{Session: sess})
}

// sessionOf extracts the session from a session.* namespace result.
func sessionOf(res rpc.Result) (*effort.Session, error) {
	if !res.OK() {
		return nil, res.Err
	}
	view, ok := res.Data.(sessionView)
	if !ok {
		return nil, errors.New("unexpected session result")
	}
	return view.Session, nil
}
