// Package handlers implements the waypoint commands on top of the rpc core.
// Every handler checks all of its rejection conditions before its first
// write; a failure after a write is returned as Fatal so the call rolls back.
package handlers

import (
	"errors"
	"strings"

	"github.com/mattjoyce/waypoint/internal/effort"
	"github.com/mattjoyce/waypoint/internal/fsops"
	"github.com/mattjoyce/waypoint/internal/rpc"
)

// Codes returned by handlers in addition to the rpc core codes.
const (
	CodeEffortFinished = "EFFORT_FINISHED"
	CodeSessionClosed  = "SESSION_CLOSED"
)

// Register adds every command to reg.
func Register(reg *rpc.Registry) error {
	return errors.Join(
		rpc.Register(reg, "task.create", rpc.Command[taskCreateArgs]{Handle: taskCreate}),
		rpc.Register(reg, "task.get", rpc.Command[taskRef]{Access: rpc.AccessRead, Handle: taskGet}),
		rpc.Register(reg, "task.delete", rpc.Command[taskRef]{Handle: taskDelete}),

		rpc.Register(reg, "skill.put", rpc.Command[skillPutArgs]{Handle: skillPut}),
		rpc.Register(reg, "skill.get", rpc.Command[skillRef]{Access: rpc.AccessRead, Handle: skillGet}),
		rpc.Register(reg, "skill.list", rpc.Command[struct{}]{Access: rpc.AccessRead, Handle: skillList}),

		rpc.Register(reg, "effort.start", rpc.Command[effortStartArgs]{Handle: effortStart}),
		rpc.Register(reg, "effort.get", rpc.Command[effortRef]{Access: rpc.AccessRead, Handle: effortGet}),
		rpc.Register(reg, "effort.list", rpc.Command[taskRef]{Access: rpc.AccessRead, Handle: effortList}),
		rpc.Register(reg, "effort.history", rpc.Command[effortRef]{Access: rpc.AccessRead, Handle: effortHistory}),
		rpc.Register(reg, "effort.transition", rpc.Command[transitionArgs]{Handle: effortTransition}),
		rpc.Register(reg, "effort.finish", rpc.Command[effortRef]{Handle: effortFinish}),
		rpc.Register(reg, "effort.note", rpc.Command[noteArgs]{Handle: effortNote}),

		rpc.Register(reg, "session.open", rpc.Command[effortRef]{Handle: sessionOpen}),
		rpc.Register(reg, "session.heartbeat", rpc.Command[sessionRef]{Handle: sessionHeartbeat}),
		rpc.Register(reg, "session.reset", rpc.Command[effortRef]{Handle: sessionReset}),
		rpc.Register(reg, "session.close", rpc.Command[effortRef]{Handle: sessionClose}),
	)
}

func store(call *rpc.Call) *effort.Store {
	return effort.New(call.Store())
}

// loadFailed maps a failed guard read to NOT_FOUND or Fatal.
func loadFailed(err error) rpc.Result {
	if errors.Is(err, effort.ErrNotFound) {
		return rpc.Reject(rpc.CodeNotFound, err.Error(), nil)
	}
	return rpc.Fatal(err)
}

func finished(e *effort.Effort) rpc.Result {
	return rpc.Reject(CodeEffortFinished, "effort "+e.ID+" is finished", map[string]any{"effort_id": e.ID})
}

// journal queues op when the call buffers fs writes.
func journal(call *rpc.Call, op fsops.Op) error {
	if call.FS() == nil {
		return nil
	}
	return call.Enqueue(op)
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
