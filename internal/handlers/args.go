package handlers

import (
	"github.com/mattjoyce/waypoint/internal/phase"
	"github.com/mattjoyce/waypoint/internal/rpc"
)

type taskCreateArgs struct {
	Title string `json:"title"`
}

func (a *taskCreateArgs) Check() rpc.FieldErrors {
	fe := rpc.FieldErrors{}
	fe.Required("title", a.Title)
	return fe.Err()
}

type taskRef struct {
	TaskID string `json:"task_id"`
}

func (a *taskRef) Check() rpc.FieldErrors {
	fe := rpc.FieldErrors{}
	fe.Required("task_id", a.TaskID)
	return fe.Err()
}

type skillPutArgs struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Phases      phase.List `json:"phases"`
}

func (a *skillPutArgs) Check() rpc.FieldErrors {
	fe := rpc.FieldErrors{}
	fe.Required("name", a.Name)
	if err := a.Phases.Validate(); err != nil {
		fe.Add("phases", err.Error())
	}
	return fe.Err()
}

type skillRef struct {
	Name string `json:"name"`
}

func (a *skillRef) Check() rpc.FieldErrors {
	fe := rpc.FieldErrors{}
	fe.Required("name", a.Name)
	return fe.Err()
}

type effortStartArgs struct {
	TaskID string     `json:"task_id"`
	Skill  string     `json:"skill"`
	Phases phase.List `json:"phases,omitempty"`
}

func (a *effortStartArgs) Check() rpc.FieldErrors {
	fe := rpc.FieldErrors{}
	fe.Required("task_id", a.TaskID)
	fe.Required("skill", a.Skill)
	if err := a.Phases.Validate(); err != nil {
		fe.Add("phases", err.Error())
	}
	return fe.Err()
}

type effortRef struct {
	EffortID string `json:"effort_id"`
}

func (a *effortRef) Check() rpc.FieldErrors {
	fe := rpc.FieldErrors{}
	fe.Required("effort_id", a.EffortID)
	return fe.Err()
}

type transitionArgs struct {
	EffortID string `json:"effort_id"`
	Phase    string `json:"phase"`
	Proof    string `json:"proof,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func (a *transitionArgs) Check() rpc.FieldErrors {
	fe := rpc.FieldErrors{}
	fe.Required("effort_id", a.EffortID)
	fe.Required("phase", a.Phase)
	return fe.Err()
}

type noteArgs struct {
	EffortID string `json:"effort_id"`
	Body     string `json:"body"`
}

func (a *noteArgs) Check() rpc.FieldErrors {
	fe := rpc.FieldErrors{}
	fe.Required("effort_id", a.EffortID)
	fe.Required("body", a.Body)
	return fe.Err()
}

type sessionRef struct {
	SessionID string `json:"session_id"`
}

func (a *sessionRef) Check() rpc.FieldErrors {
	fe := rpc.FieldErrors{}
	fe.Required("session_id", a.SessionID)
	return fe.Err()
}
