package handlers

import (
	"context"

	"github.com/mattjoyce/waypoint/internal/effort"
	"github.com/mattjoyce/waypoint/internal/rpc"
)

type taskView struct {
	Task    *effort.Task     `json:"task"`
	Efforts []*effort.Effort `json:"efforts,omitempty"`
}

func taskCreate(ctx context.Context, call *rpc.Call, a taskCreateArgs) rpc.Result {
	task, err := store(call).CreateTask(ctx, a.Title)
	if err != nil {
		return rpc.Fatal(err)
	}
	return rpc.OK(taskView{Task: task})
}

func taskGet(ctx context.Context, call *rpc.Call, a taskRef) rpc.Result {
	st := store(call)
	task, err := st.GetTask(ctx, a.TaskID)
	if err != nil {
		return loadFailed(err)
	}
	efforts, err := st.ListEfforts(ctx, task.ID)
	if err != nil {
		return rpc.Fatal(err)
	}
	return rpc.OK(taskView{Task: task, Efforts: efforts})
}

func taskDelete(ctx context.Context, call *rpc.Call, a taskRef) rpc.Result {
	st := store(call)
	task, err := st.GetTask(ctx, a.TaskID)
	if err != nil {
		return loadFailed(err)
	}
	if err := st.DeleteTask(ctx, task.ID); err != nil {
		return rpc.Fatal(err)
	}
	return rpc.OK(map[string]any{"deleted": task.ID})
}
