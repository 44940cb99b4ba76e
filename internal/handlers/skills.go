package handlers

import (
	"context"

	"github.com/mattjoyce/waypoint/internal/effort"
	"github.com/mattjoyce/waypoint/internal/rpc"
)

func skillPut(ctx context.Context, call *rpc.Call, a skillPutArgs) rpc.Result {
	sk, err := store(call).PutSkill(ctx, effort.Skill{
		Name:        a.Name,
		Description: a.Description,
		Phases:      a.Phases,
		Source:      effort.SourceAPI,
	})
	if err != nil {
		return rpc.Fatal(err)
	}
	return rpc.OK(map[string]any{"skill": sk})
}

func skillGet(ctx context.Context, call *rpc.Call, a skillRef) rpc.Result {
	sk, err := store(call).GetSkill(ctx, a.Name)
	if err != nil {
		return loadFailed(err)
	}
	return rpc.OK(map[string]any{"skill": sk})
}

func skillList(ctx context.Context, call *rpc.Call, _ struct{}) rpc.Result {
	skills, err := store(call).ListSkills(ctx)
	if err != nil {
		return rpc.Fatal(err)
	}
	return rpc.OK(map[string]any{"skills": skills})
}
