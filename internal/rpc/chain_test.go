package rpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func recorder(name string, trace *[]string) Middleware {
	return func(ctx context.Context, call *Call, req Request, next Next) Result {
		*trace = append(*trace, name+":before")
		res := next(ctx)
		*trace = append(*trace, name+":after")
		return res
	}
}

func TestRunChainOnionOrder(t *testing.T) {
	var trace []string
	mws := []Middleware{recorder("a", &trace), recorder("b", &trace)}
	res := RunChain(context.Background(), &Call{}, Request{Cmd: "x.y"}, mws, func(context.Context) Result {
		trace = append(trace, "handler")
		return OK("done")
	})

	assert.True(t, res.OK())
	assert.Equal(t, []string{"a:before", "b:before", "handler", "b:after", "a:after"}, trace)
}

func TestRunChainShortCircuit(t *testing.T) {
	called := false
	deny := func(ctx context.Context, call *Call, req Request, next Next) Result {
		return Reject("DENIED", "no", nil)
	}
	inner := func(ctx context.Context, call *Call, req Request, next Next) Result {
		called = true
		return next(ctx)
	}
	res := RunChain(context.Background(), &Call{}, Request{}, []Middleware{deny, inner}, func(context.Context) Result {
		called = true
		return OK(nil)
	})

	assert.Equal(t, "DENIED", res.Code())
	assert.False(t, called)
}

func TestRunChainTransformsResult(t *testing.T) {
	wrap := func(ctx context.Context, call *Call, req Request, next Next) Result {
		res := next(ctx)
		return OK(map[string]any{"wrapped": res.Data})
	}
	res := RunChain(context.Background(), &Call{}, Request{}, []Middleware{wrap}, func(context.Context) Result {
		return OK(1)
	})
	assert.Equal(t, map[string]any{"wrapped": 1}, res.Data)
}

func TestRunChainEmptyIsVerbatim(t *testing.T) {
	want := Reject("SOME_CODE", "msg", map[string]string{"k": "v"})
	got := RunChain(context.Background(), &Call{}, Request{}, nil, func(context.Context) Result { return want })
	assert.Same(t, want.Err, got.Err)
	assert.Equal(t, want, got)
}

func TestRunChainPanicPassesThrough(t *testing.T) {
	var trace []string
	assert.PanicsWithValue(t, "boom", func() {
		RunChain(context.Background(), &Call{}, Request{}, []Middleware{recorder("a", &trace)}, func(context.Context) Result {
			panic("boom")
		})
	})
	assert.Equal(t, []string{"a:before"}, trace)
}
