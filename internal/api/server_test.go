package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/waypoint/internal/auth"
	"github.com/mattjoyce/waypoint/internal/events"
	"github.com/mattjoyce/waypoint/internal/fsops"
	"github.com/mattjoyce/waypoint/internal/handlers"
	"github.com/mattjoyce/waypoint/internal/rpc"
	"github.com/mattjoyce/waypoint/internal/storage"
)

var testTokens = []auth.TokenConfig{
	{Name: "reader", Token: "read-token", Scopes: []string{auth.ScopeRead}},
	{Name: "writer", Token: "write-token", Scopes: []string{auth.ScopeWrite}},
}

type fixture struct {
	srv *Server
	ts  *httptest.Server
	hub *events.Hub
}

func newFixture(t *testing.T, tokens []auth.TokenConfig) *fixture {
	t.Helper()
	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	local, err := fsops.NewLocal(t.TempDir())
	require.NoError(t, err)

	hub := events.NewHub(32)
	reg := rpc.NewRegistry()
	require.NoError(t, handlers.Register(reg))
	reg.Use(events.OutcomeMiddleware(hub))
	reg.Use(rpc.Standard(local)...)

	srv := New(Config{Tokens: tokens}, rpc.NewDispatcher(reg, db), reg, db, hub, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{srv: srv, ts: ts, hub: hub}
}

func (f *fixture) client(t *testing.T, token string) *Client {
	c := NewClient(f.ts.URL, token)
	t.Cleanup(c.CloseIdle)
	return c
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, testTokens)
	h, err := f.client(t, "").Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "ok", h.Store)
	assert.Positive(t, h.Commands)
}

func TestRPCRoundTrip(t *testing.T) {
	f := newFixture(t, testTokens)
	ctx := context.Background()
	w := f.client(t, "write-token")

	resp, err := w.Call(ctx, "task.create", map[string]any{"title": "ship it"})
	require.NoError(t, err)
	require.NoError(t, resp.Err())

	var created struct {
		Task struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"task"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.Equal(t, "ship it", created.Task.Title)

	r := f.client(t, "read-token")
	resp, err = r.Call(ctx, "task.get", map[string]any{"task_id": created.Task.ID})
	require.NoError(t, err)
	require.NoError(t, resp.Err())
}

func TestRPCErrorsAreEnvelopes(t *testing.T) {
	f := newFixture(t, testTokens)
	ctx := context.Background()
	c := f.client(t, "write-token")

	resp, err := c.Call(ctx, "nope.missing", nil)
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Equal(t, rpc.CodeUnknownCommand, resp.Error)

	resp, err = c.Call(ctx, "task.create", map[string]any{"title": 12})
	require.NoError(t, err)
	assert.Equal(t, rpc.CodeValidation, resp.Error)
	assert.Contains(t, string(resp.Details), "title")

	resp, err = c.Call(ctx, "effort.get", map[string]any{"effort_id": "missing"})
	require.NoError(t, err)
	assert.Equal(t, rpc.CodeNotFound, resp.Error)
}

func TestRPCStatusCodes(t *testing.T) {
	f := newFixture(t, nil)
	post := func(body string) int {
		resp, err := http.Post(f.ts.URL+"/rpc", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}
	assert.Equal(t, http.StatusBadRequest, post(`not json`))
	assert.Equal(t, http.StatusNotFound, post(`{"cmd":"nope.missing"}`))
	assert.Equal(t, http.StatusOK, post(`{"cmd":"skill.list"}`))
	assert.Equal(t, http.StatusBadRequest, post(`{"cmd":"task.create","args":{}}`))
	http.DefaultClient.CloseIdleConnections()
}

func TestScopes(t *testing.T) {
	f := newFixture(t, testTokens)
	ctx := context.Background()

	resp, err := f.client(t, "read-token").Call(ctx, "task.create", map[string]any{"title": "x"})
	require.NoError(t, err)
	assert.Equal(t, CodeForbidden, resp.Error)

	resp, err = f.client(t, "read-token").Call(ctx, "skill.list", nil)
	require.NoError(t, err)
	assert.True(t, resp.OK)

	_, err = f.client(t, "").Call(ctx, "skill.list", nil)
	assert.ErrorContains(t, err, "missing Authorization header")

	_, err = f.client(t, "bogus").Call(ctx, "skill.list", nil)
	assert.ErrorContains(t, err, "invalid bearer token")
}

func TestCommandsEndpoint(t *testing.T) {
	f := newFixture(t, testTokens)
	out, err := f.client(t, "read-token").Commands(context.Background())
	require.NoError(t, err)

	byName := map[string]rpc.Access{}
	for _, c := range out.Commands {
		byName[c.Name] = c.Access
	}
	assert.Equal(t, rpc.AccessWrite, byName["effort.transition"])
	assert.Equal(t, rpc.AccessRead, byName["effort.get"])
}

func TestEventsStreamReplaysOutcomes(t *testing.T) {
	f := newFixture(t, testTokens)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := f.client(t, "write-token")
	_, err := c.Call(ctx, "task.create", map[string]any{"title": "evented"})
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.ts.URL+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer read-token")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	require.Len(t, lines, 3)
	assert.Equal(t, "id: 1", lines[0])
	assert.Equal(t, "event: "+events.TypeRPCOK, lines[1])
	assert.Contains(t, lines[2], `"cmd":"task.create"`)
	assert.Contains(t, lines[2], `"actor":"writer"`)

	cancel()
	http.DefaultClient.CloseIdleConnections()
}

func TestServeUnixSocket(t *testing.T) {
	dir, err := os.MkdirTemp("", "wp")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	sock := filepath.Join(dir, "w.sock")

	f := newFixture(t, nil)
	ln, err := Listen("unix:" + sock)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.Serve(ctx, ln) }()

	c := NewClient("unix:"+sock, "")
	resp, err := c.Call(context.Background(), "skill.list", nil)
	require.NoError(t, err)
	assert.True(t, resp.OK)
	c.CloseIdle()

	cancel()
	require.NoError(t, <-done)
}

func TestListenRejectsEmptySocketPath(t *testing.T) {
	_, err := Listen("unix:")
	assert.Error(t, err)
}
