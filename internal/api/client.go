package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mattjoyce/waypoint/internal/protocol"
)

// Client posts request envelopes to a running daemon.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for addr (host:port, http(s)://… or
// unix:/path/to/socket).
func NewClient(addr, token string) *Client {
	c := &Client{token: token}
	transport := &http.Transport{}

	switch {
	case strings.HasPrefix(addr, "unix:"):
		path := strings.TrimPrefix(addr, "unix:")
		transport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", path)
		}
		c.baseURL = "http://waypoint"
	case strings.HasPrefix(addr, "http://"), strings.HasPrefix(addr, "https://"):
		c.baseURL = strings.TrimSuffix(addr, "/")
	default:
		c.baseURL = "http://" + addr
	}
	c.httpClient = &http.Client{Transport: transport, Timeout: 60 * time.Second}
	return c
}

// Call sends cmd with args. args may be nil, a json.RawMessage, or any
// value that marshals to a JSON object. A failed envelope is returned as a
// response, not an error; use Response.Err to inspect it.
func (c *Client) Call(ctx context.Context, cmd string, args any) (*protocol.Response, error) {
	req := &protocol.Request{Cmd: cmd}
	switch v := args.(type) {
	case nil:
	case json.RawMessage:
		req.Args = v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode args: %w", err)
		}
		req.Args = raw
	}

	var body bytes.Buffer
	if err := protocol.EncodeRequest(&body, req); err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, "/rpc", &body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("rpc %s: %s", cmd, readError(resp.Body))
	}
	out, err := protocol.DecodeResponse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("rpc %s: %w", cmd, err)
	}
	return out, nil
}

// Commands lists the daemon's registered commands.
func (c *Client) Commands(ctx context.Context) (*CommandsResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, "/commands", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list commands: %s", readError(resp.Body))
	}
	var out CommandsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode commands: %w", err)
	}
	return &out, nil
}

// Health fetches /healthz.
func (c *Client) Health(ctx context.Context) (*HealthzResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var out HealthzResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode health: %w", err)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func readError(r io.Reader) string {
	var e ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(data))
}

// CloseIdle releases pooled connections.
func (c *Client) CloseIdle() { c.httpClient.CloseIdleConnections() }
