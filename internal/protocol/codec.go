package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mattjoyce/waypoint/internal/rpc"
)

// DecodeRequest reads one request envelope from r. Unknown top-level fields
// are rejected, and args must be a JSON object when present.
func DecodeRequest(r io.Reader) (*Request, error) {
	var req Request
	decoder := json.NewDecoder(io.LimitReader(r, MaxRequestBytes+1))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	if decoder.InputOffset() > MaxRequestBytes {
		return nil, fmt.Errorf("request exceeds %d bytes", MaxRequestBytes)
	}

	req.Cmd = strings.TrimSpace(req.Cmd)
	if req.Cmd == "" {
		return nil, errors.New("request missing required field: cmd")
	}
	args := bytes.TrimSpace(req.Args)
	if len(args) > 0 && !bytes.Equal(args, []byte("null")) && args[0] != '{' {
		return nil, errors.New("request args must be a JSON object")
	}
	return &req, nil
}

// EncodeRequest writes req as one JSON line.
func EncodeRequest(w io.Writer, req *Request) error {
	if strings.TrimSpace(req.Cmd) == "" {
		return errors.New("request missing required field: cmd")
	}
	if err := json.NewEncoder(w).Encode(req); err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	return nil
}

// FromResult converts a dispatch Result into its wire form.
func FromResult(res rpc.Result) (*Response, error) {
	if res.OK() {
		resp := &Response{OK: true}
		if res.Data != nil {
			data, err := json.Marshal(res.Data)
			if err != nil {
				return nil, fmt.Errorf("failed to encode result data: %w", err)
			}
			resp.Data = data
		}
		return resp, nil
	}

	resp := &Response{Error: res.Err.Code, Message: res.Err.Message}
	if res.Err.Details != nil {
		details, err := json.Marshal(res.Err.Details)
		if err != nil {
			return nil, fmt.Errorf("failed to encode error details: %w", err)
		}
		resp.Details = details
	}
	return resp, nil
}

// EncodeResponse writes resp as one JSON line.
func EncodeResponse(w io.Writer, resp *Response) error {
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	return nil
}

// DecodeResponse reads and validates a response envelope.
func DecodeResponse(r io.Reader) (*Response, error) {
	var resp Response
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !resp.OK && resp.Error == "" {
		return nil, errors.New("response has ok=false but no error code")
	}
	if resp.OK && resp.Error != "" {
		return nil, fmt.Errorf("response has ok=true and error %q", resp.Error)
	}
	return &resp, nil
}

// ResponseError is a failed response seen by a client.
type ResponseError struct {
	Code    string
	Message string
	Details json.RawMessage
}

func (e *ResponseError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// Err returns a *ResponseError for a failed response, or nil.
func (r *Response) Err() error {
	if r.OK {
		return nil
	}
	return &ResponseError{Code: r.Error, Message: r.Message, Details: r.Details}
}
