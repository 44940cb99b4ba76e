package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/waypoint/internal/auth"
	"github.com/mattjoyce/waypoint/internal/protocol"
	"github.com/mattjoyce/waypoint/internal/rpc"
)

// CodeForbidden is returned in the envelope when the caller's scopes do not
// cover the command's access kind.
const CodeForbidden = "FORBIDDEN"

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Commands:      len(s.catalog.Commands()),
		Store:         "ok",
		Subscribers:   s.events.Subscribers(),
	}
	status := http.StatusOK
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.PingContext(ctx); err != nil {
			resp.Status = "degraded"
			resp.Store = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	respondJSON(w, status, resp)
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, CommandsResponse{Commands: s.catalog.Commands()})
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	req, err := protocol.DecodeRequest(r.Body)
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, &protocol.Response{Error: rpc.CodeValidation, Message: err.Error()})
		return
	}

	principal, _ := auth.PrincipalFromContext(r.Context())
	if access, known := s.catalog.Lookup(req.Cmd); known {
		if !auth.CanInvoke(principal, access == rpc.AccessWrite) {
			writeEnvelope(w, http.StatusForbidden, &protocol.Response{
				Error:   CodeForbidden,
				Message: "token lacks scope for " + string(access) + " command " + req.Cmd,
			})
			return
		}
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = middleware.GetReqID(r.Context())
	}
	res := s.dispatcher.Dispatch(r.Context(), rpc.Request{
		Cmd:       req.Cmd,
		Args:      req.Args,
		RequestID: requestID,
		Actor:     principal.Name,
	})

	resp, err := protocol.FromResult(res)
	if err != nil {
		s.logger.Error("encode rpc result", "cmd", req.Cmd, "error", err)
		writeEnvelope(w, http.StatusInternalServerError, &protocol.Response{Error: rpc.CodeHandlerError, Message: err.Error()})
		return
	}
	writeEnvelope(w, statusFor(res), resp)
}

// statusFor maps a result onto an HTTP status. The envelope stays
// authoritative; the status only helps generic HTTP tooling.
func statusFor(res rpc.Result) int {
	switch res.Code() {
	case "":
		return http.StatusOK
	case rpc.CodeUnknownCommand, rpc.CodeNotFound:
		return http.StatusNotFound
	case rpc.CodeValidation:
		return http.StatusBadRequest
	case rpc.CodeHandlerError:
		return http.StatusInternalServerError
	default:
		return http.StatusConflict
	}
}

func writeEnvelope(w http.ResponseWriter, statusCode int, resp *protocol.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = protocol.EncodeResponse(w, resp)
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
