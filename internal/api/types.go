package api

import "github.com/mattjoyce/waypoint/internal/rpc"

// ErrorResponse is returned on transport-level errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Commands      int    `json:"commands"`
	Store         string `json:"store"`
	Subscribers   int    `json:"event_subscribers"`
}

// CommandsResponse is returned by GET /commands.
type CommandsResponse struct {
	Commands []rpc.CommandInfo `json:"commands"`
}
