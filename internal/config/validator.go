package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/mattjoyce/waypoint/internal/auth"
)

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"json": true, "text": true}
)

// Validate checks a fully resolved configuration. All problems are reported
// together.
func Validate(cfg *Config) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !validLogLevels[strings.ToLower(cfg.Service.LogLevel)] {
		add("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}
	if !validLogFormats[strings.ToLower(cfg.Service.LogFormat)] {
		add("service.log_format must be json or text (got %q)", cfg.Service.LogFormat)
	}
	if cfg.Service.ShutdownTimeout < 0 {
		add("service.shutdown_timeout must not be negative")
	}
	if cfg.State.Path == "" {
		add("state.path is required")
	}
	if cfg.Workspace == "" {
		add("workspace is required")
	}

	errs = append(errs, validateAPI(cfg.API)...)
	return errors.Join(errs...)
}

func validateAPI(api APIConfig) []error {
	var errs []error
	tcp := false
	switch sock, isUnix := strings.CutPrefix(api.Listen, "unix:"); {
	case api.Listen == "":
		errs = append(errs, errors.New("api.listen is required"))
	case isUnix:
		if sock == "" {
			errs = append(errs, errors.New("api.listen: unix socket path is empty"))
		}
	default:
		tcp = true
		if _, _, err := net.SplitHostPort(api.Listen); err != nil {
			errs = append(errs, fmt.Errorf("api.listen: %w", err))
		}
	}
	if tcp && len(api.Tokens) == 0 {
		errs = append(errs, errors.New("api.tokens: at least one token is required on a TCP listener"))
	}

	names := make(map[string]bool, len(api.Tokens))
	for i, t := range api.Tokens {
		if t.Name == "" {
			errs = append(errs, fmt.Errorf("api.tokens[%d].name is required", i))
		} else if names[t.Name] {
			errs = append(errs, fmt.Errorf("api.tokens[%d]: duplicate name %q", i, t.Name))
		}
		names[t.Name] = true

		if m := envVarPattern.FindStringSubmatch(t.Token); m != nil {
			errs = append(errs, fmt.Errorf("api.tokens[%d].token: environment variable ${%s} is not set", i, m[1]))
		} else if strings.TrimSpace(t.Token) == "" {
			errs = append(errs, fmt.Errorf("api.tokens[%d].token is required", i))
		}

		if len(t.Scopes) == 0 {
			errs = append(errs, fmt.Errorf("api.tokens[%d].scopes is required", i))
		}
		for _, s := range t.Scopes {
			if !auth.ValidScope(s) {
				errs = append(errs, fmt.Errorf("api.tokens[%d]: unknown scope %q", i, s))
			}
		}
	}
	return errs
}
