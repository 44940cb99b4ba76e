package rpc

import (
	"errors"
	"fmt"
)

// Error codes produced by the dispatch core and shared handlers.
const (
	CodeUnknownCommand = "UNKNOWN_COMMAND"
	CodeValidation     = "VALIDATION_ERROR"
	CodeHandlerError   = "HANDLER_ERROR"
	CodeNotFound       = "NOT_FOUND"
)

// Kind separates commit-safe rejections from rollback-worthy failures.
type Kind int

const (
	KindRejected Kind = iota + 1
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindFatal:
		return "fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the error half of a Result.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return e.Code + ": " + e.Message
	case e.Err != nil:
		return e.Code + ": " + e.Err.Error()
	default:
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Result is the single outcome shape seen by callers and middleware.
type Result struct {
	Data any
	Err  *Error
}

// OK reports whether the result is a success.
func (r Result) OK() bool { return r.Err == nil }

// Rejected reports whether the result is a commit-safe rejection.
func (r Result) Rejected() bool { return r.Err != nil && r.Err.Kind == KindRejected }

// Fatal reports whether the result must roll the transaction back.
func (r Result) Fatal() bool { return r.Err != nil && r.Err.Kind == KindFatal }

// Code returns the error code, or "" on success.
func (r Result) Code() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Code
}

// OK wraps data as a successful Result.
func OK(data any) Result {
	return Result{Data: data}
}

// Reject returns a commit-safe business rejection.
func Reject(code, message string, details any) Result {
	return Result{Err: &Error{Kind: KindRejected, Code: code, Message: message, Details: details}}
}

// NotFound is Reject(CodeNotFound, …) with a formatted message.
func NotFound(format string, args ...any) Result {
	return Reject(CodeNotFound, fmt.Sprintf(format, args...), nil)
}

// Fatal returns a rollback-worthy failure wrapping err.
func Fatal(err error) Result {
	if err == nil {
		err = errors.New("fatal result without cause")
	}
	var rpcErr *Error
	if errors.As(err, &rpcErr) && rpcErr.Kind == KindFatal {
		return Result{Err: rpcErr}
	}
	return Result{Err: &Error{Kind: KindFatal, Code: CodeHandlerError, Message: err.Error(), Err: err}}
}

// Fatalf is Fatal(fmt.Errorf(format, args...)).
func Fatalf(format string, args ...any) Result {
	return Fatal(fmt.Errorf(format, args...))
}
