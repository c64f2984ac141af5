package channel

import (
	"context"
	"encoding/json"
	"fmt"
)

// Failure codes returned across the boundary.
const (
	CodeNotImplemented = "not_implemented"
	CodeInvalidRequest = "invalid_request"
	CodeHandlerPanic   = "handler_panic"
	CodeInternal       = "internal"
)

// Call is a single named request from the embedded UI.
type Call struct {
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// HandlerFunc processes call arguments and returns a value or structured error.
type HandlerFunc func(context.Context, json.RawMessage) (any, *Error)

// Error is the structured failure payload.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errorf helps build protocol errors.
func Errorf(code, message string, details map[string]any) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

// Result is either a success value or a failure.
type Result struct {
	OK    bool
	Value any
	Err   *Error
}

// Success wraps a handler value.
func Success(value any) Result {
	return Result{OK: true, Value: value}
}

// Failure builds a failed result.
func Failure(code, message string, details map[string]any) Result {
	return Result{Err: Errorf(code, message, details)}
}

// Code returns the failure code, or "" for a success.
func (r Result) Code() string {
	if r.OK || r.Err == nil {
		return ""
	}
	return r.Err.Code
}
