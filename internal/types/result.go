package types

import (
	"errors"
	"fmt"
)

// ErrCombine is returned when two results cannot be merged because both
// carry a system message and the messages differ.
var ErrCombine = errors.New("cannot combine tool results: conflicting system messages")

// ToolResult is the immutable outcome of a single tool invocation.
// Output and Error carry the captured stdout and stderr text; System carries
// an advisory message for the controller (restart notices and the like).
type ToolResult struct {
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
	System string `json:"system,omitempty"`
}

// IsZero reports whether the result carries no output, error, or system message.
func (r ToolResult) IsZero() bool {
	return r.Output == "" && r.Error == "" && r.System == ""
}

// Combine merges two results accumulated within one conversational turn.
// Output and Error concatenate pairwise. A system message survives only when
// at most one distinct non-empty value exists across both sides; two
// different system messages have no meaningful precedence and fail.
func (r ToolResult) Combine(other ToolResult) (ToolResult, error) {
	system := r.System
	if r.System != "" && other.System != "" && r.System != other.System {
		return ToolResult{}, ErrCombine
	}
	if system == "" {
		system = other.System
	}
	return ToolResult{
		Output: r.Output + other.Output,
		Error:  r.Error + other.Error,
		System: system,
	}, nil
}

// WithSystem returns a copy of r with the system message replaced.
func (r ToolResult) WithSystem(msg string) ToolResult {
	r.System = msg
	return r
}

// ToolError reports a violation of the tool protocol: a malformed request or
// a session in a state the protocol cannot continue from. Recoverable
// conditions are reported as data-bearing ToolResults instead.
type ToolError struct {
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}

// NewToolError builds a ToolError from a format string.
func NewToolError(format string, args ...interface{}) *ToolError {
	return &ToolError{Message: fmt.Sprintf(format, args...)}
}

// IsToolError reports whether err is (or wraps) a ToolError.
func IsToolError(err error) bool {
	var te *ToolError
	return errors.As(err, &te)
}
