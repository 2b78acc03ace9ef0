package models

import "fmt"

// ErrorKind classifies every failure the gateway can surface to the host.
type ErrorKind string

const (
	KindUnknownTool         ErrorKind = "unknown_tool"
	KindInvalidArgument     ErrorKind = "invalid_argument"
	KindNotFound            ErrorKind = "not_found"
	KindRateLimited         ErrorKind = "rate_limited"
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindMalformedUpstream   ErrorKind = "malformed_upstream_response"
	KindInternal            ErrorKind = "internal"
)

// Retryable reports whether the host may reasonably re-issue the request.
func (k ErrorKind) Retryable() bool {
	return k == KindRateLimited || k == KindUpstreamUnavailable
}

// ToolError is the gateway's error type. Only the classified kind and a
// sanitized message ever cross a component boundary; upstream field names,
// transport details, and provider error text stay behind the adapter.
type ToolError struct {
	Kind    ErrorKind
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewToolError creates a classified error with a formatted message.
func NewToolError(kind ErrorKind, format string, args ...any) *ToolError {
	return &ToolError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsToolError coerces an arbitrary error into a ToolError. Anything that is
// not already classified becomes KindInternal with a generic message, so
// unexpected failures never leak internals to the host.
func AsToolError(err error) *ToolError {
	if err == nil {
		return nil
	}
	if te, ok := err.(*ToolError); ok {
		return te
	}
	return &ToolError{Kind: KindInternal, Message: "internal gateway error"}
}

// Detail converts the error into its host-facing representation.
func (e *ToolError) Detail() *ErrorDetail {
	return &ErrorDetail{
		Kind:      e.Kind,
		Message:   e.Message,
		Retryable: e.Kind.Retryable(),
	}
}

// ErrorDetail is the structured error shape returned to the host.
type ErrorDetail struct {
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
}

// Status tags a ToolResult as success or failure.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// ToolRequest is one incoming "invoke tool X with arguments A" call.
// Owned by the dispatcher for the duration of the call.
type ToolRequest struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
	RequestID string         `json:"request_id"`
}

// ToolResult is the terminal outcome of a ToolRequest. Immutable once
// constructed; cached instances are replaced, never edited.
type ToolResult struct {
	Status    Status       `json:"status"`
	RequestID string       `json:"request_id,omitempty"`
	Payload   *Payload     `json:"payload,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
}

// OkResult builds a success result.
func OkResult(requestID string, payload *Payload) *ToolResult {
	return &ToolResult{Status: StatusOK, RequestID: requestID, Payload: payload}
}

// ErrResult builds a failure result from a classified error.
func ErrResult(requestID string, err error) *ToolResult {
	return &ToolResult{
		Status:    StatusError,
		RequestID: requestID,
		Error:     AsToolError(err).Detail(),
	}
}

// WithRequestID returns a shallow copy of the result tagged with the given
// correlation token. Used when a cached result is replayed for a new request.
func (r *ToolResult) WithRequestID(requestID string) *ToolResult {
	if r == nil || r.RequestID == requestID {
		return r
	}
	cp := *r
	cp.RequestID = requestID
	return &cp
}

// FieldType enumerates the canonical value types a normalized field may hold.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldInteger FieldType = "integer"
	FieldDate    FieldType = "date"
)

// FieldSpec declares one field of a tool's canonical result schema and the
// upstream column it is sourced from. The upstream financial provider labels
// columns in Chinese; the canonical name is stable snake_case.
type FieldSpec struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Upstream string    `json:"-"`
}

// Payload is the canonical tool-result envelope: uniformly shaped rows plus
// the field schema they conform to. Warnings flag upstream values that could
// not be parsed and were dropped rather than coerced.
type Payload struct {
	Tool     string           `json:"tool"`
	Rows     []map[string]any `json:"rows"`
	Fields   []FieldSpec      `json:"fields"`
	Warnings []string         `json:"warnings,omitempty"`
}
