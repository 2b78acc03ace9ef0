package mcp

import (
	"net/http"

	"stockmcp/internal/models"
)

// kindCodes maps the gateway error taxonomy to JSON-RPC error codes.
var kindCodes = map[models.ErrorKind]int{
	models.KindUnknownTool:         CodeUnknownTool,
	models.KindInvalidArgument:     CodeInvalidArgument,
	models.KindNotFound:            CodeNotFound,
	models.KindRateLimited:         CodeRateLimited,
	models.KindUpstreamUnavailable: CodeUpstreamUnavailable,
	models.KindMalformedUpstream:   CodeMalformedUpstream,
	models.KindInternal:            InternalError,
}

// ErrorFromDetail converts a host-facing ErrorDetail into a JSON-RPC error.
// The detail (kind, retryable, request correlation) rides in the error data
// so the host can decide whether a re-invoke is worthwhile.
func ErrorFromDetail(detail *models.ErrorDetail, requestID string) *RPCError {
	code, ok := kindCodes[detail.Kind]
	if !ok {
		code = InternalError
	}

	return &RPCError{
		Code:    code,
		Message: detail.Message,
		Data: map[string]any{
			"kind":       string(detail.Kind),
			"retryable":  detail.Retryable,
			"request_id": requestID,
		},
	}
}

// FormatMCPError formats arbitrary error types into MCP-compatible JSON-RPC
// errors.
func FormatMCPError(err error) *RPCError {
	if rpcErr, ok := err.(*RPCError); ok {
		return rpcErr
	}
	te := models.AsToolError(err)
	return ErrorFromDetail(te.Detail(), "")
}

// HTTPStatusFromError maps gateway error codes to HTTP status codes.
func HTTPStatusFromError(rpcErr *RPCError) int {
	if rpcErr == nil {
		return http.StatusOK
	}

	switch rpcErr.Code {
	case ParseError, InvalidRequest, InvalidParams, CodeInvalidArgument:
		return http.StatusBadRequest
	case MethodNotFound, CodeUnknownTool, CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case CodeMalformedUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
