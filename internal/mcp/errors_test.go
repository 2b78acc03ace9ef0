package mcp

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockmcp/internal/models"
)

func TestErrorFromDetail(t *testing.T) {
	detail := models.NewToolError(models.KindRateLimited, "provider rate limit hit").Detail()

	rpcErr := ErrorFromDetail(detail, "req-1")
	assert.Equal(t, CodeRateLimited, rpcErr.Code)

	data, ok := rpcErr.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "rate_limited", data["kind"])
	assert.Equal(t, true, data["retryable"])
	assert.Equal(t, "req-1", data["request_id"])
}

func TestFormatMCPError(t *testing.T) {
	// An RPCError passes through untouched.
	in := &RPCError{Code: InvalidParams, Message: "Missing parameters for tools/call"}
	assert.Same(t, in, FormatMCPError(in))

	// A classified tool error maps to its gateway code.
	out := FormatMCPError(models.NewToolError(models.KindUnknownTool, "unknown tool %q", "x"))
	assert.Equal(t, CodeUnknownTool, out.Code)

	// Anything else collapses to an internal error with no detail leaked.
	out = FormatMCPError(errors.New("dial tcp: connection refused"))
	assert.Equal(t, InternalError, out.Code)
	assert.NotContains(t, out.Message, "dial tcp")
}

func TestHTTPStatusFromError(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatusFromError(nil))

	cases := map[int]int{
		ParseError:              http.StatusBadRequest,
		InvalidRequest:          http.StatusBadRequest,
		InvalidParams:           http.StatusBadRequest,
		CodeInvalidArgument:     http.StatusBadRequest,
		MethodNotFound:          http.StatusNotFound,
		CodeUnknownTool:         http.StatusNotFound,
		CodeNotFound:            http.StatusNotFound,
		CodeRateLimited:         http.StatusTooManyRequests,
		CodeUpstreamUnavailable: http.StatusServiceUnavailable,
		CodeMalformedUpstream:   http.StatusBadGateway,
		InternalError:           http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatusFromError(&RPCError{Code: code}), "code %d", code)
	}
}

func TestSSEErrorSetsHTTPStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewSSEWriter(rec)
	require.NoError(t, err)

	require.NoError(t, w.SendError(1, CodeNotFound, "requested entity not found upstream", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "data: ")
}
