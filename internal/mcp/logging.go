package mcp

import (
	"context"
	"log/slog"
)

// LogMCPRequest logs an MCP request with structured fields.
func LogMCPRequest(ctx context.Context, logger *slog.Logger, tool string, correlationID string) {
	logger.InfoContext(ctx, "mcp_request",
		"component", "mcp-gateway",
		"tool_name", tool,
		"correlation_id", correlationID,
	)
}

// LogMCPSuccess logs successful MCP tool execution with metrics.
func LogMCPSuccess(ctx context.Context, logger *slog.Logger, tool string, correlationID string, latencyMS int64) {
	logger.InfoContext(ctx, "mcp_success",
		"component", "mcp-gateway",
		"tool_name", tool,
		"correlation_id", correlationID,
		"latency_ms", latencyMS,
	)
}

// LogMCPError logs MCP request errors with context.
func LogMCPError(ctx context.Context, logger *slog.Logger, tool string, correlationID string, errorCode int, errorMsg string) {
	logger.ErrorContext(ctx, "mcp_error",
		"component", "mcp-gateway",
		"tool_name", tool,
		"correlation_id", correlationID,
		"error_code", errorCode,
		"error_message", errorMsg,
	)
}
