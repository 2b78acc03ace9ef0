package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"stockmcp/internal/mcp"
	"stockmcp/internal/models"
	"stockmcp/internal/registry"
)

// ToolDispatcher is the in-process contract of the dispatch core:
// handle(ToolRequest) -> ToolResult, all failures resolved to results.
type ToolDispatcher interface {
	Handle(ctx context.Context, req models.ToolRequest) *models.ToolResult
}

// ToolLister exposes the registry's ordered catalogue for discovery.
type ToolLister interface {
	List() []*registry.Descriptor
}

const protocolVersion = "2024-11-05"

// MCPInvokeHandler serves MCP JSON-RPC requests over SSE transport.
type MCPInvokeHandler struct {
	dispatcher ToolDispatcher
	tools      ToolLister
	logger     *slog.Logger
}

// NewMCPInvokeHandler creates the MCP endpoint handler.
func NewMCPInvokeHandler(dispatcher ToolDispatcher, tools ToolLister, logger *slog.Logger) *MCPInvokeHandler {
	return &MCPInvokeHandler{
		dispatcher: dispatcher,
		tools:      tools,
		logger:     logger.With("handler", "mcp"),
	}
}

// ServeHTTP handles POST /mcp requests with SSE transport.
func (h *MCPInvokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	correlationID := GetCorrelationID(r.Context())

	sseWriter, err := mcp.NewSSEWriter(w)
	if err != nil {
		h.logger.Error("sse_init_failed", "error", err, "correlation_id", correlationID)
		http.Error(w, "SSE initialization failed", http.StatusInternalServerError)
		return
	}

	req, err := mcp.ParseJSONRPCRequest(r.Body)
	if err != nil {
		rpcErr := mcp.FormatMCPError(err)
		sseWriter.SendError(nil, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}

	switch req.Method {
	case "initialize":
		sseWriter.SendResult(req.ID, mcp.InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    map[string]any{"tools": map[string]any{}},
			ServerInfo:      mcp.ServerInfo{Name: "stockmcp", Version: "1.0.0"},
		})

	case "tools/list", "list_tools":
		sseWriter.SendResult(req.ID, mcp.ListToolsResult{Tools: h.listTools()})

	case "tools/call", "call_tool":
		h.callTool(r.Context(), sseWriter, req, correlationID)

	default:
		sseWriter.SendError(req.ID, mcp.MethodNotFound, "Unknown method", req.Method)
	}
}

func (h *MCPInvokeHandler) listTools() []mcp.Tool {
	descs := h.tools.List()
	tools := make([]mcp.Tool, 0, len(descs))
	for _, d := range descs {
		tools = append(tools, mcp.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.ArgumentSchema,
		})
	}
	return tools
}

func (h *MCPInvokeHandler) callTool(ctx context.Context, sseWriter *mcp.SSEWriter, req *mcp.JSONRPCRequest, correlationID string) {
	start := time.Now()

	toolParams, err := mcp.ParseCallToolParams(req.Params)
	if err != nil {
		rpcErr := mcp.FormatMCPError(err)
		sseWriter.SendError(req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}

	requestID := mcp.RequestIDString(req.ID)
	if requestID == "" {
		requestID = correlationID
	}

	mcp.LogMCPRequest(ctx, h.logger, toolParams.Name, correlationID)

	result := h.dispatcher.Handle(ctx, models.ToolRequest{
		Tool:      toolParams.Name,
		Arguments: toolParams.Arguments,
		RequestID: requestID,
	})

	latencyMS := time.Since(start).Milliseconds()

	if result.Status == models.StatusError {
		rpcErr := mcp.ErrorFromDetail(result.Error, requestID)
		mcp.LogMCPError(ctx, h.logger, toolParams.Name, correlationID, rpcErr.Code, rpcErr.Message)
		sseWriter.SendError(req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}

	payloadJSON, err := json.Marshal(result.Payload)
	if err != nil {
		mcp.LogMCPError(ctx, h.logger, toolParams.Name, correlationID, mcp.InternalError, "payload serialization failed")
		sseWriter.SendError(req.ID, mcp.InternalError, "Failed to serialize payload", nil)
		return
	}

	mcp.LogMCPSuccess(ctx, h.logger, toolParams.Name, correlationID, latencyMS)
	sseWriter.SendResult(req.ID, mcp.CallToolResult{
		Content: []mcp.TextContent{{Type: "text", Text: string(payloadJSON)}},
	})
}
