package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"stockmcp/internal/mcp"
	"stockmcp/internal/models"
)

// ListToolsHandler handles GET /tools requests: the read-only capability
// listing the host introspects once at session start before issuing calls.
type ListToolsHandler struct {
	tools  ToolLister
	logger *slog.Logger
}

// NewListToolsHandler creates a new capability discovery handler.
func NewListToolsHandler(tools ToolLister, logger *slog.Logger) *ListToolsHandler {
	return &ListToolsHandler{
		tools:  tools,
		logger: logger.With("handler", "tools"),
	}
}

// ServeHTTP handles the discovery request.
func (h *ListToolsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.sendError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET requests are supported")
		return
	}

	descs := h.tools.List()
	listing := make([]toolListing, 0, len(descs))
	for _, d := range descs {
		listing = append(listing, toolListing{
			Tool: mcp.Tool{
				Name:        d.Name,
				Description: d.Description,
				InputSchema: d.ArgumentSchema,
			},
			ResultFields: d.ResultFields,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(map[string]any{"tools": listing}); err != nil {
		h.logger.Error("json_encode_failed", "error", err)
		return
	}

	h.logger.Debug("tools_listed", "count", len(listing))
}

// toolListing pairs a tool's MCP definition with its canonical result
// schema so the host knows both sides of the contract.
type toolListing struct {
	mcp.Tool
	ResultFields []models.FieldSpec `json:"resultFields"`
}

// sendError sends a JSON error response.
func (h *ListToolsHandler) sendError(w http.ResponseWriter, statusCode int, errorCode string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}
