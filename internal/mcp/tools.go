package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/vector-index-mcp/pkg/types"
)

// MCP error codes.
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound = -32001 // project_path does not match the configured root
	ErrorCodeConflict        = -32002 // trigger_index refused: scan already in progress
	ErrorCodeNotReady        = -32003 // search called while the index is still initializing
)

// handleTriggerIndex handles the trigger_index tool invocation.
func (s *Server) handleTriggerIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	forceReindex := getBoolDefault(args, "force_reindex", false)

	result := s.facade.TriggerIndex(ctx, forceReindex)
	if !result.Accepted {
		return nil, newMCPError(ErrorCodeConflict, result.Reason, nil)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"accepted": true,
	})), nil
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, _ := args["query"].(string)
	topK := getIntDefault(args, "top_k", 10)

	results, err := s.facade.Search(ctx, query, topK)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrInvalidParams):
			return nil, newMCPError(ErrorCodeInvalidParams, err.Error(), nil)
		case errors.Is(err, types.ErrNotReady):
			return nil, newMCPError(ErrorCodeNotReady, "index not ready: still initializing", nil)
		default:
			return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"results": results,
	})), nil
}

// handleGetStatus handles the get_status tool invocation.
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	projectPath, _ := args["project_path"].(string)

	status, err := s.facade.GetStatus(projectPath)
	if err != nil {
		return nil, newMCPError(ErrorCodeProjectNotFound, "project not found", map[string]interface{}{
			"project_path": projectPath,
		})
	}

	response := map[string]interface{}{
		"project_path":         status.ProjectPath,
		"state":                string(status.State),
		"indexed_chunk_count":  status.IndexedChunkCount,
		"error_message":        status.ErrorMessage,
		"last_scan_start_time": status.LastScanStartTime,
		"last_scan_end_time":   status.LastScanEndTime,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error.
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{Code: code, Message: message, Data: data}
}

// MCPError represents an MCP protocol error.
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON.
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value.
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value.
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}
