package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// triggerIndexTool returns the tool definition for trigger_index.
func triggerIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "trigger_index",
		Description: "Start (or restart) indexing of the configured project root",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"force_reindex": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, discard the existing index and re-embed every file",
					"default":     false,
				},
			},
		},
	}
}

// searchTool returns the tool definition for search.
func searchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search",
		Description: "Search the indexed project with a natural-language query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural-language or keyword search query",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status.
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query indexing status for the configured project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path of the project; must match the server's configured root",
				},
			},
			Required: []string{"project_path"},
		},
	}
}
