package tools

import (
	"context"
	"encoding/json"
	"fmt"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"hugchat/search"
)

// WebSearchName is the tool name models use to request a web search.
const WebSearchName = "web_search"

// maxWebSearchResults caps how many hits go back to the model; more
// just burns context window.
const maxWebSearchResults = 5

// WebSearchTool returns the schema advertised to providers for the
// web search tool.
func WebSearchTool() mcptypes.Tool {
	return mcptypes.Tool{
		Name:        WebSearchName,
		Description: "Search the web for current information. Use this when the question concerns recent events or facts you are unsure about.",
		InputSchema: mcptypes.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query",
				},
				"max_results": map[string]any{
					"type":        "integer",
					"description": "Maximum number of results to return (default 5)",
				},
			},
			Required: []string{"query"},
		},
	}
}

// WebSearchExecutor adapts the search client to the Executor signature.
// The result is serialized as JSON so the model gets structured hits.
func WebSearchExecutor(client *search.Client) Executor {
	return func(ctx context.Context, args map[string]any) (string, error) {
		query, _ := args["query"].(string)
		if query == "" {
			return "", fmt.Errorf("web_search: missing query argument")
		}

		maxResults := maxWebSearchResults
		// JSON numbers arrive as float64.
		if n, ok := args["max_results"].(float64); ok && int(n) > 0 {
			maxResults = int(n)
		}

		resp, err := client.Search(ctx, query, search.Options{MaxResults: maxResults})
		if err != nil {
			return "", fmt.Errorf("web_search: %w", err)
		}

		out, err := json.Marshal(resp)
		if err != nil {
			return "", fmt.Errorf("web_search: encode results: %w", err)
		}
		return string(out), nil
	}
}
