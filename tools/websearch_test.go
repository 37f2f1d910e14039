package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hugchat/search"
)

const searchXML = `<?xml version="1.0" encoding="UTF-8"?>
<DuckDuckGoResponse>
  <Results>
    <Result>
      <Title>Result One</Title>
      <FirstURL>https://example.com/one</FirstURL>
      <Text>First snippet.</Text>
    </Result>
  </Results>
</DuckDuckGoResponse>`

func TestWebSearchExecutor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(searchXML))
	}))
	defer srv.Close()

	client := search.NewClient(
		search.WithBaseURL(srv.URL),
		search.WithRateDelay(0),
		search.WithRetries(0, time.Millisecond),
	)
	exec := WebSearchExecutor(client)

	out, err := exec(context.Background(), map[string]any{"query": "go testing"})
	if err != nil {
		t.Fatalf("executor error: %v", err)
	}

	var resp search.Response
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Title != "Result One" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestWebSearchExecutorMissingQuery(t *testing.T) {
	exec := WebSearchExecutor(search.NewClient(search.WithRateDelay(0)))

	if _, err := exec(context.Background(), map[string]any{}); err == nil {
		t.Fatal("expected error for missing query")
	} else if !strings.Contains(err.Error(), "query") {
		t.Errorf("error %q does not mention the missing argument", err)
	}
}

func TestWebSearchToolSchema(t *testing.T) {
	tool := WebSearchTool()
	if tool.Name != WebSearchName {
		t.Errorf("name = %q, want %q", tool.Name, WebSearchName)
	}
	if tool.InputSchema.Type != "object" {
		t.Errorf("schema type = %q, want object", tool.InputSchema.Type)
	}
	if _, ok := tool.InputSchema.Properties["query"]; !ok {
		t.Error("schema missing query property")
	}
	if len(tool.InputSchema.Required) != 1 || tool.InputSchema.Required[0] != "query" {
		t.Errorf("required = %v, want [query]", tool.InputSchema.Required)
	}
}
