package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"hugchat/model"
)

const (
	defaultBaseURL = "http://localhost:11434"
)

// Client is a thin wrapper around the official Ollama API client. It
// returns whole responses; streaming is disabled because callers persist
// complete messages only.
type Client struct {
	client  *api.Client
	baseURL string
}

func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	return &Client{
		client:  api.NewClient(parsedURL, http.DefaultClient),
		baseURL: parsedURL.String(),
	}, nil
}

// BaseURL returns the server URL this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Chat sends a chat request and returns the final response. Options is
// the Ollama options map (temperature, top_p, num_predict, ...).
func (c *Client) Chat(ctx context.Context, modelName string, messages []api.Message, tools []api.Tool, options map[string]any) (*api.ChatResponse, error) {
	req := &api.ChatRequest{
		Model:    modelName,
		Messages: messages,
		Tools:    tools,
		Options:  options,
		Stream:   func(b bool) *bool { return &b }(false),
	}

	var final api.ChatResponse
	respFunc := func(resp api.ChatResponse) error {
		final = resp
		return nil
	}

	if err := c.client.Chat(ctx, req, respFunc); err != nil {
		return nil, err
	}
	return &final, nil
}

// Generate runs a single-prompt completion against /api/generate.
func (c *Client) Generate(ctx context.Context, modelName, prompt string, options map[string]any) (*api.GenerateResponse, error) {
	req := &api.GenerateRequest{
		Model:   modelName,
		Prompt:  prompt,
		Options: options,
		Stream:  func(b bool) *bool { return &b }(false),
	}

	var final api.GenerateResponse
	respFunc := func(resp api.GenerateResponse) error {
		final = resp
		return nil
	}

	if err := c.client.Generate(ctx, req, respFunc); err != nil {
		return nil, err
	}
	return &final, nil
}

// Embed generates one embedding per input text, order-preserving.
func (c *Client) Embed(ctx context.Context, modelName string, texts []string) ([][]float32, error) {
	resp, err := c.client.Embed(ctx, &api.EmbedRequest{
		Model: modelName,
		Input: texts,
	})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings, nil
}

// ListModels returns all models available on the Ollama server.
func (c *Client) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	resp, err := c.client.List(ctx)
	if err != nil {
		return nil, err
	}

	models := make([]model.ModelInfo, len(resp.Models))
	for i, m := range resp.Models {
		models[i] = model.ModelInfo{
			ID:       m.Name,
			Provider: "ollama",
			Size:     m.Size,
		}
	}
	return models, nil
}

// Ping checks if the Ollama server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.client.List(ctx)
	return err
}
