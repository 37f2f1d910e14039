package provider

import (
	"context"
	"errors"
	"fmt"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"

	"hugchat/model"
	"hugchat/ollama"
	"hugchat/tools"
)

const defaultOllamaModel = "llama3.1:latest"

// OllamaClient implements Client by wrapping the thin ollama.Client.
// All type conversion between the provider-agnostic model types and
// Ollama's API types happens here; see conversions.go.
type OllamaClient struct {
	client         *ollama.Client
	defaultModel   string
	embeddingModel string
}

// NewOllamaClient creates an Ollama client. Ollama runs locally and
// needs no credentials; only the base URL can fail validation.
func NewOllamaClient(cfg Config) (*OllamaClient, error) {
	client, err := ollama.NewClient(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	defaultModel := cfg.DefaultModel
	if defaultModel == "" {
		defaultModel = defaultOllamaModel
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = defaultModel
	}

	return &OllamaClient{
		client:         client,
		defaultModel:   defaultModel,
		embeddingModel: embeddingModel,
	}, nil
}

// Chat implements Client.Chat.
func (c *OllamaClient) Chat(ctx context.Context, messages []model.Message, toolSpecs []mcptypes.Tool, settings model.ChatSettings) (*model.Completion, error) {
	if settings.Model == "" {
		settings.Model = c.defaultModel
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	var ollamaTools []api.Tool
	if len(toolSpecs) > 0 {
		ollamaTools = tools.ToOllamaTools(toolSpecs)
	}

	resp, err := c.client.Chat(ctx, settings.Model, ToOllamaMessages(messages), ollamaTools, ollamaOptions(settings))
	if err != nil {
		return nil, classifyOllamaError("chat", err)
	}

	msg := model.NewMessage(model.RoleAssistant, resp.Message.Content)
	msg.Model = settings.Model

	return &model.Completion{
		Message:   msg,
		Usage:     usageFromMetrics(resp.Metrics),
		ToolCalls: FromOllamaToolCalls(resp.Message.ToolCalls),
	}, nil
}

// Complete implements Client.Complete via Ollama's generate endpoint.
func (c *OllamaClient) Complete(ctx context.Context, prompt string, settings model.ChatSettings) (*model.Completion, error) {
	if settings.Model == "" {
		settings.Model = c.defaultModel
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	resp, err := c.client.Generate(ctx, settings.Model, prompt, ollamaOptions(settings))
	if err != nil {
		return nil, classifyOllamaError("generate", err)
	}

	msg := model.NewMessage(model.RoleAssistant, resp.Response)
	msg.Model = settings.Model

	return &model.Completion{
		Message: msg,
		Usage:   usageFromMetrics(resp.Metrics),
	}, nil
}

// Embed implements Client.Embed (order-preserving passthrough).
func (c *OllamaClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := c.client.Embed(ctx, c.embeddingModel, texts)
	if err != nil {
		return nil, classifyOllamaError("embed", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrUnavailable, len(texts), len(vectors))
	}
	return vectors, nil
}

// ListModels implements Client.ListModels (direct passthrough).
func (c *OllamaClient) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	models, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, classifyOllamaError("list models", err)
	}
	return models, nil
}

// Ping implements Client.Ping (direct passthrough).
func (c *OllamaClient) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx); err != nil {
		return classifyOllamaError("ping", err)
	}
	return nil
}

// ollamaOptions maps generation settings onto Ollama's options map.
func ollamaOptions(settings model.ChatSettings) map[string]any {
	options := map[string]any{
		"temperature": settings.Temperature,
	}
	if settings.MaxTokens > 0 {
		options["num_predict"] = settings.MaxTokens
	}
	if settings.TopP > 0 {
		options["top_p"] = settings.TopP
	}
	if settings.FrequencyPenalty != 0 {
		options["frequency_penalty"] = settings.FrequencyPenalty
	}
	if settings.PresencePenalty != 0 {
		options["presence_penalty"] = settings.PresencePenalty
	}
	return options
}

func usageFromMetrics(m api.Metrics) model.Usage {
	return model.Usage{
		PromptTokens:     m.PromptEvalCount,
		CompletionTokens: m.EvalCount,
		TotalTokens:      m.PromptEvalCount + m.EvalCount,
	}
}

// classifyOllamaError maps Ollama SDK failures onto the provider error
// taxonomy.
func classifyOllamaError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("ollama %s: %w: %v", op, ErrUnavailable, err)
	}

	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Errorf("ollama %s: %w: %v", op, sentinelForStatus(statusErr.StatusCode), err)
	}

	return fmt.Errorf("ollama %s: %w: %v", op, ErrUnavailable, err)
}
