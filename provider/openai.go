package provider

import (
	"context"
	"errors"
	"fmt"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"hugchat/model"
	"hugchat/tools"
)

const (
	defaultOpenAIBaseURL        = "https://api.openai.com/v1"
	defaultOpenAIChatModel      = "gpt-4o-mini"
	defaultOpenAIEmbeddingModel = "text-embedding-3-small"
)

// OpenAIClient implements Client using the official OpenAI Go SDK.
type OpenAIClient struct {
	client         openai.Client
	defaultModel   string
	embeddingModel string
	baseURL        string
}

// NewOpenAIClient creates an OpenAI client from configuration. The API
// key is required; construction fails with ErrAuthentication when it is
// missing so a misconfigured process can never silently no-op.
func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrAuthentication)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	defaultModel := cfg.DefaultModel
	if defaultModel == "" {
		defaultModel = defaultOpenAIChatModel
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = defaultOpenAIEmbeddingModel
	}

	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.OrgID != "" {
		opts = append(opts, option.WithHeader("OpenAI-Organization", cfg.OrgID))
	}

	return &OpenAIClient{
		client:         openai.NewClient(opts...),
		defaultModel:   defaultModel,
		embeddingModel: embeddingModel,
		baseURL:        baseURL,
	}, nil
}

// Chat implements Client.Chat with a whole-response request.
func (c *OpenAIClient) Chat(ctx context.Context, messages []model.Message, toolSpecs []mcptypes.Tool, settings model.ChatSettings) (*model.Completion, error) {
	if settings.Model == "" {
		settings.Model = c.defaultModel
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	params := openai.ChatCompletionNewParams{
		Messages:    ToOpenAIMessages(messages),
		Model:       openai.ChatModel(settings.Model),
		Temperature: openai.Float(settings.Temperature),
	}
	applyOpenAISettings(&params, settings)

	if len(toolSpecs) > 0 {
		params.Tools = tools.ToOpenAITools(toolSpecs)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyOpenAIError("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices in chat response", ErrUnavailable)
	}

	choice := resp.Choices[0]
	msg := model.NewMessage(model.RoleAssistant, choice.Message.Content)
	msg.Model = settings.Model

	completion := &model.Completion{
		Message: msg,
		Usage: model.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}

	for _, tc := range choice.Message.ToolCalls {
		completion.ToolCalls = append(completion.ToolCalls, model.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: ParseToolArguments(tc.Function.Arguments),
		})
	}

	return completion, nil
}

// Complete implements Client.Complete against the legacy completions
// endpoint.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, settings model.ChatSettings) (*model.Completion, error) {
	if settings.Model == "" {
		settings.Model = c.defaultModel
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	params := openai.CompletionNewParams{
		Model:       openai.CompletionNewParamsModel(settings.Model),
		Prompt:      openai.CompletionNewParamsPromptUnion{OfString: openai.String(prompt)},
		Temperature: openai.Float(settings.Temperature),
	}
	if settings.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(settings.MaxTokens))
	}
	if settings.TopP > 0 {
		params.TopP = openai.Float(settings.TopP)
	}

	resp, err := c.client.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyOpenAIError("completion", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices in completion response", ErrUnavailable)
	}

	msg := model.NewMessage(model.RoleAssistant, resp.Choices[0].Text)
	msg.Model = settings.Model

	return &model.Completion{
		Message: msg,
		Usage: model.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// Embed implements Client.Embed. The response order follows the input
// order via the per-datum index.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, classifyOpenAIError("embeddings", err)
	}
	return orderEmbeddings(resp.Data, len(texts))
}

// orderEmbeddings places each returned embedding at its reported input
// index, converting to float32. The indices are provider-reported and
// not trusted: out-of-range or duplicate indices fail instead of
// panicking or leaving a nil vector.
func orderEmbeddings(data []openai.Embedding, n int) ([][]float32, error) {
	if len(data) != n {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrUnavailable, n, len(data))
	}

	vectors := make([][]float32, n)
	for _, d := range data {
		if d.Index < 0 || d.Index >= int64(n) {
			return nil, fmt.Errorf("%w: embedding index %d out of range [0, %d)", ErrUnavailable, d.Index, n)
		}
		if vectors[d.Index] != nil {
			return nil, fmt.Errorf("%w: duplicate embedding index %d", ErrUnavailable, d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		vectors[d.Index] = vec
	}
	return vectors, nil
}

// ListModels implements Client.ListModels.
func (c *OpenAIClient) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	modelsPage, err := c.client.Models.List(ctx)
	if err != nil {
		return nil, classifyOpenAIError("list models", err)
	}

	result := make([]model.ModelInfo, 0, len(modelsPage.Data))
	for _, m := range modelsPage.Data {
		result = append(result, model.ModelInfo{
			ID:       m.ID,
			Provider: string(TypeOpenAI),
		})
	}
	return result, nil
}

// Ping implements Client.Ping by attempting to list models.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	if _, err := c.client.Models.List(ctx); err != nil {
		return classifyOpenAIError("ping", err)
	}
	return nil
}

// applyOpenAISettings copies the optional generation parameters into the
// request. Zero values mean "unset" and are left to provider defaults.
func applyOpenAISettings(params *openai.ChatCompletionNewParams, settings model.ChatSettings) {
	if settings.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(settings.MaxTokens))
	}
	if settings.TopP > 0 {
		params.TopP = openai.Float(settings.TopP)
	}
	if settings.FrequencyPenalty != 0 {
		params.FrequencyPenalty = openai.Float(settings.FrequencyPenalty)
	}
	if settings.PresencePenalty != 0 {
		params.PresencePenalty = openai.Float(settings.PresencePenalty)
	}
}

// classifyOpenAIError maps SDK and transport failures onto the provider
// error taxonomy. Caller cancellation propagates unchanged so it is
// never mistaken for a provider outage.
func classifyOpenAIError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("openai %s: %w: %v", op, ErrUnavailable, err)
	}

	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return fmt.Errorf("openai %s: %w: %v", op, sentinelForStatus(apierr.StatusCode), err)
	}

	return fmt.Errorf("openai %s: %w: %v", op, ErrUnavailable, err)
}
