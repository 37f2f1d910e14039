// Package testutil provides a configurable in-memory provider client for
// tests. The mock never touches the network; every method can be
// overridden per test, and the defaults return deterministic canned
// responses.
package testutil

import (
	"context"
	"fmt"
	"math"
	"sync"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"hugchat/model"
)

// MockDimensions is the embedding vector size the mock produces.
const MockDimensions = 4

// MockClient implements provider.Client for tests. Zero value is usable:
// each method falls back to a deterministic default when its func field
// is nil. Call counters are safe for concurrent use.
type MockClient struct {
	ChatFunc       func(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, settings model.ChatSettings) (*model.Completion, error)
	CompleteFunc   func(ctx context.Context, prompt string, settings model.ChatSettings) (*model.Completion, error)
	EmbedFunc      func(ctx context.Context, texts []string) ([][]float32, error)
	ListModelsFunc func(ctx context.Context) ([]model.ModelInfo, error)
	PingFunc       func(ctx context.Context) error

	mu        sync.Mutex
	chatCalls int
}

// ChatCalls returns how many times Chat was invoked.
func (m *MockClient) ChatCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chatCalls
}

func (m *MockClient) Chat(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, settings model.ChatSettings) (*model.Completion, error) {
	m.mu.Lock()
	m.chatCalls++
	m.mu.Unlock()

	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, messages, tools, settings)
	}

	// Default: echo the last user message.
	last := "(empty)"
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleUser {
			last = messages[i].Content
			break
		}
	}
	msg := model.NewMessage(model.RoleAssistant, fmt.Sprintf("echo: %s", last))
	msg.Model = settings.Model
	return &model.Completion{
		Message: msg,
		Usage:   model.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (m *MockClient) Complete(ctx context.Context, prompt string, settings model.ChatSettings) (*model.Completion, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt, settings)
	}
	msg := model.NewMessage(model.RoleAssistant, fmt.Sprintf("completion for: %s", prompt))
	msg.Model = settings.Model
	return &model.Completion{
		Message: msg,
		Usage:   model.Usage{PromptTokens: 8, CompletionTokens: 4, TotalTokens: 12},
	}, nil
}

func (m *MockClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = DeterministicEmbedding(text)
	}
	return vectors, nil
}

func (m *MockClient) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	if m.ListModelsFunc != nil {
		return m.ListModelsFunc(ctx)
	}
	return []model.ModelInfo{
		{ID: "mock-small", Provider: "mock"},
		{ID: "mock-large", Provider: "mock"},
	}, nil
}

func (m *MockClient) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// DeterministicEmbedding derives a fixed-dimension vector from text
// content alone, so similarity comparisons in tests are reproducible.
// The vector is normalized, as chromem's EmbeddingFunc contract requires.
func DeterministicEmbedding(text string) []float32 {
	vec := make([]float32, MockDimensions)
	for i, r := range text {
		vec[i%MockDimensions] += float32(r) / 1000
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}
