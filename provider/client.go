// Package provider implements thin authenticated clients for AI
// providers (OpenAI, Ollama) behind one provider-agnostic Client
// interface.
//
// Each client forwards a sequence of messages plus generation parameters
// and returns a normalized model.Completion; all provider-specific types
// stay inside this package. Clients never retry; throttling and
// transient failures surface as typed errors (see errors.go) and retry
// policy belongs to the caller.
package provider

import (
	"context"
	"fmt"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"hugchat/model"
)

// Type identifies the provider implementation.
type Type string

const (
	TypeOpenAI Type = "openai"
	TypeOllama Type = "ollama"
)

// Config holds provider-specific configuration. It is loaded once at
// process start and never mutated afterwards.
type Config struct {
	Provider       Type
	BaseURL        string
	APIKey         string // OpenAI only
	OrgID          string // OpenAI only, optional
	DefaultModel   string
	EmbeddingModel string
}

// Client is the contract every provider client satisfies. All calls take
// a context; cancellation and caller-supplied timeouts propagate to the
// underlying HTTP request, so the same method serves blocking and
// suspending call sites.
type Client interface {
	// Chat sends the message sequence and returns the whole completion.
	// Tools may be nil; when present, the returned completion can carry
	// tool calls instead of assistant content.
	Chat(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, settings model.ChatSettings) (*model.Completion, error)

	// Complete runs a single-prompt (non-chat) completion.
	Complete(ctx context.Context, prompt string, settings model.ChatSettings) (*model.Completion, error)

	// Embed returns one vector per input text, order-preserving.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// ListModels returns the models available on this provider.
	ListModels(ctx context.Context) ([]model.ModelInfo, error)

	// Ping checks the provider is reachable with the given credentials.
	Ping(ctx context.Context) error
}

// NewClient creates a provider client based on configuration. This is
// the centralized dispatch point for all provider types; it holds no
// state, so it is safe to call concurrently and each call yields a fresh
// client.
func NewClient(cfg Config) (Client, error) {
	switch cfg.Provider {
	case TypeOpenAI:
		return NewOpenAIClient(cfg)
	case TypeOllama:
		return NewOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
