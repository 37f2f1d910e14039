// Package agent wraps provider clients behind the model.Agent interface.
// An agent owns exactly one provider client plus the prompt-assembly
// logic shared by every call: prepend the persona system prompt when the
// history does not already carry one, forward, and normalize the result.
package agent

import (
	"context"
	"fmt"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"hugchat/model"
	"hugchat/provider"
)

// OpenAIAgent is a model.Agent backed by the OpenAI provider client.
type OpenAIAgent struct {
	client provider.Client
}

// NewOpenAIAgent creates an agent bound to an OpenAI client.
func NewOpenAIAgent(client provider.Client) *OpenAIAgent {
	return &OpenAIAgent{client: client}
}

func (a *OpenAIAgent) Chat(ctx context.Context, history []model.Message, persona *model.Persona, settings model.ChatSettings) (*model.Completion, error) {
	return chat(ctx, a.client, history, persona, nil, settings)
}

func (a *OpenAIAgent) ChatWithTools(ctx context.Context, history []model.Message, persona *model.Persona, tools []mcptypes.Tool, settings model.ChatSettings) (*model.Completion, error) {
	return chat(ctx, a.client, history, persona, tools, settings)
}

func (a *OpenAIAgent) Provider() string { return string(provider.TypeOpenAI) }

// OllamaAgent is a model.Agent backed by a local Ollama instance.
type OllamaAgent struct {
	client provider.Client
}

// NewOllamaAgent creates an agent bound to an Ollama client.
func NewOllamaAgent(client provider.Client) *OllamaAgent {
	return &OllamaAgent{client: client}
}

func (a *OllamaAgent) Chat(ctx context.Context, history []model.Message, persona *model.Persona, settings model.ChatSettings) (*model.Completion, error) {
	return chat(ctx, a.client, history, persona, nil, settings)
}

func (a *OllamaAgent) ChatWithTools(ctx context.Context, history []model.Message, persona *model.Persona, tools []mcptypes.Tool, settings model.ChatSettings) (*model.Completion, error) {
	return chat(ctx, a.client, history, persona, tools, settings)
}

func (a *OllamaAgent) Provider() string { return string(provider.TypeOllama) }

// chat is the shared request path. The persona system prompt is inserted
// only when the history has no system message, so persisted conversations
// that already carry one are forwarded unchanged.
func chat(ctx context.Context, client provider.Client, history []model.Message, persona *model.Persona, tools []mcptypes.Tool, settings model.ChatSettings) (*model.Completion, error) {
	messages := withSystemPrompt(history, persona)

	completion, err := client.Chat(ctx, messages, tools, settings)
	if err != nil {
		return nil, err
	}
	if completion == nil {
		return nil, fmt.Errorf("%w: provider returned no completion", provider.ErrUnavailable)
	}

	completion.Message.Role = model.RoleAssistant
	if persona != nil {
		completion.Message.Persona = persona.ID
	}
	return completion, nil
}

func withSystemPrompt(history []model.Message, persona *model.Persona) []model.Message {
	if persona == nil || persona.SystemPrompt == "" {
		return history
	}
	for _, msg := range history {
		if msg.Role == model.RoleSystem {
			return history
		}
	}

	messages := make([]model.Message, 0, len(history)+1)
	messages = append(messages, model.NewMessage(model.RoleSystem, persona.SystemPrompt))
	messages = append(messages, history...)
	return messages
}
