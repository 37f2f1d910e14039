package model

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Agent is a provider-agnostic facade over exactly one provider client.
// Call sites depend on this interface so switching between OpenAI and
// Ollama never touches application logic.
//
// The interface is defined in the model package (not agent) to avoid
// import cycles: agent implementations import model, and callers can use
// the Agent interface without importing the agent package.
type Agent interface {
	// Chat assembles the persona system prompt plus history into the
	// provider's message format, forwards the call, and returns a
	// normalized assistant completion. The call blocks until the provider
	// responds; cancellation and timeouts arrive through ctx.
	Chat(ctx context.Context, history []Message, persona *Persona, settings ChatSettings) (*Completion, error)

	// ChatWithTools additionally declares tool schemas to the provider.
	// When the returned completion carries tool calls, the caller (never
	// the agent) executes them and feeds the results back through a
	// ToolResult message in the next call.
	ChatWithTools(ctx context.Context, history []Message, persona *Persona, tools []mcptypes.Tool, settings ChatSettings) (*Completion, error)

	// Provider returns the provider name this agent is bound to.
	Provider() string
}
