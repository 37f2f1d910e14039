package provider

import (
	"encoding/json"
	"fmt"

	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"

	"hugchat/model"
)

// ToOllamaMessages converts provider-agnostic messages to Ollama
// api.Message. Timestamps and per-message metadata are not preserved;
// those live in the conversation layer, not on the wire.
func ToOllamaMessages(messages []model.Message) []api.Message {
	result := make([]api.Message, len(messages))
	for i, msg := range messages {
		role := msg.Role
		content := msg.Content
		if msg.Role == model.RoleTool {
			// Ollama accepts the tool role directly; prefix the tool name
			// so multi-tool exchanges stay unambiguous.
			content = toolResultContent(msg)
		}
		result[i] = api.Message{
			Role:    role,
			Content: content,
		}
	}
	return result
}

// ToOpenAIMessages converts provider-agnostic messages to the OpenAI
// message param union.
func ToOpenAIMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, len(messages))

	for i, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			result[i] = openai.SystemMessage(msg.Content)
		case model.RoleUser:
			result[i] = openai.UserMessage(msg.Content)
		case model.RoleAssistant:
			result[i] = openai.AssistantMessage(msg.Content)
		case model.RoleTool:
			// Tool results travel as user messages: the agent returns tool
			// calls to the caller instead of tracking OpenAI tool-call IDs
			// across turns, so the strict tool-message pairing is not
			// available here.
			result[i] = openai.UserMessage(toolResultContent(msg))
		default:
			result[i] = openai.UserMessage(msg.Content)
		}
	}

	return result
}

func toolResultContent(msg model.Message) string {
	if msg.ToolName == "" {
		return msg.Content
	}
	return fmt.Sprintf("Result of tool %q:\n%s", msg.ToolName, msg.Content)
}

// FromOllamaToolCalls converts Ollama tool calls to provider-agnostic
// tool calls. Returns nil for empty input, keeping the API's nil
// semantics.
func FromOllamaToolCalls(ollamaCalls []api.ToolCall) []model.ToolCall {
	if len(ollamaCalls) == 0 {
		return nil
	}

	result := make([]model.ToolCall, len(ollamaCalls))
	for i, call := range ollamaCalls {
		result[i] = model.ToolCall{
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		}
	}
	return result
}

// ParseToolArguments parses a JSON arguments string into a map. Used for
// OpenAI tool call parsing; malformed arguments yield an empty map
// rather than failing the whole completion.
func ParseToolArguments(argsJSON string) map[string]any {
	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return make(map[string]any)
	}
	return args
}
