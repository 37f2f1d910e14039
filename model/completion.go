package model

// Usage reports token consumption for a single generation call.
// Counts are provider-reported where available; zero when the provider
// does not supply them.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another call's usage into u.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// ToolCall is a provider-agnostic tool invocation request returned by a
// model. The caller executes the tool; agents never do.
type ToolCall struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Completion is the normalized result of a provider generation call,
// independent of which provider produced it. When ToolCalls is non-empty
// the model is requesting tool execution and Message.Content may be empty.
type Completion struct {
	Message   Message    `json:"message"`
	Usage     Usage      `json:"usage"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ModelInfo describes one model available on a provider.
type ModelInfo struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Size     int64  `json:"size,omitempty"` // bytes, Ollama only
}
