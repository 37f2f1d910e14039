package model

import "time"

// Message roles mirror the chat API wire format. RoleTool marks the
// tool-result leg of a tool-calling exchange.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents a single chat message in a conversation.
// Messages are immutable once appended to a Conversation.
type Message struct {
	Role      string    `bson:"role" json:"role"`
	Content   string    `bson:"content" json:"content"`
	Model     string    `bson:"model,omitempty" json:"model,omitempty"`     // assistant messages only
	Persona   string    `bson:"persona,omitempty" json:"persona,omitempty"` // assistant messages only
	ToolName  string    `bson:"tool_name,omitempty" json:"tool_name,omitempty"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// NewMessage creates a message with the timestamp set to now.
func NewMessage(role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// ToolResult builds the message that feeds a tool's output back to the
// model. The caller that executed the tool constructs this and appends it
// to the history before the follow-up chat call.
func ToolResult(toolName, output string) Message {
	msg := NewMessage(RoleTool, output)
	msg.ToolName = toolName
	return msg
}
