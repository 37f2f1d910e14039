package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChatSettings holds the generation parameters for chat completion
// requests. Zero-valued optional fields (MaxTokens, TopP, penalties) are
// omitted from provider requests.
type ChatSettings struct {
	Model            string  `bson:"model" json:"model"`
	Temperature      float64 `bson:"temperature" json:"temperature"`
	MaxTokens        int     `bson:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	TopP             float64 `bson:"top_p,omitempty" json:"top_p,omitempty"`
	FrequencyPenalty float64 `bson:"frequency_penalty,omitempty" json:"frequency_penalty,omitempty"`
	PresencePenalty  float64 `bson:"presence_penalty,omitempty" json:"presence_penalty,omitempty"`
}

// DefaultSettings returns settings matching the documented defaults for
// the given model.
func DefaultSettings(model string) ChatSettings {
	return ChatSettings{
		Model:       model,
		Temperature: 0.7,
	}
}

// Validate checks parameter ranges before a request is built. Agents map
// a validation failure to an invalid-request error without calling the
// provider.
func (s ChatSettings) Validate() error {
	if strings.TrimSpace(s.Model) == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		return fmt.Errorf("temperature %.2f out of range [0, 2]", s.Temperature)
	}
	if s.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be at least 1, got %d", s.MaxTokens)
	}
	if s.TopP < 0 || s.TopP > 1 {
		return fmt.Errorf("top_p %.2f out of range [0, 1]", s.TopP)
	}
	if s.FrequencyPenalty < -2 || s.FrequencyPenalty > 2 {
		return fmt.Errorf("frequency_penalty %.2f out of range [-2, 2]", s.FrequencyPenalty)
	}
	if s.PresencePenalty < -2 || s.PresencePenalty > 2 {
		return fmt.Errorf("presence_penalty %.2f out of range [-2, 2]", s.PresencePenalty)
	}
	return nil
}

// Conversation is an ordered, append-only sequence of messages plus
// metadata. Messages are never edited or reordered after being appended;
// mutation is limited to appending and to the UpdatedAt / TokenUsage
// aggregates.
type Conversation struct {
	ID         string       `bson:"_id" json:"id"`
	Title      string       `bson:"title,omitempty" json:"title,omitempty"`
	PersonaID  string       `bson:"persona_id,omitempty" json:"persona_id,omitempty"`
	Settings   ChatSettings `bson:"settings" json:"settings"`
	Messages   []Message    `bson:"messages" json:"messages"`
	Tags       []string     `bson:"tags,omitempty" json:"tags,omitempty"`
	CreatedAt  time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `bson:"updated_at" json:"updated_at"`
	TokenUsage Usage        `bson:"token_usage" json:"token_usage"`
}

// ConversationSummary is a lightweight view of a conversation for
// recency listings; it carries no message bodies.
type ConversationSummary struct {
	ID           string    `bson:"_id" json:"id"`
	Title        string    `bson:"title,omitempty" json:"title,omitempty"`
	PersonaID    string    `bson:"persona_id,omitempty" json:"persona_id,omitempty"`
	Model        string    `bson:"model" json:"model"`
	MessageCount int       `bson:"message_count" json:"message_count"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// NewConversation creates an empty conversation. When a persona is given
// its system prompt becomes the first message.
func NewConversation(persona *Persona, settings ChatSettings) *Conversation {
	now := time.Now().UTC()
	c := &Conversation{
		ID:        uuid.New().String(),
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if persona != nil {
		c.PersonaID = persona.ID
		c.append(NewMessage(RoleSystem, persona.SystemPrompt))
	}
	return c
}

func (c *Conversation) append(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now().UTC()
}

// AppendUser appends a user message.
func (c *Conversation) AppendUser(content string) Message {
	msg := NewMessage(RoleUser, content)
	c.append(msg)
	return msg
}

// AppendAssistant appends an assistant message and accumulates its token
// usage into the conversation totals.
func (c *Conversation) AppendAssistant(msg Message, usage Usage) Message {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	c.append(msg)
	c.TokenUsage.Add(usage)
	return msg
}

// AppendToolResult appends the output of a caller-executed tool.
func (c *Conversation) AppendToolResult(toolName, output string) Message {
	msg := ToolResult(toolName, output)
	c.append(msg)
	return msg
}

// SystemMessage returns the conversation's system message, or nil when
// none has been set.
func (c *Conversation) SystemMessage() *Message {
	for i := range c.Messages {
		if c.Messages[i].Role == RoleSystem {
			return &c.Messages[i]
		}
	}
	return nil
}

// History returns the message sequence, optionally without system
// messages. The returned slice is a copy; the conversation itself stays
// append-only.
func (c *Conversation) History(includeSystem bool) []Message {
	if includeSystem {
		out := make([]Message, len(c.Messages))
		copy(out, c.Messages)
		return out
	}
	out := make([]Message, 0, len(c.Messages))
	for _, msg := range c.Messages {
		if msg.Role != RoleSystem {
			out = append(out, msg)
		}
	}
	return out
}

// IsEmpty reports whether the conversation has no user or assistant
// messages yet. Empty conversations are not worth persisting.
func (c *Conversation) IsEmpty() bool {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser || msg.Role == RoleAssistant {
			return false
		}
	}
	return true
}

// Summary derives the listing view of the conversation.
func (c *Conversation) Summary() ConversationSummary {
	return ConversationSummary{
		ID:           c.ID,
		Title:        c.Title,
		PersonaID:    c.PersonaID,
		Model:        c.Settings.Model,
		MessageCount: len(c.Messages),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// GenerateTitle derives a conversation title from the first user message.
func GenerateTitle(firstMessage string) string {
	name := strings.ReplaceAll(firstMessage, "\n", " ")
	name = strings.ReplaceAll(name, "\r", " ")
	name = strings.TrimSpace(name)

	if name == "" {
		return fmt.Sprintf("Conversation %s", time.Now().Format("Jan 2, 3:04 PM"))
	}
	// Truncate on runes so a multi-byte character is never split.
	if runes := []rune(name); len(runes) > 30 {
		name = string(runes[:30]) + "..."
	}
	return name
}
