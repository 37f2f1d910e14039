package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hugchat/model"
	"hugchat/storage"
	"hugchat/tools"
)

// scriptedAgent implements model.Agent with a per-test chat func.
type scriptedAgent struct {
	chatFunc func(ctx context.Context, history []model.Message, persona *model.Persona, toolSpecs []mcptypes.Tool, settings model.ChatSettings) (*model.Completion, error)
}

func (a *scriptedAgent) Chat(ctx context.Context, history []model.Message, persona *model.Persona, settings model.ChatSettings) (*model.Completion, error) {
	return a.chatFunc(ctx, history, persona, nil, settings)
}

func (a *scriptedAgent) ChatWithTools(ctx context.Context, history []model.Message, persona *model.Persona, toolSpecs []mcptypes.Tool, settings model.ChatSettings) (*model.Completion, error) {
	return a.chatFunc(ctx, history, persona, toolSpecs, settings)
}

func (a *scriptedAgent) Provider() string { return "scripted" }

func echoAgent() *scriptedAgent {
	return &scriptedAgent{
		chatFunc: func(ctx context.Context, history []model.Message, persona *model.Persona, toolSpecs []mcptypes.Tool, settings model.ChatSettings) (*model.Completion, error) {
			last := history[len(history)-1]
			msg := model.NewMessage(model.RoleAssistant, "echo: "+last.Content)
			return &model.Completion{
				Message: msg,
				Usage:   model.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
			}, nil
		},
	}
}

func newTestServer(t *testing.T, agent model.Agent) (*Server, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	srv := NewServer(agent, store, nil, tools.NewRegistry(), nil, "test-model", zerolog.Nop())
	return srv, store
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createTestConversation(t *testing.T, srv *Server, personaID string) model.Conversation {
	t.Helper()
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/conversations", map[string]any{"persona_id": personaID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var conv model.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	return conv
}

func TestListPersonas(t *testing.T) {
	srv, _ := newTestServer(t, echoAgent())

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/personas", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var personas []model.Persona
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &personas))
	assert.Len(t, personas, 5)
}

func TestCreateConversation(t *testing.T) {
	srv, _ := newTestServer(t, echoAgent())

	conv := createTestConversation(t, srv, model.PersonaTeacher)
	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, model.PersonaTeacher, conv.PersonaID)
	assert.Equal(t, "test-model", conv.Settings.Model)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, model.RoleSystem, conv.Messages[0].Role)
}

func TestCreateConversationUnknownPersona(t *testing.T) {
	srv, _ := newTestServer(t, echoAgent())

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/conversations", map[string]any{"persona_id": "nonexistent"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatTurn(t *testing.T) {
	srv, store := newTestServer(t, echoAgent())
	conv := createTestConversation(t, srv, model.PersonaAssistant)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/conversations/"+conv.ID+"/chat", chatRequest{Content: "hello there"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, conv.ID, resp.ConversationID)
	assert.Equal(t, model.RoleAssistant, resp.Message.Role)
	assert.Equal(t, "echo: hello there", resp.Message.Content)
	assert.Equal(t, 15, resp.Usage.TotalTokens)

	// The whole exchange was persisted, with an auto-generated title.
	stored, err := store.LoadByID(context.Background(), conv.ID)
	require.NoError(t, err)
	require.Len(t, stored.Messages, 3) // system, user, assistant
	assert.Equal(t, "hello there", stored.Title)
	assert.Equal(t, 15, stored.TokenUsage.TotalTokens)
}

func TestChatTurnSecondAppendIsAtomicPath(t *testing.T) {
	srv, store := newTestServer(t, echoAgent())
	conv := createTestConversation(t, srv, "")

	for i := 0; i < 2; i++ {
		rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/conversations/"+conv.ID+"/chat", chatRequest{Content: fmt.Sprintf("message %d", i)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	stored, err := store.LoadByID(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 4)
	assert.Equal(t, 30, stored.TokenUsage.TotalTokens)
	assert.Equal(t, "message 0", stored.Title, "title comes from the first user message")
}

func TestChatUnknownConversation(t *testing.T) {
	srv, _ := newTestServer(t, echoAgent())

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/conversations/missing/chat", chatRequest{Content: "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatEmptyContent(t *testing.T) {
	srv, _ := newTestServer(t, echoAgent())
	conv := createTestConversation(t, srv, "")

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/conversations/"+conv.ID+"/chat", chatRequest{Content: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatFailureDoesNotPersist(t *testing.T) {
	failing := &scriptedAgent{
		chatFunc: func(ctx context.Context, history []model.Message, persona *model.Persona, toolSpecs []mcptypes.Tool, settings model.ChatSettings) (*model.Completion, error) {
			return nil, fmt.Errorf("provider blew up")
		},
	}
	srv, store := newTestServer(t, failing)
	conv := createTestConversation(t, srv, "")

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/conversations/"+conv.ID+"/chat", chatRequest{Content: "hello"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	stored, err := store.LoadByID(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Messages, "a failed turn must not persist the user message")
}

func TestChatToolRound(t *testing.T) {
	calls := 0
	agent := &scriptedAgent{
		chatFunc: func(ctx context.Context, history []model.Message, persona *model.Persona, toolSpecs []mcptypes.Tool, settings model.ChatSettings) (*model.Completion, error) {
			calls++
			if calls == 1 {
				msg := model.NewMessage(model.RoleAssistant, "")
				return &model.Completion{
					Message:   msg,
					Usage:     model.Usage{TotalTokens: 10},
					ToolCalls: []model.ToolCall{{Name: "lookup", Arguments: map[string]any{"key": "answer"}}},
				}, nil
			}
			last := history[len(history)-1]
			msg := model.NewMessage(model.RoleAssistant, "based on the tool: "+last.Content)
			return &model.Completion{Message: msg, Usage: model.Usage{TotalTokens: 20}}, nil
		},
	}

	store := storage.NewMemoryStore()
	registry := tools.NewRegistry()
	registry.Register(mcptypes.Tool{Name: "lookup"}, func(ctx context.Context, args map[string]any) (string, error) {
		return "42", nil
	})
	srv := NewServer(agent, store, nil, registry, nil, "test-model", zerolog.Nop())

	conv := createTestConversation(t, srv, "")
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/conversations/"+conv.ID+"/chat", chatRequest{Content: "what is the answer"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"lookup"}, resp.ToolsUsed)
	assert.Contains(t, resp.Message.Content, "42")
	assert.Equal(t, 30, resp.Usage.TotalTokens)

	stored, err := store.LoadByID(context.Background(), conv.ID)
	require.NoError(t, err)
	// user, tool result, assistant
	require.Len(t, stored.Messages, 3)
	assert.Equal(t, model.RoleTool, stored.Messages[1].Role)
	assert.Equal(t, "lookup", stored.Messages[1].ToolName)
}

func TestChatToolRoundCap(t *testing.T) {
	// An agent that always asks for tools must still terminate.
	agent := &scriptedAgent{
		chatFunc: func(ctx context.Context, history []model.Message, persona *model.Persona, toolSpecs []mcptypes.Tool, settings model.ChatSettings) (*model.Completion, error) {
			msg := model.NewMessage(model.RoleAssistant, "giving up on tools")
			return &model.Completion{
				Message:   msg,
				ToolCalls: []model.ToolCall{{Name: "lookup", Arguments: map[string]any{}}},
			}, nil
		},
	}

	store := storage.NewMemoryStore()
	registry := tools.NewRegistry()
	registry.Register(mcptypes.Tool{Name: "lookup"}, func(ctx context.Context, args map[string]any) (string, error) {
		return "loop", nil
	})
	srv := NewServer(agent, store, nil, registry, nil, "test-model", zerolog.Nop())

	conv := createTestConversation(t, srv, "")
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/conversations/"+conv.ID+"/chat", chatRequest{Content: "loop forever"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestGetAndDeleteConversation(t *testing.T) {
	srv, _ := newTestServer(t, echoAgent())
	conv := createTestConversation(t, srv, "")

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/conversations/"+conv.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodDelete, "/api/v1/conversations/"+conv.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/conversations/"+conv.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListConversations(t *testing.T) {
	srv, _ := newTestServer(t, echoAgent())
	for i := 0; i < 3; i++ {
		createTestConversation(t, srv, "")
	}

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/conversations?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summaries []model.ConversationSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	assert.Len(t, summaries, 2)

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/conversations?limit=banana", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportConversation(t *testing.T) {
	srv, _ := newTestServer(t, echoAgent())
	conv := createTestConversation(t, srv, "")

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/conversations/"+conv.ID+"/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	var exported model.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exported))
	assert.Equal(t, conv.ID, exported.ID)
}

func TestStatisticsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, echoAgent())
	conv := createTestConversation(t, srv, "")
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/conversations/"+conv.ID+"/chat", chatRequest{Content: "hi"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats storage.Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.EqualValues(t, 1, stats.Conversations)
	assert.EqualValues(t, 15, stats.TotalTokens)
}

func TestSearchMessagesUnconfigured(t *testing.T) {
	srv, _ := newTestServer(t, echoAgent())

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/search/messages", searchRequest{Query: "anything"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, echoAgent())

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
