package app

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"

	"hugchat/model"
	"hugchat/storage"
)

type createConversationRequest struct {
	PersonaID string  `json:"persona_id"`
	Model     string  `json:"model"`
	Title     string  `json:"title"`
	MaxTokens int     `json:"max_tokens"`
	Temp      float64 `json:"temperature"`
}

type chatRequest struct {
	Content string `json:"content"`
}

type chatResponse struct {
	ConversationID string        `json:"conversation_id"`
	Message        model.Message `json:"message"`
	Usage          model.Usage   `json:"usage"`
	ToolsUsed      []string      `json:"tools_used,omitempty"`
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (s *Server) listPersonas(c *echo.Context) error {
	return c.JSON(http.StatusOK, model.Personas())
}

func (s *Server) listModels(c *echo.Context) error {
	if s.models == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "model listing is not configured")
	}
	models, err := s.models.ListModels(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, models)
}

func (s *Server) statistics(c *echo.Context) error {
	stats, err := s.store.Statistics(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) listConversations(c *echo.Context) error {
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		limit = n
	}

	summaries, err := s.store.LoadRecent(c.Request().Context(), limit)
	if err != nil {
		return httpError(err)
	}
	if summaries == nil {
		summaries = []model.ConversationSummary{}
	}
	return c.JSON(http.StatusOK, summaries)
}

func (s *Server) createConversation(c *echo.Context) error {
	var req createConversationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var persona *model.Persona
	if req.PersonaID != "" {
		p, ok := model.PersonaByID(req.PersonaID)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown persona %q", req.PersonaID))
		}
		persona = &p
	}

	modelName := req.Model
	if modelName == "" {
		modelName = s.defaultModel
	}
	settings := model.DefaultSettings(modelName)
	if req.Temp > 0 {
		settings.Temperature = req.Temp
	}
	if req.MaxTokens > 0 {
		settings.MaxTokens = req.MaxTokens
	}
	if err := settings.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	conv := model.NewConversation(persona, settings)
	conv.Title = req.Title

	if err := s.store.Save(c.Request().Context(), conv); err != nil {
		return httpError(err)
	}
	s.log.Info().Str("conversation_id", conv.ID).Str("persona", conv.PersonaID).Msg("conversation created")
	return c.JSON(http.StatusCreated, conv)
}

func (s *Server) getConversation(c *echo.Context) error {
	conv, err := s.store.LoadByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, conv)
}

func (s *Server) deleteConversation(c *echo.Context) error {
	if err := s.store.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) exportConversation(c *echo.Context) error {
	conv, err := s.store.LoadByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "conversation-"+conv.ID+".json"))
	return c.JSON(http.StatusOK, conv)
}

// chat runs one whole turn: user message in, tool rounds as needed,
// assistant message out. Nothing is persisted until the turn completed,
// so a cancelled request never leaves a half-written exchange behind.
func (s *Server) chat(c *echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content required")
	}

	ctx := c.Request().Context()
	conv, err := s.store.LoadByID(ctx, c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	var persona *model.Persona
	if conv.PersonaID != "" {
		if p, ok := model.PersonaByID(conv.PersonaID); ok {
			persona = &p
		}
	}

	settings := conv.Settings
	if settings.Model == "" {
		settings.Model = s.defaultModel
	}

	firstTurn := conv.IsEmpty()
	userMsg := conv.AppendUser(req.Content)
	newMessages := []model.Message{userMsg}
	var turnUsage model.Usage
	var toolsUsed []string

	var assistant model.Message
	for round := 0; ; round++ {
		completion, err := s.agent.ChatWithTools(ctx, conv.History(true), persona, s.registry.Specs(), settings)
		if err != nil {
			s.log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("chat turn failed")
			return httpError(err)
		}
		turnUsage.Add(completion.Usage)

		if len(completion.ToolCalls) == 0 || round >= maxToolRounds {
			assistant = conv.AppendAssistant(completion.Message, model.Usage{})
			newMessages = append(newMessages, assistant)
			break
		}

		for _, call := range completion.ToolCalls {
			output, err := s.registry.Execute(ctx, call.Name, call.Arguments)
			if err != nil {
				// The model sees the failure and can answer without the
				// tool; only context cancellation aborts the turn.
				if ctx.Err() != nil {
					return httpError(ctx.Err())
				}
				output = fmt.Sprintf("tool error: %v", err)
			}
			toolMsg := conv.AppendToolResult(call.Name, output)
			newMessages = append(newMessages, toolMsg)
			toolsUsed = append(toolsUsed, call.Name)
		}
	}

	conv.TokenUsage.Add(turnUsage)

	if firstTurn && conv.Title == "" {
		conv.Title = model.GenerateTitle(req.Content)
	}

	// A fresh title (or the very first exchange) needs the whole
	// document; later turns append atomically.
	if firstTurn {
		err = s.store.Save(ctx, conv)
	} else {
		err = s.store.Append(ctx, conv.ID, newMessages, turnUsage)
	}
	if err != nil {
		return httpError(err)
	}

	s.indexMessages(conv, newMessages)

	return c.JSON(http.StatusOK, chatResponse{
		ConversationID: conv.ID,
		Message:        assistant,
		Usage:          turnUsage,
		ToolsUsed:      toolsUsed,
	})
}

// indexMessages pushes the turn's messages into the vector store. Best
// effort: indexing failures are logged, never surfaced to the client.
func (s *Server) indexMessages(conv *model.Conversation, messages []model.Message) {
	if s.vectors == nil {
		return
	}
	base := len(conv.Messages) - len(messages)
	for i, msg := range messages {
		if msg.Role != model.RoleUser && msg.Role != model.RoleAssistant {
			continue
		}
		if err := s.vectors.IndexMessage(context.Background(), conv.ID, base+i, msg); err != nil {
			s.log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("failed to index message")
		}
	}
}

func (s *Server) searchMessages(c *echo.Context) error {
	if s.vectors == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "semantic search is not configured")
	}

	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query required")
	}

	results, err := s.vectors.SearchSimilar(c.Request().Context(), req.Query, req.Limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, results)
}

func (s *Server) health(c *echo.Context) error {
	if _, err := s.store.Statistics(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, storage.ErrPersistence.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
