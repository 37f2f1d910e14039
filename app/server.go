// Package app wires the chat application: HTTP routes, the chat turn
// loop with tool execution, and persistence.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/rs/zerolog"

	"hugchat/model"
	"hugchat/provider"
	"hugchat/storage"
	"hugchat/storage/vector"
	"hugchat/tools"
)

// maxToolRounds caps tool-use iterations per chat turn so a looping
// model cannot spin forever.
const maxToolRounds = 4

// ModelLister is the slice of the provider client the server needs for
// the models endpoint.
type ModelLister interface {
	ListModels(ctx context.Context) ([]model.ModelInfo, error)
}

// Server holds the application's wired dependencies and its routes.
type Server struct {
	agent        model.Agent
	store        storage.ConversationStore
	vectors      *vector.Store // nil when embeddings are disabled
	registry     *tools.Registry
	models       ModelLister // nil disables the models endpoint
	defaultModel string
	log          zerolog.Logger
	echo         *echo.Echo
}

// NewServer builds the HTTP server around the given dependencies.
// vectors and models may be nil; the matching endpoints then report the
// feature as unavailable.
func NewServer(agent model.Agent, store storage.ConversationStore, vectors *vector.Store, registry *tools.Registry, models ModelLister, defaultModel string, log zerolog.Logger) *Server {
	s := &Server{
		agent:        agent,
		store:        store,
		vectors:      vectors,
		registry:     registry,
		models:       models,
		defaultModel: defaultModel,
		log:          log,
		echo:         echo.New(),
	}
	s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) routes() {
	g := s.echo.Group("/api/v1")
	g.GET("/personas", s.listPersonas)
	g.GET("/models", s.listModels)
	g.GET("/statistics", s.statistics)
	g.GET("/conversations", s.listConversations)
	g.POST("/conversations", s.createConversation)
	g.GET("/conversations/:id", s.getConversation)
	g.DELETE("/conversations/:id", s.deleteConversation)
	g.GET("/conversations/:id/export", s.exportConversation)
	g.POST("/conversations/:id/chat", s.chat)
	g.POST("/search/messages", s.searchMessages)

	s.echo.GET("/healthz", s.health)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.echo,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info().Msg("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}

// httpStatusFor maps the error taxonomy onto HTTP status codes.
func httpStatusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, provider.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, provider.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, provider.ErrRateLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, provider.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		// 499 in the nginx tradition, but the client is gone anyway.
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func httpError(err error) error {
	return echo.NewHTTPError(httpStatusFor(err), err.Error())
}
