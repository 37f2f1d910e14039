// hugchat is a multi-provider AI chat service. It exposes an HTTP API
// for conversations backed by OpenAI or a local Ollama instance, with
// MongoDB persistence and optional semantic search over past messages.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"hugchat/agent"
	"hugchat/app"
	"hugchat/config"
	"hugchat/provider"
	"hugchat/search"
	"hugchat/storage"
	"hugchat/storage/mongodb"
	"hugchat/storage/vector"
	"hugchat/tools"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("exiting")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	pcfg := cfg.ProviderConfig()

	chatAgent, err := agent.New(pcfg)
	if err != nil {
		return err
	}
	client, err := provider.NewClient(pcfg)
	if err != nil {
		return err
	}
	log.Info().Str("provider", chatAgent.Provider()).Str("model", cfg.DefaultModel).Msg("agent ready")

	store, cleanup, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	vectors, err := vector.New(cfg.VectorDir(), client, log)
	if err != nil {
		// Chat works without semantic search; keep going.
		log.Warn().Err(err).Msg("vector store unavailable, semantic search disabled")
		vectors = nil
	}

	registry := tools.NewRegistry()
	registry.Register(tools.WebSearchTool(), tools.WebSearchExecutor(search.NewClient(search.WithLogger(log))))

	server := app.NewServer(chatAgent, store, vectors, registry, client, cfg.DefaultModel, log)
	return server.Run(ctx, cfg.HTTPAddr)
}

// openStore connects to MongoDB, falling back to the in-memory store
// when no URI is configured. The in-memory fallback loses data on
// restart and exists for local development.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.ConversationStore, func(), error) {
	if cfg.MongoURI == "" {
		log.Warn().Msg("MONGO_URI not set, conversations will not survive restarts")
		return storage.NewMemoryStore(), func() {}, nil
	}

	store, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName, cfg.MongoCollection, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to close mongodb connection")
		}
	}
	return store, cleanup, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
