// Package config loads application configuration from the environment
// with an optional TOML settings file underneath. Environment variables
// always win over file values; the loaded Config is never mutated after
// Load returns.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"hugchat/provider"
)

const (
	// DefaultHTTPAddr is the fixed address the chat application listens on.
	DefaultHTTPAddr = ":8080"

	defaultMongoURI      = "mongodb://localhost:27017"
	defaultMongoDB       = "hugchat"
	defaultMongoColl     = "conversations"
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultProvider      = "openai"
	defaultVectorDirName = "vectors"
)

// Config is the fully resolved application configuration.
type Config struct {
	Provider       string `toml:"provider"`
	DefaultModel   string `toml:"default_model"`
	EmbeddingModel string `toml:"embedding_model"`

	OpenAIAPIKey  string `toml:"-"` // env only, never persisted
	OpenAIOrgID   string `toml:"-"`
	OpenAIBaseURL string `toml:"openai_base_url"`
	OllamaBaseURL string `toml:"ollama_base_url"`

	MongoURI        string `toml:"mongo_uri"`
	MongoDBName     string `toml:"mongo_db_name"`
	MongoCollection string `toml:"mongo_collection"`

	HTTPAddr string `toml:"http_addr"`
	DataDir  string `toml:"data_dir"`

	LogLevel string `toml:"log_level"`
}

// Load resolves configuration in three layers: defaults, then the
// optional settings file, then environment variables. A .env file in the
// working directory is folded into the environment first; a missing .env
// is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if path := settingsPath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Provider:        defaultProvider,
		OllamaBaseURL:   defaultOllamaBaseURL,
		MongoURI:        defaultMongoURI,
		MongoDBName:     defaultMongoDB,
		MongoCollection: defaultMongoColl,
		HTTPAddr:        DefaultHTTPAddr,
		DataDir:         defaultDataDir(),
		LogLevel:        "info",
	}
}

// settingsPath returns the settings file location, or "" when no home
// directory is resolvable. HUGCHAT_SETTINGS overrides the default
// ~/.config/hugchat/settings.toml.
func settingsPath() string {
	if path := os.Getenv("HUGCHAT_SETTINGS"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "hugchat", "settings.toml")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "hugchat-data")
	}
	return filepath.Join(home, ".local", "share", "hugchat")
}

func applyEnv(cfg *Config) {
	setIfPresent(&cfg.Provider, "AI_PROVIDER")
	setIfPresent(&cfg.DefaultModel, "DEFAULT_CHAT_MODEL")
	setIfPresent(&cfg.EmbeddingModel, "EMBEDDING_MODEL")
	setIfPresent(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	setIfPresent(&cfg.OpenAIOrgID, "OPENAI_ORG_ID")
	setIfPresent(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	setIfPresent(&cfg.OllamaBaseURL, "OLLAMA_BASE_URL")
	setIfPresent(&cfg.MongoURI, "MONGO_URI")
	setIfPresent(&cfg.MongoDBName, "MONGO_DB_NAME")
	setIfPresent(&cfg.MongoCollection, "MONGO_COLLECTION_NAME")
	setIfPresent(&cfg.HTTPAddr, "HUGCHAT_HTTP_ADDR")
	setIfPresent(&cfg.DataDir, "HUGCHAT_DATA_DIR")
	setIfPresent(&cfg.LogLevel, "HUGCHAT_LOG_LEVEL")
}

func setIfPresent(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) validate() error {
	switch provider.Type(strings.ToLower(c.Provider)) {
	case provider.TypeOpenAI, provider.TypeOllama:
	default:
		return fmt.Errorf("%w: %q", provider.ErrUnknownProvider, c.Provider)
	}
	if c.MongoDBName == "" {
		return fmt.Errorf("MONGO_DB_NAME must not be empty")
	}
	return nil
}

// ProviderConfig derives the provider.Config for the configured provider.
func (c *Config) ProviderConfig() provider.Config {
	pcfg := provider.Config{
		Provider:       provider.Type(strings.ToLower(c.Provider)),
		DefaultModel:   c.DefaultModel,
		EmbeddingModel: c.EmbeddingModel,
	}
	switch pcfg.Provider {
	case provider.TypeOpenAI:
		pcfg.BaseURL = c.OpenAIBaseURL
		pcfg.APIKey = c.OpenAIAPIKey
		pcfg.OrgID = c.OpenAIOrgID
	case provider.TypeOllama:
		pcfg.BaseURL = c.OllamaBaseURL
	}
	return pcfg
}

// VectorDir returns where the embedded vector store persists its data.
func (c *Config) VectorDir() string {
	return filepath.Join(c.DataDir, defaultVectorDirName)
}
