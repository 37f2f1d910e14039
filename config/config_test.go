package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"hugchat/provider"
)

// clearAppEnv unsets every variable Load reads so tests start clean.
func clearAppEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"AI_PROVIDER", "DEFAULT_CHAT_MODEL", "EMBEDDING_MODEL",
		"OPENAI_API_KEY", "OPENAI_ORG_ID", "OPENAI_BASE_URL",
		"OLLAMA_BASE_URL", "MONGO_URI", "MONGO_DB_NAME",
		"MONGO_COLLECTION_NAME", "HUGCHAT_HTTP_ADDR", "HUGCHAT_DATA_DIR",
		"HUGCHAT_LOG_LEVEL", "HUGCHAT_SETTINGS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	// Point the settings file somewhere that does not exist so a
	// developer's real settings never leak into tests.
	t.Setenv("HUGCHAT_SETTINGS", filepath.Join(t.TempDir(), "none.toml"))
}

func TestLoadDefaults(t *testing.T) {
	clearAppEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Provider != "openai" {
		t.Errorf("provider = %q, want openai", cfg.Provider)
	}
	if cfg.MongoURI != "mongodb://localhost:27017" {
		t.Errorf("mongo uri = %q", cfg.MongoURI)
	}
	if cfg.MongoDBName != "hugchat" {
		t.Errorf("mongo db = %q", cfg.MongoDBName)
	}
	if cfg.HTTPAddr != DefaultHTTPAddr {
		t.Errorf("http addr = %q, want %q", cfg.HTTPAddr, DefaultHTTPAddr)
	}
	if cfg.OllamaBaseURL != "http://localhost:11434" {
		t.Errorf("ollama base url = %q", cfg.OllamaBaseURL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearAppEnv(t)
	t.Setenv("AI_PROVIDER", "ollama")
	t.Setenv("DEFAULT_CHAT_MODEL", "llama3.2:3b")
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("MONGO_DB_NAME", "chat_test")
	t.Setenv("HUGCHAT_HTTP_ADDR", ":9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Provider != "ollama" {
		t.Errorf("provider = %q", cfg.Provider)
	}
	if cfg.DefaultModel != "llama3.2:3b" {
		t.Errorf("default model = %q", cfg.DefaultModel)
	}
	if cfg.MongoURI != "mongodb://db:27017" {
		t.Errorf("mongo uri = %q", cfg.MongoURI)
	}
	if cfg.MongoDBName != "chat_test" {
		t.Errorf("mongo db = %q", cfg.MongoDBName)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("http addr = %q", cfg.HTTPAddr)
	}
}

func TestLoadSettingsFileUnderEnv(t *testing.T) {
	clearAppEnv(t)

	settings := filepath.Join(t.TempDir(), "settings.toml")
	content := `
provider = "ollama"
default_model = "from-file"
mongo_db_name = "file_db"
`
	if err := os.WriteFile(settings, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HUGCHAT_SETTINGS", settings)
	// Env wins over the file.
	t.Setenv("DEFAULT_CHAT_MODEL", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Provider != "ollama" {
		t.Errorf("provider = %q, want value from file", cfg.Provider)
	}
	if cfg.MongoDBName != "file_db" {
		t.Errorf("mongo db = %q, want value from file", cfg.MongoDBName)
	}
	if cfg.DefaultModel != "from-env" {
		t.Errorf("default model = %q, want env to win", cfg.DefaultModel)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	clearAppEnv(t)
	t.Setenv("AI_PROVIDER", "bedrock")

	if _, err := Load(); !errors.Is(err, provider.ErrUnknownProvider) {
		t.Errorf("Load() error = %v, want ErrUnknownProvider", err)
	}
}

func TestProviderConfig(t *testing.T) {
	cfg := &Config{
		Provider:      "openai",
		OpenAIAPIKey:  "sk-test",
		OpenAIOrgID:   "org-1",
		OpenAIBaseURL: "https://proxy.example.com/v1",
		OllamaBaseURL: "http://localhost:11434",
		DefaultModel:  "gpt-4o-mini",
	}

	pcfg := cfg.ProviderConfig()
	if pcfg.Provider != provider.TypeOpenAI {
		t.Errorf("provider = %q", pcfg.Provider)
	}
	if pcfg.APIKey != "sk-test" || pcfg.OrgID != "org-1" {
		t.Errorf("credentials not carried over: %+v", pcfg)
	}
	if pcfg.BaseURL != "https://proxy.example.com/v1" {
		t.Errorf("base url = %q", pcfg.BaseURL)
	}

	cfg.Provider = "Ollama" // case-insensitive
	pcfg = cfg.ProviderConfig()
	if pcfg.Provider != provider.TypeOllama {
		t.Errorf("provider = %q, want ollama", pcfg.Provider)
	}
	if pcfg.BaseURL != "http://localhost:11434" {
		t.Errorf("base url = %q", pcfg.BaseURL)
	}
	if pcfg.APIKey != "" {
		t.Error("ollama config should not carry the OpenAI key")
	}
}
