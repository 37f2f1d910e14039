package agent

import (
	"fmt"

	"hugchat/model"
	"hugchat/provider"
)

// New creates the agent matching cfg.Provider. Provider names are
// matched exactly; anything outside the supported set fails with
// provider.ErrUnknownProvider rather than falling back to a default.
func New(cfg provider.Config) (model.Agent, error) {
	switch cfg.Provider {
	case provider.TypeOpenAI:
		client, err := provider.NewOpenAIClient(cfg)
		if err != nil {
			return nil, err
		}
		return NewOpenAIAgent(client), nil
	case provider.TypeOllama:
		client, err := provider.NewOllamaClient(cfg)
		if err != nil {
			return nil, err
		}
		return NewOllamaAgent(client), nil
	default:
		return nil, fmt.Errorf("%w: %q", provider.ErrUnknownProvider, cfg.Provider)
	}
}
