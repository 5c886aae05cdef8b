package llm

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/brewline-ai/brewline-engine/pkg/config"
)

// NewChatClient creates the chat client for the configured provider.
func NewChatClient(cfg *config.AIConfig, logger *zap.Logger) (ChatClient, error) {
	switch cfg.Provider {
	case "openai":
		client, err := NewClient(&Config{
			Endpoint:       cfg.Endpoint,
			Model:          cfg.Model,
			APIKey:         cfg.APIKey,
			RequestTimeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		return client, nil

	case "anthropic":
		client, err := NewAnthropicClient(&AnthropicConfig{
			Model:          cfg.Model,
			APIKey:         cfg.APIKey,
			RequestTimeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create anthropic client: %w", err)
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unsupported chat provider %q", cfg.Provider)
	}
}

// NewEmbeddingClient creates the embedding client. Embeddings are always
// served by an OpenAI-compatible endpoint regardless of the chat
// provider, since the Anthropic API has no embedding surface.
func NewEmbeddingClient(cfg *config.AIConfig, logger *zap.Logger) (Embedder, error) {
	apiKey := cfg.EmbeddingAPIKey
	if apiKey == "" {
		apiKey = cfg.APIKey
	}

	client, err := NewClient(&Config{
		Endpoint:       cfg.EmbeddingEndpoint,
		EmbeddingModel: cfg.EmbeddingModel,
		APIKey:         apiKey,
		RequestTimeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}

	return client, nil
}
