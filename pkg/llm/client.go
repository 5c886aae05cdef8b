package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/brewline-ai/brewline-engine/pkg/retry"
)

// defaultRequestTimeout bounds one model call, retries included, when
// the configuration does not say otherwise.
const defaultRequestTimeout = 60 * time.Second

// callRetryConfig bounds transient-failure retries on model calls.
// Permanent failures (auth, bad model) fail on the first attempt.
var callRetryConfig = &retry.Config{
	MaxRetries:   2,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     5 * time.Second,
	Multiplier:   2.0,
	JitterFactor: 0.1,
}

// Client provides access to OpenAI-compatible chat and embedding endpoints.
type Client struct {
	client         *openai.Client
	endpoint       string
	model          string
	embeddingModel string
	timeout        time.Duration
	logger         *zap.Logger
}

// Config holds configuration for creating an LLM client.
type Config struct {
	Endpoint       string        // Base URL, e.g. "https://api.openai.com/v1". Empty uses the provider default.
	Model          string        // Chat model name, e.g. "gpt-4o-mini"
	EmbeddingModel string        // Embedding model name, e.g. "text-embedding-3-small"
	APIKey         string        // Optional for local endpoints
	RequestTimeout time.Duration // Per-call deadline, retries included. Zero uses the default.
}

// NewClient creates a new OpenAI-compatible client.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg.Model == "" && cfg.EmbeddingModel == "" {
		return nil, fmt.Errorf("model or embedding model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &Client{
		client:         openai.NewClientWithConfig(clientConfig),
		endpoint:       cfg.Endpoint,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		timeout:        timeout,
		logger:         logger.Named("llm"),
	}, nil
}

// GenerateResponse generates a chat completion response.
func (c *Client) GenerateResponse(
	ctx context.Context,
	prompt string,
	systemMessage string,
	temperature float64,
) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}

	c.logger.Debug("chat request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)),
		zap.Float64("temperature", temperature))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()

	resp, err := retry.DoWithResultIfRetryable(ctx, callRetryConfig, func() (openai.ChatCompletionResponse, error) {
		r, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    messages,
			Temperature: float32(temperature),
		})
		if err != nil {
			return r, ClassifyError(err)
		}
		return r, nil
	})
	if err != nil {
		c.logger.Error("chat request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	c.logger.Info("chat request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return resp.Choices[0].Message.Content, nil
}

// SelectTool asks the model to route the prompt to one of the given
// tools via native function calling. Fails closed: if the model answers
// with plain text or an unknown tool, ErrNoToolSelected is returned.
func (c *Client) SelectTool(
	ctx context.Context,
	prompt string,
	systemMessage string,
	tools []ToolDefinition,
) (*ToolSelection, error) {
	openaiTools := make([]openai.Tool, len(tools))
	for i, t := range tools {
		openaiTools[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()

	resp, err := retry.DoWithResultIfRetryable(ctx, callRetryConfig, func() (openai.ChatCompletionResponse, error) {
		r, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Tools: openaiTools,
		})
		if err != nil {
			return r, ClassifyError(err)
		}
		return r, nil
	})
	if err != nil {
		c.logger.Error("tool selection request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, err
	}

	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return nil, wrapNoToolSelected("model returned no tool call")
	}

	call := resp.Choices[0].Message.ToolCalls[0]
	selection := &ToolSelection{
		Name:      call.Function.Name,
		Arguments: call.Function.Arguments,
	}

	c.logger.Info("tool selected",
		zap.String("tool", selection.Name),
		zap.Duration("elapsed", time.Since(start)))

	return selection, nil
}

// CreateEmbedding generates an embedding vector for the input text.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	vectors, err := c.CreateEmbeddings(ctx, []string{input})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// CreateEmbeddings generates embeddings for multiple inputs.
func (c *Client) CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	model := c.embeddingModel
	if model == "" {
		model = "text-embedding-3-small"
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := retry.DoWithResultIfRetryable(ctx, callRetryConfig, func() (openai.EmbeddingResponse, error) {
		r, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(model),
			Input: inputs,
		})
		if err != nil {
			return r, ClassifyError(err)
		}
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}

	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(inputs), len(resp.Data))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", i)
		}
		embeddings[i] = d.Embedding
	}

	return embeddings, nil
}

// GetModel returns the configured chat model name.
func (c *Client) GetModel() string {
	return c.model
}

// GetEndpoint returns the configured endpoint.
func (c *Client) GetEndpoint() string {
	return c.endpoint
}

// Ensure Client implements both interfaces at compile time.
var (
	_ ChatClient = (*Client)(nil)
	_ Embedder   = (*Client)(nil)
)
