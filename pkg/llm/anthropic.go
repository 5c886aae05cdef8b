package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	anthropic "github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"github.com/brewline-ai/brewline-engine/pkg/apperrors"
	"github.com/brewline-ai/brewline-engine/pkg/retry"
)

// AnthropicClient provides chat access to the Anthropic Messages API.
// Embeddings always go through an OpenAI-compatible endpoint, so this
// client is chat-only.
type AnthropicClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	timeout   time.Duration
	logger    *zap.Logger
}

// AnthropicConfig holds configuration for creating an Anthropic client.
type AnthropicConfig struct {
	Model          string
	APIKey         string
	MaxTokens      int           // Defaults to 2000 when zero
	RequestTimeout time.Duration // Per-call deadline, retries included. Zero uses the default.
}

// NewAnthropicClient creates a chat client backed by the Anthropic API.
func NewAnthropicClient(cfg *AnthropicConfig, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(cfg.APIKey),
		model:     cfg.Model,
		maxTokens: maxTokens,
		timeout:   timeout,
		logger:    logger.Named("llm"),
	}, nil
}

// GenerateResponse generates a chat completion response.
func (c *AnthropicClient) GenerateResponse(
	ctx context.Context,
	prompt string,
	systemMessage string,
	temperature float64,
) (string, error) {
	c.logger.Debug("chat request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)),
		zap.Float64("temperature", temperature))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()

	temp := float32(temperature)
	resp, err := retry.DoWithResultIfRetryable(ctx, callRetryConfig, func() (anthropic.MessagesResponse, error) {
		r, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
			Model:       anthropic.Model(c.model),
			MaxTokens:   c.maxTokens,
			System:      systemMessage,
			Temperature: &temp,
			Messages: []anthropic.Message{
				{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
					{Type: "text", Text: &prompt},
				}},
			},
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

	text := extractText(resp)
	if text == "" {
		return "", fmt.Errorf("no text content in response")
	}

	c.logger.Info("chat request completed",
		zap.Duration("elapsed", time.Since(start)))

	return text, nil
}

// toolChoiceResponse is the JSON shape the model is asked to produce
// when emulating tool selection.
type toolChoiceResponse struct {
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments"`
}

// SelectTool emulates tool selection through structured JSON output:
// the tool catalog is rendered into the system message and the model
// answers with a {"tool": ..., "arguments": ...} object. Fails closed
// on unparseable output or an unknown tool name.
func (c *AnthropicClient) SelectTool(
	ctx context.Context,
	prompt string,
	systemMessage string,
	tools []ToolDefinition,
) (*ToolSelection, error) {
	var catalog strings.Builder
	for _, t := range tools {
		schema, err := json.Marshal(t.Parameters)
		if err != nil {
			return nil, fmt.Errorf("marshal tool schema %s: %w", t.Name, err)
		}
		fmt.Fprintf(&catalog, "- %s: %s\n  parameters: %s\n", t.Name, t.Description, schema)
	}

	system := fmt.Sprintf(`%s

You must choose exactly one of these tools:
%s
Respond with ONLY a JSON object: {"tool": "<tool name>", "arguments": {<arguments matching the tool's parameters>}}`,
		systemMessage, catalog.String())

	raw, err := c.GenerateResponse(ctx, prompt, system, 0)
	if err != nil {
		return nil, err
	}

	choice, err := ParseJSONResponse[toolChoiceResponse](raw)
	if err != nil {
		return nil, wrapNoToolSelected(err.Error())
	}

	known := false
	for _, t := range tools {
		if t.Name == choice.Tool {
			known = true
			break
		}
	}
	if !known {
		return nil, wrapNoToolSelected(fmt.Sprintf("unknown tool %q", choice.Tool))
	}

	args := string(choice.Arguments)
	if args == "" {
		args = "{}"
	}

	return &ToolSelection{Name: choice.Tool, Arguments: args}, nil
}

// CreateEmbedding always fails: the Anthropic API has no embedding
// surface. Point the embedding client at an OpenAI-compatible endpoint.
func (c *AnthropicClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	return nil, fmt.Errorf("anthropic provider: %w", apperrors.ErrEmbedUnsupported)
}

// CreateEmbeddings always fails; see CreateEmbedding.
func (c *AnthropicClient) CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	return nil, fmt.Errorf("anthropic provider: %w", apperrors.ErrEmbedUnsupported)
}

// GetModel returns the configured model name.
func (c *AnthropicClient) GetModel() string {
	return c.model
}

// GetEndpoint returns the provider identifier; the Anthropic SDK owns
// the actual URL.
func (c *AnthropicClient) GetEndpoint() string {
	return "anthropic"
}

// extractText concatenates the text blocks of a messages response.
func extractText(resp anthropic.MessagesResponse) string {
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			sb.WriteString(*block.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}

// Ensure AnthropicClient implements both interfaces at compile time.
// Its Embedder side only reports that embeddings are unsupported.
var (
	_ ChatClient = (*AnthropicClient)(nil)
	_ Embedder   = (*AnthropicClient)(nil)
)
