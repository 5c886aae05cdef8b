// Package llm provides chat and embedding clients for
// OpenAI-compatible and Anthropic endpoints.
package llm

import (
	"context"
)

// ToolSelection is the model's choice of tool for a user request.
type ToolSelection struct {
	// Name is the selected tool's name.
	Name string
	// Arguments is the raw JSON arguments the model supplied.
	Arguments string
}

// ChatClient defines the interface for generative chat operations.
// Use this interface for dependency injection to enable mocking in tests.
type ChatClient interface {
	// GenerateResponse generates a chat completion response.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)

	// SelectTool asks the model to pick one of the given tools for the
	// prompt. Returns apperrors.ErrNoToolSelected when the model does
	// not produce a usable tool call.
	SelectTool(ctx context.Context, prompt string, systemMessage string, tools []ToolDefinition) (*ToolSelection, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// Embedder defines the interface for embedding operations.
type Embedder interface {
	// CreateEmbedding generates an embedding vector for the input text.
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)

	// CreateEmbeddings generates embeddings for multiple inputs.
	CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error)

	// GetModel returns the configured embedding model name.
	GetModel() string
}
