package llm

import (
	"context"
)

// MockChatClient is a configurable mock for testing chat functionality.
// Set the function fields to control behavior in tests.
type MockChatClient struct {
	// GenerateResponseFunc is called when GenerateResponse is invoked.
	// If nil, returns empty string and nil error.
	GenerateResponseFunc func(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)

	// SelectToolFunc is called when SelectTool is invoked.
	// If nil, returns nil and ErrNoToolSelected.
	SelectToolFunc func(ctx context.Context, prompt string, systemMessage string, tools []ToolDefinition) (*ToolSelection, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Call tracking for verification
	GenerateResponseCalls int
	SelectToolCalls       int

	// Prompts records every prompt passed to GenerateResponse.
	Prompts []string
}

// NewMockChatClient creates a new mock with sensible defaults.
func NewMockChatClient() *MockChatClient {
	return &MockChatClient{Model: "mock-model"}
}

// GenerateResponse implements ChatClient.
func (m *MockChatClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error) {
	m.GenerateResponseCalls++
	m.Prompts = append(m.Prompts, prompt)
	if m.GenerateResponseFunc != nil {
		return m.GenerateResponseFunc(ctx, prompt, systemMessage, temperature)
	}
	return "", nil
}

// SelectTool implements ChatClient.
func (m *MockChatClient) SelectTool(ctx context.Context, prompt string, systemMessage string, tools []ToolDefinition) (*ToolSelection, error) {
	m.SelectToolCalls++
	if m.SelectToolFunc != nil {
		return m.SelectToolFunc(ctx, prompt, systemMessage, tools)
	}
	return nil, wrapNoToolSelected("mock has no SelectToolFunc")
}

// GetModel implements ChatClient.
func (m *MockChatClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// GetEndpoint implements ChatClient.
func (m *MockChatClient) GetEndpoint() string {
	return "http://mock-endpoint"
}

// Reset clears call tracking counters.
func (m *MockChatClient) Reset() {
	m.GenerateResponseCalls = 0
	m.SelectToolCalls = 0
	m.Prompts = nil
}

// Ensure MockChatClient implements ChatClient at compile time.
var _ ChatClient = (*MockChatClient)(nil)

// MockEmbedder is a configurable mock for testing embedding consumers.
type MockEmbedder struct {
	// CreateEmbeddingsFunc is called for both CreateEmbedding and
	// CreateEmbeddings. If nil, returns a zero vector per input.
	CreateEmbeddingsFunc func(ctx context.Context, inputs []string) ([][]float32, error)

	// Dim is the dimension of default zero vectors. Defaults to 4.
	Dim int

	CreateEmbeddingsCalls int
}

// NewMockEmbedder creates a new mock embedder.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{Dim: 4}
}

// CreateEmbedding implements Embedder.
func (m *MockEmbedder) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	vectors, err := m.CreateEmbeddings(ctx, []string{input})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// CreateEmbeddings implements Embedder.
func (m *MockEmbedder) CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	m.CreateEmbeddingsCalls++
	if m.CreateEmbeddingsFunc != nil {
		return m.CreateEmbeddingsFunc(ctx, inputs)
	}
	dim := m.Dim
	if dim <= 0 {
		dim = 4
	}
	vectors := make([][]float32, len(inputs))
	for i := range vectors {
		vectors[i] = make([]float32, dim)
	}
	return vectors, nil
}

// GetModel implements Embedder.
func (m *MockEmbedder) GetModel() string {
	return "mock-embedding-model"
}

// Ensure MockEmbedder implements Embedder at compile time.
var _ Embedder = (*MockEmbedder)(nil)
