package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brewline-ai/brewline-engine/pkg/apperrors"
	"github.com/brewline-ai/brewline-engine/pkg/retry"
)

const chatCompletionBody = `{"id":"cmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Xin chào"},"finish_reason":"stop"}]}`

// withFastRetries swaps the call retry delays down so failure paths run
// in milliseconds.
func withFastRetries(t *testing.T) {
	t.Helper()
	saved := callRetryConfig
	callRetryConfig = &retry.Config{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2.0,
	}
	t.Cleanup(func() { callRetryConfig = saved })
}

func newChatTestClient(t *testing.T, handler http.Handler, timeout time.Duration) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&Config{
		Endpoint:       server.URL,
		Model:          "test-model",
		RequestTimeout: timeout,
	}, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestGenerateResponse_RetriesTransientFailures(t *testing.T) {
	withFastRetries(t)

	hits := 0
	client := newChatTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionBody))
	}), time.Minute)

	response, err := client.GenerateResponse(context.Background(), "xin chào", "system", 0.1)
	require.NoError(t, err)

	assert.Equal(t, "Xin chào", response)
	assert.Equal(t, 3, hits)
}

func TestGenerateResponse_PermanentFailureDoesNotRetry(t *testing.T) {
	withFastRetries(t)

	hits := 0
	client := newChatTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}), time.Minute)

	_, err := client.GenerateResponse(context.Background(), "xin chào", "system", 0.1)
	require.Error(t, err)

	assert.Equal(t, 1, hits)
	assert.Equal(t, ErrorTypeAuth, GetErrorType(err))
}

func TestGenerateResponse_HonorsRequestTimeout(t *testing.T) {
	withFastRetries(t)

	client := newChatTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionBody))
	}), 30*time.Millisecond)

	_, err := client.GenerateResponse(context.Background(), "xin chào", "system", 0.1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAnthropicClient_EmbeddingsUnsupported(t *testing.T) {
	client, err := NewAnthropicClient(&AnthropicConfig{
		Model:  "claude-3-5-haiku-latest",
		APIKey: "test-key",
	}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.CreateEmbedding(context.Background(), "trà đào")
	assert.ErrorIs(t, err, apperrors.ErrEmbedUnsupported)

	_, err = client.CreateEmbeddings(context.Background(), []string{"trà đào"})
	assert.ErrorIs(t, err, apperrors.ErrEmbedUnsupported)
}
