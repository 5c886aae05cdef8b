package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantType      ErrorType
		wantRetryable bool
	}{
		{"auth 401", errors.New("status 401 unauthorized"), ErrorTypeAuth, false},
		{"invalid key", errors.New("invalid api key provided"), ErrorTypeAuth, false},
		{"model missing", errors.New("model gpt-5-nano does not exist"), ErrorTypeModel, false},
		{"endpoint 404", errors.New("404 page not found"), ErrorTypeEndpoint, false},
		{"connection refused", errors.New("dial tcp: connection refused"), ErrorTypeEndpoint, true},
		{"timeout", errors.New("context deadline exceeded"), ErrorTypeEndpoint, true},
		{"rate limited", errors.New("429 too many requests"), ErrorTypeUnknown, true},
		{"server error", errors.New("502 bad gateway"), ErrorTypeEndpoint, true},
		{"unknown", errors.New("something odd"), ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyError(tt.err)
			assert.Equal(t, tt.wantType, classified.Type)
			assert.Equal(t, tt.wantRetryable, classified.Retryable)
			assert.ErrorIs(t, classified, tt.err)
		})
	}
}

func TestClassifyError_PassesThroughStructured(t *testing.T) {
	original := NewError(ErrorTypeAuth, "bad key", false, nil)
	wrapped := fmt.Errorf("request failed: %w", original)

	assert.Same(t, original, ClassifyError(wrapped))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewError(ErrorTypeEndpoint, "down", true, nil)))
	assert.False(t, IsRetryable(NewError(ErrorTypeAuth, "bad key", false, nil)))
	assert.False(t, IsRetryable(errors.New("plain error")))
}
