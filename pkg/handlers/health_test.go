package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/brewline-ai/brewline-engine/pkg/config"
)

func TestHealthHandler_Health(t *testing.T) {
	handler := NewHealthHandler(&config.Config{Env: "test"}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("expected body 'ok', got %q", rec.Body.String())
	}
}

func TestHealthHandler_Ping(t *testing.T) {
	handler := NewHealthHandler(&config.Config{Env: "test"}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()

	handler.Ping(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response PingResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", response.Status)
	}
	if response.Service != "brewline-engine" {
		t.Errorf("expected service 'brewline-engine', got '%s'", response.Service)
	}
	if response.Environment != "test" {
		t.Errorf("expected environment 'test', got '%s'", response.Environment)
	}
	if response.GoVersion == "" {
		t.Error("expected non-empty go_version")
	}
	if response.Hostname == "" {
		t.Error("expected non-empty hostname")
	}
}
