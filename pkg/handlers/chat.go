// Package handlers is the thin HTTP boundary of the assistant: request
// decoding, response encoding, and nothing else. All answering logic
// lives in the services layer.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/brewline-ai/brewline-engine/pkg/services"
)

// maxUploadBytes caps an image upload request body.
const maxUploadBytes = 10 << 20

// ChatRequest is the body of a text chat turn.
type ChatRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
}

// ChatHandler serves the chat endpoints.
type ChatHandler struct {
	engine *services.Engine
	logger *zap.Logger
}

// NewChatHandler creates a chat handler over the answering engine.
func NewChatHandler(engine *services.Engine, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{engine: engine, logger: logger}
}

// Chat handles POST /api/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}
	if req.Query == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}

	answer, err := h.engine.AnswerQuery(r.Context(), req.UserID, req.Query)
	if err != nil {
		h.logger.Error("answer query", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "chat_failed", "failed to get response from assistant")
		return
	}

	if err := WriteJSON(w, http.StatusOK, answer); err != nil {
		h.logger.Error("Failed to encode chat response", zap.Error(err))
	}
}

// ChatImage handles POST /api/chat/image. The request is multipart form
// data with an "image" file and optional "query" and "user_id" fields.
func (h *ChatHandler) ChatImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, _, err := r.FormFile("image")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "image file is required")
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "failed to read image")
		return
	}

	userID := r.FormValue("user_id")
	query := r.FormValue("query")

	answer, err := h.engine.AnswerImageQuery(r.Context(), userID, query, imageData)
	if err != nil {
		h.logger.Error("answer image query", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "chat_failed", "failed to get response from assistant")
		return
	}

	if err := WriteJSON(w, http.StatusOK, answer); err != nil {
		h.logger.Error("Failed to encode image chat response", zap.Error(err))
	}
}

// ClearHistory handles DELETE /api/chat/history. The user is identified
// by the user_id query parameter; missing means anonymous.
func (h *ChatHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	h.engine.ClearHistory(userID)

	if err := WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"}); err != nil {
		h.logger.Error("Failed to encode clear history response", zap.Error(err))
	}
}
