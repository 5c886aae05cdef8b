package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/brewline-ai/brewline-engine/pkg/catalog"
	"github.com/brewline-ai/brewline-engine/pkg/services"
)

// MenuHandler serves the menu browsing and suggestion endpoints.
type MenuHandler struct {
	catalog    *catalog.Store
	suggestion *services.Suggestion
	logger     *zap.Logger
}

// NewMenuHandler creates a menu handler.
func NewMenuHandler(store *catalog.Store, suggestion *services.Suggestion, logger *zap.Logger) *MenuHandler {
	return &MenuHandler{catalog: store, suggestion: suggestion, logger: logger}
}

// Categories handles GET /api/menu/categories.
func (h *MenuHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.GetAllCategories(r.Context())
	if err != nil {
		h.logger.Error("list categories", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "menu_failed", "failed to load categories")
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]any{"categories": categories}); err != nil {
		h.logger.Error("Failed to encode categories response", zap.Error(err))
	}
}

// Products handles GET /api/menu/categories/{categoryID}/products.
func (h *MenuHandler) Products(w http.ResponseWriter, r *http.Request) {
	categoryID, err := strconv.ParseInt(chi.URLParam(r, "categoryID"), 10, 64)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "categoryID must be an integer")
		return
	}

	products, err := h.catalog.GetProductsByCategory(r.Context(), categoryID)
	if err != nil {
		h.logger.Error("list products", zap.Int64("category_id", categoryID), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "menu_failed", "failed to load products")
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]any{"products": products}); err != nil {
		h.logger.Error("Failed to encode products response", zap.Error(err))
	}
}

// AllProducts handles GET /api/menu/products.
func (h *MenuHandler) AllProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.GetAllProducts(r.Context())
	if err != nil {
		h.logger.Error("list all products", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "menu_failed", "failed to load products")
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]any{"products": products}); err != nil {
		h.logger.Error("Failed to encode products response", zap.Error(err))
	}
}

// MenuQueryRequest triggers one of the predefined menu queries.
type MenuQueryRequest struct {
	UserID string `json:"user_id"`
	Kind   string `json:"kind"`
}

// Query handles POST /api/menu/query: runs a predefined menu query and
// records it as a chat turn.
func (h *MenuHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req MenuQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}

	result, err := h.suggestion.ExecuteQuery(r.Context(), req.UserID, services.QueryKind(req.Kind))
	if err != nil {
		h.logger.Warn("menu query", zap.String("kind", req.Kind), zap.Error(err))
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "unknown menu query")
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode menu query response", zap.Error(err))
	}
}

// SuggestRequest asks for an LLM-phrased menu recommendation.
type SuggestRequest struct {
	UserID     string `json:"user_id"`
	Scope      string `json:"scope"`
	CategoryID int64  `json:"category_id,omitempty"`
}

// Suggest handles POST /api/menu/suggest.
func (h *MenuHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}

	answer, err := h.suggestion.Suggest(r.Context(), req.UserID, services.Scope(req.Scope), req.CategoryID)
	if err != nil {
		h.logger.Error("menu suggestion", zap.String("scope", req.Scope), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "suggestion_failed", "failed to get suggestion")
		return
	}

	if err := WriteJSON(w, http.StatusOK, answer); err != nil {
		h.logger.Error("Failed to encode suggestion response", zap.Error(err))
	}
}
