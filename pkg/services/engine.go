package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/brewline-ai/brewline-engine/pkg/apperrors"
	"github.com/brewline-ai/brewline-engine/pkg/catalog"
	"github.com/brewline-ai/brewline-engine/pkg/history"
	"github.com/brewline-ai/brewline-engine/pkg/models"
	"github.com/brewline-ai/brewline-engine/pkg/router"
)

// refusalUnknownTool is the reply when routing cannot pick a tool.
const refusalUnknownTool = "Xin lỗi, tôi không hiểu yêu cầu này hoặc công cụ được gọi không hợp lệ."

// systemErrorPrefix opens the reply recorded for a turn that failed
// outright (model call, schema read, retrieval).
const systemErrorPrefix = "Lỗi hệ thống khi xử lý yêu cầu: "

// Answer is the outcome of one user turn.
type Answer struct {
	Response string                `json:"response"`
	Tool     string                `json:"tool,omitempty"`
	Images   []models.ProductImage `json:"images,omitempty"`
}

// Engine is the top-level answering service: it routes each query,
// dispatches to the matching flow, and records the turn.
type Engine struct {
	router     *router.Router
	structured *Structured
	semantic   *Semantic
	history    *history.Store
	catalog    *catalog.Store
	logger     *zap.Logger
}

// NewEngine wires the answering flows together.
func NewEngine(
	rt *router.Router,
	structured *Structured,
	semantic *Semantic,
	hist *history.Store,
	store *catalog.Store,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		router:     rt,
		structured: structured,
		semantic:   semantic,
		history:    hist,
		catalog:    store,
		logger:     logger.Named("engine"),
	}
}

// AnswerQuery handles one text turn: route, answer, record. No fault
// escapes: routing failures produce a refusal turn and downstream
// failures a system-error turn, both still recorded so the next turn's
// history shows the user what happened.
func (e *Engine) AnswerQuery(ctx context.Context, userID, query string) (*Answer, error) {
	hist := e.history.GetLatestChat(userID)

	schemaInfo, err := e.catalog.DescribeSchema(ctx)
	if err != nil {
		return e.failTurn(userID, query, err), nil
	}

	customer, purchases := e.loadProfile(ctx, userID)

	tool, err := e.router.Route(ctx, query, hist, schemaInfo)
	if err != nil {
		if errors.Is(err, apperrors.ErrNoToolSelected) {
			e.history.Add(userID, query, refusalUnknownTool)
			return &Answer{Response: refusalUnknownTool}, nil
		}
		return e.failTurn(userID, query, err), nil
	}

	var response string
	switch tool {
	case router.ToolSQL:
		response, err = e.structured.Answer(ctx, query, hist, schemaInfo, customer, purchases)
	case router.ToolVector:
		response, err = e.semantic.Answer(ctx, query, hist, customer, purchases)
	}
	if err != nil {
		return e.failTurn(userID, query, err), nil
	}

	e.history.Add(userID, query, response)
	return &Answer{Response: response, Tool: tool}, nil
}

// AnswerImageQuery handles a photo upload with an optional caption. The
// reply carries image links for the products it mentions.
func (e *Engine) AnswerImageQuery(ctx context.Context, userID, query string, imageData []byte) (*Answer, error) {
	hist := e.history.GetLatestChat(userID)
	customer, _ := e.loadProfile(ctx, userID)

	response, err := e.semantic.AnswerImage(ctx, query, imageData, hist, customer)
	if err != nil {
		return e.failTurn(userID, query, err), nil
	}

	images, err := e.catalog.ExtractProductImages(ctx, response)
	if err != nil {
		// The reply stands on its own; losing its images is not fatal.
		e.logger.Warn("extract product images", zap.Error(err))
		images = nil
	}

	e.history.Add(userID, query, response)
	return &Answer{Response: response, Tool: "image_search", Images: images}, nil
}

// failTurn converts a downstream failure into a degraded reply. The
// turn is still recorded so the failure is visible in the next prompt's
// history instead of silently vanishing.
func (e *Engine) failTurn(userID, query string, err error) *Answer {
	e.logger.Error("answering failed",
		zap.String("user_id", userID),
		zap.Error(err))

	reply := systemErrorPrefix + err.Error()
	e.history.Add(userID, query, reply)
	return &Answer{Response: reply}
}

// ClearHistory drops the user's recorded turns.
func (e *Engine) ClearHistory(userID string) {
	e.history.Clear(userID)
}

// loadProfile fetches the customer profile and recent purchases.
// Anonymous and unknown users simply get neither.
func (e *Engine) loadProfile(ctx context.Context, userID string) (*models.Customer, []models.PurchaseItem) {
	customer, err := e.catalog.GetCustomer(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			e.logger.Warn("load customer", zap.String("user_id", userID), zap.Error(err))
		}
		return nil, nil
	}

	purchases, err := e.catalog.GetPurchaseHistory(ctx, userID)
	if err != nil {
		e.logger.Warn("load purchase history", zap.String("user_id", userID), zap.Error(err))
		purchases = nil
	}
	return customer, purchases
}
