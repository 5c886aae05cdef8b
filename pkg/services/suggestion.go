package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/brewline-ai/brewline-engine/pkg/catalog"
	"github.com/brewline-ai/brewline-engine/pkg/history"
	"github.com/brewline-ai/brewline-engine/pkg/models"
)

// QueryKind identifies a predefined menu query the UI can trigger
// without free-text input.
type QueryKind string

const (
	QueryCategories        QueryKind = "menu_categories"
	QueryClassicEspresso   QueryKind = "classic_espresso"
	QueryCoffee            QueryKind = "coffee"
	QueryFrappuccinoCoffee QueryKind = "frappuccino_coffee"
	QueryFrappuccinoCreme  QueryKind = "frappuccino_creme"
	QueryIcedBeverages     QueryKind = "iced_beverages"
	QuerySignatureEspresso QueryKind = "signature_espresso"
	QuerySmoothies         QueryKind = "smoothies"
	QueryTea               QueryKind = "tea"
)

// categoryByKind maps product query kinds to their catalog category.
var categoryByKind = map[QueryKind]string{
	QueryClassicEspresso:   "Classic Espresso Drinks",
	QueryCoffee:            "Coffee",
	QueryFrappuccinoCoffee: "Frappuccino Blended Coffee",
	QueryFrappuccinoCreme:  "Frappuccino Blended Crème",
	QueryIcedBeverages:     "Shaken Iced Beverages",
	QuerySignatureEspresso: "Signature Espresso Drinks",
	QuerySmoothies:         "Smoothies",
	QueryTea:               "Tazo Tea Drinks",
}

// MenuData is the structured payload of a predefined menu query.
// Exactly one of Categories or Products is populated, matching Type.
type MenuData struct {
	Type       string            `json:"type"` // "categories" or "products"
	Title      string            `json:"title"`
	Categories []models.Category `json:"categories,omitempty"`
	Products   []models.Product  `json:"products,omitempty"`
}

// SuggestionResult bundles a predefined query's data with the chat turn
// it produced.
type SuggestionResult struct {
	Data     *MenuData             `json:"data"`
	Question string                `json:"question"`
	Response string                `json:"response"`
	Images   []models.ProductImage `json:"images,omitempty"`
}

// Scope selects what a menu suggestion covers.
type Scope string

const (
	// ScopeCategory asks for an overview of all categories.
	ScopeCategory Scope = "category"
	// ScopeProduct asks about the products of one category.
	ScopeProduct Scope = "product"
	// ScopeAll asks across the full menu.
	ScopeAll Scope = "all"
)

// Suggestion serves the predefined menu queries and LLM-phrased menu
// suggestions backing the quick-action buttons.
type Suggestion struct {
	catalog *catalog.Store
	engine  *Engine
	history *history.Store
	logger  *zap.Logger
}

// NewSuggestion creates the suggestion service.
func NewSuggestion(store *catalog.Store, engine *Engine, hist *history.Store, logger *zap.Logger) *Suggestion {
	return &Suggestion{
		catalog: store,
		engine:  engine,
		history: hist,
		logger:  logger.Named("suggestion"),
	}
}

// QuestionFor returns the user-facing question a query kind stands for,
// recorded into chat history when the kind is triggered.
func QuestionFor(kind QueryKind) string {
	if kind == QueryCategories {
		return "Cho tôi xem danh mục đồ uống"
	}
	if category, ok := categoryByKind[kind]; ok {
		return fmt.Sprintf("Cho tôi xem các loại %s", category)
	}
	return fmt.Sprintf("Cho tôi xem thông tin về %s", kind)
}

// ExecuteQuery runs a predefined menu query, records the resulting turn
// in chat history, and attaches product images for product listings.
func (s *Suggestion) ExecuteQuery(ctx context.Context, userID string, kind QueryKind) (*SuggestionResult, error) {
	data, err := s.menuData(ctx, kind)
	if err != nil {
		return nil, err
	}

	result := &SuggestionResult{
		Data:     data,
		Question: QuestionFor(kind),
		Response: formatForHistory(data),
	}
	s.history.Add(userID, result.Question, result.Response)

	if data.Type == "products" {
		images, err := s.catalog.ExtractProductImages(ctx, result.Response)
		if err != nil {
			s.logger.Warn("extract menu images", zap.Error(err))
		} else {
			result.Images = images
		}
	}

	return result, nil
}

func (s *Suggestion) menuData(ctx context.Context, kind QueryKind) (*MenuData, error) {
	if kind == QueryCategories {
		categories, err := s.catalog.GetAllCategories(ctx)
		if err != nil {
			return nil, err
		}
		return &MenuData{Type: "categories", Title: "Danh mục đồ uống", Categories: categories}, nil
	}

	category, ok := categoryByKind[kind]
	if !ok {
		return nil, fmt.Errorf("unknown query kind %q", kind)
	}

	categoryID, err := s.findCategoryID(ctx, category)
	if err != nil {
		return nil, err
	}

	products, err := s.catalog.GetProductsByCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return &MenuData{Type: "products", Title: category, Products: products}, nil
}

func (s *Suggestion) findCategoryID(ctx context.Context, name string) (int64, error) {
	categories, err := s.catalog.GetAllCategories(ctx)
	if err != nil {
		return 0, err
	}
	for _, cat := range categories {
		if cat.Name == name {
			return cat.ID, nil
		}
	}
	return 0, fmt.Errorf("category %q not in catalog", name)
}

// formatForHistory renders menu data as the assistant turn recorded in
// chat history, so followup questions can refer back to the listing.
func formatForHistory(data *MenuData) string {
	if data.Type == "products" {
		names := make([]string, len(data.Products))
		for i, p := range data.Products {
			names[i] = p.Name
		}
		return fmt.Sprintf("Đây là các sản phẩm trong danh mục %s: %s", data.Title, strings.Join(names, ", "))
	}

	names := make([]string, len(data.Categories))
	for i, c := range data.Categories {
		names[i] = c.Name
	}
	return fmt.Sprintf("Đây là các danh mục đồ uống: %s", strings.Join(names, ", "))
}

// Suggest asks the assistant for an LLM-phrased menu recommendation at
// the given scope. The generated prompt flows through the normal
// answering pipeline, so the turn lands in history like any other.
func (s *Suggestion) Suggest(ctx context.Context, userID string, scope Scope, categoryID int64) (*Answer, error) {
	prompt, err := s.suggestionPrompt(ctx, scope, categoryID)
	if err != nil {
		return nil, err
	}

	answer, err := s.engine.AnswerQuery(ctx, userID, prompt)
	if err != nil {
		return nil, err
	}

	images, err := s.catalog.ExtractProductImages(ctx, answer.Response)
	if err != nil {
		s.logger.Warn("extract suggestion images", zap.Error(err))
	} else {
		answer.Images = images
	}
	return answer, nil
}

func (s *Suggestion) suggestionPrompt(ctx context.Context, scope Scope, categoryID int64) (string, error) {
	switch scope {
	case ScopeCategory:
		categories, err := s.catalog.GetAllCategories(ctx)
		if err != nil {
			return "", err
		}
		lines := make([]string, len(categories))
		for i, cat := range categories {
			lines[i] = fmt.Sprintf("%s: %s", cat.Name, cat.Description)
		}
		return "Dưới đây là danh sách các danh mục đồ uống. Hãy giới thiệu ngắn gọn về các danh mục này và gợi ý khách hàng nên chọn loại nào phù hợp với nhu cầu:\n\n" +
			strings.Join(lines, "\n"), nil

	case ScopeProduct:
		products, err := s.catalog.GetProductsByCategory(ctx, categoryID)
		if err != nil {
			return "", err
		}
		categoryName := "không xác định"
		if len(products) > 0 {
			categoryName = products[0].Category
		}
		lines := make([]string, len(products))
		for i, p := range products {
			lines[i] = fmt.Sprintf("%s: %s", p.Name, p.Description)
		}
		return fmt.Sprintf("Dưới đây là danh sách các sản phẩm trong danh mục %s. Hãy giới thiệu ngắn gọn về các sản phẩm này và gợi ý khách hàng nên chọn loại nào phù hợp với nhu cầu:\n\n%s",
			categoryName, strings.Join(lines, "\n")), nil

	default:
		products, err := s.catalog.GetAllProducts(ctx)
		if err != nil {
			return "", err
		}
		return "Dưới đây là danh sách các sản phẩm theo danh mục. Hãy giới thiệu ngắn gọn về các sản phẩm nổi bật và gợi ý khách hàng nên chọn loại nào phù hợp với nhu cầu:\n\n" +
			formatProductsByCategory(products), nil
	}
}

// formatProductsByCategory groups products under category headers,
// truncating long descriptions to keep the prompt compact.
func formatProductsByCategory(products []models.Product) string {
	var sb strings.Builder
	current := ""
	for _, p := range products {
		if p.Category != current {
			current = p.Category
			fmt.Fprintf(&sb, "\n== %s ==\n", current)
		}
		description := p.Description
		if runes := []rune(description); len(runes) > 100 {
			description = string(runes[:100]) + "..."
		}
		fmt.Fprintf(&sb, "%s: %s\n", p.Name, description)
	}
	return sb.String()
}
