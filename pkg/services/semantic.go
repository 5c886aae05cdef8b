package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/brewline-ai/brewline-engine/pkg/apperrors"
	"github.com/brewline-ai/brewline-engine/pkg/catalog"
	"github.com/brewline-ai/brewline-engine/pkg/fusion"
	"github.com/brewline-ai/brewline-engine/pkg/llm"
	"github.com/brewline-ai/brewline-engine/pkg/models"
	"github.com/brewline-ai/brewline-engine/pkg/prompts"
	"github.com/brewline-ai/brewline-engine/pkg/retrieval"
)

// noResultsContext replaces an empty retrieval context so the model
// admits the gap instead of inventing products.
const noResultsContext = "Không tìm thấy thông tin liên quan."

// Semantic answers questions through vector retrieval: row documents
// for text queries, fused text and image candidates for photo uploads.
type Semantic struct {
	client        llm.ChatClient
	retriever     *retrieval.Retriever
	images        *retrieval.ImageSearcher
	catalog       *catalog.Store
	alpha         float64
	topK          int
	normalization fusion.Normalization
	temperature   float64
	logger        *zap.Logger
}

// NewSemantic creates the semantic answering service. Alpha weights the
// image modality during fusion; normalization selects the text score
// strategy.
func NewSemantic(
	client llm.ChatClient,
	retriever *retrieval.Retriever,
	images *retrieval.ImageSearcher,
	store *catalog.Store,
	alpha float64,
	topK int,
	normalization fusion.Normalization,
	temperature float64,
	logger *zap.Logger,
) *Semantic {
	return &Semantic{
		client:        client,
		retriever:     retriever,
		images:        images,
		catalog:       store,
		alpha:         alpha,
		topK:          topK,
		normalization: normalization,
		temperature:   temperature,
		logger:        logger.Named("semantic"),
	}
}

// Answer retrieves the nearest row documents and phrases a reply over
// them.
func (s *Semantic) Answer(ctx context.Context, query, history string, customer *models.Customer, purchases []models.PurchaseItem) (string, error) {
	docs, err := s.retriever.SearchRows(ctx, query)
	if err != nil {
		return "", err
	}

	searchContext := retrieval.RowContext(docs)
	if searchContext == "" {
		searchContext = noResultsContext
	}

	prompt := prompts.VectorResponse(query, searchContext, history, customer, purchases)
	return s.client.GenerateResponse(ctx, prompt, prompts.SystemMessage, s.temperature)
}

// AnswerImage fuses description retrieval over the caption with image
// similarity over the uploaded photo, then phrases a reply over the
// ranked products.
func (s *Semantic) AnswerImage(ctx context.Context, query string, imageData []byte, history string, customer *models.Customer) (string, error) {
	var textCandidates []fusion.TextCandidate
	if strings.TrimSpace(query) != "" {
		var err error
		textCandidates, err = s.retriever.SearchDescriptions(ctx, query)
		if err != nil {
			return "", err
		}
	}

	imageCandidates, err := s.images.Search(ctx, imageData)
	if err != nil {
		return "", err
	}

	fused := fusion.CombineMBR(textCandidates, imageCandidates, s.alpha, s.topK, s.normalization)
	s.logger.Info("fused image search",
		zap.Int("text_candidates", len(textCandidates)),
		zap.Int("image_candidates", len(imageCandidates)),
		zap.Int("results", len(fused)))

	prompt := prompts.ImageUpload(query, s.fusedContext(ctx, fused), history, customer)
	return s.client.GenerateResponse(ctx, prompt, prompts.SystemMessage, s.temperature)
}

// fusedContext renders the ranked products for the prompt, filling in
// description and prices from the catalog for candidates the image
// index surfaced without text metadata.
func (s *Semantic) fusedContext(ctx context.Context, fused []fusion.Result) string {
	if len(fused) == 0 {
		return noResultsContext
	}

	var sb strings.Builder
	for i, result := range fused {
		description := result.Description
		variantPrices := result.VariantPrices
		if description == "" || variantPrices == "" {
			detail, err := s.catalog.GetProductDetail(ctx, result.ProductID)
			if err != nil {
				if !errors.Is(err, apperrors.ErrNotFound) {
					s.logger.Warn("enrich fused candidate", zap.Int64("product_id", result.ProductID), zap.Error(err))
				}
			} else {
				if description == "" {
					description = detail.Description
				}
				if variantPrices == "" {
					variantPrices = detail.VariantPrices
				}
			}
		}

		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "Rank %d: Tên: %s, Mô tả: %s, Giá: %s", i+1, result.Name, description, variantPrices)
	}
	return sb.String()
}
