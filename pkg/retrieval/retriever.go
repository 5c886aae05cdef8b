// Package retrieval runs vector search over the catalog indexes: row
// documents and product descriptions for text queries, image features
// for uploaded photos.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brewline-ai/brewline-engine/pkg/fusion"
	"github.com/brewline-ai/brewline-engine/pkg/llm"
	"github.com/brewline-ai/brewline-engine/pkg/models"
	"github.com/brewline-ai/brewline-engine/pkg/vectorindex"
)

// Retriever embeds text queries and searches the row and description
// indexes.
type Retriever struct {
	embedder     llm.Embedder
	rows         *vectorindex.FlatIndex[models.RowDocument]
	descriptions *vectorindex.FlatIndex[models.DescriptionDocument]
	topK         int
	logger       *zap.Logger
}

// NewRetriever wires an embedder to the two text indexes.
func NewRetriever(
	embedder llm.Embedder,
	rows *vectorindex.FlatIndex[models.RowDocument],
	descriptions *vectorindex.FlatIndex[models.DescriptionDocument],
	topK int,
	logger *zap.Logger,
) *Retriever {
	return &Retriever{
		embedder:     embedder,
		rows:         rows,
		descriptions: descriptions,
		topK:         topK,
		logger:       logger.Named("retrieval"),
	}
}

// SearchRows returns the row documents nearest to the query, closest
// first.
func (r *Retriever) SearchRows(ctx context.Context, query string) ([]models.RowDocument, error) {
	if r.rows.Size() == 0 {
		return nil, nil
	}

	vector, err := r.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	start := time.Now()
	hits, err := r.rows.Search(vector, r.topK)
	if err != nil {
		return nil, fmt.Errorf("search row index: %w", err)
	}

	r.logger.Debug("row search",
		zap.Int("hits", len(hits)),
		zap.Duration("elapsed", time.Since(start)))

	docs := make([]models.RowDocument, len(hits))
	for i, hit := range hits {
		docs[i] = hit.Meta
	}
	return docs, nil
}

// SearchDescriptions returns the products whose descriptions are
// nearest to the query, as text candidates for fusion. The candidate
// score is the negated squared distance, so closer means higher.
func (r *Retriever) SearchDescriptions(ctx context.Context, query string) ([]fusion.TextCandidate, error) {
	if r.descriptions.Size() == 0 {
		return nil, nil
	}

	vector, err := r.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.descriptions.Search(vector, r.topK)
	if err != nil {
		return nil, fmt.Errorf("search description index: %w", err)
	}

	candidates := make([]fusion.TextCandidate, len(hits))
	for i, hit := range hits {
		candidates[i] = fusion.TextCandidate{
			ProductID:   hit.Meta.ProductID,
			Name:        hit.Meta.Name,
			Description: hit.Meta.Description,
			Score:       -hit.Distance,
		}
	}
	return candidates, nil
}

// RowContext joins row documents into the context block handed to the
// response prompt.
func RowContext(docs []models.RowDocument) string {
	lines := make([]string, len(docs))
	for i, doc := range docs {
		lines[i] = doc.Content
	}
	return strings.Join(lines, "\n")
}

// FeatureExtractor produces a feature vector for raw image bytes.
type FeatureExtractor interface {
	Extract(ctx context.Context, imageData []byte) ([]float32, error)
}

// ImageSearcher extracts features from an uploaded image and searches
// the image index.
type ImageSearcher struct {
	extractor FeatureExtractor
	index     *vectorindex.FlatIndex[models.ImageMetadata]
	topK      int
	logger    *zap.Logger
}

// NewImageSearcher wires a feature extractor to the image index.
func NewImageSearcher(
	extractor FeatureExtractor,
	index *vectorindex.FlatIndex[models.ImageMetadata],
	topK int,
	logger *zap.Logger,
) *ImageSearcher {
	return &ImageSearcher{
		extractor: extractor,
		index:     index,
		topK:      topK,
		logger:    logger.Named("imagesearch"),
	}
}

// Search returns the products whose indexed images are nearest to the
// uploaded image, as image candidates for fusion.
func (s *ImageSearcher) Search(ctx context.Context, imageData []byte) ([]fusion.ImageCandidate, error) {
	if s.index.Size() == 0 {
		return nil, nil
	}

	feature, err := s.extractor.Extract(ctx, imageData)
	if err != nil {
		return nil, fmt.Errorf("extract image feature: %w", err)
	}

	hits, err := s.index.Search(feature, s.topK)
	if err != nil {
		return nil, fmt.Errorf("search image index: %w", err)
	}

	candidates := make([]fusion.ImageCandidate, len(hits))
	for i, hit := range hits {
		candidates[i] = fusion.ImageCandidate{
			ProductID: hit.Meta.ProductID,
			Name:      hit.Meta.ProductName,
			Distance:  hit.Distance,
		}
	}
	return candidates, nil
}
