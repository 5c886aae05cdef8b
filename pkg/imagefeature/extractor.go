package imagefeature

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/brewline-ai/brewline-engine/pkg/apperrors"
)

// Extractor turns image bytes into L2-normalized feature vectors by
// calling an external extraction service.
type Extractor struct {
	endpoint string
	dim      int
	client   *http.Client
	logger   *zap.Logger
}

// NewExtractor creates an extractor against the given service endpoint.
// dim is the expected feature dimension; mismatched responses are
// rejected rather than silently indexed.
func NewExtractor(endpoint string, dim int, logger *zap.Logger) *Extractor {
	return &Extractor{
		endpoint: endpoint,
		dim:      dim,
		client:   &http.Client{Timeout: 60 * time.Second},
		logger:   logger.Named("imagefeature"),
	}
}

type extractRequest struct {
	Images []string `json:"images"`
}

type extractResponse struct {
	Features [][]float32 `json:"features"`
}

// Extract computes the feature vector for one image.
func (e *Extractor) Extract(ctx context.Context, imageData []byte) ([]float32, error) {
	vectors, err := e.ExtractMany(ctx, [][]byte{imageData})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// ExtractMany computes feature vectors for a batch of images in one
// service call. Every returned vector is L2-normalized.
func (e *Extractor) ExtractMany(ctx context.Context, images [][]byte) ([][]float32, error) {
	payload := extractRequest{Images: make([]string, len(images))}
	for i, img := range images {
		payload.Images[i] = base64.StdEncoding.EncodeToString(img)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal extract request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build extract request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call feature service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("feature service status %d: %s", resp.StatusCode, snippet)
	}

	var result extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode feature response: %w", err)
	}

	if len(result.Features) != len(images) {
		return nil, fmt.Errorf("feature service returned %d vectors for %d images", len(result.Features), len(images))
	}
	for i, vec := range result.Features {
		if len(vec) != e.dim {
			return nil, fmt.Errorf("%w: feature %d has dimension %d, expected %d", apperrors.ErrDimensionMismatch, i, len(vec), e.dim)
		}
		normalizeL2(vec)
	}

	e.logger.Debug("extracted features",
		zap.Int("images", len(images)),
		zap.Duration("elapsed", time.Since(start)))

	return result.Features, nil
}

// normalizeL2 scales a vector to unit length in place. Zero vectors are
// left untouched.
func normalizeL2(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
