package imagefeature

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	// Register decoders for the formats product images come in.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"go.uber.org/zap"

	"github.com/brewline-ai/brewline-engine/pkg/retry"
)

// maxImageBytes caps a single image download.
const maxImageBytes = 20 << 20

// Fetcher loads image bytes from URLs or local paths, with retries for
// transient network failures and per-source error budgets.
type Fetcher struct {
	client  *http.Client
	tracker *ErrorTracker
	retry   *retry.Config
	logger  *zap.Logger
}

// NewFetcher creates a fetcher. Timeout bounds a single HTTP attempt.
func NewFetcher(timeout time.Duration, tracker *ErrorTracker, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		tracker: tracker,
		retry: &retry.Config{
			MaxRetries:   3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		logger: logger.Named("imagefetch"),
	}
}

// Fetch loads and validates one image. Sources over their error budget
// fail immediately without touching the network.
func (f *Fetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	if err := f.tracker.Allow(source); err != nil {
		return nil, err
	}

	data, err := retry.DoWithResult(ctx, f.retry, func() ([]byte, error) {
		return f.fetchOnce(ctx, source)
	})
	if err != nil {
		f.tracker.RecordFailure(source)
		f.logger.Warn("image fetch failed", zap.String("source", source), zap.Error(err))
		return nil, err
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		f.tracker.RecordFailure(source)
		return nil, fmt.Errorf("decode image %s: %w", source, err)
	}

	f.tracker.RecordSuccess(source)
	return data, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", source, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: status %d", source, resp.StatusCode)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", source, err)
	}
	return data, nil
}
