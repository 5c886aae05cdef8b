// build-index builds the vector index artifacts the engine searches at
// runtime: the row-document index and the product-description index
// (embedded via the configured embedding endpoint), and the image
// feature index (extracted via the configured feature service).
//
// Run it after catalog changes; the engine starts with empty indexes
// when the artifacts are missing and picks them up on next restart.
//
// Usage: go run ./scripts/build-index [-rows] [-descriptions] [-images]
//
// With no flags all three indexes are built. Configuration and secrets
// load the same way as the engine (config.yaml, environment, .env).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/brewline-ai/brewline-engine/pkg/catalog"
	"github.com/brewline-ai/brewline-engine/pkg/config"
	"github.com/brewline-ai/brewline-engine/pkg/imagefeature"
	"github.com/brewline-ai/brewline-engine/pkg/llm"
	"github.com/brewline-ai/brewline-engine/pkg/logging"
	"github.com/brewline-ai/brewline-engine/pkg/models"
	"github.com/brewline-ai/brewline-engine/pkg/vectorindex"
)

// embedBatchSize bounds one embedding API call.
const embedBatchSize = 64

func main() {
	buildRows := flag.Bool("rows", false, "build the row-document index")
	buildDescriptions := flag.Bool("descriptions", false, "build the product-description index")
	buildImages := flag.Bool("images", false, "build the image feature index")
	flag.Parse()

	// No flags means build everything.
	if !*buildRows && !*buildDescriptions && !*buildImages {
		*buildRows, *buildDescriptions, *buildImages = true, true, true
	}

	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger, *buildRows, *buildDescriptions, *buildImages); err != nil {
		logger.Fatal("index build failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger, buildRows, buildDescriptions, buildImages bool) error {
	ctx := context.Background()

	store, err := catalog.Open(&cfg.Catalog, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if buildRows || buildDescriptions {
		embedder, err := llm.NewEmbeddingClient(&cfg.AI, logger)
		if err != nil {
			return err
		}

		if buildRows {
			if err := buildRowIndex(ctx, store, embedder, cfg.Retrieval.RowIndexPath, logger); err != nil {
				return err
			}
		}
		if buildDescriptions {
			if err := buildDescriptionIndex(ctx, store, embedder, cfg.Retrieval.DescriptionIndexPath, logger); err != nil {
				return err
			}
		}
	}

	if buildImages {
		if err := buildImageIndex(ctx, store, cfg, logger); err != nil {
			return err
		}
	}

	return nil
}

func buildRowIndex(ctx context.Context, store *catalog.Store, embedder llm.Embedder, prefix string, logger *zap.Logger) error {
	docs, err := store.LoadRowDocuments(ctx)
	if err != nil {
		return fmt.Errorf("load row documents: %w", err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("catalog produced no row documents")
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	vectors, err := embedAll(ctx, embedder, texts)
	if err != nil {
		return err
	}

	idx := vectorindex.NewFlatIndex[models.RowDocument](len(vectors[0]))
	if err := idx.Replace(vectors, docs); err != nil {
		return err
	}
	if err := saveIndex(idx, prefix); err != nil {
		return err
	}

	logger.Info("row index built", zap.Int("documents", len(docs)), zap.Int("dim", idx.Dim()))
	return nil
}

func buildDescriptionIndex(ctx context.Context, store *catalog.Store, embedder llm.Embedder, prefix string, logger *zap.Logger) error {
	docs, err := store.LoadDescriptionDocuments(ctx)
	if err != nil {
		return fmt.Errorf("load description documents: %w", err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("catalog produced no description documents")
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = fmt.Sprintf("%s: %s", doc.Name, doc.Description)
	}

	vectors, err := embedAll(ctx, embedder, texts)
	if err != nil {
		return err
	}

	idx := vectorindex.NewFlatIndex[models.DescriptionDocument](len(vectors[0]))
	if err := idx.Replace(vectors, docs); err != nil {
		return err
	}
	if err := saveIndex(idx, prefix); err != nil {
		return err
	}

	logger.Info("description index built", zap.Int("documents", len(docs)), zap.Int("dim", idx.Dim()))
	return nil
}

func buildImageIndex(ctx context.Context, store *catalog.Store, cfg *config.Config, logger *zap.Logger) error {
	sources, err := store.ListVariantImages(ctx)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("catalog has no variant image links")
	}

	tracker := imagefeature.NewErrorTracker(cfg.Image.MaxErrorsPerSource)
	fetcher := imagefeature.NewFetcher(time.Duration(cfg.Image.FetchTimeoutSeconds)*time.Second, tracker, logger)
	extractor := imagefeature.NewExtractor(cfg.Image.FeatureEndpoint, cfg.Retrieval.ImageFeatureDim, logger)

	idx := vectorindex.NewFlatIndex[models.ImageMetadata](cfg.Retrieval.ImageFeatureDim)

	var skipped int
	for start := 0; start < len(sources); start += cfg.Image.BatchSize {
		end := start + cfg.Image.BatchSize
		if end > len(sources) {
			end = len(sources)
		}

		// Fetch the batch, dropping sources that fail or are over their
		// error budget. One dead image host must not sink the build.
		var (
			images [][]byte
			metas  []models.ImageMetadata
		)
		for _, src := range sources[start:end] {
			data, err := fetcher.Fetch(ctx, src.Source)
			if err != nil {
				logger.Warn("skipping image source",
					zap.String("source", src.Source),
					zap.Error(err))
				skipped++
				continue
			}
			images = append(images, data)
			metas = append(metas, models.ImageMetadata{
				ProductID:   src.ProductID,
				ProductName: src.ProductName,
				ImageSource: src.Source,
			})
		}
		if len(images) == 0 {
			continue
		}

		features, err := extractor.ExtractMany(ctx, images)
		if err != nil {
			return fmt.Errorf("extract batch at %d: %w", start, err)
		}
		for i, feature := range features {
			if err := idx.Add(feature, metas[i]); err != nil {
				return err
			}
		}
	}

	if idx.Size() == 0 {
		return fmt.Errorf("no image features extracted (%d sources skipped)", skipped)
	}
	if err := saveIndex(idx, cfg.Retrieval.ImageIndexPath); err != nil {
		return err
	}

	logger.Info("image index built",
		zap.Int("vectors", idx.Size()),
		zap.Int("skipped", skipped),
		zap.Int("dim", idx.Dim()))
	return nil
}

// embedAll embeds texts in bounded batches.
func embedAll(ctx context.Context, embedder llm.Embedder, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := embedder.CreateEmbeddings(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch at %d: %w", start, err)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// saveIndex creates the artifact directory and writes the pair.
func saveIndex[M any](idx *vectorindex.FlatIndex[M], prefix string) error {
	if dir := filepath.Dir(prefix); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create index directory: %w", err)
		}
	}
	return idx.Save(prefix)
}
