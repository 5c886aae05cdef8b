package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/brewline-ai/brewline-engine/pkg/catalog"
	"github.com/brewline-ai/brewline-engine/pkg/config"
	"github.com/brewline-ai/brewline-engine/pkg/fusion"
	"github.com/brewline-ai/brewline-engine/pkg/handlers"
	"github.com/brewline-ai/brewline-engine/pkg/history"
	"github.com/brewline-ai/brewline-engine/pkg/imagefeature"
	"github.com/brewline-ai/brewline-engine/pkg/llm"
	"github.com/brewline-ai/brewline-engine/pkg/logging"
	"github.com/brewline-ai/brewline-engine/pkg/models"
	"github.com/brewline-ai/brewline-engine/pkg/retrieval"
	"github.com/brewline-ai/brewline-engine/pkg/router"
	"github.com/brewline-ai/brewline-engine/pkg/services"
	"github.com/brewline-ai/brewline-engine/pkg/vectorindex"
)

func main() {
	// Secrets come from the environment; .env is a local convenience.
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

	if err := run(cfg, logger); err != nil {
		logger.Fatal("engine exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	store, err := catalog.Open(&cfg.Catalog, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	chatClient, err := llm.NewChatClient(&cfg.AI, logger)
	if err != nil {
		return err
	}
	embedder, err := llm.NewEmbeddingClient(&cfg.AI, logger)
	if err != nil {
		return err
	}

	rows := loadIndex[models.RowDocument](cfg.Retrieval.RowIndexPath, logger)
	descriptions := loadIndex[models.DescriptionDocument](cfg.Retrieval.DescriptionIndexPath, logger)
	images := loadIndex[models.ImageMetadata](cfg.Retrieval.ImageIndexPath, logger)

	retriever := retrieval.NewRetriever(embedder, rows, descriptions, cfg.Retrieval.TopK, logger)
	extractor := imagefeature.NewExtractor(cfg.Image.FeatureEndpoint, cfg.Retrieval.ImageFeatureDim, logger)
	searcher := retrieval.NewImageSearcher(extractor, images, cfg.Retrieval.TopK, logger)

	hist := history.NewStore(cfg.History.MaxPerUser, cfg.History.Path, logger)

	structured := services.NewStructured(chatClient, store, cfg.AI.Temperature, logger)
	semantic := services.NewSemantic(
		chatClient, retriever, searcher, store,
		cfg.Retrieval.Alpha, cfg.Retrieval.TopK,
		fusion.Normalization(cfg.Retrieval.Normalization),
		cfg.AI.Temperature, logger,
	)
	engine := services.NewEngine(router.New(chatClient, logger), structured, semantic, hist, store, logger)
	suggestion := services.NewSuggestion(store, engine, hist, logger)

	handler := handlers.NewRouter(
		handlers.NewChatHandler(engine, logger),
		handlers.NewMenuHandler(store, suggestion, logger),
		handlers.NewHealthHandler(cfg, logger),
		logger,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting brewline-engine",
			zap.String("addr", addr),
			zap.String("env", cfg.Env),
			zap.String("model", cfg.AI.Model))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

// loadIndex opens a saved index artifact. A missing or unreadable
// artifact logs a warning and yields an empty index, so the engine can
// serve SQL-path answers before the index build job has run.
func loadIndex[M any](prefix string, logger *zap.Logger) *vectorindex.FlatIndex[M] {
	idx, err := vectorindex.Open[M](prefix)
	if err != nil {
		logger.Warn("vector index unavailable, starting empty",
			zap.String("prefix", prefix),
			zap.Error(err))
		return vectorindex.NewFlatIndex[M](1)
	}

	logger.Info("vector index loaded",
		zap.String("prefix", prefix),
		zap.Int("vectors", idx.Size()),
		zap.Int("dim", idx.Dim()))
	return idx
}
