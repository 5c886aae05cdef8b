package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/brewline-ai/brewline-engine/pkg/middleware"
)

// NewRouter assembles the API routes.
func NewRouter(chat *ChatHandler, menu *MenuHandler, health *HealthHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.StripSlashes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))

	r.Get("/health", health.Health)
	r.Get("/ping", health.Ping)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", chat.Chat)
		r.Post("/chat/image", chat.ChatImage)
		r.Delete("/chat/history", chat.ClearHistory)

		r.Route("/menu", func(r chi.Router) {
			r.Get("/categories", menu.Categories)
			r.Get("/categories/{categoryID}/products", menu.Products)
			r.Get("/products", menu.AllProducts)
			r.Post("/query", menu.Query)
			r.Post("/suggest", menu.Suggest)
		})
	})

	return r
}
