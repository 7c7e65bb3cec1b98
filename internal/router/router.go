package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/marejada-pos/api/internal/config"
	"github.com/marejada-pos/api/internal/handler"
	mw "github.com/marejada-pos/api/internal/middleware"
	"github.com/marejada-pos/api/internal/store"
	"github.com/marejada-pos/api/internal/version"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and branch scoping middleware as needed.
func New(cfg *config.Config, s store.Store, counter version.Counter) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // terminal dev server
			"https://pos.marejada.mx",
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(s, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Branch-scoped routes
		r.Route("/branches/{bid}", func(r chi.Router) {
			r.Use(mw.RequireBranch)

			// Catalog
			catalogHandler := handler.NewCatalogHandler(s)
			r.Route("/catalog", catalogHandler.RegisterRoutes)

			// Orders and the kitchen queue
			orderHandler := handler.NewOrderHandler(s, counter)
			r.Route("/orders", orderHandler.RegisterRoutes)
		})
	})

	return r
}
