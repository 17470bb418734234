package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/llm-orchestrator/app"
	"github.com/upb/llm-orchestrator/handlers"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Logger)
	orchestrateHandler := handlers.NewOrchestrateHandler(deps.Orchestrator, deps.Logger)
	wsHandler := handlers.NewWSHandler(deps.Orchestrator, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", healthHandler.HandleHealth)
	r.Get("/readyz", healthHandler.HandleReadiness)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/status", orchestrateHandler.HandleStatus)

		// Orchestration endpoints; orchestrate calls can run long so they
		// get their own generous timeout
		r.Group(func(r chi.Router) {
			if deps.AuthEnabled {
				r.Use(deps.AuthMiddleware.RequireAuth)
			}
			r.With(middleware.Timeout(deps.Config.Server.WriteTimeout)).
				Post("/orchestrate", orchestrateHandler.HandleOrchestrate)
			r.Post("/analyze", orchestrateHandler.HandleAnalyze)
		})
	})

	// Websocket bridge
	r.Group(func(r chi.Router) {
		if deps.AuthEnabled {
			r.Use(deps.AuthMiddleware.RequireAuth)
		}
		r.Get("/ws", wsHandler.HandleWS)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
