package server

import (
	"net/http"

	"github.com/atalaya-security/riskguard/internal/api"
	"github.com/atalaya-security/riskguard/internal/api/handlers"
	"github.com/atalaya-security/riskguard/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	IncidentHandler  *handlers.IncidentHandler
	KnowledgeHandler *handlers.KnowledgeHandler
	SystemHandler    *handlers.SystemHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.CORS)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", cfg.IncidentHandler.Analyze)
		r.Get("/analysis-types", cfg.IncidentHandler.AnalysisTypes)

		r.Route("/rag", func(r chi.Router) {
			r.Post("/search", cfg.KnowledgeHandler.Search)
			r.Get("/health", cfg.KnowledgeHandler.Health)
			r.Get("/stats", cfg.KnowledgeHandler.Stats)
			r.Post("/reindex", cfg.KnowledgeHandler.Reindex)
		})

		r.Get("/system/stats", cfg.SystemHandler.Stats)
	})

	return r
}
