package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", h.ListCampaigns)
			r.Post("/", h.CreateCampaign)
			r.Get("/{id}", h.GetCampaign)
			r.Delete("/{id}", h.DeleteCampaign)
			r.Put("/{id}/status", h.UpdateCampaignStatus)
			r.Get("/{id}/summary", h.CampaignSummary)
			r.Get("/{id}/leads", h.LeadsByCampaign)
			r.Get("/{id}/emails", h.EmailLogByCampaign)
		})

		r.Route("/leads", func(r chi.Router) {
			r.Post("/", h.CreateLead)
			r.Get("/{id}", h.GetLead)
			r.Put("/{id}/status", h.UpdateLeadStatus)
			r.Put("/{id}/notes", h.UpdateLeadNotes)
		})

		r.Route("/blacklist", func(r chi.Router) {
			r.Get("/", h.ListBlacklist)
			r.Post("/", h.AddToBlacklist)
			r.Delete("/{email}", h.RemoveFromBlacklist)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", h.ListSettings)
			r.Put("/{key}", h.PutSetting)
		})

		r.Get("/stats/daily", h.DailyStats)
		r.Get("/stats/today", h.SentToday)
	})

	return r
}
