package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/botgrid/gateway/internal/api/handlers"
	"github.com/botgrid/gateway/internal/api/middleware"
	"github.com/botgrid/gateway/internal/auth"
)

// NewRouter creates the HTTP router with all gateway routes.
func NewRouter(h *handlers.Handlers, verifier *auth.Verifier) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.PrincipalResolver(verifier))

	// Liveness & info
	r.Get("/", h.Banner)
	r.Get("/alive", h.Alive)
	r.Get("/health", h.Health)

	// Bot registry
	r.Get("/bots", h.ListBots)
	r.Post("/bot", h.RegisterBot)

	// Per-bot reads
	r.Route("/bot/{name}", func(r chi.Router) {
		r.Get("/status", h.BotStatus)
		r.Get("/settings", h.BotSettings)
		r.Get("/actions", h.BotActions)
		r.Get("/phrases", h.BotPhrases)
		r.Get("/intents", h.BotIntents)
	})
	r.Get("/intent/{intent}/bot/{name}/examples", h.IntentExamples)

	// Training mutations
	r.Post("/phrases", h.AddPhrases)
	r.Delete("/phrase", h.DeletePhrase)
	r.Post("/example", h.AddExample)
	r.Delete("/example", h.DeleteExample)
	r.Post("/intent", h.CreateIntent)
	r.Post("/language", h.SetLanguage)

	// Conversation
	r.Post("/handle", h.Handle)
	r.Post("/explain", h.Explain)

	// Integration façade
	r.Post("/integration", h.UpsertIntegration)
	r.Get("/integration", h.GetIntegration)
	r.Delete("/integration", h.DeleteIntegration)
	r.Get("/integrations", h.ListIntegrations)
	r.Get("/integration/body", h.IntegrationBody)

	return r
}
