package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/handlers"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/middleware"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth       *handlers.AuthHandler
	Tournament *handlers.TournamentHandler
	Match      *handlers.MatchHandler
	Team       *handlers.TeamHandler
	Server     *handlers.ServerHandler
	Webhook    *handlers.WebhookHandler
	Demo       *handlers.DemoHandler
	WebSocket  *handlers.WebSocketHandler
}

// InitRoutes assembles the chi router. Three authentication zones: public
// reads, webhook-secret routes for game servers, JWT-guarded admin mutations.
func InitRoutes(h Handlers, webhookSecret, jwtSecret string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "MatchZy-FileName"},
	}))

	router.Get("/ws", h.WebSocket.ServeWs)

	router.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.Auth.Login)

		// Game server surface: shared webhook secret.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireWebhookSecret(webhookSecret))
			r.Post("/servers/{serverID}/events", h.Webhook.HandleEvent)
			r.Post("/matches/{slug}/demo", h.Demo.Upload)
		})

		// Public reads.
		r.Get("/tournament", h.Tournament.Get)
		r.Get("/tournament/state", h.Tournament.FullState)
		r.Get("/matches", h.Match.List)
		r.Get("/matches/{slug}", h.Match.Get)
		r.Get("/matches/{slug}/config", h.Match.Config)
		r.Get("/teams", h.Team.List)
		r.Get("/teams/{id}", h.Team.Get)

		// Admin mutations.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(jwtSecret))

			r.Post("/tournament", h.Tournament.Create)
			r.Post("/tournament/start", h.Tournament.Start)
			r.Post("/tournament/reset", h.Tournament.Reset)
			r.Post("/tournament/regenerate", h.Tournament.Regenerate)
			r.Post("/tournament/recover", h.Tournament.Recover)
			r.Delete("/tournament", h.Tournament.Delete)

			r.Post("/matches/{slug}/server", h.Match.AssignServer)
			r.Post("/matches/{slug}/result", h.Match.ReportResult)
			r.Post("/matches/{slug}/replay", h.Match.Replay)

			r.Put("/teams/{id}", h.Team.Upsert)
			r.Delete("/teams/{id}", h.Team.Delete)

			r.Post("/servers", h.Server.Create)
			r.Get("/servers", h.Server.List)
			r.Get("/servers/{serverID}", h.Server.Get)
			r.Get("/servers/{serverID}/events", h.Webhook.RecentEvents)
			r.Delete("/servers/{serverID}", h.Server.Delete)
		})
	})

	return router
}
