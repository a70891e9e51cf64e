// internal/transport/http/router.go
package http

import (
	"database/sql"
	"net/http"

	"journal-notifier/internal/common/config"
	"journal-notifier/internal/common/logger"
	"journal-notifier/internal/notify/creator"
	"journal-notifier/internal/notify/query"
	"journal-notifier/internal/notify/stream"
	"journal-notifier/internal/transport/http/handler"
	appmiddleware "journal-notifier/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Deps holds the wired services and infrastructure the router exposes.
type Deps struct {
	DB       *sql.DB
	Redis    *redis.Client
	Creator  *creator.Creator
	Query    *query.Service
	Hub      *stream.Hub
	Provider *appmiddleware.JWTProvider
	Logger   logger.Logger
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(appmiddleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.HTTP.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	healthH := handler.NewHealthHandler(deps.DB, deps.Redis)
	notifH := handler.NewNotificationHandler(deps.Query, deps.Hub, deps.Logger)
	prefH := handler.NewPreferenceHandler(deps.Query)
	eventH := handler.NewEventHandler(deps.Creator)

	r.Get("/healthz", healthH.Check)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(appmiddleware.Auth(deps.Provider))

		r.Get("/notifications", notifH.Feed)
		r.Get("/notifications/unread-count", notifH.UnreadCount)
		r.Post("/notifications/read-all", notifH.MarkAllRead)
		r.Post("/notifications/{id}/read", notifH.MarkRead)
		r.Get("/notifications/stream", notifH.Stream)

		r.Get("/notifications/preferences", prefH.Get)
		r.Put("/notifications/preferences", prefH.Update)
		r.Get("/notifications/follows", prefH.ListFollows)
		r.Post("/notifications/follows", prefH.AddFollow)
		r.Delete("/notifications/follows/{type}/{value}", prefH.RemoveFollow)
	})

	r.Route("/internal/v1", func(r chi.Router) {
		r.Use(appmiddleware.InternalAuth(cfg.HTTP.InternalToken))

		r.Post("/events/published", eventH.Published)
		r.Post("/events/updated", eventH.Updated)
	})

	return r
}
