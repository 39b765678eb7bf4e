package routes

import (
	"fieldops/ledgersync/internal/api"
	"fieldops/ledgersync/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// RegisterAPIRoutes registers all API v1 routes and handlers
func RegisterAPIRoutes(r chi.Router, deps *api.Dependencies, handlers *api.Handlers) {
	r.Route("/api/v1", func(v1 chi.Router) {
		// The platform redirects the browser here; the signed state is the credential.
		v1.Get("/accounting/callback", handlers.OAuthCallback())

		v1.Group(func(authed chi.Router) {
			authed.Use(middleware.AuthMiddleware(deps.Config.Auth.JWTSecret, deps.Repo.Keys))

			// Member group: reads, plus writes gated per document type
			authed.Group(func(member chi.Router) {
				member.Use(middleware.IsMemberMiddleware)

				member.Route("/sync/{entityType}", func(sync chi.Router) {
					sync.Get("/", handlers.ListMappings())
					sync.Get("/{entityID}", handlers.GetMapping())
					sync.Get("/{entityID}/logs", handlers.GetSyncLogs())

					gated := sync.With(middleware.RequireRoleFunc(api.SyncWriteRole))
					gated.Post("/{entityID}", handlers.SyncCreate())
					gated.Put("/{entityID}", handlers.SyncUpdate())
				})

				member.Get("/accounting/connection", handlers.ConnectionStatus())
				member.Get("/accounting/locked-period", handlers.GetLockedPeriod())

				// Admin-only group
				member.Group(func(admin chi.Router) {
					admin.Use(middleware.IsAdminMiddleware)

					admin.Post("/accounting/connect", handlers.Connect())
					admin.Delete("/accounting/connection", handlers.Disconnect())
					admin.Put("/accounting/locked-period", handlers.PutLockedPeriod())
				})
			})
		})
	})
}
