package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.withRequestID)
	r.Use(s.accessLog)
	r.Use(s.recoverPanics)
	r.Use(s.cors)
	r.Use(s.limitBody)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/points", func(r chi.Router) {
			r.Get("/", s.handleListPoints)
			r.Post("/", s.handleCreatePoint)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetPoint)
				r.Patch("/", s.handleUpdatePoint)
				r.Delete("/", s.handleDeletePoint)
				r.Get("/routes", s.handlePointRoutes)
			})
		})

		r.Route("/routes", func(r chi.Router) {
			r.Get("/", s.handleListRoutes)
			r.Post("/", s.handleCreateRoute)
			r.Get("/feedback", s.handleFeedbackProbe)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRoute)
				r.Patch("/", s.handleUpdateRoute)
				r.Delete("/", s.handleDeleteRoute)
			})
		})

		r.Route("/matrix", func(r chi.Router) {
			r.Get("/", s.handleMatrix)
			r.Get("/stats", s.handleMatrixStats)
			r.Get("/cycles", s.handleMatrixCycles)
			r.Get("/verify", s.handleMatrixVerify)
		})

		r.Route("/vca", func(r chi.Router) {
			r.Get("/stats", s.handleVCAStats)

			r.Route("/faders", func(r chi.Router) {
				r.Get("/", s.handleListFaders)
				r.Post("/", s.handleCreateFader)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetFader)
					r.Patch("/", s.handleUpdateFader)
					r.Delete("/", s.handleDeleteFader)
					r.Post("/link", s.handleLinkFader)
					r.Post("/unlink", s.handleUnlinkFader)
				})
			})

			r.Route("/groups", func(r chi.Router) {
				r.Get("/", s.handleListGroups)
				r.Post("/", s.handleCreateGroup)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetGroup)
					r.Patch("/", s.handleUpdateGroup)
					r.Delete("/", s.handleDeleteGroup)
					r.Put("/parent", s.handleSetGroupParent)
				})
			})
		})

		r.Route("/sidechain", func(r chi.Router) {
			r.Route("/routes", func(r chi.Router) {
				r.Get("/", s.handleListSidechainRoutes)
				r.Post("/", s.handleCreateSidechainRoute)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetSidechainRoute)
					r.Patch("/", s.handleUpdateSidechainRoute)
					r.Delete("/", s.handleDeleteSidechainRoute)
				})
			})

			r.Route("/buses", func(r chi.Router) {
				r.Get("/", s.handleListBuses)
				r.Post("/", s.handleCreateBus)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetBus)
					r.Patch("/", s.handleUpdateBus)
					r.Delete("/", s.handleDeleteBus)
					r.Post("/reset", s.handleResetBus)
				})
			})
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
