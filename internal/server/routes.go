package server

import (
	"github.com/go-chi/chi/v5"

	"github.com/portalgate/portalgate/internal/core"
	"github.com/portalgate/portalgate/internal/server/handlers"
)

func registerRoutes(router *chi.Mux, gateway *handlers.Gateway, health *handlers.Health) {
	router.Get("/health", health.Handler)
	router.Get("/health/live", health.LivenessHandler)
	router.Get("/health/ready", health.ReadinessHandler)
	router.Get("/version", handlers.VersionHandler)

	for _, resource := range core.ResourceTypes() {
		router.Get("/"+resource.Plural(), gateway.ListResources(resource))
		router.Get("/"+resource.Plural()+"/{id}", gateway.GetResource(resource))
	}

	router.Get("/cache/clear", gateway.ClearCache)
	router.Get("/download/all", gateway.DownloadAll)
}
