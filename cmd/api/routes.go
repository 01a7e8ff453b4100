package main

import (
	"call-gateway/internal/calls"
	"call-gateway/internal/httpapi"
	"call-gateway/internal/routing"
	"call-gateway/internal/telephony"

	"github.com/gin-gonic/gin"
)

type deps struct {
	calls      *calls.Service
	status     *calls.StatusService
	router     routing.Engine
	provider   telephony.TelephonyProvider
	dialNumber string
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d deps) {
	api := httpapi.Handlers{
		Calls:              d.calls,
		DefaultDestination: d.dialNumber,
		Provider:           d.provider,
	}

	// public
	r.GET("/", api.Root)
	r.GET("/healthz", api.Healthz)
	r.GET("/readyz", api.Readyz)

	// Call origination.
	r.POST("/call", api.StartCall)
	r.GET("/call", api.StartCallFromQuery)

	// Provider webhooks (public).
	// NOTE: Exotel does not sign webhooks; restrict by source IP at the edge in production.
	{
		h := telephony.ExotelWebhookHandler{Router: d.router, Status: d.status}
		r.GET("/exotel/call", h.HandleConnect)
		r.POST("/call-status", h.HandleStatusCallback)
	}

	// Debug echo of the configured destination.
	r.GET("/exotel/dial", api.DialNumber)

	r.NoRoute(httpapi.NotFound)
}
