package server

import (
	"log/slog"
	"net/http"

	"github.com/chris/pi-settlement/pkg/api"
	"github.com/chris/pi-settlement/pkg/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RouterDependencies collects handler dependencies.
type RouterDependencies struct {
	API api.ServerInterface

	// RateLimiter is optional; nil disables rate limiting.
	RateLimiter *middleware.RateLimiter

	// WebSocket, when set, is mounted at /ws.
	WebSocket http.Handler
}

// NewRouter wires the HTTP routes exposed by the settlement API.
func NewRouter(logger *slog.Logger, deps RouterDependencies) http.Handler {
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(middleware.NewStructuredLogger(logger))
	router.Use(chimw.Recoverer)
	router.Use(middleware.CORS)
	if deps.RateLimiter != nil {
		router.Use(deps.RateLimiter.Handler)
	}

	if deps.WebSocket != nil {
		router.Handle("/ws", deps.WebSocket)
	}
	api.HandlerFromMux(deps.API, router)
	return router
}
