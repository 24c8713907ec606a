package server

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes - setups http routes
func (a *API) setupRoutes() {
	// System health
	a.mux.HandleFunc("/health", a.routes.health.HealthCheck)

	// Prometheus metrics
	a.mux.Handle("/metrics", promhttp.Handler())

	// Real-time surface: one websocket endpoint per connection, role is
	// taken from the access token at the handshake.
	a.mux.Handle("GET /ws", a.routes.session)

	// Read-only REST surface
	a.mux.HandleFunc("GET /trips/history", a.routes.trip.History)
}
