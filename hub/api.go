package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// API wires the hub into HTTP: the two websocket endpoints plus a read-only
// REST snapshot for tooling that does not hold a live channel.
type API struct {
	hub *Hub
}

func NewAPI(hub *Hub) *API {
	return &API{hub: hub}
}

func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/service", a.handleServiceSocket)
	mux.HandleFunc("/ws/dashboard", a.handleDashboardSocket)
	mux.HandleFunc("/api/services", a.handleListServices)
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (a *API) handleListServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"services": a.hub.snapshot(),
	}); err != nil {
		log.Printf("hub: list services encode failed: %v", err)
	}
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":     "ok",
		"services":   a.hub.serviceCount(),
		"dashboards": a.hub.dashboardCount(),
	})
}
