package common

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// HealthServer exposes liveness and readiness endpoints for orchestration
// platforms. Readiness flips once the owning service finishes startup.
type HealthServer struct {
	server *http.Server
	ready  *atomic.Bool
}

// NewHealthServer starts an HTTP server on :8081 serving /v1/health and
// /v1/readiness. The provided ready flag controls the readiness response.
func NewHealthServer(ready *atomic.Bool) *HealthServer {
	mux := http.NewServeMux()

	hs := &HealthServer{
		server: &http.Server{Addr: ":8081", Handler: mux},
		ready:  ready,
	}

	mux.HandleFunc("/v1/health", hs.handleHealth)
	mux.HandleFunc("/v1/readiness", hs.handleReadiness)

	go func() {
		// Shutdown errors are surfaced through the owning service's
		// deferred Shutdown call.
		_ = hs.server.ListenAndServe()
	}()

	return hs
}

// Server returns the underlying http server for shutdown control.
func (hs *HealthServer) Server() *http.Server { return hs.server }

func (hs *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (hs *HealthServer) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if !hs.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
