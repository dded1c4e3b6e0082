package server

import "net/http"

// HealthHandler answers liveness probes without touching storage.
type HealthHandler struct{}

func (HealthHandler) Routes() []string {
	return []string{"GET /api/health"}
}

func (HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
