package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/JET-SOUZA/jet.iptv/internal/model"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves the health probes and the API description.
type SystemHandler struct {
	store Pinger
	doc   *openapi3.T
}

func NewSystemHandler(store Pinger, doc *openapi3.T) *SystemHandler {
	return &SystemHandler{store: store, doc: doc}
}

// Healthz is a liveness probe. Returns 200 if the process is running.
// GET /healthz
func (h *SystemHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.HealthResponse{Status: "ok"})
}

// Readyz is a readiness probe. Returns 200 when the user database answers a
// ping, or 503 otherwise.
// GET /readyz
func (h *SystemHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := model.HealthResponse{Status: "ok", Checks: map[string]string{"store": "ok"}}
	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Checks["store"] = "error: " + err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// OpenAPI serves the route description.
// GET /openapi.json
func (h *SystemHandler) OpenAPI(w http.ResponseWriter, r *http.Request) {
	if h.doc == nil {
		writeError(w, http.StatusNotFound, "API description not available")
		return
	}
	writeJSON(w, http.StatusOK, h.doc)
}
