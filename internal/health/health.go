// Package health provides the HTTP liveness and readiness probes for the
// Didaxa server.
//
// Two endpoints are exposed:
//
//   - /healthz — liveness; returns 200 with the server version as long as
//     the process can serve HTTP.
//   - /readyz  — readiness; returns 200 only when every registered probe
//     passes. Probes cover the engine's external collaborators, typically
//     the session store and the generation backend.
//
// Responses are JSON objects with a top-level "status" field ("ok" or
// "fail") and, on /readyz, a "checks" map with one entry per probe.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// probeTimeout bounds a single readiness probe.
const probeTimeout = 5 * time.Second

// Checker is a named readiness probe. Check returns nil when the dependency
// is usable and an error describing the failure otherwise. It must respect
// context cancellation.
type Checker struct {
	// Name labels the probe in the /readyz response (e.g. "postgres").
	Name string

	// Check probes the dependency.
	Check func(ctx context.Context) error
}

type report struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Handler serves the health endpoints. The probe list is fixed at
// construction; Handler is safe for concurrent use.
type Handler struct {
	version  string
	checkers []Checker
}

// New creates a [Handler] reporting the given server version. The checkers
// run sequentially in the order given on every /readyz request.
func New(version string, checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{version: version, checkers: c}
}

// Healthz is the liveness probe. A process that can serve HTTP is alive, so
// it always returns 200 along with the server version.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, report{Status: "ok", Version: h.version})
}

// Readyz runs every registered probe and returns 200 only if all pass. Each
// probe gets a context bounded by [probeTimeout] derived from the request
// context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers))
	ready := true

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			ready = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	rep := report{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !ready {
		rep.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, rep)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
