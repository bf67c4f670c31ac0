package bridge

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// Gatherer serves /metrics. If nil, /metrics is not mounted.
	Gatherer prometheus.Gatherer
}

// NewRouter returns the HTTP surface of a Hub:
//
//	GET /ws        renderer stream
//	GET /snapshot  current state of every list as JSON
//	GET /healthz   liveness and renderer count
//	GET /metrics   Prometheus exposition, when a Gatherer is set
func NewRouter(h *Hub, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/ws", h.ServeWS)
	r.Get("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, h.Snapshot())
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"status":  "ok",
			"clients": h.Clients(),
			"lists":   h.Lists(),
		})
	})
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
