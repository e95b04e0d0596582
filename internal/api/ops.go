package api

import (
	"encoding/json"
	"net/http"

	"mrforecast/domain/hyper"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewOpsRouter serves liveness and profiling endpoints on the side port
func NewOpsRouter(table *hyper.Table) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "ok",
			"draws":       table.Len(),
			"fingerprint": table.Fingerprint().String(),
		})
	})
	r.Mount("/debug", middleware.Profiler())
	return r
}
