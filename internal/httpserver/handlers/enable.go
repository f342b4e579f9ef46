package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/antenna/internal/httpserver/deps"
	"github.com/MrSnakeDoc/antenna/internal/logger"
)

type enableRequest struct {
	Enabled bool `json:"enabled"`
}

// SetEnabled toggles whether a service may be picked by arbitration.
// The new flag is queued for persistence.
func SetEnabled(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		w.Header().Set("Content-Type", "application/json")

		svc := d.Core.Find(id)
		if svc == nil {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(errorResponse{Error: "service not found"})
			return
		}

		var req enableRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(errorResponse{Error: "invalid body"})
			return
		}

		d.Core.SetEnabled(svc, req.Enabled)
		if d.Saver != nil {
			d.Saver.Enqueue(svc, false)
		}

		d.Logger.Info("service enabled flag changed",
			logger.String("service", svc.NiceName()),
			logger.Bool("enabled", req.Enabled))

		_ = json.NewEncoder(w).Encode(enableRequest{Enabled: req.Enabled})
	}
}
