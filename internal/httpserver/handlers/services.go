package handlers

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/antenna/internal/httpserver/deps"
	"github.com/MrSnakeDoc/antenna/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

// Services lists every registered service with its live state.
func Services(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(d.Core.Snapshot())
	}
}

// ServiceByID returns the state of a single service.
func ServiceByID(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		w.Header().Set("Content-Type", "application/json")

		for _, info := range d.Core.Snapshot() {
			if info.ID == id {
				_ = json.NewEncoder(w).Encode(info)
				return
			}
		}

		d.Logger.Debug("service lookup miss", logger.String("id", id))
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(errorResponse{Error: "service not found"})
	}
}

type channelResponse struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Services []string `json:"services"`
}

// Channels lists every channel and the services mapped to it.
func Channels(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		channels := d.Core.Channels()
		out := make([]channelResponse, 0, len(channels))
		for _, ch := range channels {
			resp := channelResponse{ID: ch.ID, Name: ch.Name}
			for _, s := range d.Core.MappedServices(ch) {
				resp.Services = append(resp.Services, s.NiceName())
			}
			out = append(out, resp)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

		_ = json.NewEncoder(w).Encode(out)
	}
}
