package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/antenna/internal/httpserver/deps"
	"github.com/MrSnakeDoc/antenna/internal/httpserver/handlers"
)

func init() { Register(registerServices) }

func registerServices(r chi.Router, d deps.Deps) {
	r.Get("/api/services", handlers.Services(d))
	r.Get("/api/services/{id}", handlers.ServiceByID(d))
	r.Patch("/api/services/{id}/enabled", handlers.SetEnabled(d))
	r.Get("/api/channels", handlers.Channels(d))
}
