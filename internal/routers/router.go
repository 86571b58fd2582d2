package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arnab9957/CodeFuse/internal/api"
	"github.com/arnab9957/CodeFuse/internal/users"
)

// New wires the API surface: session persistence REST, user accounts, voice
// client config and the collaboration websocket.
func New(h *api.Handlers, uh *users.Handlers) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", h.Health)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Get("/", h.ListSessions)
		r.Get("/{roomId}", h.GetSession)
		r.Put("/{roomId}", h.UpdateSession)
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", uh.Register)
		r.Post("/login", uh.Login)
		r.Post("/logout", uh.Logout)
		r.Get("/me", uh.Me)
		r.Put("/{id}", uh.Update)
	})

	r.Get("/api/voice/config", h.GetWebRTCConfig)

	r.Get("/ws", h.CollabWS)

	return r
}
