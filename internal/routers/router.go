package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/swapnilj01/collab-ai-editor/internal/api"
	"github.com/swapnilj01/collab-ai-editor/internal/metrics"
)

func New(h *api.Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Get("/healthz", h.Health)
	r.Get("/readyz", h.Ready)
	r.Method("GET", "/metrics", metrics.Handler())

	r.Post("/signup", h.Register)
	r.Post("/token", h.Login)

	r.Post("/create_session", h.CreateSession)
	r.Get("/sessions", h.ListSessions)
	r.Get("/sessions/{id}", h.GetSessionCode)
	r.Delete("/sessions/{id}", h.DeleteSession)
	r.Post("/save_session", h.SaveSession)
	r.Post("/suggest", h.Suggest)

	r.Get("/ws/{id}", h.CollabWS)

	return r
}
