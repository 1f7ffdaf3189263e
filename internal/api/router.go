package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter builds the /api route tree.
func NewRouter(h *Handler, authEnabled bool, token string, events http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/notes", func(r chi.Router) {
		r.Get("/", h.ListNotes)
		r.Post("/", h.CreateNote)
		r.Get("/{id}", h.GetNote)
		r.Put("/{id}", h.UpdateNote)
		r.Delete("/{id}", h.DeleteNote)
		r.Post("/{id}/convert", h.ConvertNote)
	})

	r.Get("/search", h.Search)

	r.Route("/layouts", func(r chi.Router) {
		r.Get("/", h.ListLayouts)
		r.Post("/", h.CreateLayout)
	})

	r.Route("/config", func(r chi.Router) {
		r.Get("/", h.GetConfig)
		r.Put("/", h.PutConfig)
	})

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
