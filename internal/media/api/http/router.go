package httpapi

import (
	"github.com/go-chi/chi/v5"

	"github.com/shestoi/GoMarket/platform/authctx"
)

// Mount регистрирует маршруты медиа
func Mount(r chi.Router, h *Handler) {
	r.Route("/media", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(authctx.RequireUser)
			r.Post("/", h.Upload)
			r.Delete("/{id}", h.Delete)
		})
	})
}
