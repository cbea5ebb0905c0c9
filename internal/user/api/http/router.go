package httpapi

import (
	"github.com/go-chi/chi/v5"

	"github.com/shestoi/GoMarket/platform/authctx"
)

// Mount регистрирует маршруты пользователей; /me объявлены до /{id}
func Mount(r chi.Router, h *Handler) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.Register)

		r.Group(func(r chi.Router) {
			r.Use(authctx.RequireUser)
			r.Get("/me", h.GetMe)
			r.Delete("/me", h.DeleteAccount)
		})

		r.Get("/{id}", h.GetUser)
	})
}
