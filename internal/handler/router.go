package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/AlejandroDiBattista/TUP25-P4/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware API магазина.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Post("/registrar", h.Register)
	r.Post("/iniciar-sesion", h.Login)
	r.Get("/productos", h.ListProducts)
	r.Get("/productos/{id}", h.GetProduct)

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Post("/cerrar-sesion", h.Logout)
		r.Get("/usuarios/me", h.CurrentUser)

		r.Get("/carrito", h.GetCart)
		r.Post("/carrito/agregar", h.AddToCart)
		r.Delete("/carrito/quitar/{productoID}", h.RemoveFromCart)
		r.Put("/carrito/{productoID}", h.SetQuantity)
		r.Post("/carrito/cancelar", h.ClearCart)
		r.Post("/carrito/finalizar", h.Checkout)

		r.Get("/compras", h.ListPurchases)
		r.Get("/compras/{id}", h.GetPurchase)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return r
}
