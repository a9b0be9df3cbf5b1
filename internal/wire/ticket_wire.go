package wire

import (
	"net/http"

	"cinema-scheduler/internal/adaptor"
	"cinema-scheduler/pkg/middleware"

	"github.com/go-chi/chi/v5"
)

func wireTicket(
	r chi.Router,
	ticketHandler *adaptor.TicketHandler,
	auth func(http.Handler) http.Handler,
	limiter *middleware.RateLimiter,
) {
	// ==================== PUBLIC ROUTES ====================
	r.Get("/api/screenings/{id}/capacity", ticketHandler.GetCapacity)

	// ==================== AUTHENTICATED ROUTES ====================
	r.Route("/api/tickets", func(r chi.Router) {
		r.Use(auth)

		r.Post("/", ticketHandler.CreateTicket)
		r.Get("/", ticketHandler.ListTickets)
		r.Get("/{id}", ticketHandler.GetTicket)
		r.Patch("/{id}", ticketHandler.ChangeTicketType)
		r.Delete("/{id}", ticketHandler.DeleteTicket)
	})

	// attaching is the contended write, so it is rate limited per user
	r.With(auth, limiter.Handler).Post("/api/screenings/{id}/tickets", ticketHandler.AttachTicket)
}
