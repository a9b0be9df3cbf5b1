package wire

import (
	"net/http"

	"cinema-scheduler/internal/adaptor"
	"cinema-scheduler/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireScreening(
	r chi.Router,
	screeningHandler *adaptor.ScreeningHandler,
	auth func(http.Handler) http.Handler,
	log *zap.Logger,
) {
	// ==================== PUBLIC ROUTES ====================
	r.Get("/api/screenings", screeningHandler.ListScreenings)
	r.Get("/api/screenings/{id}", screeningHandler.GetScreening)

	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin/screenings", func(r chi.Router) {
		r.Use(auth)
		r.Use(middleware.Admin(log))

		r.Post("/", screeningHandler.CreateScreening)       // POST /api/admin/screenings
		r.Patch("/{id}", screeningHandler.PatchScreening)   // PATCH /api/admin/screenings/{id}
		r.Delete("/{id}", screeningHandler.DeleteScreening) // DELETE /api/admin/screenings/{id}
	})
}
