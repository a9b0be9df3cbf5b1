package wire

import (
	"net/http"

	"cinema-scheduler/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireAuth(
	r chi.Router,
	authHandler *adaptor.AuthHandler,
	auth func(http.Handler) http.Handler,
) {
	// ==================== PUBLIC ROUTES ====================
	r.Post("/api/login", authHandler.Login)

	// ==================== PROTECTED ROUTES ====================
	r.With(auth).Post("/api/logout", authHandler.Logout)
}
