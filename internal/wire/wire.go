package wire

import (
	"context"
	"net/http"
	"time"

	"cinema-scheduler/internal/adaptor"
	"cinema-scheduler/internal/data/repository"
	"cinema-scheduler/internal/usecase"
	"cinema-scheduler/pkg/database"
	"cinema-scheduler/pkg/events"
	"cinema-scheduler/pkg/lock"
	"cinema-scheduler/pkg/middleware"
	"cinema-scheduler/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// App holds the router and the services behind it
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Deps are the process-wide resources built in main.
type Deps struct {
	DB        database.PgxIface
	Repo      *repository.Repository
	Locker    lock.Locker
	Publisher events.Publisher
	Location  *time.Location
	Config    *utils.Config
	Logger    *zap.Logger
}

func Wiring(deps Deps) *App {
	service := usecase.NewService(deps.Repo, deps.Locker, deps.Publisher, deps.Location, deps.Config, deps.Logger)
	handler := adaptor.NewHandler(service, deps.Logger)

	router := setupRouter(handler, service, deps)

	return &App{
		Router:  router,
		Service: service,
	}
}

func setupRouter(handler *adaptor.Handler, service *usecase.Service, deps Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Recover(deps.Logger))

	auth := middleware.AuthSession(service.Auth, deps.Logger)

	wireAuth(r, handler.Auth, auth)
	wireScreening(r, handler.Screening, auth, deps.Logger)
	wireTicket(r, handler.Ticket, auth, middleware.NewRateLimiter(deps.Config.RateLimit, deps.Logger))

	r.Get("/health", health(deps.DB))

	return r
}

func health(db database.PgxIface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				utils.ResponseJSON(w, http.StatusServiceUnavailable, false, "database unavailable", nil, nil)
				return
			}
		}
		utils.ResponseSuccess(w, "OK", nil)
	}
}
