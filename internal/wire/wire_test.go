package wire

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"cinema-scheduler/internal/data/repository"
	"cinema-scheduler/pkg/events"
	"cinema-scheduler/pkg/lock"
	"cinema-scheduler/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testApp() *App {
	log := zap.NewNop()
	return Wiring(Deps{
		Repo:      &repository.Repository{},
		Locker:    lock.NewLocalLocker(),
		Publisher: events.NewLogPublisher(log),
		Location:  time.UTC,
		Config:    &utils.Config{},
		Logger:    log,
	})
}

func TestWiring_Routes(t *testing.T) {
	app := testApp()

	var routes []string
	err := chi.Walk(app.Router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, method+" "+route)
		return nil
	})
	require.NoError(t, err)
	sort.Strings(routes)

	expected := []string{
		"DELETE /api/admin/screenings/{id}",
		"DELETE /api/tickets/{id}",
		"GET /api/screenings",
		"GET /api/screenings/{id}",
		"GET /api/screenings/{id}/capacity",
		"GET /api/tickets/",
		"GET /api/tickets/{id}",
		"GET /health",
		"PATCH /api/admin/screenings/{id}",
		"PATCH /api/tickets/{id}",
		"POST /api/admin/screenings/",
		"POST /api/login",
		"POST /api/logout",
		"POST /api/screenings/{id}/tickets",
		"POST /api/tickets/",
	}
	for _, route := range expected {
		assert.Contains(t, routes, route)
	}
}

func TestWiring_ProtectedRoutesNeedSession(t *testing.T) {
	app := testApp()

	for _, target := range []struct{ method, path string }{
		{http.MethodPost, "/api/admin/screenings"},
		{http.MethodDelete, "/api/admin/screenings/1"},
		{http.MethodGet, "/api/tickets"},
		{http.MethodPost, "/api/screenings/1/tickets"},
		{http.MethodPost, "/api/logout"},
	} {
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, httptest.NewRequest(target.method, target.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", target.method, target.path)
	}
}

func TestWiring_Health(t *testing.T) {
	rec := httptest.NewRecorder()
	testApp().Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}
