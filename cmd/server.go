package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout      = 10 * time.Second
	sessionSweepInterval = time.Hour
)

// SessionCleaner drops sessions that can no longer authenticate.
type SessionCleaner interface {
	CleanExpiredSessions(ctx context.Context) error
}

// APIServer serves route until ctx is cancelled, then drains in-flight
// requests. Expired sessions are swept in the background while it runs.
func APIServer(ctx context.Context, route *chi.Mux, sessions SessionCleaner, port string, log *zap.Logger) error {
	addr := fmt.Sprintf(":%s", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           route,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Server running", zap.String("addr", "http://localhost"+addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if sessions != nil {
		g.Go(func() error {
			sweepSessions(ctx, sessions, sessionSweepInterval, log)
			return nil
		})
	}

	return g.Wait()
}

func sweepSessions(ctx context.Context, sessions SessionCleaner, every time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sessions.CleanExpiredSessions(ctx); err != nil {
				log.Warn("Failed to clean expired sessions", zap.Error(err))
			}
		}
	}
}
