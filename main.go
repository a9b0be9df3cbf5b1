// main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"cinema-scheduler/cmd"
	"cinema-scheduler/internal/data/repository"
	"cinema-scheduler/internal/wire"
	"cinema-scheduler/pkg/database"
	"cinema-scheduler/pkg/events"
	"cinema-scheduler/pkg/lock"
	"cinema-scheduler/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	location, err := config.Schedule.Location()
	if err != nil {
		logger.Fatal("Invalid schedule timezone",
			zap.String("timezone", config.Schedule.Timezone),
			zap.Error(err),
		)
	}

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	if config.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, logger); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	locker, err := newLocker(ctx, config, logger)
	if err != nil {
		logger.Fatal("Failed to set up locker",
			zap.String("backend", config.Lock.Backend),
			zap.Error(err),
		)
	}

	publisher, err := events.New(config.Events, logger)
	if err != nil {
		logger.Fatal("Failed to set up event publisher",
			zap.String("backend", config.Events.Backend),
			zap.Error(err),
		)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("Failed to close event publisher", zap.Error(err))
		}
	}()

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// Wire all dependencies
	app := wire.Wiring(wire.Deps{
		DB:        db,
		Repo:      repos,
		Locker:    locker,
		Publisher: publisher,
		Location:  location,
		Config:    config,
		Logger:    logger,
	})

	// Start server
	if err := cmd.APIServer(ctx, app.Router, repos.Session, config.App.Port, logger); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return
	}

	logger.Info("Server stopped")
}

func newLocker(ctx context.Context, config *utils.Config, logger *zap.Logger) (lock.Locker, error) {
	switch config.Lock.Backend {
	case "redis":
		client, err := lock.NewRedisClient(ctx, config.Redis)
		if err != nil {
			return nil, err
		}
		logger.Info("Using redis locker", zap.String("addr", config.Redis.Addr))
		return lock.NewRedisLocker(client, config.Lock, logger), nil
	case "", "local":
		logger.Info("Using in-process locker")
		return lock.NewLocalLocker(), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", config.Lock.Backend)
	}
}
