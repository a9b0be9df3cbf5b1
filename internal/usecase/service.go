package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cinema-scheduler/internal/data/repository"
	"cinema-scheduler/pkg/events"
	"cinema-scheduler/pkg/lock"
	"cinema-scheduler/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Auth      AuthService
	Screening ScreeningService
	Ticket    TicketService
}

func NewService(
	repo *repository.Repository,
	locker lock.Locker,
	publisher events.Publisher,
	loc *time.Location,
	config *utils.Config,
	log *zap.Logger,
) *Service {
	return &Service{
		Auth:      NewAuthService(repo, config, log),
		Screening: NewScreeningService(repo, locker, publisher, loc, log),
		Ticket:    NewTicketService(repo, locker, publisher, log),
	}
}

// publishTimeout bounds how long a request waits on the broker after its
// write committed.
const publishTimeout = 3 * time.Second

// withLocks runs fn while holding every key and releases them before
// returning. Callers publish events after it, never inside fn.
func withLocks(ctx context.Context, locker lock.Locker, fn func() error, keys ...string) error {
	unlock, err := lock.LockAll(ctx, locker, keys...)
	if err != nil {
		return lockError(err)
	}
	defer unlock()

	return fn()
}

// lockError reports contention as a conflict the client can retry. Any
// other lock failure (redis unreachable) stays an internal error.
func lockError(err error) error {
	if errors.Is(err, lock.ErrNotAcquired) {
		return fmt.Errorf("resource is busy, retry later: %w: %w", err, utils.ErrConflict)
	}
	return fmt.Errorf("acquire lock: %w", err)
}

// publishEvent is best effort: the write already happened, so a broker
// failure is logged and swallowed.
func publishEvent(ctx context.Context, publisher events.Publisher, log *zap.Logger, event events.Event) {
	if publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := publisher.Publish(ctx, event); err != nil {
		log.Warn("Failed to publish event",
			zap.Error(err),
			zap.String("event_type", event.Type),
			zap.String("aggregate_id", event.AggregateID),
		)
	}
}
