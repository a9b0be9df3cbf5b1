package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"cinema-scheduler/internal/data/entity"
	"cinema-scheduler/internal/data/repository"
	"cinema-scheduler/internal/dto/request"
	"cinema-scheduler/internal/dto/response"
	"cinema-scheduler/pkg/events"
	"cinema-scheduler/pkg/lock"
	"cinema-scheduler/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScreeningService is the scheduler. It is the only writer of screenings.
type ScreeningService interface {
	CreateScreening(ctx context.Context, req *request.CreateScreeningRequest) (*response.ScreeningResponse, error)
	PatchScreening(ctx context.Context, id int64, req *request.PatchScreeningRequest) (*response.ScreeningResponse, error)
	DeleteScreening(ctx context.Context, id int64) error
	GetScreening(ctx context.Context, id int64) (*response.ScreeningDetailResponse, error)
	ListScreenings(ctx context.Context, query *request.ListScreeningsQuery) (*response.PaginatedResponse[response.ScreeningDetailResponse], error)
}

type screeningService struct {
	repo      *repository.Repository
	locker    lock.Locker
	publisher events.Publisher
	loc       *time.Location
	log       *zap.Logger
}

func NewScreeningService(
	repo *repository.Repository,
	locker lock.Locker,
	publisher events.Publisher,
	loc *time.Location,
	log *zap.Logger,
) ScreeningService {
	if loc == nil {
		loc = time.UTC
	}
	return &screeningService{
		repo:      repo,
		locker:    locker,
		publisher: publisher,
		loc:       loc,
		log:       log.With(zap.String("service", "screening")),
	}
}

func (s *screeningService) CreateScreening(ctx context.Context, req *request.CreateScreeningRequest) (*response.ScreeningResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create screening validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s: %w", utils.FormatValidationErrors(errs), utils.ErrInvalidRequest)
	}
	if (req.RoomID == nil) == (req.RoomName == nil) {
		return nil, fmt.Errorf("exactly one of roomId or roomName is required: %w", utils.ErrInvalidRequest)
	}

	startsAt, err := utils.ParseTimestamp("startsAt", req.StartsAt)
	if err != nil {
		return nil, err
	}

	movie, err := s.findMovie(ctx, req.MovieID)
	if err != nil {
		return nil, err
	}

	room, err := s.findRoom(ctx, req.RoomID, req.RoomName)
	if err != nil {
		return nil, err
	}
	if room.Maintenance {
		return nil, fmt.Errorf("room %s is under maintenance: %w", room.Name, utils.ErrConflict)
	}

	screening := &entity.Screening{
		RoomID:   room.ID,
		MovieID:  movie.ID,
		StartsAt: *startsAt,
		EndsAt:   entity.EndsAtFor(*startsAt, movie.Duration()),
	}
	if err := s.checkOperatingHours(screening); err != nil {
		return nil, err
	}

	err = withLocks(ctx, s.locker, func() error {
		if err := s.checkOverlap(ctx, screening); err != nil {
			return err
		}
		return s.repo.Screening.Create(ctx, screening)
	}, lock.RoomKey(room.ID))
	if err != nil {
		return nil, err
	}

	s.log.Info("Screening created",
		zap.Int64("screening_id", screening.ID),
		zap.String("room", room.Name),
		zap.Int64("movie_id", movie.ID),
		zap.Time("starts_at", screening.StartsAt),
		zap.Time("ends_at", screening.EndsAt),
	)

	resp := response.ScreeningToResponse(screening)
	s.publish(ctx, events.ScreeningCreated, screening.ID, resp)
	return &resp, nil
}

func (s *screeningService) PatchScreening(ctx context.Context, id int64, req *request.PatchScreeningRequest) (*response.ScreeningResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Patch screening validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s: %w", utils.FormatValidationErrors(errs), utils.ErrInvalidRequest)
	}
	if req.RoomID != nil && req.RoomName != nil {
		return nil, fmt.Errorf("roomId and roomName are mutually exclusive: %w", utils.ErrInvalidRequest)
	}

	var newStart *time.Time
	if req.StartsAt != nil {
		t, err := utils.ParseTimestamp("startsAt", *req.StartsAt)
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, fmt.Errorf("startsAt must not be empty: %w", utils.ErrInvalidRequest)
		}
		newStart = t
	}

	existing, err := s.findScreening(ctx, id)
	if err != nil {
		return nil, err
	}

	var newRoom *entity.Room
	if req.RoomID != nil || req.RoomName != nil {
		newRoom, err = s.findRoom(ctx, req.RoomID, req.RoomName)
		if err != nil {
			return nil, err
		}
	}

	keys := []string{lock.RoomKey(existing.RoomID), lock.ScreeningKey(id)}
	if newRoom != nil {
		keys = append(keys, lock.RoomKey(newRoom.ID))
	}
	var updated entity.Screening
	err = withLocks(ctx, s.locker, func() error {
		// reload under the lock; the room we locked must still be the current one
		current, err := s.findScreening(ctx, id)
		if err != nil {
			return err
		}
		if current.RoomID != existing.RoomID {
			return fmt.Errorf("screening %d was moved concurrently, retry: %w", id, utils.ErrConflict)
		}

		updated = *current
		if newStart != nil {
			updated.StartsAt = *newStart
		}
		if req.MovieID != nil {
			updated.MovieID = *req.MovieID
		}
		if newStart != nil || req.MovieID != nil {
			movie, err := s.findMovie(ctx, updated.MovieID)
			if err != nil {
				return err
			}
			updated.EndsAt = entity.EndsAtFor(updated.StartsAt, movie.Duration())
		}
		if newRoom != nil && newRoom.ID != current.RoomID {
			if newRoom.Maintenance {
				return fmt.Errorf("room %s is under maintenance: %w", newRoom.Name, utils.ErrConflict)
			}
			updated.RoomID = newRoom.ID
		}

		if err := s.checkOperatingHours(&updated); err != nil {
			return err
		}

		windowChanged := !updated.StartsAt.Equal(current.StartsAt) || !updated.EndsAt.Equal(current.EndsAt)
		roomChanged := updated.RoomID != current.RoomID
		if windowChanged || roomChanged {
			attached, err := s.repo.Screening.CountTickets(ctx, id)
			if err != nil {
				return fmt.Errorf("count tickets: %w", err)
			}
			if attached > 0 {
				return fmt.Errorf("screening %d has %d tickets attached and cannot be rescheduled: %w",
					id, attached, utils.ErrConflict)
			}
		}

		if err := s.checkOverlap(ctx, &updated); err != nil {
			return err
		}

		return s.repo.Screening.Update(ctx, &updated)
	}, keys...)
	if err != nil {
		return nil, err
	}

	s.log.Info("Screening updated",
		zap.Int64("screening_id", id),
		zap.String("room_id", updated.RoomID.String()),
		zap.Int64("movie_id", updated.MovieID),
		zap.Time("starts_at", updated.StartsAt),
		zap.Time("ends_at", updated.EndsAt),
	)

	resp := response.ScreeningToResponse(&updated)
	s.publish(ctx, events.ScreeningUpdated, id, resp)
	return &resp, nil
}

func (s *screeningService) DeleteScreening(ctx context.Context, id int64) error {
	err := withLocks(ctx, s.locker, func() error {
		if _, err := s.findScreening(ctx, id); err != nil {
			return err
		}

		attached, err := s.repo.Screening.CountTickets(ctx, id)
		if err != nil {
			return fmt.Errorf("count tickets: %w", err)
		}
		if attached > 0 {
			return fmt.Errorf("screening %d has %d tickets attached: %w", id, attached, utils.ErrConflict)
		}

		return s.repo.Screening.Delete(ctx, id)
	}, lock.ScreeningKey(id))
	if err != nil {
		return err
	}

	s.publish(ctx, events.ScreeningDeleted, id, map[string]int64{"id": id})
	return nil
}

func (s *screeningService) GetScreening(ctx context.Context, id int64) (*response.ScreeningDetailResponse, error) {
	detail, err := s.repo.Screening.FindDetailByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get screening: %w", err)
	}
	if detail == nil {
		return nil, fmt.Errorf("screening %d: %w", id, utils.ErrNotFound)
	}

	resp := response.ScreeningDetailToResponse(detail)
	return &resp, nil
}

func (s *screeningService) ListScreenings(ctx context.Context, query *request.ListScreeningsQuery) (*response.PaginatedResponse[response.ScreeningDetailResponse], error) {
	if errs := utils.ValidateStruct(query); len(errs) > 0 {
		s.log.Warn("List screenings validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s: %w", utils.FormatValidationErrors(errs), utils.ErrInvalidRequest)
	}

	filter, err := screeningFilterFrom(query)
	if err != nil {
		return nil, err
	}

	screenings, err := s.repo.Screening.FindAll(ctx, filter, query.Limit(), query.Offset())
	if err != nil {
		return nil, fmt.Errorf("list screenings: %w", err)
	}

	total, err := s.repo.Screening.CountAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count screenings: %w", err)
	}

	data := make([]response.ScreeningDetailResponse, len(screenings))
	for i, screening := range screenings {
		data[i] = response.ScreeningDetailToResponse(screening)
	}

	return response.NewPaginatedResponse(data, query.Page, query.Limit(), total), nil
}

func screeningFilterFrom(query *request.ListScreeningsQuery) (entity.ScreeningFilter, error) {
	var filter entity.ScreeningFilter
	var err error

	if filter.StartsAfter, err = utils.ParseTimestamp("startsAfter", query.StartsAfter); err != nil {
		return filter, err
	}
	if filter.StartsBefore, err = utils.ParseTimestamp("startsBefore", query.StartsBefore); err != nil {
		return filter, err
	}
	if filter.EndsAfter, err = utils.ParseTimestamp("endsAfter", query.EndsAfter); err != nil {
		return filter, err
	}
	if filter.EndsBefore, err = utils.ParseTimestamp("endsBefore", query.EndsBefore); err != nil {
		return filter, err
	}

	if query.RoomID != "" {
		roomID, err := uuid.Parse(query.RoomID)
		if err != nil {
			return filter, fmt.Errorf("roomId %q: %w", query.RoomID, utils.ErrInvalidRequest)
		}
		filter.RoomID = &roomID
	}
	if query.RoomName != "" {
		name := query.RoomName
		filter.RoomName = &name
	}
	if query.MovieID != "" {
		movieID, err := strconv.ParseInt(query.MovieID, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("movieId %q: %w", query.MovieID, utils.ErrInvalidRequest)
		}
		filter.MovieID = &movieID
	}

	return filter, nil
}

// ==================== HELPER METHODS ====================

func (s *screeningService) findScreening(ctx context.Context, id int64) (*entity.Screening, error) {
	screening, err := s.repo.Screening.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find screening: %w", err)
	}
	if screening == nil {
		return nil, fmt.Errorf("screening %d: %w", id, utils.ErrNotFound)
	}
	return screening, nil
}

func (s *screeningService) findMovie(ctx context.Context, id int64) (*entity.Movie, error) {
	movie, err := s.repo.Movie.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find movie: %w", err)
	}
	if movie == nil {
		return nil, fmt.Errorf("movie %d: %w", id, utils.ErrNotFound)
	}
	return movie, nil
}

// findRoom resolves a room by id when given, otherwise by name.
func (s *screeningService) findRoom(ctx context.Context, roomID, roomName *string) (*entity.Room, error) {
	var (
		room *entity.Room
		err  error
		ref  string
	)

	switch {
	case roomID != nil:
		ref = *roomID
		id, parseErr := uuid.Parse(*roomID)
		if parseErr != nil {
			return nil, fmt.Errorf("roomId %q is not a UUID: %w", *roomID, utils.ErrInvalidRequest)
		}
		room, err = s.repo.Room.FindByID(ctx, id)
	case roomName != nil:
		ref = *roomName
		room, err = s.repo.Room.FindByName(ctx, *roomName)
	default:
		return nil, fmt.Errorf("room reference is required: %w", utils.ErrInvalidRequest)
	}

	if err != nil {
		return nil, fmt.Errorf("find room: %w", err)
	}
	if room == nil {
		return nil, fmt.Errorf("room %s: %w", ref, utils.ErrNotFound)
	}
	return room, nil
}

func (s *screeningService) checkOperatingHours(screening *entity.Screening) error {
	if entity.WithinOperatingHours(screening.StartsAt, screening.EndsAt, s.loc) {
		return nil
	}
	s.log.Warn("Screening outside operating hours",
		zap.Time("starts_at", screening.StartsAt),
		zap.Time("ends_at", screening.EndsAt),
	)
	return fmt.Errorf("screening %s-%s is outside operating hours %02d:00-%02d:59: %w",
		screening.StartsAt.In(s.loc).Format("15:04"),
		screening.EndsAt.In(s.loc).Format("15:04"),
		entity.OpeningHour, entity.ClosingHour,
		utils.ErrInvalidRequest,
	)
}

// checkOverlap must run while the room lock is held.
func (s *screeningService) checkOverlap(ctx context.Context, screening *entity.Screening) error {
	candidates, err := s.repo.Screening.FindByRoomOverlapping(ctx,
		screening.RoomID, screening.StartsAt, screening.EndsAt, screening.ID)
	if err != nil {
		return fmt.Errorf("scan room schedule: %w", err)
	}

	for _, other := range candidates {
		if other.ID == screening.ID || !screening.Overlaps(other) {
			continue
		}
		s.log.Warn("Screening overlaps",
			zap.Int64("conflicting_id", other.ID),
			zap.String("room_id", screening.RoomID.String()),
		)
		return fmt.Errorf("room is taken by screening %d (%s-%s): %w",
			other.ID,
			other.StartsAt.In(s.loc).Format("15:04"),
			other.EndsAt.In(s.loc).Format("15:04"),
			utils.ErrConflict,
		)
	}
	return nil
}

func (s *screeningService) publish(ctx context.Context, eventType string, id int64, payload any) {
	publishEvent(ctx, s.publisher, s.log, events.NewEvent(eventType, strconv.FormatInt(id, 10), payload))
}
