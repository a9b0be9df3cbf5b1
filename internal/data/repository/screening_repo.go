package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cinema-scheduler/internal/data/entity"
	"cinema-scheduler/pkg/database"
	"cinema-scheduler/pkg/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ScreeningRepository interface {
	Create(ctx context.Context, screening *entity.Screening) error
	FindByID(ctx context.Context, id int64) (*entity.Screening, error)
	FindDetailByID(ctx context.Context, id int64) (*entity.ScreeningDetail, error)
	Update(ctx context.Context, screening *entity.Screening) error
	Delete(ctx context.Context, id int64) error

	// FindByRoomOverlapping returns screenings of roomID whose window shares
	// an instant with [startsAt, endsAt). excludeID (when > 0) is skipped so
	// a screening never conflicts with itself.
	FindByRoomOverlapping(ctx context.Context, roomID uuid.UUID, startsAt, endsAt time.Time, excludeID int64) ([]*entity.Screening, error)

	FindAll(ctx context.Context, filter entity.ScreeningFilter, limit, offset int) ([]*entity.ScreeningDetail, error)
	CountAll(ctx context.Context, filter entity.ScreeningFilter) (int64, error)
	CountTickets(ctx context.Context, id int64) (int, error)
}

type screeningRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewScreeningRepository(db database.PgxIface, log *zap.Logger) ScreeningRepository {
	return &screeningRepository{
		db:  db,
		log: log.With(zap.String("repository", "screening")),
	}
}

const screeningDetailSelect = `
	SELECT s.id, s.room_id, s.movie_id, s.starts_at, s.ends_at, s.created_at, s.updated_at,
	       r.name, r.capacity, m.title,
	       (SELECT COUNT(*) FROM ticket_screenings ts WHERE ts.screening_id = s.id)
	FROM screenings s
	JOIN rooms r ON r.id = s.room_id
	JOIN movies m ON m.id = s.movie_id
`

func (r *screeningRepository) Create(ctx context.Context, screening *entity.Screening) error {
	query := `
		INSERT INTO screenings (room_id, movie_id, starts_at, ends_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		screening.RoomID,
		screening.MovieID,
		screening.StartsAt,
		screening.EndsAt,
	).Scan(&screening.ID, &screening.CreatedAt, &screening.UpdatedAt)

	if err != nil {
		r.log.Error("Failed to create screening",
			zap.Error(err),
			zap.String("room_id", screening.RoomID.String()),
			zap.Int64("movie_id", screening.MovieID),
			zap.Time("starts_at", screening.StartsAt),
		)
		return fmt.Errorf("create screening in room %s: %w", screening.RoomID.String(),
			asConflict(err, "screening overlaps another one in this room"))
	}

	return nil
}

func (r *screeningRepository) FindByID(ctx context.Context, id int64) (*entity.Screening, error) {
	query := `
		SELECT id, room_id, movie_id, starts_at, ends_at, created_at, updated_at
		FROM screenings
		WHERE id = $1
	`

	var s entity.Screening
	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.RoomID,
		&s.MovieID,
		&s.StartsAt,
		&s.EndsAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find screening by ID",
			zap.Error(err),
			zap.Int64("screening_id", id),
		)
		return nil, fmt.Errorf("find screening by ID %d: %w", id, err)
	}

	return &s, nil
}

func (r *screeningRepository) FindDetailByID(ctx context.Context, id int64) (*entity.ScreeningDetail, error) {
	query := screeningDetailSelect + ` WHERE s.id = $1`

	detail, err := scanScreeningDetail(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find screening detail",
			zap.Error(err),
			zap.Int64("screening_id", id),
		)
		return nil, fmt.Errorf("find screening detail %d: %w", id, err)
	}

	return detail, nil
}

func (r *screeningRepository) FindByRoomOverlapping(ctx context.Context, roomID uuid.UUID, startsAt, endsAt time.Time, excludeID int64) ([]*entity.Screening, error) {
	query := `
		SELECT id, room_id, movie_id, starts_at, ends_at, created_at, updated_at
		FROM screenings
		WHERE room_id = $1
		  AND NOT (ends_at <= $2 OR starts_at >= $3)
		  AND id <> $4
		ORDER BY starts_at
	`

	rows, err := r.db.Query(ctx, query, roomID, startsAt, endsAt, excludeID)
	if err != nil {
		r.log.Error("Failed to find overlapping screenings",
			zap.Error(err),
			zap.String("room_id", roomID.String()),
			zap.Time("starts_at", startsAt),
			zap.Time("ends_at", endsAt),
		)
		return nil, fmt.Errorf("find overlapping screenings in room %s: %w", roomID.String(), err)
	}
	defer rows.Close()

	var screenings []*entity.Screening
	for rows.Next() {
		var s entity.Screening
		if err := rows.Scan(
			&s.ID,
			&s.RoomID,
			&s.MovieID,
			&s.StartsAt,
			&s.EndsAt,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			r.log.Error("Failed to scan screening row", zap.Error(err))
			return nil, fmt.Errorf("scan screening row: %w", err)
		}
		screenings = append(screenings, &s)
	}

	return screenings, rows.Err()
}

func (r *screeningRepository) Update(ctx context.Context, screening *entity.Screening) error {
	query := `
		UPDATE screenings
		SET room_id = $2, movie_id = $3, starts_at = $4, ends_at = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query,
		screening.ID,
		screening.RoomID,
		screening.MovieID,
		screening.StartsAt,
		screening.EndsAt,
	).Scan(&screening.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("screening %d: %w", screening.ID, utils.ErrNotFound)
	}
	if err != nil {
		r.log.Error("Failed to update screening",
			zap.Error(err),
			zap.Int64("screening_id", screening.ID),
		)
		return fmt.Errorf("update screening %d: %w", screening.ID,
			asConflict(err, "screening overlaps another one in this room"))
	}

	return nil
}

func (r *screeningRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM screenings WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to delete screening",
			zap.Error(err),
			zap.Int64("screening_id", id),
		)
		return fmt.Errorf("delete screening %d: %w", id, asConflict(err, "screening still has tickets"))
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("screening %d: %w", id, utils.ErrNotFound)
	}

	r.log.Info("Screening deleted", zap.Int64("screening_id", id))
	return nil
}

func (r *screeningRepository) FindAll(ctx context.Context, filter entity.ScreeningFilter, limit, offset int) ([]*entity.ScreeningDetail, error) {
	where, args := screeningWhere(filter)

	var queryBuilder strings.Builder
	queryBuilder.WriteString(screeningDetailSelect)
	queryBuilder.WriteString(where)
	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY s.starts_at, s.id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2))
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		r.log.Error("Failed to list screenings",
			zap.Error(err),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("list screenings: %w", err)
	}
	defer rows.Close()

	var screenings []*entity.ScreeningDetail
	for rows.Next() {
		detail, err := scanScreeningDetail(rows)
		if err != nil {
			r.log.Error("Failed to scan screening row", zap.Error(err))
			return nil, fmt.Errorf("scan screening row: %w", err)
		}
		screenings = append(screenings, detail)
	}

	return screenings, rows.Err()
}

func (r *screeningRepository) CountAll(ctx context.Context, filter entity.ScreeningFilter) (int64, error) {
	where, args := screeningWhere(filter)
	query := `SELECT COUNT(*) FROM screenings s JOIN rooms r ON r.id = s.room_id` + where

	var total int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		r.log.Error("Failed to count screenings", zap.Error(err))
		return 0, fmt.Errorf("count screenings: %w", err)
	}

	return total, nil
}

func (r *screeningRepository) CountTickets(ctx context.Context, id int64) (int, error) {
	query := `SELECT COUNT(*) FROM ticket_screenings WHERE screening_id = $1`

	var count int
	if err := r.db.QueryRow(ctx, query, id).Scan(&count); err != nil {
		r.log.Error("Failed to count screening tickets",
			zap.Error(err),
			zap.Int64("screening_id", id),
		)
		return 0, fmt.Errorf("count tickets of screening %d: %w", id, err)
	}

	return count, nil
}

func screeningWhere(filter entity.ScreeningFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.StartsAfter != nil {
		add("s.starts_at >= $%d", *filter.StartsAfter)
	}
	if filter.StartsBefore != nil {
		add("s.starts_at <= $%d", *filter.StartsBefore)
	}
	if filter.EndsAfter != nil {
		add("s.ends_at >= $%d", *filter.EndsAfter)
	}
	if filter.EndsBefore != nil {
		add("s.ends_at <= $%d", *filter.EndsBefore)
	}
	if filter.RoomID != nil {
		add("s.room_id = $%d", *filter.RoomID)
	}
	if filter.RoomName != nil {
		add("r.name = $%d", *filter.RoomName)
	}
	if filter.MovieID != nil {
		add("s.movie_id = $%d", *filter.MovieID)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanScreeningDetail(row pgx.Row) (*entity.ScreeningDetail, error) {
	var d entity.ScreeningDetail
	err := row.Scan(
		&d.ID,
		&d.RoomID,
		&d.MovieID,
		&d.StartsAt,
		&d.EndsAt,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.RoomName,
		&d.RoomCapacity,
		&d.MovieTitle,
		&d.AttachedCount,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
