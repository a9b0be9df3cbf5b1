package repository

import (
	"context"
	"errors"
	"fmt"

	"cinema-scheduler/internal/data/entity"
	"cinema-scheduler/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// RoomRepository is the room directory the scheduler reads from. Rooms
// are managed elsewhere, so only lookups are exposed here.
type RoomRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Room, error)
	FindByName(ctx context.Context, name string) (*entity.Room, error)
}

type roomRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewRoomRepository(db database.PgxIface, log *zap.Logger) RoomRepository {
	return &roomRepository{
		db:  db,
		log: log.With(zap.String("repository", "room")),
	}
}

const roomColumns = `id, name, type, capacity, maintenance, created_at, updated_at`

func (r *roomRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`

	room, err := scanRoom(r.db.QueryRow(ctx, query, id))
	if err != nil {
		r.log.Error("Failed to find room by ID",
			zap.Error(err),
			zap.String("room_id", id.String()),
		)
		return nil, fmt.Errorf("find room by ID %s: %w", id.String(), err)
	}

	return room, nil
}

func (r *roomRepository) FindByName(ctx context.Context, name string) (*entity.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE name = $1`

	room, err := scanRoom(r.db.QueryRow(ctx, query, name))
	if err != nil {
		r.log.Error("Failed to find room by name",
			zap.Error(err),
			zap.String("room_name", name),
		)
		return nil, fmt.Errorf("find room by name %s: %w", name, err)
	}

	return room, nil
}

// scanRoom returns (nil, nil) when no row matched.
func scanRoom(row pgx.Row) (*entity.Room, error) {
	var room entity.Room
	err := row.Scan(
		&room.ID,
		&room.Name,
		&room.Type,
		&room.Capacity,
		&room.Maintenance,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}
