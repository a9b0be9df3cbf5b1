package repository

import (
	"errors"
	"fmt"

	"cinema-scheduler/pkg/database"
	"cinema-scheduler/pkg/utils"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type Repository struct {
	User      UserRepository
	Session   SessionRepository
	Room      RoomRepository
	Movie     MovieRepository
	Screening ScreeningRepository
	Ticket    TicketRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		User:      NewUserRepository(db, log),
		Session:   NewSessionRepository(db, log),
		Room:      NewRoomRepository(db, log),
		Movie:     NewMovieRepository(db, log),
		Screening: NewScreeningRepository(db, log),
		Ticket:    NewTicketRepository(db, log),
	}
}

// Postgres SQLSTATE codes surfaced as conflicts.
const (
	pgUniqueViolation     = "23505"
	pgExclusionViolation  = "23P01"
	pgForeignKeyViolation = "23503"
)

// asConflict turns unique, exclusion and foreign key violations into
// utils.ErrConflict and leaves every other error untouched.
func asConflict(err error, what string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgExclusionViolation, pgForeignKeyViolation:
			return fmt.Errorf("%s (%s): %w", what, pgErr.ConstraintName, utils.ErrConflict)
		}
	}
	return err
}
