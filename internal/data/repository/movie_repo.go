package repository

import (
	"context"
	"errors"
	"fmt"

	"cinema-scheduler/internal/data/entity"
	"cinema-scheduler/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// MovieRepository is the movie catalog lookup used for runtimes.
type MovieRepository interface {
	FindByID(ctx context.Context, id int64) (*entity.Movie, error)
}

type movieRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewMovieRepository(db database.PgxIface, log *zap.Logger) MovieRepository {
	return &movieRepository{
		db:  db,
		log: log.With(zap.String("repository", "movie")),
	}
}

func (r *movieRepository) FindByID(ctx context.Context, id int64) (*entity.Movie, error) {
	query := `
		SELECT id, title, director, genre, duration_ms, created_at, updated_at
		FROM movies
		WHERE id = $1
	`

	var movie entity.Movie
	err := r.db.QueryRow(ctx, query, id).Scan(
		&movie.ID,
		&movie.Title,
		&movie.Director,
		&movie.Genre,
		&movie.DurationMs,
		&movie.CreatedAt,
		&movie.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find movie by ID",
			zap.Error(err),
			zap.Int64("movie_id", id),
		)
		return nil, fmt.Errorf("find movie %d: %w", id, err)
	}

	return &movie, nil
}
