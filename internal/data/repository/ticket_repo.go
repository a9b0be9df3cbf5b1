package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cinema-scheduler/internal/data/entity"
	"cinema-scheduler/pkg/database"
	"cinema-scheduler/pkg/utils"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type TicketRepository interface {
	Create(ctx context.Context, ticket *entity.Ticket) error
	FindByID(ctx context.Context, id int64) (*entity.Ticket, error)
	FindAll(ctx context.Context, filter entity.TicketFilter, limit, offset int) ([]*entity.Ticket, error)
	CountAll(ctx context.Context, filter entity.TicketFilter) (int64, error)
	UpdateType(ctx context.Context, ticket *entity.Ticket) error

	// Delete removes the ticket; its attachments cascade.
	Delete(ctx context.Context, id int64) error

	// Attach links ticketID to screeningID in one transaction. Capacity
	// and maxUses are re-checked against row-locked counts so the
	// attachment never exceeds either.
	Attach(ctx context.Context, ticketID, screeningID int64, capacity, maxUses int) error
}

type ticketRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewTicketRepository(db database.PgxIface, log *zap.Logger) TicketRepository {
	return &ticketRepository{
		db:  db,
		log: log.With(zap.String("repository", "ticket")),
	}
}

const ticketSelect = `
	SELECT t.id, t.user_id, t.type, t.created_at, t.updated_at,
	       COALESCE(array_agg(ts.screening_id ORDER BY ts.attached_at)
	                FILTER (WHERE ts.screening_id IS NOT NULL), '{}')
	FROM tickets t
	LEFT JOIN ticket_screenings ts ON ts.ticket_id = t.id
`

func (r *ticketRepository) Create(ctx context.Context, ticket *entity.Ticket) error {
	query := `
		INSERT INTO tickets (user_id, type, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query, ticket.UserID, ticket.Type).
		Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	if err != nil {
		r.log.Error("Failed to create ticket",
			zap.Error(err),
			zap.Int64("user_id", ticket.UserID),
			zap.String("type", string(ticket.Type)),
		)
		return fmt.Errorf("create ticket for user %d: %w", ticket.UserID, err)
	}

	ticket.ScreeningIDs = []int64{}
	return nil
}

func (r *ticketRepository) FindByID(ctx context.Context, id int64) (*entity.Ticket, error) {
	query := ticketSelect + ` WHERE t.id = $1 GROUP BY t.id`

	ticket, err := scanTicket(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find ticket by ID",
			zap.Error(err),
			zap.Int64("ticket_id", id),
		)
		return nil, fmt.Errorf("find ticket by ID %d: %w", id, err)
	}

	return ticket, nil
}

func (r *ticketRepository) FindAll(ctx context.Context, filter entity.TicketFilter, limit, offset int) ([]*entity.Ticket, error) {
	where, args := ticketWhere(filter)

	var queryBuilder strings.Builder
	queryBuilder.WriteString(ticketSelect)
	queryBuilder.WriteString(where)
	queryBuilder.WriteString(fmt.Sprintf(" GROUP BY t.id ORDER BY t.id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2))
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		r.log.Error("Failed to list tickets",
			zap.Error(err),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*entity.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			r.log.Error("Failed to scan ticket row", zap.Error(err))
			return nil, fmt.Errorf("scan ticket row: %w", err)
		}
		tickets = append(tickets, ticket)
	}

	return tickets, rows.Err()
}

func (r *ticketRepository) CountAll(ctx context.Context, filter entity.TicketFilter) (int64, error) {
	where, args := ticketWhere(filter)
	query := `SELECT COUNT(*) FROM tickets t` + where

	var total int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		r.log.Error("Failed to count tickets", zap.Error(err))
		return 0, fmt.Errorf("count tickets: %w", err)
	}

	return total, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM tickets WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to delete ticket",
			zap.Error(err),
			zap.Int64("ticket_id", id),
		)
		return fmt.Errorf("delete ticket %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("ticket %d: %w", id, utils.ErrNotFound)
	}

	r.log.Info("Ticket deleted", zap.Int64("ticket_id", id))
	return nil
}

func (r *ticketRepository) UpdateType(ctx context.Context, ticket *entity.Ticket) error {
	query := `
		UPDATE tickets
		SET type = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query, ticket.ID, ticket.Type).Scan(&ticket.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("ticket %d: %w", ticket.ID, utils.ErrNotFound)
	}
	if err != nil {
		r.log.Error("Failed to update ticket type",
			zap.Error(err),
			zap.Int64("ticket_id", ticket.ID),
		)
		return fmt.Errorf("update ticket %d: %w", ticket.ID, err)
	}

	return nil
}

func (r *ticketRepository) Attach(ctx context.Context, ticketID, screeningID int64, capacity, maxUses int) error {
	err := database.WithTx(ctx, r.db, func(q database.Querier) error {
		var lockedID int64
		err := q.QueryRow(ctx, `SELECT id FROM screenings WHERE id = $1 FOR UPDATE`, screeningID).Scan(&lockedID)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("screening %d: %w", screeningID, utils.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lock screening %d: %w", screeningID, err)
		}

		err = q.QueryRow(ctx, `SELECT id FROM tickets WHERE id = $1 FOR UPDATE`, ticketID).Scan(&lockedID)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("ticket %d: %w", ticketID, utils.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lock ticket %d: %w", ticketID, err)
		}

		var attached, uses int
		err = q.QueryRow(ctx, `
			SELECT
				(SELECT COUNT(*) FROM ticket_screenings WHERE screening_id = $1),
				(SELECT COUNT(*) FROM ticket_screenings WHERE ticket_id = $2)
		`, screeningID, ticketID).Scan(&attached, &uses)
		if err != nil {
			return fmt.Errorf("count attachments: %w", err)
		}
		if attached >= capacity {
			return fmt.Errorf("screening %d is full: %w", screeningID, utils.ErrConflict)
		}
		if uses >= maxUses {
			return fmt.Errorf("ticket %d already used: %w", ticketID, utils.ErrConflict)
		}

		result, err := q.Exec(ctx, `
			INSERT INTO ticket_screenings (ticket_id, screening_id, attached_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT DO NOTHING
		`, ticketID, screeningID)
		if err != nil {
			return fmt.Errorf("insert attachment: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("ticket %d already attached to screening %d: %w", ticketID, screeningID, utils.ErrConflict)
		}

		_, err = q.Exec(ctx, `UPDATE tickets SET updated_at = NOW() WHERE id = $1`, ticketID)
		return err
	})

	if err != nil {
		if !errors.Is(err, utils.ErrConflict) && !errors.Is(err, utils.ErrNotFound) {
			r.log.Error("Failed to attach ticket",
				zap.Error(err),
				zap.Int64("ticket_id", ticketID),
				zap.Int64("screening_id", screeningID),
			)
		}
		return err
	}

	return nil
}

func ticketWhere(filter entity.TicketFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.UserID != nil {
		add("t.user_id = $%d", *filter.UserID)
	}
	if filter.Type != nil {
		add("t.type = $%d", string(*filter.Type))
	}
	if filter.ScreeningID != nil {
		add("EXISTS (SELECT 1 FROM ticket_screenings x WHERE x.ticket_id = t.id AND x.screening_id = $%d)", *filter.ScreeningID)
	}
	if filter.Used != nil {
		if *filter.Used {
			conds = append(conds, "EXISTS (SELECT 1 FROM ticket_screenings x WHERE x.ticket_id = t.id)")
		} else {
			conds = append(conds, "NOT EXISTS (SELECT 1 FROM ticket_screenings x WHERE x.ticket_id = t.id)")
		}
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanTicket(row pgx.Row) (*entity.Ticket, error) {
	var t entity.Ticket
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Type,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.ScreeningIDs,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
