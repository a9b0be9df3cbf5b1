package usecase

import (
	"context"
	"fmt"
	"strconv"

	"cinema-scheduler/internal/data/entity"
	"cinema-scheduler/internal/data/repository"
	"cinema-scheduler/internal/dto/request"
	"cinema-scheduler/internal/dto/response"
	"cinema-scheduler/pkg/events"
	"cinema-scheduler/pkg/lock"
	"cinema-scheduler/pkg/utils"

	"go.uber.org/zap"
)

// TicketService is the capacity gate. It is the only writer of a ticket's
// attached screenings.
type TicketService interface {
	CreateTicket(ctx context.Context, userID int64, req *request.CreateTicketRequest) (*response.TicketResponse, error)
	GetTicket(ctx context.Context, userID, ticketID int64) (*response.TicketResponse, error)
	ListTickets(ctx context.Context, userID int64, query *request.ListTicketsQuery) (*response.PaginatedResponse[response.TicketResponse], error)
	AttachTicket(ctx context.Context, userID, screeningID int64, req *request.AttachTicketRequest) (*response.TicketResponse, error)
	IsFull(ctx context.Context, screeningID int64) (*response.CapacityResponse, error)
	ChangeTicketType(ctx context.Context, userID, ticketID int64, req *request.ChangeTicketTypeRequest) (*response.TicketResponse, error)
	DeleteTicket(ctx context.Context, userID, ticketID int64) error
}

type ticketService struct {
	repo      *repository.Repository
	locker    lock.Locker
	publisher events.Publisher
	log       *zap.Logger
}

func NewTicketService(
	repo *repository.Repository,
	locker lock.Locker,
	publisher events.Publisher,
	log *zap.Logger,
) TicketService {
	return &ticketService{
		repo:      repo,
		locker:    locker,
		publisher: publisher,
		log:       log.With(zap.String("service", "ticket")),
	}
}

// CanAttach reports, as a Conflict error, why ticket cannot be attached to
// screening. A nil result means the attachment is allowed.
func CanAttach(screening *entity.ScreeningDetail, ticket *entity.Ticket) error {
	if ticket.HasScreening(screening.ID) {
		return fmt.Errorf("ticket %d is already attached to screening %d: %w", ticket.ID, screening.ID, utils.ErrConflict)
	}
	if ticket.Uses() >= ticket.Type.MaxScreenings() {
		return fmt.Errorf("ticket already used (%s ticket allows %d screenings): %w",
			ticket.Type, ticket.Type.MaxScreenings(), utils.ErrConflict)
	}
	if screening.IsFull() {
		return fmt.Errorf("screening is full (%d/%d): %w", screening.AttachedCount, screening.RoomCapacity, utils.ErrConflict)
	}
	return nil
}

func (s *ticketService) CreateTicket(ctx context.Context, userID int64, req *request.CreateTicketRequest) (*response.TicketResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create ticket validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s: %w", utils.FormatValidationErrors(errs), utils.ErrInvalidRequest)
	}

	ticket := &entity.Ticket{
		UserID: userID,
		Type:   entity.TicketType(req.Type),
	}
	if err := s.repo.Ticket.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.log.Info("Ticket created",
		zap.Int64("ticket_id", ticket.ID),
		zap.Int64("user_id", userID),
		zap.String("type", string(ticket.Type)),
	)

	resp := response.TicketToResponse(ticket)
	s.publish(ctx, events.TicketCreated, ticket.ID, resp)
	return &resp, nil
}

func (s *ticketService) GetTicket(ctx context.Context, userID, ticketID int64) (*response.TicketResponse, error) {
	ticket, err := s.findOwnTicket(ctx, userID, ticketID)
	if err != nil {
		return nil, err
	}

	resp := response.TicketToResponse(ticket)
	return &resp, nil
}

func (s *ticketService) ListTickets(ctx context.Context, userID int64, query *request.ListTicketsQuery) (*response.PaginatedResponse[response.TicketResponse], error) {
	if errs := utils.ValidateStruct(query); len(errs) > 0 {
		s.log.Warn("List tickets validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s: %w", utils.FormatValidationErrors(errs), utils.ErrInvalidRequest)
	}

	filter := entity.TicketFilter{UserID: &userID}
	if query.Type != "" {
		ticketType := entity.TicketType(query.Type)
		filter.Type = &ticketType
	}
	if query.ScreeningID != "" {
		screeningID, err := utils.ParseID(query.ScreeningID)
		if err != nil {
			return nil, err
		}
		filter.ScreeningID = &screeningID
	}
	if query.Used != "" {
		used := query.Used == "true"
		filter.Used = &used
	}

	tickets, err := s.repo.Ticket.FindAll(ctx, filter, query.Limit(), query.Offset())
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}

	total, err := s.repo.Ticket.CountAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count tickets: %w", err)
	}

	data := make([]response.TicketResponse, len(tickets))
	for i, ticket := range tickets {
		data[i] = response.TicketToResponse(ticket)
	}

	return response.NewPaginatedResponse(data, query.Page, query.Limit(), total), nil
}

func (s *ticketService) AttachTicket(ctx context.Context, userID, screeningID int64, req *request.AttachTicketRequest) (*response.TicketResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Attach ticket validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s: %w", utils.FormatValidationErrors(errs), utils.ErrInvalidRequest)
	}

	var ticket *entity.Ticket
	err := withLocks(ctx, s.locker, func() error {
		screening, err := s.repo.Screening.FindDetailByID(ctx, screeningID)
		if err != nil {
			return fmt.Errorf("find screening: %w", err)
		}
		if screening == nil {
			return fmt.Errorf("screening %d: %w", screeningID, utils.ErrNotFound)
		}

		ticket, err = s.findOwnTicket(ctx, userID, req.TicketID)
		if err != nil {
			return err
		}

		if err := CanAttach(screening, ticket); err != nil {
			s.log.Warn("Ticket attach refused",
				zap.Error(err),
				zap.Int64("ticket_id", ticket.ID),
				zap.Int64("screening_id", screeningID),
			)
			return err
		}

		return s.repo.Ticket.Attach(ctx, ticket.ID, screeningID, screening.RoomCapacity, ticket.Type.MaxScreenings())
	}, lock.ScreeningKey(screeningID), lock.TicketKey(req.TicketID))
	if err != nil {
		return nil, err
	}
	ticket.ScreeningIDs = append(ticket.ScreeningIDs, screeningID)

	s.log.Info("Ticket attached",
		zap.Int64("ticket_id", ticket.ID),
		zap.Int64("screening_id", screeningID),
		zap.Int("uses", ticket.Uses()),
	)

	resp := response.TicketToResponse(ticket)
	s.publish(ctx, events.TicketAttached, ticket.ID, map[string]int64{
		"ticketId":    ticket.ID,
		"screeningId": screeningID,
	})
	return &resp, nil
}

func (s *ticketService) IsFull(ctx context.Context, screeningID int64) (*response.CapacityResponse, error) {
	screening, err := s.repo.Screening.FindDetailByID(ctx, screeningID)
	if err != nil {
		return nil, fmt.Errorf("find screening: %w", err)
	}
	if screening == nil {
		return nil, fmt.Errorf("screening %d: %w", screeningID, utils.ErrNotFound)
	}

	return &response.CapacityResponse{
		ScreeningID: screening.ID,
		Capacity:    screening.RoomCapacity,
		Attached:    screening.AttachedCount,
		IsFull:      screening.IsFull(),
	}, nil
}

func (s *ticketService) ChangeTicketType(ctx context.Context, userID, ticketID int64, req *request.ChangeTicketTypeRequest) (*response.TicketResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Change ticket type validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s: %w", utils.FormatValidationErrors(errs), utils.ErrInvalidRequest)
	}
	newType := entity.TicketType(req.Type)
	if !newType.Valid() {
		return nil, fmt.Errorf("unknown ticket type %q: %w", req.Type, utils.ErrInvalidRequest)
	}

	var (
		ticket   *entity.Ticket
		previous entity.TicketType
	)
	err := withLocks(ctx, s.locker, func() error {
		var err error
		ticket, err = s.findOwnTicket(ctx, userID, ticketID)
		if err != nil {
			return err
		}

		previous = ticket.Type
		if previous == newType {
			return nil
		}

		if previous == entity.TicketSuper && newType == entity.TicketClassic && ticket.Uses() > 1 {
			return fmt.Errorf("ticket %d is used for %d screenings and cannot become classic: %w",
				ticket.ID, ticket.Uses(), utils.ErrConflict)
		}

		ticket.Type = newType
		return s.repo.Ticket.UpdateType(ctx, ticket)
	}, lock.TicketKey(ticketID))
	if err != nil {
		return nil, err
	}

	if previous == newType {
		resp := response.TicketToResponse(ticket)
		return &resp, nil
	}

	s.log.Info("Ticket type changed",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(newType)),
	)

	resp := response.TicketToResponse(ticket)
	s.publish(ctx, events.TicketRetyped, ticket.ID, resp)
	return &resp, nil
}

// DeleteTicket removes a ticket and frees its seat in every screening it
// was attached to.
func (s *ticketService) DeleteTicket(ctx context.Context, userID, ticketID int64) error {
	ticket, err := s.findOwnTicket(ctx, userID, ticketID)
	if err != nil {
		return err
	}

	keys := []string{lock.TicketKey(ticketID)}
	locked := make(map[int64]bool, len(ticket.ScreeningIDs))
	for _, screeningID := range ticket.ScreeningIDs {
		keys = append(keys, lock.ScreeningKey(screeningID))
		locked[screeningID] = true
	}

	var freed []int64
	err = withLocks(ctx, s.locker, func() error {
		current, err := s.findOwnTicket(ctx, userID, ticketID)
		if err != nil {
			return err
		}
		for _, screeningID := range current.ScreeningIDs {
			if !locked[screeningID] {
				return fmt.Errorf("ticket %d was attached concurrently, retry: %w", ticketID, utils.ErrConflict)
			}
		}
		freed = current.ScreeningIDs

		return s.repo.Ticket.Delete(ctx, ticketID)
	}, keys...)
	if err != nil {
		return err
	}

	s.log.Info("Ticket deleted",
		zap.Int64("ticket_id", ticketID),
		zap.Int64("user_id", userID),
		zap.Int64s("freed_screenings", freed),
	)

	s.publish(ctx, events.TicketDeleted, ticketID, map[string]any{
		"ticketId":     ticketID,
		"screeningIds": freed,
	})
	return nil
}

// findOwnTicket hides other users' tickets behind NotFound.
func (s *ticketService) findOwnTicket(ctx context.Context, userID, ticketID int64) (*entity.Ticket, error) {
	ticket, err := s.repo.Ticket.FindByID(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("find ticket: %w", err)
	}
	if ticket == nil || ticket.UserID != userID {
		return nil, fmt.Errorf("ticket %d: %w", ticketID, utils.ErrNotFound)
	}
	return ticket, nil
}

func (s *ticketService) publish(ctx context.Context, eventType string, id int64, payload any) {
	publishEvent(ctx, s.publisher, s.log, events.NewEvent(eventType, strconv.FormatInt(id, 10), payload))
}
