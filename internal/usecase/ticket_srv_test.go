package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cinema-scheduler/internal/data/entity"
	"cinema-scheduler/internal/dto/request"
	"cinema-scheduler/pkg/events"
	"cinema-scheduler/pkg/lock"
	"cinema-scheduler/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const customer int64 = 7

func TestCanAttach(t *testing.T) {
	open := &entity.ScreeningDetail{Screening: entity.Screening{ID: 1}, RoomCapacity: 10, AttachedCount: 3}
	full := &entity.ScreeningDetail{Screening: entity.Screening{ID: 2}, RoomCapacity: 3, AttachedCount: 3}

	tests := []struct {
		name      string
		screening *entity.ScreeningDetail
		ticket    *entity.Ticket
		wantErr   bool
	}{
		{"unused classic", open, &entity.Ticket{Type: entity.TicketClassic}, false},
		{"used classic", open, &entity.Ticket{Type: entity.TicketClassic, ScreeningIDs: []int64{9}}, true},
		{"super with nine uses", open, &entity.Ticket{Type: entity.TicketSuper, ScreeningIDs: seq(9, 100)}, false},
		{"super with ten uses", open, &entity.Ticket{Type: entity.TicketSuper, ScreeningIDs: seq(10, 100)}, true},
		{"already attached here", open, &entity.Ticket{Type: entity.TicketSuper, ScreeningIDs: []int64{1}}, true},
		{"full screening", full, &entity.Ticket{Type: entity.TicketSuper}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanAttach(tt.screening, tt.ticket)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, utils.ErrConflict)
		})
	}
}

func seq(n int, from int64) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = from + int64(i)
	}
	return out
}

// schedule seeds n screenings across distinct slots in one room.
func schedule(f *fixture, n, capacity int) []*entity.Screening {
	room := f.store.addRoom(fmt.Sprintf("Room-%d", f.store.nextID), capacity, false)
	movie := f.store.addMovie("Feature", 30)
	out := make([]*entity.Screening, n)
	for i := range out {
		out[i] = f.store.addScreening(room, movie, at("09:00").Add(time.Duration(i)*time.Hour))
	}
	return out
}

func TestAttachTicket_ClassicIsSingleUse(t *testing.T) {
	f := newFixture(t)
	screenings := schedule(f, 2, 100)
	ticket := f.store.addTicket(customer, entity.TicketClassic)
	ctx := context.Background()

	resp, err := f.ticket.AttachTicket(ctx, customer, screenings[0].ID, &request.AttachTicketRequest{TicketID: ticket.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{screenings[0].ID}, resp.ScreeningIDs)
	assert.Zero(t, resp.RemainingUses)

	_, err = f.ticket.AttachTicket(ctx, customer, screenings[1].ID, &request.AttachTicketRequest{TicketID: ticket.ID})
	assert.ErrorIs(t, err, utils.ErrConflict)
	assert.Contains(t, f.publisher.types(), events.TicketAttached)
}

func TestAttachTicket_SuperAllowsTen(t *testing.T) {
	f := newFixture(t)
	screenings := schedule(f, 11, 100)
	ticket := f.store.addTicket(customer, entity.TicketSuper)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := f.ticket.AttachTicket(ctx, customer, screenings[i].ID, &request.AttachTicketRequest{TicketID: ticket.ID})
		require.NoError(t, err, "attach #%d", i+1)
	}

	_, err := f.ticket.AttachTicket(ctx, customer, screenings[10].ID, &request.AttachTicketRequest{TicketID: ticket.ID})
	assert.ErrorIs(t, err, utils.ErrConflict)
}

func TestAttachTicket_SameScreeningTwice(t *testing.T) {
	f := newFixture(t)
	screenings := schedule(f, 1, 100)
	ticket := f.store.addTicket(customer, entity.TicketSuper)
	ctx := context.Background()

	_, err := f.ticket.AttachTicket(ctx, customer, screenings[0].ID, &request.AttachTicketRequest{TicketID: ticket.ID})
	require.NoError(t, err)

	_, err = f.ticket.AttachTicket(ctx, customer, screenings[0].ID, &request.AttachTicketRequest{TicketID: ticket.ID})
	assert.ErrorIs(t, err, utils.ErrConflict)
}

func TestAttachTicket_FullScreening(t *testing.T) {
	f := newFixture(t)
	screenings := schedule(f, 1, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ticket := f.store.addTicket(customer, entity.TicketClassic)
		_, err := f.ticket.AttachTicket(ctx, customer, screenings[0].ID, &request.AttachTicketRequest{TicketID: ticket.ID})
		require.NoError(t, err)
	}

	late := f.store.addTicket(customer, entity.TicketSuper)
	_, err := f.ticket.AttachTicket(ctx, customer, screenings[0].ID, &request.AttachTicketRequest{TicketID: late.ID})
	assert.ErrorIs(t, err, utils.ErrConflict)

	capacity, err := f.ticket.IsFull(ctx, screenings[0].ID)
	require.NoError(t, err)
	assert.True(t, capacity.IsFull)
	assert.Equal(t, 2, capacity.Attached)
}

func TestAttachTicket_ConcurrentBuyersRespectCapacity(t *testing.T) {
	f := newFixture(t)
	screenings := schedule(f, 1, 3)

	const buyers = 12
	tickets := make([]*entity.Ticket, buyers)
	for i := range tickets {
		tickets[i] = f.store.addTicket(customer, entity.TicketClassic)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		attached int
	)
	for _, ticket := range tickets {
		wg.Add(1)
		go func(ticketID int64) {
			defer wg.Done()
			_, err := f.ticket.AttachTicket(context.Background(), customer, screenings[0].ID,
				&request.AttachTicketRequest{TicketID: ticketID})
			if err == nil {
				mu.Lock()
				attached++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, utils.ErrConflict)
		}(ticket.ID)
	}
	wg.Wait()

	assert.Equal(t, 3, attached)
	capacity, err := f.ticket.IsFull(context.Background(), screenings[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 3, capacity.Attached)
}

func TestAttachTicket_NotFound(t *testing.T) {
	f := newFixture(t)
	screenings := schedule(f, 1, 10)
	foreign := f.store.addTicket(customer+1, entity.TicketSuper)
	ctx := context.Background()

	_, err := f.ticket.AttachTicket(ctx, customer, 999, &request.AttachTicketRequest{TicketID: foreign.ID})
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = f.ticket.AttachTicket(ctx, customer, screenings[0].ID, &request.AttachTicketRequest{TicketID: foreign.ID})
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = f.ticket.AttachTicket(ctx, customer, screenings[0].ID, &request.AttachTicketRequest{})
	assert.ErrorIs(t, err, utils.ErrInvalidRequest)
}

func TestChangeTicketType(t *testing.T) {
	f := newFixture(t)
	screenings := schedule(f, 2, 10)
	ctx := context.Background()

	twice := f.store.addTicket(customer, entity.TicketSuper)
	f.store.attach(twice.ID, screenings[0].ID)
	f.store.attach(twice.ID, screenings[1].ID)

	_, err := f.ticket.ChangeTicketType(ctx, customer, twice.ID, &request.ChangeTicketTypeRequest{Type: "classic"})
	assert.ErrorIs(t, err, utils.ErrConflict)

	once := f.store.addTicket(customer, entity.TicketSuper)
	f.store.attach(once.ID, screenings[0].ID)

	resp, err := f.ticket.ChangeTicketType(ctx, customer, once.ID, &request.ChangeTicketTypeRequest{Type: "classic"})
	require.NoError(t, err)
	assert.Equal(t, entity.TicketClassic, resp.Type)

	resp, err = f.ticket.ChangeTicketType(ctx, customer, once.ID, &request.ChangeTicketTypeRequest{Type: "super"})
	require.NoError(t, err)
	assert.Equal(t, entity.TicketSuper, resp.Type)
	assert.Equal(t, 9, resp.RemainingUses)

	_, err = f.ticket.ChangeTicketType(ctx, customer, once.ID, &request.ChangeTicketTypeRequest{Type: "gold"})
	assert.ErrorIs(t, err, utils.ErrInvalidRequest)

	_, err = f.ticket.ChangeTicketType(ctx, customer+1, once.ID, &request.ChangeTicketTypeRequest{Type: "classic"})
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestCreateAndListTickets(t *testing.T) {
	f := newFixture(t)
	screenings := schedule(f, 1, 10)
	ctx := context.Background()

	classic, err := f.ticket.CreateTicket(ctx, customer, &request.CreateTicketRequest{Type: "classic"})
	require.NoError(t, err)
	assert.Empty(t, classic.ScreeningIDs)
	assert.Equal(t, 1, classic.RemainingUses)

	_, err = f.ticket.CreateTicket(ctx, customer, &request.CreateTicketRequest{Type: "super"})
	require.NoError(t, err)
	f.store.addTicket(customer+1, entity.TicketSuper)

	_, err = f.ticket.CreateTicket(ctx, customer, &request.CreateTicketRequest{Type: "vip"})
	assert.ErrorIs(t, err, utils.ErrInvalidRequest)

	_, err = f.ticket.AttachTicket(ctx, customer, screenings[0].ID, &request.AttachTicketRequest{TicketID: classic.ID})
	require.NoError(t, err)

	page := request.PaginatedRequest{Page: 1, PerPage: 10}

	all, err := f.ticket.ListTickets(ctx, customer, &request.ListTicketsQuery{PaginatedRequest: page})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Pagination.Total)

	used, err := f.ticket.ListTickets(ctx, customer, &request.ListTicketsQuery{PaginatedRequest: page, Used: "true"})
	require.NoError(t, err)
	require.Len(t, used.Data, 1)
	assert.Equal(t, classic.ID, used.Data[0].ID)

	supers, err := f.ticket.ListTickets(ctx, customer, &request.ListTicketsQuery{PaginatedRequest: page, Type: "super"})
	require.NoError(t, err)
	assert.Len(t, supers.Data, 1)

	got, err := f.ticket.GetTicket(ctx, customer, classic.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{screenings[0].ID}, got.ScreeningIDs)

	_, err = f.ticket.GetTicket(ctx, customer+1, classic.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestDeleteTicket_FreesCapacity(t *testing.T) {
	f := newFixture(t)
	screenings := schedule(f, 2, 1)
	holder := f.store.addTicket(customer, entity.TicketSuper)
	waiting := f.store.addTicket(customer, entity.TicketClassic)
	ctx := context.Background()

	for _, s := range screenings {
		_, err := f.ticket.AttachTicket(ctx, customer, s.ID, &request.AttachTicketRequest{TicketID: holder.ID})
		require.NoError(t, err)
	}
	_, err := f.ticket.AttachTicket(ctx, customer, screenings[0].ID, &request.AttachTicketRequest{TicketID: waiting.ID})
	require.ErrorIs(t, err, utils.ErrConflict)

	require.NoError(t, f.ticket.DeleteTicket(ctx, customer, holder.ID))

	for _, s := range screenings {
		capacity, err := f.ticket.IsFull(ctx, s.ID)
		require.NoError(t, err)
		assert.False(t, capacity.IsFull)
		assert.Zero(t, capacity.Attached)
	}

	_, err = f.ticket.AttachTicket(ctx, customer, screenings[0].ID, &request.AttachTicketRequest{TicketID: waiting.ID})
	assert.NoError(t, err)

	_, err = f.ticket.GetTicket(ctx, customer, holder.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
	assert.Contains(t, f.publisher.types(), events.TicketDeleted)
}

func TestDeleteTicket_NotFound(t *testing.T) {
	f := newFixture(t)
	ticket := f.store.addTicket(customer, entity.TicketClassic)
	ctx := context.Background()

	err := f.ticket.DeleteTicket(ctx, customer+1, ticket.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound, "another user's ticket")

	err = f.ticket.DeleteTicket(ctx, customer, 9999)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = f.ticket.GetTicket(ctx, customer, ticket.ID)
	assert.NoError(t, err, "ticket must survive a refused delete")
}

type brokenLocker struct{ err error }

func (l brokenLocker) Lock(context.Context, string) (lock.Unlock, error) { return nil, l.err }

func TestTicketService_LockFailures(t *testing.T) {
	tests := []struct {
		name         string
		lockErr      error
		wantConflict bool
	}{
		{"contention is a conflict", fmt.Errorf("%w: %v", lock.ErrNotAcquired, context.DeadlineExceeded), true},
		{"backend outage is internal", errors.New("dial tcp 127.0.0.1:6379: connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			screenings := schedule(f, 1, 10)
			ticket := f.store.addTicket(customer, entity.TicketClassic)
			svc := NewTicketService(f.store.repository(), brokenLocker{err: tt.lockErr}, nil, zap.NewNop())
			ctx := context.Background()

			_, err := svc.AttachTicket(ctx, customer, screenings[0].ID, &request.AttachTicketRequest{TicketID: ticket.ID})
			require.Error(t, err)
			assert.Equal(t, tt.wantConflict, errors.Is(err, utils.ErrConflict))

			_, err = svc.ChangeTicketType(ctx, customer, ticket.ID, &request.ChangeTicketTypeRequest{Type: "super"})
			require.Error(t, err)
			assert.Equal(t, tt.wantConflict, errors.Is(err, utils.ErrConflict))

			err = svc.DeleteTicket(ctx, customer, ticket.ID)
			require.Error(t, err)
			assert.Equal(t, tt.wantConflict, errors.Is(err, utils.ErrConflict))
		})
	}
}
