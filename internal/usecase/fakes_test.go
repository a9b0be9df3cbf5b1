package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"cinema-scheduler/internal/data/entity"
	"cinema-scheduler/internal/data/repository"
	"cinema-scheduler/pkg/events"
	"cinema-scheduler/pkg/lock"
	"cinema-scheduler/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// memStore backs every repository interface with maps so services can be
// exercised without Postgres. Returned entities are copies.
type memStore struct {
	mu          sync.Mutex
	nextID      int64
	rooms       map[uuid.UUID]*entity.Room
	movies      map[int64]*entity.Movie
	screenings  map[int64]*entity.Screening
	tickets     map[int64]*entity.Ticket
	attachments map[int64][]int64
	users       map[int64]*entity.User
	sessions    map[uuid.UUID]*entity.Session
	writes      int
}

func newMemStore() *memStore {
	return &memStore{
		rooms:       make(map[uuid.UUID]*entity.Room),
		movies:      make(map[int64]*entity.Movie),
		screenings:  make(map[int64]*entity.Screening),
		tickets:     make(map[int64]*entity.Ticket),
		attachments: make(map[int64][]int64),
		users:       make(map[int64]*entity.User),
		sessions:    make(map[uuid.UUID]*entity.Session),
	}
}

func (m *memStore) repository() *repository.Repository {
	return &repository.Repository{
		User:      userFake{m},
		Session:   sessionFake{m},
		Room:      roomFake{m},
		Movie:     movieFake{m},
		Screening: screeningFake{m},
		Ticket:    ticketFake{m},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addRoom(name string, capacity int, maintenance bool) *entity.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	room := &entity.Room{ID: uuid.New(), Name: name, Type: "2d", Capacity: capacity, Maintenance: maintenance}
	m.rooms[room.ID] = room
	return room
}

func (m *memStore) addMovie(title string, minutes int64) *entity.Movie {
	m.mu.Lock()
	defer m.mu.Unlock()
	movie := &entity.Movie{ID: m.id(), Title: title, DurationMs: minutes * 60_000}
	m.movies[movie.ID] = movie
	return movie
}

// addScreening seeds a screening directly, bypassing the scheduler.
func (m *memStore) addScreening(room *entity.Room, movie *entity.Movie, start time.Time) *entity.Screening {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &entity.Screening{
		ID:       m.id(),
		RoomID:   room.ID,
		MovieID:  movie.ID,
		StartsAt: start,
		EndsAt:   entity.EndsAtFor(start, movie.Duration()),
	}
	m.screenings[s.ID] = s
	return s
}

func (m *memStore) addTicket(userID int64, ticketType entity.TicketType) *entity.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &entity.Ticket{ID: m.id(), UserID: userID, Type: ticketType}
	m.tickets[t.ID] = t
	return t
}

func (m *memStore) attach(ticketID, screeningID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[ticketID].ScreeningIDs = append(m.tickets[ticketID].ScreeningIDs, screeningID)
	m.attachments[screeningID] = append(m.attachments[screeningID], ticketID)
}

func (m *memStore) screening(id int64) *entity.Screening {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.screenings[id]
	if !ok {
		return nil
	}
	c := *s
	return &c
}

func (m *memStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func copyTicket(t *entity.Ticket) *entity.Ticket {
	c := *t
	c.ScreeningIDs = append([]int64{}, t.ScreeningIDs...)
	return &c
}

// ---------- rooms, movies ----------

type roomFake struct{ m *memStore }

func (f roomFake) FindByID(_ context.Context, id uuid.UUID) (*entity.Room, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if r, ok := f.m.rooms[id]; ok {
		c := *r
		return &c, nil
	}
	return nil, nil
}

func (f roomFake) FindByName(_ context.Context, name string) (*entity.Room, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, r := range f.m.rooms {
		if r.Name == name {
			c := *r
			return &c, nil
		}
	}
	return nil, nil
}

type movieFake struct{ m *memStore }

func (f movieFake) FindByID(_ context.Context, id int64) (*entity.Movie, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if mv, ok := f.m.movies[id]; ok {
		c := *mv
		return &c, nil
	}
	return nil, nil
}

// ---------- screenings ----------

type screeningFake struct{ m *memStore }

func (f screeningFake) Create(_ context.Context, s *entity.Screening) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	s.ID = f.m.id()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	c := *s
	f.m.screenings[s.ID] = &c
	f.m.writes++
	return nil
}

func (f screeningFake) FindByID(_ context.Context, id int64) (*entity.Screening, error) {
	return f.m.screening(id), nil
}

func (f screeningFake) FindDetailByID(_ context.Context, id int64) (*entity.ScreeningDetail, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	s, ok := f.m.screenings[id]
	if !ok {
		return nil, nil
	}
	return f.detail(s), nil
}

func (f screeningFake) detail(s *entity.Screening) *entity.ScreeningDetail {
	room := f.m.rooms[s.RoomID]
	movie := f.m.movies[s.MovieID]
	return &entity.ScreeningDetail{
		Screening:     *s,
		RoomName:      room.Name,
		RoomCapacity:  room.Capacity,
		MovieTitle:    movie.Title,
		AttachedCount: len(f.m.attachments[s.ID]),
	}
}

func (f screeningFake) Update(_ context.Context, s *entity.Screening) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if _, ok := f.m.screenings[s.ID]; !ok {
		return fmt.Errorf("screening %d: %w", s.ID, utils.ErrNotFound)
	}
	s.UpdatedAt = time.Now()
	c := *s
	f.m.screenings[s.ID] = &c
	f.m.writes++
	return nil
}

func (f screeningFake) Delete(_ context.Context, id int64) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if _, ok := f.m.screenings[id]; !ok {
		return fmt.Errorf("screening %d: %w", id, utils.ErrNotFound)
	}
	delete(f.m.screenings, id)
	f.m.writes++
	return nil
}

func (f screeningFake) FindByRoomOverlapping(_ context.Context, roomID uuid.UUID, startsAt, endsAt time.Time, excludeID int64) ([]*entity.Screening, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var out []*entity.Screening
	for _, s := range f.m.screenings {
		if s.RoomID == roomID && s.ID != excludeID && entity.Overlaps(s.StartsAt, s.EndsAt, startsAt, endsAt) {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f screeningFake) matching(filter entity.ScreeningFilter) []*entity.ScreeningDetail {
	var out []*entity.ScreeningDetail
	for _, s := range f.m.screenings {
		d := f.detail(s)
		switch {
		case filter.StartsAfter != nil && s.StartsAt.Before(*filter.StartsAfter),
			filter.StartsBefore != nil && s.StartsAt.After(*filter.StartsBefore),
			filter.EndsAfter != nil && s.EndsAt.Before(*filter.EndsAfter),
			filter.EndsBefore != nil && s.EndsAt.After(*filter.EndsBefore),
			filter.RoomID != nil && s.RoomID != *filter.RoomID,
			filter.RoomName != nil && d.RoomName != *filter.RoomName,
			filter.MovieID != nil && s.MovieID != *filter.MovieID:
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out
}

func (f screeningFake) FindAll(_ context.Context, filter entity.ScreeningFilter, limit, offset int) ([]*entity.ScreeningDetail, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	all := f.matching(filter)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f screeningFake) CountAll(_ context.Context, filter entity.ScreeningFilter) (int64, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	return int64(len(f.matching(filter))), nil
}

func (f screeningFake) CountTickets(_ context.Context, id int64) (int, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	return len(f.m.attachments[id]), nil
}

// ---------- tickets ----------

type ticketFake struct{ m *memStore }

func (f ticketFake) Create(_ context.Context, t *entity.Ticket) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	t.ID = f.m.id()
	t.ScreeningIDs = []int64{}
	f.m.tickets[t.ID] = copyTicket(t)
	f.m.writes++
	return nil
}

func (f ticketFake) FindByID(_ context.Context, id int64) (*entity.Ticket, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if t, ok := f.m.tickets[id]; ok {
		return copyTicket(t), nil
	}
	return nil, nil
}

func (f ticketFake) matching(filter entity.TicketFilter) []*entity.Ticket {
	var out []*entity.Ticket
	for _, t := range f.m.tickets {
		switch {
		case filter.UserID != nil && t.UserID != *filter.UserID,
			filter.Type != nil && t.Type != *filter.Type,
			filter.ScreeningID != nil && !t.HasScreening(*filter.ScreeningID),
			filter.Used != nil && (t.Uses() > 0) != *filter.Used:
			continue
		}
		out = append(out, copyTicket(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f ticketFake) FindAll(_ context.Context, filter entity.TicketFilter, limit, offset int) ([]*entity.Ticket, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	all := f.matching(filter)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f ticketFake) CountAll(_ context.Context, filter entity.TicketFilter) (int64, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	return int64(len(f.matching(filter))), nil
}

func (f ticketFake) UpdateType(_ context.Context, t *entity.Ticket) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	stored, ok := f.m.tickets[t.ID]
	if !ok {
		return fmt.Errorf("ticket %d: %w", t.ID, utils.ErrNotFound)
	}
	stored.Type = t.Type
	f.m.writes++
	return nil
}

func (f ticketFake) Delete(_ context.Context, id int64) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	t, ok := f.m.tickets[id]
	if !ok {
		return fmt.Errorf("ticket %d: %w", id, utils.ErrNotFound)
	}
	for _, screeningID := range t.ScreeningIDs {
		kept := f.m.attachments[screeningID][:0]
		for _, ticketID := range f.m.attachments[screeningID] {
			if ticketID != id {
				kept = append(kept, ticketID)
			}
		}
		f.m.attachments[screeningID] = kept
	}
	delete(f.m.tickets, id)
	f.m.writes++
	return nil
}

func (f ticketFake) Attach(_ context.Context, ticketID, screeningID int64, capacity, maxUses int) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	t, ok := f.m.tickets[ticketID]
	if !ok {
		return fmt.Errorf("ticket %d: %w", ticketID, utils.ErrNotFound)
	}
	if _, ok := f.m.screenings[screeningID]; !ok {
		return fmt.Errorf("screening %d: %w", screeningID, utils.ErrNotFound)
	}
	if len(f.m.attachments[screeningID]) >= capacity {
		return fmt.Errorf("screening %d is full: %w", screeningID, utils.ErrConflict)
	}
	if t.Uses() >= maxUses {
		return fmt.Errorf("ticket %d already used: %w", ticketID, utils.ErrConflict)
	}
	if t.HasScreening(screeningID) {
		return fmt.Errorf("already attached: %w", utils.ErrConflict)
	}
	t.ScreeningIDs = append(t.ScreeningIDs, screeningID)
	f.m.attachments[screeningID] = append(f.m.attachments[screeningID], ticketID)
	f.m.writes++
	return nil
}

// ---------- users, sessions ----------

type userFake struct{ m *memStore }

func (f userFake) FindByID(_ context.Context, id int64) (*entity.User, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if u, ok := f.m.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (f userFake) FindByUsername(_ context.Context, username string) (*entity.User, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, u := range f.m.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

type sessionFake struct{ m *memStore }

func (f sessionFake) Create(_ context.Context, s *entity.Session) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	c := *s
	f.m.sessions[s.Token] = &c
	return nil
}

func (f sessionFake) FindValidSession(_ context.Context, token uuid.UUID) (*entity.SessionWithRole, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	s, ok := f.m.sessions[token]
	if !ok || s.RevokedAt != nil || !s.ExpiresAt.After(time.Now()) {
		return nil, nil
	}
	u := f.m.users[s.UserID]
	return &entity.SessionWithRole{Session: *s, Role: u.Role}, nil
}

func (f sessionFake) Revoke(_ context.Context, token uuid.UUID) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	s, ok := f.m.sessions[token]
	if !ok || s.RevokedAt != nil {
		return fmt.Errorf("session: %w", utils.ErrNotFound)
	}
	now := time.Now()
	s.RevokedAt = &now
	return nil
}

func (f sessionFake) CleanExpiredSessions(context.Context) error { return nil }

// ---------- events ----------

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// ---------- fixtures ----------

type fixture struct {
	store     *memStore
	publisher *recordingPublisher
	screening ScreeningService
	ticket    TicketService
	auth      AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	publisher := &recordingPublisher{}
	repo := store.repository()
	locker := lock.NewLocalLocker()
	log := zap.NewNop()

	return &fixture{
		store:     store,
		publisher: publisher,
		screening: NewScreeningService(repo, locker, publisher, time.UTC, log),
		ticket:    NewTicketService(repo, locker, publisher, log),
		auth:      NewAuthService(repo, &utils.Config{Session: utils.SessionConfig{ExpiryHours: 1}}, log),
	}
}

// at returns 2025-05-12 hh:mm UTC.
func at(hhmm string) time.Time {
	t, err := time.Parse("2006-01-02T15:04Z07:00", "2025-05-12T"+hhmm+"Z")
	if err != nil {
		panic(err)
	}
	return t
}

func stamp(hhmm string) string {
	return at(hhmm).Format(utils.TimestampLayout)
}

func strPtr(s string) *string { return &s }

func int64Ptr(i int64) *int64 { return &i }
