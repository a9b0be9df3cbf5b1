package entity

import (
	"time"

	"github.com/google/uuid"
)

// CleaningBuffer is appended to every movie runtime before the room is
// free again.
const CleaningBuffer = 30 * time.Minute

// Operating window, compared on the wall-clock hour only: a screening may
// start from 09:00 and must end before 21:00.
const (
	OpeningHour = 9
	ClosingHour = 20
)

type Screening struct {
	Timestamps
	ID       int64     `db:"id"`
	RoomID   uuid.UUID `db:"room_id"`
	MovieID  int64     `db:"movie_id"`
	StartsAt time.Time `db:"starts_at"`
	EndsAt   time.Time `db:"ends_at"`
}

// EndsAtFor returns the end of a screening of the given runtime.
func EndsAtFor(startsAt time.Time, runtime time.Duration) time.Time {
	return startsAt.Add(runtime + CleaningBuffer)
}

// Overlaps reports whether two half-open windows share an instant.
// Touching windows (e1 == s2) do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

func (s *Screening) Overlaps(other *Screening) bool {
	return Overlaps(s.StartsAt, s.EndsAt, other.StartsAt, other.EndsAt)
}

// WithinOperatingHours checks the start and end hours in loc.
func WithinOperatingHours(startsAt, endsAt time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	return startsAt.In(loc).Hour() >= OpeningHour && endsAt.In(loc).Hour() <= ClosingHour
}

// ScreeningDetail is a screening joined with its room and movie plus the
// number of attached tickets.
type ScreeningDetail struct {
	Screening
	RoomName      string `db:"room_name"`
	RoomCapacity  int    `db:"room_capacity"`
	MovieTitle    string `db:"movie_title"`
	AttachedCount int    `db:"attached_count"`
}

func (d *ScreeningDetail) IsFull() bool {
	return d.AttachedCount >= d.RoomCapacity
}

// ScreeningFilter narrows ListScreenings; nil fields are ignored.
type ScreeningFilter struct {
	StartsAfter  *time.Time
	StartsBefore *time.Time
	EndsAfter    *time.Time
	EndsBefore   *time.Time
	RoomID       *uuid.UUID
	RoomName     *string
	MovieID      *int64
}
