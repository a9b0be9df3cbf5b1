package entity

type TicketType string

const (
	TicketClassic TicketType = "classic"
	TicketSuper   TicketType = "super"
)

func (t TicketType) Valid() bool {
	return t == TicketClassic || t == TicketSuper
}

// MaxScreenings is how many screenings a ticket of this type can be used for.
func (t TicketType) MaxScreenings() int {
	switch t {
	case TicketSuper:
		return 10
	case TicketClassic:
		return 1
	default:
		return 0
	}
}

type Ticket struct {
	Timestamps
	ID           int64      `db:"id"`
	UserID       int64      `db:"user_id"`
	Type         TicketType `db:"type"`
	ScreeningIDs []int64    `db:"screening_ids"`
}

func (t *Ticket) Uses() int {
	return len(t.ScreeningIDs)
}

func (t *Ticket) HasScreening(screeningID int64) bool {
	for _, id := range t.ScreeningIDs {
		if id == screeningID {
			return true
		}
	}
	return false
}

type TicketFilter struct {
	UserID      *int64
	Type        *TicketType
	ScreeningID *int64
	Used        *bool
}
