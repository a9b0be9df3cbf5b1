package response

import (
	"time"

	"cinema-scheduler/internal/data/entity"
)

type TicketResponse struct {
	ID            int64             `json:"id"`
	UserID        int64             `json:"userId"`
	Type          entity.TicketType `json:"type"`
	ScreeningIDs  []int64           `json:"screeningIds"`
	RemainingUses int               `json:"remainingUses"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

func TicketToResponse(t *entity.Ticket) TicketResponse {
	ids := t.ScreeningIDs
	if ids == nil {
		ids = []int64{}
	}

	remaining := t.Type.MaxScreenings() - t.Uses()
	if remaining < 0 {
		remaining = 0
	}

	return TicketResponse{
		ID:            t.ID,
		UserID:        t.UserID,
		Type:          t.Type,
		ScreeningIDs:  ids,
		RemainingUses: remaining,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}
