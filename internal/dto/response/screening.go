package response

import (
	"time"

	"cinema-scheduler/internal/data/entity"
)

type ScreeningResponse struct {
	ID        int64     `json:"id"`
	StartsAt  time.Time `json:"startsAt"`
	EndsAt    time.Time `json:"endsAt"`
	RoomID    string    `json:"roomId"`
	MovieID   int64     `json:"movieId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ScreeningDetailResponse struct {
	ScreeningResponse
	RoomName        string `json:"roomName"`
	RoomCapacity    int    `json:"roomCapacity"`
	MovieTitle      string `json:"movieTitle"`
	AttachedTickets int    `json:"attachedTickets"`
	IsFull          bool   `json:"isFull"`
}

type CapacityResponse struct {
	ScreeningID int64 `json:"screeningId"`
	Capacity    int   `json:"capacity"`
	Attached    int   `json:"attached"`
	IsFull      bool  `json:"isFull"`
}

func ScreeningToResponse(s *entity.Screening) ScreeningResponse {
	return ScreeningResponse{
		ID:        s.ID,
		StartsAt:  s.StartsAt,
		EndsAt:    s.EndsAt,
		RoomID:    s.RoomID.String(),
		MovieID:   s.MovieID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func ScreeningDetailToResponse(d *entity.ScreeningDetail) ScreeningDetailResponse {
	return ScreeningDetailResponse{
		ScreeningResponse: ScreeningToResponse(&d.Screening),
		RoomName:          d.RoomName,
		RoomCapacity:      d.RoomCapacity,
		MovieTitle:        d.MovieTitle,
		AttachedTickets:   d.AttachedCount,
		IsFull:            d.IsFull(),
	}
}
