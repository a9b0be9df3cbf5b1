package request

// CreateScreeningRequest names the room by exactly one of RoomID or RoomName.
type CreateScreeningRequest struct {
	StartsAt string  `json:"startsAt" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	MovieID  int64   `json:"movieId" validate:"required,min=1"`
	RoomID   *string `json:"roomId,omitempty" validate:"required_without=RoomName,excluded_with=RoomName"`
	RoomName *string `json:"roomName,omitempty" validate:"required_without=RoomID,excluded_with=RoomID"`
}

// PatchScreeningRequest carries only the fields to change.
type PatchScreeningRequest struct {
	StartsAt *string `json:"startsAt,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	MovieID  *int64  `json:"movieId,omitempty" validate:"omitempty,min=1"`
	RoomID   *string `json:"roomId,omitempty" validate:"excluded_with=RoomName"`
	RoomName *string `json:"roomName,omitempty" validate:"excluded_with=RoomID"`
}

func (r *PatchScreeningRequest) IsEmpty() bool {
	return r.StartsAt == nil && r.MovieID == nil && r.RoomID == nil && r.RoomName == nil
}

// ListScreeningsQuery mirrors the query string of GET /api/screenings.
type ListScreeningsQuery struct {
	PaginatedRequest
	StartsAfter  string `json:"startsAfter" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	StartsBefore string `json:"startsBefore" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	EndsAfter    string `json:"endsAfter" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	EndsBefore   string `json:"endsBefore" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	RoomID       string `json:"roomId" validate:"omitempty,uuid"`
	RoomName     string `json:"roomName" validate:"omitempty,max=100"`
	MovieID      string `json:"movieId" validate:"omitempty,numeric"`
}
