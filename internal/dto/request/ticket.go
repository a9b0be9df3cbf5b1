package request

type CreateTicketRequest struct {
	Type string `json:"type" validate:"required,oneof=classic super"`
}

type ChangeTicketTypeRequest struct {
	Type string `json:"type" validate:"required,oneof=classic super"`
}

type AttachTicketRequest struct {
	TicketID int64 `json:"ticketId" validate:"required,min=1"`
}

type ListTicketsQuery struct {
	PaginatedRequest
	Type        string `json:"type" validate:"omitempty,oneof=classic super"`
	ScreeningID string `json:"screeningId" validate:"omitempty,numeric"`
	Used        string `json:"used" validate:"omitempty,oneof=true false"`
}
