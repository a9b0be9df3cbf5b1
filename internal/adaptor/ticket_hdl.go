package adaptor

import (
	"net/http"

	"cinema-scheduler/internal/dto/request"
	"cinema-scheduler/internal/usecase"
	"cinema-scheduler/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TicketHandler struct {
	service usecase.TicketService
	log     *zap.Logger
}

func NewTicketHandler(service usecase.TicketService, log *zap.Logger) *TicketHandler {
	return &TicketHandler{
		service: service,
		log:     log.With(zap.String("handler", "ticket")),
	}
}

// CreateTicket handles POST /api/tickets
func (h *TicketHandler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreateTicketRequest
	if err := decodeJSON(r, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	ticket, err := h.service.CreateTicket(r.Context(), userID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create ticket")
		return
	}

	utils.ResponseCreated(w, "Ticket created", ticket)
}

// ListTickets handles GET /api/tickets
func (h *TicketHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	query := r.URL.Query()
	req := &request.ListTicketsQuery{
		PaginatedRequest: request.PaginatedRequest{
			Page:    utils.ParseInt(query.Get("page"), 1),
			PerPage: utils.ParseInt(query.Get("per_page"), 10),
		},
		Type:        query.Get("type"),
		ScreeningID: query.Get("screeningId"),
		Used:        query.Get("used"),
	}

	tickets, err := h.service.ListTickets(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, h.log, err, "list tickets")
		return
	}

	utils.ResponseSuccess(w, "success", tickets)
}

// GetTicket handles GET /api/tickets/{id}
func (h *TicketHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	ticketID, err := utils.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "get ticket")
		return
	}

	ticket, err := h.service.GetTicket(r.Context(), userID, ticketID)
	if err != nil {
		handleServiceError(w, h.log, err, "get ticket")
		return
	}

	utils.ResponseSuccess(w, "success", ticket)
}

// ChangeTicketType handles PATCH /api/tickets/{id}
func (h *TicketHandler) ChangeTicketType(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	ticketID, err := utils.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "change ticket type")
		return
	}

	var req request.ChangeTicketTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	ticket, err := h.service.ChangeTicketType(r.Context(), userID, ticketID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "change ticket type")
		return
	}

	utils.ResponseSuccess(w, "Ticket updated", ticket)
}

// AttachTicket handles POST /api/screenings/{id}/tickets
func (h *TicketHandler) AttachTicket(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	screeningID, err := utils.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "attach ticket")
		return
	}

	var req request.AttachTicketRequest
	if err := decodeJSON(r, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	ticket, err := h.service.AttachTicket(r.Context(), userID, screeningID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "attach ticket")
		return
	}

	utils.ResponseSuccess(w, "Ticket attached", ticket)
}

// DeleteTicket handles DELETE /api/tickets/{id}
func (h *TicketHandler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	ticketID, err := utils.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "delete ticket")
		return
	}

	if err := h.service.DeleteTicket(r.Context(), userID, ticketID); err != nil {
		handleServiceError(w, h.log, err, "delete ticket")
		return
	}

	utils.ResponseSuccess(w, "Ticket deleted", nil)
}

// GetCapacity handles GET /api/screenings/{id}/capacity
func (h *TicketHandler) GetCapacity(w http.ResponseWriter, r *http.Request) {
	screeningID, err := utils.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "get capacity")
		return
	}

	capacity, err := h.service.IsFull(r.Context(), screeningID)
	if err != nil {
		handleServiceError(w, h.log, err, "get capacity")
		return
	}

	utils.ResponseSuccess(w, "success", capacity)
}
