package adaptor

import (
	"net/http"

	"cinema-scheduler/internal/dto/request"
	"cinema-scheduler/internal/usecase"
	"cinema-scheduler/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ScreeningHandler struct {
	service usecase.ScreeningService
	log     *zap.Logger
}

func NewScreeningHandler(service usecase.ScreeningService, log *zap.Logger) *ScreeningHandler {
	return &ScreeningHandler{
		service: service,
		log:     log.With(zap.String("handler", "screening")),
	}
}

// ListScreenings handles GET /api/screenings
func (h *ScreeningHandler) ListScreenings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &request.ListScreeningsQuery{
		PaginatedRequest: request.PaginatedRequest{
			Page:    utils.ParseInt(query.Get("page"), 1),
			PerPage: utils.ParseInt(query.Get("per_page"), 10),
		},
		StartsAfter:  query.Get("startsAfter"),
		StartsBefore: query.Get("startsBefore"),
		EndsAfter:    query.Get("endsAfter"),
		EndsBefore:   query.Get("endsBefore"),
		RoomID:       query.Get("roomId"),
		RoomName:     query.Get("roomName"),
		MovieID:      query.Get("movieId"),
	}

	screenings, err := h.service.ListScreenings(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.log, err, "list screenings")
		return
	}

	utils.ResponseSuccess(w, "success", screenings)
}

// GetScreening handles GET /api/screenings/{id}
func (h *ScreeningHandler) GetScreening(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "get screening")
		return
	}

	screening, err := h.service.GetScreening(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.log, err, "get screening")
		return
	}

	utils.ResponseSuccess(w, "success", screening)
}

// CreateScreening handles POST /api/admin/screenings
func (h *ScreeningHandler) CreateScreening(w http.ResponseWriter, r *http.Request) {
	var req request.CreateScreeningRequest
	if err := decodeJSON(r, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	screening, err := h.service.CreateScreening(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create screening")
		return
	}

	utils.ResponseCreated(w, "Screening created", screening)
}

// PatchScreening handles PATCH /api/admin/screenings/{id}
func (h *ScreeningHandler) PatchScreening(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "patch screening")
		return
	}

	var req request.PatchScreeningRequest
	if err := decodeJSON(r, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if req.IsEmpty() {
		utils.ResponseBadRequest(w, "Nothing to update", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	screening, err := h.service.PatchScreening(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "patch screening")
		return
	}

	utils.ResponseSuccess(w, "Screening updated", screening)
}

// DeleteScreening handles DELETE /api/admin/screenings/{id}
func (h *ScreeningHandler) DeleteScreening(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "delete screening")
		return
	}

	if err := h.service.DeleteScreening(r.Context(), id); err != nil {
		handleServiceError(w, h.log, err, "delete screening")
		return
	}

	utils.ResponseSuccess(w, "Screening deleted", nil)
}
