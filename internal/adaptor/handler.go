package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"cinema-scheduler/internal/usecase"
	"cinema-scheduler/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Auth      *AuthHandler
	Screening *ScreeningHandler
	Ticket    *TicketHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Auth:      NewAuthHandler(service.Auth, log),
		Screening: NewScreeningHandler(service.Screening, log),
		Ticket:    NewTicketHandler(service.Ticket, log),
	}
}

// decodeJSON rejects unknown fields so a typo such as "startTime" is
// reported instead of silently ignored.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// handleServiceError renders an error by its kind.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	status := utils.StatusFromError(err)
	msg := errorMessage(err)

	switch status {
	case http.StatusNotFound:
		log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseNotFound(w, msg)
	case http.StatusBadRequest:
		log.Warn(operation+" failed - invalid request", zap.Error(err))
		utils.ResponseBadRequest(w, msg, nil)
	case http.StatusConflict:
		log.Warn(operation+" failed - conflict", zap.Error(err))
		utils.ResponseConflict(w, msg)
	case http.StatusUnauthorized:
		log.Warn(operation+" failed - unauthorized", zap.Error(err))
		utils.ResponseUnauthorized(w, msg)
	default:
		log.Error("Failed to "+operation, zap.Error(err), zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}

// errorMessage drops the trailing kind suffix (": conflict") that wrapping
// leaves on every message.
func errorMessage(err error) string {
	msg := err.Error()
	for _, kind := range []error{utils.ErrNotFound, utils.ErrInvalidRequest, utils.ErrConflict, utils.ErrUnauthorized} {
		if errors.Is(err, kind) {
			msg = strings.TrimSuffix(msg, ": "+kind.Error())
		}
	}
	return msg
}
