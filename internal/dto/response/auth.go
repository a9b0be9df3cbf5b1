package response

import (
	"time"

	"cinema-scheduler/internal/data/entity"
)

type AuthResponse struct {
	UserID    int64           `json:"user_id"`
	Username  string          `json:"username"`
	Role      entity.UserRole `json:"role"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func AuthToResponse(user *entity.User, session *entity.Session) AuthResponse {
	resp := AuthResponse{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	}

	if session != nil {
		resp.Token = session.Token.String()
		resp.ExpiresAt = session.ExpiresAt
	}

	return resp
}
