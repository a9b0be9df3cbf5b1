package usecase

import (
	"context"
	"fmt"
	"time"

	"cinema-scheduler/internal/data/entity"
	"cinema-scheduler/internal/data/repository"
	"cinema-scheduler/internal/dto/request"
	"cinema-scheduler/internal/dto/response"
	"cinema-scheduler/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthService interface {
	Login(ctx context.Context, req *request.LoginRequest, client ClientInfo) (*response.AuthResponse, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*entity.SessionWithRole, error)
}

// ClientInfo is recorded on the session for auditing.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

type authService struct {
	repo   *repository.Repository
	config *utils.Config
	log    *zap.Logger
}

func NewAuthService(
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) AuthService {
	return &authService{
		repo:   repo,
		config: config,
		log:    log.With(zap.String("service", "auth")),
	}
}

func (s *authService) Login(ctx context.Context, req *request.LoginRequest, client ClientInfo) (*response.AuthResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Login validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s: %w", utils.FormatValidationErrors(errs), utils.ErrInvalidRequest)
	}

	user, err := s.repo.User.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		s.log.Warn("User not found for login", zap.String("username", req.Username))
		return nil, fmt.Errorf("invalid credentials: %w", utils.ErrUnauthorized)
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		s.log.Warn("Invalid password", zap.Int64("user_id", user.ID))
		return nil, fmt.Errorf("invalid credentials: %w", utils.ErrUnauthorized)
	}

	if !user.IsActive {
		s.log.Warn("Inactive user tried to login", zap.Int64("user_id", user.ID))
		return nil, fmt.Errorf("account is deactivated: %w", utils.ErrUnauthorized)
	}

	session, err := s.createSession(ctx, user.ID, client)
	if err != nil {
		return nil, err
	}

	s.log.Info("User logged in",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
	)

	resp := response.AuthToResponse(user, session)
	return &resp, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	tokenUUID, err := uuid.Parse(token)
	if err != nil {
		return fmt.Errorf("invalid token format: %w", utils.ErrInvalidRequest)
	}

	if err := s.repo.Session.Revoke(ctx, tokenUUID); err != nil {
		return err
	}

	s.log.Info("User logged out")
	return nil
}

// Authenticate returns the session behind token, or ErrUnauthorized.
func (s *authService) Authenticate(ctx context.Context, token string) (*entity.SessionWithRole, error) {
	tokenUUID, err := uuid.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("malformed session token: %w", utils.ErrUnauthorized)
	}

	session, err := s.repo.Session.FindValidSession(ctx, tokenUUID)
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("invalid or expired session: %w", utils.ErrUnauthorized)
	}

	return session, nil
}

func (s *authService) createSession(ctx context.Context, userID int64, client ClientInfo) (*entity.Session, error) {
	expiry := time.Duration(s.config.Session.ExpiryHours) * time.Hour
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}

	now := time.Now()
	session := &entity.Session{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     uuid.New(),
		ExpiresAt: now.Add(expiry),
		CreatedAt: now,
	}
	if client.UserAgent != "" {
		session.UserAgent = &client.UserAgent
	}
	if client.IPAddress != "" {
		session.IPAddress = &client.IPAddress
	}

	if err := s.repo.Session.Create(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}
