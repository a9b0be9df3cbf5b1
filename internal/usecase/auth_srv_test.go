package usecase

import (
	"context"
	"testing"

	"cinema-scheduler/internal/data/entity"
	"cinema-scheduler/internal/dto/request"
	"cinema-scheduler/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addUser(t *testing.T, f *fixture, username, password string, role entity.UserRole, active bool) *entity.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)

	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	user := &entity.User{ID: f.store.id(), Username: username, PasswordHash: hash, Role: role, IsActive: active}
	f.store.users[user.ID] = user
	return user
}

func TestLoginAuthenticateLogout(t *testing.T) {
	f := newFixture(t)
	admin := addUser(t, f, "admin", "secret123", entity.RoleAdmin, true)
	ctx := context.Background()

	resp, err := f.auth.Login(ctx, &request.LoginRequest{Username: "admin", Password: "secret123"},
		ClientInfo{UserAgent: "test", IPAddress: "127.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, admin.ID, resp.UserID)
	assert.Equal(t, entity.RoleAdmin, resp.Role)
	require.NotEmpty(t, resp.Token)

	session, err := f.auth.Authenticate(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, session.UserID)
	assert.Equal(t, entity.RoleAdmin, session.Role)

	require.NoError(t, f.auth.Logout(ctx, resp.Token))

	_, err = f.auth.Authenticate(ctx, resp.Token)
	assert.ErrorIs(t, err, utils.ErrUnauthorized)
	assert.ErrorIs(t, f.auth.Logout(ctx, resp.Token), utils.ErrNotFound)
}

func TestLogin_Rejections(t *testing.T) {
	f := newFixture(t)
	addUser(t, f, "alice", "secret123", entity.RoleCustomer, true)
	addUser(t, f, "bob", "secret123", entity.RoleCustomer, false)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     request.LoginRequest
		wantErr error
	}{
		{"wrong password", request.LoginRequest{Username: "alice", Password: "wrong-pass"}, utils.ErrUnauthorized},
		{"unknown user", request.LoginRequest{Username: "carol", Password: "secret123"}, utils.ErrUnauthorized},
		{"inactive user", request.LoginRequest{Username: "bob", Password: "secret123"}, utils.ErrUnauthorized},
		{"short password", request.LoginRequest{Username: "alice", Password: "abc"}, utils.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Login(ctx, &tt.req, ClientInfo{})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAuthenticate_MalformedToken(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Authenticate(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, utils.ErrUnauthorized)
}
