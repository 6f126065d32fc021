package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ondutypro/onduty-api/internal/middleware"
	"github.com/ondutypro/onduty-api/internal/models"
	appErrors "github.com/ondutypro/onduty-api/pkg/errors"
)

type authServiceMock struct {
	registerErr error
	loginErr    error
	refreshErr  error
}

func (m *authServiceMock) Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error) {
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	return &models.LoginResponse{
		AccessToken:  "access",
		RefreshToken: "refresh",
		User:         models.UserInfo{ID: "u1", Name: req.Name, Email: req.Email, Role: models.RoleStudent},
	}, nil
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &models.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (m *authServiceMock) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	return &models.RefreshTokenResponse{AccessToken: "access2", RefreshToken: "refresh2"}, nil
}

func TestAuthHandlerRegister(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{})
	body, _ := json.Marshal(models.RegisterRequest{Name: "Sam", Email: "sam@example.com", Password: "secret123"})
	c, w := testContext(t, http.MethodPost, "/auth/register", body)

	h.Register(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"accessToken":"access"`)
}

func TestAuthHandlerRegisterDuplicate(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{
		registerErr: appErrors.Clone(appErrors.ErrValidation, "Email already used"),
	})
	body, _ := json.Marshal(models.RegisterRequest{Name: "Sam", Email: "sam@example.com", Password: "secret123"})
	c, w := testContext(t, http.MethodPost, "/auth/register", body)

	h.Register(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Email already used")
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{
		loginErr: appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password"),
	})
	body, _ := json.Marshal(models.LoginRequest{Email: "sam@example.com", Password: "wrong"})
	c, w := testContext(t, http.MethodPost, "/auth/login", body)

	h.Login(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerRefresh(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{})
	body, _ := json.Marshal(models.RefreshTokenRequest{RefreshToken: "refresh"})
	c, w := testContext(t, http.MethodPost, "/auth/refresh", body)

	h.Refresh(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"accessToken":"access2"`)
}

func TestAuthHandlerMe(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{})
	c, w := testContext(t, http.MethodGet, "/auth/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{
		UserID: "u1", Name: "Sam", Email: "sam@example.com", Role: models.RoleStudent,
	})

	h.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"sam@example.com"`)
}

func TestAuthHandlerMeUnauthenticated(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{})
	c, w := testContext(t, http.MethodGet, "/auth/me", nil)

	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
