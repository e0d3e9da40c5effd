package gateway

import (
	"context"
	"net/http"

	"github.com/smarttransit/busticket-client/internal/models"
)

// AuthAPI covers /auth. None of these calls trigger the 401 refresh.
type AuthAPI struct {
	client *Client
}

// Login exchanges credentials for tokens
// POST /auth/login
func (a *AuthAPI) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := a.client.Do(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account and signs it in
// POST /auth/register
func (a *AuthAPI) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := a.client.Do(ctx, http.MethodPost, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh exchanges a refresh token for a new access token
// POST /auth/refresh
func (a *AuthAPI) Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	err := a.client.Do(ctx, http.MethodPost, "/auth/refresh", models.RefreshRequest{RefreshToken: refreshToken}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout invalidates the server-side session of the context's credentials
// POST /auth/logout
func (a *AuthAPI) Logout(ctx context.Context) error {
	return a.client.Do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}
