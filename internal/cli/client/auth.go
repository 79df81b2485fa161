package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/biocom-dev/biocom/internal/cli/session"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" validate:"required,notblank"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the token pair returned by the backend
type LoginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Login authenticates the user and stores the access token and username in
// the session store. No token is attached to this call.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	reqBody := LoginRequest{
		Username: username,
		Password: password,
	}
	if err := c.validate.Struct(reqBody); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}

	var loginResp LoginResponse
	err := c.do(ctx, resourceRequest{
		method:   http.MethodPost,
		endpoint: c.authEndpoint("/login/"),
		body:     reqBody,
	}, &loginResp)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	if loginResp.Access == "" {
		return nil, errors.New("login failed: response did not contain an access token")
	}

	if err := c.sessions.Set(ctx, session.Session{
		AccessToken:  loginResp.Access,
		Username:     username,
		RefreshToken: loginResp.Refresh,
	}); err != nil {
		return nil, err
	}

	c.logger.Info().Str("username", username).Msg("Logged in")
	return &loginResp, nil
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username string `json:"username" validate:"required,notblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterResponse represents the created account
type RegisterResponse struct {
	ID       int    `json:"id,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Register creates a new account. It does not log the user in.
func (c *Client) Register(ctx context.Context, username, email, password string) (*RegisterResponse, error) {
	reqBody := RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	}
	if err := c.validate.Struct(reqBody); err != nil {
		return nil, fmt.Errorf("invalid registration: %w", err)
	}

	var registerResp RegisterResponse
	err := c.do(ctx, resourceRequest{
		method:   http.MethodPost,
		endpoint: c.authEndpoint("/register/"),
		body:     reqBody,
	}, &registerResp)
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	return &registerResp, nil
}

// Logout drops the local session. The backend keeps no server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.sessions.Clear(ctx)
}

// RefreshSession exchanges the stored refresh token for a new access token.
// It is only ever called explicitly; requests are never retried after a
// refresh. A rejected refresh token clears the session.
func (c *Client) RefreshSession(ctx context.Context) error {
	current := c.sessions.Snapshot()
	if current.RefreshToken == "" {
		return ErrUnauthenticated
	}

	var refreshResp LoginResponse
	err := c.do(ctx, resourceRequest{
		method:   http.MethodPost,
		endpoint: c.authEndpoint("/token/refresh/"),
		body:     map[string]string{"refresh": current.RefreshToken},
	}, &refreshResp)
	if err != nil {
		if status := StatusCode(err); status == http.StatusUnauthorized || status == http.StatusForbidden {
			if clearErr := c.sessions.Clear(ctx); clearErr != nil {
				c.logger.Error().Err(clearErr).Msg("Failed to clear persisted session")
			}
			return &AuthExpiredError{Method: http.MethodPost, Endpoint: c.authEndpoint("/token/refresh/"), StatusCode: status}
		}
		return fmt.Errorf("failed to refresh session: %w", err)
	}

	if refreshResp.Access == "" {
		return errors.New("failed to refresh session: response did not contain an access token")
	}

	next := current
	next.AccessToken = refreshResp.Access
	if refreshResp.Refresh != "" {
		next.RefreshToken = refreshResp.Refresh
	}
	return c.sessions.Set(ctx, next)
}

// RequestPasswordReset asks the backend to email a reset link
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	if err := c.validate.Var(email, "required,email"); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}

	err := c.do(ctx, resourceRequest{
		method:   http.MethodPost,
		endpoint: c.authEndpoint("/password-reset/"),
		body:     map[string]string{"email": email},
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to request password reset: %w", err)
	}
	return nil
}

// PasswordResetConfirm carries the values from the reset link plus the new password
type PasswordResetConfirm struct {
	UID           string `json:"uid" validate:"required"`
	Token         string `json:"token" validate:"required"`
	NewPassword   string `json:"new_password" validate:"required"`
	ReNewPassword string `json:"re_new_password" validate:"required,eqfield=NewPassword"`
}

// ConfirmPasswordReset sets a new password using a reset uid/token pair
func (c *Client) ConfirmPasswordReset(ctx context.Context, confirm PasswordResetConfirm) error {
	if err := c.validate.Struct(confirm); err != nil {
		return fmt.Errorf("invalid password reset: %w", err)
	}

	err := c.do(ctx, resourceRequest{
		method:   http.MethodPost,
		endpoint: c.authEndpoint("/password-reset-confirm/"),
		body:     confirm,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to confirm password reset: %w", err)
	}
	return nil
}
