package apiclient

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is the wire shape of an account.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is a bearer pair plus the signed-in user when the server includes
// one.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// LoginRequest signs a user in by email or username.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username,omitempty"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// ChangePasswordRequest rotates the signed-in user's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AuthAPI covers the /auth endpoints.
type AuthAPI struct {
	client *Client
}

// Login exchanges credentials for a session and stores the tokens.
func (a *AuthAPI) Login(ctx context.Context, in LoginRequest) (*Session, error) {
	var session Session
	if err := a.client.postOpen(ctx, "/auth/login", in, &session); err != nil {
		return nil, err
	}
	a.client.tokens.SetTokens(session.AccessToken, session.RefreshToken)
	return &session, nil
}

// Register creates an account and stores the issued tokens.
func (a *AuthAPI) Register(ctx context.Context, in RegisterRequest) (*Session, error) {
	var session Session
	if err := a.client.postOpen(ctx, "/auth/register", in, &session); err != nil {
		return nil, err
	}
	a.client.tokens.SetTokens(session.AccessToken, session.RefreshToken)
	return &session, nil
}

// Me returns the signed-in user.
func (a *AuthAPI) Me(ctx context.Context) (*User, error) {
	var user User
	if err := a.client.get(ctx, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout revokes the session server side and drops the local tokens either
// way.
func (a *AuthAPI) Logout(ctx context.Context) error {
	err := a.client.post(ctx, "/auth/logout", nil, nil)
	a.client.tokens.Clear()
	return err
}

// ChangePassword rotates the password.
func (a *AuthAPI) ChangePassword(ctx context.Context, in ChangePasswordRequest) error {
	return a.client.post(ctx, "/auth/change-password", in, nil)
}

// RequestPasswordReset emails a reset link. The server answers success for
// unknown emails too.
func (a *AuthAPI) RequestPasswordReset(ctx context.Context, email string) error {
	in := map[string]string{"email": email}
	return a.client.postOpen(ctx, "/auth/password-reset/request", in, nil)
}

// ConfirmPasswordReset redeems a reset token and sets the new password.
func (a *AuthAPI) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	in := map[string]string{"token": token, "new_password": newPassword}
	return a.client.postOpen(ctx, "/auth/password-reset/confirm", in, nil)
}

// Refresh forces a token refresh outside the automatic 401 path.
func (a *AuthAPI) Refresh(ctx context.Context) error {
	return a.client.refreshSession(ctx, a.client.tokens.AccessToken())
}
