package types

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserTokenType names the kind of onboarding token a user_tokens row holds.
type UserTokenType string

const (
	UserTokenWorkspaceInvite UserTokenType = "workspace_invite"
	UserTokenRegistration    UserTokenType = "register"
	UserTokenPasswordReset   UserTokenType = "password_reset"
)

// UserTokenStatus is the state a user_tokens row moves through.
type UserTokenStatus string

const (
	UserTokenStatusIssued  UserTokenStatus = "issued"
	UserTokenStatusUsed    UserTokenStatus = "used"
	UserTokenStatusExpired UserTokenStatus = "expired"
	UserTokenStatusRevoked UserTokenStatus = "revoked"
)

// UserToken captures persisted onboarding token metadata. Workspace invite
// tokens additionally record the workspace and invited email so acceptance can
// be validated without decoding the securelink payload.
type UserToken struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	WorkspaceID uuid.UUID
	Email       string
	Type        UserTokenType
	JTI         string
	Status      UserTokenStatus
	IssuedAt    time.Time
	ExpiresAt   time.Time
	UsedAt      time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserTokenRepository stores and updates invite and registration tokens.
type UserTokenRepository interface {
	CreateToken(ctx context.Context, token UserToken) (*UserToken, error)
	GetTokenByJTI(ctx context.Context, tokenType UserTokenType, jti string) (*UserToken, error)
	UpdateTokenStatus(ctx context.Context, tokenType UserTokenType, jti string, status UserTokenStatus, usedAt time.Time) error
}

// PasswordResetStatus is the state a password_reset row moves through.
type PasswordResetStatus string

const (
	PasswordResetStatusUnknown   PasswordResetStatus = "unknown"
	PasswordResetStatusRequested PasswordResetStatus = "requested"
	PasswordResetStatusExpired   PasswordResetStatus = "expired"
	PasswordResetStatusChanged   PasswordResetStatus = "changed"
)

// PasswordResetRecord mirrors one password_reset row, jti included.
type PasswordResetRecord struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Email     string
	Status    PasswordResetStatus
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
	UsedAt    time.Time
	ResetAt   time.Time
	Scope     ScopeFilter
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PasswordResetRepository stores and consumes password reset records.
type PasswordResetRepository interface {
	CreateReset(ctx context.Context, record PasswordResetRecord) (*PasswordResetRecord, error)
	GetResetByJTI(ctx context.Context, jti string) (*PasswordResetRecord, error)
	ConsumeReset(ctx context.Context, jti string, usedAt time.Time) error
	UpdateResetStatus(ctx context.Context, jti string, status PasswordResetStatus, usedAt time.Time) error
}
