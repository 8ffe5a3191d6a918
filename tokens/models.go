package tokens

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record models the persisted user_tokens row. Workspace invite tokens are
// issued against an email before any account exists, so user_id is nullable.
type Record struct {
	bun.BaseModel `bun:"table:user_tokens"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid"`
	UserID      uuid.UUID  `bun:"user_id,type:uuid,nullzero"`
	WorkspaceID uuid.UUID  `bun:"workspace_id,type:uuid,nullzero"`
	Email       string     `bun:"email"`
	TokenType   string     `bun:"token_type,notnull"`
	JTI         string     `bun:"jti,notnull"`
	Status      string     `bun:"status,notnull"`
	IssuedAt    *time.Time `bun:"issued_at,nullzero"`
	ExpiresAt   *time.Time `bun:"expires_at,nullzero"`
	UsedAt      *time.Time `bun:"used_at,nullzero"`
	CreatedAt   time.Time  `bun:"created_at"`
	UpdatedAt   time.Time  `bun:"updated_at"`
}

// ResetRecord models the persisted password_reset row.
type ResetRecord struct {
	bun.BaseModel `bun:"table:password_reset"`

	ID               uuid.UUID  `bun:"id,pk,type:uuid"`
	UserID           uuid.UUID  `bun:"user_id,type:uuid,nullzero"`
	Email            string     `bun:"email,notnull"`
	Status           string     `bun:"status,notnull"`
	JTI              string     `bun:"jti,notnull"`
	IssuedAt         *time.Time `bun:"issued_at,nullzero"`
	ExpiresAt        *time.Time `bun:"expires_at,nullzero"`
	UsedAt           *time.Time `bun:"used_at,nullzero"`
	ResetAt          *time.Time `bun:"reset_at,nullzero"`
	ScopeTenantID    uuid.UUID  `bun:"scope_tenant_id,type:uuid,nullzero"`
	ScopeWorkspaceID uuid.UUID  `bun:"scope_workspace_id,type:uuid,nullzero"`
	CreatedAt        time.Time  `bun:"created_at"`
	UpdatedAt        time.Time  `bun:"updated_at"`
}
