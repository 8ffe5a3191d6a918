package workspace

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record models the persisted workspaces row. The alias keeps correlated
// membership subqueries readable.
type Record struct {
	bun.BaseModel `bun:"table:workspaces,alias:workspace"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	TenantID    uuid.UUID `bun:"tenant_id,type:uuid,nullzero"`
	Name        string    `bun:"name,notnull"`
	Slug        string    `bun:"slug,notnull"`
	Description string    `bun:"description"`
	OwnerID     uuid.UUID `bun:"owner_id,notnull,type:uuid"`
	CreatedAt   time.Time `bun:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at"`
}

// MemberRecord models the persisted workspace_members row. JoinedAt has no
// column of its own: membership starts when the row is created.
type MemberRecord struct {
	bun.BaseModel `bun:"table:workspace_members"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	WorkspaceID uuid.UUID `bun:"workspace_id,notnull,type:uuid"`
	UserID      uuid.UUID `bun:"user_id,notnull,type:uuid"`
	Role        string    `bun:"role,notnull"`
	AddedBy     uuid.UUID `bun:"added_by,type:uuid,nullzero"`
	CreatedAt   time.Time `bun:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at"`
}

// InvitationRecord models the persisted workspace_invitations row.
type InvitationRecord struct {
	bun.BaseModel `bun:"table:workspace_invitations"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid"`
	WorkspaceID uuid.UUID  `bun:"workspace_id,notnull,type:uuid"`
	Email       string     `bun:"email,notnull"`
	Role        string     `bun:"role,notnull"`
	Status      string     `bun:"status,notnull"`
	JTI         string     `bun:"jti,notnull"`
	InvitedBy   uuid.UUID  `bun:"invited_by,type:uuid,nullzero"`
	ExpiresAt   *time.Time `bun:"expires_at,nullzero"`
	AcceptedBy  uuid.UUID  `bun:"accepted_by,type:uuid,nullzero"`
	AcceptedAt  *time.Time `bun:"accepted_at,nullzero"`
	CreatedAt   time.Time  `bun:"created_at"`
	UpdatedAt   time.Time  `bun:"updated_at"`
}
