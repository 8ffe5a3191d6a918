package profile

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record maps one user_profiles row.
type Record struct {
	bun.BaseModel `bun:"table:user_profiles"`

	UserID           uuid.UUID      `bun:"user_id,pk,type:uuid"`
	ScopeTenantID    uuid.UUID      `bun:"scope_tenant_id,type:uuid,nullzero"`
	ScopeWorkspaceID uuid.UUID      `bun:"scope_workspace_id,type:uuid,nullzero"`
	DisplayName      string         `bun:"display_name"`
	Headline         string         `bun:"headline"`
	AvatarURL        string         `bun:"avatar_url"`
	Locale           string         `bun:"locale"`
	Timezone         string         `bun:"timezone"`
	Bio              string         `bun:"bio"`
	Skills           []string       `bun:"skills,type:jsonb"`
	Links            map[string]any `bun:"links,type:jsonb"`
	Metadata         map[string]any `bun:"metadata,type:jsonb"`
	CreatedAt        time.Time      `bun:"created_at"`
	CreatedBy        uuid.UUID      `bun:"created_by,type:uuid,nullzero"`
	UpdatedAt        time.Time      `bun:"updated_at"`
	UpdatedBy        uuid.UUID      `bun:"updated_by,type:uuid,nullzero"`
}
