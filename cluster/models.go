package cluster

import (
	"time"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/uptrace/bun"
)

// Record models the persisted row in activity_clusters. activity_count always
// equals the length of activity_ids; the repository enforces that on write.
type Record struct {
	bun.BaseModel `bun:"table:activity_clusters"`

	ID            uuid.UUID            `bun:",pk,type:uuid"`
	UserID        uuid.UUID            `bun:"user_id,type:uuid"`
	TenantID      uuid.UUID            `bun:"tenant_id,type:uuid"`
	WorkspaceID   uuid.UUID            `bun:"workspace_id,type:uuid"`
	Name          string               `bun:"name"`
	Description   string               `bun:"description"`
	ActivityIDs   []uuid.UUID          `bun:"activity_ids,type:jsonb"`
	ActivityCount int                  `bun:"activity_count"`
	Metrics       types.ClusterMetrics `bun:"metrics,type:jsonb"`
	CreatedAt     time.Time            `bun:"created_at"`
	UpdatedAt     time.Time            `bun:"updated_at"`
}
