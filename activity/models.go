package activity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record models the persisted row in tool_activity. The
// (user_id, source, source_id) triple is unique.
type Record struct {
	bun.BaseModel `bun:"table:tool_activity"`

	ID            uuid.UUID       `bun:",pk,type:uuid"`
	UserID        uuid.UUID       `bun:"user_id,type:uuid"`
	TenantID      uuid.UUID       `bun:"tenant_id,type:uuid"`
	WorkspaceID   uuid.UUID       `bun:"workspace_id,type:uuid"`
	Source        string          `bun:"source"`
	SourceID      string          `bun:"source_id"`
	SourceURL     string          `bun:"source_url"`
	Title         string          `bun:"title"`
	Description   string          `bun:"description"`
	Timestamp     time.Time       `bun:"timestamp"`
	ClusterID     uuid.UUID       `bun:"cluster_id,type:uuid,nullzero"`
	CrossToolRefs []uuid.UUID     `bun:"cross_tool_refs,type:jsonb"`
	RawData       json.RawMessage `bun:"raw_data,type:jsonb"`
	CreatedAt     time.Time       `bun:"created_at"`
	UpdatedAt     time.Time       `bun:"updated_at"`
}
