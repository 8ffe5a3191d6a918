package story

import (
	"time"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/uptrace/bun"
)

// Record is the Bun model backing career stories.
type Record struct {
	bun.BaseModel `bun:"table:career_stories,alias:story"`

	ID                uuid.UUID             `bun:",pk,type:uuid"`
	UserID            uuid.UUID             `bun:"user_id,type:uuid"`
	TenantID          uuid.UUID             `bun:"tenant_id,type:uuid,nullzero"`
	WorkspaceID       uuid.UUID             `bun:"workspace_id,type:uuid,nullzero"`
	ClusterID         uuid.UUID             `bun:"cluster_id,type:uuid,nullzero"`
	Title             string                `bun:"title"`
	Framework         types.StoryFramework  `bun:"framework"`
	Archetype         types.StoryArchetype  `bun:"archetype"`
	Sections          []types.StorySection  `bun:"sections,type:jsonb"`
	SourceActivityIDs []uuid.UUID           `bun:"source_activity_ids,type:jsonb"`
	Confidence        float64               `bun:"confidence"`
	Visibility        types.StoryVisibility `bun:"visibility"`
	State             types.StoryState      `bun:"state"`
	PublishedAt       time.Time             `bun:"published_at,nullzero"`
	RegeneratedAt     time.Time             `bun:"regenerated_at,nullzero"`
	CreatedAt         time.Time             `bun:"created_at"`
	UpdatedAt         time.Time             `bun:"updated_at"`
}
