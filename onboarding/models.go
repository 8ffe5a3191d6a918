package onboarding

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record models the user_onboarding row. The user id is the primary key:
// each user holds at most one onboarding session.
type Record struct {
	bun.BaseModel `bun:"table:user_onboarding"`

	UserID      uuid.UUID      `bun:"user_id,pk,type:uuid"`
	Payload     map[string]any `bun:"payload,type:jsonb"`
	CurrentStep int            `bun:"current_step"`
	DemoMode    bool           `bun:"demo_mode"`
	CompletedAt *time.Time     `bun:"completed_at,nullzero"`
	SkippedAt   *time.Time     `bun:"skipped_at,nullzero"`
	CreatedAt   time.Time      `bun:"created_at"`
	UpdatedAt   time.Time      `bun:"updated_at"`
}
