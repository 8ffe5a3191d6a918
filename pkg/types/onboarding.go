package types

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OnboardingSteps is the number of steps in the onboarding flow.
const OnboardingSteps = 7

// OnboardingRecord is the per-user onboarding session: the profile fields
// collected so far plus the computed step. CurrentStep is monotonic; the
// calculator never lowers it when data grows.
type OnboardingRecord struct {
	UserID      uuid.UUID
	Payload     map[string]any
	CurrentStep int
	DemoMode    bool
	CompletedAt time.Time
	SkippedAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Completed reports whether the user finished onboarding.
func (r OnboardingRecord) Completed() bool { return !r.CompletedAt.IsZero() }

// Skipped reports whether the user dismissed onboarding.
func (r OnboardingRecord) Skipped() bool { return !r.SkippedAt.IsZero() }

// Field returns the payload value for the key, or nil.
func (r OnboardingRecord) Field(key string) any {
	if len(r.Payload) == 0 {
		return nil
	}
	return r.Payload[key]
}

// OnboardingStore persists onboarding sessions. Implementations back this by
// the primary database; the resolver layers an injectable fallback underneath
// so the effective record is remote-first.
type OnboardingStore interface {
	GetOnboarding(ctx context.Context, userID uuid.UUID) (*OnboardingRecord, error)
	SetOnboarding(ctx context.Context, record OnboardingRecord) (*OnboardingRecord, error)
	ClearOnboarding(ctx context.Context, userID uuid.UUID) error
}

// OnboardingEvent is emitted after onboarding mutations.
type OnboardingEvent struct {
	UserID     uuid.UUID
	Step       int
	Action     string
	ActorID    uuid.UUID
	OccurredAt time.Time
}
