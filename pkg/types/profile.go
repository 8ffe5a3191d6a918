package types

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserProfile is the public face of a user: the fields onboarding collects
// and workspace/network views render next to published stories.
type UserProfile struct {
	UserID      uuid.UUID
	DisplayName string
	Headline    string
	AvatarURL   string
	Locale      string
	Timezone    string
	Bio         string
	Skills      []string
	Links       map[string]any
	Metadata    map[string]any
	Scope       ScopeFilter
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CreatedBy   uuid.UUID
	UpdatedBy   uuid.UUID
}

// ProfilePatch represents partial updates applied to a user profile.
type ProfilePatch struct {
	DisplayName *string
	Headline    *string
	AvatarURL   *string
	Locale      *string
	Timezone    *string
	Bio         *string
	Skills      []string
	Links       map[string]any
	Metadata    map[string]any
}

// ProfileEvent signals that a profile mutation occurred.
type ProfileEvent struct {
	UserID     uuid.UUID
	Scope      ScopeFilter
	ActorID    uuid.UUID
	OccurredAt time.Time
	Profile    UserProfile
}

// ProfileRepository persists and retrieves profile records.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID uuid.UUID, scope ScopeFilter) (*UserProfile, error)
	UpsertProfile(ctx context.Context, profile UserProfile) (*UserProfile, error)
}
