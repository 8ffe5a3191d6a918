package types

import (
	"context"
	"maps"
	"time"

	"github.com/google/uuid"
)

// LifecycleState names one of the account states a user can occupy.
type LifecycleState string

const (
	LifecycleStatePending   LifecycleState = "pending"
	LifecycleStateActive    LifecycleState = "active"
	LifecycleStateSuspended LifecycleState = "suspended"
	LifecycleStateDisabled  LifecycleState = "disabled"
	LifecycleStateArchived  LifecycleState = "archived"
)

// AuthUser is the storage-agnostic view of an upstream auth user.
// Fields mirror the values go-stories needs to orchestrate account, profile,
// and workspace membership flows without binding to go-auth structs.
type AuthUser struct {
	ID        uuid.UUID
	Role      string
	Status    LifecycleState
	Email     string
	Username  string
	FirstName string
	LastName  string
	Metadata  map[string]any
	CreatedAt *time.Time
	UpdatedAt *time.Time
	Raw       any
}

// LifecycleTransition describes an allowed move between account states.
type LifecycleTransition struct {
	From LifecycleState
	To   LifecycleState
}

// ActorRef identifies who or what is initiating a change.
type ActorRef struct {
	ID   uuid.UUID
	Type string
}

// TransitionConfig carries the reason and metadata recorded alongside a
// lifecycle change.
type TransitionConfig struct {
	Reason   string
	Metadata map[string]any
	Force    bool
}

// TransitionOption tweaks how an AuthRepository records a transition.
type TransitionOption func(*TransitionConfig)

// WithTransitionReason attaches a human readable reason to the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(cfg *TransitionConfig) {
		cfg.Reason = reason
	}
}

// WithTransitionMetadata merges extra keys into the transition's audit payload.
func WithTransitionMetadata(metadata map[string]any) TransitionOption {
	return func(cfg *TransitionConfig) {
		if len(metadata) == 0 {
			return
		}
		if cfg.Metadata == nil {
			cfg.Metadata = make(map[string]any, len(metadata))
		}
		maps.Copy(cfg.Metadata, metadata)
	}
}

// WithForceTransition skips policy validation for this transition.
func WithForceTransition() TransitionOption {
	return func(cfg *TransitionConfig) {
		cfg.Force = true
	}
}

// AuthRepository abstracts whichever upstream user repository go-stories sits
// on. Implementations typically wrap go-auth's Users repository, but any
// Bun-backed store that honors these semantics can be injected.
type AuthRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*AuthUser, error)
	GetByIdentifier(ctx context.Context, identifier string) (*AuthUser, error)
	Create(ctx context.Context, input *AuthUser) (*AuthUser, error)
	Update(ctx context.Context, input *AuthUser) (*AuthUser, error)
	UpdateStatus(ctx context.Context, actor ActorRef, id uuid.UUID, next LifecycleState, opts ...TransitionOption) (*AuthUser, error)
	AllowedTransitions(ctx context.Context, id uuid.UUID) ([]LifecycleTransition, error)
	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}
