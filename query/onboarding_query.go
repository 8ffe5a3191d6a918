package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/onboarding"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

// OnboardingStatusInput identifies whose session to resolve. Keys narrows the
// effective payload to the listed fields; empty means all.
type OnboardingStatusInput struct {
	UserID uuid.UUID
	Keys   []string
	Scope  types.ScopeFilter
	Actor  types.ActorRef
}

// Type implements gocommand.Message.
func (OnboardingStatusInput) Type() string {
	return "query.onboarding.status"
}

// Validate implements gocommand.Message.
func (input OnboardingStatusInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return types.ErrActorRequired
	case input.UserID == uuid.Nil:
		return types.ErrUserIDRequired
	default:
		return nil
	}
}

// OnboardingStatus is the wizard view: the stored session, the effective
// payload after fallback and default layering, and per-step progress.
type OnboardingStatus struct {
	Record    *types.OnboardingRecord
	Effective map[string]any
	Steps     []onboarding.StepState
}

// OnboardingStatusQuery resolves the onboarding session for progress
// rendering.
type OnboardingStatusQuery struct {
	manager *onboarding.Manager
	guard   scope.Guard
}

// NewOnboardingStatusQuery constructs the status query helper.
func NewOnboardingStatusQuery(manager *onboarding.Manager, guard scope.Guard) *OnboardingStatusQuery {
	return &OnboardingStatusQuery{
		manager: manager,
		guard:   safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[OnboardingStatusInput, OnboardingStatus] = (*OnboardingStatusQuery)(nil)

// Query resolves the session and step states.
func (q *OnboardingStatusQuery) Query(ctx context.Context, input OnboardingStatusInput) (OnboardingStatus, error) {
	if q.manager == nil {
		return OnboardingStatus{}, types.ErrMissingOnboardingStore
	}
	if err := input.Validate(); err != nil {
		return OnboardingStatus{}, err
	}
	if _, err := q.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionOnboardingRead, input.UserID); err != nil {
		return OnboardingStatus{}, err
	}

	snapshot, err := q.manager.Resolve(ctx, onboarding.ResolveInput{
		UserID: input.UserID,
		Keys:   input.Keys,
	})
	if err != nil {
		return OnboardingStatus{}, err
	}
	steps, err := q.manager.Steps(ctx, input.UserID)
	if err != nil {
		return OnboardingStatus{}, err
	}
	return OnboardingStatus{
		Record:    snapshot.Record,
		Effective: snapshot.Effective,
		Steps:     steps,
	}, nil
}
