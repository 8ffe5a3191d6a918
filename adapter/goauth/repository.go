package goauth

import (
	"context"
	"maps"

	auth "github.com/goliatone/go-auth"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

// UsersAdapter exposes a go-auth Users repository through the AuthRepository
// contract the account commands depend on, including lifecycle transitions
// driven by the upstream state machine.
type UsersAdapter struct {
	repo   auth.Users
	sm     auth.UserStateMachine
	policy types.TransitionPolicy[types.LifecycleState]
}

// NewUsersAdapter builds an adapter over the given repository. By default
// lifecycle transitions are validated with the stock account policy; supply
// WithPolicy to substitute stricter rules.
func NewUsersAdapter(repo auth.Users, opts ...UsersAdapterOption) *UsersAdapter {
	out := &UsersAdapter{
		repo:   repo,
		sm:     auth.NewUserStateMachine(repo),
		policy: types.DefaultAccountTransitionPolicy(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(out)
		}
	}
	return out
}

// UsersAdapterOption tweaks adapter construction.
type UsersAdapterOption func(*UsersAdapter)

// WithPolicy swaps in a different transition policy.
func WithPolicy(policy types.TransitionPolicy[types.LifecycleState]) UsersAdapterOption {
	return func(out *UsersAdapter) {
		if policy != nil {
			out.policy = policy
		}
	}
}

var _ types.AuthRepository = (*UsersAdapter)(nil)

// load fetches the raw upstream record for an account ID.
func (a *UsersAdapter) load(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return a.repo.GetByID(ctx, id.String())
}

// GetByID fetches a user by its UUID.
func (a *UsersAdapter) GetByID(ctx context.Context, id uuid.UUID) (*types.AuthUser, error) {
	row, err := a.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDomainUser(row), nil
}

// GetByIdentifier loads a user by email, username, or UUID string.
func (a *UsersAdapter) GetByIdentifier(ctx context.Context, identifier string) (*types.AuthUser, error) {
	row, err := a.repo.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return toDomainUser(row), nil
}

// Create persists a new account through the upstream repository.
func (a *UsersAdapter) Create(ctx context.Context, input *types.AuthUser) (*types.AuthUser, error) {
	created, err := a.repo.Create(ctx, toGoAuthUser(input))
	if err != nil {
		return nil, err
	}
	return toDomainUser(created), nil
}

// Update persists account edits through the upstream repository.
func (a *UsersAdapter) Update(ctx context.Context, input *types.AuthUser) (*types.AuthUser, error) {
	updated, err := a.repo.Update(ctx, toGoAuthUser(input))
	if err != nil {
		return nil, err
	}
	return toDomainUser(updated), nil
}

// UpdateStatus moves the account to the next lifecycle state. The local
// policy gets the first veto; the upstream state machine then performs the
// transition and writes its own audit trail.
func (a *UsersAdapter) UpdateStatus(ctx context.Context, actor types.ActorRef, id uuid.UUID, next types.LifecycleState, opts ...types.TransitionOption) (*types.AuthUser, error) {
	row, err := a.load(ctx, id)
	if err != nil {
		return nil, err
	}

	cfg := collectTransitionConfig(opts...)
	if a.policy != nil && !cfg.Force {
		if err := a.policy.Validate(types.LifecycleState(row.Status), next); err != nil {
			return nil, err
		}
	}

	upstream := auth.ActorRef{ID: actor.ID.String(), Type: actor.Type}
	updated, err := a.sm.Transition(ctx, upstream, row, auth.UserStatus(next), transitionOptions(cfg)...)
	if err != nil {
		return nil, err
	}
	return toDomainUser(updated), nil
}

// AllowedTransitions lists the lifecycle states reachable from the account's
// current state under the configured policy.
func (a *UsersAdapter) AllowedTransitions(ctx context.Context, id uuid.UUID) ([]types.LifecycleTransition, error) {
	row, err := a.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.policy == nil {
		return nil, nil
	}

	from := types.LifecycleState(row.Status)
	targets := a.policy.AllowedTargets(from)
	out := make([]types.LifecycleTransition, 0, len(targets))
	for _, to := range targets {
		out = append(out, types.LifecycleTransition{From: from, To: to})
	}
	return out, nil
}

// ResetPassword swaps the stored hash through the upstream repository.
func (a *UsersAdapter) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.repo.ResetPassword(ctx, id, passwordHash)
}

func toDomainUser(row *auth.User) *types.AuthUser {
	if row == nil {
		return nil
	}
	return &types.AuthUser{
		ID:        row.ID,
		Role:      string(row.Role),
		Status:    types.LifecycleState(row.Status),
		Email:     row.Email,
		Username:  row.Username,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		Metadata:  copyMetadata(row.Metadata),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		Raw:       row,
	}
}

// toGoAuthUser prefers the Raw record captured on load so fields the domain
// type does not model (password hash, login timestamps) survive a roundtrip.
func toGoAuthUser(user *types.AuthUser) *auth.User {
	if user == nil {
		return nil
	}
	out := &auth.User{}
	if raw, ok := user.Raw.(*auth.User); ok && raw != nil {
		clone := *raw
		out = &clone
	}
	out.ID = user.ID
	out.Role = auth.UserRole(user.Role)
	out.Status = auth.UserStatus(user.Status)
	out.Email = user.Email
	out.Username = user.Username
	out.FirstName = user.FirstName
	out.LastName = user.LastName
	out.Metadata = copyMetadata(user.Metadata)
	return out
}

func transitionOptions(cfg types.TransitionConfig) []auth.TransitionOption {
	out := make([]auth.TransitionOption, 0, 3)
	if cfg.Reason != "" {
		out = append(out, auth.WithTransitionReason(cfg.Reason))
	}
	if len(cfg.Metadata) > 0 {
		out = append(out, auth.WithTransitionMetadata(cfg.Metadata))
	}
	if cfg.Force {
		out = append(out, auth.WithForceTransition())
	}
	return out
}

func collectTransitionConfig(opts ...types.TransitionOption) types.TransitionConfig {
	var cfg types.TransitionConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func copyMetadata(origin map[string]any) map[string]any {
	if len(origin) == 0 {
		return nil
	}
	return maps.Clone(origin)
}
