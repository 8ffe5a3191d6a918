package types

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// PolicyAction names a permission the scope guard checks before a command
// runs. Hosts are free to translate these into their own ACL vocabulary.
type PolicyAction string

const (
	PolicyActionUsersRead        PolicyAction = "users:read"
	PolicyActionUsersWrite       PolicyAction = "users:write"
	PolicyActionActivitiesRead   PolicyAction = "activities:read"
	PolicyActionActivitiesWrite  PolicyAction = "activities:write"
	PolicyActionClustersRead     PolicyAction = "clusters:read"
	PolicyActionClustersWrite    PolicyAction = "clusters:write"
	PolicyActionStarsGenerate    PolicyAction = "stars:generate"
	PolicyActionStoriesRead      PolicyAction = "stories:read"
	PolicyActionStoriesWrite     PolicyAction = "stories:write"
	PolicyActionStoriesPublish   PolicyAction = "stories:publish"
	PolicyActionJournalRead      PolicyAction = "journal:read"
	PolicyActionJournalWrite     PolicyAction = "journal:write"
	PolicyActionWalletRead       PolicyAction = "wallet:read"
	PolicyActionWalletWrite      PolicyAction = "wallet:write"
	PolicyActionNetworkRead      PolicyAction = "network:read"
	PolicyActionNetworkWrite     PolicyAction = "network:write"
	PolicyActionWorkspacesRead   PolicyAction = "workspaces:read"
	PolicyActionWorkspacesWrite  PolicyAction = "workspaces:write"
	PolicyActionOnboardingRead   PolicyAction = "onboarding:read"
	PolicyActionOnboardingWrite  PolicyAction = "onboarding:write"
	PolicyActionProfilesRead     PolicyAction = "profiles:read"
	PolicyActionProfilesWrite    PolicyAction = "profiles:write"
	PolicyActionAuditRead        PolicyAction = "audit:read"
)

// PolicyCheck bundles everything a policy needs to decide one request.
type PolicyCheck struct {
	Actor    ActorRef
	Scope    ScopeFilter
	Action   PolicyAction
	TargetID uuid.UUID
}

// ScopeResolver resolves requested scopes into canonical tenant/workspace
// values based on the actor and host application rules.
type ScopeResolver interface {
	ResolveScope(ctx context.Context, actor ActorRef, requested ScopeFilter) (ScopeFilter, error)
}

// ScopeResolverFunc lets a plain function act as a ScopeResolver.
type ScopeResolverFunc func(ctx context.Context, actor ActorRef, requested ScopeFilter) (ScopeFilter, error)

// ResolveScope calls the wrapped function.
func (f ScopeResolverFunc) ResolveScope(ctx context.Context, actor ActorRef, requested ScopeFilter) (ScopeFilter, error) {
	return f(ctx, actor, requested)
}

// AuthorizationPolicy decides whether the actor may perform the action
// against the given scope.
type AuthorizationPolicy interface {
	Authorize(ctx context.Context, check PolicyCheck) error
}

// AuthorizationPolicyFunc lets a plain function act as an AuthorizationPolicy.
type AuthorizationPolicyFunc func(ctx context.Context, check PolicyCheck) error

// Authorize calls the wrapped function.
func (f AuthorizationPolicyFunc) Authorize(ctx context.Context, check PolicyCheck) error {
	return f(ctx, check)
}

var (
	// ErrUnauthorizedScope means the policy decided the actor cannot see or
	// touch the requested tenant/workspace.
	ErrUnauthorizedScope = errors.New("go-stories: actor not authorized for scope")
)

// PassthroughScopeResolver hands the requested scope back untouched. It is
// the fallback when a host wires no resolver of its own.
type PassthroughScopeResolver struct{}

// ResolveScope returns the requested scope unchanged.
func (PassthroughScopeResolver) ResolveScope(_ context.Context, _ ActorRef, requested ScopeFilter) (ScopeFilter, error) {
	return requested, nil
}

// AllowAllAuthorizationPolicy accepts everything. Demo and test wiring only.
type AllowAllAuthorizationPolicy struct{}

// Authorize always succeeds.
func (AllowAllAuthorizationPolicy) Authorize(context.Context, PolicyCheck) error {
	return nil
}
