package scope

import (
	"context"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

// Guard narrows a requested scope through the resolver and then checks the
// action against the authorization policy. Every command and query funnels
// its scope handling through this seam.
type Guard interface {
	Enforce(ctx context.Context, actor types.ActorRef, requested types.ScopeFilter, action types.PolicyAction, target uuid.UUID) (types.ScopeFilter, error)
}

type guard struct {
	resolver types.ScopeResolver
	policy   types.AuthorizationPolicy
}

// NewGuard builds a Guard from the supplied resolver and policy. Either may
// be nil, in which case that half of the check is skipped.
func NewGuard(resolver types.ScopeResolver, policy types.AuthorizationPolicy) Guard {
	return guard{
		resolver: resolver,
		policy:   policy,
	}
}

// Ensure returns a usable guard even when handed nil, so constructors that
// take an optional guard never have to branch.
func Ensure(g Guard) Guard {
	if g == nil {
		return guard{}
	}
	return g
}

// NopGuard returns a guard that passes scopes through untouched and never
// denies.
func NopGuard() Guard {
	return guard{}
}

// Enforce resolves the effective scope, then authorizes the action within it.
// The zero action skips the policy check, which lets internal maintenance
// paths reuse the resolver without inventing a policy verb.
func (g guard) Enforce(ctx context.Context, actor types.ActorRef, requested types.ScopeFilter, action types.PolicyAction, target uuid.UUID) (types.ScopeFilter, error) {
	scope := requested
	if g.resolver != nil {
		resolved, err := g.resolver.ResolveScope(ctx, actor, requested)
		if err != nil {
			return types.ScopeFilter{}, err
		}
		scope = resolved
	}

	if g.policy == nil || action == "" {
		return scope, nil
	}

	check := types.PolicyCheck{
		Actor:    actor,
		Scope:    scope,
		Action:   action,
		TargetID: target,
	}
	if err := g.policy.Authorize(ctx, check); err != nil {
		return types.ScopeFilter{}, err
	}
	return scope, nil
}
