package authctx

import (
	"context"

	auth "github.com/goliatone/go-auth"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

const (
	textCodeActorMissing = "ACTOR_CONTEXT_MISSING"
	textCodeActorInvalid = "ACTOR_CONTEXT_INVALID"
)

func unauthorized(msg, textCode string) error {
	return errors.New(msg, errors.CategoryAuth).
		WithCode(errors.CodeUnauthorized).
		WithTextCode(textCode)
}

// ActorFromContext re-exports the go-auth lookup so callers that only need
// the actor payload can skip the auth import.
func ActorFromContext(ctx context.Context) (*auth.ActorContext, bool) {
	return auth.ActorFromContext(ctx)
}

// ActorFromRouterContext reads the actor payload stored on a router context.
func ActorFromRouterContext(ctx router.Context) (*auth.ActorContext, bool) {
	return auth.ActorFromRouterContext(ctx)
}

// ResolveActorContext finds the actor metadata that auth middleware stored,
// falling back to rebuilding it from JWT claims for deployments that never
// configured the ContextEnricher hook.
func ResolveActorContext(ctx context.Context) (*auth.ActorContext, error) {
	if ctx == nil {
		return nil, unauthorized("go-stories: missing request context", textCodeActorMissing)
	}
	if actor, ok := auth.ActorFromContext(ctx); ok && actor != nil {
		return actor, nil
	}
	if claims, ok := auth.GetClaims(ctx); ok && claims != nil {
		if actor := auth.ActorContextFromClaims(claims); actor != nil {
			return actor, nil
		}
	}
	return nil, unauthorized("go-stories: auth actor context not found on request", textCodeActorMissing)
}

// ResolveActorContextFromRouter is ResolveActorContext for router transports,
// checking the router-scoped store before the underlying request context.
func ResolveActorContextFromRouter(ctx router.Context) (*auth.ActorContext, error) {
	if ctx == nil {
		return nil, unauthorized("go-stories: missing router context", textCodeActorMissing)
	}
	if actor, ok := auth.ActorFromRouterContext(ctx); ok && actor != nil {
		return actor, nil
	}
	return ResolveActorContext(ctx.Context())
}

// ResolveActor returns the compact ActorRef used by commands alongside the
// full auth payload for transports that need tenant or workspace metadata.
func ResolveActor(ctx context.Context) (types.ActorRef, *auth.ActorContext, error) {
	actorCtx, err := ResolveActorContext(ctx)
	if err != nil {
		return types.ActorRef{}, nil, err
	}
	ref, err := ActorRefFromActorContext(actorCtx)
	if err != nil {
		return types.ActorRef{}, nil, err
	}
	return ref, actorCtx, nil
}

// ActorRefFromActorContext narrows the middleware payload down to the
// ActorRef commands operate on. The actor id must be a UUID.
func ActorRefFromActorContext(actor *auth.ActorContext) (types.ActorRef, error) {
	if actor == nil {
		return types.ActorRef{}, unauthorized("go-stories: actor context is nil", textCodeActorInvalid)
	}
	if actor.ActorID == "" {
		return types.ActorRef{}, unauthorized("go-stories: actor context missing actor_id", textCodeActorInvalid)
	}

	actorID, err := uuid.Parse(actor.ActorID)
	if err != nil {
		return types.ActorRef{}, errors.Wrap(err, errors.CategoryAuth, "go-stories: invalid actor_id on auth context").
			WithCode(errors.CodeUnauthorized).
			WithTextCode(textCodeActorInvalid)
	}

	ref := types.ActorRef{ID: actorID, Type: actor.Role}
	if ref.Type == "" && actor.Subject != "" {
		ref.Type = actor.Subject
	}
	return ref, nil
}

// ScopeFromActorContext lifts tenant and workspace identifiers off the auth
// payload. Workspaces ride on the organization slot, since the auth layer
// predates the workspace naming.
func ScopeFromActorContext(actor *auth.ActorContext) types.ScopeFilter {
	if actor == nil {
		return types.ScopeFilter{}
	}
	return types.ScopeFilter{
		TenantID:    parseUUID(actor.TenantID),
		WorkspaceID: parseUUID(actor.OrganizationID),
	}
}

func parseUUID(raw string) uuid.UUID {
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}
