package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

// ProfileCommandConfig wires the dependencies for profile commands.
type ProfileCommandConfig struct {
	Repository types.ProfileRepository
	Clock      types.Clock
	Audit      types.AuditSink
	Hooks      types.Hooks
	ScopeGuard scope.Guard
}

// UpsertProfileInput applies a partial profile update for a user.
type UpsertProfileInput struct {
	UserID uuid.UUID
	Patch  types.ProfilePatch
	Actor  types.ActorRef
	Scope  types.ScopeFilter
	Result *types.UserProfile
}

// Type implements gocommand.Message.
func (UpsertProfileInput) Type() string {
	return "command.profile.upsert"
}

// Validate implements gocommand.Message.
func (input UpsertProfileInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	default:
		return nil
	}
}

// UpsertProfileCommand merges a patch into the stored profile, creating the
// record on first write. Unset patch fields leave the stored value alone.
type UpsertProfileCommand struct {
	repo  types.ProfileRepository
	clock types.Clock
	sink  types.AuditSink
	hooks types.Hooks
	guard scope.Guard
}

// NewUpsertProfileCommand constructs the upsert handler.
func NewUpsertProfileCommand(cfg ProfileCommandConfig) *UpsertProfileCommand {
	return &UpsertProfileCommand{
		repo:  cfg.Repository,
		clock: safeClock(cfg.Clock),
		sink:  safeAuditSink(cfg.Audit),
		hooks: safeHooks(cfg.Hooks),
		guard: safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[UpsertProfileInput] = (*UpsertProfileCommand)(nil)

// Execute loads the current profile, applies the patch, and persists the
// merged record.
func (c *UpsertProfileCommand) Execute(ctx context.Context, input UpsertProfileInput) error {
	if c.repo == nil {
		return types.ErrMissingProfileRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionProfilesWrite, input.UserID)
	if err != nil {
		return err
	}

	existing, err := c.repo.GetProfile(ctx, input.UserID, scopeFilter)
	if err != nil {
		return err
	}

	profile := types.UserProfile{UserID: input.UserID, Scope: scopeFilter}
	if existing != nil {
		profile = *existing
	}
	if profile.CreatedBy == uuid.Nil {
		profile.CreatedBy = input.Actor.ID
	}
	profile.UpdatedBy = input.Actor.ID

	applyProfilePatch(&profile, input.Patch)

	updated, err := c.repo.UpsertProfile(ctx, profile)
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      updated.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "profile.updated",
		ObjectType:  "profile",
		ObjectID:    updated.UserID.String(),
		Channel:     "profiles",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data:        map[string]any{"display_name": updated.DisplayName},
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	emitProfileHook(ctx, c.hooks, types.ProfileEvent{
		UserID:     updated.UserID,
		Scope:      scopeFilter,
		ActorID:    input.Actor.ID,
		OccurredAt: now(c.clock),
		Profile:    *updated,
	})

	if input.Result != nil {
		*input.Result = *updated
	}
	return nil
}

func applyProfilePatch(profile *types.UserProfile, patch types.ProfilePatch) {
	if patch.DisplayName != nil {
		profile.DisplayName = *patch.DisplayName
	}
	if patch.Headline != nil {
		profile.Headline = *patch.Headline
	}
	if patch.AvatarURL != nil {
		profile.AvatarURL = *patch.AvatarURL
	}
	if patch.Locale != nil {
		profile.Locale = *patch.Locale
	}
	if patch.Timezone != nil {
		profile.Timezone = *patch.Timezone
	}
	if patch.Bio != nil {
		profile.Bio = *patch.Bio
	}
	if patch.Skills != nil {
		profile.Skills = append([]string{}, patch.Skills...)
	}
	if patch.Links != nil {
		profile.Links = cloneMap(patch.Links)
	}
	if patch.Metadata != nil {
		profile.Metadata = cloneMap(patch.Metadata)
	}
}
