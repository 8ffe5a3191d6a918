package command

import (
	"context"
	"fmt"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
	"github.com/inchronicle/go-stories/story"
)

// GenerateStarInput synthesizes a narrative preview from a cluster.
type GenerateStarInput struct {
	UserID    uuid.UUID
	ClusterID uuid.UUID
	Options   types.SynthesisOptions
	Actor     types.ActorRef
	Scope     types.ScopeFilter
	Result    *GenerateStarResult
}

// Type implements gocommand.Message.
func (GenerateStarInput) Type() string {
	return "command.star.generate"
}

// Validate implements gocommand.Message.
func (input GenerateStarInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case input.ClusterID == uuid.Nil:
		return ErrClusterIDRequired
	default:
		return nil
	}
}

// GenerateStarResult exposes the scored narrative and its validation
// verdict. Nothing is persisted; the caller decides whether to keep it.
type GenerateStarResult struct {
	Star       *types.ScoredStar
	Validation types.StarValidation
}

// GenerateStarConfig holds dependencies for narrative previews. Wallet and
// StarCost are optional; when both are set every preview is metered the same
// way story generation is.
type GenerateStarConfig struct {
	Synthesizer types.StarSynthesizer
	Clusters    types.ClusterRepository
	Activities  types.ToolActivityRepository
	Wallet      types.WalletRepository
	StarCost    int64
	Clock       types.Clock
	Audit       types.AuditSink
	Hooks       types.Hooks
	ScopeGuard  scope.Guard
}

// GenerateStarCommand runs synthesis over a cluster without creating a
// story. The preview carries the same confidence scores and validation the
// generate flow would persist.
type GenerateStarCommand struct {
	synthesizer types.StarSynthesizer
	clusters    types.ClusterRepository
	activities  types.ToolActivityRepository
	wallet      types.WalletRepository
	starCost    int64
	clock       types.Clock
	sink        types.AuditSink
	hooks       types.Hooks
	guard       scope.Guard
}

// NewGenerateStarCommand constructs the preview handler.
func NewGenerateStarCommand(cfg GenerateStarConfig) *GenerateStarCommand {
	return &GenerateStarCommand{
		synthesizer: cfg.Synthesizer,
		clusters:    cfg.Clusters,
		activities:  cfg.Activities,
		wallet:      cfg.Wallet,
		starCost:    cfg.StarCost,
		clock:       safeClock(cfg.Clock),
		sink:        safeAuditSink(cfg.Audit),
		hooks:       safeHooks(cfg.Hooks),
		guard:       safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[GenerateStarInput] = (*GenerateStarCommand)(nil)

// Execute synthesizes the narrative, debiting the wallet when metering is
// configured.
func (c *GenerateStarCommand) Execute(ctx context.Context, input GenerateStarInput) error {
	if c.synthesizer == nil {
		return types.ErrMissingSynthesizer
	}
	if c.clusters == nil {
		return types.ErrMissingClusterRepository
	}
	if c.activities == nil {
		return types.ErrMissingActivityRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionStarsGenerate, input.UserID)
	if err != nil {
		return err
	}

	target, err := c.clusters.GetClusterByID(ctx, input.UserID, input.ClusterID)
	if err != nil {
		return err
	}
	members, err := c.activities.ListActivitiesByIDs(ctx, input.UserID, target.ActivityIDs)
	if err != nil {
		return err
	}

	if c.wallet != nil && c.starCost > 0 {
		if _, err := c.wallet.ApplyTransaction(ctx, types.WalletTransaction{
			UserID:    input.UserID,
			Kind:      types.TransactionDebit,
			Amount:    c.starCost,
			Reason:    story.WalletReasonStarGeneration,
			Reference: fmt.Sprintf("star:%s:%d", input.ClusterID, now(c.clock).UnixNano()),
		}); err != nil {
			return err
		}
	}

	scored, err := c.synthesizer.Synthesize(ctx, *target, members, input.Options)
	if err != nil {
		return err
	}
	scored.Validation = c.synthesizer.Validate(*scored, *target)

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "star.generated",
		ObjectType:  "cluster",
		ObjectID:    input.ClusterID.String(),
		Channel:     "stories",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data: map[string]any{
			"confidence": scored.OverallConfidence,
			"passed":     scored.Validation.Passed,
		},
		OccurredAt: now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Star = scored
		input.Result.Validation = scored.Validation
	}
	return nil
}
