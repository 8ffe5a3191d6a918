package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/demodata"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

// DemoSeeder provisions the demo dataset for a user. *demodata.Seeder is the
// production implementation.
type DemoSeeder interface {
	Seed(ctx context.Context, userID uuid.UUID, scope types.ScopeFilter) (*demodata.Summary, error)
}

// SeedDemoDataConfig wires the demo seeding command.
type SeedDemoDataConfig struct {
	Seeder     DemoSeeder
	Gate       featuregate.FeatureGate
	Clock      types.Clock
	Audit      types.AuditSink
	Hooks      types.Hooks
	ScopeGuard scope.Guard
}

// SeedDemoDataInput provisions demo activities, clusters, and draft stories
// for a user exploring the product without connected tools.
type SeedDemoDataInput struct {
	UserID uuid.UUID
	Actor  types.ActorRef
	Scope  types.ScopeFilter
	Result *SeedDemoDataResult
}

// Type implements gocommand.Message.
func (SeedDemoDataInput) Type() string {
	return "command.demo.seed"
}

// Validate implements gocommand.Message.
func (input SeedDemoDataInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	default:
		return nil
	}
}

// SeedDemoDataResult reports what the seeding pass wrote.
type SeedDemoDataResult struct {
	Summary *demodata.Summary
}

// SeedDemoDataCommand runs the demo seeder behind the demo feature gate.
// Seeding twice for the same user is a no-op beyond the audit entry.
type SeedDemoDataCommand struct {
	seeder DemoSeeder
	gate   featuregate.FeatureGate
	clock  types.Clock
	sink   types.AuditSink
	hooks  types.Hooks
	guard  scope.Guard
}

// NewSeedDemoDataCommand constructs the demo seeding handler.
func NewSeedDemoDataCommand(cfg SeedDemoDataConfig) *SeedDemoDataCommand {
	return &SeedDemoDataCommand{
		seeder: cfg.Seeder,
		gate:   cfg.Gate,
		clock:  safeClock(cfg.Clock),
		sink:   safeAuditSink(cfg.Audit),
		hooks:  safeHooks(cfg.Hooks),
		guard:  safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[SeedDemoDataInput] = (*SeedDemoDataCommand)(nil)

// Execute seeds the fixture and records the pass.
func (c *SeedDemoDataCommand) Execute(ctx context.Context, input SeedDemoDataInput) error {
	if c.seeder == nil {
		return ErrSeederRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionActivitiesWrite, input.UserID)
	if err != nil {
		return err
	}
	enabled, err := featureEnabled(ctx, c.gate, featureDemoEnabled, scopeFilter, input.UserID)
	if err != nil {
		return err
	}
	if !enabled {
		return ErrDemoDisabled
	}

	summary, err := c.seeder.Seed(ctx, input.UserID, scopeFilter)
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "demo.seeded",
		ObjectType:  "demo_dataset",
		ObjectID:    input.UserID.String(),
		Channel:     "demo",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data: map[string]any{
			"activities_created": summary.ActivitiesCreated,
			"clusters_created":   summary.ClustersCreated,
			"stories_created":    summary.StoriesCreated,
		},
		OccurredAt: now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Summary = summary
	}
	return nil
}
