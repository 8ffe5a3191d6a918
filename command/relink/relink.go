// Package relink provides a cron-friendly command for cross-tool reference backfills.
package relink

import (
	"context"
	"errors"
	"strings"
	"time"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/activity"
	"github.com/inchronicle/go-stories/pkg/types"
)

const (
	// DefaultSchedule is the fallback cron expression when none is configured.
	DefaultSchedule = "30 * * * *"
	// DefaultBatchSize matches the repository default page size.
	DefaultBatchSize = 200
	// MaxBatchSize caps the batch size to protect the linker pipeline.
	MaxBatchSize = 1000
)

const activityRelinkMessageType = "command.activity.relink"

var (
	// ErrMissingHintSource indicates the reference hint source dependency is missing.
	ErrMissingHintSource = errors.New("go-stories: missing reference hint source")
	// ErrMissingCommand indicates the command instance was not provided.
	ErrMissingCommand = errors.New("go-stories: activity relink command required")
)

// HintSource re-derives the unresolved source references for a stored
// activity, typically by re-running the source normalizer over RawData.
type HintSource interface {
	ExtractHints(ctx context.Context, activity types.ToolActivity) ([]types.SourceRef, error)
}

// Config wires the activity relink command dependencies and defaults.
type Config struct {
	Schedule  string
	BatchSize int
	// Lookback bounds how far back scheduled runs scan. Zero means the full
	// history.
	Lookback time.Duration
	// UserID pins scheduled runs to a single user; Nil means all users.
	UserID uuid.UUID
	// Scope defaults scheduled runs; zero scope means global backfill.
	Scope      types.ScopeFilter
	Repository types.ToolActivityRepository
	Hints      HintSource
	Clock      types.Clock
	Logger     types.Logger
}

// Input describes a single relink run.
type Input struct {
	// UserID overrides the configured user for this run.
	UserID uuid.UUID
	// Scope overrides the configured scope for this run.
	Scope     types.ScopeFilter
	BatchSize int
	Since     *time.Time
}

type relinkStats struct {
	Scanned  int
	Relinked int
	Failed   int
	Skipped  int
}

func (s *relinkStats) add(other relinkStats) {
	s.Scanned += other.Scanned
	s.Relinked += other.Relinked
	s.Failed += other.Failed
	s.Skipped += other.Skipped
}

// Type implements gocommand.Message.
func (Input) Type() string {
	return activityRelinkMessageType
}

// Validate implements gocommand.Message.
func (Input) Validate() error {
	return nil
}

// Command schedules and executes cross-tool reference backfills. Hints only
// resolve against activities already imported, so references pointing at
// late arrivals stay dangling until a relink pass revisits them.
type Command struct {
	schedule  string
	batchSize int
	lookback  time.Duration
	userID    uuid.UUID
	scope     types.ScopeFilter
	repo      types.ToolActivityRepository
	hints     HintSource
	clock     types.Clock
	logger    types.Logger
}

// New constructs an activity relink command with the supplied configuration.
func New(cfg Config) *Command {
	schedule := normalizeSchedule(cfg.Schedule)
	batchSize := normalizeBatchSize(cfg.BatchSize)
	lookback := cfg.Lookback
	if lookback < 0 {
		lookback = 0
	}

	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}

	return &Command{
		schedule:  schedule,
		batchSize: batchSize,
		lookback:  lookback,
		userID:    cfg.UserID,
		scope:     cfg.Scope.Clone(),
		repo:      cfg.Repository,
		hints:     cfg.Hints,
		clock:     clock,
		logger:    logger,
	}
}

var _ gocommand.Commander[Input] = (*Command)(nil)
var _ gocommand.CronCommand = (*Command)(nil)

// Execute validates dependencies and runs the backfill.
func (c *Command) Execute(ctx context.Context, input Input) error {
	if c == nil {
		return ErrMissingCommand
	}
	if c.logger == nil {
		c.logger = types.NopLogger{}
	}
	if c.repo == nil {
		return types.ErrMissingActivityRepository
	}
	if c.hints == nil {
		return ErrMissingHintSource
	}
	if err := input.Validate(); err != nil {
		return err
	}
	return c.run(ctx, c.buildFilter(input))
}

// CronHandler implements gocommand.CronCommand.
func (c *Command) CronHandler() func() error {
	return func() error {
		if c == nil {
			return ErrMissingCommand
		}
		input := Input{
			UserID:    c.userID,
			Scope:     c.scope.Clone(),
			BatchSize: c.batchSize,
			Since:     c.since(),
		}
		return c.Execute(context.Background(), input)
	}
}

// CronOptions implements gocommand.CronCommand.
func (c *Command) CronOptions() gocommand.HandlerConfig {
	schedule := DefaultSchedule
	if c != nil {
		schedule = normalizeSchedule(c.schedule)
	}
	return gocommand.HandlerConfig{Expression: schedule}
}

func (c *Command) run(ctx context.Context, filter types.ToolActivityFilter) error {
	if ctx == nil {
		return errors.New("activity relink requires context")
	}
	cursor := filter.Cursor
	summary := relinkStats{}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		filter.Cursor = cursor
		page, err := c.repo.ListActivities(ctx, filter)
		if err != nil {
			return err
		}
		if len(page.Activities) == 0 {
			c.logSummary(summary)
			return nil
		}
		batchStats, err := c.relinkBatch(ctx, page.Activities)
		if err != nil {
			return err
		}
		summary.add(batchStats)
		if !page.HasMore || page.NextCursor == "" {
			c.logSummary(summary)
			return nil
		}
		cursor = page.NextCursor
	}
}

func (c *Command) relinkBatch(ctx context.Context, activities []types.ToolActivity) (relinkStats, error) {
	stats := relinkStats{}
	linker := &activity.CrossRefLinker{Repo: c.repo}
	for _, record := range activities {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Scanned++
		hints, err := c.hints.ExtractHints(ctx, record)
		if err != nil {
			stats.Failed++
			c.logger.Error(
				"activity relink hint extraction failed",
				err,
				"activity_id", record.ID,
				"user_id", record.UserID,
				"source", record.Source,
				"source_id", record.SourceID,
			)
			continue
		}
		if len(hints) == 0 {
			stats.Skipped++
			continue
		}
		record.RefHints = hints
		linked, err := linker.Enrich(ctx, record)
		if err != nil {
			stats.Failed++
			c.logger.Error("activity relink resolution failed", err, "activity_id", record.ID, "user_id", record.UserID)
			continue
		}
		if len(linked.CrossToolRefs) == len(record.CrossToolRefs) {
			stats.Skipped++
			continue
		}
		if _, _, err := c.repo.UpsertActivity(ctx, linked); err != nil {
			stats.Failed++
			c.logger.Error("activity relink persist failed", err, "activity_id", record.ID, "user_id", record.UserID)
			continue
		}
		stats.Relinked++
	}
	return stats, nil
}

func (c *Command) buildFilter(input Input) types.ToolActivityFilter {
	userID := input.UserID
	if userID == uuid.Nil {
		userID = c.userID
	}
	since := input.Since
	if since == nil {
		since = c.since()
	}
	return types.ToolActivityFilter{
		UserID: userID,
		Scope:  resolveScope(input.Scope, c.scope),
		Since:  since,
		Pagination: types.Pagination{
			Limit: resolveBatchSize(input.BatchSize, c.batchSize),
		},
	}
}

func (c *Command) since() *time.Time {
	if c == nil || c.lookback <= 0 {
		return nil
	}
	now := time.Now().UTC()
	if c.clock != nil {
		now = c.clock.Now().UTC()
	}
	since := now.Add(-c.lookback)
	return &since
}

func (c *Command) logSummary(summary relinkStats) {
	if c == nil || c.logger == nil {
		return
	}
	c.logger.Info(
		"activity relink summary",
		"scanned", summary.Scanned,
		"relinked", summary.Relinked,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)
}

func resolveScope(input, fallback types.ScopeFilter) types.ScopeFilter {
	if !isScopeEmpty(input) {
		return input.Clone()
	}
	return fallback.Clone()
}

func isScopeEmpty(scope types.ScopeFilter) bool {
	return scope.TenantID == uuid.Nil && scope.WorkspaceID == uuid.Nil && len(scope.Labels) == 0
}

func resolveBatchSize(input, fallback int) int {
	if input > 0 {
		return normalizeBatchSize(input)
	}
	if fallback > 0 {
		return normalizeBatchSize(fallback)
	}
	return DefaultBatchSize
}

func normalizeBatchSize(batchSize int) int {
	if batchSize <= 0 {
		return DefaultBatchSize
	}
	if batchSize > MaxBatchSize {
		return MaxBatchSize
	}
	return batchSize
}

func normalizeSchedule(schedule string) string {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		return DefaultSchedule
	}
	return schedule
}
