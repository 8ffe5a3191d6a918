package command

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/inchronicle/go-stories/pkg/types"
)

// AuditLogInput wraps a record to persist through the AuditSink.
type AuditLogInput struct {
	Record types.AuditRecord
}

// Type implements gocommand.Message.
func (AuditLogInput) Type() string {
	return "command.audit.log"
}

// Validate implements gocommand.Message.
func (input AuditLogInput) Validate() error {
	if strings.TrimSpace(input.Record.Verb) == "" {
		return ErrAuditVerbRequired
	}
	return nil
}

// AuditLogCommand logs arbitrary audit records.
type AuditLogCommand struct {
	sink  types.AuditSink
	hooks types.Hooks
	clock types.Clock
}

// AuditLogConfig wires dependencies for the log command.
type AuditLogConfig struct {
	Sink  types.AuditSink
	Hooks types.Hooks
	Clock types.Clock
}

// NewAuditLogCommand constructs the logging command handler.
func NewAuditLogCommand(cfg AuditLogConfig) *AuditLogCommand {
	return &AuditLogCommand{
		sink:  cfg.Sink,
		hooks: cfg.Hooks,
		clock: safeClock(cfg.Clock),
	}
}

var _ gocommand.Commander[AuditLogInput] = (*AuditLogCommand)(nil)

// Execute validates and persists the supplied record.
func (c *AuditLogCommand) Execute(ctx context.Context, input AuditLogInput) error {
	if c.sink == nil {
		return types.ErrMissingAuditSink
	}
	if err := input.Validate(); err != nil {
		return err
	}
	record := input.Record
	if record.OccurredAt.IsZero() {
		record.OccurredAt = now(c.clock)
	}
	if err := c.sink.Log(ctx, record); err != nil {
		return err
	}
	emitAuditHook(ctx, c.hooks, record)
	return nil
}
