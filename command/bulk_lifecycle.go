package command

import (
	"context"
	"errors"
	"fmt"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

// BulkUserTransitionInput moves a batch of users to the same lifecycle state.
type BulkUserTransitionInput struct {
	UserIDs     []uuid.UUID
	Target      types.LifecycleState
	Actor       types.ActorRef
	Reason      string
	Metadata    map[string]any
	Scope       types.ScopeFilter
	StopOnError bool
	Results     *[]BulkUserTransitionResult
}

// Type implements gocommand.Message.
func (BulkUserTransitionInput) Type() string {
	return "command.user.lifecycle.bulk"
}

// Validate implements gocommand.Message.
func (input BulkUserTransitionInput) Validate() error {
	if len(input.UserIDs) == 0 {
		return ErrUserIDsRequired
	}
	if input.Actor.ID == uuid.Nil {
		return ErrActorRequired
	}
	if input.Target == "" {
		return ErrLifecycleTargetRequired
	}
	return nil
}

// BulkUserTransitionResult reports the per-user outcome of a batch run.
type BulkUserTransitionResult struct {
	UserID uuid.UUID
	Err    error
}

// BulkUserTransitionCommand fans a lifecycle change out over many users by
// delegating each one to the single-user command, so policy and audit
// behavior stay identical between single and batch paths.
type BulkUserTransitionCommand struct {
	lifecycle *UserLifecycleTransitionCommand
}

// NewBulkUserTransitionCommand wires the bulk handler.
func NewBulkUserTransitionCommand(lifecycle *UserLifecycleTransitionCommand) *BulkUserTransitionCommand {
	return &BulkUserTransitionCommand{
		lifecycle: lifecycle,
	}
}

var _ gocommand.Commander[BulkUserTransitionInput] = (*BulkUserTransitionCommand)(nil)

// Execute transitions users one at a time in input order. With StopOnError
// unset, every user is attempted and the failures come back joined; with it
// set, the run halts at the first failure.
func (c *BulkUserTransitionCommand) Execute(ctx context.Context, input BulkUserTransitionInput) error {
	if c == nil || c.lifecycle == nil {
		return types.ErrMissingAuthRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}

	var errs []error
	results := make([]BulkUserTransitionResult, 0, len(input.UserIDs))
	for _, id := range input.UserIDs {
		err := c.transitionOne(ctx, id, input)
		results = append(results, BulkUserTransitionResult{UserID: id, Err: err})
		if err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", id, err))
			if input.StopOnError {
				break
			}
		}
	}

	if input.Results != nil {
		*input.Results = append((*input.Results)[:0], results...)
	}
	return errors.Join(errs...)
}

func (c *BulkUserTransitionCommand) transitionOne(ctx context.Context, id uuid.UUID, input BulkUserTransitionInput) error {
	return c.lifecycle.Execute(ctx, UserLifecycleTransitionInput{
		UserID:   id,
		Target:   input.Target,
		Actor:    input.Actor,
		Reason:   input.Reason,
		Metadata: input.Metadata,
		Scope:    input.Scope,
	})
}
