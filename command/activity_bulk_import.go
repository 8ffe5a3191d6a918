package command

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

// BulkImportActivitiesInput applies activity imports in bulk, one webhook
// batch or export file at a time.
type BulkImportActivitiesInput struct {
	Activities      []types.ToolActivity
	Actor           types.ActorRef
	Scope           types.ScopeFilter
	ContinueOnError bool
	Results         *[]BulkImportActivityResult
}

// Type implements gocommand.Message.
func (BulkImportActivitiesInput) Type() string {
	return "command.activity.import.bulk"
}

// Validate implements gocommand.Message.
func (input BulkImportActivitiesInput) Validate() error {
	switch {
	case len(input.Activities) == 0:
		return ErrActivitiesRequired
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	default:
		return nil
	}
}

// BulkImportActivityResult captures the outcome for a single record.
type BulkImportActivityResult struct {
	Index      int
	ActivityID uuid.UUID
	Source     types.ActivitySource
	SourceID   string
	Created    bool
	Err        error
}

// BulkImportActivitiesCommand imports activities in bulk, reusing the single
// import command per record.
type BulkImportActivitiesCommand struct {
	importCmd *ImportActivityCommand
}

// NewBulkImportActivitiesCommand constructs the bulk import handler.
func NewBulkImportActivitiesCommand(importCmd *ImportActivityCommand) *BulkImportActivitiesCommand {
	return &BulkImportActivitiesCommand{
		importCmd: importCmd,
	}
}

var _ gocommand.Commander[BulkImportActivitiesInput] = (*BulkImportActivitiesCommand)(nil)

// Execute imports each activity sequentially, recording per-record results.
func (c *BulkImportActivitiesCommand) Execute(ctx context.Context, input BulkImportActivitiesInput) error {
	if c == nil || c.importCmd == nil {
		return goerrors.New("go-stories: bulk activity import requires import command", goerrors.CategoryInternal).
			WithCode(goerrors.CodeInternal)
	}
	if err := input.Validate(); err != nil {
		return err
	}

	results := make([]BulkImportActivityResult, 0, len(input.Activities))
	var errs []error

	for idx, incoming := range input.Activities {
		result := BulkImportActivityResult{
			Index:    idx,
			Source:   incoming.Source,
			SourceID: incoming.SourceID,
		}

		imported := &ImportActivityResult{}
		err := c.importCmd.Execute(ctx, ImportActivityInput{
			Activity: incoming,
			Actor:    input.Actor,
			Scope:    input.Scope,
			Result:   imported,
		})
		if err != nil {
			err = bulkImportError(err, bulkImportMetadata(idx, incoming.SourceID))
			result.Err = err
			results = append(results, result)
			errs = append(errs, err)
			if !input.ContinueOnError {
				break
			}
			continue
		}

		if imported.Activity != nil {
			result.ActivityID = imported.Activity.ID
		}
		result.Created = imported.Created
		results = append(results, result)
	}

	if input.Results != nil {
		*input.Results = append((*input.Results)[:0], results...)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func bulkImportMetadata(index int, sourceID string) map[string]any {
	metadata := map[string]any{
		"index": index,
	}
	if sourceID != "" {
		metadata["source_id"] = sourceID
	}
	return metadata
}

func bulkImportError(err error, metadata map[string]any) error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.WithMetadata(metadata)
	}

	category := goerrors.CategoryInternal
	code := goerrors.CodeInternal
	switch {
	case errors.Is(err, ErrActivityRequired),
		errors.Is(err, ErrActivitiesRequired),
		errors.Is(err, ErrActivitySourceIDRequired),
		errors.Is(err, types.ErrUnknownSource),
		errors.Is(err, ErrUserIDRequired),
		errors.Is(err, ErrActorRequired):
		category = goerrors.CategoryValidation
		code = goerrors.CodeBadRequest
	case errors.Is(err, types.ErrUnauthorizedScope):
		category = goerrors.CategoryAuthz
		code = goerrors.CodeForbidden
	}

	return goerrors.Wrap(err, category, "go-stories: bulk activity import failed").
		WithCode(code).
		WithMetadata(metadata)
}
