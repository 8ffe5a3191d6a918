package crudsvc

import (
	"net/http"

	"github.com/goliatone/go-crud"
	goerrors "github.com/goliatone/go-errors"
	"github.com/inchronicle/go-stories/pkg/types"
)

// StoryPublishAction registers POST /stories/publish. The payload carries the
// story ID (and owner for admin flips); the command enforces the draft to
// published transition.
func StoryPublishAction(service *StoryService) crud.Action[*types.CareerStory] {
	return crud.Action[*types.CareerStory]{
		Name:   "publish",
		Method: http.MethodPost,
		Target: crud.ActionTargetCollection,
		Path:   "/stories/publish",
		Handler: func(ctx crud.ActionContext[*types.CareerStory]) error {
			if service == nil {
				return goerrors.New("story service missing", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
			}
			var record types.CareerStory
			if err := ctx.BodyParser(&record); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid publish payload").WithCode(goerrors.CodeBadRequest)
			}
			story, err := service.publishStory(ctx, &record)
			if err != nil {
				return err
			}
			return ctx.Status(http.StatusOK).JSON(story)
		},
	}
}

// StoryUnpublishAction registers POST /stories/unpublish to pull a story back
// to draft without discarding edits.
func StoryUnpublishAction(service *StoryService) crud.Action[*types.CareerStory] {
	return crud.Action[*types.CareerStory]{
		Name:   "unpublish",
		Method: http.MethodPost,
		Target: crud.ActionTargetCollection,
		Path:   "/stories/unpublish",
		Handler: func(ctx crud.ActionContext[*types.CareerStory]) error {
			if service == nil {
				return goerrors.New("story service missing", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
			}
			var record types.CareerStory
			if err := ctx.BodyParser(&record); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid unpublish payload").WithCode(goerrors.CodeBadRequest)
			}
			story, err := service.unpublishStory(ctx, &record)
			if err != nil {
				return err
			}
			return ctx.Status(http.StatusOK).JSON(story)
		},
	}
}
