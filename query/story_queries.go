package query

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

var errStoryIDRequired = errors.New("go-stories: story id required")

// StoryListQuery lists career stories. Owner listings pass UserID; shared
// feeds pass ViewerID so the repository applies workspace and network
// visibility rules.
type StoryListQuery struct {
	repo  types.StoryRepository
	guard scope.Guard
}

// NewStoryListQuery constructs the list query helper.
func NewStoryListQuery(repo types.StoryRepository, guard scope.Guard) *StoryListQuery {
	return &StoryListQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[types.StoryFilter, types.StoryPage] = (*StoryListQuery)(nil)

// Query fetches a page of stories.
func (q *StoryListQuery) Query(ctx context.Context, filter types.StoryFilter) (types.StoryPage, error) {
	if q.repo == nil {
		return types.StoryPage{}, types.ErrMissingStoryRepository
	}
	if err := filter.Validate(); err != nil {
		return types.StoryPage{}, err
	}
	scope, err := q.guard.Enforce(ctx, filter.Actor, filter.Scope, types.PolicyActionStoriesRead, filter.UserID)
	if err != nil {
		return types.StoryPage{}, err
	}
	filter.Scope = scope
	filter.Pagination = normalizePagination(filter.Pagination)
	return q.repo.ListStories(ctx, filter)
}

// StoryDetailInput identifies one story for detail views.
type StoryDetailInput struct {
	UserID  uuid.UUID
	StoryID uuid.UUID
	Scope   types.ScopeFilter
	Actor   types.ActorRef
}

// Type implements gocommand.Message.
func (StoryDetailInput) Type() string {
	return "query.story.detail"
}

// Validate implements gocommand.Message.
func (input StoryDetailInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return types.ErrActorRequired
	case input.UserID == uuid.Nil:
		return types.ErrUserIDRequired
	case input.StoryID == uuid.Nil:
		return errStoryIDRequired
	default:
		return nil
	}
}

// StoryDetailQuery loads a single story with its STAR sections.
type StoryDetailQuery struct {
	repo  types.StoryRepository
	guard scope.Guard
}

// NewStoryDetailQuery constructs the detail query helper.
func NewStoryDetailQuery(repo types.StoryRepository, guard scope.Guard) *StoryDetailQuery {
	return &StoryDetailQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[StoryDetailInput, *types.CareerStory] = (*StoryDetailQuery)(nil)

// Query fetches the story detail.
func (q *StoryDetailQuery) Query(ctx context.Context, input StoryDetailInput) (*types.CareerStory, error) {
	if q.repo == nil {
		return nil, types.ErrMissingStoryRepository
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if _, err := q.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionStoriesRead, input.UserID); err != nil {
		return nil, err
	}
	return q.repo.GetStoryByID(ctx, input.UserID, input.StoryID)
}
