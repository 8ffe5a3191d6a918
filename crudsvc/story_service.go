package crudsvc

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-crud"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/command"
	"github.com/inchronicle/go-stories/crudguard"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/query"
)

// StoryServiceConfig wires dependencies for the career story controller.
type StoryServiceConfig struct {
	Guard     GuardAdapter
	Edit      gocommand.Commander[command.EditStoryInput]
	Delete    gocommand.Commander[command.DeleteStoryInput]
	Publish   gocommand.Commander[command.PublishStoryInput]
	Unpublish gocommand.Commander[command.UnpublishStoryInput]
	List      gocommand.Querier[types.StoryFilter, types.StoryPage]
	Detail    gocommand.Querier[query.StoryDetailInput, *types.CareerStory]
}

// StoryService adapts story editing and listing to a go-crud controller.
// Stories are born from cluster generation or the wizard, so raw Create is
// disabled; publication flips go through the collection actions in
// story_actions.go.
type StoryService struct {
	guard     GuardAdapter
	edit      gocommand.Commander[command.EditStoryInput]
	deleteCmd gocommand.Commander[command.DeleteStoryInput]
	publish   gocommand.Commander[command.PublishStoryInput]
	unpublish gocommand.Commander[command.UnpublishStoryInput]
	list      gocommand.Querier[types.StoryFilter, types.StoryPage]
	detail    gocommand.Querier[query.StoryDetailInput, *types.CareerStory]
	emitter   AuditEmitter
	logger    types.Logger
}

// NewStoryService constructs the adapter.
func NewStoryService(cfg StoryServiceConfig, opts ...ServiceOption) *StoryService {
	options := applyOptions(opts)
	return &StoryService{
		guard:     cfg.Guard,
		edit:      cfg.Edit,
		deleteCmd: cfg.Delete,
		publish:   cfg.Publish,
		unpublish: cfg.Unpublish,
		list:      cfg.List,
		detail:    cfg.Detail,
		emitter:   options.emitter,
		logger:    options.logger,
	}
}

func (s *StoryService) Create(crud.Context, *types.CareerStory) (*types.CareerStory, error) {
	return nil, notSupported(crud.OpCreate)
}

func (s *StoryService) CreateBatch(crud.Context, []*types.CareerStory) ([]*types.CareerStory, error) {
	return nil, notSupported(crud.OpCreateBatch)
}

func (s *StoryService) Update(ctx crud.Context, record *types.CareerStory) (*types.CareerStory, error) {
	if s.edit == nil {
		return nil, goerrors.New("story edit command missing", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
	}
	res, err := s.guard.Enforce(crudguard.GuardInput{
		Context:   ctx,
		Operation: crud.OpUpdate,
		Scope: types.ScopeFilter{
			TenantID:    record.TenantID,
			WorkspaceID: record.WorkspaceID,
		},
		TargetID: record.UserID,
	})
	if err != nil {
		return nil, err
	}
	payload := *record
	if payload.UserID == uuid.Nil {
		payload.UserID = res.Actor.ID
	}
	if err := enforceStoryOwnership(res.Actor, payload.UserID); err != nil {
		return nil, err
	}
	payload.TenantID = res.Scope.TenantID
	payload.WorkspaceID = res.Scope.WorkspaceID

	result := command.StoryResult{}
	input := command.EditStoryInput{
		Story:  payload,
		Actor:  res.Actor,
		Scope:  res.Scope,
		Result: &result,
	}
	if err := s.edit.Execute(ctx.UserContext(), input); err != nil {
		return nil, err
	}
	saved := result.Story
	if saved == nil {
		saved = &payload
	}
	s.emit(ctx.UserContext(), res, saved.UserID, saved.ID, "story.edit")
	return saved, nil
}

func (s *StoryService) UpdateBatch(ctx crud.Context, records []*types.CareerStory) ([]*types.CareerStory, error) {
	updated := make([]*types.CareerStory, 0, len(records))
	for _, record := range records {
		rec, err := s.Update(ctx, record)
		if err != nil {
			return nil, err
		}
		updated = append(updated, rec)
	}
	return updated, nil
}

func (s *StoryService) Delete(ctx crud.Context, record *types.CareerStory) error {
	if s.deleteCmd == nil {
		return goerrors.New("story delete command missing", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
	}
	res, err := s.guard.Enforce(crudguard.GuardInput{
		Context:   ctx,
		Operation: crud.OpDelete,
		TargetID:  record.UserID,
	})
	if err != nil {
		return err
	}
	owner := record.UserID
	if owner == uuid.Nil {
		owner = res.Actor.ID
	}
	if err := enforceStoryOwnership(res.Actor, owner); err != nil {
		return err
	}
	input := command.DeleteStoryInput{
		UserID:  owner,
		StoryID: record.ID,
		Actor:   res.Actor,
		Scope:   res.Scope,
	}
	if err := s.deleteCmd.Execute(ctx.UserContext(), input); err != nil {
		return err
	}
	s.emit(ctx.UserContext(), res, owner, record.ID, "story.delete")
	return nil
}

func (s *StoryService) DeleteBatch(ctx crud.Context, records []*types.CareerStory) error {
	for _, record := range records {
		if err := s.Delete(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (s *StoryService) Index(ctx crud.Context, _ []repository.SelectCriteria) ([]*types.CareerStory, int, error) {
	if s.list == nil {
		return nil, 0, goerrors.New("story list query missing", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
	}
	res, err := s.guard.Enforce(crudguard.GuardInput{
		Context:   ctx,
		Operation: crud.OpList,
	})
	if err != nil {
		return nil, 0, err
	}
	filter := types.StoryFilter{
		Actor:        res.Actor,
		Scope:        res.Scope,
		UserID:       queryUUID(ctx, "user_id"),
		ViewerID:     res.Actor.ID,
		ClusterID:    queryUUID(ctx, "cluster_id"),
		States:       parseStoryStates(ctx, "state"),
		Visibilities: parseStoryVisibilities(ctx, "visibility"),
		Keyword:      ctx.Query("q"),
		Pagination: types.Pagination{
			Limit:  queryInt(ctx, "limit", 50),
			Offset: queryInt(ctx, "offset", 0),
		},
	}
	if filter.UserID == uuid.Nil {
		filter.UserID = res.Actor.ID
	}
	applyStoryRowPolicy(&filter, res.Actor)
	page, err := s.list.Query(ctx.UserContext(), filter)
	if err != nil {
		return nil, 0, err
	}
	records := make([]*types.CareerStory, 0, len(page.Stories))
	for i := range page.Stories {
		record := page.Stories[i]
		records = append(records, &record)
	}
	return records, page.Total, nil
}

func (s *StoryService) Show(ctx crud.Context, id string, _ []repository.SelectCriteria) (*types.CareerStory, error) {
	if s.detail == nil {
		return nil, goerrors.New("story detail query missing", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
	}
	storyID, err := uuid.Parse(id)
	if err != nil {
		return nil, goerrors.New("invalid story id", goerrors.CategoryValidation).WithCode(goerrors.CodeBadRequest)
	}
	owner := queryUUID(ctx, "user_id")
	res, err := s.guard.Enforce(crudguard.GuardInput{
		Context:   ctx,
		Operation: crud.OpRead,
		TargetID:  owner,
	})
	if err != nil {
		return nil, err
	}
	if owner == uuid.Nil {
		owner = res.Actor.ID
	}
	return s.detail.Query(ctx.UserContext(), query.StoryDetailInput{
		UserID:  owner,
		StoryID: storyID,
		Scope:   res.Scope,
		Actor:   res.Actor,
	})
}

func (s *StoryService) publishStory(ctx crud.Context, record *types.CareerStory) (*types.CareerStory, error) {
	if s.publish == nil {
		return nil, goerrors.New("story publish command missing", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
	}
	if record == nil || record.ID == uuid.Nil {
		return nil, goerrors.New("story id required", goerrors.CategoryValidation).WithCode(goerrors.CodeBadRequest)
	}
	res, err := s.guard.Enforce(crudguard.GuardInput{
		Context:   ctx,
		Operation: crud.OpUpdate,
		TargetID:  record.UserID,
	})
	if err != nil {
		return nil, err
	}
	owner := record.UserID
	if owner == uuid.Nil {
		owner = res.Actor.ID
	}
	if err := enforceStoryOwnership(res.Actor, owner); err != nil {
		return nil, err
	}
	result := command.StoryResult{}
	input := command.PublishStoryInput{
		UserID:  owner,
		StoryID: record.ID,
		Actor:   res.Actor,
		Scope:   res.Scope,
		Result:  &result,
	}
	if err := s.publish.Execute(ctx.UserContext(), input); err != nil {
		return nil, err
	}
	s.emit(ctx.UserContext(), res, owner, record.ID, "story.publish")
	return result.Story, nil
}

func (s *StoryService) unpublishStory(ctx crud.Context, record *types.CareerStory) (*types.CareerStory, error) {
	if s.unpublish == nil {
		return nil, goerrors.New("story unpublish command missing", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
	}
	if record == nil || record.ID == uuid.Nil {
		return nil, goerrors.New("story id required", goerrors.CategoryValidation).WithCode(goerrors.CodeBadRequest)
	}
	res, err := s.guard.Enforce(crudguard.GuardInput{
		Context:   ctx,
		Operation: crud.OpUpdate,
		TargetID:  record.UserID,
	})
	if err != nil {
		return nil, err
	}
	owner := record.UserID
	if owner == uuid.Nil {
		owner = res.Actor.ID
	}
	if err := enforceStoryOwnership(res.Actor, owner); err != nil {
		return nil, err
	}
	result := command.StoryResult{}
	input := command.UnpublishStoryInput{
		UserID:  owner,
		StoryID: record.ID,
		Actor:   res.Actor,
		Scope:   res.Scope,
		Result:  &result,
	}
	if err := s.unpublish.Execute(ctx.UserContext(), input); err != nil {
		return nil, err
	}
	s.emit(ctx.UserContext(), res, owner, record.ID, "story.unpublish")
	return result.Story, nil
}

func (s *StoryService) emit(ctx context.Context, guardResult crudguard.GuardResult, userID, storyID uuid.UUID, verb string) {
	if s.emitter == nil {
		return
	}
	record := types.AuditRecord{
		UserID:      userID,
		ActorID:     guardResult.Actor.ID,
		TenantID:    guardResult.Scope.TenantID,
		WorkspaceID: guardResult.Scope.WorkspaceID,
		Verb:        verb,
		ObjectType:  "career_story",
		ObjectID:    storyID.String(),
		Channel:     "crud",
	}
	if err := s.emitter.Emit(ctx, record); err != nil && s.logger != nil {
		s.logger.Error("story audit emit failed", err)
	}
}

func applyStoryRowPolicy(filter *types.StoryFilter, actor types.ActorRef) {
	if filter == nil {
		return
	}
	if actor.IsSupport() {
		filter.UserID = actor.ID
	}
}

func enforceStoryOwnership(actor types.ActorRef, target uuid.UUID) error {
	if !actor.IsSupport() || target == uuid.Nil || target == actor.ID {
		return nil
	}
	return goerrors.New("go-stories: support actors can only manage their own stories", goerrors.CategoryAuthz).
		WithCode(goerrors.CodeForbidden)
}
