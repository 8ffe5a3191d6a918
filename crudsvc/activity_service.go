package crudsvc

import (
	"context"
	"strings"

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

// ActivityServiceConfig wires dependencies for the tool activity controller.
type ActivityServiceConfig struct {
	Guard  GuardAdapter
	Import gocommand.Commander[command.ImportActivityInput]
	Delete gocommand.Commander[command.DeleteActivityInput]
	Feed   gocommand.Querier[types.ToolActivityFilter, types.ToolActivityPage]
	Detail gocommand.Querier[query.ActivityDetailInput, *types.ToolActivity]
}

// ActivityService adapts the activity import/feed layer to a go-crud
// controller so admin panels can browse timelines and backfill missed events.
// Create routes through the import command, which dedupes on (user, source,
// source id); there is no raw update path because re-import is the edit path.
type ActivityService struct {
	guard     GuardAdapter
	importCmd gocommand.Commander[command.ImportActivityInput]
	deleteCmd gocommand.Commander[command.DeleteActivityInput]
	feed      gocommand.Querier[types.ToolActivityFilter, types.ToolActivityPage]
	detail    gocommand.Querier[query.ActivityDetailInput, *types.ToolActivity]
	emitter   AuditEmitter
	logger    types.Logger
}

// NewActivityService builds the adapter.
func NewActivityService(cfg ActivityServiceConfig, opts ...ServiceOption) *ActivityService {
	options := applyOptions(opts)
	return &ActivityService{
		guard:     cfg.Guard,
		importCmd: cfg.Import,
		deleteCmd: cfg.Delete,
		feed:      cfg.Feed,
		detail:    cfg.Detail,
		emitter:   options.emitter,
		logger:    options.logger,
	}
}

func (s *ActivityService) Create(ctx crud.Context, record *types.ToolActivity) (*types.ToolActivity, error) {
	if s.importCmd == nil {
		return nil, goerrors.New("activity import command missing", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
	}
	requestedScope := types.ScopeFilter{
		TenantID:    record.TenantID,
		WorkspaceID: record.WorkspaceID,
	}
	res, err := s.guard.Enforce(crudguard.GuardInput{
		Context:   ctx,
		Operation: crud.OpCreate,
		Scope:     requestedScope,
		TargetID:  record.UserID,
	})
	if err != nil {
		return nil, err
	}
	payload := *record
	if payload.UserID == uuid.Nil {
		payload.UserID = res.Actor.ID
	}
	if err := enforceActivityOwnership(res.Actor, payload.UserID); err != nil {
		return nil, err
	}
	payload.TenantID = res.Scope.TenantID
	payload.WorkspaceID = res.Scope.WorkspaceID

	result := command.ImportActivityResult{}
	input := command.ImportActivityInput{
		Activity: payload,
		Actor:    res.Actor,
		Scope:    res.Scope,
		Result:   &result,
	}
	if err := s.importCmd.Execute(ctx.UserContext(), input); err != nil {
		return nil, err
	}
	created := result.Activity
	if created == nil {
		created = &payload
	}
	s.emit(ctx.UserContext(), res, created.UserID, created.ID.String(), "activity.import")
	return created, nil
}

func (s *ActivityService) CreateBatch(ctx crud.Context, records []*types.ToolActivity) ([]*types.ToolActivity, error) {
	created := make([]*types.ToolActivity, 0, len(records))
	for _, record := range records {
		rec, err := s.Create(ctx, record)
		if err != nil {
			return nil, err
		}
		created = append(created, rec)
	}
	return created, nil
}

func (s *ActivityService) Update(crud.Context, *types.ToolActivity) (*types.ToolActivity, error) {
	return nil, notSupported(crud.OpUpdate)
}

func (s *ActivityService) UpdateBatch(crud.Context, []*types.ToolActivity) ([]*types.ToolActivity, error) {
	return nil, notSupported(crud.OpUpdateBatch)
}

func (s *ActivityService) Delete(ctx crud.Context, record *types.ToolActivity) error {
	if s.deleteCmd == nil {
		return goerrors.New("activity delete command missing", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
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
	if err := enforceActivityOwnership(res.Actor, owner); err != nil {
		return err
	}
	input := command.DeleteActivityInput{
		UserID:     owner,
		ActivityID: record.ID,
		Actor:      res.Actor,
		Scope:      res.Scope,
	}
	if err := s.deleteCmd.Execute(ctx.UserContext(), input); err != nil {
		return err
	}
	s.emit(ctx.UserContext(), res, owner, record.ID.String(), "activity.delete")
	return nil
}

func (s *ActivityService) DeleteBatch(ctx crud.Context, records []*types.ToolActivity) error {
	for _, record := range records {
		if err := s.Delete(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (s *ActivityService) Index(ctx crud.Context, _ []repository.SelectCriteria) ([]*types.ToolActivity, int, error) {
	if s.feed == nil {
		return nil, 0, goerrors.New("activity feed query unavailable", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
	}
	res, err := s.guard.Enforce(crudguard.GuardInput{
		Context:   ctx,
		Operation: crud.OpList,
	})
	if err != nil {
		return nil, 0, err
	}
	unclustered, _ := queryBool(ctx, "unclustered")
	filter := types.ToolActivityFilter{
		Actor:       res.Actor,
		Scope:       res.Scope,
		UserID:      queryUUID(ctx, "user_id"),
		Sources:     parseActivitySources(ctx, "source"),
		ClusterID:   queryUUID(ctx, "cluster_id"),
		Unclustered: unclustered,
		Since:       queryTime(ctx, "since"),
		Until:       queryTime(ctx, "until"),
		Keyword:     ctx.Query("q"),
		Cursor:      strings.TrimSpace(ctx.Query("cursor")),
		Pagination: types.Pagination{
			Limit:  queryInt(ctx, "limit", 50),
			Offset: queryInt(ctx, "offset", 0),
		},
	}
	if filter.UserID == uuid.Nil {
		filter.UserID = res.Actor.ID
	}
	applyActivityRowPolicy(&filter, res.Actor)
	page, err := s.feed.Query(ctx.UserContext(), filter)
	if err != nil {
		return nil, 0, err
	}
	records := make([]*types.ToolActivity, 0, len(page.Activities))
	for i := range page.Activities {
		record := page.Activities[i]
		records = append(records, &record)
	}
	return records, page.Total, nil
}

func (s *ActivityService) Show(ctx crud.Context, id string, _ []repository.SelectCriteria) (*types.ToolActivity, error) {
	if s.detail == nil {
		return nil, goerrors.New("activity detail query missing", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
	}
	activityID, err := uuid.Parse(id)
	if err != nil {
		return nil, goerrors.New("invalid activity id", goerrors.CategoryValidation).WithCode(goerrors.CodeBadRequest)
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
	if err := enforceActivityOwnership(res.Actor, owner); err != nil {
		return nil, err
	}
	return s.detail.Query(ctx.UserContext(), query.ActivityDetailInput{
		UserID:     owner,
		ActivityID: activityID,
		Scope:      res.Scope,
		Actor:      res.Actor,
	})
}

func (s *ActivityService) emit(ctx context.Context, guardResult crudguard.GuardResult, userID uuid.UUID, objectID, verb string) {
	if s.emitter == nil {
		return
	}
	record := types.AuditRecord{
		UserID:      userID,
		ActorID:     guardResult.Actor.ID,
		TenantID:    guardResult.Scope.TenantID,
		WorkspaceID: guardResult.Scope.WorkspaceID,
		Verb:        verb,
		ObjectType:  "tool_activity",
		ObjectID:    objectID,
		Channel:     "crud",
	}
	if err := s.emitter.Emit(ctx, record); err != nil && s.logger != nil {
		s.logger.Error("activity audit emit failed", err)
	}
}

func applyActivityRowPolicy(filter *types.ToolActivityFilter, actor types.ActorRef) {
	if filter == nil {
		return
	}
	if actor.IsSupport() {
		filter.UserID = actor.ID
	}
}

func enforceActivityOwnership(actor types.ActorRef, target uuid.UUID) error {
	if !actor.IsSupport() || target == uuid.Nil || target == actor.ID {
		return nil
	}
	return goerrors.New("go-stories: support actors can only manage their own activities", goerrors.CategoryAuthz).
		WithCode(goerrors.CodeForbidden)
}
