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

// JournalServiceConfig wires dependencies for the journal entry controller.
type JournalServiceConfig struct {
	Guard  GuardAdapter
	Create gocommand.Commander[command.CreateJournalEntryInput]
	Update gocommand.Commander[command.UpdateJournalEntryInput]
	Delete gocommand.Commander[command.DeleteJournalEntryInput]
	List   gocommand.Querier[types.JournalFilter, types.JournalPage]
	Detail gocommand.Querier[query.JournalDetailInput, *types.JournalEntry]
}

// JournalService routes go-crud operations through the journal commands so
// the wizard analysis, guard enforcement, and audit trail stay intact.
type JournalService struct {
	guard     GuardAdapter
	createCmd gocommand.Commander[command.CreateJournalEntryInput]
	updateCmd gocommand.Commander[command.UpdateJournalEntryInput]
	deleteCmd gocommand.Commander[command.DeleteJournalEntryInput]
	list      gocommand.Querier[types.JournalFilter, types.JournalPage]
	detail    gocommand.Querier[query.JournalDetailInput, *types.JournalEntry]
	emitter   AuditEmitter
	logger    types.Logger
}

// NewJournalService constructs the adapter.
func NewJournalService(cfg JournalServiceConfig, opts ...ServiceOption) *JournalService {
	options := applyOptions(opts)
	return &JournalService{
		guard:     cfg.Guard,
		createCmd: cfg.Create,
		updateCmd: cfg.Update,
		deleteCmd: cfg.Delete,
		list:      cfg.List,
		detail:    cfg.Detail,
		emitter:   options.emitter,
		logger:    options.logger,
	}
}

func (s *JournalService) Create(ctx crud.Context, record *types.JournalEntry) (*types.JournalEntry, error) {
	return s.createEntry(ctx, crud.OpCreate, record)
}

func (s *JournalService) CreateBatch(ctx crud.Context, records []*types.JournalEntry) ([]*types.JournalEntry, error) {
	created := make([]*types.JournalEntry, 0, len(records))
	for _, record := range records {
		rec, err := s.createEntry(ctx, crud.OpCreateBatch, record)
		if err != nil {
			return nil, err
		}
		created = append(created, rec)
	}
	return created, nil
}

func (s *JournalService) Update(ctx crud.Context, record *types.JournalEntry) (*types.JournalEntry, error) {
	return s.updateEntry(ctx, crud.OpUpdate, record)
}

func (s *JournalService) UpdateBatch(ctx crud.Context, records []*types.JournalEntry) ([]*types.JournalEntry, error) {
	updated := make([]*types.JournalEntry, 0, len(records))
	for _, record := range records {
		rec, err := s.updateEntry(ctx, crud.OpUpdateBatch, record)
		if err != nil {
			return nil, err
		}
		updated = append(updated, rec)
	}
	return updated, nil
}

func (s *JournalService) Delete(ctx crud.Context, record *types.JournalEntry) error {
	if s.deleteCmd == nil {
		return goerrors.New("journal delete command missing", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
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
	if err := enforceJournalOwnership(res.Actor, owner); err != nil {
		return err
	}
	input := command.DeleteJournalEntryInput{
		UserID:  owner,
		EntryID: record.ID,
		Actor:   res.Actor,
		Scope:   res.Scope,
	}
	if err := s.deleteCmd.Execute(ctx.UserContext(), input); err != nil {
		return err
	}
	s.emit(ctx.UserContext(), res, owner, record.ID, "journal.delete")
	return nil
}

func (s *JournalService) DeleteBatch(ctx crud.Context, records []*types.JournalEntry) error {
	for _, record := range records {
		if err := s.Delete(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (s *JournalService) Index(ctx crud.Context, _ []repository.SelectCriteria) ([]*types.JournalEntry, int, error) {
	if s.list == nil {
		return nil, 0, goerrors.New("journal list query missing", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
	}
	res, err := s.guard.Enforce(crudguard.GuardInput{
		Context:   ctx,
		Operation: crud.OpList,
	})
	if err != nil {
		return nil, 0, err
	}
	filter := types.JournalFilter{
		Actor:   res.Actor,
		Scope:   res.Scope,
		UserID:  queryUUID(ctx, "user_id"),
		Tag:     ctx.Query("tag"),
		Keyword: ctx.Query("q"),
		Since:   queryTime(ctx, "since"),
		Until:   queryTime(ctx, "until"),
		Pagination: types.Pagination{
			Limit:  queryInt(ctx, "limit", 50),
			Offset: queryInt(ctx, "offset", 0),
		},
	}
	if filter.UserID == uuid.Nil {
		filter.UserID = res.Actor.ID
	}
	applyJournalRowPolicy(&filter, res.Actor)
	page, err := s.list.Query(ctx.UserContext(), filter)
	if err != nil {
		return nil, 0, err
	}
	records := make([]*types.JournalEntry, 0, len(page.Entries))
	for i := range page.Entries {
		record := page.Entries[i]
		records = append(records, &record)
	}
	return records, page.Total, nil
}

func (s *JournalService) Show(ctx crud.Context, id string, _ []repository.SelectCriteria) (*types.JournalEntry, error) {
	if s.detail == nil {
		return nil, goerrors.New("journal detail query missing", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
	}
	entryID, err := uuid.Parse(id)
	if err != nil {
		return nil, goerrors.New("invalid journal entry id", goerrors.CategoryValidation).WithCode(goerrors.CodeBadRequest)
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
	if err := enforceJournalOwnership(res.Actor, owner); err != nil {
		return nil, err
	}
	entry, err := s.detail.Query(ctx.UserContext(), query.JournalDetailInput{
		UserID:  owner,
		EntryID: entryID,
		Scope:   res.Scope,
		Actor:   res.Actor,
	})
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, goerrors.New("journal entry not found", goerrors.CategoryNotFound).WithCode(goerrors.CodeNotFound)
	}
	return entry, nil
}

func (s *JournalService) createEntry(ctx crud.Context, op crud.CrudOperation, record *types.JournalEntry) (*types.JournalEntry, error) {
	if s.createCmd == nil {
		return nil, goerrors.New("journal create command missing", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
	}
	res, err := s.guard.Enforce(crudguard.GuardInput{
		Context:   ctx,
		Operation: op,
		TargetID:  record.UserID,
	})
	if err != nil {
		return nil, err
	}
	payload := *record
	if payload.UserID == uuid.Nil {
		payload.UserID = res.Actor.ID
	}
	if err := enforceJournalOwnership(res.Actor, payload.UserID); err != nil {
		return nil, err
	}
	result := command.JournalEntryResult{}
	input := command.CreateJournalEntryInput{
		Entry:  payload,
		Actor:  res.Actor,
		Scope:  res.Scope,
		Result: &result,
	}
	if err := s.createCmd.Execute(ctx.UserContext(), input); err != nil {
		return nil, err
	}
	saved := result.Entry
	if saved == nil {
		saved = &payload
	}
	s.emit(ctx.UserContext(), res, saved.UserID, saved.ID, "journal.create")
	return saved, nil
}

func (s *JournalService) updateEntry(ctx crud.Context, op crud.CrudOperation, record *types.JournalEntry) (*types.JournalEntry, error) {
	if s.updateCmd == nil {
		return nil, goerrors.New("journal update command missing", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
	}
	res, err := s.guard.Enforce(crudguard.GuardInput{
		Context:   ctx,
		Operation: op,
		TargetID:  record.UserID,
	})
	if err != nil {
		return nil, err
	}
	payload := *record
	if payload.UserID == uuid.Nil {
		payload.UserID = res.Actor.ID
	}
	if err := enforceJournalOwnership(res.Actor, payload.UserID); err != nil {
		return nil, err
	}
	result := command.JournalEntryResult{}
	input := command.UpdateJournalEntryInput{
		Entry:  payload,
		Actor:  res.Actor,
		Scope:  res.Scope,
		Result: &result,
	}
	if err := s.updateCmd.Execute(ctx.UserContext(), input); err != nil {
		return nil, err
	}
	saved := result.Entry
	if saved == nil {
		saved = &payload
	}
	s.emit(ctx.UserContext(), res, saved.UserID, saved.ID, "journal.update")
	return saved, nil
}

func (s *JournalService) emit(ctx context.Context, guardResult crudguard.GuardResult, userID, entryID uuid.UUID, verb string) {
	if s.emitter == nil {
		return
	}
	record := types.AuditRecord{
		UserID:      userID,
		ActorID:     guardResult.Actor.ID,
		TenantID:    guardResult.Scope.TenantID,
		WorkspaceID: guardResult.Scope.WorkspaceID,
		Verb:        verb,
		ObjectType:  "journal_entry",
		ObjectID:    entryID.String(),
		Channel:     "crud",
	}
	if err := s.emitter.Emit(ctx, record); err != nil && s.logger != nil {
		s.logger.Error("journal audit emit failed", err)
	}
}

func applyJournalRowPolicy(filter *types.JournalFilter, actor types.ActorRef) {
	if filter == nil {
		return
	}
	if actor.IsSupport() {
		filter.UserID = actor.ID
	}
}

func enforceJournalOwnership(actor types.ActorRef, target uuid.UUID) error {
	if !actor.IsSupport() || target == uuid.Nil || target == actor.ID {
		return nil
	}
	return goerrors.New("go-stories: support actors can only manage their own journal entries", goerrors.CategoryAuthz).
		WithCode(goerrors.CodeForbidden)
}
