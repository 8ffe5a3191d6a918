package query

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

var errJournalEntryIDRequired = errors.New("go-stories: journal entry id required")

// JournalListQuery pages through a user's journal entries, newest first.
type JournalListQuery struct {
	repo  types.JournalRepository
	guard scope.Guard
}

// NewJournalListQuery constructs the journal listing helper.
func NewJournalListQuery(repo types.JournalRepository, guard scope.Guard) *JournalListQuery {
	return &JournalListQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[types.JournalFilter, types.JournalPage] = (*JournalListQuery)(nil)

// Query fetches a page of journal entries.
func (q *JournalListQuery) Query(ctx context.Context, filter types.JournalFilter) (types.JournalPage, error) {
	if q.repo == nil {
		return types.JournalPage{}, types.ErrMissingJournalRepository
	}
	if err := filter.Validate(); err != nil {
		return types.JournalPage{}, err
	}
	scope, err := q.guard.Enforce(ctx, filter.Actor, filter.Scope, types.PolicyActionJournalRead, filter.UserID)
	if err != nil {
		return types.JournalPage{}, err
	}
	filter.Scope = scope
	filter.Pagination = normalizePagination(filter.Pagination)
	return q.repo.ListEntries(ctx, filter)
}

// JournalDetailInput identifies one journal entry.
type JournalDetailInput struct {
	UserID  uuid.UUID
	EntryID uuid.UUID
	Scope   types.ScopeFilter
	Actor   types.ActorRef
}

// Type implements gocommand.Message.
func (JournalDetailInput) Type() string {
	return "query.journal.detail"
}

// Validate implements gocommand.Message.
func (input JournalDetailInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return types.ErrActorRequired
	case input.UserID == uuid.Nil:
		return types.ErrUserIDRequired
	case input.EntryID == uuid.Nil:
		return errJournalEntryIDRequired
	default:
		return nil
	}
}

// JournalDetailQuery loads a single journal entry.
type JournalDetailQuery struct {
	repo  types.JournalRepository
	guard scope.Guard
}

// NewJournalDetailQuery constructs the detail query helper.
func NewJournalDetailQuery(repo types.JournalRepository, guard scope.Guard) *JournalDetailQuery {
	return &JournalDetailQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[JournalDetailInput, *types.JournalEntry] = (*JournalDetailQuery)(nil)

// Query fetches the entry.
func (q *JournalDetailQuery) Query(ctx context.Context, input JournalDetailInput) (*types.JournalEntry, error) {
	if q.repo == nil {
		return nil, types.ErrMissingJournalRepository
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if _, err := q.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionJournalRead, input.UserID); err != nil {
		return nil, err
	}
	return q.repo.GetEntryByID(ctx, input.UserID, input.EntryID)
}
