package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

// WalletBalanceInput identifies whose balance to read.
type WalletBalanceInput struct {
	UserID uuid.UUID
	Scope  types.ScopeFilter
	Actor  types.ActorRef
}

// Type implements gocommand.Message.
func (WalletBalanceInput) Type() string {
	return "query.wallet.balance"
}

// Validate implements gocommand.Message.
func (input WalletBalanceInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return types.ErrActorRequired
	case input.UserID == uuid.Nil:
		return types.ErrUserIDRequired
	default:
		return nil
	}
}

// WalletBalanceQuery reads the current credit balance. Users without any
// wallet rows read as zero.
type WalletBalanceQuery struct {
	repo  types.WalletRepository
	guard scope.Guard
}

// NewWalletBalanceQuery constructs the balance query helper.
func NewWalletBalanceQuery(repo types.WalletRepository, guard scope.Guard) *WalletBalanceQuery {
	return &WalletBalanceQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[WalletBalanceInput, types.WalletBalance] = (*WalletBalanceQuery)(nil)

// Query returns the balance for the supplied user.
func (q *WalletBalanceQuery) Query(ctx context.Context, input WalletBalanceInput) (types.WalletBalance, error) {
	if q.repo == nil {
		return types.WalletBalance{}, types.ErrMissingWalletRepository
	}
	if err := input.Validate(); err != nil {
		return types.WalletBalance{}, err
	}
	if _, err := q.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionWalletRead, input.UserID); err != nil {
		return types.WalletBalance{}, err
	}
	return q.repo.GetBalance(ctx, input.UserID)
}

// WalletTransactionsQuery pages through the credit ledger.
type WalletTransactionsQuery struct {
	repo  types.WalletRepository
	guard scope.Guard
}

// NewWalletTransactionsQuery constructs the ledger query helper.
func NewWalletTransactionsQuery(repo types.WalletRepository, guard scope.Guard) *WalletTransactionsQuery {
	return &WalletTransactionsQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[types.WalletFilter, types.WalletPage] = (*WalletTransactionsQuery)(nil)

// Query fetches a page of ledger entries, newest first.
func (q *WalletTransactionsQuery) Query(ctx context.Context, filter types.WalletFilter) (types.WalletPage, error) {
	if q.repo == nil {
		return types.WalletPage{}, types.ErrMissingWalletRepository
	}
	if err := filter.Validate(); err != nil {
		return types.WalletPage{}, err
	}
	scope, err := q.guard.Enforce(ctx, filter.Actor, filter.Scope, types.PolicyActionWalletRead, filter.UserID)
	if err != nil {
		return types.WalletPage{}, err
	}
	filter.Scope = scope
	filter.Pagination = normalizePagination(filter.Pagination)
	return q.repo.ListTransactions(ctx, filter)
}
