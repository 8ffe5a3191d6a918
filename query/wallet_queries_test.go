package query

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/wallet"
)

func TestWalletQueriesBalanceAndLedger(t *testing.T) {
	ctx := context.Background()
	db := newQueryTestDB(t)
	applyQueryDDL(t, db, "../data/sql/migrations/sqlite/00007_wallet.up.sql")
	repo, err := wallet.NewRepository(wallet.RepositoryConfig{DB: db})
	require.NoError(t, err)

	userID := uuid.New()
	actor := types.ActorRef{ID: userID, Type: "user"}

	// A user with no ledger rows reads as zero.
	balance, err := NewWalletBalanceQuery(repo, nil).Query(ctx, WalletBalanceInput{
		UserID: userID,
		Actor:  actor,
	})
	require.NoError(t, err)
	require.Zero(t, balance.Balance)

	_, err = repo.ApplyTransaction(ctx, types.WalletTransaction{
		UserID: userID,
		Kind:   types.TransactionCredit,
		Amount: 25,
		Reason: "signup bonus",
	})
	require.NoError(t, err)
	_, err = repo.ApplyTransaction(ctx, types.WalletTransaction{
		UserID: userID,
		Kind:   types.TransactionDebit,
		Amount: 5,
		Reason: "star generation",
	})
	require.NoError(t, err)

	balance, err = NewWalletBalanceQuery(repo, nil).Query(ctx, WalletBalanceInput{
		UserID: userID,
		Actor:  actor,
	})
	require.NoError(t, err)
	require.Equal(t, int64(20), balance.Balance)

	page, err := NewWalletTransactionsQuery(repo, nil).Query(ctx, types.WalletFilter{
		Actor:  actor,
		UserID: userID,
	})
	require.NoError(t, err)
	require.Len(t, page.Transactions, 2)

	debits, err := NewWalletTransactionsQuery(repo, nil).Query(ctx, types.WalletFilter{
		Actor:  actor,
		UserID: userID,
		Kind:   types.TransactionDebit,
	})
	require.NoError(t, err)
	require.Len(t, debits.Transactions, 1)
	require.Equal(t, "star generation", debits.Transactions[0].Reason)
}

func TestWalletBalanceQueryEnforcesPolicy(t *testing.T) {
	ctx := context.Background()
	db := newQueryTestDB(t)
	applyQueryDDL(t, db, "../data/sql/migrations/sqlite/00007_wallet.up.sql")
	repo, err := wallet.NewRepository(wallet.RepositoryConfig{DB: db})
	require.NoError(t, err)

	actorID := uuid.New()
	otherID := uuid.New()

	_, err = NewWalletBalanceQuery(repo, selfOnlyGuard()).Query(ctx, WalletBalanceInput{
		UserID: otherID,
		Actor:  types.ActorRef{ID: actorID, Type: "user"},
	})
	require.ErrorIs(t, err, types.ErrUnauthorizedScope)
}
