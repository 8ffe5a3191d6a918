package wallet

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

const walletDDL = "../data/sql/migrations/sqlite/00007_wallet.up.sql"

func TestRepository_ApplyAndBalance(t *testing.T) {
	db := newTestWalletDB(t)
	applyDDL(t, db, walletDDL)
	repo, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	ctx := context.Background()
	userID := uuid.New()
	base := time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)

	balance, err := repo.ApplyTransaction(ctx, types.WalletTransaction{
		UserID:    userID,
		Kind:      types.TransactionCredit,
		Amount:    100,
		Reason:    "signup_bonus",
		CreatedAt: base,
	})
	require.NoError(t, err)
	require.Equal(t, int64(100), balance.Balance)
	require.True(t, balance.UpdatedAt.Equal(base))

	balance, err = repo.ApplyTransaction(ctx, types.WalletTransaction{
		UserID:    userID,
		Kind:      types.TransactionDebit,
		Amount:    30,
		Reason:    "star_generation",
		CreatedAt: base.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, int64(70), balance.Balance)

	current, err := repo.GetBalance(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, userID, current.UserID)
	require.Equal(t, int64(70), current.Balance)
	require.True(t, current.UpdatedAt.Equal(base.Add(time.Hour)))

	page, err := repo.ListTransactions(ctx, types.WalletFilter{UserID: userID})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	require.Len(t, page.Transactions, 2)
	require.Equal(t, types.TransactionDebit, page.Transactions[0].Kind)
	require.Equal(t, "signup_bonus", page.Transactions[1].Reason)
	require.False(t, page.HasMore)
}

func TestRepository_DebitGuards(t *testing.T) {
	db := newTestWalletDB(t)
	applyDDL(t, db, walletDDL)
	repo, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	ctx := context.Background()
	userID := uuid.New()

	_, err = repo.ApplyTransaction(ctx, types.WalletTransaction{
		UserID: userID,
		Kind:   types.TransactionDebit,
		Amount: 50,
		Reason: "star_generation",
	})
	require.ErrorIs(t, err, types.ErrInsufficientCredits)

	page, err := repo.ListTransactions(ctx, types.WalletFilter{UserID: userID})
	require.NoError(t, err)
	require.Zero(t, page.Total)

	_, err = repo.ApplyTransaction(ctx, types.WalletTransaction{
		UserID: userID,
		Kind:   types.TransactionCredit,
		Amount: 40,
	})
	require.NoError(t, err)

	balance, err := repo.ApplyTransaction(ctx, types.WalletTransaction{
		UserID: userID,
		Kind:   types.TransactionDebit,
		Amount: 40,
	})
	require.NoError(t, err)
	require.Zero(t, balance.Balance)

	_, err = repo.ApplyTransaction(ctx, types.WalletTransaction{
		UserID: userID,
		Kind:   types.TransactionDebit,
		Amount: 1,
	})
	require.ErrorIs(t, err, types.ErrInsufficientCredits)
}

func TestRepository_RejectsInvalidEntries(t *testing.T) {
	db := newTestWalletDB(t)
	applyDDL(t, db, walletDDL)
	repo, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	ctx := context.Background()
	userID := uuid.New()

	_, err = repo.ApplyTransaction(ctx, types.WalletTransaction{
		UserID: userID,
		Kind:   types.TransactionCredit,
	})
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = repo.ApplyTransaction(ctx, types.WalletTransaction{
		UserID: userID,
		Kind:   types.TransactionCredit,
		Amount: -5,
	})
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = repo.ApplyTransaction(ctx, types.WalletTransaction{
		UserID: userID,
		Kind:   types.TransactionKind("transfer"),
		Amount: 10,
	})
	require.ErrorIs(t, err, ErrInvalidKind)

	_, err = repo.ApplyTransaction(ctx, types.WalletTransaction{
		Kind:   types.TransactionCredit,
		Amount: 10,
	})
	require.ErrorIs(t, err, types.ErrUserIDRequired)

	_, err = repo.GetBalance(ctx, uuid.Nil)
	require.ErrorIs(t, err, types.ErrUserIDRequired)

	page, err := repo.ListTransactions(ctx, types.WalletFilter{UserID: userID})
	require.NoError(t, err)
	require.Zero(t, page.Total)
}

func TestRepository_ReferenceReplay(t *testing.T) {
	db := newTestWalletDB(t)
	applyDDL(t, db, walletDDL)
	repo, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	ctx := context.Background()
	userID := uuid.New()
	otherID := uuid.New()

	first, err := repo.ApplyTransaction(ctx, types.WalletTransaction{
		UserID:    userID,
		Kind:      types.TransactionCredit,
		Amount:    100,
		Reason:    "purchase",
		Reference: "purchase:abc",
	})
	require.NoError(t, err)
	require.Equal(t, int64(100), first.Balance)

	replayed, err := repo.ApplyTransaction(ctx, types.WalletTransaction{
		UserID:    userID,
		Kind:      types.TransactionCredit,
		Amount:    100,
		Reason:    "purchase",
		Reference: "purchase:abc",
	})
	require.NoError(t, err)
	require.Equal(t, int64(100), replayed.Balance)

	page, err := repo.ListTransactions(ctx, types.WalletFilter{UserID: userID})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)

	// the reference guard is scoped per user
	other, err := repo.ApplyTransaction(ctx, types.WalletTransaction{
		UserID:    otherID,
		Kind:      types.TransactionCredit,
		Amount:    25,
		Reason:    "purchase",
		Reference: "purchase:abc",
	})
	require.NoError(t, err)
	require.Equal(t, int64(25), other.Balance)

	// empty references never deduplicate
	for range 2 {
		_, err = repo.ApplyTransaction(ctx, types.WalletTransaction{
			UserID: userID,
			Kind:   types.TransactionCredit,
			Amount: 10,
			Reason: "adjustment",
		})
		require.NoError(t, err)
	}

	balance, err := repo.GetBalance(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(120), balance.Balance)

	page, err = repo.ListTransactions(ctx, types.WalletFilter{UserID: userID})
	require.NoError(t, err)
	require.Equal(t, 3, page.Total)
}

func TestRepository_ListFilters(t *testing.T) {
	db := newTestWalletDB(t)
	applyDDL(t, db, walletDDL)
	repo, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	ctx := context.Background()
	userID := uuid.New()
	base := time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)

	seed := []types.WalletTransaction{
		{UserID: userID, Kind: types.TransactionCredit, Amount: 100, Reason: "signup_bonus", CreatedAt: base},
		{UserID: userID, Kind: types.TransactionDebit, Amount: 5, Reason: "star_generation", CreatedAt: base.Add(time.Hour)},
		{UserID: userID, Kind: types.TransactionDebit, Amount: 5, Reason: "star_generation", CreatedAt: base.Add(2 * time.Hour)},
		{UserID: userID, Kind: types.TransactionCredit, Amount: 50, Reason: "purchase", CreatedAt: base.Add(3 * time.Hour)},
	}
	for _, entry := range seed {
		_, err := repo.ApplyTransaction(ctx, entry)
		require.NoError(t, err)
	}

	debits, err := repo.ListTransactions(ctx, types.WalletFilter{
		UserID: userID,
		Kind:   types.TransactionDebit,
	})
	require.NoError(t, err)
	require.Equal(t, 2, debits.Total)
	for _, entry := range debits.Transactions {
		require.Equal(t, types.TransactionDebit, entry.Kind)
	}

	since := base.Add(90 * time.Minute)
	window, err := repo.ListTransactions(ctx, types.WalletFilter{
		UserID: userID,
		Since:  &since,
	})
	require.NoError(t, err)
	require.Equal(t, 2, window.Total)

	until := base.Add(30 * time.Minute)
	early, err := repo.ListTransactions(ctx, types.WalletFilter{
		UserID: userID,
		Until:  &until,
	})
	require.NoError(t, err)
	require.Equal(t, 1, early.Total)
	require.Equal(t, "signup_bonus", early.Transactions[0].Reason)

	pageOne, err := repo.ListTransactions(ctx, types.WalletFilter{
		UserID:     userID,
		Pagination: types.Pagination{Limit: 2},
	})
	require.NoError(t, err)
	require.Equal(t, 4, pageOne.Total)
	require.Len(t, pageOne.Transactions, 2)
	require.True(t, pageOne.HasMore)
	require.Equal(t, 2, pageOne.NextOffset)
	require.True(t, pageOne.Transactions[0].CreatedAt.Equal(base.Add(3*time.Hour)))

	pageTwo, err := repo.ListTransactions(ctx, types.WalletFilter{
		UserID:     userID,
		Pagination: types.Pagination{Limit: 2, Offset: 2},
	})
	require.NoError(t, err)
	require.Len(t, pageTwo.Transactions, 2)
	require.False(t, pageTwo.HasMore)
	require.Equal(t, 4, pageTwo.NextOffset)
}

func newTestWalletDB(t *testing.T) *bun.DB {
	sqldb, err := sql.Open("sqlite3", ":memory:?cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
		_ = sqldb.Close()
	})
	return db
}

func applyDDL(t *testing.T, db *bun.DB, paths ...string) {
	for _, path := range paths {
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		for _, stmt := range splitStatements(string(content)) {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			_, err := db.Exec(stmt)
			require.NoError(t, err)
		}
	}
}

func splitStatements(sql string) []string {
	lines := strings.Split(sql, "\n")
	var builder strings.Builder
	var statements []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		builder.WriteString(line)
		builder.WriteString(" ")
		if strings.HasSuffix(line, ";") {
			statements = append(statements, builder.String())
			builder.Reset()
		}
	}
	if rest := strings.TrimSpace(builder.String()); rest != "" {
		statements = append(statements, rest)
	}
	return statements
}
