package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/uptrace/bun"
)

// ErrInvalidKind indicates a ledger entry whose kind is neither credit nor
// debit.
var ErrInvalidKind = errors.New("wallet: transaction kind must be credit or debit")

// RepositoryConfig wires the Bun-backed wallet repository.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

type recordStore interface {
	repository.Repository[*Record]
}

// Repository persists the credits ledger.
type Repository struct {
	recordStore
	db    *bun.DB
	clock types.Clock
	idGen types.IDGenerator
}

// NewRepository constructs a repository implementing WalletRepository. The
// bun DB is required: balance reads and ledger writes share a transaction.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.DB == nil {
		return nil, errors.New("wallet: bun DB required")
	}
	repo := cfg.Repository
	if repo == nil {
		repo = repository.NewRepository(cfg.DB, repository.ModelHandlers[*Record]{
			NewRecord: func() *Record { return &Record{} },
			GetID: func(record *Record) uuid.UUID {
				if record == nil {
					return uuid.Nil
				}
				return record.ID
			},
			SetID: func(record *Record, id uuid.UUID) {
				if record != nil {
					record.ID = id
				}
			},
		})
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	idGen := cfg.IDGen
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}

	return &Repository{
		recordStore: repo,
		db:          cfg.DB,
		clock:       clock,
		idGen:       idGen,
	}, nil
}

var (
	_ repository.Repository[*Record] = (*Repository)(nil)
	_ types.WalletRepository         = (*Repository)(nil)
)

// GetBalance derives the user's balance from the ledger.
func (r *Repository) GetBalance(ctx context.Context, userID uuid.UUID) (types.WalletBalance, error) {
	if userID == uuid.Nil {
		return types.WalletBalance{}, types.ErrUserIDRequired
	}
	return r.balance(ctx, r.db, userID)
}

// ApplyTransaction appends a ledger entry. The overdraft check and the insert
// share one transaction, so concurrent debits serialize on the ledger write.
// Entries carrying a reference already present for the user are replays: the
// ledger stays untouched and the current balance is returned.
func (r *Repository) ApplyTransaction(ctx context.Context, entry types.WalletTransaction) (*types.WalletBalance, error) {
	if entry.UserID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	if entry.Amount <= 0 {
		return nil, types.ErrInvalidAmount
	}
	if entry.Kind != types.TransactionCredit && entry.Kind != types.TransactionDebit {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, entry.Kind)
	}

	var balance types.WalletBalance
	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if entry.Reference != "" {
			replayed, err := r.referenceExists(ctx, tx, entry.UserID, entry.Reference)
			if err != nil {
				return err
			}
			if replayed {
				current, err := r.balance(ctx, tx, entry.UserID)
				if err != nil {
					return err
				}
				balance = current
				return nil
			}
		}

		current, err := r.balance(ctx, tx, entry.UserID)
		if err != nil {
			return err
		}
		if entry.Kind == types.TransactionDebit && current.Balance < entry.Amount {
			return fmt.Errorf("%w: balance %d, debit %d", types.ErrInsufficientCredits, current.Balance, entry.Amount)
		}

		record := fromTransaction(entry)
		r.stampForInsert(record)
		if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
			return err
		}
		balance = types.WalletBalance{
			UserID:    entry.UserID,
			Balance:   current.Balance + entry.Delta(),
			UpdatedAt: record.CreatedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// ListTransactions returns a paginated ledger listing, newest first.
func (r *Repository) ListTransactions(ctx context.Context, filter types.WalletFilter) (types.WalletPage, error) {
	pagination := normalizePagination(filter.Pagination, 50, 200)

	rows, total, err := r.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.OrderExpr("created_at DESC, id DESC").
			Limit(pagination.Limit).
			Offset(pagination.Offset)
		return applyWalletFilter(q, filter)
	})
	if err != nil {
		return types.WalletPage{}, err
	}

	page := types.WalletPage{
		Transactions: make([]types.WalletTransaction, 0, len(rows)),
		Total:        total,
	}
	for _, record := range rows {
		page.Transactions = append(page.Transactions, toTransaction(record))
	}
	page.NextOffset = pagination.Offset + len(rows)
	page.HasMore = page.NextOffset < total
	return page, nil
}

func (r *Repository) balance(ctx context.Context, db bun.IDB, userID uuid.UUID) (types.WalletBalance, error) {
	type row struct {
		Balance   int64      `bun:"balance"`
		UpdatedAt *time.Time `bun:"updated_at"`
	}
	var out row
	err := db.NewSelect().
		Table("wallet_transactions").
		ColumnExpr("COALESCE(SUM(CASE WHEN kind = ? THEN amount ELSE -amount END), 0) AS balance", string(types.TransactionCredit)).
		ColumnExpr("MAX(created_at) AS updated_at").
		Where("user_id = ?", userID).
		Scan(ctx, &out)
	if err != nil {
		return types.WalletBalance{}, err
	}
	balance := types.WalletBalance{UserID: userID, Balance: out.Balance}
	if out.UpdatedAt != nil {
		balance.UpdatedAt = *out.UpdatedAt
	}
	return balance, nil
}

func (r *Repository) referenceExists(ctx context.Context, db bun.IDB, userID uuid.UUID, reference string) (bool, error) {
	return db.NewSelect().
		Table("wallet_transactions").
		Where("user_id = ?", userID).
		Where("reference = ?", reference).
		Exists(ctx)
}

func (r *Repository) stampForInsert(record *Record) {
	if record.ID == uuid.Nil {
		record.ID = r.idGen.UUID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.clock.Now()
	}
}

func applyWalletFilter(q *bun.SelectQuery, filter types.WalletFilter) *bun.SelectQuery {
	if filter.UserID != uuid.Nil {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", string(filter.Kind))
	}
	if filter.Since != nil {
		q = q.Where("created_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		q = q.Where("created_at <= ?", *filter.Until)
	}
	return q
}

func fromTransaction(entry types.WalletTransaction) *Record {
	return &Record{
		ID:        entry.ID,
		UserID:    entry.UserID,
		Kind:      entry.Kind,
		Amount:    entry.Amount,
		Reason:    entry.Reason,
		Reference: entry.Reference,
		CreatedAt: entry.CreatedAt,
	}
}

func toTransaction(record *Record) types.WalletTransaction {
	if record == nil {
		return types.WalletTransaction{}
	}
	return types.WalletTransaction{
		ID:        record.ID,
		UserID:    record.UserID,
		Kind:      record.Kind,
		Amount:    record.Amount,
		Reason:    record.Reason,
		Reference: record.Reference,
		CreatedAt: record.CreatedAt,
	}
}

// FromTransaction converts a domain entry into its storage record.
func FromTransaction(entry types.WalletTransaction) *Record {
	return fromTransaction(entry)
}

// ToTransaction converts a storage record into the domain entry.
func ToTransaction(record *Record) types.WalletTransaction {
	return toTransaction(record)
}

func normalizePagination(p types.Pagination, def, max int) types.Pagination {
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
