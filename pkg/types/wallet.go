package types

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TransactionKind distinguishes ledger credits from debits.
type TransactionKind string

const (
	TransactionCredit TransactionKind = "credit"
	TransactionDebit  TransactionKind = "debit"
)

var (
	// ErrInsufficientCredits indicates a debit larger than the current balance.
	ErrInsufficientCredits = errors.New("go-stories: insufficient credits")
	// ErrInvalidAmount indicates a zero or negative transaction amount.
	ErrInvalidAmount = errors.New("go-stories: transaction amount must be positive")
)

// WalletTransaction is one immutable ledger entry. Amount is always positive;
// Kind carries the sign.
type WalletTransaction struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Kind      TransactionKind
	Amount    int64
	Reason    string
	Reference string
	CreatedAt time.Time
}

// Delta returns the signed balance change for the entry.
func (t WalletTransaction) Delta() int64 {
	if t.Kind == TransactionDebit {
		return -t.Amount
	}
	return t.Amount
}

// WalletBalance is the materialized sum of a user's ledger.
type WalletBalance struct {
	UserID    uuid.UUID
	Balance   int64
	UpdatedAt time.Time
}

// WalletEvent is emitted after a ledger entry is applied.
type WalletEvent struct {
	UserID     uuid.UUID
	Kind       TransactionKind
	Amount     int64
	Balance    int64
	Reason     string
	ActorID    uuid.UUID
	OccurredAt time.Time
}

// WalletFilter narrows ledger listing queries.
type WalletFilter struct {
	Actor      ActorRef
	Scope      ScopeFilter
	UserID     uuid.UUID
	Kind       TransactionKind
	Since      *time.Time
	Until      *time.Time
	Pagination Pagination
}

// Type implements gocommand.Message for query inputs.
func (WalletFilter) Type() string {
	return "query.wallet.transactions"
}

// Validate implements gocommand.Message.
func (filter WalletFilter) Validate() error {
	if filter.Actor.ID == uuid.Nil {
		return ErrActorRequired
	}
	return nil
}

// WalletPage represents a paginated ledger response.
type WalletPage struct {
	Transactions []WalletTransaction
	Total        int
	NextOffset   int
	HasMore      bool
}

// WalletRepository is the storage contract for the credits ledger. The
// balance must always equal the sum of applied transaction deltas.
type WalletRepository interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (WalletBalance, error)
	// ApplyTransaction appends a ledger entry and adjusts the balance in the
	// same transaction. Debits exceeding the balance fail with
	// ErrInsufficientCredits and leave the ledger untouched.
	ApplyTransaction(ctx context.Context, tx WalletTransaction) (*WalletBalance, error)
	ListTransactions(ctx context.Context, filter WalletFilter) (WalletPage, error)
}

// CreditPackage is a purchasable bundle of credits.
type CreditPackage struct {
	ID         string
	Credits    int64
	PriceCents int64
	Currency   string
}

// PaymentStatus tracks a checkout through its provider lifecycle.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// CheckoutResult is a provider-agnostic handle on an in-flight purchase.
// RedirectURL is set by hosted-redirect providers and empty for direct
// charges.
type CheckoutResult struct {
	Reference   string
	Provider    string
	UserID      uuid.UUID
	PackageID   string
	Credits     int64
	AmountCents int64
	Currency    string
	Status      PaymentStatus
	RedirectURL string
	CreatedAt   time.Time
}

// PaymentReceipt is the provider's verdict on a completed purchase.
type PaymentReceipt struct {
	Reference string
	Provider  string
	PackageID string
	Credits   int64
	Verified  bool
}

// BillingProvider abstracts the payment vendor behind credit purchases. The
// service holds exactly one provider selected by configuration; swapping
// vendors never touches purchase flows.
type BillingProvider interface {
	Name() string
	Checkout(ctx context.Context, userID uuid.UUID, pkg CreditPackage) (*CheckoutResult, error)
	Confirm(ctx context.Context, reference string) (*PaymentReceipt, error)
}
