package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

// WalletReasonPurchase tags ledger credits minted by confirmed purchases.
const WalletReasonPurchase = "purchase"

var (
	// ErrUnknownPackage indicates a checkout for a package the catalog does
	// not carry.
	ErrUnknownPackage = errors.New("billing: unknown credit package")
	// ErrUnverifiedPayment indicates a confirm whose receipt the provider
	// refused to verify.
	ErrUnverifiedPayment = errors.New("billing: payment not verified")
)

// DefaultPackages is the stock credit catalog.
func DefaultPackages() []types.CreditPackage {
	return []types.CreditPackage{
		{ID: "starter", Credits: 50, PriceCents: 500, Currency: "usd"},
		{ID: "plus", Credits: 150, PriceCents: 1200, Currency: "usd"},
		{ID: "pro", Credits: 500, PriceCents: 3500, Currency: "usd"},
	}
}

// ManagerConfig wires the purchase manager.
type ManagerConfig struct {
	Provider types.BillingProvider
	Wallet   types.WalletRepository
	Packages []types.CreditPackage
	Hooks    types.Hooks
	Clock    types.Clock
}

// Manager drives credit purchases end to end: catalog lookup, provider
// checkout, wallet credit on confirmation.
type Manager struct {
	provider types.BillingProvider
	wallet   types.WalletRepository
	packages []types.CreditPackage
	hooks    types.Hooks
	clock    types.Clock
}

// NewManager validates dependencies and builds the purchase manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Provider == nil {
		return nil, types.ErrMissingBillingProvider
	}
	if cfg.Wallet == nil {
		return nil, types.ErrMissingWalletRepository
	}
	packages := cfg.Packages
	if len(packages) == 0 {
		packages = DefaultPackages()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	return &Manager{
		provider: cfg.Provider,
		wallet:   cfg.Wallet,
		packages: append([]types.CreditPackage(nil), packages...),
		hooks:    cfg.Hooks,
		clock:    clock,
	}, nil
}

// Packages returns the catalog.
func (m *Manager) Packages() []types.CreditPackage {
	return append([]types.CreditPackage(nil), m.packages...)
}

// FindPackage looks a package up by ID.
func (m *Manager) FindPackage(id string) (types.CreditPackage, bool) {
	for _, pkg := range m.packages {
		if pkg.ID == id {
			return pkg, true
		}
	}
	return types.CreditPackage{}, false
}

// Checkout opens a purchase for a catalog package.
func (m *Manager) Checkout(ctx context.Context, userID uuid.UUID, packageID string) (*types.CheckoutResult, error) {
	if userID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	pkg, ok := m.FindPackage(packageID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPackage, packageID)
	}
	return m.provider.Checkout(ctx, userID, pkg)
}

// Confirm settles a checkout and credits the wallet. The ledger reference
// carries the checkout reference, so confirming twice credits once.
func (m *Manager) Confirm(ctx context.Context, userID uuid.UUID, reference string) (*types.WalletBalance, error) {
	if userID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	receipt, err := m.provider.Confirm(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !receipt.Verified {
		return nil, fmt.Errorf("%w: %s", ErrUnverifiedPayment, reference)
	}
	if receipt.Credits <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPackage, receipt.PackageID)
	}

	before, err := m.wallet.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	balance, err := m.wallet.ApplyTransaction(ctx, types.WalletTransaction{
		UserID:    userID,
		Kind:      types.TransactionCredit,
		Amount:    receipt.Credits,
		Reason:    WalletReasonPurchase,
		Reference: fmt.Sprintf("purchase:%s", receipt.Reference),
	})
	if err != nil {
		return nil, err
	}
	if balance.Balance != before.Balance {
		m.fireWalletChange(ctx, userID, receipt.Credits, balance.Balance)
	}
	return balance, nil
}

func (m *Manager) fireWalletChange(ctx context.Context, userID uuid.UUID, amount, balance int64) {
	if m.hooks.AfterWalletChange == nil {
		return
	}
	m.hooks.AfterWalletChange(ctx, types.WalletEvent{
		UserID:     userID,
		Kind:       types.TransactionCredit,
		Amount:     amount,
		Balance:    balance,
		Reason:     WalletReasonPurchase,
		ActorID:    userID,
		OccurredAt: m.clock.Now(),
	})
}
