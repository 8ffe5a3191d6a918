package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

// DirectProvider charges the stored payment method inline. Checkouts settle
// immediately and Confirm replays the stored receipt.
type DirectProvider struct {
	clock     types.Clock
	idGen     types.IDGenerator
	checkouts *checkouts
}

// NewDirectProvider builds the direct-charge provider.
func NewDirectProvider(cfg Config) (*DirectProvider, error) {
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	idGen := cfg.IDGen
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}
	return &DirectProvider{
		clock:     clock,
		idGen:     idGen,
		checkouts: newCheckouts(),
	}, nil
}

var _ types.BillingProvider = (*DirectProvider)(nil)

// Name implements BillingProvider.
func (p *DirectProvider) Name() string {
	return ProviderDirect
}

// Checkout charges immediately and returns a settled result.
func (p *DirectProvider) Checkout(ctx context.Context, userID uuid.UUID, pkg types.CreditPackage) (*types.CheckoutResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if userID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	if err := validatePackage(pkg); err != nil {
		return nil, err
	}

	result := types.CheckoutResult{
		Reference:   checkoutReference(p.idGen),
		Provider:    ProviderDirect,
		UserID:      userID,
		PackageID:   pkg.ID,
		Credits:     pkg.Credits,
		AmountCents: pkg.PriceCents,
		Currency:    pkg.Currency,
		Status:      types.PaymentStatusSucceeded,
		CreatedAt:   p.clock.Now(),
	}
	p.checkouts.put(result)
	return &result, nil
}

// Confirm replays the receipt for a settled charge.
func (p *DirectProvider) Confirm(ctx context.Context, reference string) (*types.PaymentReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, ok := p.checkouts.get(reference)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReference, reference)
	}
	return &types.PaymentReceipt{
		Reference: result.Reference,
		Provider:  ProviderDirect,
		PackageID: result.PackageID,
		Credits:   result.Credits,
		Verified:  result.Status == types.PaymentStatusSucceeded,
	}, nil
}
