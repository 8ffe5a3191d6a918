package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

// DefaultCheckoutRoute is the securelink route hosted checkouts redirect to.
const DefaultCheckoutRoute = "billing.checkout"

// HostedProvider sends the buyer to a signed checkout page and settles on the
// return callback. Checkouts stay pending until confirmed.
type HostedProvider struct {
	links     types.SecureLinkManager
	route     string
	clock     types.Clock
	idGen     types.IDGenerator
	checkouts *checkouts
}

// NewHostedProvider builds the hosted-redirect provider.
func NewHostedProvider(cfg Config) (*HostedProvider, error) {
	if cfg.Links == nil {
		return nil, types.ErrMissingSecureLinkManager
	}
	route := cfg.Route
	if route == "" {
		route = DefaultCheckoutRoute
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	idGen := cfg.IDGen
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}
	return &HostedProvider{
		links:     cfg.Links,
		route:     route,
		clock:     clock,
		idGen:     idGen,
		checkouts: newCheckouts(),
	}, nil
}

var _ types.BillingProvider = (*HostedProvider)(nil)

// Name implements BillingProvider.
func (p *HostedProvider) Name() string {
	return ProviderHosted
}

// Checkout opens a pending purchase and returns the signed redirect URL.
func (p *HostedProvider) Checkout(ctx context.Context, userID uuid.UUID, pkg types.CreditPackage) (*types.CheckoutResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if userID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	if err := validatePackage(pkg); err != nil {
		return nil, err
	}

	reference := checkoutReference(p.idGen)
	link, err := p.links.Generate(p.route, types.SecureLinkPayload{
		"reference":    reference,
		"user_id":      userID.String(),
		"package_id":   pkg.ID,
		"credits":      pkg.Credits,
		"amount_cents": pkg.PriceCents,
	})
	if err != nil {
		return nil, err
	}

	result := types.CheckoutResult{
		Reference:   reference,
		Provider:    ProviderHosted,
		UserID:      userID,
		PackageID:   pkg.ID,
		Credits:     pkg.Credits,
		AmountCents: pkg.PriceCents,
		Currency:    pkg.Currency,
		Status:      types.PaymentStatusPending,
		RedirectURL: link,
		CreatedAt:   p.clock.Now(),
	}
	p.checkouts.put(result)
	return &result, nil
}

// Confirm settles a checkout. Confirming twice returns the same receipt;
// cancelled checkouts come back unverified.
func (p *HostedProvider) Confirm(ctx context.Context, reference string) (*types.PaymentReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, ok := p.checkouts.get(reference)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReference, reference)
	}
	verified := result.Status != types.PaymentStatusFailed
	if verified && result.Status != types.PaymentStatusSucceeded {
		result, _ = p.checkouts.setStatus(reference, types.PaymentStatusSucceeded)
	}
	return &types.PaymentReceipt{
		Reference: result.Reference,
		Provider:  ProviderHosted,
		PackageID: result.PackageID,
		Credits:   result.Credits,
		Verified:  verified,
	}, nil
}

// Cancel marks a pending checkout failed. It reports whether the checkout
// was still cancellable.
func (p *HostedProvider) Cancel(reference string) bool {
	return p.checkouts.fail(reference)
}
