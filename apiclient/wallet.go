package apiclient

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Balance is the wallet's materialized credit total.
type Balance struct {
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transaction is one wallet ledger entry.
type Transaction struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason,omitempty"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreditPackage is one purchasable bundle from the catalog.
type CreditPackage struct {
	ID         string `json:"id"`
	Credits    int64  `json:"credits"`
	PriceCents int64  `json:"price_cents"`
	Currency   string `json:"currency"`
}

// Checkout is the provider handle on an in-flight purchase. RedirectURL is
// set by hosted-redirect providers and empty for direct charges.
type Checkout struct {
	Reference   string    `json:"reference"`
	Provider    string    `json:"provider"`
	PackageID   string    `json:"package_id"`
	Credits     int64     `json:"credits"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	RedirectURL string    `json:"redirect_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// WalletAPI covers the /wallet and /billing endpoints.
type WalletAPI struct {
	client *Client
}

// Balance returns the current credit total.
func (w *WalletAPI) Balance(ctx context.Context) (*Balance, error) {
	var balance Balance
	if err := w.client.get(ctx, "/wallet", nil, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

// Transactions pages through the ledger, newest first.
func (w *WalletAPI) Transactions(ctx context.Context, limit, offset int) ([]Transaction, *Pagination, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	var items []Transaction
	page, err := w.client.getPage(ctx, "/wallet/transactions", q, &items)
	if err != nil {
		return nil, nil, err
	}
	return items, page, nil
}

// Packages lists the purchasable credit bundles.
func (w *WalletAPI) Packages(ctx context.Context) ([]CreditPackage, error) {
	var items []CreditPackage
	if err := w.client.get(ctx, "/billing/packages", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Checkout opens a purchase for the named package. No credits move until the
// confirm step verifies the provider receipt.
func (w *WalletAPI) Checkout(ctx context.Context, packageID string) (*Checkout, error) {
	in := map[string]string{"package_id": packageID}
	var checkout Checkout
	if err := w.client.post(ctx, "/billing/checkout", in, &checkout); err != nil {
		return nil, err
	}
	return &checkout, nil
}

// ConfirmCheckout verifies the provider receipt and credits the wallet.
// Confirming the same reference twice credits once.
func (w *WalletAPI) ConfirmCheckout(ctx context.Context, reference string) (*Balance, error) {
	in := map[string]string{"reference": reference}
	var balance Balance
	if err := w.client.post(ctx, "/billing/checkout/confirm", in, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}
