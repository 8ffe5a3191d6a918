package billing

import (
	"errors"
	"fmt"
	"sync"

	"github.com/inchronicle/go-stories/pkg/types"
)

// Provider names accepted by New.
const (
	ProviderHosted = "hosted"
	ProviderDirect = "direct"
)

var (
	// ErrUnknownProvider indicates a provider name New does not recognize.
	ErrUnknownProvider = errors.New("billing: unknown provider")
	// ErrUnknownReference indicates a confirm for a checkout that was never
	// created.
	ErrUnknownReference = errors.New("billing: unknown checkout reference")
	// ErrInvalidPackage indicates a package without positive credits.
	ErrInvalidPackage = errors.New("billing: package must carry positive credits")
)

// Config selects and wires the payment provider.
type Config struct {
	Provider string
	// Links mints signed redirect URLs for hosted checkouts.
	Links types.SecureLinkManager
	// Route is the securelink route hosted checkouts redirect to.
	Route string
	Clock types.Clock
	IDGen types.IDGenerator
}

// New returns the provider named by cfg.Provider. An empty name selects the
// direct provider.
func New(cfg Config) (types.BillingProvider, error) {
	switch cfg.Provider {
	case ProviderHosted:
		return NewHostedProvider(cfg)
	case ProviderDirect, "":
		return NewDirectProvider(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// checkouts tracks in-flight purchases by reference.
type checkouts struct {
	mu      sync.Mutex
	entries map[string]types.CheckoutResult
}

func newCheckouts() *checkouts {
	return &checkouts{entries: map[string]types.CheckoutResult{}}
}

func (c *checkouts) put(result types.CheckoutResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[result.Reference] = result
}

func (c *checkouts) get(reference string) (types.CheckoutResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result, ok := c.entries[reference]
	return result, ok
}

func (c *checkouts) setStatus(reference string, status types.PaymentStatus) (types.CheckoutResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result, ok := c.entries[reference]
	if !ok {
		return types.CheckoutResult{}, false
	}
	result.Status = status
	c.entries[reference] = result
	return result, true
}

// fail transitions a pending checkout to failed. Settled checkouts stay put.
func (c *checkouts) fail(reference string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	result, ok := c.entries[reference]
	if !ok || result.Status != types.PaymentStatusPending {
		return false
	}
	result.Status = types.PaymentStatusFailed
	c.entries[reference] = result
	return true
}

func validatePackage(pkg types.CreditPackage) error {
	if pkg.Credits <= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidPackage, pkg.ID)
	}
	return nil
}

func checkoutReference(idGen types.IDGenerator) string {
	return fmt.Sprintf("chk_%s", idGen.UUID())
}
