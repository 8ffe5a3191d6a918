package command

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/billing"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

// BillingCommandConfig wires the shared dependencies for purchase commands.
type BillingCommandConfig struct {
	Manager    *billing.Manager
	Clock      types.Clock
	Audit      types.AuditSink
	Hooks      types.Hooks
	ScopeGuard scope.Guard
}

// CheckoutCreditsInput starts a credit purchase for a catalog package.
type CheckoutCreditsInput struct {
	UserID    uuid.UUID
	PackageID string
	Actor     types.ActorRef
	Scope     types.ScopeFilter
	Result    *CheckoutCreditsResult
}

// Type implements gocommand.Message.
func (CheckoutCreditsInput) Type() string {
	return "command.billing.checkout"
}

// Validate implements gocommand.Message.
func (input CheckoutCreditsInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case strings.TrimSpace(input.PackageID) == "":
		return ErrPackageIDRequired
	default:
		return nil
	}
}

// CheckoutCreditsResult exposes the provider handle for the purchase.
type CheckoutCreditsResult struct {
	Checkout *types.CheckoutResult
}

// CheckoutCreditsCommand opens a purchase with the configured payment
// provider. No credits move until the confirm step verifies the receipt.
type CheckoutCreditsCommand struct {
	manager *billing.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewCheckoutCreditsCommand constructs the checkout handler.
func NewCheckoutCreditsCommand(cfg BillingCommandConfig) *CheckoutCreditsCommand {
	return &CheckoutCreditsCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[CheckoutCreditsInput] = (*CheckoutCreditsCommand)(nil)

// Execute opens the checkout and records the attempt.
func (c *CheckoutCreditsCommand) Execute(ctx context.Context, input CheckoutCreditsInput) error {
	if c.manager == nil {
		return ErrBillingManagerRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionWalletWrite, input.UserID)
	if err != nil {
		return err
	}

	checkout, err := c.manager.Checkout(ctx, input.UserID, strings.TrimSpace(input.PackageID))
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "billing.checkout_started",
		ObjectType:  "checkout",
		ObjectID:    checkout.Reference,
		Channel:     "wallet",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data: map[string]any{
			"package_id": checkout.PackageID,
			"credits":    checkout.Credits,
			"provider":   checkout.Provider,
		},
		OccurredAt: now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Checkout = checkout
	}
	return nil
}

// ConfirmCheckoutInput completes a purchase using the provider reference.
type ConfirmCheckoutInput struct {
	UserID    uuid.UUID
	Reference string
	Actor     types.ActorRef
	Scope     types.ScopeFilter
	Result    *WalletResult
}

// Type implements gocommand.Message.
func (ConfirmCheckoutInput) Type() string {
	return "command.billing.confirm"
}

// Validate implements gocommand.Message.
func (input ConfirmCheckoutInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case strings.TrimSpace(input.Reference) == "":
		return ErrReferenceRequired
	default:
		return nil
	}
}

// ConfirmCheckoutCommand verifies the provider receipt and credits the
// wallet. Confirming the same reference twice credits once; the ledger
// dedupes on the reference.
type ConfirmCheckoutCommand struct {
	manager *billing.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewConfirmCheckoutCommand constructs the confirm handler.
func NewConfirmCheckoutCommand(cfg BillingCommandConfig) *ConfirmCheckoutCommand {
	return &ConfirmCheckoutCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[ConfirmCheckoutInput] = (*ConfirmCheckoutCommand)(nil)

// Execute confirms the purchase and records the credited balance.
func (c *ConfirmCheckoutCommand) Execute(ctx context.Context, input ConfirmCheckoutInput) error {
	if c.manager == nil {
		return ErrBillingManagerRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionWalletWrite, input.UserID)
	if err != nil {
		return err
	}

	balance, err := c.manager.Confirm(ctx, input.UserID, strings.TrimSpace(input.Reference))
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "billing.checkout_confirmed",
		ObjectType:  "checkout",
		ObjectID:    strings.TrimSpace(input.Reference),
		Channel:     "wallet",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data:        map[string]any{"balance": balance.Balance},
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Balance = balance
	}
	return nil
}
