package command

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
	"github.com/inchronicle/go-stories/wallet"
)

// ApplyWalletTransactionInput appends a single ledger entry.
type ApplyWalletTransactionInput struct {
	UserID uuid.UUID
	Kind   types.TransactionKind
	Amount int64
	Reason string
	// Reference dedupes replays; a second apply with the same reference
	// returns the current balance without writing.
	Reference string
	Actor     types.ActorRef
	Scope     types.ScopeFilter
	Result    *WalletResult
}

// Type implements gocommand.Message.
func (ApplyWalletTransactionInput) Type() string {
	return "command.wallet.apply"
}

// Validate implements gocommand.Message.
func (input ApplyWalletTransactionInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case input.Amount <= 0:
		return ErrAmountRequired
	case input.Kind != types.TransactionCredit && input.Kind != types.TransactionDebit:
		return wallet.ErrInvalidKind
	default:
		return nil
	}
}

// WalletResult exposes the balance after a wallet mutation.
type WalletResult struct {
	Balance *types.WalletBalance
}

// ApplyWalletTransactionCommand credits or debits a user's wallet. Debits
// beyond the balance fail without writing, and the ledger itself is
// append-only.
type ApplyWalletTransactionCommand struct {
	wallet types.WalletRepository
	clock  types.Clock
	sink   types.AuditSink
	hooks  types.Hooks
	guard  scope.Guard
}

// ApplyWalletTransactionConfig holds dependencies for wallet mutations.
type ApplyWalletTransactionConfig struct {
	Wallet     types.WalletRepository
	Clock      types.Clock
	Audit      types.AuditSink
	Hooks      types.Hooks
	ScopeGuard scope.Guard
}

// NewApplyWalletTransactionCommand constructs the wallet handler.
func NewApplyWalletTransactionCommand(cfg ApplyWalletTransactionConfig) *ApplyWalletTransactionCommand {
	return &ApplyWalletTransactionCommand{
		wallet: cfg.Wallet,
		clock:  safeClock(cfg.Clock),
		sink:   safeAuditSink(cfg.Audit),
		hooks:  safeHooks(cfg.Hooks),
		guard:  safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[ApplyWalletTransactionInput] = (*ApplyWalletTransactionCommand)(nil)

// Execute applies the entry, fires the wallet hook, and records the change.
func (c *ApplyWalletTransactionCommand) Execute(ctx context.Context, input ApplyWalletTransactionInput) error {
	if c.wallet == nil {
		return types.ErrMissingWalletRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionWalletWrite, input.UserID)
	if err != nil {
		return err
	}

	balance, err := c.wallet.ApplyTransaction(ctx, types.WalletTransaction{
		UserID:    input.UserID,
		Kind:      input.Kind,
		Amount:    input.Amount,
		Reason:    strings.TrimSpace(input.Reason),
		Reference: strings.TrimSpace(input.Reference),
	})
	if err != nil {
		return err
	}

	occurred := now(c.clock)
	if c.hooks.AfterWalletChange != nil {
		c.hooks.AfterWalletChange(ctx, types.WalletEvent{
			UserID:     input.UserID,
			Kind:       input.Kind,
			Amount:     input.Amount,
			Balance:    balance.Balance,
			Reason:     strings.TrimSpace(input.Reason),
			ActorID:    input.Actor.ID,
			OccurredAt: occurred,
		})
	}

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "wallet." + string(input.Kind),
		ObjectType:  "wallet",
		ObjectID:    input.UserID.String(),
		Channel:     "wallet",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data: map[string]any{
			"amount":  input.Amount,
			"balance": balance.Balance,
			"reason":  strings.TrimSpace(input.Reason),
		},
		OccurredAt: occurred,
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Balance = balance
	}
	return nil
}
