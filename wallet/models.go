package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/uptrace/bun"
)

// Record is the Bun model backing wallet ledger entries. Corrections land as
// compensating entries, never as updates.
type Record struct {
	bun.BaseModel `bun:"table:wallet_transactions"`

	ID        uuid.UUID             `bun:",pk,type:uuid"`
	UserID    uuid.UUID             `bun:"user_id,type:uuid"`
	Kind      types.TransactionKind `bun:"kind"`
	Amount    int64                 `bun:"amount"`
	Reason    string                `bun:"reason"`
	Reference string                `bun:"reference"`
	CreatedAt time.Time             `bun:"created_at"`
}
