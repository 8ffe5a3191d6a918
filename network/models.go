package network

import (
	"time"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/uptrace/bun"
)

// Record is the Bun model backing network connections.
type Record struct {
	bun.BaseModel `bun:"table:network_connections"`

	ID               uuid.UUID              `bun:",pk,type:uuid"`
	UserID           uuid.UUID              `bun:"user_id,type:uuid"`
	PeerID           uuid.UUID              `bun:"peer_id,type:uuid"`
	Tier             types.ConnectionTier   `bun:"tier"`
	Status           types.ConnectionStatus `bun:"status"`
	InteractionCount int                    `bun:"interaction_count"`
	FollowedAt       time.Time              `bun:"followed_at,nullzero"`
	AcceptedAt       time.Time              `bun:"accepted_at,nullzero"`
	PromotedAt       time.Time              `bun:"promoted_at,nullzero"`
	CreatedAt        time.Time              `bun:"created_at"`
	UpdatedAt        time.Time              `bun:"updated_at"`
}
