package types

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ConnectionTier separates close collaborators from the wider network.
type ConnectionTier string

const (
	TierCore     ConnectionTier = "core"
	TierExtended ConnectionTier = "extended"
)

// ConnectionStatus tracks the connection request lifecycle.
type ConnectionStatus string

const (
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionAccepted ConnectionStatus = "accepted"
	ConnectionDeclined ConnectionStatus = "declined"
)

var (
	// ErrSelfConnection indicates an attempt to connect a user to themselves.
	ErrSelfConnection = errors.New("go-stories: cannot connect user to themselves")
	// ErrConnectionExists indicates a duplicate connection request.
	ErrConnectionExists = errors.New("go-stories: connection already exists")
)

// NetworkConnection is a directed follow edge from UserID to PeerID. Accepting
// makes it a mutual connection; new connections start in the extended tier and
// are promoted to core once interactions accumulate.
type NetworkConnection struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	PeerID           uuid.UUID
	Tier             ConnectionTier
	Status           ConnectionStatus
	InteractionCount int
	FollowedAt       time.Time
	AcceptedAt       time.Time
	PromotedAt       time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Active reports whether the connection is currently usable.
func (c NetworkConnection) Active() bool { return c.Status == ConnectionAccepted }

// PromotionPolicy decides when an extended connection becomes core.
type PromotionPolicy interface {
	ShouldPromote(conn NetworkConnection) bool
}

// ThresholdPromotionPolicy promotes once InteractionCount reaches Threshold.
type ThresholdPromotionPolicy struct {
	Threshold int
}

// DefaultPromotionThreshold is the interaction count that moves an extended
// connection into the core tier.
const DefaultPromotionThreshold = 3

// ShouldPromote implements PromotionPolicy.
func (p ThresholdPromotionPolicy) ShouldPromote(conn NetworkConnection) bool {
	threshold := p.Threshold
	if threshold <= 0 {
		threshold = DefaultPromotionThreshold
	}
	return conn.Status == ConnectionAccepted &&
		conn.Tier == TierExtended &&
		conn.InteractionCount >= threshold
}

// ConnectionEvent is emitted after connection mutations.
type ConnectionEvent struct {
	UserID     uuid.UUID
	PeerID     uuid.UUID
	Action     string
	Tier       ConnectionTier
	Status     ConnectionStatus
	ActorID    uuid.UUID
	OccurredAt time.Time
}

// ConnectionFilter narrows connection listing queries.
type ConnectionFilter struct {
	Actor      ActorRef
	Scope      ScopeFilter
	UserID     uuid.UUID
	Tier       ConnectionTier
	Status     ConnectionStatus
	Pagination Pagination
}

// Type implements gocommand.Message for query inputs.
func (ConnectionFilter) Type() string {
	return "query.network.connections"
}

// Validate implements gocommand.Message.
func (filter ConnectionFilter) Validate() error {
	if filter.Actor.ID == uuid.Nil {
		return ErrActorRequired
	}
	return nil
}

// ConnectionPage represents a paginated connection listing.
type ConnectionPage struct {
	Connections []NetworkConnection
	Total       int
	NextOffset  int
	HasMore     bool
}

// NetworkStats summarizes a user's network for dashboards.
type NetworkStats struct {
	Core      int
	Extended  int
	Followers int
	Pending   int
}

// ConnectionSuggestion proposes a peer the user may want to connect with.
type ConnectionSuggestion struct {
	PeerID            uuid.UUID
	Reason            string
	SharedWorkspaces  int
	MutualConnections int
}

// NetworkRepository is the storage contract for the connection graph.
type NetworkRepository interface {
	CreateConnection(ctx context.Context, conn NetworkConnection) (*NetworkConnection, error)
	GetConnection(ctx context.Context, userID, peerID uuid.UUID) (*NetworkConnection, error)
	ListConnections(ctx context.Context, filter ConnectionFilter) (ConnectionPage, error)
	// UpdateConnection persists tier and status changes.
	UpdateConnection(ctx context.Context, conn NetworkConnection) (*NetworkConnection, error)
	// RecordInteraction increments the interaction counter and returns the
	// refreshed connection.
	RecordInteraction(ctx context.Context, userID, peerID uuid.UUID, at time.Time) (*NetworkConnection, error)
	// ListFollowers returns edges pointing at the user.
	ListFollowers(ctx context.Context, userID uuid.UUID, pagination Pagination) ([]NetworkConnection, int, error)
	NetworkStats(ctx context.Context, userID uuid.UUID) (NetworkStats, error)
	// ListSuggestionCandidates returns peers sharing workspaces or mutual
	// connections with the user, excluding existing connections.
	ListSuggestionCandidates(ctx context.Context, userID uuid.UUID, limit int) ([]ConnectionSuggestion, error)
	DeleteConnection(ctx context.Context, userID, peerID uuid.UUID) error
}
