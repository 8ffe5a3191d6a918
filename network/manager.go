package network

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

// Connection event actions.
const (
	ActionFollowed   = "followed"
	ActionAccepted   = "accepted"
	ActionDeclined   = "declined"
	ActionUnfollowed = "unfollowed"
	ActionPromoted   = "promoted"
)

// ErrNotPending indicates an accept or decline on an edge that already
// settled.
var ErrNotPending = errors.New("network: connection is not pending")

// ManagerConfig wires the network manager.
type ManagerConfig struct {
	Network types.NetworkRepository
	Policy  types.PromotionPolicy
	Hooks   types.Hooks
	Clock   types.Clock
	Logger  types.Logger
}

// Manager runs the connection lifecycle: follow, accept, decline, unfollow,
// interaction-driven tier promotion, and suggestion assembly.
type Manager struct {
	network types.NetworkRepository
	policy  types.PromotionPolicy
	hooks   types.Hooks
	clock   types.Clock
	logger  types.Logger
}

// NewManager validates dependencies and builds the network manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Network == nil {
		return nil, types.ErrMissingNetworkRepository
	}
	policy := cfg.Policy
	if policy == nil {
		policy = types.ThresholdPromotionPolicy{Threshold: types.DefaultPromotionThreshold}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Manager{
		network: cfg.Network,
		policy:  policy,
		hooks:   cfg.Hooks,
		clock:   clock,
		logger:  logger,
	}, nil
}

// Follow creates a pending edge from the user to the peer.
func (m *Manager) Follow(ctx context.Context, userID, peerID uuid.UUID) (*types.NetworkConnection, error) {
	conn, err := m.network.CreateConnection(ctx, types.NetworkConnection{
		UserID: userID,
		PeerID: peerID,
	})
	if err != nil {
		return nil, err
	}
	m.fireConnection(ctx, *conn, ActionFollowed, userID)
	return conn, nil
}

// Accept activates the pending edge requesterID -> userID.
func (m *Manager) Accept(ctx context.Context, userID, requesterID uuid.UUID) (*types.NetworkConnection, error) {
	conn, err := m.network.GetConnection(ctx, requesterID, userID)
	if err != nil {
		return nil, err
	}
	if conn.Status != types.ConnectionPending {
		return nil, fmt.Errorf("%w: %s", ErrNotPending, conn.Status)
	}

	updated, err := m.network.UpdateConnection(ctx, types.NetworkConnection{
		UserID:     requesterID,
		PeerID:     userID,
		Status:     types.ConnectionAccepted,
		AcceptedAt: m.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	m.fireConnection(ctx, *updated, ActionAccepted, userID)
	return updated, nil
}

// Decline rejects the pending edge requesterID -> userID.
func (m *Manager) Decline(ctx context.Context, userID, requesterID uuid.UUID) (*types.NetworkConnection, error) {
	conn, err := m.network.GetConnection(ctx, requesterID, userID)
	if err != nil {
		return nil, err
	}
	if conn.Status != types.ConnectionPending {
		return nil, fmt.Errorf("%w: %s", ErrNotPending, conn.Status)
	}

	updated, err := m.network.UpdateConnection(ctx, types.NetworkConnection{
		UserID: requesterID,
		PeerID: userID,
		Status: types.ConnectionDeclined,
	})
	if err != nil {
		return nil, err
	}
	m.fireConnection(ctx, *updated, ActionDeclined, userID)
	return updated, nil
}

// Unfollow removes the edge userID -> peerID.
func (m *Manager) Unfollow(ctx context.Context, userID, peerID uuid.UUID) error {
	conn, err := m.network.GetConnection(ctx, userID, peerID)
	if err != nil {
		return err
	}
	if err := m.network.DeleteConnection(ctx, userID, peerID); err != nil {
		return err
	}
	m.fireConnection(ctx, *conn, ActionUnfollowed, userID)
	return nil
}

// Connections lists the user's outgoing edges.
func (m *Manager) Connections(ctx context.Context, filter types.ConnectionFilter) (types.ConnectionPage, error) {
	return m.network.ListConnections(ctx, filter)
}

// Followers lists edges pointing at the user.
func (m *Manager) Followers(ctx context.Context, userID uuid.UUID, pagination types.Pagination) ([]types.NetworkConnection, int, error) {
	return m.network.ListFollowers(ctx, userID, pagination)
}

// Stats summarizes the user's network.
func (m *Manager) Stats(ctx context.Context, userID uuid.UUID) (types.NetworkStats, error) {
	return m.network.NetworkStats(ctx, userID)
}

// RecordInteraction bumps the edge's interaction counter and applies the
// promotion policy.
func (m *Manager) RecordInteraction(ctx context.Context, userID, peerID uuid.UUID) (*types.NetworkConnection, error) {
	updated, err := m.network.RecordInteraction(ctx, userID, peerID, m.clock.Now())
	if err != nil {
		return nil, err
	}
	if !m.policy.ShouldPromote(*updated) {
		return updated, nil
	}

	promoted, err := m.network.UpdateConnection(ctx, types.NetworkConnection{
		UserID:     userID,
		PeerID:     peerID,
		Tier:       types.TierCore,
		PromotedAt: m.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	m.fireConnection(ctx, *promoted, ActionPromoted, userID)
	return promoted, nil
}

// Suggestions proposes new peers. Repository failures degrade to an empty
// list so dashboards render without a suggestion rail.
func (m *Manager) Suggestions(ctx context.Context, userID uuid.UUID, limit int) []types.ConnectionSuggestion {
	suggestions, err := m.network.ListSuggestionCandidates(ctx, userID, limit)
	if err != nil {
		m.logger.Error("network suggestions unavailable", err, "user_id", userID)
		return []types.ConnectionSuggestion{}
	}
	if suggestions == nil {
		return []types.ConnectionSuggestion{}
	}
	return suggestions
}

func (m *Manager) fireConnection(ctx context.Context, conn types.NetworkConnection, action string, actorID uuid.UUID) {
	if m.hooks.AfterConnectionChange == nil {
		return
	}
	m.hooks.AfterConnectionChange(ctx, types.ConnectionEvent{
		UserID:     conn.UserID,
		PeerID:     conn.PeerID,
		Action:     action,
		Tier:       conn.Tier,
		Status:     conn.Status,
		ActorID:    actorID,
		OccurredAt: m.clock.Now(),
	})
}
