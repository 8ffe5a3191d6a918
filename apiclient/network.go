package apiclient

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Connection is one edge in the user's graph.
type Connection struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	PeerID           uuid.UUID `json:"peer_id"`
	Tier             string    `json:"tier"`
	Status           string    `json:"status"`
	InteractionCount int       `json:"interaction_count"`
	FollowedAt       time.Time `json:"followed_at"`
	AcceptedAt       time.Time `json:"accepted_at"`
	PromotedAt       time.Time `json:"promoted_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// NetworkStats summarizes a user's network for dashboards.
type NetworkStats struct {
	Core      int `json:"core"`
	Extended  int `json:"extended"`
	Followers int `json:"followers"`
	Pending   int `json:"pending"`
}

// Suggestion proposes a peer the user may want to connect with.
type Suggestion struct {
	PeerID            uuid.UUID `json:"peer_id"`
	Reason            string    `json:"reason,omitempty"`
	SharedWorkspaces  int       `json:"shared_workspaces"`
	MutualConnections int       `json:"mutual_connections"`
}

// NetworkAPI covers the /network endpoints.
type NetworkAPI struct {
	client *Client
}

// ConnectionListOptions filter the connection list.
type ConnectionListOptions struct {
	Tier   string
	Status string
	Limit  int
	Offset int
}

func (o ConnectionListOptions) query() url.Values {
	q := url.Values{}
	if o.Tier != "" {
		q.Set("tier", o.Tier)
	}
	if o.Status != "" {
		q.Set("status", o.Status)
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		q.Set("offset", strconv.Itoa(o.Offset))
	}
	return q
}

// Connections lists accepted edges, optionally filtered by tier.
func (n *NetworkAPI) Connections(ctx context.Context, opts ConnectionListOptions) ([]Connection, *Pagination, error) {
	var items []Connection
	page, err := n.client.getPage(ctx, "/network/connections", opts.query(), &items)
	if err != nil {
		return nil, nil, err
	}
	return items, page, nil
}

// RemoveConnection severs the edge to the peer.
func (n *NetworkAPI) RemoveConnection(ctx context.Context, peerID uuid.UUID) error {
	return n.client.del(ctx, "/network/connections/"+peerID.String())
}

// Requests lists pending incoming connection requests.
func (n *NetworkAPI) Requests(ctx context.Context) ([]Connection, error) {
	var items []Connection
	if err := n.client.get(ctx, "/network/requests", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// SendRequest asks the peer for a mutual connection.
func (n *NetworkAPI) SendRequest(ctx context.Context, peerID uuid.UUID) (*Connection, error) {
	in := struct {
		PeerID uuid.UUID `json:"peer_id"`
	}{PeerID: peerID}
	var conn Connection
	if err := n.client.post(ctx, "/network/requests", in, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// AcceptRequest accepts the pending request from the peer.
func (n *NetworkAPI) AcceptRequest(ctx context.Context, peerID uuid.UUID) (*Connection, error) {
	var conn Connection
	if err := n.client.post(ctx, "/network/requests/"+peerID.String()+"/accept", nil, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// DeclineRequest declines the pending request from the peer.
func (n *NetworkAPI) DeclineRequest(ctx context.Context, peerID uuid.UUID) error {
	return n.client.post(ctx, "/network/requests/"+peerID.String()+"/decline", nil, nil)
}

// Followers lists edges pointing at the user.
func (n *NetworkAPI) Followers(ctx context.Context, limit, offset int) ([]Connection, *Pagination, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	var items []Connection
	page, err := n.client.getPage(ctx, "/network/followers", q, &items)
	if err != nil {
		return nil, nil, err
	}
	return items, page, nil
}

// Follow creates a one-way follow edge to the peer.
func (n *NetworkAPI) Follow(ctx context.Context, peerID uuid.UUID) (*Connection, error) {
	var conn Connection
	if err := n.client.post(ctx, "/network/follow/"+peerID.String(), nil, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// Unfollow removes the follow edge to the peer.
func (n *NetworkAPI) Unfollow(ctx context.Context, peerID uuid.UUID) error {
	return n.client.del(ctx, "/network/follow/"+peerID.String())
}

// Stats returns the network tier counters.
func (n *NetworkAPI) Stats(ctx context.Context) (*NetworkStats, error) {
	var stats NetworkStats
	if err := n.client.get(ctx, "/network/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Suggestions proposes peers worth connecting with.
func (n *NetworkAPI) Suggestions(ctx context.Context, limit int) ([]Suggestion, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var items []Suggestion
	if err := n.client.get(ctx, "/network/suggestions", q, &items); err != nil {
		return nil, err
	}
	return items, nil
}
