package network

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/uptrace/bun"
)

// ErrPeerRequired indicates a connection call without a peer identifier.
var ErrPeerRequired = errors.New("network: peer id required")

// RepositoryConfig wires the Bun-backed network repository.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

type recordStore interface {
	repository.Repository[*Record]
}

// Repository persists the connection graph.
type Repository struct {
	recordStore
	db    *bun.DB
	clock types.Clock
	idGen types.IDGenerator
}

// NewRepository constructs a repository implementing NetworkRepository. The
// bun DB is required: stats and suggestion queries run raw SQL.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.DB == nil {
		return nil, errors.New("network: bun DB required")
	}
	repo := cfg.Repository
	if repo == nil {
		repo = repository.NewRepository(cfg.DB, repository.ModelHandlers[*Record]{
			NewRecord: func() *Record { return &Record{} },
			GetID: func(record *Record) uuid.UUID {
				if record == nil {
					return uuid.Nil
				}
				return record.ID
			},
			SetID: func(record *Record, id uuid.UUID) {
				if record != nil {
					record.ID = id
				}
			},
		})
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	idGen := cfg.IDGen
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}

	return &Repository{
		recordStore: repo,
		db:          cfg.DB,
		clock:       clock,
		idGen:       idGen,
	}, nil
}

var (
	_ repository.Repository[*Record] = (*Repository)(nil)
	_ types.NetworkRepository        = (*Repository)(nil)
)

// CreateConnection persists a directed follow edge. New edges default to the
// extended tier and pending status.
func (r *Repository) CreateConnection(ctx context.Context, conn types.NetworkConnection) (*types.NetworkConnection, error) {
	if conn.UserID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	if conn.PeerID == uuid.Nil {
		return nil, ErrPeerRequired
	}
	if conn.UserID == conn.PeerID {
		return nil, types.ErrSelfConnection
	}

	exists, err := r.db.NewSelect().
		Table("network_connections").
		Where("user_id = ?", conn.UserID).
		Where("peer_id = ?", conn.PeerID).
		Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s -> %s", types.ErrConnectionExists, conn.UserID, conn.PeerID)
	}

	if conn.Tier == "" {
		conn.Tier = types.TierExtended
	}
	if conn.Status == "" {
		conn.Status = types.ConnectionPending
	}
	record := fromConnection(conn)
	r.stampForInsert(record)
	if record.FollowedAt.IsZero() {
		record.FollowedAt = record.CreatedAt
	}
	created, err := r.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	out := toConnection(created)
	return &out, nil
}

// GetConnection fetches the directed edge userID -> peerID.
func (r *Repository) GetConnection(ctx context.Context, userID, peerID uuid.UUID) (*types.NetworkConnection, error) {
	record, err := r.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ?", userID).Where("peer_id = ?", peerID)
	})
	if err != nil {
		return nil, err
	}
	out := toConnection(record)
	return &out, nil
}

// ListConnections returns a paginated edge listing, newest first.
func (r *Repository) ListConnections(ctx context.Context, filter types.ConnectionFilter) (types.ConnectionPage, error) {
	pagination := normalizePagination(filter.Pagination, 50, 200)

	rows, total, err := r.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.OrderExpr("created_at DESC, id DESC").
			Limit(pagination.Limit).
			Offset(pagination.Offset)
		return applyConnectionFilter(q, filter)
	})
	if err != nil {
		return types.ConnectionPage{}, err
	}

	page := types.ConnectionPage{
		Connections: make([]types.NetworkConnection, 0, len(rows)),
		Total:       total,
	}
	for _, record := range rows {
		page.Connections = append(page.Connections, toConnection(record))
	}
	page.NextOffset = pagination.Offset + len(rows)
	page.HasMore = page.NextOffset < total
	return page, nil
}

// UpdateConnection persists tier and status changes on the edge identified by
// (UserID, PeerID). Acceptance and promotion timestamps are stamped when the
// edge first enters those states; interaction counts stay untouched.
func (r *Repository) UpdateConnection(ctx context.Context, conn types.NetworkConnection) (*types.NetworkConnection, error) {
	record, err := r.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ?", conn.UserID).Where("peer_id = ?", conn.PeerID)
	})
	if err != nil {
		return nil, err
	}

	now := r.clock.Now()
	if conn.Status != "" && conn.Status != record.Status {
		record.Status = conn.Status
		if conn.Status == types.ConnectionAccepted && record.AcceptedAt.IsZero() {
			record.AcceptedAt = now
			if !conn.AcceptedAt.IsZero() {
				record.AcceptedAt = conn.AcceptedAt
			}
		}
	}
	if conn.Tier != "" && conn.Tier != record.Tier {
		record.Tier = conn.Tier
		if conn.Tier == types.TierCore && record.PromotedAt.IsZero() {
			record.PromotedAt = now
			if !conn.PromotedAt.IsZero() {
				record.PromotedAt = conn.PromotedAt
			}
		}
	}
	record.UpdatedAt = now

	updated, err := r.Update(ctx, record)
	if err != nil {
		return nil, err
	}
	out := toConnection(updated)
	return &out, nil
}

// RecordInteraction increments the edge's interaction counter.
func (r *Repository) RecordInteraction(ctx context.Context, userID, peerID uuid.UUID, at time.Time) (*types.NetworkConnection, error) {
	record, err := r.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ?", userID).Where("peer_id = ?", peerID)
	})
	if err != nil {
		return nil, err
	}

	if at.IsZero() {
		at = r.clock.Now()
	}
	record.InteractionCount++
	record.UpdatedAt = at

	updated, err := r.Update(ctx, record)
	if err != nil {
		return nil, err
	}
	out := toConnection(updated)
	return &out, nil
}

// ListFollowers returns non-declined edges pointing at the user, newest
// first. Callers filter by status for follower versus request views.
func (r *Repository) ListFollowers(ctx context.Context, userID uuid.UUID, pagination types.Pagination) ([]types.NetworkConnection, int, error) {
	p := normalizePagination(pagination, 50, 200)

	rows, total, err := r.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("peer_id = ?", userID).
			Where("status <> ?", string(types.ConnectionDeclined)).
			OrderExpr("created_at DESC, id DESC").
			Limit(p.Limit).
			Offset(p.Offset)
	})
	if err != nil {
		return nil, 0, err
	}

	out := make([]types.NetworkConnection, 0, len(rows))
	for _, record := range rows {
		out = append(out, toConnection(record))
	}
	return out, total, nil
}

// NetworkStats summarizes both edge directions for the user.
func (r *Repository) NetworkStats(ctx context.Context, userID uuid.UUID) (types.NetworkStats, error) {
	var outgoing struct {
		Core     int `bun:"core"`
		Extended int `bun:"extended"`
	}
	err := r.db.NewSelect().
		Table("network_connections").
		ColumnExpr("COALESCE(SUM(CASE WHEN status = ? AND tier = ? THEN 1 ELSE 0 END), 0) AS core",
			string(types.ConnectionAccepted), string(types.TierCore)).
		ColumnExpr("COALESCE(SUM(CASE WHEN status = ? AND tier = ? THEN 1 ELSE 0 END), 0) AS extended",
			string(types.ConnectionAccepted), string(types.TierExtended)).
		Where("user_id = ?", userID).
		Scan(ctx, &outgoing)
	if err != nil {
		return types.NetworkStats{}, err
	}

	var incoming struct {
		Followers int `bun:"followers"`
		Pending   int `bun:"pending"`
	}
	err = r.db.NewSelect().
		Table("network_connections").
		ColumnExpr("COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS followers",
			string(types.ConnectionAccepted)).
		ColumnExpr("COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pending",
			string(types.ConnectionPending)).
		Where("peer_id = ?", userID).
		Scan(ctx, &incoming)
	if err != nil {
		return types.NetworkStats{}, err
	}

	return types.NetworkStats{
		Core:      outgoing.Core,
		Extended:  outgoing.Extended,
		Followers: incoming.Followers,
		Pending:   incoming.Pending,
	}, nil
}

const mutualCandidateSQL = `WITH peers AS (
	SELECT peer_id AS id FROM network_connections WHERE user_id = ? AND status = 'accepted'
	UNION
	SELECT user_id AS id FROM network_connections WHERE peer_id = ? AND status = 'accepted'
)
SELECT reach.candidate_id AS candidate_id, COUNT(DISTINCT reach.via) AS mutual_connections
FROM (
	SELECT CASE WHEN nc.user_id = peers.id THEN nc.peer_id ELSE nc.user_id END AS candidate_id,
	       peers.id AS via
	FROM network_connections AS nc
	JOIN peers ON peers.id IN (nc.user_id, nc.peer_id)
	WHERE nc.status = 'accepted'
) AS reach
WHERE reach.candidate_id <> ?
  AND reach.candidate_id NOT IN (
	SELECT peer_id FROM network_connections WHERE user_id = ?
	UNION
	SELECT user_id FROM network_connections WHERE peer_id = ?
  )
GROUP BY reach.candidate_id`

const sharedWorkspaceSQL = `SELECT others.user_id AS candidate_id, COUNT(DISTINCT mine.workspace_id) AS shared_workspaces
FROM workspace_members AS mine
JOIN workspace_members AS others
  ON others.workspace_id = mine.workspace_id AND others.user_id <> mine.user_id
WHERE mine.user_id = ?
  AND others.user_id NOT IN (
	SELECT peer_id FROM network_connections WHERE user_id = ?
	UNION
	SELECT user_id FROM network_connections WHERE peer_id = ?
  )
GROUP BY others.user_id`

// ListSuggestionCandidates scores peers-of-peers by mutual connection count
// and workspace co-membership, excluding anyone with an existing edge to the
// user in either direction.
func (r *Repository) ListSuggestionCandidates(ctx context.Context, userID uuid.UUID, limit int) ([]types.ConnectionSuggestion, error) {
	if userID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	if limit <= 0 {
		limit = 10
	}

	type row struct {
		CandidateID       uuid.UUID `bun:"candidate_id"`
		MutualConnections int       `bun:"mutual_connections"`
		SharedWorkspaces  int       `bun:"shared_workspaces"`
	}

	var mutuals []row
	err := r.db.NewRaw(mutualCandidateSQL, userID, userID, userID, userID, userID).Scan(ctx, &mutuals)
	if err != nil {
		return nil, err
	}

	var shared []row
	err = r.db.NewRaw(sharedWorkspaceSQL, userID, userID, userID).Scan(ctx, &shared)
	if err != nil {
		return nil, err
	}

	merged := map[uuid.UUID]*types.ConnectionSuggestion{}
	for _, candidate := range mutuals {
		merged[candidate.CandidateID] = &types.ConnectionSuggestion{
			PeerID:            candidate.CandidateID,
			MutualConnections: candidate.MutualConnections,
		}
	}
	for _, candidate := range shared {
		suggestion, ok := merged[candidate.CandidateID]
		if !ok {
			suggestion = &types.ConnectionSuggestion{PeerID: candidate.CandidateID}
			merged[candidate.CandidateID] = suggestion
		}
		suggestion.SharedWorkspaces = candidate.SharedWorkspaces
	}

	out := make([]types.ConnectionSuggestion, 0, len(merged))
	for _, suggestion := range merged {
		suggestion.Reason = suggestionReason(suggestion.MutualConnections, suggestion.SharedWorkspaces)
		out = append(out, *suggestion)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MutualConnections != out[j].MutualConnections {
			return out[i].MutualConnections > out[j].MutualConnections
		}
		if out[i].SharedWorkspaces != out[j].SharedWorkspaces {
			return out[i].SharedWorkspaces > out[j].SharedWorkspaces
		}
		return out[i].PeerID.String() < out[j].PeerID.String()
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteConnection removes the directed edge userID -> peerID.
func (r *Repository) DeleteConnection(ctx context.Context, userID, peerID uuid.UUID) error {
	record, err := r.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ?", userID).Where("peer_id = ?", peerID)
	})
	if err != nil {
		return err
	}
	return r.Delete(ctx, record)
}

func (r *Repository) stampForInsert(record *Record) {
	if record.ID == uuid.Nil {
		record.ID = r.idGen.UUID()
	}
	now := r.clock.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = now
	}
}

func applyConnectionFilter(q *bun.SelectQuery, filter types.ConnectionFilter) *bun.SelectQuery {
	if filter.UserID != uuid.Nil {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Tier != "" {
		q = q.Where("tier = ?", string(filter.Tier))
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	return q
}

func suggestionReason(mutuals, shared int) string {
	switch {
	case mutuals > 0 && shared > 0:
		return fmt.Sprintf("%s; %s", mutualReason(mutuals), workspaceReason(shared))
	case mutuals > 0:
		return mutualReason(mutuals)
	case shared > 0:
		return workspaceReason(shared)
	default:
		return ""
	}
}

func mutualReason(n int) string {
	if n == 1 {
		return "knows 1 of your connections"
	}
	return fmt.Sprintf("knows %d of your connections", n)
}

func workspaceReason(n int) string {
	if n == 1 {
		return "shares a workspace with you"
	}
	return fmt.Sprintf("shares %d workspaces with you", n)
}

func fromConnection(conn types.NetworkConnection) *Record {
	return &Record{
		ID:               conn.ID,
		UserID:           conn.UserID,
		PeerID:           conn.PeerID,
		Tier:             conn.Tier,
		Status:           conn.Status,
		InteractionCount: conn.InteractionCount,
		FollowedAt:       conn.FollowedAt,
		AcceptedAt:       conn.AcceptedAt,
		PromotedAt:       conn.PromotedAt,
		CreatedAt:        conn.CreatedAt,
		UpdatedAt:        conn.UpdatedAt,
	}
}

func toConnection(record *Record) types.NetworkConnection {
	if record == nil {
		return types.NetworkConnection{}
	}
	return types.NetworkConnection{
		ID:               record.ID,
		UserID:           record.UserID,
		PeerID:           record.PeerID,
		Tier:             record.Tier,
		Status:           record.Status,
		InteractionCount: record.InteractionCount,
		FollowedAt:       record.FollowedAt,
		AcceptedAt:       record.AcceptedAt,
		PromotedAt:       record.PromotedAt,
		CreatedAt:        record.CreatedAt,
		UpdatedAt:        record.UpdatedAt,
	}
}

// FromConnection converts a domain connection into its storage record.
func FromConnection(conn types.NetworkConnection) *Record {
	return fromConnection(conn)
}

// ToConnection converts a storage record into the domain connection.
func ToConnection(record *Record) types.NetworkConnection {
	return toConnection(record)
}

func normalizePagination(p types.Pagination, def, max int) types.Pagination {
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
