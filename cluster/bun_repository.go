package cluster

import (
	"context"
	"errors"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/uptrace/bun"
)

// RepositoryConfig wires the Bun-backed cluster repository.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

type recordStore interface {
	repository.Repository[*Record]
}

// Repository persists activity clusters.
type Repository struct {
	recordStore
	db    *bun.DB
	clock types.Clock
	idGen types.IDGenerator
}

// NewRepository constructs a repository implementing ClusterRepository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("cluster: db or repository required")
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
	_ types.ClusterRepository        = (*Repository)(nil)
)

// CreateCluster persists a new cluster. ActivityCount is recomputed from the
// membership list regardless of what the caller set.
func (r *Repository) CreateCluster(ctx context.Context, cluster types.Cluster) (*types.Cluster, error) {
	cluster.SetActivities(cluster.ActivityIDs)
	record := fromCluster(cluster)
	r.stampForInsert(record)
	created, err := r.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	out := toCluster(created)
	return &out, nil
}

// GetClusterByID fetches a cluster owned by the user.
func (r *Repository) GetClusterByID(ctx context.Context, userID, id uuid.UUID) (*types.Cluster, error) {
	record, err := r.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("id = ?", id)
		if userID != uuid.Nil {
			q = q.Where("user_id = ?", userID)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	out := toCluster(record)
	return &out, nil
}

// ListClusters returns a paginated cluster listing, newest first.
func (r *Repository) ListClusters(ctx context.Context, filter types.ClusterFilter) (types.ClusterPage, error) {
	pagination := normalizePagination(filter.Pagination, 50, 200)

	rows, total, err := r.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.OrderExpr("created_at DESC, id DESC").
			Limit(pagination.Limit).
			Offset(pagination.Offset)
		return applyClusterFilter(q, filter)
	})
	if err != nil {
		return types.ClusterPage{}, err
	}
	clusters := make([]types.Cluster, 0, len(rows))
	for _, row := range rows {
		clusters = append(clusters, toCluster(row))
	}
	return types.ClusterPage{
		Clusters:   clusters,
		Total:      total,
		NextOffset: pagination.Offset + pagination.Limit,
		HasMore:    pagination.Offset+pagination.Limit < total,
	}, nil
}

// ListClustersByIDs returns the user's clusters matching the ids, oldest first.
func (r *Repository) ListClustersByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]types.Cluster, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, _, err := r.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("id IN (?)", bun.In(ids)).
			OrderExpr("created_at ASC, id ASC")
		if userID != uuid.Nil {
			q = q.Where("user_id = ?", userID)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	clusters := make([]types.Cluster, 0, len(rows))
	for _, row := range rows {
		clusters = append(clusters, toCluster(row))
	}
	return clusters, nil
}

// UpdateCluster persists name and description changes only. Membership goes
// through SetClusterActivities so the count invariant cannot drift.
func (r *Repository) UpdateCluster(ctx context.Context, cluster types.Cluster) (*types.Cluster, error) {
	existing, err := r.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("id = ?", cluster.ID)
		if cluster.UserID != uuid.Nil {
			q = q.Where("user_id = ?", cluster.UserID)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	existing.Name = cluster.Name
	existing.Description = cluster.Description
	existing.UpdatedAt = r.clock.Now()
	updated, err := r.Update(ctx, existing)
	if err != nil {
		return nil, err
	}
	out := toCluster(updated)
	return &out, nil
}

// SetClusterActivities replaces the membership list, recomputes ActivityCount,
// and stores the refreshed metrics.
func (r *Repository) SetClusterActivities(ctx context.Context, userID, clusterID uuid.UUID, activityIDs []uuid.UUID, metrics types.ClusterMetrics) (*types.Cluster, error) {
	existing, err := r.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("id = ?", clusterID)
		if userID != uuid.Nil {
			q = q.Where("user_id = ?", userID)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	existing.ActivityIDs = cloneUUIDs(activityIDs)
	existing.ActivityCount = len(activityIDs)
	existing.Metrics = metrics
	existing.UpdatedAt = r.clock.Now()
	updated, err := r.Update(ctx, existing)
	if err != nil {
		return nil, err
	}
	out := toCluster(updated)
	return &out, nil
}

// DeleteCluster removes the cluster row. Callers release member activities
// first; the repository never touches the activity table.
func (r *Repository) DeleteCluster(ctx context.Context, userID, id uuid.UUID) error {
	record, err := r.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("id = ?", id)
		if userID != uuid.Nil {
			q = q.Where("user_id = ?", userID)
		}
		return q
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

func applyClusterFilter(q *bun.SelectQuery, filter types.ClusterFilter) *bun.SelectQuery {
	if filter.Scope.TenantID != uuid.Nil {
		q = q.Where("tenant_id = ?", filter.Scope.TenantID)
	}
	if filter.Scope.WorkspaceID != uuid.Nil {
		q = q.Where("workspace_id = ?", filter.Scope.WorkspaceID)
	}
	if filter.UserID != uuid.Nil {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if strings.TrimSpace(filter.Keyword) != "" {
		keyword := "%" + strings.ToLower(strings.TrimSpace(filter.Keyword)) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", keyword, keyword)
	}
	return q
}

func fromCluster(cluster types.Cluster) *Record {
	return &Record{
		ID:            cluster.ID,
		UserID:        cluster.UserID,
		TenantID:      cluster.TenantID,
		WorkspaceID:   cluster.WorkspaceID,
		Name:          cluster.Name,
		Description:   cluster.Description,
		ActivityIDs:   cloneUUIDs(cluster.ActivityIDs),
		ActivityCount: cluster.ActivityCount,
		Metrics:       cloneMetrics(cluster.Metrics),
		CreatedAt:     cluster.CreatedAt,
		UpdatedAt:     cluster.UpdatedAt,
	}
}

func toCluster(record *Record) types.Cluster {
	if record == nil {
		return types.Cluster{}
	}
	return types.Cluster{
		ID:            record.ID,
		UserID:        record.UserID,
		TenantID:      record.TenantID,
		WorkspaceID:   record.WorkspaceID,
		Name:          record.Name,
		Description:   record.Description,
		ActivityIDs:   cloneUUIDs(record.ActivityIDs),
		ActivityCount: record.ActivityCount,
		Metrics:       cloneMetrics(record.Metrics),
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}

// FromCluster converts a domain cluster into the Bun model so it can be reused
// by transports without duplicating conversion logic.
func FromCluster(cluster types.Cluster) *Record {
	return fromCluster(cluster)
}

// ToCluster converts the Bun model into the domain cluster.
func ToCluster(record *Record) types.Cluster {
	return toCluster(record)
}

func cloneMetrics(metrics types.ClusterMetrics) types.ClusterMetrics {
	out := metrics
	if len(metrics.ToolTypes) > 0 {
		out.ToolTypes = make([]types.ActivitySource, len(metrics.ToolTypes))
		copy(out.ToolTypes, metrics.ToolTypes)
	}
	return out
}

func cloneUUIDs(src []uuid.UUID) []uuid.UUID {
	if len(src) == 0 {
		return nil
	}
	out := make([]uuid.UUID, len(src))
	copy(out, src)
	return out
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
