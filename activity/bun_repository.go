package activity

import (
	"context"
	"errors"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/uptrace/bun"
)

// RepositoryConfig wires the Bun-backed tool activity repository.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

type recordStore interface {
	repository.Repository[*Record]
}

// Repository persists tool activities and exposes query helpers.
type Repository struct {
	recordStore
	db    *bun.DB
	clock types.Clock
	idGen types.IDGenerator
}

// NewRepository constructs a repository implementing ToolActivityRepository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("activity: db or repository required")
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
	_ types.ToolActivityRepository   = (*Repository)(nil)
)

// CreateActivity persists a new activity row.
func (r *Repository) CreateActivity(ctx context.Context, activity types.ToolActivity) (*types.ToolActivity, error) {
	record := fromToolActivity(activity)
	r.stampForInsert(record)
	created, err := r.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	out := toToolActivity(created)
	return &out, nil
}

// UpsertActivity deduplicates on (UserID, Source, SourceID). The boolean
// reports whether a new row was created. Re-imports refresh title,
// description, URL, timestamp, refs, and raw payload but never touch the
// cluster assignment.
func (r *Repository) UpsertActivity(ctx context.Context, activity types.ToolActivity) (*types.ToolActivity, bool, error) {
	existing, err := r.GetActivityBySourceID(ctx, activity.UserID, activity.Source, activity.SourceID)
	if err == nil && existing != nil {
		merged := *existing
		merged.SourceURL = activity.SourceURL
		merged.Title = activity.Title
		merged.Description = activity.Description
		if !activity.Timestamp.IsZero() {
			merged.Timestamp = activity.Timestamp
		}
		merged.CrossToolRefs = mergeRefs(existing.CrossToolRefs, activity.CrossToolRefs)
		if len(activity.RawData) > 0 {
			merged.RawData = activity.RawData
		}
		record := fromToolActivity(merged)
		record.UpdatedAt = r.clock.Now()
		updated, err := r.Update(ctx, record)
		if err != nil {
			return nil, false, err
		}
		out := toToolActivity(updated)
		return &out, false, nil
	}

	created, err := r.CreateActivity(ctx, activity)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// GetActivityByID fetches an activity owned by the user.
func (r *Repository) GetActivityByID(ctx context.Context, userID, id uuid.UUID) (*types.ToolActivity, error) {
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
	out := toToolActivity(record)
	return &out, nil
}

// GetActivityBySourceID fetches by the dedupe triple.
func (r *Repository) GetActivityBySourceID(ctx context.Context, userID uuid.UUID, source types.ActivitySource, sourceID string) (*types.ToolActivity, error) {
	record, err := r.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ?", userID).
			Where("source = ?", string(source)).
			Where("source_id = ?", sourceID)
	})
	if err != nil {
		return nil, err
	}
	out := toToolActivity(record)
	return &out, nil
}

// ListActivities returns a paginated feed filtered by the supplied criteria.
// A cursor takes precedence over offset pagination.
func (r *Repository) ListActivities(ctx context.Context, filter types.ToolActivityFilter) (types.ToolActivityPage, error) {
	pagination := normalizePagination(filter.Pagination, 50, 200)

	cursor, err := DecodeCursor(filter.Cursor)
	if err != nil {
		return types.ToolActivityPage{}, err
	}

	criteria := []repository.SelectCriteria{
		func(q *bun.SelectQuery) *bun.SelectQuery {
			if cursor != nil {
				q = ApplyCursorPagination(q, cursor, pagination.Limit)
			} else {
				q = q.OrderExpr("timestamp DESC, id DESC").
					Limit(pagination.Limit).
					Offset(pagination.Offset)
			}
			return applyActivityFilter(q, filter)
		},
	}

	rows, total, err := r.List(ctx, criteria...)
	if err != nil {
		return types.ToolActivityPage{}, err
	}
	activities := make([]types.ToolActivity, 0, len(rows))
	for _, row := range rows {
		activities = append(activities, toToolActivity(row))
	}

	page := types.ToolActivityPage{
		Activities: activities,
		Total:      total,
	}
	if len(activities) == pagination.Limit && pagination.Limit > 0 {
		last := activities[len(activities)-1]
		page.NextCursor = EncodeCursor(ActivityCursor{Timestamp: last.Timestamp, ID: last.ID})
	}
	if cursor != nil {
		page.HasMore = page.NextCursor != ""
	} else {
		page.NextOffset = pagination.Offset + pagination.Limit
		page.HasMore = pagination.Offset+pagination.Limit < total
	}
	return page, nil
}

// ListActivitiesByIDs returns the user's activities matching the ids, in
// timestamp order.
func (r *Repository) ListActivitiesByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]types.ToolActivity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, _, err := r.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("id IN (?)", bun.In(ids)).
			OrderExpr("timestamp ASC, id ASC")
		if userID != uuid.Nil {
			q = q.Where("user_id = ?", userID)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	activities := make([]types.ToolActivity, 0, len(rows))
	for _, row := range rows {
		activities = append(activities, toToolActivity(row))
	}
	return activities, nil
}

// AssignCluster stamps the cluster on the given activities. A Nil clusterID
// returns them to the unclustered pool.
func (r *Repository) AssignCluster(ctx context.Context, userID uuid.UUID, activityIDs []uuid.UUID, clusterID uuid.UUID) (int, error) {
	if r.db == nil {
		return 0, errors.New("activity: cluster assignment requires bun DB")
	}
	if len(activityIDs) == 0 {
		return 0, nil
	}
	query := r.db.NewUpdate().
		Model((*Record)(nil)).
		Set("updated_at = ?", r.clock.Now()).
		Where("user_id = ?", userID).
		Where("id IN (?)", bun.In(activityIDs))
	if clusterID == uuid.Nil {
		query = query.Set("cluster_id = NULL")
	} else {
		query = query.Set("cluster_id = ?", clusterID)
	}
	res, err := query.Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// ReleaseCluster clears the cluster assignment for every member activity.
func (r *Repository) ReleaseCluster(ctx context.Context, userID, clusterID uuid.UUID) (int, error) {
	if r.db == nil {
		return 0, errors.New("activity: cluster release requires bun DB")
	}
	res, err := r.db.NewUpdate().
		Model((*Record)(nil)).
		Set("cluster_id = NULL").
		Set("updated_at = ?", r.clock.Now()).
		Where("user_id = ?", userID).
		Where("cluster_id = ?", clusterID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// ActivityStats aggregates counts grouped by source plus range bounds.
func (r *Repository) ActivityStats(ctx context.Context, filter types.ToolActivityStatsFilter) (types.ToolActivityStats, error) {
	stats := types.ToolActivityStats{
		BySource: make(map[types.ActivitySource]int),
	}
	if r.db == nil {
		return stats, errors.New("activity: stats requires bun DB")
	}
	query := r.db.NewSelect().
		Table("tool_activity").
		ColumnExpr("COUNT(*) AS total").
		ColumnExpr("source").
		Group("source")
	query = applyActivityStatsFilter(query, filter)

	type row struct {
		Source string `bun:"source"`
		Total  int    `bun:"total"`
	}
	var rows []row
	if err := query.Scan(ctx, &rows); err != nil {
		return stats, err
	}
	total := 0
	for _, rec := range rows {
		stats.BySource[types.ActivitySource(rec.Source)] = rec.Total
		total += rec.Total
	}
	stats.Total = total

	boundsQuery := r.db.NewSelect().
		Table("tool_activity").
		ColumnExpr("COALESCE(SUM(CASE WHEN cluster_id IS NULL THEN 1 ELSE 0 END), 0) AS unclustered").
		ColumnExpr("MIN(timestamp) AS earliest").
		ColumnExpr("MAX(timestamp) AS latest")
	boundsQuery = applyActivityStatsFilter(boundsQuery, filter)

	type bounds struct {
		Unclustered int        `bun:"unclustered"`
		Earliest    *time.Time `bun:"earliest"`
		Latest      *time.Time `bun:"latest"`
	}
	var b bounds
	if err := boundsQuery.Scan(ctx, &b); err != nil {
		return stats, err
	}
	stats.Unclustered = b.Unclustered
	if b.Earliest != nil {
		stats.Earliest = *b.Earliest
	}
	if b.Latest != nil {
		stats.Latest = *b.Latest
	}
	return stats, nil
}

// DeleteActivity removes a single activity owned by the user.
func (r *Repository) DeleteActivity(ctx context.Context, userID, id uuid.UUID) error {
	record, err := r.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id).Where("user_id = ?", userID)
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
	if record.Timestamp.IsZero() {
		record.Timestamp = now
	}
}

func applyActivityFilter(q *bun.SelectQuery, filter types.ToolActivityFilter) *bun.SelectQuery {
	if filter.Scope.TenantID != uuid.Nil {
		q = q.Where("tenant_id = ?", filter.Scope.TenantID)
	}
	if filter.Scope.WorkspaceID != uuid.Nil {
		q = q.Where("workspace_id = ?", filter.Scope.WorkspaceID)
	}
	if filter.UserID != uuid.Nil {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if len(filter.Sources) > 0 {
		sources := make([]string, 0, len(filter.Sources))
		for _, source := range filter.Sources {
			sources = append(sources, string(source))
		}
		q = q.Where("source IN (?)", bun.In(sources))
	}
	if filter.Unclustered {
		q = q.Where("cluster_id IS NULL")
	} else if filter.ClusterID != uuid.Nil {
		q = q.Where("cluster_id = ?", filter.ClusterID)
	}
	if filter.Since != nil && !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	if filter.Until != nil && !filter.Until.IsZero() {
		q = q.Where("timestamp <= ?", filter.Until)
	}
	if strings.TrimSpace(filter.Keyword) != "" {
		keyword := "%" + strings.ToLower(strings.TrimSpace(filter.Keyword)) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", keyword, keyword)
	}
	return q
}

func applyActivityStatsFilter(q *bun.SelectQuery, filter types.ToolActivityStatsFilter) *bun.SelectQuery {
	if filter.Scope.TenantID != uuid.Nil {
		q = q.Where("tenant_id = ?", filter.Scope.TenantID)
	}
	if filter.Scope.WorkspaceID != uuid.Nil {
		q = q.Where("workspace_id = ?", filter.Scope.WorkspaceID)
	}
	if filter.UserID != uuid.Nil {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Since != nil && !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	if filter.Until != nil && !filter.Until.IsZero() {
		q = q.Where("timestamp <= ?", filter.Until)
	}
	return q
}

func fromToolActivity(activity types.ToolActivity) *Record {
	return &Record{
		ID:            activity.ID,
		UserID:        activity.UserID,
		TenantID:      activity.TenantID,
		WorkspaceID:   activity.WorkspaceID,
		Source:        string(activity.Source),
		SourceID:      activity.SourceID,
		SourceURL:     activity.SourceURL,
		Title:         activity.Title,
		Description:   activity.Description,
		Timestamp:     activity.Timestamp,
		ClusterID:     activity.ClusterID,
		CrossToolRefs: cloneUUIDs(activity.CrossToolRefs),
		RawData:       activity.RawData,
		CreatedAt:     activity.CreatedAt,
		UpdatedAt:     activity.UpdatedAt,
	}
}

func toToolActivity(record *Record) types.ToolActivity {
	if record == nil {
		return types.ToolActivity{}
	}
	return types.ToolActivity{
		ID:            record.ID,
		UserID:        record.UserID,
		TenantID:      record.TenantID,
		WorkspaceID:   record.WorkspaceID,
		Source:        types.ActivitySource(record.Source),
		SourceID:      record.SourceID,
		SourceURL:     record.SourceURL,
		Title:         record.Title,
		Description:   record.Description,
		Timestamp:     record.Timestamp,
		ClusterID:     record.ClusterID,
		CrossToolRefs: cloneUUIDs(record.CrossToolRefs),
		RawData:       record.RawData,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}

// FromToolActivity converts a domain activity into the Bun model so it can be
// reused by transports without duplicating conversion logic.
func FromToolActivity(activity types.ToolActivity) *Record {
	return fromToolActivity(activity)
}

// ToToolActivity converts the Bun model into the domain activity.
func ToToolActivity(record *Record) types.ToolActivity {
	return toToolActivity(record)
}

func mergeRefs(existing, incoming []uuid.UUID) []uuid.UUID {
	if len(incoming) == 0 {
		return cloneUUIDs(existing)
	}
	seen := make(map[uuid.UUID]struct{}, len(existing)+len(incoming))
	out := make([]uuid.UUID, 0, len(existing)+len(incoming))
	for _, id := range existing {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range incoming {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
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
