package audit

import (
	"context"
	"errors"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/uptrace/bun"
)

// RepositoryConfig wires the Bun-backed audit repository.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*LogEntry]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

type auditStore interface {
	repository.Repository[*LogEntry]
}

// Repository persists audit entries and exposes query helpers.
type Repository struct {
	auditStore
	db    *bun.DB
	clock types.Clock
	idGen types.IDGenerator
}

// NewRepository constructs a repository that implements both AuditSink and
// AuditRepository interfaces.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("audit: db or repository required")
	}
	repo := cfg.Repository
	if repo == nil {
		repo = repository.NewRepository(cfg.DB, repository.ModelHandlers[*LogEntry]{
			NewRecord: func() *LogEntry { return &LogEntry{} },
			GetID: func(entry *LogEntry) uuid.UUID {
				if entry == nil {
					return uuid.Nil
				}
				return entry.ID
			},
			SetID: func(entry *LogEntry, id uuid.UUID) {
				if entry != nil {
					entry.ID = id
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
		auditStore: repo,
		db:         cfg.DB,
		clock:      clock,
		idGen:      idGen,
	}, nil
}

var (
	_ repository.Repository[*LogEntry] = (*Repository)(nil)
	_ types.AuditSink                  = (*Repository)(nil)
	_ types.AuditRepository            = (*Repository)(nil)
)

// Log persists an audit record into the database.
func (r *Repository) Log(ctx context.Context, record types.AuditRecord) error {
	entry := toLogEntry(record)
	if entry.ID == uuid.Nil {
		entry.ID = r.idGen.UUID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.clock.Now()
	}
	_, err := r.Create(ctx, entry)
	return err
}

// ListAudit returns a paginated feed filtered by the supplied criteria.
func (r *Repository) ListAudit(ctx context.Context, filter types.AuditFilter) (types.AuditPage, error) {
	pagination := normalizePagination(filter.Pagination, 50, 200)
	criteria := []repository.SelectCriteria{
		func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.OrderExpr("created_at DESC").
				Limit(pagination.Limit).
				Offset(pagination.Offset)
			return applyAuditFilter(q, filter)
		},
	}

	rows, total, err := r.List(ctx, criteria...)
	if err != nil {
		return types.AuditPage{}, err
	}
	records := make([]types.AuditRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, toAuditRecord(row))
	}
	return types.AuditPage{
		Records:    records,
		Total:      total,
		NextOffset: pagination.Offset + pagination.Limit,
		HasMore:    pagination.Offset+pagination.Limit < total,
	}, nil
}

// AuditStats aggregates counts grouped by verb.
func (r *Repository) AuditStats(ctx context.Context, filter types.AuditStatsFilter) (types.AuditStats, error) {
	stats := types.AuditStats{
		ByVerb: make(map[string]int),
	}
	if r.db == nil {
		return stats, errors.New("audit: stats requires bun DB")
	}
	query := r.db.NewSelect().
		Table("audit_log").
		ColumnExpr("COUNT(*) AS total").
		ColumnExpr("verb").
		Group("verb")
	query = applyAuditStatsFilter(query, filter)

	type row struct {
		Verb  string `bun:"verb"`
		Total int    `bun:"total"`
	}
	var rows []row
	if err := query.Scan(ctx, &rows); err != nil {
		return stats, err
	}
	total := 0
	for _, rec := range rows {
		stats.ByVerb[rec.Verb] = rec.Total
		total += rec.Total
	}
	stats.Total = total
	return stats, nil
}

func applyAuditFilter(q *bun.SelectQuery, filter types.AuditFilter) *bun.SelectQuery {
	if filter.Scope.TenantID != uuid.Nil {
		q = q.Where("tenant_id = ?", filter.Scope.TenantID)
	}
	if filter.Scope.WorkspaceID != uuid.Nil {
		q = q.Where("workspace_id = ?", filter.Scope.WorkspaceID)
	}
	if filter.UserID != uuid.Nil && filter.ActorID != uuid.Nil {
		q = q.Where("(user_id = ? OR actor_id = ?)", filter.UserID, filter.ActorID)
	} else {
		if filter.UserID != uuid.Nil {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.ActorID != uuid.Nil {
			q = q.Where("actor_id = ?", filter.ActorID)
		}
	}
	if len(filter.Verbs) > 0 {
		q = q.Where("verb IN (?)", bun.In(filter.Verbs))
	}
	if filter.ObjectType != "" {
		q = q.Where("object_type = ?", filter.ObjectType)
	}
	if filter.ObjectID != "" {
		q = q.Where("object_id = ?", filter.ObjectID)
	}
	if len(filter.Channels) > 0 {
		q = q.Where("channel IN (?)", bun.In(filter.Channels))
	} else if filter.Channel != "" {
		q = q.Where("channel = ?", filter.Channel)
	}
	if len(filter.ChannelDenylist) > 0 {
		q = q.Where("channel NOT IN (?)", bun.In(filter.ChannelDenylist))
	}
	if filter.Since != nil && !filter.Since.IsZero() {
		q = q.Where("created_at >= ?", filter.Since)
	}
	if filter.Until != nil && !filter.Until.IsZero() {
		q = q.Where("created_at <= ?", filter.Until)
	}
	if strings.TrimSpace(filter.Keyword) != "" {
		keyword := "%" + strings.ToLower(strings.TrimSpace(filter.Keyword)) + "%"
		q = q.Where("LOWER(verb) LIKE ? OR LOWER(object_type) LIKE ? OR LOWER(object_id) LIKE ?", keyword, keyword, keyword)
	}
	return q
}

func applyAuditStatsFilter(q *bun.SelectQuery, filter types.AuditStatsFilter) *bun.SelectQuery {
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
		q = q.Where("created_at >= ?", filter.Since)
	}
	if filter.Until != nil && !filter.Until.IsZero() {
		q = q.Where("created_at <= ?", filter.Until)
	}
	if len(filter.Verbs) > 0 {
		q = q.Where("verb IN (?)", bun.In(filter.Verbs))
	}
	return q
}

func toLogEntry(record types.AuditRecord) *LogEntry {
	return &LogEntry{
		ID:          record.ID,
		UserID:      record.UserID,
		ActorID:     record.ActorID,
		TenantID:    record.TenantID,
		WorkspaceID: record.WorkspaceID,
		Verb:        record.Verb,
		ObjectType:  record.ObjectType,
		ObjectID:    record.ObjectID,
		Channel:     record.Channel,
		IP:          record.IP,
		Data:        cloneMap(record.Data),
		CreatedAt:   record.OccurredAt,
	}
}

func toAuditRecord(entry *LogEntry) types.AuditRecord {
	if entry == nil {
		return types.AuditRecord{}
	}
	return types.AuditRecord{
		ID:          entry.ID,
		UserID:      entry.UserID,
		ActorID:     entry.ActorID,
		TenantID:    entry.TenantID,
		WorkspaceID: entry.WorkspaceID,
		Verb:        entry.Verb,
		ObjectType:  entry.ObjectType,
		ObjectID:    entry.ObjectID,
		Channel:     entry.Channel,
		IP:          entry.IP,
		Data:        cloneMap(entry.Data),
		OccurredAt:  entry.CreatedAt,
	}
}

// FromAuditRecord converts a domain audit record into the Bun model so it can
// be reused by transports without duplicating conversion logic.
func FromAuditRecord(record types.AuditRecord) *LogEntry {
	return toLogEntry(record)
}

// ToAuditRecord converts the Bun model into the domain audit record.
func ToAuditRecord(entry *LogEntry) types.AuditRecord {
	return toAuditRecord(entry)
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
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
