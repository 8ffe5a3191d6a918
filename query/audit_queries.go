package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

// AuditFeedQuery renders the persisted audit trail for activity feeds and
// compliance views.
type AuditFeedQuery struct {
	repo  types.AuditRepository
	guard scope.Guard
}

// NewAuditFeedQuery constructs the audit feed query helper.
func NewAuditFeedQuery(repo types.AuditRepository, guard scope.Guard) *AuditFeedQuery {
	return &AuditFeedQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[types.AuditFilter, types.AuditPage] = (*AuditFeedQuery)(nil)

// Query fetches a page of audit records via the injected repository.
func (q *AuditFeedQuery) Query(ctx context.Context, filter types.AuditFilter) (types.AuditPage, error) {
	if q.repo == nil {
		return types.AuditPage{}, types.ErrMissingAuditRepository
	}
	if err := filter.Validate(); err != nil {
		return types.AuditPage{}, err
	}
	scope, err := q.guard.Enforce(ctx, filter.Actor, filter.Scope, types.PolicyActionAuditRead, filter.UserID)
	if err != nil {
		return types.AuditPage{}, err
	}
	filter.Scope = scope
	filter.Pagination = normalizePagination(filter.Pagination)
	return q.repo.ListAudit(ctx, filter)
}

// AuditStatsQuery returns aggregate verb counts for audit widgets.
type AuditStatsQuery struct {
	repo  types.AuditRepository
	guard scope.Guard
}

// NewAuditStatsQuery constructs the stats query helper.
func NewAuditStatsQuery(repo types.AuditRepository, guard scope.Guard) *AuditStatsQuery {
	return &AuditStatsQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[types.AuditStatsFilter, types.AuditStats] = (*AuditStatsQuery)(nil)

// Query returns aggregate counts grouped by verb.
func (q *AuditStatsQuery) Query(ctx context.Context, filter types.AuditStatsFilter) (types.AuditStats, error) {
	if q.repo == nil {
		return types.AuditStats{}, types.ErrMissingAuditRepository
	}
	scope, err := q.guard.Enforce(ctx, filter.Actor, filter.Scope, types.PolicyActionAuditRead, filter.UserID)
	if err != nil {
		return types.AuditStats{}, err
	}
	filter.Scope = scope
	return q.repo.AuditStats(ctx, filter)
}
