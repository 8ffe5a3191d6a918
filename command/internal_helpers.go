package command

import (
	"context"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

// The safe* constructors let every command accept zero-value config fields
// without nil checks at each call site.

func safeClock(clock types.Clock) types.Clock {
	if clock != nil {
		return clock
	}
	return types.SystemClock{}
}

func safeLogger(logger types.Logger) types.Logger {
	if logger != nil {
		return logger
	}
	return types.NopLogger{}
}

func safeHooks(hooks types.Hooks) types.Hooks {
	return hooks
}

func safeAuditSink(sink types.AuditSink) types.AuditSink {
	return sink
}

func safeScopeGuard(g scope.Guard) scope.Guard {
	return scope.Ensure(g)
}

func now(clock types.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now()
}

func logAudit(ctx context.Context, sink types.AuditSink, record types.AuditRecord) {
	if sink == nil {
		return
	}
	_ = sink.Log(ctx, record)
}

func emitAuditHook(ctx context.Context, hooks types.Hooks, record types.AuditRecord) {
	if hooks.AfterAudit == nil {
		return
	}
	hooks.AfterAudit(ctx, record)
}

func emitProfileHook(ctx context.Context, hooks types.Hooks, event types.ProfileEvent) {
	if hooks.AfterProfileChange == nil {
		return
	}
	hooks.AfterProfileChange(ctx, event)
}

// userAuditRecord builds the audit entry shape shared by the account CRUD
// commands: the user is both subject and object.
func userAuditRecord(verb string, user *types.AuthUser, actorID uuid.UUID, scopeFilter types.ScopeFilter, at time.Time) types.AuditRecord {
	return types.AuditRecord{
		UserID:      user.ID,
		ActorID:     actorID,
		Verb:        verb,
		ObjectType:  "user",
		ObjectID:    user.ID.String(),
		Channel:     "users",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data: map[string]any{
			"email":  user.Email,
			"role":   user.Role,
			"status": user.Status,
		},
		OccurredAt: at,
	}
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(src))
	maps.Copy(out, src)
	return out
}
