package validation

import (
	"context"

	"github.com/goliatone/go-auth/middleware/jwtware"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/authctx"
	"github.com/inchronicle/go-stories/pkg/types"
)

// SchemaNotifier hears about each validated actor so exporters can refresh
// their per-actor caches.
type SchemaNotifier interface {
	Notify(ctx context.Context, actorID uuid.UUID, metadata map[string]any)
}

// ListenerOptions configure what the listener records and where.
type ListenerOptions struct {
	AuditSink      types.AuditSink
	Logger         types.Logger
	SchemaNotifier SchemaNotifier
}

// NewListener builds the jwtware callback that audits successful token
// validations and pings schema observers. Resolution failures are logged and
// swallowed so auth itself never breaks.
func NewListener(opts ListenerOptions) jwtware.ValidationListener {
	logger := opts.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return func(ctx router.Context, claims jwtware.AuthClaims) error {
		actorCtx, err := authctx.ResolveActorContextFromRouter(ctx)
		if err != nil {
			logger.Error("validation listener failed to resolve actor", err)
			return nil
		}
		if opts.AuditSink != nil {
			scope := authctx.ScopeFromActorContext(actorCtx)
			record := types.AuditRecord{
				ActorID:     parseUUID(actorCtx.ActorID),
				Verb:        "auth.validated",
				ObjectType:  "auth",
				ObjectID:    claims.Subject(),
				Channel:     "auth",
				TenantID:    scope.TenantID,
				WorkspaceID: scope.WorkspaceID,
				Data: map[string]any{
					"role": actorCtx.Role,
				},
			}
			if err := opts.AuditSink.Log(ctx.Context(), record); err != nil {
				logger.Error("validation audit sink failed", err)
			}
		}
		if opts.SchemaNotifier != nil {
			opts.SchemaNotifier.Notify(ctx.Context(), parseUUID(actorCtx.ActorID), actorCtx.Metadata)
		}
		return nil
	}
}

func parseUUID(value string) uuid.UUID {
	if value == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil
	}
	return id
}
