package audit

import (
	"strings"

	"github.com/goliatone/go-auth"
	"github.com/inchronicle/go-stories/pkg/authctx"
	"github.com/inchronicle/go-stories/pkg/types"
)

// RecordOption mutates the AuditRecord produced by BuildRecordFromActor.
type RecordOption func(*types.AuditRecord)

// WithChannel sets the channel/module field used for downstream filtering.
func WithChannel(channel string) RecordOption {
	return func(record *types.AuditRecord) {
		record.Channel = strings.TrimSpace(channel)
	}
}

// WithIP stamps the client address on the record.
func WithIP(ip string) RecordOption {
	return func(record *types.AuditRecord) {
		record.IP = strings.TrimSpace(ip)
	}
}

// BuildRecordFromActor constructs an AuditRecord using the actor metadata
// supplied by go-auth middleware plus verb/object details and optional data.
// It normalizes actor, tenant, and workspace identifiers into UUIDs and
// defensively copies the data map to avoid caller mutation.
func BuildRecordFromActor(actor *auth.ActorContext, verb, objectType, objectID string, data map[string]any, opts ...RecordOption) (types.AuditRecord, error) {
	ref, err := authctx.ActorRefFromActorContext(actor)
	if err != nil {
		return types.AuditRecord{}, err
	}
	scope := authctx.ScopeFromActorContext(actor)

	record := types.AuditRecord{
		ActorID:     ref.ID,
		Verb:        strings.TrimSpace(verb),
		ObjectType:  strings.TrimSpace(objectType),
		ObjectID:    strings.TrimSpace(objectID),
		Channel:     "",
		TenantID:    scope.TenantID,
		WorkspaceID: scope.WorkspaceID,
		Data:        cloneMap(data),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&record)
		}
	}

	return record, nil
}
