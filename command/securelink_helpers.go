package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

// Secure link actions name the flow a token authorizes.
const (
	SecureLinkActionRegister      = "register"
	SecureLinkActionPasswordReset = "password_reset"
)

// Secure link routes select the URL template the link renders with.
const (
	SecureLinkRouteRegister      = "register"
	SecureLinkRoutePasswordReset = "password_reset"
)

const secureLinkSourceDefault = "go-stories"

// buildSecureLinkPayload assembles the claims embedded in a signed link.
// Zero-valued fields are omitted so validation can distinguish "absent"
// from "explicitly set".
func buildSecureLinkPayload(action string, user *types.AuthUser, scope types.ScopeFilter, jti string, issuedAt, expiresAt time.Time, source string) types.SecureLinkPayload {
	payload := types.SecureLinkPayload{
		"action": action,
		"jti":    strings.TrimSpace(jti),
	}
	if user != nil {
		if user.ID != uuid.Nil {
			payload["user_id"] = user.ID.String()
		}
		if email := strings.TrimSpace(user.Email); email != "" {
			payload["email"] = email
		}
	}
	setPayloadTime(payload, "issued_at", issuedAt)
	setPayloadTime(payload, "expires_at", expiresAt)
	setPayloadScope(payload, scope)
	if source = strings.TrimSpace(source); source != "" {
		payload["source"] = source
	}
	return payload
}

func setPayloadTime(payload types.SecureLinkPayload, key string, value time.Time) {
	if !value.IsZero() {
		payload[key] = value.Format(time.RFC3339Nano)
	}
}

func setPayloadScope(payload types.SecureLinkPayload, scope types.ScopeFilter) {
	if scope.TenantID != uuid.Nil {
		payload["tenant_id"] = scope.TenantID.String()
	}
	if scope.WorkspaceID != uuid.Nil {
		payload["workspace_id"] = scope.WorkspaceID.String()
	}
}

// tokenMetadata records who minted a token and for which scope, for audit.
func tokenMetadata(jti string, issuedAt, expiresAt time.Time, actor types.ActorRef, scope types.ScopeFilter) map[string]any {
	meta := map[string]any{
		"jti":        strings.TrimSpace(jti),
		"issued_at":  issuedAt.Format(time.RFC3339Nano),
		"expires_at": expiresAt.Format(time.RFC3339Nano),
	}
	if actor.ID != uuid.Nil {
		meta["actor_id"] = actor.ID.String()
	}
	if scope.TenantID != uuid.Nil {
		meta["tenant_id"] = scope.TenantID.String()
	}
	if scope.WorkspaceID != uuid.Nil {
		meta["workspace_id"] = scope.WorkspaceID.String()
	}
	return meta
}

func attachTokenMetadata(user *types.AuthUser, key string, meta map[string]any) {
	if user == nil {
		return
	}
	if user.Metadata == nil {
		user.Metadata = map[string]any{}
	}
	user.Metadata[key] = meta
}

// payloadString reads a claim as trimmed text; missing keys come back empty.
func payloadString(payload types.SecureLinkPayload, key string) string {
	if payload == nil {
		return ""
	}
	value, ok := payload[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

// payloadUUID parses a claim as a UUID, returning uuid.Nil on any failure.
func payloadUUID(payload types.SecureLinkPayload, key string) uuid.UUID {
	raw := payloadString(payload, key)
	if raw == "" {
		return uuid.Nil
	}
	id, _ := uuid.Parse(raw)
	return id
}

// payloadTime parses a claim as a timestamp. Both RFC3339 flavors are
// accepted since deserialized payloads may carry either precision.
func payloadTime(payload types.SecureLinkPayload, key string) time.Time {
	if payload == nil {
		return time.Time{}
	}
	value, ok := payload[key]
	if !ok {
		return time.Time{}
	}
	switch v := value.(type) {
	case time.Time:
		return v
	case string:
		trimmed := strings.TrimSpace(v)
		if parsed, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
			return parsed
		}
		if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// scopeFromPayload reconstructs the tenant and workspace scope a token was
// minted under.
func scopeFromPayload(payload types.SecureLinkPayload) types.ScopeFilter {
	return types.ScopeFilter{
		TenantID:    payloadUUID(payload, "tenant_id"),
		WorkspaceID: payloadUUID(payload, "workspace_id"),
	}
}
