package types

import (
	"context"
	"time"
)

// SecureLinkManager mints and verifies the signed tokens behind password
// reset, registration, and workspace invitation links. Implementations wrap
// an external manager; see adapter/securelink.
type SecureLinkManager interface {
	Generate(route string, payloads ...SecureLinkPayload) (string, error)
	Validate(token string) (map[string]any, error)
	GetAndValidate(fn func(string) string) (SecureLinkPayload, error)
	GetExpiration() time.Duration
}

// SecureLinkPayload holds the claims embedded in a signed link token.
type SecureLinkPayload map[string]any

// SecureLinkConfigurator exposes the settings a secure link manager is built
// from, matching the shape of the host application's config section.
type SecureLinkConfigurator interface {
	GetSigningKey() string
	GetExpiration() time.Duration
	GetBaseURL() string
	GetQueryKey() string
	GetRoutes() map[string]string
	GetAsQuery() bool
}

// ScopeEnforcer lets hosts reject tokens whose embedded tenant or workspace
// scope disagrees with the request's.
type ScopeEnforcer func(ctx context.Context, payload SecureLinkPayload, scope ScopeFilter) error
