package activity

import (
	"errors"
	"strings"

	"github.com/goliatone/go-auth"
	"github.com/inchronicle/go-stories/pkg/authctx"
	"github.com/inchronicle/go-stories/pkg/types"
)

// FilterConfig controls how BuildFilterFromActor applies role and source rules.
type FilterConfig struct {
	SourceAllowlist []types.ActivitySource

	SuperadminScope bool

	AdminRoleAliases      []string
	SuperadminRoleAliases []string
}

// FilterOption adjusts the filter configuration.
type FilterOption func(*FilterConfig)

// DefaultAdminRoleAliases lists the role names treated as admin.
func DefaultAdminRoleAliases() []string {
	return cloneStrings(defaultAdminRoleAliases)
}

// DefaultSuperadminRoleAliases lists the role names treated as superadmin.
func DefaultSuperadminRoleAliases() []string {
	return cloneStrings(defaultSuperadminRoleAliases)
}

// WithSourceAllowlist restricts results to the provided tool sources.
func WithSourceAllowlist(sources ...types.ActivitySource) FilterOption {
	return func(cfg *FilterConfig) {
		cfg.SourceAllowlist = normalizeSources(sources)
	}
}

// WithSuperadminScope lets superadmins query outside their own tenant.
func WithSuperadminScope(enabled bool) FilterOption {
	return func(cfg *FilterConfig) {
		cfg.SuperadminScope = enabled
	}
}

// WithRoleAliases replaces both role alias lists at once.
func WithRoleAliases(adminAliases, superadminAliases []string) FilterOption {
	return func(cfg *FilterConfig) {
		cfg.AdminRoleAliases = normalizeIdentifiers(adminAliases)
		cfg.SuperadminRoleAliases = normalizeIdentifiers(superadminAliases)
	}
}

// BuildFilterFromActor constructs a safe ToolActivityFilter using the auth
// actor context plus role-aware constraints and optional source rules.
// Non-admin actors are pinned to their own feed.
func BuildFilterFromActor(actor *auth.ActorContext, role string, req types.ToolActivityFilter, opts ...FilterOption) (types.ToolActivityFilter, error) {
	cfg := defaultFilterConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	ref, err := authctx.ActorRefFromActorContext(actor)
	if err != nil {
		return types.ToolActivityFilter{}, err
	}
	scope := authctx.ScopeFromActorContext(actor)

	roleName := normalizeIdentifier(role)
	if roleName == "" {
		roleName = normalizeIdentifier(actor.Role)
	}
	if roleName == "" {
		roleName = normalizeIdentifier(ref.Type)
	}

	isSuperadmin := roleMatches(roleName, cfg.SuperadminRoleAliases)
	isAdmin := isSuperadmin || roleMatches(roleName, cfg.AdminRoleAliases)

	filter := req
	filter.Actor = ref

	if isSuperadmin && cfg.SuperadminScope {
		filter.Scope = req.Scope
	} else {
		filter.Scope = scope
	}

	if !isAdmin {
		filter.UserID = ref.ID
	}

	filter, err = applySourceOptions(filter, cfg)
	if err != nil {
		return types.ToolActivityFilter{}, err
	}
	return filter, nil
}

var (
	defaultSuperadminRoleAliases = []string{
		types.ActorRoleSystemAdmin,
		"superadmin",
	}
	defaultAdminRoleAliases = []string{
		types.ActorRoleTenantAdmin,
		"admin",
		types.ActorRoleWorkspaceAdmin,
	}
)

func defaultFilterConfig() FilterConfig {
	return FilterConfig{
		SourceAllowlist:       nil,
		SuperadminScope:       false,
		AdminRoleAliases:      normalizeIdentifiers(defaultAdminRoleAliases),
		SuperadminRoleAliases: normalizeIdentifiers(defaultSuperadminRoleAliases),
	}
}

func applySourceOptions(filter types.ToolActivityFilter, cfg FilterConfig) (types.ToolActivityFilter, error) {
	allow := normalizeSources(cfg.SourceAllowlist)
	requested := normalizeSources(filter.Sources)

	if len(allow) == 0 {
		filter.Sources = requested
		return filter, nil
	}

	if len(requested) == 0 {
		filter.Sources = allow
		return filter, nil
	}

	filter.Sources = intersectSources(requested, allow)
	if len(filter.Sources) == 0 {
		return types.ToolActivityFilter{}, errors.New("activity: source allowlist excludes requested sources")
	}
	return filter, nil
}

func roleMatches(role string, aliases []string) bool {
	if role == "" {
		return false
	}
	for _, alias := range aliases {
		if normalizeIdentifier(alias) == role {
			return true
		}
	}
	return false
}

func normalizeIdentifiers(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		normalized := normalizeIdentifier(value)
		if normalized == "" {
			continue
		}
		out = append(out, normalized)
	}
	return uniqueStrings(out)
}

func normalizeIdentifier(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func normalizeSources(values []types.ActivitySource) []types.ActivitySource {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[types.ActivitySource]struct{}, len(values))
	out := make([]types.ActivitySource, 0, len(values))
	for _, value := range values {
		source, err := types.ParseActivitySource(string(value))
		if err != nil {
			continue
		}
		if _, exists := seen[source]; exists {
			continue
		}
		seen[source] = struct{}{}
		out = append(out, source)
	}
	return out
}

func intersectSources(a, b []types.ActivitySource) []types.ActivitySource {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	allowed := make(map[types.ActivitySource]struct{}, len(b))
	for _, source := range b {
		allowed[source] = struct{}{}
	}
	out := make([]types.ActivitySource, 0, len(a))
	for _, source := range a {
		if _, ok := allowed[source]; ok {
			out = append(out, source)
		}
	}
	return out
}

func uniqueStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func cloneStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
