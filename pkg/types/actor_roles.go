package types

import "strings"

const (
	// ActorRoleSystemAdmin has unrestricted, site-wide access.
	ActorRoleSystemAdmin = "system_admin"
	// ActorRoleTenantAdmin administers everything inside one tenant.
	ActorRoleTenantAdmin = "tenant_admin"
	// ActorRoleWorkspaceAdmin administers one workspace.
	ActorRoleWorkspaceAdmin = "workspace_admin"
	// ActorRoleSupport marks support agents; policies keep them at
	// self/owner scope.
	ActorRoleSupport = "support"
)

// RoleName lowers and trims the actor role so comparisons are stable.
func (a ActorRef) RoleName() string {
	return normalizeRole(a.Type)
}

// IsRole compares the actor against a role name, ignoring case and spacing.
func (a ActorRef) IsRole(role string) bool {
	role = normalizeRole(role)
	if role == "" {
		return a.RoleName() == ""
	}
	return a.RoleName() == role
}

// IsSupport reports whether the actor is a support agent, which several
// policies cap at self or owner scope.
func (a ActorRef) IsSupport() bool {
	return a.IsRole(ActorRoleSupport)
}

// IsWorkspaceAdmin reports whether the actor runs exactly one workspace.
func (a ActorRef) IsWorkspaceAdmin() bool {
	return a.IsRole(ActorRoleWorkspaceAdmin)
}

// IsTenantAdmin reports whether the actor administers a whole tenant.
func (a ActorRef) IsTenantAdmin() bool {
	return a.IsRole(ActorRoleTenantAdmin)
}

// IsSystemAdmin reports whether the actor has site-wide rights.
func (a ActorRef) IsSystemAdmin() bool {
	return a.IsRole(ActorRoleSystemAdmin)
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
