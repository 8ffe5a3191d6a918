package command

import (
	"context"

	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

const (
	featureUsersSignup        = "users.signup"
	featureUsersPasswordReset = "users.password_reset"
	featureStoriesPublish     = "stories.publish"
	featureStoriesWizard      = "stories.wizard"
	featureDemoEnabled        = "demo.enabled"
)

func featureEnabled(ctx context.Context, gate featuregate.FeatureGate, key string, scope types.ScopeFilter, userID uuid.UUID) (bool, error) {
	if gate == nil {
		return true, nil
	}
	scopeSet := featureScopeSet(scope, userID)
	if scopeSet == nil {
		return gate.Enabled(ctx, key)
	}
	return gate.Enabled(ctx, key, featuregate.WithScopeSet(*scopeSet))
}

func featureScopeSet(scope types.ScopeFilter, userID uuid.UUID) *featuregate.ScopeSet {
	tenantID := ""
	workspaceID := ""
	if scope.TenantID != uuid.Nil {
		tenantID = scope.TenantID.String()
	}
	if scope.WorkspaceID != uuid.Nil {
		workspaceID = scope.WorkspaceID.String()
	}

	user := ""
	if userID != uuid.Nil {
		user = userID.String()
	}

	if tenantID == "" && workspaceID == "" && user == "" {
		return nil
	}
	// Workspaces ride the org slot of the gate's scope set, matching the auth
	// payload convention used across the module.
	return &featuregate.ScopeSet{
		System:   true,
		TenantID: tenantID,
		OrgID:    workspaceID,
		UserID:   user,
	}
}
