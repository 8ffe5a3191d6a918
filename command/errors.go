package command

import (
	"errors"

	"github.com/inchronicle/go-stories/pkg/types"
)

var (
	// ErrActorRequired occurs when an actor reference was not supplied.
	ErrActorRequired = types.ErrActorRequired
	// ErrUserIDRequired occurs when commands omit the subject user.
	ErrUserIDRequired = types.ErrUserIDRequired
	// ErrLifecycleUserIDRequired occurs when a transition omits the user.
	ErrLifecycleUserIDRequired = errors.New("go-stories: lifecycle transition requires user id")
	// ErrLifecycleTargetRequired occurs when a transition omits the target state.
	ErrLifecycleTargetRequired = errors.New("go-stories: lifecycle transition requires target state")
	// ErrUserIDsRequired indicates a bulk command received an empty user list.
	ErrUserIDsRequired = errors.New("go-stories: user ids required")
	// ErrUserRequired occurs when a command carries no user payload.
	ErrUserRequired = errors.New("go-stories: user payload required")
	// ErrUserNotFound occurs when no account matches the identifier.
	ErrUserNotFound = errors.New("go-stories: user not found")
	// ErrUserEmailRequired occurs when an account payload omits the email.
	ErrUserEmailRequired = errors.New("go-stories: user email required")
	// ErrSignupDisabled occurs when the signup feature gate is off.
	ErrSignupDisabled = errors.New("go-stories: signup disabled")
	// ErrPasswordHashRequired occurs when a reset omits the new hash.
	ErrPasswordHashRequired = errors.New("go-stories: password reset requires password hash")
	// ErrPasswordResetDisabled occurs when the reset feature gate is off.
	ErrPasswordResetDisabled = errors.New("go-stories: password reset disabled")
	// ErrResetIdentifierRequired occurs when a reset names no account.
	ErrResetIdentifierRequired = errors.New("go-stories: password reset requires identifier")

	// ErrActivityRequired occurs when an import command carries no activity.
	ErrActivityRequired = errors.New("go-stories: activity payload required")
	// ErrActivitiesRequired occurs when bulk import is invoked without activities.
	ErrActivitiesRequired = errors.New("go-stories: activities required")
	// ErrActivityIDRequired occurs when activity commands omit the activity.
	ErrActivityIDRequired = errors.New("go-stories: activity id required")
	// ErrActivitySourceIDRequired occurs when an import omits the tool's id.
	ErrActivitySourceIDRequired = errors.New("go-stories: activity source id required")

	// ErrClusterIDRequired occurs when cluster commands omit the cluster.
	ErrClusterIDRequired = errors.New("go-stories: cluster id required")
	// ErrClusterIDsRequired occurs when a merge names fewer than two clusters.
	ErrClusterIDsRequired = errors.New("go-stories: merge requires cluster ids")
	// ErrClusterNameRequired occurs when a rename omits the new name.
	ErrClusterNameRequired = errors.New("go-stories: cluster name required")

	// ErrStoryIDRequired occurs when story commands omit the story.
	ErrStoryIDRequired = errors.New("go-stories: story id required")
	// ErrStoryRequired occurs when an edit carries no story payload.
	ErrStoryRequired = errors.New("go-stories: story payload required")
	// ErrPublishDisabled indicates story publishing is disabled via feature gate.
	ErrPublishDisabled = errors.New("go-stories: story publishing disabled")
	// ErrWizardDisabled indicates the wizard flow is disabled via feature gate.
	ErrWizardDisabled = errors.New("go-stories: story wizard disabled")
	// ErrWizardBodyRequired occurs when the wizard gets no journal text.
	ErrWizardBodyRequired = errors.New("go-stories: wizard requires journal text")

	// ErrAmountRequired occurs when wallet commands omit a positive amount.
	ErrAmountRequired = errors.New("go-stories: wallet amount required")
	// ErrPackageIDRequired occurs when a purchase omits the credit package.
	ErrPackageIDRequired = errors.New("go-stories: credit package id required")
	// ErrReferenceRequired occurs when a confirm omits the checkout reference.
	ErrReferenceRequired = errors.New("go-stories: checkout reference required")

	// ErrPeerIDRequired occurs when network commands omit the peer.
	ErrPeerIDRequired = errors.New("go-stories: peer id required")

	// ErrWorkspaceIDRequired occurs when workspace commands omit the workspace.
	ErrWorkspaceIDRequired = errors.New("go-stories: workspace id required")
	// ErrWorkspaceNameRequired occurs when a create omits the workspace name.
	ErrWorkspaceNameRequired = errors.New("go-stories: workspace name required")
	// ErrInviteEmailRequired occurs when an invitation omits the email.
	ErrInviteEmailRequired = errors.New("go-stories: invite requires email")
	// ErrInvitationIDRequired occurs when a revoke omits the invitation.
	ErrInvitationIDRequired = errors.New("go-stories: invitation id required")
	// ErrMemberRoleRequired occurs when a role change omits the target role.
	ErrMemberRoleRequired = errors.New("go-stories: member role required")

	// ErrJournalEntryIDRequired occurs when journal commands omit the entry.
	ErrJournalEntryIDRequired = errors.New("go-stories: journal entry id required")
	// ErrJournalBodyRequired occurs when a journal entry carries no body.
	ErrJournalBodyRequired = errors.New("go-stories: journal body required")

	// ErrAuditVerbRequired indicates an audit entry is missing a verb.
	ErrAuditVerbRequired = errors.New("go-stories: audit verb required")

	// ErrDemoDisabled indicates demo seeding is disabled via feature gate.
	ErrDemoDisabled = errors.New("go-stories: demo mode disabled")

	// ErrTokenRequired occurs when no securelink token was supplied.
	ErrTokenRequired = errors.New("go-stories: token required")
	// ErrTokenTypeRequired occurs when the token type was omitted.
	ErrTokenTypeRequired = errors.New("go-stories: token type required")
	// ErrTokenJTIRequired occurs when the token claims carry no jti.
	ErrTokenJTIRequired = errors.New("go-stories: token jti required")
	// ErrTokenNotFound occurs when the ledger holds no row for the jti.
	ErrTokenNotFound = errors.New("go-stories: token not found")
	// ErrTokenExpired occurs when the token is past its expiry.
	ErrTokenExpired = errors.New("go-stories: token expired")
	// ErrTokenAlreadyUsed occurs when the token was consumed earlier.
	ErrTokenAlreadyUsed = errors.New("go-stories: token already used")
	// ErrTokenUserMismatch occurs when the token belongs to another account.
	ErrTokenUserMismatch = errors.New("go-stories: token user mismatch")
	// ErrResetCommandRequired occurs when the inner reset command is absent.
	ErrResetCommandRequired = errors.New("go-stories: password reset command required")

	// ErrClusterManagerRequired indicates the cluster manager dependency is missing.
	ErrClusterManagerRequired = errors.New("go-stories: cluster manager required")
	// ErrStoryManagerRequired indicates the story manager dependency is missing.
	ErrStoryManagerRequired = errors.New("go-stories: story manager required")
	// ErrNetworkManagerRequired indicates the network manager dependency is missing.
	ErrNetworkManagerRequired = errors.New("go-stories: network manager required")
	// ErrWorkspaceManagerRequired indicates the workspace manager dependency is missing.
	ErrWorkspaceManagerRequired = errors.New("go-stories: workspace manager required")
	// ErrOnboardingManagerRequired indicates the onboarding manager dependency is missing.
	ErrOnboardingManagerRequired = errors.New("go-stories: onboarding manager required")
	// ErrBillingManagerRequired indicates the billing manager dependency is missing.
	ErrBillingManagerRequired = errors.New("go-stories: billing manager required")
	// ErrSeederRequired indicates the demo seeder dependency is missing.
	ErrSeederRequired = errors.New("go-stories: demo seeder required")
)
