// Package workspace persists shared workspaces, their memberships, and email
// invitations. Invitations ride signed securelink tokens: the JTI stored on
// the invitation row is mirrored into the tokens ledger, so acceptance
// consumes both in lockstep.
package workspace
