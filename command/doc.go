// Package command holds the go-command handlers behind every go-stories
// mutation (activity imports, cluster lifecycle, story
// generation and publication, wallet and network mutations, workspace
// invitations, onboarding progress). Commands are wired by the service layer
// and can be invoked by any transport.
package command
