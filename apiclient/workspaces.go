package apiclient

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Workspace is a shared container for team visibility.
type Workspace struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	OwnerID     uuid.UUID `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WorkspaceMember links a user to a workspace with a role.
type WorkspaceMember struct {
	UserID   uuid.UUID `json:"user_id"`
	Role     string    `json:"role"`
	AddedBy  uuid.UUID `json:"added_by"`
	JoinedAt time.Time `json:"joined_at"`
}

// Invitation is a pending email invitation into a workspace.
type Invitation struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	InvitedBy   uuid.UUID `json:"invited_by"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// WorkspacesAPI covers the /workspaces endpoints.
type WorkspacesAPI struct {
	client *Client
}

// List returns the workspaces the user belongs to.
func (w *WorkspacesAPI) List(ctx context.Context) ([]Workspace, error) {
	var items []Workspace
	if err := w.client.get(ctx, "/workspaces", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateWorkspaceRequest opens a new workspace owned by the caller.
type CreateWorkspaceRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
}

// Create opens a new workspace.
func (w *WorkspacesAPI) Create(ctx context.Context, in CreateWorkspaceRequest) (*Workspace, error) {
	var item Workspace
	if err := w.client.post(ctx, "/workspaces", in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Get fetches one workspace.
func (w *WorkspacesAPI) Get(ctx context.Context, id uuid.UUID) (*Workspace, error) {
	var item Workspace
	if err := w.client.get(ctx, "/workspaces/"+id.String(), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateWorkspaceRequest edits workspace fields. Nil fields keep their
// current value.
type UpdateWorkspaceRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Update edits the workspace.
func (w *WorkspacesAPI) Update(ctx context.Context, id uuid.UUID, in UpdateWorkspaceRequest) (*Workspace, error) {
	var item Workspace
	if err := w.client.put(ctx, "/workspaces/"+id.String(), in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Delete removes the workspace. Owner only.
func (w *WorkspacesAPI) Delete(ctx context.Context, id uuid.UUID) error {
	return w.client.del(ctx, "/workspaces/"+id.String())
}

// Members lists the workspace roster.
func (w *WorkspacesAPI) Members(ctx context.Context, id uuid.UUID) ([]WorkspaceMember, error) {
	var items []WorkspaceMember
	if err := w.client.get(ctx, "/workspaces/"+id.String()+"/members", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// RemoveMember drops a member from the workspace.
func (w *WorkspacesAPI) RemoveMember(ctx context.Context, id, userID uuid.UUID) error {
	return w.client.del(ctx, "/workspaces/"+id.String()+"/members/"+userID.String())
}

// InviteRequest invites an email address into the workspace.
type InviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Invite sends a workspace invitation.
func (w *WorkspacesAPI) Invite(ctx context.Context, id uuid.UUID, in InviteRequest) (*Invitation, error) {
	var item Invitation
	if err := w.client.post(ctx, "/workspaces/"+id.String()+"/invitations", in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Invitations lists the workspace's pending invitations.
func (w *WorkspacesAPI) Invitations(ctx context.Context, id uuid.UUID) ([]Invitation, error) {
	var items []Invitation
	if err := w.client.get(ctx, "/workspaces/"+id.String()+"/invitations", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// RevokeInvitation cancels a pending invitation.
func (w *WorkspacesAPI) RevokeInvitation(ctx context.Context, id, invitationID uuid.UUID) error {
	return w.client.del(ctx, "/workspaces/"+id.String()+"/invitations/"+invitationID.String())
}

// AcceptInvitation redeems a signed invitation token and returns the joined
// workspace.
func (w *WorkspacesAPI) AcceptInvitation(ctx context.Context, token string) (*Workspace, error) {
	in := map[string]string{"token": token}
	var item Workspace
	if err := w.client.post(ctx, "/workspaces/invitations/accept", in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}
