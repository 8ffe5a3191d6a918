package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/uptrace/bun"
)

var (
	// ErrNameRequired indicates a workspace without a name.
	ErrNameRequired = errors.New("workspace: name required")
	// ErrOwnerRequired indicates a workspace without an owner.
	ErrOwnerRequired = errors.New("workspace: owner required")
	// ErrWorkspaceIDRequired indicates an operation missing the workspace id.
	ErrWorkspaceIDRequired = errors.New("workspace: workspace id required")
	// ErrEmailRequired indicates an invitation without an email.
	ErrEmailRequired = errors.New("workspace: email required")
	// ErrJTIRequired indicates an invitation without a token id.
	ErrJTIRequired = errors.New("workspace: invitation jti required")
	// ErrInvalidRole indicates a role outside owner, admin, member.
	ErrInvalidRole = errors.New("workspace: role must be owner, admin, or member")
	// ErrSlugTaken indicates the slug collides with an existing workspace.
	ErrSlugTaken = errors.New("workspace: slug already taken")
)

// RepositoryConfig wires the Bun-backed workspace repository. When only the
// DB is supplied the three stores are created automatically.
type RepositoryConfig struct {
	DB          *bun.DB
	Workspaces  repository.Repository[*Record]
	Members     repository.Repository[*MemberRecord]
	Invitations repository.Repository[*InvitationRecord]
	Clock       types.Clock
	IDGen       types.IDGenerator
}

// Repository persists workspaces, memberships, and invitations.
type Repository struct {
	db          *bun.DB
	workspaces  repository.Repository[*Record]
	members     repository.Repository[*MemberRecord]
	invitations repository.Repository[*InvitationRecord]
	clock       types.Clock
	idGen       types.IDGenerator
}

// NewRepository constructs a repository implementing WorkspaceRepository.
// The bun DB is required: workspace creation and deletion span several
// tables in one transaction.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.DB == nil {
		return nil, errors.New("workspace: bun DB required")
	}
	workspaces := cfg.Workspaces
	if workspaces == nil {
		workspaces = repository.NewRepository(cfg.DB, repository.ModelHandlers[*Record]{
			NewRecord: func() *Record { return &Record{} },
			GetID: func(record *Record) uuid.UUID {
				if record == nil {
					return uuid.Nil
				}
				return record.ID
			},
			SetID: func(record *Record, id uuid.UUID) {
				if record != nil {
					record.ID = id
				}
			},
		})
	}
	members := cfg.Members
	if members == nil {
		members = repository.NewRepository(cfg.DB, repository.ModelHandlers[*MemberRecord]{
			NewRecord: func() *MemberRecord { return &MemberRecord{} },
			GetID: func(record *MemberRecord) uuid.UUID {
				if record == nil {
					return uuid.Nil
				}
				return record.ID
			},
			SetID: func(record *MemberRecord, id uuid.UUID) {
				if record != nil {
					record.ID = id
				}
			},
		})
	}
	invitations := cfg.Invitations
	if invitations == nil {
		invitations = repository.NewRepository(cfg.DB, repository.ModelHandlers[*InvitationRecord]{
			NewRecord: func() *InvitationRecord { return &InvitationRecord{} },
			GetID: func(record *InvitationRecord) uuid.UUID {
				if record == nil {
					return uuid.Nil
				}
				return record.ID
			},
			SetID: func(record *InvitationRecord, id uuid.UUID) {
				if record != nil {
					record.ID = id
				}
			},
		})
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	idGen := cfg.IDGen
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}

	return &Repository{
		db:          cfg.DB,
		workspaces:  workspaces,
		members:     members,
		invitations: invitations,
		clock:       clock,
		idGen:       idGen,
	}, nil
}

var _ types.WorkspaceRepository = (*Repository)(nil)

// CreateWorkspace inserts the workspace and its owner membership in one
// transaction, so a workspace is never visible without its owner.
func (r *Repository) CreateWorkspace(ctx context.Context, workspace types.Workspace) (*types.Workspace, error) {
	name := strings.TrimSpace(workspace.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if workspace.OwnerID == uuid.Nil {
		return nil, ErrOwnerRequired
	}

	record := fromWorkspace(workspace)
	record.Name = name
	if record.ID == uuid.Nil {
		record.ID = r.idGen.UUID()
	}
	if record.Slug == "" {
		record.Slug = slugify(name)
	} else {
		record.Slug = slugify(record.Slug)
	}
	if record.Slug == "" {
		record.Slug = record.ID.String()
	}
	now := r.clock.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = record.CreatedAt

	owner := &MemberRecord{
		ID:          r.idGen.UUID(),
		WorkspaceID: record.ID,
		UserID:      record.OwnerID,
		Role:        string(types.WorkspaceRoleOwner),
		AddedBy:     record.OwnerID,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.CreatedAt,
	}

	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
			mapped := repository.MapDatabaseError(err, repository.DetectDriver(r.db))
			if repository.IsDuplicatedKey(mapped) {
				return fmt.Errorf("%w: %s", ErrSlugTaken, record.Slug)
			}
			return mapped
		}
		if _, err := tx.NewInsert().Model(owner).Exec(ctx); err != nil {
			return repository.MapDatabaseError(err, repository.DetectDriver(r.db))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toWorkspace(record), nil
}

// GetWorkspaceByID returns the workspace by primary key.
func (r *Repository) GetWorkspaceByID(ctx context.Context, id uuid.UUID) (*types.Workspace, error) {
	if id == uuid.Nil {
		return nil, ErrWorkspaceIDRequired
	}
	record, err := r.workspaces.GetByID(ctx, id.String())
	if err != nil {
		return nil, err
	}
	return toWorkspace(record), nil
}

// GetWorkspaceBySlug returns the workspace matching the slug, scoped to the
// tenant when one is provided.
func (r *Repository) GetWorkspaceBySlug(ctx context.Context, tenantID uuid.UUID, slug string) (*types.Workspace, error) {
	normalized := slugify(slug)
	if normalized == "" {
		return nil, ErrNameRequired
	}
	record, err := r.workspaces.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("slug = ?", normalized)
		if tenantID != uuid.Nil {
			q = q.Where("tenant_id = ?", tenantID)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	return toWorkspace(record), nil
}

// ListWorkspaces returns paginated workspaces, optionally narrowed to the
// ones a user belongs to.
func (r *Repository) ListWorkspaces(ctx context.Context, filter types.WorkspaceFilter) (types.WorkspacePage, error) {
	pagination := normalizePagination(filter.Pagination, 50, 200)
	records, total, err := r.workspaces.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.OrderExpr("LOWER(name) ASC").
			Limit(pagination.Limit).
			Offset(pagination.Offset)
		if filter.UserID != uuid.Nil {
			q = q.Where("EXISTS (SELECT 1 FROM workspace_members wm WHERE wm.workspace_id = workspace.id AND wm.user_id = ?)", filter.UserID)
		}
		if filter.Keyword != "" {
			keyword := "%" + strings.ToLower(strings.TrimSpace(filter.Keyword)) + "%"
			q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", keyword, keyword)
		}
		if filter.Scope.TenantID != uuid.Nil {
			q = q.Where("tenant_id = ?", filter.Scope.TenantID)
		}
		return q
	})
	if err != nil {
		return types.WorkspacePage{}, err
	}
	workspaces := make([]types.Workspace, 0, len(records))
	for _, record := range records {
		workspaces = append(workspaces, *toWorkspace(record))
	}
	return types.WorkspacePage{
		Workspaces: workspaces,
		Total:      total,
		NextOffset: pagination.Offset + pagination.Limit,
		HasMore:    pagination.Offset+pagination.Limit < total,
	}, nil
}

// UpdateWorkspace updates mutable fields. Name and slug only change when
// non-empty; the description always follows the input.
func (r *Repository) UpdateWorkspace(ctx context.Context, workspace types.Workspace) (*types.Workspace, error) {
	if workspace.ID == uuid.Nil {
		return nil, ErrWorkspaceIDRequired
	}
	record, err := r.workspaces.GetByID(ctx, workspace.ID.String())
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(workspace.Name); name != "" {
		record.Name = name
	}
	if slug := slugify(workspace.Slug); slug != "" {
		record.Slug = slug
	}
	record.Description = strings.TrimSpace(workspace.Description)
	if workspace.OwnerID != uuid.Nil {
		record.OwnerID = workspace.OwnerID
	}
	record.UpdatedAt = r.clock.Now()

	updated, err := r.workspaces.Update(ctx, record)
	if err != nil {
		if repository.IsDuplicatedKey(err) {
			return nil, fmt.Errorf("%w: %s", ErrSlugTaken, record.Slug)
		}
		return nil, err
	}
	return toWorkspace(updated), nil
}

// DeleteWorkspace removes the workspace with its memberships and
// invitations in one transaction.
func (r *Repository) DeleteWorkspace(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrWorkspaceIDRequired
	}
	record, err := r.workspaces.GetByID(ctx, id.String())
	if err != nil {
		return err
	}
	return r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*InvitationRecord)(nil)).Where("workspace_id = ?", record.ID).Exec(ctx); err != nil {
			return repository.MapDatabaseError(err, repository.DetectDriver(r.db))
		}
		if _, err := tx.NewDelete().Model((*MemberRecord)(nil)).Where("workspace_id = ?", record.ID).Exec(ctx); err != nil {
			return repository.MapDatabaseError(err, repository.DetectDriver(r.db))
		}
		if _, err := tx.NewDelete().Model((*Record)(nil)).Where("id = ?", record.ID).Exec(ctx); err != nil {
			return repository.MapDatabaseError(err, repository.DetectDriver(r.db))
		}
		return nil
	})
}

// AddMember inserts a membership row. Duplicate (workspace, user) pairs
// surface as ErrAlreadyMember.
func (r *Repository) AddMember(ctx context.Context, member types.WorkspaceMember) (*types.WorkspaceMember, error) {
	if member.WorkspaceID == uuid.Nil {
		return nil, ErrWorkspaceIDRequired
	}
	if member.UserID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	record := fromMember(member)
	if record.Role == "" {
		record.Role = string(types.WorkspaceRoleMember)
	}
	if !validRole(record.Role) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, record.Role)
	}
	if record.ID == uuid.Nil {
		record.ID = r.idGen.UUID()
	}
	now := r.clock.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}

	created, err := r.members.Create(ctx, record)
	if err != nil {
		if repository.IsDuplicatedKey(err) {
			return nil, fmt.Errorf("%w: %s", types.ErrAlreadyMember, member.UserID)
		}
		return nil, err
	}
	return toMember(created), nil
}

// GetMember returns the membership row, or nil when the user does not
// belong to the workspace.
func (r *Repository) GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (*types.WorkspaceMember, error) {
	record, err := r.members.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("workspace_id = ?", workspaceID).Where("user_id = ?", userID)
	})
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return toMember(record), nil
}

// ListMembers returns workspace members in join order.
func (r *Repository) ListMembers(ctx context.Context, workspaceID uuid.UUID, pagination types.Pagination) ([]types.WorkspaceMember, int, error) {
	if workspaceID == uuid.Nil {
		return nil, 0, ErrWorkspaceIDRequired
	}
	pagination = normalizePagination(pagination, 50, 200)
	records, total, err := r.members.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("workspace_id = ?", workspaceID).
			OrderExpr("created_at ASC, id ASC").
			Limit(pagination.Limit).
			Offset(pagination.Offset)
	})
	if err != nil {
		return nil, 0, err
	}
	members := make([]types.WorkspaceMember, 0, len(records))
	for _, record := range records {
		members = append(members, *toMember(record))
	}
	return members, total, nil
}

// UpdateMemberRole changes the member's role.
func (r *Repository) UpdateMemberRole(ctx context.Context, workspaceID, userID uuid.UUID, role types.WorkspaceMemberRole) (*types.WorkspaceMember, error) {
	if !validRole(string(role)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	record, err := r.members.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("workspace_id = ?", workspaceID).Where("user_id = ?", userID)
	})
	if err != nil {
		return nil, err
	}
	record.Role = string(role)
	record.UpdatedAt = r.clock.Now()
	updated, err := r.members.Update(ctx, record)
	if err != nil {
		return nil, err
	}
	return toMember(updated), nil
}

// RemoveMember deletes the membership row.
func (r *Repository) RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error {
	record, err := r.members.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("workspace_id = ?", workspaceID).Where("user_id = ?", userID)
	})
	if err != nil {
		return err
	}
	return r.members.Delete(ctx, record)
}

// CreateInvitation persists an email invitation. The email is normalized so
// acceptance can compare it against the authenticated address.
func (r *Repository) CreateInvitation(ctx context.Context, invitation types.WorkspaceInvitation) (*types.WorkspaceInvitation, error) {
	if invitation.WorkspaceID == uuid.Nil {
		return nil, ErrWorkspaceIDRequired
	}
	email := normalizeEmail(invitation.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if strings.TrimSpace(invitation.JTI) == "" {
		return nil, ErrJTIRequired
	}
	record := fromInvitation(invitation)
	record.Email = email
	record.JTI = strings.TrimSpace(invitation.JTI)
	if record.Role == "" {
		record.Role = string(types.WorkspaceRoleMember)
	}
	if !validRole(record.Role) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, record.Role)
	}
	if record.Status == "" {
		record.Status = string(types.InvitationPending)
	}
	if record.ID == uuid.Nil {
		record.ID = r.idGen.UUID()
	}
	now := r.clock.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}

	created, err := r.invitations.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	return toInvitation(created), nil
}

// GetInvitationByID returns the invitation by primary key.
func (r *Repository) GetInvitationByID(ctx context.Context, id uuid.UUID) (*types.WorkspaceInvitation, error) {
	record, err := r.invitations.GetByID(ctx, id.String())
	if err != nil {
		return nil, err
	}
	return toInvitation(record), nil
}

// GetInvitationByJTI returns the invitation carrying the token id, or nil
// when no invitation matches.
func (r *Repository) GetInvitationByJTI(ctx context.Context, jti string) (*types.WorkspaceInvitation, error) {
	normalized := strings.TrimSpace(jti)
	if normalized == "" {
		return nil, ErrJTIRequired
	}
	record, err := r.invitations.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("jti = ?", normalized)
	})
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return toInvitation(record), nil
}

// ListInvitations returns paginated invitations, newest first.
func (r *Repository) ListInvitations(ctx context.Context, filter types.InvitationFilter) (types.InvitationPage, error) {
	pagination := normalizePagination(filter.Pagination, 50, 200)
	records, total, err := r.invitations.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.OrderExpr("created_at DESC, id DESC").
			Limit(pagination.Limit).
			Offset(pagination.Offset)
		if filter.WorkspaceID != uuid.Nil {
			q = q.Where("workspace_id = ?", filter.WorkspaceID)
		}
		if email := normalizeEmail(filter.Email); email != "" {
			q = q.Where("email = ?", email)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", string(filter.Status))
		}
		return q
	})
	if err != nil {
		return types.InvitationPage{}, err
	}
	invitations := make([]types.WorkspaceInvitation, 0, len(records))
	for _, record := range records {
		invitations = append(invitations, *toInvitation(record))
	}
	return types.InvitationPage{
		Invitations: invitations,
		Total:       total,
		NextOffset:  pagination.Offset + pagination.Limit,
		HasMore:     pagination.Offset+pagination.Limit < total,
	}, nil
}

// UpdateInvitationStatus transitions the invitation. Acceptance stamps who
// joined and when.
func (r *Repository) UpdateInvitationStatus(ctx context.Context, id uuid.UUID, status types.InvitationStatus, acceptedBy uuid.UUID, at time.Time) (*types.WorkspaceInvitation, error) {
	record, err := r.invitations.GetByID(ctx, id.String())
	if err != nil {
		return nil, err
	}
	if at.IsZero() {
		at = r.clock.Now()
	}
	record.Status = string(status)
	if status == types.InvitationAccepted {
		record.AcceptedBy = acceptedBy
		record.AcceptedAt = timePtr(at)
	}
	record.UpdatedAt = r.clock.Now()
	updated, err := r.invitations.Update(ctx, record)
	if err != nil {
		return nil, err
	}
	return toInvitation(updated), nil
}

func validRole(role string) bool {
	switch types.WorkspaceMemberRole(role) {
	case types.WorkspaceRoleOwner, types.WorkspaceRoleAdmin, types.WorkspaceRoleMember:
		return true
	}
	return false
}

// slugify lowercases and collapses anything outside [a-z0-9] into single
// hyphens.
func slugify(value string) string {
	var builder strings.Builder
	pending := false
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pending && builder.Len() > 0 {
				builder.WriteByte('-')
			}
			pending = false
			builder.WriteRune(r)
		default:
			pending = true
		}
	}
	return builder.String()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func fromWorkspace(workspace types.Workspace) *Record {
	return &Record{
		ID:          workspace.ID,
		TenantID:    workspace.TenantID,
		Name:        workspace.Name,
		Slug:        workspace.Slug,
		Description: strings.TrimSpace(workspace.Description),
		OwnerID:     workspace.OwnerID,
		CreatedAt:   workspace.CreatedAt,
		UpdatedAt:   workspace.UpdatedAt,
	}
}

func toWorkspace(record *Record) *types.Workspace {
	if record == nil {
		return nil
	}
	return &types.Workspace{
		ID:          record.ID,
		TenantID:    record.TenantID,
		Name:        record.Name,
		Slug:        record.Slug,
		Description: record.Description,
		OwnerID:     record.OwnerID,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

func fromMember(member types.WorkspaceMember) *MemberRecord {
	return &MemberRecord{
		ID:          member.ID,
		WorkspaceID: member.WorkspaceID,
		UserID:      member.UserID,
		Role:        string(member.Role),
		AddedBy:     member.AddedBy,
		CreatedAt:   member.CreatedAt,
		UpdatedAt:   member.UpdatedAt,
	}
}

func toMember(record *MemberRecord) *types.WorkspaceMember {
	if record == nil {
		return nil
	}
	return &types.WorkspaceMember{
		ID:          record.ID,
		WorkspaceID: record.WorkspaceID,
		UserID:      record.UserID,
		Role:        types.WorkspaceMemberRole(record.Role),
		AddedBy:     record.AddedBy,
		JoinedAt:    record.CreatedAt,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

func fromInvitation(invitation types.WorkspaceInvitation) *InvitationRecord {
	return &InvitationRecord{
		ID:          invitation.ID,
		WorkspaceID: invitation.WorkspaceID,
		Email:       invitation.Email,
		Role:        string(invitation.Role),
		Status:      string(invitation.Status),
		JTI:         invitation.JTI,
		InvitedBy:   invitation.InvitedBy,
		ExpiresAt:   timePtr(invitation.ExpiresAt),
		AcceptedBy:  invitation.AcceptedBy,
		AcceptedAt:  timePtr(invitation.AcceptedAt),
		CreatedAt:   invitation.CreatedAt,
		UpdatedAt:   invitation.UpdatedAt,
	}
}

func toInvitation(record *InvitationRecord) *types.WorkspaceInvitation {
	if record == nil {
		return nil
	}
	return &types.WorkspaceInvitation{
		ID:          record.ID,
		WorkspaceID: record.WorkspaceID,
		Email:       record.Email,
		Role:        types.WorkspaceMemberRole(record.Role),
		Status:      types.InvitationStatus(record.Status),
		JTI:         record.JTI,
		InvitedBy:   record.InvitedBy,
		ExpiresAt:   timeFromPtr(record.ExpiresAt),
		AcceptedBy:  record.AcceptedBy,
		AcceptedAt:  timeFromPtr(record.AcceptedAt),
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

// FromWorkspace converts a domain workspace into its persistence record.
func FromWorkspace(workspace types.Workspace) *Record {
	return fromWorkspace(workspace)
}

// ToWorkspace converts a persistence record into its domain workspace.
func ToWorkspace(record *Record) *types.Workspace {
	return toWorkspace(record)
}

func timePtr(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	copy := value
	return &copy
}

func timeFromPtr(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return *value
}

func normalizePagination(p types.Pagination, def, max int) types.Pagination {
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
