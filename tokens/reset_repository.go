package tokens

import (
	"context"
	"errors"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/uptrace/bun"
)

// ResetRepositoryConfig wires the Bun-backed password reset repository.
type ResetRepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*ResetRecord]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

type resetStore interface {
	repository.Repository[*ResetRecord]
}

// ResetRepository implements types.PasswordResetRepository using Bun.
type ResetRepository struct {
	resetStore
	db    *bun.DB
	clock types.Clock
	idGen types.IDGenerator
}

// NewResetRepository constructs the default password reset repository.
func NewResetRepository(cfg ResetRepositoryConfig) (*ResetRepository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("tokens: db or repository required")
	}
	repo := cfg.Repository
	if repo == nil {
		repo = repository.NewRepository(cfg.DB, repository.ModelHandlers[*ResetRecord]{
			NewRecord: func() *ResetRecord { return &ResetRecord{} },
			GetID: func(record *ResetRecord) uuid.UUID {
				if record == nil {
					return uuid.Nil
				}
				return record.ID
			},
			SetID: func(record *ResetRecord, id uuid.UUID) {
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
	db := cfg.DB
	if db == nil {
		if withDB, ok := repo.(interface{ DB() *bun.DB }); ok {
			db = withDB.DB()
		}
	}
	return &ResetRepository{resetStore: repo, db: db, clock: clock, idGen: idGen}, nil
}

var (
	_ repository.Repository[*ResetRecord] = (*ResetRepository)(nil)
	_ types.PasswordResetRepository       = (*ResetRepository)(nil)
)

// CreateReset persists a password reset record.
func (r *ResetRepository) CreateReset(ctx context.Context, record types.PasswordResetRecord) (*types.PasswordResetRecord, error) {
	if record.UserID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	if strings.TrimSpace(record.JTI) == "" {
		return nil, ErrJTIRequired
	}
	rec := fromReset(record)
	if rec.ID == uuid.Nil {
		rec.ID = r.idGen.UUID()
	}
	now := r.clock.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	if rec.IssuedAt == nil {
		rec.IssuedAt = timePtr(now)
	}
	if strings.TrimSpace(rec.Status) == "" {
		rec.Status = string(types.PasswordResetStatusRequested)
	}
	created, err := r.Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	return toReset(created), nil
}

// GetResetByJTI returns the password reset record for a JTI, or nil when no
// record matches.
func (r *ResetRepository) GetResetByJTI(ctx context.Context, jti string) (*types.PasswordResetRecord, error) {
	record, err := r.Get(ctx, selectReset(jti))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return toReset(record), nil
}

// ConsumeReset marks the reset token as used. The update is guarded on the
// requested status and an empty used_at, enforcing single use.
func (r *ResetRepository) ConsumeReset(ctx context.Context, jti string, usedAt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("tokens: db required for updates")
	}
	normalized := strings.TrimSpace(jti)
	if normalized == "" {
		return ErrJTIRequired
	}
	if usedAt.IsZero() {
		usedAt = r.clock.Now()
	}
	record := &ResetRecord{
		UsedAt:    timePtr(usedAt),
		UpdatedAt: r.clock.Now(),
	}
	q := r.db.NewUpdate().Model(record).
		Column("used_at", "updated_at").
		Where("jti = ?", normalized).
		Where("status = ?", string(types.PasswordResetStatusRequested)).
		Where("used_at IS NULL").
		Where("expires_at IS NULL OR expires_at > ?", usedAt)
	res, err := q.Exec(ctx)
	if err != nil {
		return repository.MapDatabaseError(err, repository.DetectDriver(r.db))
	}
	return repository.SQLExpectedCount(res, 1)
}

// UpdateResetStatus updates reset status and usage timestamps. The reset
// stamp is only written when the password actually changed.
func (r *ResetRepository) UpdateResetStatus(ctx context.Context, jti string, status types.PasswordResetStatus, usedAt time.Time) error {
	record, err := r.Get(ctx, selectReset(jti))
	if err != nil {
		return err
	}
	record.Status = string(status)
	if !usedAt.IsZero() {
		record.UsedAt = timePtr(usedAt)
		if status == types.PasswordResetStatusChanged {
			record.ResetAt = timePtr(usedAt)
		}
	}
	record.UpdatedAt = r.clock.Now()
	_, err = r.Update(ctx, record)
	return err
}

func selectReset(jti string) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("jti = ?", strings.TrimSpace(jti))
	}
}

func fromReset(record types.PasswordResetRecord) *ResetRecord {
	return &ResetRecord{
		ID:               record.ID,
		UserID:           record.UserID,
		Email:            record.Email,
		Status:           string(record.Status),
		JTI:              record.JTI,
		IssuedAt:         timePtr(record.IssuedAt),
		ExpiresAt:        timePtr(record.ExpiresAt),
		UsedAt:           timePtr(record.UsedAt),
		ResetAt:          timePtr(record.ResetAt),
		ScopeTenantID:    record.Scope.TenantID,
		ScopeWorkspaceID: record.Scope.WorkspaceID,
		CreatedAt:        record.CreatedAt,
		UpdatedAt:        record.UpdatedAt,
	}
}

func toReset(record *ResetRecord) *types.PasswordResetRecord {
	if record == nil {
		return nil
	}
	return &types.PasswordResetRecord{
		ID:        record.ID,
		UserID:    record.UserID,
		Email:     record.Email,
		Status:    types.PasswordResetStatus(record.Status),
		JTI:       record.JTI,
		IssuedAt:  timeFromPtr(record.IssuedAt),
		ExpiresAt: timeFromPtr(record.ExpiresAt),
		UsedAt:    timeFromPtr(record.UsedAt),
		ResetAt:   timeFromPtr(record.ResetAt),
		Scope: types.ScopeFilter{
			TenantID:    record.ScopeTenantID,
			WorkspaceID: record.ScopeWorkspaceID,
		},
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

// FromReset converts a domain reset record into its persistence record.
func FromReset(record types.PasswordResetRecord) *ResetRecord {
	return fromReset(record)
}

// ToReset converts a persistence record into its domain reset record.
func ToReset(record *ResetRecord) *types.PasswordResetRecord {
	return toReset(record)
}
