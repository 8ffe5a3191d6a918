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

var (
	// ErrJTIRequired indicates a token operation without a JTI.
	ErrJTIRequired = errors.New("tokens: jti required")
	// ErrTypeRequired indicates a token created without a type.
	ErrTypeRequired = errors.New("tokens: token type required")
)

// RepositoryConfig carries the handles the token repository needs.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

type tokenStore interface {
	repository.Repository[*Record]
}

// Repository is the Bun implementation of types.UserTokenRepository.
type Repository struct {
	tokenStore
	db    *bun.DB
	clock types.Clock
	idGen types.IDGenerator
}

// NewRepository wires the Bun-backed token store.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("tokens: db or repository required")
	}
	repo := cfg.Repository
	if repo == nil {
		repo = repository.NewRepository(cfg.DB, repository.ModelHandlers[*Record]{
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
	return &Repository{tokenStore: repo, db: db, clock: clock, idGen: idGen}, nil
}

var (
	_ repository.Repository[*Record] = (*Repository)(nil)
	_ types.UserTokenRepository      = (*Repository)(nil)
)

// CreateToken persists a user token record. Invite tokens are issued against
// an email before any account exists, so the user id stays optional.
func (r *Repository) CreateToken(ctx context.Context, token types.UserToken) (*types.UserToken, error) {
	if token.Type == "" {
		return nil, ErrTypeRequired
	}
	if strings.TrimSpace(token.JTI) == "" {
		return nil, ErrJTIRequired
	}
	record := fromUserToken(token)
	r.stampForInsert(record)
	created, err := r.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	return toUserToken(created), nil
}

// GetTokenByJTI returns the token record matching the JTI and type, or nil
// when no token matches.
func (r *Repository) GetTokenByJTI(ctx context.Context, tokenType types.UserTokenType, jti string) (*types.UserToken, error) {
	record, err := r.Get(ctx, selectToken(tokenType, jti))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return toUserToken(record), nil
}

// UpdateTokenStatus transitions the token out of issued. The update is
// guarded on the current status, so concurrent consumers race on the row and
// exactly one wins. Marking a token used additionally requires it to be
// unexpired.
func (r *Repository) UpdateTokenStatus(ctx context.Context, tokenType types.UserTokenType, jti string, status types.UserTokenStatus, usedAt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("tokens: db required for updates")
	}
	normalized := strings.TrimSpace(jti)
	if normalized == "" {
		return ErrJTIRequired
	}
	now := r.clock.Now()
	record := &Record{
		Status:    string(status),
		UsedAt:    timePtr(usedAt),
		UpdatedAt: now,
	}
	q := r.db.NewUpdate().Model(record).
		Column("status", "used_at", "updated_at").
		Where("jti = ?", normalized)
	if tokenType != "" {
		q = q.Where("token_type = ?", string(tokenType))
	}
	q = q.Where("status = ?", string(types.UserTokenStatusIssued)).
		Where("used_at IS NULL")
	if status == types.UserTokenStatusUsed {
		q = q.Where("expires_at IS NULL OR expires_at > ?", now)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return repository.MapDatabaseError(err, repository.DetectDriver(r.db))
	}
	return repository.SQLExpectedCount(res, 1)
}

func (r *Repository) stampForInsert(record *Record) {
	if record.ID == uuid.Nil {
		record.ID = r.idGen.UUID()
	}
	now := r.clock.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = now
	}
	if record.IssuedAt == nil {
		record.IssuedAt = timePtr(now)
	}
	if strings.TrimSpace(record.Status) == "" {
		record.Status = string(types.UserTokenStatusIssued)
	}
}

func selectToken(tokenType types.UserTokenType, jti string) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("jti = ?", strings.TrimSpace(jti))
		if tokenType != "" {
			q = q.Where("token_type = ?", string(tokenType))
		}
		return q
	}
}

func fromUserToken(token types.UserToken) *Record {
	return &Record{
		ID:          token.ID,
		UserID:      token.UserID,
		WorkspaceID: token.WorkspaceID,
		Email:       token.Email,
		TokenType:   string(token.Type),
		JTI:         token.JTI,
		Status:      string(token.Status),
		IssuedAt:    timePtr(token.IssuedAt),
		ExpiresAt:   timePtr(token.ExpiresAt),
		UsedAt:      timePtr(token.UsedAt),
		CreatedAt:   token.CreatedAt,
		UpdatedAt:   token.UpdatedAt,
	}
}

func toUserToken(record *Record) *types.UserToken {
	if record == nil {
		return nil
	}
	return &types.UserToken{
		ID:          record.ID,
		UserID:      record.UserID,
		WorkspaceID: record.WorkspaceID,
		Email:       record.Email,
		Type:        types.UserTokenType(record.TokenType),
		JTI:         record.JTI,
		Status:      types.UserTokenStatus(record.Status),
		IssuedAt:    timeFromPtr(record.IssuedAt),
		ExpiresAt:   timeFromPtr(record.ExpiresAt),
		UsedAt:      timeFromPtr(record.UsedAt),
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

// FromUserToken converts a domain token into its persistence record.
func FromUserToken(token types.UserToken) *Record {
	return fromUserToken(token)
}

// ToUserToken converts a persistence record into its domain token.
func ToUserToken(record *Record) *types.UserToken {
	return toUserToken(record)
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
