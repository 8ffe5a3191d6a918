package journal

import (
	"context"
	"errors"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/uptrace/bun"
)

// RepositoryConfig wires the Bun-backed journal repository.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

type recordStore interface {
	repository.Repository[*Record]
}

// Repository persists journal entries.
type Repository struct {
	recordStore
	db    *bun.DB
	clock types.Clock
	idGen types.IDGenerator
}

// NewRepository constructs a repository implementing JournalRepository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("journal: db or repository required")
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

	return &Repository{
		recordStore: repo,
		db:          cfg.DB,
		clock:       clock,
		idGen:       idGen,
	}, nil
}

var (
	_ repository.Repository[*Record] = (*Repository)(nil)
	_ types.JournalRepository        = (*Repository)(nil)
)

// CreateEntry persists a new journal entry.
func (r *Repository) CreateEntry(ctx context.Context, entry types.JournalEntry) (*types.JournalEntry, error) {
	if entry.UserID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	record := fromEntry(entry)
	r.stampForInsert(record)
	created, err := r.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	out := toEntry(created)
	return &out, nil
}

// GetEntryByID fetches one entry owned by the user.
func (r *Repository) GetEntryByID(ctx context.Context, userID, id uuid.UUID) (*types.JournalEntry, error) {
	record, err := r.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("id = ?", id)
		if userID != uuid.Nil {
			q = q.Where("user_id = ?", userID)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	out := toEntry(record)
	return &out, nil
}

// ListEntries returns a paginated listing, newest first.
func (r *Repository) ListEntries(ctx context.Context, filter types.JournalFilter) (types.JournalPage, error) {
	pagination := normalizePagination(filter.Pagination, 50, 200)

	rows, total, err := r.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.OrderExpr("created_at DESC, id DESC").
			Limit(pagination.Limit).
			Offset(pagination.Offset)
		return applyJournalFilter(q, filter)
	})
	if err != nil {
		return types.JournalPage{}, err
	}
	entries := make([]types.JournalEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, toEntry(row))
	}
	return types.JournalPage{
		Entries:    entries,
		Total:      total,
		NextOffset: pagination.Offset + pagination.Limit,
		HasMore:    pagination.Offset+pagination.Limit < total,
	}, nil
}

// UpdateEntry saves title, body, and tag edits to an existing entry.
func (r *Repository) UpdateEntry(ctx context.Context, entry types.JournalEntry) (*types.JournalEntry, error) {
	existing, err := r.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("id = ?", entry.ID)
		if entry.UserID != uuid.Nil {
			q = q.Where("user_id = ?", entry.UserID)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	existing.Title = entry.Title
	existing.Body = entry.Body
	existing.Tags = cloneTags(entry.Tags)
	existing.UpdatedAt = r.clock.Now()

	updated, err := r.Update(ctx, existing)
	if err != nil {
		return nil, err
	}
	out := toEntry(updated)
	return &out, nil
}

// DeleteEntry removes the entry permanently. Stories drafted from it are
// standalone and unaffected.
func (r *Repository) DeleteEntry(ctx context.Context, userID, id uuid.UUID) error {
	record, err := r.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("id = ?", id)
		if userID != uuid.Nil {
			q = q.Where("user_id = ?", userID)
		}
		return q
	})
	if err != nil {
		return err
	}
	return r.Delete(ctx, record)
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
}

func applyJournalFilter(q *bun.SelectQuery, filter types.JournalFilter) *bun.SelectQuery {
	if filter.UserID != uuid.Nil {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if tag := strings.TrimSpace(filter.Tag); tag != "" {
		// Tags are stored as a JSON array of strings.
		q = q.Where("tags LIKE ?", `%"`+tag+`"%`)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		needle := "%" + strings.ToLower(keyword) + "%"
		q = q.Where("(LOWER(title) LIKE ? OR LOWER(body) LIKE ?)", needle, needle)
	}
	if filter.Since != nil {
		q = q.Where("created_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		q = q.Where("created_at < ?", *filter.Until)
	}
	return q
}

func fromEntry(entry types.JournalEntry) *Record {
	return &Record{
		ID:        entry.ID,
		UserID:    entry.UserID,
		Title:     entry.Title,
		Body:      entry.Body,
		Tags:      cloneTags(entry.Tags),
		CreatedAt: entry.CreatedAt,
		UpdatedAt: entry.UpdatedAt,
	}
}

func toEntry(record *Record) types.JournalEntry {
	if record == nil {
		return types.JournalEntry{}
	}
	return types.JournalEntry{
		ID:        record.ID,
		UserID:    record.UserID,
		Title:     record.Title,
		Body:      record.Body,
		Tags:      cloneTags(record.Tags),
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

func cloneTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, len(tags))
	copy(out, tags)
	return out
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
