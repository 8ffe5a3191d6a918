package types

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JournalEntry is free-form writing the wizard turns into story drafts.
type JournalEntry struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Title     string
	Body      string
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// JournalFilter narrows journal listing queries.
type JournalFilter struct {
	Actor      ActorRef
	Scope      ScopeFilter
	UserID     uuid.UUID
	Tag        string
	Keyword    string
	Since      *time.Time
	Until      *time.Time
	Pagination Pagination
}

// Type implements gocommand.Message for query inputs.
func (JournalFilter) Type() string {
	return "query.journal.list"
}

// Validate implements gocommand.Message.
func (filter JournalFilter) Validate() error {
	if filter.Actor.ID == uuid.Nil {
		return ErrActorRequired
	}
	return nil
}

// JournalPage represents a paginated journal listing.
type JournalPage struct {
	Entries    []JournalEntry
	Total      int
	NextOffset int
	HasMore    bool
}

// JournalRepository is the storage contract for journal entries.
type JournalRepository interface {
	CreateEntry(ctx context.Context, entry JournalEntry) (*JournalEntry, error)
	GetEntryByID(ctx context.Context, userID, id uuid.UUID) (*JournalEntry, error)
	ListEntries(ctx context.Context, filter JournalFilter) (JournalPage, error)
	UpdateEntry(ctx context.Context, entry JournalEntry) (*JournalEntry, error)
	DeleteEntry(ctx context.Context, userID, id uuid.UUID) error
}
