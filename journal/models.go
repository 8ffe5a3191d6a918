package journal

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record is the Bun model backing journal entries.
type Record struct {
	bun.BaseModel `bun:"table:journal_entries,alias:journal"`

	ID        uuid.UUID `bun:",pk,type:uuid"`
	UserID    uuid.UUID `bun:"user_id,type:uuid"`
	Title     string    `bun:"title"`
	Body      string    `bun:"body"`
	Tags      []string  `bun:"tags,type:jsonb"`
	CreatedAt time.Time `bun:"created_at"`
	UpdatedAt time.Time `bun:"updated_at"`
}
