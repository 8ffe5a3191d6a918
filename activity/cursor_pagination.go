package activity

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivityCursor defines the cursor shape for activity feeds. The feed orders
// by activity timestamp with the row ID as a tie breaker, so a cursor carries
// both.
type ActivityCursor struct {
	Timestamp time.Time
	ID        uuid.UUID
}

// EncodeCursor serializes a cursor into an opaque URL-safe token.
func EncodeCursor(c ActivityCursor) string {
	raw := fmt.Sprintf("%s|%s", c.Timestamp.UTC().Format(time.RFC3339Nano), c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor. An empty token yields
// a nil cursor, which callers treat as offset pagination.
func DecodeCursor(encoded string) (*ActivityCursor, error) {
	if encoded == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("activity: invalid cursor encoding: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("activity: invalid cursor format")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, fmt.Errorf("activity: invalid cursor timestamp: %w", err)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, fmt.Errorf("activity: invalid cursor id: %w", err)
	}
	return &ActivityCursor{Timestamp: ts, ID: id}, nil
}

// ApplyCursorPagination pages by (timestamp, id) descending, keeping only
// rows strictly older than the cursor position.
func ApplyCursorPagination(q *bun.SelectQuery, cursor *ActivityCursor, limit int) *bun.SelectQuery {
	if q == nil {
		return nil
	}
	q = q.OrderExpr("timestamp DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if cursor == nil || cursor.Timestamp.IsZero() {
		return q
	}
	if cursor.ID == uuid.Nil {
		return q.Where("timestamp < ?", cursor.Timestamp)
	}
	return q.Where("(timestamp < ?) OR (timestamp = ? AND id < ?)", cursor.Timestamp, cursor.Timestamp, cursor.ID)
}
