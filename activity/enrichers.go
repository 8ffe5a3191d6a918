package activity

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

// NormalizeTimestamps returns an enricher that converts the activity
// timestamp to UTC, defaulting zero timestamps to the clock's now.
func NormalizeTimestamps(clock types.Clock) ActivityEnricher {
	return EnricherFunc(func(_ context.Context, activity types.ToolActivity) (types.ToolActivity, error) {
		out := activity
		if clock == nil {
			clock = types.SystemClock{}
		}
		if out.Timestamp.IsZero() {
			out.Timestamp = clock.Now()
		}
		out.Timestamp = out.Timestamp.UTC()
		return out, nil
	})
}

// TrimFields returns an enricher that strips stray whitespace from the
// user-visible and dedupe-relevant string fields.
func TrimFields() ActivityEnricher {
	return EnricherFunc(func(_ context.Context, activity types.ToolActivity) (types.ToolActivity, error) {
		out := activity
		out.SourceID = strings.TrimSpace(out.SourceID)
		out.SourceURL = strings.TrimSpace(out.SourceURL)
		out.Title = strings.TrimSpace(out.Title)
		out.Description = strings.TrimSpace(out.Description)
		return out, nil
	})
}

// ValidateSource returns an enricher that rejects activities whose source is
// not a known tool.
func ValidateSource() ActivityEnricher {
	return EnricherFunc(func(_ context.Context, activity types.ToolActivity) (types.ToolActivity, error) {
		if !activity.Source.Valid() {
			return activity, types.ErrUnknownSource
		}
		return activity, nil
	})
}

// CrossRefLinker resolves the source references captured during normalization
// into activity IDs. Hints pointing at activities that have not been imported
// yet are skipped; the reverse link is picked up when the referenced activity
// arrives and names this one.
type CrossRefLinker struct {
	Repo types.ToolActivityRepository
}

var _ ActivityEnricher = (*CrossRefLinker)(nil)

// Enrich resolves RefHints against the repository and appends any matches to
// CrossToolRefs, deduplicated and never self-referential.
func (l *CrossRefLinker) Enrich(ctx context.Context, activity types.ToolActivity) (types.ToolActivity, error) {
	if l == nil || l.Repo == nil || len(activity.RefHints) == 0 {
		return activity, nil
	}

	out := activity
	out.CrossToolRefs = cloneUUIDs(activity.CrossToolRefs)

	seen := make(map[uuid.UUID]struct{}, len(out.CrossToolRefs))
	for _, id := range out.CrossToolRefs {
		seen[id] = struct{}{}
	}

	for _, hint := range activity.RefHints {
		if hint.Source == "" || strings.TrimSpace(hint.SourceID) == "" {
			continue
		}
		ref, err := l.Repo.GetActivityBySourceID(ctx, activity.UserID, hint.Source, strings.TrimSpace(hint.SourceID))
		if err != nil || ref == nil {
			continue
		}
		if ref.ID == activity.ID || ref.ID == uuid.Nil {
			continue
		}
		if _, ok := seen[ref.ID]; ok {
			continue
		}
		seen[ref.ID] = struct{}{}
		out.CrossToolRefs = append(out.CrossToolRefs, ref.ID)
	}
	return out, nil
}

// StampImport records the import wall-clock time on the activity when unset.
func StampImport(activity types.ToolActivity, now time.Time) types.ToolActivity {
	out := activity
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	out.UpdatedAt = now
	return out
}
