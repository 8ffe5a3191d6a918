package crudsvc

import (
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-crud"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

func queryUUID(ctx crud.Context, key string) uuid.UUID {
	raw := strings.TrimSpace(ctx.Query(key))
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func queryStringSlice(ctx crud.Context, key string) []string {
	raw := strings.TrimSpace(ctx.Query(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}

func queryBool(ctx crud.Context, key string) (bool, bool) {
	raw := strings.TrimSpace(ctx.Query(key))
	if raw == "" {
		return false, false
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return parsed, true
}

func queryInt(ctx crud.Context, key string, def int) int {
	if value := ctx.Query(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return def
}

func queryTime(ctx crud.Context, key string) *time.Time {
	raw := strings.TrimSpace(ctx.Query(key))
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &parsed
}

// parseActivitySources drops values that do not map to a known connector so a
// typo in one filter does not fail the whole listing.
func parseActivitySources(ctx crud.Context, key string) []types.ActivitySource {
	values := queryStringSlice(ctx, key)
	if len(values) == 0 {
		return nil
	}
	sources := make([]types.ActivitySource, 0, len(values))
	for _, value := range values {
		source, err := types.ParseActivitySource(value)
		if err != nil {
			continue
		}
		sources = append(sources, source)
	}
	return sources
}

func parseStoryStates(ctx crud.Context, key string) []types.StoryState {
	values := queryStringSlice(ctx, key)
	if len(values) == 0 {
		return nil
	}
	states := make([]types.StoryState, 0, len(values))
	for _, value := range values {
		states = append(states, types.StoryState(strings.ToLower(value)))
	}
	return states
}

func parseStoryVisibilities(ctx crud.Context, key string) []types.StoryVisibility {
	values := queryStringSlice(ctx, key)
	if len(values) == 0 {
		return nil
	}
	visibilities := make([]types.StoryVisibility, 0, len(values))
	for _, value := range values {
		visibilities = append(visibilities, types.StoryVisibility(strings.ToLower(value)))
	}
	return visibilities
}
