package timeline

import (
	"sort"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

// ActivityView wraps one activity with its display flags. When a highlight
// set is active, members are highlighted and everything else is dimmed; with
// no highlight set both flags stay false.
type ActivityView struct {
	Activity      types.ToolActivity
	IsHighlighted bool
	IsDimmed      bool
}

// GroupBySource partitions activities by source. Every input activity lands
// in exactly one group, in its input position relative to the group.
func GroupBySource(activities []types.ToolActivity) map[types.ActivitySource][]types.ToolActivity {
	groups := make(map[types.ActivitySource][]types.ToolActivity)
	for _, activity := range activities {
		groups[activity.Source] = append(groups[activity.Source], activity)
	}
	return groups
}

// ActivitiesForDraft returns the draft's member activities ordered by
// timestamp then ID. The result depends only on the draft membership and the
// activity set, so repeated calls return the same ordered list regardless of
// input order.
func ActivitiesForDraft(draft DraftStory, activities []types.ToolActivity) []types.ToolActivity {
	return selectOrdered(draft.ActivityIDs, activities)
}

// BuildViews wraps activities in view-models. A non-empty highlight set marks
// members highlighted and the rest dimmed.
func BuildViews(activities []types.ToolActivity, highlighted []uuid.UUID) []ActivityView {
	set := make(map[uuid.UUID]struct{}, len(highlighted))
	for _, id := range highlighted {
		set[id] = struct{}{}
	}
	views := make([]ActivityView, 0, len(activities))
	for _, activity := range activities {
		view := ActivityView{Activity: activity}
		if len(set) > 0 {
			if _, ok := set[activity.ID]; ok {
				view.IsHighlighted = true
			} else {
				view.IsDimmed = true
			}
		}
		views = append(views, view)
	}
	return views
}

// HighlightDraft builds view-models for the full activity list with the
// draft's members highlighted.
func HighlightDraft(draft DraftStory, activities []types.ToolActivity) []ActivityView {
	return BuildViews(activities, draft.ActivityIDs)
}

func selectOrdered(ids []uuid.UUID, activities []types.ToolActivity) []types.ToolActivity {
	members := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		members[id] = struct{}{}
	}
	selected := make([]types.ToolActivity, 0, len(ids))
	for _, activity := range activities {
		if _, ok := members[activity.ID]; ok {
			selected = append(selected, activity)
		}
	}
	sort.Slice(selected, func(i, j int) bool {
		if !selected[i].Timestamp.Equal(selected[j].Timestamp) {
			return selected[i].Timestamp.Before(selected[j].Timestamp)
		}
		return selected[i].ID.String() < selected[j].ID.String()
	})
	return selected
}
