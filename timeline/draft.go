package timeline

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/cluster"
	"github.com/inchronicle/go-stories/pkg/types"
)

// StoryRole is the user's dominant involvement across a draft's activities.
type StoryRole string

const (
	RoleLed          StoryRole = "led"
	RoleContributed  StoryRole = "contributed"
	RoleParticipated StoryRole = "participated"
)

const draftTopicCount = 3

// DraftStory is the ephemeral display aggregation views render before a
// cluster becomes a career story. It is derived, never persisted.
type DraftStory struct {
	ClusterID   uuid.UUID
	Title       string
	Role        StoryRole
	Topics      []string
	Tools       []types.ActivitySource
	ActivityIDs []uuid.UUID
	StartedAt   time.Time
	EndedAt     time.Time
}

// DeriveDraft builds the draft story for one cluster from the activity set.
// Membership order, topics, tools, and the date range all derive from the
// chronologically ordered members, so the same inputs always produce the
// same draft.
func DeriveDraft(c types.Cluster, activities []types.ToolActivity) DraftStory {
	members := selectOrdered(c.ActivityIDs, activities)

	draft := DraftStory{
		ClusterID:   c.ID,
		Title:       strings.TrimSpace(c.Name),
		Role:        DominantRole(members),
		Topics:      cluster.Topics(members, draftTopicCount),
		ActivityIDs: make([]uuid.UUID, 0, len(members)),
	}
	if draft.Title == "" {
		draft.Title = cluster.SuggestName(members)
	}

	seen := make(map[types.ActivitySource]struct{}, len(members))
	for _, member := range members {
		draft.ActivityIDs = append(draft.ActivityIDs, member.ID)
		if _, ok := seen[member.Source]; !ok {
			seen[member.Source] = struct{}{}
			draft.Tools = append(draft.Tools, member.Source)
		}
		if member.Timestamp.IsZero() {
			continue
		}
		if draft.StartedAt.IsZero() || member.Timestamp.Before(draft.StartedAt) {
			draft.StartedAt = member.Timestamp
		}
		if member.Timestamp.After(draft.EndedAt) {
			draft.EndedAt = member.Timestamp
		}
	}
	return draft
}

// DeriveDrafts maps DeriveDraft over the clusters, preserving cluster order.
func DeriveDrafts(clusters []types.Cluster, activities []types.ToolActivity) []DraftStory {
	drafts := make([]DraftStory, 0, len(clusters))
	for _, c := range clusters {
		drafts = append(drafts, DeriveDraft(c, activities))
	}
	return drafts
}

// DominantRole reduces the members' participation hints to one story role.
// Initiators read as led, contributors as contributed, everything else as
// participated. Activities without a role hint do not vote; ties resolve
// toward the stronger claim, and a draft with no votes reads as participated.
func DominantRole(activities []types.ToolActivity) StoryRole {
	var led, contributed, participated int
	for _, activity := range activities {
		switch roleHint(activity.RawData) {
		case types.RoleInitiator:
			led++
		case types.RoleContributor:
			contributed++
		case types.RoleMentioned, types.RoleObserver:
			participated++
		}
	}
	switch {
	case led > 0 && led >= contributed && led >= participated:
		return RoleLed
	case contributed > 0 && contributed >= participated:
		return RoleContributed
	default:
		return RoleParticipated
	}
}

// roleHint reads the participation role a tool payload may carry. Malformed
// or unhinted payloads stay silent.
func roleHint(raw json.RawMessage) types.ParticipationRole {
	if len(raw) == 0 {
		return ""
	}
	var payload struct {
		Role string `json:"role"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	switch role := types.ParticipationRole(strings.ToLower(strings.TrimSpace(payload.Role))); role {
	case types.RoleInitiator, types.RoleContributor, types.RoleMentioned, types.RoleObserver:
		return role
	}
	return ""
}
