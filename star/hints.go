package star

import (
	"encoding/json"
	"strings"

	"github.com/inchronicle/go-stories/pkg/types"
)

// rawHints are the author signals tools may embed in an activity payload.
// "star_part" pins the activity to one section; "role" feeds the
// participation summary. Unknown or malformed payloads yield zero hints.
type rawHints struct {
	Part types.StarPart
	Role types.ParticipationRole
}

func parseHints(raw json.RawMessage) rawHints {
	var hints rawHints
	if len(raw) == 0 {
		return hints
	}
	var payload struct {
		StarPart string `json:"star_part"`
		Part     string `json:"part"`
		Role     string `json:"role"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return hints
	}
	part := payload.StarPart
	if part == "" {
		part = payload.Part
	}
	switch types.StarPart(strings.ToLower(strings.TrimSpace(part))) {
	case types.StarSituation:
		hints.Part = types.StarSituation
	case types.StarTask:
		hints.Part = types.StarTask
	case types.StarAction:
		hints.Part = types.StarAction
	case types.StarResult:
		hints.Part = types.StarResult
	}
	switch types.ParticipationRole(strings.ToLower(strings.TrimSpace(payload.Role))) {
	case types.RoleInitiator:
		hints.Role = types.RoleInitiator
	case types.RoleContributor:
		hints.Role = types.RoleContributor
	case types.RoleMentioned:
		hints.Role = types.RoleMentioned
	case types.RoleObserver:
		hints.Role = types.RoleObserver
	}
	return hints
}
