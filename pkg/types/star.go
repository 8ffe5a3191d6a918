package types

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StarPart names one of the four narrative sections.
type StarPart string

const (
	StarSituation StarPart = "situation"
	StarTask      StarPart = "task"
	StarAction    StarPart = "action"
	StarResult    StarPart = "result"
)

// StarParts returns the four parts in narrative order.
func StarParts() []StarPart {
	return []StarPart{StarSituation, StarTask, StarAction, StarResult}
}

// StarSection is one part of a scored narrative. Sources lists the activity
// IDs the text was derived from and must be a subset of the owning cluster's
// membership.
type StarSection struct {
	Part       StarPart
	Text       string
	Sources    []uuid.UUID
	Confidence float64
}

// ParticipationRole classifies how the user showed up in an activity.
type ParticipationRole string

const (
	RoleInitiator   ParticipationRole = "initiator"
	RoleContributor ParticipationRole = "contributor"
	RoleMentioned   ParticipationRole = "mentioned"
	RoleObserver    ParticipationRole = "observer"
)

// ParticipationSummary counts activities by the user's role in them.
type ParticipationSummary struct {
	Initiator   int
	Contributor int
	Mentioned   int
	Observer    int
}

// Total returns the number of classified activities.
func (p ParticipationSummary) Total() int {
	return p.Initiator + p.Contributor + p.Mentioned + p.Observer
}

// Add increments the counter for the given role.
func (p *ParticipationSummary) Add(role ParticipationRole) {
	switch role {
	case RoleInitiator:
		p.Initiator++
	case RoleContributor:
		p.Contributor++
	case RoleMentioned:
		p.Mentioned++
	default:
		p.Observer++
	}
}

// StarMeta summarizes the evidence behind a narrative.
type StarMeta struct {
	DateRange     DateRange
	Tools         []ActivitySource
	ActivityCount int
}

// StarValidation is the quality-gate verdict attached to every synthesized
// narrative. FailedGates names the gates that did not hold; Warnings flag
// thin sections that still passed.
type StarValidation struct {
	Passed      bool
	Score       float64
	FailedGates []string
	Warnings    []string
}

// ScoredStar is a four part narrative synthesized from a cluster, with per
// section confidence, source attribution, and a validation verdict.
type ScoredStar struct {
	ClusterID         uuid.UUID
	Situation         StarSection
	Task              StarSection
	Action            StarSection
	Result            StarSection
	OverallConfidence float64
	Participation     ParticipationSummary
	SuggestedEdits    []string
	Meta              StarMeta
	Validation        StarValidation
	GeneratedAt       time.Time
}

// Section returns the section for the named part. Unknown parts return the
// zero section.
func (s ScoredStar) Section(part StarPart) StarSection {
	switch part {
	case StarSituation:
		return s.Situation
	case StarTask:
		return s.Task
	case StarAction:
		return s.Action
	case StarResult:
		return s.Result
	}
	return StarSection{}
}

// SetSection replaces the section for the named part.
func (s *ScoredStar) SetSection(part StarPart, section StarSection) {
	section.Part = part
	switch part {
	case StarSituation:
		s.Situation = section
	case StarTask:
		s.Task = section
	case StarAction:
		s.Action = section
	case StarResult:
		s.Result = section
	}
}

// Sections returns the four sections in narrative order.
func (s ScoredStar) Sections() []StarSection {
	out := make([]StarSection, 0, 4)
	for _, part := range StarParts() {
		out = append(out, s.Section(part))
	}
	return out
}

// SourceSet returns the union of all section sources.
func (s ScoredStar) SourceSet() map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{})
	for _, section := range s.Sections() {
		for _, id := range section.Sources {
			set[id] = struct{}{}
		}
	}
	return set
}

// SynthesisStyle controls how much of the evidence the composed text carries.
type SynthesisStyle string

const (
	StyleConcise  SynthesisStyle = "concise"
	StyleDetailed SynthesisStyle = "detailed"
)

// SynthesisOptions tunes the star synthesizer.
type SynthesisOptions struct {
	// Style selects concise or detailed composition. Empty means concise.
	Style SynthesisStyle
	// MinConfidence overrides the overall-confidence gate threshold. Zero
	// uses the synthesizer default.
	MinConfidence float64
	// Now overrides the generation timestamp for deterministic output.
	Now time.Time
}

// StarSynthesizer derives a scored narrative from a cluster and its member
// activities. Implementations must be deterministic for a given input set.
type StarSynthesizer interface {
	Synthesize(ctx context.Context, cluster Cluster, activities []ToolActivity, opts SynthesisOptions) (*ScoredStar, error)
	Validate(star ScoredStar, cluster Cluster) StarValidation
}

// StarEvent is emitted after a narrative is generated.
type StarEvent struct {
	UserID     uuid.UUID
	ClusterID  uuid.UUID
	StoryID    uuid.UUID
	Overall    float64
	Passed     bool
	ActorID    uuid.UUID
	Scope      ScopeFilter
	OccurredAt time.Time
}
