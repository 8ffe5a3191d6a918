package star

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

// DefaultMinConfidence is the overall-confidence gate threshold.
const DefaultMinConfidence = 0.35

// editThreshold marks sections weak enough to earn a suggested edit.
const editThreshold = 0.5

// Validation gate names reported in StarValidation.FailedGates.
const (
	GatePartsNonempty     = "every-part-nonempty"
	GateMinConfidence     = "min-overall-confidence"
	GateDateRangeSane     = "date-range-sane"
	GateSourcesAttributed = "sources-attributed"
)

// ErrNoActivities indicates the cluster has no member activities to
// synthesize from.
var ErrNoActivities = errors.New("star: no cluster activities to synthesize from")

// closingPhrases mark an activity as evidence of an outcome regardless of its
// source tool.
var closingPhrases = []string{
	"shipped", "launched", "released", "resolved", "completed", "delivered",
	"closed", "wrapped up", "postmortem", "retrospective",
}

// sectionLeads open the composed text for each part.
var sectionLeads = map[types.StarPart]string{
	types.StarSituation: "The work started with",
	types.StarTask:      "The goal took shape around",
	types.StarAction:    "Execution ran through",
	types.StarResult:    "The effort closed out with",
}

// SynthesizerConfig wires the narrative synthesizer.
type SynthesizerConfig struct {
	Clock types.Clock
	// MinConfidence overrides the overall-confidence gate threshold.
	MinConfidence float64
}

// Synthesizer derives scored narratives from clusters. Output is
// deterministic for a given cluster and activity set.
type Synthesizer struct {
	clock         types.Clock
	minConfidence float64
}

// NewSynthesizer constructs a Synthesizer with defaults filled in.
func NewSynthesizer(cfg SynthesizerConfig) *Synthesizer {
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	minConfidence := cfg.MinConfidence
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return &Synthesizer{
		clock:         clock,
		minConfidence: minConfidence,
	}
}

var _ types.StarSynthesizer = (*Synthesizer)(nil)

// Synthesize builds the four part narrative. Activities outside the cluster's
// membership are dropped so sections can never cite foreign ids; every member
// activity lands in at least one section's sources.
func (s *Synthesizer) Synthesize(ctx context.Context, cluster types.Cluster, activities []types.ToolActivity, opts types.SynthesisOptions) (*types.ScoredStar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	members := make([]types.ToolActivity, 0, len(activities))
	for _, activity := range activities {
		if cluster.Contains(activity.ID) {
			members = append(members, activity)
		}
	}
	if len(members) == 0 {
		return nil, ErrNoActivities
	}
	sort.Slice(members, func(i, j int) bool {
		if !members[i].Timestamp.Equal(members[j].Timestamp) {
			return members[i].Timestamp.Before(members[j].Timestamp)
		}
		return members[i].ID.String() < members[j].ID.String()
	})

	style := opts.Style
	if style != types.StyleDetailed {
		style = types.StyleConcise
	}

	assigned := make(map[types.StarPart][]types.ToolActivity)
	hinted := make(map[types.StarPart]bool)
	var participation types.ParticipationSummary
	for _, activity := range members {
		hints := parseHints(activity.RawData)
		role := hints.Role
		if role == "" {
			role = types.RoleContributor
		}
		participation.Add(role)

		parts, explicit := partsFor(activity, hints)
		for _, part := range parts {
			assigned[part] = append(assigned[part], activity)
			if explicit {
				hinted[part] = true
			}
		}
	}

	star := &types.ScoredStar{
		ClusterID:     cluster.ID,
		Participation: participation,
	}
	for _, part := range types.StarParts() {
		star.SetSection(part, composeSection(part, assigned[part], hinted[part], style))
	}
	star.OverallConfidence = overallConfidence(*star)
	star.Meta = buildMeta(members)
	star.SuggestedEdits = suggestedEdits(*star)
	if !opts.Now.IsZero() {
		star.GeneratedAt = opts.Now
	} else {
		star.GeneratedAt = s.clock.Now()
	}

	threshold := opts.MinConfidence
	if threshold <= 0 {
		threshold = s.minConfidence
	}
	star.Validation = validate(*star, cluster, threshold)
	return star, nil
}

// Validate runs the quality gates against an existing narrative using the
// synthesizer's configured threshold.
func (s *Synthesizer) Validate(star types.ScoredStar, cluster types.Cluster) types.StarValidation {
	return validate(star, cluster, s.minConfidence)
}

// partsFor decides which sections an activity backs. An explicit raw-data
// hint wins; closing language marks a result; otherwise the source tool
// decides: issue trackers frame situation and task, code and design land in
// action, chat and meetings default to task.
func partsFor(activity types.ToolActivity, hints rawHints) ([]types.StarPart, bool) {
	if hints.Part != "" {
		return []types.StarPart{hints.Part}, true
	}
	text := strings.ToLower(activity.Title + " " + activity.Description)
	for _, phrase := range closingPhrases {
		if strings.Contains(text, phrase) {
			return []types.StarPart{types.StarResult}, false
		}
	}
	switch activity.Source {
	case types.SourceJira:
		return []types.StarPart{types.StarSituation, types.StarTask}, false
	case types.SourceConfluence:
		return []types.StarPart{types.StarSituation}, false
	case types.SourceGitHub, types.SourceFigma:
		return []types.StarPart{types.StarAction}, false
	default:
		return []types.StarPart{types.StarTask}, false
	}
}

func composeSection(part types.StarPart, members []types.ToolActivity, hinted bool, style types.SynthesisStyle) types.StarSection {
	section := types.StarSection{Part: part}
	if len(members) == 0 {
		return section
	}

	sources := make([]uuid.UUID, 0, len(members))
	titles := make([]string, 0, len(members))
	tools := make(map[types.ActivitySource]struct{}, len(members))
	for _, member := range members {
		sources = append(sources, member.ID)
		titles = append(titles, titleOf(member))
		tools[member.Source] = struct{}{}
	}

	section.Sources = sources
	section.Text = composeText(part, titles, style)
	section.Confidence = sectionConfidence(len(members), len(tools), hinted)
	return section
}

func composeText(part types.StarPart, titles []string, style types.SynthesisStyle) string {
	lead := sectionLeads[part]
	shown := 1
	if style == types.StyleDetailed {
		shown = 3
	}
	if shown > len(titles) {
		shown = len(titles)
	}
	quoted := make([]string, 0, shown)
	for _, title := range titles[:shown] {
		quoted = append(quoted, `"`+title+`"`)
	}
	text := lead + " " + joinList(quoted)
	if rest := len(titles) - shown; rest > 0 {
		noun := "activities"
		if rest == 1 {
			noun = "activity"
		}
		text += fmt.Sprintf(" and %d more %s", rest, noun)
	}
	return text + "."
}

// sectionConfidence grows with evidence volume and tool diversity; an
// explicit hint is the strongest signal.
func sectionConfidence(count, tools int, hinted bool) float64 {
	if count == 0 {
		return 0
	}
	confidence := 0.3 + 0.1*float64(min(count, 3))
	if tools > 1 {
		confidence += 0.1 * float64(min(tools-1, 2))
	}
	if hinted {
		confidence += 0.2
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

// overallConfidence is the weighted mean of the section scores with the
// result counted twice: outcomes carry the narrative.
func overallConfidence(star types.ScoredStar) float64 {
	sum := star.Situation.Confidence +
		star.Task.Confidence +
		star.Action.Confidence +
		2*star.Result.Confidence
	return sum / 5
}

func buildMeta(members []types.ToolActivity) types.StarMeta {
	meta := types.StarMeta{ActivityCount: len(members)}
	tools := make(map[types.ActivitySource]struct{})
	for _, member := range members {
		tools[member.Source] = struct{}{}
		if meta.DateRange.Start.IsZero() || member.Timestamp.Before(meta.DateRange.Start) {
			meta.DateRange.Start = member.Timestamp
		}
		if member.Timestamp.After(meta.DateRange.End) {
			meta.DateRange.End = member.Timestamp
		}
	}
	meta.Tools = make([]types.ActivitySource, 0, len(tools))
	for tool := range tools {
		meta.Tools = append(meta.Tools, tool)
	}
	sort.Slice(meta.Tools, func(i, j int) bool { return meta.Tools[i] < meta.Tools[j] })
	return meta
}

func suggestedEdits(star types.ScoredStar) []string {
	var edits []string
	for _, section := range star.Sections() {
		if section.Confidence >= editThreshold {
			continue
		}
		if section.Text == "" {
			edits = append(edits, fmt.Sprintf("The %s section has no supporting activity yet; describe it yourself or import more evidence", section.Part))
			continue
		}
		edits = append(edits, fmt.Sprintf("Strengthen the %s section with more connected activity", section.Part))
	}
	return edits
}

func validate(star types.ScoredStar, cluster types.Cluster, threshold float64) types.StarValidation {
	attributed := 0
	subset := true
	nonempty := true
	for _, section := range star.Sections() {
		if section.Text == "" || len(section.Sources) == 0 {
			nonempty = false
		}
		for _, id := range section.Sources {
			attributed++
			if !cluster.Contains(id) {
				subset = false
			}
		}
	}

	gates := []struct {
		name   string
		passed bool
	}{
		{GatePartsNonempty, nonempty},
		{GateMinConfidence, star.OverallConfidence >= threshold},
		{GateDateRangeSane, !star.Meta.DateRange.Start.IsZero() && !star.Meta.DateRange.End.Before(star.Meta.DateRange.Start)},
		{GateSourcesAttributed, subset && attributed > 0},
	}

	result := types.StarValidation{Passed: true}
	passed := 0
	for _, gate := range gates {
		if gate.passed {
			passed++
			continue
		}
		result.Passed = false
		result.FailedGates = append(result.FailedGates, gate.name)
	}
	result.Score = float64(passed) / float64(len(gates))

	for _, section := range star.Sections() {
		if section.Text != "" && len(section.Sources) == 1 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s section rests on a single activity", section.Part))
		}
	}
	return result
}

func titleOf(activity types.ToolActivity) string {
	if title := strings.TrimSpace(activity.Title); title != "" {
		return title
	}
	return string(activity.Source) + " activity"
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}
