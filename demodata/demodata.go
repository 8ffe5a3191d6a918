// Package demodata holds the deterministic dataset behind demo mode: twenty
// activities spanning every supported tool, pre-linked into three bodies of
// work plus two standalone items, and the draft stories derived from them.
// Fixture IDs and timestamps never change between runs, so tests and examples
// can assert against literal values.
package demodata

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/cluster"
	"github.com/inchronicle/go-stories/pkg/types"
)

const (
	activityCount = 20
	clusterCount  = 3
	storyCount    = 3
)

var (
	// DemoUserID is the canonical demo account the fixture tables are keyed
	// to. Seeding any other user derives fresh IDs from seedNamespace so two
	// seeded users never collide on primary keys.
	DemoUserID = uuid.MustParse("de000000-0000-4000-8000-000000000001")

	seedNamespace = uuid.MustParse("de000000-0000-4000-8000-00000000aaaa")

	// BaseTime anchors every fixture timestamp.
	BaseTime = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
)

var demoActivityIDs = [activityCount]uuid.UUID{
	uuid.MustParse("ac000000-0000-4000-8000-000000000001"),
	uuid.MustParse("ac000000-0000-4000-8000-000000000002"),
	uuid.MustParse("ac000000-0000-4000-8000-000000000003"),
	uuid.MustParse("ac000000-0000-4000-8000-000000000004"),
	uuid.MustParse("ac000000-0000-4000-8000-000000000005"),
	uuid.MustParse("ac000000-0000-4000-8000-000000000006"),
	uuid.MustParse("ac000000-0000-4000-8000-000000000007"),
	uuid.MustParse("ac000000-0000-4000-8000-000000000008"),
	uuid.MustParse("ac000000-0000-4000-8000-000000000009"),
	uuid.MustParse("ac000000-0000-4000-8000-000000000010"),
	uuid.MustParse("ac000000-0000-4000-8000-000000000011"),
	uuid.MustParse("ac000000-0000-4000-8000-000000000012"),
	uuid.MustParse("ac000000-0000-4000-8000-000000000013"),
	uuid.MustParse("ac000000-0000-4000-8000-000000000014"),
	uuid.MustParse("ac000000-0000-4000-8000-000000000015"),
	uuid.MustParse("ac000000-0000-4000-8000-000000000016"),
	uuid.MustParse("ac000000-0000-4000-8000-000000000017"),
	uuid.MustParse("ac000000-0000-4000-8000-000000000018"),
	uuid.MustParse("ac000000-0000-4000-8000-000000000019"),
	uuid.MustParse("ac000000-0000-4000-8000-000000000020"),
}

var demoClusterIDs = [clusterCount]uuid.UUID{
	uuid.MustParse("c1000000-0000-4000-8000-000000000001"),
	uuid.MustParse("c1000000-0000-4000-8000-000000000002"),
	uuid.MustParse("c1000000-0000-4000-8000-000000000003"),
}

var demoStoryIDs = [storyCount]uuid.UUID{
	uuid.MustParse("d0000000-0000-4000-8000-000000000001"),
	uuid.MustParse("d0000000-0000-4000-8000-000000000002"),
	uuid.MustParse("d0000000-0000-4000-8000-000000000003"),
}

type activitySeed struct {
	source   types.ActivitySource
	sourceID string
	url      string
	title    string
	summary  string
	day      int
	hour     int
	refs     []int
	raw      string
}

// The table reads top to bottom in rough chronological order: indexes 0-6 are
// the checkout latency effort, 7-12 the design token migration, 13-17 the
// paging incident, 18-19 the unclustered leftovers.
var activitySeeds = [activityCount]activitySeed{
	{
		source:   types.SourceJira,
		sourceID: "PERF-231",
		url:      "https://jira.example.com/browse/PERF-231",
		title:    "Reduce checkout p95 latency",
		summary:  "Checkout p95 regressed past 1.8s after the pricing rework; bring it back under 900ms.",
		day:      0, hour: 9,
		raw: `{"issue_type":"Epic","status":"Done","project":"PERF","role":"initiator","star_part":"situation"}`,
	},
	{
		source:   types.SourceGitHub,
		sourceID: "pr-412",
		url:      "https://github.example.com/shop/web/pull/412",
		title:    "Cache price quotes in Redis",
		summary:  "Adds a write-through quote cache so checkout stops recomputing prices per page load.",
		day:      2, hour: 14,
		refs:     []int{0},
		raw:      `{"type":"pull_request","number":412,"merged":true,"additions":482,"deletions":75,"role":"initiator","refs":["PERF-231"]}`,
	},
	{
		source:   types.SourceGitHub,
		sourceID: "9f31c2e",
		url:      "https://github.example.com/shop/web/commit/9f31c2e",
		title:    "Add cache warmer for quote store",
		summary:  "Warms the quote cache from the nightly price feed so cold starts stay fast.",
		day:      3, hour: 11,
		refs:     []int{1},
		raw:      `{"type":"commit","sha":"9f31c2e","files_changed":6,"role":"initiator","refs":["pr-412"]}`,
	},
	{
		source:   types.SourceSlack,
		sourceID: "1709640000.000120",
		url:      "https://slack.example.com/archives/C01PERF/p1709640000000120",
		title:    "Checkout latency war room",
		summary:  "Thread coordinating the rollout, cache hit rates, and the EU follow-up.",
		day:      4, hour: 10,
		refs:     []int{0},
		raw:      `{"type":"thread","channel":"#perf","reply_count":34,"role":"contributor","refs":["PERF-231"]}`,
	},
	{
		source:   types.SourceGoogleMeet,
		sourceID: "perf-review-0308",
		url:      "https://meet.example.com/rec/perf-review-0308",
		title:    "Perf review: quote cache rollout",
		summary:  "Walked the team through cache hit rates and agreed the EU rollout plan.",
		day:      4, hour: 16,
		refs:     []int{0, 1},
		raw:      `{"type":"meeting","duration_minutes":45,"attendees":8,"role":"contributor","refs":["PERF-231","pr-412"]}`,
	},
	{
		source:   types.SourceConfluence,
		sourceID: "88120",
		url:      "https://confluence.example.com/pages/88120",
		title:    "Checkout latency postmortem",
		summary:  "Before/after latency graphs and the cache design writeup; p95 landed at 740ms.",
		day:      9, hour: 15,
		refs:     []int{0, 1},
		raw:      `{"type":"page","space":"ENG","version":3,"role":"initiator","star_part":"result","refs":["PERF-231","pr-412"]}`,
	},
	{
		source:   types.SourceJira,
		sourceID: "PERF-248",
		url:      "https://jira.example.com/browse/PERF-248",
		title:    "Roll out quote cache to EU region",
		summary:  "EU rollout of the quote cache behind the regional flag; closed after a clean week.",
		day:      11, hour: 12,
		refs:     []int{0},
		raw:      `{"issue_type":"Story","status":"Done","project":"PERF","role":"initiator","star_part":"result","refs":["PERF-231"]}`,
	},
	{
		source:   types.SourceFigma,
		sourceID: "fig-cl2-audit",
		url:      "https://figma.example.com/file/fig-cl2-audit",
		title:    "Component library v2 audit",
		summary:  "Audit of every component still on hardcoded spacing ahead of the token migration.",
		day:      7, hour: 10,
		raw:      `{"type":"file","project":"Design System","frames":42,"role":"initiator","star_part":"situation"}`,
	},
	{
		source:   types.SourceJira,
		sourceID: "DS-88",
		url:      "https://jira.example.com/browse/DS-88",
		title:    "Migrate buttons to spacing tokens",
		summary:  "Swap the button family onto the shared spacing scale called out by the audit.",
		day:      8, hour: 9,
		refs:     []int{7},
		raw:      `{"issue_type":"Story","status":"Done","project":"DS","role":"contributor","refs":["fig-cl2-audit"]}`,
	},
	{
		source:   types.SourceGitHub,
		sourceID: "pr-437",
		url:      "https://github.example.com/shop/web/pull/437",
		title:    "Adopt spacing tokens in web app",
		summary:  "Replaces pixel spacing with token references across the button and form components.",
		day:      10, hour: 13,
		refs:     []int{8},
		raw:      `{"type":"pull_request","number":437,"merged":true,"additions":611,"deletions":540,"role":"initiator","refs":["DS-88"]}`,
	},
	{
		source:   types.SourceFigma,
		sourceID: "fig-token-map",
		url:      "https://figma.example.com/file/fig-token-map",
		title:    "Token mapping spec",
		summary:  "Mapping table from legacy spacing values to the new token scale.",
		day:      12, hour: 11,
		refs:     []int{8},
		raw:      `{"type":"file","project":"Design System","frames":9,"role":"contributor","refs":["DS-88"]}`,
	},
	{
		source:   types.SourceConfluence,
		sourceID: "88204",
		url:      "https://confluence.example.com/pages/88204",
		title:    "Design token rollout guide",
		summary:  "Adoption guide for other squads: mapping table, lint rule, and migration order.",
		day:      15, hour: 14,
		refs:     []int{8, 9},
		raw:      `{"type":"page","space":"DESIGN","version":5,"role":"initiator","star_part":"result","refs":["DS-88","pr-437"]}`,
	},
	{
		source:   types.SourceSlack,
		sourceID: "1710850000.000442",
		url:      "https://slack.example.com/archives/C02DSGN/p1710850000000442",
		title:    "Tokens launch thread",
		summary:  "Launch announcement and migration questions from the platform squads.",
		day:      16, hour: 10,
		refs:     []int{8},
		raw:      `{"type":"thread","channel":"#design-systems","reply_count":18,"role":"mentioned","refs":["DS-88"]}`,
	},
	{
		source:   types.SourceSlack,
		sourceID: "1711300000.000001",
		url:      "https://slack.example.com/archives/C03ONCALL/p1711300000000001",
		title:    "INC-1204 paging storm triage",
		summary:  "Live triage of the 3am paging storm; duplicate alerts paged the whole rotation.",
		day:      21, hour: 3,
		raw:      `{"type":"thread","channel":"#oncall","reply_count":57,"role":"initiator","star_part":"situation"}`,
	},
	{
		source:   types.SourceJira,
		sourceID: "OPS-519",
		url:      "https://jira.example.com/browse/OPS-519",
		title:    "Fix alert dedupe in pager pipeline",
		summary:  "Dedupe alerts by fingerprint before they reach the pager so storms page once.",
		day:      22, hour: 10,
		refs:     []int{13},
		raw:      `{"issue_type":"Bug","status":"Done","project":"OPS","role":"initiator","refs":["1711300000.000001"]}`,
	},
	{
		source:   types.SourceGitHub,
		sourceID: "pr-455",
		url:      "https://github.example.com/shop/alerting/pull/455",
		title:    "Dedupe alerts before paging",
		summary:  "Fingerprints alerts on rule and resource, collapsing storms into a single page.",
		day:      23, hour: 15,
		refs:     []int{14},
		raw:      `{"type":"pull_request","number":455,"merged":true,"additions":204,"deletions":31,"role":"initiator","star_part":"action","refs":["OPS-519"]}`,
	},
	{
		source:   types.SourceGoogleMeet,
		sourceID: "inc-1204-review",
		url:      "https://meet.example.com/rec/inc-1204-review",
		title:    "Incident review: INC-1204",
		summary:  "Blameless review of the paging storm and the dedupe fix rollout.",
		day:      25, hour: 14,
		refs:     []int{13, 14},
		raw:      `{"type":"meeting","duration_minutes":60,"attendees":11,"role":"contributor","refs":["1711300000.000001","OPS-519"]}`,
	},
	{
		source:   types.SourceConfluence,
		sourceID: "88317",
		url:      "https://confluence.example.com/pages/88317",
		title:    "Runbook: paging storm response",
		summary:  "Runbook covering dedupe behavior, manual silence steps, and escalation paths.",
		day:      27, hour: 11,
		refs:     []int{14},
		raw:      `{"type":"page","space":"OPS","version":2,"role":"contributor","star_part":"result","refs":["OPS-519"]}`,
	},
	{
		source:   types.SourceFigma,
		sourceID: "fig-brand-q3",
		url:      "https://figma.example.com/file/fig-brand-q3",
		title:    "Q3 brand refresh exploration",
		summary:  "Early moodboards for the Q3 brand refresh; nothing shipped yet.",
		day:      30, hour: 16,
		raw:      `{"type":"file","project":"Brand","frames":14,"role":"observer"}`,
	},
	{
		source:   types.SourceGitHub,
		sourceID: "pr-460",
		url:      "https://github.example.com/shop/web/pull/460",
		title:    "Bump Go toolchain to 1.22",
		summary:  "Routine toolchain bump with loopvar cleanups.",
		day:      33, hour: 9,
		raw:      `{"type":"pull_request","number":460,"merged":true,"additions":19,"deletions":19,"role":"initiator"}`,
	},
}

type clusterSeed struct {
	name    string
	summary string
	members []int
}

var clusterSeeds = [clusterCount]clusterSeed{
	{
		name:    "Checkout latency reduction",
		summary: "Quote caching effort that brought checkout p95 from 1.8s to 740ms.",
		members: []int{0, 1, 2, 3, 4, 5, 6},
	},
	{
		name:    "Design token migration",
		summary: "Moved the component library onto shared spacing tokens, audit through rollout guide.",
		members: []int{7, 8, 9, 10, 11, 12},
	},
	{
		name:    "Paging storm incident",
		summary: "INC-1204 response: alert dedupe fix, incident review, and the new runbook.",
		members: []int{13, 14, 15, 16, 17},
	},
}

type sectionSeed struct {
	key        string
	label      string
	text       string
	sources    []int
	confidence float64
}

type storySeed struct {
	title      string
	cluster    int
	confidence float64
	sections   []sectionSeed
}

var storySeeds = [storyCount]storySeed{
	{
		title:      "Cutting checkout latency in half",
		cluster:    0,
		confidence: 0.82,
		sections: []sectionSeed{
			{"situation", "Situation", "Checkout p95 latency had regressed past 1.8 seconds after the pricing rework, slowing every purchase.", []int{0, 3}, 0.85},
			{"task", "Task", "Bring checkout p95 back under 900ms without sacrificing price freshness.", []int{0}, 0.75},
			{"action", "Action", "Built a write-through Redis quote cache with a nightly warmer and coordinated the staged rollout across regions.", []int{1, 2, 4}, 0.88},
			{"result", "Result", "Checkout p95 landed at 740ms and the EU rollout closed after a clean week, documented in the postmortem.", []int{5, 6}, 0.8},
		},
	},
	{
		title:      "Migrating the component library to design tokens",
		cluster:    1,
		confidence: 0.74,
		sections: []sectionSeed{
			{"situation", "Situation", "The component library audit found dozens of components still on hardcoded spacing values.", []int{7}, 0.7},
			{"task", "Task", "Migrate the button family onto the shared spacing token scale as the template for other squads.", []int{8}, 0.72},
			{"action", "Action", "Replaced pixel spacing with token references across the web app and published the mapping spec.", []int{9, 10}, 0.78},
			{"result", "Result", "Shipped the rollout guide other squads now follow, with the launch thread fielding adoption questions.", []int{11, 12}, 0.75},
		},
	},
	{
		title:      "Ending the 3am paging storms",
		cluster:    2,
		confidence: 0.78,
		sections: []sectionSeed{
			{"situation", "Situation", "A 3am paging storm from duplicate alerts paged the entire on-call rotation at once.", []int{13}, 0.8},
			{"task", "Task", "Stop alert storms from multiplying pages while keeping real incidents loud.", []int{14}, 0.7},
			{"action", "Action", "Shipped fingerprint-based alert dedupe in the pager pipeline and ran the blameless incident review.", []int{15, 16}, 0.82},
			{"result", "Result", "Storms now page once, and the response runbook covers dedupe behavior and manual silencing.", []int{17}, 0.78},
		},
	},
}

// Dataset is one user's fully linked demo fixture.
type Dataset struct {
	UserID     uuid.UUID
	Activities []types.ToolActivity
	Clusters   []types.Cluster
	Stories    []types.CareerStory
}

// Activities returns the canonical demo activities, cross-tool refs resolved.
func Activities() []types.ToolActivity {
	return DatasetFor(DemoUserID).Activities
}

// Clusters returns the canonical demo clusters with metrics computed from
// their membership.
func Clusters() []types.Cluster {
	return DatasetFor(DemoUserID).Clusters
}

// Stories returns the canonical demo draft stories.
func Stories() []types.CareerStory {
	return DatasetFor(DemoUserID).Stories
}

// DatasetFor builds the fixture keyed to the given user. The demo user gets
// the literal ID tables; any other user gets IDs derived from the seed
// namespace so repeat seeding stays deterministic per user.
func DatasetFor(userID uuid.UUID) Dataset {
	if userID == uuid.Nil {
		userID = DemoUserID
	}
	ids := tableFor(userID)

	activities := make([]types.ToolActivity, activityCount)
	for i, seed := range activitySeeds {
		ts := BaseTime.AddDate(0, 0, seed.day).Add(time.Duration(seed.hour-9) * time.Hour)
		refs := make([]uuid.UUID, 0, len(seed.refs))
		for _, ref := range seed.refs {
			refs = append(refs, ids.activities[ref])
		}
		activities[i] = types.ToolActivity{
			ID:            ids.activities[i],
			UserID:        userID,
			Source:        seed.source,
			SourceID:      seed.sourceID,
			SourceURL:     seed.url,
			Title:         seed.title,
			Description:   seed.summary,
			Timestamp:     ts,
			CrossToolRefs: refs,
			RawData:       json.RawMessage(seed.raw),
			CreatedAt:     ts,
			UpdatedAt:     ts,
		}
	}

	clusters := make([]types.Cluster, clusterCount)
	for i, seed := range clusterSeeds {
		members := make([]types.ToolActivity, 0, len(seed.members))
		memberIDs := make([]uuid.UUID, 0, len(seed.members))
		for _, idx := range seed.members {
			activities[idx].ClusterID = ids.clusters[i]
			members = append(members, activities[idx])
			memberIDs = append(memberIDs, ids.activities[idx])
		}
		created := members[0].Timestamp
		clusters[i] = types.Cluster{
			ID:          ids.clusters[i],
			UserID:      userID,
			Name:        seed.name,
			Description: seed.summary,
			Metrics:     cluster.ComputeMetrics(members),
			CreatedAt:   created,
			UpdatedAt:   created,
		}
		clusters[i].SetActivities(memberIDs)
	}

	stories := make([]types.CareerStory, storyCount)
	for i, seed := range storySeeds {
		sections := make([]types.StorySection, 0, len(seed.sections))
		sources := make([]uuid.UUID, 0, activityCount)
		for _, section := range seed.sections {
			sectionSources := resolveIDs(ids.activities, section.sources)
			sections = append(sections, types.StorySection{
				Key:        section.key,
				Label:      section.label,
				Text:       section.text,
				Sources:    sectionSources,
				Confidence: section.confidence,
			})
			sources = append(sources, sectionSources...)
		}
		created := clusters[seed.cluster].Metrics.DateRange.End
		stories[i] = types.CareerStory{
			ID:                ids.stories[i],
			UserID:            userID,
			ClusterID:         ids.clusters[seed.cluster],
			Title:             seed.title,
			Framework:         types.FrameworkSTAR,
			Sections:          sections,
			SourceActivityIDs: sources,
			Confidence:        seed.confidence,
			Visibility:        types.VisibilityPrivate,
			State:             types.StoryStateDraft,
			CreatedAt:         created,
			UpdatedAt:         created,
		}
	}

	return Dataset{
		UserID:     userID,
		Activities: activities,
		Clusters:   clusters,
		Stories:    stories,
	}
}

type idTable struct {
	activities [activityCount]uuid.UUID
	clusters   [clusterCount]uuid.UUID
	stories    [storyCount]uuid.UUID
}

func tableFor(userID uuid.UUID) idTable {
	if userID == DemoUserID {
		return idTable{
			activities: demoActivityIDs,
			clusters:   demoClusterIDs,
			stories:    demoStoryIDs,
		}
	}
	var ids idTable
	for i := range ids.activities {
		ids.activities[i] = derivedID(userID, "activity", i)
	}
	for i := range ids.clusters {
		ids.clusters[i] = derivedID(userID, "cluster", i)
	}
	for i := range ids.stories {
		ids.stories[i] = derivedID(userID, "story", i)
	}
	return ids
}

func derivedID(userID uuid.UUID, kind string, index int) uuid.UUID {
	return uuid.NewSHA1(seedNamespace, []byte(fmt.Sprintf("%s/%s/%d", userID, kind, index)))
}

func resolveIDs(table [activityCount]uuid.UUID, indexes []int) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, table[idx])
	}
	return out
}
