package timeline

import (
	"fmt"
	"time"

	"github.com/inchronicle/go-stories/pkg/types"
)

// TimeAgo renders the distance between t and now the way activity rows show
// it: "just now", then m/h/d/w/mo/y buckets. Future or zero timestamps read
// as "just now" and "" respectively.
func TimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	elapsed := now.Sub(t)
	if elapsed < 0 {
		elapsed = 0
	}
	const (
		day   = 24 * time.Hour
		week  = 7 * day
		month = 30 * day
		year  = 365 * day
	)
	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm ago", int(elapsed/time.Minute))
	case elapsed < day:
		return fmt.Sprintf("%dh ago", int(elapsed/time.Hour))
	case elapsed < week:
		return fmt.Sprintf("%dd ago", int(elapsed/day))
	case elapsed < month:
		return fmt.Sprintf("%dw ago", int(elapsed/week))
	case elapsed < year:
		return fmt.Sprintf("%dmo ago", int(elapsed/month))
	default:
		return fmt.Sprintf("%dy ago", int(elapsed/year))
	}
}

// FormatDateRange renders a start/end pair compactly, collapsing shared
// fields: "Mar 8, 2024", "Mar 4-15, 2024", "Mar 4 - Apr 6, 2024", or the
// full form across years. A one-sided range renders the known end.
func FormatDateRange(start, end time.Time) string {
	switch {
	case start.IsZero() && end.IsZero():
		return ""
	case start.IsZero():
		return end.Format("Jan 2, 2006")
	case end.IsZero():
		return start.Format("Jan 2, 2006")
	}
	if end.Before(start) {
		start, end = end, start
	}
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	switch {
	case sy == ey && sm == em && sd == ed:
		return start.Format("Jan 2, 2006")
	case sy == ey && sm == em:
		return fmt.Sprintf("%s-%d, %d", start.Format("Jan 2"), ed, ey)
	case sy == ey:
		return fmt.Sprintf("%s - %s, %d", start.Format("Jan 2"), end.Format("Jan 2"), ey)
	default:
		return fmt.Sprintf("%s - %s", start.Format("Jan 2, 2006"), end.Format("Jan 2, 2006"))
	}
}

// SourceLabel is the human name views print next to a source badge.
func SourceLabel(source types.ActivitySource) string {
	switch source {
	case types.SourceGitHub:
		return "GitHub"
	case types.SourceJira:
		return "Jira"
	case types.SourceSlack:
		return "Slack"
	case types.SourceConfluence:
		return "Confluence"
	case types.SourceFigma:
		return "Figma"
	case types.SourceGoogleMeet:
		return "Google Meet"
	}
	return string(source)
}

// SourceIcon names the icon a view should render for the source. The names
// are stable identifiers for hosts to map onto their icon set.
func SourceIcon(source types.ActivitySource) string {
	switch source {
	case types.SourceGitHub:
		return "git-pull-request"
	case types.SourceJira:
		return "ticket"
	case types.SourceSlack:
		return "message-circle"
	case types.SourceConfluence:
		return "file-text"
	case types.SourceFigma:
		return "pen-tool"
	case types.SourceGoogleMeet:
		return "video"
	}
	return "activity"
}
