package cv

import (
	"math"
	"sort"
	"strings"
	"time"
)

const daysPerYear = 365.25

type interval struct {
	start, end time.Time
}

// CalculateSkillYears returns a copy of doc in which every skill's CalculatedYears
// is derived from the roles tagged with that skill's name. Overlapping roles are
// counted once; an ongoing role runs until now. Skills with no dated role
// evidence get a nil CalculatedYears. Explicit and overridden years are untouched.
func CalculateSkillYears(doc Document, now time.Time) Document {
	out := doc.Clone()

	byTech := make(map[string][]interval)
	for _, r := range doc.Roles {
		if r.Start == nil {
			continue
		}
		end := now
		if r.End != nil && !r.IsCurrent {
			end = r.End.Time
		}
		if end.Before(r.Start.Time) {
			continue
		}
		seen := make(map[string]bool)
		for _, t := range r.Tech {
			key := strings.ToLower(strings.TrimSpace(t.Name))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			byTech[key] = append(byTech[key], interval{start: r.Start.Time, end: end})
		}
	}

	for i, s := range out.Skills {
		spans := byTech[strings.ToLower(strings.TrimSpace(s.Name))]
		if len(spans) == 0 {
			out.Skills[i].CalculatedYears = nil
			continue
		}
		years := math.Round(unionDuration(spans).Hours()/24/daysPerYear*10) / 10
		out.Skills[i].CalculatedYears = Float(years)
	}
	return out
}

// unionDuration returns the total time covered by the intervals.
func unionDuration(spans []interval) time.Duration {
	sorted := make([]interval, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start.Before(sorted[j].start) })

	var total time.Duration
	cur := sorted[0]
	for _, next := range sorted[1:] {
		if !next.start.After(cur.end) {
			if next.end.After(cur.end) {
				cur.end = next.end
			}
			continue
		}
		total += cur.end.Sub(cur.start)
		cur = next
	}
	return total + cur.end.Sub(cur.start)
}
