package conflict

import (
	"fmt"
	"time"

	"github.com/matsen/cvmerge/internal/cv"
	"github.com/matsen/cvmerge/internal/similarity"
)

// Detector compares two snapshots. The zero value is ready to use and matches
// with DefaultMatchThreshold and exclusive candidates.
type Detector struct {
	Threshold        float64 // Zero selects DefaultMatchThreshold; a threshold of 0 cannot be requested
	SharedCandidates bool
	Now              func() time.Time // Clock for ongoing roles; time.Now if nil
}

// DetectConflicts compares current against incoming with default settings.
func DetectConflicts(current, incoming cv.Document) (*Analysis, error) {
	return Detector{}.Detect(current, incoming)
}

// Detect classifies every difference between current and incoming.
// Both snapshots must be structurally valid; neither is modified.
func (d Detector) Detect(current, incoming cv.Document) (*Analysis, error) {
	if err := cv.Validate(current); err != nil {
		return nil, fmt.Errorf("current snapshot: %w", err)
	}
	if err := cv.Validate(incoming); err != nil {
		return nil, fmt.Errorf("incoming snapshot: %w", err)
	}

	now := time.Now
	if d.Now != nil {
		now = d.Now
	}

	a := &Analysis{
		Title:   detectText(FieldTitle, current.Title, incoming.Title),
		Summary: detectText(FieldSummary, current.Summary, incoming.Summary),
		Roles:   []RoleConflict{},
		Skills:  []SkillConflict{},

		unchangedRoles: make(map[string]bool),
	}

	roles := MatchRoles(current.Roles, incoming.Roles, MatchOptions{
		Threshold:        d.Threshold,
		Now:              now(),
		SharedCandidates: d.SharedCandidates,
	})
	for _, m := range roles.Matches {
		fields := roleDiff(m.Current, m.Incoming)
		if len(fields) == 0 {
			a.unchangedRoles[m.Incoming.ID] = true
			continue
		}
		a.Roles = append(a.Roles, newRoleConflict(Modified, &m.Current, &m.Incoming, m.Score, fields))
		a.Stats.RolesModified++
	}
	for i := range roles.CurrentOnly {
		a.Roles = append(a.Roles, newRoleConflict(Removed, &roles.CurrentOnly[i], nil, 0, nil))
		a.Stats.RolesRemoved++
	}
	for i := range roles.IncomingOnly {
		a.Roles = append(a.Roles, newRoleConflict(Added, nil, &roles.IncomingOnly[i], 0, nil))
		a.Stats.RolesAdded++
	}

	skills := MatchSkills(current.Skills, incoming.Skills)
	for _, m := range skills.Matches {
		if fields := skillDiff(m.Current, m.Incoming); len(fields) > 0 {
			a.Skills = append(a.Skills, newSkillConflict(Modified, &m.Current, &m.Incoming, fields))
			a.Stats.SkillsModified++
		}
	}
	for i := range skills.CurrentOnly {
		a.Skills = append(a.Skills, newSkillConflict(Removed, &skills.CurrentOnly[i], nil, nil))
		a.Stats.SkillsRemoved++
	}
	for i := range skills.IncomingOnly {
		a.Skills = append(a.Skills, newSkillConflict(Added, nil, &skills.IncomingOnly[i], nil))
		a.Stats.SkillsAdded++
	}

	if a.Title != nil {
		a.TotalConflicts++
	}
	if a.Summary != nil {
		a.TotalConflicts++
	}
	a.TotalConflicts += len(a.Roles) + len(a.Skills)
	a.HasConflicts = a.TotalConflicts > 0

	return a, nil
}

// detectText returns a conflict when the values differ and at least one side
// has content. Two empty values never conflict.
func detectText(field TextField, cur, inc cv.Bilingual) *TextConflict {
	if !similarity.TextsDiffer(cur, inc) {
		return nil
	}
	if !similarity.HasContent(cur) && !similarity.HasContent(inc) {
		return nil
	}
	return &TextConflict{
		ID:       textConflictID(field),
		Field:    field,
		Type:     Modified,
		Current:  cur.Clone(),
		Incoming: inc.Clone(),
	}
}

// roleDiff returns the names of the fields that differ between two matched roles.
func roleDiff(a, b cv.Role) []string {
	var fields []string
	if a.Title != b.Title {
		fields = append(fields, "title")
	}
	if a.Company != b.Company {
		fields = append(fields, "company")
	}
	if a.Location != b.Location {
		fields = append(fields, "location")
	}
	if !cv.DatesEqual(a.Start, b.Start) {
		fields = append(fields, "start")
	}
	if !cv.DatesEqual(a.End, b.End) {
		fields = append(fields, "end")
	}
	if a.IsCurrent != b.IsCurrent {
		fields = append(fields, "isCurrent")
	}
	if a.Visible != b.Visible {
		fields = append(fields, "visible")
	}
	if similarity.TextsDiffer(a.Description, b.Description) {
		fields = append(fields, "description")
	}
	if !sameTechSet(a.Tech, b.Tech) {
		fields = append(fields, "technologies")
	}
	return fields
}

// sameTechSet compares technology tags by name as sets. A different number of
// tags counts as different even when the distinct names agree.
func sameTechSet(a, b []cv.TechTag) bool {
	if len(a) != len(b) {
		return false
	}
	return subsetByName(a, b) && subsetByName(b, a)
}

func subsetByName(a, b []cv.TechTag) bool {
	names := make(map[string]bool, len(b))
	for _, t := range b {
		names[t.Name] = true
	}
	for _, t := range a {
		if !names[t.Name] {
			return false
		}
	}
	return true
}

// skillDiff compares the fields that can make a matched skill conflict.
// Calculated and overridden years are local state and never conflict.
func skillDiff(a, b cv.Skill) []string {
	var fields []string
	if a.Level != b.Level {
		fields = append(fields, "level")
	}
	if !floatsEqual(a.Years, b.Years) {
		fields = append(fields, "years")
	}
	return fields
}

func floatsEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
