package conflict

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/matsen/cvmerge/internal/cv"
)

// ErrNilAnalysis is returned when merging without an analysis.
var ErrNilAnalysis = errors.New("merge requires a conflict analysis")

// nowFunc stamps merged snapshots. Tests replace it.
var nowFunc = time.Now

// MergeWithResolutions builds a new snapshot from current, applying the decisions
// in res to the conflicts in a. Inputs are never modified.
//
// A conflict resolves by its type: Modified takes incoming only on Accept,
// Added includes the incoming entity only on Accept, and Removed drops the
// current entity only on Accept. Fields outside conflict detection are filled
// from incoming only where current is empty.
func MergeWithResolutions(current, incoming cv.Document, a *Analysis, res Resolutions) (cv.Document, error) {
	if a == nil {
		return cv.Document{}, ErrNilAnalysis
	}
	if err := cv.Validate(current); err != nil {
		return cv.Document{}, fmt.Errorf("current snapshot: %w", err)
	}
	if err := cv.Validate(incoming); err != nil {
		return cv.Document{}, fmt.Errorf("incoming snapshot: %w", err)
	}

	merged := current.Clone()
	fillIfEmpty(&merged, incoming)

	if a.Title != nil && res.Accepts(a.Title.ID) {
		merged.Title = a.Title.Incoming.Clone()
	}
	if a.Summary != nil && res.Accepts(a.Summary.ID) {
		merged.Summary = a.Summary.Incoming.Clone()
	}

	merged.Roles = mergeRoles(current.Roles, a, res)
	merged.Skills = mergeSkills(current.Skills, a.Skills, res)
	merged.LastModified = nowFunc().UTC()

	if err := cv.Validate(merged); err != nil {
		return cv.Document{}, fmt.Errorf("merged snapshot: %w", err)
	}
	return merged, nil
}

// fillIfEmpty copies fields outside conflict detection from incoming, but only
// where the merged value is still empty.
func fillIfEmpty(merged *cv.Document, incoming cv.Document) {
	fill := func(target *string, val string) {
		if strings.TrimSpace(*target) == "" {
			*target = val
		}
	}
	fill(&merged.ID, incoming.ID)
	fill(&merged.Name, incoming.Name)
	fill(&merged.Photo, incoming.Photo)
	fill(&merged.Contact.Email, incoming.Contact.Email)
	fill(&merged.Contact.Phone, incoming.Contact.Phone)
	fill(&merged.Contact.Location, incoming.Contact.Location)
	fill(&merged.Contact.Website, incoming.Contact.Website)
	fill(&merged.Contact.LinkedIn, incoming.Contact.LinkedIn)
}

// mergeRoles applies the role decisions. An accepted incoming role keeps its
// id unless a surviving current role already holds it.
func mergeRoles(current []cv.Role, a *Analysis, res Resolutions) []cv.Role {
	inConflict := make(map[string]bool)
	for _, c := range a.Roles {
		if c.Current != nil {
			inConflict[c.Current.ID] = true
		}
	}

	reserved := make(map[string]bool) // ids of surviving current roles
	for _, r := range current {
		if !inConflict[r.ID] {
			reserved[r.ID] = true
		}
	}
	for _, c := range a.Roles {
		if c.Current != nil && !res.Accepts(c.ID) {
			reserved[c.Current.ID] = true
		}
	}
	kept := make(map[string]bool, len(reserved))
	for id := range reserved {
		kept[id] = true
	}
	for _, c := range a.Roles {
		if c.Incoming != nil && !kept[c.Incoming.ID] {
			reserved[c.Incoming.ID] = true
		}
	}

	out := []cv.Role{}
	seen := make(map[string]bool) // incoming roles already taken
	accept := func(r cv.Role) {
		// An incoming role matched by several current roles is only taken once
		if seen[r.ID] {
			return
		}
		seen[r.ID] = true
		r = r.Clone()
		if kept[r.ID] {
			r.ID = uniqueID(r.ID, reserved)
		}
		out = append(out, r)
	}

	for _, r := range current {
		if !inConflict[r.ID] {
			out = append(out, r.Clone())
		}
	}
	for _, c := range a.Roles {
		accepted := res.Accepts(c.ID)
		switch c.Type {
		case Modified:
			switch {
			case !accepted:
				out = append(out, c.Current.Clone())
			case a.unchangedRoles[c.Incoming.ID]:
				// Already present through the current role that matched it unchanged
			default:
				accept(*c.Incoming)
			}
		case Added:
			if accepted {
				accept(*c.Incoming)
			}
		case Removed:
			if !accepted {
				out = append(out, c.Current.Clone())
			}
		}
	}

	sortRoles(out)
	return out
}

// sortRoles orders roles by start date, newest first. Roles without a start sort last.
func sortRoles(roles []cv.Role) {
	sort.SliceStable(roles, func(i, j int) bool {
		a, b := roles[i].Start, roles[j].Start
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return a.After(b.Time)
	})
}

// mergeSkills applies the skill decisions. Skills are identified by name, so an
// accepted change keeps the current id and an accepted addition is renamed when
// its id is held by a surviving current skill.
func mergeSkills(current []cv.Skill, conflicts []SkillConflict, res Resolutions) []cv.Skill {
	inConflict := make(map[string]bool)
	for _, c := range conflicts {
		if c.Current != nil {
			inConflict[c.Current.ID] = true
		}
	}

	reserved := make(map[string]bool) // ids of surviving current skills
	for _, s := range current {
		reserved[s.ID] = true
	}
	for _, c := range conflicts {
		if c.Type == Removed && res.Accepts(c.ID) {
			delete(reserved, c.Current.ID)
		}
	}
	kept := make(map[string]bool, len(reserved))
	for id := range reserved {
		kept[id] = true
	}
	for _, c := range conflicts {
		if c.Type == Added && !kept[c.Incoming.ID] {
			reserved[c.Incoming.ID] = true
		}
	}

	out := []cv.Skill{}
	for _, s := range current {
		if !inConflict[s.ID] {
			out = append(out, s.Clone())
		}
	}
	for _, c := range conflicts {
		accepted := res.Accepts(c.ID)
		switch c.Type {
		case Modified:
			if accepted {
				out = append(out, acceptSkill(*c.Current, *c.Incoming))
			} else {
				out = append(out, c.Current.Clone())
			}
		case Added:
			if accepted {
				s := c.Incoming.Clone()
				if kept[s.ID] {
					s.ID = uniqueID(s.ID, reserved)
				}
				out = append(out, s)
			}
		case Removed:
			if !accepted {
				out = append(out, c.Current.Clone())
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// acceptSkill takes the incoming skill but keeps the current id and the locally
// owned year layers, so a re-import never discards a user's correction.
func acceptSkill(cur, inc cv.Skill) cv.Skill {
	merged := inc.Clone()
	merged.ID = cur.ID
	merged.OverriddenYears = cur.Clone().OverriddenYears
	merged.CalculatedYears = cur.Clone().CalculatedYears
	return merged
}

// uniqueID returns the first "<id>-<n>" not in reserved and reserves it.
func uniqueID(id string, reserved map[string]bool) string {
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", id, n)
		if !reserved[candidate] {
			reserved[candidate] = true
			return candidate
		}
	}
}
