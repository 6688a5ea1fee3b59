// Package conflict detects and resolves differences between two CV snapshots.
package conflict

import (
	"fmt"

	"github.com/matsen/cvmerge/internal/cv"
)

// Kind identifies what a conflict is about.
type Kind string

const (
	KindText  Kind = "text"
	KindRole  Kind = "role"
	KindSkill Kind = "skill"
)

// ChangeType classifies a difference between current and incoming.
type ChangeType string

const (
	Modified ChangeType = "modified" // Present on both sides, contents differ
	Added    ChangeType = "added"    // Only in incoming
	Removed  ChangeType = "removed"  // Only in current
)

// TextField names a scalar bilingual field compared during detection.
type TextField string

const (
	FieldTitle   TextField = "title"
	FieldSummary TextField = "summary"
)

// Conflict is implemented by TextConflict, RoleConflict and SkillConflict only.
// Switch on the concrete type to handle each kind.
type Conflict interface {
	ConflictID() string
	ConflictKind() Kind
	Change() ChangeType
	sealed()
}

// TextConflict is a difference in a scalar bilingual field. Always Modified.
type TextConflict struct {
	ID       string       `json:"id"`
	Field    TextField    `json:"field"`
	Type     ChangeType   `json:"type"`
	Current  cv.Bilingual `json:"current"`
	Incoming cv.Bilingual `json:"incoming"`
}

// RoleConflict is a difference in the work-history collection.
type RoleConflict struct {
	ID         string     `json:"id"`
	Type       ChangeType `json:"type"`
	Current    *cv.Role   `json:"current"`
	Incoming   *cv.Role   `json:"incoming"`
	MatchScore float64    `json:"matchScore"`       // Zero unless Modified
	Fields     []string   `json:"fields,omitempty"` // Differing fields, Modified only
}

// SkillConflict is a difference in the skills collection.
type SkillConflict struct {
	ID       string     `json:"id"`
	Type     ChangeType `json:"type"`
	Current  *cv.Skill  `json:"current"`
	Incoming *cv.Skill  `json:"incoming"`
	Fields   []string   `json:"fields,omitempty"`
}

func (c TextConflict) ConflictID() string  { return c.ID }
func (c TextConflict) ConflictKind() Kind  { return KindText }
func (c TextConflict) Change() ChangeType  { return c.Type }
func (TextConflict) sealed()               {}
func (c RoleConflict) ConflictID() string  { return c.ID }
func (c RoleConflict) ConflictKind() Kind  { return KindRole }
func (c RoleConflict) Change() ChangeType  { return c.Type }
func (RoleConflict) sealed()               {}
func (c SkillConflict) ConflictID() string { return c.ID }
func (c SkillConflict) ConflictKind() Kind { return KindSkill }
func (c SkillConflict) Change() ChangeType { return c.Type }
func (SkillConflict) sealed()              {}

// Stats counts conflicts per entity kind and change type.
type Stats struct {
	RolesModified  int `json:"rolesModified"`
	RolesAdded     int `json:"rolesAdded"`
	RolesRemoved   int `json:"rolesRemoved"`
	SkillsModified int `json:"skillsModified"`
	SkillsAdded    int `json:"skillsAdded"`
	SkillsRemoved  int `json:"skillsRemoved"`
}

// Analysis is the immutable result of comparing two snapshots.
type Analysis struct {
	HasConflicts   bool            `json:"hasConflicts"`
	TotalConflicts int             `json:"totalConflicts"`
	Title          *TextConflict   `json:"title,omitempty"`
	Summary        *TextConflict   `json:"summary,omitempty"`
	Roles          []RoleConflict  `json:"roles"`
	Skills         []SkillConflict `json:"skills"`
	Stats          Stats           `json:"stats"`

	// Incoming role ids matched by a current role with no differences. In
	// shared-candidate mode such a role may also be matched by a changed one.
	unchangedRoles map[string]bool
}

// Conflicts returns every conflict in presentation order: title, summary, roles, skills.
func (a *Analysis) Conflicts() []Conflict {
	var all []Conflict
	if a.Title != nil {
		all = append(all, *a.Title)
	}
	if a.Summary != nil {
		all = append(all, *a.Summary)
	}
	for _, c := range a.Roles {
		all = append(all, c)
	}
	for _, c := range a.Skills {
		all = append(all, c)
	}
	return all
}

// Lookup finds a conflict by id.
func (a *Analysis) Lookup(id string) (Conflict, bool) {
	for _, c := range a.Conflicts() {
		if c.ConflictID() == id {
			return c, true
		}
	}
	return nil, false
}

func textConflictID(f TextField) string {
	return string(f)
}

func roleConflictID(t ChangeType, entityID string) string {
	return fmt.Sprintf("role:%s:%s", t, entityID)
}

func skillConflictID(t ChangeType, entityID string) string {
	return fmt.Sprintf("skill:%s:%s", t, entityID)
}

// checkSides enforces which sides a conflict of type t may carry.
// Violations are programming errors in the detector.
func checkSides(t ChangeType, hasCurrent, hasIncoming bool) {
	ok := false
	switch t {
	case Modified:
		ok = hasCurrent && hasIncoming
	case Added:
		ok = !hasCurrent && hasIncoming
	case Removed:
		ok = hasCurrent && !hasIncoming
	}
	if !ok {
		panic(fmt.Sprintf("conflict: invalid %s conflict (current=%v, incoming=%v)", t, hasCurrent, hasIncoming))
	}
}

func newRoleConflict(t ChangeType, cur, inc *cv.Role, score float64, fields []string) RoleConflict {
	checkSides(t, cur != nil, inc != nil)
	c := RoleConflict{Type: t, MatchScore: score, Fields: fields}
	if cur != nil {
		r := cur.Clone()
		c.Current = &r
		c.ID = roleConflictID(t, cur.ID)
	}
	if inc != nil {
		r := inc.Clone()
		c.Incoming = &r
		if cur == nil {
			c.ID = roleConflictID(t, inc.ID)
		}
	}
	return c
}

func newSkillConflict(t ChangeType, cur, inc *cv.Skill, fields []string) SkillConflict {
	checkSides(t, cur != nil, inc != nil)
	c := SkillConflict{Type: t, Fields: fields}
	if cur != nil {
		s := cur.Clone()
		c.Current = &s
		c.ID = skillConflictID(t, cur.ID)
	}
	if inc != nil {
		s := inc.Clone()
		c.Incoming = &s
		if cur == nil {
			c.ID = skillConflictID(t, inc.ID)
		}
	}
	return c
}
