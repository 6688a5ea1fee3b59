// Package cv defines the core domain types for a bilingual curriculum-vitae snapshot.
package cv

import "time"

// Document is one complete, timestamped snapshot of a CV.
type Document struct {
	// Identity
	ID string `json:"id,omitempty"`

	// Scalar fields compared during conflict detection
	Title   Bilingual `json:"title"`
	Summary Bilingual `json:"summary"`

	// Fields outside conflict detection (merged fill-if-empty)
	Name    string  `json:"name,omitempty"`
	Contact Contact `json:"contact"`
	Photo   string  `json:"photo,omitempty"` // Reference to a stored image, never the bytes

	// Unordered collections
	Roles  []Role  `json:"roles"`
	Skills []Skill `json:"skills"`

	LastModified time.Time `json:"lastModified"`
}

// Contact holds contact details.
type Contact struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	Website  string `json:"website,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
}

// Role is a single work-history item.
type Role struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location,omitempty"`
	Start       *Date     `json:"start"`
	End         *Date     `json:"end"`
	IsCurrent   bool      `json:"isCurrent"`
	Description Bilingual `json:"description"`
	Tech        []TechTag `json:"technologies"`
	Visible     bool      `json:"visible"`
}

// TechTag is a technology referenced by a role. Name is the matching key.
type TechTag struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Skill is a single skill item. Name is the matching key (case-insensitive).
type Skill struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Level    int    `json:"level"` // Ordinal, 1 (beginner) to 5 (expert), 0 if unknown

	// Years of experience, layered. See EffectiveYears for precedence.
	Years           *float64 `json:"years"`           // Explicit, as imported
	CalculatedYears *float64 `json:"calculatedYears"` // Derived from role history
	OverriddenYears *float64 `json:"overriddenYears"` // Entered by the user
}

// EffectiveYears returns the years of experience to display for a skill.
// A user override wins over a calculated value, which wins over the imported one.
func (s Skill) EffectiveYears() (float64, bool) {
	switch {
	case s.OverriddenYears != nil:
		return *s.OverriddenYears, true
	case s.CalculatedYears != nil:
		return *s.CalculatedYears, true
	case s.Years != nil:
		return *s.Years, true
	}
	return 0, false
}

// TechNames returns the technology tag names of a role, in order.
func (r Role) TechNames() []string {
	names := make([]string, len(r.Tech))
	for i, t := range r.Tech {
		names[i] = t.Name
	}
	return names
}

// Float returns a pointer to v. Convenience for building skills.
func Float(v float64) *float64 {
	return &v
}
