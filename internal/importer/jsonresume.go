// Package importer converts external CV exports into normalized snapshots.
package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/matsen/cvmerge/internal/cv"
)

// idNamespace scopes the name-based UUIDs generated for imported entities.
var idNamespace = uuid.MustParse("6f0e9a52-3c1b-4f7e-9d2a-8b5c4e1f7a30")

// FlexibleString can unmarshal from either string or number JSON values.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	// Handle null
	if string(data) == "null" {
		*f = ""
		return nil
	}

	// Try string first
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}

	// Try number
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleString(n.String())
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleString", string(data))
}

func (f FlexibleString) String() string {
	return strings.TrimSpace(string(f))
}

// JSONResume is the subset of a JSON Resume export (jsonresume.org) that maps
// onto a snapshot.
type JSONResume struct {
	Basics struct {
		Name     string `json:"name"`
		Label    string `json:"label"`
		Image    string `json:"image"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		URL      string `json:"url"`
		Summary  string `json:"summary"`
		Location struct {
			City        string `json:"city"`
			Region      string `json:"region"`
			CountryCode string `json:"countryCode"`
		} `json:"location"`
		Profiles []struct {
			Network string `json:"network"`
			URL     string `json:"url"`
		} `json:"profiles"`
	} `json:"basics"`
	Work   []WorkEntry  `json:"work"`
	Skills []SkillEntry `json:"skills"`
}

// WorkEntry is one item of the work section.
type WorkEntry struct {
	Name       string   `json:"name"`
	Position   string   `json:"position"`
	Location   string   `json:"location"`
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate"`
	Summary    string   `json:"summary"`
	Highlights []string `json:"highlights"`
	Keywords   []string `json:"keywords"` // Extension: technologies used in the role
}

// SkillEntry is one item of the skills section.
type SkillEntry struct {
	Name     string         `json:"name"`
	Level    FlexibleString `json:"level"`
	Keywords []string       `json:"keywords"`
	Years    FlexibleString `json:"years"` // Extension: explicit years of experience
}

// skillLevels maps JSON Resume level words onto the 1-5 ordinal scale.
var skillLevels = map[string]int{
	"beginner":     1,
	"novice":       1,
	"basic":        2,
	"elementary":   2,
	"intermediate": 3,
	"proficient":   3,
	"advanced":     4,
	"expert":       5,
	"master":       5,
}

// ErrInvalidExport is returned, alone, when the input is not a JSON Resume document at all.
var ErrInvalidExport = errors.New("not a JSON Resume document")

// ParseJSONResume converts a JSON Resume export into a snapshot. Free text is
// stored under locale. Work and skill entries that cannot be converted are
// skipped and reported; the returned document is always valid.
func ParseJSONResume(data []byte, locale cv.Locale) (cv.Document, []error) {
	var resume JSONResume
	if err := json.Unmarshal(data, &resume); err != nil {
		return cv.Document{}, []error{fmt.Errorf("%w: %v", ErrInvalidExport, err)}
	}

	var errs []error
	ids := newIDGen()
	b := resume.Basics

	doc := cv.Document{
		ID:     ids.next("document", b.Name, b.Email),
		Name:   strings.TrimSpace(b.Name),
		Photo:  b.Image,
		Roles:  []cv.Role{},
		Skills: []cv.Skill{},
		Contact: cv.Contact{
			Email:    b.Email,
			Phone:    b.Phone,
			Website:  b.URL,
			Location: joinNonEmpty(", ", b.Location.City, b.Location.Region, b.Location.CountryCode),
		},
	}
	if label := strings.TrimSpace(b.Label); label != "" {
		doc.Title = doc.Title.With(locale, label)
	}
	if summary := strings.TrimSpace(b.Summary); summary != "" {
		doc.Summary = doc.Summary.With(locale, summary)
	}
	for _, p := range b.Profiles {
		if strings.EqualFold(p.Network, "linkedin") {
			doc.Contact.LinkedIn = p.URL
		}
	}

	for i, w := range resume.Work {
		r, err := workToRole(w, locale, ids)
		if err != nil {
			errs = append(errs, fmt.Errorf("work %d (%s): %w", i+1, w.Name, err))
			continue
		}
		doc.Roles = append(doc.Roles, r)
	}

	seenSkills := make(map[string]bool)
	for i, s := range resume.Skills {
		sk, err := entryToSkill(s, ids)
		if err != nil {
			errs = append(errs, fmt.Errorf("skill %d (%s): %w", i+1, s.Name, err))
			continue
		}
		key := strings.ToLower(sk.Name)
		if seenSkills[key] {
			errs = append(errs, fmt.Errorf("skill %d (%s): duplicate skill name", i+1, s.Name))
			continue
		}
		seenSkills[key] = true
		doc.Skills = append(doc.Skills, sk)
	}

	return doc, errs
}

func workToRole(w WorkEntry, locale cv.Locale, ids *idGen) (cv.Role, error) {
	company := strings.TrimSpace(w.Name)
	position := strings.TrimSpace(w.Position)
	if company == "" && position == "" {
		return cv.Role{}, fmt.Errorf("missing required field 'name' or 'position'")
	}

	r := cv.Role{
		Title:    position,
		Company:  company,
		Location: strings.TrimSpace(w.Location),
		Visible:  true,
	}

	if w.StartDate != "" {
		start, err := cv.ParseDate(w.StartDate)
		if err != nil {
			return cv.Role{}, fmt.Errorf("startDate: %w", err)
		}
		r.Start = start
	}
	if w.EndDate != "" {
		end, err := cv.ParseDate(w.EndDate)
		if err != nil {
			return cv.Role{}, fmt.Errorf("endDate: %w", err)
		}
		r.End = end
	} else if r.Start != nil {
		r.IsCurrent = true
	}
	if r.Start != nil && r.End != nil && r.End.Before(r.Start.Time) {
		return cv.Role{}, fmt.Errorf("endDate %s before startDate %s", r.End, r.Start)
	}

	if desc := describe(w.Summary, w.Highlights); desc != "" {
		r.Description = r.Description.With(locale, desc)
	}

	seenTech := make(map[string]bool)
	for _, k := range w.Keywords {
		name := strings.TrimSpace(k)
		if name == "" || seenTech[strings.ToLower(name)] {
			continue
		}
		seenTech[strings.ToLower(name)] = true
		r.Tech = append(r.Tech, cv.TechTag{ID: stableID("tech", strings.ToLower(name)), Name: name})
	}

	r.ID = ids.next("role", company, position, w.StartDate)
	return r, nil
}

// describe joins a summary and its highlights into one description, one
// highlight per line.
func describe(summary string, highlights []string) string {
	var lines []string
	if s := strings.TrimSpace(summary); s != "" {
		lines = append(lines, s)
	}
	for _, h := range highlights {
		if h = strings.TrimSpace(h); h != "" {
			lines = append(lines, "- "+h)
		}
	}
	return strings.Join(lines, "\n")
}

func entryToSkill(s SkillEntry, ids *idGen) (cv.Skill, error) {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return cv.Skill{}, fmt.Errorf("missing required field 'name'")
	}

	sk := cv.Skill{
		ID:    ids.next("skill", strings.ToLower(name)),
		Name:  name,
		Level: parseLevel(s.Level.String()),
	}
	if len(s.Keywords) > 0 {
		sk.Category = strings.TrimSpace(s.Keywords[0])
	}
	if y := s.Years.String(); y != "" {
		years, err := strconv.ParseFloat(y, 64)
		if err != nil || years < 0 {
			return cv.Skill{}, fmt.Errorf("invalid years: %s", y)
		}
		sk.Years = cv.Float(years)
	}
	return sk, nil
}

// parseLevel accepts a level word or a number from 1 to 5. Anything else is 0 (unknown).
func parseLevel(s string) int {
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= 5 {
			return n
		}
		return 0
	}
	return skillLevels[strings.ToLower(s)]
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// idGen derives stable ids from an entity's key fields, so importing the same
// export twice yields the same ids. Repeated keys get an occurrence suffix.
type idGen struct {
	seen map[string]int
}

func newIDGen() *idGen {
	return &idGen{seen: make(map[string]int)}
}

func (g *idGen) next(kind string, fields ...string) string {
	key := kind + "\x00" + strings.Join(fields, "\x00")
	n := g.seen[key]
	g.seen[key] = n + 1
	if n > 0 {
		key += fmt.Sprintf("\x00%d", n)
	}
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

// stableID is for entities that may legitimately repeat, such as a technology
// used in several roles.
func stableID(kind string, fields ...string) string {
	key := kind + "\x00" + strings.Join(fields, "\x00")
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}
