package cv

import (
	"testing"
	"time"
)

func TestSkill_EffectiveYears(t *testing.T) {
	tests := []struct {
		name   string
		skill  Skill
		want   float64
		wantOK bool
	}{
		{"none", Skill{}, 0, false},
		{"explicit only", Skill{Years: Float(3)}, 3, true},
		{"calculated beats explicit", Skill{Years: Float(3), CalculatedYears: Float(4.5)}, 4.5, true},
		{"override beats calculated", Skill{Years: Float(3), CalculatedYears: Float(4.5), OverriddenYears: Float(7)}, 7, true},
		{"override beats explicit", Skill{Years: Float(3), OverriddenYears: Float(1)}, 1, true},
		{"zero override still wins", Skill{Years: Float(3), OverriddenYears: Float(0)}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.skill.EffectiveYears()
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("EffectiveYears() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDocument_CloneIsDeep(t *testing.T) {
	doc := Document{
		Title: Text("Utvecklare", "Developer"),
		Roles: []Role{{
			ID:          "r1",
			Start:       NewDate(2020, time.January),
			Description: SVOnly("Byggde saker"),
			Tech:        []TechTag{{Name: "Go"}},
		}},
		Skills: []Skill{{ID: "s1", Name: "Go", Years: Float(3)}},
	}

	c := doc.Clone()
	*c.Title.SV = "Chef"
	c.Roles[0].Tech[0].Name = "Rust"
	c.Roles[0].Start.Time = time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)
	*c.Roles[0].Description.SV = "Annat"
	*c.Skills[0].Years = 10

	if *doc.Title.SV != "Utvecklare" {
		t.Errorf("Title.SV mutated through clone: %q", *doc.Title.SV)
	}
	if doc.Roles[0].Tech[0].Name != "Go" {
		t.Errorf("Tech mutated through clone: %q", doc.Roles[0].Tech[0].Name)
	}
	if doc.Roles[0].Start.Year() != 2020 {
		t.Errorf("Start mutated through clone: %v", doc.Roles[0].Start)
	}
	if *doc.Roles[0].Description.SV != "Byggde saker" {
		t.Errorf("Description mutated through clone: %q", *doc.Roles[0].Description.SV)
	}
	if *doc.Skills[0].Years != 3 {
		t.Errorf("Years mutated through clone: %v", *doc.Skills[0].Years)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"2020-01", "2020-01", false},
		{"2020-01-15", "2020-01-15", false},
		{"2020", "2020-01", false},
		{"January 2020", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got.String() != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestDatesEqual(t *testing.T) {
	a := NewDate(2020, time.March)
	b := NewDate(2020, time.March)
	c := NewDate(2021, time.March)

	if !DatesEqual(nil, nil) {
		t.Error("DatesEqual(nil, nil) = false")
	}
	if DatesEqual(a, nil) || DatesEqual(nil, a) {
		t.Error("DatesEqual(date, nil) = true")
	}
	if !DatesEqual(a, b) {
		t.Error("DatesEqual(same month) = false")
	}
	if DatesEqual(a, c) {
		t.Error("DatesEqual(different year) = true")
	}
}

func TestCalculateSkillYears(t *testing.T) {
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	doc := Document{
		Roles: []Role{
			{ID: "a", Start: NewDate(2018, time.January), End: NewDate(2020, time.January), Tech: []TechTag{{Name: "Go"}}},
			// Overlaps the first role by a year; counted once
			{ID: "b", Start: NewDate(2019, time.January), End: NewDate(2021, time.January), Tech: []TechTag{{Name: "go"}, {Name: "React"}}},
			{ID: "c", Start: NewDate(2022, time.January), IsCurrent: true, Tech: []TechTag{{Name: "React"}}},
			{ID: "d", Tech: []TechTag{{Name: "Python"}}}, // undated
		},
		Skills: []Skill{
			{ID: "s1", Name: "Go", Years: Float(1), OverriddenYears: Float(9)},
			{ID: "s2", Name: "react"},
			{ID: "s3", Name: "Python", CalculatedYears: Float(5)},
		},
	}

	got := CalculateSkillYears(doc, now)

	if y := got.Skills[0].CalculatedYears; y == nil || *y != 3 {
		t.Errorf("Go calculated = %v, want 3", y)
	}
	if *got.Skills[0].OverriddenYears != 9 || *got.Skills[0].Years != 1 {
		t.Error("explicit/overridden years must be untouched")
	}
	if y, _ := got.Skills[0].EffectiveYears(); y != 9 {
		t.Errorf("Go effective = %v, want override 9", y)
	}
	if y := got.Skills[1].CalculatedYears; y == nil || *y != 4 {
		t.Errorf("React calculated = %v, want 4", y)
	}
	if got.Skills[2].CalculatedYears != nil {
		t.Errorf("Python calculated = %v, want nil (no dated roles)", *got.Skills[2].CalculatedYears)
	}
	if *doc.Skills[2].CalculatedYears != 5 {
		t.Error("input document was mutated")
	}
}
