package importer

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/matsen/cvmerge/internal/conflict"
	"github.com/matsen/cvmerge/internal/cv"
)

const sampleResume = `{
	"basics": {
		"name": "Kim Svensson",
		"label": "Backend Developer",
		"image": "https://example.com/kim.jpg",
		"email": "kim@example.com",
		"phone": "+46 70 000 00 00",
		"summary": "Builds data plumbing.",
		"location": {"city": "Uppsala", "countryCode": "SE"},
		"profiles": [
			{"network": "GitHub", "url": "https://github.com/kim"},
			{"network": "LinkedIn", "url": "https://linkedin.com/in/kim"}
		]
	},
	"work": [
		{
			"name": "Acme",
			"position": "Backend Developer",
			"startDate": "2020-01-01",
			"endDate": "2021-01-01",
			"summary": "Payments team.",
			"highlights": ["Cut latency in half", " "],
			"keywords": ["Go", "Postgres", "go"]
		},
		{
			"name": "Globex",
			"position": "Tech Lead",
			"startDate": "2021-02"
		}
	],
	"skills": [
		{"name": "Go", "level": "Expert", "keywords": ["Languages"], "years": 5},
		{"name": "React", "level": 3},
		{"name": "COBOL", "level": "ancient"}
	]
}`

func TestFlexibleString_String(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"string", `"Expert"`, "Expert"},
		{"number", `4`, "4"},
		{"float", `2.5`, "2.5"},
		{"null value", `null`, ""},
		{"padded", `" 3 "`, "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexibleString
			if err := json.Unmarshal([]byte(tt.input), &f); err != nil {
				t.Fatalf("UnmarshalJSON() error = %v", err)
			}
			if got := f.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlexibleString_InvalidInput(t *testing.T) {
	for _, input := range []string{`[1,2,3]`, `{"key": "value"}`, `true`} {
		var f FlexibleString
		if err := json.Unmarshal([]byte(input), &f); err == nil {
			t.Errorf("UnmarshalJSON() expected error for input %s", input)
		}
	}
}

func TestParseJSONResume(t *testing.T) {
	doc, errs := ParseJSONResume([]byte(sampleResume), cv.LocaleEN)
	if len(errs) > 0 {
		t.Fatalf("ParseJSONResume() returned errors: %v", errs)
	}

	if doc.Name != "Kim Svensson" {
		t.Errorf("Name = %q, want Kim Svensson", doc.Name)
	}
	if doc.Title.Get(cv.LocaleEN) != "Backend Developer" || doc.Title.SV != nil {
		t.Errorf("expected english-only title, got %+v", doc.Title)
	}
	if doc.Summary.Get(cv.LocaleEN) != "Builds data plumbing." {
		t.Errorf("Summary = %q", doc.Summary.Get(cv.LocaleEN))
	}
	if doc.Contact.Location != "Uppsala, SE" {
		t.Errorf("Contact.Location = %q, want Uppsala, SE", doc.Contact.Location)
	}
	if doc.Contact.LinkedIn != "https://linkedin.com/in/kim" {
		t.Errorf("Contact.LinkedIn = %q", doc.Contact.LinkedIn)
	}
	if doc.Photo != "https://example.com/kim.jpg" {
		t.Errorf("Photo = %q", doc.Photo)
	}

	if len(doc.Roles) != 2 {
		t.Fatalf("expected 2 roles, got %d", len(doc.Roles))
	}
	acme := doc.Roles[0]
	if acme.Company != "Acme" || acme.Title != "Backend Developer" {
		t.Errorf("unexpected role: %+v", acme)
	}
	if !cv.DatesEqual(acme.Start, cv.NewDate(2020, time.January)) || !cv.DatesEqual(acme.End, cv.NewDate(2021, time.January)) {
		t.Errorf("unexpected dates %v - %v", acme.Start, acme.End)
	}
	if acme.IsCurrent {
		t.Error("closed role marked current")
	}
	if want := "Payments team.\n- Cut latency in half"; acme.Description.Get(cv.LocaleEN) != want {
		t.Errorf("Description = %q, want %q", acme.Description.Get(cv.LocaleEN), want)
	}
	if got := strings.Join(acme.TechNames(), ","); got != "Go,Postgres" {
		t.Errorf("expected deduplicated tech Go,Postgres, got %s", got)
	}
	if !doc.Roles[1].IsCurrent || doc.Roles[1].End != nil {
		t.Errorf("expected open-ended role to be current, got %+v", doc.Roles[1])
	}

	levels := map[string]int{"Go": 5, "React": 3, "COBOL": 0}
	for _, s := range doc.Skills {
		if s.Level != levels[s.Name] {
			t.Errorf("%s: expected level %d, got %d", s.Name, levels[s.Name], s.Level)
		}
	}
	if doc.Skills[0].Years == nil || *doc.Skills[0].Years != 5 {
		t.Errorf("expected Go years 5, got %v", doc.Skills[0].Years)
	}
	if doc.Skills[0].Category != "Languages" {
		t.Errorf("expected category Languages, got %q", doc.Skills[0].Category)
	}

	if err := cv.Validate(doc); err != nil {
		t.Errorf("imported document is invalid: %v", err)
	}
}

func TestParseJSONResume_DeterministicIDs(t *testing.T) {
	first, _ := ParseJSONResume([]byte(sampleResume), cv.LocaleSV)
	second, _ := ParseJSONResume([]byte(sampleResume), cv.LocaleSV)

	for i := range first.Roles {
		if first.Roles[i].ID != second.Roles[i].ID {
			t.Errorf("role %d: ids differ across imports: %s vs %s", i, first.Roles[i].ID, second.Roles[i].ID)
		}
	}
	for i := range first.Skills {
		if first.Skills[i].ID != second.Skills[i].ID {
			t.Errorf("skill %d: ids differ across imports", i)
		}
	}

	// Re-importing the same export must not produce conflicts.
	a, err := conflict.DetectConflicts(first, second)
	if err != nil {
		t.Fatalf("DetectConflicts() error = %v", err)
	}
	if a.HasConflicts {
		t.Errorf("expected no conflicts between identical imports, got %d", a.TotalConflicts)
	}
}

func TestParseJSONResume_RepeatedRoleGetsDistinctID(t *testing.T) {
	data := []byte(`{"work": [
		{"name": "Acme", "position": "Dev", "startDate": "2020-01"},
		{"name": "Acme", "position": "Dev", "startDate": "2020-01"}
	]}`)

	doc, errs := ParseJSONResume(data, cv.LocaleEN)
	if len(errs) > 0 {
		t.Fatalf("ParseJSONResume() returned errors: %v", errs)
	}
	if doc.Roles[0].ID == doc.Roles[1].ID {
		t.Errorf("expected distinct ids, got %s twice", doc.Roles[0].ID)
	}
	if err := cv.Validate(doc); err != nil {
		t.Errorf("imported document is invalid: %v", err)
	}
}

func TestParseJSONResume_PartialErrors(t *testing.T) {
	data := []byte(`{
		"work": [
			{"name": "Valid", "position": "Dev", "startDate": "2020-01"},
			{"summary": "no company or position"},
			{"name": "BadDate", "startDate": "last spring"},
			{"name": "Backwards", "startDate": "2021-01", "endDate": "2020-01"}
		],
		"skills": [
			{"name": "Go"},
			{"name": " "},
			{"name": "go"},
			{"name": "Rust", "years": "many"}
		]
	}`)

	doc, errs := ParseJSONResume(data, cv.LocaleEN)
	if len(doc.Roles) != 1 {
		t.Errorf("expected 1 valid role, got %d", len(doc.Roles))
	}
	if len(doc.Skills) != 1 {
		t.Errorf("expected 1 valid skill, got %d", len(doc.Skills))
	}
	if len(errs) != 6 {
		t.Errorf("expected 6 errors, got %d: %v", len(errs), errs)
	}
}

func TestParseJSONResume_InvalidJSON(t *testing.T) {
	_, errs := ParseJSONResume([]byte(`not valid json`), cv.LocaleEN)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error for invalid JSON, got %v", errs)
	}
	if !errors.Is(errs[0], ErrInvalidExport) {
		t.Errorf("error = %v, want ErrInvalidExport", errs[0])
	}
}

func TestParseJSONResume_Empty(t *testing.T) {
	doc, errs := ParseJSONResume([]byte(`{}`), cv.LocaleEN)
	if len(errs) > 0 {
		t.Fatalf("ParseJSONResume() returned errors: %v", errs)
	}
	if doc.Roles == nil || doc.Skills == nil {
		t.Error("expected empty, non-nil collections")
	}
}
