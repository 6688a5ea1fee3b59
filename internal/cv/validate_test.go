package cv

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestBilingual_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantSV  string
		wantEN  string
		wantErr bool
	}{
		{"both", `{"sv":"Hej","en":"Hello"}`, "Hej", "Hello", false},
		{"sv only", `{"sv":"Hej"}`, "Hej", "", false},
		{"explicit null", `{"sv":"Hej","en":null}`, "Hej", "", false},
		{"null record", `null`, "", "", false},
		{"plain string", `"Hello"`, "", "", true},
		{"array", `["Hej","Hello"]`, "", "", true},
		{"unknown locale", `{"sv":"Hej","de":"Hallo"}`, "", "", true},
		{"number value", `{"sv":3}`, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b Bilingual
			err := json.Unmarshal([]byte(tt.input), &b)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				if !IsValidationError(err) {
					t.Errorf("error %v is not a ValidationError", err)
				}
				return
			}
			if b.Get(LocaleSV) != tt.wantSV || b.Get(LocaleEN) != tt.wantEN {
				t.Errorf("got {%q, %q}, want {%q, %q}", b.Get(LocaleSV), b.Get(LocaleEN), tt.wantSV, tt.wantEN)
			}
		})
	}
}

func TestValidate_MissingIDs(t *testing.T) {
	doc := Document{
		Roles:  []Role{{ID: "r1"}, {ID: ""}},
		Skills: []Skill{{ID: " ", Name: "Go"}},
	}

	err := Validate(doc)
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}

	var errs ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("error %T is not ValidationErrors", err)
	}
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), err)
	}
	if errs[0].Path != "roles.1.id" {
		t.Errorf("errs[0].Path = %q, want roles.1.id", errs[0].Path)
	}
	if errs[1].Path != "skills.0.id" {
		t.Errorf("errs[1].Path = %q, want skills.0.id", errs[1].Path)
	}

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Error("errors.As(*ValidationError) = false")
	}
}

func TestValidate_Valid(t *testing.T) {
	doc := Document{
		Roles:  []Role{{ID: "r1", Tech: []TechTag{{Name: "Go"}}}},
		Skills: []Skill{{ID: "s1", Name: "Go"}},
	}
	if err := Validate(doc); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestDecode(t *testing.T) {
	data := []byte(`{
		"title": {"sv": "Utvecklare", "en": null},
		"summary": {"sv": "Kort", "en": "Short"},
		"roles": [{
			"id": "r1", "title": "Developer", "company": "Acme",
			"start": "2020-01", "end": null, "isCurrent": true, "visible": true,
			"description": {"sv": "Text"},
			"technologies": [{"name": "Go"}]
		}],
		"skills": [{"id": "s1", "name": "Go", "level": 4, "years": 3, "calculatedYears": null, "overriddenYears": null}],
		"lastModified": "2024-05-01T10:00:00Z"
	}`)

	doc, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if doc.Title.Get(LocaleSV) != "Utvecklare" || doc.Title.EN != nil {
		t.Errorf("Title = %+v", doc.Title)
	}
	if len(doc.Roles) != 1 || doc.Roles[0].Start.String() != "2020-01" || doc.Roles[0].End != nil {
		t.Errorf("Roles = %+v", doc.Roles)
	}
	if len(doc.Skills) != 1 || *doc.Skills[0].Years != 3 || doc.Skills[0].Level != 4 {
		t.Errorf("Skills = %+v", doc.Skills)
	}
	if doc.LastModified.IsZero() {
		t.Error("LastModified not decoded")
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantPath string
	}{
		{"role without id", `{"roles":[{"title":"Dev"}]}`, "roles.0"},
		{"role with empty id", `{"roles":[{"id":""}]}`, "roles.0"},
		{"skill without id", `{"skills":[{"name":"Go"}]}`, "skills.0"},
		{"title as string", `{"title":"Developer"}`, "title"},
		{"summary with extra locale", `{"summary":{"sv":"a","fi":"b"}}`, "summary"},
		{"description as array", `{"roles":[{"id":"r1","description":["a"]}]}`, "roles.0.description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			if err == nil {
				t.Fatal("Decode() = nil error, want ValidationError")
			}
			if !IsValidationError(err) {
				t.Fatalf("error %v is not a ValidationError", err)
			}
			if !strings.Contains(err.Error(), tt.wantPath) {
				t.Errorf("error %q does not mention %q", err, tt.wantPath)
			}
		})
	}
}

func TestDecode_NotJSON(t *testing.T) {
	_, err := Decode([]byte(`{not json`))
	if err == nil {
		t.Fatal("Decode() = nil error for malformed JSON")
	}
}

func TestValidate_DuplicateIDs(t *testing.T) {
	doc := Document{
		Roles:  []Role{{ID: "r1"}, {ID: "r1"}},
		Skills: []Skill{{ID: "s1", Name: "Go"}, {ID: "s1", Name: "Rust"}},
	}

	err := Validate(doc)
	var errs ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("Validate() = %v, want ValidationErrors", err)
	}
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), err)
	}
	if errs[0].Path != "roles.1.id" || !strings.Contains(errs[0].Message, "duplicate") {
		t.Errorf("errs[0] = %+v", errs[0])
	}
}
