package similarity

import (
	"math"
	"testing"
	"time"

	"github.com/matsen/cvmerge/internal/cv"
)

func TestTokenSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"both missing", "", "", 1},
		{"one missing", "Developer", "", 0},
		{"other missing", "", "Developer", 0},
		{"identical", "Senior Developer", "Senior Developer", 1},
		{"case insensitive", "Senior DEVELOPER", "senior developer", 1},
		{"half overlap", "Senior Developer", "Junior Developer", 1.0 / 3.0},
		{"disjoint", "Backend Engineer", "Product Owner", 0},
		{"short tokens ignored", "QA at Acme", "IT at Acme", 1},
		{"three-rune tokens count", "Dev at Acme", "QA at Acme", 0.5},
		{"only short tokens", "QA", "IT", 1},
		{"extra whitespace", "  Lead   Developer ", "Lead Developer", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TokenSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("TokenSimilarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDateRangesOverlapAt(t *testing.T) {
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	d := func(y int, m time.Month) *cv.Date { return cv.NewDate(y, m) }

	tests := []struct {
		name                       string
		start1, end1, start2, end2 *cv.Date
		want                       bool
	}{
		{"shifted by a month", d(2020, 1), d(2021, 1), d(2020, 2), d(2021, 2), true},
		{"disjoint", d(2015, 1), d(2016, 1), d(2018, 1), d(2019, 1), false},
		{"touching endpoints", d(2015, 1), d(2016, 1), d(2016, 1), d(2017, 1), true},
		{"first missing start", nil, d(2021, 1), d(2020, 2), d(2021, 2), false},
		{"second missing start", d(2020, 1), d(2021, 1), nil, nil, false},
		{"ongoing overlaps recent", d(2023, 1), nil, d(2024, 1), d(2024, 3), true},
		{"ongoing starts after other ends", d(2023, 1), nil, d(2020, 1), d(2022, 1), false},
		{"both ongoing", d(2010, 1), nil, d(2023, 1), nil, true},
		{"future start beyond now", d(2025, 1), nil, d(2020, 1), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DateRangesOverlapAt(now, tt.start1, tt.end1, tt.start2, tt.end2)
			if got != tt.want {
				t.Errorf("DateRangesOverlapAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTextsDiffer(t *testing.T) {
	tests := []struct {
		name string
		a, b cv.Bilingual
		want bool
	}{
		{"equal", cv.Text("Utvecklare", "Developer"), cv.Text("Utvecklare", "Developer"), false},
		{"en added", cv.SVOnly("Utvecklare"), cv.Text("Utvecklare", "Developer"), true},
		{"sv differs", cv.Text("Utvecklare", "Developer"), cv.Text("Arkitekt", "Developer"), true},
		{"whitespace only", cv.Text(" Utvecklare ", "Developer\n"), cv.Text("Utvecklare", "Developer"), false},
		{"missing vs empty", cv.Bilingual{}, cv.Text("", "  "), false},
		{"both missing", cv.Bilingual{}, cv.Bilingual{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TextsDiffer(tt.a, tt.b); got != tt.want {
				t.Errorf("TextsDiffer() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasContent(t *testing.T) {
	tests := []struct {
		name string
		a    cv.Bilingual
		want bool
	}{
		{"missing", cv.Bilingual{}, false},
		{"blank", cv.Text(" ", ""), false},
		{"sv only", cv.SVOnly("Hej"), true},
		{"en only", cv.ENOnly("Hello"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasContent(tt.a); got != tt.want {
				t.Errorf("HasContent() = %v, want %v", got, tt.want)
			}
		})
	}
}
