package conflict

import (
	"testing"
	"time"

	"github.com/matsen/cvmerge/internal/cv"
)

var testNow = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

var testDetector = Detector{Now: func() time.Time { return testNow }}

func date(year int, month time.Month) *cv.Date {
	return cv.NewDate(year, month)
}

func role(id, title, company string, start, end *cv.Date) cv.Role {
	return cv.Role{
		ID:          id,
		Title:       title,
		Company:     company,
		Start:       start,
		End:         end,
		Description: cv.Text("Beskrivning", "Description"),
		Visible:     true,
	}
}

func skill(id, name string, level int, years float64) cv.Skill {
	return cv.Skill{ID: id, Name: name, Level: level, Years: cv.Float(years)}
}

// fixClock pins the merge timestamp for the duration of a test.
func fixClock(t *testing.T, at time.Time) {
	t.Helper()
	old := nowFunc
	nowFunc = func() time.Time { return at }
	t.Cleanup(func() { nowFunc = old })
}

func mustDetect(t *testing.T, current, incoming cv.Document) *Analysis {
	t.Helper()
	a, err := testDetector.Detect(current, incoming)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	return a
}

func mustMerge(t *testing.T, current, incoming cv.Document, a *Analysis, res Resolutions) cv.Document {
	t.Helper()
	merged, err := MergeWithResolutions(current, incoming, a, res)
	if err != nil {
		t.Fatalf("MergeWithResolutions() error = %v", err)
	}
	return merged
}

// sampleCurrent is a small but complete local snapshot.
func sampleCurrent() cv.Document {
	return cv.Document{
		ID:      "doc1",
		Title:   cv.Text("Utvecklare", "Developer"),
		Summary: cv.Text("Erfaren utvecklare", "Experienced developer"),
		Name:    "Kim Svensson",
		Roles: []cv.Role{
			role("r-acme", "Backend Developer", "Acme", date(2020, time.January), date(2021, time.January)),
			role("r-globex", "Tech Lead", "Globex", date(2021, time.February), nil),
			role("r-initech", "Intern", "Initech", date(2016, time.June), date(2016, time.August)),
		},
		Skills: []cv.Skill{
			skill("s-go", "Go", 4, 5),
			skill("s-react", "React", 3, 3),
			skill("s-cobol", "COBOL", 1, 1),
		},
		LastModified: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}
