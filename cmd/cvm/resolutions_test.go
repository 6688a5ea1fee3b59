package main

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/matsen/cvmerge/internal/config"
	"github.com/matsen/cvmerge/internal/conflict"
	"github.com/matsen/cvmerge/internal/cv"
)

// testAnalysis returns an analysis with a title change, a removed role and an
// added skill.
func testAnalysis(t *testing.T) *conflict.Analysis {
	t.Helper()
	current := cv.Document{
		Title: cv.ENOnly("Developer"),
		Roles: []cv.Role{{
			ID: "r1", Title: "Engineer", Company: "Initech",
			Start: cv.NewDate(2015, 1), End: cv.NewDate(2017, 6),
		}},
		Skills: []cv.Skill{},
	}
	incoming := cv.Document{
		Title:  cv.ENOnly("Senior Developer"),
		Roles:  []cv.Role{},
		Skills: []cv.Skill{{ID: "s1", Name: "Rust", Level: 3}},
	}
	a, err := conflict.DetectConflicts(current, incoming)
	if err != nil {
		t.Fatalf("DetectConflicts() error = %v", err)
	}
	if a.TotalConflicts != 3 {
		t.Fatalf("TotalConflicts = %d, want 3", a.TotalConflicts)
	}
	return a
}

const (
	titleID   = "title"
	removedID = "role:removed:r1"
	addedID   = "skill:added:s1"
)

func TestParseResolutionsYAML(t *testing.T) {
	data := []byte(`
title: accept
"role:removed:r1": Keep
skill:added:s1: skip
`)
	got, err := parseResolutionsYAML(data)
	if err != nil {
		t.Fatalf("parseResolutionsYAML() error = %v", err)
	}
	want := conflict.Resolutions{
		titleID:   conflict.Accept,
		removedID: conflict.Keep,
		addedID:   conflict.Skip,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseResolutionsYAML() = %v, want %v", got, want)
	}
}

func TestParseResolutionsYAML_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad value", "title: maybe\n", "resolution for title"},
		{"not a map", "- title\n", "parsing resolutions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseResolutionsYAML([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestParseDecisions(t *testing.T) {
	got, err := parseDecisions([]string{"role:modified:a=accept", "title = keep"})
	if err != nil {
		t.Fatalf("parseDecisions() error = %v", err)
	}
	want := conflict.Resolutions{"role:modified:a": conflict.Accept, "title": conflict.Keep}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseDecisions() = %v, want %v", got, want)
	}

	for _, bad := range []string{"title", "=accept", "title=later"} {
		if _, err := parseDecisions([]string{bad}); err == nil {
			t.Errorf("parseDecisions(%q) expected error", bad)
		}
	}
}

func TestResolutionFlags_Build(t *testing.T) {
	tests := []struct {
		name         string
		flags        resolutionFlags
		strategy     string // config default_strategy
		wantStrategy string
		want         conflict.Resolutions
	}{
		{
			name:         "default keep leaves map empty",
			strategy:     "keep",
			wantStrategy: strategyDefault,
			want:         conflict.Resolutions{},
		},
		{
			name:         "default accept fills every conflict",
			strategy:     "accept",
			wantStrategy: strategyDefault,
			want:         conflict.Resolutions{titleID: conflict.Accept, removedID: conflict.Accept, addedID: conflict.Accept},
		},
		{
			name:         "default accept does not override explicit",
			flags:        resolutionFlags{decisions: []string{"title=keep"}},
			strategy:     "accept",
			wantStrategy: strategyDefault,
			want:         conflict.Resolutions{titleID: conflict.Keep, removedID: conflict.Accept, addedID: conflict.Accept},
		},
		{
			name:         "accept all",
			flags:        resolutionFlags{acceptAll: true},
			strategy:     "keep",
			wantStrategy: strategyAcceptAll,
			want:         conflict.Resolutions{titleID: conflict.Accept, removedID: conflict.Accept, addedID: conflict.Accept},
		},
		{
			name:         "keep all with override",
			flags:        resolutionFlags{keepAll: true, decisions: []string{addedID + "=accept"}},
			strategy:     "keep",
			wantStrategy: strategyKeepAll,
			want:         conflict.Resolutions{titleID: conflict.Keep, removedID: conflict.Keep, addedID: conflict.Accept},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testAnalysis(t)
			cfg := config.Default()
			cfg.DefaultStrategy = tt.strategy

			got, strategy, err := tt.flags.build(a, cfg)
			if err != nil {
				t.Fatalf("build() error = %v", err)
			}
			if strategy != tt.wantStrategy {
				t.Errorf("strategy = %q, want %q", strategy, tt.wantStrategy)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("build() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolutionFlags_BuildUnknownID(t *testing.T) {
	a := testAnalysis(t)
	f := resolutionFlags{decisions: []string{"role:modified:nope=accept"}}

	_, _, err := f.build(a, config.Default())
	if err == nil {
		t.Fatal("expected error for unknown id")
	}
	if !strings.Contains(err.Error(), "role:modified:nope") {
		t.Errorf("error = %q, want it to name the unknown id", err)
	}
	if code := exitCodeForResolutions(err); code != ExitDataError {
		t.Errorf("exit code = %d, want %d", code, ExitDataError)
	}
}

func TestResolutionFlags_BuildStrict(t *testing.T) {
	a := testAnalysis(t)

	f := resolutionFlags{strict: true, decisions: []string{"title=accept"}}
	res, _, err := f.build(a, config.Default())
	if !errors.Is(err, errUnresolved) {
		t.Fatalf("build() error = %v, want errUnresolved", err)
	}
	if got := undecided(a, res); !reflect.DeepEqual(got, []string{removedID, addedID}) {
		t.Errorf("undecided() = %v, want [%s %s]", got, removedID, addedID)
	}

	// The config default never counts as a decision under --strict
	cfg := config.Default()
	cfg.DefaultStrategy = "accept"
	if _, _, err := f.build(a, cfg); !errors.Is(err, errUnresolved) {
		t.Errorf("build() with accept default error = %v, want errUnresolved", err)
	}

	f.acceptAll = true
	if _, _, err := f.build(a, config.Default()); err != nil {
		t.Errorf("build() with --accept-all under --strict error = %v", err)
	}
}

func TestEffectiveDecisions(t *testing.T) {
	a := testAnalysis(t)
	got := effectiveDecisions(a, conflict.Resolutions{titleID: conflict.Accept})
	want := conflict.Resolutions{
		titleID:   conflict.Accept,
		removedID: conflict.Keep,
		addedID:   conflict.Skip,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("effectiveDecisions() = %v, want %v", got, want)
	}
}

func TestResolutionOptions(t *testing.T) {
	tests := []struct {
		change conflict.ChangeType
		want   []conflict.Resolution
	}{
		{conflict.Added, []conflict.Resolution{conflict.Accept, conflict.Skip}},
		{conflict.Removed, []conflict.Resolution{conflict.Keep, conflict.Accept}},
		{conflict.Modified, []conflict.Resolution{conflict.Keep, conflict.Accept, conflict.Skip}},
	}
	for _, tt := range tests {
		t.Run(string(tt.change), func(t *testing.T) {
			opts := resolutionOptions(tt.change)
			got := make([]conflict.Resolution, len(opts))
			for i, o := range opts {
				got[i] = o.Value
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("resolutionOptions(%s) = %v, want %v", tt.change, got, tt.want)
			}
		})
	}
}
