package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/matsen/cvmerge/internal/conflict"
	"github.com/matsen/cvmerge/internal/cv"
)

// Constants for output formatting.
const (
	DefaultHistoryLimit = 20 // Default limit for history listings
	TextPreviewMaxLen   = 60 // Bilingual values in conflict listings
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// sortedKeys returns the conflict ids of res in order.
func sortedKeys(res conflict.Resolutions) []string {
	keys := make([]string, 0, len(res))
	for k := range res {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// truncateString truncates a string to maxLen runes, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// formatBilingual renders both locales on one line, marking absent values.
func formatBilingual(b cv.Bilingual) string {
	parts := make([]string, 0, len(cv.Locales))
	for _, l := range cv.Locales {
		v := "-"
		if s := b.Trimmed(l); s != "" {
			v = fmt.Sprintf("%q", truncateString(strings.ReplaceAll(s, "\n", " "), TextPreviewMaxLen))
		}
		parts = append(parts, fmt.Sprintf("%s: %s", l, v))
	}
	return strings.Join(parts, "  ")
}

// formatDateRange renders a role's period, e.g. "2020-01 - present".
func formatDateRange(r cv.Role) string {
	start := "?"
	if r.Start != nil {
		start = r.Start.String()
	}
	end := "?"
	switch {
	case r.End != nil:
		end = r.End.String()
	case r.IsCurrent:
		end = "present"
	}
	return start + " - " + end
}

func formatRole(r *cv.Role) string {
	if r == nil {
		return "(none)"
	}
	return fmt.Sprintf("%s at %s (%s)", r.Title, r.Company, formatDateRange(*r))
}

func formatSkill(s *cv.Skill) string {
	if s == nil {
		return "(none)"
	}
	years := "-"
	if s.Years != nil {
		years = fmt.Sprintf("%.1f", *s.Years)
	}
	return fmt.Sprintf("%s (level %d, %s years)", s.Name, s.Level, years)
}

// describeConflict returns a one-line title and a multi-line detail for c.
func describeConflict(c conflict.Conflict) (string, string) {
	switch c := c.(type) {
	case conflict.TextConflict:
		return fmt.Sprintf("%s changed", c.Field),
			fmt.Sprintf("current:  %s\nincoming: %s", formatBilingual(c.Current), formatBilingual(c.Incoming))
	case conflict.RoleConflict:
		switch c.Type {
		case conflict.Added:
			return "new role: " + formatRole(c.Incoming), ""
		case conflict.Removed:
			return "role missing from import: " + formatRole(c.Current), ""
		}
		return fmt.Sprintf("role changed (%s, match %.0f%%)", strings.Join(c.Fields, ", "), c.MatchScore*100),
			fmt.Sprintf("current:  %s\nincoming: %s", formatRole(c.Current), formatRole(c.Incoming))
	case conflict.SkillConflict:
		switch c.Type {
		case conflict.Added:
			return "new skill: " + formatSkill(c.Incoming), ""
		case conflict.Removed:
			return "skill missing from import: " + formatSkill(c.Current), ""
		}
		return fmt.Sprintf("skill changed (%s)", strings.Join(c.Fields, ", ")),
			fmt.Sprintf("current:  %s\nincoming: %s", formatSkill(c.Current), formatSkill(c.Incoming))
	}
	return c.ConflictID(), ""
}

// printAnalysisHuman prints every conflict with its id and, when res is not
// nil, the decision that applies to it.
func printAnalysisHuman(a *conflict.Analysis, res conflict.Resolutions) {
	if !a.HasConflicts {
		fmt.Println("No conflicts.")
		return
	}

	fmt.Printf("%d conflicts\n", a.TotalConflicts)
	s := a.Stats
	fmt.Printf("  roles:  %d modified, %d added, %d removed\n", s.RolesModified, s.RolesAdded, s.RolesRemoved)
	fmt.Printf("  skills: %d modified, %d added, %d removed\n\n", s.SkillsModified, s.SkillsAdded, s.SkillsRemoved)

	for _, c := range a.Conflicts() {
		title, detail := describeConflict(c)
		if res != nil {
			fmt.Printf("[%s] %s  -> %s\n", c.ConflictID(), title, res.For(c))
		} else {
			fmt.Printf("[%s] %s\n", c.ConflictID(), title)
		}
		if detail != "" {
			for _, line := range strings.Split(detail, "\n") {
				fmt.Printf("    %s\n", line)
			}
		}
	}
}
