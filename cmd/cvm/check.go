package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/cvmerge/internal/config"
	"github.com/matsen/cvmerge/internal/cv"
)

// Issue severities
const (
	severityError   = "error"
	severityWarning = "warning"
)

// Skill levels outside this range are flagged.
const maxSkillLevel = 5

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Validate a snapshot",
	Long: `Validate a snapshot file, by default the workspace's cv.json.

Errors make a snapshot unusable for merging: malformed JSON, malformed
bilingual text, and roles or skills with missing or duplicate ids.
Warnings flag data that merges fine but is probably wrong: duplicate skill
names, roles ending before they start, ongoing roles with an end date and
skill levels outside 0-5.

Exits with code 3 when errors are found.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

// CheckResult is the response for the check command.
type CheckResult struct {
	Status string       `json:"status"` // ok, warnings, errors
	Path   string       `json:"path"`
	Roles  int          `json:"roles"`
	Skills int          `json:"skills"`
	Issues []CheckIssue `json:"issues"`
}

// CheckIssue is a single problem found in a snapshot.
type CheckIssue struct {
	Severity string `json:"severity"`
	Path     string `json:"path,omitempty"`
	Message  string `json:"message"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		path = config.SnapshotPath(mustFindWorkspace())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		exitWithError(exitCodeFor(err), "reading %s: %v", path, err)
	}

	result := CheckResult{Path: path, Issues: []CheckIssue{}}
	doc, err := cv.Decode(data)
	if err != nil {
		result.Issues = append(result.Issues, validationIssues(err)...)
	} else {
		result.Roles = len(doc.Roles)
		result.Skills = len(doc.Skills)
		result.Issues = append(result.Issues, checkDocument(doc)...)
	}
	result.Status = checkStatus(result.Issues)

	if humanOutput {
		printCheckHuman(result)
	} else {
		outputJSON(result)
	}
	if result.Status == "errors" {
		os.Exit(ExitDataError)
	}
	return nil
}

// validationIssues converts a decode failure into error issues.
func validationIssues(err error) []CheckIssue {
	var list cv.ValidationErrors
	if errors.As(err, &list) {
		issues := make([]CheckIssue, len(list))
		for i, ve := range list {
			issues[i] = CheckIssue{Severity: severityError, Path: ve.Path, Message: ve.Message}
		}
		return issues
	}
	var ve *cv.ValidationError
	if errors.As(err, &ve) {
		return []CheckIssue{{Severity: severityError, Path: ve.Path, Message: ve.Message}}
	}
	return []CheckIssue{{Severity: severityError, Message: err.Error()}}
}

// checkDocument reports suspicious data in a structurally valid snapshot.
func checkDocument(doc cv.Document) []CheckIssue {
	var issues []CheckIssue
	warn := func(path, format string, args ...interface{}) {
		issues = append(issues, CheckIssue{Severity: severityWarning, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	for i, r := range doc.Roles {
		path := fmt.Sprintf("roles.%d", i)
		if r.Start != nil && r.End != nil && r.End.Before(r.Start.Time) {
			warn(path, "%s at %s ends (%s) before it starts (%s)", r.Title, r.Company, r.End, r.Start)
		}
		if r.IsCurrent && r.End != nil {
			warn(path, "%s at %s is marked current but has an end date", r.Title, r.Company)
		}
	}

	seen := make(map[string]int)
	for i, s := range doc.Skills {
		path := fmt.Sprintf("skills.%d", i)
		key := strings.ToLower(strings.TrimSpace(s.Name))
		if first, dup := seen[key]; dup {
			warn(path, "duplicate skill name %q (first at skills.%d)", s.Name, first)
		} else {
			seen[key] = i
		}
		if s.Level < 0 || s.Level > maxSkillLevel {
			warn(path, "%s has level %d (expected 0-%d)", s.Name, s.Level, maxSkillLevel)
		}
	}
	return issues
}

func checkStatus(issues []CheckIssue) string {
	status := "ok"
	for _, is := range issues {
		if is.Severity == severityError {
			return "errors"
		}
		status = "warnings"
	}
	return status
}

func printCheckHuman(r CheckResult) {
	if len(r.Issues) == 0 {
		fmt.Printf("Snapshot check: OK\n\n%d roles and %d skills checked\n", r.Roles, r.Skills)
		return
	}
	fmt.Printf("Snapshot check: %d issues found in %s\n\n", len(r.Issues), r.Path)
	for _, is := range r.Issues {
		label := "[WARN]"
		if is.Severity == severityError {
			label = "[ERROR]"
		}
		if is.Path != "" {
			fmt.Printf("  %s %s: %s\n", label, is.Path, is.Message)
		} else {
			fmt.Printf("  %s %s\n", label, is.Message)
		}
	}
}
