package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matsen/cvmerge/internal/config"
	"github.com/matsen/cvmerge/internal/cv"
	"github.com/matsen/cvmerge/internal/storage"
)

var recalcDryRun bool

func init() {
	recalcCmd.Flags().BoolVar(&recalcDryRun, "dry-run", false, "Show calculated years without writing")
	rootCmd.AddCommand(recalcCmd)
}

var recalcCmd = &cobra.Command{
	Use:   "recalc",
	Short: "Recalculate skill years from role history",
	Long: `Recalculate each skill's years of experience from the roles that list it
as a technology. Overlapping roles count once and ongoing roles run to today.

Calculated years are shown unless the skill has an overridden value.
Explicit years from imports are never changed.`,
	Args: cobra.NoArgs,
	RunE: runRecalc,
}

// RecalcResult is the response for the recalc command.
type RecalcResult struct {
	Written bool          `json:"written"`
	Changes []SkillChange `json:"changes"`
}

// SkillChange records one skill whose calculated years changed.
type SkillChange struct {
	Skill  string   `json:"skill"`
	Before *float64 `json:"before"`
	After  *float64 `json:"after"`
}

func runRecalc(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	path := config.SnapshotPath(root)

	doc := mustReadSnapshot(path)
	readAt := doc.LastModified

	now := time.Now().UTC()
	updated := cv.CalculateSkillYears(doc, now)
	changes := calculatedChanges(doc, updated)

	result := RecalcResult{Changes: changes}
	if len(changes) > 0 && !recalcDryRun {
		updated.LastModified = now
		if err := storage.CommitMerge(path, readAt, updated); err != nil {
			exitWithError(exitCodeFor(err), "writing snapshot: %v", err)
		}
		result.Written = true
		logger.Info("skill years recalculated", "changed", len(changes))
	}

	if !humanOutput {
		return outputJSON(result)
	}
	if len(changes) == 0 {
		fmt.Println("All calculated years are up to date.")
		return nil
	}
	for _, c := range changes {
		fmt.Printf("  %-24s %s -> %s\n", c.Skill, formatYears(c.Before), formatYears(c.After))
	}
	if !result.Written {
		fmt.Println("\nDry run: nothing written.")
	}
	return nil
}

// calculatedChanges lists the skills whose calculated years differ. Skills
// correspond by position since recalculation never reorders.
func calculatedChanges(before, after cv.Document) []SkillChange {
	changes := []SkillChange{}
	for i := range after.Skills {
		b, a := before.Skills[i].CalculatedYears, after.Skills[i].CalculatedYears
		if (b == nil) == (a == nil) && (b == nil || *b == *a) {
			continue
		}
		changes = append(changes, SkillChange{Skill: after.Skills[i].Name, Before: b, After: a})
	}
	return changes
}

func formatYears(y *float64) string {
	if y == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *y)
}
