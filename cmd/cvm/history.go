package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/matsen/cvmerge/internal/config"
	"github.com/matsen/cvmerge/internal/storage"
)

var (
	historyLimit    int
	historyConflict string
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", DefaultHistoryLimit, "Maximum number of merges to list (0 for all)")
	historyCmd.Flags().StringVar(&historyConflict, "conflict", "", "List past decisions for one conflict id instead")
	historyCmd.AddCommand(historyRebuildCmd)
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past merges",
	Long: `List merges recorded in the workspace, newest first.

The list is served from the SQLite cache, which is rebuilt from
history.jsonl automatically when it is missing.

Examples:
  cvm history --human
  cvm history --limit 5
  cvm history --conflict title
  cvm history show <merge-id>
  cvm history rebuild`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <merge-id>",
	Short: "Show one merge with its decisions",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the history cache from history.jsonl",
	Long: `Rebuild the SQLite history cache from history.jsonl.

Use this after pulling changes from git or if the cache becomes corrupted.`,
	Args: cobra.NoArgs,
	RunE: runHistoryRebuild,
}

// RebuildResult is the response for the rebuild command.
type RebuildResult struct {
	Status string `json:"status"`
	Merges int    `json:"merges"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	db := mustOpenHistory(root)
	defer db.Close()

	if historyConflict != "" {
		decisions, err := db.DecisionsFor(historyConflict)
		if err != nil {
			exitWithError(ExitError, "querying decisions: %v", err)
		}
		if humanOutput {
			if len(decisions) == 0 {
				fmt.Printf("No recorded decisions for %s.\n", historyConflict)
				return nil
			}
			for _, d := range decisions {
				fmt.Printf("%s  %-6s  %s\n", d.MergedAt.Local().Format(time.DateTime), d.Resolution, d.MergeID)
			}
			return nil
		}
		if decisions == nil {
			decisions = []storage.Decision{}
		}
		return outputJSON(decisions)
	}

	merges, err := db.ListMerges(historyLimit)
	if err != nil {
		exitWithError(ExitError, "listing merges: %v", err)
	}

	if humanOutput {
		if len(merges) == 0 {
			fmt.Println("No merges recorded.")
			return nil
		}
		for _, m := range merges {
			fmt.Printf("%-16s %s  %-11s %3d conflicts (%d accepted)  %s\n",
				humanize.Time(m.MergedAt), m.ID, m.Strategy,
				m.TotalConflicts, m.Summary.Accepted, m.Source)
		}
		return nil
	}
	if merges == nil {
		merges = []storage.HistoryEntry{}
	}
	return outputJSON(merges)
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	db := mustOpenHistory(root)
	defer db.Close()

	entry, err := db.GetMerge(args[0])
	if err != nil {
		exitWithError(ExitError, "reading merge: %v", err)
	}
	if entry == nil {
		exitWithError(ExitDataError, "merge not found: %s", args[0])
	}

	if !humanOutput {
		return outputJSON(entry)
	}

	fmt.Printf("Merge %s\n", entry.ID)
	fmt.Printf("  at:        %s (%s)\n", entry.MergedAt.Local().Format(time.RFC3339), humanize.Time(entry.MergedAt))
	fmt.Printf("  source:    %s\n", entry.Source)
	fmt.Printf("  strategy:  %s\n", entry.Strategy)
	fmt.Printf("  conflicts: %d (%d accepted, %d kept, %d skipped)\n", entry.TotalConflicts,
		entry.Summary.Accepted, entry.Summary.Kept, entry.Summary.Skipped)
	if len(entry.Resolutions) > 0 {
		fmt.Println("  decisions:")
		for _, id := range sortedKeys(entry.Resolutions) {
			fmt.Printf("    %s = %s\n", id, entry.Resolutions[id])
		}
	}
	return nil
}

func runHistoryRebuild(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	db := mustOpenDatabase(root)
	defer db.Close()

	count, err := db.RebuildFromJSONL(config.HistoryPath(root))
	if err != nil {
		exitWithError(ExitDataError, "rebuilding history cache: %v", err)
	}
	logger.Info("history cache rebuilt", "merges", count)

	if humanOutput {
		fmt.Printf("Rebuilt history cache with %d merges\n", count)
		return nil
	}
	return outputJSON(RebuildResult{Status: "rebuilt", Merges: count})
}

// mustOpenHistory opens the history cache, rebuilding it from history.jsonl
// when it is empty but the history is not.
func mustOpenHistory(root string) *storage.DB {
	db := mustOpenDatabase(root)

	count, err := db.Count()
	if err != nil {
		db.Close()
		exitWithError(ExitError, "reading history cache: %v", err)
	}
	if count > 0 {
		return db
	}

	info, err := os.Stat(config.HistoryPath(root))
	if err != nil || info.Size() == 0 {
		return db
	}
	n, err := db.RebuildFromJSONL(config.HistoryPath(root))
	if err != nil {
		db.Close()
		exitWithError(ExitDataError, "rebuilding history cache: %v", err)
	}
	logger.Info("history cache rebuilt", "merges", n)
	return db
}
