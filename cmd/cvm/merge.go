package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/matsen/cvmerge/internal/config"
	"github.com/matsen/cvmerge/internal/conflict"
	"github.com/matsen/cvmerge/internal/cv"
	"github.com/matsen/cvmerge/internal/storage"
)

var (
	mergeFlags  resolutionFlags
	mergeDryRun bool
)

func init() {
	mergeFlags.register(mergeCmd)
	mergeCmd.Flags().BoolVar(&mergeDryRun, "dry-run", false, "Show the merged snapshot without writing it")
	rootCmd.AddCommand(mergeCmd)
}

var mergeCmd = &cobra.Command{
	Use:   "merge <incoming>",
	Short: "Merge an incoming snapshot into the workspace",
	Long: `Merge an incoming snapshot into the workspace snapshot.

Every conflict is decided as keep, accept or skip. Only accept changes
anything: it takes the incoming value, adds a new role or skill, or confirms
a removal. Undecided conflicts follow default_strategy from the config
(keep unless set to accept); --strict refuses to merge instead.

The workspace snapshot must not change between reading and writing. If it
does, nothing is written and the command exits with code 5.

Examples:
  cvm merge incoming.json --dry-run --human
  cvm merge incoming.json --accept-all
  cvm merge incoming.json --resolutions decisions.yml
  cvm merge incoming.json --resolve role:added:abc=accept --resolve title=keep
  cvm merge incoming.json --interactive`,
	Args: cobra.ExactArgs(1),
	RunE: runMerge,
}

// MergeResult is the outcome of a merge.
type MergeResult struct {
	Committed  bool                 `json:"committed"`
	HistoryID  string               `json:"history_id,omitempty"`
	Strategy   string               `json:"strategy"`
	Summary    conflict.Summary     `json:"summary"`
	Analysis   *conflict.Analysis   `json:"analysis"`
	Decisions  conflict.Resolutions `json:"decisions"`
	Unresolved []string             `json:"unresolved,omitempty"`
	Merged     *cv.Document         `json:"merged,omitempty"` // Dry run only
}

func runMerge(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	cfg := mustLoadConfig(root)
	snapshotPath := config.SnapshotPath(root)

	current := mustReadSnapshot(snapshotPath)
	readAt := current.LastModified
	incoming := mustReadSnapshot(args[0])

	a := mustDetect(cfg, current, incoming)

	res, strategy, err := mergeFlags.build(a, cfg)
	if err != nil {
		if errors.Is(err, errUnresolved) {
			reportUnresolved(a, res, strategy)
			return nil
		}
		exitWithError(exitCodeForResolutions(err), "%v", err)
	}

	merged, err := conflict.MergeWithResolutions(current, incoming, a, res)
	if err != nil {
		exitWithError(exitCodeFor(err), "merging: %v", err)
	}

	result := MergeResult{
		Strategy:  strategy,
		Summary:   res.Summarize(a),
		Analysis:  a,
		Decisions: effectiveDecisions(a, res),
	}

	if mergeDryRun {
		result.Merged = &merged
		if humanOutput {
			printAnalysisHuman(a, res)
			fmt.Printf("\nDry run: %d accepted, %d kept, %d skipped. Nothing written.\n",
				result.Summary.Accepted, result.Summary.Kept, result.Summary.Skipped)
			return nil
		}
		return outputJSON(result)
	}

	entry, err := commitMerge(root, readAt, merged, args[0], strategy, a, res)
	if err != nil {
		exitWithError(exitCodeFor(err), "committing merge: %v", err)
	}
	result.Committed = true
	result.HistoryID = entry.ID

	if humanOutput {
		printAnalysisHuman(a, res)
		fmt.Printf("\nMerged into %s: %d accepted, %d kept, %d skipped.\n", snapshotPath,
			result.Summary.Accepted, result.Summary.Kept, result.Summary.Skipped)
		return nil
	}
	return outputJSON(result)
}

// commitMerge writes merged over the workspace snapshot and records the merge
// in the history. The SQLite cache is best effort: history.jsonl is the
// source of truth and 'cvm history rebuild' restores the cache.
func commitMerge(root string, readAt time.Time, merged cv.Document, source, strategy string, a *conflict.Analysis, res conflict.Resolutions) (storage.HistoryEntry, error) {
	if err := storage.CommitMerge(config.SnapshotPath(root), readAt, merged); err != nil {
		return storage.HistoryEntry{}, err
	}
	logger.Info("snapshot committed", "lastModified", merged.LastModified)

	entry := storage.NewHistoryEntry(source, strategy, merged.LastModified, a, res)
	if err := storage.AppendHistory(config.HistoryPath(root), entry); err != nil {
		return entry, fmt.Errorf("snapshot written but history not recorded: %w", err)
	}

	recordInCache(root, entry)
	return entry, nil
}

// recordInCache adds a history entry to the SQLite cache, warning on failure.
func recordInCache(root string, entry storage.HistoryEntry) {
	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		logger.Warn("history cache not updated", "err", err)
		return
	}
	db, err := storage.OpenDB(config.DBPath(root))
	if err != nil {
		logger.Warn("history cache not updated", "err", err)
		return
	}
	defer db.Close()
	if err := db.InsertMerge(entry); err != nil {
		logger.Warn("history cache not updated; run 'cvm history rebuild'", "err", err)
	}
}

// effectiveDecisions lists the decision applied to every conflict, defaults included.
func effectiveDecisions(a *conflict.Analysis, res conflict.Resolutions) conflict.Resolutions {
	out := make(conflict.Resolutions, a.TotalConflicts)
	for _, c := range a.Conflicts() {
		out[c.ConflictID()] = res.For(c)
	}
	return out
}

// reportUnresolved prints what --strict is missing and exits with ExitUnresolved.
func reportUnresolved(a *conflict.Analysis, res conflict.Resolutions, strategy string) {
	missing := undecided(a, res)
	if humanOutput {
		printAnalysisHuman(a, res)
		exitWithError(ExitUnresolved, "%d conflicts have no decision (--strict): decide them with --resolve, --resolutions or --interactive", len(missing))
	}
	outputJSON(MergeResult{
		Strategy:   strategy,
		Summary:    res.Summarize(a),
		Analysis:   a,
		Decisions:  res,
		Unresolved: missing,
	})
	os.Exit(ExitUnresolved)
}

// exitCodeForResolutions classifies errors from building the decision map.
// Unknown ids and malformed decisions are data errors.
func exitCodeForResolutions(err error) int {
	if errors.Is(err, huh.ErrUserAborted) {
		return ExitError
	}
	return ExitDataError
}
