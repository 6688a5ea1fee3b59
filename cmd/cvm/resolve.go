package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matsen/cvmerge/internal/config"
	"github.com/matsen/cvmerge/internal/conflict"
	"github.com/matsen/cvmerge/internal/storage"
)

var (
	resolveFlags  resolutionFlags
	resolveDryRun bool
)

func init() {
	resolveFlags.register(resolveCmd)
	resolveCmd.Flags().BoolVar(&resolveDryRun, "dry-run", false, "Show the resolved snapshot without writing it")
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [file]",
	Short: "Resolve git merge conflicts in a snapshot file",
	Long: `Resolve git conflict markers in a snapshot using CV-aware matching.

Git sees cv.json as lines of text. cvm splits the file into both versions,
treats ours (HEAD) as current and theirs as incoming, and merges them with
the same conflict detection and decisions as 'cvm merge'.

Without a file argument the workspace snapshot is resolved.

Examples:
  cvm resolve --dry-run --human
  cvm resolve --accept-all
  cvm resolve --interactive
  cvm resolve other/cv.json --resolutions decisions.yml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

// ResolveResult is the outcome of resolving a marked snapshot file.
type ResolveResult struct {
	Path      string               `json:"path"`
	Regions   int                  `json:"regions"`
	Written   bool                 `json:"written"`
	Strategy  string               `json:"strategy,omitempty"`
	Summary   conflict.Summary     `json:"summary"`
	Analysis  *conflict.Analysis   `json:"analysis,omitempty"`
	Decisions conflict.Resolutions `json:"decisions,omitempty"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	var root, path string
	if len(args) == 1 {
		path = args[0]
	} else {
		root = mustFindWorkspace()
		path = config.SnapshotPath(root)
	}

	f, err := os.Open(path)
	if err != nil {
		exitWithError(exitCodeFor(err), "opening %s: %v", path, err)
	}
	marked, err := conflict.ParseMarkers(f)
	f.Close()
	if err != nil {
		var perr conflict.ParseError
		if errors.As(err, &perr) {
			exitWithError(ExitDataError, "parsing %s: %v", path, perr)
		}
		exitWithError(ExitError, "reading %s: %v", path, err)
	}

	if !marked.HasConflicts() {
		if humanOutput {
			fmt.Printf("No conflict markers in %s.\n", path)
			return nil
		}
		return outputJSON(ResolveResult{Path: path})
	}

	ours, theirs, err := marked.Documents()
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}

	cfg := workspaceConfigOrDefault()
	a := mustDetect(cfg, ours, theirs)

	res, strategy, err := resolveFlags.build(a, cfg)
	if err != nil {
		if errors.Is(err, errUnresolved) {
			reportUnresolved(a, res, strategy)
			return nil
		}
		exitWithError(exitCodeForResolutions(err), "%v", err)
	}

	merged, err := conflict.MergeWithResolutions(ours, theirs, a, res)
	if err != nil {
		exitWithError(exitCodeFor(err), "merging: %v", err)
	}

	result := ResolveResult{
		Path:      path,
		Regions:   marked.Regions,
		Strategy:  strategy,
		Summary:   res.Summarize(a),
		Analysis:  a,
		Decisions: effectiveDecisions(a, res),
	}

	if !resolveDryRun {
		if err := storage.WriteDocument(path, merged); err != nil {
			exitWithError(ExitError, "writing %s: %v", path, err)
		}
		result.Written = true

		if root == "" {
			root = workspaceOfSnapshot(path)
		}
		if root != "" {
			recordResolve(root, path, strategy, merged.LastModified, a, res)
		}
	}

	if humanOutput {
		printAnalysisHuman(a, res)
		verb := "Resolved"
		if resolveDryRun {
			verb = "Dry run: would resolve"
		}
		fmt.Printf("\n%s %d conflict regions in %s (%d accepted, %d kept, %d skipped).\n",
			verb, marked.Regions, path, result.Summary.Accepted, result.Summary.Kept, result.Summary.Skipped)
		return nil
	}
	return outputJSON(result)
}

// workspaceOfSnapshot returns the workspace root when path is a workspace's
// cv.json, and "" otherwise.
func workspaceOfSnapshot(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	dir := filepath.Dir(abs)
	root := filepath.Dir(dir)
	if filepath.Base(abs) != config.SnapshotFile || filepath.Base(dir) != config.WorkspaceDir || !config.IsWorkspace(root) {
		return ""
	}
	return root
}

// recordResolve appends a history entry for a resolved workspace snapshot.
func recordResolve(root, path, strategy string, at time.Time, a *conflict.Analysis, res conflict.Resolutions) {
	entry := storage.NewHistoryEntry("git:"+filepath.Base(path), strategy, at, a, res)
	if err := storage.AppendHistory(config.HistoryPath(root), entry); err != nil {
		logger.Warn("resolved snapshot written but history not recorded", "err", err)
		return
	}
	recordInCache(root, entry)
}
