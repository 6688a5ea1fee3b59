package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/cvmerge/internal/config"
	"github.com/matsen/cvmerge/internal/conflict"
	"github.com/matsen/cvmerge/internal/git"
)

var diffSince string

func init() {
	diffCmd.Flags().StringVar(&diffSince, "since", "", "Compare the workspace snapshot at a git revision against the working tree")
	rootCmd.AddCommand(diffCmd)
}

var diffCmd = &cobra.Command{
	Use:   "diff <incoming> | diff <current> <incoming> | diff --since <rev>",
	Short: "Show conflicts between the workspace snapshot and an import",
	Long: `Compare an incoming snapshot against the current one and list every conflict.

With one argument the current snapshot is the workspace's cv.json. With two
arguments both files are compared directly, using the workspace config if
there is one and defaults otherwise.

With --since the workspace snapshot as committed at that git revision is
compared against the working tree, showing what changed since then.

Conflict ids in the output are what 'cvm merge --resolve' and resolutions
files refer to.

Examples:
  cvm diff incoming.json
  cvm diff old.json new.json --human
  cvm diff --since HEAD~3`,
	Args: cobra.MaximumNArgs(2),
	RunE: runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	if diffSince != "" {
		if len(args) > 0 {
			exitWithError(ExitError, "--since takes no file arguments")
		}
		return runDiffSince()
	}
	if len(args) == 0 {
		exitWithError(ExitError, "expected an incoming snapshot (see cvm diff --help)")
	}

	var currentPath, incomingPath string
	var cfg *config.Config

	if len(args) == 1 {
		root := mustFindWorkspace()
		cfg = mustLoadConfig(root)
		currentPath, incomingPath = config.SnapshotPath(root), args[0]
	} else {
		cfg = workspaceConfigOrDefault()
		currentPath, incomingPath = args[0], args[1]
	}

	current := mustReadSnapshot(currentPath)
	incoming := mustReadSnapshot(incomingPath)
	return printAnalysis(mustDetect(cfg, current, incoming))
}

// runDiffSince compares the committed snapshot at --since with the working tree.
func runDiffSince() error {
	root := mustFindWorkspace()
	cfg := mustLoadConfig(root)
	path := config.SnapshotPath(root)

	repoRoot, err := git.FindRepoRoot(root)
	if err != nil {
		exitWithError(ExitConfigError, "%s is not in a git repository", root)
	}
	past, err := git.SnapshotAtCommit(repoRoot, diffSince, path)
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}
	logger.Debug("read committed snapshot", "rev", diffSince, "repo", repoRoot)

	return printAnalysis(mustDetect(cfg, past, mustReadSnapshot(path)))
}

func printAnalysis(a *conflict.Analysis) error {
	if humanOutput {
		printAnalysisHuman(a, nil)
		return nil
	}
	return outputJSON(a)
}

// workspaceConfigOrDefault loads the enclosing workspace's config, or the
// defaults when there is no workspace.
func workspaceConfigOrDefault() *config.Config {
	cwd, err := os.Getwd()
	if err != nil {
		return config.Default()
	}
	root, err := config.ResolveWorkspace(cwd)
	if err != nil {
		return config.Default()
	}
	return mustLoadConfig(root)
}
