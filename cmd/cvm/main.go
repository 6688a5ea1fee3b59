// Package main provides the cvm CLI entry point.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/matsen/cvmerge/internal/config"
	"github.com/matsen/cvmerge/internal/conflict"
	"github.com/matsen/cvmerge/internal/cv"
	"github.com/matsen/cvmerge/internal/git"
	"github.com/matsen/cvmerge/internal/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	verbose     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cvm",
	Short: "Import CV snapshots without losing local edits",
	Long: `cvm keeps a bilingual (sv/en) CV in a workspace and merges new exports into it.

Each import is compared against the current snapshot. Differences are
classified per field, role and skill, and nothing changes until you accept it.
Roles are matched heuristically when ids differ between exports.

Data is stored as git-versionable JSON with a JSONL merge history and an
ephemeral SQLite cache. All commands output JSON by default; use --human for text.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		setupLogging(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.Version = Version
}

// mustFindWorkspace finds the workspace root, exits on error.
func mustFindWorkspace() string {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	root, err := config.ResolveWorkspace(cwd)
	if err != nil {
		if errors.Is(err, config.ErrWorkspaceNotFound) {
			fmt.Fprintln(os.Stderr, config.HelpfulConfigMessage())
			os.Exit(ExitConfigError)
		}
		exitWithError(ExitConfigError, "locating workspace: %v", err)
	}
	logger.Debug("workspace", "root", root)
	return root
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig(root string) *config.Config {
	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustOpenDatabase opens the history cache, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(root string) *storage.DB {
	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}
	db, err := storage.OpenDB(config.DBPath(root))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

// mustReadSnapshot reads and validates a snapshot file, exits on error.
func mustReadSnapshot(path string) cv.Document {
	doc, err := storage.ReadDocument(path)
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}
	return doc
}

// mustDetect compares two snapshots with the workspace settings, exits on error.
func mustDetect(cfg *config.Config, current, incoming cv.Document) *conflict.Analysis {
	a, err := cfg.Detector().Detect(current, incoming)
	if err != nil {
		exitWithError(exitCodeFor(err), "detecting conflicts: %v", err)
	}
	logger.Debug("analysis", "conflicts", a.TotalConflicts,
		"roles", len(a.Roles), "skills", len(a.Skills))
	return a
}

// exitCodeFor maps an error to the exit code documented for its class.
func exitCodeFor(err error) int {
	switch {
	case cv.IsValidationError(err):
		return ExitDataError
	case errors.Is(err, storage.ErrStaleSnapshot), errors.Is(err, storage.ErrLocked):
		return ExitStale
	case errors.Is(err, config.ErrWorkspaceNotFound):
		return ExitConfigError
	case errors.Is(err, os.ErrNotExist), errors.Is(err, git.ErrFileNotTracked):
		return ExitDataError
	case errors.Is(err, git.ErrCommitNotFound):
		return ExitError
	}
	return ExitError
}
