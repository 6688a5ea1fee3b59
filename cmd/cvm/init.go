package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matsen/cvmerge/internal/config"
	"github.com/matsen/cvmerge/internal/cv"
	"github.com/matsen/cvmerge/internal/storage"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new cvm workspace",
	Long: `Initialize a new cvm workspace in the current directory.

Creates:
  .cvmerge/
  ├── cv.json         # Empty current snapshot
  ├── config.json     # Default config
  ├── history.jsonl   # Empty merge history
  ├── .gitignore      # Ignores cache/
  └── cache/          # SQLite history cache (gitignored)`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	if config.IsWorkspace(root) {
		exitWithError(ExitError, "directory already contains a cvm workspace")
	}

	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		exitWithError(ExitError, "creating %s: %v", config.WorkspaceDir, err)
	}

	empty := cv.Document{Roles: []cv.Role{}, Skills: []cv.Skill{}}
	if err := storage.WriteDocument(config.SnapshotPath(root), empty); err != nil {
		exitWithError(ExitError, "creating %s: %v", config.SnapshotFile, err)
	}

	if err := config.Default().Save(root); err != nil {
		exitWithError(ExitError, "creating %s: %v", config.ConfigFile, err)
	}

	historyFile, err := os.Create(config.HistoryPath(root))
	if err != nil {
		exitWithError(ExitError, "creating %s: %v", config.HistoryFile, err)
	}
	historyFile.Close()

	ignore := filepath.Join(config.WorkspacePath(root), ".gitignore")
	if err := os.WriteFile(ignore, []byte(config.CacheDir+"/\n"), 0644); err != nil {
		exitWithError(ExitError, "creating .gitignore: %v", err)
	}

	logger.Debug("initialized workspace", "root", root)
	if humanOutput {
		fmt.Printf("Initialized cvm workspace in %s\n", root)
	} else {
		outputJSON(StatusResponse{Status: "initialized", Path: root})
	}
	return nil
}
