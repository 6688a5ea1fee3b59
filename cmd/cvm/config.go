package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/cvmerge/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set configuration values",
	Long: `Get or set workspace configuration values.

Usage:
  cvm config                          # Show all config
  cvm config match_threshold          # Get specific value
  cvm config match_threshold 0.6      # Set value
  cvm config default_strategy accept  # Accept incoming changes by default

Keys:
  match_threshold    Minimum score for two roles to be the same (0-1, default 0.5)
  shared_candidates  Let several current roles match one incoming role (true/false)
  default_locale     Locale for imported free text (sv or en)
  default_strategy   Decision for undecided conflicts in a merge (keep or accept)`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	cfg := mustLoadConfig(root)

	if len(args) == 0 {
		if humanOutput {
			for _, k := range config.Keys() {
				v, _ := cfg.Get(k)
				fmt.Printf("%-18s %s\n", k+":", v)
			}
			return nil
		}
		return outputJSON(cfg)
	}

	key := args[0]
	if len(args) == 1 {
		v, err := cfg.Get(key)
		if err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
		if humanOutput {
			fmt.Println(v)
			return nil
		}
		return outputJSON(map[string]string{key: v})
	}

	if err := cfg.Set(key, args[1]); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := cfg.Save(root); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	v, _ := cfg.Get(key)
	if humanOutput {
		fmt.Printf("Set %s = %s\n", key, v)
		return nil
	}
	return outputJSON(UpdateResponse{Status: "updated", Key: key, Value: v})
}
