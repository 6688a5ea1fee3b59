package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matsen/cvmerge/internal/cv"
	"github.com/matsen/cvmerge/internal/importer"
	"github.com/matsen/cvmerge/internal/storage"
)

// Supported import formats
const formatJSONResume = "jsonresume"

var (
	importFormat string
	importLocale string
	importOutput string
)

func init() {
	importCmd.Flags().StringVar(&importFormat, "format", formatJSONResume, "Import format (jsonresume)")
	importCmd.Flags().StringVar(&importLocale, "locale", "", "Locale of the export's free text (sv or en; default from config)")
	importCmd.Flags().StringVarP(&importOutput, "output", "o", "", "Write the snapshot to a file instead of stdout")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Convert an external CV export into a snapshot",
	Long: `Convert an external CV export into a normalized snapshot.

The snapshot can then be compared and merged with 'cvm diff' and 'cvm merge'.
Entity ids are derived from the entries themselves, so importing the same
export twice yields the same ids.

Entries missing required data are skipped and reported on stderr.

Usage:
  cvm import resume.json > incoming.json
  cvm import resume.json --locale en -o incoming.json

Supported formats:
  jsonresume  - JSON Resume (jsonresume.org)`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

// ImportResult summarizes a conversion written with --output.
type ImportResult struct {
	Path   string   `json:"path"`
	Roles  int      `json:"roles"`
	Skills int      `json:"skills"`
	Errors []string `json:"errors"`
}

func runImport(cmd *cobra.Command, args []string) error {
	if importFormat != formatJSONResume {
		exitWithError(ExitError, "unsupported format: %s (supported: %s)", importFormat, formatJSONResume)
	}

	locale := resolveImportLocale()

	data, err := os.ReadFile(args[0])
	if err != nil {
		exitWithError(ExitDataError, "reading %s: %v", args[0], err)
	}

	doc, errs := importer.ParseJSONResume(data, locale)
	if len(errs) == 1 && errors.Is(errs[0], importer.ErrInvalidExport) {
		exitWithError(ExitDataError, "parsing %s: %v", args[0], errs[0])
	}
	doc.LastModified = time.Now().UTC()

	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		logger.Warn("skipped entry", "file", args[0], "err", e)
		msgs = append(msgs, e.Error())
	}

	if importOutput == "" {
		return outputJSON(doc)
	}

	if err := storage.WriteDocument(importOutput, doc); err != nil {
		exitWithError(ExitError, "writing %s: %v", importOutput, err)
	}

	if humanOutput {
		fmt.Printf("Imported %d roles and %d skills to %s\n", len(doc.Roles), len(doc.Skills), importOutput)
		if len(msgs) > 0 {
			fmt.Printf("Skipped %d entries (see warnings above)\n", len(msgs))
		}
		return nil
	}
	return outputJSON(ImportResult{
		Path:   importOutput,
		Roles:  len(doc.Roles),
		Skills: len(doc.Skills),
		Errors: msgs,
	})
}

// resolveImportLocale uses --locale, then the workspace default.
func resolveImportLocale() cv.Locale {
	if importLocale != "" {
		l, err := cv.ParseLocale(importLocale)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		return l
	}

	return workspaceConfigOrDefault().Locale()
}
