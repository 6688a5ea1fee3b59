package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matsen/cvmerge/internal/config"
	"github.com/matsen/cvmerge/internal/conflict"
)

// Strategy labels recorded in the merge history
const (
	strategyAcceptAll   = "accept-all"
	strategyKeepAll     = "keep-all"
	strategyFile        = "file"
	strategyInteractive = "interactive"
	strategyDefault     = "default"
)

// errUnresolved is returned under --strict when a conflict has no explicit decision.
var errUnresolved = errors.New("conflicts without a decision")

// resolutionFlags collects how a command decides conflicts. Shared by merge and resolve.
type resolutionFlags struct {
	acceptAll   bool
	keepAll     bool
	file        string
	decisions   []string // id=resolution pairs
	interactive bool
	strict      bool
}

func (f *resolutionFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.acceptAll, "accept-all", false, "Accept every incoming change")
	cmd.Flags().BoolVar(&f.keepAll, "keep-all", false, "Keep the current version of everything")
	cmd.Flags().StringVar(&f.file, "resolutions", "", "YAML file mapping conflict ids to keep, accept or skip")
	cmd.Flags().StringArrayVar(&f.decisions, "resolve", nil, "Decide one conflict, as id=keep|accept|skip (repeatable)")
	cmd.Flags().BoolVarP(&f.interactive, "interactive", "i", false, "Prompt for every conflict not decided otherwise")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Refuse to merge while any conflict lacks an explicit decision")
	cmd.MarkFlagsMutuallyExclusive("accept-all", "keep-all", "resolutions")
	cmd.MarkFlagsMutuallyExclusive("accept-all", "keep-all", "interactive")
}

// build returns the decisions for a and the strategy label to record.
// Explicit --resolve pairs always win over the bulk or file choice.
func (f *resolutionFlags) build(a *conflict.Analysis, cfg *config.Config) (conflict.Resolutions, string, error) {
	res := make(conflict.Resolutions)
	strategy := strategyDefault

	switch {
	case f.acceptAll:
		res = conflict.AcceptAllIncoming(a)
		strategy = strategyAcceptAll
	case f.keepAll:
		res = conflict.KeepAllCurrent(a)
		strategy = strategyKeepAll
	case f.file != "":
		loaded, err := loadResolutions(f.file)
		if err != nil {
			return nil, "", err
		}
		res = loaded
		strategy = strategyFile
	}

	pairs, err := parseDecisions(f.decisions)
	if err != nil {
		return nil, "", err
	}
	for id, r := range pairs {
		res[id] = r
	}

	if unknown := res.UnknownIDs(a); len(unknown) > 0 {
		return nil, "", fmt.Errorf("unknown conflict ids: %s", strings.Join(unknown, ", "))
	}

	if f.interactive {
		if err := promptResolutions(a, res); err != nil {
			return nil, "", err
		}
		strategy = strategyInteractive
	} else if strategy == strategyDefault && !f.strict {
		s, err := cfg.Strategy()
		if err != nil {
			return nil, "", err
		}
		if s == conflict.Accept {
			for id, r := range conflict.AcceptAllIncoming(a) {
				if _, ok := res[id]; !ok {
					res[id] = r
				}
			}
		}
	}

	if f.strict {
		if missing := undecided(a, res); len(missing) > 0 {
			return res, strategy, fmt.Errorf("%w: %s", errUnresolved, strings.Join(missing, ", "))
		}
	}

	return res, strategy, nil
}

// undecided lists conflict ids with no entry in res, in presentation order.
func undecided(a *conflict.Analysis, res conflict.Resolutions) []string {
	var ids []string
	for _, c := range a.Conflicts() {
		if _, ok := res[c.ConflictID()]; !ok {
			ids = append(ids, c.ConflictID())
		}
	}
	return ids
}

// loadResolutions reads a YAML map of conflict id to decision.
func loadResolutions(path string) (conflict.Resolutions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading resolutions: %w", err)
	}
	return parseResolutionsYAML(data)
}

func parseResolutionsYAML(data []byte) (conflict.Resolutions, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing resolutions: %w", err)
	}

	res := make(conflict.Resolutions, len(raw))
	for id, v := range raw {
		r, err := conflict.ParseResolution(v)
		if err != nil {
			return nil, fmt.Errorf("resolution for %s: %w", id, err)
		}
		res[id] = r
	}
	return res, nil
}

// parseDecisions parses id=resolution pairs. Conflict ids contain colons but
// never '=', so the last '=' separates the decision.
func parseDecisions(pairs []string) (conflict.Resolutions, error) {
	res := make(conflict.Resolutions, len(pairs))
	for _, p := range pairs {
		i := strings.LastIndex(p, "=")
		if i <= 0 {
			return nil, fmt.Errorf("invalid --resolve %q (expected id=keep|accept|skip)", p)
		}
		r, err := conflict.ParseResolution(p[i+1:])
		if err != nil {
			return nil, fmt.Errorf("invalid --resolve %q: %w", p, err)
		}
		res[strings.TrimSpace(p[:i])] = r
	}
	return res, nil
}

// resolutionOptions lists the choices that mean something for a change type.
func resolutionOptions(t conflict.ChangeType) []huh.Option[conflict.Resolution] {
	switch t {
	case conflict.Added:
		return []huh.Option[conflict.Resolution]{
			huh.NewOption("Add it", conflict.Accept),
			huh.NewOption("Leave it out", conflict.Skip),
		}
	case conflict.Removed:
		return []huh.Option[conflict.Resolution]{
			huh.NewOption("Keep it", conflict.Keep),
			huh.NewOption("Remove it", conflict.Accept),
		}
	}
	return []huh.Option[conflict.Resolution]{
		huh.NewOption("Keep current version", conflict.Keep),
		huh.NewOption("Use incoming version", conflict.Accept),
		huh.NewOption("Skip (same as keep)", conflict.Skip),
	}
}

// promptResolutions asks for a decision on every conflict not already in res.
func promptResolutions(a *conflict.Analysis, res conflict.Resolutions) error {
	pending := undecided(a, res)
	if len(pending) == 0 {
		return nil
	}
	logger.Infof("%d conflicts need a decision", len(pending))

	for i, id := range pending {
		c, _ := a.Lookup(id)
		title, detail := describeConflict(c)

		choice := res.For(c)
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[conflict.Resolution]().
					Title(fmt.Sprintf("(%d/%d) %s", i+1, len(pending), title)).
					Description(detail).
					Options(resolutionOptions(c.Change())...).
					Value(&choice),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("reading decision for %s: %w", id, err)
		}
		res[id] = choice
		logger.Debug("decided", "id", id, "resolution", choice)
	}
	return nil
}
