// Package config handles workspace configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/matsen/cvmerge/internal/conflict"
	"github.com/matsen/cvmerge/internal/cv"
)

// Config represents workspace configuration stored in .cvmerge/config.json.
type Config struct {
	MatchThreshold   float64 `json:"match_threshold"`   // Minimum role match score, in (0, 1]
	SharedCandidates bool    `json:"shared_candidates"` // Non-exclusive role matching
	DefaultLocale    string  `json:"default_locale"`    // Locale for imported free text
	DefaultStrategy  string  `json:"default_strategy"`  // keep or accept, for unattended merges
}

const (
	WorkspaceDir = ".cvmerge"
	ConfigFile   = "config.json"
	SnapshotFile = "cv.json"
	HistoryFile  = "history.jsonl"
	CacheDir     = "cache"
	DBFile       = "history.db"
)

// ErrWorkspaceNotFound is returned when no workspace encloses a path.
var ErrWorkspaceNotFound = errors.New("not in a cvmerge workspace (no .cvmerge directory found)")

// Default returns the configuration written by a fresh workspace.
func Default() *Config {
	return &Config{
		MatchThreshold:  conflict.DefaultMatchThreshold,
		DefaultLocale:   string(cv.LocaleSV),
		DefaultStrategy: string(conflict.Keep),
	}
}

// WorkspacePath returns the path to the .cvmerge directory from a root path.
func WorkspacePath(root string) string {
	return filepath.Join(root, WorkspaceDir)
}

// ConfigPath returns the path to config.json from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, WorkspaceDir, ConfigFile)
}

// SnapshotPath returns the path to the current snapshot from a root path.
func SnapshotPath(root string) string {
	return filepath.Join(root, WorkspaceDir, SnapshotFile)
}

// HistoryPath returns the path to history.jsonl from a root path.
func HistoryPath(root string) string {
	return filepath.Join(root, WorkspaceDir, HistoryFile)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, WorkspaceDir, CacheDir)
}

// DBPath returns the path to history.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, WorkspaceDir, CacheDir, DBFile)
}

// IsWorkspace checks if the given path contains a cvmerge workspace.
func IsWorkspace(root string) bool {
	info, err := os.Stat(WorkspacePath(root))
	return err == nil && info.IsDir()
}

// FindWorkspace walks up from the given path to find a workspace.
func FindWorkspace(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsWorkspace(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", ErrWorkspaceNotFound
		}
		abs = parent
	}
}

// Load reads configuration from the workspace at the given root. A missing
// file yields the defaults; unset fields take their default values.
func Load(root string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to the workspace at the given root.
func (c *Config) Save(root string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("invalid match_threshold: %v (must be in (0, 1])", c.MatchThreshold)
	}
	if _, err := cv.ParseLocale(c.DefaultLocale); err != nil {
		return fmt.Errorf("invalid default_locale: %w", err)
	}
	if _, err := c.Strategy(); err != nil {
		return err
	}
	return nil
}

// Locale returns the default locale. Validate first.
func (c *Config) Locale() cv.Locale {
	l, _ := cv.ParseLocale(c.DefaultLocale)
	return l
}

// Strategy returns the resolution applied to every conflict of an unattended merge.
func (c *Config) Strategy() (conflict.Resolution, error) {
	r, err := conflict.ParseResolution(c.DefaultStrategy)
	if err != nil || r == conflict.Skip {
		return "", fmt.Errorf("invalid default_strategy: %q (valid: keep, accept)", c.DefaultStrategy)
	}
	return r, nil
}

// Detector returns a conflict detector configured from c.
func (c *Config) Detector() conflict.Detector {
	return conflict.Detector{Threshold: c.MatchThreshold, SharedCandidates: c.SharedCandidates}
}

// Keys lists the settable configuration keys.
func Keys() []string {
	keys := make([]string, 0, len(accessors))
	for k := range accessors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type accessor struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

var accessors = map[string]accessor{
	"match_threshold": {
		get: func(c *Config) string { return strconv.FormatFloat(c.MatchThreshold, 'g', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid match_threshold: %s", v)
			}
			c.MatchThreshold = f
			return nil
		},
	},
	"shared_candidates": {
		get: func(c *Config) string { return strconv.FormatBool(c.SharedCandidates) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid shared_candidates: %s", v)
			}
			c.SharedCandidates = b
			return nil
		},
	},
	"default_locale": {
		get: func(c *Config) string { return c.DefaultLocale },
		set: func(c *Config, v string) error { c.DefaultLocale = v; return nil },
	},
	"default_strategy": {
		get: func(c *Config) string { return c.DefaultStrategy },
		set: func(c *Config, v string) error { c.DefaultStrategy = v; return nil },
	},
}

// Get returns the value of a key as a string.
func (c *Config) Get(key string) (string, error) {
	a, ok := accessors[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %s (valid: %v)", key, Keys())
	}
	return a.get(c), nil
}

// Set parses and assigns a key, then validates the whole config. On error c is unchanged.
func (c *Config) Set(key, value string) error {
	a, ok := accessors[key]
	if !ok {
		return fmt.Errorf("unknown config key: %s (valid: %v)", key, Keys())
	}
	next := *c
	if err := a.set(&next, value); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
