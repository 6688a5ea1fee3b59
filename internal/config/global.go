package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/cvmerge/config.yml.
type GlobalConfig struct {
	WorkspacePath string `yaml:"workspace_path,omitempty"`
	LogLevel      string `yaml:"log_level,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "cvmerge"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"

	// WorkspaceEnv overrides every other way of locating the workspace.
	WorkspaceEnv = "CVMERGE_WORKSPACE"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/cvmerge/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}

	if cfg.WorkspacePath != "" {
		cfg.WorkspacePath = ExpandPath(cfg.WorkspacePath)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// GetConfigValue returns the environment variable if set, otherwise configValue.
func GetConfigValue(envKey, configValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return configValue
}

// ResolveWorkspace locates the workspace root: CVMERGE_WORKSPACE first, then
// a .cvmerge directory at or above start, then workspace_path from the global
// config.
func ResolveWorkspace(start string) (string, error) {
	if env := os.Getenv(WorkspaceEnv); env != "" {
		root := ExpandPath(env)
		if !IsWorkspace(root) {
			return "", fmt.Errorf("%s=%s: %w", WorkspaceEnv, env, ErrWorkspaceNotFound)
		}
		return root, nil
	}

	root, err := FindWorkspace(start)
	if err == nil {
		return root, nil
	}
	if !errors.Is(err, ErrWorkspaceNotFound) {
		return "", err
	}

	cfg, gerr := LoadGlobalConfig()
	if gerr != nil {
		return "", gerr
	}
	if cfg.WorkspacePath != "" && IsWorkspace(cfg.WorkspacePath) {
		return cfg.WorkspacePath, nil
	}
	return "", err
}

// HelpfulConfigMessage explains how to point cvm at a workspace.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`No cvmerge workspace found.

Run 'cvm init' to create one here, set %s, or create %s:
  mkdir -p %s
  echo 'workspace_path: /path/to/your/cv' > %s`,
		WorkspaceEnv,
		configPath,
		filepath.Dir(configPath),
		configPath)
}
