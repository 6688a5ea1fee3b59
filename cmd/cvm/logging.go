package main

import (
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matsen/cvmerge/internal/config"
)

// logLevelEnv overrides the configured log level.
const logLevelEnv = "CVMERGE_LOG_LEVEL"

// logger writes diagnostics to stderr so stdout stays machine-readable.
var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "cvm"})

// setupLogging picks the level: --verbose, then CVMERGE_LOG_LEVEL, then
// log_level from the global config, then warn.
func setupLogging(verbose bool) {
	logger.SetLevel(resolveLogLevel(verbose))
}

func resolveLogLevel(verbose bool) log.Level {
	if verbose {
		return log.DebugLevel
	}

	var configured string
	if cfg, err := config.LoadGlobalConfig(); err == nil {
		configured = cfg.LogLevel
	}
	name := strings.TrimSpace(config.GetConfigValue(logLevelEnv, configured))
	if name == "" {
		return log.WarnLevel
	}
	level, err := log.ParseLevel(name)
	if err != nil {
		logger.Warn("ignoring invalid log level", "value", name)
		return log.WarnLevel
	}
	return level
}
