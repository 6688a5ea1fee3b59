package main

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (no workspace, invalid config)
	ExitDataError   = 3 // Data error (malformed snapshot, validation failure)
	ExitUnresolved  = 4 // Merge refused: conflicts without an explicit decision under --strict
	ExitStale       = 5 // Snapshot changed (or is locked) since it was read
)
