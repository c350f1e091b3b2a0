// Package plog supplies the subsystem loggers shared by the peer manager and
// its entrypoint, following the single-backend/many-subsystem-logger layout
// used throughout the reference node daemon this package is modeled on.
package plog

import (
	"os"

	"github.com/btcsuite/btclog"
)

var backendLog = btclog.NewBackend(os.Stdout)

// NewSubLogger creates a logger for a single subsystem tagged with the given
// four-letter subsystem name, e.g. "PEER" or "CNCT".
func NewSubLogger(subsystem string) btclog.Logger {
	l := backendLog.Logger(subsystem)
	l.SetLevel(btclog.LevelInfo)

	return l
}

// SetLevel adjusts the verbosity of each logger passed in.
// It must be called before any log statement that should observe the new
// level, since btclog loggers cache nothing that would prevent this.
func SetLevel(lvl btclog.Level, loggers ...btclog.Logger) {
	for _, l := range loggers {
		l.SetLevel(lvl)
	}
}

// LevelFromString parses a level name ("trace", "debug", "info", "warn",
// "error", "critical", "off"), defaulting to Info on an unrecognized name.
func LevelFromString(s string) btclog.Level {
	lvl, ok := btclog.LevelFromString(s)
	if !ok {
		return btclog.LevelInfo
	}

	return lvl
}
