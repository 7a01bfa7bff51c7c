// Package xlog wires up one named logger per subsystem on top of
// go-logging, the way the engine's ambient components expect to log.
package xlog

import (
	"os"

	logging "github.com/op/go-logging"
)

var backendInitialized bool

// format mirrors the timestamp/level/module layout used across the
// subsystem loggers; kept in one place so every logger renders identically.
var format = logging.MustStringFormat(
	`%{time:15:04:05.000} %{level:.4s} %{module}: %{message}`,
)

// Get returns a logger for the named subsystem (e.g. "search", "tt",
// "uci", "nnue"). Call Init once at startup before using any logger.
func Get(module string) *logging.Logger {
	return logging.MustGetLogger(module)
}

// Init wires stderr as the backend at the given level for every module
// that hasn't set its own override. Level is one of go-logging's
// CRITICAL/ERROR/WARNING/NOTICE/INFO/DEBUG strings.
func Init(level string) {
	if backendInitialized {
		return
	}
	backendInitialized = true

	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(backend, format)
	leveled := logging.AddModuleLevel(formatted)

	lvl, err := logging.LogLevel(level)
	if err != nil {
		lvl = logging.INFO
	}
	leveled.SetLevel(lvl, "")

	logging.SetBackend(leveled)
}
