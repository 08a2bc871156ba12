package main

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// setupLog configures the global logger. Logging goes to the file named by
// SPEECH_LOGFILE, or is discarded when unset; stdout stays clean for
// whatever the command prints.
func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)

	logFile := os.Getenv("SPEECH_LOGFILE")
	if logFile == "" {
		return func() error { return nil }, nil
	}

	f, err := os.OpenFile(logFile, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644) //nolint:gosec
	if err != nil {
		return nil, err
	}

	log.SetOutput(f)
	log.SetLevel(log.DebugLevel)
	log.SetReportTimestamp(true)
	return f.Close, nil
}
