// Package logging sets up the process-wide zerolog logger used by every
// other package in this module.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the package-level logger every component logs through,
// mirroring the teacher's internal/core convention of a single shared
// zerolog.Logger rather than one instance per package.
var Logger zerolog.Logger

var once sync.Once

// Init configures Logger. pretty selects a human-readable console writer
// (the CLI commands always pass true); when false, Logger writes
// structured JSON lines suitable for a supervised service.
func Init(pretty bool, level zerolog.Level) {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339
		var w io.Writer = os.Stderr
		if pretty {
			w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		}
		Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
	})
}

// ForJob returns a child logger pre-populated with the fields nearly every
// translation-pipeline log line carries.
func ForJob(fingerprint, jobID string) zerolog.Logger {
	return Logger.With().
		Str("fingerprint", fingerprint).
		Str("job", jobID).
		Logger()
}
