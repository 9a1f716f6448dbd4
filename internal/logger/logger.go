package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Initialize sets up the global logger with the specified settings.
// Logs are written to stderr so that agent output on stdout stays clean.
func Initialize(debug bool) {
	InitializeWithWriter(debug, os.Stderr)
}

// InitializeWithWriter is Initialize with an explicit destination
func InitializeWithWriter(debug bool, w io.Writer) {
	// Pretty print logs in development
	if debug {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Add caller info to log
	log.Logger = log.With().Caller().Logger()
}

// Get returns the global logger instance
func Get() *zerolog.Logger {
	return &log.Logger
}
