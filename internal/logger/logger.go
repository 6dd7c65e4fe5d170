// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-03
// Last Modified: 2026-10-06

// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds a logger writing to stderr and installs it as the global logger.
// format "json" emits one JSON object per line; anything else is human readable.
func New(level, format string) zerolog.Logger {
	return NewWithWriter(os.Stderr, level, format)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if strings.EqualFold(format, "json") {
		zerolog.TimeFieldFormat = time.RFC3339
		logger = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		logger = zerolog.New(output).Level(lvl).With().Timestamp().Logger()
	}

	log.Logger = logger
	return logger
}
