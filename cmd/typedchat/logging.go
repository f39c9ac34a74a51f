package main

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/pario-ai/typedchat/pkg/config"
)

// newLogger builds the CLI logger. Output goes to stderr so stdout carries
// only answers and tables.
func newLogger(cfg config.LogConfig) zerolog.Logger {
	return newLoggerTo(os.Stderr, cfg)
}

func newLoggerTo(out io.Writer, cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	w := out
	if cfg.Format != "json" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly, NoColor: true}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
