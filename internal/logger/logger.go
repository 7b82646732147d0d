// SPDX-License-Identifier: Apache-2.0

// Package logger builds the server's slog logger from configuration.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/golang-auth/go-gssapi-acceptor/internal/config"
)

// New returns a logger for cfg.  The returned closer releases a log file, if one was
// opened, and is a no-op otherwise.
func New(cfg config.LoggingConfig) (*slog.Logger, io.Closer, error) {
	var output io.Writer
	closer := io.Closer(nopCloser{})

	switch strings.ToLower(cfg.Output) {
	case "stdout":
		output = os.Stdout
	case "stderr", "":
		output = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %q: %w", cfg.Output, err)
		}
		output, closer = f, f
	}

	logger, err := NewWithWriter(output, cfg.Level, cfg.Format)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}

	return logger, closer, nil
}

// NewWithWriter returns a logger writing to w.  This is primarily useful for testing.
func NewWithWriter(w io.Writer, level slog.Level, format string) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(format) {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}

	return nil, fmt.Errorf("unknown log format %q", format)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
