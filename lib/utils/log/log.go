/*
 * Gitscape
 * Copyright (C) 2025  Gitscape, Inc.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package log provides the shared logging setup of the gitscape binaries
// on top of log/slog.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gravitational/trace"
)

// Config configures the process wide default logger.
type Config struct {
	// Severity is the minimum level emitted, one of SupportedLevelsText.
	// An empty severity means INFO.
	Severity string
	// Format is the output encoding, "text" or "json".
	Format string
	// Output receives the log records. Defaults to stderr.
	Output io.Writer
}

// Initialize configures and installs the default slog logger. The
// returned LevelVar can be used to adjust verbosity at runtime.
func Initialize(cfg Config) (*slog.Logger, *slog.LevelVar, error) {
	level := new(slog.LevelVar)
	if cfg.Severity != "" {
		parsed, err := parseLevel(cfg.Severity)
		if err != nil {
			return nil, nil, trace.Wrap(err)
		}
		level.Set(parsed)
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelName,
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		handler = slog.NewTextHandler(output, opts)
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		return nil, nil, trace.BadParameter("unsupported log format %q", cfg.Format)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, level, nil
}

// NewPackageLogger creates a logger with the provided attributes attached
// to every record. Packages declare one at init time:
//
//	var logger = logutils.NewPackageLogger(gitscape.ComponentKey, "auth")
func NewPackageLogger(args ...any) *slog.Logger {
	return slog.With(args...)
}

// DiscardLogger is a logger that drops all records, handy in tests.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func parseLevel(severity string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(severity)) {
	case TraceLevelText:
		return TraceLevel, nil
	case slog.LevelDebug.String():
		return slog.LevelDebug, nil
	case slog.LevelInfo.String():
		return slog.LevelInfo, nil
	case slog.LevelWarn.String(), "WARNING":
		return slog.LevelWarn, nil
	case slog.LevelError.String():
		return slog.LevelError, nil
	}
	return slog.LevelInfo, trace.BadParameter("unsupported log severity %q, expected one of %v",
		severity, strings.Join(SupportedLevelsText, ", "))
}

// replaceLevelName renders the custom trace level with its text name
// instead of slog's DEBUG-1.
func replaceLevelName(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if level, ok := a.Value.Any().(slog.Level); ok && level == TraceLevel {
		a.Value = slog.StringValue(TraceLevelText)
	}
	return a
}
