/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log provides centralized slog-based logging for pamet.
// Records are enriched with the component (binder, map_page, storage, ...)
// and the operation (usually an action name) that produced them.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"pamet/internal/version"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger initialization.
// Values can be provided directly or via environment variables:
//   - PAMET_LOG_LEVEL=debug|info|warn|error
//   - PAMET_LOG_FORMAT=console|json
//   - PAMET_LOG_FILE=<path> (enables file logging with rotation)
//   - PAMET_LOG_SOURCE=true|false (include source)
//
// Output defaults to stderr and exists mainly so tests can capture console logs.
type Options struct {
	Level     string
	Format    string // "console" or "json"
	AddSource bool
	File      string
	Output    io.Writer
}

const (
	EnvLogLevel  = "PAMET_LOG_LEVEL"
	EnvLogFormat = "PAMET_LOG_FORMAT"
	EnvLogSource = "PAMET_LOG_SOURCE"
	EnvLogFile   = "PAMET_LOG_FILE"
)

var (
	defaultLoggerMu sync.RWMutex
	defaultLogger   *slog.Logger
	defaultLevel    = new(slog.LevelVar)
)

// L returns the default application logger, initializing from env if needed.
func L() *slog.Logger {
	defaultLoggerMu.RLock()
	l := defaultLogger
	defaultLoggerMu.RUnlock()
	if l != nil {
		return l
	}
	Init(FromEnv())
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// Init configures the global logger and sets slog.Default as well.
func Init(opts Options) {
	defaultLevel.Set(ParseLevel(opts.Level))
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var handlers []slog.Handler
	if format == "json" {
		handlers = append(handlers, slog.NewJSONHandler(out, &slog.HandlerOptions{Level: defaultLevel, AddSource: opts.AddSource}))
	} else {
		handlers = append(handlers, NewConsoleHandler(out, defaultLevel, opts.AddSource))
	}

	if f := strings.TrimSpace(opts.File); f != "" {
		w := &lj.Logger{Filename: f, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
		handlers = append(handlers, slog.NewJSONHandler(w, &slog.HandlerOptions{Level: defaultLevel, AddSource: opts.AddSource}))
	}

	h := handlers[0]
	if len(handlers) > 1 {
		h = Fanout(handlers...)
	}

	logger := slog.New(h).With(
		slog.String("app", "pamet"),
		slog.String("ver", version.Version),
		slog.Time("ts_init", time.Now()),
	)

	defaultLoggerMu.Lock()
	defaultLogger = logger
	defaultLoggerMu.Unlock()
	slog.SetDefault(logger)
}

// FromEnv builds Options from environment variables.
func FromEnv() Options {
	return Options{
		Level:     getenv(EnvLogLevel, "info"),
		Format:    getenv(EnvLogFormat, "console"),
		AddSource: strings.EqualFold(getenv(EnvLogSource, "false"), "true"),
		File:      os.Getenv(EnvLogFile),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// DebugEnabled reports whether the global level lets debug records through.
// The tracer uses it to skip formatting arguments nobody will read.
func DebugEnabled() bool { return defaultLevel.Level() <= slog.LevelDebug }

// WithComponent returns a logger with the component attribute pre-set.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation annotates the logger with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

// ParseLevel converts a string to slog.Level. Unknown values map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
