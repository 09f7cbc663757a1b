// Package telemetry wraps log/slog for the compiler's structured debug
// output: which path a request took, why can_emit rejected it, and
// registry hit/miss, all as structured fields rather than formatted text.
package telemetry

import (
	"io"
	"log/slog"
	"os"
)

// Logger is the compiler's structured logger. A nil *Logger is valid and
// discards everything, so callers never need a nil check before logging.
type Logger struct {
	slog *slog.Logger
}

// New constructs a Logger writing JSON lines to w at the given level.
func New(w io.Writer, level slog.Level) *Logger {
	return &Logger{slog: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))}
}

// Discard returns a Logger that drops everything, the default when a
// caller supplies no Config.Logger.
func Discard() *Logger {
	return New(io.Discard, slog.LevelError)
}

// Default returns a Logger writing human-readable text to stderr at Info
// level.
func Default() *Logger {
	return &Logger{slog: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))}
}

// CanEmitDecision logs one can_emit gate decision: which path was chosen, and why, for every
// compilation request when Config.DebugCanEmit is set.
func (l *Logger) CanEmitDecision(exprDigest string, accepted bool, reason string) {
	if l == nil {
		return
	}
	if accepted {
		l.slog.Debug("can_emit accepted", "digest", exprDigest)
		return
	}
	l.slog.Debug("can_emit rejected", "digest", exprDigest, "reason", reason)
}

// RegistryHit logs a registry cache hit or miss for a compiled digest.
func (l *Logger) RegistryHit(digest string, hit bool) {
	if l == nil {
		return
	}
	l.slog.Debug("registry lookup", "digest", digest, "hit", hit)
}

// CompileFailed logs a hard compilation failure.
func (l *Logger) CompileFailed(source string, err error) {
	if l == nil {
		return
	}
	l.slog.Error("compile failed", "source", source, "error", err)
}
