package packetconn

import (
	"log/slog"
	"sync/atomic"
)

// Logger is the interface for structured logging.
// It is satisfied by *slog.Logger; applications can plug in their own.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// defaultLogger returns the default slog logger from the standard library.
func defaultLogger() Logger {
	return slog.Default()
}

// clientLogger prefixes every record with the client id and, once the
// client is connected, the remote address.
type clientLogger struct {
	base Logger
	args atomic.Pointer[[]any]
}

func newClientLogger(base Logger, id string) *clientLogger {
	l := &clientLogger{base: base}
	args := []any{"client_id", id}
	l.args.Store(&args)
	return l
}

// bind adds key/value pairs to every later record.
func (l *clientLogger) bind(args ...any) {
	merged := l.merge(args)
	l.args.Store(&merged)
}

func (l *clientLogger) merge(args []any) []any {
	prefix := *l.args.Load()
	return append(append(make([]any, 0, len(prefix)+len(args)), prefix...), args...)
}

func (l *clientLogger) Debug(msg string, args ...any) { l.base.Debug(msg, l.merge(args)...) }
func (l *clientLogger) Info(msg string, args ...any)  { l.base.Info(msg, l.merge(args)...) }
func (l *clientLogger) Warn(msg string, args ...any)  { l.base.Warn(msg, l.merge(args)...) }
func (l *clientLogger) Error(msg string, args ...any) { l.base.Error(msg, l.merge(args)...) }
