package packetconn

import (
	"log/slog"
	"sync"
	"testing"
)

func TestLogger_Interface(t *testing.T) {
	// Verify that *slog.Logger implements our Logger interface
	var _ Logger = slog.Default()
}

func TestDefaultLogger(t *testing.T) {
	logger := defaultLogger()

	if logger == nil {
		t.Fatal("defaultLogger returned nil")
	}

	if logger != slog.Default() {
		t.Error("defaultLogger did not return slog.Default()")
	}
}

// mockLogger records the last call and the last args of every message.
type mockLogger struct {
	mu       sync.Mutex
	lastMsg  string
	lastArgs []any
	calls    int
	byMsg    map[string][]any
}

func (l *mockLogger) record(msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	l.lastMsg = msg
	l.lastArgs = args
	if l.byMsg == nil {
		l.byMsg = make(map[string][]any)
	}
	l.byMsg[msg] = args
}

func (l *mockLogger) argsFor(msg string) ([]any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	args, ok := l.byMsg[msg]
	return args, ok
}

func (l *mockLogger) Debug(msg string, args ...any) { l.record(msg, args) }
func (l *mockLogger) Info(msg string, args ...any)  { l.record(msg, args) }
func (l *mockLogger) Warn(msg string, args ...any)  { l.record(msg, args) }
func (l *mockLogger) Error(msg string, args ...any) { l.record(msg, args) }

func TestClientLogger_PrefixesClientID(t *testing.T) {
	mock := &mockLogger{}
	logger := newClientLogger(mock, "abc")

	logger.Warn("write error", "error", "boom")

	if mock.lastMsg != "write error" {
		t.Errorf("lastMsg = %s, want 'write error'", mock.lastMsg)
	}

	want := []any{"client_id", "abc", "error", "boom"}
	if len(mock.lastArgs) != len(want) {
		t.Fatalf("lastArgs = %v, want %v", mock.lastArgs, want)
	}
	for i := range want {
		if mock.lastArgs[i] != want[i] {
			t.Errorf("lastArgs[%d] = %v, want %v", i, mock.lastArgs[i], want[i])
		}
	}
}

func TestClientLogger_DoesNotShareArgs(t *testing.T) {
	mock := &mockLogger{}
	logger := newClientLogger(mock, "abc")

	logger.Info("first", "k", 1)
	logger.Debug("second")

	if len(mock.lastArgs) != 2 {
		t.Errorf("lastArgs = %v, want only the client id", mock.lastArgs)
	}
	if prefix := *logger.args.Load(); len(prefix) != 2 {
		t.Errorf("prefix grew to %v", prefix)
	}
}

func TestClientLogger_Bind(t *testing.T) {
	mock := &mockLogger{}
	logger := newClientLogger(mock, "abc")

	logger.bind("addr", "127.0.0.1:7070")
	logger.Warn("dropping malformed packet", "consecutive", 1)

	want := []any{"client_id", "abc", "addr", "127.0.0.1:7070", "consecutive", 1}
	if len(mock.lastArgs) != len(want) {
		t.Fatalf("lastArgs = %v, want %v", mock.lastArgs, want)
	}
	for i := range want {
		if mock.lastArgs[i] != want[i] {
			t.Errorf("lastArgs[%d] = %v, want %v", i, mock.lastArgs[i], want[i])
		}
	}
}

// hasArg reports whether args holds key among its key/value pairs.
func hasArg(args []any, key string) bool {
	for i := 0; i+1 < len(args); i += 2 {
		if args[i] == key {
			return true
		}
	}
	return false
}
