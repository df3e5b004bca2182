package log

import (
	"testing"
)

// NewTestingLogger returns a Logger that writes through t.Log when the test
// binary runs with -v and discards everything otherwise.
func NewTestingLogger(t testing.TB) Logger {
	t.Helper()
	if !testing.Verbose() {
		return NewNopLogger()
	}
	return NewTestingLoggerWithLevel(t, LogLevelDebug)
}

// NewTestingLoggerWithLevel is NewTestingLogger with an explicit level.
func NewTestingLoggerWithLevel(t testing.TB, level string) Logger {
	t.Helper()
	logger, err := NewLogger(testingWriter{t}, LogFormatPlain, level)
	if err != nil {
		t.Fatalf("failed to create testing logger: %v", err)
	}
	return logger
}

type testingWriter struct {
	t testing.TB
}

func (tw testingWriter) Write(in []byte) (int, error) {
	tw.t.Log(string(in))
	return len(in), nil
}
