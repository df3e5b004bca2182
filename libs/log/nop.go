package log

import (
	"github.com/rs/zerolog"
)

// NewNopLogger returns a Logger that drops every entry.
func NewNopLogger() Logger {
	return &defaultLogger{Logger: zerolog.Nop()}
}
