package export

import (
	"io"
	"log"

	"github.com/davecgh/go-spew/spew"
)

// Logger is a leveled wrapper around log.Logger. Debug output is dropped
// unless enabled.
type Logger struct {
	out   *log.Logger
	debug bool
}

// NewLogger writes to w.
func NewLogger(w io.Writer, debug bool) *Logger {
	return &Logger{out: log.New(w, "", log.LstdFlags), debug: debug}
}

// DiscardLogger drops everything.
func DiscardLogger() *Logger {
	return NewLogger(io.Discard, false)
}

func (l *Logger) Infof(format string, args ...any) { l.out.Printf("INFO: "+format, args...) }
func (l *Logger) Warnf(format string, args ...any) { l.out.Printf("WARN: "+format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.out.Printf("ERROR: "+format, args...) }

func (l *Logger) Debugf(format string, args ...any) {
	if l.debug {
		l.out.Printf("DEBUG: "+format, args...)
	}
}

// Dump logs a deep print of v at debug level.
func (l *Logger) Dump(label string, v any) {
	if l.debug {
		l.out.Printf("DEBUG: %s:\n%s", label, spew.Sdump(v))
	}
}
