package log

import (
	"io"
	"os"

	"gopkg.in/Sirupsen/logrus.v0"
)

// Level mirrors logrus levels, from the most to the least severe.
type Level uint8

const (
	PanicLevel Level = iota
	FatalLevel
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
)

func init() {
	// Filtering is done per module, so let everything through logrus.
	logrus.SetLevel(logrus.DebugLevel)
	logrus.SetOutput(os.Stderr)
}

// Disable silences all log output and clears the debug module mask.
func Disable() {
	modDebugMask = 0
	logrus.SetOutput(io.Discard)
}

// SetOutput redirects log output to w.
func SetOutput(w io.Writer) {
	logrus.SetOutput(w)
}

// Context is implemented by components that add fields (emulated clock,
// current thread, ...) to every log entry.
type Context interface {
	AddLogContext(z *EntryZ)
}

var contexts []Context

// AddContext registers a log context.
func AddContext(c Context) {
	contexts = append(contexts, c)
}

// ResetContexts removes all registered log contexts.
func ResetContexts() {
	contexts = nil
}
