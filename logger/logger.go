// Package logger defines the structured logging interface every other
// package depends on, so that swapping the backing implementation (zerolog
// today) never ripples through the rest of the tree.
package logger

// Level is a logging verbosity level, independent of any backing library.
type Level int8

const (
	Disabled Level = iota
	PanicLevel
	FatalLevel
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
	TraceLevel
	NoLevel
)

// Logger is the structured logger every component depends on. Grounded on
// pkg/logger/logger.go's method set, with GetLevel/SetLevel carried over
// from its core.Logger counterpart for runtime verbosity control.
type Logger interface {
	WithField(key string, value any) Logger
	WithFields(fields map[string]any) Logger
	WithError(err error) Logger

	GetLevel() Level
	SetLevel(level Level)

	Print(args ...any)
	Trace(args ...any)
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
	Fatal(args ...any)
	Panic(args ...any)

	Printf(format string, args ...any)
	Tracef(format string, args ...any)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
	Panicf(format string, args ...any)
}
