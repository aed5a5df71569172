package core

import (
	"fmt"
	"log"
	"os"
)

// Logger is the logging contract every component is configured with. It is
// never accessed as a package-level global; each component receives one
// through its Configure/New constructor, the way the teacher's PipelineItems
// receive a Logger via ConfigLogger.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// stdLogger is the default Logger, writing to stderr with a level prefix.
type stdLogger struct {
	verbose bool
	out     *log.Logger
}

// NewLogger returns the default Logger implementation.
func NewLogger() Logger {
	return &stdLogger{out: log.New(os.Stderr, "", log.LstdFlags)}
}

// NewVerboseLogger returns a Logger that also emits Debugf calls.
func NewVerboseLogger() Logger {
	return &stdLogger{verbose: true, out: log.New(os.Stderr, "", log.LstdFlags)}
}

func (l *stdLogger) Debugf(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.out.Output(2, "DEBUG "+fmt.Sprintf(format, args...))
}

func (l *stdLogger) Infof(format string, args ...interface{}) {
	l.out.Output(2, "INFO  "+fmt.Sprintf(format, args...))
}

func (l *stdLogger) Warnf(format string, args ...interface{}) {
	l.out.Output(2, "WARN  "+fmt.Sprintf(format, args...))
}

func (l *stdLogger) Errorf(format string, args ...interface{}) {
	l.out.Output(2, "ERROR "+fmt.Sprintf(format, args...))
}

// NopLogger discards everything; used in tests that don't care about log output.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...interface{}) {}
func (NopLogger) Infof(string, ...interface{})  {}
func (NopLogger) Warnf(string, ...interface{})  {}
func (NopLogger) Errorf(string, ...interface{}) {}
