// Package logger provides the logging interface shared by hookstat components.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Logger defines the interface for logging throughout the application.
// Different implementations can be used for different contexts (console, silent, captured).
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

var (
	infoPrefix  = color.New(color.FgGreen).Sprint("[INFO]")
	errorPrefix = color.New(color.FgRed, color.Bold).Sprint("[ERROR]")
	debugPrefix = color.New(color.FgHiBlack).Sprint("[DEBUG]")
)

// ConsoleLogger writes human-readable logs to stderr, errors included.
// Stdout is left to report output.
type ConsoleLogger struct {
	verbose bool
}

// NewConsoleLogger creates a console logger. Debug lines are only written when verbose is set.
func NewConsoleLogger(verbose bool) *ConsoleLogger {
	return &ConsoleLogger{verbose: verbose}
}

func (c *ConsoleLogger) Info(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, infoPrefix+" "+msg+"\n", args...)
}

func (c *ConsoleLogger) Error(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, errorPrefix+" "+msg+"\n", args...)
}

func (c *ConsoleLogger) Debug(msg string, args ...interface{}) {
	if !c.verbose {
		return
	}
	fmt.Fprintf(os.Stderr, debugPrefix+" "+msg+"\n", args...)
}

// SilentLogger discards all log messages.
// Used when running in TUI or MCP mode to prevent log output from interfering with the display.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}

// WriterLogger writes plain, uncoloured lines to an io.Writer.
// It is safe for concurrent use and is what tests use to capture diagnostics.
type WriterLogger struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterLogger creates a logger writing to w.
func NewWriterLogger(w io.Writer) *WriterLogger {
	return &WriterLogger{w: w}
}

func (l *WriterLogger) Info(msg string, args ...interface{})  { l.write("[INFO] ", msg, args) }
func (l *WriterLogger) Error(msg string, args ...interface{}) { l.write("[ERROR] ", msg, args) }
func (l *WriterLogger) Debug(msg string, args ...interface{}) { l.write("[DEBUG] ", msg, args) }

func (l *WriterLogger) write(prefix, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, prefix+msg+"\n", args...)
}
