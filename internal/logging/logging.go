// Package logging configures the process-wide standard logger.
//
// Log lines always go to stderr (stdout carries the MCP protocol when it is
// enabled). When a file is configured the same lines are also written to a
// size-rotated log file.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls Setup.
type Options struct {
	// Level is "debug" to enable Debugf output; anything else is info.
	Level string

	// File is an optional log file path. Empty disables file logging.
	File string

	// MaxSizeMB and MaxBackups control rotation of File.
	MaxSizeMB  int
	MaxBackups int
}

var debug atomic.Bool

// Setup points the standard logger at stderr and, optionally, a rotating
// file. The returned closer flushes the file and is never nil.
func Setup(opts Options) io.Closer {
	SetLevel(opts.Level)

	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stderr, rotator)
		closer = rotator
	}

	log.SetOutput(out)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	return closer
}

// SetLevel switches debug output on for "debug" and off otherwise.
func SetLevel(level string) {
	debug.Store(strings.EqualFold(strings.TrimSpace(level), "debug"))
}

// DebugEnabled reports whether Debugf prints.
func DebugEnabled() bool {
	return debug.Load()
}

// Debugf logs through the standard logger when debug output is enabled.
func Debugf(format string, args ...any) {
	if debug.Load() {
		log.Output(2, "DEBUG "+fmt.Sprintf(format, args...))
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
