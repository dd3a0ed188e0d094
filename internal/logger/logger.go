package logger

import (
	"io"
	"log"
	"os"
	"sync/atomic"
)

var (
	// Default logger writes to stderr
	std = log.New(os.Stderr, "[cxxbind] ", log.LstdFlags)

	debug atomic.Bool
)

func SetOutput(output io.Writer) {
	std.SetOutput(output)
}

// SetDebug enables or disables Debugf output.
func SetDebug(enabled bool) {
	debug.Store(enabled)
}

func DebugEnabled() bool {
	return debug.Load()
}

func Printf(format string, v ...any) {
	std.Printf(format, v...)
}

func Println(v ...any) {
	std.Println(v...)
}

// Debugf logs only when debug output is enabled.
func Debugf(format string, v ...any) {
	if debug.Load() {
		std.Printf("DEBUG: "+format, v...)
	}
}

func Fatal(v ...any) {
	std.Fatal(v...)
}

func Fatalf(format string, v ...any) {
	std.Fatalf(format, v...)
}
