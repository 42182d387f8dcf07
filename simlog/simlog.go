// Package simlog provides a package-level, swappable logging surface for
// scene tick diagnostics. It mirrors the teacher's logging.go preference
// for an io.Writer-backed package function over a logger instance threaded
// through every constructor.
package simlog

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

var (
	mu     sync.Mutex
	out    = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds)
	debug  bool
)

// SetLogWriter redirects all subsequent Logf/Debugf output to w.
func SetLogWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = log.New(w, "", log.LstdFlags|log.Lmicroseconds)
}

// SetDebug toggles whether Debugf lines are emitted.
func SetDebug(enabled bool) {
	mu.Lock()
	debug = enabled
	mu.Unlock()
}

// Logf writes an info-level line, prefixed "sim:".
func Logf(format string, args ...any) {
	mu.Lock()
	w := out
	mu.Unlock()
	w.Print("sim: " + fmt.Sprintf(format, args...))
}

// Debugf writes a line only when SetDebug(true) has been called; used for
// internal contract-violation diagnostics (spec.md §7's "logs internal
// contract violations in debug builds only").
func Debugf(format string, args ...any) {
	mu.Lock()
	w, dbg := out, debug
	mu.Unlock()
	if !dbg {
		return
	}
	w.Print("sim debug: " + fmt.Sprintf(format, args...))
}
