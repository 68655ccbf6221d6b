// Package luacli holds the flag wiring, logging setup, and diagnostic
// formatting shared by the luacompiler and luavm commands, grounded on
// the teacher's cmd/zb main.go (initLogging) and internal/luac
// (disassembly listing).
package luacli

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"zombiezen.com/go/log"

	"lua53vm.dev/lua/internal/luaast"
	"lua53vm.dev/lua/internal/luacode"
	"lua53vm.dev/lua/internal/lualex"
)

var initLogOnce sync.Once

// InitLogging installs a zombiezen.com/go/log default logger writing
// to stderr with the given progName prefix, at Debug level if debug is
// set and Info otherwise. Safe to call more than once; only the first
// call takes effect, mirroring the teacher's sync.Once guard.
func InitLogging(progName string, debug bool) {
	initLogOnce.Do(func() {
		minLevel := log.Info
		if debug {
			minLevel = log.Debug
		}
		log.SetDefault(&log.LevelFilter{
			Min:    minLevel,
			Output: log.New(os.Stderr, progName+": ", log.StdFlags, nil),
		})
	})
}

// Diagnostic renders err as the single-line "error: <kind> at
// <file>:<line>:<col>" format §6 requires. A LoadError, which carries
// no position, is rendered as "error: <kind> at <file>"; any other error
// (e.g. an I/O error opening the input file) falls back to a bare
// "error: <message>".
func Diagnostic(file string, err error) string {
	switch e := err.(type) {
	case *lualex.LexError:
		return fmt.Sprintf("error: %s at %s:%d:%d", e.Kind, file, e.Position.Line, e.Position.Column)
	case *luaast.ParseError:
		return fmt.Sprintf("error: %s at %s:%d:%d", e.Kind, file, e.Position.Line, e.Position.Column)
	case *luacode.CompileError:
		return fmt.Sprintf("error: %s at %s:%d:%d", e.Kind, file, e.Line, e.Column)
	case *luacode.LoadError:
		return fmt.Sprintf("error: %s at %s", e.Kind, file)
	default:
		return fmt.Sprintf("error: %v", err)
	}
}

// StdoutIsTerminal reports whether stdout is an interactive terminal,
// used to decide whether -l/--list disassembly gets ANSI colorized.
func StdoutIsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// Debugf logs a debug-level trace line through the package default
// logger, used by luavm's --debug call tracing.
func Debugf(format string, args ...any) {
	log.Debugf(context.Background(), format, args...)
}

// Errorf logs an error-level line through the package default logger.
func Errorf(format string, args ...any) {
	log.Errorf(context.Background(), format, args...)
}
