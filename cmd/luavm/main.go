// Command luavm executes a Lua 5.3 source or bytecode file.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lua53vm.dev/lua/internal/luaast"
	"lua53vm.dev/lua/internal/luabc"
	"lua53vm.dev/lua/internal/luacli"
	"lua53vm.dev/lua/internal/luacode"
	"lua53vm.dev/lua/internal/luavm"
)

type options struct {
	inputFile string
	list      bool
	debug     bool
}

// loadError wraps a failure to load (as opposed to run) the input, so
// main can tell a §6 exit-2 condition apart from an exit-1 RuntimeError.
type loadError struct{ err error }

func (e *loadError) Error() string { return e.err.Error() }
func (e *loadError) Unwrap() error { return e.err }

func main() {
	opts := new(options)
	c := &cobra.Command{
		Use:                   "luavm FILE",
		Short:                 "execute a Lua source or bytecode file",
		Args:                  cobra.ExactArgs(1),
		DisableFlagsInUseLine: true,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	c.Flags().BoolVarP(&opts.list, "list", "l", false, "print a disassembly listing to stdout before running")
	c.Flags().BoolVar(&opts.debug, "debug", false, "trace CALL/RETURN to stderr")
	c.RunE = func(cmd *cobra.Command, args []string) error {
		opts.inputFile = args[0]
		return run(opts)
	}

	err := c.Execute()
	if err == nil {
		return
	}
	var le *loadError
	if errors.As(err, &le) {
		fmt.Fprintln(os.Stderr, luacli.Diagnostic(opts.inputFile, le.err))
		os.Exit(2)
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func run(opts *options) error {
	luacli.InitLogging("luavm", opts.debug)

	proto, err := load(opts.inputFile)
	if err != nil {
		return &loadError{err}
	}

	if opts.list {
		luacli.List(os.Stdout, proto, luacli.StdoutIsTerminal())
	}

	vm := luavm.New(os.Stdout)
	vm.Debug = opts.debug
	_, err = vm.Run(proto, nil)
	return err
}

func load(path string) (*luacode.Prototype, error) {
	if strings.HasSuffix(path, ".luabc") || strings.HasSuffix(path, luabc.CompressedSuffix) {
		return luabc.LoadFile(path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	chunk, err := luaast.Parse(path, strings.NewReader(string(src)))
	if err != nil {
		return nil, err
	}
	return luacode.Compile(chunk)
}
