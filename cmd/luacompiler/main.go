// Command luacompiler compiles a Lua 5.3 source file into a .luabc
// bytecode container.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lua53vm.dev/lua/internal/luaast"
	"lua53vm.dev/lua/internal/luabc"
	"lua53vm.dev/lua/internal/luacli"
	"lua53vm.dev/lua/internal/luacode"
)

type options struct {
	inputFile  string
	outputFile string
	list       bool
	compress   bool
	debug      bool
}

func main() {
	opts := new(options)
	c := &cobra.Command{
		Use:                   "luacompiler FILE",
		Short:                 "compile a Lua source file to bytecode",
		Args:                  cobra.ExactArgs(1),
		DisableFlagsInUseLine: true,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	c.Flags().StringVarP(&opts.outputFile, "output", "o", "", "output `file` (default: input with .luabc suffix)")
	c.Flags().BoolVarP(&opts.list, "list", "l", false, "print a disassembly listing to stdout")
	c.Flags().BoolVar(&opts.compress, "compress", false, "bzip2-compress the output container")
	c.Flags().BoolVar(&opts.debug, "debug", false, "show debugging output")
	c.RunE = func(cmd *cobra.Command, args []string) error {
		opts.inputFile = args[0]
		return run(opts)
	}

	if err := c.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, luacli.Diagnostic(opts.inputFile, err))
		os.Exit(1)
	}
}

func run(opts *options) error {
	luacli.InitLogging("luacompiler", opts.debug)

	src, err := os.ReadFile(opts.inputFile)
	if err != nil {
		return err
	}
	chunk, err := luaast.Parse(opts.inputFile, strings.NewReader(string(src)))
	if err != nil {
		return err
	}
	proto, err := luacode.Compile(chunk)
	if err != nil {
		return err
	}

	if opts.list {
		luacli.List(os.Stdout, proto, luacli.StdoutIsTerminal())
	}

	outputFile := opts.outputFile
	if outputFile == "" {
		outputFile = strings.TrimSuffix(opts.inputFile, ".lua") + ".luabc"
	}
	if opts.compress && !strings.HasSuffix(outputFile, luabc.CompressedSuffix) {
		outputFile += luabc.CompressedSuffix
	}
	return luabc.WriteFile(outputFile, proto, opts.compress)
}
