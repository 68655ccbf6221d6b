package luacli

import (
	"fmt"
	"io"

	"lua53vm.dev/lua/internal/luacode"
)

// ANSI SGR codes used to colorize the -l/--list disassembly when
// stdout is a terminal ([StdoutIsTerminal]), grounded on the teacher's
// plain (uncolored) internal/luac printFunction but extended per §6's
// addition.
const (
	colorReset  = "\x1b[0m"
	colorOpcode = "\x1b[36m"
	colorConst  = "\x1b[33m"
)

// List writes a disassembly listing of proto (and, recursively, its
// nested prototypes) to w, matching the shape of the teacher's
// internal/luac printFunction: a header line, a params/slots/constants
// summary, then one line per instruction.
func List(w io.Writer, proto *luacode.Prototype, color bool) {
	listOne(w, proto, "main", color)
}

func listOne(w io.Writer, proto *luacode.Prototype, name string, color bool) {
	fmt.Fprintf(w, "\nfunction <%s:%d> (%d instructions)\n", proto.Source, proto.Line, len(proto.Code))
	fmt.Fprintf(w, "%d params, %d slots, %d constants, %d functions\n",
		proto.NumParams, proto.FrameSize, len(proto.Constants), len(proto.Functions))

	opColor, reset := "", ""
	if color {
		opColor, reset = colorOpcode, colorReset
	}
	for pc, instr := range proto.Code {
		fmt.Fprintf(w, "\t%d\t%s%s%s", pc+1, opColor, instr.OpCode(), reset)
		if instr.OpCode() == luacode.OpLoadK && color {
			if k := int(instr.ArgBx()); k < len(proto.Constants) {
				fmt.Fprintf(w, "\t%s; %v%s", colorConst, proto.Constants[k], colorReset)
			}
		}
		fmt.Fprintln(w)
	}

	for i, fn := range proto.Functions {
		listOne(w, fn, fmt.Sprintf("%s[%d]", name, i), color)
	}
}
