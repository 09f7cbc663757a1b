package emit

import (
	"fmt"
	"strings"
)

// Disassemble renders c as a human-readable instruction listing, one line
// per instruction, in the style of a compiler's -S output. It is a
// debugging and golden-test aid, never part of the compilation hot path.
func Disassemble(c *Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "chunk %s (%d slots)\n", c.Name, c.NumSlots)
	for i, instr := range c.Code {
		fmt.Fprintf(&b, "%4d  %-16s", i, instr.Op.String())
		switch instr.Op {
		case OpConstInt, OpConstLong, OpConstFloat, OpConstDouble, OpConstString:
			if int(instr.A) < len(c.Constants) {
				fmt.Fprintf(&b, " #%d (%v)", instr.A, c.Constants[instr.A])
			}
		case OpGetField, OpInvoke, OpInvokeStatic:
			if int(instr.A) < len(c.Members) {
				m := c.Members[instr.A]
				fmt.Fprintf(&b, " %s.%s/%d", m.Owner, m.Name, m.Arity)
			}
		case OpNew:
			if int(instr.B) < len(c.Members) {
				m := c.Members[instr.B]
				fmt.Fprintf(&b, " %s.%s/%d", m.Owner, m.Name, m.Arity)
			}
		case OpBox, OpUnbox:
			if int(instr.A) < len(c.Constants) {
				fmt.Fprintf(&b, " #%d (%v)", instr.A, c.Constants[instr.A])
			}
		case OpLoadLocal, OpStoreLocal:
			fmt.Fprintf(&b, " slot%d", instr.A)
		case OpJump, OpJumpIfFalse, OpJumpIfTrue:
			fmt.Fprintf(&b, " -> %d", instr.A)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
