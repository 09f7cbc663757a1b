package emit

import "fmt"

// Verify checks a Chunk's structural well-formedness: every jump target
// lands inside the code stream (or just past its end), every constant/member
// index and local slot in an instruction is in range, and the stream ends in
// a return or a branch. It does not check stack balance. It catches emitter
// bugs before a Chunk ever reaches the registry or the VM.
func Verify(c *Chunk) error {
	if len(c.Code) == 0 {
		return fmt.Errorf("emit: chunk %q has no instructions", c.Name)
	}
	for i, instr := range c.Code {
		switch instr.Op {
		case OpJump, OpJumpIfFalse, OpJumpIfTrue:
			if instr.A < 0 || int(instr.A) > len(c.Code) {
				return fmt.Errorf("emit: chunk %q instruction %d jumps to out-of-range offset %d", c.Name, i, instr.A)
			}
		case OpConstInt, OpConstLong, OpConstFloat, OpConstDouble, OpConstString, OpBox, OpUnbox:
			if instr.A < 0 || int(instr.A) >= len(c.Constants) {
				return fmt.Errorf("emit: chunk %q instruction %d references out-of-range constant %d", c.Name, i, instr.A)
			}
		case OpNew:
			if instr.A < 0 || int(instr.A) >= len(c.Constants) {
				return fmt.Errorf("emit: chunk %q instruction %d references out-of-range constant %d", c.Name, i, instr.A)
			}
			if instr.B < 0 || int(instr.B) >= len(c.Members) {
				return fmt.Errorf("emit: chunk %q instruction %d references out-of-range member %d", c.Name, i, instr.B)
			}
		case OpGetField, OpInvoke, OpInvokeStatic:
			if instr.A < 0 || int(instr.A) >= len(c.Members) {
				return fmt.Errorf("emit: chunk %q instruction %d references out-of-range member %d", c.Name, i, instr.A)
			}
		case OpLoadLocal, OpStoreLocal:
			if instr.A < 0 || int(instr.A) >= c.NumSlots {
				return fmt.Errorf("emit: chunk %q instruction %d references out-of-range slot %d", c.Name, i, instr.A)
			}
		}
	}
	last := c.Code[len(c.Code)-1]
	if last.Op != OpReturn && !isBranch(last.Op) {
		return fmt.Errorf("emit: chunk %q does not end in a return", c.Name)
	}
	return nil
}

func isBranch(op OpCode) bool {
	return op == OpJump || op == OpJumpIfFalse || op == OpJumpIfTrue
}
