// Package emit implements the direct bytecode emitter: a compiler from
// lowered EIR straight to a native stack-bytecode artifact (Chunk) for the
// subset of expressions it can handle, backed by a capability gate
// (CanEmit/DiagnoseRejection) that routes anything outside that subset to
// the host-compiler fallback instead of failing the whole request.
package emit

import "fmt"

// OpCode is one instruction in a Chunk's code stream.
type OpCode byte

const (
	// Stack manipulation and constants.
	OpConstInt OpCode = iota
	OpConstLong
	OpConstFloat
	OpConstDouble
	OpConstString
	OpConstNull
	OpConstTrue
	OpConstFalse
	OpPop
	OpDup

	// Locals. A and B are always present in the instruction word; locals
	// are addressed by slot index (slot 0 is the receiver, slot 1 the eval
	// context, the rest as allocated by the compiler's slot table).
	OpLoadLocal
	OpStoreLocal

	// Arithmetic, issued already widened to a common operand type by the
	// compiler.
	OpIAdd
	OpISub
	OpIMul
	OpIDiv
	OpIMod
	OpLAdd
	OpLSub
	OpLMul
	OpLDiv
	OpLMod
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpDAdd
	OpDSub
	OpDMul
	OpDDiv

	OpINeg
	OpLNeg
	OpFNeg
	OpDNeg

	OpIAnd
	OpIOr
	OpIXor
	OpIShl
	OpIShr
	OpLAnd
	OpLOr
	OpLXor
	OpLShl
	OpLShr
	OpBNot // boolean logical-not
	OpINot // bitwise complement

	// Comparisons push a boolean. The F/D variants are NaN-safe: any
	// comparison involving NaN other than != yields false.
	OpIEq
	OpINe
	OpILt
	OpILe
	OpIGt
	OpIGe
	OpLEq
	OpLNe
	OpLLt
	OpLLe
	OpLGt
	OpLGe
	OpFEq
	OpFNe
	OpFLt
	OpFLe
	OpFGt
	OpFGe
	OpDEq
	OpDNe
	OpDLt
	OpDLe
	OpDGt
	OpDGe
	OpRefEq
	OpRefNe

	// String concatenation (BinConcat — at least one String operand).
	OpStrConcat

	// Conversions. Each named Conv<From><To> widens or narrows the top of
	// stack in place.
	OpConvIToL
	OpConvIToF
	OpConvIToD
	OpConvLToF
	OpConvLToD
	OpConvFToD
	OpConvLToI
	OpConvFToI
	OpConvDToI
	OpConvFToL
	OpConvDToL
	OpConvDToF

	// OpBox converts the value on top of the stack to the named host type
	// a resolved constructor/method parameter expects (A indexes the
	// target reflect.Type in Constants); OpUnbox converts a resolved
	// method's named return type back down to the plain predeclared type
	// the VM's arithmetic ops expect.
	OpBox
	OpUnbox

	// Control flow. Jump targets are absolute code offsets patched after
	// the branch body is emitted.
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue // used for short-circuit && / ||

	// Field/method access, resolved ahead of time by the compiler against
	// the reflective method cache; A indexes into Chunk.Members, except for
	// OpNew, whose A indexes the constructor in Chunk.Constants and whose B
	// indexes Chunk.Members.
	OpGetField
	OpInvoke
	OpInvokeStatic
	OpNew
	OpArrayLoad

	OpReturn
)

var opNames = map[OpCode]string{
	OpConstInt: "const_int", OpConstLong: "const_long", OpConstFloat: "const_float",
	OpConstDouble: "const_double", OpConstString: "const_string", OpConstNull: "const_null",
	OpConstTrue: "const_true", OpConstFalse: "const_false", OpPop: "pop", OpDup: "dup",
	OpLoadLocal: "load_local", OpStoreLocal: "store_local",
	OpIAdd: "iadd", OpISub: "isub", OpIMul: "imul", OpIDiv: "idiv", OpIMod: "imod",
	OpLAdd: "ladd", OpLSub: "lsub", OpLMul: "lmul", OpLDiv: "ldiv", OpLMod: "lmod",
	OpFAdd: "fadd", OpFSub: "fsub", OpFMul: "fmul", OpFDiv: "fdiv",
	OpDAdd: "dadd", OpDSub: "dsub", OpDMul: "dmul", OpDDiv: "ddiv",
	OpINeg: "ineg", OpLNeg: "lneg", OpFNeg: "fneg", OpDNeg: "dneg",
	OpIAnd: "iand", OpIOr: "ior", OpIXor: "ixor", OpIShl: "ishl", OpIShr: "ishr",
	OpLAnd: "land", OpLOr: "lor", OpLXor: "lxor", OpLShl: "lshl", OpLShr: "lshr",
	OpBNot: "bnot", OpINot: "inot",
	OpIEq: "ieq", OpINe: "ine", OpILt: "ilt", OpILe: "ile", OpIGt: "igt", OpIGe: "ige",
	OpLEq: "leq", OpLNe: "lne", OpLLt: "llt", OpLLe: "lle", OpLGt: "lgt", OpLGe: "lge",
	OpFEq: "feq", OpFNe: "fne", OpFLt: "flt", OpFLe: "fle", OpFGt: "fgt", OpFGe: "fge",
	OpDEq: "deq", OpDNe: "dne", OpDLt: "dlt", OpDLe: "dle", OpDGt: "dgt", OpDGe: "dge",
	OpRefEq: "ref_eq", OpRefNe: "ref_ne",
	OpStrConcat: "str_concat",
	OpConvIToL:  "i2l", OpConvIToF: "i2f", OpConvIToD: "i2d",
	OpConvLToF: "l2f", OpConvLToD: "l2d", OpConvFToD: "f2d",
	OpConvLToI: "l2i", OpConvFToI: "f2i", OpConvDToI: "d2i",
	OpConvFToL: "f2l", OpConvDToL: "d2l", OpConvDToF: "d2f",
	OpBox: "box", OpUnbox: "unbox",
	OpJump: "jump", OpJumpIfFalse: "jump_if_false", OpJumpIfTrue: "jump_if_true",
	OpGetField: "get_field", OpInvoke: "invoke", OpInvokeStatic: "invoke_static",
	OpNew: "new", OpArrayLoad: "array_load",
	OpReturn: "return",
}

func (op OpCode) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", byte(op))
}

// Instruction is one decoded bytecode word: an opcode plus up to two
// operands, whose meaning is opcode-specific (constant pool index, slot
// index, member index, or absolute jump offset).
type Instruction struct {
	Op   OpCode
	A, B int32
	Line int // source line, carried for diagnostics only — never affects digesting
}

// Member describes one resolved field/method/constructor reference an
// OpGetField/OpInvoke/OpInvokeStatic instruction's A operand (or an OpNew
// instruction's B operand) indexes into.
type Member struct {
	Owner  string // class or well-known-class name
	Name   string
	Arity  int
	Static bool
}

// Chunk is the emitted bytecode artifact for one evaluator — the Go-native
// analogue of a compiled class file: no JVM exists to host an actual class
// file here, so the direct emitter's output is this in-process,
// interpretable artifact instead.
type Chunk struct {
	Name      string
	Code      []Instruction
	Constants []any
	Members   []Member
	NumSlots  int // total local slots, including receiver/context reserved slots
}

// AddConstant interns v into the constant pool, returning its index.
func (c *Chunk) AddConstant(v any) int32 {
	for i, existing := range c.Constants {
		if existing == v {
			return int32(i)
		}
	}
	c.Constants = append(c.Constants, v)
	return int32(len(c.Constants) - 1)
}

// AddMember interns m into the member table, returning its index.
func (c *Chunk) AddMember(m Member) int32 {
	for i, existing := range c.Members {
		if existing == m {
			return int32(i)
		}
	}
	c.Members = append(c.Members, m)
	return int32(len(c.Members) - 1)
}

func (c *Chunk) emit(op OpCode, a, b int32, line int) int {
	c.Code = append(c.Code, Instruction{Op: op, A: a, B: b, Line: line})
	return len(c.Code) - 1
}

func (c *Chunk) patchJumpTarget(at int, target int32) {
	c.Code[at].A = target
}
