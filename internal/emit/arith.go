package emit

import (
	"github.com/cwbudde/exprforge/internal/ir"
	"github.com/cwbudde/exprforge/internal/types"
)

// compileBinary widens both operands to their common type before emitting the type-specific opcode, or
// emits the single boolean/string/reference-equality opcode a binary
// operator that is not arithmetic maps to directly.
func (c *Compiler) compileBinary(n *ir.Binary) error {
	if n.Op == ir.BinAndAnd || n.Op == ir.BinOrOr {
		return c.compileShortCircuit(n)
	}
	if n.Op == ir.BinConcat {
		if err := c.compileExpr(n.Left); err != nil {
			return err
		}
		if err := c.compileExpr(n.Right); err != nil {
			return err
		}
		c.chunk.emit(OpStrConcat, 0, 0, 0)
		return nil
	}
	if n.Op == ir.BinRefEq || n.Op == ir.BinRefNe {
		if err := c.compileExpr(n.Left); err != nil {
			return err
		}
		if err := c.compileExpr(n.Right); err != nil {
			return err
		}
		if n.Op == ir.BinRefEq {
			c.chunk.emit(OpRefEq, 0, 0, 0)
		} else {
			c.chunk.emit(OpRefNe, 0, 0, 0)
		}
		return nil
	}

	lt, rt := c.inferType(n.Left), c.inferType(n.Right)
	var common types.PrimitiveTag
	if lt.IsPrimitive() && rt.IsPrimitive() {
		common = types.Widen(lt.Primitive, rt.Primitive)
	} else {
		common = types.Int
	}

	if err := c.compileExpr(n.Left); err != nil {
		return err
	}
	c.emitConversion(lt, types.Prim(common))
	if err := c.compileExpr(n.Right); err != nil {
		return err
	}
	c.emitConversion(rt, types.Prim(common))

	c.chunk.emit(opFor(n.Op, common), 0, 0, 0)
	return nil
}

// compileShortCircuit emits && / || without evaluating the right operand
// unless the left operand's value leaves the outcome undetermined.
func (c *Compiler) compileShortCircuit(n *ir.Binary) error {
	if err := c.compileExpr(n.Left); err != nil {
		return err
	}
	var shortCircuit int
	if n.Op == ir.BinAndAnd {
		shortCircuit = c.chunk.emit(OpJumpIfFalse, 0, 0, 0)
	} else {
		shortCircuit = c.chunk.emit(OpJumpIfTrue, 0, 0, 0)
	}
	if err := c.compileExpr(n.Right); err != nil {
		return err
	}
	jumpToEnd := c.chunk.emit(OpJump, 0, 0, 0)
	c.chunk.patchJumpTarget(shortCircuit, int32(len(c.chunk.Code)))
	if n.Op == ir.BinAndAnd {
		c.chunk.emit(OpConstFalse, 0, 0, 0)
	} else {
		c.chunk.emit(OpConstTrue, 0, 0, 0)
	}
	c.chunk.patchJumpTarget(jumpToEnd, int32(len(c.chunk.Code)))
	return nil
}

func opFor(op ir.BinaryOp, t types.PrimitiveTag) OpCode {
	table := map[types.PrimitiveTag]map[ir.BinaryOp]OpCode{
		types.Int: {
			ir.BinAdd: OpIAdd, ir.BinSub: OpISub, ir.BinMul: OpIMul, ir.BinDiv: OpIDiv, ir.BinMod: OpIMod,
			ir.BinEq: OpIEq, ir.BinNe: OpINe, ir.BinLt: OpILt, ir.BinLe: OpILe, ir.BinGt: OpIGt, ir.BinGe: OpIGe,
			ir.BinBitAnd: OpIAnd, ir.BinBitOr: OpIOr, ir.BinBitXor: OpIXor, ir.BinShl: OpIShl, ir.BinShr: OpIShr,
		},
		types.Long: {
			ir.BinAdd: OpLAdd, ir.BinSub: OpLSub, ir.BinMul: OpLMul, ir.BinDiv: OpLDiv, ir.BinMod: OpLMod,
			ir.BinEq: OpLEq, ir.BinNe: OpLNe, ir.BinLt: OpLLt, ir.BinLe: OpLLe, ir.BinGt: OpLGt, ir.BinGe: OpLGe,
			ir.BinBitAnd: OpLAnd, ir.BinBitOr: OpLOr, ir.BinBitXor: OpLXor, ir.BinShl: OpLShl, ir.BinShr: OpLShr,
		},
		types.Float: {
			ir.BinAdd: OpFAdd, ir.BinSub: OpFSub, ir.BinMul: OpFMul, ir.BinDiv: OpFDiv,
			ir.BinEq: OpFEq, ir.BinNe: OpFNe, ir.BinLt: OpFLt, ir.BinLe: OpFLe, ir.BinGt: OpFGt, ir.BinGe: OpFGe,
		},
		types.Double: {
			ir.BinAdd: OpDAdd, ir.BinSub: OpDSub, ir.BinMul: OpDMul, ir.BinDiv: OpDDiv,
			ir.BinEq: OpDEq, ir.BinNe: OpDNe, ir.BinLt: OpDLt, ir.BinLe: OpDLe, ir.BinGt: OpDGt, ir.BinGe: OpDGe,
		},
	}
	return table[t][op]
}

func (c *Compiler) emitUnary(op ir.UnaryOp, t types.Descriptor) {
	switch op {
	case ir.UnaryNot:
		c.chunk.emit(OpBNot, 0, 0, 0)
	case ir.UnaryBitNot:
		c.chunk.emit(OpINot, 0, 0, 0)
	case ir.UnaryNeg:
		switch widenPrimitive(t) {
		case types.Long:
			c.chunk.emit(OpLNeg, 0, 0, 0)
		case types.Float:
			c.chunk.emit(OpFNeg, 0, 0, 0)
		case types.Double:
			c.chunk.emit(OpDNeg, 0, 0, 0)
		default:
			c.chunk.emit(OpINeg, 0, 0, 0)
		}
	}
}

func (c *Compiler) emitCompoundOp(op ir.AssignOp, t types.Descriptor) {
	prim := widenPrimitive(t)
	var binOp ir.BinaryOp
	switch op {
	case ir.AssignAdd:
		binOp = ir.BinAdd
	case ir.AssignSub:
		binOp = ir.BinSub
	case ir.AssignMul:
		binOp = ir.BinMul
	case ir.AssignDiv:
		binOp = ir.BinDiv
	case ir.AssignMod:
		binOp = ir.BinMod
	}
	c.chunk.emit(opFor(binOp, prim), 0, 0, 0)
}

func widenPrimitive(t types.Descriptor) types.PrimitiveTag {
	if t.IsPrimitive() {
		return t.Primitive
	}
	return types.Int
}

// emitConversion inserts the narrowing/widening opcode needed to move a
// value of type from on top of stack to type to, or nothing if they already
// agree.
func (c *Compiler) emitConversion(from, to types.Descriptor) {
	if !from.IsPrimitive() || !to.IsPrimitive() || from.Primitive == to.Primitive {
		return
	}
	conversions := map[types.PrimitiveTag]map[types.PrimitiveTag]OpCode{
		types.Int: {
			types.Long: OpConvIToL, types.Float: OpConvIToF, types.Double: OpConvIToD,
		},
		types.Long: {
			types.Float: OpConvLToF, types.Double: OpConvLToD, types.Int: OpConvLToI,
		},
		types.Float: {
			types.Double: OpConvFToD, types.Int: OpConvFToI, types.Long: OpConvFToL,
		},
		types.Double: {
			types.Int: OpConvDToI, types.Long: OpConvDToL, types.Float: OpConvDToF,
		},
	}
	if op, ok := conversions[from.Primitive][to.Primitive]; ok {
		c.chunk.emit(op, 0, 0, 0)
	}
}
