package vm

import "github.com/cwbudde/exprforge/internal/emit"

// runArith executes one typed arithmetic or comparison opcode. Separated
// from run's main dispatch loop because it is pure stack-in stack-out
// logic with no control-flow or member-table dependency, the same split
// the emitter keeps between compiler.go and arith.go.
func (m *machine) runArith(op emit.OpCode) error {
	switch op {
	case emit.OpIAdd, emit.OpISub, emit.OpIMul, emit.OpIDiv, emit.OpIMod,
		emit.OpIAnd, emit.OpIOr, emit.OpIXor, emit.OpIShl, emit.OpIShr,
		emit.OpIEq, emit.OpINe, emit.OpILt, emit.OpILe, emit.OpIGt, emit.OpIGe:
		r, l := m.pop().(int32), m.pop().(int32)
		return m.pushIntResult(op, l, r)

	case emit.OpLAdd, emit.OpLSub, emit.OpLMul, emit.OpLDiv, emit.OpLMod,
		emit.OpLAnd, emit.OpLOr, emit.OpLXor, emit.OpLShl, emit.OpLShr,
		emit.OpLEq, emit.OpLNe, emit.OpLLt, emit.OpLLe, emit.OpLGt, emit.OpLGe:
		r, l := m.pop().(int64), m.pop().(int64)
		return m.pushLongResult(op, l, r)

	case emit.OpFAdd, emit.OpFSub, emit.OpFMul, emit.OpFDiv,
		emit.OpFEq, emit.OpFNe, emit.OpFLt, emit.OpFLe, emit.OpFGt, emit.OpFGe:
		r, l := m.pop().(float32), m.pop().(float32)
		return m.pushFloatResult(op, l, r)

	case emit.OpDAdd, emit.OpDSub, emit.OpDMul, emit.OpDDiv,
		emit.OpDEq, emit.OpDNe, emit.OpDLt, emit.OpDLe, emit.OpDGt, emit.OpDGe:
		r, l := m.pop().(float64), m.pop().(float64)
		return m.pushDoubleResult(op, l, r)
	}
	return errUnknownOp(op)
}

func (m *machine) pushIntResult(op emit.OpCode, l, r int32) error {
	switch op {
	case emit.OpIAdd:
		m.push(l + r)
	case emit.OpISub:
		m.push(l - r)
	case emit.OpIMul:
		m.push(l * r)
	case emit.OpIDiv:
		if r == 0 {
			return errDivByZero("int")
		}
		m.push(l / r)
	case emit.OpIMod:
		if r == 0 {
			return errDivByZero("int")
		}
		m.push(l % r)
	case emit.OpIAnd:
		m.push(l & r)
	case emit.OpIOr:
		m.push(l | r)
	case emit.OpIXor:
		m.push(l ^ r)
	case emit.OpIShl:
		m.push(l << uint(r))
	case emit.OpIShr:
		m.push(l >> uint(r))
	case emit.OpIEq:
		m.push(l == r)
	case emit.OpINe:
		m.push(l != r)
	case emit.OpILt:
		m.push(l < r)
	case emit.OpILe:
		m.push(l <= r)
	case emit.OpIGt:
		m.push(l > r)
	case emit.OpIGe:
		m.push(l >= r)
	default:
		return errUnknownOp(op)
	}
	return nil
}

func (m *machine) pushLongResult(op emit.OpCode, l, r int64) error {
	switch op {
	case emit.OpLAdd:
		m.push(l + r)
	case emit.OpLSub:
		m.push(l - r)
	case emit.OpLMul:
		m.push(l * r)
	case emit.OpLDiv:
		if r == 0 {
			return errDivByZero("long")
		}
		m.push(l / r)
	case emit.OpLMod:
		if r == 0 {
			return errDivByZero("long")
		}
		m.push(l % r)
	case emit.OpLAnd:
		m.push(l & r)
	case emit.OpLOr:
		m.push(l | r)
	case emit.OpLXor:
		m.push(l ^ r)
	case emit.OpLShl:
		m.push(l << uint(r))
	case emit.OpLShr:
		m.push(l >> uint(r))
	case emit.OpLEq:
		m.push(l == r)
	case emit.OpLNe:
		m.push(l != r)
	case emit.OpLLt:
		m.push(l < r)
	case emit.OpLLe:
		m.push(l <= r)
	case emit.OpLGt:
		m.push(l > r)
	case emit.OpLGe:
		m.push(l >= r)
	default:
		return errUnknownOp(op)
	}
	return nil
}

// pushFloatResult and pushDoubleResult rely on Go's native IEEE-754
// float32/float64 comparison semantics, which already make any comparison
// against NaN other than != false — no special-casing needed to honor the
// NaN-safe comparison requirement.

func (m *machine) pushFloatResult(op emit.OpCode, l, r float32) error {
	switch op {
	case emit.OpFAdd:
		m.push(l + r)
	case emit.OpFSub:
		m.push(l - r)
	case emit.OpFMul:
		m.push(l * r)
	case emit.OpFDiv:
		m.push(l / r)
	case emit.OpFEq:
		m.push(l == r)
	case emit.OpFNe:
		m.push(l != r)
	case emit.OpFLt:
		m.push(l < r)
	case emit.OpFLe:
		m.push(l <= r)
	case emit.OpFGt:
		m.push(l > r)
	case emit.OpFGe:
		m.push(l >= r)
	default:
		return errUnknownOp(op)
	}
	return nil
}

func (m *machine) pushDoubleResult(op emit.OpCode, l, r float64) error {
	switch op {
	case emit.OpDAdd:
		m.push(l + r)
	case emit.OpDSub:
		m.push(l - r)
	case emit.OpDMul:
		m.push(l * r)
	case emit.OpDDiv:
		m.push(l / r)
	case emit.OpDEq:
		m.push(l == r)
	case emit.OpDNe:
		m.push(l != r)
	case emit.OpDLt:
		m.push(l < r)
	case emit.OpDLe:
		m.push(l <= r)
	case emit.OpDGt:
		m.push(l > r)
	case emit.OpDGe:
		m.push(l >= r)
	default:
		return errUnknownOp(op)
	}
	return nil
}

func errUnknownOp(op emit.OpCode) error {
	return unknownOpError{op}
}

type unknownOpError struct{ op emit.OpCode }

func (e unknownOpError) Error() string { return "vm: unknown opcode " + e.op.String() }

func errDivByZero(kind string) error {
	return divByZeroError{kind}
}

type divByZeroError struct{ kind string }

func (e divByZeroError) Error() string { return "vm: " + e.kind + " division or modulo by zero" }
