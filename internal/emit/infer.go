package emit

import (
	"github.com/cwbudde/exprforge/internal/ir"
	"github.com/cwbudde/exprforge/internal/types"
)

// inferType computes the static type of e from scratch: the emitter never
// reads an EIR node's Type() (neither the parser nor lowering sets it), so
// it walks the expression itself, resolving NameRef against the compiler's
// own slot table and propagating arithmetic results through the widening
// lattice. Returns the zero Descriptor when the type cannot be determined
// locally. Its FQCN is empty, which resolvable reads as "no registered host
// type"; because KindPrimitive and Int are the zero values of their types,
// IsPrimitive reports true for it and arithmetic treats it as int.
func (c *Compiler) inferType(e ir.Expr) types.Descriptor {
	switch n := e.(type) {
	case *ir.IntLit:
		return types.Prim(types.Int)
	case *ir.LongLit:
		return types.Prim(types.Long)
	case *ir.FloatLit:
		return types.Prim(types.Float)
	case *ir.DoubleLit:
		return types.Prim(types.Double)
	case *ir.BoolLit:
		return types.Prim(types.Boolean)
	case *ir.CharLit:
		return types.Prim(types.Char)
	case *ir.StringLit:
		return types.Ref("java.lang.String")
	case *ir.NullLit:
		return types.Descriptor{}

	case *ir.NameRef:
		if t, ok := c.slotType[c.slotOf[n.Name]]; ok {
			return t
		}
		return types.Descriptor{}

	case *ir.Unary:
		return c.inferType(n.Inner)

	case *ir.Binary:
		switch n.Op {
		case ir.BinEq, ir.BinNe, ir.BinLt, ir.BinLe, ir.BinGt, ir.BinGe,
			ir.BinAndAnd, ir.BinOrOr, ir.BinRefEq, ir.BinRefNe:
			return types.Prim(types.Boolean)
		case ir.BinConcat:
			return types.Ref("java.lang.String")
		default:
			lt, rt := c.inferType(n.Left), c.inferType(n.Right)
			if lt.IsPrimitive() && rt.IsPrimitive() {
				return types.Prim(types.Widen(lt.Primitive, rt.Primitive))
			}
			return types.Prim(types.Int)
		}

	case *ir.CondExpr:
		// The null-safe desugaring that produces CondExpr always pairs a
		// NullLit arm with the real typed arm; prefer whichever side isn't
		// the null literal.
		if _, isNull := n.Then.(*ir.NullLit); isNull {
			return c.inferType(n.Else)
		}
		return c.inferType(n.Then)

	case *ir.Assign:
		return c.inferType(n.Value)

	case *ir.Cast:
		return n.TargetType

	case *ir.Enclosed:
		return c.inferType(n.Inner)

	case *ir.StaticClassRef:
		return types.Ref(n.ClassName)

	case *ir.FieldGet:
		// Field types are not tracked reflectively by the direct emitter;
		// callers needing a precise result type fall back to the host
		// compiler, which has full Go type information.
		return types.Descriptor{}

	case *ir.MethodCall:
		return types.Descriptor{}

	case *ir.BlockExpr:
		return c.inferType(n.Result)

	default:
		return types.Descriptor{}
	}
}
