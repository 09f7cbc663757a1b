// Package lower implements the desugaring pass: it rewrites DSL-only EIR
// forms into host-primitive equivalents. The pass is pure over EIR,
// terminates, and is idempotent on an already-lowered tree.
package lower

import (
	"strconv"

	"github.com/cwbudde/exprforge/internal/ir"
	"github.com/cwbudde/exprforge/internal/types"
)

var temporalUnitNames = map[string]string{
	"d": "Days", "h": "Hours", "m": "Minutes", "s": "Seconds",
}

// Expr lowers a single expression node, recursing into every child first
// (post-order, so an already-lowered subtree is a no-op — idempotence).
func Expr(e ir.Expr) ir.Expr {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *ir.NullSafeFieldGet:
		scope := Expr(n.Scope)
		return spanIn(&ir.CondExpr{
			Cond: spanIn(&ir.Binary{Op: ir.BinRefEq, Left: scope, Right: nullLit()}, n),
			Then: nullLit(),
			Else: spanIn(&ir.FieldGet{Scope: scope, Field: n.Field}, n),
		}, n)

	case *ir.NullSafeMethodCall:
		scope := Expr(n.Scope)
		return spanIn(&ir.CondExpr{
			Cond: spanIn(&ir.Binary{Op: ir.BinRefEq, Left: scope, Right: nullLit()}, n),
			Then: nullLit(),
			Else: spanIn(&ir.MethodCall{Scope: scope, Name: n.Name, Args: exprs(n.Args)}, n),
		}, n)

	case *ir.MapLiteral:
		args := make([]ir.Expr, 0, len(n.Entries)*2)
		for _, entry := range n.Entries {
			args = append(args, Expr(entry.Key), Expr(entry.Value))
		}
		return spanIn(&ir.MethodCall{Scope: staticClass("Map", n), Name: "of", Args: args}, n)

	case *ir.ListLiteral:
		return spanIn(&ir.MethodCall{Scope: staticClass("List", n), Name: "of", Args: exprs(n.Elements)}, n)

	case *ir.TemporalDurationLit:
		return lowerTemporal(n)

	case *ir.BigDecimalLit:
		lit := numericLiteralFor(n.Text, n)
		return spanIn(&ir.MethodCall{Scope: staticClass("BigDecimal", n), Name: "valueOf", Args: []ir.Expr{lit}}, n)

	case *ir.BigIntegerLit:
		v, _ := strconv.ParseInt(n.Text, 10, 64)
		lit := spanIn(&ir.LongLit{Value: v}, n)
		return spanIn(&ir.MethodCall{Scope: staticClass("BigInteger", n), Name: "valueOf", Args: []ir.Expr{lit}}, n)

	case *ir.InlineCast:
		return spanIn(&ir.Cast{TargetType: types.Ref(n.TargetName), Inner: Expr(n.Inner)}, n)

	case *ir.Modify:
		target := Expr(n.Target)
		body := flattenReceiverBody(n.Body, target)
		body = append(body, &ir.ExprStmt{X: &ir.MethodCall{Scope: target, Name: "update", Args: []ir.Expr{target}}})
		return spanIn(&ir.BlockExpr{Body: &ir.Block{Stmts: body}, Result: target}, n)

	case *ir.With:
		target := Expr(n.Target)
		body := flattenReceiverBody(n.Body, target)
		return spanIn(&ir.BlockExpr{Body: &ir.Block{Stmts: body}, Result: target}, n)

	case *ir.Unary:
		n.Inner = Expr(n.Inner)
		return n

	case *ir.Binary:
		n.Left = Expr(n.Left)
		n.Right = Expr(n.Right)
		return n

	case *ir.CondExpr:
		n.Cond = Expr(n.Cond)
		n.Then = Expr(n.Then)
		n.Else = Expr(n.Else)
		return n

	case *ir.Assign:
		n.Target = lowerAssignTarget(n.Target)
		n.Value = Expr(n.Value)
		return n

	case *ir.Cast:
		n.Inner = Expr(n.Inner)
		return n

	case *ir.Enclosed:
		n.Inner = Expr(n.Inner)
		return n

	case *ir.FieldGet:
		n.Scope = Expr(n.Scope)
		return n

	case *ir.MethodCall:
		n.Scope = Expr(n.Scope)
		n.Args = exprs(n.Args)
		return n

	case *ir.ObjectNew:
		n.Args = exprs(n.Args)
		return n

	case *ir.ArrayAccess:
		n.Scope = Expr(n.Scope)
		n.Index = Expr(n.Index)
		return n

	default:
		// Literal leaves (IntLit, StringLit, BoolLit, ...) and already-host
		// nodes need no rewriting.
		return e
	}
}

func lowerAssignTarget(target ir.Expr) ir.Expr {
	if nr, ok := target.(*ir.NameRef); ok && nr.Index == ir.ImplicitReceiverIndex {
		return spanIn(&ir.FieldGet{Scope: nil, Field: nr.Name}, nr)
	}
	return Expr(target)
}

func exprs(in []ir.Expr) []ir.Expr {
	out := make([]ir.Expr, len(in))
	for i, e := range in {
		out[i] = Expr(e)
	}
	return out
}

// rewriteImplicit walks a lowered expression, binding any remaining
// implicit-receiver NameRef/FieldGet (nil Scope, produced by
// lowerAssignTarget) to target.
func rewriteImplicit(e ir.Expr, target ir.Expr) ir.Expr {
	switch n := e.(type) {
	case *ir.NameRef:
		if n.Index == ir.ImplicitReceiverIndex {
			return spanIn(&ir.FieldGet{Scope: target, Field: n.Name}, n)
		}
		return n
	case *ir.FieldGet:
		if n.Scope == nil {
			n.Scope = target
		} else {
			n.Scope = rewriteImplicit(n.Scope, target)
		}
		return n
	case *ir.MethodCall:
		if n.Scope == nil {
			n.Scope = target
		} else {
			n.Scope = rewriteImplicit(n.Scope, target)
		}
		for i, a := range n.Args {
			n.Args[i] = rewriteImplicit(a, target)
		}
		return n
	case *ir.Binary:
		n.Left = rewriteImplicit(n.Left, target)
		n.Right = rewriteImplicit(n.Right, target)
		return n
	case *ir.Unary:
		n.Inner = rewriteImplicit(n.Inner, target)
		return n
	case *ir.Assign:
		n.Target = rewriteImplicit(n.Target, target)
		n.Value = rewriteImplicit(n.Value, target)
		return n
	case *ir.Cast:
		n.Inner = rewriteImplicit(n.Inner, target)
		return n
	case *ir.Enclosed:
		n.Inner = rewriteImplicit(n.Inner, target)
		return n
	case *ir.CondExpr:
		n.Cond = rewriteImplicit(n.Cond, target)
		n.Then = rewriteImplicit(n.Then, target)
		n.Else = rewriteImplicit(n.Else, target)
		return n
	default:
		return e
	}
}

// Stmt lowers a statement, recursing into expressions and nested blocks.
func Stmt(s ir.Stmt) ir.Stmt {
	switch n := s.(type) {
	case *ir.ExprStmt:
		n.X = Expr(n.X)
		return n
	case *ir.VarDecl:
		n.Init = Expr(n.Init)
		return n
	case *ir.If:
		n.Cond = Expr(n.Cond)
		n.Then = Block(n.Then)
		if n.Else != nil {
			n.Else = Stmt(n.Else)
		}
		return n
	case *ir.Block:
		return Block(n)
	case *ir.Return:
		if n.X != nil {
			n.X = Expr(n.X)
		}
		return n
	default:
		return s
	}
}

// Block lowers every statement in b in place and returns it.
func Block(b *ir.Block) *ir.Block {
	if b == nil {
		return nil
	}
	for i, s := range b.Stmts {
		b.Stmts[i] = Stmt(s)
	}
	return b
}

// Program lowers a top-level EXPRESSION-content-kind request.
func Program(e ir.Expr) ir.Expr {
	return Expr(e)
}

func flattenReceiverBody(body []ir.Stmt, target ir.Expr) []ir.Stmt {
	out := make([]ir.Stmt, len(body))
	for i, s := range body {
		lowered := Stmt(s)
		out[i] = rewriteImplicitStmt(lowered, target)
	}
	return out
}

func rewriteImplicitStmt(s ir.Stmt, target ir.Expr) ir.Stmt {
	switch n := s.(type) {
	case *ir.ExprStmt:
		n.X = rewriteImplicit(n.X, target)
		return n
	case *ir.VarDecl:
		n.Init = rewriteImplicit(n.Init, target)
		return n
	case *ir.Return:
		if n.X != nil {
			n.X = rewriteImplicit(n.X, target)
		}
		return n
	case *ir.If:
		n.Cond = rewriteImplicit(n.Cond, target)
		for i, st := range n.Then.Stmts {
			n.Then.Stmts[i] = rewriteImplicitStmt(st, target)
		}
		return n
	default:
		return s
	}
}

func nullLit() ir.Expr { return &ir.NullLit{} }

func staticClass(name string, from ir.Node) ir.Expr {
	return spanIn(&ir.StaticClassRef{ClassName: name}, from)
}

func lowerTemporal(n *ir.TemporalDurationLit) ir.Expr {
	if len(n.Components) == 0 {
		return spanIn(&ir.MethodCall{Scope: staticClass("Duration", n), Name: "ofSeconds", Args: []ir.Expr{&ir.LongLit{Value: 0}}}, n)
	}
	first := n.Components[0]
	var acc ir.Expr = spanIn(&ir.MethodCall{
		Scope: staticClass("Duration", n),
		Name:  "of" + temporalUnitNames[first.Unit],
		Args:  []ir.Expr{&ir.LongLit{Value: first.Count}},
	}, n)
	for _, comp := range n.Components[1:] {
		acc = spanIn(&ir.MethodCall{
			Scope: acc,
			Name:  "plus" + temporalUnitNames[comp.Unit],
			Args:  []ir.Expr{&ir.LongLit{Value: comp.Count}},
		}, n)
	}
	return acc
}

func numericLiteralFor(text string, n *ir.BigDecimalLit) ir.Expr {
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		return spanIn(&ir.LongLit{Value: v}, n)
	}
	v, _ := strconv.ParseFloat(text, 64)
	return spanIn(&ir.DoubleLit{Value: v}, n)
}

func spanIn[T interface {
	ir.Node
	SetSpan(ir.Span)
}](node T, from ir.Node) T {
	node.SetSpan(from.Span())
	return node
}
