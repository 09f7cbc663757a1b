package emit

import (
	"fmt"

	"github.com/cwbudde/exprforge/internal/ir"
)

// CanEmit reports whether the direct emitter can compile e without falling
// back. It never mutates the compiler and never
// panics — any node kind or shape it does not recognize makes it return
// false rather than guess.
func (c *Compiler) CanEmit(e ir.Expr) bool {
	ok, _ := c.probe(e, 0)
	return ok
}

// DiagnoseRejection explains, for telemetry and for the fallback's
// diagnostics bundle, why CanEmit returned false.
// Calling it on an expression CanEmit accepts returns "".
func (c *Compiler) DiagnoseRejection(e ir.Expr) string {
	ok, reason := c.probe(e, 0)
	if ok {
		return ""
	}
	return reason
}

// probe recurses the same shape compileExpr does, but purely to decide
// acceptance; depth tracks method-chain nesting for the depth-2 limit.
func (c *Compiler) probe(e ir.Expr, depth int) (bool, string) {
	if e == nil {
		return true, ""
	}
	switch n := e.(type) {
	case *ir.IntLit, *ir.LongLit, *ir.DoubleLit, *ir.FloatLit, *ir.BoolLit,
		*ir.StringLit, *ir.NullLit, *ir.CharLit:
		return true, ""

	case *ir.NameRef:
		if n.Index == ir.ImplicitReceiverIndex {
			return false, "unresolved implicit receiver reference (lowering should have rewritten this)"
		}
		return true, ""

	case *ir.StaticClassRef:
		if !isWellKnownClass(n.ClassName) {
			return false, fmt.Sprintf("static reference to unrecognized class %q", n.ClassName)
		}
		return true, ""

	case *ir.Unary:
		return c.probe(n.Inner, depth)

	case *ir.Binary:
		if ok, reason := c.probe(n.Left, depth); !ok {
			return false, reason
		}
		return c.probe(n.Right, depth)

	case *ir.CondExpr:
		if ok, reason := c.probe(n.Cond, depth); !ok {
			return false, reason
		}
		if ok, reason := c.probe(n.Then, depth); !ok {
			return false, reason
		}
		return c.probe(n.Else, depth)

	case *ir.Assign:
		if _, ok := n.Target.(*ir.NameRef); !ok {
			return false, "assignment target is not a simple local (modify() field write-back requires the host compiler)"
		}
		return c.probe(n.Value, depth)

	case *ir.Cast:
		return c.probe(n.Inner, depth)

	case *ir.Enclosed:
		return c.probe(n.Inner, depth)

	case *ir.FieldGet:
		if n.Scope == nil {
			return false, "field access with no resolved scope"
		}
		return c.probe(n.Scope, depth)

	case *ir.MethodCall:
		if n.Scope == nil {
			return false, "method call with no resolved scope"
		}
		if depth >= maxChainDepth {
			return false, fmt.Sprintf("method-call chain exceeds depth %d", maxChainDepth)
		}
		nextDepth := depth
		if _, chained := n.Scope.(*ir.MethodCall); chained {
			nextDepth = depth + 1
		}
		if ok, reason := c.probe(n.Scope, nextDepth); !ok {
			return false, reason
		}
		if !c.resolvable(n) {
			return false, fmt.Sprintf("cannot resolve method %s/%d on %s", n.Name, len(n.Args), c.scopeDescription(n.Scope))
		}
		for _, a := range n.Args {
			if ok, reason := c.probe(a, depth); !ok {
				return false, reason
			}
		}
		return true, ""

	case *ir.ObjectNew:
		if _, _, ok := c.resolveConstructor(n.TypeName, len(n.Args)); !ok {
			return false, fmt.Sprintf("no registered constructor for %s/%d", n.TypeName, len(n.Args))
		}
		for _, a := range n.Args {
			if ok, reason := c.probe(a, depth); !ok {
				return false, reason
			}
		}
		return true, ""

	case *ir.ArrayAccess:
		if ok, reason := c.probe(n.Scope, depth); !ok {
			return false, reason
		}
		return c.probe(n.Index, depth)

	case *ir.BlockExpr:
		for _, s := range n.Body.Stmts {
			if ok, reason := c.probeStmt(s, depth); !ok {
				return false, reason
			}
		}
		return c.probe(n.Result, depth)

	default:
		return false, fmt.Sprintf("unsupported EIR node %T", e)
	}
}

func (c *Compiler) probeStmt(s ir.Stmt, depth int) (bool, string) {
	switch n := s.(type) {
	case *ir.ExprStmt:
		return c.probe(n.X, depth)
	case *ir.VarDecl:
		return c.probe(n.Init, depth)
	case *ir.Return:
		if n.X == nil {
			return true, ""
		}
		return c.probe(n.X, depth)
	case *ir.If:
		if ok, reason := c.probe(n.Cond, depth); !ok {
			return false, reason
		}
		for _, st := range n.Then.Stmts {
			if ok, reason := c.probeStmt(st, depth); !ok {
				return false, reason
			}
		}
		if n.Else != nil {
			return c.probeStmt(n.Else, depth)
		}
		return true, ""
	case *ir.Block:
		for _, st := range n.Stmts {
			if ok, reason := c.probeStmt(st, depth); !ok {
				return false, reason
			}
		}
		return true, ""
	case *ir.Empty:
		return true, ""
	default:
		return false, fmt.Sprintf("unsupported statement %T", s)
	}
}

const maxChainDepth = 2

var wellKnownClasses = map[string]bool{
	"Math": true, "String": true, "Map": true, "List": true, "Duration": true,
	"BigDecimal": true, "BigInteger": true,
	"Integer": true, "Long": true, "Double": true, "Float": true, "Boolean": true, "Character": true,
}

func isWellKnownClass(name string) bool { return wellKnownClasses[name] }

// staticMethodSupported reports the exact (class, method, arity) surface the direct
// emitter's runtime counterparts actually implement: internal/vm's
// invokeStatic and internal/ir/interp.go's callStatic/callMath. It is
// intentionally narrower than wellKnownClasses — Map.of and List.of are the
// only static factories either evaluator wires up, and Math.abs is the only
// Math method either one knows. BigDecimal, BigInteger, Duration and the
// boxed-primitive classes are recognized as static references elsewhere (so
// a bare StaticClassRef to them is not itself rejected) but any method call
// through them always falls back to the host compiler, which is where their
// arbitrary-precision and temporal semantics actually live.
func staticMethodSupported(class, name string, arity int) bool {
	switch class {
	case "Map", "List":
		return name == "of"
	case "Math":
		return name == "abs" && arity == 1
	}
	return false
}

// resolvable decides whether a method call's receiver+name+arity pair is
// something the direct emitter's built-in dispatch table or the type
// registry knows about.
func (c *Compiler) resolvable(call *ir.MethodCall) bool {
	if sc, ok := call.Scope.(*ir.StaticClassRef); ok {
		return staticMethodSupported(sc.ClassName, call.Name, len(call.Args))
	}
	fqcn := c.inferType(call.Scope).FQCN
	if fqcn == "" {
		// map-like pattern: MAP-context receivers dispatch get/put/containsKey
		// etc without any registered host type.
		return mapLikeMethods[call.Name]
	}
	_, ok := c.resolveInstanceMethod(call)
	return ok
}

var mapLikeMethods = map[string]bool{
	"get": true, "put": true, "containsKey": true, "size": true,
}

func (c *Compiler) scopeDescription(e ir.Expr) string {
	if sc, ok := e.(*ir.StaticClassRef); ok {
		return sc.ClassName
	}
	if fqcn := c.inferType(e).FQCN; fqcn != "" {
		return fqcn
	}
	return "<unresolved>"
}
