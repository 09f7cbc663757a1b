package ir

import (
	"fmt"
	"reflect"

	"github.com/cwbudde/exprforge/internal/types"
)

// Env binds names to runtime values for Eval. It is the interpreter's
// analogue of the emitter's slot table, but keyed by name and boxed in
// `any` rather than addressed by fixed-width stack slot, since the
// interpreter never needs a fixed memory layout.
type Env struct {
	Values map[string]any
	vars   map[string]any // mutable locals introduced by VarDecl/modify/with
}

// NewEnv constructs an Env seeded with the request's declared values.
func NewEnv(values map[string]any) *Env {
	return &Env{Values: values, vars: make(map[string]any)}
}

func (e *Env) get(name string) (any, bool) {
	if v, ok := e.vars[name]; ok {
		return v, true
	}
	v, ok := e.Values[name]
	return v, ok
}

func (e *Env) set(name string, v any) {
	if _, declared := e.vars[name]; declared {
		e.vars[name] = v
		return
	}
	if _, fromRequest := e.Values[name]; fromRequest {
		e.Values[name] = v
		return
	}
	e.vars[name] = v
}

// Eval is a pure tree-walking reference interpreter over EIR, independent
// of the direct emitter. It exists for two purposes: the host-compiler
// fallback path runs expressions it rejects from the direct emitter through
// here, and tests use it as an oracle to check the emitter's
// bytecode produces the same answer it does.
func Eval(e Expr, env *Env) (any, error) {
	switch n := e.(type) {
	case *IntLit:
		return n.Value, nil
	case *LongLit:
		return n.Value, nil
	case *FloatLit:
		return n.Value, nil
	case *DoubleLit:
		return n.Value, nil
	case *BoolLit:
		return n.Value, nil
	case *StringLit:
		return n.Value, nil
	case *CharLit:
		return n.Value, nil
	case *NullLit:
		return nil, nil

	case *NameRef:
		v, ok := env.get(n.Name)
		if !ok {
			return nil, types.ErrUnknownName(n.Name)
		}
		return v, nil

	case *Unary:
		v, err := Eval(n.Inner, env)
		if err != nil {
			return nil, err
		}
		return evalUnary(n.Op, v)

	case *Binary:
		return evalBinary(n, env)

	case *CondExpr:
		cond, err := Eval(n.Cond, env)
		if err != nil {
			return nil, err
		}
		if b, _ := cond.(bool); b {
			return Eval(n.Then, env)
		}
		return Eval(n.Else, env)

	case *Assign:
		nr, ok := n.Target.(*NameRef)
		if !ok {
			return nil, fmt.Errorf("interp: assignment target %T not supported by the reference interpreter", n.Target)
		}
		val, err := Eval(n.Value, env)
		if err != nil {
			return nil, err
		}
		if n.Op != AssignPlain {
			cur, ok := env.get(nr.Name)
			if !ok {
				return nil, types.ErrUnknownName(nr.Name)
			}
			val, err = evalArith(assignToBinary(n.Op), cur, val)
			if err != nil {
				return nil, err
			}
		}
		env.set(nr.Name, val)
		return val, nil

	case *Cast:
		v, err := Eval(n.Inner, env)
		if err != nil {
			return nil, err
		}
		return convert(v, n.TargetType)

	case *Enclosed:
		return Eval(n.Inner, env)

	case *FieldGet:
		scope, err := Eval(n.Scope, env)
		if err != nil {
			return nil, err
		}
		return reflectField(scope, n.Field)

	case *MethodCall:
		return evalMethodCall(n, env)

	case *StaticClassRef:
		return nil, fmt.Errorf("interp: bare static class reference %q is not a value", n.ClassName)

	case *ArrayAccess:
		scope, err := Eval(n.Scope, env)
		if err != nil {
			return nil, err
		}
		idx, err := Eval(n.Index, env)
		if err != nil {
			return nil, err
		}
		return reflectIndex(scope, idx)

	case *BlockExpr:
		for _, s := range n.Body.Stmts {
			if _, err := EvalStmt(s, env); err != nil {
				return nil, err
			}
		}
		return Eval(n.Result, env)

	default:
		return nil, fmt.Errorf("interp: unsupported EIR node %T", e)
	}
}

// control signals a Return statement unwinding through EvalStmt.
type control struct{ value any }

func (control) Error() string { return "interp: return outside a function body" }

// EvalStmt executes one statement, returning the would-be return value if
// the statement (or something it contains) executed a Return.
func EvalStmt(s Stmt, env *Env) (any, error) {
	switch n := s.(type) {
	case *ExprStmt:
		_, err := Eval(n.X, env)
		return nil, err
	case *VarDecl:
		var v any
		if n.Init != nil {
			val, err := Eval(n.Init, env)
			if err != nil {
				return nil, err
			}
			v = val
		}
		env.set(n.Name, v)
		return nil, nil
	case *Return:
		if n.X == nil {
			return nil, control{}
		}
		v, err := Eval(n.X, env)
		if err != nil {
			return nil, err
		}
		return nil, control{value: v}
	case *If:
		cond, err := Eval(n.Cond, env)
		if err != nil {
			return nil, err
		}
		if b, _ := cond.(bool); b {
			return EvalBlock(n.Then, env)
		}
		if n.Else != nil {
			return EvalStmt(n.Else, env)
		}
		return nil, nil
	case *Block:
		return EvalBlock(n, env)
	case *Empty:
		return nil, nil
	default:
		return nil, fmt.Errorf("interp: unsupported statement %T", s)
	}
}

// EvalBlock runs every statement in b, stopping early and surfacing the
// value on a Return.
func EvalBlock(b *Block, env *Env) (any, error) {
	for _, s := range b.Stmts {
		_, err := EvalStmt(s, env)
		if err == nil {
			continue
		}
		if ret, ok := err.(control); ok {
			return ret.value, nil
		}
		return nil, err
	}
	return nil, nil
}

func assignToBinary(op AssignOp) BinaryOp {
	switch op {
	case AssignAdd:
		return BinAdd
	case AssignSub:
		return BinSub
	case AssignMul:
		return BinMul
	case AssignDiv:
		return BinDiv
	case AssignMod:
		return BinMod
	default:
		return BinAdd
	}
}

func evalUnary(op UnaryOp, v any) (any, error) {
	switch op {
	case UnaryNot:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("interp: ! applied to non-boolean %T", v)
		}
		return !b, nil
	case UnaryNeg:
		switch x := v.(type) {
		case int32:
			return -x, nil
		case int64:
			return -x, nil
		case float32:
			return -x, nil
		case float64:
			return -x, nil
		}
		return nil, fmt.Errorf("interp: unary - applied to non-numeric %T", v)
	case UnaryBitNot:
		switch x := v.(type) {
		case int32:
			return ^x, nil
		case int64:
			return ^x, nil
		}
		return nil, fmt.Errorf("interp: ~ applied to non-integral %T", v)
	}
	return nil, fmt.Errorf("interp: unknown unary operator %d", op)
}

func evalBinary(n *Binary, env *Env) (any, error) {
	switch n.Op {
	case BinAndAnd:
		l, err := Eval(n.Left, env)
		if err != nil {
			return nil, err
		}
		if lb, _ := l.(bool); !lb {
			return false, nil
		}
		r, err := Eval(n.Right, env)
		if err != nil {
			return nil, err
		}
		rb, _ := r.(bool)
		return rb, nil
	case BinOrOr:
		l, err := Eval(n.Left, env)
		if err != nil {
			return nil, err
		}
		if lb, _ := l.(bool); lb {
			return true, nil
		}
		r, err := Eval(n.Right, env)
		if err != nil {
			return nil, err
		}
		rb, _ := r.(bool)
		return rb, nil
	case BinRefEq, BinRefNe:
		l, err := Eval(n.Left, env)
		if err != nil {
			return nil, err
		}
		r, err := Eval(n.Right, env)
		if err != nil {
			return nil, err
		}
		eq := l == nil && r == nil || (l != nil && r != nil && l == r)
		if n.Op == BinRefEq {
			return eq, nil
		}
		return !eq, nil
	case BinConcat:
		l, err := Eval(n.Left, env)
		if err != nil {
			return nil, err
		}
		r, err := Eval(n.Right, env)
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("%v%v", l, r), nil
	}

	l, err := Eval(n.Left, env)
	if err != nil {
		return nil, err
	}
	r, err := Eval(n.Right, env)
	if err != nil {
		return nil, err
	}
	return evalArith(n.Op, l, r)
}

// evalArith evaluates a numeric or comparison operator at runtime,
// widening both operands to the wider of the two observed Go numeric kinds
// (the interpreter's dynamic counterpart of the emitter's static widening
// lattice in internal/types).
func evalArith(op BinaryOp, l, r any) (any, error) {
	lf, lIsFloat, lok := numeric(l)
	rf, rIsFloat, rok := numeric(r)
	if !lok || !rok {
		return nil, fmt.Errorf("interp: arithmetic on non-numeric operands (%T, %T)", l, r)
	}
	isFloat := lIsFloat || rIsFloat
	switch op {
	case BinEq:
		return lf == rf, nil
	case BinNe:
		return lf != rf, nil
	case BinLt:
		return lf < rf, nil
	case BinLe:
		return lf <= rf, nil
	case BinGt:
		return lf > rf, nil
	case BinGe:
		return lf >= rf, nil
	}
	if !isFloat {
		li, ri := int64(lf), int64(rf)
		switch op {
		case BinAdd:
			return wrapIntegral(l, r, li+ri), nil
		case BinSub:
			return wrapIntegral(l, r, li-ri), nil
		case BinMul:
			return wrapIntegral(l, r, li*ri), nil
		case BinDiv:
			if ri == 0 {
				return nil, fmt.Errorf("interp: integer division by zero")
			}
			return wrapIntegral(l, r, li/ri), nil
		case BinMod:
			if ri == 0 {
				return nil, fmt.Errorf("interp: integer modulo by zero")
			}
			return wrapIntegral(l, r, li%ri), nil
		case BinBitAnd:
			return wrapIntegral(l, r, li&ri), nil
		case BinBitOr:
			return wrapIntegral(l, r, li|ri), nil
		case BinBitXor:
			return wrapIntegral(l, r, li^ri), nil
		case BinShl:
			return wrapIntegral(l, r, li<<uint(ri)), nil
		case BinShr:
			return wrapIntegral(l, r, li>>uint(ri)), nil
		}
	}
	var res float64
	switch op {
	case BinAdd:
		res = lf + rf
	case BinSub:
		res = lf - rf
	case BinMul:
		res = lf * rf
	case BinDiv:
		res = lf / rf // IEEE-754 semantics: division by zero yields +/-Inf or NaN, never a panic
	default:
		return nil, fmt.Errorf("interp: unsupported operator %v on floating operands", op)
	}
	_, lDouble := l.(float64)
	_, rDouble := r.(float64)
	if !lDouble && !rDouble {
		return float32(res), nil
	}
	return res, nil
}

func wrapIntegral(l, r any, result int64) any {
	if _, ok := l.(int64); ok {
		return result
	}
	if _, ok := r.(int64); ok {
		return result
	}
	return int32(result)
}

func numeric(v any) (f float64, isFloat bool, ok bool) {
	switch x := v.(type) {
	case int32:
		return float64(x), false, true
	case int64:
		return float64(x), false, true
	case float32:
		return float64(x), true, true
	case float64:
		return x, true, true
	default:
		return 0, false, false
	}
}

func convert(v any, target types.Descriptor) (any, error) {
	if !target.IsPrimitive() {
		return v, nil
	}
	f, _, ok := numeric(v)
	if !ok {
		return v, nil
	}
	switch target.Primitive {
	case types.Int, types.Short, types.Byte, types.Char:
		return int32(f), nil
	case types.Long:
		return int64(f), nil
	case types.Float:
		return float32(f), nil
	case types.Double:
		return f, nil
	case types.Boolean:
		return v, nil
	}
	return v, nil
}

func evalMethodCall(n *MethodCall, env *Env) (any, error) {
	args := make([]any, len(n.Args))
	for i, a := range n.Args {
		v, err := Eval(a, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	if sc, ok := n.Scope.(*StaticClassRef); ok {
		return callStatic(sc.ClassName, n.Name, args)
	}
	scope, err := Eval(n.Scope, env)
	if err != nil {
		return nil, err
	}
	return reflectCall(scope, n.Name, args)
}

func reflectField(scope any, field string) (any, error) {
	rv := reflect.ValueOf(scope)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("interp: cannot read field %q of %T", field, scope)
	}
	fv := rv.FieldByName(field)
	if !fv.IsValid() {
		return nil, fmt.Errorf("interp: no field %q on %T", field, scope)
	}
	return fv.Interface(), nil
}

func reflectIndex(scope, idx any) (any, error) {
	rv := reflect.ValueOf(scope)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("interp: cannot index %T", scope)
	}
	i, _, ok := numeric(idx)
	if !ok {
		return nil, fmt.Errorf("interp: non-numeric index %T", idx)
	}
	n := int(i)
	if n < 0 || n >= rv.Len() {
		return nil, fmt.Errorf("interp: index %d out of range (len %d)", n, rv.Len())
	}
	return rv.Index(n).Interface(), nil
}

func reflectCall(scope any, name string, args []any) (any, error) {
	if m, ok := scope.(map[string]any); ok {
		return callMapLike(m, name, args)
	}
	rv := reflect.ValueOf(scope)
	method := rv.MethodByName(name)
	if !method.IsValid() {
		return nil, NewMethodResolutionError("", fmt.Sprintf("%T", scope), name, len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		in[i] = reflect.ValueOf(a)
	}
	out := method.Call(in)
	if len(out) == 0 {
		return nil, nil
	}
	return out[0].Interface(), nil
}

func callMapLike(m map[string]any, name string, args []any) (any, error) {
	switch name {
	case "get":
		if len(args) != 1 {
			return nil, fmt.Errorf("interp: Map.get expects 1 argument, got %d", len(args))
		}
		key := fmt.Sprintf("%v", args[0])
		return m[key], nil
	case "put":
		if len(args) != 2 {
			return nil, fmt.Errorf("interp: Map.put expects 2 arguments, got %d", len(args))
		}
		key := fmt.Sprintf("%v", args[0])
		old := m[key]
		m[key] = args[1]
		return old, nil
	case "containsKey":
		key := fmt.Sprintf("%v", args[0])
		_, ok := m[key]
		return ok, nil
	case "size":
		return int32(len(m)), nil
	default:
		return nil, NewMethodResolutionError("", "Map", name, len(args))
	}
}

func callStatic(class, method string, args []any) (any, error) {
	switch class {
	case "Map":
		if method != "of" {
			return nil, NewMethodResolutionError("", class, method, len(args))
		}
		m := make(map[string]any, len(args)/2)
		for i := 0; i+1 < len(args); i += 2 {
			m[fmt.Sprintf("%v", args[i])] = args[i+1]
		}
		return m, nil
	case "List":
		if method != "of" {
			return nil, NewMethodResolutionError("", class, method, len(args))
		}
		return append([]any{}, args...), nil
	case "Math":
		return callMath(method, args)
	default:
		return nil, NewMethodResolutionError("", class, method, len(args))
	}
}

func callMath(method string, args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("interp: Math.%s expects 1 argument", method)
	}
	f, _, ok := numeric(args[0])
	if !ok {
		return nil, fmt.Errorf("interp: Math.%s on non-numeric %T", method, args[0])
	}
	switch method {
	case "abs":
		if f < 0 {
			return -f, nil
		}
		return f, nil
	default:
		return nil, NewMethodResolutionError("", "Math", method, len(args))
	}
}
