// Package vm executes a compiled Chunk (internal/emit) on a simple stack
// machine. It is the runtime counterpart of the direct emitter: whatever
// the emitter's capability gate accepted, this package knows how to run.
package vm

import (
	"fmt"
	"math"
	"reflect"

	"github.com/cwbudde/exprforge/internal/emit"
)

// Run executes chunk against locals (slot 0 = receiver, slot 1 = eval
// context, remainder as allocated by the compiler) and returns the value
// left by its final OpReturn.
func Run(chunk *emit.Chunk, locals []any) (any, error) {
	m := &machine{chunk: chunk, locals: locals}
	return m.run()
}

type machine struct {
	chunk  *emit.Chunk
	locals []any
	stack  []any
	pc     int
}

func (m *machine) push(v any) { m.stack = append(m.stack, v) }

func (m *machine) pop() any {
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v
}

func (m *machine) run() (any, error) {
	for m.pc < len(m.chunk.Code) {
		instr := m.chunk.Code[m.pc]
		m.pc++
		switch instr.Op {
		case emit.OpConstInt:
			m.push(m.chunk.Constants[instr.A].(int32))
		case emit.OpConstLong:
			m.push(m.chunk.Constants[instr.A].(int64))
		case emit.OpConstFloat:
			m.push(m.chunk.Constants[instr.A].(float32))
		case emit.OpConstDouble:
			m.push(m.chunk.Constants[instr.A].(float64))
		case emit.OpConstString:
			m.push(m.chunk.Constants[instr.A].(string))
		case emit.OpConstNull:
			m.push(nil)
		case emit.OpConstTrue:
			m.push(true)
		case emit.OpConstFalse:
			m.push(false)
		case emit.OpPop:
			m.pop()
		case emit.OpDup:
			m.push(m.stack[len(m.stack)-1])

		case emit.OpLoadLocal:
			m.push(m.locals[instr.A])
		case emit.OpStoreLocal:
			m.locals[instr.A] = m.stack[len(m.stack)-1]

		case emit.OpJump:
			m.pc = int(instr.A)
		case emit.OpJumpIfFalse:
			if b, _ := m.pop().(bool); !b {
				m.pc = int(instr.A)
			}
		case emit.OpJumpIfTrue:
			if b, _ := m.pop().(bool); b {
				m.pc = int(instr.A)
			}

		case emit.OpINeg:
			m.push(-m.pop().(int32))
		case emit.OpLNeg:
			m.push(-m.pop().(int64))
		case emit.OpFNeg:
			m.push(-m.pop().(float32))
		case emit.OpDNeg:
			m.push(-m.pop().(float64))
		case emit.OpBNot:
			m.push(!m.pop().(bool))
		case emit.OpINot:
			m.push(^m.pop().(int32))

		case emit.OpConvIToL:
			m.push(int64(m.pop().(int32)))
		case emit.OpConvIToF:
			m.push(float32(m.pop().(int32)))
		case emit.OpConvIToD:
			m.push(float64(m.pop().(int32)))
		case emit.OpConvLToF:
			m.push(float32(m.pop().(int64)))
		case emit.OpConvLToD:
			m.push(float64(m.pop().(int64)))
		case emit.OpConvFToD:
			m.push(float64(m.pop().(float32)))
		case emit.OpConvLToI:
			m.push(int32(m.pop().(int64)))
		case emit.OpConvFToI:
			m.push(int32(m.pop().(float32)))
		case emit.OpConvDToI:
			m.push(int32(m.pop().(float64)))
		case emit.OpConvFToL:
			m.push(int64(m.pop().(float32)))
		case emit.OpConvDToL:
			m.push(int64(m.pop().(float64)))
		case emit.OpConvDToF:
			m.push(float32(m.pop().(float64)))

		case emit.OpStrConcat:
			r, l := m.pop(), m.pop()
			m.push(fmt.Sprintf("%v%v", l, r))

		case emit.OpRefEq, emit.OpRefNe:
			r, l := m.pop(), m.pop()
			eq := l == r
			if instr.Op == emit.OpRefEq {
				m.push(eq)
			} else {
				m.push(!eq)
			}

		case emit.OpGetField:
			scope := m.pop()
			member := m.chunk.Members[instr.A]
			v, err := getField(scope, member.Name)
			if err != nil {
				return nil, err
			}
			m.push(v)

		case emit.OpArrayLoad:
			idx, scope := m.pop(), m.pop()
			v, err := arrayLoad(scope, idx)
			if err != nil {
				return nil, err
			}
			m.push(v)

		case emit.OpInvoke, emit.OpInvokeStatic:
			member := m.chunk.Members[instr.A]
			args := make([]any, member.Arity)
			if instr.Op == emit.OpInvoke {
				scope := m.pop()
				for i := member.Arity - 1; i >= 0; i-- {
					args[i] = m.pop()
				}
				v, err := invoke(scope, member.Name, args)
				if err != nil {
					return nil, err
				}
				m.push(v)
			} else {
				for i := member.Arity - 1; i >= 0; i-- {
					args[i] = m.pop()
				}
				v, err := invokeStatic(member.Owner, member.Name, args)
				if err != nil {
					return nil, err
				}
				m.push(v)
			}

		case emit.OpNew:
			ctor := m.chunk.Constants[instr.A].(reflect.Value)
			member := m.chunk.Members[instr.B]
			args := make([]any, member.Arity)
			for i := member.Arity - 1; i >= 0; i-- {
				args[i] = m.pop()
			}
			v, err := construct(ctor, args)
			if err != nil {
				return nil, err
			}
			m.push(v)

		case emit.OpBox, emit.OpUnbox:
			target := m.chunk.Constants[instr.A].(reflect.Type)
			m.push(reflect.ValueOf(m.pop()).Convert(target).Interface())

		case emit.OpReturn:
			if len(m.stack) == 0 {
				return nil, nil
			}
			return m.pop(), nil

		default:
			if err := m.runArith(instr.Op); err != nil {
				return nil, err
			}
		}
	}
	if len(m.stack) == 0 {
		return nil, nil
	}
	return m.pop(), nil
}

func getField(scope any, name string) (any, error) {
	rv := reflect.ValueOf(scope)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("vm: cannot read field %q of %T", name, scope)
	}
	fv := rv.FieldByName(name)
	if !fv.IsValid() {
		return nil, fmt.Errorf("vm: no field %q on %T", name, scope)
	}
	return fv.Interface(), nil
}

func arrayLoad(scope, idx any) (any, error) {
	rv := reflect.ValueOf(scope)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("vm: cannot index %T", scope)
	}
	i := toInt(idx)
	if i < 0 || i >= rv.Len() {
		return nil, fmt.Errorf("vm: index %d out of range (len %d)", i, rv.Len())
	}
	return rv.Index(i).Interface(), nil
}

func invoke(scope any, name string, args []any) (any, error) {
	if m, ok := scope.(map[string]any); ok {
		return invokeMapLike(m, name, args)
	}
	rv := reflect.ValueOf(scope)
	method := rv.MethodByName(name)
	if !method.IsValid() {
		return nil, fmt.Errorf("vm: no method %s.%s/%d", fmt.Sprintf("%T", scope), name, len(args))
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

func invokeMapLike(m map[string]any, name string, args []any) (any, error) {
	switch name {
	case "get":
		return m[fmt.Sprintf("%v", args[0])], nil
	case "put":
		key := fmt.Sprintf("%v", args[0])
		old := m[key]
		m[key] = args[1]
		return old, nil
	case "containsKey":
		_, ok := m[fmt.Sprintf("%v", args[0])]
		return ok, nil
	case "size":
		return int32(len(m)), nil
	default:
		return nil, fmt.Errorf("vm: no method Map.%s/%d", name, len(args))
	}
}

// construct invokes a registered constructor function reflectively, the
// runtime counterpart of emit.OpNew.
func construct(ctor reflect.Value, args []any) (any, error) {
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		in[i] = reflect.ValueOf(a)
	}
	out := ctor.Call(in)
	if len(out) == 0 {
		return nil, nil
	}
	return out[0].Interface(), nil
}

func invokeStatic(owner, name string, args []any) (any, error) {
	switch owner {
	case "Map":
		if name != "of" {
			return nil, fmt.Errorf("vm: no static method Map.%s/%d", name, len(args))
		}
		m := make(map[string]any, len(args)/2)
		for i := 0; i+1 < len(args); i += 2 {
			m[fmt.Sprintf("%v", args[i])] = args[i+1]
		}
		return m, nil
	case "List":
		if name != "of" {
			return nil, fmt.Errorf("vm: no static method List.%s/%d", name, len(args))
		}
		return append([]any{}, args...), nil
	case "Math":
		if len(args) != 1 {
			return nil, fmt.Errorf("vm: Math.%s expects 1 argument", name)
		}
		f := toFloat(args[0])
		switch name {
		case "abs":
			return math.Abs(f), nil
		}
	}
	return nil, fmt.Errorf("vm: no static method %s.%s/%d", owner, name, len(args))
}

func toInt(v any) int {
	switch x := v.(type) {
	case int32:
		return int(x)
	case int64:
		return int(x)
	default:
		return 0
	}
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	default:
		return 0
	}
}
