package emit

import (
	"fmt"
	"reflect"

	"github.com/cwbudde/exprforge/internal/hostreflect"
	"github.com/cwbudde/exprforge/internal/ir"
	"github.com/cwbudde/exprforge/internal/types"
)

// reservedSlots accounts for the receiver (slot 0) and the evaluation
// context (slot 1) the VM always binds before a Chunk's declared locals
// begin.
const reservedSlots = 2

// Compiler emits one Chunk from a lowered expression tree. A Compiler is
// single-use: construct one per compilation request.
type Compiler struct {
	chunk        *Chunk
	decls        *types.DeclTable
	slotOf       map[string]int32
	slotType     map[int32]types.Descriptor
	nextSlot     int32
	typeRegistry map[string]reflect.Type
	reflectCache *hostreflect.Cache
}

// Option configures a Compiler at construction time.
type Option func(*Compiler)

// WithTypeRegistry supplies the FQCN -> reflect.Type bindings the emitter
// needs to resolve instance method calls reflectively.
// A FQCN absent from the registry always routes its call through the host
// compiler instead, since the emitter has no other way to learn its shape.
func WithTypeRegistry(reg map[string]reflect.Type) Option {
	return func(c *Compiler) { c.typeRegistry = reg }
}

// WithReflectCache shares a hostreflect.Cache across compilations.
func WithReflectCache(cache *hostreflect.Cache) Option {
	return func(c *Compiler) { c.reflectCache = cache }
}

// NewCompiler constructs a Compiler for a Chunk named name, whose locals are
// drawn from decls (the declaration table bound for this request).
func NewCompiler(name string, decls *types.DeclTable, opts ...Option) *Compiler {
	c := &Compiler{
		chunk:    &Chunk{Name: name},
		decls:    decls,
		slotOf:   make(map[string]int32),
		slotType: make(map[int32]types.Descriptor),
		nextSlot: reservedSlots,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.reflectCache == nil {
		c.reflectCache = hostreflect.New()
	}
	for _, d := range decls.Decls {
		c.allocSlot(d.Name, d.Type)
	}
	return c
}

func (c *Compiler) allocSlot(name string, t types.Descriptor) int32 {
	if slot, ok := c.slotOf[name]; ok {
		return slot
	}
	slot := c.nextSlot
	width := int32(1)
	if t.IsPrimitive() && t.Primitive.Width64() {
		width = 2 // 64-bit primitives (long, double) occupy two slots
	}
	c.nextSlot += width
	c.slotOf[name] = slot
	c.slotType[slot] = t
	return slot
}

// Compile emits e as the Chunk's body and appends a terminating return.
// Callers must confirm CanEmit(e) first; Compile itself still returns a
// descriptive error rather than emitting nonsense if it encounters a node
// it cannot place, since lowering or CanEmit could disagree on an edge case
// the two implementations forgot to keep in sync.
func (c *Compiler) Compile(e ir.Expr) (*Chunk, error) {
	if err := c.compileExpr(e); err != nil {
		return nil, err
	}
	c.chunk.emit(OpReturn, 0, 0, 0)
	c.chunk.NumSlots = int(c.nextSlot)
	return c.chunk, nil
}

func (c *Compiler) compileExpr(e ir.Expr) error {
	switch n := e.(type) {
	case *ir.IntLit:
		c.chunk.emit(OpConstInt, c.chunk.AddConstant(n.Value), 0, 0)
	case *ir.LongLit:
		c.chunk.emit(OpConstLong, c.chunk.AddConstant(n.Value), 0, 0)
	case *ir.DoubleLit:
		c.chunk.emit(OpConstDouble, c.chunk.AddConstant(n.Value), 0, 0)
	case *ir.FloatLit:
		c.chunk.emit(OpConstFloat, c.chunk.AddConstant(n.Value), 0, 0)
	case *ir.StringLit:
		c.chunk.emit(OpConstString, c.chunk.AddConstant(n.Value), 0, 0)
	case *ir.CharLit:
		c.chunk.emit(OpConstInt, c.chunk.AddConstant(int32(n.Value)), 0, 0)
	case *ir.BoolLit:
		if n.Value {
			c.chunk.emit(OpConstTrue, 0, 0, 0)
		} else {
			c.chunk.emit(OpConstFalse, 0, 0, 0)
		}
	case *ir.NullLit:
		c.chunk.emit(OpConstNull, 0, 0, 0)

	case *ir.NameRef:
		slot, ok := c.slotOf[n.Name]
		if !ok {
			return fmt.Errorf("emit: no slot allocated for %q", n.Name)
		}
		c.chunk.emit(OpLoadLocal, slot, 0, 0)

	case *ir.StaticClassRef:
		// A bare static class reference only ever appears as a MethodCall
		// scope; compileExpr never needs to push anything for it by itself.

	case *ir.Unary:
		if err := c.compileExpr(n.Inner); err != nil {
			return err
		}
		c.emitUnary(n.Op, c.inferType(n.Inner))

	case *ir.Binary:
		return c.compileBinary(n)

	case *ir.CondExpr:
		return c.compileCond(n)

	case *ir.Assign:
		return c.compileAssign(n)

	case *ir.Cast:
		if err := c.compileExpr(n.Inner); err != nil {
			return err
		}
		c.emitConversion(c.inferType(n.Inner), n.TargetType)

	case *ir.Enclosed:
		return c.compileExpr(n.Inner)

	case *ir.FieldGet:
		if err := c.compileExpr(n.Scope); err != nil {
			return err
		}
		member := c.chunk.AddMember(Member{Owner: c.scopeDescription(n.Scope), Name: n.Field})
		c.chunk.emit(OpGetField, member, 0, 0)

	case *ir.MethodCall:
		return c.compileMethodCall(n)

	case *ir.ObjectNew:
		return c.compileObjectNew(n)

	case *ir.ArrayAccess:
		if err := c.compileExpr(n.Scope); err != nil {
			return err
		}
		if err := c.compileExpr(n.Index); err != nil {
			return err
		}
		c.chunk.emit(OpArrayLoad, 0, 0, 0)

	case *ir.BlockExpr:
		for _, s := range n.Body.Stmts {
			if err := c.compileStmt(s); err != nil {
				return err
			}
		}
		return c.compileExpr(n.Result)

	default:
		return fmt.Errorf("emit: unsupported EIR node %T", e)
	}
	return nil
}

func (c *Compiler) compileStmt(s ir.Stmt) error {
	switch n := s.(type) {
	case *ir.ExprStmt:
		if err := c.compileExpr(n.X); err != nil {
			return err
		}
		c.chunk.emit(OpPop, 0, 0, 0)
	case *ir.VarDecl:
		t := types.Descriptor{}
		if n.Type != nil {
			t = *n.Type
		} else if n.Init != nil {
			t = c.inferType(n.Init)
		}
		slot := c.allocSlot(n.Name, t)
		if n.Init != nil {
			if err := c.compileExpr(n.Init); err != nil {
				return err
			}
			c.chunk.emit(OpStoreLocal, slot, 0, 0)
		}
	case *ir.Return:
		if n.X != nil {
			if err := c.compileExpr(n.X); err != nil {
				return err
			}
		}
		c.chunk.emit(OpReturn, 0, 0, 0)
	case *ir.If:
		return c.compileIf(n)
	case *ir.Block:
		for _, st := range n.Stmts {
			if err := c.compileStmt(st); err != nil {
				return err
			}
		}
	case *ir.Empty:
	default:
		return fmt.Errorf("emit: unsupported statement %T", s)
	}
	return nil
}

// compileIf wires an If statement's branches. When the then branch ends in
// a Return, the trailing jump past the else branch is omitted — control never
// reaches it.
func (c *Compiler) compileIf(n *ir.If) error {
	if err := c.compileExpr(n.Cond); err != nil {
		return err
	}
	jumpToElse := c.chunk.emit(OpJumpIfFalse, 0, 0, 0)
	if err := c.compileStmt(n.Then); err != nil {
		return err
	}
	thenReturns := blockReturns(n.Then)

	if n.Else == nil {
		c.chunk.patchJumpTarget(jumpToElse, int32(len(c.chunk.Code)))
		return nil
	}

	var jumpToEnd int
	if !thenReturns {
		jumpToEnd = c.chunk.emit(OpJump, 0, 0, 0)
	}
	c.chunk.patchJumpTarget(jumpToElse, int32(len(c.chunk.Code)))
	if err := c.compileStmt(n.Else); err != nil {
		return err
	}
	if !thenReturns {
		c.chunk.patchJumpTarget(jumpToEnd, int32(len(c.chunk.Code)))
	}
	return nil
}

func blockReturns(b *ir.Block) bool {
	if b == nil || len(b.Stmts) == 0 {
		return false
	}
	return stmtReturns(b.Stmts[len(b.Stmts)-1])
}

func stmtReturns(s ir.Stmt) bool {
	switch n := s.(type) {
	case *ir.Return:
		return true
	case *ir.Block:
		return blockReturns(n)
	case *ir.If:
		return n.Else != nil && blockReturns(n.Then) && stmtReturns(n.Else)
	default:
		return false
	}
}

func (c *Compiler) compileCond(n *ir.CondExpr) error {
	if err := c.compileExpr(n.Cond); err != nil {
		return err
	}
	jumpToElse := c.chunk.emit(OpJumpIfFalse, 0, 0, 0)
	if err := c.compileExpr(n.Then); err != nil {
		return err
	}
	jumpToEnd := c.chunk.emit(OpJump, 0, 0, 0)
	c.chunk.patchJumpTarget(jumpToElse, int32(len(c.chunk.Code)))
	if err := c.compileExpr(n.Else); err != nil {
		return err
	}
	c.chunk.patchJumpTarget(jumpToEnd, int32(len(c.chunk.Code)))
	return nil
}

func (c *Compiler) compileAssign(n *ir.Assign) error {
	nr, ok := n.Target.(*ir.NameRef)
	if !ok {
		return fmt.Errorf("emit: assignment target %T requires the host compiler", n.Target)
	}
	slot, ok := c.slotOf[nr.Name]
	if !ok {
		return fmt.Errorf("emit: no slot allocated for %q", nr.Name)
	}
	if n.Op != ir.AssignPlain {
		c.chunk.emit(OpLoadLocal, slot, 0, 0)
		if err := c.compileExpr(n.Value); err != nil {
			return err
		}
		c.emitCompoundOp(n.Op, c.inferType(n.Target))
	} else {
		if err := c.compileExpr(n.Value); err != nil {
			return err
		}
	}
	c.chunk.emit(OpDup, 0, 0, 0)
	c.chunk.emit(OpStoreLocal, slot, 0, 0)
	return nil
}

func (c *Compiler) compileMethodCall(n *ir.MethodCall) error {
	if sc, ok := n.Scope.(*ir.StaticClassRef); ok {
		for _, a := range n.Args {
			if err := c.compileExpr(a); err != nil {
				return err
			}
		}
		member := c.chunk.AddMember(Member{Owner: sc.ClassName, Name: n.Name, Arity: len(n.Args), Static: true})
		c.chunk.emit(OpInvokeStatic, member, 0, 0)
		return nil
	}

	method, hasSig := c.resolveInstanceMethod(n)
	for i, a := range n.Args {
		if err := c.compileExpr(a); err != nil {
			return err
		}
		if hasSig {
			c.emitBoxIfNeeded(method.Type.In(i + 1))
		}
	}
	if err := c.compileExpr(n.Scope); err != nil {
		return err
	}
	owner := c.scopeDescription(n.Scope)
	member := c.chunk.AddMember(Member{Owner: owner, Name: n.Name, Arity: len(n.Args)})
	c.chunk.emit(OpInvoke, member, 0, 0)
	if hasSig && method.Type.NumOut() > 0 {
		c.emitUnboxIfNeeded(method.Type.Out(0))
	}
	return nil
}

// compileObjectNew emits a `new` expression through a constructor function
// the caller registered with the shared hostreflect.Cache
// (RegisterConstructor); CanEmit's ObjectNew case has already confirmed one
// exists at the right arity.
func (c *Compiler) compileObjectNew(n *ir.ObjectNew) error {
	_, ctor, ok := c.resolveConstructor(n.TypeName, len(n.Args))
	if !ok {
		return fmt.Errorf("emit: no registered constructor for %s/%d", n.TypeName, len(n.Args))
	}
	for i, a := range n.Args {
		if err := c.compileExpr(a); err != nil {
			return err
		}
		c.emitBoxIfNeeded(ctor.Type().In(i))
	}
	member := c.chunk.AddMember(Member{Owner: n.TypeName, Name: "<init>", Arity: len(n.Args), Static: true})
	constIdx := c.chunk.AddConstant(ctor)
	c.chunk.emit(OpNew, constIdx, member, 0)
	return nil
}

// resolveConstructor looks up the registered constructor for typeName via
// the type registry and the shared reflective cache, confirming its arity
// matches. It is the single source of truth CanEmit's ObjectNew probe and
// compileObjectNew both call, so the two can never disagree about which
// constructors are emittable.
func (c *Compiler) resolveConstructor(typeName string, arity int) (reflect.Type, reflect.Value, bool) {
	if c.typeRegistry == nil {
		return nil, reflect.Value{}, false
	}
	t, ok := c.typeRegistry[typeName]
	if !ok {
		return nil, reflect.Value{}, false
	}
	ctor, ok := c.reflectCache.ResolveConstructor(t)
	if !ok || ctor.Type().NumIn() != arity {
		return nil, reflect.Value{}, false
	}
	return t, ctor, true
}

// resolveInstanceMethod resolves call's receiver+name+arity against the type
// registry and the shared reflective method cache; resolvable and
// compileMethodCall both call this so a method CanEmit accepted can never
// fail to resolve again during Compile.
func (c *Compiler) resolveInstanceMethod(call *ir.MethodCall) (reflect.Method, bool) {
	fqcn := c.inferType(call.Scope).FQCN
	if fqcn == "" || c.typeRegistry == nil {
		return reflect.Method{}, false
	}
	t, ok := c.typeRegistry[fqcn]
	if !ok {
		return reflect.Method{}, false
	}
	m, err := c.reflectCache.ResolveMethod(t, call.Name, len(call.Args))
	if err != nil {
		return reflect.Method{}, false
	}
	return m, true
}

// bridgeKinds maps the reflect.Kind values the VM's stack actually produces
// (int32, int64, float32, float64, bool, string) to their predeclared Go
// type, so emitBoxIfNeeded/emitUnboxIfNeeded can tell a plain value from a
// named type sharing the same underlying kind (e.g. a host `type Score
// int32`).
var bridgeKinds = map[reflect.Kind]reflect.Type{
	reflect.Int32:   reflect.TypeOf(int32(0)),
	reflect.Int64:   reflect.TypeOf(int64(0)),
	reflect.Float32: reflect.TypeOf(float32(0)),
	reflect.Float64: reflect.TypeOf(float64(0)),
	reflect.Bool:    reflect.TypeOf(false),
	reflect.String:  reflect.TypeOf(""),
}

// needsBridge reports whether t is a named type layered over one of the
// VM's plain runtime representations — the case OpBox/OpUnbox exist to
// bridge. Interface parameters (including plain `any`) never need it: the
// VM's plain values already satisfy them.
func needsBridge(t reflect.Type) bool {
	if t.Kind() == reflect.Interface {
		return false
	}
	plain, ok := bridgeKinds[t.Kind()]
	return ok && plain != t
}

// emitBoxIfNeeded converts the value on top of the stack to target, a
// resolved method or constructor parameter's exact type, when target is a
// named type the VM's plain representation isn't already assignable to.
func (c *Compiler) emitBoxIfNeeded(target reflect.Type) {
	if !needsBridge(target) {
		return
	}
	idx := c.chunk.AddConstant(target)
	c.chunk.emit(OpBox, idx, 0, 0)
}

// emitUnboxIfNeeded converts a resolved method's named return type back
// down to the plain predeclared type backing it, so the widening-lattice
// arithmetic ops downstream keep working against int32/int64/float32/
// float64/bool/string as they always do.
func (c *Compiler) emitUnboxIfNeeded(source reflect.Type) {
	if !needsBridge(source) {
		return
	}
	plain := bridgeKinds[source.Kind()]
	idx := c.chunk.AddConstant(plain)
	c.chunk.emit(OpUnbox, idx, 0, 0)
}
