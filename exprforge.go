// Package exprforge compiles a small expression DSL down to a native
// bytecode artifact when it can, and to a reflective fallback evaluator
// when it cannot, deduplicating compiled artifacts behind a content-hash
// registry.
package exprforge

import (
	"context"
	"reflect"

	"github.com/cwbudde/exprforge/internal/emit"
	"github.com/cwbudde/exprforge/internal/fallback"
	"github.com/cwbudde/exprforge/internal/hostreflect"
	"github.com/cwbudde/exprforge/internal/ir"
	"github.com/cwbudde/exprforge/internal/lower"
	"github.com/cwbudde/exprforge/internal/parser"
	"github.com/cwbudde/exprforge/internal/registry"
	"github.com/cwbudde/exprforge/internal/telemetry"
	"github.com/cwbudde/exprforge/internal/types"
	"github.com/cwbudde/exprforge/internal/vm"
)

// Request is a CompilerRequest: one expression or statement block plus the
// declaration table it is compiled against.
type Request struct {
	Name        string
	Source      string
	Decls       *types.DeclTable
	ContentKind types.ContentKind
	// Imports maps a simple reference-type name to its fully qualified name.
	Imports map[string]string
}

// Config controls optional behavior of Compile.
type Config struct {
	// DirectEmitterEnabled disables the direct emitter entirely when false,
	// forcing every request through the host-compiler fallback — useful for
	// isolating a suspected emitter bug without touching call sites.
	DirectEmitterEnabled bool
	// DebugCanEmit turns on per-request can_emit tracing.
	DebugCanEmit bool
	// Logger receives telemetry; nil is equivalent to telemetry.Discard().
	Logger *telemetry.Logger
	// TypeRegistry binds FQCNs the emitter may encounter on method-call
	// receivers to their reflect.Type, enabling direct-emit instance method
	// dispatch. An FQCN absent from this map always
	// routes its call through the fallback.
	TypeRegistry map[string]reflect.Type
}

// Evaluator is the compiled artifact Compile returns: something that can
// be evaluated repeatedly against different bound values without
// recompiling.
type Evaluator interface {
	// Eval runs the compiled expression with receiver bound as the
	// evaluation context's implicit target and values bound by declared
	// name.
	Eval(ctx context.Context, receiver any, values map[string]any) (any, error)
	// EvalWith runs the compiled expression with with rebinding the
	// evaluation context instead of the original receiver, the Evaluator
	// counterpart of a source-level with(t){...} block. It fails with an
	// *ir.EvaluationError when the request's declaration table never named
	// a context to rebind in the first place.
	EvalWith(ctx context.Context, with any) (any, error)
}

// defaultRegistry is the process-wide class registry every Compile call
// shares unless a caller constructs its own via CompileWithRegistry.
var defaultRegistry = registry.New()

// defaultReflectCache is the process-wide method-resolution cache every
// direct-emit compilation shares.
var defaultReflectCache = hostreflect.New()

// Compile parses, lowers, and emits req, preferring the direct bytecode
// emitter and falling back to the host compiler when the emitter's
// capability gate rejects the lowered form.
func Compile(ctx context.Context, req Request, cfg Config) (Evaluator, error) {
	return CompileWithRegistry(ctx, req, cfg, defaultRegistry)
}

// CompileWithRegistry is Compile parameterized over an explicit Registry,
// for tests and for callers that want isolation from the process-wide
// default.
func CompileWithRegistry(ctx context.Context, req Request, cfg Config, reg *registry.Registry) (Evaluator, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.Discard()
	}

	p := parser.New(req.Source, req.Decls, parser.WithImports(req.Imports))

	if req.ContentKind == types.Block {
		block := p.ParseBlock()
		if errs := p.Errors(); len(errs) > 0 {
			logger.CompileFailed(req.Source, errs[0])
			return nil, errs[0]
		}
		lowered := lower.Block(block)
		hc := fallback.NewGoHostCompiler()
		source, _ := fallback.RenderGoBlockSource(lowered, req.Name)
		unit := &fallback.Unit{Name: req.Name, GeneratedSource: source}
		entry := reg.DefineFallbackBlock(req.Name, lowered, unit)
		logger.RegistryHit(entry.Digest, entry.Fallback != unit)
		return &fallbackBlockEvaluator{body: lowered, decls: req.Decls, hostCompiler: hc, unit: entry.Fallback}, nil
	}

	tree := p.ParseExpression()
	if errs := p.Errors(); len(errs) > 0 {
		logger.CompileFailed(req.Source, errs[0])
		return nil, errs[0]
	}
	lowered := lower.Program(tree)

	if cfg.DirectEmitterEnabled {
		opts := []emit.Option{emit.WithReflectCache(defaultReflectCache)}
		if cfg.TypeRegistry != nil {
			opts = append(opts, emit.WithTypeRegistry(cfg.TypeRegistry))
		}
		compiler := emit.NewCompiler(req.Name, req.Decls, opts...)
		if compiler.CanEmit(lowered) {
			chunk, err := compiler.Compile(lowered)
			if err == nil {
				if verr := emit.Verify(chunk); verr != nil {
					logger.CompileFailed(req.Source, verr)
					return nil, ir.NewCompileError(req.Source, "", verr.Error(), verr)
				}
				entry := reg.Define(req.Name, chunk)
				if cfg.DebugCanEmit {
					logger.CanEmitDecision(entry.Digest, true, "")
				}
				logger.RegistryHit(entry.Digest, entry.Chunk != chunk)
				return &directEvaluator{chunk: entry.Chunk, decls: req.Decls}, nil
			}
			logger.CompileFailed(req.Source, err)
		} else if cfg.DebugCanEmit {
			logger.CanEmitDecision(req.Name, false, compiler.DiagnoseRejection(lowered))
		}
	}

	hc := fallback.NewGoHostCompiler()
	unit, err := hc.Compile(lowered, req.Name)
	if err != nil {
		return nil, ir.NewCompileError(req.Source, "", "", err)
	}
	entry := reg.DefineFallback(req.Name, lowered, unit)
	logger.RegistryHit(entry.Digest, entry.Fallback != unit)
	return &fallbackEvaluator{expr: lowered, decls: req.Decls, hostCompiler: hc, unit: entry.Fallback}, nil
}

// directEvaluator runs a Chunk on the stack machine (internal/vm).
type directEvaluator struct {
	chunk *emit.Chunk
	decls *types.DeclTable
}

func (e *directEvaluator) Eval(ctx context.Context, receiver any, values map[string]any) (any, error) {
	return e.run(receiver, values)
}

func (e *directEvaluator) EvalWith(ctx context.Context, with any) (any, error) {
	if e.decls.Context.Name == "" {
		return nil, ir.NewEvaluationError("evaluator was compiled without a context declaration to rebind via with()")
	}
	return e.run(with, nil)
}

func (e *directEvaluator) run(receiver any, values map[string]any) (any, error) {
	locals := make([]any, e.chunk.NumSlots)
	locals[0] = receiver
	locals[1] = values
	slot := 2
	for _, d := range e.decls.Decls {
		if v, ok := values[d.Name]; ok {
			locals[slot] = v
		}
		slot++
		if d.Type.IsPrimitive() && d.Type.Primitive.Width64() {
			slot++
		}
	}
	return vm.Run(e.chunk, locals)
}

// fallbackEvaluator runs the EIR reference interpreter for a single
// expression, the execution path for anything the direct emitter's
// capability gate rejected.
type fallbackEvaluator struct {
	expr         ir.Expr
	decls        *types.DeclTable
	hostCompiler fallback.HostCompiler
	unit         *fallback.Unit
}

func (e *fallbackEvaluator) Eval(ctx context.Context, receiver any, values map[string]any) (any, error) {
	return e.hostCompiler.Eval(e.expr, envFor(e.decls, receiver, values))
}

func (e *fallbackEvaluator) EvalWith(ctx context.Context, with any) (any, error) {
	if e.decls.Context.Name == "" {
		return nil, ir.NewEvaluationError("evaluator was compiled without a context declaration to rebind via with()")
	}
	return e.hostCompiler.Eval(e.expr, envFor(e.decls, with, nil))
}

// fallbackBlockEvaluator runs a BLOCK-content request. The direct emitter
// only ever compiles a single expression value; statement
// blocks with arbitrary control flow always execute via the reference
// interpreter (see DESIGN.md).
type fallbackBlockEvaluator struct {
	body         *ir.Block
	decls        *types.DeclTable
	hostCompiler fallback.HostCompiler
	unit         *fallback.Unit
}

func (e *fallbackBlockEvaluator) Eval(ctx context.Context, receiver any, values map[string]any) (any, error) {
	return ir.EvalBlock(e.body, envFor(e.decls, receiver, values))
}

func (e *fallbackBlockEvaluator) EvalWith(ctx context.Context, with any) (any, error) {
	if e.decls.Context.Name == "" {
		return nil, ir.NewEvaluationError("evaluator was compiled without a context declaration to rebind via with()")
	}
	return ir.EvalBlock(e.body, envFor(e.decls, with, nil))
}

func envFor(decls *types.DeclTable, receiver any, values map[string]any) *ir.Env {
	env := ir.NewEnv(values)
	if decls.Context.Name != "" {
		env.Values[decls.Context.Name] = receiver
	}
	return env
}

// GeneratedSource exposes the fallback's diagnostic Go rendering for an
// Evaluator that took the host-compiler path (single expression or BLOCK
// content); it returns false for a directly-emitted Evaluator, which has
// no such rendering.
func GeneratedSource(e Evaluator) (string, bool) {
	var unit *fallback.Unit
	switch fe := e.(type) {
	case *fallbackEvaluator:
		unit = fe.unit
	case *fallbackBlockEvaluator:
		unit = fe.unit
	default:
		return "", false
	}
	if unit == nil || unit.GeneratedSource == "" {
		return "", false
	}
	return unit.GeneratedSource, true
}

// Disassemble exposes a human-readable listing of the Chunk backing a
// directly-emitted Evaluator; it returns false for anything that took the
// fallback path, since there is no Chunk to show.
func Disassemble(e Evaluator) (string, bool) {
	de, ok := e.(*directEvaluator)
	if !ok {
		return "", false
	}
	return emit.Disassemble(de.chunk), true
}
