package vm_test

// Cross-checks the stack machine (vm.Run) against the EIR reference
// interpreter (ir.Eval) for the same lowered expression — the oracle check
// DESIGN.md cites as the reason two independent evaluators are worth
// keeping.

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/exprforge/internal/emit"
	"github.com/cwbudde/exprforge/internal/ir"
	"github.com/cwbudde/exprforge/internal/types"
	"github.com/cwbudde/exprforge/internal/vm"
)

func TestVMAgreesWithReferenceInterpreterOnArithmetic(t *testing.T) {
	decls := &types.DeclTable{Decls: []types.Declaration{{Name: "a", Type: types.Prim(types.Int)}}}
	expr := &ir.Binary{
		Op:   ir.BinMul,
		Left: &ir.Enclosed{Inner: &ir.Binary{Op: ir.BinAdd, Left: &ir.NameRef{Name: "a"}, Right: &ir.IntLit{Value: 1}}},
		Right: &ir.IntLit{Value: 2},
	}

	c := emit.NewCompiler("expr", decls)
	chunk, err := c.Compile(expr)
	require.NoError(t, err)

	for _, a := range []int32{5, -3, 0} {
		locals := make([]any, chunk.NumSlots)
		locals[2] = a
		vmResult, err := vm.Run(chunk, locals)
		require.NoError(t, err)

		interpResult, err := ir.Eval(expr, ir.NewEnv(map[string]any{"a": a}))
		require.NoError(t, err)

		assert.Equal(t, interpResult, vmResult, "vm and interpreter disagree for a=%d", a)
	}
}

func TestVMAgreesWithReferenceInterpreterOnConditional(t *testing.T) {
	decls := &types.DeclTable{Decls: []types.Declaration{{Name: "a", Type: types.Prim(types.Int)}}}
	expr := &ir.CondExpr{
		Cond: &ir.Binary{Op: ir.BinGt, Left: &ir.NameRef{Name: "a"}, Right: &ir.IntLit{Value: 3}},
		Then: &ir.NameRef{Name: "a"},
		Else: &ir.IntLit{Value: 0},
	}

	c := emit.NewCompiler("expr", decls)
	chunk, err := c.Compile(expr)
	require.NoError(t, err)

	for _, a := range []int32{5, 1, 3} {
		locals := make([]any, chunk.NumSlots)
		locals[2] = a
		vmResult, err := vm.Run(chunk, locals)
		require.NoError(t, err)

		interpResult, err := ir.Eval(expr, ir.NewEnv(map[string]any{"a": a}))
		require.NoError(t, err)

		assert.Equal(t, interpResult, vmResult, "vm and interpreter disagree for a=%d", a)
	}
}

func TestVMAgreesWithReferenceInterpreterOnStaticCall(t *testing.T) {
	decls := &types.DeclTable{Decls: []types.Declaration{{Name: "a", Type: types.Prim(types.Int)}}}
	expr := &ir.MethodCall{
		Scope: &ir.StaticClassRef{ClassName: "Math"},
		Name:  "abs",
		Args:  []ir.Expr{&ir.NameRef{Name: "a"}},
	}

	c := emit.NewCompiler("expr", decls)
	chunk, err := c.Compile(expr)
	require.NoError(t, err)

	for _, a := range []int32{-7, 7, 0} {
		locals := make([]any, chunk.NumSlots)
		locals[2] = a
		vmResult, err := vm.Run(chunk, locals)
		require.NoError(t, err)

		interpResult, err := ir.Eval(expr, ir.NewEnv(map[string]any{"a": a}))
		require.NoError(t, err)

		assert.Equal(t, interpResult, vmResult, "vm and interpreter disagree for a=%d", a)
	}
}
