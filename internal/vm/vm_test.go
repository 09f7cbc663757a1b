package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/exprforge/internal/emit"
	"github.com/cwbudde/exprforge/internal/ir"
	"github.com/cwbudde/exprforge/internal/types"
	"github.com/cwbudde/exprforge/internal/vm"
)

func TestRunAddition(t *testing.T) {
	decls := &types.DeclTable{Decls: []types.Declaration{{Name: "a", Type: types.Prim(types.Int)}}}
	c := emit.NewCompiler("expr", decls)
	expr := &ir.Binary{Op: ir.BinAdd, Left: &ir.NameRef{Name: "a"}, Right: &ir.IntLit{Value: 1}}
	chunk, err := c.Compile(expr)
	require.NoError(t, err)

	locals := make([]any, chunk.NumSlots)
	locals[2] = int32(41) // slot 0/1 reserved for receiver/context

	result, err := vm.Run(chunk, locals)
	require.NoError(t, err)
	assert.Equal(t, int32(42), result)
}

func TestRunDivisionByZeroErrors(t *testing.T) {
	decls := &types.DeclTable{}
	c := emit.NewCompiler("expr", decls)
	expr := &ir.Binary{Op: ir.BinDiv, Left: &ir.IntLit{Value: 1}, Right: &ir.IntLit{Value: 0}}
	chunk, err := c.Compile(expr)
	require.NoError(t, err)

	_, err = vm.Run(chunk, make([]any, chunk.NumSlots))
	assert.ErrorContains(t, err, "division")
}
