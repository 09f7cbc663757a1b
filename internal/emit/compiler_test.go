package emit_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/exprforge/internal/emit"
	"github.com/cwbudde/exprforge/internal/hostreflect"
	"github.com/cwbudde/exprforge/internal/ir"
	"github.com/cwbudde/exprforge/internal/types"
	"github.com/cwbudde/exprforge/internal/vm"
)

func declTable(decls ...types.Declaration) *types.DeclTable {
	return &types.DeclTable{Decls: decls}
}

func TestCanEmitAcceptsPlainArithmetic(t *testing.T) {
	c := emit.NewCompiler("expr", declTable(types.Declaration{Name: "a", Type: types.Prim(types.Int)}))
	expr := &ir.Binary{
		Op:    ir.BinAdd,
		Left:  &ir.NameRef{Name: "a"},
		Right: &ir.IntLit{Value: 1},
	}
	assert.True(t, c.CanEmit(expr))
}

func TestCanEmitRejectsObjectNewWithNoRegisteredConstructor(t *testing.T) {
	c := emit.NewCompiler("expr", declTable())
	expr := &ir.ObjectNew{TypeName: "java.util.ArrayList"}
	assert.False(t, c.CanEmit(expr))
	assert.Contains(t, c.DiagnoseRejection(expr), "no registered constructor")
}

func TestCanEmitAcceptsObjectNewWithRegisteredConstructor(t *testing.T) {
	type point struct{ X, Y int32 }
	newPoint := func(x, y int32) *point { return &point{X: x, Y: y} }
	cache := hostreflect.New()
	cache.RegisterConstructor(reflect.TypeOf(point{}), reflect.ValueOf(newPoint))

	c := emit.NewCompiler("expr", declTable(),
		emit.WithReflectCache(cache),
		emit.WithTypeRegistry(map[string]reflect.Type{"Point": reflect.TypeOf(point{})}))
	expr := &ir.ObjectNew{TypeName: "Point", Args: []ir.Expr{&ir.IntLit{Value: 3}, &ir.IntLit{Value: 4}}}
	require.True(t, c.CanEmit(expr))

	chunk, err := c.Compile(expr)
	require.NoError(t, err)
	require.NoError(t, emit.Verify(chunk))

	result, err := vm.Run(chunk, make([]any, chunk.NumSlots))
	require.NoError(t, err)
	assert.Equal(t, &point{X: 3, Y: 4}, result)
}

func TestCompileSimpleAdditionVerifies(t *testing.T) {
	c := emit.NewCompiler("expr", declTable(types.Declaration{Name: "a", Type: types.Prim(types.Int)}))
	expr := &ir.Binary{
		Op:    ir.BinAdd,
		Left:  &ir.NameRef{Name: "a"},
		Right: &ir.IntLit{Value: 1},
	}
	chunk, err := c.Compile(expr)
	require.NoError(t, err)
	require.NoError(t, emit.Verify(chunk))
	assert.Contains(t, emit.Disassemble(chunk), "iadd")
}

func TestCanEmitRejectsUnregisteredReferenceType(t *testing.T) {
	c := emit.NewCompiler("expr", declTable(types.Declaration{Name: "root", Type: types.Ref("com.example.Root")}))
	base := &ir.NameRef{Name: "root"}
	call := &ir.MethodCall{Scope: base, Name: "a", Args: nil}
	assert.False(t, c.CanEmit(call))
	assert.Contains(t, c.DiagnoseRejection(call), "cannot resolve method")
}
