package exprforge_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/exprforge"
	"github.com/cwbudde/exprforge/internal/registry"
	"github.com/cwbudde/exprforge/internal/types"
)

func TestCompileBooleanExpressionOverMapContext(t *testing.T) {
	decls := &types.DeclTable{
		Context: types.Declaration{Name: "ctx", Type: types.Ref("java.util.Map")},
		Decls:   []types.Declaration{{Name: "active", Type: types.Prim(types.Boolean)}},
	}
	req := exprforge.Request{
		Name:   "isActive",
		Source: "active",
		Decls:  decls,
	}
	eval, err := exprforge.Compile(context.Background(), req, exprforge.Config{DirectEmitterEnabled: true})
	require.NoError(t, err)

	result, err := eval.Eval(context.Background(), nil, map[string]any{"active": true})
	require.NoError(t, err)
	assert.Equal(t, true, result)
}

func TestCompileIntegerAddition(t *testing.T) {
	decls := &types.DeclTable{
		Decls: []types.Declaration{
			{Name: "a", Type: types.Prim(types.Int)},
			{Name: "b", Type: types.Prim(types.Int)},
		},
	}
	req := exprforge.Request{Name: "sum", Source: "a + b", Decls: decls}
	eval, err := exprforge.Compile(context.Background(), req, exprforge.Config{DirectEmitterEnabled: true})
	require.NoError(t, err)

	result, err := eval.Eval(context.Background(), nil, map[string]any{"a": int32(2), "b": int32(3)})
	require.NoError(t, err)
	assert.Equal(t, int32(5), result)
}

func TestCompileBlockContentReassignsLocal(t *testing.T) {
	decls := &types.DeclTable{Decls: []types.Declaration{{Name: "x", Type: types.Prim(types.Int)}}}
	req := exprforge.Request{
		Name:        "bump",
		Source:      "x = x + 1; return x;",
		Decls:       decls,
		ContentKind: types.Block,
	}
	eval, err := exprforge.Compile(context.Background(), req, exprforge.Config{DirectEmitterEnabled: true})
	require.NoError(t, err)

	result, err := eval.Eval(context.Background(), nil, map[string]any{"x": int32(41)})
	require.NoError(t, err)
	assert.Equal(t, int32(42), result)
}

func TestCompileBigDecimalLiteralFallsBackToHostCompiler(t *testing.T) {
	decls := &types.DeclTable{}
	req := exprforge.Request{Name: "price", Source: "1.50B", Decls: decls}
	eval, err := exprforge.Compile(context.Background(), req, exprforge.Config{DirectEmitterEnabled: true})
	require.NoError(t, err)

	source, ok := exprforge.GeneratedSource(eval)
	assert.True(t, ok)
	assert.Contains(t, source, "func price")
}

func TestCompileDedupsStructurallyIdenticalExpressions(t *testing.T) {
	decls := &types.DeclTable{Decls: []types.Declaration{{Name: "n", Type: types.Prim(types.Int)}}}
	cfg := exprforge.Config{DirectEmitterEnabled: true}
	reg := registry.New()

	eval1, err := exprforge.CompileWithRegistry(context.Background(), exprforge.Request{Name: "f1", Source: "n + 1", Decls: decls}, cfg, reg)
	require.NoError(t, err)
	eval2, err := exprforge.CompileWithRegistry(context.Background(), exprforge.Request{Name: "f2", Source: "n + 1", Decls: decls}, cfg, reg)
	require.NoError(t, err)

	r1, err := eval1.Eval(context.Background(), nil, map[string]any{"n": int32(4)})
	require.NoError(t, err)
	r2, err := eval2.Eval(context.Background(), nil, map[string]any{"n": int32(4)})
	require.NoError(t, err)
	assert.Equal(t, r1, r2)

	// The value equality above would also hold if the registry had simply
	// compiled and run two independent, never-shared Chunks — assert the
	// dedup the registry actually exists to provide: both names resolve to
	// one surviving entry and one Chunk instance.
	require.Equal(t, 1, reg.Len(), "structurally identical expressions must share one registry entry")
	e1, ok := reg.Lookup("f1")
	require.True(t, ok)
	e2, ok := reg.Lookup("f2")
	require.True(t, ok)
	assert.Same(t, e1, e2)
	assert.Same(t, e1.Chunk, e2.Chunk)
}

func TestCompileDedupsStructurallyIdenticalFallbackExpressions(t *testing.T) {
	decls := &types.DeclTable{}
	cfg := exprforge.Config{DirectEmitterEnabled: true}
	reg := registry.New()

	eval1, err := exprforge.CompileWithRegistry(context.Background(), exprforge.Request{Name: "price1", Source: "1.50B", Decls: decls}, cfg, reg)
	require.NoError(t, err)
	eval2, err := exprforge.CompileWithRegistry(context.Background(), exprforge.Request{Name: "price2", Source: "1.50B", Decls: decls}, cfg, reg)
	require.NoError(t, err)

	_, ok := exprforge.GeneratedSource(eval1)
	assert.True(t, ok)
	_, ok = exprforge.GeneratedSource(eval2)
	assert.True(t, ok)

	require.Equal(t, 1, reg.Len(), "structurally identical fallback expressions must share one registry entry")
	e1, ok := reg.Lookup("price1")
	require.True(t, ok)
	e2, ok := reg.Lookup("price2")
	require.True(t, ok)
	assert.Same(t, e1, e2)
	assert.Same(t, e1.Fallback, e2.Fallback)
}

func TestCompileDivisionByZeroSurfacesEvaluationError(t *testing.T) {
	decls := &types.DeclTable{Decls: []types.Declaration{{Name: "n", Type: types.Prim(types.Int)}}}
	req := exprforge.Request{Name: "divZero", Source: "n / 0", Decls: decls}
	eval, err := exprforge.Compile(context.Background(), req, exprforge.Config{DirectEmitterEnabled: true})
	require.NoError(t, err)

	_, err = eval.Eval(context.Background(), nil, map[string]any{"n": int32(10)})
	assert.ErrorContains(t, err, "division")
}
