package fallback_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/exprforge/internal/fallback"
	"github.com/cwbudde/exprforge/internal/ir"
)

func TestGoHostCompilerRendersAndEvaluates(t *testing.T) {
	expr := &ir.Binary{
		Op:    ir.BinAdd,
		Left:  &ir.NameRef{Name: "a"},
		Right: &ir.IntLit{Value: 1},
	}
	hc := fallback.NewGoHostCompiler()

	unit, err := hc.Compile(expr, "evalExpr")
	require.NoError(t, err)
	assert.Contains(t, unit.GeneratedSource, "func evalExpr")

	diag := fallback.ParseDiagnostics(unit.Diagnostics)
	assert.Equal(t, "evalExpr", diag.Name)
	assert.Empty(t, diag.RenderError)

	env := ir.NewEnv(map[string]any{"a": int32(41)})
	result, err := hc.Eval(expr, env)
	require.NoError(t, err)
	assert.Equal(t, int32(42), result)
}
