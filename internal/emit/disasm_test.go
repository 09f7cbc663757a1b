package emit_test

import (
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/exprforge/internal/emit"
	"github.com/cwbudde/exprforge/internal/ir"
	"github.com/cwbudde/exprforge/internal/types"
)

// TestDisassembleGoldenOutput snapshots the disassembler's listing for a
// handful of representative chunks against recorded golden text.
func TestDisassembleGoldenOutput(t *testing.T) {
	cases := []struct {
		name string
		expr ir.Expr
		decl types.Declaration
	}{
		{
			name: "integer addition",
			expr: &ir.Binary{Op: ir.BinAdd, Left: &ir.NameRef{Name: "a"}, Right: &ir.IntLit{Value: 1}},
			decl: types.Declaration{Name: "a", Type: types.Prim(types.Int)},
		},
		{
			name: "widened comparison",
			expr: &ir.Binary{Op: ir.BinLt, Left: &ir.NameRef{Name: "a"}, Right: &ir.DoubleLit{Value: 1.5}},
			decl: types.Declaration{Name: "a", Type: types.Prim(types.Int)},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := emit.NewCompiler("snapshot", declTable(tc.decl))
			chunk, err := c.Compile(tc.expr)
			require.NoError(t, err)
			require.NoError(t, emit.Verify(chunk))
			snaps.MatchSnapshot(t, tc.name, emit.Disassemble(chunk))
		})
	}
}
