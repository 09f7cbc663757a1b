package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/exprforge"
	"github.com/cwbudde/exprforge/internal/types"
)

var (
	exprFlag    string
	declsPath   string
	kindFlag    string
	valuesJSON  string
	disassemble bool
	showSource  bool
	noDirect    bool
)

var evalCmd = &cobra.Command{
	Use:   "eval [file]",
	Short: "Compile and evaluate an expression or statement block",
	Long: `Compile a source fragment against a declaration table and run it.

Examples:
  # Evaluate an inline expression
  exprforgec eval -e "a + b" --decls decls.yaml --values '{"a":2,"b":3}'

  # Evaluate a statement block from a file
  exprforgec eval block.src --decls decls.yaml --kind block --values '{"x":41}'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVarP(&exprFlag, "expr", "e", "", "evaluate inline source instead of reading a file")
	evalCmd.Flags().StringVar(&declsPath, "decls", "", "path to a YAML declaration table (required)")
	evalCmd.Flags().StringVar(&kindFlag, "kind", "expression", "content kind: expression or block")
	evalCmd.Flags().StringVar(&valuesJSON, "values", "{}", "JSON object binding declared names to values")
	evalCmd.Flags().BoolVar(&disassemble, "disassemble", false, "show emitted bytecode when the direct emitter accepts the request")
	evalCmd.Flags().BoolVar(&showSource, "show-source", false, "show generated Go diagnostic source when the host compiler handles the request")
	evalCmd.Flags().BoolVar(&noDirect, "no-direct", false, "force the host-compiler fallback, skipping the direct emitter")
	_ = evalCmd.MarkFlagRequired("decls")
}

func runEval(_ *cobra.Command, args []string) error {
	var source string
	switch {
	case exprFlag != "":
		source = exprFlag
	case len(args) == 1:
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
		source = string(content)
	default:
		return fmt.Errorf("either provide a file path or use -e/--expr for inline source")
	}

	declsDoc, err := os.ReadFile(declsPath)
	if err != nil {
		return fmt.Errorf("failed to read declaration table %s: %w", declsPath, err)
	}
	decls, err := exprforge.LoadDeclTableYAML(declsDoc)
	if err != nil {
		return fmt.Errorf("failed to parse declaration table: %w", err)
	}

	kind, err := parseKind(kindFlag)
	if err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(valuesJSON), &raw); err != nil {
		return fmt.Errorf("failed to parse --values: %w", err)
	}
	values := coerceValues(decls, raw)

	req := exprforge.Request{Name: "eval", Source: source, Decls: decls, ContentKind: kind}
	cfg := exprforge.Config{DirectEmitterEnabled: !noDirect, DebugCanEmit: verbose}

	eval, err := exprforge.Compile(context.Background(), req, cfg)
	if err != nil {
		return fmt.Errorf("compile failed: %w", err)
	}

	if disassemble {
		if dis, ok := exprforge.Disassemble(eval); ok {
			fmt.Fprintln(os.Stderr, dis)
		} else if verbose {
			fmt.Fprintln(os.Stderr, "(request took the host-compiler fallback; nothing to disassemble)")
		}
	}
	if showSource {
		if src, ok := exprforge.GeneratedSource(eval); ok {
			fmt.Fprintln(os.Stderr, src)
		} else if verbose {
			fmt.Fprintln(os.Stderr, "(request was directly emitted; no diagnostic source)")
		}
	}

	result, err := eval.Eval(context.Background(), nil, values)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	fmt.Printf("%v\n", result)
	return nil
}

func parseKind(s string) (types.ContentKind, error) {
	switch s {
	case "expression", "":
		return types.Expression, nil
	case "block":
		return types.Block, nil
	default:
		return 0, fmt.Errorf("unknown --kind %q (want expression or block)", s)
	}
}

// coerceValues narrows each bound value to the Go type its declared
// primitive tag expects. JSON numbers always decode as float64, but the
// direct emitter's stack machine expects exactly the boxed type its slot
// table was built against.
func coerceValues(decls *types.DeclTable, raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	for _, d := range decls.Decls {
		v, ok := raw[d.Name]
		if !ok || !d.Type.IsPrimitive() {
			continue
		}
		f, isFloat := v.(float64)
		if !isFloat {
			continue
		}
		switch d.Type.Primitive {
		case types.Int, types.Short, types.Byte, types.Char:
			out[d.Name] = int32(f)
		case types.Long:
			out[d.Name] = int64(f)
		case types.Float:
			out[d.Name] = float32(f)
		case types.Double:
			out[d.Name] = f
		}
	}
	return out
}
