// Package fallback implements the host-compiler path: expressions the
// direct emitter's capability gate rejects are pretty-printed as Go source
// for diagnostics and executed by the EIR reference interpreter rather
// than failing the whole compilation request.
package fallback

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"strconv"

	"github.com/cwbudde/exprforge/internal/ir"
)

// RenderGoSource renders e as the return value of a throwaway Go function
// named funcName. It is diagnostic output only — nothing downstream parses
// it back into EIR.
func RenderGoSource(e ir.Expr, funcName string) (string, error) {
	body, err := toGoExpr(e)
	if err != nil {
		return "", fmt.Errorf("fallback: render %s: %w", funcName, err)
	}

	fn := &ast.FuncDecl{
		Name: ast.NewIdent(funcName),
		Type: &ast.FuncType{Params: &ast.FieldList{}},
		Body: &ast.BlockStmt{List: []ast.Stmt{
			&ast.ReturnStmt{Results: []ast.Expr{body}},
		}},
	}
	file := &ast.File{
		Name:  ast.NewIdent("generated"),
		Decls: []ast.Decl{fn},
	}

	var buf bytes.Buffer
	fset := token.NewFileSet()
	if err := printer.Fprint(&buf, fset, file); err != nil {
		return "", fmt.Errorf("fallback: print %s: %w", funcName, err)
	}

	// Round-trip through go/parser: a render bug that produces syntactically
	// invalid Go is a render bug, not something to ship into a diagnostics
	// bundle silently.
	if _, err := parser.ParseFile(fset, funcName+".go", buf.Bytes(), parser.AllErrors); err != nil {
		return "", fmt.Errorf("fallback: rendered source for %s does not parse: %w", funcName, err)
	}
	return buf.String(), nil
}

// toGoExpr translates a (lowered) EIR expression into the closest Go
// surface syntax, used purely for human-readable diagnostics — it does not
// need to (and for constructs like Map.of/List.of does not) produce Go that
// would actually compile against a real package.
func toGoExpr(e ir.Expr) (ast.Expr, error) {
	switch n := e.(type) {
	case *ir.IntLit:
		return &ast.BasicLit{Kind: token.INT, Value: strconv.FormatInt(int64(n.Value), 10)}, nil
	case *ir.LongLit:
		return &ast.BasicLit{Kind: token.INT, Value: strconv.FormatInt(n.Value, 10)}, nil
	case *ir.FloatLit:
		return &ast.BasicLit{Kind: token.FLOAT, Value: strconv.FormatFloat(float64(n.Value), 'g', -1, 32)}, nil
	case *ir.DoubleLit:
		return &ast.BasicLit{Kind: token.FLOAT, Value: strconv.FormatFloat(n.Value, 'g', -1, 64)}, nil
	case *ir.BoolLit:
		return ast.NewIdent(strconv.FormatBool(n.Value)), nil
	case *ir.StringLit:
		return &ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(n.Value)}, nil
	case *ir.CharLit:
		return &ast.BasicLit{Kind: token.CHAR, Value: strconv.QuoteRune(n.Value)}, nil
	case *ir.NullLit:
		return ast.NewIdent("nil"), nil

	case *ir.NameRef:
		return ast.NewIdent(n.Name), nil

	case *ir.StaticClassRef:
		return ast.NewIdent(n.ClassName), nil

	case *ir.Unary:
		inner, err := toGoExpr(n.Inner)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: unaryTok(n.Op), X: inner}, nil

	case *ir.Binary:
		left, err := toGoExpr(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := toGoExpr(n.Right)
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{X: left, Op: binaryTok(n.Op), Y: right}, nil

	case *ir.CondExpr:
		// Go has no ternary operator; render the closest readable shape for
		// a diagnostics bundle, an immediately-invoked closure.
		cond, err := toGoExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		then, err := toGoExpr(n.Then)
		if err != nil {
			return nil, err
		}
		els, err := toGoExpr(n.Else)
		if err != nil {
			return nil, err
		}
		fn := &ast.FuncLit{
			Type: &ast.FuncType{Params: &ast.FieldList{}, Results: &ast.FieldList{List: []*ast.Field{{Type: ast.NewIdent("any")}}}},
			Body: &ast.BlockStmt{List: []ast.Stmt{
				&ast.IfStmt{
					Cond: cond,
					Body: &ast.BlockStmt{List: []ast.Stmt{&ast.ReturnStmt{Results: []ast.Expr{then}}}},
					Else: &ast.BlockStmt{List: []ast.Stmt{&ast.ReturnStmt{Results: []ast.Expr{els}}}},
				},
			}},
		}
		return &ast.CallExpr{Fun: fn}, nil

	case *ir.Cast:
		inner, err := toGoExpr(n.Inner)
		if err != nil {
			return nil, err
		}
		return &ast.CallExpr{Fun: ast.NewIdent(goTypeName(n.TargetType)), Args: []ast.Expr{inner}}, nil

	case *ir.Enclosed:
		inner, err := toGoExpr(n.Inner)
		if err != nil {
			return nil, err
		}
		return &ast.ParenExpr{X: inner}, nil

	case *ir.FieldGet:
		scope, err := toGoExpr(n.Scope)
		if err != nil {
			return nil, err
		}
		return &ast.SelectorExpr{X: scope, Sel: ast.NewIdent(n.Field)}, nil

	case *ir.MethodCall:
		scope, err := toGoExpr(n.Scope)
		if err != nil {
			return nil, err
		}
		args := make([]ast.Expr, len(n.Args))
		for i, a := range n.Args {
			ga, err := toGoExpr(a)
			if err != nil {
				return nil, err
			}
			args[i] = ga
		}
		return &ast.CallExpr{Fun: &ast.SelectorExpr{X: scope, Sel: ast.NewIdent(n.Name)}, Args: args}, nil

	case *ir.ObjectNew:
		args := make([]ast.Expr, len(n.Args))
		for i, a := range n.Args {
			ga, err := toGoExpr(a)
			if err != nil {
				return nil, err
			}
			args[i] = ga
		}
		return &ast.CallExpr{Fun: ast.NewIdent("new" + n.TypeName), Args: args}, nil

	case *ir.ArrayAccess:
		scope, err := toGoExpr(n.Scope)
		if err != nil {
			return nil, err
		}
		idx, err := toGoExpr(n.Index)
		if err != nil {
			return nil, err
		}
		return &ast.IndexExpr{X: scope, Index: idx}, nil

	default:
		return nil, fmt.Errorf("no Go rendering for EIR node %T", e)
	}
}

// RenderGoBlockSource renders b (a BLOCK-content request's lowered body)
// the same way RenderGoSource renders a single expression, for diagnostics
// and for the registry's fallback-path content digest.
func RenderGoBlockSource(b *ir.Block, funcName string) (string, error) {
	body, err := toGoBlock(b)
	if err != nil {
		return "", fmt.Errorf("fallback: render %s: %w", funcName, err)
	}

	fn := &ast.FuncDecl{
		Name: ast.NewIdent(funcName),
		Type: &ast.FuncType{Params: &ast.FieldList{}},
		Body: body,
	}
	file := &ast.File{
		Name:  ast.NewIdent("generated"),
		Decls: []ast.Decl{fn},
	}

	var buf bytes.Buffer
	fset := token.NewFileSet()
	if err := printer.Fprint(&buf, fset, file); err != nil {
		return "", fmt.Errorf("fallback: print %s: %w", funcName, err)
	}
	if _, err := parser.ParseFile(fset, funcName+".go", buf.Bytes(), parser.AllErrors); err != nil {
		return "", fmt.Errorf("fallback: rendered source for %s does not parse: %w", funcName, err)
	}
	return buf.String(), nil
}

func toGoBlock(b *ir.Block) (*ast.BlockStmt, error) {
	stmts := make([]ast.Stmt, 0, len(b.Stmts))
	for _, s := range b.Stmts {
		gs, err := toGoStmt(s)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, gs)
	}
	return &ast.BlockStmt{List: stmts}, nil
}

func toGoStmt(s ir.Stmt) (ast.Stmt, error) {
	switch n := s.(type) {
	case *ir.ExprStmt:
		x, err := toGoExpr(n.X)
		if err != nil {
			return nil, err
		}
		return &ast.ExprStmt{X: x}, nil

	case *ir.VarDecl:
		rhs := ast.Expr(ast.NewIdent("nil"))
		if n.Init != nil {
			x, err := toGoExpr(n.Init)
			if err != nil {
				return nil, err
			}
			rhs = x
		}
		return &ast.AssignStmt{
			Lhs: []ast.Expr{ast.NewIdent(n.Name)},
			Tok: token.DEFINE,
			Rhs: []ast.Expr{rhs},
		}, nil

	case *ir.Return:
		if n.X == nil {
			return &ast.ReturnStmt{}, nil
		}
		x, err := toGoExpr(n.X)
		if err != nil {
			return nil, err
		}
		return &ast.ReturnStmt{Results: []ast.Expr{x}}, nil

	case *ir.If:
		cond, err := toGoExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		then, err := toGoBlock(n.Then)
		if err != nil {
			return nil, err
		}
		ifStmt := &ast.IfStmt{Cond: cond, Body: then}
		if n.Else != nil {
			els, err := toGoStmt(n.Else)
			if err != nil {
				return nil, err
			}
			ifStmt.Else = els
		}
		return ifStmt, nil

	case *ir.Block:
		return toGoBlock(n)

	case *ir.Empty:
		return &ast.EmptyStmt{}, nil

	default:
		return nil, fmt.Errorf("no Go rendering for EIR statement %T", s)
	}
}

func unaryTok(op ir.UnaryOp) token.Token {
	switch op {
	case ir.UnaryNot:
		return token.NOT
	case ir.UnaryBitNot:
		return token.XOR
	default:
		return token.SUB
	}
}

func binaryTok(op ir.BinaryOp) token.Token {
	switch op {
	case ir.BinAdd:
		return token.ADD
	case ir.BinSub:
		return token.SUB
	case ir.BinMul:
		return token.MUL
	case ir.BinDiv:
		return token.QUO
	case ir.BinMod:
		return token.REM
	case ir.BinEq, ir.BinRefEq:
		return token.EQL
	case ir.BinNe, ir.BinRefNe:
		return token.NEQ
	case ir.BinLt:
		return token.LSS
	case ir.BinLe:
		return token.LEQ
	case ir.BinGt:
		return token.GTR
	case ir.BinGe:
		return token.GEQ
	case ir.BinAndAnd:
		return token.LAND
	case ir.BinOrOr:
		return token.LOR
	case ir.BinBitAnd:
		return token.AND
	case ir.BinBitOr:
		return token.OR
	case ir.BinBitXor:
		return token.XOR
	case ir.BinShl:
		return token.SHL
	case ir.BinShr:
		return token.SHR
	default:
		return token.ADD
	}
}

func goTypeName(t ir.Descriptor) string {
	if t.IsPrimitive() {
		switch t.Primitive.String() {
		case "int", "short", "byte", "char":
			return "int32"
		case "long":
			return "int64"
		case "float":
			return "float32"
		case "double":
			return "float64"
		case "boolean":
			return "bool"
		}
	}
	return t.String()
}
