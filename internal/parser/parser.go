// Package parser implements the DSL's front-end: it translates source
// text, under a chosen start rule (expression or statement block), to EIR
// whose name references are resolved against the declaration table. It
// sets no static types on the nodes it builds.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cwbudde/exprforge/internal/ir"
	"github.com/cwbudde/exprforge/internal/lexer"
	"github.com/cwbudde/exprforge/internal/types"
)

// Option configures a Parser using the functional-options constructor
// idiom.
type Option func(*Parser)

// WithImports supplies the reference type names reachable by simple name.
func WithImports(imports map[string]string) Option {
	return func(p *Parser) { p.imports = imports }
}

// Parser is a hand-written recursive-descent / Pratt expression parser
// producing EIR directly (no separate concrete-parse-tree stage).
type Parser struct {
	lex     *lexer.Lexer
	cur     lexer.Token
	peek    lexer.Token
	decls   *types.DeclTable
	imports map[string]string
	source  string
	errs    []error
	// allowImplicit is set while parsing a modify(){} / with(){} body, where
	// a bare name absent from the declaration table resolves against the
	// block's implicit receiver rather than being a parse error.
	allowImplicit bool
}

// New constructs a Parser over src, resolving NameRef nodes against decls.
func New(src string, decls *types.DeclTable, opts ...Option) *Parser {
	p := &Parser{lex: lexer.New(src), decls: decls, source: src, imports: map[string]string{}}
	for _, opt := range opts {
		opt(p)
	}
	p.next()
	p.next()
	return p
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.lex.NextToken()
}

func (p *Parser) fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.errs = append(p.errs, ir.NewParseError(p.source, p.cur.Pos.Line, p.cur.Pos.Column, msg))
}

// Errors returns every parse error accumulated during ParseExpression /
// ParseBlock.
func (p *Parser) Errors() []error { return p.errs }

func (p *Parser) expect(t lexer.TokenType) lexer.Token {
	tok := p.cur
	if p.cur.Type != t {
		p.fail("expected %s, found %q", t, p.cur.Literal)
	}
	p.next()
	return tok
}

func (p *Parser) span(start lexer.Position) ir.Span {
	return ir.Span{Start: start, End: p.cur.Pos}
}

// spanned stamps n's source span and returns it, so construction reads as
// a single expression: spanned(&ir.IntLit{...}, p.span(start)).
func spanned[T interface {
	SetSpan(ir.Span)
}](n T, s ir.Span) T {
	n.SetSpan(s)
	return n
}

// ParseExpression parses the EXPRESSION content kind.
func (p *Parser) ParseExpression() ir.Expr {
	e := p.parseExpr(lowest)
	if p.cur.Type != lexer.EOF {
		p.fail("unexpected trailing token %q", p.cur.Literal)
	}
	return e
}

// ParseBlock parses the BLOCK content kind: a sequence of statements with
// no enclosing braces (the block is the whole request body).
func (p *Parser) ParseBlock() *ir.Block {
	start := p.cur.Pos
	var stmts []ir.Stmt
	for p.cur.Type != lexer.EOF {
		stmts = append(stmts, p.parseStatement())
	}
	return spanned(&ir.Block{Stmts: stmts}, p.span(start))
}

// ---- precedence-climbing expression parser ----

type precedence int

const (
	lowest precedence = iota
	assignPrec
	logicOr
	logicAnd
	bitOr
	bitXor
	bitAnd
	equality
	relational
	shift
	additive
	multiplicative
	unary
	callOrIndex
)

var binPrec = map[lexer.TokenType]precedence{
	lexer.OR_OR: logicOr, lexer.AND_AND: logicAnd,
	lexer.PIPE: bitOr, lexer.CARET: bitXor, lexer.AMP: bitAnd,
	lexer.EQ: equality, lexer.NE: equality,
	lexer.LT: relational, lexer.LE: relational, lexer.GT: relational, lexer.GE: relational,
	lexer.SHL: shift, lexer.SHR: shift,
	lexer.PLUS: additive, lexer.MINUS: additive,
	lexer.STAR: multiplicative, lexer.SLASH: multiplicative, lexer.PERCENT: multiplicative,
}

var binOpFor = map[lexer.TokenType]ir.BinaryOp{
	lexer.OR_OR: ir.BinOrOr, lexer.AND_AND: ir.BinAndAnd,
	lexer.PIPE: ir.BinBitOr, lexer.CARET: ir.BinBitXor, lexer.AMP: ir.BinBitAnd,
	lexer.EQ: ir.BinEq, lexer.NE: ir.BinNe,
	lexer.LT: ir.BinLt, lexer.LE: ir.BinLe, lexer.GT: ir.BinGt, lexer.GE: ir.BinGe,
	lexer.SHL: ir.BinShl, lexer.SHR: ir.BinShr,
	lexer.PLUS: ir.BinAdd, lexer.MINUS: ir.BinSub,
	lexer.STAR: ir.BinMul, lexer.SLASH: ir.BinDiv, lexer.PERCENT: ir.BinMod,
}

func (p *Parser) parseExpr(min precedence) ir.Expr {
	left := p.parseUnary()

	for {
		if p.cur.Type == lexer.ASSIGN || isCompoundAssign(p.cur.Type) {
			if min > assignPrec {
				break
			}
			left = p.parseAssign(left)
			continue
		}
		prec, ok := binPrec[p.cur.Type]
		if !ok || prec < min {
			break
		}
		op := p.cur.Type
		start := left.Span().Start
		p.next()
		right := p.parseExpr(prec + 1)
		left = spanned(&ir.Binary{Op: binOpFor[op], Left: left, Right: right}, ir.Span{Start: start, End: p.cur.Pos})
	}
	return left
}

func isCompoundAssign(t lexer.TokenType) bool {
	switch t {
	case lexer.PLUS_ASSIGN, lexer.MINUS_ASSIGN, lexer.STAR_ASSIGN, lexer.SLASH_ASSIGN, lexer.PERCENT_ASSIGN:
		return true
	}
	return false
}

var compoundAssignOp = map[lexer.TokenType]ir.AssignOp{
	lexer.PLUS_ASSIGN: ir.AssignAdd, lexer.MINUS_ASSIGN: ir.AssignSub,
	lexer.STAR_ASSIGN: ir.AssignMul, lexer.SLASH_ASSIGN: ir.AssignDiv,
	lexer.PERCENT_ASSIGN: ir.AssignMod,
}

func (p *Parser) parseAssign(left ir.Expr) ir.Expr {
	target, ok := left.(*ir.NameRef)
	if !ok {
		p.fail("assignment target must be a variable")
	}
	op := ir.AssignPlain
	if p.cur.Type != lexer.ASSIGN {
		op = compoundAssignOp[p.cur.Type]
	}
	start := left.Span().Start
	p.next()
	value := p.parseExpr(assignPrec)
	return spanned(&ir.Assign{Target: target, Op: op, Value: value}, ir.Span{Start: start, End: p.cur.Pos})
}

func (p *Parser) parseUnary() ir.Expr {
	start := p.cur.Pos
	switch p.cur.Type {
	case lexer.NOT:
		p.next()
		inner := p.parseUnary()
		return spanned(&ir.Unary{Op: ir.UnaryNot, Inner: inner}, p.span(start))
	case lexer.MINUS:
		p.next()
		inner := p.parseUnary()
		return spanned(&ir.Unary{Op: ir.UnaryNeg, Inner: inner}, p.span(start))
	case lexer.TILDE:
		p.next()
		inner := p.parseUnary()
		return spanned(&ir.Unary{Op: ir.UnaryBitNot, Inner: inner}, p.span(start))
	}
	return p.parsePostfix(p.parsePrimary())
}

func (p *Parser) parsePostfix(e ir.Expr) ir.Expr {
	for {
		start := e.Span().Start
		switch p.cur.Type {
		case lexer.DOT:
			p.next()
			name := p.expect(lexer.IDENT).Literal
			if p.cur.Type == lexer.LPAREN {
				args := p.parseArgs()
				e = spanned(&ir.MethodCall{Scope: e, Name: name, Args: args}, p.span(start))
			} else {
				e = spanned(&ir.FieldGet{Scope: e, Field: name}, p.span(start))
			}
		case lexer.SAFE_DOT:
			p.next()
			name := p.expect(lexer.IDENT).Literal
			if p.cur.Type == lexer.LPAREN {
				args := p.parseArgs()
				e = spanned(&ir.NullSafeMethodCall{Scope: e, Name: name, Args: args}, p.span(start))
			} else {
				e = spanned(&ir.NullSafeFieldGet{Scope: e, Field: name}, p.span(start))
			}
		case lexer.LBRACKET:
			p.next()
			idx := p.parseExpr(lowest)
			p.expect(lexer.RBRACKET)
			e = spanned(&ir.ArrayAccess{Scope: e, Index: idx}, p.span(start))
		case lexer.HASH:
			p.next()
			name := p.expect(lexer.IDENT).Literal
			e = spanned(&ir.InlineCast{Inner: e, TargetName: name}, p.span(start))
		default:
			return e
		}
	}
}

func (p *Parser) parseArgs() []ir.Expr {
	p.expect(lexer.LPAREN)
	var args []ir.Expr
	for p.cur.Type != lexer.RPAREN {
		args = append(args, p.parseExpr(assignPrec))
		if p.cur.Type == lexer.COMMA {
			p.next()
			continue
		}
		break
	}
	p.expect(lexer.RPAREN)
	return args
}

func (p *Parser) parsePrimary() ir.Expr {
	start := p.cur.Pos
	switch p.cur.Type {
	case lexer.INT:
		lit := p.cur.Literal
		p.next()
		v, _ := strconv.ParseInt(lit, 10, 32)
		return spanned(&ir.IntLit{Value: int32(v)}, p.span(start))
	case lexer.LONG:
		lit := p.cur.Literal
		p.next()
		v, _ := strconv.ParseInt(lit, 10, 64)
		return spanned(&ir.LongLit{Value: v}, p.span(start))
	case lexer.DOUBLE:
		lit := p.cur.Literal
		p.next()
		v, _ := strconv.ParseFloat(lit, 64)
		return spanned(&ir.DoubleLit{Value: v}, p.span(start))
	case lexer.FLOAT:
		lit := p.cur.Literal
		p.next()
		v, _ := strconv.ParseFloat(lit, 32)
		return spanned(&ir.FloatLit{Value: float32(v)}, p.span(start))
	case lexer.BIGDECIMAL:
		lit := p.cur.Literal
		p.next()
		return spanned(&ir.BigDecimalLit{Text: lit}, p.span(start))
	case lexer.BIGINTEGER:
		lit := p.cur.Literal
		p.next()
		return spanned(&ir.BigIntegerLit{Text: lit}, p.span(start))
	case lexer.TEMPORAL:
		lit := p.cur.Literal
		p.next()
		return spanned(&ir.TemporalDurationLit{Components: parseTemporal(lit)}, p.span(start))
	case lexer.STRING:
		lit := p.cur.Literal
		p.next()
		return spanned(&ir.StringLit{Value: lit}, p.span(start))
	case lexer.CHAR:
		lit := p.cur.Literal
		p.next()
		var r rune
		for _, c := range lit {
			r = c
			break
		}
		return spanned(&ir.CharLit{Value: r}, p.span(start))
	case lexer.TRUE:
		p.next()
		return spanned(&ir.BoolLit{Value: true}, p.span(start))
	case lexer.FALSE:
		p.next()
		return spanned(&ir.BoolLit{Value: false}, p.span(start))
	case lexer.NULL:
		p.next()
		return spanned(&ir.NullLit{}, p.span(start))
	case lexer.LPAREN:
		p.next()
		inner := p.parseExpr(lowest)
		p.expect(lexer.RPAREN)
		return spanned(&ir.Enclosed{Inner: inner}, p.span(start))
	case lexer.LBRACKET:
		return p.parseListLiteral(start)
	case lexer.LBRACE:
		return p.parseMapLiteral(start)
	case lexer.NEW:
		p.next()
		name := p.expect(lexer.IDENT).Literal
		args := p.parseArgs()
		return spanned(&ir.ObjectNew{TypeName: name, Args: args}, p.span(start))
	case lexer.MODIFY:
		return p.parseModifyOrWith(start, true)
	case lexer.WITH:
		return p.parseModifyOrWith(start, false)
	case lexer.IDENT:
		return p.parseIdentOrCall(start)
	default:
		p.fail("unexpected token %q", p.cur.Literal)
		p.next()
		return spanned(&ir.NullLit{}, p.span(start))
	}
}

func (p *Parser) parseModifyOrWith(start lexer.Position, isModify bool) ir.Expr {
	p.next()
	p.expect(lexer.LPAREN)
	target := p.parseExpr(lowest)
	p.expect(lexer.RPAREN)
	p.expect(lexer.LBRACE)
	saved := p.allowImplicit
	p.allowImplicit = true
	var body []ir.Stmt
	for p.cur.Type != lexer.RBRACE && p.cur.Type != lexer.EOF {
		body = append(body, p.parseStatement())
	}
	p.allowImplicit = saved
	p.expect(lexer.RBRACE)
	if isModify {
		return spanned(&ir.Modify{Target: target, Body: body}, p.span(start))
	}
	return spanned(&ir.With{Target: target, Body: body}, p.span(start))
}

func (p *Parser) parseIdentOrCall(start lexer.Position) ir.Expr {
	name := p.cur.Literal
	p.next()
	if p.cur.Type == lexer.LPAREN {
		args := p.parseArgs()
		return spanned(&ir.MethodCall{Scope: nil, Name: name, Args: args}, p.span(start))
	}
	if name == p.decls.Context.Name {
		return spanned(&ir.NameRef{Name: name, Index: -1}, p.span(start))
	}
	_, idx, found := p.decls.Lookup(name)
	if !found {
		if p.allowImplicit {
			return spanned(&ir.NameRef{Name: name, Index: ir.ImplicitReceiverIndex}, p.span(start))
		}
		p.fail("undeclared name %q", name)
	}
	return spanned(&ir.NameRef{Name: name, Index: idx}, p.span(start))
}

func (p *Parser) parseListLiteral(start lexer.Position) ir.Expr {
	p.next() // '['
	// Disambiguate [k:v,...] (map) from [v,v,...] (list) by lookahead.
	if p.cur.Type == lexer.RBRACKET {
		p.next()
		return spanned(&ir.ListLiteral{}, p.span(start))
	}
	first := p.parseExpr(assignPrec)
	if p.cur.Type == lexer.COLON {
		p.next()
		val := p.parseExpr(assignPrec)
		entries := []ir.MapEntry{{Key: first, Value: val}}
		for p.cur.Type == lexer.COMMA {
			p.next()
			k := p.parseExpr(assignPrec)
			p.expect(lexer.COLON)
			v := p.parseExpr(assignPrec)
			entries = append(entries, ir.MapEntry{Key: k, Value: v})
		}
		p.expect(lexer.RBRACKET)
		return spanned(&ir.MapLiteral{Entries: entries}, p.span(start))
	}
	elems := []ir.Expr{first}
	for p.cur.Type == lexer.COMMA {
		p.next()
		elems = append(elems, p.parseExpr(assignPrec))
	}
	p.expect(lexer.RBRACKET)
	return spanned(&ir.ListLiteral{Elements: elems}, p.span(start))
}

func (p *Parser) parseMapLiteral(start lexer.Position) ir.Expr {
	p.next() // '{'
	var entries []ir.MapEntry
	for p.cur.Type != lexer.RBRACE {
		k := p.parseExpr(assignPrec)
		p.expect(lexer.COLON)
		v := p.parseExpr(assignPrec)
		entries = append(entries, ir.MapEntry{Key: k, Value: v})
		if p.cur.Type == lexer.COMMA {
			p.next()
			continue
		}
		break
	}
	p.expect(lexer.RBRACE)
	return spanned(&ir.MapLiteral{Entries: entries}, p.span(start))
}

func parseTemporal(lit string) []ir.TemporalComponent {
	var comps []ir.TemporalComponent
	i := 0
	for i < len(lit) {
		j := i
		for j < len(lit) && lit[j] >= '0' && lit[j] <= '9' {
			j++
		}
		n, _ := strconv.ParseInt(lit[i:j], 10, 64)
		unit := string(lit[j])
		comps = append(comps, ir.TemporalComponent{Count: n, Unit: unit})
		i = j + 1
	}
	return comps
}

// ---- statements ----

func (p *Parser) parseStatement() ir.Stmt {
	start := p.cur.Pos
	switch p.cur.Type {
	case lexer.VAR:
		return p.parseVarDecl(start)
	case lexer.IF:
		return p.parseIf(start)
	case lexer.RETURN:
		p.next()
		if p.cur.Type == lexer.SEMI {
			p.next()
			return spanned(&ir.Return{}, p.span(start))
		}
		x := p.parseExpr(lowest)
		p.expect(lexer.SEMI)
		return spanned(&ir.Return{X: x}, p.span(start))
	case lexer.LBRACE:
		return p.parseBraceBlock()
	case lexer.SEMI:
		p.next()
		return spanned(&ir.Empty{}, p.span(start))
	default:
		x := p.parseExpr(lowest)
		p.expect(lexer.SEMI)
		return spanned(&ir.ExprStmt{X: x}, p.span(start))
	}
}

func (p *Parser) parseBraceBlock() *ir.Block {
	start := p.cur.Pos
	p.expect(lexer.LBRACE)
	var stmts []ir.Stmt
	for p.cur.Type != lexer.RBRACE && p.cur.Type != lexer.EOF {
		stmts = append(stmts, p.parseStatement())
	}
	p.expect(lexer.RBRACE)
	return spanned(&ir.Block{Stmts: stmts}, p.span(start))
}

func (p *Parser) parseVarDecl(start lexer.Position) ir.Stmt {
	p.next() // 'var'
	name := p.expect(lexer.IDENT).Literal
	var typ *types.Descriptor
	if p.cur.Type == lexer.COLON {
		p.next()
		typeName := p.expect(lexer.IDENT).Literal
		resolved := p.resolveType(typeName)
		typ = &resolved
	}
	p.expect(lexer.ASSIGN)
	init := p.parseExpr(lowest)
	p.expect(lexer.SEMI)
	return spanned(&ir.VarDecl{Name: name, Type: typ, Init: init}, p.span(start))
}

func (p *Parser) resolveType(name string) types.Descriptor {
	if tag, ok := primitiveTagFor(name); ok {
		return types.Prim(tag)
	}
	if fqcn, ok := p.imports[name]; ok {
		return types.Ref(fqcn)
	}
	if isWellKnownSimpleName(name) {
		return types.Ref("java.lang." + name)
	}
	p.errs = append(p.errs, ir.NewTypeResolutionError(p.source, name))
	return types.Ref(name)
}

var wellKnownSimpleNames = map[string]bool{
	"String": true, "Object": true, "Integer": true, "Long": true, "Double": true,
	"Float": true, "Boolean": true, "Short": true, "Byte": true, "Character": true,
	"Math": true, "BigDecimal": true, "BigInteger": true,
}

func isWellKnownSimpleName(name string) bool { return wellKnownSimpleNames[name] }

func primitiveTagFor(name string) (types.PrimitiveTag, bool) {
	switch strings.ToLower(name) {
	case "int":
		return types.Int, true
	case "long":
		return types.Long, true
	case "short":
		return types.Short, true
	case "byte":
		return types.Byte, true
	case "char":
		return types.Char, true
	case "float":
		return types.Float, true
	case "double":
		return types.Double, true
	case "bool", "boolean":
		return types.Boolean, true
	}
	return 0, false
}

func (p *Parser) parseIf(start lexer.Position) ir.Stmt {
	p.next()
	p.expect(lexer.LPAREN)
	cond := p.parseExpr(lowest)
	p.expect(lexer.RPAREN)
	then := p.parseBraceBlock()
	var els ir.Stmt
	if p.cur.Type == lexer.ELSE {
		p.next()
		if p.cur.Type == lexer.IF {
			els = p.parseIf(p.cur.Pos)
		} else {
			els = p.parseBraceBlock()
		}
	}
	return spanned(&ir.If{Cond: cond, Then: then, Else: els}, p.span(start))
}
