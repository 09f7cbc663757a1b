// Package ir defines the Expression IR (EIR): the typed, desugared AST
// produced by the parser front-end and consumed by the lowering pass and
// the emitter/fallback.
//
// Every walk over EIR is a plain type switch rather than a visitor
// hierarchy — the DSL-specific nodes the upstream rule language carries
// (rule declarations, OO path navigation, temporal chains beyond a single
// duration literal) never appear here; they are out of scope.
package ir

import (
	"github.com/cwbudde/exprforge/internal/lexer"
	"github.com/cwbudde/exprforge/internal/types"
)

// Span locates a node in the original source text.
type Span struct {
	Start lexer.Position
	End   lexer.Position
}

// Node is the common interface every EIR node implements.
type Node interface {
	Span() Span
	irNode()
}

// Expr is any node that produces a value. Type() returns the node's stored
// static type; neither the parser nor lowering sets it, so it is the zero
// Descriptor on every node they produce.
type Expr interface {
	Node
	exprNode()
	Type() types.Descriptor
}

// Stmt is any node that performs an action without itself producing a
// value.
type Stmt interface {
	Node
	stmtNode()
}

type base struct{ span Span }

func (b base) Span() Span       { return b.span }
func (b *base) SetSpan(s Span)  { b.span = s }
func (base) irNode()            {}

type exprBase struct {
	base
	typ types.Descriptor
}

func (e exprBase) exprNode()            {}
func (e exprBase) Type() types.Descriptor { return e.typ }

// ---- Literals ----

type IntLit struct {
	exprBase
	Value int32
}

type LongLit struct {
	exprBase
	Value int64
}

type DoubleLit struct {
	exprBase
	Value float64
}

type FloatLit struct {
	exprBase
	Value float32
}

type BoolLit struct {
	exprBase
	Value bool
}

type StringLit struct {
	exprBase
	Value string
}

type NullLit struct{ exprBase }

type CharLit struct {
	exprBase
	Value rune
}

// BigDecimalLit and BigIntegerLit carry the literal's decimal text; the
// lowering pass rewrites them into factory-call form — they
// exist pre-lowering so the parser never has to decide emission strategy.
type BigDecimalLit struct {
	exprBase
	Text string
}

type BigIntegerLit struct {
	exprBase
	Text string
}

// TemporalDurationLit carries one (count, unit) pair per parsed component
// of a literal like "12h30m"; unit is one of "d","h","m","s".
type TemporalComponent struct {
	Count int64
	Unit  string
}

type TemporalDurationLit struct {
	exprBase
	Components []TemporalComponent
}

// MapEntry is one (key, value) pair of a MapLiteral.
type MapEntry struct {
	Key   Expr
	Value Expr
}

type MapLiteral struct {
	exprBase
	Entries []MapEntry
}

type ListLiteral struct {
	exprBase
	Elements []Expr
}

// ---- References ----

// ImplicitReceiverIndex marks a NameRef resolved inside a modify(){} or
// with(){} block body against the block's implicit receiver rather than
// the declaration table; lowering rewrites these into FieldGet/MethodCall
// nodes scoped to the block's target.
const ImplicitReceiverIndex = -2

type NameRef struct {
	exprBase
	Name string
	// Index is the declaration's positional index (meaningful for LIST
	// context resolution), -1 for the context receiver itself, or
	// ImplicitReceiverIndex inside a modify/with body.
	Index int
}

type FieldGet struct {
	exprBase
	Scope Expr
	Field string
}

type MethodCall struct {
	exprBase
	Scope Expr // nil for scope-less calls (fallback-only)
	Name  string
	Args  []Expr
}

type ObjectNew struct {
	exprBase
	TypeName string
	Args     []Expr
}

type ArrayAccess struct {
	exprBase
	Scope Expr
	Index Expr
}

// ---- Operators ----

type UnaryOp int

const (
	UnaryNot UnaryOp = iota
	UnaryNeg
	UnaryBitNot
)

type Unary struct {
	exprBase
	Op    UnaryOp
	Inner Expr
}

type BinaryOp int

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
	BinAndAnd
	BinOrOr
	BinBitAnd
	BinBitOr
	BinBitXor
	BinShl
	BinShr
	BinRefEq
	BinRefNe
	BinConcat // string concatenation with >=1 String operand
)

type Binary struct {
	exprBase
	Op          BinaryOp
	Left, Right Expr
}

type AssignOp int

const (
	AssignPlain AssignOp = iota
	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
	AssignMod
)

// Assign is a compound or plain assignment, usable as statement or
// expression (it produces the assigned value). Target is a *NameRef for
// every source-level assignment; lowering may rewrite it to a *FieldGet
// for modify(){} write-backs, which is precisely why the direct emitter's
// can_emit gate narrows this back down to "NameRef target" —
// a FieldGet target after lowering is the signal to fall back.
type Assign struct {
	exprBase
	Target Expr
	Op     AssignOp
	Value  Expr
}

// CondExpr is a value-producing conditional (Cond ? Then : Else). It never
// comes out of the parser directly — the DSL's only source-level
// conditional is the If statement — but the lowering pass needs an
// expression-shaped target for the null-safe desugarings
// ("a == null ? null : a.b"), so CondExpr is a minimal addition to EIR's
// otherwise non-exhaustive node set.
type CondExpr struct {
	exprBase
	Cond, Then, Else Expr
}

type Cast struct {
	exprBase
	TargetType types.Descriptor
	Inner      Expr
}

// StaticClassRef is a lowering-introduced scope marker for calls resolved
// against a known class constant (Math, BigDecimal, BigInteger, boxed
// types, String, Map, List, Duration). It never comes out of the parser;
// only `new`/name lookups do.
type StaticClassRef struct {
	exprBase
	ClassName string
}

type Enclosed struct {
	exprBase
	Inner Expr
}

// ---- Desugaring targets (post-lowering only) ----

// NullSafeFieldGet and NullSafeMethodCall survive lowering only if the
// lowering pass is skipped for introspection/testing; normally `lower`
// rewrites these into CondExpr nodes guarded by a Binary(BinRefEq) null
// check before the emitter ever sees them.
type NullSafeFieldGet struct {
	exprBase
	Scope Expr
	Field string
}

type NullSafeMethodCall struct {
	exprBase
	Scope Expr
	Name  string
	Args  []Expr
}

// InlineCast is the pre-lowering form of `x#T`; lowering rewrites it to
// Cast.
type InlineCast struct {
	exprBase
	Inner      Expr
	TargetName string
}

// Modify and With carry the pre-lowering forms of modify(t){...} and
// with(t){...} blocks; lowering flattens them with t as implicit receiver.
type Modify struct {
	exprBase
	Target Expr
	Body   []Stmt
}

type With struct {
	exprBase
	Target Expr
	Body   []Stmt
}

// BlockExpr is the lowered form of a flattened Modify/With block used in
// expression position: Body executes for side effect (including the
// trailing update(t) call modify(){} appends), then Result is the value
// of the whole expression (the target itself). It is a lowering-only
// node, like CondExpr and StaticClassRef.
type BlockExpr struct {
	exprBase
	Body   *Block
	Result Expr
}

// ---- Statements ----

type ExprStmt struct {
	base
	X Expr
}

func (ExprStmt) stmtNode() {}

type VarDecl struct {
	base
	Name string
	// Type is nil when inferred from Init ("var x = ...").
	Type *Descriptor
	Init Expr
}

func (VarDecl) stmtNode() {}

type If struct {
	base
	Cond Expr
	Then *Block
	Else Stmt // *Block or *If, nil if no else
}

func (If) stmtNode() {}

type Block struct {
	base
	Stmts []Stmt
}

func (Block) stmtNode() {}

type Return struct {
	base
	X Expr // nil for bare `return;`
}

func (Return) stmtNode() {}

type Empty struct{ base }

func (Empty) stmtNode() {}

// Descriptor aliases types.Descriptor to keep VarDecl's zero-value
// ("inferred") check obvious at call sites.
type Descriptor = types.Descriptor
