// Package expr implements the expression tree and evaluator described
// in spec.md §3/§4.2 (component C2): a pure AST of operators, literals,
// variable references, calls, slices, and embedded asm{} blocks,
// evaluated against a pluggable Provider.
package expr

import (
	"github.com/hlorenzi/customasm-go/pkg/bigint"
	"github.com/hlorenzi/customasm-go/pkg/diagn"
	"github.com/hlorenzi/customasm-go/pkg/token"
)

// NodeKind tags an Expr's variant.
type NodeKind int

const (
	NodeLiteral NodeKind = iota
	NodeVariable
	NodeUnary
	NodeBinary
	NodeTernary
	NodeBitSlice
	NodeBlock
	NodeCall
	NodeAsm
)

// UnaryOp is the operator of a NodeUnary expression.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
)

// BinaryOp is the operator of a NodeBinary expression.
type BinaryOp int

const (
	OpAssign BinaryOp = iota
	OpConcat
	OpLazyOr
	OpLazyAnd
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpBitOr
	OpBitXor
	OpBitAnd
	OpShl
	OpShr
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
)

// Expr is a node of the pure expression tree. Exactly one of the
// Kind-specific fields is meaningful, selected by Kind — the tagged
// variant shape spec.md §9 calls for.
type Expr struct {
	Kind NodeKind
	Span diagn.Span

	// NodeLiteral
	LitValue Value

	// NodeVariable: hierarchy-level = number of leading '.'; Path is the
	// dotted segments after them.
	HierarchyLevel int
	Path           []string

	// NodeUnary / NodeBinary / NodeTernary
	UOp    UnaryOp
	BOp    BinaryOp
	Lhs    *Expr
	Rhs    *Expr
	Cond   *Expr
	Then   *Expr
	Else   *Expr
	Inner  *Expr

	// NodeBitSlice
	Hi *Expr
	Lo *Expr

	// NodeBlock
	Exprs []Expr

	// NodeCall
	Callee *Expr
	Args   []Expr

	// NodeAsm
	AsmTokens []token.Token
}

// Literal builds a NodeLiteral wrapping an already-computed value (used
// by the parser for string/bool literals and by IntLiteral).
func Literal(span diagn.Span, v Value) Expr {
	return Expr{Kind: NodeLiteral, Span: span, LitValue: v}
}

// IntLiteral is a convenience constructor for a sized/unsized integer literal.
func IntLiteral(span diagn.Span, b bigint.BigInt) Expr {
	return Literal(span, VInt(b))
}

// Variable builds a NodeVariable reference.
func Variable(span diagn.Span, hierarchyLevel int, path []string) Expr {
	return Expr{Kind: NodeVariable, Span: span, HierarchyLevel: hierarchyLevel, Path: path}
}
