// Package asmast defines the AST node shapes the resolver (C4) and
// output builder (C5) walk. spec.md §1 treats full AST/directive
// parsing as an external collaborator; this package gives that
// contract a concrete Go shape so the core has something to drive.
package asmast

import (
	"github.com/hlorenzi/customasm-go/pkg/bigint"
	"github.com/hlorenzi/customasm-go/pkg/diagn"
	"github.com/hlorenzi/customasm-go/pkg/expr"
	"github.com/hlorenzi/customasm-go/pkg/matcher"
	"github.com/hlorenzi/customasm-go/pkg/token"
)

// ItemRef is a stable handle into a definitions table, per spec.md §3's
// "Symbol table" design note: plain integers rather than shared
// references, so the table can be mutated freely across resolver passes.
type ItemRef int

const NoRef ItemRef = -1

// NodeKind tags a top-level-AST node's variant.
type NodeKind int

const (
	NodeInstruction NodeKind = iota
	NodeSymbol
	NodeData
	NodeRes
	NodeAlign
	NodeAddr
	NodeBank
	NodeBankdef
	NodeIf
	NodeNoEmit
	NodeFn
)

// SymbolKind distinguishes what kind of symbol a NodeSymbol declares.
type SymbolKind int

const (
	SymbolConstant SymbolKind = iota
	SymbolLabel
	SymbolFunction
	SymbolOther
)

// Node is one statement of the assembly program. Like ruledef.Part and
// expr.Expr, it is a tagged-variant struct rather than an interface
// hierarchy — only the field(s) matching Kind are meaningful.
type Node struct {
	Kind NodeKind
	Span diagn.Span

	// NodeInstruction
	InstrRef    ItemRef
	InstrTokens []token.Token // raw tokens, kept for diagnostics and lazy re-matching
	Candidates  []*matcher.InstructionMatch
	ChosenMatch *matcher.InstructionMatch

	// Suppressed marks an instruction/data node that sits inside a
	// #noemit block: it resolves and advances position normally but the
	// output builder (C5) must not write its bits.
	Suppressed bool

	// NodeSymbol
	SymbolName string
	SymbolRef  ItemRef
	SymKind    SymbolKind
	Depth      int
	Init       *expr.Expr // constant initializer; nil for labels

	// NodeData (#dN a, b, c)
	ElemWidth *int // nil = "as large as the expression's static size"
	Elems     []expr.Expr
	ElemRefs  []ItemRef

	// ElemResolved/ElemSizes cache each element's final resolved value
	// and bit-width, filled in by the resolver's last pass so the output
	// builder (C5) doesn't need to re-evaluate expressions.
	ElemResolved []bigint.BigInt
	ElemSizes    []int

	// NodeRes (#res N)
	ReserveSize *expr.Expr
	ResRef      ItemRef

	// ReserveSizeResolved caches #res's final resolved bit count, filled
	// in by the resolver's last pass for the output builder's benefit.
	ReserveSizeResolved int

	// NodeAlign (#align N)
	AlignSize *expr.Expr

	// AlignDeltaResolved caches #align's final resolved bit delta.
	AlignDeltaResolved int

	// NodeAddr (#addr N / deprecated #outp N)
	AddrValue *expr.Expr

	// AddrValueResolved caches #addr's final resolved target position
	// (in bits, relative to the bank's addr_start), so the output
	// builder can replay the jump without re-evaluating the expression.
	AddrValueResolved int

	// NodeBank (#bank name)
	BankName string

	// NodeBankdef (#bankdef name { ... })
	BankdefName       string
	BankdefAddrUnit   int
	BankdefAddrStart  *expr.Expr
	BankdefSize       *expr.Expr
	BankdefOutp       *expr.Expr
	BankdefFill       bool
	BankdefRef        ItemRef

	// NodeIf (#if cond { then } else { else })
	Cond *expr.Expr
	Then []Node
	Else []Node

	// CondResolved caches which arm the resolver's last pass took, so
	// the output builder replays the same branch without re-evaluating
	// Cond.
	CondResolved *bool

	// NodeNoEmit ( #noemit { inner } )
	Inner []Node

	// NodeFn (#fn name(params) = expr)
	FnName   string
	FnParams []string
	FnBody   *expr.Expr
}

// TopLevel is a whole parsed program: a flat sequence of nodes in
// source order (spec.md §5's ordering guarantee operates over exactly
// this sequence, with NodeIf/NodeNoEmit's nested slices walked inline
// by the resolver iterator).
type TopLevel struct {
	Nodes []Node
}
