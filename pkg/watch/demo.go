package watch

import (
	"github.com/hlorenzi/customasm-go/pkg/asmast"
	"github.com/hlorenzi/customasm-go/pkg/bigint"
	"github.com/hlorenzi/customasm-go/pkg/diagn"
	"github.com/hlorenzi/customasm-go/pkg/expr"
)

// DemoProgram builds a small self-contained asmast.TopLevel exercising
// the forward-reference / convergence cases `casm watch` exists to make
// visible, without needing the (unbuilt) text front end: a constant
// defined in terms of a label declared later, with a literal #res/#align
// pair between the two labels whose padding that constant measures.
func DemoProgram() *asmast.TopLevel {
	noSpan := diagn.Span{}

	lenMinusStart := expr.Expr{
		Kind: expr.NodeBinary,
		BOp:  expr.OpSub,
		Lhs:  ref("end"),
		Rhs:  ref("start"),
	}

	return &asmast.TopLevel{Nodes: []asmast.Node{
		{Kind: asmast.NodeSymbol, SymbolName: "start", SymKind: asmast.SymbolLabel, Span: noSpan},
		{Kind: asmast.NodeData, ElemWidth: intPtr(8), Elems: []expr.Expr{
			expr.IntLiteral(noSpan, bigint.FromInt64(0xAA)),
		}},
		{Kind: asmast.NodeSymbol, SymbolName: "span", SymKind: asmast.SymbolConstant, Init: &lenMinusStart, Span: noSpan},
		{Kind: asmast.NodeRes, ReserveSize: ptr(expr.IntLiteral(noSpan, bigint.FromInt64(4)))},
		{Kind: asmast.NodeAlign, AlignSize: ptr(expr.IntLiteral(noSpan, bigint.FromInt64(8)))},
		{Kind: asmast.NodeSymbol, SymbolName: "end", SymKind: asmast.SymbolLabel, Span: noSpan},
		{Kind: asmast.NodeData, ElemWidth: intPtr(8), Elems: []expr.Expr{*ref("span")}},
	}}
}

func ref(name string) *expr.Expr {
	e := expr.Variable(diagn.Span{}, 0, []string{name})
	return &e
}

func ptr(e expr.Expr) *expr.Expr { return &e }
func intPtr(n int) *int          { return &n }
