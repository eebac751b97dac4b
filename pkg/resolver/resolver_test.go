package resolver

import (
	"testing"

	"github.com/hlorenzi/customasm-go/pkg/asmast"
	"github.com/hlorenzi/customasm-go/pkg/bigint"
	"github.com/hlorenzi/customasm-go/pkg/diagn"
	"github.com/hlorenzi/customasm-go/pkg/expr"
	"github.com/hlorenzi/customasm-go/pkg/ruledef"
)

func intLit(n int64) *expr.Expr {
	e := expr.IntLiteral(diagn.Span{}, bigint.FromInt64(n))
	return &e
}

func varRef(name string) *expr.Expr {
	e := expr.Variable(diagn.Span{}, 0, []string{name})
	return &e
}

func TestLabelForwardReferenceConverges(t *testing.T) {
	sub := expr.Expr{Kind: expr.NodeBinary, BOp: expr.OpSub, Lhs: varRef("end"), Rhs: varRef("start")}

	program := &asmast.TopLevel{Nodes: []asmast.Node{
		{Kind: asmast.NodeSymbol, SymbolName: "start", SymKind: asmast.SymbolLabel},
		{Kind: asmast.NodeData, ElemWidth: intPtr(8), Elems: []expr.Expr{*intLit(0xAA)}},
		{Kind: asmast.NodeSymbol, SymbolName: "span", SymKind: asmast.SymbolConstant, Init: &sub},
		{Kind: asmast.NodeRes, ReserveSize: intLit(4)},
		{Kind: asmast.NodeAlign, AlignSize: intLit(8)},
		{Kind: asmast.NodeSymbol, SymbolName: "end", SymKind: asmast.SymbolLabel},
		{Kind: asmast.NodeData, ElemWidth: intPtr(8), Elems: []expr.Expr{*varRef("span")}},
	}}

	d := NewDriver(&ruledef.Set{}, nil, DefaultOptions())
	if err := d.Run(program); err != nil {
		t.Fatal(err)
	}
	if d.Report.HasErrors() {
		t.Fatalf("unexpected errors: %v", d.Report.Strings())
	}

	spanRef, ok := d.Symbols.Resolve(asmast.NoRef, 0, []string{"span"})
	if !ok {
		t.Fatal("span symbol not declared")
	}
	span := d.Symbols.Get(spanRef)
	if !span.Resolved || span.Value.Kind != expr.KindInteger {
		t.Fatalf("span did not resolve: %+v", span)
	}
	// start=addr 0. 1 byte of data -> pos 8 bits. #res 4 -> pos 12 bits.
	// #align 8 -> pos 16 bits (end, addr 16/8=2). span = 2 - 0 = 2.
	if span.Value.Int.Big().Int64() != 2 {
		t.Fatalf("got span=%d, want 2", span.Value.Int.Big().Int64())
	}
}

func TestConstantChainResolvesAcrossPasses(t *testing.T) {
	// a depends on b depends on c (a literal): declared out of dependency
	// order, so a only settles once b has, which only settles once c has.
	a := expr.Expr{Kind: expr.NodeBinary, BOp: expr.OpAdd, Lhs: varRef("b"), Rhs: intLit(1)}
	b := expr.Expr{Kind: expr.NodeBinary, BOp: expr.OpAdd, Lhs: varRef("c"), Rhs: intLit(1)}
	c := *intLit(1)

	program := &asmast.TopLevel{Nodes: []asmast.Node{
		{Kind: asmast.NodeSymbol, SymbolName: "a", SymKind: asmast.SymbolConstant, Init: &a},
		{Kind: asmast.NodeSymbol, SymbolName: "b", SymKind: asmast.SymbolConstant, Init: &b},
		{Kind: asmast.NodeSymbol, SymbolName: "c", SymKind: asmast.SymbolConstant, Init: &c},
	}}

	opts := DefaultOptions()
	d := NewDriver(&ruledef.Set{}, nil, opts)
	if err := d.Run(program); err != nil {
		t.Fatal(err)
	}
	if d.Report.HasErrors() {
		t.Fatalf("unexpected errors converging a simple forward chain: %v", d.Report.Strings())
	}
	aRef, _ := d.Symbols.Resolve(asmast.NoRef, 0, []string{"a"})
	if v := d.Symbols.Get(aRef).Value; v.Int.Big().Int64() != 3 {
		t.Fatalf("got a=%d, want 3", v.Int.Big().Int64())
	}
}

func TestAlignPadsToBoundary(t *testing.T) {
	program := &asmast.TopLevel{Nodes: []asmast.Node{
		{Kind: asmast.NodeData, ElemWidth: intPtr(8), Elems: []expr.Expr{*intLit(1)}},
		{Kind: asmast.NodeAlign, AlignSize: intLit(32)},
		{Kind: asmast.NodeSymbol, SymbolName: "aligned", SymKind: asmast.SymbolLabel},
	}}

	d := NewDriver(&ruledef.Set{}, nil, DefaultOptions())
	if err := d.Run(program); err != nil {
		t.Fatal(err)
	}
	if d.Report.HasErrors() {
		t.Fatalf("unexpected errors: %v", d.Report.Strings())
	}
	ref, _ := d.Symbols.Resolve(asmast.NoRef, 0, []string{"aligned"})
	sym := d.Symbols.Get(ref)
	if sym.Value.Int.Big().Int64() != 4 {
		t.Fatalf("got aligned=%d, want address 4 (32 bits / 8-bit addr unit)", sym.Value.Int.Big().Int64())
	}
}

func TestPassStatsReportedViaOnPass(t *testing.T) {
	program := &asmast.TopLevel{Nodes: []asmast.Node{
		{Kind: asmast.NodeSymbol, SymbolName: "x", SymKind: asmast.SymbolLabel},
	}}

	var passes []PassStats
	d := NewDriver(&ruledef.Set{}, nil, DefaultOptions())
	d.OnPass = func(s PassStats) { passes = append(passes, s) }
	if err := d.Run(program); err != nil {
		t.Fatal(err)
	}
	if len(passes) == 0 {
		t.Fatal("expected at least one PassStats delivery")
	}
	last := passes[len(passes)-1]
	if !last.IsLastIteration {
		t.Fatalf("expected the final delivered pass to be the is_last_iteration pass, got %+v", last)
	}
	if last.TotalSymbols != 1 || last.ResolvedSymbols != 1 {
		t.Fatalf("got %+v, want 1 resolved symbol", last)
	}
}

func intPtr(n int) *int { return &n }
