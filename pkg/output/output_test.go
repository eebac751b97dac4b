package output

import (
	"strings"
	"testing"

	"github.com/hlorenzi/customasm-go/pkg/asmast"
	"github.com/hlorenzi/customasm-go/pkg/bigint"
	"github.com/hlorenzi/customasm-go/pkg/bitvec"
	"github.com/hlorenzi/customasm-go/pkg/diagn"
	"github.com/hlorenzi/customasm-go/pkg/expr"
	"github.com/hlorenzi/customasm-go/pkg/resolver"
	"github.com/hlorenzi/customasm-go/pkg/ruledef"
)

func intLit(n int64) expr.Expr {
	return expr.IntLiteral(diagn.Span{}, bigint.FromInt64(n))
}

func intPtr(n int) *int { return &n }

func runToConvergence(t *testing.T, program *asmast.TopLevel, opts resolver.Options) *resolver.Driver {
	t.Helper()
	d := resolver.NewDriver(&ruledef.Set{}, nil, opts)
	if err := d.Run(program); err != nil {
		t.Fatal(err)
	}
	if d.Report.HasErrors() {
		t.Fatalf("resolver errors: %v", d.Report.Strings())
	}
	return d
}

func TestBuildWritesDataBytes(t *testing.T) {
	e1, e2 := intLit(0xAA), intLit(0xBB)
	program := &asmast.TopLevel{Nodes: []asmast.Node{
		{Kind: asmast.NodeData, ElemWidth: intPtr(8), Elems: []expr.Expr{e1, e2}},
	}}
	d := runToConvergence(t, program, resolver.DefaultOptions())

	b := NewBuilder(d)
	vec := b.Build(program)
	if b.Report().HasErrors() {
		t.Fatalf("unexpected build errors: %v", b.Report().Strings())
	}
	got := vec.Bytes()
	if len(got) != 2 || got[0] != 0xAA || got[1] != 0xBB {
		t.Fatalf("got %v, want [0xAA 0xBB]", got)
	}
}

func TestBuildDetectsOverflow(t *testing.T) {
	program := &asmast.TopLevel{Nodes: []asmast.Node{
		{Kind: asmast.NodeData, ElemWidth: intPtr(8), Elems: []expr.Expr{intLit(1), intLit(2)}},
	}}
	opts := resolver.DefaultOptions()
	d := resolver.NewDriver(&ruledef.Set{}, nil, opts)
	size := 8 // only room for one byte
	d.Banks.Get(0).Def.Size = &size
	if err := d.Run(program); err != nil {
		t.Fatal(err)
	}
	if d.Report.HasErrors() {
		t.Fatalf("unexpected resolver errors: %v", d.Report.Strings())
	}

	b := NewBuilder(d)
	b.Build(program)
	if !b.Report().HasErrors() {
		t.Fatal("expected an overflow error")
	}
}

func TestApplyFillPadsToDeclaredSize(t *testing.T) {
	program := &asmast.TopLevel{Nodes: []asmast.Node{
		{Kind: asmast.NodeData, ElemWidth: intPtr(8), Elems: []expr.Expr{intLit(0x7F)}},
	}}
	opts := resolver.DefaultOptions()
	d := resolver.NewDriver(&ruledef.Set{}, nil, opts)
	size := 32 // 4 bytes
	d.Banks.Get(0).Def.Size = &size
	d.Banks.Get(0).Def.Fill = true
	if err := d.Run(program); err != nil {
		t.Fatal(err)
	}
	if d.Report.HasErrors() {
		t.Fatalf("unexpected resolver errors: %v", d.Report.Strings())
	}

	b := NewBuilder(d)
	vec := b.Build(program)
	if b.Report().HasErrors() {
		t.Fatalf("unexpected build errors: %v", b.Report().Strings())
	}
	got := vec.Bytes()
	if len(got) != 4 {
		t.Fatalf("got %d bytes, want 4 (fill-padded)", len(got))
	}
	if got[0] != 0x7F || got[1] != 0 || got[2] != 0 || got[3] != 0 {
		t.Fatalf("got %v, want [0x7F 0 0 0]", got)
	}
}

func TestDumpFormatters(t *testing.T) {
	data := []byte{0x00, 0x01, 0xFF}

	vec := bitvec.New()
	for _, by := range data {
		for bit := 7; bit >= 0; bit-- {
			vec.Write(vec.Len(), (by>>uint(bit))&1 != 0)
		}
	}
	if hx := HexStr(vec); hx != "0001ff" {
		t.Fatalf("got %q, want \"0001ff\"", hx)
	}

	ih := IntelHex(data)
	if len(ih) == 0 {
		t.Fatal("expected non-empty Intel HEX output")
	}

	c := CArray(data, "rom")
	for _, want := range []string{"rom", "0x00", "0x01", "0xff"} {
		if !strings.Contains(c, want) {
			t.Fatalf("CArray output missing %q: %q", want, c)
		}
	}

	v := VHDL(data, "rom")
	for _, want := range []string{"rom", "std_logic_vector"} {
		if !strings.Contains(v, want) {
			t.Fatalf("VHDL output missing %q: %q", want, v)
		}
	}
}
