package matcher

import (
	"testing"

	"github.com/hlorenzi/customasm-go/pkg/expr"
	"github.com/hlorenzi/customasm-go/pkg/ruledef"
	"github.com/hlorenzi/customasm-go/pkg/token"
)

func exactPattern(s string) []ruledef.Part {
	var out []ruledef.Part
	for _, c := range s {
		out = append(out, ruledef.Part{Kind: ruledef.PartExact, Exact: c})
	}
	return out
}

func TestMatchSimpleMnemonic(t *testing.T) {
	halt := ruledef.Rule{
		Pattern:        exactPattern("halt"),
		ExactPartCount: 4,
	}
	rd := &ruledef.Ruledef{Name: "main", TopLevel: true, Rules: []ruledef.Rule{halt}}
	set := ruledef.NewSet()
	set.Add(rd)

	toks := token.Lex("test", "halt")
	matches, err := MatchInstruction(set, toks)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
}

func TestMatchWithParameter(t *testing.T) {
	pattern := append(exactPattern("jmp"),
		ruledef.Part{Kind: ruledef.PartWhitespace},
		ruledef.Part{Kind: ruledef.PartParameter, Index: 0})
	jmp := ruledef.Rule{
		Pattern:        pattern,
		Parameters:     []ruledef.Parameter{{Name: "a", Type: ruledef.ParamType{Kind: ruledef.ParamUnspecified}}},
		ExactPartCount: 3,
	}
	rd := &ruledef.Ruledef{Name: "main", TopLevel: true, Rules: []ruledef.Rule{jmp}}
	set := ruledef.NewSet()
	set.Add(rd)

	toks := token.Lex("test", "jmp 0x10")
	matches, err := MatchInstruction(set, toks)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].Args[0].Expr.Kind != expr.NodeLiteral {
		t.Fatalf("expected a literal argument, got %+v", matches[0].Args[0].Expr)
	}
}

func TestAmbiguityResolvedByExactPartCount(t *testing.T) {
	// "load {a}" and "load 5" both match "load 5"; the second has one
	// more exact part, so it is the only match kept.
	loadGeneric := ruledef.Rule{
		Pattern:        append(exactPattern("load"), ruledef.Part{Kind: ruledef.PartWhitespace}, ruledef.Part{Kind: ruledef.PartParameter, Index: 0}),
		Parameters:     []ruledef.Parameter{{Name: "a", Type: ruledef.ParamType{Kind: ruledef.ParamUnspecified}}},
		ExactPartCount: 4,
	}
	loadFive := ruledef.Rule{
		Pattern:        append(exactPattern("load"), ruledef.Part{Kind: ruledef.PartWhitespace}, ruledef.Part{Kind: ruledef.PartExact, Exact: '5'}),
		ExactPartCount: 5,
	}
	rd := &ruledef.Ruledef{Name: "main", TopLevel: true, Rules: []ruledef.Rule{loadGeneric, loadFive}}
	set := ruledef.NewSet()
	set.Add(rd)

	toks := token.Lex("test", "load 5")
	matches, err := MatchInstruction(set, toks)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].Rule.ExactPartCount != 5 {
		t.Fatalf("kept rule with %d exact parts, want the 5-part rule", matches[0].Rule.ExactPartCount)
	}
}

func TestNoMatchReturnsError(t *testing.T) {
	rd := &ruledef.Ruledef{Name: "main", TopLevel: true, Rules: []ruledef.Rule{
		{Pattern: exactPattern("halt"), ExactPartCount: 4},
	}}
	set := ruledef.NewSet()
	set.Add(rd)

	toks := token.Lex("test", "bogus")
	if _, err := MatchInstruction(set, toks); err == nil {
		t.Fatal("expected a no-match error")
	}
}

func TestPartialTokenDigitSuffix(t *testing.T) {
	// Rule "ld5" should match against the identifier-like token "ld5"
	// by consuming it character by character, per spec.md §4.3's
	// partial-token note.
	rd := &ruledef.Ruledef{Name: "main", TopLevel: true, Rules: []ruledef.Rule{
		{Pattern: exactPattern("ld5"), ExactPartCount: 3},
	}}
	set := ruledef.NewSet()
	set.Add(rd)

	toks := token.Lex("test", "ld5")
	matches, err := MatchInstruction(set, toks)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
}
