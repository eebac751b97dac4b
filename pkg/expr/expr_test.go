package expr

import (
	"testing"

	"github.com/hlorenzi/customasm-go/pkg/token"
)

type fakeProvider struct {
	vars map[string]Value
}

func (f *fakeProvider) ResolveVariable(level int, path []string) (Value, error) {
	key := path[0]
	for _, p := range path[1:] {
		key += "." + p
	}
	if v, ok := f.vars[key]; ok {
		return v, nil
	}
	return VUnknown(), nil
}

func (f *fakeProvider) IsVariableStaticallyKnown(level int, path []string) bool {
	return true
}

func (f *fakeProvider) ResolveUserFunction(name string) (*FunctionDecl, bool) {
	return nil, false
}

func (f *fakeProvider) EvalAsm(toks []token.Token, ctx *EvalContext) (Value, error) {
	return VVoid(), nil
}

func (f *fakeProvider) ReadBytes(path string, start, size *int) ([]byte, error) {
	return nil, nil
}

func evalSrc(t *testing.T, src string, p Provider) Value {
	t.Helper()
	toks := token.Lex("test", src)
	w := NewWalker(toks)
	e, err := ParseTernary(w)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	v, err := Eval(&e, NewEvalContext(), p)
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	return v
}

func TestArithmeticPrecedence(t *testing.T) {
	p := &fakeProvider{vars: map[string]Value{}}
	v := evalSrc(t, "1 + 2 * 3", p)
	if v.Kind != KindInteger || v.Int.Big().Int64() != 7 {
		t.Fatalf("got %+v, want 7", v)
	}
}

func TestConcatAndSlice(t *testing.T) {
	p := &fakeProvider{vars: map[string]Value{}}
	v := evalSrc(t, "(0x12`8 @ 0x34`8)[8:0]", p)
	if v.Kind != KindInteger || v.Int.Big().Int64() != 0x34 {
		t.Fatalf("got %+v, want 0x34", v)
	}
}

func TestLazyAndShortCircuitsDivisionByZero(t *testing.T) {
	p := &fakeProvider{vars: map[string]Value{}}
	v := evalSrc(t, "false && (1/0 == 0)", p)
	if v.Kind != KindBool || v.Bool != false {
		t.Fatalf("got %+v, want false (short-circuited)", v)
	}
}

func TestUnknownPropagatesThroughArithmetic(t *testing.T) {
	p := &fakeProvider{vars: map[string]Value{}}
	v := evalSrc(t, "unresolved_symbol + 1", p)
	if v.Kind != KindUnknown {
		t.Fatalf("got %+v, want Unknown", v)
	}
}

func TestAssertBuiltin(t *testing.T) {
	p := &fakeProvider{vars: map[string]Value{}}
	v := evalSrc(t, `assert(1 == 2, "nope")`, p)
	if v.Kind != KindFailedConstraint || v.Msg != "nope" {
		t.Fatalf("got %+v, want FailedConstraint(nope)", v)
	}
}

func TestTernary(t *testing.T) {
	p := &fakeProvider{vars: map[string]Value{}}
	v := evalSrc(t, "true ? 1 : 2", p)
	if v.Kind != KindInteger || v.Int.Big().Int64() != 1 {
		t.Fatalf("got %+v, want 1", v)
	}
}

func TestDivisionByZeroFails(t *testing.T) {
	toks := token.Lex("test", "1 / 0")
	w := NewWalker(toks)
	e, err := ParseTernary(w)
	if err != nil {
		t.Fatal(err)
	}
	p := &fakeProvider{}
	_, err = Eval(&e, NewEvalContext(), p)
	if err == nil {
		t.Fatal("expected division by zero error")
	}
}

func TestStaticSizeConcat(t *testing.T) {
	toks := token.Lex("test", "0x1`8 @ 0x2`4")
	w := NewWalker(toks)
	e, err := Parse(w)
	if err != nil {
		t.Fatal(err)
	}
	p := &fakeProvider{}
	size, ok := StaticSize(&e, p)
	if !ok || size != 12 {
		t.Fatalf("got (%d, %v), want (12, true)", size, ok)
	}
}
