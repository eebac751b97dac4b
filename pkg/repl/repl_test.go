package repl

import (
	"testing"

	"github.com/hlorenzi/customasm-go/pkg/expr"
)

func TestEvalArithmetic(t *testing.T) {
	v, err := Eval("1 + 2 * 3", emptyProvider{})
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != expr.KindInteger || v.Int.Big().Int64() != 7 {
		t.Fatalf("got %+v, want 7", v)
	}
}

func TestEvalUnknownVariableErrors(t *testing.T) {
	_, err := Eval("foo + 1", emptyProvider{})
	if err == nil {
		t.Fatal("expected an error referencing the unknown variable")
	}
}

func TestEvalRejectsTrailingInput(t *testing.T) {
	_, err := Eval("1 + 2 3", emptyProvider{})
	if err == nil {
		t.Fatal("expected a trailing-input error")
	}
}

func TestFormatInteger(t *testing.T) {
	v, err := Eval("255", emptyProvider{})
	if err != nil {
		t.Fatal(err)
	}
	got := Format(v)
	want := "255 (0xff)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
