package expr

import (
	"fmt"

	"github.com/hlorenzi/customasm-go/pkg/bigint"
)

// ValueKind tags the variant carried by a Value, per spec.md §3's
// Literal variant list (integer, bool, string-with-encoding, void,
// unknown, failed-constraint, function-ref).
type ValueKind int

const (
	KindInteger ValueKind = iota
	KindBool
	KindString
	KindVoid
	KindUnknown
	KindFailedConstraint
	KindFunctionRef
)

// Value is the tagged result of evaluating an expression. Unknown and
// FailedConstraint live inside this type (not a separate error path) so
// they propagate through operators as ordinary values, per spec.md §9.
type Value struct {
	Kind ValueKind

	Int          bigint.BigInt
	Bool         bool
	Str          string
	StrEncoding  string // "ascii", "utf8", "utf16be", ... ("" = unspecified)
	Msg          string // set when Kind == KindFailedConstraint
	Func         *FunctionValue
}

// FunctionValue is either a built-in (Builtin != nil) or a user-defined
// #fn (Decl != nil).
type FunctionValue struct {
	Name    string
	Builtin BuiltinFn
	Decl    *FunctionDecl
}

// FunctionDecl is a user-defined function: #fn name(params) = expr.
type FunctionDecl struct {
	Name   string
	Params []string
	Body   Expr
}

func VInt(b bigint.BigInt) Value       { return Value{Kind: KindInteger, Int: b} }
func VBool(b bool) Value               { return Value{Kind: KindBool, Bool: b} }
func VString(s, enc string) Value      { return Value{Kind: KindString, Str: s, StrEncoding: enc} }
func VVoid() Value                     { return Value{Kind: KindVoid} }
func VUnknown() Value                  { return Value{Kind: KindUnknown} }
func VFailed(format string, a ...any) Value {
	return Value{Kind: KindFailedConstraint, Msg: fmt.Sprintf(format, a...)}
}
func VFunc(f *FunctionValue) Value { return Value{Kind: KindFunctionRef, Func: f} }

// IsPropagating reports whether this value short-circuits operators,
// per spec.md §4.2's value-propagation rule.
func (v Value) IsPropagating() bool {
	return v.Kind == KindUnknown || v.Kind == KindFailedConstraint
}
