package expr

import (
	"fmt"

	"github.com/hlorenzi/customasm-go/pkg/bigint"
	"github.com/hlorenzi/customasm-go/pkg/diagn"
	"github.com/hlorenzi/customasm-go/pkg/token"
)

// maxRecursionDepth bounds user-function and asm{} re-entry, per
// spec.md §4.2/§5 ("recursion limit").
const maxRecursionDepth = 128

// Provider supplies the three things a bare Expr tree can't resolve by
// itself: variable lookup, function-name lookup, and re-entrant
// assembly of an embedded asm{} block. It is the seam between the
// evaluator and whatever owns the symbol table (pkg/resolver) and
// matcher (pkg/matcher).
type Provider interface {
	// ResolveVariable looks up a dotted variable reference relative to
	// the current scope. hierarchyLevel counts leading dots (levels to
	// ascend before descending into path).
	ResolveVariable(hierarchyLevel int, path []string) (Value, error)

	// IsVariableStaticallyKnown reports whether the referenced symbol is
	// declared with no forward dependency on an address.
	IsVariableStaticallyKnown(hierarchyLevel int, path []string) bool

	// ResolveUserFunction looks up a #fn declaration by name.
	ResolveUserFunction(name string) (*FunctionDecl, bool)

	// EvalAsm re-enters the matcher/evaluator over an embedded token
	// stream (after {name} substitution has already happened — see
	// substituteAsmTokens) and returns its encoding as a sized integer
	// Value.
	EvalAsm(tokens []token.Token, ctx *EvalContext) (Value, error)

	// ReadBytes reads (a slice of) a file through the fileserver, for
	// incbin/incbinstr/inchexstr.
	ReadBytes(path string, start, size *int) ([]byte, error)
}

// EvalContext carries per-evaluation local state: bindings introduced
// by Assign or function-parameter binding, and the current recursion
// depth. The evaluator mutates only this struct — Expr trees themselves
// are immutable, per spec.md §3's lifecycle rule.
type EvalContext struct {
	locals  map[string]Value
	asmArgs map[string][]token.Token
	depth   int
}

// NewEvalContext returns a fresh, empty evaluation context.
func NewEvalContext() *EvalContext {
	return &EvalContext{locals: map[string]Value{}}
}

// child returns a new context one recursion level deeper, for entering
// a user function body or an asm{} block.
func (c *EvalContext) child() (*EvalContext, error) {
	if c.depth+1 > maxRecursionDepth {
		return nil, fmt.Errorf("recursion limit")
	}
	return &EvalContext{locals: map[string]Value{}, depth: c.depth + 1}, nil
}

func (c *EvalContext) get(name string) (Value, bool) {
	v, ok := c.locals[name]
	return v, ok
}

func (c *EvalContext) set(name string, v Value) {
	c.locals[name] = v
}

// Bind sets a local binding directly, used by callers outside this
// package (the pattern matcher's production evaluation) to bind a
// rule's parameter names before evaluating its production expression.
func (c *EvalContext) Bind(name string, v Value) {
	c.set(name, v)
}

// SetAsmArg binds name to a raw token stream for {name} substitution
// inside a subsequently-evaluated asm{} block (spec.md §4.2). Names
// beginning with ':' are hygienic: they are never matched by
// substituteAsmTokens, so nested asm{} blocks can't accidentally
// capture an outer block's private binding.
func (c *EvalContext) SetAsmArg(name string, toks []token.Token) {
	if c.asmArgs == nil {
		c.asmArgs = map[string][]token.Token{}
	}
	c.asmArgs[name] = toks
}

func (c *EvalContext) getAsmArg(name string) ([]token.Token, bool) {
	if len(name) > 0 && name[0] == ':' {
		return nil, false
	}
	toks, ok := c.asmArgs[name]
	return toks, ok
}

// substituteAsmTokens replaces `{name}` occurrences in toks with the
// token stream bound to name via SetAsmArg, leaving anything else
// (including `{name}` for an unbound or hygienic name) untouched.
func substituteAsmTokens(toks []token.Token, ctx *EvalContext) ([]token.Token, error) {
	var out []token.Token
	for i := 0; i < len(toks); i++ {
		if toks[i].IsOperator('{') && i+2 < len(toks) && toks[i+2].IsOperator('}') && toks[i+1].Kind == token.KindIdent {
			name := toks[i+1].Text
			if bound, ok := ctx.getAsmArg(name); ok {
				out = append(out, bound...)
				i += 2
				continue
			}
		}
		out = append(out, toks[i])
	}
	return out, nil
}

// Eval evaluates e against ctx and provider. It is purely functional
// over the Expr tree: the only mutation is to ctx.locals (Assign /
// parameter binding).
func Eval(e *Expr, ctx *EvalContext, p Provider) (Value, error) {
	switch e.Kind {
	case NodeLiteral:
		return e.LitValue, nil

	case NodeVariable:
		if e.HierarchyLevel == 0 && len(e.Path) == 1 {
			return LookupName(e.Path[0], e.Span, ctx, p)
		}
		v, err := p.ResolveVariable(e.HierarchyLevel, e.Path)
		if err != nil {
			return Value{}, err
		}
		return v, nil

	case NodeUnary:
		return evalUnary(e, ctx, p)

	case NodeBinary:
		return evalBinary(e, ctx, p)

	case NodeTernary:
		cond, err := Eval(e.Cond, ctx, p)
		if err != nil {
			return Value{}, err
		}
		if cond.IsPropagating() {
			return cond, nil
		}
		if cond.Kind != KindBool {
			return Value{}, fmt.Errorf("ternary condition must be a bool")
		}
		if cond.Bool {
			return Eval(e.Then, ctx, p)
		}
		return Eval(e.Else, ctx, p)

	case NodeBitSlice:
		return evalBitSlice(e, ctx, p)

	case NodeBlock:
		var last Value = VVoid()
		for i := range e.Exprs {
			v, err := Eval(&e.Exprs[i], ctx, p)
			if err != nil {
				return Value{}, err
			}
			last = v
		}
		return last, nil

	case NodeCall:
		return evalCall(e, ctx, p)

	case NodeAsm:
		child, err := ctx.child()
		if err != nil {
			return Value{}, err
		}
		substituted, err := substituteAsmTokens(e.AsmTokens, ctx)
		if err != nil {
			return Value{}, err
		}
		return p.EvalAsm(substituted, child)

	default:
		return Value{}, fmt.Errorf("unhandled expression node kind %d", e.Kind)
	}
}

func evalUnary(e *Expr, ctx *EvalContext, p Provider) (Value, error) {
	v, err := Eval(e.Inner, ctx, p)
	if err != nil {
		return Value{}, err
	}
	if v.IsPropagating() {
		return v, nil
	}
	switch e.UOp {
	case OpNeg:
		if v.Kind != KindInteger {
			return Value{}, fmt.Errorf("`-` requires an integer operand")
		}
		return VInt(bigint.Neg(v.Int)), nil
	case OpNot:
		if v.Kind != KindBool {
			return Value{}, fmt.Errorf("`!` requires a bool operand")
		}
		return VBool(!v.Bool), nil
	}
	return Value{}, fmt.Errorf("unknown unary operator")
}

func evalBinary(e *Expr, ctx *EvalContext, p Provider) (Value, error) {
	// Assignment mutates ctx.locals and doesn't evaluate lhs as a value.
	if e.BOp == OpAssign {
		if e.Lhs.Kind != NodeVariable || e.Lhs.HierarchyLevel != 0 || len(e.Lhs.Path) != 1 {
			return Value{}, fmt.Errorf("left-hand side of `=` must be a plain local name")
		}
		rhs, err := Eval(e.Rhs, ctx, p)
		if err != nil {
			return Value{}, err
		}
		ctx.set(e.Lhs.Path[0], rhs)
		return rhs, nil
	}

	// Lazy operators short-circuit without evaluating rhs.
	if e.BOp == OpLazyAnd || e.BOp == OpLazyOr {
		lhs, err := Eval(e.Lhs, ctx, p)
		if err != nil {
			return Value{}, err
		}
		if lhs.IsPropagating() {
			return lhs, nil
		}
		if lhs.Kind != KindBool {
			return Value{}, fmt.Errorf("boolean operator requires bool operands")
		}
		if e.BOp == OpLazyAnd && !lhs.Bool {
			return VBool(false), nil
		}
		if e.BOp == OpLazyOr && lhs.Bool {
			return VBool(true), nil
		}
		rhs, err := Eval(e.Rhs, ctx, p)
		if err != nil {
			return Value{}, err
		}
		if rhs.IsPropagating() {
			return rhs, nil
		}
		if rhs.Kind != KindBool {
			return Value{}, fmt.Errorf("boolean operator requires bool operands")
		}
		return VBool(rhs.Bool), nil
	}

	lhs, err := Eval(e.Lhs, ctx, p)
	if err != nil {
		return Value{}, err
	}
	if lhs.IsPropagating() {
		return lhs, nil
	}
	rhs, err := Eval(e.Rhs, ctx, p)
	if err != nil {
		return Value{}, err
	}
	if rhs.IsPropagating() {
		return rhs, nil
	}

	switch e.BOp {
	case OpConcat:
		if lhs.Kind != KindInteger || rhs.Kind != KindInteger {
			return Value{}, fmt.Errorf("`@` requires integer operands")
		}
		if lhs.Int.Size == nil || rhs.Int.Size == nil {
			return Value{}, fmt.Errorf("`@` requires both sides to have a known width")
		}
		c, err := bigint.Concat(lhs.Int, *lhs.Int.Size, 0, rhs.Int, *rhs.Int.Size, 0)
		if err != nil {
			return Value{}, err
		}
		return VInt(c), nil

	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return evalComparison(e.BOp, lhs, rhs)

	case OpBitOr, OpBitXor, OpBitAnd, OpShl, OpShr, OpAdd, OpSub, OpMul, OpDiv, OpMod:
		if lhs.Kind != KindInteger || rhs.Kind != KindInteger {
			return Value{}, fmt.Errorf("operator requires integer operands")
		}
		return evalIntBinary(e.BOp, lhs.Int, rhs.Int)
	}

	return Value{}, fmt.Errorf("unknown binary operator")
}

func evalComparison(op BinaryOp, lhs, rhs Value) (Value, error) {
	if lhs.Kind != rhs.Kind {
		return Value{}, fmt.Errorf("cannot compare values of different kinds")
	}
	var cmp int
	switch lhs.Kind {
	case KindInteger:
		cmp = lhs.Int.Cmp(rhs.Int)
	case KindBool:
		if lhs.Bool == rhs.Bool {
			cmp = 0
		} else if !lhs.Bool {
			cmp = -1
		} else {
			cmp = 1
		}
	case KindString:
		switch {
		case lhs.Str < rhs.Str:
			cmp = -1
		case lhs.Str > rhs.Str:
			cmp = 1
		default:
			cmp = 0
		}
	default:
		return Value{}, fmt.Errorf("values of this kind cannot be compared")
	}
	switch op {
	case OpEq:
		return VBool(cmp == 0), nil
	case OpNe:
		return VBool(cmp != 0), nil
	case OpLt:
		return VBool(cmp < 0), nil
	case OpLe:
		return VBool(cmp <= 0), nil
	case OpGt:
		return VBool(cmp > 0), nil
	case OpGe:
		return VBool(cmp >= 0), nil
	}
	return Value{}, fmt.Errorf("unknown comparison operator")
}

func evalIntBinary(op BinaryOp, l, r bigint.BigInt) (Value, error) {
	switch op {
	case OpBitOr:
		return VInt(bigint.Or(l, r)), nil
	case OpBitXor:
		return VInt(bigint.Xor(l, r)), nil
	case OpBitAnd:
		return VInt(bigint.And(l, r)), nil
	case OpShl:
		n, err := asShiftCount(r)
		if err != nil {
			return Value{}, err
		}
		return VInt(bigint.Shl(l, n)), nil
	case OpShr:
		n, err := asShiftCount(r)
		if err != nil {
			return Value{}, err
		}
		return VInt(bigint.Shr(l, n)), nil
	case OpAdd:
		return VInt(bigint.Add(l, r)), nil
	case OpSub:
		return VInt(bigint.Sub(l, r)), nil
	case OpMul:
		return VInt(bigint.Mul(l, r)), nil
	case OpDiv:
		v, err := bigint.Div(l, r)
		if err != nil {
			return Value{}, err
		}
		return VInt(v), nil
	case OpMod:
		v, err := bigint.Mod(l, r)
		if err != nil {
			return Value{}, err
		}
		return VInt(v), nil
	}
	return Value{}, fmt.Errorf("unknown integer operator")
}

func asShiftCount(r bigint.BigInt) (uint, error) {
	if r.IsNegative() {
		return 0, fmt.Errorf("shift count cannot be negative")
	}
	big := r.Big()
	if !big.IsUint64() || big.Uint64() > 1<<32 {
		return 0, fmt.Errorf("shift count is not representable")
	}
	return uint(big.Uint64()), nil
}

func evalBitSlice(e *Expr, ctx *EvalContext, p Provider) (Value, error) {
	inner, err := Eval(e.Inner, ctx, p)
	if err != nil {
		return Value{}, err
	}
	if inner.IsPropagating() {
		return inner, nil
	}
	hiV, err := Eval(e.Hi, ctx, p)
	if err != nil {
		return Value{}, err
	}
	if hiV.IsPropagating() {
		return hiV, nil
	}
	loV, err := Eval(e.Lo, ctx, p)
	if err != nil {
		return Value{}, err
	}
	if loV.IsPropagating() {
		return loV, nil
	}
	if inner.Kind != KindInteger || hiV.Kind != KindInteger || loV.Kind != KindInteger {
		return Value{}, fmt.Errorf("bit-slice requires integer operands")
	}
	hi := int(hiV.Int.Big().Int64())
	lo := int(loV.Int.Big().Int64())
	if hi < lo {
		return VFailed("bit slice `[%d:%d]` has hi < lo", hi, lo), nil
	}
	sliced, err := bigint.Slice(inner.Int, hi, lo)
	if err != nil {
		return Value{}, err
	}
	return VInt(sliced), nil
}

func evalCall(e *Expr, ctx *EvalContext, p Provider) (Value, error) {
	callee, err := Eval(e.Callee, ctx, p)
	if err != nil {
		return Value{}, err
	}
	if callee.IsPropagating() {
		return callee, nil
	}
	if callee.Kind != KindFunctionRef {
		return Value{}, fmt.Errorf("callee is not a function")
	}

	args := make([]Value, len(e.Args))
	for i := range e.Args {
		v, err := Eval(&e.Args[i], ctx, p)
		if err != nil {
			return Value{}, err
		}
		if v.IsPropagating() {
			return v, nil
		}
		args[i] = v
	}

	if callee.Func.Builtin != nil {
		return callee.Func.Builtin(e.Span, args, p)
	}

	decl := callee.Func.Decl
	if decl == nil {
		return Value{}, fmt.Errorf("function `%s` has no implementation", callee.Func.Name)
	}
	if len(args) != len(decl.Params) {
		return Value{}, fmt.Errorf("function `%s` expects %d arguments, got %d", decl.Name, len(decl.Params), len(args))
	}
	child, err := ctx.child()
	if err != nil {
		return Value{}, err
	}
	for i, name := range decl.Params {
		child.set(name, args[i])
	}
	return Eval(&decl.Body, child, p)
}

// LookupName resolves an identifier used in "variable position" that
// may actually name a built-in or user function: tries locals, then the
// built-in functions, then the provider's user functions, then its
// variable namespace. This
// mirrors the source language's rule that bare identifiers like
// `assert` or `sizeof` are ordinary variable references that happen to
// evaluate to a function-ref literal.
func LookupName(name string, span diagn.Span, ctx *EvalContext, p Provider) (Value, error) {
	if v, ok := ctx.get(name); ok {
		return v, nil
	}
	if fn, ok := builtins[name]; ok {
		return VFunc(&FunctionValue{Name: name, Builtin: fn}), nil
	}
	if decl, ok := p.ResolveUserFunction(name); ok {
		return VFunc(&FunctionValue{Name: name, Decl: decl}), nil
	}
	v, err := p.ResolveVariable(0, []string{name})
	if err != nil {
		return Value{}, err
	}
	return v, nil
}
