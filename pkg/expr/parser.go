package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hlorenzi/customasm-go/pkg/bigint"
	"github.com/hlorenzi/customasm-go/pkg/token"
)

// Walker is the cursor the parser advances over a token stream. It is
// exported so pkg/matcher can share the same cursor shape when it needs
// to hand a restricted slice to the expression parser under a lookahead
// cutoff (spec.md §4.3).
type Walker struct {
	toks []token.Token
	pos  int
}

// NewWalker wraps a token slice (already excluding a trailing EOF, or
// not — both are handled) for expression parsing.
func NewWalker(toks []token.Token) *Walker {
	return &Walker{toks: toks}
}

func (w *Walker) skipInsignificant() {
	for w.pos < len(w.toks) && (w.toks[w.pos].IsWhitespace() || w.toks[w.pos].Kind == token.KindLineBreak) {
		w.pos++
	}
}

func (w *Walker) peek() token.Token {
	w.skipInsignificant()
	if w.pos >= len(w.toks) {
		return token.Token{Kind: token.KindEOF}
	}
	return w.toks[w.pos]
}

// peekAt looks ahead skipCount significant tokens past the current one,
// without consuming anything.
func (w *Walker) peekAt(skipCount int) token.Token {
	save := w.pos
	w.skipInsignificant()
	for i := 0; i < skipCount; i++ {
		w.pos++
		w.skipInsignificant()
	}
	tok := token.Token{Kind: token.KindEOF}
	if w.pos < len(w.toks) {
		tok = w.toks[w.pos]
	}
	w.pos = save
	return tok
}

func (w *Walker) next() token.Token {
	t := w.peek()
	if w.pos < len(w.toks) {
		w.pos++
	}
	return t
}

// AtEnd reports whether the walker has nothing significant left.
func (w *Walker) AtEnd() bool {
	return w.peek().Kind == token.KindEOF
}

func (w *Walker) expectOp(c byte) error {
	t := w.next()
	if !t.IsOperator(c) {
		return fmt.Errorf("expected `%c`, found %q at %s", c, t.Text, t.Span)
	}
	return nil
}

// adjacentOp checks whether the next two tokens are single-char
// operators forming the digraph s, with no gap between them (so `= =`
// with a space is not `==`).
func (w *Walker) adjacentOp(s string) bool {
	if len(s) != 2 {
		return false
	}
	a := w.peek()
	if !a.IsOperator(s[0]) {
		return false
	}
	b := w.peekAt(1)
	if !b.IsOperator(s[1]) {
		return false
	}
	return a.Span.LineEnd == b.Span.LineStart && a.Span.ColEnd == b.Span.ColStart
}

func (w *Walker) consumeDigraph() {
	w.next()
	w.next()
}

// Parse parses a full expression from the walker, per spec.md §4.2's
// precedence table (lowest to highest): assignment, concat, lazy-or,
// lazy-and, comparisons, |, ^, &, shifts, +-, */%. bitslice/grave-size,
// unary, call, leaf.
func Parse(w *Walker) (Expr, error) {
	return parseAssign(w)
}

func parseAssign(w *Walker) (Expr, error) {
	lhs, err := parseConcat(w)
	if err != nil {
		return Expr{}, err
	}
	if w.peek().IsOperator('=') && !w.adjacentOp("==") {
		w.next()
		rhs, err := parseAssign(w)
		if err != nil {
			return Expr{}, err
		}
		return Expr{Kind: NodeBinary, BOp: OpAssign, Lhs: &lhs, Rhs: &rhs, Span: lhs.Span}, nil
	}
	return lhs, nil
}

func parseConcat(w *Walker) (Expr, error) {
	lhs, err := parseLazyOr(w)
	if err != nil {
		return Expr{}, err
	}
	for w.peek().IsOperator('@') {
		w.next()
		rhs, err := parseLazyOr(w)
		if err != nil {
			return Expr{}, err
		}
		lhs = Expr{Kind: NodeBinary, BOp: OpConcat, Lhs: copyExpr(lhs), Rhs: copyExpr(rhs), Span: lhs.Span}
	}
	return lhs, nil
}

func copyExpr(e Expr) *Expr {
	out := e
	return &out
}

func parseLazyOr(w *Walker) (Expr, error) {
	lhs, err := parseLazyAnd(w)
	if err != nil {
		return Expr{}, err
	}
	for w.adjacentOp("||") {
		w.consumeDigraph()
		rhs, err := parseLazyAnd(w)
		if err != nil {
			return Expr{}, err
		}
		lhs = Expr{Kind: NodeBinary, BOp: OpLazyOr, Lhs: copyExpr(lhs), Rhs: copyExpr(rhs), Span: lhs.Span}
	}
	return lhs, nil
}

func parseLazyAnd(w *Walker) (Expr, error) {
	lhs, err := parseComparison(w)
	if err != nil {
		return Expr{}, err
	}
	for w.adjacentOp("&&") {
		w.consumeDigraph()
		rhs, err := parseComparison(w)
		if err != nil {
			return Expr{}, err
		}
		lhs = Expr{Kind: NodeBinary, BOp: OpLazyAnd, Lhs: copyExpr(lhs), Rhs: copyExpr(rhs), Span: lhs.Span}
	}
	return lhs, nil
}

func parseComparison(w *Walker) (Expr, error) {
	lhs, err := parseBitOr(w)
	if err != nil {
		return Expr{}, err
	}
	for {
		var op BinaryOp
		switch {
		case w.adjacentOp("=="):
			op = OpEq
		case w.adjacentOp("!="):
			op = OpNe
		case w.adjacentOp("<="):
			op = OpLe
		case w.adjacentOp(">="):
			op = OpGe
		case w.peek().IsOperator('<') && !w.adjacentOp("<<"):
			op = OpLt
		case w.peek().IsOperator('>') && !w.adjacentOp(">>"):
			op = OpGt
		default:
			return lhs, nil
		}
		if op == OpLt || op == OpGt {
			w.next()
		} else {
			w.consumeDigraph()
		}
		rhs, err := parseBitOr(w)
		if err != nil {
			return Expr{}, err
		}
		lhs = Expr{Kind: NodeBinary, BOp: op, Lhs: copyExpr(lhs), Rhs: copyExpr(rhs), Span: lhs.Span}
	}
}

func parseBitOr(w *Walker) (Expr, error) {
	lhs, err := parseBitXor(w)
	if err != nil {
		return Expr{}, err
	}
	for w.peek().IsOperator('|') && !w.adjacentOp("||") {
		w.next()
		rhs, err := parseBitXor(w)
		if err != nil {
			return Expr{}, err
		}
		lhs = Expr{Kind: NodeBinary, BOp: OpBitOr, Lhs: copyExpr(lhs), Rhs: copyExpr(rhs), Span: lhs.Span}
	}
	return lhs, nil
}

func parseBitXor(w *Walker) (Expr, error) {
	lhs, err := parseBitAnd(w)
	if err != nil {
		return Expr{}, err
	}
	for w.peek().IsOperator('^') {
		w.next()
		rhs, err := parseBitAnd(w)
		if err != nil {
			return Expr{}, err
		}
		lhs = Expr{Kind: NodeBinary, BOp: OpBitXor, Lhs: copyExpr(lhs), Rhs: copyExpr(rhs), Span: lhs.Span}
	}
	return lhs, nil
}

func parseBitAnd(w *Walker) (Expr, error) {
	lhs, err := parseShift(w)
	if err != nil {
		return Expr{}, err
	}
	for w.peek().IsOperator('&') && !w.adjacentOp("&&") {
		w.next()
		rhs, err := parseShift(w)
		if err != nil {
			return Expr{}, err
		}
		lhs = Expr{Kind: NodeBinary, BOp: OpBitAnd, Lhs: copyExpr(lhs), Rhs: copyExpr(rhs), Span: lhs.Span}
	}
	return lhs, nil
}

func parseShift(w *Walker) (Expr, error) {
	lhs, err := parseAdd(w)
	if err != nil {
		return Expr{}, err
	}
	for {
		var op BinaryOp
		switch {
		case w.adjacentOp("<<"):
			op = OpShl
		case w.adjacentOp(">>"):
			op = OpShr
		default:
			return lhs, nil
		}
		w.consumeDigraph()
		rhs, err := parseAdd(w)
		if err != nil {
			return Expr{}, err
		}
		lhs = Expr{Kind: NodeBinary, BOp: op, Lhs: copyExpr(lhs), Rhs: copyExpr(rhs), Span: lhs.Span}
	}
}

func parseAdd(w *Walker) (Expr, error) {
	lhs, err := parseMul(w)
	if err != nil {
		return Expr{}, err
	}
	for {
		var op BinaryOp
		switch {
		case w.peek().IsOperator('+'):
			op = OpAdd
		case w.peek().IsOperator('-'):
			op = OpSub
		default:
			return lhs, nil
		}
		w.next()
		rhs, err := parseMul(w)
		if err != nil {
			return Expr{}, err
		}
		lhs = Expr{Kind: NodeBinary, BOp: op, Lhs: copyExpr(lhs), Rhs: copyExpr(rhs), Span: lhs.Span}
	}
}

func parseMul(w *Walker) (Expr, error) {
	lhs, err := parseSlice(w)
	if err != nil {
		return Expr{}, err
	}
	for {
		var op BinaryOp
		switch {
		case w.peek().IsOperator('*'):
			op = OpMul
		case w.peek().IsOperator('/'):
			op = OpDiv
		case w.peek().IsOperator('%'):
			op = OpMod
		default:
			return lhs, nil
		}
		w.next()
		rhs, err := parseSlice(w)
		if err != nil {
			return Expr{}, err
		}
		lhs = Expr{Kind: NodeBinary, BOp: op, Lhs: copyExpr(lhs), Rhs: copyExpr(rhs), Span: lhs.Span}
	}
}

// parseSlice handles postfix `[hi:lo]` bit-slice and `` `N `` grave-size
// sugar (x`N == x[N:0]).
func parseSlice(w *Walker) (Expr, error) {
	inner, err := parseUnary(w)
	if err != nil {
		return Expr{}, err
	}
	for {
		if w.peek().IsOperator('[') {
			w.next()
			hi, err := Parse(w)
			if err != nil {
				return Expr{}, err
			}
			if err := w.expectOp(':'); err != nil {
				return Expr{}, err
			}
			lo, err := Parse(w)
			if err != nil {
				return Expr{}, err
			}
			if err := w.expectOp(']'); err != nil {
				return Expr{}, err
			}
			inner = Expr{Kind: NodeBitSlice, Inner: copyExpr(inner), Hi: copyExpr(hi), Lo: copyExpr(lo), Span: inner.Span}
			continue
		}
		if w.peek().IsOperator('`') {
			w.next()
			n, err := parseUnary(w)
			if err != nil {
				return Expr{}, err
			}
			zero := IntLiteral(n.Span, bigint.FromInt64(0))
			inner = Expr{Kind: NodeBitSlice, Inner: copyExpr(inner), Hi: copyExpr(n), Lo: copyExpr(zero), Span: inner.Span}
			continue
		}
		return inner, nil
	}
}

func parseUnary(w *Walker) (Expr, error) {
	switch {
	case w.peek().IsOperator('-'):
		tok := w.next()
		inner, err := parseUnary(w)
		if err != nil {
			return Expr{}, err
		}
		return Expr{Kind: NodeUnary, UOp: OpNeg, Inner: copyExpr(inner), Span: tok.Span}, nil
	case w.peek().IsOperator('!'):
		tok := w.next()
		inner, err := parseUnary(w)
		if err != nil {
			return Expr{}, err
		}
		return Expr{Kind: NodeUnary, UOp: OpNot, Inner: copyExpr(inner), Span: tok.Span}, nil
	default:
		return parseCall(w)
	}
}

func parseCall(w *Walker) (Expr, error) {
	callee, err := parseLeaf(w)
	if err != nil {
		return Expr{}, err
	}
	for w.peek().IsOperator('(') {
		w.next()
		var args []Expr
		for !w.peek().IsOperator(')') {
			arg, err := parseAssign(w)
			if err != nil {
				return Expr{}, err
			}
			args = append(args, arg)
			if w.peek().IsOperator(',') {
				w.next()
				continue
			}
			break
		}
		if err := w.expectOp(')'); err != nil {
			return Expr{}, err
		}
		callee = Expr{Kind: NodeCall, Callee: copyExpr(callee), Args: args, Span: callee.Span}
	}
	return callee, nil
}

func parseLeaf(w *Walker) (Expr, error) {
	t := w.peek()
	switch {
	case t.Kind == token.KindNumber:
		w.next()
		v, err := parseNumber(t.Text)
		if err != nil {
			return Expr{}, fmt.Errorf("%s: %w", t.Span, err)
		}
		return IntLiteral(t.Span, v), nil

	case t.Kind == token.KindString:
		w.next()
		return Literal(t.Span, VString(t.Text, "")), nil

	case t.Kind == token.KindIdent && t.Text == "true":
		w.next()
		return Literal(t.Span, VBool(true)), nil

	case t.Kind == token.KindIdent && t.Text == "false":
		w.next()
		return Literal(t.Span, VBool(false)), nil

	case t.Kind == token.KindIdent:
		w.next()
		level := 0
		name := t.Text
		for len(name) > 0 && name[0] == '.' {
			level++
			name = name[1:]
		}
		path := strings.Split(name, ".")
		return Variable(t.Span, level, path), nil

	case t.IsOperator('('):
		w.next()
		inner, err := Parse(w)
		if err != nil {
			return Expr{}, err
		}
		if err := w.expectOp(')'); err != nil {
			return Expr{}, err
		}
		return inner, nil

	case t.IsOperator('{'):
		return parseBlockOrAsm(w)

	case t.IsOperator('?'):
		return Expr{}, fmt.Errorf("unexpected `?` at %s", t.Span)

	default:
		return Expr{}, fmt.Errorf("expected an expression, found %q at %s", t.Text, t.Span)
	}
}

// parseBlockOrAsm parses `{ expr ; expr ; ... }` as a NodeBlock unless
// the block is introduced by the literal keyword `asm`, handled by the
// caller (directive parser) which constructs NodeAsm directly from the
// raw token span instead of calling this function.
func parseBlockOrAsm(w *Walker) (Expr, error) {
	start := w.next() // consume '{'
	var exprs []Expr
	for !w.peek().IsOperator('}') {
		if w.AtEnd() {
			return Expr{}, fmt.Errorf("unterminated block starting at %s", start.Span)
		}
		e, err := Parse(w)
		if err != nil {
			return Expr{}, err
		}
		exprs = append(exprs, e)
		if w.peek().IsOperator(';') {
			w.next()
			continue
		}
		break
	}
	if err := w.expectOp('}'); err != nil {
		return Expr{}, err
	}
	if len(exprs) == 0 {
		return Expr{Kind: NodeBlock, Span: start.Span}, nil
	}
	return Expr{Kind: NodeBlock, Exprs: exprs, Span: start.Span}, nil
}

// ParseTernary wraps Parse to additionally recognize `cond ? then : else`
// at the lowest precedence, above assignment. Exposed separately because
// ternary syntax in this grammar binds looser than `=` only at
// statement position; most callers should use Parse.
func ParseTernary(w *Walker) (Expr, error) {
	cond, err := Parse(w)
	if err != nil {
		return Expr{}, err
	}
	if w.peek().IsOperator('?') {
		w.next()
		then, err := Parse(w)
		if err != nil {
			return Expr{}, err
		}
		if err := w.expectOp(':'); err != nil {
			return Expr{}, err
		}
		els, err := Parse(w)
		if err != nil {
			return Expr{}, err
		}
		return Expr{Kind: NodeTernary, Cond: copyExpr(cond), Then: copyExpr(then), Else: copyExpr(els), Span: cond.Span}, nil
	}
	return cond, nil
}

func parseNumber(text string) (bigint.BigInt, error) {
	switch {
	case strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X"):
		v, ok := new(bigIntFromString).parse(text[2:], 16)
		if !ok {
			return bigint.BigInt{}, fmt.Errorf("invalid hex literal %q", text)
		}
		return v, nil
	case strings.HasPrefix(text, "0b") || strings.HasPrefix(text, "0B"):
		v, ok := new(bigIntFromString).parse(text[2:], 2)
		if !ok {
			return bigint.BigInt{}, fmt.Errorf("invalid binary literal %q", text)
		}
		return v, nil
	case strings.HasPrefix(text, "0o") || strings.HasPrefix(text, "0O"):
		v, ok := new(bigIntFromString).parse(text[2:], 8)
		if !ok {
			return bigint.BigInt{}, fmt.Errorf("invalid octal literal %q", text)
		}
		return v, nil
	default:
		clean := strings.ReplaceAll(text, "_", "")
		n, err := strconv.ParseInt(clean, 10, 64)
		if err != nil {
			return bigint.BigInt{}, fmt.Errorf("invalid decimal literal %q", text)
		}
		return bigint.FromInt64(n), nil
	}
}

// bigIntFromString parses arbitrary-width radix literals into a sized
// BigInt (sized to the number of digits times the log2 of the radix,
// matching customasm's "0x.." literals carrying an implicit width).
type bigIntFromString struct{}

func (bigIntFromString) parse(digits string, radix int) (bigint.BigInt, bool) {
	digits = strings.ReplaceAll(digits, "_", "")
	if digits == "" {
		return bigint.BigInt{}, false
	}
	bitsPerDigit := map[int]int{16: 4, 8: 3, 2: 1}[radix]
	acc := bigint.FromInt64(0)
	for _, c := range digits {
		var d int64
		switch {
		case c >= '0' && c <= '9':
			d = int64(c - '0')
		case c >= 'a' && c <= 'f':
			d = int64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = int64(c-'A') + 10
		default:
			return bigint.BigInt{}, false
		}
		if d >= int64(radix) {
			return bigint.BigInt{}, false
		}
		acc = bigint.Shl(acc, uint(bitsPerDigit))
		acc = bigint.Or(acc, bigint.FromInt64(d))
	}
	return acc.WithSize(len(digits) * bitsPerDigit), true
}
