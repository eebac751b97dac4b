package resolver

import (
	"math/big"

	"github.com/hlorenzi/customasm-go/pkg/asmast"
	"github.com/hlorenzi/customasm-go/pkg/bigint"
	"github.com/hlorenzi/customasm-go/pkg/expr"
	"github.com/hlorenzi/customasm-go/pkg/matcher"
	"github.com/hlorenzi/customasm-go/pkg/ruledef"
)

// resolveMatch evaluates one candidate match's production against its
// bound arguments, per spec.md §4.4's instruction rule: each argument
// is evaluated, range-checked against its declared parameter type (a
// violation yields FailedConstraint, not a hard error, so sibling
// candidates can still win), then bound into a fresh EvalContext the
// production is evaluated against.
func (d *Driver) resolveMatch(m *matcher.InstructionMatch, scope asmast.ItemRef) {
	ctx := expr.NewEvalContext()
	p := &exprProvider{d: d, scope: scope}

	staticallyKnown := true

	for _, a := range m.Args {
		param := m.Rule.Parameters[a.Index]
		var val expr.Value
		if a.IsNested {
			d.resolveMatch(a.Nested, scope)
			switch a.Nested.Encoding.Kind {
			case matcher.EncodingResolved:
				size := 0
				if a.Nested.EncodingSize != nil {
					size = *a.Nested.EncodingSize
				}
				val = expr.VInt(a.Nested.Encoding.Value.WithSize(size))
			case matcher.EncodingFailedConstraint:
				m.Encoding = matcher.Encoding{Kind: matcher.EncodingFailedConstraint, Msg: a.Nested.Encoding.Msg}
				return
			default:
				m.Encoding = matcher.Encoding{Kind: matcher.EncodingUnresolved}
				return
			}
			if !a.Nested.EncodingStaticallyKnown {
				staticallyKnown = false
			}
		} else {
			v, err := expr.Eval(&a.Expr, ctx, p)
			if err != nil {
				m.Encoding = matcher.Encoding{Kind: matcher.EncodingFailedConstraint, Msg: err.Error()}
				return
			}
			if v.Kind == expr.KindUnknown {
				m.Encoding = matcher.Encoding{Kind: matcher.EncodingUnresolved}
				return
			}
			if v.Kind == expr.KindFailedConstraint {
				m.Encoding = matcher.Encoding{Kind: matcher.EncodingFailedConstraint, Msg: v.Msg}
				return
			}
			if v.Kind == expr.KindInteger {
				if ok, msg := checkParamRange(v.Int, param.Type); !ok {
					m.Encoding = matcher.Encoding{Kind: matcher.EncodingFailedConstraint, Msg: msg}
					return
				}
			}
			if !expr.IsStaticallyKnown(&a.Expr, p) {
				staticallyKnown = false
			}
			val = v
		}
		ctx.Bind(param.Name, val)
	}

	result, err := expr.Eval(&m.Rule.Production, ctx, p)
	if err != nil {
		m.Encoding = matcher.Encoding{Kind: matcher.EncodingFailedConstraint, Msg: err.Error()}
		return
	}
	switch result.Kind {
	case expr.KindUnknown:
		m.Encoding = matcher.Encoding{Kind: matcher.EncodingUnresolved}
		return
	case expr.KindFailedConstraint:
		m.Encoding = matcher.Encoding{Kind: matcher.EncodingFailedConstraint, Msg: result.Msg}
		return
	case expr.KindInteger:
		size := result.Int.SizeOrMinSize()
		m.EncodingSize = &size
		m.Encoding = matcher.Encoding{Kind: matcher.EncodingResolved, Value: result.Int}
		m.EncodingStaticallyKnown = staticallyKnown && expr.IsStaticallyKnown(&m.Rule.Production, p)
	default:
		m.Encoding = matcher.Encoding{Kind: matcher.EncodingFailedConstraint, Msg: "instruction production did not evaluate to an integer"}
	}
}

// checkParamRange enforces the argument-type range-check spec.md §4.4
// names: Unsigned(n)/Signed(n)/Integer(n).
func checkParamRange(v bigint.BigInt, pt ruledef.ParamType) (bool, string) {
	switch pt.Kind {
	case ruledef.ParamUnspecified:
		return true, ""
	case ruledef.ParamUnsigned:
		maxExclusive := new(big.Int).Lsh(big.NewInt(1), uint(pt.Width))
		if v.Big().Sign() < 0 || v.Big().Cmp(maxExclusive) >= 0 {
			return false, "argument does not fit in an unsigned " + itoa(pt.Width) + "-bit integer"
		}
	case ruledef.ParamSigned:
		half := new(big.Int).Lsh(big.NewInt(1), uint(pt.Width-1))
		neg := new(big.Int).Neg(half)
		if v.Big().Cmp(neg) < 0 || v.Big().Cmp(half) >= 0 {
			return false, "argument does not fit in a signed " + itoa(pt.Width) + "-bit integer"
		}
	case ruledef.ParamInteger:
		half := new(big.Int).Lsh(big.NewInt(1), uint(pt.Width-1))
		neg := new(big.Int).Neg(half)
		maxExclusive := new(big.Int).Lsh(big.NewInt(1), uint(pt.Width))
		if v.Big().Cmp(neg) < 0 || v.Big().Cmp(maxExclusive) >= 0 {
			return false, "argument does not fit in a " + itoa(pt.Width) + "-bit integer"
		}
	}
	return true, ""
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// pickBest retains, among resolved candidates, the one(s) with the
// smallest encoding size, per spec.md §4.4: "keep the smallest-sized
// encoding." Ties and failure are reported by the caller, which has the
// node span pickBest doesn't.
func pickBest(matches []*matcher.InstructionMatch) (best *matcher.InstructionMatch, tied []*matcher.InstructionMatch) {
	for _, m := range matches {
		if m.Encoding.Kind != matcher.EncodingResolved {
			continue
		}
		if best == nil || *m.EncodingSize < *best.EncodingSize {
			best = m
			tied = []*matcher.InstructionMatch{m}
		} else if *m.EncodingSize == *best.EncodingSize {
			tied = append(tied, m)
		}
	}
	return best, tied
}

// resolveCandidates resolves every candidate against scope and returns
// the best one, per spec.md §4.2's embedded-instruction rule: used by
// EvalAsm to re-enter instruction matching from inside an expression
// (asm{...} blocks) without threading the full node-resolution path.
func (d *Driver) resolveCandidates(matches []*matcher.InstructionMatch, scope asmast.ItemRef) (*matcher.InstructionMatch, error) {
	for _, m := range matches {
		d.resolveMatch(m, scope)
	}
	best, _ := pickBest(matches)
	return best, nil
}

// firstFailure returns the message of the first candidate whose
// encoding is FailedConstraint, for spec.md §4.4's "surface the topmost
// such message" rule.
func firstFailure(matches []*matcher.InstructionMatch) (string, bool) {
	for _, m := range matches {
		if m.Encoding.Kind == matcher.EncodingFailedConstraint {
			return m.Encoding.Msg, true
		}
	}
	return "", false
}
