// Package matcher implements the pattern matcher described in spec.md
// §4.3 (component C3): given a ruledef and a token stream, enumerate all
// maximal matches, handling nested ruledef parameters, whitespace
// sensitivity, partial-token digits, and lookahead disambiguation.
package matcher

import (
	"fmt"

	"github.com/hlorenzi/customasm-go/pkg/bigint"
	"github.com/hlorenzi/customasm-go/pkg/expr"
	"github.com/hlorenzi/customasm-go/pkg/ruledef"
	"github.com/hlorenzi/customasm-go/pkg/token"
	"golang.org/x/exp/slices"
)

// EncodingKind tags an InstructionMatch's current encoding state.
type EncodingKind int

const (
	EncodingUnresolved EncodingKind = iota
	EncodingFailedConstraint
	EncodingResolved
)

// Encoding is the per-match encoding state the resolver (C4) mutates
// across fixpoint iterations.
type Encoding struct {
	Kind  EncodingKind
	Msg   string
	Value bigint.BigInt
}

// ArgValue is one instruction argument: either a plain expression or a
// nested sub-ruledef match, per spec.md §3. Index identifies which of
// the rule's declared Parameters this value binds to — arguments are
// appended in the order their pattern parts are encountered, which need
// not match Parameters' declaration order.
type ArgValue struct {
	IsNested bool
	Index    int
	Expr     expr.Expr
	Nested   *InstructionMatch
}

// InstructionMatch is one candidate parse of an instruction (or nested
// sub-ruledef invocation) against one rule of one ruledef.
type InstructionMatch struct {
	Ruledef *ruledef.Ruledef
	Rule    *ruledef.Rule
	Args    []ArgValue

	EncodingSize            *int
	Encoding                Encoding
	EncodingStaticallyKnown bool
}

// ExactPartCount sums this match's own rule's exact-part count plus,
// recursively, every nested sub-match's count — the GLOSSARY's "Exact
// part count", used to pick the most-specific match among ambiguous
// candidates.
func (m *InstructionMatch) ExactPartCount() int {
	total := m.Rule.ExactPartCount
	for _, a := range m.Args {
		if a.IsNested {
			total += a.Nested.ExactPartCount()
		}
	}
	return total
}

// walker is the backtracking cursor over a token stream. It tracks
// position both at the token granularity and, within the current
// token, at the rune granularity — required for partial-token Exact
// matching (spec.md §4.3: "ld" + "a" consumed out of the identifier
// "lda"). It is a plain value type so forking across ambiguous
// candidates (nested ruledef matches) is just a struct copy.
type walker struct {
	toks    []token.Token
	tokIdx  int
	charIdx int
}

func newWalker(toks []token.Token) walker {
	return walker{toks: toks}
}

func (w walker) atTokenEnd() bool {
	return w.tokIdx >= len(w.toks) || w.toks[w.tokIdx].Kind == token.KindEOF
}

func (w walker) currentRunes() []rune {
	return []rune(w.toks[w.tokIdx].Text)
}

// matchExact attempts to consume one character c (case-insensitive)
// from the current position. Fails if the walker sits at an
// unacknowledged whitespace/linebreak token, per spec.md §4.3.
func (w walker) matchExact(c rune) (walker, bool) {
	if w.atTokenEnd() {
		return w, false
	}
	tok := w.toks[w.tokIdx]
	if tok.IsWhitespace() {
		return w, false
	}
	runes := w.currentRunes()
	if w.charIdx >= len(runes) {
		return w, false
	}
	if lowerRune(runes[w.charIdx]) != lowerRune(c) {
		return w, false
	}
	next := w
	next.charIdx++
	if next.charIdx >= len(runes) {
		next.tokIdx++
		next.charIdx = 0
	}
	return next, true
}

// matchWhitespace consumes zero or more contiguous whitespace/linebreak
// tokens. Always succeeds (consuming zero tokens is fine); what makes
// whitespace "sensitive" is that matchExact refuses to step over an
// unconsumed whitespace token.
func (w walker) matchWhitespace() walker {
	for !w.atTokenEnd() && w.toks[w.tokIdx].IsWhitespace() && w.charIdx == 0 {
		w.tokIdx++
	}
	return w
}

func (w walker) atEnd() bool {
	w2 := w.matchWhitespace()
	return w2.atTokenEnd()
}

func lowerRune(c rune) rune {
	if c >= 'A' && c <= 'Z' {
		return c - 'A' + 'a'
	}
	return c
}

// remainingTokens returns the token slice from the current position
// (including any partially-consumed lead token, retokenized as a
// synthetic identifier/number token of its remaining characters) to the
// end. It is the raw material for lookahead-cutoff slicing and for
// expression parsing.
func (w walker) remainingTokens() []token.Token {
	if w.atTokenEnd() {
		return nil
	}
	out := make([]token.Token, 0, len(w.toks)-w.tokIdx)
	first := w.toks[w.tokIdx]
	if w.charIdx > 0 {
		runes := []rune(first.Text)
		first = token.Token{Kind: first.Kind, Text: string(runes[w.charIdx:]), Span: first.Span}
	}
	out = append(out, first)
	out = append(out, w.toks[w.tokIdx+1:]...)
	return out
}

// findCutoffChar returns the next Exact part's rune starting at
// partIdx in pattern, skipping Whitespace parts, stopping at the first
// Parameter or end of pattern.
func findCutoffChar(pattern []ruledef.Part, partIdx int) (rune, bool) {
	for i := partIdx; i < len(pattern); i++ {
		switch pattern[i].Kind {
		case ruledef.PartWhitespace:
			continue
		case ruledef.PartExact:
			return pattern[i].Exact, true
		default:
			return 0, false
		}
	}
	return 0, false
}

// sliceBeforeCutoff finds the first occurrence of c at paren-depth 0 in
// toks and returns the tokens strictly before it, plus whether c was
// found at all (if not, the whole slice is the expression's tokens).
func sliceBeforeCutoff(toks []token.Token, c rune) ([]token.Token, bool) {
	depth := 0
	for i, t := range toks {
		if t.Kind == token.KindOperator && len(t.Text) == 1 {
			switch t.Text[0] {
			case '(', '[', '{':
				depth++
			case ')', ']', '}':
				if depth > 0 {
					depth--
				}
			}
		}
		if depth == 0 && t.Kind == token.KindOperator && []rune(t.Text)[0] == c {
			return toks[:i], true
		}
	}
	return toks, false
}

// result is one successful completion of matching a rule's pattern (or
// a suffix of it) from some starting walker position.
type result struct {
	args    []ArgValue
	walker  walker
	warnErr error
}

// matchPatternFrom recursively matches pattern[partIdx:] starting at w,
// accumulating args. It returns every successful completion — plural
// because a RuledefRef parameter may itself match ambiguously and each
// of its completions must be tried against the rest of the pattern.
func matchPatternFrom(
	set *ruledef.Set,
	rule *ruledef.Rule,
	partIdx int,
	w walker,
	args []ArgValue,
) []result {
	if partIdx >= len(rule.Pattern) {
		return []result{{args: args, walker: w}}
	}

	part := rule.Pattern[partIdx]
	switch part.Kind {
	case ruledef.PartExact:
		next, ok := w.matchExact(part.Exact)
		if !ok {
			return nil
		}
		return matchPatternFrom(set, rule, partIdx+1, next, args)

	case ruledef.PartWhitespace:
		return matchPatternFrom(set, rule, partIdx+1, w.matchWhitespace(), args)

	case ruledef.PartParameter:
		param := rule.Parameters[part.Index]
		if param.Type.Kind == ruledef.ParamRuledefRef {
			nestedRd, ok := set.ByName[param.Type.RefName]
			if !ok {
				return nil
			}
			nested := matchWithRuledefAt(set, nestedRd, w)
			var out []result
			for _, n := range nested {
				args2 := append(append([]ArgValue{}, args...), ArgValue{IsNested: true, Index: part.Index, Nested: n.match})
				out = append(out, matchPatternFrom(set, rule, partIdx+1, n.walker, args2)...)
			}
			return out
		}

		// Expression parameter: compute the lookahead cutoff.
		remaining := w.matchWhitespace().remainingTokens()
		var exprToks []token.Token
		if cutoff, has := findCutoffChar(rule.Pattern, partIdx+1); has {
			sliced, found := sliceBeforeCutoff(remaining, cutoff)
			if found {
				exprToks = sliced
			} else {
				exprToks = remaining
			}
		} else {
			exprToks = remaining
		}
		if len(exprToks) == 0 {
			return nil
		}
		pw := expr.NewWalker(exprToks)
		parsed, err := expr.ParseTernary(pw)
		if err != nil || !pw.AtEnd() {
			return nil
		}
		consumed := len(exprToks)
		next := w.matchWhitespace()
		for i := 0; i < consumed; i++ {
			next.tokIdx++
			next.charIdx = 0
		}
		args2 := append(append([]ArgValue{}, args...), ArgValue{Index: part.Index, Expr: parsed})
		return matchPatternFrom(set, rule, partIdx+1, next, args2)
	}
	return nil
}

type nestedResult struct {
	match  *InstructionMatch
	walker walker
}

// matchWithRuledefAt matches every rule of rd starting at w, without
// requiring the whole remaining stream to be consumed (used for nested
// RuledefRef parameters, per spec.md §4.3).
func matchWithRuledefAt(set *ruledef.Set, rd *ruledef.Ruledef, w walker) []nestedResult {
	var out []nestedResult
	lead := rune(0)
	if rem := w.matchWhitespace().remainingTokens(); len(rem) > 0 && len(rem[0].Text) > 0 {
		lead = []rune(rem[0].Text)[0]
	}
	for _, idx := range rd.CandidateRules(lead) {
		rule := &rd.Rules[idx]
		for _, res := range matchPatternFrom(set, rule, 0, w.matchWhitespace(), nil) {
			out = append(out, nestedResult{
				match: &InstructionMatch{Ruledef: rd, Rule: rule, Args: res.args},
				walker: res.walker,
			})
		}
	}
	return out
}

// MatchInstruction matches tokens (one instruction line, no leading
// line-break) against every top-level ruledef in set, requiring the
// full token stream to be consumed. It returns only the matches tied
// for the largest recursive exact-part count (filtered through
// MaxExactPartCount below), per spec.md §4.3.
func MatchInstruction(set *ruledef.Set, toks []token.Token) ([]*InstructionMatch, error) {
	var out []*InstructionMatch
	for _, rd := range set.TopLevelRuledefs() {
		w := newWalker(toks)
		lead := rune(0)
		if rem := w.matchWhitespace().remainingTokens(); len(rem) > 0 && len(rem[0].Text) > 0 {
			lead = []rune(rem[0].Text)[0]
		}
		for _, idx := range rd.CandidateRules(lead) {
			rule := &rd.Rules[idx]
			for _, res := range matchPatternFrom(set, rule, 0, w.matchWhitespace(), nil) {
				if !res.walker.atEnd() {
					continue
				}
				out = append(out, &InstructionMatch{Ruledef: rd, Rule: rule, Args: res.args})
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no ruledef rule matches this instruction")
	}
	return MaxExactPartCount(out), nil
}

// MaxExactPartCount filters matches down to those tied for the highest
// recursive ExactPartCount, per spec.md §4.3's tie-breaking rule.
func MaxExactPartCount(matches []*InstructionMatch) []*InstructionMatch {
	if len(matches) == 0 {
		return matches
	}
	sorted := slices.Clone(matches)
	slices.SortFunc(sorted, func(a, b *InstructionMatch) bool {
		return a.ExactPartCount() > b.ExactPartCount()
	})
	best := sorted[0].ExactPartCount()
	var out []*InstructionMatch
	for _, m := range sorted {
		if m.ExactPartCount() != best {
			break
		}
		out = append(out, m)
	}
	return out
}
