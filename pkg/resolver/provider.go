package resolver

import (
	"fmt"
	"strings"

	"github.com/hlorenzi/customasm-go/pkg/asmast"
	"github.com/hlorenzi/customasm-go/pkg/bigint"
	"github.com/hlorenzi/customasm-go/pkg/expr"
	"github.com/hlorenzi/customasm-go/pkg/matcher"
	"github.com/hlorenzi/customasm-go/pkg/token"
)

// exprProvider is the seam between pkg/expr's evaluator and the
// resolver's symbol table, satisfying expr.Provider. One is created
// per node evaluation, scoped to that node's symbol context.
type exprProvider struct {
	d     *Driver
	scope asmast.ItemRef
}

func (p *exprProvider) ResolveVariable(level int, path []string) (expr.Value, error) {
	ref, ok := p.d.Symbols.Resolve(p.scope, level, path)
	if !ok {
		return expr.Value{}, fmt.Errorf("unknown symbol `%s`", strings.Join(path, "."))
	}
	sym := p.d.Symbols.Get(ref)
	if !sym.Resolved {
		return expr.VUnknown(), nil
	}
	return sym.Value, nil
}

func (p *exprProvider) IsVariableStaticallyKnown(level int, path []string) bool {
	ref, ok := p.d.Symbols.Resolve(p.scope, level, path)
	if !ok {
		return false
	}
	return p.d.Symbols.Get(ref).ValueStaticallyKnown
}

func (p *exprProvider) ResolveUserFunction(name string) (*expr.FunctionDecl, bool) {
	decl, ok := p.d.Functions[name]
	return decl, ok
}

// EvalAsm re-enters the matcher over the (already `{name}`-substituted)
// embedded token stream. spec.md §4.2: an asm{} block holds one or more
// instructions, one per line; each is matched and resolved against the
// driver's *current* state independently (without committing position
// to the outer bank), and their encodings are concatenated into a
// single sized integer, first instruction in the high bits.
func (p *exprProvider) EvalAsm(toks []token.Token, ctx *expr.EvalContext) (expr.Value, error) {
	var result bigint.BigInt
	resultSize := 0
	haveResult := false

	for _, run := range splitAsmInstructions(toks) {
		matches, err := matcher.MatchInstruction(p.d.Ruledefs, run)
		if err != nil {
			return expr.VFailed("%s", err.Error()), nil
		}
		chosen, encErr := p.d.resolveCandidates(matches, p.scope)
		if encErr != nil {
			return expr.Value{}, encErr
		}
		if chosen == nil {
			return expr.VUnknown(), nil
		}
		switch chosen.Encoding.Kind {
		case matcher.EncodingResolved:
			size := 0
			if chosen.EncodingSize != nil {
				size = *chosen.EncodingSize
			}
			next := chosen.Encoding.Value.WithSize(size)
			if !haveResult {
				result, resultSize, haveResult = next, size, true
				continue
			}
			combined, err := bigint.Concat(result, resultSize, 0, next, size, 0)
			if err != nil {
				return expr.Value{}, err
			}
			result, resultSize = combined, resultSize+size
		case matcher.EncodingFailedConstraint:
			return expr.VFailed("%s", chosen.Encoding.Msg), nil
		default:
			return expr.VUnknown(), nil
		}
	}

	if !haveResult {
		return expr.VInt(bigint.FromInt64(0).WithSize(0)), nil
	}
	return expr.VInt(result), nil
}

// splitAsmInstructions breaks an asm{} block's tokens into one run per
// line, trimming leading/trailing whitespace from each and dropping
// blank lines, per spec.md §4.2's "match each instruction" rule.
func splitAsmInstructions(toks []token.Token) [][]token.Token {
	var runs [][]token.Token
	start := 0
	for i, t := range toks {
		if t.Kind == token.KindLineBreak {
			if run := trimAsmWhitespace(toks[start:i]); len(run) > 0 {
				runs = append(runs, run)
			}
			start = i + 1
		}
	}
	if run := trimAsmWhitespace(toks[start:]); len(run) > 0 {
		runs = append(runs, run)
	}
	return runs
}

func trimAsmWhitespace(toks []token.Token) []token.Token {
	i, j := 0, len(toks)
	for i < j && toks[i].IsWhitespace() {
		i++
	}
	for j > i && toks[j-1].IsWhitespace() {
		j--
	}
	return toks[i:j]
}

func (p *exprProvider) ReadBytes(path string, start, size *int) ([]byte, error) {
	if p.d.Fileserver == nil {
		return nil, fmt.Errorf("no fileserver configured")
	}
	return p.d.Fileserver.ReadBytes(path, start, size)
}
