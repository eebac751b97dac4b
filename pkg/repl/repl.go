// Package repl implements `casm repl`: an interactive line editor for
// evaluating expressions against pkg/expr, useful for testing constant
// arithmetic and built-in functions without a full assembly run.
// Grounded on informatter-nilan's cmd_repl.go (same readline.Instance
// read-eval-print loop shape, same "blank line / EOF exits" discipline).
package repl

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/hlorenzi/customasm-go/pkg/expr"
	"github.com/hlorenzi/customasm-go/pkg/token"
)

// emptyProvider rejects every variable lookup with an error and finds no
// user functions — the REPL only evaluates self-contained arithmetic, not
// whole programs.
type emptyProvider struct{}

func (emptyProvider) ResolveVariable(level int, path []string) (expr.Value, error) {
	return expr.Value{}, fmt.Errorf("unknown variable `%s`", strings.Join(path, "."))
}
func (emptyProvider) IsVariableStaticallyKnown(level int, path []string) bool { return false }
func (emptyProvider) ResolveUserFunction(name string) (*expr.FunctionDecl, bool) {
	return nil, false
}
func (emptyProvider) EvalAsm(toks []token.Token, ctx *expr.EvalContext) (expr.Value, error) {
	return expr.Value{}, fmt.Errorf("asm{} blocks are not available in the repl")
}
func (emptyProvider) ReadBytes(path string, start, size *int) ([]byte, error) {
	return nil, fmt.Errorf("file access is not available in the repl")
}

// Run starts the read-eval-print loop on stdin/stdout until EOF or an
// empty line at the prompt.
func Run() error {
	rl, err := readline.New("casm> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	p := emptyProvider{}
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return nil
		}
		v, err := Eval(line, p)
		if err != nil {
			fmt.Fprintf(rl.Stderr(), "error: %s\n", err.Error())
			continue
		}
		fmt.Fprintln(rl.Stdout(), Format(v))
	}
}

// Eval lexes and parses one line as a single expression and evaluates
// it, for both the interactive loop and tests.
func Eval(line string, p expr.Provider) (expr.Value, error) {
	toks := token.Lex("<repl>", line)
	var significant []token.Token
	for _, t := range toks {
		if !t.IsWhitespace() {
			significant = append(significant, t)
		}
	}
	w := expr.NewWalker(significant)
	e, err := expr.Parse(w)
	if err != nil {
		return expr.Value{}, err
	}
	if !w.AtEnd() {
		return expr.Value{}, fmt.Errorf("unexpected trailing input")
	}
	ctx := expr.NewEvalContext()
	return expr.Eval(&e, ctx, p)
}

// Format renders a Value the way the repl prints results.
func Format(v expr.Value) string {
	switch v.Kind {
	case expr.KindInteger:
		return fmt.Sprintf("%s (0x%s)", v.Int.Big().String(), v.Int.Big().Text(16))
	case expr.KindBool:
		return fmt.Sprintf("%v", v.Bool)
	case expr.KindString:
		return fmt.Sprintf("%q", v.Str)
	case expr.KindUnknown:
		return "<unknown>"
	case expr.KindFailedConstraint:
		return "<failed: " + v.Msg + ">"
	default:
		return "<void>"
	}
}
