// Package resolver implements the iterative fixpoint driver described
// in spec.md §4.4 (component C4): it walks a parsed program's AST pass
// after pass, resolving symbol values, instruction encodings, and
// bank positions until nothing changes, then runs one final pass that
// promotes any remaining instability to a hard error.
package resolver

import (
	"github.com/hlorenzi/customasm-go/pkg/asmast"
	"github.com/hlorenzi/customasm-go/pkg/diagn"
	"github.com/hlorenzi/customasm-go/pkg/expr"
	"github.com/hlorenzi/customasm-go/pkg/matcher"
	"github.com/hlorenzi/customasm-go/pkg/ruledef"
)

// Fileserver is the subset of spec.md §6's fileserver contract the
// resolver needs directly, for incbin/incbinstr/inchexstr built-ins.
// Path navigation and #include live outside the core (the AST is
// already fully expanded by the time it reaches the resolver).
type Fileserver interface {
	ReadBytes(path string, start, size *int) ([]byte, error)
}

// Options are spec.md §6's "Assembly options".
type Options struct {
	MaxIterations               int
	OptimizeStaticallyKnown     bool
	OptimizeInstructionMatching bool
	DriverSymbolDefs            map[string]expr.Value
	Bits                        int // default bank address unit (#bits), default 8
}

// DefaultOptions matches spec.md §6's stated defaults.
func DefaultOptions() Options {
	return Options{
		MaxIterations:               10,
		OptimizeStaticallyKnown:     true,
		OptimizeInstructionMatching: true,
		Bits:                        8,
	}
}

// Driver owns every piece of mutable state the fixpoint iteration
// touches: the symbol table, the bank set, and the running report. It
// is the single task-local state spec.md §5 requires ("no locking
// discipline is required").
type Driver struct {
	Ruledefs   *ruledef.Set
	Symbols    *SymbolTable
	Banks      *BankSet
	Report     *diagn.Report
	Options    Options
	Fileserver Fileserver
	Functions  map[string]*expr.FunctionDecl

	iteration        int
	isFirstIteration bool
	isLastIteration  bool
	anyChanged       bool

	// OnPass, if set, is called after every resolution pass (including
	// the final is_last_iteration pass) — the seam `casm watch` uses to
	// drive a live view of the fixpoint without touching Driver
	// internals directly.
	OnPass func(PassStats)
}

// PassStats is one pass's worth of progress, for the `casm watch`
// dashboard and for tests asserting on convergence shape.
type PassStats struct {
	Iteration        int
	IsFirstIteration bool
	IsLastIteration  bool
	AnyChanged       bool
	ResolvedSymbols  int
	TotalSymbols     int
	Banks            []BankStat
}

// BankStat is one bank's high-water mark as of the end of a pass.
type BankStat struct {
	Name            string
	CurPosition     int
	HighestPosition int
}

// NewDriver returns a driver ready to run over ruledefs, pre-seeding
// constants from opts.DriverSymbolDefs (the "-d name=value" style
// command-line overrides spec.md §6 names).
func NewDriver(ruledefs *ruledef.Set, fs Fileserver, opts Options) *Driver {
	d := &Driver{
		Ruledefs:   ruledefs,
		Symbols:    NewSymbolTable(),
		Banks:      NewBankSet(opts.Bits),
		Report:     diagn.NewReport(),
		Options:    opts,
		Fileserver: fs,
		Functions:  map[string]*expr.FunctionDecl{},
	}
	for name, v := range opts.DriverSymbolDefs {
		ref, err := d.Symbols.Declare(asmast.NoRef, name, asmast.SymbolConstant, diagn.Span{}, 0)
		if err != nil {
			continue
		}
		sym := d.Symbols.Get(ref)
		sym.Value = v
		sym.Resolved = true
		sym.ValueStaticallyKnown = true
	}
	return d
}

// Run executes spec.md §4.4's full contract over program: a declaration
// pre-pass, then up to MaxIterations resolution passes, then one final
// is_last_iteration pass that turns any remaining instability into
// errors. It returns early (without running further passes) once the
// report has accumulated any error, per spec.md §5's cancellation rule.
func (d *Driver) Run(program *asmast.TopLevel) error {
	if _, err := d.declarePass(program.Nodes, scopeStack{}); err != nil {
		return err
	}
	if d.Report.HasErrors() {
		return nil
	}

	converged := false
	for it := 0; it < d.Options.MaxIterations; it++ {
		d.iteration = it
		d.isFirstIteration = it == 0
		d.isLastIteration = false
		d.anyChanged = false
		d.Symbols.beginPass()
		d.Banks.beginPass()

		d.walkNodes(program.Nodes, scopeStack{})

		if d.Report.HasErrors() {
			return nil
		}
		d.reportPass()
		if !d.anyChanged && allInstructionsResolved(program.Nodes) {
			converged = true
			break
		}
	}

	if !converged {
		d.Report.Error(diagn.Span{}, "assembly did not converge within %d iterations", d.Options.MaxIterations)
	}

	// The mandatory final pass: nothing is allowed to change.
	d.isFirstIteration = false
	d.isLastIteration = true
	d.anyChanged = false
	d.Symbols.beginPass()
	d.Banks.beginPass()
	d.walkNodes(program.Nodes, scopeStack{})
	d.reportPass()

	return nil
}

// reportPass builds a PassStats snapshot and delivers it to OnPass, if a
// watcher has registered one.
func (d *Driver) reportPass() {
	if d.OnPass == nil {
		return
	}
	stats := PassStats{
		Iteration:        d.iteration,
		IsFirstIteration: d.isFirstIteration,
		IsLastIteration:  d.isLastIteration,
		AnyChanged:       d.anyChanged,
	}
	for _, sym := range d.Symbols.symbols {
		stats.TotalSymbols++
		if sym.Resolved {
			stats.ResolvedSymbols++
		}
	}
	for _, b := range d.Banks.Banks {
		stats.Banks = append(stats.Banks, BankStat{
			Name:            b.Def.Name,
			CurPosition:     b.CurPosition,
			HighestPosition: b.HighestPosition,
		})
	}
	d.OnPass(stats)
}

func allInstructionsResolved(nodes []asmast.Node) bool {
	for i := range nodes {
		n := &nodes[i]
		switch n.Kind {
		case asmast.NodeInstruction:
			if n.ChosenMatch == nil || n.ChosenMatch.Encoding.Kind != matcher.EncodingResolved {
				return false
			}
		case asmast.NodeIf:
			if !allInstructionsResolved(n.Then) || !allInstructionsResolved(n.Else) {
				return false
			}
		case asmast.NodeNoEmit:
			if !allInstructionsResolved(n.Inner) {
				return false
			}
		}
	}
	return true
}

func (d *Driver) ctxView(scope asmast.ItemRef) ResolverContext {
	b := d.Banks.Get(d.Banks.Active)
	return ResolverContext{
		BankRef:          d.Banks.Active,
		Position:         b.CurPosition,
		SymbolContext:    scope,
		IsFirstIteration: d.isFirstIteration,
		IsLastIteration:  d.isLastIteration,
	}
}

// ResolverContext is the read-only per-node view described in
// spec.md §3. Only the driver mutates the state it derives from.
type ResolverContext struct {
	BankRef          asmast.ItemRef
	Position         int
	SymbolContext    asmast.ItemRef
	IsFirstIteration bool
	IsLastIteration  bool
}

func (d *Driver) errorf(span diagn.Span, format string, args ...any) {
	d.Report.Error(span, format, args...)
}
