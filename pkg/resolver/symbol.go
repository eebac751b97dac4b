package resolver

import (
	"fmt"

	"github.com/hlorenzi/customasm-go/pkg/asmast"
	"github.com/hlorenzi/customasm-go/pkg/diagn"
	"github.com/hlorenzi/customasm-go/pkg/expr"
	"golang.org/x/exp/slices"
)

// Symbol is one declared name in the hierarchical symbol table, per
// spec.md §3: declaration fields (name, kind, span, depth, children) plus
// definition fields (value, resolved/statically-known flags) that the
// fixpoint driver mutates pass over pass.
type Symbol struct {
	Name     string
	Kind     asmast.SymbolKind
	Span     diagn.Span
	Depth    int
	Parent   asmast.ItemRef
	Children map[string]asmast.ItemRef

	Value                expr.Value
	Resolved             bool
	ValueStaticallyKnown bool
	BankdefRef           asmast.ItemRef
	NoEmit               bool

	prevValue expr.Value
	hasPrev   bool
}

// SymbolTable is a tree of symbols addressed by stable ItemRef handles,
// per the "Symbol table" design note in spec.md §9: avoid sharing
// references across passes so the table can be mutated freely.
type SymbolTable struct {
	symbols []*Symbol
	globals map[string]asmast.ItemRef
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{globals: map[string]asmast.ItemRef{}}
}

// Declare registers a new symbol under parent (asmast.NoRef for a
// top-level, depth-0 declaration). Depth must not exceed one more than
// the parent's own depth, per spec.md §3's declaration-context invariant.
func (t *SymbolTable) Declare(parent asmast.ItemRef, name string, kind asmast.SymbolKind, span diagn.Span, depth int) (asmast.ItemRef, error) {
	if parent != asmast.NoRef {
		p := t.Get(parent)
		if p == nil {
			return asmast.NoRef, fmt.Errorf("declaring `%s`: parent symbol reference is invalid", name)
		}
		if depth > p.Depth+1 {
			return asmast.NoRef, fmt.Errorf("symbol `%s` declared at depth %d, but its context only has %d ancestor(s)", name, depth, p.Depth)
		}
	}
	ref := asmast.ItemRef(len(t.symbols))
	s := &Symbol{
		Name:     name,
		Kind:     kind,
		Span:     span,
		Depth:    depth,
		Parent:   parent,
		Children: map[string]asmast.ItemRef{},
	}
	t.symbols = append(t.symbols, s)
	if parent == asmast.NoRef {
		t.globals[name] = ref
	} else {
		t.Get(parent).Children[name] = ref
	}
	return ref, nil
}

// Get returns the symbol for ref, or nil for asmast.NoRef / an out-of-range ref.
func (t *SymbolTable) Get(ref asmast.ItemRef) *Symbol {
	if ref < 0 || int(ref) >= len(t.symbols) {
		return nil
	}
	return t.symbols[ref]
}

// ChildNames returns a symbol's children's names in deterministic,
// alphabetical order — the default/Mesen-MLB symbol file writers need
// stable ordering independent of map iteration.
func (t *SymbolTable) ChildNames(scope asmast.ItemRef) []string {
	var children map[string]asmast.ItemRef
	if scope == asmast.NoRef {
		children = t.globals
	} else {
		children = t.Get(scope).Children
	}
	names := make([]string, 0, len(children))
	for name := range children {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ResolveLocalChild is childNamed exported for callers outside this
// package (the symbol-file writers), which need to walk exactly one
// scope's direct children rather than the full ancestor-falling-back
// search Resolve performs.
func (t *SymbolTable) ResolveLocalChild(scope asmast.ItemRef, name string) (asmast.ItemRef, bool) {
	return t.childNamed(scope, name)
}

func (t *SymbolTable) childNamed(scope asmast.ItemRef, name string) (asmast.ItemRef, bool) {
	if scope == asmast.NoRef {
		ref, ok := t.globals[name]
		return ref, ok
	}
	ref, ok := t.Get(scope).Children[name]
	return ref, ok
}

// Resolve looks up a dotted path relative to scope: first ascends
// hierarchyLevel parents (the count of leading dots in the source
// reference), then descends path one segment at a time. A segment not
// found in the current scope falls back to ancestor scopes and finally
// the global context, per the "single immutable global context" design
// note in spec.md §9.
func (t *SymbolTable) Resolve(scope asmast.ItemRef, hierarchyLevel int, path []string) (asmast.ItemRef, bool) {
	cur := scope
	for i := 0; i < hierarchyLevel; i++ {
		if cur == asmast.NoRef {
			return asmast.NoRef, false
		}
		cur = t.Get(cur).Parent
	}
	for _, seg := range path {
		probe := cur
		found := false
		for {
			if ref, ok := t.childNamed(probe, seg); ok {
				cur = ref
				found = true
				break
			}
			if probe == asmast.NoRef {
				break
			}
			probe = t.Get(probe).Parent
		}
		if !found {
			return asmast.NoRef, false
		}
	}
	return cur, true
}

// beginPass snapshots each symbol's current value as its "previous
// iteration" value, read back by changedSincePass.
func (t *SymbolTable) beginPass() {
	for _, s := range t.symbols {
		s.prevValue = s.Value
		s.hasPrev = true
	}
}

// changedSincePass reports whether ref's value differs from the value
// recorded by the most recent beginPass call.
func (t *SymbolTable) changedSincePass(ref asmast.ItemRef) bool {
	s := t.Get(ref)
	if s == nil || !s.hasPrev {
		return true
	}
	return !valuesEqual(s.prevValue, s.Value)
}

func valuesEqual(a, b expr.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case expr.KindInteger:
		return a.Int.Cmp(b.Int) == 0
	case expr.KindBool:
		return a.Bool == b.Bool
	case expr.KindString:
		return a.Str == b.Str && a.StrEncoding == b.StrEncoding
	case expr.KindFailedConstraint:
		return a.Msg == b.Msg
	case expr.KindVoid, expr.KindUnknown:
		return true
	default:
		return false
	}
}
