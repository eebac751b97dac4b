package resolver

import "github.com/hlorenzi/customasm-go/pkg/asmast"

// scopeStack tracks, during a single sequential walk of a node list,
// which declared symbol is "active" at each depth — stack[i] is the
// most recently declared symbol at depth i. A label ".loop" (depth 1)
// following "main:" (depth 0) nests under whatever sits at stack[0].
// This is immutable-by-convention: every mutating method returns a new
// stack so that branching constructs (#if's two arms) can each extend
// their own copy without corrupting the other's view.
type scopeStack struct {
	refs []asmast.ItemRef
}

// current is the innermost active symbol — the scope new expressions
// and declarations resolve relative names against.
func (s scopeStack) current() asmast.ItemRef {
	if len(s.refs) == 0 {
		return asmast.NoRef
	}
	return s.refs[len(s.refs)-1]
}

// parentFor returns the symbol that should be the declaration-time
// parent of a new symbol declared at depth.
func (s scopeStack) parentFor(depth int) asmast.ItemRef {
	if depth <= 0 || depth-1 >= len(s.refs) {
		return asmast.NoRef
	}
	return s.refs[depth-1]
}

// declared returns a new stack recording ref as active at depth,
// discarding any deeper entries from a previous sibling subtree.
func (s scopeStack) declared(depth int, ref asmast.ItemRef) scopeStack {
	base := s.refs
	if depth < len(base) {
		base = base[:depth]
	}
	out := make([]asmast.ItemRef, len(base), len(base)+1)
	copy(out, base)
	out = append(out, ref)
	return scopeStack{refs: out}
}
