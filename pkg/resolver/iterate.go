package resolver

import (
	"github.com/hlorenzi/customasm-go/pkg/asmast"
	"github.com/hlorenzi/customasm-go/pkg/bigint"
	"github.com/hlorenzi/customasm-go/pkg/expr"
	"github.com/hlorenzi/customasm-go/pkg/matcher"
)

// walkNodes is the per-pass iterator spec.md §4.4 and §9 describe: it
// traverses nodes in source order, threading the active scope and
// maintaining cur_position *after* each emitting node, so a label sees
// the position before its own instruction.
func (d *Driver) walkNodes(nodes []asmast.Node, cur scopeStack) scopeStack {
	return d.walkNodesSuppressed(nodes, cur, false)
}

func (d *Driver) walkNodesSuppressed(nodes []asmast.Node, cur scopeStack, suppressed bool) scopeStack {
	for i := range nodes {
		n := &nodes[i]
		if d.Report.HasErrors() {
			return cur
		}
		switch n.Kind {
		case asmast.NodeSymbol:
			cur = d.resolveSymbol(n, cur)

		case asmast.NodeInstruction:
			d.resolveInstruction(n, cur.current(), suppressed)

		case asmast.NodeData:
			d.resolveData(n, cur.current(), suppressed)

		case asmast.NodeRes:
			d.resolveRes(n, cur.current())

		case asmast.NodeAlign:
			d.resolveAlign(n, cur.current())

		case asmast.NodeAddr:
			d.resolveAddr(n, cur.current())

		case asmast.NodeBank:
			d.resolveBank(n)

		case asmast.NodeBankdef:
			if n.BankdefRef != asmast.NoRef {
				d.Banks.Active = n.BankdefRef
			}

		case asmast.NodeIf:
			cur = d.resolveIf(n, cur, suppressed)

		case asmast.NodeNoEmit:
			cur = d.walkNodesSuppressed(n.Inner, cur, true)
		}
	}
	return cur
}

func (d *Driver) resolveSymbol(n *asmast.Node, cur scopeStack) scopeStack {
	sym := d.Symbols.Get(n.SymbolRef)
	if sym == nil {
		return cur
	}
	switch n.SymKind {
	case asmast.SymbolLabel:
		d.resolveLabel(n, sym, cur.current())
	case asmast.SymbolConstant:
		d.resolveConstant(n, sym, cur.current())
	default:
		sym.Resolved = true
		sym.ValueStaticallyKnown = true
	}
	return cur.declared(n.Depth, n.SymbolRef)
}

// resolveLabel implements spec.md §4.4's label rule: value = current
// address of the current bank.
func (d *Driver) resolveLabel(n *asmast.Node, sym *Symbol, scope asmast.ItemRef) {
	b := d.Banks.Get(d.Banks.Active)
	if d.isLastIteration && b.Def.AddrUnit > 0 && b.CurPosition%b.Def.AddrUnit != 0 {
		d.errorf(n.Span, "position not aligned to an address")
	}
	addr := d.Banks.address()
	newVal := expr.VInt(bigint.FromInt64(int64(addr)))
	if !valuesEqual(sym.Value, newVal) {
		d.anyChanged = true
		if d.isLastIteration {
			d.errorf(n.Span, "label `%s` did not converge", sym.Name)
		}
	}
	sym.Value = newVal
	sym.Resolved = true
	sym.ValueStaticallyKnown = false
	sym.BankdefRef = d.Banks.Active
}

// resolveConstant implements spec.md §4.4's constant-symbol rule.
func (d *Driver) resolveConstant(n *asmast.Node, sym *Symbol, scope asmast.ItemRef) {
	if d.Options.OptimizeStaticallyKnown && sym.Resolved && !d.isFirstIteration && sym.ValueStaticallyKnown {
		// Static-optimization short-circuit: once resolved as statically
		// known on the first pass, never re-evaluated, per spec.md §4.4.
		return
	}
	p := &exprProvider{d: d, scope: scope}
	ctx := expr.NewEvalContext()
	v, err := expr.Eval(n.Init, ctx, p)
	if err != nil {
		d.errorf(n.Span, "%s", err.Error())
		return
	}
	if v.Kind == expr.KindFailedConstraint {
		d.errorf(n.Span, "%s", v.Msg)
		return
	}
	if v.Kind == expr.KindUnknown {
		sym.Resolved = false
		d.anyChanged = true
		return
	}
	changed := !sym.Resolved || !valuesEqual(sym.Value, v)
	if changed {
		d.anyChanged = true
		if d.isLastIteration {
			d.errorf(n.Span, "constant value did not converge")
		}
	}
	sym.Value = v
	sym.Resolved = true
	if d.isFirstIteration {
		sym.ValueStaticallyKnown = expr.IsStaticallyKnown(n.Init, p)
	}
}

func (d *Driver) resolveInstruction(n *asmast.Node, scope asmast.ItemRef, suppressed bool) {
	n.Suppressed = suppressed
	if len(n.Candidates) == 0 && len(n.InstrTokens) > 0 {
		matches, err := matcher.MatchInstruction(d.Ruledefs, n.InstrTokens)
		if err != nil {
			d.errorf(n.Span, "%s", err.Error())
			return
		}
		n.Candidates = matches
	}
	if len(n.Candidates) == 0 {
		d.errorf(n.Span, "instruction does not match any ruledef rule")
		return
	}

	var priorKind matcher.EncodingKind
	var priorValue bigint.BigInt
	var priorSize int
	if n.ChosenMatch != nil {
		priorKind = n.ChosenMatch.Encoding.Kind
		priorValue = n.ChosenMatch.Encoding.Value
		if n.ChosenMatch.EncodingSize != nil {
			priorSize = *n.ChosenMatch.EncodingSize
		}
	}

	for _, m := range n.Candidates {
		d.resolveMatch(m, scope)
	}
	best, tied := pickBest(n.Candidates)

	if len(tied) > 1 && d.isLastIteration {
		d.errorf(n.Span, "multiple matches with the same encoding size")
	}

	prevResolved := priorKind == matcher.EncodingResolved
	newResolved := best != nil
	changed := prevResolved != newResolved
	if prevResolved && newResolved {
		changed = priorValue.Cmp(best.Encoding.Value) != 0 || priorSize != *best.EncodingSize
	}
	if changed {
		d.anyChanged = true
		if d.isLastIteration {
			d.errorf(n.Span, "instruction encoding did not converge")
		}
	}

	size := 0
	if best != nil {
		size = *best.EncodingSize
	} else if prevResolved {
		size = priorSize
	}
	if best == nil && d.isLastIteration {
		if msg, ok := firstFailure(n.Candidates); ok {
			d.errorf(n.Span, "%s", msg)
		} else {
			d.errorf(n.Span, "instruction encoding did not resolve")
		}
	}

	n.ChosenMatch = best
	d.Banks.advance(size)
}

func (d *Driver) resolveData(n *asmast.Node, scope asmast.ItemRef, suppressed bool) {
	n.Suppressed = suppressed
	p := &exprProvider{d: d, scope: scope}
	total := 0
	if len(n.ElemResolved) != len(n.Elems) {
		n.ElemResolved = make([]bigint.BigInt, len(n.Elems))
		n.ElemSizes = make([]int, len(n.Elems))
	}
	for i := range n.Elems {
		elem := &n.Elems[i]
		ctx := expr.NewEvalContext()
		v, err := expr.Eval(elem, ctx, p)
		if err != nil {
			d.errorf(n.Span, "%s", err.Error())
			continue
		}
		if v.Kind == expr.KindFailedConstraint {
			d.errorf(n.Span, "%s", v.Msg)
			continue
		}
		if v.Kind == expr.KindUnknown {
			d.anyChanged = true
			continue
		}
		if v.Kind != expr.KindInteger {
			d.errorf(n.Span, "data element must be an integer")
			continue
		}
		width := v.Int.SizeOrMinSize()
		if n.ElemWidth != nil {
			width = *n.ElemWidth
			needed := v.Int.SizeOrMinSize()
			if v.Int.Size == nil && v.Int.Sign() > 0 {
				// an unsized non-negative value also fits as unsigned
				needed = v.Int.Big().BitLen()
			}
			if needed > width && (d.isLastIteration || expr.IsStaticallyKnown(elem, p)) {
				d.errorf(n.Span, "data element does not fit in %d bits", width)
			}
		} else if !d.isLastIteration && !expr.IsStaticallyKnown(elem, p) {
			// size genuinely unknown until declarations settle; don't
			// commit to a width yet.
			d.anyChanged = true
			continue
		} else if size, ok := expr.StaticSize(elem, p); ok {
			width = size
		} else if d.isLastIteration {
			d.errorf(n.Span, "data element has no definite size")
		}
		n.ElemResolved[i] = v.Int.WithSize(width)
		n.ElemSizes[i] = width
		total += width
	}
	d.Banks.advance(total)
}

func (d *Driver) resolveRes(n *asmast.Node, scope asmast.ItemRef) {
	p := &exprProvider{d: d, scope: scope}
	ctx := expr.NewEvalContext()
	v, err := expr.Eval(n.ReserveSize, ctx, p)
	if err != nil {
		d.errorf(n.Span, "%s", err.Error())
		return
	}
	if v.Kind != expr.KindInteger {
		if d.isLastIteration {
			d.errorf(n.Span, "#res count must be a statically-known integer")
		}
		return
	}
	size := int(v.Int.Big().Int64())
	n.ReserveSizeResolved = size
	d.Banks.advance(size)
}

func (d *Driver) resolveAlign(n *asmast.Node, scope asmast.ItemRef) {
	p := &exprProvider{d: d, scope: scope}
	ctx := expr.NewEvalContext()
	v, err := expr.Eval(n.AlignSize, ctx, p)
	if err != nil {
		d.errorf(n.Span, "%s", err.Error())
		return
	}
	if v.Kind != expr.KindInteger {
		if d.isLastIteration {
			d.errorf(n.Span, "#align value must be a statically-known integer")
		}
		return
	}
	align := int(v.Int.Big().Int64())
	b := d.Banks.Get(d.Banks.Active)
	delta := bitsUntilAlignment(b.CurPosition, align)
	n.AlignDeltaResolved = delta
	d.Banks.advance(delta)
}

func (d *Driver) resolveAddr(n *asmast.Node, scope asmast.ItemRef) {
	p := &exprProvider{d: d, scope: scope}
	ctx := expr.NewEvalContext()
	v, err := expr.Eval(n.AddrValue, ctx, p)
	if err != nil {
		d.errorf(n.Span, "%s", err.Error())
		return
	}
	if v.Kind != expr.KindInteger {
		if d.isLastIteration {
			d.errorf(n.Span, "#addr value must be a statically-known integer")
		}
		return
	}
	b := d.Banks.Get(d.Banks.Active)
	addr := int(v.Int.Big().Int64())
	b.CurPosition = (addr - b.Def.AddrStart) * b.Def.AddrUnit
	n.AddrValueResolved = b.CurPosition
	if b.CurPosition > b.HighestPosition {
		b.HighestPosition = b.CurPosition
	}
}

func (d *Driver) resolveBank(n *asmast.Node) {
	ref, ok := d.Banks.ByNameRef(n.BankName)
	if !ok {
		d.errorf(n.Span, "unknown bank `%s`", n.BankName)
		return
	}
	d.Banks.Active = ref
}

func (d *Driver) resolveIf(n *asmast.Node, cur scopeStack, suppressed bool) scopeStack {
	p := &exprProvider{d: d, scope: cur.current()}
	ctx := expr.NewEvalContext()
	v, err := expr.Eval(n.Cond, ctx, p)
	if err != nil {
		d.errorf(n.Span, "%s", err.Error())
		return cur
	}
	if v.Kind == expr.KindFailedConstraint {
		d.errorf(n.Span, "%s", v.Msg)
		return cur
	}
	if v.Kind == expr.KindUnknown {
		d.anyChanged = true
		if d.isLastIteration {
			d.errorf(n.Span, "#if condition is not statically known")
		}
		return cur
	}
	if v.Kind != expr.KindBool {
		d.errorf(n.Span, "#if condition must be a bool")
		return cur
	}
	taken := v.Bool
	n.CondResolved = &taken
	if taken {
		return d.walkNodesSuppressed(n.Then, cur, suppressed)
	}
	return d.walkNodesSuppressed(n.Else, cur, suppressed)
}
