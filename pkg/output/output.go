// Package output implements the output builder described in spec.md
// §4.5 (component C5): one final walk over a resolved AST that writes
// bits into a BitVec, checking bank and output overlap along the way.
package output

import (
	"fmt"

	"github.com/hlorenzi/customasm-go/pkg/asmast"
	"github.com/hlorenzi/customasm-go/pkg/bigint"
	"github.com/hlorenzi/customasm-go/pkg/bitvec"
	"github.com/hlorenzi/customasm-go/pkg/diagn"
	"github.com/hlorenzi/customasm-go/pkg/matcher"
	"github.com/hlorenzi/customasm-go/pkg/resolver"
)

// Builder drives the one final, writing-only pass over a resolved
// program. It assumes Driver.Run already converged with no errors.
type Builder struct {
	driver  *resolver.Driver
	vec     *bitvec.BitVec
	report  *diagn.Report
	written map[int]diagn.Span
}

// NewBuilder returns a Builder for a driver that has already run to
// convergence (resolver.Driver.Run returned with no report errors).
func NewBuilder(d *resolver.Driver) *Builder {
	return &Builder{
		driver:  d,
		vec:     bitvec.New(),
		report:  d.Report,
		written: map[int]diagn.Span{},
	}
}

// Build walks program once, writing every resolved instruction/data
// element into the BitVec and returns it. Callers should check
// b.Report().HasErrors() afterward.
func (b *Builder) Build(program *asmast.TopLevel) *bitvec.BitVec {
	if err := b.checkBankOverlaps(); err != nil {
		b.report.Error(diagn.Span{}, "%s", err.Error())
		return b.vec
	}

	for _, bank := range b.driver.Banks.Banks {
		bank.CurPosition = 0
	}
	b.driver.Banks.Active = 0

	b.walk(program.Nodes)

	b.applyFill()

	return b.vec
}

// Report returns the diagnostic report accumulated during Build.
func (b *Builder) Report() *diagn.Report { return b.report }

// Vec returns the BitVec being built (valid to call before Build too,
// though it will be empty).
func (b *Builder) Vec() *bitvec.BitVec { return b.vec }

// checkBankOverlaps implements spec.md §4.5: "Before emission, verify no
// two banks' output_offset + size windows overlap." (Declaration-time
// already checks this incrementally; this is the contractual
// before-emission re-check spec.md calls out explicitly.)
func (b *Builder) checkBankOverlaps() error {
	banks := b.driver.Banks.Banks
	// banks[0] is the default bank, used only when no custom banks exist
	for i := 1; i < len(banks); i++ {
		a := banks[i].Def
		if a.OutputOffset == nil {
			continue
		}
		aStart := *a.OutputOffset
		aEnd := aStart + boundedSize(a)
		for j := i + 1; j < len(banks); j++ {
			c := banks[j].Def
			if c.OutputOffset == nil {
				continue
			}
			cStart := *c.OutputOffset
			cEnd := cStart + boundedSize(c)
			if aStart < cEnd && cStart < aEnd {
				return fmt.Errorf("output of bank `%s` overlaps with bank `%s`", c.Name, a.Name)
			}
		}
	}
	return nil
}

func boundedSize(d *resolver.Bankdef) int {
	if d.Size != nil {
		return *d.Size
	}
	return 1 << 40
}

func (b *Builder) walk(nodes []asmast.Node) {
	for i := range nodes {
		n := &nodes[i]
		if b.report.HasErrors() {
			return
		}
		switch n.Kind {
		case asmast.NodeSymbol:
			b.emitSymbol(n)
		case asmast.NodeInstruction:
			b.emitInstruction(n)
		case asmast.NodeData:
			b.emitData(n)
		case asmast.NodeRes:
			b.emitRes(n)
		case asmast.NodeAlign:
			b.emitAlign(n)
		case asmast.NodeAddr:
			b.emitAddr(n)
		case asmast.NodeBank:
			b.emitBank(n)
		case asmast.NodeBankdef:
			if n.BankdefRef != asmast.NoRef {
				b.driver.Banks.Active = n.BankdefRef
			}
		case asmast.NodeIf:
			b.emitIf(n)
		case asmast.NodeNoEmit:
			b.walk(n.Inner)
		}
	}
}

func (b *Builder) activeBank() *resolver.Bank {
	return b.driver.Banks.Get(b.driver.Banks.Active)
}

// outputPos returns the absolute BitVec position for the active bank's
// current cur_position, or (0, false) if the bank is non-writable.
func (b *Builder) outputPos() (int, bool) {
	bank := b.activeBank()
	if bank.Def.OutputOffset == nil {
		return 0, false
	}
	return *bank.Def.OutputOffset + bank.CurPosition, true
}

// checkOverflow implements spec.md §4.5's bank-size overflow check.
func (b *Builder) checkOverflow(n *asmast.Node, size int) bool {
	bank := b.activeBank()
	if bank.Def.Size != nil && bank.CurPosition+size > *bank.Def.Size {
		b.report.Error(n.Span, "output out of range for bank `%s`", bank.Def.Name)
		return false
	}
	return true
}

// checkWriteOverlap implements spec.md §4.5's overlap checker: refuse to
// write into a bit already written by a different node in this run.
func (b *Builder) checkWriteOverlap(n *asmast.Node, pos, size int) bool {
	for i := 0; i < size; i++ {
		if prior, ok := b.written[pos+i]; ok {
			b.report.Error(n.Span, "output overlaps with a previous write at %s", prior)
			return false
		}
	}
	for i := 0; i < size; i++ {
		b.written[pos+i] = n.Span
	}
	return true
}

func (b *Builder) emitSymbol(n *asmast.Node) {
	if n.SymKind != asmast.SymbolLabel {
		return
	}
	sym := b.driver.Symbols.Get(n.SymbolRef)
	if sym == nil || !sym.Resolved {
		return
	}
	var pos *int
	if p, ok := b.outputPos(); ok {
		pos = &p
	}
	b.vec.MarkSpan(pos, sym.Value.Int, n.Span)
}

func (b *Builder) emitInstruction(n *asmast.Node) {
	m := n.ChosenMatch
	if m == nil || m.Encoding.Kind != matcher.EncodingResolved {
		return
	}
	size := 0
	if m.EncodingSize != nil {
		size = *m.EncodingSize
	}
	b.writeSized(n, m.Encoding.Value, size)
}

func (b *Builder) emitData(n *asmast.Node) {
	for i, v := range n.ElemResolved {
		size := 0
		if i < len(n.ElemSizes) {
			size = n.ElemSizes[i]
		}
		b.writeSized(n, v, size)
	}
}

// writeSized writes value (size bits) at the active bank's current
// position, advancing it afterward, honoring Suppressed (#noemit)
// nodes by still advancing position without writing bits.
func (b *Builder) writeSized(n *asmast.Node, value bigint.BigInt, size int) {
	if size == 0 {
		return
	}
	if !b.checkOverflow(n, size) {
		return
	}
	if !n.Suppressed {
		if pos, ok := b.outputPos(); ok {
			if b.checkWriteOverlap(n, pos, size) {
				b.vec.WriteBigIntWithSpan(n.Span, pos, bigint.FromInt64(int64(b.bankAddress())), value.WithSize(size))
			}
		} else if b.activeBank().Def.OutputOffset == nil {
			b.report.Error(n.Span, "cannot emit into non-writable bank `%s`", b.activeBank().Def.Name)
		}
	}
	b.advance(size)
}

func (b *Builder) advance(n int) {
	bank := b.activeBank()
	bank.CurPosition += n
	if bank.CurPosition > bank.HighestPosition {
		bank.HighestPosition = bank.CurPosition
	}
}

// bankAddress mirrors resolver.BankSet's unexported address() helper,
// recomputed here since output lives in a separate package.
func (b *Builder) bankAddress() int {
	bank := b.activeBank()
	return bank.Def.AddrStart + bank.CurPosition/bank.Def.AddrUnit
}

// emitRes zero-fills #res N's reserved bits (spec.md §8: "a single
// #res N yields an all-zero N-bit output"), using the bit count the
// resolver already settled on during its last pass.
func (b *Builder) emitRes(n *asmast.Node) {
	count := n.ReserveSizeResolved
	if pos, ok := b.outputPos(); ok {
		for i := 0; i < count; i++ {
			b.vec.Write(pos+i, false)
		}
	}
	b.advance(count)
}

func (b *Builder) emitAlign(n *asmast.Node) {
	delta := n.AlignDeltaResolved
	if pos, ok := b.outputPos(); ok {
		for i := 0; i < delta; i++ {
			b.vec.Write(pos+i, false)
		}
	}
	b.advance(delta)
}

// emitAddr replays the position jump the resolver already computed,
// so later writes in this walk land at the right offset.
func (b *Builder) emitAddr(n *asmast.Node) {
	bank := b.activeBank()
	bank.CurPosition = n.AddrValueResolved
	if bank.CurPosition > bank.HighestPosition {
		bank.HighestPosition = bank.CurPosition
	}
}

func (b *Builder) emitBank(n *asmast.Node) {
	if ref, ok := b.driver.Banks.ByNameRef(n.BankName); ok {
		b.driver.Banks.Active = ref
	}
}

// emitIf replays whichever arm the resolver's last pass took.
func (b *Builder) emitIf(n *asmast.Node) {
	if n.CondResolved == nil {
		return
	}
	if *n.CondResolved {
		b.walk(n.Then)
	} else {
		b.walk(n.Else)
	}
}

// applyFill pre-pads banks marked fill = true to their declared (or
// else high-water-mark) size, per spec.md §4.5: "Fill: banks marked
// fill = true pre-pad the BitVec to their full size." Write grows the
// backing array with zeros, so writing back whatever bit is already
// there (false, past Len()) is enough to extend length without
// disturbing any bit the walk already wrote.
func (b *Builder) applyFill() {
	for _, bank := range b.driver.Banks.Banks {
		if !bank.Def.Fill || bank.Def.OutputOffset == nil {
			continue
		}
		size := bank.HighestPosition
		if bank.Def.Size != nil {
			size = *bank.Def.Size
		}
		end := *bank.Def.OutputOffset + size
		if end > b.vec.Len() {
			b.vec.Write(end-1, b.vec.Read(end-1))
		}
	}
}
