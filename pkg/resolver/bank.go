package resolver

import (
	"fmt"

	"github.com/hlorenzi/customasm-go/pkg/asmast"
)

// Bankdef is the static declaration behind a Bank, per spec.md §3's
// "Bank" data model entry.
type Bankdef struct {
	Name         string
	AddrUnit     int  // bits per address step
	AddrStart    int  // address-unit-scaled starting address
	Size         *int // output bits; nil = unbounded
	OutputOffset *int // absolute bit position in the global BitVec; nil = non-writable
	Fill         bool
}

// Bank is the live, per-pass state of one bankdef: its position counter
// and the high-water mark used to size the final output.
type Bank struct {
	Ref             asmast.ItemRef
	Def             *Bankdef
	CurPosition     int
	HighestPosition int
}

// BankSet owns every declared bank plus the implicit default bank (ref
// 0), and tracks which bank is active during AST iteration.
type BankSet struct {
	Banks  []*Bank
	ByName map[string]asmast.ItemRef
	Active asmast.ItemRef
}

// NewBankSet returns a BankSet seeded with the default bank, per
// spec.md §3: "the default bank (ref 0) is used only when no custom
// banks are defined." defaultAddrUnit is usually 8 (byte-addressed),
// taken from the `#bits` directive in scope.
func NewBankSet(defaultAddrUnit int) *BankSet {
	offset := 0
	bs := &BankSet{ByName: map[string]asmast.ItemRef{}}
	bs.Banks = append(bs.Banks, &Bank{
		Ref: 0,
		Def: &Bankdef{Name: "", AddrUnit: defaultAddrUnit, OutputOffset: &offset},
	})
	bs.ByName[""] = 0
	bs.Active = 0
	return bs
}

// Declare registers a new bankdef and its live Bank, returning its ref.
// Called once while building the bank set (not re-run each resolver
// pass — bankdefs are declared, not resolved, the same way ruledefs
// are immutable per spec.md §3's Lifecycle rule).
func (bs *BankSet) Declare(def *Bankdef) (asmast.ItemRef, error) {
	if _, exists := bs.ByName[def.Name]; exists {
		return asmast.NoRef, fmt.Errorf("bank `%s` already declared", def.Name)
	}
	if def.OutputOffset != nil {
		if err := bs.checkOverlap(def); err != nil {
			return asmast.NoRef, err
		}
	}
	ref := asmast.ItemRef(len(bs.Banks))
	bs.Banks = append(bs.Banks, &Bank{Ref: ref, Def: def})
	bs.ByName[def.Name] = ref
	return ref, nil
}

// checkOverlap enforces spec.md §4.5: "verify no two banks'
// output_offset + size windows overlap", checked as each writable bank
// is declared (spec.md §7 surfaces this as "error at second bank decl").
func (bs *BankSet) checkOverlap(def *Bankdef) error {
	start := *def.OutputOffset
	end := start + boundedSize(def)
	for _, b := range bs.Banks {
		// the default bank is not compared: it is only used when no
		// custom banks are defined
		if b.Ref == 0 || b.Def.OutputOffset == nil {
			continue
		}
		oStart := *b.Def.OutputOffset
		oEnd := oStart + boundedSize(b.Def)
		if start < oEnd && oStart < end {
			return fmt.Errorf("output of bank `%s` overlaps with bank `%s`", def.Name, b.Def.Name)
		}
	}
	return nil
}

// boundedSize returns a bankdef's declared size, or a very large
// sentinel when unbounded — sufficient for a half-open interval overlap
// test without needing an actual infinite-size representation.
func boundedSize(d *Bankdef) int {
	if d.Size != nil {
		return *d.Size
	}
	return 1 << 40
}

func (bs *BankSet) Get(ref asmast.ItemRef) *Bank {
	if ref < 0 || int(ref) >= len(bs.Banks) {
		return nil
	}
	return bs.Banks[ref]
}

func (bs *BankSet) ByNameRef(name string) (asmast.ItemRef, bool) {
	ref, ok := bs.ByName[name]
	return ref, ok
}

// beginPass resets every bank's position counter to zero, per spec.md
// §5: "each pass starts from cur_position = 0 for every bank."
func (bs *BankSet) beginPass() {
	for _, b := range bs.Banks {
		b.CurPosition = 0
	}
	bs.Active = 0
}

// advance moves the active bank's position forward by n bits and
// updates its high-water mark.
func (bs *BankSet) advance(n int) {
	b := bs.Get(bs.Active)
	b.CurPosition += n
	if b.CurPosition > b.HighestPosition {
		b.HighestPosition = b.CurPosition
	}
}

// address returns the active bank's current address, per spec.md
// §4.4's label-symbol rule: addr_start + cur_position / addr_unit.
func (bs *BankSet) address() int {
	b := bs.Get(bs.Active)
	return b.Def.AddrStart + b.CurPosition/b.Def.AddrUnit
}

// bitsUntilAlignment implements spec.md §4.4's #align rule: 0 if
// pos % align == 0, else align - pos % align.
func bitsUntilAlignment(pos, align int) int {
	if align <= 0 {
		return 0
	}
	r := pos % align
	if r == 0 {
		return 0
	}
	return align - r
}
