// Package bitvec implements the addressable, grow-on-write bit-vector
// described in spec.md §3/§4.1 (component C1, bit-vector half): an
// array of bits indexed by absolute bit position, with span annotations
// used by the annotated-hex/addrspan dumps (§6).
package bitvec

import (
	"github.com/hlorenzi/customasm-go/pkg/bigint"
	"github.com/hlorenzi/customasm-go/pkg/diagn"
)

// Span records where a run of written bits came from: its output
// position, size, logical address, and source span. A zero-size entry
// (Size == 0) marks a label position rather than emitted data.
type Span struct {
	Offset *int // output bit position; nil for non-writable marks
	Size   int
	Addr   bigint.BigInt
	Source diagn.Span
}

// BitVec is a grow-on-write array of bits. Reading beyond the written
// length always returns false (spec.md §3 invariant).
type BitVec struct {
	bits  []bool
	spans []Span
}

// New returns an empty BitVec.
func New() *BitVec {
	return &BitVec{}
}

// Len returns the number of bits written so far (the highest written
// position + 1, or 0 if nothing was written).
func (bv *BitVec) Len() int {
	return len(bv.bits)
}

// Write sets bit index to value, growing the backing array with zeros
// as needed.
func (bv *BitVec) Write(index int, value bool) {
	if index >= len(bv.bits) {
		grown := make([]bool, index+1)
		copy(grown, bv.bits)
		bv.bits = grown
	}
	bv.bits[index] = value
}

// Read returns the bit at index, or false past the written length.
func (bv *BitVec) Read(index int) bool {
	if index < 0 || index >= len(bv.bits) {
		return false
	}
	return bv.bits[index]
}

// WriteBigIntWithSpan copies size := value.SizeOrMinSize() bits from
// value (MSB first) into positions [pos, pos+size), and records a span
// entry for later dump formatters. addr is the logical address
// (bank-relative) this write corresponds to.
func (bv *BitVec) WriteBigIntWithSpan(source diagn.Span, pos int, addr bigint.BigInt, value bigint.BigInt) {
	size := value.SizeOrMinSize()
	for i := 0; i < size; i++ {
		// value's bit (size-1-i) is the MSB-first i-th bit.
		bv.Write(pos+i, value.GetBit(size-1-i))
	}
	off := pos
	bv.spans = append(bv.spans, Span{Offset: &off, Size: size, Addr: addr, Source: source})
}

// MarkSpan records a zero-size span entry used for label positions:
// maybePos is the output position if the label's bank is writable (nil
// otherwise), addr is the label's resolved address value.
func (bv *BitVec) MarkSpan(maybePos *int, addr bigint.BigInt, source diagn.Span) {
	bv.spans = append(bv.spans, Span{Offset: maybePos, Size: 0, Addr: addr, Source: source})
}

// Spans returns the recorded span entries in write order.
func (bv *BitVec) Spans() []Span {
	return bv.spans
}

// Bytes packs the bit-vector into bytes, MSB-first within each byte,
// zero-padding the final byte if Len() isn't a multiple of 8.
func (bv *BitVec) Bytes() []byte {
	n := (len(bv.bits) + 7) / 8
	out := make([]byte, n)
	for i, b := range bv.bits {
		if b {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}

// BitAt is an alias for Read kept for clarity at call sites that treat
// the bitvec as a pure reader (formatters).
func (bv *BitVec) BitAt(index int) bool {
	return bv.Read(index)
}
