package bitvec

import (
	"testing"

	"github.com/hlorenzi/customasm-go/pkg/bigint"
	"github.com/hlorenzi/customasm-go/pkg/diagn"
)

func TestReadPastEndIsZero(t *testing.T) {
	bv := New()
	bv.Write(3, true)
	if bv.Read(100) {
		t.Fatal("read past end should be false")
	}
}

func TestWriteBigIntWithSpan(t *testing.T) {
	bv := New()
	val := bigint.FromInt64(0x12).WithSize(8)
	bv.WriteBigIntWithSpan(diagn.Span{}, 0, bigint.FromInt64(0), val)
	if bv.Bytes()[0] != 0x12 {
		t.Fatalf("byte = %x, want 0x12", bv.Bytes()[0])
	}
	spans := bv.Spans()
	if len(spans) != 1 || spans[0].Size != 8 {
		t.Fatalf("unexpected spans: %+v", spans)
	}
}

func TestEmptyBitVec(t *testing.T) {
	bv := New()
	if bv.Len() != 0 {
		t.Fatal("empty bitvec should have length 0")
	}
	if len(bv.Bytes()) != 0 {
		t.Fatal("empty bitvec should produce no bytes")
	}
}
