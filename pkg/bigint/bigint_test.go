package bigint

import "testing"

func TestSliceWidth(t *testing.T) {
	x := FromInt64(0xABCD).WithSize(16)
	hi, lo := 12, 4
	s, err := Slice(x, hi, lo)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.SizeOrMinSize(); got != hi-lo {
		t.Errorf("slice width = %d, want %d", got, hi-lo)
	}
	if s.Big().Int64() != 0xBC {
		t.Errorf("slice value = %x, want 0xBC", s.Big().Int64())
	}
}

func TestConcatRoundTrip(t *testing.T) {
	a := FromInt64(0x12).WithSize(8)
	b := FromInt64(0x34).WithSize(8)
	c, err := Concat(a, 8, 0, b, 8, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := *c.Size; got != 16 {
		t.Errorf("concat width = %d, want 16", got)
	}
	if c.Big().Int64() != 0x1234 {
		t.Errorf("concat value = %x, want 0x1234", c.Big().Int64())
	}

	hiHalf, _ := Slice(c, 16, 8)
	loHalf, _ := Slice(c, 8, 0)
	if hiHalf.Big().Int64() != 0x12 {
		t.Errorf("hi half = %x, want 0x12", hiHalf.Big().Int64())
	}
	if loHalf.Big().Int64() != 0x34 {
		t.Errorf("lo half = %x, want 0x34", loHalf.Big().Int64())
	}
}

func TestConvertLERoundTrip(t *testing.T) {
	x := FromInt64(0x1234).WithSize(16)
	once, err := ConvertLE(x)
	if err != nil {
		t.Fatal(err)
	}
	if once.Big().Int64() != 0x3412 {
		t.Errorf("le(x) = %x, want 0x3412", once.Big().Int64())
	}
	twice, err := ConvertLE(once)
	if err != nil {
		t.Fatal(err)
	}
	if !twice.Eq(x) {
		t.Errorf("le(le(x)) = %x, want %x", twice.Big(), x.Big())
	}
}

func TestConvertLERequiresByteMultiple(t *testing.T) {
	x := FromInt64(0x1).WithSize(5)
	if _, err := ConvertLE(x); err == nil {
		t.Fatal("expected error for non-byte-multiple width")
	}
}

func TestGetBitSignExtends(t *testing.T) {
	neg := FromInt64(-1)
	for i := 0; i < 64; i++ {
		if !neg.GetBit(i) {
			t.Fatalf("bit %d of -1 should be set", i)
		}
	}
}

func TestMinSize(t *testing.T) {
	cases := []struct {
		v    int64
		want int
	}{
		{0, 0},
		{1, 2},
		{-1, 1},
		{127, 8},
		{-128, 8},
		{128, 9},
	}
	for _, c := range cases {
		got := FromInt64(c.v).MinSize()
		if got != c.want {
			t.Errorf("MinSize(%d) = %d, want %d", c.v, got, c.want)
		}
	}
}

func TestDivModByZero(t *testing.T) {
	a := FromInt64(10)
	z := FromInt64(0)
	if _, err := Div(a, z); err == nil {
		t.Fatal("expected division by zero error")
	}
	if _, err := Mod(a, z); err == nil {
		t.Fatal("expected modulo by zero error")
	}
}
