// Package bigint implements the bit-width-tagged arbitrary-precision
// signed integer described in spec.md §3/§4.1 (component C1, integer
// half). It wraps math/big.Int the way the original Rust core wraps
// num_bigint::BigInt — arithmetic is width-less, and a width is attached
// only by concatenation or explicit slicing.
package bigint

import (
	"fmt"
	"math/big"
)

// BigInt is a signed arbitrary-precision integer with an optional
// explicit bit-width. The width participates in concat/slice; plain
// arithmetic always returns a width-less (nil Size) result.
type BigInt struct {
	v    big.Int
	Size *int // nil means "no explicit width"
}

// FromInt64 builds an unsized BigInt from an int64.
func FromInt64(x int64) BigInt {
	var b BigInt
	b.v.SetInt64(x)
	return b
}

// FromUint64 builds an unsized BigInt from a uint64.
func FromUint64(x uint64) BigInt {
	var b BigInt
	b.v.SetUint64(x)
	return b
}

// FromBigInt wraps a math/big.Int, optionally tagging it with a width.
func FromBigInt(v *big.Int, size *int) BigInt {
	var b BigInt
	b.v.Set(v)
	b.Size = size
	return b
}

// sizeP is a convenience for building an *int.
func sizeP(n int) *int { return &n }

// WithSize returns a copy of b tagged with the given width.
func (b BigInt) WithSize(n int) BigInt {
	out := b
	out.Size = sizeP(n)
	return out
}

// Unsized returns a copy of b with no explicit width.
func (b BigInt) Unsized() BigInt {
	out := b
	out.Size = nil
	return out
}

// FromBytesBE interprets bytes as a big-endian two's-complement signed
// integer, sized to len(bytes)*8 bits.
func FromBytesBE(bytes []byte) BigInt {
	var b BigInt
	if len(bytes) == 0 {
		b.Size = sizeP(0)
		return b
	}
	negative := bytes[0]&0x80 != 0
	if !negative {
		b.v.SetBytes(bytes)
	} else {
		inv := make([]byte, len(bytes))
		for i, c := range bytes {
			inv[i] = ^c
		}
		var mag big.Int
		mag.SetBytes(inv)
		mag.Add(&mag, big.NewInt(1))
		b.v.Neg(&mag)
	}
	b.Size = sizeP(len(bytes) * 8)
	return b
}

// ToBytesBE renders b as big-endian two's-complement bytes, zero/sign
// extended (or truncated) to exactly n bytes.
func (b BigInt) ToBytesBE(n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n*8; i++ {
		if b.GetBit(i) {
			out[n-1-i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// Big returns the underlying width-less value.
func (b BigInt) Big() *big.Int {
	var out big.Int
	out.Set(&b.v)
	return &out
}

func (b BigInt) String() string {
	return b.v.String()
}

// IsNegative reports whether the value is strictly negative.
func (b BigInt) IsNegative() bool {
	return b.v.Sign() < 0
}

// Sign returns -1, 0 or 1.
func (b BigInt) Sign() int {
	return b.v.Sign()
}

// Eq reports whether the numeric values are equal. Width is NOT
// compared — two BigInts of different declared width but equal
// magnitude are equal for resolver convergence purposes.
func (b BigInt) Eq(o BigInt) bool {
	return b.v.Cmp(&o.v) == 0
}

// Cmp compares the signed values, ignoring width.
func (b BigInt) Cmp(o BigInt) int {
	return b.v.Cmp(&o.v)
}

func binaryOp(a, b BigInt, f func(z, x, y *big.Int) *big.Int) BigInt {
	var out BigInt
	f(&out.v, &a.v, &b.v)
	return out
}

// Add returns a+b, width-less.
func Add(a, b BigInt) BigInt { return binaryOp(a, b, (*big.Int).Add) }

// Sub returns a-b, width-less.
func Sub(a, b BigInt) BigInt { return binaryOp(a, b, (*big.Int).Sub) }

// Mul returns a*b, width-less.
func Mul(a, b BigInt) BigInt { return binaryOp(a, b, (*big.Int).Mul) }

// Neg returns -a, width-less.
func Neg(a BigInt) BigInt {
	var out BigInt
	out.v.Neg(&a.v)
	return out
}

// Div returns truncated a/b. Returns an error for division by zero, per
// spec.md §4.2 ("division/modulo by zero").
func Div(a, b BigInt) (BigInt, error) {
	if b.v.Sign() == 0 {
		return BigInt{}, fmt.Errorf("division/modulo by zero")
	}
	var out BigInt
	out.v.Quo(&a.v, &b.v)
	return out, nil
}

// Mod returns the truncated remainder of a/b.
func Mod(a, b BigInt) (BigInt, error) {
	if b.v.Sign() == 0 {
		return BigInt{}, fmt.Errorf("division/modulo by zero")
	}
	var out BigInt
	out.v.Rem(&a.v, &b.v)
	return out, nil
}

// twosComplementBytes returns the little-endian two's-complement byte
// representation of v, extended to at least minBytes.
func twosComplementBytes(v *big.Int, minBytes int) []byte {
	nbits := v.BitLen() + 2
	nbytes := (nbits + 7) / 8
	if nbytes < minBytes {
		nbytes = minBytes
	}
	if nbytes == 0 {
		nbytes = 1
	}

	bytesBE := make([]byte, nbytes)
	abs := new(big.Int).Abs(v)
	absBytes := abs.Bytes()
	copy(bytesBE[nbytes-len(absBytes):], absBytes)

	if v.Sign() < 0 {
		for i := range bytesBE {
			bytesBE[i] = ^bytesBE[i]
		}
		carry := byte(1)
		for i := len(bytesBE) - 1; i >= 0 && carry != 0; i-- {
			sum := uint16(bytesBE[i]) + uint16(carry)
			bytesBE[i] = byte(sum)
			carry = byte(sum >> 8)
		}
	}

	le := make([]byte, len(bytesBE))
	for i, c := range bytesBE {
		le[len(bytesBE)-1-i] = c
	}
	return le
}

func bitwiseOp(a, b BigInt, f func(x, y byte) byte) BigInt {
	ba := twosComplementBytes(&a.v, 1)
	bb := twosComplementBytes(&b.v, 1)
	n := len(ba)
	if len(bb) > n {
		n = len(bb)
	}
	signA := byte(0)
	if a.v.Sign() < 0 {
		signA = 0xff
	}
	signB := byte(0)
	if b.v.Sign() < 0 {
		signB = 0xff
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		var x, y byte
		if i < len(ba) {
			x = ba[i]
		} else {
			x = signA
		}
		if i < len(bb) {
			y = bb[i]
		} else {
			y = signB
		}
		out[i] = f(x, y)
	}

	negative := f(signA, signB) == 0xff
	be := make([]byte, n)
	for i, c := range out {
		be[n-1-i] = c
	}
	var mag big.Int
	if negative {
		inv := make([]byte, n)
		for i, c := range be {
			inv[i] = ^c
		}
		mag.SetBytes(inv)
		mag.Add(&mag, big.NewInt(1))
		var res BigInt
		res.v.Neg(&mag)
		return res
	}
	var res BigInt
	res.v.SetBytes(be)
	return res
}

// And returns a&b over infinite two's-complement bit-strings.
func And(a, b BigInt) BigInt { return bitwiseOp(a, b, func(x, y byte) byte { return x & y }) }

// Or returns a|b over infinite two's-complement bit-strings.
func Or(a, b BigInt) BigInt { return bitwiseOp(a, b, func(x, y byte) byte { return x | y }) }

// Xor returns a^b over infinite two's-complement bit-strings.
func Xor(a, b BigInt) BigInt { return bitwiseOp(a, b, func(x, y byte) byte { return x ^ y }) }

// Not returns the bitwise complement, ~a == -a-1.
func Not(a BigInt) BigInt {
	var out BigInt
	out.v.Add(&a.v, big.NewInt(1))
	out.v.Neg(&out.v)
	return out
}

// Shl returns a << n. n must be representable as a non-negative shift
// count; the caller is responsible for the usize-representability check
// spec.md §4.2 requires for an error message.
func Shl(a BigInt, n uint) BigInt {
	var out BigInt
	out.v.Lsh(&a.v, n)
	return out
}

// Shr is an arithmetic (sign-preserving) right shift.
func Shr(a BigInt, n uint) BigInt {
	var out BigInt
	out.v.Rsh(&a.v, n)
	return out
}

// GetBit returns the two's-complement bit at index i (sign-extending
// indefinitely for negative values), per spec.md §4.1.
func (b BigInt) GetBit(i int) bool {
	bytes := twosComplementBytes(&b.v, i/8+1)
	byteIdx := i / 8
	if byteIdx >= len(bytes) {
		return b.v.Sign() < 0
	}
	bitIdx := uint(i % 8)
	return bytes[byteIdx]&(1<<bitIdx) != 0
}

// SetBit returns a copy of b with bit i set to value.
func (b BigInt) SetBit(i int, value bool) BigInt {
	mask := Shl(FromInt64(1), uint(i))
	if value {
		return Or(b, mask)
	}
	return And(b, Not(mask))
}

// MinSize returns the smallest bit-width that losslessly holds the
// signed magnitude of b (including the sign bit).
func (b BigInt) MinSize() int {
	if b.v.Sign() == 0 {
		return 0
	}
	if b.v.Sign() > 0 {
		return b.v.BitLen() + 1
	}
	// Negative: -1 needs 1 bit (just the sign bit); in general find the
	// smallest n such that -2^(n-1) <= v.
	n := 1
	limit := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(n-1)))
	for b.v.Cmp(limit) < 0 {
		n++
		limit.Neg(new(big.Int).Lsh(big.NewInt(1), uint(n-1)))
	}
	return n
}

// SizeOrMinSize returns the explicit width if set, else MinSize().
func (b BigInt) SizeOrMinSize() int {
	if b.Size != nil {
		return *b.Size
	}
	return b.MinSize()
}

// Slice returns bits [hi:lo) (hi exclusive) as an unsigned value of
// width hi-lo, per spec.md §3/§4.1. Requires hi >= lo.
func Slice(x BigInt, hi, lo int) (BigInt, error) {
	if hi < lo {
		return BigInt{}, fmt.Errorf("invalid bit slice: hi (%d) < lo (%d)", hi, lo)
	}
	width := hi - lo
	var out big.Int
	for i := 0; i < width; i++ {
		if x.GetBit(lo + i) {
			out.SetBit(&out, i, 1)
		}
	}
	return BigInt{v: out, Size: sizeP(width)}, nil
}

// Concat concatenates lhs[lHi:lLo) as the high bits and rhs[rHi:rLo) as
// the low bits, per spec.md §4.1 concat(lhs, (l_hi,l_lo), rhs, (r_hi,r_lo)).
func Concat(lhs BigInt, lHi, lLo int, rhs BigInt, rHi, rLo int) (BigInt, error) {
	l, err := Slice(lhs, lHi, lLo)
	if err != nil {
		return BigInt{}, err
	}
	r, err := Slice(rhs, rHi, rLo)
	if err != nil {
		return BigInt{}, err
	}
	rWidth := rHi - rLo
	lWidth := lHi - lLo
	shifted := Shl(l, uint(rWidth))
	combined := Or(shifted, r)
	width := lWidth + rWidth
	combined.Size = sizeP(width)
	return combined, nil
}

// ConvertLE interprets x's big-endian bytes and reinterprets them
// little-endian, per spec.md §4.1. Requires a width that is a multiple
// of 8.
func ConvertLE(x BigInt) (BigInt, error) {
	if x.Size == nil || *x.Size%8 != 0 {
		return BigInt{}, fmt.Errorf("argument size must be a multiple of 8")
	}
	n := *x.Size / 8
	be := x.ToBytesBE(n)
	le := make([]byte, n)
	for i, c := range be {
		le[n-1-i] = c
	}
	out := FromBytesBE(le)
	out.Size = sizeP(*x.Size)
	return out, nil
}
