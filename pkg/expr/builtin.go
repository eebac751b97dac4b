package expr

import (
	"fmt"
	"unicode/utf16"

	"github.com/hlorenzi/customasm-go/pkg/bigint"
	"github.com/hlorenzi/customasm-go/pkg/diagn"
)

// BuiltinFn implements one of the built-in functions listed in
// spec.md §4.2.
type BuiltinFn func(span diagn.Span, args []Value, p Provider) (Value, error)

var builtins map[string]BuiltinFn

func init() {
	builtins = map[string]BuiltinFn{
		"assert":     biAssert,
		"sizeof":     biSizeof,
		"le":         biLe,
		"ascii":      biEncode("ascii"),
		"utf8":       biEncode("utf8"),
		"utf16be":    biEncode("utf16be"),
		"utf16le":    biEncode("utf16le"),
		"utf32be":    biEncode("utf32be"),
		"utf32le":    biEncode("utf32le"),
		"strlen":     biStrlen,
		"incbin":     biIncbin,
		"incbinstr":  biIncbinstr,
		"inchexstr":  biInchexstr,
	}
}

func biAssert(span diagn.Span, args []Value, p Provider) (Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return Value{}, fmt.Errorf("assert() takes 1 or 2 arguments")
	}
	if args[0].Kind != KindBool {
		return Value{}, fmt.Errorf("assert() condition must be a bool")
	}
	if args[0].Bool {
		return VVoid(), nil
	}
	if len(args) == 2 {
		if args[1].Kind != KindString {
			return Value{}, fmt.Errorf("assert() message must be a string")
		}
		return VFailed("%s", args[1].Str), nil
	}
	return VFailed("assertion failed"), nil
}

func biSizeof(span diagn.Span, args []Value, p Provider) (Value, error) {
	if len(args) != 1 {
		return Value{}, fmt.Errorf("sizeof() takes 1 argument")
	}
	if args[0].Kind != KindInteger {
		return Value{}, fmt.Errorf("sizeof() requires a sized integer result")
	}
	if args[0].Int.Size == nil {
		return Value{}, fmt.Errorf("sizeof() requires a sized integer result")
	}
	return VInt(bigint.FromInt64(int64(*args[0].Int.Size))), nil
}

func biLe(span diagn.Span, args []Value, p Provider) (Value, error) {
	if len(args) != 1 || args[0].Kind != KindInteger {
		return Value{}, fmt.Errorf("le() requires one integer argument")
	}
	v, err := bigint.ConvertLE(args[0].Int)
	if err != nil {
		return Value{}, err
	}
	return VInt(v), nil
}

func biEncode(encoding string) BuiltinFn {
	return func(span diagn.Span, args []Value, p Provider) (Value, error) {
		if len(args) != 1 || args[0].Kind != KindString {
			return Value{}, fmt.Errorf("%s() requires one string argument", encoding)
		}
		bytes, err := encodeString(encoding, args[0].Str)
		if err != nil {
			return Value{}, err
		}
		return VInt(bigint.FromBytesBE(bytes)), nil
	}
}

func encodeString(encoding, s string) ([]byte, error) {
	switch encoding {
	case "ascii":
		out := make([]byte, 0, len(s))
		for _, r := range s {
			if r > 127 {
				return nil, fmt.Errorf("ascii() encountered a non-ASCII character")
			}
			out = append(out, byte(r))
		}
		return out, nil
	case "utf8":
		return []byte(s), nil
	case "utf16be", "utf16le":
		units := utf16.Encode([]rune(s))
		out := make([]byte, 0, len(units)*2)
		for _, u := range units {
			if encoding == "utf16be" {
				out = append(out, byte(u>>8), byte(u))
			} else {
				out = append(out, byte(u), byte(u>>8))
			}
		}
		return out, nil
	case "utf32be", "utf32le":
		out := make([]byte, 0, len(s)*4)
		for _, r := range s {
			if encoding == "utf32be" {
				out = append(out, byte(r>>24), byte(r>>16), byte(r>>8), byte(r))
			} else {
				out = append(out, byte(r), byte(r>>8), byte(r>>16), byte(r>>24))
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown string encoding %q", encoding)
}

func biStrlen(span diagn.Span, args []Value, p Provider) (Value, error) {
	if len(args) != 1 || args[0].Kind != KindString {
		return Value{}, fmt.Errorf("strlen() requires one string argument")
	}
	return VInt(bigint.FromInt64(int64(len([]byte(args[0].Str))))), nil
}

func intArg(v Value, what string) (*int, error) {
	if v.Kind != KindInteger {
		return nil, fmt.Errorf("%s must be an integer", what)
	}
	n := int(v.Int.Big().Int64())
	return &n, nil
}

func biIncbin(span diagn.Span, args []Value, p Provider) (Value, error) {
	path, start, size, err := parseIncbinArgs(args)
	if err != nil {
		return Value{}, err
	}
	bytes, err := p.ReadBytes(path, start, size)
	if err != nil {
		return Value{}, err
	}
	return VInt(bigint.FromBytesBE(bytes)), nil
}

func parseIncbinArgs(args []Value) (path string, start, size *int, err error) {
	if len(args) < 1 || len(args) > 3 || args[0].Kind != KindString {
		return "", nil, nil, fmt.Errorf("expected a file path as the first argument")
	}
	path = args[0].Str
	if len(args) >= 2 {
		start, err = intArg(args[1], "start")
		if err != nil {
			return "", nil, nil, err
		}
	}
	if len(args) >= 3 {
		size, err = intArg(args[2], "size")
		if err != nil {
			return "", nil, nil, err
		}
	}
	return path, start, size, nil
}

func biIncbinstr(span diagn.Span, args []Value, p Provider) (Value, error) {
	path, start, size, err := parseIncbinArgs(args)
	if err != nil {
		return Value{}, err
	}
	bytes, err := p.ReadBytes(path, start, size)
	if err != nil {
		return Value{}, err
	}
	var out big0
	width := 0
	for _, b := range bytes {
		if b != '0' && b != '1' {
			continue // skip every character other than '0'/'1'
		}
		out.shl1()
		if b == '1' {
			out.or1()
		}
		width++
	}
	return VInt(out.toBigInt(width)), nil
}

func biInchexstr(span diagn.Span, args []Value, p Provider) (Value, error) {
	path, start, size, err := parseIncbinArgs(args)
	if err != nil {
		return Value{}, err
	}
	bytes, err := p.ReadBytes(path, start, size)
	if err != nil {
		return Value{}, err
	}
	var out big0
	width := 0
	for _, b := range bytes {
		var nibble int
		switch {
		case b >= '0' && b <= '9':
			nibble = int(b - '0')
		case b >= 'a' && b <= 'f':
			nibble = int(b-'a') + 10
		case b >= 'A' && b <= 'F':
			nibble = int(b-'A') + 10
		case b == ' ' || b == '\t' || b == '\n' || b == '\r':
			continue
		default:
			return Value{}, fmt.Errorf("inchexstr() file must contain only hex digit characters")
		}
		for i := 3; i >= 0; i-- {
			out.shl1()
			if nibble&(1<<uint(i)) != 0 {
				out.or1()
			}
			width++
		}
	}
	return VInt(out.toBigInt(width)), nil
}

// big0 accumulates an unsigned value bit by bit without pulling in a
// second big-int representation; it's a thin shim over bigint.BigInt.
type big0 struct {
	v bigint.BigInt
}

func (b *big0) shl1() { b.v = bigint.Shl(b.v, 1) }
func (b *big0) or1()  { b.v = bigint.Or(b.v, bigint.FromInt64(1)) }
func (b *big0) toBigInt(width int) bigint.BigInt {
	return b.v.WithSize(width)
}
