package output

import (
	"fmt"
	"strings"

	"github.com/hlorenzi/customasm-go/pkg/bitvec"
)

// The textual formatters in this file implement spec.md §6's "Output
// formats" list. They're kept in pkg/output (not a separate package)
// because spec.md treats them as touching the core's contract directly
// (they read a finished BitVec's bytes and spans, nothing else), even
// though the surrounding CLI that picks among them lives in cmd/casm.

// BinStr renders every bit as '0'/'1', most-significant-bit first.
func BinStr(bv *bitvec.BitVec) string {
	var b strings.Builder
	for i := 0; i < bv.Len(); i++ {
		if bv.BitAt(i) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// HexStr renders the packed bytes as lowercase hex, two digits per byte.
func HexStr(bv *bitvec.BitVec) string {
	return fmt.Sprintf("%x", bv.Bytes())
}

// LineWrap breaks s into fixed-width lines, per spec.md §6's
// "line-wrapped variants" of binstr/hexstr.
func LineWrap(s string, width int) string {
	if width <= 0 || len(s) <= width {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i += width {
		end := i + width
		if end > len(s) {
			end = len(s)
		}
		b.WriteString(s[i:end])
		if end < len(s) {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// HexDump renders a classic hex dump: address, hex bytes, ASCII gutter,
// bytesPerLine bytes per row.
func HexDump(bv *bitvec.BitVec, bytesPerLine int) string {
	data := bv.Bytes()
	var b strings.Builder
	for off := 0; off < len(data); off += bytesPerLine {
		end := off + bytesPerLine
		if end > len(data) {
			end = len(data)
		}
		row := data[off:end]
		fmt.Fprintf(&b, "%08x  ", off)
		for i := 0; i < bytesPerLine; i++ {
			if i < len(row) {
				fmt.Fprintf(&b, "%02x ", row[i])
			} else {
				b.WriteString("   ")
			}
		}
		b.WriteString(" |")
		for _, c := range row {
			if c >= 0x20 && c < 0x7f {
				b.WriteByte(c)
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteString("|\n")
	}
	return b.String()
}

// BinDump is HexDump's binary-digit counterpart: each byte rendered as
// 8 bits instead of 2 hex digits.
func BinDump(bv *bitvec.BitVec, bytesPerLine int) string {
	data := bv.Bytes()
	var b strings.Builder
	for off := 0; off < len(data); off += bytesPerLine {
		end := off + bytesPerLine
		if end > len(data) {
			end = len(data)
		}
		row := data[off:end]
		fmt.Fprintf(&b, "%08x  ", off)
		for _, c := range row {
			for i := 7; i >= 0; i-- {
				if c&(1<<uint(i)) != 0 {
					b.WriteByte('1')
				} else {
					b.WriteByte('0')
				}
			}
			b.WriteByte(' ')
		}
		b.WriteString(" |")
		for _, c := range row {
			if c >= 0x20 && c < 0x7f {
				b.WriteByte(c)
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteString("|\n")
	}
	return b.String()
}

// IntelHex renders data as Intel-HEX records (type 00, 16 bytes per
// record) terminated by the standard EOF record.
func IntelHex(data []byte) string {
	var b strings.Builder
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		row := data[off:end]
		sum := byte(len(row)) + byte(off>>8) + byte(off) + 0x00
		fmt.Fprintf(&b, ":%02X%04X00", len(row), off)
		for _, c := range row {
			fmt.Fprintf(&b, "%02X", c)
			sum += c
		}
		checksum := byte(0x100 - int(sum))
		fmt.Fprintf(&b, "%02X\n", checksum)
	}
	b.WriteString(":00000001FF\n")
	return b.String()
}

// MIF renders data as an Altera Memory Initialization File.
func MIF(data []byte, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "DEPTH = %d;\n", len(data))
	fmt.Fprintf(&b, "WIDTH = %d;\n", width)
	b.WriteString("ADDRESS_RADIX = HEX;\n")
	b.WriteString("DATA_RADIX = HEX;\n")
	b.WriteString("CONTENT BEGIN\n")
	for i, c := range data {
		fmt.Fprintf(&b, "\t%04x : %02x;\n", i, c)
	}
	b.WriteString("END;\n")
	return b.String()
}

// Logisim renders data in Logisim's "v2.0 raw" memory-image format.
func Logisim(data []byte) string {
	var b strings.Builder
	b.WriteString("v2.0 raw\n")
	for i, c := range data {
		if i > 0 {
			if i%16 == 0 {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		fmt.Fprintf(&b, "%02x", c)
	}
	b.WriteByte('\n')
	return b.String()
}

// CArray renders data as a C `const unsigned char data[] = {...}` literal.
func CArray(data []byte, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "const unsigned char %s[%d] = {\n", name, len(data))
	for i, c := range data {
		if i%12 == 0 {
			b.WriteString("\t")
		}
		fmt.Fprintf(&b, "0x%02x,", c)
		if i%12 == 11 || i == len(data)-1 {
			b.WriteByte('\n')
		} else {
			b.WriteByte(' ')
		}
	}
	b.WriteString("};\n")
	return b.String()
}

// VHDL renders data as a VHDL byte-array constant.
func VHDL(data []byte, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "constant %s : std_logic_vector(0 to %d) := (\n", name, len(data)*8-1)
	for i, c := range data {
		fmt.Fprintf(&b, "\tx\"%02x\"", c)
		if i != len(data)-1 {
			b.WriteString(",")
		}
		b.WriteByte('\n')
	}
	b.WriteString(");\n")
	return b.String()
}

// AnnotatedHex renders hex bytes annotated with the source excerpt each
// span's bits came from, via the BitVec's recorded span table.
func AnnotatedHex(bv *bitvec.BitVec) string {
	var b strings.Builder
	for _, s := range bv.Spans() {
		if s.Offset == nil || s.Size == 0 {
			continue
		}
		startByte := *s.Offset / 8
		endByte := (*s.Offset + s.Size + 7) / 8
		data := bv.Bytes()
		if endByte > len(data) {
			endByte = len(data)
		}
		fmt.Fprintf(&b, "%08x  %-24x  ; %s\n", startByte, data[startByte:endByte], s.Source.String())
	}
	return b.String()
}

// AnnotatedBin is AnnotatedHex's binary-digit counterpart.
func AnnotatedBin(bv *bitvec.BitVec) string {
	var b strings.Builder
	for _, s := range bv.Spans() {
		if s.Offset == nil || s.Size == 0 {
			continue
		}
		var bits strings.Builder
		for i := 0; i < s.Size; i++ {
			if bv.BitAt(*s.Offset + i) {
				bits.WriteByte('1')
			} else {
				bits.WriteByte('0')
			}
		}
		fmt.Fprintf(&b, "%08x  %-32s  ; %s\n", *s.Offset, bits.String(), s.Source.String())
	}
	return b.String()
}

// AddrSpan renders the CSV-like `phys:bit | logical | file:ls:cs:le:ce`
// span table spec.md §6 names.
func AddrSpan(bv *bitvec.BitVec) string {
	var b strings.Builder
	for _, s := range bv.Spans() {
		phys := "-"
		if s.Offset != nil {
			phys = fmt.Sprintf("%d:%d", *s.Offset/8, *s.Offset%8)
		}
		src := fmt.Sprintf("%s:%d:%d:%d:%d", s.Source.File, s.Source.LineStart, s.Source.ColStart, s.Source.LineEnd, s.Source.ColEnd)
		fmt.Fprintf(&b, "%s | %s | %s\n", phys, s.Addr.Big().String(), src)
	}
	return b.String()
}
