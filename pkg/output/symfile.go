// symfile.go implements spec.md §6's two symbol-table output formats:
// the default `name = 0xNN` format and Mesen's debugger label format
// (`.mlb`), named in SPEC_FULL.md's supplemented-features list.
package output

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hlorenzi/customasm-go/pkg/asmast"
	"github.com/hlorenzi/customasm-go/pkg/expr"
	"github.com/hlorenzi/customasm-go/pkg/resolver"
)

// SymbolFile renders every resolved, non-function symbol as
// `name = 0xNN`, one per line, sorted alphabetically within each scope
// for reproducible diffs across builds. buildID tags the header so
// multiple runs/dumps of the same project can be correlated (stamped
// fresh per invocation by the caller via uuid.New()).
func SymbolFile(symbols *resolver.SymbolTable, buildID uuid.UUID) string {
	var b strings.Builder
	fmt.Fprintf(&b, "; build %s\n", buildID)
	writeScope(&b, symbols, asmast.NoRef, "")
	return b.String()
}

func writeScope(b *strings.Builder, symbols *resolver.SymbolTable, scope asmast.ItemRef, prefix string) {
	for _, name := range symbols.ChildNames(scope) {
		ref, ok := symbols.ResolveLocalChild(scope, name)
		if !ok {
			continue
		}
		sym := symbols.Get(ref)
		if sym == nil || sym.Kind == asmast.SymbolFunction {
			continue
		}
		full := prefix + name
		if sym.Resolved && sym.Value.Kind == expr.KindInteger {
			fmt.Fprintf(b, "%s = 0x%s\n", full, sym.Value.Int.Big().Text(16))
		}
		writeScope(b, symbols, ref, full+".")
	}
}

// MesenMLB renders labels in Mesen's `.mlb` format: `P:offset:name` for
// PRG-ROM (writable-bank) symbols, `R:addr:name` for RAM-only (non-
// writable-bank) ones — spec.md §6 names both line shapes.
func MesenMLB(symbols *resolver.SymbolTable, banks *resolver.BankSet) string {
	var b strings.Builder
	writeMesenScope(&b, symbols, banks, asmast.NoRef, "")
	return b.String()
}

func writeMesenScope(b *strings.Builder, symbols *resolver.SymbolTable, banks *resolver.BankSet, scope asmast.ItemRef, prefix string) {
	for _, name := range symbols.ChildNames(scope) {
		ref, ok := symbols.ResolveLocalChild(scope, name)
		if !ok {
			continue
		}
		sym := symbols.Get(ref)
		if sym == nil || sym.Kind != asmast.SymbolLabel || !sym.Resolved {
			writeMesenScope(b, symbols, banks, ref, prefix+name+".")
			continue
		}
		full := prefix + name
		bank := banks.Get(sym.BankdefRef)
		if bank != nil && bank.Def.OutputOffset != nil {
			addr := int(sym.Value.Int.Big().Int64())
			offset := (*bank.Def.OutputOffset + (addr-bank.Def.AddrStart)*bank.Def.AddrUnit) / 8
			fmt.Fprintf(b, "P:%x:%s\n", offset, full)
		} else {
			fmt.Fprintf(b, "R:%s:%s\n", sym.Value.Int.Big().Text(16), full)
		}
		writeMesenScope(b, symbols, banks, ref, full+".")
	}
}
