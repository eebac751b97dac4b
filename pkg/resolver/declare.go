package resolver

import (
	"github.com/hlorenzi/customasm-go/pkg/asmast"
	"github.com/hlorenzi/customasm-go/pkg/expr"
)

// declarePass collects every symbol declaration and bankdef up front,
// per spec.md §3's Lifecycle rule: "Symbol declarations are collected
// in one dedicated phase." cur threads the running scopeStack through
// the node sequence in source order; #if declares both of its arms
// against a copy of cur (only one will actually run, but both need
// stable ItemRefs to exist), while #noemit's contents run unconditionally
// and so thread scope changes back into cur like any other statement.
func (d *Driver) declarePass(nodes []asmast.Node, cur scopeStack) (scopeStack, error) {
	for i := range nodes {
		n := &nodes[i]
		switch n.Kind {
		case asmast.NodeSymbol:
			kind := n.SymKind
			parent := cur.parentFor(n.Depth)
			ref, err := d.Symbols.Declare(parent, n.SymbolName, kind, n.Span, n.Depth)
			if err != nil {
				d.errorf(n.Span, "%s", err.Error())
				continue
			}
			n.SymbolRef = ref
			cur = cur.declared(n.Depth, ref)

		case asmast.NodeBankdef:
			ref, err := d.declareBankdef(n)
			if err != nil {
				d.errorf(n.Span, "%s", err.Error())
				continue
			}
			n.BankdefRef = ref

		case asmast.NodeIf:
			if _, err := d.declarePass(n.Then, cur); err != nil {
				return cur, err
			}
			if _, err := d.declarePass(n.Else, cur); err != nil {
				return cur, err
			}

		case asmast.NodeNoEmit:
			var err error
			cur, err = d.declarePass(n.Inner, cur)
			if err != nil {
				return cur, err
			}

		case asmast.NodeFn:
			if _, exists := d.Functions[n.FnName]; exists {
				d.errorf(n.Span, "duplicate function `%s`", n.FnName)
				continue
			}
			d.Functions[n.FnName] = &expr.FunctionDecl{
				Name:   n.FnName,
				Params: n.FnParams,
				Body:   *n.FnBody,
			}
		}
	}
	return cur, nil
}

// declareBankdef evaluates a #bankdef's fields. Bankdef fields must be
// statically known at declaration time (banks have no forward
// references to other banks or labels), evaluated against the global
// scope only.
func (d *Driver) declareBankdef(n *asmast.Node) (asmast.ItemRef, error) {
	p := &exprProvider{d: d, scope: asmast.NoRef}
	ctx := expr.NewEvalContext()

	addrUnit := d.Options.Bits
	addrStart := 0
	if n.BankdefAddrUnit != 0 {
		addrUnit = n.BankdefAddrUnit
	}
	if n.BankdefAddrStart != nil {
		v, err := expr.Eval(n.BankdefAddrStart, ctx, p)
		if err != nil {
			return asmast.NoRef, err
		}
		if v.Kind != expr.KindInteger {
			return asmast.NoRef, errBankdefField(n.BankdefName, "addr_start")
		}
		addrStart = int(v.Int.Big().Int64())
	}

	var size *int
	if n.BankdefSize != nil {
		v, err := expr.Eval(n.BankdefSize, ctx, p)
		if err != nil {
			return asmast.NoRef, err
		}
		if v.Kind != expr.KindInteger {
			return asmast.NoRef, errBankdefField(n.BankdefName, "size")
		}
		s := int(v.Int.Big().Int64())
		size = &s
	}

	var outp *int
	if n.BankdefOutp != nil {
		v, err := expr.Eval(n.BankdefOutp, ctx, p)
		if err != nil {
			return asmast.NoRef, err
		}
		if v.Kind != expr.KindInteger {
			return asmast.NoRef, errBankdefField(n.BankdefName, "outp")
		}
		o := int(v.Int.Big().Int64())
		outp = &o
	}

	return d.Banks.Declare(&Bankdef{
		Name:         n.BankdefName,
		AddrUnit:     addrUnit,
		AddrStart:    addrStart,
		Size:         size,
		OutputOffset: outp,
		Fill:         n.BankdefFill,
	})
}

func errBankdefField(name, field string) error {
	return &bankdefFieldError{name: name, field: field}
}

type bankdefFieldError struct {
	name, field string
}

func (e *bankdefFieldError) Error() string {
	return "bank `" + e.name + "`'s `" + e.field + "` must be a statically-known integer"
}
