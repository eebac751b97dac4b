// Package ruledef implements the ruledef/rule/pattern data model from
// spec.md §3: a named table of rules, each an ordered pattern of
// exact/whitespace/parameter parts plus a typed parameter list and a
// production expression.
package ruledef

import "github.com/hlorenzi/customasm-go/pkg/expr"

// PartKind tags a Pattern element.
type PartKind int

const (
	PartExact PartKind = iota
	PartWhitespace
	PartParameter
)

// Part is one element of a rule's pattern.
type Part struct {
	Kind  PartKind
	Exact rune // meaningful when Kind == PartExact
	Index int  // meaningful when Kind == PartParameter: index into Rule.Parameters
}

// ParamTypeKind tags a Parameter's declared type.
type ParamTypeKind int

const (
	ParamUnspecified ParamTypeKind = iota
	ParamUnsigned
	ParamSigned
	ParamInteger
	ParamRuledefRef
)

// ParamType is a rule parameter's type: a bit-width-constrained integer,
// or a reference to a sub-ruledef.
type ParamType struct {
	Kind    ParamTypeKind
	Width   int    // meaningful for Unsigned/Signed/Integer
	RefName string // meaningful for RuledefRef; resolved to *Ruledef via a RuledefSet
}

// Parameter is one named, typed hole in a rule's pattern.
type Parameter struct {
	Name string
	Type ParamType
}

// Rule is one pattern -> production entry.
type Rule struct {
	Pattern    []Part
	Parameters []Parameter
	Production expr.Expr

	// ExactPartCount is the count of PartExact parts in this rule alone
	// (not recursive — recursive accumulation happens over a completed
	// InstructionMatch tree in pkg/matcher, per spec.md's GLOSSARY).
	ExactPartCount int
}

// Ruledef is a named table of rules. TopLevel ruledefs are eligible as
// instruction roots; sub-ruledefs are only invokable as a typed
// RuledefRef parameter.
type Ruledef struct {
	Name     string
	Rules    []Rule
	TopLevel bool

	// prefixIndex maps the first non-whitespace Exact rune of each rule
	// to that rule's index, the optional pruning optimization spec.md
	// §4.3 calls "RuledefMap".
	prefixIndex map[rune][]int
}

// BuildPrefixIndex (re)computes the prefix-character pruning index.
func (r *Ruledef) BuildPrefixIndex() {
	r.prefixIndex = map[rune][]int{}
	for i, rule := range r.Rules {
		for _, part := range rule.Pattern {
			if part.Kind == PartWhitespace {
				continue
			}
			if part.Kind == PartExact {
				c := lowerRune(part.Exact)
				r.prefixIndex[c] = append(r.prefixIndex[c], i)
			}
			break
		}
	}
}

// CandidateRules returns rule indices worth trying against a token
// stream starting with lead (case-insensitive), building the prefix
// index on first use and falling back to all rules when lead matches
// no rule's first exact character.
func (r *Ruledef) CandidateRules(lead rune) []int {
	if r.prefixIndex == nil {
		r.BuildPrefixIndex()
	}
	all := make([]int, len(r.Rules))
	for i := range all {
		all[i] = i
	}
	exact, ok := r.prefixIndex[lowerRune(lead)]
	if !ok {
		return all
	}
	// Rules whose first significant part is a parameter (not present in
	// the prefix index under any key) must still be tried.
	seen := map[int]bool{}
	var out []int
	for _, i := range exact {
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	for i, rule := range r.Rules {
		if seen[i] {
			continue
		}
		for _, part := range rule.Pattern {
			if part.Kind == PartWhitespace {
				continue
			}
			if part.Kind == PartParameter {
				out = append(out, i)
			}
			break
		}
	}
	return out
}

func lowerRune(c rune) rune {
	if c >= 'A' && c <= 'Z' {
		return c - 'A' + 'a'
	}
	return c
}

// Set is the full collection of ruledefs known to one assembly, keyed
// by name, used to resolve RuledefRef parameter types and to enumerate
// top-level ruledefs for instruction matching.
type Set struct {
	ByName map[string]*Ruledef
	Order  []string // declaration order, for deterministic iteration
}

// NewSet returns an empty ruledef set.
func NewSet() *Set {
	return &Set{ByName: map[string]*Ruledef{}}
}

// Add registers a ruledef, preserving declaration order.
func (s *Set) Add(r *Ruledef) {
	if _, exists := s.ByName[r.Name]; !exists {
		s.Order = append(s.Order, r.Name)
	}
	s.ByName[r.Name] = r
}

// TopLevelRuledefs returns all top-level ruledefs in declaration order.
func (s *Set) TopLevelRuledefs() []*Ruledef {
	var out []*Ruledef
	for _, name := range s.Order {
		if r := s.ByName[name]; r.TopLevel {
			out = append(out, r)
		}
	}
	return out
}
