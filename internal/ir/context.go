package ir

import (
	"slices"
	"strings"
)

// OpName identifies an operation kind, written "dialect.mnemonic".
type OpName string

// Dialect returns the prefix before the first dot, or "" when the
// name carries no dialect prefix.
func (n OpName) Dialect() string {
	if i := strings.IndexByte(string(n), '.'); i >= 0 {
		return string(n)[:i]
	}
	return ""
}

func (n OpName) String() string { return string(n) }

// Trait is a bitmask of structural properties an operation kind
// declares at registration time.
type Trait uint32

const (
	// TraitPure marks a node as side-effect free. Pure nodes with no
	// remaining uses are dead and may be removed.
	TraitPure Trait = 1 << iota
	// TraitTerminator marks a node that must appear last in its block
	// and is the only kind allowed to carry successors.
	TraitTerminator
	// TraitConstantLike marks a node that materializes the constant
	// held in its "value" attribute and has exactly one result.
	TraitConstantLike
	// TraitCommutative marks a binary node whose operands may be
	// swapped without changing its result.
	TraitCommutative
	// TraitNoTerminatorRequired marks an op whose region blocks need
	// not end in a terminator.
	TraitNoTerminatorRequired
)

// Has reports whether all bits of q are set.
func (t Trait) Has(q Trait) bool { return t&q == q }

// OpFoldResult is one folded result: either an existing value or a
// constant to materialize. Exactly one of Value and Attr is set.
type OpFoldResult struct {
	Value ValueID
	Attr  Attr
}

// FoldValue wraps an existing value as a fold result.
func FoldValue(v ValueID) OpFoldResult { return OpFoldResult{Value: v} }

// FoldAttr wraps a constant as a fold result.
func FoldAttr(a Attr) OpFoldResult { return OpFoldResult{Attr: a} }

// IsValue reports whether the result reuses an existing value.
func (r OpFoldResult) IsValue() bool { return r.Value.Valid() }

// FoldFn computes folded results for a node. operands holds the
// constant attribute of each operand whose producer is constant-like,
// nil otherwise. Returning ok=false means no fold applies. A fold
// must not mutate the graph; it is a pure decision.
type FoldFn func(n *Node, operands []Attr) ([]OpFoldResult, bool)

// VerifyFn runs op-specific structural checks during Verify.
type VerifyFn func(n *Node) error

// OpSpec describes one registered operation kind.
type OpSpec struct {
	Name       OpName
	Traits     Trait
	NumRegions int
	Fold       FoldFn
	Verify     VerifyFn
}

// HasTrait reports whether the spec declares all bits of t.
func (s *OpSpec) HasTrait(t Trait) bool { return s.Traits.Has(t) }

// MaterializeFn builds a constant-like node producing attr with the
// given result type at the builder's insertion point. Returning a nil
// node means the dialect cannot materialize that attribute.
type MaterializeFn func(b *Builder, attr Attr, typ Type) (*Node, error)

// Dialect groups the op specs registered under one name prefix.
type Dialect struct {
	Name                string
	Ops                 []OpSpec
	MaterializeConstant MaterializeFn
}

// Context owns the dialect and op registries shared by every graph
// built against it. Register all dialects before building; lookups
// are read-only afterward and safe for concurrent use.
type Context struct {
	dialects map[string]*Dialect
	ops      map[OpName]*OpSpec
}

// NewContext returns an empty registry.
func NewContext() *Context {
	return &Context{
		dialects: make(map[string]*Dialect),
		ops:      make(map[OpName]*OpSpec),
	}
}

// RegisterDialect installs a dialect and all of its op specs.
// Re-registering a dialect name or an op name fails.
func (c *Context) RegisterDialect(d Dialect) error {
	if d.Name == "" {
		return &RegistrationError{Reason: "dialect name is empty"}
	}
	if _, ok := c.dialects[d.Name]; ok {
		return &RegistrationError{Dialect: d.Name, Reason: "dialect already registered"}
	}
	seen := make(map[OpName]struct{}, len(d.Ops))
	for i := range d.Ops {
		spec := &d.Ops[i]
		if spec.Name.Dialect() != d.Name {
			return &RegistrationError{Dialect: d.Name, Op: spec.Name, Reason: "op name is outside its dialect prefix"}
		}
		if _, ok := seen[spec.Name]; ok {
			return &RegistrationError{Dialect: d.Name, Op: spec.Name, Reason: "op listed twice"}
		}
		seen[spec.Name] = struct{}{}
		if _, ok := c.ops[spec.Name]; ok {
			return &RegistrationError{Dialect: d.Name, Op: spec.Name, Reason: "op already registered"}
		}
	}
	stored := &Dialect{
		Name:                d.Name,
		Ops:                 d.Ops,
		MaterializeConstant: d.MaterializeConstant,
	}
	c.dialects[d.Name] = stored
	for i := range stored.Ops {
		c.ops[stored.Ops[i].Name] = &stored.Ops[i]
	}
	return nil
}

// Spec returns the registered spec for op, or nil when unknown.
func (c *Context) Spec(op OpName) *OpSpec {
	return c.ops[op]
}

// DialectByName returns the registered dialect, or nil when unknown.
func (c *Context) DialectByName(name string) *Dialect {
	return c.dialects[name]
}

// OpNames returns every registered op name in lexicographic order.
func (c *Context) OpNames() []OpName {
	names := make([]OpName, 0, len(c.ops))
	for n := range c.ops {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
