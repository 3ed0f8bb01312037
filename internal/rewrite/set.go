package rewrite

import (
	"errors"
	"fmt"
	"sort"

	"github.com/graphrw/anvil/internal/ir"
)

// PatternSet accumulates patterns before freezing. Registration order
// is remembered and breaks benefit ties during dispatch.
type PatternSet struct {
	patterns []Pattern
}

// NewPatternSet returns an empty set.
func NewPatternSet() *PatternSet {
	return &PatternSet{}
}

// Add appends patterns and returns the set for chaining. A nil
// pattern or a negative benefit panics: sets are assembled by
// dialect registration code, not from user input.
func (s *PatternSet) Add(ps ...Pattern) *PatternSet {
	for _, p := range ps {
		if p == nil {
			panic("rewrite: nil pattern added to set")
		}
		if p.Benefit() < 0 {
			panic(fmt.Sprintf("rewrite: pattern %q has negative benefit %d", p.Name(), p.Benefit()))
		}
		s.patterns = append(s.patterns, p)
	}
	return s
}

// Len returns the number of registered patterns.
func (s *PatternSet) Len() int {
	return len(s.patterns)
}

// Patterns returns the registered patterns in registration order.
func (s *PatternSet) Patterns() []Pattern {
	out := make([]Pattern, len(s.patterns))
	copy(out, s.patterns)
	return out
}

// UnknownPatternError reports a filter name that matches no pattern
// in the set being frozen.
type UnknownPatternError struct {
	Name string
}

func (e *UnknownPatternError) Error() string {
	return fmt.Sprintf("rewrite: filter references unknown pattern %q", e.Name)
}

// IsUnknownPattern reports whether err is an UnknownPatternError.
func IsUnknownPattern(err error) bool {
	var upe *UnknownPatternError
	return errors.As(err, &upe)
}

// FreezeOption adjusts pattern selection during Freeze.
type FreezeOption func(*freezeConfig)

type freezeConfig struct {
	enabled  []string
	disabled []string
}

// WithEnabled restricts the frozen set to the named patterns. An
// empty list leaves every pattern enabled.
func WithEnabled(names ...string) FreezeOption {
	return func(c *freezeConfig) {
		c.enabled = append(c.enabled, names...)
	}
}

// WithDisabled removes the named patterns from the frozen set.
// Disabling wins over enabling when both name the same pattern.
func WithDisabled(names ...string) FreezeOption {
	return func(c *freezeConfig) {
		c.disabled = append(c.disabled, names...)
	}
}

// FrozenSet is an immutable dispatch structure built from a
// PatternSet. For each anchor it holds the anchored patterns merged
// with the wildcards, ordered by descending benefit, then anchored
// before wildcard, then registration order.
type FrozenSet struct {
	byAnchor map[ir.OpName][]Pattern
	wildcard []Pattern
	selected []Pattern
}

type rankedPattern struct {
	p        Pattern
	regIndex int
}

// Freeze selects and orders the set's patterns. Every name given to
// WithEnabled or WithDisabled must exist in the set; an unknown name
// yields an UnknownPatternError rather than being ignored.
func Freeze(s *PatternSet, opts ...FreezeOption) (*FrozenSet, error) {
	var fc freezeConfig
	for _, opt := range opts {
		opt(&fc)
	}

	known := make(map[string]bool, len(s.patterns))
	for _, p := range s.patterns {
		known[p.Name()] = true
	}
	for _, name := range fc.enabled {
		if !known[name] {
			return nil, &UnknownPatternError{Name: name}
		}
	}
	for _, name := range fc.disabled {
		if !known[name] {
			return nil, &UnknownPatternError{Name: name}
		}
	}

	enabled := make(map[string]bool, len(fc.enabled))
	for _, name := range fc.enabled {
		enabled[name] = true
	}
	disabled := make(map[string]bool, len(fc.disabled))
	for _, name := range fc.disabled {
		disabled[name] = true
	}

	fs := &FrozenSet{byAnchor: make(map[ir.OpName][]Pattern)}

	anchored := make(map[ir.OpName][]rankedPattern)
	var wild []rankedPattern
	for i, p := range s.patterns {
		if len(enabled) > 0 && !enabled[p.Name()] {
			continue
		}
		if disabled[p.Name()] {
			continue
		}
		fs.selected = append(fs.selected, p)
		rp := rankedPattern{p: p, regIndex: i}
		if p.Anchor() == AnyOp {
			wild = append(wild, rp)
		} else {
			anchored[p.Anchor()] = append(anchored[p.Anchor()], rp)
		}
	}

	for anchor, ranked := range anchored {
		merged := make([]rankedPattern, 0, len(ranked)+len(wild))
		merged = append(merged, ranked...)
		merged = append(merged, wild...)
		sortRanked(merged)
		fs.byAnchor[anchor] = flatten(merged)
	}
	wildOnly := make([]rankedPattern, len(wild))
	copy(wildOnly, wild)
	sortRanked(wildOnly)
	fs.wildcard = flatten(wildOnly)

	return fs, nil
}

// sortRanked orders by descending benefit, anchored before wildcard
// at equal benefit, then by registration index.
func sortRanked(rs []rankedPattern) {
	sort.SliceStable(rs, func(i, j int) bool {
		pi, pj := rs[i], rs[j]
		if pi.p.Benefit() != pj.p.Benefit() {
			return pi.p.Benefit() > pj.p.Benefit()
		}
		iw := pi.p.Anchor() == AnyOp
		jw := pj.p.Anchor() == AnyOp
		if iw != jw {
			return !iw
		}
		return pi.regIndex < pj.regIndex
	})
}

func flatten(rs []rankedPattern) []Pattern {
	if len(rs) == 0 {
		return nil
	}
	out := make([]Pattern, len(rs))
	for i, r := range rs {
		out[i] = r.p
	}
	return out
}

// MatchesFor returns the dispatch sequence for op: anchored patterns
// merged with wildcards, or the wildcard sequence when no pattern
// anchors on op.
func (fs *FrozenSet) MatchesFor(op ir.OpName) []Pattern {
	if seq, ok := fs.byAnchor[op]; ok {
		return seq
	}
	return fs.wildcard
}

// Selected returns the patterns that survived filtering, in
// registration order.
func (fs *FrozenSet) Selected() []Pattern {
	out := make([]Pattern, len(fs.selected))
	copy(out, fs.selected)
	return out
}

// Len returns the number of selected patterns.
func (fs *FrozenSet) Len() int {
	return len(fs.selected)
}
