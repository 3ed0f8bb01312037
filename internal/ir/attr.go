package ir

import (
	"fmt"
	"slices"
	"strconv"
)

// Attr is a sealed interface over the constant attribute kinds a node
// may carry. Only IntAttr, BoolAttr, FloatAttr, and StringAttr
// implement it. Attributes are immutable values; two attributes are
// interchangeable exactly when their String forms match.
type Attr interface {
	attr() // sealed
	String() string
}

// IntAttr is a typed integer constant.
type IntAttr struct {
	Value int64
	Type  Type
}

func (IntAttr) attr() {}

func (a IntAttr) String() string {
	return fmt.Sprintf("%d : %s", a.Value, a.Type)
}

// BoolAttr is a boolean constant. It prints as an i1 value.
type BoolAttr bool

func (BoolAttr) attr() {}

func (a BoolAttr) String() string {
	if a {
		return "true"
	}
	return "false"
}

// FloatAttr is a float constant carried as its exact bit pattern via
// strconv round-tripping.
type FloatAttr struct {
	Value float64
	Type  Type
}

func (FloatAttr) attr() {}

func (a FloatAttr) String() string {
	return strconv.FormatFloat(a.Value, 'g', -1, 64) + " : " + a.Type.String()
}

// StringAttr is a string constant.
type StringAttr string

func (StringAttr) attr() {}

func (a StringAttr) String() string {
	return strconv.Quote(string(a))
}

// AttrEqual reports whether two attributes carry the same constant.
func AttrEqual(a, b Attr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

// AttrMap holds a node's named attributes. Use SortedKeys for
// deterministic iteration.
type AttrMap map[string]Attr

// SortedKeys returns the attribute names in lexicographic order.
func (m AttrMap) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Clone returns an independent copy of the map. Attribute values are
// immutable and shared.
func (m AttrMap) Clone() AttrMap {
	if m == nil {
		return nil
	}
	out := make(AttrMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// AttrKeyValue is the conventional attribute name under which
// constant-like nodes carry their folded payload.
const AttrKeyValue = "value"
