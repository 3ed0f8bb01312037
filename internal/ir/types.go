package ir

import "fmt"

// TypeKind discriminates the built-in type families.
type TypeKind uint8

const (
	KindInvalid TypeKind = iota
	KindInt               // fixed-width signless integer
	KindFloat             // IEEE-754 binary float
	KindNone              // unit type for valueless results
)

// Type is a value type. Types are small and compared by value.
type Type struct {
	Kind TypeKind
	Bits int
}

// Built-in types used throughout the dialects.
var (
	I1   = Type{Kind: KindInt, Bits: 1}
	I8   = Type{Kind: KindInt, Bits: 8}
	I16  = Type{Kind: KindInt, Bits: 16}
	I32  = Type{Kind: KindInt, Bits: 32}
	I64  = Type{Kind: KindInt, Bits: 64}
	F32  = Type{Kind: KindFloat, Bits: 32}
	F64  = Type{Kind: KindFloat, Bits: 64}
	None = Type{Kind: KindNone}
)

// IntType returns the signless integer type of the given width.
func IntType(bits int) Type { return Type{Kind: KindInt, Bits: bits} }

func (t Type) String() string {
	switch t.Kind {
	case KindInt:
		return fmt.Sprintf("i%d", t.Bits)
	case KindFloat:
		return fmt.Sprintf("f%d", t.Bits)
	case KindNone:
		return "none"
	default:
		return "invalid"
	}
}

// ParseType parses the textual form produced by Type.String.
func ParseType(s string) (Type, error) {
	if s == "none" {
		return None, nil
	}
	if len(s) < 2 {
		return Type{}, fmt.Errorf("malformed type %q", s)
	}
	var kind TypeKind
	switch s[0] {
	case 'i':
		kind = KindInt
	case 'f':
		kind = KindFloat
	default:
		return Type{}, fmt.Errorf("malformed type %q", s)
	}
	bits := 0
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return Type{}, fmt.Errorf("malformed type %q", s)
		}
		bits = bits*10 + int(c-'0')
		if bits > 1<<16 {
			return Type{}, fmt.Errorf("type width out of range in %q", s)
		}
	}
	if bits == 0 {
		return Type{}, fmt.Errorf("malformed type %q", s)
	}
	if kind == KindFloat && bits != 32 && bits != 64 {
		return Type{}, fmt.Errorf("unsupported float width in %q", s)
	}
	return Type{Kind: kind, Bits: bits}, nil
}
