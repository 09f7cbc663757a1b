// Package types defines the declaration schema the compiler resolves
// variables against: primitive and reference type descriptors, declaration
// tables, and the MAP/LIST/POJO context kinds.
package types

import "fmt"

// PrimitiveTag enumerates the primitive kinds a Descriptor may carry.
type PrimitiveTag byte

const (
	Int PrimitiveTag = iota
	Long
	Short
	Byte
	Char
	Float
	Double
	Boolean
)

var primitiveNames = [...]string{
	Int: "int", Long: "long", Short: "short", Byte: "byte",
	Char: "char", Float: "float", Double: "double", Boolean: "boolean",
}

func (p PrimitiveTag) String() string {
	if int(p) < len(primitiveNames) {
		return primitiveNames[p]
	}
	return "unknown"
}

// Width64 reports whether the primitive occupies two consecutive local
// slots under the target ABI (long and double).
func (p PrimitiveTag) Width64() bool {
	return p == Long || p == Double
}

// IsIntegral reports whether p participates in the integral half of the
// numeric widening lattice.
func (p PrimitiveTag) IsIntegral() bool {
	switch p {
	case Int, Long, Short, Byte, Char:
		return true
	}
	return false
}

// IsFloating reports whether p participates in the floating half of the
// numeric widening lattice.
func (p PrimitiveTag) IsFloating() bool {
	return p == Float || p == Double
}

// rank orders primitives on the double > float > long > int widening
// lattice; smaller integral types all rank at int.
func (p PrimitiveTag) rank() int {
	switch p {
	case Double:
		return 4
	case Float:
		return 3
	case Long:
		return 2
	default:
		return 1
	}
}

// Widen returns the wider of a and b under the double > float > long > int
// lattice.
func Widen(a, b PrimitiveTag) PrimitiveTag {
	if a.rank() >= b.rank() {
		if a.rank() == 1 {
			return Int
		}
		return a
	}
	if b.rank() == 1 {
		return Int
	}
	return b
}

// Kind discriminates a Descriptor's representation.
type Kind byte

const (
	KindPrimitive Kind = iota
	KindReference
	// KindUnresolvedGeneric is retained only for the fallback path: a
	// parameterized reference type the direct emitter never needs to
	// resolve precisely.
	KindUnresolvedGeneric
)

// Descriptor is a TypeDescriptor: either a primitive tag or a reference
// class name (fully qualified), or — for the fallback path only — an
// unresolved generic string.
type Descriptor struct {
	Kind      Kind
	Primitive PrimitiveTag
	FQCN      string
}

func Prim(tag PrimitiveTag) Descriptor { return Descriptor{Kind: KindPrimitive, Primitive: tag} }

func Ref(fqcn string) Descriptor { return Descriptor{Kind: KindReference, FQCN: fqcn} }

func UnresolvedGeneric(raw string) Descriptor {
	return Descriptor{Kind: KindUnresolvedGeneric, FQCN: raw}
}

func (d Descriptor) IsPrimitive() bool { return d.Kind == KindPrimitive }

func (d Descriptor) String() string {
	switch d.Kind {
	case KindPrimitive:
		return d.Primitive.String()
	case KindUnresolvedGeneric:
		return d.FQCN + " (unresolved generic)"
	default:
		return d.FQCN
	}
}

func (d Descriptor) Equal(o Descriptor) bool {
	if d.Kind != o.Kind {
		return false
	}
	switch d.Kind {
	case KindPrimitive:
		return d.Primitive == o.Primitive
	default:
		return d.FQCN == o.FQCN
	}
}

// ContextKind names the MAP, LIST and POJO context kinds. No compilation
// or evaluation path reads it: a request carries no context kind, and both
// evaluators bind every name by its declared name.
type ContextKind byte

const (
	Map ContextKind = iota
	List
	POJO
)

func (k ContextKind) String() string {
	switch k {
	case Map:
		return "MAP"
	case List:
		return "LIST"
	case POJO:
		return "POJO"
	default:
		return "UNKNOWN"
	}
}

// Declaration is a (name, type) pair.
type Declaration struct {
	Name string
	Type Descriptor
}

// DeclTable is the ordered sequence of Declarations plus the single
// context declaration (the receiver). Order fixes each declaration's
// positional index and, in the direct emitter, its local slot; names are
// not resolved by position.
type DeclTable struct {
	Context Declaration
	Decls   []Declaration
}

// Lookup resolves name to its declared type and its positional index
// within Decls (LIST context needs the index; MAP/POJO context ignores it).
func (t *DeclTable) Lookup(name string) (Descriptor, int, bool) {
	for i, d := range t.Decls {
		if d.Name == name {
			return d.Type, i, true
		}
	}
	return Descriptor{}, -1, false
}

// ContentKind distinguishes a single expression from a statement block.
type ContentKind byte

const (
	Expression ContentKind = iota
	Block
)

func (k ContentKind) String() string {
	if k == Block {
		return "BLOCK"
	}
	return "EXPRESSION"
}

// ErrUnknownName is returned by Lookup callers that need a formatted error
// for a name absent from the declaration table.
func ErrUnknownName(name string) error {
	return fmt.Errorf("undeclared name %q", name)
}
