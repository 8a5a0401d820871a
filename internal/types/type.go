// Package types implements the type registry (component A): a tagged
// type graph of every builtin, enum, struct and composite type
// encountered while extracting a translation unit, keyed by fully
// qualified name and a content hash of that name.
package types

import "github.com/andsch11/fremgen/internal/position"

// Kind discriminates the shape of an InterfaceType.
type Kind int

const (
	KindNone Kind = iota
	KindBuiltIn
	KindEnum
	KindStruct
	KindFixedArray
	KindBoundedArray
	KindFixedString
	KindBoundedString
	KindOptional
	KindVariant
	KindFuture
)

// String renders the Kind using the lower-camel names the YAML binding
// layer writes for InterfaceType::Kind.
func (k Kind) String() string {
	switch k {
	case KindBuiltIn:
		return "builtin"
	case KindEnum:
		return "enum"
	case KindStruct:
		return "struct"
	case KindFixedArray:
		return "fixedArray"
	case KindBoundedArray:
		return "boundedArray"
	case KindFixedString:
		return "fixedString"
	case KindBoundedString:
		return "boundedString"
	case KindOptional:
		return "optional"
	case KindVariant:
		return "variant"
	case KindFuture:
		return "future"
	default:
		return "none"
	}
}

// EnumConstant is one named value of an enum InterfaceType.
type EnumConstant struct {
	Name  string
	Value int64
}

// StructField is one data member of a struct InterfaceType.
type StructField struct {
	Name string
	Type *InterfaceType
}

// InterfaceType is the tagged type graph node every registered or
// referenced type is represented as. Only the fields relevant to Kind
// are populated; which ones those are is determined entirely by Kind,
// not by which fields happen to be non-zero.
type InterfaceType struct {
	Hash               uint32
	FullyQualifiedName string
	// ID is the display name written wherever this type is referenced:
	// the alias set by FREM_TYPE_ALIAS if one applies, else
	// FullyQualifiedName. Register initializes it to FullyQualifiedName;
	// Registry.SetAlias overwrites it on the target type.
	ID                  string
	Kind                Kind
	DeclarationLocation position.Position
	ExpositionLocation  position.Position

	// KindEnum
	EnumUnderlying string
	EnumConstants  []EnumConstant

	// KindStruct
	Fields               []StructField
	ConfigurationVersion int // 0 when the struct does not derive ConfigurationVersion<N>

	// KindFixedArray / KindBoundedArray / KindFixedString / KindBoundedString
	Element  *InterfaceType // array element type, or the string's char type
	SizeType *InterfaceType // bounded kinds' size_type, nil for fixed kinds
	Size     uint64         // fixed kinds
	MinSize  uint64         // bounded kinds
	MaxSize  uint64         // bounded kinds

	// KindOptional / KindFuture
	Underlying *InterfaceType

	// KindVariant
	Alternatives []*InterfaceType
}

// IsNamed reports whether t is one of the kinds the registry stores by
// fully qualified name (builtin, enum, struct). Composite kinds are
// anonymous and never appear in the registry's own serialized type list;
// they are rebuilt inline wherever they're referenced instead.
func (t *InterfaceType) IsNamed() bool {
	switch t.Kind {
	case KindBuiltIn, KindEnum, KindStruct:
		return true
	default:
		return false
	}
}
