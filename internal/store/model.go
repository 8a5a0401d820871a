// Package store implements the parse result store (component B): the
// accumulator that collects every RPC function, configuration, socket,
// error descriptor and return value discovered while extracting one or
// more translation units.
package store

import (
	"github.com/andsch11/fremgen/internal/position"
	"github.com/andsch11/fremgen/internal/types"
)

// Direction classifies a parameter's data flow, derived from whether
// its declared type is a non-const lvalue reference.
type Direction int

const (
	DirIn Direction = iota
	DirOut
)

// TypeUse captures both the resolved InterfaceType of a declared type
// and the raw spellings the harvester recovered from source, which the
// YAML output preserves verbatim alongside the structured reference.
type TypeUse struct {
	Type               *types.InterfaceType
	FullyQualifiedType string
	DecayedType        string
}

// ReturnType is the return side of an RpcFunction.
type ReturnType struct {
	TypeUse
}

// Parameter is one parameter of an RpcFunction.
type Parameter struct {
	Name      string
	Direction Direction
	TypeUse
}

// FunctionKind classifies how an RpcFunction is invoked.
type FunctionKind int

const (
	KindFree FunctionKind = iota
	KindStatic
	KindMember
)

// Invokee describes how to reach the instance a member RpcFunction is
// called on.
type Invokee struct {
	Expression string
	IsPointer  bool
}

// Annotation holds the FREM_RPC(...) marker values attached to a
// function: its numeric code, transport channel, extra tags, optional
// alias and optional return-variable name.
type Annotation struct {
	Code       uint32
	Alias      string
	Via        string
	Tags       []string
	ReturnName string
	// Location is where the FREM_RPC(...) invocation itself appeared.
	// VisitFunction compares its file against the annotated function's
	// own file and skips the function if they differ.
	Location position.Position
}

// RpcFunction is one extracted remote procedure call.
type RpcFunction struct {
	ID                 string
	Annotation         Annotation
	ReturnType         ReturnType
	Parameters         []Parameter
	DocString          string
	Kind               FunctionKind
	FullyQualifiedName string
	FileName           string
	Line               int
	IsNoexcept         bool
	Qualifiers         []string
	Invokee            *Invokee
	Registerable       bool
}

// ReturnValue is a named constant belonging to the frem::RpcResult
// value space (frem::RpcResultDecl declarations).
type ReturnValue struct {
	ID    string
	Value int64
}

// TypeRefWithVersion pairs a configuration's stored type with the
// schema version it was introduced in.
type TypeRefWithVersion struct {
	Version uint32
	Type    *types.InterfaceType
}

// Configuration is an extracted frem::ConfigurationDeclarator<...>.
type Configuration struct {
	ID           string
	VersionTypes []TypeRefWithVersion
	SetCode      uint32
	GetCode      uint32
	VersionCode  uint32
	Tags         []string
	FileName     string
	Line         int
}

// ErrorDescriptor is an extracted error/diagnostic descriptor.
type ErrorDescriptor struct {
	ID          string
	Value       int64
	Description string
	ServiceText string
	UserText    string
	Comment     string
}

// Socket is an extracted frem::DatagramSocketDeclarator<...>.
type Socket struct {
	ID         string
	Port       uint16
	PacketType *types.InterfaceType
	Tags       []string
}
