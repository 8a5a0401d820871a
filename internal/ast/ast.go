// Package ast defines the declaration tree produced by internal/frontend.
//
// It stands in for the typed tree a real systems-language front end would
// hand to an AST consumer: namespaces, records, enums, functions, variables,
// attributes and template-id types. It understands only the annotated-source
// subset FremGen needs to walk; it performs no semantic analysis of function
// bodies.
package ast

import "github.com/andsch11/fremgen/internal/position"

// Node is implemented by every tree element that carries a source span.
type Node interface {
	Span() position.Span
}

// Decl is implemented by every top-level or nested declaration.
type Decl interface {
	Node
	declNode()
}

// Expr is implemented by every constant expression the frontend can parse:
// attribute and annotation-constructor arguments, enumerator initializers.
type Expr interface {
	Node
	exprNode()
}

// Type is implemented by every type reference the frontend can parse.
type Type interface {
	Node
	typeNode()
}

// QualifiedName is a dotted/double-colon namespace-qualified identifier,
// stored as its individual path components.
type QualifiedName struct {
	Parts []string
}

// NewQualifiedName builds a QualifiedName from individual path components.
func NewQualifiedName(parts ...string) QualifiedName {
	return QualifiedName{Parts: parts}
}

// Join renders the qualified name using sep between components.
func (q QualifiedName) Join(sep string) string {
	out := ""
	for i, p := range q.Parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}

// Name returns the last path component (the unqualified name).
func (q QualifiedName) Name() string {
	if len(q.Parts) == 0 {
		return ""
	}
	return q.Parts[len(q.Parts)-1]
}

// Namespace returns the path components excluding the unqualified name.
func (q QualifiedName) Namespace() []string {
	if len(q.Parts) == 0 {
		return nil
	}
	return q.Parts[:len(q.Parts)-1]
}

// Attribute represents one annotation attached to a declaration, e.g. an
// injected `_frem_rpc:<group>` tag or a user-written macro expansion marker.
type Attribute struct {
	SpanVal position.Span
	Name    string
	Args    []Expr
}

func (a *Attribute) Span() position.Span { return a.SpanVal }

// Program is the root of a single parsed translation unit.
type Program struct {
	SpanVal  position.Span
	FileName string
	Decls    []Decl
}

func (p *Program) Span() position.Span { return p.SpanVal }

// Namespace groups declarations under a namespace path.
type Namespace struct {
	SpanVal position.Span
	Name    QualifiedName
	Decls   []Decl
}

func (n *Namespace) Span() position.Span { return n.SpanVal }
func (n *Namespace) declNode()           {}

// RecordKind distinguishes struct/class from union declarations.
type RecordKind int

const (
	RecordStruct RecordKind = iota
	RecordUnion
)

// Field is a data member of a RecordDecl.
type Field struct {
	SpanVal position.Span
	Name    string
	Type    Type
}

func (f *Field) Span() position.Span { return f.SpanVal }

// BaseSpec is one base class listed in a RecordDecl's base-class list,
// including any template arguments (used to recognize the
// ConfigurationVersion<N> marker base).
type BaseSpec struct {
	Name QualifiedName
	Args []TemplateArg
}

// RecordDecl is a struct, class or union declaration.
type RecordDecl struct {
	SpanVal             position.Span
	Name                QualifiedName
	Kind                RecordKind
	Bases               []BaseSpec
	TemplateArgs        []Type // non-nil only for a template specialization site
	Fields              []*Field
	Methods             []*FunctionDecl
	// BodyDecls holds the record body's method and annotation-fragment
	// variable declarations in source order, the shape Walk dispatches
	// over. A FREM_RPC(...) invocation on a member function expands to
	// synthetic VarDecls directly inside the class body, ahead of the
	// method they annotate; Methods alone has no place to put those.
	BodyDecls           []Decl
	IsForwardDecl       bool
	IsTriviallyCopyable bool
	Attributes          []*Attribute
}

func (r *RecordDecl) Span() position.Span { return r.SpanVal }
func (r *RecordDecl) declNode()           {}

// EnumConstant is one named value of an EnumDecl.
type EnumConstant struct {
	SpanVal position.Span
	Name    string
	Value   int64
}

func (e *EnumConstant) Span() position.Span { return e.SpanVal }

// EnumDecl is an enum declaration with an explicit underlying type.
type EnumDecl struct {
	SpanVal        position.Span
	Name           QualifiedName
	UnderlyingType string
	Constants      []*EnumConstant
}

func (e *EnumDecl) Span() position.Span { return e.SpanVal }
func (e *EnumDecl) declNode()           {}

// ParamDirection classifies a parameter's data flow.
type ParamDirection int

const (
	DirIn ParamDirection = iota
	DirOut
)

// Param is one parameter of a FunctionDecl.
type Param struct {
	SpanVal   position.Span
	Name      string
	Type      Type
	Direction ParamDirection
	IsPointer bool
}

func (p *Param) Span() position.Span { return p.SpanVal }

// FunctionKind classifies how a function is invoked.
type FunctionKind int

const (
	FuncFree FunctionKind = iota
	FuncStatic
	FuncMember
)

// FunctionDecl is a free, static or member function declaration.
type FunctionDecl struct {
	SpanVal        position.Span
	Name           QualifiedName
	OwningRecord   *QualifiedName // non-nil for static/member functions
	Kind           FunctionKind
	Params         []*Param
	ReturnType     Type
	IsNoexcept     bool
	IsConst        bool
	IsTemplate     bool
	IsInstantiated bool
	Attributes     []*Attribute
	DocComment     string
}

func (f *FunctionDecl) Span() position.Span { return f.SpanVal }
func (f *FunctionDecl) declNode()           {}

// VarKind distinguishes the shapes of variable declaration the harvester
// has to classify.
type VarKind int

const (
	VarPlain VarKind = iota
)

// VarDecl is a variable (or constexpr value) declaration, used both for
// user source and for the rewriter's synthetic annotation-fragment
// declarations.
type VarDecl struct {
	SpanVal    position.Span
	Name       QualifiedName
	Type       Type
	Init       Expr
	Attributes []*Attribute
}

func (v *VarDecl) Span() position.Span { return v.SpanVal }
func (v *VarDecl) declNode()           {}

// BasicType is a non-template named type (builtins, plain user records).
type BasicType struct {
	SpanVal position.Span
	Name    QualifiedName
	IsConst bool
}

func (b *BasicType) Span() position.Span { return b.SpanVal }
func (b *BasicType) typeNode()           {}

// TemplateArg is one argument to a TemplateType: either a nested Type or a
// constant expression (used for std::array<T, N> style non-type arguments).
type TemplateArg struct {
	Type Type
	Expr Expr
}

// TemplateType is a template-id type such as frem::Array<T, Bounded<1,8>>.
type TemplateType struct {
	SpanVal position.Span
	Name    QualifiedName
	Args    []TemplateArg
	IsConst bool
}

func (t *TemplateType) Span() position.Span { return t.SpanVal }
func (t *TemplateType) typeNode()           {}

// PointerType is a raw pointer to another type.
type PointerType struct {
	SpanVal position.Span
	Elem    Type
}

func (p *PointerType) Span() position.Span { return p.SpanVal }
func (p *PointerType) typeNode()           {}

// ReferenceType is an lvalue reference to another type.
type ReferenceType struct {
	SpanVal position.Span
	Elem    Type
	IsConst bool
}

func (r *ReferenceType) Span() position.Span { return r.SpanVal }
func (r *ReferenceType) typeNode()           {}

// Literal is a constant scalar expression: string, integer, float or bool.
type Literal struct {
	SpanVal position.Span
	Kind    LiteralKind
	Str     string
	Int     int64
	Float   float64
	Bool    bool
}

func (l *Literal) Span() position.Span { return l.SpanVal }
func (l *Literal) exprNode()           {}

// LiteralKind tags the payload field of a Literal that is populated.
type LiteralKind int

const (
	LitString LiteralKind = iota
	LitInt
	LitFloat
	LitBool
)

// IdentExpr is a bare identifier used as an expression (e.g. an enumerator
// reference inside an attribute argument list).
type IdentExpr struct {
	SpanVal position.Span
	Name    QualifiedName
}

func (i *IdentExpr) Span() position.Span { return i.SpanVal }
func (i *IdentExpr) exprNode()           {}

// CallExpr is a constructor-style call such as Code(5) or Tags("a", "b"),
// the shape every frem annotation marker takes in source.
type CallExpr struct {
	SpanVal position.Span
	Callee  QualifiedName
	Args    []Expr
}

func (c *CallExpr) Span() position.Span { return c.SpanVal }
func (c *CallExpr) exprNode()           {}
