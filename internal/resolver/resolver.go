// Package resolver implements the type resolver (component E): it turns
// a declared ast.Type into a fully resolved types.InterfaceType,
// recursively registering struct and enum definitions the first time
// they are encountered and recognizing the fixed set of template
// families (arrays, strings, optional, variant, future) FremGen gives
// special serialized shapes to.
package resolver

import (
	"fmt"

	"github.com/andsch11/fremgen/internal/ast"
	"github.com/andsch11/fremgen/internal/diagnostic"
	"github.com/andsch11/fremgen/internal/extractctx"
	"github.com/andsch11/fremgen/internal/types"
)

// Stack is the in-progress recursion stack RegisterType and
// RegisterStruct use to detect cyclic value-type containment (a struct
// that, through some chain of by-value fields, contains itself).
type Stack map[string]bool

// RegisterType resolves declaredType into an InterfaceType, dispatching
// on its frontend shape: a plain name is looked up in the registry, a
// template-id is matched against the known container/optional/variant/
// future families, and pointers/references/const are stripped to reach
// the underlying named or template type they qualify.
func RegisterType(ctx *extractctx.Context, declaredType ast.Type, stack Stack) (*types.InterfaceType, error) {
	switch t := declaredType.(type) {
	case *ast.PointerType:
		return RegisterType(ctx, t.Elem, stack)
	case *ast.ReferenceType:
		return RegisterType(ctx, t.Elem, stack)
	case *ast.BasicType:
		name := t.Name.Join("::")
		ty, ok := ctx.Registry.Lookup(name)
		if !ok {
			ctx.Diags.Errorf(diagnostic.CategoryUnknownType, t.Span(), "reference to unknown type %q", name)
			return nil, fmt.Errorf("unknown type %q", name)
		}
		return ty, nil
	case *ast.TemplateType:
		return registerTemplateType(ctx, t, stack)
	default:
		return nil, fmt.Errorf("%s: unsupported type form", declaredType.Span().Start)
	}
}

// RegisterStruct builds and registers the InterfaceType for rec,
// recursively resolving its field types. Each direct base class
// contributes the fields of its already-registered struct type (which
// include whatever that base inherited when it was registered); a base
// that is not registered yet contributes no fields.
func RegisterStruct(ctx *extractctx.Context, rec *ast.RecordDecl, stack Stack) (*types.InterfaceType, error) {
	fqn := rec.Name.Join("::")

	if existing, ok := ctx.Registry.Lookup(fqn); ok && existing.Kind == types.KindStruct {
		return existing, nil
	}

	if rec.Kind == ast.RecordUnion {
		ctx.Diags.Warnf(diagnostic.CategoryUnionRejected, rec.Span(), "union %q cannot be extracted, ignoring", fqn)
		return nil, fmt.Errorf("union %q is not extractable", fqn)
	}
	if rec.IsForwardDecl {
		return nil, fmt.Errorf("forward declaration %q has no definition to register", fqn)
	}
	if len(rec.Fields) == 0 && len(rec.Bases) == 0 {
		ctx.Diags.Errorf(diagnostic.CategoryEmptyStruct, rec.Span(), "struct %q has no data members", fqn)
		return nil, fmt.Errorf("empty struct %q", fqn)
	}
	if !rec.IsTriviallyCopyable {
		ctx.Diags.Warnf(diagnostic.CategoryNotTriviallyCopyable, rec.Span(), "struct %q is not trivially copyable", fqn)
	}
	if stack[fqn] {
		ctx.Diags.Errorf(diagnostic.CategoryCycle, rec.Span(), "type %q contains itself by value", fqn)
		return nil, fmt.Errorf("cyclic type %q", fqn)
	}
	stack[fqn] = true
	defer delete(stack, fqn)

	out := &types.InterfaceType{FullyQualifiedName: fqn, Kind: types.KindStruct, DeclarationLocation: rec.Span().Start}

	// Base-class field inheritance: only direct bases are looked at (a
	// base's own bases are not visited here), and a ConfigurationVersion<N>
	// base sets this struct's ConfigurationVersion instead of adding fields.
	for _, base := range rec.Bases {
		baseName := base.Name.Join("::")
		if v, ok := configurationVersionArg(baseName, base.Args); ok {
			out.ConfigurationVersion = v
			continue
		}
		if baseType, ok := ctx.Registry.Lookup(baseName); ok && baseType.Kind == types.KindStruct {
			out.Fields = append(out.Fields, baseType.Fields...)
		}
	}

	for _, f := range rec.Fields {
		ft, err := RegisterType(ctx, f.Type, stack)
		if err != nil {
			continue
		}
		out.Fields = append(out.Fields, types.StructField{Name: f.Name, Type: ft})
	}

	ctx.Registry.Register(out)
	return out, nil
}

// RegisterEnum builds and registers the InterfaceType for e.
func RegisterEnum(ctx *extractctx.Context, e *ast.EnumDecl) (*types.InterfaceType, error) {
	fqn := e.Name.Join("::")
	if existing, ok := ctx.Registry.Lookup(fqn); ok && existing.Kind == types.KindEnum {
		return existing, nil
	}
	out := &types.InterfaceType{
		FullyQualifiedName:  fqn,
		Kind:                types.KindEnum,
		EnumUnderlying:      e.UnderlyingType,
		DeclarationLocation: e.Span().Start,
	}
	for _, c := range e.Constants {
		out.EnumConstants = append(out.EnumConstants, types.EnumConstant{Name: c.Name, Value: c.Value})
	}
	ctx.Registry.Register(out)
	return out, nil
}

// configurationVersionArg recognizes a base-class spelling of
// "frem::ConfigurationVersion<N>" or "ConfigurationVersion<N>" and
// extracts its non-type template argument N.
func configurationVersionArg(baseName string, args []ast.TemplateArg) (int, bool) {
	if baseName != "ConfigurationVersion" && baseName != "frem::ConfigurationVersion" {
		return 0, false
	}
	if len(args) != 1 || args[0].Expr == nil {
		return 0, false
	}
	lit, ok := args[0].Expr.(*ast.Literal)
	if !ok || lit.Kind != ast.LitInt {
		return 0, false
	}
	return int(lit.Int), true
}
