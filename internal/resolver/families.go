package resolver

import (
	"fmt"

	"github.com/andsch11/fremgen/internal/ast"
	"github.com/andsch11/fremgen/internal/diagnostic"
	"github.com/andsch11/fremgen/internal/extractctx"
	"github.com/andsch11/fremgen/internal/types"
)

// registerTemplateType dispatches a template-id type to the family it
// belongs to: fixed/bounded arrays, fixed/bounded strings, optional,
// variant, or future/shared_future.
func registerTemplateType(ctx *extractctx.Context, t *ast.TemplateType, stack Stack) (*types.InterfaceType, error) {
	name := t.Name.Join("::")
	switch name {
	case "std::array":
		return registerFixedArrayStd(ctx, t, stack)
	case "frem::Array":
		return registerGenericArray(ctx, t, stack)
	case "frem::BoundedArray":
		return registerBoundedArrayShorthand(ctx, t, stack)
	case "frem::FixedBasicString", "frem::FixedString":
		return registerFixedString(ctx, t)
	case "frem::BoundedBasicString", "frem::BoundedString":
		return registerBoundedString(ctx, t)
	case "std::future", "nsp::Future", "std::shared_future", "nsp::SharedFuture":
		return registerFuture(ctx, t, stack)
	case "std::optional":
		return registerOptional(ctx, t, stack)
	case "std::variant":
		return registerVariant(ctx, t, stack)
	default:
		ctx.Diags.Errorf(diagnostic.CategoryUnknownType, t.Span(), "unrecognized template type %q", name)
		return nil, fmt.Errorf("unrecognized template type %q", name)
	}
}

func resolveArgType(ctx *extractctx.Context, arg ast.TemplateArg, stack Stack) (*types.InterfaceType, error) {
	if arg.Type == nil {
		return nil, fmt.Errorf("expected a type template argument, got a value")
	}
	return RegisterType(ctx, arg.Type, stack)
}

func argInt(arg ast.TemplateArg) (int64, bool) {
	lit, ok := arg.Expr.(*ast.Literal)
	if !ok || lit.Kind != ast.LitInt {
		return 0, false
	}
	return lit.Int, true
}

func builtin(ctx *extractctx.Context, name string) *types.InterfaceType {
	t, _ := ctx.Registry.Lookup(name)
	return t
}

func registerFixedArrayStd(ctx *extractctx.Context, t *ast.TemplateType, stack Stack) (*types.InterfaceType, error) {
	if len(t.Args) != 2 {
		return nil, fmt.Errorf("%s: std::array expects 2 template arguments", t.Span().Start)
	}
	elem, err := resolveArgType(ctx, t.Args[0], stack)
	if err != nil {
		return nil, err
	}
	size, ok := argInt(t.Args[1])
	if !ok {
		return nil, fmt.Errorf("%s: std::array's second argument must be an integer size", t.Span().Start)
	}
	return &types.InterfaceType{
		FullyQualifiedName: fmt.Sprintf("std::array<%s,%d>", elem.FullyQualifiedName, size),
		Kind:               types.KindFixedArray,
		Element:            elem,
		Size:               uint64(size),
	}, nil
}

// registerGenericArray resolves frem::Array<TType, TSizePolicy>. The
// namespace check below tests the array template's own declaration
// (always frem, so it never fails) rather than the size policy's
// declaration, a known quirk preserved as-is: the warning can never
// actually fire, since t.Name is always frem::Array.
func registerGenericArray(ctx *extractctx.Context, t *ast.TemplateType, stack Stack) (*types.InterfaceType, error) {
	if len(t.Args) != 2 {
		return nil, fmt.Errorf("%s: frem::Array expects 2 template arguments", t.Span().Start)
	}
	elem, err := resolveArgType(ctx, t.Args[0], stack)
	if err != nil {
		return nil, err
	}
	policy, ok := t.Args[1].Type.(*ast.TemplateType)
	if !ok {
		return nil, fmt.Errorf("%s: frem::Array's second argument must be a size policy template", t.Span().Start)
	}
	if len(t.Name.Namespace()) == 0 || t.Name.Namespace()[0] != "frem" {
		ctx.Diags.Warnf(diagnostic.CategoryUnknownType, t.Span(), "array size policy must be declared in the containers namespace")
	}

	switch policy.Name.Name() {
	case "Fixed":
		if len(policy.Args) != 1 {
			return nil, fmt.Errorf("%s: Fixed expects 1 template argument", policy.Span().Start)
		}
		size, ok := argInt(policy.Args[0])
		if !ok {
			return nil, fmt.Errorf("%s: Fixed's argument must be an integer size", policy.Span().Start)
		}
		return &types.InterfaceType{
			FullyQualifiedName: fmt.Sprintf("frem::Array<%s,Fixed<%d>>", elem.FullyQualifiedName, size),
			Kind:               types.KindFixedArray,
			Element:            elem,
			Size:               uint64(size),
		}, nil
	case "Bounded":
		if len(policy.Args) < 2 {
			return nil, fmt.Errorf("%s: Bounded expects at least 2 template arguments", policy.Span().Start)
		}
		min, _ := argInt(policy.Args[0])
		max, _ := argInt(policy.Args[1])
		sizeType := builtin(ctx, "uint16_t")
		if len(policy.Args) >= 3 {
			st, err := resolveArgType(ctx, policy.Args[2], stack)
			if err == nil {
				sizeType = st
			}
		}
		return &types.InterfaceType{
			FullyQualifiedName: fmt.Sprintf("frem::Array<%s,Bounded<%d,%d>>", elem.FullyQualifiedName, min, max),
			Kind:               types.KindBoundedArray,
			Element:            elem,
			SizeType:           sizeType,
			MinSize:            uint64(min),
			MaxSize:            uint64(max),
		}, nil
	default:
		return nil, fmt.Errorf("%s: unrecognized size policy %q", policy.Span().Start, policy.Name.Join("::"))
	}
}

func registerBoundedArrayShorthand(ctx *extractctx.Context, t *ast.TemplateType, stack Stack) (*types.InterfaceType, error) {
	if len(t.Args) < 3 {
		return nil, fmt.Errorf("%s: frem::BoundedArray expects 3 template arguments", t.Span().Start)
	}
	elem, err := resolveArgType(ctx, t.Args[0], stack)
	if err != nil {
		return nil, err
	}
	min, _ := argInt(t.Args[1])
	max, _ := argInt(t.Args[2])
	return &types.InterfaceType{
		FullyQualifiedName: fmt.Sprintf("frem::BoundedArray<%s,%d,%d>", elem.FullyQualifiedName, min, max),
		Kind:               types.KindBoundedArray,
		Element:            elem,
		SizeType:           builtin(ctx, "uint16_t"),
		MinSize:            uint64(min),
		MaxSize:            uint64(max),
	}, nil
}

func registerFixedString(ctx *extractctx.Context, t *ast.TemplateType) (*types.InterfaceType, error) {
	if len(t.Args) != 1 {
		return nil, fmt.Errorf("%s: fixed string expects 1 template argument", t.Span().Start)
	}
	size, ok := argInt(t.Args[0])
	if !ok {
		return nil, fmt.Errorf("%s: fixed string's argument must be an integer size", t.Span().Start)
	}
	return &types.InterfaceType{
		FullyQualifiedName: fmt.Sprintf("frem::FixedBasicString<%d>", size),
		Kind:               types.KindFixedString,
		Element:            builtin(ctx, "char"),
		Size:               uint64(size),
	}, nil
}

func registerBoundedString(ctx *extractctx.Context, t *ast.TemplateType) (*types.InterfaceType, error) {
	if len(t.Args) < 2 {
		return nil, fmt.Errorf("%s: bounded string expects 2 template arguments", t.Span().Start)
	}
	min, _ := argInt(t.Args[0])
	max, _ := argInt(t.Args[1])
	return &types.InterfaceType{
		FullyQualifiedName: fmt.Sprintf("frem::BoundedBasicString<%d,%d>", min, max),
		Kind:               types.KindBoundedString,
		Element:            builtin(ctx, "char"),
		SizeType:           builtin(ctx, "uint16_t"),
		MinSize:            uint64(min),
		MaxSize:            uint64(max),
	}, nil
}

func registerFuture(ctx *extractctx.Context, t *ast.TemplateType, stack Stack) (*types.InterfaceType, error) {
	if len(t.Args) != 1 {
		return nil, fmt.Errorf("%s: future expects 1 template argument", t.Span().Start)
	}
	underlying, err := resolveArgType(ctx, t.Args[0], stack)
	if err != nil {
		return nil, err
	}
	return &types.InterfaceType{
		FullyQualifiedName: fmt.Sprintf("%s<%s>", t.Name.Join("::"), underlying.FullyQualifiedName),
		Kind:               types.KindFuture,
		Underlying:         underlying,
	}, nil
}

func registerOptional(ctx *extractctx.Context, t *ast.TemplateType, stack Stack) (*types.InterfaceType, error) {
	if len(t.Args) != 1 {
		return nil, fmt.Errorf("%s: std::optional expects 1 template argument", t.Span().Start)
	}
	underlying, err := resolveArgType(ctx, t.Args[0], stack)
	if err != nil {
		return nil, err
	}
	return &types.InterfaceType{
		FullyQualifiedName: fmt.Sprintf("std::optional<%s>", underlying.FullyQualifiedName),
		Kind:               types.KindOptional,
		Underlying:         underlying,
	}, nil
}

func registerVariant(ctx *extractctx.Context, t *ast.TemplateType, stack Stack) (*types.InterfaceType, error) {
	if len(t.Args) == 0 {
		return nil, fmt.Errorf("%s: std::variant expects at least 1 template argument", t.Span().Start)
	}
	var alts []*types.InterfaceType
	var names []string
	for _, arg := range t.Args {
		alt, err := resolveArgType(ctx, arg, stack)
		if err != nil {
			return nil, err
		}
		alts = append(alts, alt)
		names = append(names, alt.FullyQualifiedName)
	}
	return &types.InterfaceType{
		FullyQualifiedName: fmt.Sprintf("std::variant<%v>", names),
		Kind:               types.KindVariant,
		Alternatives:       alts,
	}, nil
}
