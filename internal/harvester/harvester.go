// Package harvester implements the syntax-tree harvester (component D):
// it walks a parsed ast.Program, reassembles the scattered annotation
// fragments internal/rewriter injected back into whole Annotation
// records, and extracts RPC functions, configurations, sockets, type
// aliases, error descriptors and return-value constants into the
// extraction context's store.
package harvester

import (
	"fmt"

	"github.com/andsch11/fremgen/internal/ast"
	"github.com/andsch11/fremgen/internal/diagnostic"
	"github.com/andsch11/fremgen/internal/extractctx"
	"github.com/andsch11/fremgen/internal/resolver"
	"github.com/andsch11/fremgen/internal/rewriter"
	"github.com/andsch11/fremgen/internal/store"
)

// Harvester implements ast.Visitor over one translation unit's
// declaration tree.
type Harvester struct {
	ctx      *extractctx.Context
	sites    map[string]rewriter.GroupSite
	emitRPCs bool

	annotations        map[int]store.Annotation
	registerableGroups map[int]bool
	records            map[string]*ast.RecordDecl
}

// New creates a Harvester for one translation unit. sites is the
// group-site side-channel internal/rewriter produced while rewriting
// this file's tokens (nil is fine for a file lexed and parsed without
// ever going through the rewriter). emitRPCs corresponds to the
// "--source" vs "--type-source" distinction: type-only inputs still
// harvest configurations, sockets, aliases and error descriptors, but
// suppress the rpc_functions they would otherwise contribute.
func New(ctx *extractctx.Context, sites map[string]rewriter.GroupSite, emitRPCs bool) *Harvester {
	return &Harvester{
		ctx:                ctx,
		sites:              sites,
		emitRPCs:           emitRPCs,
		annotations:        make(map[int]store.Annotation),
		registerableGroups: make(map[int]bool),
		records:            make(map[string]*ast.RecordDecl),
	}
}

// Harvest walks prog with a fresh Harvester.
func Harvest(ctx *extractctx.Context, prog *ast.Program, sites map[string]rewriter.GroupSite, emitRPCs bool) error {
	return ast.Walk(prog, New(ctx, sites, emitRPCs))
}

func (h *Harvester) VisitNamespace(n *ast.Namespace) error {
	return nil
}

func (h *Harvester) VisitRecord(r *ast.RecordDecl) error {
	fqn := r.Name.Join("::")
	h.records[fqn] = r
	if len(r.Name.Namespace()) > 0 && r.Name.Namespace()[0] == "frem" {
		h.ctx.Diags.Warnf(diagnostic.CategoryReservedNamespace, r.Span(), "type %q is declared in the reserved frem namespace", fqn)
	}
	if r.IsForwardDecl {
		return nil
	}
	// Errors are already diagnosed by RegisterStruct itself (unions,
	// empty structs, cycles); nothing further to surface here.
	_, _ = resolver.RegisterStruct(h.ctx, r, resolver.Stack{})
	return nil
}

func (h *Harvester) VisitEnum(e *ast.EnumDecl) error {
	_, _ = resolver.RegisterEnum(h.ctx, e)
	return nil
}

// VisitVar classifies a variable declaration's role: an annotation
// fragment, a return-value constant, a type alias, an error descriptor,
// a configuration, or a datagram socket. Declarations matching none of
// these are ordinary data and are ignored.
func (h *Harvester) VisitVar(v *ast.VarDecl) error {
	if basic, ok := v.Type.(*ast.BasicType); ok && annotationFragmentKinds[basic.Name.Name()] {
		if groupID, ok := h.fragmentGroup(v.Name.Name()); ok {
			h.mergeAnnotationFragment(groupID, v)
			return nil
		}
	}

	call, _ := v.Init.(*ast.CallExpr)

	switch ty := v.Type.(type) {
	case *ast.BasicType:
		name := ty.Name.Join("::")
		switch name {
		case "frem::RpcResultDecl":
			return h.harvestReturnValue(v, call)
		case "frem::ErrorDescriptor", "nsp::ErrorDescriptor", "nsp::DiagnosticDescriptor":
			return h.harvestErrorDescriptor(v, call)
		}
	case *ast.TemplateType:
		switch ty.Name.Join("::") {
		case "frem::TypeAlias":
			return h.harvestTypeAlias(v, ty, call)
		case "frem::ConfigurationDeclarator":
			return h.harvestConfiguration(v, ty, call)
		case "frem::DatagramSocketDeclarator":
			return h.harvestSocket(v, ty, call)
		}
	}
	return nil
}

// annotationFragmentKinds names the FREM_RPC(...) fragment constructors
// the rewriter splices into a synthetic variable's declared type. A
// FREM_TYPE_ALIAS(...) carrier variable shares the same synthetic-name
// encoding (and would otherwise also decode as some fragment group by
// fragmentGroup's fallback path), so VisitVar checks this set first to
// tell the two synthetic-declaration shapes apart.
var annotationFragmentKinds = map[string]bool{
	"Code":         true,
	"Alias":        true,
	"Via":          true,
	"ReturnName":   true,
	"Tags":         true,
	"Registerable": true,
}

// fragmentGroup recovers the annotation group a synthetic variable's
// constructor call belongs to, preferring the structured GroupSite
// side-channel and falling back to decoding the variable's own name.
func (h *Harvester) fragmentGroup(name string) (int, bool) {
	if site, ok := h.sites[name]; ok {
		return site.GroupID, true
	}
	if groupID, _, ok := rewriter.ParseSyntheticName(name); ok {
		return groupID, true
	}
	return 0, false
}

func (h *Harvester) mergeAnnotationFragment(groupID int, v *ast.VarDecl) {
	basic, ok := v.Type.(*ast.BasicType)
	if !ok {
		return
	}
	kind := basic.Name.Name()
	call, _ := v.Init.(*ast.CallExpr)
	annotation := h.annotations[groupID]
	if !annotation.Location.IsValid() {
		annotation.Location = v.Span().Start
	}

	switch kind {
	case "Code":
		if n, ok := intArg(call, 0); ok {
			annotation.Code = uint32(n)
		}
	case "Alias":
		if s, ok := stringArg(call, 0); ok {
			annotation.Alias = s
		}
	case "Via":
		if s, ok := stringArg(call, 0); ok {
			annotation.Via = s
		}
	case "ReturnName":
		if s, ok := stringArg(call, 0); ok {
			annotation.ReturnName = s
		}
	case "Tags":
		annotation.Tags = append(annotation.Tags, stringArgs(call)...)
	case "Registerable":
		h.registerableGroups[groupID] = true
		h.annotations[groupID] = annotation
		return
	default:
		h.ctx.Diags.Errorf(diagnostic.CategoryParse, v.Span(), "unknown annotation fragment %q", kind)
		return
	}
	h.annotations[groupID] = annotation
}

func (h *Harvester) harvestReturnValue(v *ast.VarDecl, call *ast.CallExpr) error {
	n, ok := intArg(call, 0)
	if !ok {
		h.ctx.Diags.Errorf(diagnostic.CategoryParse, v.Span(), "return value %q needs a single integer argument", v.Name.Name())
		return nil
	}
	h.ctx.Store.AddReturnValue(store.ReturnValue{ID: v.Name.Name(), Value: n})
	return nil
}

func (h *Harvester) harvestTypeAlias(v *ast.VarDecl, ty *ast.TemplateType, call *ast.CallExpr) error {
	if len(ty.Args) != 1 || ty.Args[0].Type == nil {
		h.ctx.Diags.Errorf(diagnostic.CategoryParse, v.Span(), "TypeAlias expects exactly one type argument")
		return nil
	}
	alias, ok := stringArg(call, 0)
	if !ok {
		h.ctx.Diags.Errorf(diagnostic.CategoryParse, v.Span(), "alias name must be a string literal")
		return nil
	}
	resolved, err := resolver.RegisterType(h.ctx, ty.Args[0].Type, resolver.Stack{})
	if err != nil {
		return nil
	}
	h.ctx.Registry.SetAlias(alias, resolved.FullyQualifiedName, v.Span().Start)
	return nil
}

func (h *Harvester) harvestErrorDescriptor(v *ast.VarDecl, call *ast.CallExpr) error {
	if call == nil || len(call.Args) < 2 {
		h.ctx.Diags.Errorf(diagnostic.CategoryParse, v.Span(), "error descriptor needs an id/value and a description")
		return nil
	}
	desc := store.ErrorDescriptor{}
	if s, ok := literalString(call.Args[0]); ok {
		desc.ID = s
	} else if n, ok := literalInt(call.Args[0]); ok {
		desc.Value = n
	} else {
		h.ctx.Diags.Errorf(diagnostic.CategoryParse, v.Span(), "id must be a string literal or an integer")
		return nil
	}
	if s, ok := literalString(call.Args[1]); ok {
		desc.Description = s
	}
	if len(call.Args) >= 3 {
		if s, ok := literalString(call.Args[2]); ok {
			desc.ServiceText = s
		}
	}
	if len(call.Args) >= 4 {
		if s, ok := literalString(call.Args[3]); ok {
			desc.UserText = s
		}
	}
	if len(call.Args) >= 5 {
		if s, ok := literalString(call.Args[4]); ok {
			desc.Comment = s
		}
	}
	h.ctx.Store.AddError(desc)
	return nil
}

func (h *Harvester) harvestConfiguration(v *ast.VarDecl, ty *ast.TemplateType, call *ast.CallExpr) error {
	if call == nil || len(call.Args) == 0 {
		h.ctx.Diags.Errorf(diagnostic.CategoryParse, v.Span(), "configuration declarator needs an id argument")
		return nil
	}
	id, ok := literalString(call.Args[0])
	if !ok {
		h.ctx.Diags.Errorf(diagnostic.CategoryParse, v.Span(), "configuration id must be a string literal")
		return nil
	}
	for _, existing := range h.ctx.Store.Configurations {
		if existing.ID == id {
			return nil
		}
	}

	cfg := store.Configuration{ID: id, FileName: v.Span().Start.Filename, Line: v.Span().Start.Line}
	for _, arg := range ty.Args {
		if arg.Type == nil {
			continue
		}
		resolved, err := resolver.RegisterType(h.ctx, arg.Type, resolver.Stack{})
		if err != nil {
			continue
		}
		cfg.VersionTypes = append(cfg.VersionTypes, store.TypeRefWithVersion{
			Version: uint32(resolved.ConfigurationVersion),
			Type:    resolved,
		})
	}

	for _, rawArg := range call.Args[1:] {
		nested, ok := rawArg.(*ast.CallExpr)
		if !ok {
			continue
		}
		switch nested.Callee.Name() {
		case "SetCode":
			if n, ok := literalInt(firstOrNil(nested.Args)); ok {
				cfg.SetCode = uint32(n)
			}
		case "GetCode":
			if n, ok := literalInt(firstOrNil(nested.Args)); ok {
				cfg.GetCode = uint32(n)
			}
		case "VersionCode":
			if n, ok := literalInt(firstOrNil(nested.Args)); ok {
				cfg.VersionCode = uint32(n)
			}
		case "Tags":
			cfg.Tags = append(cfg.Tags, literalStrings(nested.Args)...)
		}
	}
	fillConfigurationCodes(&cfg)

	h.ctx.Store.AddConfiguration(cfg)
	return nil
}

// fillConfigurationCodes fills any of set/get/version code left at zero by
// incrementing from the running maximum, in set, get, version order, once
// at least one of the three was given explicitly. A configuration with all
// three left unset stays all zero.
func fillConfigurationCodes(cfg *store.Configuration) {
	max := cfg.SetCode
	if cfg.GetCode > max {
		max = cfg.GetCode
	}
	if cfg.VersionCode > max {
		max = cfg.VersionCode
	}
	if max == 0 {
		return
	}
	if cfg.SetCode == 0 {
		max++
		cfg.SetCode = max
	}
	if cfg.GetCode == 0 {
		max++
		cfg.GetCode = max
	}
	if cfg.VersionCode == 0 {
		max++
		cfg.VersionCode = max
	}
}

func (h *Harvester) harvestSocket(v *ast.VarDecl, ty *ast.TemplateType, call *ast.CallExpr) error {
	if call == nil || len(call.Args) < 2 {
		h.ctx.Diags.Errorf(diagnostic.CategoryParse, v.Span(), "datagram socket declarator needs an id and a port")
		return nil
	}
	id, ok := literalString(call.Args[0])
	if !ok {
		h.ctx.Diags.Errorf(diagnostic.CategoryParse, v.Span(), "socket id must be a string literal")
		return nil
	}
	port, ok := literalInt(call.Args[1])
	if !ok {
		h.ctx.Diags.Errorf(diagnostic.CategoryParse, v.Span(), "socket port must be an integer literal")
		return nil
	}

	sock := store.Socket{ID: id, Port: uint16(port)}
	if len(ty.Args) == 1 && ty.Args[0].Type != nil {
		if resolved, err := resolver.RegisterType(h.ctx, ty.Args[0].Type, resolver.Stack{}); err == nil {
			sock.PacketType = resolved
		}
	}
	for _, rawArg := range call.Args[2:] {
		nested, ok := rawArg.(*ast.CallExpr)
		if !ok {
			continue
		}
		if nested.Callee.Name() == "Tags" {
			sock.Tags = append(sock.Tags, literalStrings(nested.Args)...)
		}
	}

	h.ctx.Store.AddSocket(sock)
	return nil
}

// VisitFunction classifies fn, resolves its annotation group and
// invokee, builds its return type and parameters via the resolver, and
// records it in the store if it is not a duplicate.
func (h *Harvester) VisitFunction(fn *ast.FunctionDecl) error {
	if fn.IsTemplate && !fn.IsInstantiated {
		return nil
	}

	tag, ok := functionTag(fn)
	if !ok {
		return nil
	}
	annotation, ok := h.annotations[tag]
	if !ok {
		h.ctx.Diags.Errorf(diagnostic.CategoryParse, fn.Span(), "missing annotation for group %d", tag)
		return nil
	}
	if annotation.Location.IsValid() && annotation.Location.Filename != fn.Span().Start.Filename {
		return nil
	}

	rpc := store.RpcFunction{
		Annotation:   annotation,
		DocString:    fn.DocComment,
		FileName:     fn.Span().Start.Filename,
		Line:         fn.Span().Start.Line,
		IsNoexcept:   fn.IsNoexcept,
		Registerable: h.registerableGroups[tag],
	}

	switch {
	case fn.OwningRecord != nil:
		owner := fn.OwningRecord.Join("::")
		rpc.FullyQualifiedName = owner + "::" + fn.Name.Name()
		if fn.Kind == ast.FuncStatic {
			rpc.Kind = store.KindStatic
		} else {
			rpc.Kind = store.KindMember
			invokee, err := h.findInstanceGetter(owner)
			if err != nil {
				h.ctx.Diags.Errorf(diagnostic.CategoryParse, fn.Span(), "%s: %v", owner, err)
				return nil
			}
			rpc.Invokee = invokee
			if fn.IsConst {
				rpc.Qualifiers = append(rpc.Qualifiers, "const")
			}
		}
	default:
		rpc.Kind = store.KindFree
		rpc.FullyQualifiedName = fn.Name.Join("::")
	}

	if h.ctx.Store.IsProcessed(rpc.FullyQualifiedName) {
		return nil
	}

	retType, err := h.buildReturnType(fn.ReturnType)
	if err != nil {
		return nil
	}
	rpc.ReturnType = retType

	for _, p := range fn.Params {
		param, err := h.buildParameter(p)
		if err != nil {
			return nil
		}
		rpc.Parameters = append(rpc.Parameters, param)
	}

	rpc.ID = rpc.FullyQualifiedName
	if rpc.Annotation.Alias != "" {
		rpc.ID = rpc.Annotation.Alias
	}

	if h.emitRPCs {
		h.ctx.Store.AddFunction(rpc)
	}
	return nil
}

// functionTag recovers the numeric annotation group encoded in fn's
// rewriter-injected attribute tag, if it carries one.
func functionTag(fn *ast.FunctionDecl) (int, bool) {
	for _, attr := range fn.Attributes {
		if attr.Name != rewriter.FunctionTagAttr || len(attr.Args) != 1 {
			continue
		}
		lit, ok := attr.Args[0].(*ast.Literal)
		if !ok || lit.Kind != ast.LitString {
			continue
		}
		var groupID int
		if _, err := fmt.Sscanf(lit.Str, rewriter.TagPrefix+"%d", &groupID); err == nil {
			return groupID, true
		}
	}
	return 0, false
}

// findInstanceGetter resolves how to reach an instance of owner: either
// the atomic self-pointer every frem::RpcService<T> subclass carries,
// or a static member with no required parameters whose return type is
// a reference or pointer to owner itself.
func (h *Harvester) findInstanceGetter(owner string) (*store.Invokee, error) {
	rec, ok := h.records[owner]
	if !ok {
		return nil, fmt.Errorf("unknown enclosing record")
	}

	for _, base := range rec.Bases {
		if base.Name.Name() == "RpcService" && len(base.Name.Namespace()) > 0 && base.Name.Namespace()[0] == "frem" {
			return &store.Invokee{Expression: owner + "::m_fremSelf.load()", IsPointer: true}, nil
		}
	}

	for _, m := range rec.Methods {
		if m.Kind != ast.FuncStatic || len(m.Params) != 0 {
			continue
		}
		switch ret := m.ReturnType.(type) {
		case *ast.ReferenceType:
			if sameRecord(ret.Elem, owner) {
				return &store.Invokee{Expression: owner + "::" + m.Name.Name() + "()", IsPointer: false}, nil
			}
		case *ast.PointerType:
			if sameRecord(ret.Elem, owner) {
				return &store.Invokee{Expression: owner + "::" + m.Name.Name() + "()", IsPointer: true}, nil
			}
		}
	}

	return nil, fmt.Errorf("no instance getter")
}

func sameRecord(t ast.Type, owner string) bool {
	basic, ok := t.(*ast.BasicType)
	return ok && basic.Name.Join("::") == owner
}

func (h *Harvester) buildReturnType(declared ast.Type) (store.ReturnType, error) {
	resolved, err := resolver.RegisterType(h.ctx, declared, resolver.Stack{})
	if err != nil {
		return store.ReturnType{}, err
	}
	return store.ReturnType{TypeUse: store.TypeUse{Type: resolved, FullyQualifiedType: typeSpelling(declared), DecayedType: resolved.FullyQualifiedName}}, nil
}

func (h *Harvester) buildParameter(p *ast.Param) (store.Parameter, error) {
	if p.IsPointer {
		h.ctx.Diags.Errorf(diagnostic.CategoryUnknownType, p.Span(), "raw pointer parameter %q is not supported", p.Name)
		return store.Parameter{}, fmt.Errorf("raw pointer parameter")
	}
	resolved, err := resolver.RegisterType(h.ctx, p.Type, resolver.Stack{})
	if err != nil {
		return store.Parameter{}, err
	}
	dir := store.DirIn
	if p.Direction == ast.DirOut {
		dir = store.DirOut
	}
	return store.Parameter{
		Name:      p.Name,
		Direction: dir,
		TypeUse:   store.TypeUse{Type: resolved, FullyQualifiedType: typeSpelling(p.Type), DecayedType: resolved.FullyQualifiedName},
	}, nil
}

func typeSpelling(t ast.Type) string {
	switch v := t.(type) {
	case *ast.BasicType:
		return v.Name.Join("::")
	case *ast.ReferenceType:
		return typeSpelling(v.Elem)
	case *ast.PointerType:
		return typeSpelling(v.Elem) + "*"
	case *ast.TemplateType:
		return v.Name.Join("::")
	default:
		return ""
	}
}

func firstOrNil(args []ast.Expr) ast.Expr {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

func literalInt(e ast.Expr) (int64, bool) {
	lit, ok := e.(*ast.Literal)
	if !ok || lit.Kind != ast.LitInt {
		return 0, false
	}
	return lit.Int, true
}

func literalString(e ast.Expr) (string, bool) {
	lit, ok := e.(*ast.Literal)
	if !ok || lit.Kind != ast.LitString {
		return "", false
	}
	return lit.Str, true
}

func literalStrings(exprs []ast.Expr) []string {
	var out []string
	for _, e := range exprs {
		if s, ok := literalString(e); ok {
			out = append(out, s)
		}
	}
	return out
}

func intArg(call *ast.CallExpr, index int) (int64, bool) {
	if call == nil || index >= len(call.Args) {
		return 0, false
	}
	return literalInt(call.Args[index])
}

func stringArg(call *ast.CallExpr, index int) (string, bool) {
	if call == nil || index >= len(call.Args) {
		return "", false
	}
	return literalString(call.Args[index])
}

func stringArgs(call *ast.CallExpr) []string {
	if call == nil {
		return nil
	}
	return literalStrings(call.Args)
}
