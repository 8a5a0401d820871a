package harvester

import (
	"testing"

	"github.com/andsch11/fremgen/internal/ast"
	"github.com/andsch11/fremgen/internal/extractctx"
	"github.com/andsch11/fremgen/internal/frontend"
	"github.com/andsch11/fremgen/internal/position"
	"github.com/andsch11/fremgen/internal/rewriter"
	"github.com/andsch11/fremgen/internal/store"
)

// harvestSource lexes, rewrites and parses src, then harvests it into a
// fresh context, failing the test on any pipeline error.
func harvestSource(t *testing.T, src string) *extractctx.Context {
	t.Helper()
	lx := frontend.NewLexer("demo.hpp", []byte(src))
	toks, err := lx.Tokenize()
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	ctx := extractctx.New()
	rewritten, sites, err := rewriter.New(ctx.Diags).Rewrite(toks)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	prog, err := frontend.ParseTokens("demo.hpp", rewritten)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := Harvest(ctx, prog, sites, true); err != nil {
		t.Fatalf("harvest: %v", err)
	}
	return ctx
}

func TestHarvestMemberRpcViaServiceBase(t *testing.T) {
	const src = `
namespace demo {

struct Service : frem::RpcService<Service> {
FREM_RPC(Code(4660), Alias("Foo"))
bool Ping();
};

}
`
	ctx := harvestSource(t, src)
	if len(ctx.Store.Functions) != 1 {
		t.Fatalf("got %d functions, want 1", len(ctx.Store.Functions))
	}
	fn := ctx.Store.Functions[0]
	if fn.ID != "Foo" {
		t.Errorf("got id %q, want alias %q", fn.ID, "Foo")
	}
	if fn.FullyQualifiedName != "demo::Service::Ping" {
		t.Errorf("got fqn %q, want %q", fn.FullyQualifiedName, "demo::Service::Ping")
	}
	if fn.Kind != store.KindMember {
		t.Errorf("got kind %v, want member", fn.Kind)
	}
	if fn.Annotation.Code != 4660 {
		t.Errorf("got code %d, want 4660", fn.Annotation.Code)
	}
	if fn.Invokee == nil || fn.Invokee.Expression != "demo::Service::m_fremSelf.load()" || !fn.Invokee.IsPointer {
		t.Errorf("got invokee %+v, want the service self-pointer", fn.Invokee)
	}
	if fn.ReturnType.Type == nil || fn.ReturnType.Type.FullyQualifiedName != "bool" {
		t.Errorf("got return type %+v, want bool", fn.ReturnType.Type)
	}
}

func TestHarvestFreeRpcIsNamespaceQualified(t *testing.T) {
	const src = `
namespace demo {
namespace inner {

FREM_RPC(Code(1), Alias("Go"))
void DoFree(int32_t x);

}
}
`
	ctx := harvestSource(t, src)
	if len(ctx.Store.Functions) != 1 {
		t.Fatalf("got %d functions, want 1", len(ctx.Store.Functions))
	}
	fn := ctx.Store.Functions[0]
	if fn.Kind != store.KindFree {
		t.Errorf("got kind %v, want free", fn.Kind)
	}
	if fn.FullyQualifiedName != "demo::inner::DoFree" {
		t.Errorf("got fqn %q, want %q", fn.FullyQualifiedName, "demo::inner::DoFree")
	}
	if len(fn.Parameters) != 1 || fn.Parameters[0].Name != "x" {
		t.Errorf("got parameters %+v, want one parameter named x", fn.Parameters)
	}
}

func TestHarvestMemberRpcViaStaticInstanceGetter(t *testing.T) {
	const src = `
namespace demo {

struct Registry {
static demo::Registry& Instance();

FREM_RPC(Code(2))
bool Reload();
};

}
`
	ctx := harvestSource(t, src)
	if len(ctx.Store.Functions) != 1 {
		t.Fatalf("got %d functions, want 1", len(ctx.Store.Functions))
	}
	fn := ctx.Store.Functions[0]
	if fn.Kind != store.KindMember {
		t.Errorf("got kind %v, want member (static getter still makes it invokable on an instance)", fn.Kind)
	}
	if fn.Invokee == nil || fn.Invokee.Expression != "demo::Registry::Instance()" || fn.Invokee.IsPointer {
		t.Errorf("got invokee %+v, want the Instance() reference getter", fn.Invokee)
	}
}

func TestHarvestMemberRpcWithoutInstanceGetterReportsDiagnostic(t *testing.T) {
	const src = `
namespace demo {

struct Lonely {
FREM_RPC(Code(3))
bool DoIt();
};

}
`
	ctx := harvestSource(t, src)
	if len(ctx.Store.Functions) != 0 {
		t.Fatalf("got %d functions, want 0", len(ctx.Store.Functions))
	}
	if !ctx.Diags.HasErrors() {
		t.Error("expected a diagnostic for the missing instance getter")
	}
}

func TestHarvestRegisterableAndTagsAndReturnName(t *testing.T) {
	const src = `
namespace demo {

struct Service : frem::RpcService<Service> {
FREM_RPC(Code(9), Tags("slow", "admin"), ReturnName("out"), Registerable())
int32_t Compute();
};

}
`
	ctx := harvestSource(t, src)
	if len(ctx.Store.Functions) != 1 {
		t.Fatalf("got %d functions, want 1", len(ctx.Store.Functions))
	}
	fn := ctx.Store.Functions[0]
	if !fn.Registerable {
		t.Error("expected Registerable to be set")
	}
	if fn.Annotation.ReturnName != "out" {
		t.Errorf("got return name %q, want %q", fn.Annotation.ReturnName, "out")
	}
	if len(fn.Annotation.Tags) != 2 || fn.Annotation.Tags[0] != "slow" || fn.Annotation.Tags[1] != "admin" {
		t.Errorf("got tags %v, want [slow admin]", fn.Annotation.Tags)
	}
}

func TestHarvestSkipsEmitRPCsFalse(t *testing.T) {
	const src = `
namespace demo {

struct Service : frem::RpcService<Service> {
FREM_RPC(Code(1), Alias("Foo"))
bool Ping();
};

}
`
	lx := frontend.NewLexer("demo.hpp", []byte(src))
	toks, err := lx.Tokenize()
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	ctx := extractctx.New()
	rewritten, sites, err := rewriter.New(ctx.Diags).Rewrite(toks)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	prog, err := frontend.ParseTokens("demo.hpp", rewritten)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := Harvest(ctx, prog, sites, false); err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if len(ctx.Store.Functions) != 0 {
		t.Errorf("got %d functions, want 0 when emitRPCs is false", len(ctx.Store.Functions))
	}
}

func TestHarvestTypeAliasMacro(t *testing.T) {
	const src = `
namespace demo {
FREM_TYPE_ALIAS(int32_t, "Int32")
}
`
	ctx := harvestSource(t, src)
	if fqn, ok := ctx.Registry.Lookup("Int32"); !ok || fqn.FullyQualifiedName != "int32_t" {
		t.Errorf("got %+v, ok=%v, want int32_t aliased as Int32", fqn, ok)
	}
}

func TestHarvestReturnValueDecl(t *testing.T) {
	ctx := extractctx.New()
	h := New(ctx, nil, true)
	v := &ast.VarDecl{
		Name: ast.NewQualifiedName("kSuccess"),
		Type: &ast.BasicType{Name: ast.NewQualifiedName("frem", "RpcResultDecl")},
		Init: &ast.CallExpr{Args: []ast.Expr{&ast.Literal{Kind: ast.LitInt, Int: 0}}},
	}
	if err := h.VisitVar(v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.Store.ReturnValues) != 1 || ctx.Store.ReturnValues[0].ID != "kSuccess" || ctx.Store.ReturnValues[0].Value != 0 {
		t.Errorf("got %+v", ctx.Store.ReturnValues)
	}
}

func TestHarvestErrorDescriptor(t *testing.T) {
	ctx := extractctx.New()
	h := New(ctx, nil, true)
	v := &ast.VarDecl{
		Name: ast.NewQualifiedName("kTimeout"),
		Type: &ast.BasicType{Name: ast.NewQualifiedName("frem", "ErrorDescriptor")},
		Init: &ast.CallExpr{Args: []ast.Expr{
			&ast.Literal{Kind: ast.LitString, Str: "timeout"},
			&ast.Literal{Kind: ast.LitString, Str: "request timed out"},
		}},
	}
	if err := h.VisitVar(v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.Store.Errors) != 1 || ctx.Store.Errors[0].ID != "timeout" || ctx.Store.Errors[0].Description != "request timed out" {
		t.Errorf("got %+v", ctx.Store.Errors)
	}
}

func TestHarvestConfigurationDeduplicatesByID(t *testing.T) {
	ctx := extractctx.New()
	h := New(ctx, nil, true)
	ty := &ast.TemplateType{
		Name: ast.NewQualifiedName("frem", "ConfigurationDeclarator"),
		Args: []ast.TemplateArg{{Type: &ast.BasicType{Name: ast.NewQualifiedName("bool")}}},
	}
	v := &ast.VarDecl{Name: ast.NewQualifiedName("kCfg"), Type: ty}
	call := &ast.CallExpr{Args: []ast.Expr{
		&ast.Literal{Kind: ast.LitString, Str: "net.settings"},
		&ast.CallExpr{Callee: ast.NewQualifiedName("SetCode"), Args: []ast.Expr{&ast.Literal{Kind: ast.LitInt, Int: 10}}},
		&ast.CallExpr{Callee: ast.NewQualifiedName("Tags"), Args: []ast.Expr{&ast.Literal{Kind: ast.LitString, Str: "net"}}},
	}}
	v.Init = call

	if err := h.harvestConfiguration(v, ty, call); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.harvestConfiguration(v, ty, call); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.Store.Configurations) != 1 {
		t.Fatalf("got %d configurations, want 1 (duplicate id should be ignored)", len(ctx.Store.Configurations))
	}
	cfg := ctx.Store.Configurations[0]
	if cfg.SetCode != 10 {
		t.Errorf("got SetCode %d, want 10", cfg.SetCode)
	}
	if len(cfg.Tags) != 1 || cfg.Tags[0] != "net" {
		t.Errorf("got tags %v, want [net]", cfg.Tags)
	}
	if len(cfg.VersionTypes) != 1 || cfg.VersionTypes[0].Type.FullyQualifiedName != "bool" {
		t.Errorf("got version types %+v, want one bool", cfg.VersionTypes)
	}
}

func TestHarvestSocket(t *testing.T) {
	ctx := extractctx.New()
	h := New(ctx, nil, true)
	ty := &ast.TemplateType{
		Name: ast.NewQualifiedName("frem", "DatagramSocketDeclarator"),
		Args: []ast.TemplateArg{{Type: &ast.BasicType{Name: ast.NewQualifiedName("uint8_t")}}},
	}
	v := &ast.VarDecl{Name: ast.NewQualifiedName("kTelemetry")}
	call := &ast.CallExpr{Args: []ast.Expr{
		&ast.Literal{Kind: ast.LitString, Str: "telemetry"},
		&ast.Literal{Kind: ast.LitInt, Int: 9000},
		&ast.CallExpr{Callee: ast.NewQualifiedName("Tags"), Args: []ast.Expr{&ast.Literal{Kind: ast.LitString, Str: "broadcast"}}},
	}}

	if err := h.harvestSocket(v, ty, call); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.Store.Sockets) != 1 {
		t.Fatalf("got %d sockets, want 1", len(ctx.Store.Sockets))
	}
	sock := ctx.Store.Sockets[0]
	if sock.ID != "telemetry" || sock.Port != 9000 {
		t.Errorf("got %+v, want id telemetry port 9000", sock)
	}
	if sock.PacketType == nil || sock.PacketType.FullyQualifiedName != "uint8_t" {
		t.Errorf("got packet type %+v, want uint8_t", sock.PacketType)
	}
	if len(sock.Tags) != 1 || sock.Tags[0] != "broadcast" {
		t.Errorf("got tags %v, want [broadcast]", sock.Tags)
	}
}

func TestHarvestReservedNamespaceWarning(t *testing.T) {
	ctx := extractctx.New()
	h := New(ctx, nil, true)
	rec := &ast.RecordDecl{Name: ast.NewQualifiedName("frem", "Oops"), IsTriviallyCopyable: true}
	if err := h.VisitRecord(rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.Diags.All()) == 0 {
		t.Error("expected a reserved-namespace warning")
	}
}

func TestHarvestDuplicateFunctionIsIgnored(t *testing.T) {
	const src = `
namespace demo {

struct Service : frem::RpcService<Service> {
FREM_RPC(Code(1), Alias("A"))
bool Ping();

FREM_RPC(Code(2), Alias("B"))
bool Ping();
};

}
`
	ctx := harvestSource(t, src)
	if len(ctx.Store.Functions) != 1 {
		t.Fatalf("got %d functions, want 1 (the second Ping shares the first's fully qualified name)", len(ctx.Store.Functions))
	}
	if ctx.Store.Functions[0].ID != "A" {
		t.Errorf("got id %q, want the first declaration's alias %q", ctx.Store.Functions[0].ID, "A")
	}
}

func TestVisitFunctionSkipsWhenAnnotationInDifferentFile(t *testing.T) {
	ctx := extractctx.New()
	h := New(ctx, nil, true)
	h.annotations[0] = store.Annotation{Location: position.Position{Filename: "other.hpp", Line: 3}}

	fn := &ast.FunctionDecl{
		SpanVal: position.Span{
			Start: position.Position{Filename: "demo.hpp", Line: 10},
			End:   position.Position{Filename: "demo.hpp", Line: 10},
		},
		Name: ast.NewQualifiedName("Ping"),
		Attributes: []*ast.Attribute{{
			Name: rewriter.FunctionTagAttr,
			Args: []ast.Expr{&ast.Literal{Kind: ast.LitString, Str: rewriter.TagPrefix + "0"}},
		}},
	}

	if err := h.VisitFunction(fn); err != nil {
		t.Fatalf("VisitFunction: %v", err)
	}
	if len(ctx.Store.Functions) != 0 {
		t.Errorf("got %d functions, want 0 (the annotation's macro invocation is in a different file than the function)", len(ctx.Store.Functions))
	}
}
