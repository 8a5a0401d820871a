package frontend

import (
	"testing"

	"github.com/andsch11/fremgen/internal/ast"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := Parse("t.hpp", []byte(src))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return prog
}

func TestParseFreeFunctionDecl(t *testing.T) {
	prog := mustParse(t, "int32_t Ping(int32_t x);")
	if len(prog.Decls) != 1 {
		t.Fatalf("got %d decls, want 1", len(prog.Decls))
	}
	fn, ok := prog.Decls[0].(*ast.FunctionDecl)
	if !ok {
		t.Fatalf("got %T, want *ast.FunctionDecl", prog.Decls[0])
	}
	if fn.Name.Name() != "Ping" {
		t.Errorf("got name %q, want Ping", fn.Name.Name())
	}
	if len(fn.Params) != 1 || fn.Params[0].Name != "x" {
		t.Errorf("got params %+v, want one param named x", fn.Params)
	}
	if fn.Kind != ast.FuncFree {
		t.Errorf("got kind %v, want FuncFree", fn.Kind)
	}
}

func TestParseNamespaceQualifiesNestedDecls(t *testing.T) {
	prog := mustParse(t, `
namespace demo {
namespace rpc {
struct Widget {
	int32_t id;
};
void Ping();
}
}
`)
	if len(prog.Decls) != 1 {
		t.Fatalf("got %d top-level decls, want 1", len(prog.Decls))
	}
	outer, ok := prog.Decls[0].(*ast.Namespace)
	if !ok {
		t.Fatalf("got %T, want *ast.Namespace", prog.Decls[0])
	}
	inner, ok := outer.Decls[0].(*ast.Namespace)
	if !ok {
		t.Fatalf("got %T, want nested *ast.Namespace", outer.Decls[0])
	}
	rec, ok := inner.Decls[0].(*ast.RecordDecl)
	if !ok {
		t.Fatalf("got %T, want *ast.RecordDecl", inner.Decls[0])
	}
	if rec.Name.Join("::") != "demo::rpc::Widget" {
		t.Errorf("got %q, want demo::rpc::Widget", rec.Name.Join("::"))
	}
	fn, ok := inner.Decls[1].(*ast.FunctionDecl)
	if !ok {
		t.Fatalf("got %T, want *ast.FunctionDecl", inner.Decls[1])
	}
	if fn.Name.Join("::") != "demo::rpc::Ping" {
		t.Errorf("got %q, want demo::rpc::Ping", fn.Name.Join("::"))
	}
}

func TestParseNamespaceQualifiesEnumAndOwningRecordOfMethods(t *testing.T) {
	prog := mustParse(t, `
namespace demo {
enum class Status : int32_t {
	Ok = 0,
	Failed = 1,
};
struct Service {
	void Ping();
};
}
`)
	outer := prog.Decls[0].(*ast.Namespace)
	enum, ok := outer.Decls[0].(*ast.EnumDecl)
	if !ok {
		t.Fatalf("got %T, want *ast.EnumDecl", outer.Decls[0])
	}
	if enum.Name.Join("::") != "demo::Status" {
		t.Errorf("got %q, want demo::Status", enum.Name.Join("::"))
	}
	rec := outer.Decls[1].(*ast.RecordDecl)
	if rec.Name.Join("::") != "demo::Service" {
		t.Errorf("got %q, want demo::Service", rec.Name.Join("::"))
	}
	if len(rec.Methods) != 1 {
		t.Fatalf("got %d methods, want 1", len(rec.Methods))
	}
	if rec.Methods[0].OwningRecord == nil || rec.Methods[0].OwningRecord.Join("::") != "demo::Service" {
		t.Errorf("got owning record %+v, want demo::Service", rec.Methods[0].OwningRecord)
	}
}

func TestParseRecordMemberFunctionVsFieldDisambiguation(t *testing.T) {
	prog := mustParse(t, `
struct Service {
	int32_t Ping(int32_t x);
	int32_t counter;
};
`)
	rec := prog.Decls[0].(*ast.RecordDecl)
	if len(rec.Methods) != 1 {
		t.Fatalf("got %d methods, want 1", len(rec.Methods))
	}
	if rec.Methods[0].Name.Name() != "Ping" {
		t.Errorf("got method name %q, want Ping", rec.Methods[0].Name.Name())
	}
	if rec.Methods[0].Kind != ast.FuncMember {
		t.Errorf("got kind %v, want FuncMember", rec.Methods[0].Kind)
	}
	if len(rec.Fields) != 1 || rec.Fields[0].Name != "counter" {
		t.Errorf("got fields %+v, want one field named counter", rec.Fields)
	}
	if len(rec.BodyDecls) != 1 {
		t.Fatalf("got %d body decls, want 1 (field decls are not appended to BodyDecls)", len(rec.BodyDecls))
	}
}

func TestParseRecordStaticMethodIsClassified(t *testing.T) {
	prog := mustParse(t, `
struct Service {
	static int32_t Version();
};
`)
	rec := prog.Decls[0].(*ast.RecordDecl)
	if len(rec.Methods) != 1 {
		t.Fatalf("got %d methods, want 1", len(rec.Methods))
	}
	if rec.Methods[0].Kind != ast.FuncStatic {
		t.Errorf("got kind %v, want FuncStatic", rec.Methods[0].Kind)
	}
}

// TestParseRecordDirectInitMarkerIsNotMisreadAsMethod exercises the
// most-vexing-parse fix inside a record body: a directly-initialized
// annotation marker variable has the same "Type name(" shape as a
// zero-parameter-declaring method and must be parsed as a VarDecl.
func TestParseRecordDirectInitMarkerIsNotMisreadAsMethod(t *testing.T) {
	prog := mustParse(t, `
struct Service {
	frem::ErrorDescriptor _frem_anno_0_0(1, "bad request");
	void Ping();
};
`)
	rec := prog.Decls[0].(*ast.RecordDecl)
	if len(rec.Methods) != 1 {
		t.Fatalf("got %d methods, want 1 (the marker must not be counted as a method)", len(rec.Methods))
	}
	if rec.Methods[0].Name.Name() != "Ping" {
		t.Errorf("got method name %q, want Ping", rec.Methods[0].Name.Name())
	}
	if len(rec.BodyDecls) != 2 {
		t.Fatalf("got %d body decls, want 2 (marker var then method, in source order)", len(rec.BodyDecls))
	}
	v, ok := rec.BodyDecls[0].(*ast.VarDecl)
	if !ok {
		t.Fatalf("got %T for first body decl, want *ast.VarDecl", rec.BodyDecls[0])
	}
	if v.Name.Name() != "_frem_anno_0_0" {
		t.Errorf("got var name %q, want _frem_anno_0_0", v.Name.Name())
	}
	if _, ok := rec.BodyDecls[1].(*ast.FunctionDecl); !ok {
		t.Errorf("got %T for second body decl, want *ast.FunctionDecl", rec.BodyDecls[1])
	}
}

// TestParseTopLevelDirectInitMarkerIsNotMisreadAsFunction mirrors the
// record-body fix at top level, where a synthetic annotation variable
// sits directly ahead of the free function it describes.
func TestParseTopLevelDirectInitMarkerIsNotMisreadAsFunction(t *testing.T) {
	prog := mustParse(t, `
frem::RpcResultDecl _frem_anno_1_0(42);
void Ping();
`)
	if len(prog.Decls) != 2 {
		t.Fatalf("got %d decls, want 2", len(prog.Decls))
	}
	v, ok := prog.Decls[0].(*ast.VarDecl)
	if !ok {
		t.Fatalf("got %T, want *ast.VarDecl", prog.Decls[0])
	}
	if v.Name.Name() != "_frem_anno_1_0" {
		t.Errorf("got var name %q, want _frem_anno_1_0", v.Name.Name())
	}
	fn, ok := prog.Decls[1].(*ast.FunctionDecl)
	if !ok {
		t.Fatalf("got %T, want *ast.FunctionDecl", prog.Decls[1])
	}
	if fn.Name.Name() != "Ping" {
		t.Errorf("got name %q, want Ping", fn.Name.Name())
	}
}

func TestParseFunctionCallStyleVarIsNotMistakenWhenNameNotReserved(t *testing.T) {
	// A plain call-initialized variable ("TypeName name(args)") whose
	// name doesn't carry the synthetic prefix and whose type isn't one
	// of the recognized marker types still parses as a function
	// declaration, matching ordinary C++ declaration syntax: this stand-in
	// grammar has no way to distinguish it from a zero-body prototype.
	prog := mustParse(t, "int32_t Compute(int32_t seed);")
	fn, ok := prog.Decls[0].(*ast.FunctionDecl)
	if !ok {
		t.Fatalf("got %T, want *ast.FunctionDecl", prog.Decls[0])
	}
	if fn.Name.Name() != "Compute" {
		t.Errorf("got name %q, want Compute", fn.Name.Name())
	}
}

func TestParseTemplateTypeArguments(t *testing.T) {
	prog := mustParse(t, `
struct Config {
	frem::BoundedArray<int32_t, 8> items;
};
`)
	rec := prog.Decls[0].(*ast.RecordDecl)
	if len(rec.Fields) != 1 {
		t.Fatalf("got %d fields, want 1", len(rec.Fields))
	}
	tt, ok := rec.Fields[0].Type.(*ast.TemplateType)
	if !ok {
		t.Fatalf("got %T, want *ast.TemplateType", rec.Fields[0].Type)
	}
	if tt.Name.Join("::") != "frem::BoundedArray" {
		t.Errorf("got %q, want frem::BoundedArray", tt.Name.Join("::"))
	}
	if len(tt.Args) != 2 {
		t.Fatalf("got %d template args, want 2", len(tt.Args))
	}
	if tt.Args[0].Type == nil {
		t.Error("expected first template arg to carry a Type")
	}
	if tt.Args[1].Expr == nil {
		t.Error("expected second template arg to carry a non-type Expr")
	}
}

func TestParseRecordBaseClassWithTemplateArg(t *testing.T) {
	prog := mustParse(t, `
struct Settings : public frem::ConfigurationVersion<3> {
	int32_t timeoutMs;
};
`)
	rec := prog.Decls[0].(*ast.RecordDecl)
	if len(rec.Bases) != 1 {
		t.Fatalf("got %d bases, want 1", len(rec.Bases))
	}
	if rec.Bases[0].Name.Join("::") != "frem::ConfigurationVersion" {
		t.Errorf("got %q, want frem::ConfigurationVersion", rec.Bases[0].Name.Join("::"))
	}
	if len(rec.Bases[0].Args) != 1 || rec.Bases[0].Args[0].Expr == nil {
		t.Fatalf("got args %+v, want one integer literal arg", rec.Bases[0].Args)
	}
}

func TestParseAttributesOnDecl(t *testing.T) {
	prog := mustParse(t, `[[frem::rpc(1)]] void Ping();`)
	fn, ok := prog.Decls[0].(*ast.FunctionDecl)
	if !ok {
		t.Fatalf("got %T, want *ast.FunctionDecl", prog.Decls[0])
	}
	if len(fn.Attributes) != 1 {
		t.Fatalf("got %d attributes, want 1", len(fn.Attributes))
	}
	if fn.Attributes[0].Name != "frem::rpc" {
		t.Errorf("got attribute name %q, want frem::rpc", fn.Attributes[0].Name)
	}
	if len(fn.Attributes[0].Args) != 1 {
		t.Fatalf("got %d attribute args, want 1", len(fn.Attributes[0].Args))
	}
}

func TestParseReferenceParamDirection(t *testing.T) {
	prog := mustParse(t, "void Fill(const int32_t& in, int32_t& out);")
	fn := prog.Decls[0].(*ast.FunctionDecl)
	if len(fn.Params) != 2 {
		t.Fatalf("got %d params, want 2", len(fn.Params))
	}
	if fn.Params[0].Direction != ast.DirIn {
		t.Errorf("got direction %v for const ref param, want DirIn", fn.Params[0].Direction)
	}
	if fn.Params[1].Direction != ast.DirOut {
		t.Errorf("got direction %v for non-const ref param, want DirOut", fn.Params[1].Direction)
	}
}

func TestParsePointerParamIsFlagged(t *testing.T) {
	prog := mustParse(t, "void Fill(int32_t* out);")
	fn := prog.Decls[0].(*ast.FunctionDecl)
	if len(fn.Params) != 1 || !fn.Params[0].IsPointer {
		t.Fatalf("got params %+v, want one pointer param", fn.Params)
	}
}

func TestParseNoexceptAndConstQualifiers(t *testing.T) {
	prog := mustParse(t, `
struct Service {
	int32_t Ping() const noexcept;
};
`)
	rec := prog.Decls[0].(*ast.RecordDecl)
	fn := rec.Methods[0]
	if !fn.IsConst {
		t.Error("expected IsConst to be true")
	}
	if !fn.IsNoexcept {
		t.Error("expected IsNoexcept to be true")
	}
}

func TestParseFunctionWithBodySkipsBalancedBraces(t *testing.T) {
	prog := mustParse(t, `
int32_t Add(int32_t a, int32_t b) {
	if (a > 0) {
		return a + b;
	}
	return b;
}
void Ping();
`)
	if len(prog.Decls) != 2 {
		t.Fatalf("got %d decls, want 2 (body braces must not swallow the next decl)", len(prog.Decls))
	}
	if prog.Decls[1].(*ast.FunctionDecl).Name.Name() != "Ping" {
		t.Errorf("got second decl %+v, want Ping", prog.Decls[1])
	}
}

func TestParseTemplateFunctionIsMarkedAndParamsSkipped(t *testing.T) {
	prog := mustParse(t, `
template<typename T>
void Convert(T value);
void Ping();
`)
	if len(prog.Decls) != 2 {
		t.Fatalf("got %d decls, want 2", len(prog.Decls))
	}
	fn, ok := prog.Decls[0].(*ast.FunctionDecl)
	if !ok {
		t.Fatalf("got %T, want *ast.FunctionDecl", prog.Decls[0])
	}
	if !fn.IsTemplate {
		t.Error("expected IsTemplate to be true")
	}
}

func TestParseEnumWithoutExplicitValuesIncrements(t *testing.T) {
	prog := mustParse(t, `
enum class Status : int32_t {
	Ok,
	Warn,
	Failed = 5,
	AlsoFailed,
};
`)
	e := prog.Decls[0].(*ast.EnumDecl)
	want := map[string]int64{"Ok": 0, "Warn": 1, "Failed": 5, "AlsoFailed": 6}
	if len(e.Constants) != len(want) {
		t.Fatalf("got %d constants, want %d", len(e.Constants), len(want))
	}
	for _, c := range e.Constants {
		if want[c.Name] != c.Value {
			t.Errorf("got %s=%d, want %d", c.Name, c.Value, want[c.Name])
		}
	}
}

func TestParseUsingDirectiveIsSkipped(t *testing.T) {
	prog := mustParse(t, `
using namespace demo;
void Ping();
`)
	if len(prog.Decls) != 1 {
		t.Fatalf("got %d decls, want 1 (using directive contributes no decl)", len(prog.Decls))
	}
	if _, ok := prog.Decls[0].(*ast.FunctionDecl); !ok {
		t.Fatalf("got %T, want *ast.FunctionDecl", prog.Decls[0])
	}
}

func TestParseForwardDeclaredRecordHasNoBody(t *testing.T) {
	prog := mustParse(t, "struct Widget;")
	rec := prog.Decls[0].(*ast.RecordDecl)
	if !rec.IsForwardDecl {
		t.Error("expected IsForwardDecl to be true")
	}
	if len(rec.Fields) != 0 || len(rec.Methods) != 0 {
		t.Errorf("got fields %+v methods %+v, want both empty", rec.Fields, rec.Methods)
	}
}

func TestParseQualifiedNameInFunctionSignature(t *testing.T) {
	prog := mustParse(t, "demo::Status Ping();")
	fn := prog.Decls[0].(*ast.FunctionDecl)
	rt, ok := fn.ReturnType.(*ast.BasicType)
	if !ok {
		t.Fatalf("got %T, want *ast.BasicType", fn.ReturnType)
	}
	if rt.Name.Join("::") != "demo::Status" {
		t.Errorf("got %q, want demo::Status", rt.Name.Join("::"))
	}
}
