package frontend

import "github.com/andsch11/fremgen/internal/ast"

// directInitBasicTypes and directInitTemplateNames name the fixed set of
// annotation-declarator types that are always direct-initialized with a
// parenthesized argument list, even though "TypeName name(" is
// syntactically identical to the start of a function declaration in
// this grammar. A general front end resolves the ambiguity with full
// type information; this stand-in resolves it by name, since annotated
// source only ever uses these few marker types this way.
var directInitBasicTypes = map[string]bool{
	"frem::RpcResultDecl":       true,
	"frem::ErrorDescriptor":     true,
	"nsp::ErrorDescriptor":      true,
	"nsp::DiagnosticDescriptor": true,
}

var directInitTemplateNames = map[string]bool{
	"frem::ConfigurationDeclarator":  true,
	"frem::DatagramSocketDeclarator": true,
}

func isDirectInitType(ty ast.Type) bool {
	switch t := ty.(type) {
	case *ast.BasicType:
		return directInitBasicTypes[t.Name.Join("::")]
	case *ast.TemplateType:
		return directInitTemplateNames[t.Name.Join("::")]
	}
	return false
}
