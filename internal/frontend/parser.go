package frontend

import (
	"fmt"
	"strings"

	"github.com/andsch11/fremgen/internal/ast"
	"github.com/andsch11/fremgen/internal/position"
)

// Parser is a recursive-descent parser over a pre-lexed token stream.
type Parser struct {
	toks     []Token
	idx      int
	filename string
}

// Parse lexes and parses an entire translation unit, with no macro
// rewriting applied. Callers that need internal/rewriter's annotation
// expansion should lex, rewrite, then call ParseTokens directly.
func Parse(filename string, src []byte) (*ast.Program, error) {
	lx := NewLexer(filename, src)
	toks, err := lx.Tokenize()
	if err != nil {
		return nil, err
	}
	return ParseTokens(filename, toks)
}

// ParseTokens parses an already-lexed (and possibly rewritten) token
// stream into a Program.
func ParseTokens(filename string, toks []Token) (*ast.Program, error) {
	p := &Parser{toks: toks, filename: filename}
	return p.parseProgram()
}

func (p *Parser) cur() Token  { return p.toks[p.idx] }
func (p *Parser) at(k TokenKind, text string) bool {
	t := p.cur()
	return t.Kind == k && (text == "" || t.Text == text)
}
func (p *Parser) atPunct(text string) bool { return p.at(TokPunct, text) }
func (p *Parser) atIdent(text string) bool { return p.at(TokIdent, text) }

func (p *Parser) advance() Token {
	t := p.cur()
	if p.idx < len(p.toks)-1 {
		p.idx++
	}
	return t
}

func (p *Parser) expectPunct(text string) (Token, error) {
	if !p.atPunct(text) {
		return Token{}, fmt.Errorf("%s: expected %q, got %q", p.cur().Span.Start, text, p.cur().Text)
	}
	return p.advance(), nil
}

func (p *Parser) parseProgram() (*ast.Program, error) {
	start := p.cur().Span.Start
	prog := &ast.Program{FileName: p.filename}
	for !p.at(TokEOF, "") {
		d, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		if d != nil {
			prog.Decls = append(prog.Decls, d)
		}
	}
	prog.SpanVal = position.Span{Start: start, End: p.cur().Span.End}
	return prog, nil
}

func (p *Parser) parseItem() (ast.Decl, error) {
	if p.atIdent("using") {
		for !p.atPunct(";") && !p.at(TokEOF, "") {
			p.advance()
		}
		if p.atPunct(";") {
			p.advance()
		}
		return nil, nil
	}

	doc := p.cur().Doc
	attrs, err := p.parseAttributes()
	if err != nil {
		return nil, err
	}

	switch {
	case p.atIdent("namespace"):
		return p.parseNamespace()
	case p.atIdent("struct") || p.atIdent("class") || p.atIdent("union"):
		return p.parseRecord(attrs)
	case p.atIdent("enum"):
		return p.parseEnum()
	case p.atIdent("template"):
		p.advance()
		if err := p.skipTemplateParams(); err != nil {
			return nil, err
		}
		return p.parseFunctionOrVar(attrs, true, doc)
	default:
		return p.parseFunctionOrVar(attrs, false, doc)
	}
}

func (p *Parser) skipTemplateParams() error {
	if _, err := p.expectPunct("<"); err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		if p.at(TokEOF, "") {
			return fmt.Errorf("unterminated template parameter list")
		}
		if p.atPunct("<") {
			depth++
		} else if p.atPunct(">") {
			depth--
		}
		p.advance()
	}
	return nil
}

func (p *Parser) parseAttributes() ([]*ast.Attribute, error) {
	var attrs []*ast.Attribute
	for p.atPunct("[[") {
		start := p.advance().Span.Start
		name, err := p.parseQualifiedIdentText()
		if err != nil {
			return nil, err
		}
		var args []ast.Expr
		if p.atPunct("(") {
			p.advance()
			for !p.atPunct(")") {
				e, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, e)
				if p.atPunct(",") {
					p.advance()
				}
			}
			p.advance()
		}
		end := p.cur().Span.End
		if _, err := p.expectPunct("]]"); err != nil {
			return nil, err
		}
		attrs = append(attrs, &ast.Attribute{SpanVal: position.Span{Start: start, End: end}, Name: name, Args: args})
	}
	return attrs, nil
}

func (p *Parser) parseQualifiedIdentText() (string, error) {
	q, err := p.parseQualifiedName()
	if err != nil {
		return "", err
	}
	return q.Join("::"), nil
}

func (p *Parser) parseQualifiedName() (ast.QualifiedName, error) {
	var parts []string
	if !p.at(TokIdent, "") {
		return ast.QualifiedName{}, fmt.Errorf("%s: expected identifier, got %q", p.cur().Span.Start, p.cur().Text)
	}
	parts = append(parts, p.advance().Text)
	for p.atPunct("::") {
		p.advance()
		if !p.at(TokIdent, "") {
			return ast.QualifiedName{}, fmt.Errorf("%s: expected identifier after '::'", p.cur().Span.Start)
		}
		parts = append(parts, p.advance().Text)
	}
	return ast.NewQualifiedName(parts...), nil
}

func (p *Parser) parseNamespace() (ast.Decl, error) {
	start := p.advance().Span.Start // 'namespace'
	name, err := p.parseQualifiedName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	ns := &ast.Namespace{Name: name}
	for !p.atPunct("}") && !p.at(TokEOF, "") {
		d, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		if d != nil {
			ns.Decls = append(ns.Decls, d)
		}
	}
	end := p.cur().Span.End
	if _, err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	ns.SpanVal = position.Span{Start: start, End: end}
	prefixNamespaceDecls(ns.Decls, name.Parts)
	return ns, nil
}

// prefixNamespaceDecls prepends prefix to the name of every record, enum
// and free function declared (transitively, through nested namespaces) in
// decls. parseNamespace applies this once per namespace body as it
// returns, so by the time the program tree is complete every declaration's
// Name already carries its full enclosing-namespace path and no later
// consumer needs to track namespace context itself.
func prefixNamespaceDecls(decls []ast.Decl, prefix []string) {
	for _, d := range decls {
		switch n := d.(type) {
		case *ast.RecordDecl:
			n.Name = ast.NewQualifiedName(append(append([]string{}, prefix...), n.Name.Parts...)...)
			for _, m := range n.Methods {
				if m.OwningRecord != nil {
					owner := n.Name
					m.OwningRecord = &owner
				}
			}
		case *ast.EnumDecl:
			n.Name = ast.NewQualifiedName(append(append([]string{}, prefix...), n.Name.Parts...)...)
		case *ast.FunctionDecl:
			n.Name = ast.NewQualifiedName(append(append([]string{}, prefix...), n.Name.Parts...)...)
		case *ast.Namespace:
			prefixNamespaceDecls(n.Decls, prefix)
		}
	}
}

func (p *Parser) parseRecord(attrs []*ast.Attribute) (ast.Decl, error) {
	kindTok := p.advance().Text
	kind := ast.RecordStruct
	if kindTok == "union" {
		kind = ast.RecordUnion
	}
	start := p.toks[p.idx-1].Span.Start
	name, err := p.parseQualifiedName()
	if err != nil {
		return nil, err
	}

	var templateArgs []ast.Type
	if p.atPunct("<") {
		p.advance()
		for !p.atPunct(">") {
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			templateArgs = append(templateArgs, t)
			if p.atPunct(",") {
				p.advance()
			}
		}
		p.advance()
	}

	var bases []ast.BaseSpec
	if p.atPunct(":") {
		p.advance()
		for {
			if p.atIdent("public") || p.atIdent("private") || p.atIdent("protected") {
				p.advance()
			}
			b, err := p.parseQualifiedName()
			if err != nil {
				return nil, err
			}
			var args []ast.TemplateArg
			if p.atPunct("<") {
				p.advance()
				for !p.atPunct(">") {
					if p.at(TokInt, "") {
						tok := p.advance()
						args = append(args, ast.TemplateArg{Expr: &ast.Literal{SpanVal: tok.Span, Kind: ast.LitInt, Int: tok.Int}})
					} else {
						argType, err := p.parseType()
						if err != nil {
							return nil, err
						}
						args = append(args, ast.TemplateArg{Type: argType})
					}
					if p.atPunct(",") {
						p.advance()
					}
				}
				p.advance()
			}
			bases = append(bases, ast.BaseSpec{Name: b, Args: args})
			if p.atPunct(",") {
				p.advance()
				continue
			}
			break
		}
	}

	rec := &ast.RecordDecl{Name: name, Kind: kind, Bases: bases, TemplateArgs: templateArgs, Attributes: attrs, IsTriviallyCopyable: true}

	if !p.atPunct("{") {
		rec.IsForwardDecl = true
	} else {
		p.advance()
		for !p.atPunct("}") && !p.at(TokEOF, "") {
			if p.atIdent("public") || p.atIdent("private") || p.atIdent("protected") {
				p.advance()
				if p.atPunct(":") {
					p.advance()
				}
				continue
			}
			memberDoc := p.cur().Doc
			memberAttrs, err := p.parseAttributes()
			if err != nil {
				return nil, err
			}
			memberIsStatic := false
			if p.atIdent("static") {
				memberIsStatic = true
				p.advance()
			}
			ty, err := p.parseType()
			if err != nil {
				return nil, err
			}
			memberName := ""
			if p.at(TokIdent, "") {
				memberName = p.advance().Text
			}
			memberQName := ast.NewQualifiedName(memberName)
			if p.atPunct("(") && !strings.HasPrefix(memberName, SyntheticVarPrefix) && !isDirectInitType(ty) {
				fn, err := p.finishFunction(memberAttrs, ty, memberQName, false, memberDoc)
				if err != nil {
					return nil, err
				}
				owner := name
				fn.OwningRecord = &owner
				if memberIsStatic {
					fn.Kind = ast.FuncStatic
				} else {
					fn.Kind = ast.FuncMember
				}
				rec.Methods = append(rec.Methods, fn)
				rec.BodyDecls = append(rec.BodyDecls, fn)
				continue
			}
			if p.atPunct("(") {
				v, err := p.finishVar(memberAttrs, ty, memberQName)
				if err != nil {
					return nil, err
				}
				rec.BodyDecls = append(rec.BodyDecls, v)
				continue
			}
			for !p.atPunct(";") && !p.at(TokEOF, "") {
				p.advance()
			}
			if p.atPunct(";") {
				p.advance()
			}
			rec.Fields = append(rec.Fields, &ast.Field{Name: memberName, Type: ty})
		}
		end := p.cur().Span.End
		if _, err := p.expectPunct("}"); err != nil {
			return nil, err
		}
		rec.SpanVal = position.Span{Start: start, End: end}
	}
	if p.atPunct(";") {
		p.advance()
	}
	if !rec.SpanVal.IsValid() {
		rec.SpanVal = position.Span{Start: start, End: p.cur().Span.End}
	}
	return rec, nil
}

func (p *Parser) parseEnum() (ast.Decl, error) {
	start := p.advance().Span.Start // 'enum'
	if p.atIdent("class") {
		p.advance()
	}
	name, err := p.parseQualifiedName()
	if err != nil {
		return nil, err
	}
	underlying := ""
	if p.atPunct(":") {
		p.advance()
		u, err := p.parseQualifiedName()
		if err != nil {
			return nil, err
		}
		underlying = u.Join("::")
	}
	e := &ast.EnumDecl{Name: name, UnderlyingType: underlying}
	if p.atPunct("{") {
		p.advance()
		next := int64(0)
		for !p.atPunct("}") && !p.at(TokEOF, "") {
			cname := p.advance().Text
			val := next
			if p.atPunct("=") {
				p.advance()
				neg := false
				if p.atPunct("-") {
					neg = true
					p.advance()
				}
				t := p.advance()
				val = t.Int
				if neg {
					val = -val
				}
			}
			e.Constants = append(e.Constants, &ast.EnumConstant{Name: cname, Value: val})
			next = val + 1
			if p.atPunct(",") {
				p.advance()
			}
		}
		end := p.cur().Span.End
		if _, err := p.expectPunct("}"); err != nil {
			return nil, err
		}
		e.SpanVal = position.Span{Start: start, End: end}
	}
	if p.atPunct(";") {
		p.advance()
	}
	return e, nil
}

func (p *Parser) parseType() (ast.Type, error) {
	start := p.cur().Span.Start
	isConst := false
	for p.atIdent("const") {
		isConst = true
		p.advance()
	}
	if p.atIdent("typename") {
		p.advance()
	}
	name, err := p.parseQualifiedName()
	if err != nil {
		return nil, err
	}
	var t ast.Type
	if p.atPunct("<") {
		p.advance()
		var args []ast.TemplateArg
		for !p.atPunct(">") {
			if p.at(TokInt, "") {
				tok := p.advance()
				args = append(args, ast.TemplateArg{Expr: &ast.Literal{SpanVal: tok.Span, Kind: ast.LitInt, Int: tok.Int}})
			} else if p.at(TokString, "") {
				tok := p.advance()
				args = append(args, ast.TemplateArg{Expr: &ast.Literal{SpanVal: tok.Span, Kind: ast.LitString, Str: tok.Text}})
			} else {
				argType, err := p.parseType()
				if err != nil {
					return nil, err
				}
				args = append(args, ast.TemplateArg{Type: argType})
			}
			if p.atPunct(",") {
				p.advance()
			}
		}
		end := p.cur().Span.End
		p.advance()
		t = &ast.TemplateType{SpanVal: position.Span{Start: start, End: end}, Name: name, Args: args, IsConst: isConst}
	} else {
		t = &ast.BasicType{SpanVal: position.Span{Start: start, End: p.cur().Span.End}, Name: name, IsConst: isConst}
	}

	for p.atPunct("&") || p.atPunct("*") {
		isRef := p.cur().Text == "&"
		end := p.advance().Span.End
		if isRef {
			// A leading const on the referenced type makes `const T&` a
			// reference to const; `const T*&` still refers to a mutable pointer.
			refConst := false
			switch e := t.(type) {
			case *ast.BasicType:
				refConst = e.IsConst
			case *ast.TemplateType:
				refConst = e.IsConst
			}
			t = &ast.ReferenceType{SpanVal: position.Span{Start: start, End: end}, Elem: t, IsConst: refConst}
		} else {
			t = &ast.PointerType{SpanVal: position.Span{Start: start, End: end}, Elem: t}
		}
	}
	return t, nil
}

func (p *Parser) parseFunctionOrVar(attrs []*ast.Attribute, isTemplate bool, doc string) (ast.Decl, error) {
	isStatic := false
	for p.atIdent("static") {
		isStatic = true
		p.advance()
	}
	ty, err := p.parseType()
	if err != nil {
		return nil, err
	}
	name, err := p.parseQualifiedName()
	if err != nil {
		return nil, err
	}
	// A synthetic annotation-fragment variable is always direct-initialized
	// ("frem::Code _frem_anno_0_0_42(...)"), which has the same leading
	// shape as a zero-or-more-parameter function declaration. Its reserved
	// name prefix disambiguates it without needing to backtrack.
	if p.atPunct("(") && !strings.HasPrefix(name.Name(), SyntheticVarPrefix) && !isDirectInitType(ty) {
		fn, err := p.finishFunction(attrs, ty, name, isTemplate, doc)
		if err != nil {
			return nil, err
		}
		if isStatic {
			fn.Kind = ast.FuncStatic
		}
		return fn, nil
	}
	return p.finishVar(attrs, ty, name)
}

func (p *Parser) finishFunction(attrs []*ast.Attribute, retType ast.Type, name ast.QualifiedName, isTemplate bool, doc string) (*ast.FunctionDecl, error) {
	start := retType.Span().Start
	p.advance() // '('
	var params []*ast.Param
	for !p.atPunct(")") {
		pStart := p.cur().Span.Start
		ptype, err := p.parseType()
		if err != nil {
			return nil, err
		}
		pname := ""
		if p.at(TokIdent, "") {
			pname = p.advance().Text
		}
		_, isRef := ptype.(*ast.ReferenceType)
		_, isPtr := ptype.(*ast.PointerType)
		dir := ast.DirIn
		if isRef {
			if ref, ok := ptype.(*ast.ReferenceType); ok && !ref.IsConst {
				dir = ast.DirOut
			}
		}
		params = append(params, &ast.Param{SpanVal: position.Span{Start: pStart, End: p.cur().Span.End}, Name: pname, Type: ptype, Direction: dir, IsPointer: isPtr})
		if p.atPunct(",") {
			p.advance()
		}
	}
	p.advance() // ')'
	isConst := false
	if p.atIdent("const") {
		isConst = true
		p.advance()
	}
	isNoexcept := false
	if p.atIdent("noexcept") {
		isNoexcept = true
		p.advance()
	}
	if p.atPunct("{") {
		depth := 0
		for {
			if p.atPunct("{") {
				depth++
			} else if p.atPunct("}") {
				depth--
			}
			p.advance()
			if depth == 0 {
				break
			}
		}
	} else if p.atPunct(";") {
		p.advance()
	}
	fn := &ast.FunctionDecl{
		SpanVal:    position.Span{Start: start, End: p.toks[p.idx-1].Span.End},
		Name:       name,
		Kind:       ast.FuncFree,
		Params:     params,
		ReturnType: retType,
		IsNoexcept: isNoexcept,
		IsConst:    isConst,
		IsTemplate: isTemplate,
		Attributes: attrs,
		DocComment: doc,
	}
	return fn, nil
}

func (p *Parser) finishVar(attrs []*ast.Attribute, ty ast.Type, name ast.QualifiedName) (*ast.VarDecl, error) {
	start := ty.Span().Start
	var init ast.Expr
	if p.atPunct("(") {
		p.advance()
		var args []ast.Expr
		for !p.atPunct(")") {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, e)
			if p.atPunct(",") {
				p.advance()
			}
		}
		end := p.cur().Span.End
		p.advance()
		init = &ast.CallExpr{SpanVal: position.Span{Start: start, End: end}, Callee: name, Args: args}
	} else if p.atPunct("=") {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		init = e
	}
	for !p.atPunct(";") && !p.at(TokEOF, "") {
		p.advance()
	}
	if p.atPunct(";") {
		p.advance()
	}
	return &ast.VarDecl{SpanVal: position.Span{Start: start, End: p.toks[p.idx-1].Span.End}, Name: name, Type: ty, Init: init, Attributes: attrs}, nil
}

func (p *Parser) parseExpr() (ast.Expr, error) {
	switch {
	case p.at(TokString, ""):
		t := p.advance()
		return &ast.Literal{SpanVal: t.Span, Kind: ast.LitString, Str: t.Text}, nil
	case p.at(TokInt, ""):
		t := p.advance()
		return &ast.Literal{SpanVal: t.Span, Kind: ast.LitInt, Int: t.Int}, nil
	case p.at(TokFloat, ""):
		t := p.advance()
		return &ast.Literal{SpanVal: t.Span, Kind: ast.LitFloat, Float: t.Float}, nil
	case p.atIdent("true") || p.atIdent("false"):
		t := p.advance()
		return &ast.Literal{SpanVal: t.Span, Kind: ast.LitBool, Bool: t.Text == "true"}, nil
	case p.at(TokIdent, ""):
		start := p.cur().Span.Start
		name, err := p.parseQualifiedName()
		if err != nil {
			return nil, err
		}
		if p.atPunct("(") {
			p.advance()
			var args []ast.Expr
			for !p.atPunct(")") {
				e, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, e)
				if p.atPunct(",") {
					p.advance()
				}
			}
			end := p.cur().Span.End
			p.advance()
			return &ast.CallExpr{SpanVal: position.Span{Start: start, End: end}, Callee: name, Args: args}, nil
		}
		return &ast.IdentExpr{SpanVal: position.Span{Start: start, End: p.cur().Span.End}, Name: name}, nil
	default:
		return nil, fmt.Errorf("%s: unexpected token %q in expression", p.cur().Span.Start, p.cur().Text)
	}
}
