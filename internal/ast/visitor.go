package ast

// Visitor is implemented by tree consumers that walk a parsed Program.
// It mirrors the one-method-per-node-kind dispatch shape used throughout
// this codebase's AST-adjacent packages, generalized to FremGen's own
// declaration kinds instead of a general-purpose language AST.
type Visitor interface {
	VisitNamespace(n *Namespace) error
	VisitRecord(r *RecordDecl) error
	VisitEnum(e *EnumDecl) error
	VisitFunction(f *FunctionDecl) error
	VisitVar(v *VarDecl) error
}

// Walk dispatches each declaration in prog (recursing into namespaces) to
// the matching Visitor method, in source order.
func Walk(prog *Program, v Visitor) error {
	return walkDecls(prog.Decls, v)
}

func walkDecls(decls []Decl, v Visitor) error {
	for _, d := range decls {
		if err := walkDecl(d, v); err != nil {
			return err
		}
	}
	return nil
}

func walkDecl(d Decl, v Visitor) error {
	switch n := d.(type) {
	case *Namespace:
		if err := v.VisitNamespace(n); err != nil {
			return err
		}
		return walkDecls(n.Decls, v)
	case *RecordDecl:
		if err := v.VisitRecord(n); err != nil {
			return err
		}
		for _, bd := range n.BodyDecls {
			switch m := bd.(type) {
			case *FunctionDecl:
				if err := v.VisitFunction(m); err != nil {
					return err
				}
			case *VarDecl:
				if err := v.VisitVar(m); err != nil {
					return err
				}
			}
		}
		return nil
	case *EnumDecl:
		return v.VisitEnum(n)
	case *FunctionDecl:
		return v.VisitFunction(n)
	case *VarDecl:
		return v.VisitVar(n)
	}
	return nil
}
