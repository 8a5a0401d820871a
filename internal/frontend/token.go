// Package frontend implements a small lexer and recursive-descent parser
// for the annotated-source subset FremGen needs to understand: namespaces,
// records, enums, functions, attributes, template-id types and the
// synthetic declarations internal/rewriter injects. It stands in for the
// typed tree a real systems-language front end would hand to an AST
// consumer; it performs no semantic analysis of function bodies.
package frontend

import "github.com/andsch11/fremgen/internal/position"

// TokenKind classifies a single lexical token.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokString
	TokInt
	TokFloat
	TokPunct
)

// Token is one lexeme with its source span. Doc carries the raw comment
// text immediately preceding the token, if any (blank-line separated),
// used to recover a declaration's documentation.
type Token struct {
	Kind  TokenKind
	Text  string
	Int   int64
	Float float64
	Span  position.Span
	Doc   string
}

// SyntheticVarPrefix marks the name of a direct-initialized variable
// declaration internal/rewriter splices in ahead of an annotated
// declaration (one per macro argument, plus the FREM_TYPE_ALIAS form).
// The parser always treats a name with this prefix as a variable even
// when it is followed by '(', since no real declaration in annotated
// source uses it; this is what lets the harvester tell an annotation
// fragment apart from an ordinary zero-argument function declaration.
const SyntheticVarPrefix = "_frem_anno_"
