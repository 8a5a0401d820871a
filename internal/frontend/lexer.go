package frontend

import (
	"strconv"
	"strings"

	"github.com/andsch11/fremgen/internal/position"
)

// Lexer turns annotated source text into a token stream.
type Lexer struct {
	filename string
	src      []byte
	pos      int
	line     int
	col      int
}

// NewLexer creates a Lexer over src, attributing positions to filename.
func NewLexer(filename string, src []byte) *Lexer {
	return &Lexer{filename: filename, src: src, pos: 0, line: 1, col: 1}
}

func (l *Lexer) here() position.Position {
	return position.Position{Filename: l.filename, Line: l.line, Column: l.col, Offset: l.pos}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Tokenize consumes the entire source and returns its token list, stripping
// line and block comments. The last comment immediately preceding a token
// (with no intervening blank line) is attached to that token's Doc field,
// so the parser can recover per-declaration documentation.
func (l *Lexer) Tokenize() ([]Token, error) {
	var toks []Token
	pendingDoc := ""
	// newlines counts line breaks since the last comment or token; a second
	// one means a blank line, which drops any pending doc comment.
	newlines := 0

	emit := func(tk Token) {
		tk.Doc = pendingDoc
		pendingDoc = ""
		toks = append(toks, tk)
		newlines = 0
	}

	for l.pos < len(l.src) {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			l.advance()
		case c == '\n':
			l.advance()
			newlines++
			if newlines >= 2 {
				pendingDoc = ""
			}
		case c == '/' && l.peekAt(1) == '/':
			start := l.pos
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
			text := strings.TrimSpace(strings.TrimPrefix(string(l.src[start:l.pos]), "//"))
			if pendingDoc == "" {
				pendingDoc = text
			} else {
				pendingDoc += "\n" + text
			}
			newlines = 0
		case c == '/' && l.peekAt(1) == '*':
			start := l.pos
			l.advance()
			l.advance()
			for l.pos < len(l.src) && !(l.peek() == '*' && l.peekAt(1) == '/') {
				l.advance()
			}
			if l.pos < len(l.src) {
				l.advance()
				l.advance()
			}
			raw := string(l.src[start:l.pos])
			raw = strings.TrimPrefix(raw, "/*")
			raw = strings.TrimSuffix(raw, "*/")
			pendingDoc = strings.TrimSpace(raw)
			newlines = 0
		case isIdentStart(c):
			startPos := l.here()
			start := l.pos
			for l.pos < len(l.src) && isIdentCont(l.peek()) {
				l.advance()
			}
			text := string(l.src[start:l.pos])
			emit(Token{Kind: TokIdent, Text: text, Span: position.Span{Start: startPos, End: l.here()}})
		case isDigit(c):
			startPos := l.here()
			start := l.pos
			isFloat := false
			for l.pos < len(l.src) && (isDigit(l.peek()) || l.peek() == '.') {
				if l.peek() == '.' {
					isFloat = true
				}
				l.advance()
			}
			text := string(l.src[start:l.pos])
			tk := Token{Span: position.Span{Start: startPos, End: l.here()}}
			if isFloat {
				f, _ := strconv.ParseFloat(text, 64)
				tk.Kind = TokFloat
				tk.Float = f
			} else {
				n, _ := strconv.ParseInt(text, 10, 64)
				tk.Kind = TokInt
				tk.Int = n
			}
			tk.Text = text
			emit(tk)
		case c == '"':
			startPos := l.here()
			l.advance()
			var sb strings.Builder
			for l.pos < len(l.src) && l.peek() != '"' {
				ch := l.advance()
				if ch == '\\' && l.pos < len(l.src) {
					ch = l.advance()
				}
				sb.WriteByte(ch)
			}
			if l.pos < len(l.src) {
				l.advance()
			}
			emit(Token{Kind: TokString, Text: sb.String(), Span: position.Span{Start: startPos, End: l.here()}})
		default:
			startPos := l.here()
			two := string(l.peek()) + string(l.peekAt(1))
			if two == "::" || two == "[[" || two == "]]" {
				l.advance()
				l.advance()
				emit(Token{Kind: TokPunct, Text: two, Span: position.Span{Start: startPos, End: l.here()}})
				continue
			}
			ch := l.advance()
			emit(Token{Kind: TokPunct, Text: string(ch), Span: position.Span{Start: startPos, End: l.here()}})
		}
	}
	toks = append(toks, Token{Kind: TokEOF, Span: position.SpanOf(l.here())})
	return toks, nil
}
