// Package rewriter intercepts FREM_RPC and FREM_TYPE_ALIAS macro-call-shaped
// token runs before parsing and splices in the synthetic declarations the
// syntax-tree harvester expects: one annotation-fragment variable per
// macro argument, sharing a numeric annotation group, plus an attribute
// tag on the declaration that follows.
package rewriter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/andsch11/fremgen/internal/diagnostic"
	"github.com/andsch11/fremgen/internal/frontend"
	"github.com/andsch11/fremgen/internal/position"
)

// GroupSite records where a synthetic annotation-fragment variable's
// macro invocation originated, keyed by the variable's synthetic name.
// This structured side-channel is the primary way internal/harvester
// recovers a fragment's annotation group; the group id is also encoded
// in the variable's own name as a fallback for files the rewriter did
// not itself just process.
type GroupSite struct {
	GroupID  int
	Location position.Position
}

// FunctionTagAttr is the attribute name the rewriter attaches to the
// declaration following a FREM_RPC(...) invocation.
const FunctionTagAttr = "frem::tag"

// TagPrefix prefixes the encoded group id carried in a FunctionTagAttr
// attribute argument.
const TagPrefix = "_frem_rpc:"

// Rewriter splices synthetic declarations into a token stream. Its
// counters are instance fields rather than process-wide state, so a
// fresh Rewriter gives each extraction run its own numbering.
type Rewriter struct {
	groupCounter int
	varCounter   int
	diags        *diagnostic.Sink
}

// New creates a Rewriter with its counters at zero. diags receives the
// malformed-macro-argument diagnostics Rewrite raises; passing nil
// silently drops them (used by call sites that only care about the
// happy path, such as most of this package's own tests).
func New(diags *diagnostic.Sink) *Rewriter {
	return &Rewriter{diags: diags}
}

func (r *Rewriter) errorf(span position.Span, format string, args ...any) {
	if r.diags == nil {
		return
	}
	r.diags.Errorf(diagnostic.CategoryParse, span, format, args...)
}

// Rewrite scans toks for FREM_RPC(...) and FREM_TYPE_ALIAS(...) invocations
// and returns the rewritten token stream together with the group-site
// side-channel for every synthetic variable it introduced.
func (r *Rewriter) Rewrite(toks []frontend.Token) ([]frontend.Token, map[string]GroupSite, error) {
	out := make([]frontend.Token, 0, len(toks))
	sites := make(map[string]GroupSite)

	i := 0
	for i < len(toks) {
		t := toks[i]
		switch {
		case t.Kind == frontend.TokIdent && t.Text == "FREM_RPC":
			args, next, err := captureParenArgs(toks, i+1)
			if err != nil {
				return nil, nil, err
			}
			groupID := r.groupCounter
			r.groupCounter++
			if len(args) == 0 {
				r.errorf(t.Span, "FREM_RPC(...) requires at least one argument")
			}
			for _, argToks := range splitTopLevelCommas(args) {
				calleeName, callArgs := splitCallNameArgs(argToks)
				if calleeName == "" {
					r.errorf(t.Span, "expected identifier at the start of a FREM_RPC argument")
					continue
				}
				name := r.nextVarName(groupID, t.Span.Start)
				sites[name] = GroupSite{GroupID: groupID, Location: t.Span.Start}
				out = append(out, syntheticMarkerVarTokens(calleeName, name, callArgs, t.Span)...)
			}
			out = append(out, functionTagAttrTokens(groupID, t.Span)...)
			i = next

		case t.Kind == frontend.TokIdent && t.Text == "FREM_TYPE_ALIAS":
			args, next, err := captureParenArgs(toks, i+1)
			if err != nil {
				return nil, nil, err
			}
			parts := splitTopLevelCommas(args)
			if len(parts) != 2 {
				return nil, nil, fmt.Errorf("%s: FREM_TYPE_ALIAS expects 2 arguments, got %d", t.Span.Start, len(parts))
			}
			name := r.nextVarName(r.groupCounter, t.Span.Start)
			r.groupCounter++
			out = append(out, typeAliasVarTokens(parts[0], name, parts[1], t.Span)...)
			if next < len(toks) && toks[next].Kind == frontend.TokPunct && toks[next].Text == ";" {
				next++
			}
			i = next

		default:
			out = append(out, t)
			i++
		}
	}
	return out, sites, nil
}

func (r *Rewriter) nextVarName(groupID int, loc position.Position) string {
	name := fmt.Sprintf("%s%d_%d_%d", frontend.SyntheticVarPrefix, r.varCounter, groupID, loc.Offset)
	r.varCounter++
	return name
}

// ParseSyntheticName recovers the group id encoded in a synthetic
// annotation-fragment variable name by parsing the string from the end.
// It is the fallback path the harvester uses when a variable has no
// entry in the structured GroupSite side-channel (the file was re-lexed
// independently of the rewrite pass that produced it).
func ParseSyntheticName(name string) (groupID int, offset int, ok bool) {
	last := strings.LastIndex(name, "_")
	if last < 0 {
		return 0, 0, false
	}
	offsetStr := name[last+1:]
	rest := name[:last]
	second := strings.LastIndex(rest, "_")
	if second < 0 {
		return 0, 0, false
	}
	groupStr := rest[second+1:]

	g, err1 := strconv.Atoi(groupStr)
	o, err2 := strconv.Atoi(offsetStr)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return g, o, true
}

// captureParenArgs consumes a balanced ( ... ) run starting at toks[start]
// (which must be "(") and returns the tokens strictly inside it, plus the
// index of the token following the closing paren.
func captureParenArgs(toks []frontend.Token, start int) ([]frontend.Token, int, error) {
	if start >= len(toks) || toks[start].Text != "(" {
		return nil, 0, fmt.Errorf("%s: expected '(' after macro name", toks[start].Span.Start)
	}
	depth := 1
	i := start + 1
	argStart := i
	for depth > 0 {
		if i >= len(toks) {
			return nil, 0, fmt.Errorf("unterminated macro argument list")
		}
		switch toks[i].Text {
		case "(":
			depth++
		case ")":
			depth--
		}
		if depth == 0 {
			break
		}
		i++
	}
	return toks[argStart:i], i + 1, nil
}

// splitTopLevelCommas splits a token run on commas that are not nested
// inside parens, `[[...]]` attributes, or braces; single square brackets
// are not tracked (a brace-init argument such as
// `Tags({"a","b"})` must not be split on the comma inside the braces).
func splitTopLevelCommas(toks []frontend.Token) [][]frontend.Token {
	var parts [][]frontend.Token
	var cur []frontend.Token
	depth := 0
	for _, t := range toks {
		switch t.Text {
		case "(", "[[", "{":
			depth++
		case ")", "]]", "}":
			depth--
		}
		if depth == 0 && t.Text == "," {
			parts = append(parts, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	if len(cur) > 0 {
		parts = append(parts, cur)
	}
	return parts
}

// splitCallNameArgs splits a `Name ( args... )` or `Name { args... }`
// token run into the callee name and its argument tokens. If toks does
// not start with an identifier followed by '(' or '{', calleeName is
// returned empty.
func splitCallNameArgs(toks []frontend.Token) (string, []frontend.Token) {
	if len(toks) < 3 || toks[0].Kind != frontend.TokIdent {
		return "", nil
	}
	switch {
	case toks[1].Text == "(" && toks[len(toks)-1].Text == ")":
		return toks[0].Text, toks[2 : len(toks)-1]
	case toks[1].Text == "{" && toks[len(toks)-1].Text == "}":
		return toks[0].Text, toks[2 : len(toks)-1]
	default:
		return "", nil
	}
}

func ident(text string, span position.Span) frontend.Token {
	return frontend.Token{Kind: frontend.TokIdent, Text: text, Span: span}
}

func punct(text string, span position.Span) frontend.Token {
	return frontend.Token{Kind: frontend.TokPunct, Text: text, Span: span}
}

func str(text string, span position.Span) frontend.Token {
	return frontend.Token{Kind: frontend.TokString, Text: text, Span: span}
}

// syntheticMarkerVarTokens builds the token run for
// `frem :: <calleeName> <varName> ( <callArgs> ) ;`, the annotation
// fragment declaration that stands in for one FREM_RPC argument.
func syntheticMarkerVarTokens(calleeName, varName string, callArgs []frontend.Token, span position.Span) []frontend.Token {
	toks := []frontend.Token{
		ident("frem", span),
		punct("::", span),
		ident(calleeName, span),
		ident(varName, span),
		punct("(", span),
	}
	toks = append(toks, callArgs...)
	toks = append(toks, punct(")", span), punct(";", span))
	return toks
}

// typeAliasVarTokens builds the token run for
// `frem :: TypeAlias < <aliasedType> > <varName> ( <aliasNameTok> ) ;`.
func typeAliasVarTokens(aliasedType []frontend.Token, varName string, aliasNameTok []frontend.Token, span position.Span) []frontend.Token {
	toks := []frontend.Token{
		ident("frem", span),
		punct("::", span),
		ident("TypeAlias", span),
		punct("<", span),
	}
	toks = append(toks, aliasedType...)
	toks = append(toks, punct(">", span), ident(varName, span), punct("(", span))
	toks = append(toks, aliasNameTok...)
	toks = append(toks, punct(")", span), punct(";", span))
	return toks
}

// functionTagAttrTokens builds the `[[ frem::tag("_frem_rpc:<id>") ]]`
// attribute token run attached to the declaration following FREM_RPC(...).
func functionTagAttrTokens(groupID int, span position.Span) []frontend.Token {
	tag := fmt.Sprintf("%s%d", TagPrefix, groupID)
	return []frontend.Token{
		punct("[[", span),
		ident("frem", span),
		punct("::", span),
		ident("tag", span),
		punct("(", span),
		str(tag, span),
		punct(")", span),
		punct("]]", span),
	}
}
