// Package expr implements the predicate language used by requirement
// template applicability expressions.
//
// Grammar:
//
//	expr := or
//	or   := and ("||" and)*
//	and  := term ("&&" term)*
//	term := IDENT "==" (STRING | BOOL)
//
// "&&" binds tighter than "||". Evaluation is left-to-right and
// short-circuits. A comparison against an identifier missing from the facts
// record is false, never an error: templates routinely reference facts that a
// given asset does not supply, and absence means non-match.
//
// Expressions are parsed into a small AST rather than delegated to a general
// expression engine, which keeps the language closed and removes any code
// evaluation surface. Parentheses and negation are not part of the grammar
// and are rejected at parse time.
package expr

import (
	"fmt"
	"strings"
	"sync"

	dErrors "mintgate/pkg/domain-errors"
)

// Facts is a flat record of fact fields. Values are strings or bools.
type Facts map[string]any

type tokenKind int

const (
	tokenIdent tokenKind = iota
	tokenString
	tokenBool
	tokenEq
	tokenAnd
	tokenOr
	tokenEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// term is one IDENT == literal comparison.
type term struct {
	ident   string
	literal any // string or bool
}

func (t term) eval(facts Facts) bool {
	v, ok := facts[t.ident]
	if !ok {
		return false
	}
	switch want := t.literal.(type) {
	case string:
		got, ok := v.(string)
		return ok && got == want
	case bool:
		got, ok := v.(bool)
		return ok && got == want
	}
	return false
}

// Program is a compiled applicability expression. It is immutable and safe
// for concurrent use.
type Program struct {
	// or-of-ands: outer slice joined by "||", inner slices by "&&".
	clauses [][]term
}

// Compile parses an applicability expression into a Program.
// Returns a CodeMalformedExpression domain error on syntax the grammar does
// not cover; callers iterating templates must treat that as skip-and-report,
// not as a batch failure.
func Compile(input string) (*Program, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens, input: input}
	prog, err := p.parse()
	if err != nil {
		return nil, err
	}
	return prog, nil
}

// Evaluate compiles and evaluates input against facts in one call. Prefer a
// Cache when the same expression is evaluated repeatedly.
func Evaluate(input string, facts Facts) (bool, error) {
	prog, err := Compile(input)
	if err != nil {
		return false, err
	}
	return prog.Eval(facts), nil
}

// Eval evaluates the program against a facts record. Pure: same inputs, same
// result, no side effects.
func (p *Program) Eval(facts Facts) bool {
	for _, clause := range p.clauses {
		matched := true
		for _, t := range clause {
			if !t.eval(facts) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

// MatchedFields returns, in expression order without duplicates, the fact
// fields whose comparisons hold for this facts record. Used to build
// human-readable match rationale.
func (p *Program) MatchedFields(facts Facts) []string {
	seen := make(map[string]struct{})
	var fields []string
	for _, clause := range p.clauses {
		for _, t := range clause {
			if !t.eval(facts) {
				continue
			}
			if _, dup := seen[t.ident]; dup {
				continue
			}
			seen[t.ident] = struct{}{}
			fields = append(fields, t.ident)
		}
	}
	return fields
}

// Idents returns every identifier the expression references, in order,
// without duplicates.
func (p *Program) Idents() []string {
	seen := make(map[string]struct{})
	var idents []string
	for _, clause := range p.clauses {
		for _, t := range clause {
			if _, dup := seen[t.ident]; dup {
				continue
			}
			seen[t.ident] = struct{}{}
			idents = append(idents, t.ident)
		}
	}
	return idents
}

// Cache memoizes compiled programs. Templates are immutable once published,
// so entries are keyed by (template id, version) and never invalidated.
type Cache struct {
	programs sync.Map // string -> *Program
}

// NewCache returns an empty program cache.
func NewCache() *Cache {
	return &Cache{}
}

// Get compiles input under key, reusing a prior compilation when present.
func (c *Cache) Get(key, input string) (*Program, error) {
	if v, ok := c.programs.Load(key); ok {
		return v.(*Program), nil
	}
	prog, err := Compile(input)
	if err != nil {
		return nil, err
	}
	actual, _ := c.programs.LoadOrStore(key, prog)
	return actual.(*Program), nil
}

// ---------------------------------------------------------------------------
// Lexer
// ---------------------------------------------------------------------------

func lex(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '&':
			if i+1 >= len(input) || input[i+1] != '&' {
				return nil, malformed(input, i, "expected \"&&\"")
			}
			tokens = append(tokens, token{kind: tokenAnd, text: "&&", pos: i})
			i += 2
		case c == '|':
			if i+1 >= len(input) || input[i+1] != '|' {
				return nil, malformed(input, i, "expected \"||\"")
			}
			tokens = append(tokens, token{kind: tokenOr, text: "||", pos: i})
			i += 2
		case c == '=':
			if i+1 >= len(input) || input[i+1] != '=' {
				return nil, malformed(input, i, "expected \"==\"")
			}
			tokens = append(tokens, token{kind: tokenEq, text: "==", pos: i})
			i += 2
		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			for j < len(input) && input[j] != quote {
				j++
			}
			if j >= len(input) {
				return nil, malformed(input, i, "unterminated string literal")
			}
			tokens = append(tokens, token{kind: tokenString, text: input[i+1 : j], pos: i})
			i = j + 1
		case isIdentStart(c):
			j := i + 1
			for j < len(input) && isIdentPart(input[j]) {
				j++
			}
			word := input[i:j]
			if word == "true" || word == "false" {
				tokens = append(tokens, token{kind: tokenBool, text: word, pos: i})
			} else {
				tokens = append(tokens, token{kind: tokenIdent, text: word, pos: i})
			}
			i = j
		default:
			return nil, malformed(input, i, fmt.Sprintf("unexpected character %q", c))
		}
	}
	tokens = append(tokens, token{kind: tokenEOF, pos: len(input)})
	return tokens, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// ---------------------------------------------------------------------------
// Parser
// ---------------------------------------------------------------------------

type parser struct {
	tokens []token
	input  string
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) parse() (*Program, error) {
	if strings.TrimSpace(p.input) == "" {
		return nil, malformed(p.input, 0, "empty expression")
	}
	clauses, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokenEOF {
		return nil, malformed(p.input, tok.pos, "trailing input after expression")
	}
	return &Program{clauses: clauses}, nil
}

func (p *parser) parseOr() ([][]term, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	clauses := [][]term{first}
	for p.peek().kind == tokenOr {
		p.next()
		clause, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}
	return clauses, nil
}

func (p *parser) parseAnd() ([]term, error) {
	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	clause := []term{first}
	for p.peek().kind == tokenAnd {
		p.next()
		t, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		clause = append(clause, t)
	}
	return clause, nil
}

func (p *parser) parseTerm() (term, error) {
	ident := p.next()
	if ident.kind != tokenIdent {
		return term{}, malformed(p.input, ident.pos, "expected identifier")
	}
	eq := p.next()
	if eq.kind != tokenEq {
		return term{}, malformed(p.input, eq.pos, "expected \"==\" after identifier")
	}
	lit := p.next()
	switch lit.kind {
	case tokenString:
		return term{ident: ident.text, literal: lit.text}, nil
	case tokenBool:
		return term{ident: ident.text, literal: lit.text == "true"}, nil
	default:
		return term{}, malformed(p.input, lit.pos, "expected string or boolean literal")
	}
}

func malformed(input string, pos int, reason string) error {
	return dErrors.Newf(dErrors.CodeMalformedExpression,
		"malformed expression at offset %d: %s", pos, reason)
}
