// Package syntax parses JavaScript modules into a lossless syntax tree that is
// just deep enough to find and rewrite call expressions.
//
// The tree keeps every token with the trivia in front of it, so printing an
// unmodified tree gives back the input byte for byte. Brackets are matched
// into Groups and an identifier directly followed by an argument list becomes
// a CallExpr. Everything else stays a flat run of Leaf tokens.
package syntax

import (
	"fmt"
)

// Error is a syntax error with its position.
type Error struct {
	Position
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}

// nonCallees are keywords that look like calls when followed by '('.
var nonCallees = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"with": true, "return": true, "typeof": true, "function": true, "do": true,
	"else": true, "new": true, "delete": true, "void": true, "throw": true,
	"case": true, "in": true, "of": true, "instanceof": true, "yield": true,
	"await": true, "import": true, "super": true, "class": true, "extends": true,
}

type parser struct {
	lx     *Lexer
	peeked *Token
}

// Parse parses a module's source text.
func Parse(src string) (*Program, error) {
	p := &parser{lx: NewLexer(src)}
	children, eof, err := p.parseList(nil)
	if err != nil {
		return nil, err
	}
	return &Program{Children: children, EOF: eof}, nil
}

func (p *parser) next() Token {
	if p.peeked != nil {
		tok := *p.peeked
		p.peeked = nil
		return tok
	}
	return p.lx.NextToken()
}

func (p *parser) peek() Token {
	if p.peeked == nil {
		tok := p.lx.NextToken()
		p.peeked = &tok
	}
	return *p.peeked
}

// parseList reads nodes until the token closing open, or until EOF at the top
// level (open == nil). It returns the children and the closing leaf.
func (p *parser) parseList(open *Leaf) ([]Node, *Leaf, error) {
	var children []Node
	var prev *Token
	for {
		tok := p.next()
		switch {
		case tok.Type == ILLEGAL:
			return nil, nil, &Error{Position: tok.Pos(), Msg: tok.Literal}
		case tok.Type == EOF:
			if open != nil {
				return nil, nil, &Error{Position: open.Pos(), Msg: fmt.Sprintf("unclosed %s", describe(open.Tok))}
			}
			return children, &Leaf{Tok: tok}, nil
		case isCloser(tok):
			if open == nil || !closes(open.Tok, tok) {
				return nil, nil, &Error{Position: tok.Pos(), Msg: fmt.Sprintf("unexpected %s", describe(tok))}
			}
			return children, &Leaf{Tok: tok}, nil
		case isOpener(tok):
			g, err := p.parseGroup(tok)
			if err != nil {
				return nil, nil, err
			}
			children = append(children, g)
			prev = &g.Close.Tok
			continue
		case tok.Type == IDENT && !nonCallees[tok.Literal] && p.peek().is("("):
			callee := &Leaf{Tok: tok}
			args, err := p.parseGroup(p.next())
			if err != nil {
				return nil, nil, err
			}
			declared := prev != nil && prev.Type == IDENT && (prev.Literal == "function" || prev.Literal == "get" || prev.Literal == "set" || prev.Literal == "async")
			// name(params) { ... } is a method definition, not a call
			method := p.peek().is("{")
			if declared || method {
				children = append(children, callee, args)
			} else {
				member := prev != nil && (prev.is(".") || prev.is("?."))
				children = append(children, &CallExpr{Callee: callee, Args: args, Member: member})
			}
			prev = &args.Close.Tok
			continue
		}
		children = append(children, &Leaf{Tok: tok})
		t := tok
		prev = &t
	}
}

func (p *parser) parseGroup(open Token) (*Group, error) {
	g := &Group{Open: &Leaf{Tok: open}}
	children, closing, err := p.parseList(g.Open)
	if err != nil {
		return nil, err
	}
	g.Children = children
	g.Close = closing
	return g, nil
}

func isOpener(tok Token) bool {
	return tok.Type == TEMPLATE_HEAD || tok.is("(") || tok.is("[") || tok.is("{")
}

func isCloser(tok Token) bool {
	return tok.Type == TEMPLATE_TAIL || tok.is(")") || tok.is("]") || tok.is("}")
}

func closes(open, closing Token) bool {
	switch {
	case open.Type == TEMPLATE_HEAD:
		return closing.Type == TEMPLATE_TAIL
	case open.is("("):
		return closing.is(")")
	case open.is("["):
		return closing.is("]")
	case open.is("{"):
		return closing.is("}")
	}
	return false
}

func describe(tok Token) string {
	switch tok.Type {
	case TEMPLATE_HEAD:
		return "template literal"
	case TEMPLATE_TAIL:
		return "end of template literal"
	}
	return fmt.Sprintf("%q", tok.Literal)
}
