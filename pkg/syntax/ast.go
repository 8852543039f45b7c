package syntax

import (
	"fmt"
	"strconv"
)

// Position is a 1-based line and column in the source.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Node is a node of the syntax tree.
type Node interface {
	Pos() Position
	node()
}

// Leaf is a single token.
type Leaf struct {
	Tok Token
}

// Group is a bracketed sequence: (...), [...], {...}, or a template literal
// with substitutions, in which case Open is the TEMPLATE_HEAD token, Close the
// TEMPLATE_TAIL token and every TEMPLATE_MIDDLE token is a child Leaf.
type Group struct {
	Open     *Leaf
	Children []Node
	Close    *Leaf
}

// CallExpr is an identifier immediately applied to an argument list.
type CallExpr struct {
	Callee *Leaf
	Args   *Group
	// Member is set when the callee is a property name, as in a.require(...).
	Member bool
}

// Program is the root of a parsed module.
type Program struct {
	Children []Node
	// EOF holds the trivia after the last token.
	EOF *Leaf
}

func (n *Leaf) Pos() Position     { return n.Tok.Pos() }
func (n *Group) Pos() Position    { return n.Open.Pos() }
func (n *CallExpr) Pos() Position { return n.Callee.Pos() }
func (n *Program) Pos() Position  { return Position{Line: 1, Column: 1} }

func (*Leaf) node()     {}
func (*Group) node()    {}
func (*CallExpr) node() {}
func (*Program) node()  {}

// Name returns the callee identifier.
func (n *CallExpr) Name() string {
	return n.Callee.Tok.Literal
}

// Arguments returns the argument nodes with separating commas removed.
// Arguments that span several nodes, such as a + b, are not split apart:
// the result is only meaningful for single-node arguments.
func (n *CallExpr) Arguments() []Node {
	var args []Node
	for _, c := range n.Args.Children {
		if l, ok := c.(*Leaf); ok && l.Tok.is(",") {
			continue
		}
		args = append(args, c)
	}
	return args
}

// StringArg returns the value of the call's only argument when that argument
// is a string literal or a template literal without substitutions.
func (n *CallExpr) StringArg() (string, bool) {
	if len(n.Args.Children) == 0 {
		return "", false
	}
	children := n.Args.Children
	if l, ok := children[len(children)-1].(*Leaf); ok && l.Tok.is(",") {
		children = children[:len(children)-1]
	}
	if len(children) != 1 {
		return "", false
	}
	leaf, ok := children[0].(*Leaf)
	if !ok {
		return "", false
	}
	switch leaf.Tok.Type {
	case STRING, TEMPLATE:
		lit := leaf.Tok.Literal
		v, err := Unquote(lit[1 : len(lit)-1])
		if err != nil {
			return "", false
		}
		return v, true
	}
	return "", false
}

// ReplaceCallee renames the callee, keeping the trivia in front of it.
func (n *CallExpr) ReplaceCallee(name string) {
	tok := n.Callee.Tok
	tok.Literal = name
	tok.EndPos = tok.StartPos + len(name)
	n.Callee = &Leaf{Tok: tok}
}

// ReplaceArgs swaps the argument list for args, keeping the parentheses.
func (n *CallExpr) ReplaceArgs(args ...Node) {
	var children []Node
	for i, a := range args {
		if i > 0 {
			children = append(children, &Leaf{Tok: Token{Type: PUNCT, Literal: ",", Leading: ""}})
			if l, ok := a.(*Leaf); ok && l.Tok.Leading == "" {
				l.Tok.Leading = " "
			}
		}
		children = append(children, a)
	}
	n.Args.Children = children
}

// Replace substitutes the i-th child of the group.
func (n *Group) Replace(i int, with Node) {
	n.Children[i] = with
}

// NewString returns a double-quoted string literal leaf holding value.
func NewString(value string) *Leaf {
	return &Leaf{Tok: Token{Type: STRING, Literal: strconv.Quote(value)}}
}

// NewIdent returns an identifier leaf.
func NewIdent(name string) *Leaf {
	return &Leaf{Tok: Token{Type: IDENT, Literal: name}}
}
