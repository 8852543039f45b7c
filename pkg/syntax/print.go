package syntax

import (
	"strings"
)

// Print renders a node back to source text.
func Print(n Node) string {
	var b strings.Builder
	Fprint(&b, n)
	return b.String()
}

// Fprint writes the source text of n to b.
func Fprint(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case *Leaf:
		b.WriteString(n.Tok.Leading)
		b.WriteString(n.Tok.Literal)
	case *Group:
		Fprint(b, n.Open)
		for _, c := range n.Children {
			Fprint(b, c)
		}
		Fprint(b, n.Close)
	case *CallExpr:
		Fprint(b, n.Callee)
		Fprint(b, n.Args)
	case *Program:
		for _, c := range n.Children {
			Fprint(b, c)
		}
		if n.EOF != nil {
			Fprint(b, n.EOF)
		}
	}
}
