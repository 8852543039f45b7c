package syntax

// A Visitor's Visit method is invoked for each node encountered by Walk.
// If the result visitor w is not nil, Walk visits each of the children of
// node with the visitor w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(node Node) (w Visitor)
}

// Walk traverses the tree depth-first in source order.
func Walk(v Visitor, node Node) {
	if v = v.Visit(node); v == nil {
		return
	}
	switch n := node.(type) {
	case *Program:
		walkList(v, n.Children)
	case *Group:
		walkList(v, n.Children)
	case *CallExpr:
		Walk(v, n.Callee)
		Walk(v, n.Args)
	}
	v.Visit(nil)
}

func walkList(v Visitor, list []Node) {
	// index loop: a visitor may replace list elements in place
	for i := 0; i < len(list); i++ {
		Walk(v, list[i])
	}
}

type inspector func(Node) bool

func (f inspector) Visit(node Node) Visitor {
	if f(node) {
		return f
	}
	return nil
}

// Inspect traverses the tree in source order, calling f for each node and
// then with nil after a node's children. Children are skipped when f returns
// false.
func Inspect(node Node, f func(Node) bool) {
	Walk(inspector(f), node)
}
