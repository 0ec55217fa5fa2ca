package ast

// Walk calls visit on e and then, depending on e's concrete type, on every
// child expression. The Count.N of an of/for node is walked as one of
// that node's children (a nil Count.N is skipped).
func Walk(e Expr, visit func(Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch n := e.(type) {
	case BinaryExpr:
		Walk(n.Left, visit)
		Walk(n.Right, visit)
	case NotExpr:
		Walk(n.Inner, visit)
	case ParenExpr:
		Walk(n.Inner, visit)
	case AtExpr:
		Walk(n.Pos, visit)
	case InRangeExpr:
		Walk(n.Low, visit)
		Walk(n.High, visit)
	case StringOffset:
		Walk(n.Index, visit)
	case StringLength:
		Walk(n.Index, visit)
	case FuncCall:
		for _, a := range n.Args {
			Walk(a, visit)
		}
	case OfExpr:
		Walk(n.Count.N, visit)
	case ForOfExpr:
		Walk(n.Count.N, visit)
		Walk(n.Body, visit)
	case ForInSetExpr:
		Walk(n.Count.N, visit)
		for _, i := range n.Ints {
			Walk(i, visit)
		}
		Walk(n.Body, visit)
	case ForInRangeExpr:
		Walk(n.Count.N, visit)
		Walk(n.Low, visit)
		Walk(n.High, visit)
		Walk(n.Body, visit)
	}
}
