package ast

// Visitor dispatches on a node's Kind (spec §4.7: "Visitor returns bool from
// visit(node) to control descent"). Returning false from a Visit* method
// skips descending into that node's children.
type Visitor interface {
	VisitExpr(Expr) bool
	VisitStat(Stat) bool
	VisitType(Type) bool
}

// Walk performs a depth-first traversal, calling v's methods and
// recursing into children unless the visitor returns false.
func Walk(v Visitor, n Node) {
	switch node := n.(type) {
	case Expr:
		if !v.VisitExpr(node) {
			return
		}
		walkExprChildren(v, node)
	case Stat:
		if !v.VisitStat(node) {
			return
		}
		walkStatChildren(v, node)
	case Type:
		if !v.VisitType(node) {
			return
		}
		walkTypeChildren(v, node)
	}
}

func walkExprChildren(v Visitor, n Expr) {
	switch e := n.(type) {
	case *Call:
		Walk(v, e.Function)
		for _, a := range e.Args {
			Walk(v, a)
		}
	case *IndexName:
		Walk(v, e.Object)
	case *IndexExpr:
		Walk(v, e.Object)
		Walk(v, e.Index)
	case *FunctionLiteral:
		Walk(v, e.Body)
	case *TableConstructor:
		for _, item := range e.Items {
			if item.Key != nil {
				Walk(v, item.Key)
			}
			Walk(v, item.Value)
		}
	case *Unary:
		Walk(v, e.Operand)
	case *Binary:
		Walk(v, e.Left)
		Walk(v, e.Right)
	case *TypeAssertion:
		Walk(v, e.Operand)
		Walk(v, e.Type)
	case *IfExpr:
		Walk(v, e.Cond)
		Walk(v, e.Then)
		Walk(v, e.Else)
	case *CompoundAssignExpr:
		Walk(v, e.Target)
		Walk(v, e.Value)
	}
}

func walkStatChildren(v Visitor, n Stat) {
	switch s := n.(type) {
	case *Block:
		for _, st := range s.Stats {
			Walk(v, st)
		}
	case *IfStat:
		Walk(v, s.Cond)
		Walk(v, s.Then)
		for _, ei := range s.ElseIfs {
			Walk(v, ei.Cond)
			Walk(v, ei.Body)
		}
		if s.Else != nil {
			Walk(v, s.Else)
		}
	case *WhileStat:
		Walk(v, s.Cond)
		Walk(v, s.Body)
	case *RepeatStat:
		Walk(v, s.Body)
		Walk(v, s.Cond)
	case *NumericForStat:
		Walk(v, s.Start)
		Walk(v, s.Limit)
		if s.Step != nil {
			Walk(v, s.Step)
		}
		Walk(v, s.Body)
	case *GenericForStat:
		for _, e := range s.Exprs {
			Walk(v, e)
		}
		Walk(v, s.Body)
	case *FunctionStat:
		Walk(v, s.Func)
	case *LocalStat:
		for _, val := range s.Values {
			Walk(v, val)
		}
		if s.Func != nil {
			Walk(v, s.Func)
		}
	case *AssignStat:
		for _, t := range s.Targets {
			Walk(v, t)
		}
		for _, val := range s.Values {
			Walk(v, val)
		}
	case *CompoundAssignStat:
		Walk(v, s.Target)
		Walk(v, s.Value)
	case *ReturnStat:
		for _, val := range s.Values {
			Walk(v, val)
		}
	case *ExprStat:
		Walk(v, s.Call)
	}
}

func walkTypeChildren(v Visitor, n Type) {
	switch t := n.(type) {
	case *NamedType:
		for _, g := range t.Generics {
			Walk(v, g)
		}
	case *TableType:
		for _, p := range t.Props {
			Walk(v, p.Type)
		}
		if t.Indexer != nil {
			Walk(v, t.Indexer)
		}
	case *FunctionType:
		for _, p := range t.Params {
			Walk(v, p)
		}
		if t.Variadic != nil {
			Walk(v, t.Variadic)
		}
		for _, r := range t.Return {
			Walk(v, r)
		}
	case *UnionType:
		for _, o := range t.Options {
			Walk(v, o)
		}
	case *IntersectionType:
		for _, o := range t.Options {
			Walk(v, o)
		}
	}
}

// BaseVisitor is embeddable by visitors that only care about a subset of
// node kinds; all methods default to "descend into everything".
type BaseVisitor struct{}

func (BaseVisitor) VisitExpr(Expr) bool { return true }
func (BaseVisitor) VisitStat(Stat) bool { return true }
func (BaseVisitor) VisitType(Type) bool { return true }
