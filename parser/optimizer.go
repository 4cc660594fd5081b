package parser

import (
	"math"

	"github.com/galang-lang/gal/ast"
)

// Optimize runs the AST-rewriter pipeline described in spec §4.8 over a
// parsed chunk, in order: each pass only ever simplifies the tree, never
// changes its observable semantics.
func Optimize(block *ast.Block) *ast.Block {
	block = foldConstants(block)
	block = foldBinary(block)
	block = simplifyConstantIf(block)
	block = markUnusedReturns(block)
	block = eliminateDeadCode(block)
	block = simplifyAssignDecl(block)
	block = simplifyBlocks(block)
	block = simplifyReturns(block)
	return block
}

// ---- constant_fold_optimizer: fold unary ops over constant operands ----

func foldConstants(b *ast.Block) *ast.Block {
	rewriteExprs(b, func(e ast.Expr) ast.Expr {
		u, ok := e.(*ast.Unary)
		if !ok {
			return e
		}
		switch operand := u.Operand.(type) {
		case *ast.ConstantNumber:
			if u.Op == ast.UnaryNeg {
				return ast.NewConstantNumber(u.Loc(), -operand.Value)
			}
		case *ast.ConstantBool:
			if u.Op == ast.UnaryNot {
				return ast.NewConstantBool(u.Loc(), !operand.Value)
			}
		}
		return e
	})
	return b
}

// ---- binary_fold_optimizer: fold binary ops over two constant operands ----

func foldBinary(b *ast.Block) *ast.Block {
	rewriteExprs(b, func(e ast.Expr) ast.Expr {
		bin, ok := e.(*ast.Binary)
		if !ok {
			return e
		}
		l, lok := bin.Left.(*ast.ConstantNumber)
		r, rok := bin.Right.(*ast.ConstantNumber)
		if !lok || !rok {
			return e
		}
		switch bin.Op {
		case ast.BinAdd:
			return ast.NewConstantNumber(e.Loc(), l.Value+r.Value)
		case ast.BinSub:
			return ast.NewConstantNumber(e.Loc(), l.Value-r.Value)
		case ast.BinMul:
			return ast.NewConstantNumber(e.Loc(), l.Value*r.Value)
		case ast.BinDiv:
			if r.Value != 0 {
				return ast.NewConstantNumber(e.Loc(), l.Value/r.Value)
			}
		case ast.BinMod:
			if r.Value != 0 {
				return ast.NewConstantNumber(e.Loc(), math.Mod(l.Value, r.Value))
			}
		case ast.BinPow:
			return ast.NewConstantNumber(e.Loc(), math.Pow(l.Value, r.Value))
		case ast.BinLt:
			return ast.NewConstantBool(e.Loc(), l.Value < r.Value)
		case ast.BinLe:
			return ast.NewConstantBool(e.Loc(), l.Value <= r.Value)
		case ast.BinGt:
			return ast.NewConstantBool(e.Loc(), l.Value > r.Value)
		case ast.BinGe:
			return ast.NewConstantBool(e.Loc(), l.Value >= r.Value)
		case ast.BinEq:
			return ast.NewConstantBool(e.Loc(), l.Value == r.Value)
		case ast.BinNe:
			return ast.NewConstantBool(e.Loc(), l.Value != r.Value)
		}
		return e
	})
	return b
}

// ---- constant_if_optimizer: drop the untaken branch of `if true/false` ----

func simplifyConstantIf(b *ast.Block) *ast.Block {
	for i, st := range b.Stats {
		if bst, ok := st.(*ast.Block); ok {
			b.Stats[i] = simplifyConstantIf(bst)
			continue
		}
		ifs, ok := st.(*ast.IfStat)
		if !ok {
			continue
		}
		simplifyConstantIf(ifs.Then)
		for _, ei := range ifs.ElseIfs {
			simplifyConstantIf(ei.Body)
		}
		if ifs.Else != nil {
			simplifyConstantIf(ifs.Else)
		}
		if c, ok := ifs.Cond.(*ast.ConstantBool); ok && len(ifs.ElseIfs) == 0 {
			if c.Value {
				b.Stats[i] = ifs.Then
			} else if ifs.Else != nil {
				b.Stats[i] = ifs.Else
			} else {
				b.Stats[i] = ast.NewBlock(ifs.Loc(), nil)
			}
		}
	}
	return b
}

// ---- unused_return_optimizer: mark call-statements whose result is discarded ----

func markUnusedReturns(b *ast.Block) *ast.Block {
	for _, st := range b.Stats {
		switch s := st.(type) {
		case *ast.ExprStat:
			s.DiscardResult = true
		case *ast.Block:
			markUnusedReturns(s)
		case *ast.IfStat:
			markUnusedReturns(s.Then)
			for _, ei := range s.ElseIfs {
				markUnusedReturns(ei.Body)
			}
			if s.Else != nil {
				markUnusedReturns(s.Else)
			}
		case *ast.WhileStat:
			markUnusedReturns(s.Body)
		case *ast.RepeatStat:
			markUnusedReturns(s.Body)
		case *ast.NumericForStat:
			markUnusedReturns(s.Body)
		case *ast.GenericForStat:
			markUnusedReturns(s.Body)
		}
	}
	return b
}

// ---- dead_code_optimizer: drop statements after an unconditional return/break/continue ----

func eliminateDeadCode(b *ast.Block) *ast.Block {
	for i, st := range b.Stats {
		switch s := st.(type) {
		case *ast.ReturnStat, *ast.BreakStat, *ast.ContinueStat:
			b.Stats = b.Stats[:i+1]
			return b
		case *ast.Block:
			eliminateDeadCode(s)
		case *ast.IfStat:
			eliminateDeadCode(s.Then)
			for _, ei := range s.ElseIfs {
				eliminateDeadCode(ei.Body)
			}
			if s.Else != nil {
				eliminateDeadCode(s.Else)
			}
		case *ast.WhileStat:
			eliminateDeadCode(s.Body)
		case *ast.RepeatStat:
			eliminateDeadCode(s.Body)
		case *ast.NumericForStat:
			eliminateDeadCode(s.Body)
		case *ast.GenericForStat:
			eliminateDeadCode(s.Body)
		}
	}
	return b
}

// ---- assign_decl_optimizer: `local x; x = v` -> `local x = v` when x is
// immediately followed by a single assignment to it and nothing else reads
// x in between ----

func simplifyAssignDecl(b *ast.Block) *ast.Block {
	out := b.Stats[:0]
	for i := 0; i < len(b.Stats); i++ {
		st := b.Stats[i]
		if local, ok := st.(*ast.LocalStat); ok && len(local.Values) == 0 && len(local.Bindings) == 1 && !local.IsLocalFunction {
			if i+1 < len(b.Stats) {
				if assign, ok := b.Stats[i+1].(*ast.AssignStat); ok && len(assign.Targets) == 1 && len(assign.Values) == 1 {
					if ref, ok := assign.Targets[0].(*ast.LocalRef); ok && ref.Name == local.Bindings[0].Name {
						merged := ast.NewLocalStat(local.Loc(), local.Bindings, assign.Values)
						out = append(out, merged)
						i++
						continue
					}
				}
			}
		}
		out = append(out, st)
		if bst, ok := st.(*ast.Block); ok {
			simplifyAssignDecl(bst)
		}
	}
	b.Stats = out
	return b
}

// ---- block_optimizer: inline a nested `do ... end` block that declares no
// locals of its own and drop its scope marker ----

func simplifyBlocks(b *ast.Block) *ast.Block {
	var out []ast.Stat
	for _, st := range b.Stats {
		if inner, ok := st.(*ast.Block); ok {
			simplifyBlocks(inner)
			if !inner.HasScope {
				out = append(out, inner.Stats...)
				continue
			}
		}
		out = append(out, st)
	}
	b.Stats = out
	return b
}

// ---- return_optimizer: collapse `if cond then return a end return b` into
// a single tail return when both branches are plain returns and cond has no
// side effects worth preserving separately; conservative: only collapses
// when the `then` block is exactly one ReturnStat and falls through to an
// immediately following ReturnStat ----

func simplifyReturns(b *ast.Block) *ast.Block {
	for i := 0; i < len(b.Stats)-1; i++ {
		ifs, ok := b.Stats[i].(*ast.IfStat)
		if !ok || ifs.Else != nil || len(ifs.ElseIfs) != 0 {
			continue
		}
		if len(ifs.Then.Stats) != 1 {
			continue
		}
		thenRet, ok := ifs.Then.Stats[0].(*ast.ReturnStat)
		if !ok {
			continue
		}
		elseRet, ok := b.Stats[i+1].(*ast.ReturnStat)
		if !ok {
			continue
		}
		ifs.Else = ast.NewBlock(elseRet.Loc(), []ast.Stat{elseRet})
		_ = thenRet
		b.Stats = append(b.Stats[:i+1], b.Stats[i+2:]...)
	}
	return b
}

// rewriteExprs applies fn bottom-up to every expression reachable from b,
// replacing each node with fn's result.
func rewriteExprs(b *ast.Block, fn func(ast.Expr) ast.Expr) {
	w := &exprRewriter{fn: fn}
	for _, st := range b.Stats {
		w.rewriteStat(st)
	}
}

type exprRewriter struct {
	fn func(ast.Expr) ast.Expr
}

func (w *exprRewriter) rw(e ast.Expr) ast.Expr {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *ast.Unary:
		n.Operand = w.rw(n.Operand)
	case *ast.Binary:
		n.Left = w.rw(n.Left)
		n.Right = w.rw(n.Right)
	case *ast.Call:
		n.Function = w.rw(n.Function)
		for i := range n.Args {
			n.Args[i] = w.rw(n.Args[i])
		}
	case *ast.IndexName:
		n.Object = w.rw(n.Object)
	case *ast.IndexExpr:
		n.Object = w.rw(n.Object)
		n.Index = w.rw(n.Index)
	case *ast.TableConstructor:
		for i := range n.Items {
			n.Items[i].Key = w.rw(n.Items[i].Key)
			n.Items[i].Value = w.rw(n.Items[i].Value)
		}
	case *ast.IfExpr:
		n.Cond = w.rw(n.Cond)
		n.Then = w.rw(n.Then)
		n.Else = w.rw(n.Else)
	case *ast.CompoundAssignExpr:
		n.Target = w.rw(n.Target)
		n.Value = w.rw(n.Value)
	case *ast.FunctionLiteral:
		w.rewriteStat(n.Body)
	}
	return w.fn(e)
}

func (w *exprRewriter) rewriteStat(st ast.Stat) {
	switch s := st.(type) {
	case *ast.Block:
		for _, inner := range s.Stats {
			w.rewriteStat(inner)
		}
	case *ast.IfStat:
		s.Cond = w.rw(s.Cond)
		w.rewriteStat(s.Then)
		for i := range s.ElseIfs {
			s.ElseIfs[i].Cond = w.rw(s.ElseIfs[i].Cond)
			w.rewriteStat(s.ElseIfs[i].Body)
		}
		if s.Else != nil {
			w.rewriteStat(s.Else)
		}
	case *ast.WhileStat:
		s.Cond = w.rw(s.Cond)
		w.rewriteStat(s.Body)
	case *ast.RepeatStat:
		w.rewriteStat(s.Body)
		s.Cond = w.rw(s.Cond)
	case *ast.NumericForStat:
		s.Start = w.rw(s.Start)
		s.Limit = w.rw(s.Limit)
		s.Step = w.rw(s.Step)
		w.rewriteStat(s.Body)
	case *ast.GenericForStat:
		for i := range s.Exprs {
			s.Exprs[i] = w.rw(s.Exprs[i])
		}
		w.rewriteStat(s.Body)
	case *ast.LocalStat:
		for i := range s.Values {
			s.Values[i] = w.rw(s.Values[i])
		}
	case *ast.AssignStat:
		for i := range s.Targets {
			s.Targets[i] = w.rw(s.Targets[i])
		}
		for i := range s.Values {
			s.Values[i] = w.rw(s.Values[i])
		}
	case *ast.CompoundAssignStat:
		s.Target = w.rw(s.Target)
		s.Value = w.rw(s.Value)
	case *ast.ReturnStat:
		for i := range s.Values {
			s.Values[i] = w.rw(s.Values[i])
		}
	case *ast.ExprStat:
		s.Call = w.rw(s.Call)
	case *ast.FunctionStat:
		w.rewriteStat(s.Func.Body)
	}
}
