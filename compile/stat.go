package compile

import (
	"fmt"

	"github.com/galang-lang/gal/ast"
	"github.com/galang-lang/gal/code"
)

// block compiles every statement in b, opening and closing a lexical scope
// when the parser's block_optimizer (spec §4.8) determined one is needed.
func (fc *funcCompiler) block(b *ast.Block) error {
	if b.HasScope {
		fc.f.enterBlock()
		defer fc.f.exitBlock()
	}
	for _, s := range b.Stats {
		if err := fc.stat(s); err != nil {
			return err
		}
	}
	return nil
}

func (fc *funcCompiler) stat(s ast.Stat) error {
	line := fc.line(s)
	switch n := s.(type) {
	case *ast.Block:
		return fc.block(n)

	case *ast.IfStat:
		return fc.ifStat(n, line)

	case *ast.WhileStat:
		return fc.whileStat(n, line)

	case *ast.RepeatStat:
		return fc.repeatStat(n, line)

	case *ast.NumericForStat:
		return fc.numericForStat(n, line)

	case *ast.GenericForStat:
		return fc.genericForStat(n, line)

	case *ast.FunctionStat:
		return fc.functionStat(n, line)

	case *ast.LocalStat:
		return fc.localStat(n, line)

	case *ast.AssignStat:
		return fc.assignStat(n, line)

	case *ast.CompoundAssignStat:
		base := fc.f.freeReg
		vReg, err := fc.expr(&ast.Binary{Op: n.Op, Left: n.Target, Right: n.Value})
		if err != nil {
			return err
		}
		if err := fc.assignTo(n.Target, vReg, line); err != nil {
			return err
		}
		fc.f.freeTo(base)
		return nil

	case *ast.DeclareStat, *ast.TypeAliasStat:
		// Pure type-level declarations, erased at runtime.
		return nil

	case *ast.ReturnStat:
		return fc.returnStat(n, line)

	case *ast.BreakStat:
		loop := fc.f.currentLoop()
		if loop == nil {
			return fmt.Errorf("compile: break outside loop")
		}
		pc := fc.f.emit(code.CreateE(code.OpJump, 0), line)
		loop.breakJumps = append(loop.breakJumps, pc)
		return nil

	case *ast.ContinueStat:
		loop := fc.f.currentLoop()
		if loop == nil {
			return fmt.Errorf("compile: continue outside loop")
		}
		if loop.continueTarget >= 0 {
			fc.f.emit(code.CreateE(code.OpJumpBack, int32(fc.f.here()-loop.continueTarget)), line)
		} else {
			pc := fc.f.emit(code.CreateE(code.OpJump, 0), line)
			loop.continueJumps = append(loop.continueJumps, pc)
		}
		return nil

	case *ast.ExprStat:
		base := fc.f.freeReg
		if call, ok := n.Call.(*ast.Call); ok {
			if err := fc.exprCallDiscard(call, line); err != nil {
				return err
			}
		} else if _, err := fc.expr(n.Call); err != nil {
			return err
		}
		fc.f.freeTo(base)
		return nil

	case *ast.ErrorStat:
		// Synthetic recovery placeholder; the parser already recorded a
		// diagnostic for it.
		return nil

	default:
		return fmt.Errorf("compile: unhandled statement kind %v", s.RTTIKind())
	}
}

func (fc *funcCompiler) ifStat(n *ast.IfStat, line int32) error {
	base := fc.f.freeReg
	condReg, err := fc.expr(n.Cond)
	if err != nil {
		return err
	}
	fc.f.freeTo(condReg)
	jf := fc.f.emit(code.CreateAD(code.OpJumpIfNot, condReg, 0), line)
	if err := fc.block(n.Then); err != nil {
		return err
	}
	var ends []int
	ends = append(ends, fc.f.emit(code.CreateE(code.OpJump, 0), line))
	fc.f.patchJump(jf)

	for _, ei := range n.ElseIfs {
		eiCondReg, err := fc.expr(ei.Cond)
		if err != nil {
			return err
		}
		fc.f.freeTo(eiCondReg)
		jf2 := fc.f.emit(code.CreateAD(code.OpJumpIfNot, eiCondReg, 0), line)
		if err := fc.block(ei.Body); err != nil {
			return err
		}
		ends = append(ends, fc.f.emit(code.CreateE(code.OpJump, 0), line))
		fc.f.patchJump(jf2)
	}

	if n.Else != nil {
		if err := fc.block(n.Else); err != nil {
			return err
		}
	}
	for _, e := range ends {
		fc.f.patchJump(e)
	}
	fc.f.freeTo(base)
	return nil
}

func (fc *funcCompiler) whileStat(n *ast.WhileStat, line int32) error {
	base := fc.f.freeReg
	loop := fc.f.enterLoop()
	testPC := fc.f.here()
	loop.continueTarget = testPC

	condReg, err := fc.expr(n.Cond)
	if err != nil {
		return err
	}
	fc.f.freeTo(condReg)
	jexit := fc.f.emit(code.CreateAD(code.OpJumpIfNot, condReg, 0), line)

	if err := fc.block(n.Body); err != nil {
		return err
	}
	fc.f.emit(code.CreateE(code.OpJumpBack, int32(fc.f.here()-testPC)), line)
	fc.f.patchJump(jexit)

	loop = fc.f.exitLoop()
	for _, pc := range loop.breakJumps {
		fc.f.patchJump(pc)
	}
	fc.f.freeTo(base)
	return nil
}

func (fc *funcCompiler) repeatStat(n *ast.RepeatStat, line int32) error {
	base := fc.f.freeReg
	loop := fc.f.enterLoop()
	bodyPC := fc.f.here()

	// repeat's condition can see the body's locals, so it is compiled as
	// part of the same scope rather than via the usual block() call.
	fc.f.enterBlock()
	for _, st := range n.Body.Stats {
		if err := fc.stat(st); err != nil {
			return err
		}
	}
	fc.f.resolveContinueTarget(loop)
	condReg, err := fc.expr(n.Cond)
	if err != nil {
		return err
	}
	fc.f.exitBlock()
	fc.f.freeTo(condReg)
	jexit := fc.f.emit(code.CreateAD(code.OpJumpIf, condReg, 0), line)
	fc.f.emit(code.CreateE(code.OpJumpBack, int32(fc.f.here()-bodyPC)), line)
	fc.f.patchJump(jexit)

	loop = fc.f.exitLoop()
	for _, pc := range loop.breakJumps {
		fc.f.patchJump(pc)
	}
	fc.f.freeTo(base)
	return nil
}

func (fc *funcCompiler) numericForStat(n *ast.NumericForStat, line int32) error {
	// Four consecutive slots: limit, step, index (the internal counter),
	// variable (the user-visible loop var for_numeric_loop copies the
	// counter into each iteration).
	base := fc.f.reserveN(4)
	if err := fc.exprTo(n.Limit, base); err != nil {
		return err
	}
	if n.Step != nil {
		if err := fc.exprTo(n.Step, base+1); err != nil {
			return err
		}
	} else {
		fc.f.emit(code.CreateAD(code.OpLoadNumber, base+1, 1), line)
	}
	if err := fc.exprTo(n.Start, base+2); err != nil {
		return err
	}

	prepPC := fc.f.emit(code.CreateAD(code.OpForNumericLoopPrepare, base, 0), line)

	loop := fc.f.enterLoop()
	fc.f.enterBlock()
	fc.f.declareLocalAt(n.Var.Name, base+3)

	bodyPC := fc.f.here()
	if err := fc.block(n.Body); err != nil {
		return err
	}
	fc.f.resolveContinueTarget(loop)
	fc.f.emit(code.CreateAD(code.OpForNumericLoop, base, int16(bodyPC-fc.f.here()-1)), line)
	fc.f.exitBlock()
	fc.f.patchJump(prepPC)

	loop = fc.f.exitLoop()
	for _, pc := range loop.breakJumps {
		fc.f.patchJump(pc)
	}
	fc.f.freeTo(base)
	return nil
}

func (fc *funcCompiler) genericForStat(n *ast.GenericForStat, line int32) error {
	// base, base+1, base+2 receive the iterator function/state/control
	// triple; a single-call iterator expression (the common case,
	// `for k, v in pairs(t)`) only yields its first result here, a
	// documented limit of compileExprListInto's multi-value handling.
	base := fc.f.freeReg
	if _, err := fc.compileExprListInto(n.Exprs, 3); err != nil {
		return err
	}

	loop := fc.f.enterLoop()
	fc.f.enterBlock()
	var varBase uint8
	for i, v := range n.Vars {
		reg := fc.f.declareLocal(v.Name)
		if i == 0 {
			varBase = reg
		}
	}

	bodyPC := fc.f.here()
	fc.f.emit(code.CreateABC(code.OpForGenericLoop, base, uint8(len(n.Vars)), 0), line)
	fc.f.emitAux(code.AuxWord(varBase))
	jexit := fc.f.emit(code.CreateAD(code.OpJumpIfNot, varBase, 0), line)

	if err := fc.block(n.Body); err != nil {
		return err
	}
	fc.f.resolveContinueTarget(loop)
	fc.f.emit(code.CreateE(code.OpJumpBack, int32(fc.f.here()-bodyPC)), line)
	fc.f.patchJump(jexit)
	fc.f.exitBlock()

	loop = fc.f.exitLoop()
	for _, pc := range loop.breakJumps {
		fc.f.patchJump(pc)
	}
	fc.f.freeTo(base)
	return nil
}

func (fc *funcCompiler) functionStat(n *ast.FunctionStat, line int32) error {
	lit := n.Func
	lit.SelfParam = n.IsMethod

	var target ast.Expr = &ast.GlobalRef{Name: n.NameChain[0]}
	for _, field := range n.NameChain[1:] {
		target = &ast.IndexName{Object: target, Name: field}
	}

	base := fc.f.freeReg
	reg, err := fc.expr(lit)
	if err != nil {
		return err
	}
	if err := fc.assignTo(target, reg, line); err != nil {
		return err
	}
	fc.f.freeTo(base)
	return nil
}

func (fc *funcCompiler) localStat(n *ast.LocalStat, line int32) error {
	if n.IsLocalFunction {
		reg := fc.f.declareLocal(n.Bindings[0].Name)
		return fc.exprTo(n.Func, reg)
	}
	base := fc.f.freeReg
	_, err := fc.compileExprListInto(n.Values, len(n.Bindings))
	if err != nil {
		return err
	}
	fc.f.freeTo(base)
	for i, b := range n.Bindings {
		reg := fc.f.declareLocal(b.Name)
		if int(reg) != int(base)+i {
			fc.f.emit(code.CreateABC(code.OpMove, reg, uint8(int(base)+i), 0), line)
		}
	}
	return nil
}

func (fc *funcCompiler) assignStat(n *ast.AssignStat, line int32) error {
	base := fc.f.freeReg
	regs := make([]uint8, len(n.Targets))
	if _, err := fc.compileExprListInto(n.Values, len(n.Targets)); err != nil {
		return err
	}
	for i := range n.Targets {
		regs[i] = uint8(int(base) + i)
	}
	for i, t := range n.Targets {
		if err := fc.assignTo(t, regs[i], line); err != nil {
			return err
		}
	}
	fc.f.freeTo(base)
	return nil
}

// assignTo stores the value currently in reg into target, which must be a
// LocalRef, GlobalRef, IndexName, or IndexExpr.
func (fc *funcCompiler) assignTo(target ast.Expr, reg uint8, line int32) error {
	switch t := target.(type) {
	case *ast.LocalRef:
		if local, ok := fc.f.resolveLocal(t.Name); ok {
			if local != reg {
				fc.f.emit(code.CreateABC(code.OpMove, local, reg, 0), line)
			}
			return nil
		}
		if idx, ok := fc.f.resolveUpvalue(t.Name); ok {
			fc.f.emit(code.CreateAD(code.OpSetUpvalue, reg, int16(idx)), line)
			return nil
		}
		return fmt.Errorf("compile: assignment to unresolved name %q", t.Name)

	case *ast.GlobalRef:
		nameRef := fc.c.pool.intern(t.Name)
		fc.f.emit(code.CreateAD(code.OpSetGlobal, reg, 0), line)
		fc.f.emitAux(code.AuxWord(nameRef))
		return nil

	case *ast.IndexName:
		base := fc.f.freeReg
		objReg, err := fc.expr(t.Object)
		if err != nil {
			return err
		}
		nameRef := fc.c.pool.intern(t.Name)
		fc.f.emit(code.CreateABC(code.OpSetTableStringKey, reg, objReg, 0), line)
		fc.f.emitAux(code.AuxWord(nameRef))
		fc.f.freeTo(base)
		return nil

	case *ast.IndexExpr:
		base := fc.f.freeReg
		objReg, err := fc.expr(t.Object)
		if err != nil {
			return err
		}
		keyReg, err := fc.expr(t.Index)
		if err != nil {
			return err
		}
		fc.f.emit(code.CreateABC(code.OpSetTable, reg, objReg, keyReg), line)
		fc.f.freeTo(base)
		return nil

	default:
		return fmt.Errorf("compile: invalid assignment target %v", target.RTTIKind())
	}
}

func (fc *funcCompiler) returnStat(n *ast.ReturnStat, line int32) error {
	base := fc.f.freeReg
	count, err := fc.compileExprListInto(n.Values, -1)
	if err != nil {
		return err
	}
	fc.f.emit(code.CreateAD(code.OpCallReturn, uint8(base), int16(count+1)), line)
	fc.f.freeTo(base)
	return nil
}
