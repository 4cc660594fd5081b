package compile

import (
	"fmt"

	"github.com/galang-lang/gal/ast"
	"github.com/galang-lang/gal/code"
	"github.com/galang-lang/gal/internal/galerr"
)

// expr compiles e into a freshly reserved register and returns it.
func (fc *funcCompiler) expr(e ast.Expr) (uint8, error) {
	dst := fc.f.reserve()
	if err := fc.exprTo(e, dst); err != nil {
		return 0, err
	}
	return dst, nil
}

// exprTo compiles e so its single result lands in the already-reserved
// register dst. Callers that want a scratch register should use expr
// instead.
func (fc *funcCompiler) exprTo(e ast.Expr, dst uint8) error {
	line := fc.line(e)
	switch n := e.(type) {
	case *ast.ConstantNull:
		fc.f.emit(code.CreateAD(code.OpLoadNull, dst, 0), line)

	case *ast.ConstantBool:
		var b int16
		if n.Value {
			b = 1
		}
		fc.f.emit(code.CreateAD(code.OpLoadBoolean, dst, b), line)

	case *ast.ConstantNumber:
		if iv := int16(n.Value); float64(iv) == n.Value {
			fc.f.emit(code.CreateAD(code.OpLoadNumber, dst, iv), line)
		} else {
			idx := fc.constNumber(n.Value)
			fc.f.emit(code.CreateAD(code.OpLoadKey, dst, int16(idx)), line)
		}

	case *ast.ConstantString:
		idx := fc.constString(n.Value)
		fc.f.emit(code.CreateAD(code.OpLoadKey, dst, int16(idx)), line)

	case *ast.Varargs:
		fc.f.emit(code.CreateABC(code.OpLoadVarargs, dst, 2, 0), line)

	case *ast.LocalRef:
		return fc.exprLocalRef(n, dst, line)

	case *ast.GlobalRef:
		nameRef := fc.c.pool.intern(n.Name)
		fc.f.emit(code.CreateAD(code.OpLoadGlobal, dst, 0), line)
		fc.f.emitAux(code.AuxWord(nameRef))

	case *ast.IndexName:
		objReg, err := fc.expr(n.Object)
		if err != nil {
			return err
		}
		nameRef := fc.c.pool.intern(n.Name)
		fc.f.emit(code.CreateABC(code.OpLoadTableStringKey, dst, objReg, 0), line)
		fc.f.emitAux(code.AuxWord(nameRef))
		fc.f.freeTo(objReg)

	case *ast.IndexExpr:
		objReg, err := fc.expr(n.Object)
		if err != nil {
			return err
		}
		keyReg, err := fc.expr(n.Index)
		if err != nil {
			return err
		}
		fc.f.emit(code.CreateABC(code.OpLoadTable, dst, objReg, keyReg), line)
		fc.f.freeTo(objReg)

	case *ast.Call:
		return fc.exprCall(n, dst, 1, line)

	case *ast.FunctionLiteral:
		protoIdx, upvals, err := fc.c.compileFunction(fc.f, n)
		if err != nil {
			return err
		}
		childIdx := fc.addChild(protoIdx)
		fc.f.emit(code.CreateAD(code.OpNewClosure, dst, int16(childIdx)), line)
		for _, u := range upvals {
			fc.f.emitAux(code.AuxWord(code.CaptureWord(u.kind, u.index)))
		}

	case *ast.TableConstructor:
		return fc.exprTableConstructor(n, dst, line)

	case *ast.Unary:
		return fc.exprUnary(n, dst, line)

	case *ast.Binary:
		return fc.exprBinary(n, dst, line)

	case *ast.TypeAssertion:
		// Types are erased at runtime (spec: gradual typing has no runtime
		// effect); compile the operand only.
		return fc.exprTo(n.Operand, dst)

	case *ast.IfExpr:
		return fc.exprIf(n, dst, line)

	case *ast.CompoundAssignExpr:
		return fc.exprCompoundAssign(n, dst, line)

	default:
		return fmt.Errorf("compile: unhandled expression kind %v", e.RTTIKind())
	}
	return nil
}

func (fc *funcCompiler) exprLocalRef(n *ast.LocalRef, dst uint8, line int32) error {
	if reg, ok := fc.f.resolveLocal(n.Name); ok {
		if reg != dst {
			fc.f.emit(code.CreateABC(code.OpMove, dst, reg, 0), line)
		}
		return nil
	}
	if idx, ok := fc.f.resolveUpvalue(n.Name); ok {
		fc.f.emit(code.CreateAD(code.OpLoadUpvalue, dst, int16(idx)), line)
		return nil
	}
	return fmt.Errorf("compile: %q: %w", n.Name, galerr.ErrNameNotResolved)
}

func (fc *funcCompiler) exprCall(n *ast.Call, dst uint8, numResults int, line int32) error {
	base := fc.f.freeReg

	if n.Method != "" {
		return fc.exprMethodCall(n, dst, numResults, line)
	}

	fnReg, err := fc.expr(n.Function)
	if err != nil {
		return err
	}
	nargs, err := fc.compileExprListInto(n.Args, -1)
	if err != nil {
		return err
	}
	fc.f.emit(code.CreateABC(code.OpCall, fnReg, uint8(nargs+1), uint8(numResults+1)), line)

	if numResults > 0 && fnReg != dst {
		fc.f.emit(code.CreateABC(code.OpMove, dst, fnReg, 0), line)
	}
	fc.f.freeTo(base)
	return nil
}

// exprMethodCall compiles obj:m(args). named_call only resolves and
// inline-caches the method, leaving R(calleeReg) holding the resolved
// function and R(calleeReg+1) holding the receiver as the implicit self
// argument; the actual invocation is a separate, immediately following
// call instruction.
func (fc *funcCompiler) exprMethodCall(n *ast.Call, dst uint8, numResults int, line int32) error {
	base := fc.f.freeReg
	calleeReg := fc.f.reserve()
	if _, err := fc.expr(n.Function); err != nil {
		return err
	}
	methodName := fc.c.pool.intern(n.Method)

	nargs, err := fc.compileExprListInto(n.Args, -1)
	if err != nil {
		return err
	}

	fc.f.emit(code.CreateABC(code.OpNamedCall, calleeReg, 0, 0), line)
	fc.f.emitAux(code.AuxWord(methodName))
	fc.f.emit(code.CreateABC(code.OpCall, calleeReg, uint8(nargs+2), uint8(numResults+1)), line)

	if numResults > 0 && calleeReg != dst {
		fc.f.emit(code.CreateABC(code.OpMove, dst, calleeReg, 0), line)
	}
	fc.f.freeTo(base)
	return nil
}

// exprCallDiscard compiles a call whose results are thrown away (an
// expression statement), with no destination register to preserve.
func (fc *funcCompiler) exprCallDiscard(n *ast.Call, line int32) error {
	base := fc.f.freeReg
	if err := fc.exprCall(n, fc.f.reserve(), 0, line); err != nil {
		return err
	}
	fc.f.freeTo(base)
	return nil
}

// compileExprListInto evaluates exprs back to back starting at the current
// freeReg, returning how many registers were used. want, when >= 0, pads
// with load_null up to want; surplus expressions are still evaluated and
// counted, so the result can exceed want. Every expression, including a
// trailing call or varargs, contributes exactly its first result: the
// runtime-expanded form (B=0 to call/fastcall) is never emitted, and want
// < 0 (used for call arguments) only skips the padding.
func (fc *funcCompiler) compileExprListInto(exprs []ast.Expr, want int) (int, error) {
	for _, e := range exprs {
		if _, err := fc.expr(e); err != nil {
			return 0, err
		}
	}
	n := len(exprs)
	if want >= 0 {
		for n < want {
			r := fc.f.reserve()
			fc.f.emit(code.CreateAD(code.OpLoadNull, r, 0), 0)
			n++
		}
	}
	return n, nil
}

func (fc *funcCompiler) addChild(protoIdx uint32) int {
	fc.children = append(fc.children, protoIdx)
	return len(fc.children) - 1
}

func (fc *funcCompiler) exprTableConstructor(n *ast.TableConstructor, dst uint8, line int32) error {
	fc.f.emit(code.CreateAD(code.OpNewTable, dst, int16(len(n.Items))), line)
	base := fc.f.freeReg
	listIdx := int16(1)
	for _, item := range n.Items {
		switch item.Kind {
		case ast.TableItemRecord:
			keyStr := item.Key.(*ast.ConstantString).Value
			vReg, err := fc.expr(item.Value)
			if err != nil {
				return err
			}
			nameRef := fc.c.pool.intern(keyStr)
			fc.f.emit(code.CreateABC(code.OpSetTableStringKey, vReg, dst, 0), line)
			fc.f.emitAux(code.AuxWord(nameRef))
			fc.f.freeTo(vReg)
		case ast.TableItemGeneral:
			kReg, err := fc.expr(item.Key)
			if err != nil {
				return err
			}
			vReg, err := fc.expr(item.Value)
			if err != nil {
				return err
			}
			fc.f.emit(code.CreateABC(code.OpSetTable, vReg, dst, kReg), line)
			fc.f.freeTo(kReg)
		default: // TableItemList
			vReg, err := fc.expr(item.Value)
			if err != nil {
				return err
			}
			fc.f.emit(code.CreateABC(code.OpSetList, dst, vReg, 1), line)
			fc.f.emitAux(code.AuxWord(uint32(listIdx)))
			listIdx++
			fc.f.freeTo(vReg)
		}
	}
	fc.f.freeTo(base)
	return nil
}

func (fc *funcCompiler) exprUnary(n *ast.Unary, dst uint8, line int32) error {
	operandReg, err := fc.expr(n.Operand)
	if err != nil {
		return err
	}
	var op code.Op
	switch n.Op {
	case ast.UnaryNot:
		op = code.OpNot
	case ast.UnaryNeg:
		op = code.OpNegate
	case ast.UnaryLen:
		op = code.OpLength
	}
	fc.f.emit(code.CreateABC(op, dst, operandReg, 0), line)
	fc.f.freeTo(operandReg)
	return nil
}

var binOpcode = map[ast.BinaryOp]code.Op{
	ast.BinAdd:    code.OpPlus,
	ast.BinSub:    code.OpMinus,
	ast.BinMul:    code.OpMultiply,
	ast.BinDiv:    code.OpDivide,
	ast.BinMod:    code.OpModulus,
	ast.BinPow:    code.OpPow,
	ast.BinBitAnd: code.OpBitwiseAnd,
	ast.BinBitOr:  code.OpBitwiseOr,
	ast.BinBitXor: code.OpBitwiseXor,
	ast.BinShl:    code.OpBitwiseLeftShift,
	ast.BinShr:    code.OpBitwiseRightShift,
}

func (fc *funcCompiler) exprBinary(n *ast.Binary, dst uint8, line int32) error {
	switch n.Op {
	case ast.BinAnd:
		return fc.exprShortCircuit(n, dst, line, true)
	case ast.BinOr:
		return fc.exprShortCircuit(n, dst, line, false)
	case ast.BinConcat:
		return fc.exprConcat(n, dst, line)
	case ast.BinEq, ast.BinNe, ast.BinLt, ast.BinLe, ast.BinGt, ast.BinGe:
		return fc.exprCompareToBool(n, dst, line)
	}

	lReg, err := fc.expr(n.Left)
	if err != nil {
		return err
	}
	rReg, err := fc.expr(n.Right)
	if err != nil {
		return err
	}
	op, ok := binOpcode[n.Op]
	if !ok {
		return fmt.Errorf("compile: unhandled binary op %v", n.Op)
	}
	fc.f.emit(code.CreateABC(op, dst, lReg, rReg), line)
	fc.f.freeTo(lReg)
	return nil
}

// exprCompareToBool materializes a boolean value from a comparison. The
// opcode table defines comparisons only as branch instructions (spec §6.2);
// outside a branch context this compiler lowers a comparison into a
// branch-then-load pair rather than relying on a value-producing compare
// opcode the ISA doesn't have.
func (fc *funcCompiler) exprCompareToBool(n *ast.Binary, dst uint8, line int32) error {
	op, left, right, negate := compareOpFor(n)
	lReg, err := fc.expr(left)
	if err != nil {
		return err
	}
	rReg, err := fc.expr(right)
	if err != nil {
		return err
	}
	pc := fc.f.here()
	fc.f.emit(code.CreateABC(op, lReg, rReg, 0), line)
	fc.f.emitAux(0)
	fc.f.freeTo(lReg)

	// Fallthrough means the branch condition didn't hold; the branch
	// target means it did.
	fc.f.emit(code.CreateAD(code.OpLoadBoolean, dst, boolD(negate)), line)
	jend := fc.f.emit(code.CreateE(code.OpJump, 0), line)
	fc.f.patchAuxOffset(pc)
	fc.f.emit(code.CreateAD(code.OpLoadBoolean, dst, boolD(!negate)), line)
	fc.f.patchJump(jend)
	return nil
}

func boolD(b bool) int16 {
	if b {
		return 1
	}
	return 0
}

// compareOpFor reduces the six comparison operators to three of the branch
// opcodes the ISA defines (eq/lt/le; the ne/nlt/nle forms are not used),
// swapping operands for >/>= and marking the negated sense for !=.
func compareOpFor(n *ast.Binary) (code.Op, ast.Expr, ast.Expr, bool) {
	switch n.Op {
	case ast.BinEq:
		return code.OpJumpIfEq, n.Left, n.Right, false
	case ast.BinNe:
		return code.OpJumpIfEq, n.Left, n.Right, true
	case ast.BinLt:
		return code.OpJumpIfLt, n.Left, n.Right, false
	case ast.BinLe:
		return code.OpJumpIfLe, n.Left, n.Right, false
	case ast.BinGt:
		return code.OpJumpIfLt, n.Right, n.Left, false
	default: // ast.BinGe
		return code.OpJumpIfLe, n.Right, n.Left, false
	}
}

func (fc *funcCompiler) exprShortCircuit(n *ast.Binary, dst uint8, line int32, isAnd bool) error {
	if err := fc.exprTo(n.Left, dst); err != nil {
		return err
	}
	op := code.OpLogicalOr
	if isAnd {
		op = code.OpLogicalAnd
	}
	skip := fc.f.emit(code.CreateAD(op, dst, 0), line)
	if err := fc.exprTo(n.Right, dst); err != nil {
		return err
	}
	fc.f.patchJump(skip)
	return nil
}

func (fc *funcCompiler) exprConcat(n *ast.Binary, dst uint8, line int32) error {
	lReg, err := fc.expr(n.Left)
	if err != nil {
		return err
	}
	rReg, err := fc.expr(n.Right)
	if err != nil {
		return err
	}
	fc.f.emit(code.CreateABC(code.OpPlus, dst, lReg, rReg), line)
	fc.f.freeTo(lReg)
	return nil
}

func (fc *funcCompiler) exprIf(n *ast.IfExpr, dst uint8, line int32) error {
	condReg, err := fc.expr(n.Cond)
	if err != nil {
		return err
	}
	fc.f.freeTo(condReg)
	jf := fc.f.emit(code.CreateAD(code.OpJumpIfNot, condReg, 0), line)
	if err := fc.exprTo(n.Then, dst); err != nil {
		return err
	}
	jend := fc.f.emit(code.CreateE(code.OpJump, 0), line)
	fc.f.patchJump(jf)
	if err := fc.exprTo(n.Else, dst); err != nil {
		return err
	}
	fc.f.patchJump(jend)
	return nil
}

func (fc *funcCompiler) exprCompoundAssign(n *ast.CompoundAssignExpr, dst uint8, line int32) error {
	bin := &ast.Binary{Op: n.Op, Left: n.Target, Right: n.Value}
	if err := fc.exprBinary(bin, dst, line); err != nil {
		return err
	}
	return fc.assignTo(n.Target, dst, line)
}
